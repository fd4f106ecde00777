package commands

import (
	"context"
	"log/slog"
	"time"

	application "agora/contexts/governance/voting-engine/application"
	"agora/contexts/governance/voting-engine/domain/entities"
	domainerrors "agora/contexts/governance/voting-engine/domain/errors"
	"agora/contexts/governance/voting-engine/ports"
)

type FinalizeResult struct {
	WinnerCandidateID    *uint64
	ParticipationRatePct uint64
}

// FinalizeUseCase closes rounds: it enforces the participation gate, resolves
// the winner deterministically, and flips the round to its terminal state.
// A failed finalization leaves the round untouched and can be retried.
type FinalizeUseCase struct {
	UoW    ports.UnitOfWork
	Clock  ports.Clock
	Logger *slog.Logger
}

func (uc FinalizeUseCase) FinalizeRound(ctx context.Context, caller string, roundID uint64) (FinalizeResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller = normalizeAccount(caller)
	if caller == "" {
		return FinalizeResult{}, domainerrors.ErrInvalidInput
	}

	var result FinalizeResult
	err := uc.UoW.Atomic(ctx, func(repo ports.Repository) error {
		state, err := repo.GetState(ctx)
		if err != nil {
			return err
		}
		moderator, err := isModerator(ctx, repo, state, caller)
		if err != nil {
			return err
		}
		if !moderator {
			return domainerrors.ErrUnauthorized
		}
		round, err := repo.GetRound(ctx, roundID)
		if err != nil {
			return err
		}
		if state.CurrentHeight <= round.EndHeight {
			return domainerrors.ErrRoundNotActive
		}
		if round.IsFinalized {
			return domainerrors.ErrAlreadyFinalized
		}

		stats, _, err := repo.GetStats(ctx, roundID)
		if err != nil {
			return err
		}
		rate := stats.ParticipationRate()
		if rate < round.MinParticipationPct {
			return domainerrors.ErrMinParticipationNotMet
		}

		tallies, err := repo.ListTallies(ctx, roundID)
		if err != nil {
			return err
		}
		var winner *uint64
		if id, found := entities.WinningCandidate(tallies); found {
			winner = &id
		}

		now := uc.now()
		round.Status = entities.RoundStatusFinalized
		round.IsFinalized = true
		round.WinnerCandidateID = winner
		round.UpdatedAt = now
		if err := repo.SaveRound(ctx, round); err != nil {
			return err
		}
		stats.RoundID = roundID
		stats.ParticipationRatePct = rate
		if err := repo.SaveStats(ctx, stats); err != nil {
			return err
		}

		result = FinalizeResult{
			WinnerCandidateID:    winner,
			ParticipationRatePct: rate,
		}
		details := map[string]any{
			"participation_rate_pct": rate,
		}
		if winner != nil {
			details["winner_candidate_id"] = *winner
		}
		return appendAudit(ctx, repo, "governance.round.finalized", caller, &roundID, state.CurrentHeight, now, details)
	})
	if err != nil {
		logger.Warn("round finalization rejected",
			"event", "governance_round_finalize_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"round_id", roundID,
			"error", err.Error(),
		)
		return FinalizeResult{}, err
	}
	logger.Info("round finalized",
		"event", "governance_round_finalized",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"round_id", roundID,
		"participation_rate_pct", result.ParticipationRatePct,
	)
	return result, nil
}

func (uc FinalizeUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
