package commands

import (
	"context"
	"errors"
	"log/slog"
	"time"

	application "agora/contexts/governance/voting-engine/application"
	"agora/contexts/governance/voting-engine/domain/entities"
	domainerrors "agora/contexts/governance/voting-engine/domain/errors"
	"agora/contexts/governance/voting-engine/ports"
)

type VoteCommand struct {
	Caller      string
	RoundID     uint64
	CandidateID uint64
}

type VoteResult struct {
	VoteWeight     uint64
	DelegatedShare uint64
	IsDelegated    bool
}

// VoteUseCase records one immutable ballot per (voter, round) and maintains
// the per-candidate tallies and round statistics.
//
// CorrectedParticipation selects the participation accounting mode. The
// source behavior never adds cast weight to RoundStats.TotalWeightCast, so a
// round with a nonzero minimum-participation threshold can never finalize on
// votes alone; that is the default. The corrected mode adds each ballot's
// effective power to TotalWeightCast.
type VoteUseCase struct {
	UoW                    ports.UnitOfWork
	Clock                  ports.Clock
	CorrectedParticipation bool
	Logger                 *slog.Logger
}

// Vote casts a ballot with the caller's own effective power: base weight plus
// any delegated power the caller has received for this round. The record is
// always marked non-delegated on this path.
func (uc VoteUseCase) Vote(ctx context.Context, cmd VoteCommand) (VoteResult, error) {
	return uc.castVote(ctx, cmd, false)
}

// VoteWithDelegation computes the same effective power but marks the ballot
// delegated when any received power contributed, and attributes that share to
// the candidate's delegated-votes counter.
func (uc VoteUseCase) VoteWithDelegation(ctx context.Context, cmd VoteCommand) (VoteResult, error) {
	return uc.castVote(ctx, cmd, true)
}

func (uc VoteUseCase) castVote(ctx context.Context, cmd VoteCommand, delegatedEntry bool) (VoteResult, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := normalizeAccount(cmd.Caller)
	if caller == "" {
		return VoteResult{}, domainerrors.ErrInvalidInput
	}

	var result VoteResult
	err := uc.UoW.Atomic(ctx, func(repo ports.Repository) error {
		state, err := repo.GetState(ctx)
		if err != nil {
			return err
		}
		round, err := repo.GetRound(ctx, cmd.RoundID)
		if err != nil {
			if errors.Is(err, domainerrors.ErrRoundNotFound) {
				return domainerrors.ErrRoundNotActive
			}
			return err
		}
		if !roundIsActive(state, round) {
			return domainerrors.ErrRoundNotActive
		}
		eligibility, found, err := repo.GetEligibility(ctx, caller)
		if err != nil {
			return err
		}
		if !found || !eligibility.Eligible {
			return domainerrors.ErrVoterNotEligible
		}
		if _, err := repo.GetCandidate(ctx, cmd.RoundID, cmd.CandidateID); err != nil {
			return err
		}
		// One ballot per (voter, round), shared across both entry points. A
		// voter who delegated their own power away is still allowed here:
		// delegation grants power to the delegate, it does not revoke the
		// delegator's right to vote directly.
		if _, voted, err := repo.GetVoteRecord(ctx, caller, cmd.RoundID); err != nil {
			return err
		} else if voted {
			return domainerrors.ErrAlreadyVoted
		}

		received, _, err := repo.GetDelegatePower(ctx, caller, cmd.RoundID)
		if err != nil {
			return err
		}
		power := eligibility.EffectiveBaseWeight() + received.TotalDelegatedWeight
		isDelegated := delegatedEntry && received.TotalDelegatedWeight > 0

		now := uc.now()
		if err := repo.SaveVoteRecord(ctx, entities.VoteRecord{
			Voter:        caller,
			RoundID:      cmd.RoundID,
			HasVoted:     true,
			CandidateID:  cmd.CandidateID,
			VoteWeight:   power,
			CastAtHeight: state.CurrentHeight,
			CastAt:       now,
			IsDelegated:  isDelegated,
		}); err != nil {
			return err
		}

		tally, _, err := repo.GetTally(ctx, cmd.RoundID, cmd.CandidateID)
		if err != nil {
			return err
		}
		tally.RoundID = cmd.RoundID
		tally.CandidateID = cmd.CandidateID
		tally.VoteCount++
		tally.WeightedVotes += power
		if delegatedEntry {
			tally.DelegatedVotes += received.TotalDelegatedWeight
		}
		if err := repo.SaveTally(ctx, tally); err != nil {
			return err
		}

		stats, _, err := repo.GetStats(ctx, cmd.RoundID)
		if err != nil {
			return err
		}
		stats.RoundID = cmd.RoundID
		stats.TotalVotesCast++
		if uc.CorrectedParticipation {
			stats.TotalWeightCast += power
		}
		if isDelegated {
			stats.DelegatedVotesCast++
		}
		eligible, err := repo.CountEligibleVoters(ctx)
		if err != nil {
			return err
		}
		stats.TotalEligibleVoters = eligible
		stats.ParticipationRatePct = stats.ParticipationRate()
		stats.DelegationRatePct = stats.DelegationRate()
		if err := repo.SaveStats(ctx, stats); err != nil {
			return err
		}

		result = VoteResult{
			VoteWeight:     power,
			DelegatedShare: received.TotalDelegatedWeight,
			IsDelegated:    isDelegated,
		}
		return appendAudit(ctx, repo, "governance.vote.cast", caller, &cmd.RoundID, state.CurrentHeight, now, map[string]any{
			"candidate_id": cmd.CandidateID,
			"weight":       power,
			"delegated":    isDelegated,
		})
	})
	if err != nil {
		logger.Warn("vote rejected",
			"event", "governance_vote_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"round_id", cmd.RoundID,
			"candidate_id", cmd.CandidateID,
			"error", err.Error(),
		)
		return VoteResult{}, err
	}
	logger.Info("vote cast",
		"event", "governance_vote_cast",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"round_id", cmd.RoundID,
		"candidate_id", cmd.CandidateID,
		"weight", result.VoteWeight,
		"delegated", result.IsDelegated,
	)
	return result, nil
}

func (uc VoteUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
