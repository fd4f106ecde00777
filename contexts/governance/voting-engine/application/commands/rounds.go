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

const roundSequence = "round"

type CreateRoundCommand struct {
	Caller              string
	Type                entities.RoundType
	Name                string
	Description         string
	StartHeight         uint64
	EndHeight           uint64
	MinParticipationPct uint64
	QuorumThresholdPct  uint64
	PrivacyLevel        string
}

// RoundUseCase owns round lifecycle and the engine control operations
// (pause, ownership, height).
type RoundUseCase struct {
	UoW    ports.UnitOfWork
	Clock  ports.Clock
	Logger *slog.Logger
}

// CreateRound allocates the next round id and stores a Draft round with zero
// tallies. The eligible-voter count is stamped into the round stats row so
// participation math has a denominator from the start.
func (uc RoundUseCase) CreateRound(ctx context.Context, cmd CreateRoundCommand) (uint64, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := normalizeAccount(cmd.Caller)
	if caller == "" {
		return 0, domainerrors.ErrInvalidInput
	}

	var roundID uint64
	err := uc.UoW.Atomic(ctx, func(repo ports.Repository) error {
		state, err := repo.GetState(ctx)
		if err != nil {
			return err
		}
		allowed, err := canCreateRounds(ctx, repo, state, caller)
		if err != nil {
			return err
		}
		if !allowed {
			return domainerrors.ErrUnauthorized
		}
		if state.Paused {
			return domainerrors.ErrPaused
		}
		if cmd.EndHeight <= cmd.StartHeight {
			return domainerrors.ErrInvalidRound
		}
		if cmd.QuorumThresholdPct > 100 {
			return domainerrors.ErrInvalidQuorum
		}
		if cmd.MinParticipationPct > 100 {
			return domainerrors.ErrInvalidParticipation
		}

		id, err := repo.NextSequence(ctx, roundSequence)
		if err != nil {
			return err
		}
		eligible, err := repo.CountEligibleVoters(ctx)
		if err != nil {
			return err
		}
		now := uc.now()
		if err := repo.SaveRound(ctx, entities.Round{
			ID:                  id,
			Type:                cmd.Type,
			Name:                cmd.Name,
			Description:         cmd.Description,
			Status:              entities.RoundStatusDraft,
			StartHeight:         cmd.StartHeight,
			EndHeight:           cmd.EndHeight,
			MinParticipationPct: cmd.MinParticipationPct,
			QuorumThresholdPct:  cmd.QuorumThresholdPct,
			PrivacyLevel:        cmd.PrivacyLevel,
			Creator:             caller,
			CreatedAt:           now,
			UpdatedAt:           now,
		}); err != nil {
			return err
		}
		if err := repo.SaveStats(ctx, entities.RoundStats{
			RoundID:             id,
			TotalEligibleVoters: eligible,
		}); err != nil {
			return err
		}
		roundID = id
		return appendAudit(ctx, repo, "governance.round.created", caller, &id, state.CurrentHeight, now, map[string]any{
			"type":             string(cmd.Type),
			"name":             cmd.Name,
			"start_height":     cmd.StartHeight,
			"end_height":       cmd.EndHeight,
			"min_part_pct":     cmd.MinParticipationPct,
			"quorum_threshold": cmd.QuorumThresholdPct,
		})
	})
	if err != nil {
		logger.Warn("round creation rejected",
			"event", "governance_round_create_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"error", err.Error(),
		)
		return 0, err
	}
	logger.Info("round created",
		"event", "governance_round_created",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"round_id", roundID,
	)
	return roundID, nil
}

// ActivateRound flips a round to Active. Re-activating an already-Active
// round is permitted; a finalized round is terminal and fails instead, which
// keeps the once-finalized invariant intact.
func (uc RoundUseCase) ActivateRound(ctx context.Context, caller string, roundID uint64) error {
	logger := application.ResolveLogger(uc.Logger)
	caller = normalizeAccount(caller)
	if caller == "" {
		return domainerrors.ErrInvalidInput
	}

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
		if round.IsFinalized {
			return domainerrors.ErrAlreadyFinalized
		}
		now := uc.now()
		round.Status = entities.RoundStatusActive
		round.UpdatedAt = now
		if err := repo.SaveRound(ctx, round); err != nil {
			return err
		}
		return appendAudit(ctx, repo, "governance.round.activated", caller, &roundID, state.CurrentHeight, now, nil)
	})
	if err != nil {
		logger.Warn("round activation rejected",
			"event", "governance_round_activate_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"round_id", roundID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("round activated",
		"event", "governance_round_activated",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"round_id", roundID,
	)
	return nil
}

// SetEmergencyPause toggles the global pause flag. While paused, round
// creation, delegation, and voting are all refused.
func (uc RoundUseCase) SetEmergencyPause(ctx context.Context, caller string, paused bool) error {
	logger := application.ResolveLogger(uc.Logger)
	caller = normalizeAccount(caller)
	if caller == "" {
		return domainerrors.ErrInvalidInput
	}

	err := uc.UoW.Atomic(ctx, func(repo ports.Repository) error {
		state, err := repo.GetState(ctx)
		if err != nil {
			return err
		}
		admin, err := isAdmin(ctx, repo, caller)
		if err != nil {
			return err
		}
		if !admin {
			return domainerrors.ErrUnauthorized
		}
		now := uc.now()
		state.Paused = paused
		state.UpdatedAt = now
		if err := repo.SaveState(ctx, state); err != nil {
			return err
		}
		return appendAudit(ctx, repo, "governance.pause.updated", caller, nil, state.CurrentHeight, now, map[string]any{
			"paused": paused,
		})
	})
	if err != nil {
		logger.Warn("pause update rejected",
			"event", "governance_pause_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"paused", paused,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("pause updated",
		"event", "governance_pause_updated",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"paused", paused,
	)
	return nil
}

func (uc RoundUseCase) TransferOwnership(ctx context.Context, caller string, newOwner string) error {
	logger := application.ResolveLogger(uc.Logger)
	caller = normalizeAccount(caller)
	newOwner = normalizeAccount(newOwner)
	if caller == "" || newOwner == "" {
		return domainerrors.ErrInvalidInput
	}

	err := uc.UoW.Atomic(ctx, func(repo ports.Repository) error {
		state, err := repo.GetState(ctx)
		if err != nil {
			return err
		}
		if caller != state.Owner {
			return domainerrors.ErrUnauthorized
		}
		now := uc.now()
		state.Owner = newOwner
		state.UpdatedAt = now
		if err := repo.SaveState(ctx, state); err != nil {
			return err
		}
		return appendAudit(ctx, repo, "governance.ownership.transferred", caller, nil, state.CurrentHeight, now, map[string]any{
			"new_owner": newOwner,
		})
	})
	if err != nil {
		logger.Warn("ownership transfer rejected",
			"event", "governance_ownership_transfer_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("ownership transferred",
		"event", "governance_ownership_transferred",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"new_owner", newOwner,
	)
	return nil
}

// AdvanceHeight moves the externally supplied height counter forward. The
// counter is monotonically non-decreasing; regressions are refused.
func (uc RoundUseCase) AdvanceHeight(ctx context.Context, caller string, height uint64) error {
	logger := application.ResolveLogger(uc.Logger)
	caller = normalizeAccount(caller)
	if caller == "" {
		return domainerrors.ErrInvalidInput
	}

	err := uc.UoW.Atomic(ctx, func(repo ports.Repository) error {
		state, err := repo.GetState(ctx)
		if err != nil {
			return err
		}
		admin, err := isAdmin(ctx, repo, caller)
		if err != nil {
			return err
		}
		if !admin {
			return domainerrors.ErrUnauthorized
		}
		if height < state.CurrentHeight {
			return domainerrors.ErrInvalidHeight
		}
		now := uc.now()
		state.CurrentHeight = height
		state.UpdatedAt = now
		if err := repo.SaveState(ctx, state); err != nil {
			return err
		}
		return appendAudit(ctx, repo, "governance.height.advanced", caller, nil, height, now, nil)
	})
	if err != nil {
		logger.Warn("height advance rejected",
			"event", "governance_height_advance_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"height", height,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("height advanced",
		"event", "governance_height_advanced",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"height", height,
	)
	return nil
}

func (uc RoundUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
