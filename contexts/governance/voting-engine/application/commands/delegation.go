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

type DelegateVoteCommand struct {
	Caller   string
	Delegate string
	RoundID  uint64
}

// DelegationUseCase maintains per-round delegation edges and the aggregated
// delegate power. The aggregate is updated incrementally on every edge change
// and never recomputed from scratch.
type DelegationUseCase struct {
	UoW    ports.UnitOfWork
	Clock  ports.Clock
	Logger *slog.Logger
}

// DelegateVote snapshots the caller's current base weight into the delegation
// edge and adds that snapshot to the delegate's aggregated power. Later
// changes to the caller's base weight do not adjust an existing delegation.
func (uc DelegationUseCase) DelegateVote(ctx context.Context, cmd DelegateVoteCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	caller := normalizeAccount(cmd.Caller)
	delegate := normalizeAccount(cmd.Delegate)
	if caller == "" || delegate == "" {
		return domainerrors.ErrInvalidInput
	}

	err := uc.UoW.Atomic(ctx, func(repo ports.Repository) error {
		// Self-delegation fails before any round or eligibility state is read.
		if delegate == caller {
			return domainerrors.ErrSelfDelegation
		}
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
		if existing, found, err := repo.GetDelegation(ctx, caller, cmd.RoundID); err != nil {
			return err
		} else if found && existing.Active {
			return domainerrors.ErrDelegationExists
		}

		weight := eligibility.EffectiveBaseWeight()
		now := uc.now()
		if err := repo.SaveDelegation(ctx, entities.Delegation{
			Delegator: caller,
			RoundID:   cmd.RoundID,
			Delegate:  delegate,
			Weight:    weight,
			Active:    true,
			CreatedAt: now,
		}); err != nil {
			return err
		}
		power, _, err := repo.GetDelegatePower(ctx, delegate, cmd.RoundID)
		if err != nil {
			return err
		}
		power.Delegate = delegate
		power.RoundID = cmd.RoundID
		power.TotalDelegatedWeight += weight
		if err := repo.SaveDelegatePower(ctx, power); err != nil {
			return err
		}
		return appendAudit(ctx, repo, "governance.delegation.created", caller, &cmd.RoundID, state.CurrentHeight, now, map[string]any{
			"delegate": delegate,
			"weight":   weight,
		})
	})
	if err != nil {
		logger.Warn("delegation rejected",
			"event", "governance_delegation_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"delegate", delegate,
			"round_id", cmd.RoundID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("delegation created",
		"event", "governance_delegation_created",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"delegate", delegate,
		"round_id", cmd.RoundID,
	)
	return nil
}

// RevokeDelegation deletes the caller's delegation edge and subtracts the
// exact stored snapshot weight from the delegate's aggregate, not a
// recomputed current weight.
func (uc DelegationUseCase) RevokeDelegation(ctx context.Context, caller string, roundID uint64) error {
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
		delegation, found, err := repo.GetDelegation(ctx, caller, roundID)
		if err != nil {
			return err
		}
		if !found || !delegation.Active {
			return domainerrors.ErrNoActiveDelegation
		}
		if err := repo.DeleteDelegation(ctx, caller, roundID); err != nil {
			return err
		}
		power, _, err := repo.GetDelegatePower(ctx, delegation.Delegate, roundID)
		if err != nil {
			return err
		}
		power.Delegate = delegation.Delegate
		power.RoundID = roundID
		if power.TotalDelegatedWeight >= delegation.Weight {
			power.TotalDelegatedWeight -= delegation.Weight
		} else {
			power.TotalDelegatedWeight = 0
		}
		if err := repo.SaveDelegatePower(ctx, power); err != nil {
			return err
		}
		return appendAudit(ctx, repo, "governance.delegation.revoked", caller, &roundID, state.CurrentHeight, uc.now(), map[string]any{
			"delegate": delegation.Delegate,
			"weight":   delegation.Weight,
		})
	})
	if err != nil {
		logger.Warn("delegation revocation rejected",
			"event", "governance_delegation_revoke_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"round_id", roundID,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("delegation revoked",
		"event", "governance_delegation_revoked",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"round_id", roundID,
	)
	return nil
}

func (uc DelegationUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
