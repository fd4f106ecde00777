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

// SetUserRoleCommand overwrites all four capability flags for the target
// account. There is no partial update.
type SetUserRoleCommand struct {
	Caller          string
	Target          string
	Admin           bool
	Moderator       bool
	CanCreateRounds bool
	CanPropose      bool
}

type RegisterVoterCommand struct {
	Caller     string
	Voter      string
	Weight     uint64
	Reputation uint64
}

// RegistryUseCase owns the role table and the voter eligibility registry.
type RegistryUseCase struct {
	UoW    ports.UnitOfWork
	Clock  ports.Clock
	Logger *slog.Logger
}

func (uc RegistryUseCase) SetUserRole(ctx context.Context, cmd SetUserRoleCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	caller := normalizeAccount(cmd.Caller)
	target := normalizeAccount(cmd.Target)
	if caller == "" || target == "" {
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
		if err := repo.SaveRole(ctx, entities.RoleEntry{
			Account:         target,
			Admin:           cmd.Admin,
			Moderator:       cmd.Moderator,
			CanCreateRounds: cmd.CanCreateRounds,
			CanPropose:      cmd.CanPropose,
			UpdatedAt:       now,
		}); err != nil {
			return err
		}
		return appendAudit(ctx, repo, "governance.role.updated", caller, nil, state.CurrentHeight, now, map[string]any{
			"target":            target,
			"admin":             cmd.Admin,
			"moderator":         cmd.Moderator,
			"can_create_rounds": cmd.CanCreateRounds,
			"can_propose":       cmd.CanPropose,
		})
	})
	if err != nil {
		logger.Warn("role update rejected",
			"event", "governance_role_update_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"target", target,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("role updated",
		"event", "governance_role_updated",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"target", target,
	)
	return nil
}

// RegisterVoter marks the voter eligible and stores weight, reputation, and
// the registration height. Re-registration overwrites prior values; no
// history is retained. A weight below 1 is stored as 1.
func (uc RegistryUseCase) RegisterVoter(ctx context.Context, cmd RegisterVoterCommand) error {
	logger := application.ResolveLogger(uc.Logger)
	caller := normalizeAccount(cmd.Caller)
	voter := normalizeAccount(cmd.Voter)
	if caller == "" || voter == "" {
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
		weight := cmd.Weight
		if weight < 1 {
			weight = 1
		}
		now := uc.now()
		if err := repo.SaveEligibility(ctx, entities.EligibilityEntry{
			Account:            voter,
			Eligible:           true,
			BaseWeight:         weight,
			Reputation:         cmd.Reputation,
			RegisteredAtHeight: state.CurrentHeight,
			UpdatedAt:          now,
		}); err != nil {
			return err
		}
		return appendAudit(ctx, repo, "governance.voter.registered", caller, nil, state.CurrentHeight, now, map[string]any{
			"voter":      voter,
			"weight":     weight,
			"reputation": cmd.Reputation,
		})
	})
	if err != nil {
		logger.Warn("voter registration rejected",
			"event", "governance_voter_registration_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"voter", voter,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("voter registered",
		"event", "governance_voter_registered",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"voter", voter,
	)
	return nil
}

func (uc RegistryUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
