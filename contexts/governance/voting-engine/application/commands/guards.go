package commands

import (
	"context"
	"strings"

	"agora/contexts/governance/voting-engine/domain/entities"
	"agora/contexts/governance/voting-engine/ports"
)

// Capability predicates are boolean unions over the role table with a single
// special case: the engine owner is implicitly moderator.

func isModerator(ctx context.Context, repo ports.Repository, state entities.EngineState, account string) (bool, error) {
	if account != "" && account == state.Owner {
		return true, nil
	}
	role, found, err := repo.GetRole(ctx, account)
	if err != nil {
		return false, err
	}
	return found && role.Moderator, nil
}

func isAdmin(ctx context.Context, repo ports.Repository, account string) (bool, error) {
	role, found, err := repo.GetRole(ctx, account)
	if err != nil {
		return false, err
	}
	return found && role.Admin, nil
}

func canCreateRounds(ctx context.Context, repo ports.Repository, state entities.EngineState, account string) (bool, error) {
	moderator, err := isModerator(ctx, repo, state, account)
	if err != nil {
		return false, err
	}
	if moderator {
		return true, nil
	}
	role, found, err := repo.GetRole(ctx, account)
	if err != nil {
		return false, err
	}
	return found && role.CanCreateRounds, nil
}

func canPropose(ctx context.Context, repo ports.Repository, state entities.EngineState, account string) (bool, error) {
	moderator, err := isModerator(ctx, repo, state, account)
	if err != nil {
		return false, err
	}
	if moderator {
		return true, nil
	}
	role, found, err := repo.GetRole(ctx, account)
	if err != nil {
		return false, err
	}
	return found && role.CanPropose, nil
}

// roundIsActive is the gate used by delegation and voting: not paused, Active
// status, height inside the round window, not finalized.
func roundIsActive(state entities.EngineState, round entities.Round) bool {
	if state.Paused || round.IsFinalized {
		return false
	}
	if round.Status != entities.RoundStatusActive {
		return false
	}
	return state.CurrentHeight >= round.StartHeight && state.CurrentHeight <= round.EndHeight
}

func normalizeAccount(account string) string {
	return strings.TrimSpace(account)
}
