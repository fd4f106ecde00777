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

const proposalSequence = "proposal"

type AddCandidateCommand struct {
	Caller          string
	RoundID         uint64
	Name            string
	Description     string
	ProposalDetails string
}

type CreateProposalCommand struct {
	Caller         string
	Title          string
	Description    string
	RoundID        uint64
	Type           string
	TargetContract string
	FunctionName   string
	Parameters     string
}

// CatalogUseCase registers candidates per round and proposals globally.
// Proposals are descriptive records only; the engine never invokes the stored
// target action.
type CatalogUseCase struct {
	UoW    ports.UnitOfWork
	Clock  ports.Clock
	Logger *slog.Logger
}

// AddCandidate appends a candidate to a round in any lifecycle state,
// including Draft, and initializes its tally to zero. Candidate ids count up
// from 1 per round.
func (uc CatalogUseCase) AddCandidate(ctx context.Context, cmd AddCandidateCommand) (uint64, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := normalizeAccount(cmd.Caller)
	if caller == "" {
		return 0, domainerrors.ErrInvalidInput
	}

	var candidateID uint64
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
		round, err := repo.GetRound(ctx, cmd.RoundID)
		if err != nil {
			return err
		}

		now := uc.now()
		candidateID = round.CandidateCount + 1
		if err := repo.SaveCandidate(ctx, entities.Candidate{
			RoundID:         round.ID,
			CandidateID:     candidateID,
			Name:            cmd.Name,
			Description:     cmd.Description,
			ProposalDetails: cmd.ProposalDetails,
			IsActive:        true,
			CreatedAt:       now,
		}); err != nil {
			return err
		}
		if err := repo.SaveTally(ctx, entities.CandidateTally{
			RoundID:     round.ID,
			CandidateID: candidateID,
		}); err != nil {
			return err
		}
		round.CandidateCount = candidateID
		round.UpdatedAt = now
		if err := repo.SaveRound(ctx, round); err != nil {
			return err
		}
		return appendAudit(ctx, repo, "governance.candidate.added", caller, &round.ID, state.CurrentHeight, now, map[string]any{
			"candidate_id": candidateID,
			"name":         cmd.Name,
		})
	})
	if err != nil {
		logger.Warn("candidate registration rejected",
			"event", "governance_candidate_add_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"round_id", cmd.RoundID,
			"error", err.Error(),
		)
		return 0, err
	}
	logger.Info("candidate added",
		"event", "governance_candidate_added",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"round_id", cmd.RoundID,
		"candidate_id", candidateID,
	)
	return candidateID, nil
}

func (uc CatalogUseCase) CreateProposal(ctx context.Context, cmd CreateProposalCommand) (uint64, error) {
	logger := application.ResolveLogger(uc.Logger)
	caller := normalizeAccount(cmd.Caller)
	if caller == "" {
		return 0, domainerrors.ErrInvalidInput
	}

	var proposalID uint64
	err := uc.UoW.Atomic(ctx, func(repo ports.Repository) error {
		state, err := repo.GetState(ctx)
		if err != nil {
			return err
		}
		allowed, err := canPropose(ctx, repo, state, caller)
		if err != nil {
			return err
		}
		if !allowed {
			return domainerrors.ErrUnauthorized
		}
		round, err := repo.GetRound(ctx, cmd.RoundID)
		if err != nil {
			return err
		}

		id, err := repo.NextSequence(ctx, proposalSequence)
		if err != nil {
			return err
		}
		now := uc.now()
		if err := repo.SaveProposal(ctx, entities.Proposal{
			ID:             id,
			Title:          cmd.Title,
			Description:    cmd.Description,
			RoundID:        round.ID,
			Type:           cmd.Type,
			TargetContract: cmd.TargetContract,
			FunctionName:   cmd.FunctionName,
			Parameters:     cmd.Parameters,
			Proposer:       caller,
			CreatedAt:      now,
		}); err != nil {
			return err
		}
		proposalID = id
		return appendAudit(ctx, repo, "governance.proposal.created", caller, &round.ID, state.CurrentHeight, now, map[string]any{
			"proposal_id": id,
			"title":       cmd.Title,
		})
	})
	if err != nil {
		logger.Warn("proposal registration rejected",
			"event", "governance_proposal_create_rejected",
			"module", "governance/voting-engine",
			"layer", "application",
			"caller", caller,
			"round_id", cmd.RoundID,
			"error", err.Error(),
		)
		return 0, err
	}
	logger.Info("proposal created",
		"event", "governance_proposal_created",
		"module", "governance/voting-engine",
		"layer", "application",
		"caller", caller,
		"round_id", cmd.RoundID,
		"proposal_id", proposalID,
	)
	return proposalID, nil
}

func (uc CatalogUseCase) now() time.Time {
	if uc.Clock != nil {
		return uc.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
