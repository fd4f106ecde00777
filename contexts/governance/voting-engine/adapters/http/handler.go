package httpadapter

import (
	"context"
	"log/slog"

	"agora/contexts/governance/voting-engine/application/commands"
	"agora/contexts/governance/voting-engine/application/queries"
	"agora/contexts/governance/voting-engine/domain/entities"
	httptransport "agora/contexts/governance/voting-engine/transport/http"
)

// Handler adapts transport DTOs to the application layer. All authorization
// decisions live in the use cases; the handler only carries the caller
// identity through.
type Handler struct {
	Registry    commands.RegistryUseCase
	Rounds      commands.RoundUseCase
	Catalog     commands.CatalogUseCase
	Delegations commands.DelegationUseCase
	Votes       commands.VoteUseCase
	Finalize    commands.FinalizeUseCase
	Results     queries.ResultsUseCase
	Logger      *slog.Logger
}

func (h Handler) StateHandler(ctx context.Context) (httptransport.StateResponse, error) {
	state, err := h.Results.State(ctx)
	if err != nil {
		return httptransport.StateResponse{}, err
	}
	return httptransport.StateResponse{
		Owner:         state.Owner,
		Paused:        state.Paused,
		CurrentHeight: state.CurrentHeight,
	}, nil
}

func (h Handler) SetRoleHandler(ctx context.Context, caller string, req httptransport.SetRoleRequest) error {
	return h.Registry.SetUserRole(ctx, commands.SetUserRoleCommand{
		Caller:          caller,
		Target:          req.Target,
		Admin:           req.Admin,
		Moderator:       req.Moderator,
		CanCreateRounds: req.CanCreateRounds,
		CanPropose:      req.CanPropose,
	})
}

func (h Handler) RegisterVoterHandler(ctx context.Context, caller string, req httptransport.RegisterVoterRequest) error {
	return h.Registry.RegisterVoter(ctx, commands.RegisterVoterCommand{
		Caller:     caller,
		Voter:      req.Voter,
		Weight:     req.Weight,
		Reputation: req.Reputation,
	})
}

func (h Handler) VoterHandler(ctx context.Context, voter string) (httptransport.VoterResponse, bool, error) {
	entry, found, err := h.Results.VoterEligibility(ctx, voter)
	if err != nil || !found {
		return httptransport.VoterResponse{}, found, err
	}
	return httptransport.VoterResponse{
		Voter:              entry.Account,
		Eligible:           entry.Eligible,
		BaseWeight:         entry.EffectiveBaseWeight(),
		Reputation:         entry.Reputation,
		RegisteredAtHeight: entry.RegisteredAtHeight,
	}, true, nil
}

func (h Handler) CreateRoundHandler(
	ctx context.Context,
	caller string,
	req httptransport.CreateRoundRequest,
) (httptransport.CreateRoundResponse, error) {
	roundID, err := h.Rounds.CreateRound(ctx, commands.CreateRoundCommand{
		Caller:              caller,
		Type:                entities.RoundType(req.Type),
		Name:                req.Name,
		Description:         req.Description,
		StartHeight:         req.StartHeight,
		EndHeight:           req.EndHeight,
		MinParticipationPct: req.MinParticipationPct,
		QuorumThresholdPct:  req.QuorumThresholdPct,
		PrivacyLevel:        req.PrivacyLevel,
	})
	if err != nil {
		return httptransport.CreateRoundResponse{}, err
	}
	return httptransport.CreateRoundResponse{RoundID: roundID}, nil
}

func (h Handler) ActivateRoundHandler(ctx context.Context, caller string, roundID uint64) error {
	return h.Rounds.ActivateRound(ctx, caller, roundID)
}

func (h Handler) RoundHandler(ctx context.Context, roundID uint64) (httptransport.RoundResponse, error) {
	view, err := h.Results.RoundInfo(ctx, roundID)
	if err != nil {
		return httptransport.RoundResponse{}, err
	}
	return mapRound(view.Round, view.Active), nil
}

func (h Handler) SetPauseHandler(ctx context.Context, caller string, req httptransport.PauseRequest) error {
	return h.Rounds.SetEmergencyPause(ctx, caller, req.Paused)
}

func (h Handler) TransferOwnershipHandler(ctx context.Context, caller string, req httptransport.TransferOwnershipRequest) error {
	return h.Rounds.TransferOwnership(ctx, caller, req.NewOwner)
}

func (h Handler) AdvanceHeightHandler(ctx context.Context, caller string, req httptransport.AdvanceHeightRequest) error {
	return h.Rounds.AdvanceHeight(ctx, caller, req.Height)
}

func (h Handler) AddCandidateHandler(
	ctx context.Context,
	caller string,
	roundID uint64,
	req httptransport.AddCandidateRequest,
) (httptransport.AddCandidateResponse, error) {
	candidateID, err := h.Catalog.AddCandidate(ctx, commands.AddCandidateCommand{
		Caller:          caller,
		RoundID:         roundID,
		Name:            req.Name,
		Description:     req.Description,
		ProposalDetails: req.ProposalDetails,
	})
	if err != nil {
		return httptransport.AddCandidateResponse{}, err
	}
	return httptransport.AddCandidateResponse{CandidateID: candidateID}, nil
}

func (h Handler) CandidateHandler(ctx context.Context, roundID uint64, candidateID uint64) (httptransport.CandidateResponse, error) {
	candidate, err := h.Results.CandidateInfo(ctx, roundID, candidateID)
	if err != nil {
		return httptransport.CandidateResponse{}, err
	}
	return mapCandidate(candidate), nil
}

func (h Handler) CandidateListHandler(ctx context.Context, roundID uint64) (httptransport.CandidateListResponse, error) {
	if _, err := h.Results.RoundInfo(ctx, roundID); err != nil {
		return httptransport.CandidateListResponse{}, err
	}
	candidates, err := h.Results.Repo.ListCandidates(ctx, roundID)
	if err != nil {
		return httptransport.CandidateListResponse{}, err
	}
	items := make([]httptransport.CandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		items = append(items, mapCandidate(candidate))
	}
	return httptransport.CandidateListResponse{RoundID: roundID, Items: items}, nil
}

func (h Handler) CreateProposalHandler(
	ctx context.Context,
	caller string,
	req httptransport.CreateProposalRequest,
) (httptransport.CreateProposalResponse, error) {
	proposalID, err := h.Catalog.CreateProposal(ctx, commands.CreateProposalCommand{
		Caller:         caller,
		Title:          req.Title,
		Description:    req.Description,
		RoundID:        req.RoundID,
		Type:           req.Type,
		TargetContract: req.TargetContract,
		FunctionName:   req.FunctionName,
		Parameters:     req.Parameters,
	})
	if err != nil {
		return httptransport.CreateProposalResponse{}, err
	}
	return httptransport.CreateProposalResponse{ProposalID: proposalID}, nil
}

func (h Handler) ProposalHandler(ctx context.Context, proposalID uint64) (httptransport.ProposalResponse, error) {
	proposal, err := h.Results.ProposalInfo(ctx, proposalID)
	if err != nil {
		return httptransport.ProposalResponse{}, err
	}
	return httptransport.ProposalResponse{
		ProposalID:     proposal.ID,
		Title:          proposal.Title,
		Description:    proposal.Description,
		RoundID:        proposal.RoundID,
		Type:           proposal.Type,
		TargetContract: proposal.TargetContract,
		FunctionName:   proposal.FunctionName,
		Parameters:     proposal.Parameters,
		Proposer:       proposal.Proposer,
	}, nil
}

func (h Handler) DelegateHandler(ctx context.Context, caller string, roundID uint64, req httptransport.DelegateRequest) error {
	return h.Delegations.DelegateVote(ctx, commands.DelegateVoteCommand{
		Caller:   caller,
		Delegate: req.Delegate,
		RoundID:  roundID,
	})
}

func (h Handler) RevokeDelegationHandler(ctx context.Context, caller string, roundID uint64) error {
	return h.Delegations.RevokeDelegation(ctx, caller, roundID)
}

func (h Handler) DelegationHandler(ctx context.Context, delegator string, roundID uint64) (httptransport.DelegationResponse, bool, error) {
	delegation, found, err := h.Results.DelegationInfo(ctx, delegator, roundID)
	if err != nil || !found {
		return httptransport.DelegationResponse{}, found, err
	}
	return httptransport.DelegationResponse{
		Delegator: delegation.Delegator,
		RoundID:   delegation.RoundID,
		Delegate:  delegation.Delegate,
		Weight:    delegation.Weight,
		Active:    delegation.Active,
	}, true, nil
}

func (h Handler) DelegatePowerHandler(ctx context.Context, delegate string, roundID uint64) (httptransport.DelegatePowerResponse, error) {
	total, err := h.Results.DelegatePowerInfo(ctx, delegate, roundID)
	if err != nil {
		return httptransport.DelegatePowerResponse{}, err
	}
	return httptransport.DelegatePowerResponse{
		Delegate:             delegate,
		RoundID:              roundID,
		TotalDelegatedWeight: total,
	}, nil
}

func (h Handler) VoteHandler(
	ctx context.Context,
	caller string,
	roundID uint64,
	req httptransport.VoteRequest,
) (httptransport.VoteResponse, error) {
	cmd := commands.VoteCommand{
		Caller:      caller,
		RoundID:     roundID,
		CandidateID: req.CandidateID,
	}
	var (
		result commands.VoteResult
		err    error
	)
	if req.UseDelegation {
		result, err = h.Votes.VoteWithDelegation(ctx, cmd)
	} else {
		result, err = h.Votes.Vote(ctx, cmd)
	}
	if err != nil {
		return httptransport.VoteResponse{}, err
	}
	return httptransport.VoteResponse{
		RoundID:        roundID,
		CandidateID:    req.CandidateID,
		VoteWeight:     result.VoteWeight,
		DelegatedShare: result.DelegatedShare,
		IsDelegated:    result.IsDelegated,
	}, nil
}

func (h Handler) VotingPowerHandler(ctx context.Context, voter string, roundID uint64) (httptransport.VotingPowerResponse, error) {
	view, err := h.Results.VotingPower(ctx, voter, roundID)
	if err != nil {
		return httptransport.VotingPowerResponse{}, err
	}
	return httptransport.VotingPowerResponse{
		Voter:          view.Voter,
		RoundID:        view.RoundID,
		Eligible:       view.Eligible,
		BaseWeight:     view.BaseWeight,
		DelegatedPower: view.DelegatedPower,
		TotalPower:     view.TotalPower,
	}, nil
}

func (h Handler) HasVotedHandler(ctx context.Context, voter string, roundID uint64) (httptransport.HasVotedResponse, error) {
	voted, err := h.Results.HasVoted(ctx, voter, roundID)
	if err != nil {
		return httptransport.HasVotedResponse{}, err
	}
	return httptransport.HasVotedResponse{
		Voter:    voter,
		RoundID:  roundID,
		HasVoted: voted,
	}, nil
}

func (h Handler) TallyHandler(ctx context.Context, roundID uint64, candidateID uint64) (httptransport.TallyResponse, error) {
	tally, err := h.Results.TallyInfo(ctx, roundID, candidateID)
	if err != nil {
		return httptransport.TallyResponse{}, err
	}
	return mapTally(tally), nil
}

func (h Handler) RoundResultsHandler(ctx context.Context, roundID uint64) (httptransport.RoundResultsResponse, error) {
	view, err := h.Results.RoundResults(ctx, roundID)
	if err != nil {
		return httptransport.RoundResultsResponse{}, err
	}
	tallies := make([]httptransport.TallyResponse, 0, len(view.Tallies))
	for _, tally := range view.Tallies {
		tallies = append(tallies, mapTally(tally))
	}
	return httptransport.RoundResultsResponse{
		RoundID:            view.Round.ID,
		Status:             view.Round.Status.String(),
		IsFinalized:        view.Round.IsFinalized,
		LeadingCandidateID: view.LeadingID,
		Stats: httptransport.RoundStatsResponse{
			TotalEligibleVoters:  view.Stats.TotalEligibleVoters,
			ParticipationRatePct: view.Stats.ParticipationRatePct,
			TotalWeightCast:      view.Stats.TotalWeightCast,
			TotalVotesCast:       view.Stats.TotalVotesCast,
			DelegatedVotesCast:   view.Stats.DelegatedVotesCast,
			DelegationRatePct:    view.Stats.DelegationRatePct,
		},
		Tallies: tallies,
	}, nil
}

func (h Handler) FinalizeRoundHandler(ctx context.Context, caller string, roundID uint64) (httptransport.FinalizeResponse, error) {
	result, err := h.Finalize.FinalizeRound(ctx, caller, roundID)
	if err != nil {
		return httptransport.FinalizeResponse{}, err
	}
	return httptransport.FinalizeResponse{
		RoundID:              roundID,
		WinnerCandidateID:    result.WinnerCandidateID,
		ParticipationRatePct: result.ParticipationRatePct,
	}, nil
}

func (h Handler) EventsHandler(ctx context.Context, afterID uint64, limit int) (httptransport.EventListResponse, error) {
	events, err := h.Results.Events(ctx, afterID, limit)
	if err != nil {
		return httptransport.EventListResponse{}, err
	}
	items := make([]httptransport.EventItem, 0, len(events))
	for _, event := range events {
		items = append(items, httptransport.EventItem{
			ID:        event.ID,
			Type:      event.Type,
			Actor:     event.Actor,
			RoundID:   event.RoundID,
			Height:    event.Height,
			Details:   append([]byte(nil), event.Details...),
			CreatedAt: event.CreatedAt,
		})
	}
	return httptransport.EventListResponse{Items: items}, nil
}

func mapRound(round entities.Round, active bool) httptransport.RoundResponse {
	return httptransport.RoundResponse{
		RoundID:             round.ID,
		Type:                string(round.Type),
		Name:                round.Name,
		Description:         round.Description,
		Status:              round.Status.String(),
		StartHeight:         round.StartHeight,
		EndHeight:           round.EndHeight,
		MinParticipationPct: round.MinParticipationPct,
		QuorumThresholdPct:  round.QuorumThresholdPct,
		PrivacyLevel:        round.PrivacyLevel,
		IsFinalized:         round.IsFinalized,
		WinnerCandidateID:   round.WinnerCandidateID,
		Creator:             round.Creator,
		CandidateCount:      round.CandidateCount,
		Active:              active,
	}
}

func mapCandidate(candidate entities.Candidate) httptransport.CandidateResponse {
	return httptransport.CandidateResponse{
		RoundID:         candidate.RoundID,
		CandidateID:     candidate.CandidateID,
		Name:            candidate.Name,
		Description:     candidate.Description,
		ProposalDetails: candidate.ProposalDetails,
		IsActive:        candidate.IsActive,
	}
}

func mapTally(tally entities.CandidateTally) httptransport.TallyResponse {
	return httptransport.TallyResponse{
		RoundID:        tally.RoundID,
		CandidateID:    tally.CandidateID,
		VoteCount:      tally.VoteCount,
		WeightedVotes:  tally.WeightedVotes,
		DelegatedVotes: tally.DelegatedVotes,
	}
}
