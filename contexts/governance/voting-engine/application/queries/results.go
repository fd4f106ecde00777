package queries

import (
	"context"

	"agora/contexts/governance/voting-engine/domain/entities"
	"agora/contexts/governance/voting-engine/ports"
)

// ResultsUseCase serves the read-only query surface. Queries never mutate and
// never require authorization.
type ResultsUseCase struct {
	Repo ports.Repository
}

type RoundView struct {
	Round  entities.Round
	Stats  entities.RoundStats
	Active bool
}

type VotingPowerView struct {
	Voter          string
	RoundID        uint64
	Eligible       bool
	BaseWeight     uint64
	DelegatedPower uint64
	TotalPower     uint64
}

type RoundResultsView struct {
	Round     entities.Round
	Stats     entities.RoundStats
	Tallies   []entities.CandidateTally
	LeadingID *uint64
}

func (uc ResultsUseCase) State(ctx context.Context) (entities.EngineState, error) {
	return uc.Repo.GetState(ctx)
}

func (uc ResultsUseCase) RoundInfo(ctx context.Context, roundID uint64) (RoundView, error) {
	round, err := uc.Repo.GetRound(ctx, roundID)
	if err != nil {
		return RoundView{}, err
	}
	stats, _, err := uc.Repo.GetStats(ctx, roundID)
	if err != nil {
		return RoundView{}, err
	}
	stats.RoundID = roundID
	active, err := uc.IsRoundActive(ctx, roundID)
	if err != nil {
		return RoundView{}, err
	}
	return RoundView{Round: round, Stats: stats, Active: active}, nil
}

// IsRoundActive mirrors the gate used by delegation and voting; an unknown
// round reads as inactive rather than an error.
func (uc ResultsUseCase) IsRoundActive(ctx context.Context, roundID uint64) (bool, error) {
	state, err := uc.Repo.GetState(ctx)
	if err != nil {
		return false, err
	}
	round, err := uc.Repo.GetRound(ctx, roundID)
	if err != nil {
		return false, nil
	}
	if state.Paused || round.IsFinalized {
		return false, nil
	}
	if round.Status != entities.RoundStatusActive {
		return false, nil
	}
	return state.CurrentHeight >= round.StartHeight && state.CurrentHeight <= round.EndHeight, nil
}

func (uc ResultsUseCase) CandidateInfo(ctx context.Context, roundID uint64, candidateID uint64) (entities.Candidate, error) {
	return uc.Repo.GetCandidate(ctx, roundID, candidateID)
}

func (uc ResultsUseCase) CandidateCount(ctx context.Context, roundID uint64) (uint64, error) {
	round, err := uc.Repo.GetRound(ctx, roundID)
	if err != nil {
		return 0, err
	}
	return round.CandidateCount, nil
}

func (uc ResultsUseCase) TallyInfo(ctx context.Context, roundID uint64, candidateID uint64) (entities.CandidateTally, error) {
	if _, err := uc.Repo.GetCandidate(ctx, roundID, candidateID); err != nil {
		return entities.CandidateTally{}, err
	}
	tally, _, err := uc.Repo.GetTally(ctx, roundID, candidateID)
	if err != nil {
		return entities.CandidateTally{}, err
	}
	tally.RoundID = roundID
	tally.CandidateID = candidateID
	return tally, nil
}

func (uc ResultsUseCase) VoterEligibility(ctx context.Context, account string) (entities.EligibilityEntry, bool, error) {
	return uc.Repo.GetEligibility(ctx, account)
}

func (uc ResultsUseCase) DelegationInfo(ctx context.Context, delegator string, roundID uint64) (entities.Delegation, bool, error) {
	return uc.Repo.GetDelegation(ctx, delegator, roundID)
}

func (uc ResultsUseCase) DelegatePowerInfo(ctx context.Context, delegate string, roundID uint64) (uint64, error) {
	power, _, err := uc.Repo.GetDelegatePower(ctx, delegate, roundID)
	if err != nil {
		return 0, err
	}
	return power.TotalDelegatedWeight, nil
}

// VotingPower reports the combined power the voter would cast right now:
// effective base weight plus received delegated power. Ineligible voters
// report zero base weight but still expose any power delegated to them.
func (uc ResultsUseCase) VotingPower(ctx context.Context, voter string, roundID uint64) (VotingPowerView, error) {
	eligibility, found, err := uc.Repo.GetEligibility(ctx, voter)
	if err != nil {
		return VotingPowerView{}, err
	}
	power, _, err := uc.Repo.GetDelegatePower(ctx, voter, roundID)
	if err != nil {
		return VotingPowerView{}, err
	}
	view := VotingPowerView{
		Voter:          voter,
		RoundID:        roundID,
		Eligible:       found && eligibility.Eligible,
		DelegatedPower: power.TotalDelegatedWeight,
	}
	if view.Eligible {
		view.BaseWeight = eligibility.EffectiveBaseWeight()
	}
	view.TotalPower = view.BaseWeight + view.DelegatedPower
	return view, nil
}

func (uc ResultsUseCase) HasVoted(ctx context.Context, voter string, roundID uint64) (bool, error) {
	_, voted, err := uc.Repo.GetVoteRecord(ctx, voter, roundID)
	return voted, err
}

// RoundResults aggregates all tallies for the round in ascending candidate
// order. LeadingID applies the same deterministic tie-break as finalization,
// so before finalization it previews the would-be winner and afterwards it
// matches the stored one.
func (uc ResultsUseCase) RoundResults(ctx context.Context, roundID uint64) (RoundResultsView, error) {
	round, err := uc.Repo.GetRound(ctx, roundID)
	if err != nil {
		return RoundResultsView{}, err
	}
	stats, _, err := uc.Repo.GetStats(ctx, roundID)
	if err != nil {
		return RoundResultsView{}, err
	}
	stats.RoundID = roundID
	tallies, err := uc.Repo.ListTallies(ctx, roundID)
	if err != nil {
		return RoundResultsView{}, err
	}
	view := RoundResultsView{
		Round:   round,
		Stats:   stats,
		Tallies: tallies,
	}
	if round.IsFinalized {
		view.LeadingID = round.WinnerCandidateID
	} else if id, found := entities.WinningCandidate(tallies); found {
		view.LeadingID = &id
	}
	return view, nil
}

func (uc ResultsUseCase) ParticipationRate(ctx context.Context, roundID uint64) (uint64, error) {
	if _, err := uc.Repo.GetRound(ctx, roundID); err != nil {
		return 0, err
	}
	stats, _, err := uc.Repo.GetStats(ctx, roundID)
	if err != nil {
		return 0, err
	}
	return stats.ParticipationRate(), nil
}

func (uc ResultsUseCase) ProposalInfo(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	return uc.Repo.GetProposal(ctx, proposalID)
}

func (uc ResultsUseCase) Events(ctx context.Context, afterID uint64, limit int) ([]entities.EventLogEntry, error) {
	return uc.Repo.ListEvents(ctx, afterID, limit)
}
