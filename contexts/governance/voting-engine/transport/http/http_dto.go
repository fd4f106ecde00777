package http

import (
	"encoding/json"
	"time"
)

type ErrorResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

type StateResponse struct {
	Owner         string `json:"owner"`
	Paused        bool   `json:"paused"`
	CurrentHeight uint64 `json:"current_height"`
}

type SetRoleRequest struct {
	Target          string `json:"target"`
	Admin           bool   `json:"admin"`
	Moderator       bool   `json:"moderator"`
	CanCreateRounds bool   `json:"can_create_rounds"`
	CanPropose      bool   `json:"can_propose"`
}

type RegisterVoterRequest struct {
	Voter      string `json:"voter"`
	Weight     uint64 `json:"weight"`
	Reputation uint64 `json:"reputation"`
}

type VoterResponse struct {
	Voter              string `json:"voter"`
	Eligible           bool   `json:"eligible"`
	BaseWeight         uint64 `json:"base_weight"`
	Reputation         uint64 `json:"reputation"`
	RegisteredAtHeight uint64 `json:"registered_at_height"`
}

type CreateRoundRequest struct {
	Type                string `json:"type"`
	Name                string `json:"name"`
	Description         string `json:"description,omitempty"`
	StartHeight         uint64 `json:"start_height"`
	EndHeight           uint64 `json:"end_height"`
	MinParticipationPct uint64 `json:"min_participation_pct"`
	QuorumThresholdPct  uint64 `json:"quorum_threshold_pct"`
	PrivacyLevel        string `json:"privacy_level,omitempty"`
}

type CreateRoundResponse struct {
	RoundID uint64 `json:"round_id"`
}

type RoundResponse struct {
	RoundID             uint64  `json:"round_id"`
	Type                string  `json:"type"`
	Name                string  `json:"name"`
	Description         string  `json:"description,omitempty"`
	Status              string  `json:"status"`
	StartHeight         uint64  `json:"start_height"`
	EndHeight           uint64  `json:"end_height"`
	MinParticipationPct uint64  `json:"min_participation_pct"`
	QuorumThresholdPct  uint64  `json:"quorum_threshold_pct"`
	PrivacyLevel        string  `json:"privacy_level,omitempty"`
	IsFinalized         bool    `json:"is_finalized"`
	WinnerCandidateID   *uint64 `json:"winner_candidate_id,omitempty"`
	Creator             string  `json:"creator"`
	CandidateCount      uint64  `json:"candidate_count"`
	Active              bool    `json:"active"`
}

type PauseRequest struct {
	Paused bool `json:"paused"`
}

type TransferOwnershipRequest struct {
	NewOwner string `json:"new_owner"`
}

type AdvanceHeightRequest struct {
	Height uint64 `json:"height"`
}

type AddCandidateRequest struct {
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	ProposalDetails string `json:"proposal_details,omitempty"`
}

type AddCandidateResponse struct {
	CandidateID uint64 `json:"candidate_id"`
}

type CandidateResponse struct {
	RoundID         uint64 `json:"round_id"`
	CandidateID     uint64 `json:"candidate_id"`
	Name            string `json:"name"`
	Description     string `json:"description,omitempty"`
	ProposalDetails string `json:"proposal_details,omitempty"`
	IsActive        bool   `json:"is_active"`
}

type CandidateListResponse struct {
	RoundID uint64              `json:"round_id"`
	Items   []CandidateResponse `json:"items"`
}

type CreateProposalRequest struct {
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	RoundID        uint64 `json:"round_id"`
	Type           string `json:"type,omitempty"`
	TargetContract string `json:"target_contract,omitempty"`
	FunctionName   string `json:"function_name,omitempty"`
	Parameters     string `json:"parameters,omitempty"`
}

type CreateProposalResponse struct {
	ProposalID uint64 `json:"proposal_id"`
}

type ProposalResponse struct {
	ProposalID     uint64 `json:"proposal_id"`
	Title          string `json:"title"`
	Description    string `json:"description,omitempty"`
	RoundID        uint64 `json:"round_id"`
	Type           string `json:"type,omitempty"`
	TargetContract string `json:"target_contract,omitempty"`
	FunctionName   string `json:"function_name,omitempty"`
	Parameters     string `json:"parameters,omitempty"`
	Proposer       string `json:"proposer"`
}

type DelegateRequest struct {
	Delegate string `json:"delegate"`
}

type DelegationResponse struct {
	Delegator string `json:"delegator"`
	RoundID   uint64 `json:"round_id"`
	Delegate  string `json:"delegate"`
	Weight    uint64 `json:"weight"`
	Active    bool   `json:"active"`
}

type DelegatePowerResponse struct {
	Delegate             string `json:"delegate"`
	RoundID              uint64 `json:"round_id"`
	TotalDelegatedWeight uint64 `json:"total_delegated_weight"`
}

type VoteRequest struct {
	CandidateID   uint64 `json:"candidate_id"`
	UseDelegation bool   `json:"use_delegation,omitempty"`
}

type VoteResponse struct {
	RoundID        uint64 `json:"round_id"`
	CandidateID    uint64 `json:"candidate_id"`
	VoteWeight     uint64 `json:"vote_weight"`
	DelegatedShare uint64 `json:"delegated_share"`
	IsDelegated    bool   `json:"is_delegated"`
}

type VotingPowerResponse struct {
	Voter          string `json:"voter"`
	RoundID        uint64 `json:"round_id"`
	Eligible       bool   `json:"eligible"`
	BaseWeight     uint64 `json:"base_weight"`
	DelegatedPower uint64 `json:"delegated_power"`
	TotalPower     uint64 `json:"total_power"`
}

type HasVotedResponse struct {
	Voter    string `json:"voter"`
	RoundID  uint64 `json:"round_id"`
	HasVoted bool   `json:"has_voted"`
}

type TallyResponse struct {
	RoundID        uint64 `json:"round_id"`
	CandidateID    uint64 `json:"candidate_id"`
	VoteCount      uint64 `json:"vote_count"`
	WeightedVotes  uint64 `json:"weighted_votes"`
	DelegatedVotes uint64 `json:"delegated_votes"`
}

type RoundStatsResponse struct {
	TotalEligibleVoters  uint64 `json:"total_eligible_voters"`
	ParticipationRatePct uint64 `json:"participation_rate_pct"`
	TotalWeightCast      uint64 `json:"total_weight_cast"`
	TotalVotesCast       uint64 `json:"total_votes_cast"`
	DelegatedVotesCast   uint64 `json:"delegated_votes_cast"`
	DelegationRatePct    uint64 `json:"delegation_rate_pct"`
}

type RoundResultsResponse struct {
	RoundID            uint64             `json:"round_id"`
	Status             string             `json:"status"`
	IsFinalized        bool               `json:"is_finalized"`
	LeadingCandidateID *uint64            `json:"leading_candidate_id,omitempty"`
	Stats              RoundStatsResponse `json:"stats"`
	Tallies            []TallyResponse    `json:"tallies"`
}

type FinalizeResponse struct {
	RoundID              uint64  `json:"round_id"`
	WinnerCandidateID    *uint64 `json:"winner_candidate_id,omitempty"`
	ParticipationRatePct uint64  `json:"participation_rate_pct"`
}

type EventItem struct {
	ID        uint64          `json:"id"`
	Type      string          `json:"type"`
	Actor     string          `json:"actor"`
	RoundID   *uint64         `json:"round_id,omitempty"`
	Height    uint64          `json:"height"`
	Details   json.RawMessage `json:"details,omitempty"`
	CreatedAt time.Time       `json:"created_at"`
}

type EventListResponse struct {
	Items []EventItem `json:"items"`
}
