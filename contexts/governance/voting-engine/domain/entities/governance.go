package entities

import "time"

// RoundType selects the ballot semantics a round was created with. The engine
// computes effective power the same way for every type; the type is carried so
// clients and downstream consumers can render rounds correctly.
type RoundType string

const (
	RoundTypeSimple    RoundType = "simple"
	RoundTypeWeighted  RoundType = "weighted"
	RoundTypeDelegated RoundType = "delegated"
	RoundTypeProposal  RoundType = "proposal"
)

type RoundStatus uint8

const (
	RoundStatusDraft     RoundStatus = 0
	RoundStatusActive    RoundStatus = 1
	RoundStatusFinalized RoundStatus = 2
)

func (s RoundStatus) String() string {
	switch s {
	case RoundStatusDraft:
		return "draft"
	case RoundStatusActive:
		return "active"
	case RoundStatusFinalized:
		return "finalized"
	default:
		return "unknown"
	}
}

// Round is a time-windowed voting event. The window is expressed in heights
// supplied by the hosting environment, not wall-clock time. Once IsFinalized
// is set the status and winner never change again.
type Round struct {
	ID                  uint64
	Type                RoundType
	Name                string
	Description         string
	Status              RoundStatus
	StartHeight         uint64
	EndHeight           uint64
	MinParticipationPct uint64
	QuorumThresholdPct  uint64
	PrivacyLevel        string
	IsFinalized         bool
	WinnerCandidateID   *uint64
	Creator             string
	CandidateCount      uint64
	CreatedAt           time.Time
	UpdatedAt           time.Time
}

// Candidate is keyed by (RoundID, CandidateID); candidate ids are a per-round
// monotonic counter starting at 1. Candidates are never deleted.
type Candidate struct {
	RoundID         uint64
	CandidateID     uint64
	Name            string
	Description     string
	ProposalDetails string
	IsActive        bool
	CreatedAt       time.Time
}

// Proposal is an inert metadata record. The target action descriptor is
// stored verbatim and never invoked by the engine.
type Proposal struct {
	ID             uint64
	Title          string
	Description    string
	RoundID        uint64
	Type           string
	TargetContract string
	FunctionName   string
	Parameters     string
	Proposer       string
	CreatedAt      time.Time
}

// Delegation is keyed by (Delegator, RoundID). Weight is a snapshot of the
// delegator's base weight at delegation time; later weight changes do not
// retroactively adjust it.
type Delegation struct {
	Delegator string
	RoundID   uint64
	Delegate  string
	Weight    uint64
	Active    bool
	CreatedAt time.Time
}

// DelegatePower aggregates the snapshot weights of all active delegations
// pointing at (Delegate, RoundID). It is maintained incrementally: add on
// delegate, subtract the exact stored weight on revoke.
type DelegatePower struct {
	Delegate             string
	RoundID              uint64
	TotalDelegatedWeight uint64
}

// VoteRecord is keyed by (Voter, RoundID), written exactly once and immutable
// thereafter. CastAtHeight is the engine height when the ballot landed.
type VoteRecord struct {
	Voter        string
	RoundID      uint64
	HasVoted     bool
	CandidateID  uint64
	VoteWeight   uint64
	CastAtHeight uint64
	CastAt       time.Time
	IsDelegated  bool
}

// CandidateTally counters are monotonically non-decreasing and only ever
// updated by the vote entry points.
type CandidateTally struct {
	RoundID        uint64
	CandidateID    uint64
	VoteCount      uint64
	WeightedVotes  uint64
	DelegatedVotes uint64
}

type RoundStats struct {
	RoundID              uint64
	TotalEligibleVoters  uint64
	ParticipationRatePct uint64
	TotalWeightCast      uint64
	TotalVotesCast       uint64
	DelegatedVotesCast   uint64
	DelegationRatePct    uint64
}

// ParticipationRate is TotalWeightCast*100/TotalEligibleVoters, defined as 0
// when there are no eligible voters.
func (s RoundStats) ParticipationRate() uint64 {
	if s.TotalEligibleVoters == 0 {
		return 0
	}
	return s.TotalWeightCast * 100 / s.TotalEligibleVoters
}

func (s RoundStats) DelegationRate() uint64 {
	if s.TotalVotesCast == 0 {
		return 0
	}
	return s.DelegatedVotesCast * 100 / s.TotalVotesCast
}

// EligibilityEntry is created or overwritten only by voter registration and
// never deleted. A zero BaseWeight reads as 1.
type EligibilityEntry struct {
	Account            string
	Eligible           bool
	BaseWeight         uint64
	Reputation         uint64
	RegisteredAtHeight uint64
	UpdatedAt          time.Time
}

func (e EligibilityEntry) EffectiveBaseWeight() uint64 {
	if e.BaseWeight < 1 {
		return 1
	}
	return e.BaseWeight
}

// RoleEntry carries four independent capability flags with full-overwrite
// semantics on every update. The engine owner is implicitly moderator
// regardless of this table.
type RoleEntry struct {
	Account         string
	Admin           bool
	Moderator       bool
	CanCreateRounds bool
	CanPropose      bool
	UpdatedAt       time.Time
}

// EngineState is the singleton control row: owner account, global pause flag,
// and the externally supplied monotonically non-decreasing height.
type EngineState struct {
	Owner         string
	Paused        bool
	CurrentHeight uint64
	UpdatedAt     time.Time
}

// EventLogEntry is append-only with a global monotonic id starting at 1.
type EventLogEntry struct {
	ID        uint64
	Type      string
	Actor     string
	RoundID   *uint64
	Height    uint64
	Details   []byte
	CreatedAt time.Time
}

// WinningCandidate scans tallies in ascending candidate-id order and returns
// the candidate with the strictly greatest weighted total; ties resolve to the
// smaller id. The second return is false when there are no tallies.
func WinningCandidate(tallies []CandidateTally) (uint64, bool) {
	var (
		winner uint64
		best   uint64
		found  bool
	)
	for _, tally := range tallies {
		if !found || tally.WeightedVotes > best {
			winner = tally.CandidateID
			best = tally.WeightedVotes
			found = true
		}
	}
	return winner, found
}
