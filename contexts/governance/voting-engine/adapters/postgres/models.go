package postgresadapter

import (
	"strings"
	"time"

	"agora/contexts/governance/voting-engine/domain/entities"
)

type engineStateModel struct {
	ID            int16     `gorm:"column:id;primaryKey"`
	Owner         string    `gorm:"column:owner"`
	Paused        bool      `gorm:"column:paused"`
	CurrentHeight uint64    `gorm:"column:current_height"`
	UpdatedAt     time.Time `gorm:"column:updated_at"`
}

func (engineStateModel) TableName() string {
	return "governance_engine_state"
}

func engineStateModelFromEntity(state entities.EngineState) engineStateModel {
	row := engineStateModel{
		ID:            engineStateRowID,
		Owner:         strings.TrimSpace(state.Owner),
		Paused:        state.Paused,
		CurrentHeight: state.CurrentHeight,
		UpdatedAt:     state.UpdatedAt.UTC(),
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	return row
}

func (m engineStateModel) toEntity() entities.EngineState {
	return entities.EngineState{
		Owner:         m.Owner,
		Paused:        m.Paused,
		CurrentHeight: m.CurrentHeight,
		UpdatedAt:     m.UpdatedAt.UTC(),
	}
}

type sequenceModel struct {
	Name  string `gorm:"column:name;primaryKey"`
	Value uint64 `gorm:"column:value"`
}

func (sequenceModel) TableName() string {
	return "governance_sequences"
}

type roleModel struct {
	Account         string    `gorm:"column:account;primaryKey"`
	Admin           bool      `gorm:"column:admin"`
	Moderator       bool      `gorm:"column:moderator"`
	CanCreateRounds bool      `gorm:"column:can_create_rounds"`
	CanPropose      bool      `gorm:"column:can_propose"`
	UpdatedAt       time.Time `gorm:"column:updated_at"`
}

func (roleModel) TableName() string {
	return "governance_roles"
}

func roleModelFromEntity(role entities.RoleEntry) roleModel {
	row := roleModel{
		Account:         strings.TrimSpace(role.Account),
		Admin:           role.Admin,
		Moderator:       role.Moderator,
		CanCreateRounds: role.CanCreateRounds,
		CanPropose:      role.CanPropose,
		UpdatedAt:       role.UpdatedAt.UTC(),
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	return row
}

func (m roleModel) toEntity() entities.RoleEntry {
	return entities.RoleEntry{
		Account:         m.Account,
		Admin:           m.Admin,
		Moderator:       m.Moderator,
		CanCreateRounds: m.CanCreateRounds,
		CanPropose:      m.CanPropose,
		UpdatedAt:       m.UpdatedAt.UTC(),
	}
}

type eligibilityModel struct {
	Account            string    `gorm:"column:account;primaryKey"`
	Eligible           bool      `gorm:"column:eligible"`
	BaseWeight         uint64    `gorm:"column:base_weight"`
	Reputation         uint64    `gorm:"column:reputation"`
	RegisteredAtHeight uint64    `gorm:"column:registered_at_height"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (eligibilityModel) TableName() string {
	return "governance_eligibility"
}

func eligibilityModelFromEntity(entry entities.EligibilityEntry) eligibilityModel {
	row := eligibilityModel{
		Account:            strings.TrimSpace(entry.Account),
		Eligible:           entry.Eligible,
		BaseWeight:         entry.BaseWeight,
		Reputation:         entry.Reputation,
		RegisteredAtHeight: entry.RegisteredAtHeight,
		UpdatedAt:          entry.UpdatedAt.UTC(),
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = time.Now().UTC()
	}
	return row
}

func (m eligibilityModel) toEntity() entities.EligibilityEntry {
	return entities.EligibilityEntry{
		Account:            m.Account,
		Eligible:           m.Eligible,
		BaseWeight:         m.BaseWeight,
		Reputation:         m.Reputation,
		RegisteredAtHeight: m.RegisteredAtHeight,
		UpdatedAt:          m.UpdatedAt.UTC(),
	}
}

type roundModel struct {
	ID                  uint64    `gorm:"column:id;primaryKey"`
	RoundType           string    `gorm:"column:round_type"`
	Name                string    `gorm:"column:name"`
	Description         string    `gorm:"column:description"`
	Status              uint8     `gorm:"column:status"`
	StartHeight         uint64    `gorm:"column:start_height"`
	EndHeight           uint64    `gorm:"column:end_height"`
	MinParticipationPct uint64    `gorm:"column:min_participation_pct"`
	QuorumThresholdPct  uint64    `gorm:"column:quorum_threshold_pct"`
	PrivacyLevel        string    `gorm:"column:privacy_level"`
	IsFinalized         bool      `gorm:"column:is_finalized"`
	WinnerCandidateID   *uint64   `gorm:"column:winner_candidate_id"`
	Creator             string    `gorm:"column:creator"`
	CandidateCount      uint64    `gorm:"column:candidate_count"`
	CreatedAt           time.Time `gorm:"column:created_at"`
	UpdatedAt           time.Time `gorm:"column:updated_at"`
}

func (roundModel) TableName() string {
	return "governance_rounds"
}

func roundModelFromEntity(round entities.Round) roundModel {
	row := roundModel{
		ID:                  round.ID,
		RoundType:           string(round.Type),
		Name:                strings.TrimSpace(round.Name),
		Description:         round.Description,
		Status:              uint8(round.Status),
		StartHeight:         round.StartHeight,
		EndHeight:           round.EndHeight,
		MinParticipationPct: round.MinParticipationPct,
		QuorumThresholdPct:  round.QuorumThresholdPct,
		PrivacyLevel:        strings.TrimSpace(round.PrivacyLevel),
		IsFinalized:         round.IsFinalized,
		WinnerCandidateID:   round.WinnerCandidateID,
		Creator:             strings.TrimSpace(round.Creator),
		CandidateCount:      round.CandidateCount,
		CreatedAt:           round.CreatedAt.UTC(),
		UpdatedAt:           round.UpdatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	if row.UpdatedAt.IsZero() {
		row.UpdatedAt = row.CreatedAt
	}
	return row
}

func (m roundModel) toEntity() entities.Round {
	return entities.Round{
		ID:                  m.ID,
		Type:                entities.RoundType(m.RoundType),
		Name:                m.Name,
		Description:         m.Description,
		Status:              entities.RoundStatus(m.Status),
		StartHeight:         m.StartHeight,
		EndHeight:           m.EndHeight,
		MinParticipationPct: m.MinParticipationPct,
		QuorumThresholdPct:  m.QuorumThresholdPct,
		PrivacyLevel:        m.PrivacyLevel,
		IsFinalized:         m.IsFinalized,
		WinnerCandidateID:   m.WinnerCandidateID,
		Creator:             m.Creator,
		CandidateCount:      m.CandidateCount,
		CreatedAt:           m.CreatedAt.UTC(),
		UpdatedAt:           m.UpdatedAt.UTC(),
	}
}

type candidateModel struct {
	RoundID         uint64    `gorm:"column:round_id;primaryKey"`
	CandidateID     uint64    `gorm:"column:candidate_id;primaryKey"`
	Name            string    `gorm:"column:name"`
	Description     string    `gorm:"column:description"`
	ProposalDetails string    `gorm:"column:proposal_details"`
	IsActive        bool      `gorm:"column:is_active"`
	CreatedAt       time.Time `gorm:"column:created_at"`
}

func (candidateModel) TableName() string {
	return "governance_candidates"
}

func candidateModelFromEntity(candidate entities.Candidate) candidateModel {
	row := candidateModel{
		RoundID:         candidate.RoundID,
		CandidateID:     candidate.CandidateID,
		Name:            strings.TrimSpace(candidate.Name),
		Description:     candidate.Description,
		ProposalDetails: candidate.ProposalDetails,
		IsActive:        candidate.IsActive,
		CreatedAt:       candidate.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m candidateModel) toEntity() entities.Candidate {
	return entities.Candidate{
		RoundID:         m.RoundID,
		CandidateID:     m.CandidateID,
		Name:            m.Name,
		Description:     m.Description,
		ProposalDetails: m.ProposalDetails,
		IsActive:        m.IsActive,
		CreatedAt:       m.CreatedAt.UTC(),
	}
}

type proposalModel struct {
	ID             uint64    `gorm:"column:id;primaryKey"`
	Title          string    `gorm:"column:title"`
	Description    string    `gorm:"column:description"`
	RoundID        uint64    `gorm:"column:round_id"`
	ProposalType   string    `gorm:"column:proposal_type"`
	TargetContract string    `gorm:"column:target_contract"`
	FunctionName   string    `gorm:"column:function_name"`
	Parameters     string    `gorm:"column:parameters"`
	Proposer       string    `gorm:"column:proposer"`
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (proposalModel) TableName() string {
	return "governance_proposals"
}

func proposalModelFromEntity(proposal entities.Proposal) proposalModel {
	row := proposalModel{
		ID:             proposal.ID,
		Title:          strings.TrimSpace(proposal.Title),
		Description:    proposal.Description,
		RoundID:        proposal.RoundID,
		ProposalType:   strings.TrimSpace(proposal.Type),
		TargetContract: strings.TrimSpace(proposal.TargetContract),
		FunctionName:   strings.TrimSpace(proposal.FunctionName),
		Parameters:     proposal.Parameters,
		Proposer:       strings.TrimSpace(proposal.Proposer),
		CreatedAt:      proposal.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m proposalModel) toEntity() entities.Proposal {
	return entities.Proposal{
		ID:             m.ID,
		Title:          m.Title,
		Description:    m.Description,
		RoundID:        m.RoundID,
		Type:           m.ProposalType,
		TargetContract: m.TargetContract,
		FunctionName:   m.FunctionName,
		Parameters:     m.Parameters,
		Proposer:       m.Proposer,
		CreatedAt:      m.CreatedAt.UTC(),
	}
}

type delegationModel struct {
	Delegator string    `gorm:"column:delegator;primaryKey"`
	RoundID   uint64    `gorm:"column:round_id;primaryKey"`
	Delegate  string    `gorm:"column:delegate"`
	Weight    uint64    `gorm:"column:weight"`
	Active    bool      `gorm:"column:active"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (delegationModel) TableName() string {
	return "governance_delegations"
}

func delegationModelFromEntity(delegation entities.Delegation) delegationModel {
	row := delegationModel{
		Delegator: strings.TrimSpace(delegation.Delegator),
		RoundID:   delegation.RoundID,
		Delegate:  strings.TrimSpace(delegation.Delegate),
		Weight:    delegation.Weight,
		Active:    delegation.Active,
		CreatedAt: delegation.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m delegationModel) toEntity() entities.Delegation {
	return entities.Delegation{
		Delegator: m.Delegator,
		RoundID:   m.RoundID,
		Delegate:  m.Delegate,
		Weight:    m.Weight,
		Active:    m.Active,
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type delegatePowerModel struct {
	Delegate             string `gorm:"column:delegate;primaryKey"`
	RoundID              uint64 `gorm:"column:round_id;primaryKey"`
	TotalDelegatedWeight uint64 `gorm:"column:total_delegated_weight"`
}

func (delegatePowerModel) TableName() string {
	return "governance_delegate_power"
}

func delegatePowerModelFromEntity(power entities.DelegatePower) delegatePowerModel {
	return delegatePowerModel{
		Delegate:             strings.TrimSpace(power.Delegate),
		RoundID:              power.RoundID,
		TotalDelegatedWeight: power.TotalDelegatedWeight,
	}
}

func (m delegatePowerModel) toEntity() entities.DelegatePower {
	return entities.DelegatePower{
		Delegate:             m.Delegate,
		RoundID:              m.RoundID,
		TotalDelegatedWeight: m.TotalDelegatedWeight,
	}
}

type voteRecordModel struct {
	Voter        string    `gorm:"column:voter;primaryKey"`
	RoundID      uint64    `gorm:"column:round_id;primaryKey"`
	HasVoted     bool      `gorm:"column:has_voted"`
	CandidateID  uint64    `gorm:"column:candidate_id"`
	VoteWeight   uint64    `gorm:"column:vote_weight"`
	CastAtHeight uint64    `gorm:"column:cast_at_height"`
	CastAt       time.Time `gorm:"column:cast_at"`
	IsDelegated  bool      `gorm:"column:is_delegated"`
}

func (voteRecordModel) TableName() string {
	return "governance_vote_records"
}

func voteRecordModelFromEntity(record entities.VoteRecord) voteRecordModel {
	row := voteRecordModel{
		Voter:        strings.TrimSpace(record.Voter),
		RoundID:      record.RoundID,
		HasVoted:     record.HasVoted,
		CandidateID:  record.CandidateID,
		VoteWeight:   record.VoteWeight,
		CastAtHeight: record.CastAtHeight,
		CastAt:       record.CastAt.UTC(),
		IsDelegated:  record.IsDelegated,
	}
	if row.CastAt.IsZero() {
		row.CastAt = time.Now().UTC()
	}
	return row
}

func (m voteRecordModel) toEntity() entities.VoteRecord {
	return entities.VoteRecord{
		Voter:        m.Voter,
		RoundID:      m.RoundID,
		HasVoted:     m.HasVoted,
		CandidateID:  m.CandidateID,
		VoteWeight:   m.VoteWeight,
		CastAtHeight: m.CastAtHeight,
		CastAt:       m.CastAt.UTC(),
		IsDelegated:  m.IsDelegated,
	}
}

type tallyModel struct {
	RoundID        uint64 `gorm:"column:round_id;primaryKey"`
	CandidateID    uint64 `gorm:"column:candidate_id;primaryKey"`
	VoteCount      uint64 `gorm:"column:vote_count"`
	WeightedVotes  uint64 `gorm:"column:weighted_votes"`
	DelegatedVotes uint64 `gorm:"column:delegated_votes"`
}

func (tallyModel) TableName() string {
	return "governance_tallies"
}

func tallyModelFromEntity(tally entities.CandidateTally) tallyModel {
	return tallyModel{
		RoundID:        tally.RoundID,
		CandidateID:    tally.CandidateID,
		VoteCount:      tally.VoteCount,
		WeightedVotes:  tally.WeightedVotes,
		DelegatedVotes: tally.DelegatedVotes,
	}
}

func (m tallyModel) toEntity() entities.CandidateTally {
	return entities.CandidateTally{
		RoundID:        m.RoundID,
		CandidateID:    m.CandidateID,
		VoteCount:      m.VoteCount,
		WeightedVotes:  m.WeightedVotes,
		DelegatedVotes: m.DelegatedVotes,
	}
}

type statsModel struct {
	RoundID              uint64 `gorm:"column:round_id;primaryKey"`
	TotalEligibleVoters  uint64 `gorm:"column:total_eligible_voters"`
	ParticipationRatePct uint64 `gorm:"column:participation_rate_pct"`
	TotalWeightCast      uint64 `gorm:"column:total_weight_cast"`
	TotalVotesCast       uint64 `gorm:"column:total_votes_cast"`
	DelegatedVotesCast   uint64 `gorm:"column:delegated_votes_cast"`
	DelegationRatePct    uint64 `gorm:"column:delegation_rate_pct"`
}

func (statsModel) TableName() string {
	return "governance_round_stats"
}

func statsModelFromEntity(stats entities.RoundStats) statsModel {
	return statsModel{
		RoundID:              stats.RoundID,
		TotalEligibleVoters:  stats.TotalEligibleVoters,
		ParticipationRatePct: stats.ParticipationRatePct,
		TotalWeightCast:      stats.TotalWeightCast,
		TotalVotesCast:       stats.TotalVotesCast,
		DelegatedVotesCast:   stats.DelegatedVotesCast,
		DelegationRatePct:    stats.DelegationRatePct,
	}
}

func (m statsModel) toEntity() entities.RoundStats {
	return entities.RoundStats{
		RoundID:              m.RoundID,
		TotalEligibleVoters:  m.TotalEligibleVoters,
		ParticipationRatePct: m.ParticipationRatePct,
		TotalWeightCast:      m.TotalWeightCast,
		TotalVotesCast:       m.TotalVotesCast,
		DelegatedVotesCast:   m.DelegatedVotesCast,
		DelegationRatePct:    m.DelegationRatePct,
	}
}

type eventLogModel struct {
	ID        uint64    `gorm:"column:id;primaryKey;autoIncrement"`
	EventType string    `gorm:"column:event_type"`
	Actor     string    `gorm:"column:actor"`
	RoundID   *uint64   `gorm:"column:round_id"`
	Height    uint64    `gorm:"column:height"`
	Details   []byte    `gorm:"column:details"`
	CreatedAt time.Time `gorm:"column:created_at"`
}

func (eventLogModel) TableName() string {
	return "governance_event_log"
}

func eventLogModelFromEntity(entry entities.EventLogEntry) eventLogModel {
	row := eventLogModel{
		EventType: strings.TrimSpace(entry.Type),
		Actor:     strings.TrimSpace(entry.Actor),
		RoundID:   entry.RoundID,
		Height:    entry.Height,
		Details:   append([]byte(nil), entry.Details...),
		CreatedAt: entry.CreatedAt.UTC(),
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	return row
}

func (m eventLogModel) toEntity() entities.EventLogEntry {
	return entities.EventLogEntry{
		ID:        m.ID,
		Type:      m.EventType,
		Actor:     m.Actor,
		RoundID:   m.RoundID,
		Height:    m.Height,
		Details:   append([]byte(nil), m.Details...),
		CreatedAt: m.CreatedAt.UTC(),
	}
}

type outboxModel struct {
	OutboxID     string     `gorm:"column:outbox_id;primaryKey"`
	EventType    string     `gorm:"column:event_type"`
	PartitionKey string     `gorm:"column:partition_key"`
	Payload      []byte     `gorm:"column:payload"`
	Status       string     `gorm:"column:status"`
	CreatedAt    time.Time  `gorm:"column:created_at"`
	PublishedAt  *time.Time `gorm:"column:published_at"`
}

func (outboxModel) TableName() string {
	return "governance_outbox"
}

type eventDedupModel struct {
	EventID     string    `gorm:"column:event_id;primaryKey"`
	PayloadHash string    `gorm:"column:payload_hash"`
	ExpiresAt   time.Time `gorm:"column:expires_at"`
	ProcessedAt time.Time `gorm:"column:processed_at"`
}

func (eventDedupModel) TableName() string {
	return "governance_event_dedup"
}
