package ports

import (
	"context"
	"encoding/json"
	"time"

	"agora/contexts/governance/voting-engine/domain/entities"
)

// Repository is the full persistence surface of the engine. Implementations
// must honor composite keys with explicit presence checks; "absent" is always
// reported through the bool return or a domain NotFound error, never through
// zero values.
type Repository interface {
	// Engine state singleton.
	EnsureState(ctx context.Context, owner string) (entities.EngineState, error)
	GetState(ctx context.Context) (entities.EngineState, error)
	SaveState(ctx context.Context, state entities.EngineState) error

	// Sequences are process-wide monotonic counters starting at 1.
	NextSequence(ctx context.Context, name string) (uint64, error)

	// Roles and eligibility.
	GetRole(ctx context.Context, account string) (entities.RoleEntry, bool, error)
	SaveRole(ctx context.Context, role entities.RoleEntry) error
	GetEligibility(ctx context.Context, account string) (entities.EligibilityEntry, bool, error)
	SaveEligibility(ctx context.Context, entry entities.EligibilityEntry) error
	CountEligibleVoters(ctx context.Context) (uint64, error)

	// Rounds.
	GetRound(ctx context.Context, roundID uint64) (entities.Round, error)
	SaveRound(ctx context.Context, round entities.Round) error

	// Candidates and proposals.
	GetCandidate(ctx context.Context, roundID uint64, candidateID uint64) (entities.Candidate, error)
	SaveCandidate(ctx context.Context, candidate entities.Candidate) error
	ListCandidates(ctx context.Context, roundID uint64) ([]entities.Candidate, error)
	GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error)
	SaveProposal(ctx context.Context, proposal entities.Proposal) error

	// Delegations.
	GetDelegation(ctx context.Context, delegator string, roundID uint64) (entities.Delegation, bool, error)
	SaveDelegation(ctx context.Context, delegation entities.Delegation) error
	DeleteDelegation(ctx context.Context, delegator string, roundID uint64) error
	GetDelegatePower(ctx context.Context, delegate string, roundID uint64) (entities.DelegatePower, bool, error)
	SaveDelegatePower(ctx context.Context, power entities.DelegatePower) error

	// Votes, tallies, stats.
	GetVoteRecord(ctx context.Context, voter string, roundID uint64) (entities.VoteRecord, bool, error)
	SaveVoteRecord(ctx context.Context, record entities.VoteRecord) error
	GetTally(ctx context.Context, roundID uint64, candidateID uint64) (entities.CandidateTally, bool, error)
	SaveTally(ctx context.Context, tally entities.CandidateTally) error
	ListTallies(ctx context.Context, roundID uint64) ([]entities.CandidateTally, error)
	GetStats(ctx context.Context, roundID uint64) (entities.RoundStats, bool, error)
	SaveStats(ctx context.Context, stats entities.RoundStats) error

	// Audit log.
	AppendEvent(ctx context.Context, entry entities.EventLogEntry) (uint64, error)
	ListEvents(ctx context.Context, afterID uint64, limit int) ([]entities.EventLogEntry, error)

	OutboxWriter
	OutboxRepository
	EventDedupStore
}

// UnitOfWork runs fn against a transaction-scoped Repository. The closure
// either fully commits or leaves no visible effects; every mutating use case
// goes through it, which gives the single-writer call-at-a-time discipline
// the engine's invariants assume.
type UnitOfWork interface {
	Atomic(ctx context.Context, fn func(repo Repository) error) error
}

type Clock interface {
	Now() time.Time
}

// EventEnvelope is the wire shape published to the bus by the outbox relay.
type EventEnvelope struct {
	EventID       string          `json:"event_id"`
	EventType     string          `json:"event_type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	SourceService string          `json:"source_service"`
	SchemaVersion int             `json:"schema_version"`
	PartitionKey  string          `json:"partition_key"`
	Data          json.RawMessage `json:"data"`
}

type OutboxMessage struct {
	OutboxID     string
	EventType    string
	PartitionKey string
	Payload      []byte
	CreatedAt    time.Time
}

type OutboxWriter interface {
	AppendOutbox(ctx context.Context, envelope EventEnvelope) error
}

type OutboxRepository interface {
	ListPendingOutbox(ctx context.Context, limit int) ([]OutboxMessage, error)
	MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error
}

type EventPublisher interface {
	Publish(ctx context.Context, topic string, event EventEnvelope) error
}

type EventSubscriber interface {
	Subscribe(ctx context.Context, topic string, consumerGroup string, handler func(context.Context, EventEnvelope) error) error
}

// EventDedupStore reserves consumer-side event ids. The bool return is true
// when the event was already processed with the same payload hash.
type EventDedupStore interface {
	ReserveEvent(ctx context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error)
}
