package memory

import (
	"bytes"
	"context"
	"encoding/json"
	"sort"
	"strings"
	"sync"
	"time"

	"agora/contexts/governance/voting-engine/domain/entities"
	domainerrors "agora/contexts/governance/voting-engine/domain/errors"
	"agora/contexts/governance/voting-engine/ports"

	"github.com/google/uuid"
)

type candidateKey struct {
	roundID     uint64
	candidateID uint64
}

type delegationKey struct {
	delegator string
	roundID   uint64
}

type powerKey struct {
	delegate string
	roundID  uint64
}

type voteKey struct {
	voter   string
	roundID uint64
}

type outboxRecord struct {
	message   ports.OutboxMessage
	published bool
}

type dedupRecord struct {
	payloadHash string
	expiresAt   time.Time
}

type storeData struct {
	state       entities.EngineState
	stateSet    bool
	sequences   map[string]uint64
	roles       map[string]entities.RoleEntry
	eligibility map[string]entities.EligibilityEntry
	rounds      map[uint64]entities.Round
	candidates  map[candidateKey]entities.Candidate
	proposals   map[uint64]entities.Proposal
	delegations map[delegationKey]entities.Delegation
	powers      map[powerKey]entities.DelegatePower
	votes       map[voteKey]entities.VoteRecord
	tallies     map[candidateKey]entities.CandidateTally
	stats       map[uint64]entities.RoundStats
	events      []entities.EventLogEntry
	outbox      map[string]outboxRecord
	dedup       map[string]dedupRecord
}

func newStoreData() *storeData {
	return &storeData{
		sequences:   make(map[string]uint64),
		roles:       make(map[string]entities.RoleEntry),
		eligibility: make(map[string]entities.EligibilityEntry),
		rounds:      make(map[uint64]entities.Round),
		candidates:  make(map[candidateKey]entities.Candidate),
		proposals:   make(map[uint64]entities.Proposal),
		delegations: make(map[delegationKey]entities.Delegation),
		powers:      make(map[powerKey]entities.DelegatePower),
		votes:       make(map[voteKey]entities.VoteRecord),
		tallies:     make(map[candidateKey]entities.CandidateTally),
		stats:       make(map[uint64]entities.RoundStats),
		outbox:      make(map[string]outboxRecord),
		dedup:       make(map[string]dedupRecord),
	}
}

func (d *storeData) clone() *storeData {
	next := &storeData{
		state:       d.state,
		stateSet:    d.stateSet,
		sequences:   make(map[string]uint64, len(d.sequences)),
		roles:       make(map[string]entities.RoleEntry, len(d.roles)),
		eligibility: make(map[string]entities.EligibilityEntry, len(d.eligibility)),
		rounds:      make(map[uint64]entities.Round, len(d.rounds)),
		candidates:  make(map[candidateKey]entities.Candidate, len(d.candidates)),
		proposals:   make(map[uint64]entities.Proposal, len(d.proposals)),
		delegations: make(map[delegationKey]entities.Delegation, len(d.delegations)),
		powers:      make(map[powerKey]entities.DelegatePower, len(d.powers)),
		votes:       make(map[voteKey]entities.VoteRecord, len(d.votes)),
		tallies:     make(map[candidateKey]entities.CandidateTally, len(d.tallies)),
		stats:       make(map[uint64]entities.RoundStats, len(d.stats)),
		events:      append([]entities.EventLogEntry(nil), d.events...),
		outbox:      make(map[string]outboxRecord, len(d.outbox)),
		dedup:       make(map[string]dedupRecord, len(d.dedup)),
	}
	for k, v := range d.sequences {
		next.sequences[k] = v
	}
	for k, v := range d.roles {
		next.roles[k] = v
	}
	for k, v := range d.eligibility {
		next.eligibility[k] = v
	}
	for k, v := range d.rounds {
		next.rounds[k] = v
	}
	for k, v := range d.candidates {
		next.candidates[k] = v
	}
	for k, v := range d.proposals {
		next.proposals[k] = v
	}
	for k, v := range d.delegations {
		next.delegations[k] = v
	}
	for k, v := range d.powers {
		next.powers[k] = v
	}
	for k, v := range d.votes {
		next.votes[k] = v
	}
	for k, v := range d.tallies {
		next.tallies[k] = v
	}
	for k, v := range d.stats {
		next.stats[k] = v
	}
	for k, v := range d.outbox {
		next.outbox[k] = v
	}
	for k, v := range d.dedup {
		next.dedup[k] = v
	}
	return next
}

// Store is the in-memory Repository and UnitOfWork used by tests and local
// runs. Atomic serializes transactions and restores a pre-transaction
// snapshot when the closure errors, so aborted calls leave no partial writes.
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	data *storeData
}

func NewStore(owner string) *Store {
	data := newStoreData()
	data.state = entities.EngineState{
		Owner:     strings.TrimSpace(owner),
		UpdatedAt: time.Now().UTC(),
	}
	data.stateSet = true
	return &Store{data: data}
}

func (s *Store) Atomic(ctx context.Context, fn func(repo ports.Repository) error) error {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.Lock()
	snapshot := s.data.clone()
	s.mu.Unlock()

	if err := fn(s); err != nil {
		s.mu.Lock()
		s.data = snapshot
		s.mu.Unlock()
		return err
	}
	return nil
}

func (s *Store) EnsureState(_ context.Context, owner string) (entities.EngineState, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.data.stateSet {
		s.data.state = entities.EngineState{
			Owner:     strings.TrimSpace(owner),
			UpdatedAt: time.Now().UTC(),
		}
		s.data.stateSet = true
	}
	return s.data.state, nil
}

func (s *Store) GetState(_ context.Context) (entities.EngineState, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.data.stateSet {
		return entities.EngineState{}, domainerrors.ErrStateNotInitialized
	}
	return s.data.state, nil
}

func (s *Store) SaveState(_ context.Context, state entities.EngineState) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.state = state
	s.data.stateSet = true
	return nil
}

func (s *Store) NextSequence(_ context.Context, name string) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.sequences[name]++
	return s.data.sequences[name], nil
}

func (s *Store) GetRole(_ context.Context, account string) (entities.RoleEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	role, ok := s.data.roles[strings.TrimSpace(account)]
	return role, ok, nil
}

func (s *Store) SaveRole(_ context.Context, role entities.RoleEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	role.Account = strings.TrimSpace(role.Account)
	s.data.roles[role.Account] = role
	return nil
}

func (s *Store) GetEligibility(_ context.Context, account string) (entities.EligibilityEntry, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	entry, ok := s.data.eligibility[strings.TrimSpace(account)]
	return entry, ok, nil
}

func (s *Store) SaveEligibility(_ context.Context, entry entities.EligibilityEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.Account = strings.TrimSpace(entry.Account)
	s.data.eligibility[entry.Account] = entry
	return nil
}

func (s *Store) CountEligibleVoters(_ context.Context) (uint64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var count uint64
	for _, entry := range s.data.eligibility {
		if entry.Eligible {
			count++
		}
	}
	return count, nil
}

func (s *Store) GetRound(_ context.Context, roundID uint64) (entities.Round, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	round, ok := s.data.rounds[roundID]
	if !ok {
		return entities.Round{}, domainerrors.ErrRoundNotFound
	}
	return round, nil
}

func (s *Store) SaveRound(_ context.Context, round entities.Round) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.rounds[round.ID] = round
	return nil
}

func (s *Store) GetCandidate(_ context.Context, roundID uint64, candidateID uint64) (entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	candidate, ok := s.data.candidates[candidateKey{roundID: roundID, candidateID: candidateID}]
	if !ok {
		return entities.Candidate{}, domainerrors.ErrCandidateNotFound
	}
	return candidate, nil
}

func (s *Store) SaveCandidate(_ context.Context, candidate entities.Candidate) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.candidates[candidateKey{roundID: candidate.RoundID, candidateID: candidate.CandidateID}] = candidate
	return nil
}

func (s *Store) ListCandidates(_ context.Context, roundID uint64) ([]entities.Candidate, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.Candidate, 0)
	for key, candidate := range s.data.candidates {
		if key.roundID == roundID {
			items = append(items, candidate)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CandidateID < items[j].CandidateID
	})
	return items, nil
}

func (s *Store) GetProposal(_ context.Context, proposalID uint64) (entities.Proposal, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	proposal, ok := s.data.proposals[proposalID]
	if !ok {
		return entities.Proposal{}, domainerrors.ErrProposalNotFound
	}
	return proposal, nil
}

func (s *Store) SaveProposal(_ context.Context, proposal entities.Proposal) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.proposals[proposal.ID] = proposal
	return nil
}

func (s *Store) GetDelegation(_ context.Context, delegator string, roundID uint64) (entities.Delegation, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	delegation, ok := s.data.delegations[delegationKey{delegator: strings.TrimSpace(delegator), roundID: roundID}]
	return delegation, ok, nil
}

func (s *Store) SaveDelegation(_ context.Context, delegation entities.Delegation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delegation.Delegator = strings.TrimSpace(delegation.Delegator)
	delegation.Delegate = strings.TrimSpace(delegation.Delegate)
	s.data.delegations[delegationKey{delegator: delegation.Delegator, roundID: delegation.RoundID}] = delegation
	return nil
}

func (s *Store) DeleteDelegation(_ context.Context, delegator string, roundID uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.data.delegations, delegationKey{delegator: strings.TrimSpace(delegator), roundID: roundID})
	return nil
}

func (s *Store) GetDelegatePower(_ context.Context, delegate string, roundID uint64) (entities.DelegatePower, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	power, ok := s.data.powers[powerKey{delegate: strings.TrimSpace(delegate), roundID: roundID}]
	return power, ok, nil
}

func (s *Store) SaveDelegatePower(_ context.Context, power entities.DelegatePower) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	power.Delegate = strings.TrimSpace(power.Delegate)
	s.data.powers[powerKey{delegate: power.Delegate, roundID: power.RoundID}] = power
	return nil
}

func (s *Store) GetVoteRecord(_ context.Context, voter string, roundID uint64) (entities.VoteRecord, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	record, ok := s.data.votes[voteKey{voter: strings.TrimSpace(voter), roundID: roundID}]
	return record, ok, nil
}

func (s *Store) SaveVoteRecord(_ context.Context, record entities.VoteRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	record.Voter = strings.TrimSpace(record.Voter)
	key := voteKey{voter: record.Voter, roundID: record.RoundID}
	if _, exists := s.data.votes[key]; exists {
		return domainerrors.ErrConflict
	}
	s.data.votes[key] = record
	return nil
}

func (s *Store) GetTally(_ context.Context, roundID uint64, candidateID uint64) (entities.CandidateTally, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	tally, ok := s.data.tallies[candidateKey{roundID: roundID, candidateID: candidateID}]
	return tally, ok, nil
}

func (s *Store) SaveTally(_ context.Context, tally entities.CandidateTally) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.tallies[candidateKey{roundID: tally.RoundID, candidateID: tally.CandidateID}] = tally
	return nil
}

func (s *Store) ListTallies(_ context.Context, roundID uint64) ([]entities.CandidateTally, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	items := make([]entities.CandidateTally, 0)
	for key, tally := range s.data.tallies {
		if key.roundID == roundID {
			items = append(items, tally)
		}
	}
	sort.Slice(items, func(i, j int) bool {
		return items[i].CandidateID < items[j].CandidateID
	})
	return items, nil
}

func (s *Store) GetStats(_ context.Context, roundID uint64) (entities.RoundStats, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	stats, ok := s.data.stats[roundID]
	return stats, ok, nil
}

func (s *Store) SaveStats(_ context.Context, stats entities.RoundStats) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data.stats[stats.RoundID] = stats
	return nil
}

func (s *Store) AppendEvent(_ context.Context, entry entities.EventLogEntry) (uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	entry.ID = uint64(len(s.data.events)) + 1
	s.data.events = append(s.data.events, entry)
	return entry.ID, nil
}

func (s *Store) ListEvents(_ context.Context, afterID uint64, limit int) ([]entities.EventLogEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]entities.EventLogEntry, 0, limit)
	for _, entry := range s.data.events {
		if entry.ID <= afterID {
			continue
		}
		items = append(items, entry)
		if len(items) >= limit {
			break
		}
	}
	return items, nil
}

func (s *Store) AppendOutbox(_ context.Context, envelope ports.EventEnvelope) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	payload, err := json.Marshal(envelope)
	if err != nil {
		return err
	}
	outboxID := strings.TrimSpace(envelope.EventID)
	if outboxID == "" {
		outboxID = uuid.NewString()
	}
	if existing, ok := s.data.outbox[outboxID]; ok {
		if !bytes.Equal(existing.message.Payload, payload) {
			return domainerrors.ErrConflict
		}
		return nil
	}
	createdAt := envelope.OccurredAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	s.data.outbox[outboxID] = outboxRecord{
		message: ports.OutboxMessage{
			OutboxID:     outboxID,
			EventType:    strings.TrimSpace(envelope.EventType),
			PartitionKey: strings.TrimSpace(envelope.PartitionKey),
			Payload:      payload,
			CreatedAt:    createdAt,
		},
	}
	return nil
}

func (s *Store) ListPendingOutbox(_ context.Context, limit int) ([]ports.OutboxMessage, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if limit <= 0 {
		limit = 100
	}
	items := make([]ports.OutboxMessage, 0, len(s.data.outbox))
	for _, row := range s.data.outbox {
		if row.published {
			continue
		}
		items = append(items, row.message)
	}
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.Equal(items[j].CreatedAt) {
			return items[i].OutboxID < items[j].OutboxID
		}
		return items[i].CreatedAt.Before(items[j].CreatedAt)
	})
	if len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

func (s *Store) MarkOutboxPublished(_ context.Context, outboxID string, _ time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	row, ok := s.data.outbox[strings.TrimSpace(outboxID)]
	if !ok {
		return domainerrors.ErrConflict
	}
	row.published = true
	s.data.outbox[strings.TrimSpace(outboxID)] = row
	return nil
}

func (s *Store) ReserveEvent(_ context.Context, eventID string, payloadHash string, expiresAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := strings.TrimSpace(eventID)
	existing, ok := s.data.dedup[key]
	if ok {
		if !existing.expiresAt.IsZero() && time.Now().UTC().After(existing.expiresAt.UTC()) {
			delete(s.data.dedup, key)
		} else {
			if existing.payloadHash != strings.TrimSpace(payloadHash) {
				return false, domainerrors.ErrConflict
			}
			return true, nil
		}
	}
	s.data.dedup[key] = dedupRecord{
		payloadHash: strings.TrimSpace(payloadHash),
		expiresAt:   expiresAt.UTC(),
	}
	return false, nil
}

func (s *Store) Now() time.Time {
	return time.Now().UTC()
}

var _ ports.Repository = (*Store)(nil)
var _ ports.UnitOfWork = (*Store)(nil)
var _ ports.Clock = (*Store)(nil)
