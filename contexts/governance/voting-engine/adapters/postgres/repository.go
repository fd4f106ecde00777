package postgresadapter

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"time"

	"agora/contexts/governance/voting-engine/domain/entities"
	domainerrors "agora/contexts/governance/voting-engine/domain/errors"
	"agora/contexts/governance/voting-engine/ports"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

const (
	outboxStatusPending   = "pending"
	outboxStatusPublished = "published"

	engineStateRowID = int16(1)
)

type Repository struct {
	db     *gorm.DB
	logger *slog.Logger
}

func NewRepository(db *gorm.DB, logger *slog.Logger) *Repository {
	if logger == nil {
		logger = slog.Default()
	}
	return &Repository{
		db:     db,
		logger: logger,
	}
}

// Atomic runs fn against a transaction-scoped Repository. Any error from fn
// rolls the whole transaction back.
func (r *Repository) Atomic(ctx context.Context, fn func(repo ports.Repository) error) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(NewRepository(tx, r.logger))
	})
}

func (r *Repository) EnsureState(ctx context.Context, owner string) (entities.EngineState, error) {
	row := engineStateModel{
		ID:        engineStateRowID,
		Owner:     strings.TrimSpace(owner),
		UpdatedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return entities.EngineState{}, r.logError("governance_repo_ensure_state_failed", create.Error,
			"owner", strings.TrimSpace(owner),
		)
	}
	return r.GetState(ctx)
}

func (r *Repository) GetState(ctx context.Context) (entities.EngineState, error) {
	var row engineStateModel
	err := r.db.WithContext(ctx).
		Where("id = ?", engineStateRowID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.EngineState{}, domainerrors.ErrStateNotInitialized
		}
		return entities.EngineState{}, r.logError("governance_repo_get_state_failed", err)
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveState(ctx context.Context, state entities.EngineState) error {
	row := engineStateModelFromEntity(state)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"owner":          row.Owner,
			"paused":         row.Paused,
			"current_height": row.CurrentHeight,
			"updated_at":     row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_state_failed", create.Error,
			"owner", row.Owner,
			"current_height", row.CurrentHeight,
		)
	}
	return nil
}

func (r *Repository) NextSequence(ctx context.Context, name string) (uint64, error) {
	name = strings.TrimSpace(name)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "name"}},
		DoUpdates: clause.Assignments(map[string]any{
			"value": gorm.Expr("governance_sequences.value + 1"),
		}),
	}).Create(&sequenceModel{Name: name, Value: 1})
	if create.Error != nil {
		return 0, r.logError("governance_repo_next_sequence_failed", create.Error, "sequence", name)
	}

	var row sequenceModel
	if err := r.db.WithContext(ctx).
		Where("name = ?", name).
		First(&row).Error; err != nil {
		return 0, r.logError("governance_repo_next_sequence_read_failed", err, "sequence", name)
	}
	return row.Value, nil
}

func (r *Repository) GetRole(ctx context.Context, account string) (entities.RoleEntry, bool, error) {
	var row roleModel
	err := r.db.WithContext(ctx).
		Where("account = ?", strings.TrimSpace(account)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RoleEntry{}, false, nil
		}
		return entities.RoleEntry{}, false, r.logError("governance_repo_get_role_failed", err,
			"account", strings.TrimSpace(account),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveRole(ctx context.Context, role entities.RoleEntry) error {
	row := roleModelFromEntity(role)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.Assignments(map[string]any{
			"admin":             row.Admin,
			"moderator":         row.Moderator,
			"can_create_rounds": row.CanCreateRounds,
			"can_propose":       row.CanPropose,
			"updated_at":        row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_role_failed", create.Error, "account", row.Account)
	}
	return nil
}

func (r *Repository) GetEligibility(ctx context.Context, account string) (entities.EligibilityEntry, bool, error) {
	var row eligibilityModel
	err := r.db.WithContext(ctx).
		Where("account = ?", strings.TrimSpace(account)).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.EligibilityEntry{}, false, nil
		}
		return entities.EligibilityEntry{}, false, r.logError("governance_repo_get_eligibility_failed", err,
			"account", strings.TrimSpace(account),
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveEligibility(ctx context.Context, entry entities.EligibilityEntry) error {
	row := eligibilityModelFromEntity(entry)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "account"}},
		DoUpdates: clause.Assignments(map[string]any{
			"eligible":             row.Eligible,
			"base_weight":          row.BaseWeight,
			"reputation":           row.Reputation,
			"registered_at_height": row.RegisteredAtHeight,
			"updated_at":           row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_eligibility_failed", create.Error, "account", row.Account)
	}
	return nil
}

func (r *Repository) CountEligibleVoters(ctx context.Context) (uint64, error) {
	var count int64
	if err := r.db.WithContext(ctx).
		Model(&eligibilityModel{}).
		Where("eligible = ?", true).
		Count(&count).Error; err != nil {
		return 0, r.logError("governance_repo_count_eligible_voters_failed", err)
	}
	return uint64(count), nil
}

func (r *Repository) GetRound(ctx context.Context, roundID uint64) (entities.Round, error) {
	var row roundModel
	err := r.db.WithContext(ctx).
		Where("id = ?", roundID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Round{}, domainerrors.ErrRoundNotFound
		}
		return entities.Round{}, r.logError("governance_repo_get_round_failed", err, "round_id", roundID)
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveRound(ctx context.Context, round entities.Round) error {
	row := roundModelFromEntity(round)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"round_type":            row.RoundType,
			"name":                  row.Name,
			"description":           row.Description,
			"status":                row.Status,
			"start_height":          row.StartHeight,
			"end_height":            row.EndHeight,
			"min_participation_pct": row.MinParticipationPct,
			"quorum_threshold_pct":  row.QuorumThresholdPct,
			"privacy_level":         row.PrivacyLevel,
			"is_finalized":          row.IsFinalized,
			"winner_candidate_id":   row.WinnerCandidateID,
			"candidate_count":       row.CandidateCount,
			"updated_at":            row.UpdatedAt,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_round_failed", create.Error, "round_id", round.ID)
	}
	return nil
}

func (r *Repository) GetCandidate(ctx context.Context, roundID uint64, candidateID uint64) (entities.Candidate, error) {
	var row candidateModel
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Where("candidate_id = ?", candidateID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Candidate{}, domainerrors.ErrCandidateNotFound
		}
		return entities.Candidate{}, r.logError("governance_repo_get_candidate_failed", err,
			"round_id", roundID,
			"candidate_id", candidateID,
		)
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveCandidate(ctx context.Context, candidate entities.Candidate) error {
	row := candidateModelFromEntity(candidate)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "round_id"}, {Name: "candidate_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"name":             row.Name,
			"description":      row.Description,
			"proposal_details": row.ProposalDetails,
			"is_active":        row.IsActive,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_candidate_failed", create.Error,
			"round_id", candidate.RoundID,
			"candidate_id", candidate.CandidateID,
		)
	}
	return nil
}

func (r *Repository) ListCandidates(ctx context.Context, roundID uint64) ([]entities.Candidate, error) {
	var rows []candidateModel
	if err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("candidate_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_candidates_failed", err, "round_id", roundID)
	}
	items := make([]entities.Candidate, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetProposal(ctx context.Context, proposalID uint64) (entities.Proposal, error) {
	var row proposalModel
	err := r.db.WithContext(ctx).
		Where("id = ?", proposalID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Proposal{}, domainerrors.ErrProposalNotFound
		}
		return entities.Proposal{}, r.logError("governance_repo_get_proposal_failed", err, "proposal_id", proposalID)
	}
	return row.toEntity(), nil
}

func (r *Repository) SaveProposal(ctx context.Context, proposal entities.Proposal) error {
	row := proposalModelFromEntity(proposal)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"title":           row.Title,
			"description":     row.Description,
			"round_id":        row.RoundID,
			"proposal_type":   row.ProposalType,
			"target_contract": row.TargetContract,
			"function_name":   row.FunctionName,
			"parameters":      row.Parameters,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_proposal_failed", create.Error, "proposal_id", proposal.ID)
	}
	return nil
}

func (r *Repository) GetDelegation(ctx context.Context, delegator string, roundID uint64) (entities.Delegation, bool, error) {
	var row delegationModel
	err := r.db.WithContext(ctx).
		Where("delegator = ?", strings.TrimSpace(delegator)).
		Where("round_id = ?", roundID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.Delegation{}, false, nil
		}
		return entities.Delegation{}, false, r.logError("governance_repo_get_delegation_failed", err,
			"delegator", strings.TrimSpace(delegator),
			"round_id", roundID,
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveDelegation(ctx context.Context, delegation entities.Delegation) error {
	row := delegationModelFromEntity(delegation)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "delegator"}, {Name: "round_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"delegate": row.Delegate,
			"weight":   row.Weight,
			"active":   row.Active,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_delegation_failed", create.Error,
			"delegator", row.Delegator,
			"round_id", delegation.RoundID,
		)
	}
	return nil
}

func (r *Repository) DeleteDelegation(ctx context.Context, delegator string, roundID uint64) error {
	result := r.db.WithContext(ctx).
		Where("delegator = ?", strings.TrimSpace(delegator)).
		Where("round_id = ?", roundID).
		Delete(&delegationModel{})
	if result.Error != nil {
		return r.logError("governance_repo_delete_delegation_failed", result.Error,
			"delegator", strings.TrimSpace(delegator),
			"round_id", roundID,
		)
	}
	return nil
}

func (r *Repository) GetDelegatePower(ctx context.Context, delegate string, roundID uint64) (entities.DelegatePower, bool, error) {
	var row delegatePowerModel
	err := r.db.WithContext(ctx).
		Where("delegate = ?", strings.TrimSpace(delegate)).
		Where("round_id = ?", roundID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.DelegatePower{}, false, nil
		}
		return entities.DelegatePower{}, false, r.logError("governance_repo_get_delegate_power_failed", err,
			"delegate", strings.TrimSpace(delegate),
			"round_id", roundID,
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveDelegatePower(ctx context.Context, power entities.DelegatePower) error {
	row := delegatePowerModelFromEntity(power)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "delegate"}, {Name: "round_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_delegated_weight": row.TotalDelegatedWeight,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_delegate_power_failed", create.Error,
			"delegate", row.Delegate,
			"round_id", power.RoundID,
		)
	}
	return nil
}

func (r *Repository) GetVoteRecord(ctx context.Context, voter string, roundID uint64) (entities.VoteRecord, bool, error) {
	var row voteRecordModel
	err := r.db.WithContext(ctx).
		Where("voter = ?", strings.TrimSpace(voter)).
		Where("round_id = ?", roundID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.VoteRecord{}, false, nil
		}
		return entities.VoteRecord{}, false, r.logError("governance_repo_get_vote_record_failed", err,
			"voter", strings.TrimSpace(voter),
			"round_id", roundID,
		)
	}
	return row.toEntity(), true, nil
}

// SaveVoteRecord never overwrites: a second insert for the same (voter, round)
// pair reports ErrConflict so the one-vote rule holds even under races.
func (r *Repository) SaveVoteRecord(ctx context.Context, record entities.VoteRecord) error {
	row := voteRecordModelFromEntity(record)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "voter"}, {Name: "round_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		if isUniqueViolation(create.Error) {
			return domainerrors.ErrConflict
		}
		return r.logError("governance_repo_save_vote_record_failed", create.Error,
			"voter", row.Voter,
			"round_id", record.RoundID,
		)
	}
	if create.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) GetTally(ctx context.Context, roundID uint64, candidateID uint64) (entities.CandidateTally, bool, error) {
	var row tallyModel
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Where("candidate_id = ?", candidateID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.CandidateTally{}, false, nil
		}
		return entities.CandidateTally{}, false, r.logError("governance_repo_get_tally_failed", err,
			"round_id", roundID,
			"candidate_id", candidateID,
		)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveTally(ctx context.Context, tally entities.CandidateTally) error {
	row := tallyModelFromEntity(tally)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "round_id"}, {Name: "candidate_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"vote_count":      row.VoteCount,
			"weighted_votes":  row.WeightedVotes,
			"delegated_votes": row.DelegatedVotes,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_tally_failed", create.Error,
			"round_id", tally.RoundID,
			"candidate_id", tally.CandidateID,
		)
	}
	return nil
}

func (r *Repository) ListTallies(ctx context.Context, roundID uint64) ([]entities.CandidateTally, error) {
	var rows []tallyModel
	if err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		Order("candidate_id ASC").
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_tallies_failed", err, "round_id", roundID)
	}
	items := make([]entities.CandidateTally, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) GetStats(ctx context.Context, roundID uint64) (entities.RoundStats, bool, error) {
	var row statsModel
	err := r.db.WithContext(ctx).
		Where("round_id = ?", roundID).
		First(&row).
		Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return entities.RoundStats{}, false, nil
		}
		return entities.RoundStats{}, false, r.logError("governance_repo_get_stats_failed", err, "round_id", roundID)
	}
	return row.toEntity(), true, nil
}

func (r *Repository) SaveStats(ctx context.Context, stats entities.RoundStats) error {
	row := statsModelFromEntity(stats)
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "round_id"}},
		DoUpdates: clause.Assignments(map[string]any{
			"total_eligible_voters":  row.TotalEligibleVoters,
			"participation_rate_pct": row.ParticipationRatePct,
			"total_weight_cast":      row.TotalWeightCast,
			"total_votes_cast":       row.TotalVotesCast,
			"delegated_votes_cast":   row.DelegatedVotesCast,
			"delegation_rate_pct":    row.DelegationRatePct,
		}),
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_save_stats_failed", create.Error, "round_id", stats.RoundID)
	}
	return nil
}

func (r *Repository) AppendEvent(ctx context.Context, entry entities.EventLogEntry) (uint64, error) {
	row := eventLogModelFromEntity(entry)
	if err := r.db.WithContext(ctx).Create(&row).Error; err != nil {
		return 0, r.logError("governance_repo_append_event_failed", err,
			"event_type", row.EventType,
			"actor", row.Actor,
		)
	}
	return row.ID, nil
}

func (r *Repository) ListEvents(ctx context.Context, afterID uint64, limit int) ([]entities.EventLogEntry, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []eventLogModel
	if err := r.db.WithContext(ctx).
		Where("id > ?", afterID).
		Order("id ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_events_failed", err, "after_id", afterID)
	}
	items := make([]entities.EventLogEntry, 0, len(rows))
	for _, row := range rows {
		items = append(items, row.toEntity())
	}
	return items, nil
}

func (r *Repository) AppendOutbox(ctx context.Context, envelope ports.EventEnvelope) error {
	payload, err := json.Marshal(envelope)
	if err != nil {
		return r.logError("governance_repo_append_outbox_marshal_failed", err,
			"event_id", strings.TrimSpace(envelope.EventID),
			"event_type", strings.TrimSpace(envelope.EventType),
		)
	}
	row := outboxModel{
		OutboxID:     strings.TrimSpace(envelope.EventID),
		EventType:    strings.TrimSpace(envelope.EventType),
		PartitionKey: strings.TrimSpace(envelope.PartitionKey),
		Payload:      payload,
		Status:       outboxStatusPending,
		CreatedAt:    envelope.OccurredAt.UTC(),
	}
	if row.OutboxID == "" {
		row.OutboxID = uuid.NewString()
	}
	if row.CreatedAt.IsZero() {
		row.CreatedAt = time.Now().UTC()
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "outbox_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return r.logError("governance_repo_append_outbox_insert_failed", create.Error,
			"outbox_id", row.OutboxID,
		)
	}
	if create.RowsAffected > 0 {
		return nil
	}

	var existing outboxModel
	if err := r.db.WithContext(ctx).
		Select("payload").
		Where("outbox_id = ?", row.OutboxID).
		First(&existing).Error; err != nil {
		return r.logError("governance_repo_append_outbox_load_existing_failed", err,
			"outbox_id", row.OutboxID,
		)
	}
	if !bytes.Equal(existing.Payload, row.Payload) {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ListPendingOutbox(ctx context.Context, limit int) ([]ports.OutboxMessage, error) {
	if limit <= 0 {
		limit = 100
	}
	var rows []outboxModel
	if err := r.db.WithContext(ctx).
		Where("status = ?", outboxStatusPending).
		Order("created_at ASC").
		Limit(limit).
		Find(&rows).Error; err != nil {
		return nil, r.logError("governance_repo_list_pending_outbox_failed", err, "limit", limit)
	}
	items := make([]ports.OutboxMessage, 0, len(rows))
	for _, row := range rows {
		items = append(items, ports.OutboxMessage{
			OutboxID:     row.OutboxID,
			EventType:    row.EventType,
			PartitionKey: row.PartitionKey,
			Payload:      append([]byte(nil), row.Payload...),
			CreatedAt:    row.CreatedAt.UTC(),
		})
	}
	return items, nil
}

func (r *Repository) MarkOutboxPublished(ctx context.Context, outboxID string, publishedAt time.Time) error {
	result := r.db.WithContext(ctx).
		Model(&outboxModel{}).
		Where("outbox_id = ?", strings.TrimSpace(outboxID)).
		Updates(map[string]any{
			"status":       outboxStatusPublished,
			"published_at": publishedAt.UTC(),
		})
	if result.Error != nil {
		return r.logError("governance_repo_mark_outbox_published_failed", result.Error,
			"outbox_id", strings.TrimSpace(outboxID),
		)
	}
	if result.RowsAffected == 0 {
		return domainerrors.ErrConflict
	}
	return nil
}

func (r *Repository) ReserveEvent(
	ctx context.Context,
	eventID string,
	payloadHash string,
	expiresAt time.Time,
) (bool, error) {
	row := eventDedupModel{
		EventID:     strings.TrimSpace(eventID),
		PayloadHash: strings.TrimSpace(payloadHash),
		ExpiresAt:   expiresAt.UTC(),
		ProcessedAt: time.Now().UTC(),
	}
	create := r.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "event_id"}},
		DoNothing: true,
	}).Create(&row)
	if create.Error != nil {
		return false, r.logError("governance_repo_reserve_event_failed", create.Error,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if create.RowsAffected > 0 {
		return false, nil
	}

	var existing eventDedupModel
	if err := r.db.WithContext(ctx).
		Select("payload_hash").
		Where("event_id = ?", row.EventID).
		First(&existing).Error; err != nil {
		return false, r.logError("governance_repo_reserve_event_load_existing_failed", err,
			"event_id", strings.TrimSpace(eventID),
		)
	}
	if existing.PayloadHash != row.PayloadHash {
		return false, domainerrors.ErrConflict
	}
	return true, nil
}

func (r *Repository) logError(event string, err error, attrs ...any) error {
	fields := make([]any, 0, len(attrs)+8)
	fields = append(fields,
		"event", event,
		"module", "governance/voting-engine",
		"layer", "adapter",
		"error", err.Error(),
	)
	fields = append(fields, attrs...)
	r.logger.Error("governance repository operation failed", fields...)
	return err
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}

var _ ports.Repository = (*Repository)(nil)
var _ ports.UnitOfWork = (*Repository)(nil)
