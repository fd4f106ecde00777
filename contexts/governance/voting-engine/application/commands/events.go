package commands

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"agora/contexts/governance/voting-engine/domain/entities"
	"agora/contexts/governance/voting-engine/ports"

	"github.com/google/uuid"
)

const sourceService = "governance-engine"

// appendAudit writes one append-only event-log entry and one outbox row in
// the same transaction as the mutation that produced them. The log is
// write-only; nothing in the engine reads it back.
func appendAudit(
	ctx context.Context,
	repo ports.Repository,
	eventType string,
	actor string,
	roundID *uint64,
	height uint64,
	occurredAt time.Time,
	details map[string]any,
) error {
	if details == nil {
		details = map[string]any{}
	}
	details["actor"] = actor
	details["height"] = height
	if roundID != nil {
		details["round_id"] = *roundID
	}
	payload, err := json.Marshal(details)
	if err != nil {
		return err
	}

	entry := entities.EventLogEntry{
		Type:      eventType,
		Actor:     actor,
		RoundID:   roundID,
		Height:    height,
		Details:   payload,
		CreatedAt: occurredAt.UTC(),
	}
	if _, err := repo.AppendEvent(ctx, entry); err != nil {
		return err
	}

	partitionKey := actor
	if roundID != nil {
		partitionKey = strconv.FormatUint(*roundID, 10)
	}
	return repo.AppendOutbox(ctx, ports.EventEnvelope{
		EventID:       uuid.NewString(),
		EventType:     eventType,
		OccurredAt:    occurredAt.UTC(),
		SourceService: sourceService,
		SchemaVersion: 1,
		PartitionKey:  partitionKey,
		Data:          payload,
	})
}
