package workers

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"log/slog"
	"strings"
	"time"

	application "agora/contexts/governance/voting-engine/application"
	"agora/contexts/governance/voting-engine/ports"
)

const (
	heightAdvancedTopic = "chain.height.advanced"
	defaultHeightCG     = "governance-engine-height-cg"
)

// HeightConsumer ingests externally published height ticks and advances the
// engine's stored height. The counter is monotonically non-decreasing, so
// stale or replayed ticks are skipped, never applied.
type HeightConsumer struct {
	Subscriber    ports.EventSubscriber
	Dedup         ports.EventDedupStore
	UoW           ports.UnitOfWork
	Clock         ports.Clock
	ConsumerGroup string
	DedupTTL      time.Duration
	Disabled      bool
	Logger        *slog.Logger
}

func (c HeightConsumer) Start(ctx context.Context) error {
	logger := application.ResolveLogger(c.Logger)
	if c.Disabled {
		logger.Info("height consumer disabled by feature flag",
			"event", "governance_height_consumer_disabled",
			"module", "governance/voting-engine",
			"layer", "worker",
		)
		return nil
	}
	group := strings.TrimSpace(c.ConsumerGroup)
	if group == "" {
		group = defaultHeightCG
	}
	if err := c.Subscriber.Subscribe(ctx, heightAdvancedTopic, group, c.handleHeightAdvanced); err != nil {
		logger.Error("height consumer subscribe failed",
			"event", "governance_height_consumer_subscribe_failed",
			"module", "governance/voting-engine",
			"layer", "worker",
			"topic", heightAdvancedTopic,
			"consumer_group", group,
			"error", err.Error(),
		)
		return err
	}
	logger.Info("height consumer subscription active",
		"event", "governance_height_consumer_started",
		"module", "governance/voting-engine",
		"layer", "worker",
		"consumer_group", group,
	)
	return nil
}

func (c HeightConsumer) handleHeightAdvanced(ctx context.Context, event ports.EventEnvelope) error {
	logger := application.ResolveLogger(c.Logger)
	if replayed, err := c.reserveEvent(ctx, event); err != nil {
		return err
	} else if replayed {
		logger.Debug("height tick replay skipped",
			"event", "governance_height_tick_replayed",
			"module", "governance/voting-engine",
			"layer", "worker",
			"event_id", event.EventID,
		)
		return nil
	}

	var payload struct {
		Height uint64 `json:"height"`
	}
	if err := json.Unmarshal(event.Data, &payload); err != nil {
		logger.Error("height tick decode failed",
			"event", "governance_height_tick_decode_failed",
			"module", "governance/voting-engine",
			"layer", "worker",
			"event_id", event.EventID,
			"error", err.Error(),
		)
		return err
	}

	return c.UoW.Atomic(ctx, func(repo ports.Repository) error {
		state, err := repo.GetState(ctx)
		if err != nil {
			return err
		}
		if payload.Height < state.CurrentHeight {
			logger.Warn("stale height tick skipped",
				"event", "governance_height_tick_stale",
				"module", "governance/voting-engine",
				"layer", "worker",
				"event_id", event.EventID,
				"tick_height", payload.Height,
				"current_height", state.CurrentHeight,
			)
			return nil
		}
		state.CurrentHeight = payload.Height
		state.UpdatedAt = c.now()
		if err := repo.SaveState(ctx, state); err != nil {
			return err
		}
		logger.Info("height advanced from bus",
			"event", "governance_height_advanced_from_bus",
			"module", "governance/voting-engine",
			"layer", "worker",
			"height", payload.Height,
		)
		return nil
	})
}

func (c HeightConsumer) reserveEvent(ctx context.Context, event ports.EventEnvelope) (bool, error) {
	if c.Dedup == nil {
		return false, nil
	}
	sum := sha256.Sum256(event.Data)
	ttl := c.DedupTTL
	if ttl <= 0 {
		ttl = 7 * 24 * time.Hour
	}
	return c.Dedup.ReserveEvent(ctx, event.EventID, hex.EncodeToString(sum[:]), c.now().Add(ttl))
}

func (c HeightConsumer) now() time.Time {
	if c.Clock != nil {
		return c.Clock.Now().UTC()
	}
	return time.Now().UTC()
}
