package workers_test

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"agora/contexts/governance/voting-engine/adapters/memory"
	"agora/contexts/governance/voting-engine/application/workers"
	"agora/contexts/governance/voting-engine/ports"
)

type capturingPublisher struct {
	published []string
	failFirst bool
}

func (p *capturingPublisher) Publish(_ context.Context, topic string, _ ports.EventEnvelope) error {
	if p.failFirst {
		p.failFirst = false
		return errors.New("broker unavailable")
	}
	p.published = append(p.published, topic)
	return nil
}

type capturedSubscription struct {
	topic   string
	group   string
	handler func(context.Context, ports.EventEnvelope) error
}

type capturingSubscriber struct {
	subs []capturedSubscription
}

func (s *capturingSubscriber) Subscribe(_ context.Context, topic string, group string, handler func(context.Context, ports.EventEnvelope) error) error {
	s.subs = append(s.subs, capturedSubscription{topic: topic, group: group, handler: handler})
	return nil
}

func appendOutbox(t *testing.T, store *memory.Store, eventID string, eventType string) {
	t.Helper()
	err := store.AppendOutbox(context.Background(), ports.EventEnvelope{
		EventID:       eventID,
		EventType:     eventType,
		OccurredAt:    time.Now().UTC(),
		SourceService: "governance-engine",
		SchemaVersion: 1,
		Data:          json.RawMessage(`{}`),
	})
	if err != nil {
		t.Fatalf("append outbox %s: %v", eventID, err)
	}
}

func TestOutboxRelayPublishesAndMarks(t *testing.T) {
	store := memory.NewStore("owner")
	publisher := &capturingPublisher{}
	relay := workers.OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
		Clock:     store,
		BatchSize: 10,
	}
	ctx := context.Background()

	appendOutbox(t, store, "evt-1", "governance.round.created")
	appendOutbox(t, store, "evt-2", "governance.vote.cast")

	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("run once: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("expected 2 publishes, got %d", len(publisher.published))
	}
	// The event type is the topic.
	if publisher.published[0] != "governance.round.created" {
		t.Fatalf("unexpected topic %s", publisher.published[0])
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected empty outbox after relay, got %d err=%v", len(pending), err)
	}

	// A second cycle with nothing pending publishes nothing.
	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("idle run: %v", err)
	}
	if len(publisher.published) != 2 {
		t.Fatalf("idle cycle must not republish, got %d", len(publisher.published))
	}
}

func TestOutboxRelayRetriesAfterPublishFailure(t *testing.T) {
	store := memory.NewStore("owner")
	publisher := &capturingPublisher{failFirst: true}
	relay := workers.OutboxRelay{
		Outbox:    store,
		Publisher: publisher,
		Clock:     store,
	}
	ctx := context.Background()

	appendOutbox(t, store, "evt-1", "governance.round.created")

	if err := relay.RunOnce(ctx); err == nil {
		t.Fatal("expected publish failure to surface")
	}
	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("failed row must stay pending, got %d err=%v", len(pending), err)
	}

	if err := relay.RunOnce(ctx); err != nil {
		t.Fatalf("retry cycle: %v", err)
	}
	pending, err = store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("retry must drain the outbox, got %d err=%v", len(pending), err)
	}
}

func heightTick(eventID string, height uint64) ports.EventEnvelope {
	data, _ := json.Marshal(map[string]uint64{"height": height})
	return ports.EventEnvelope{
		EventID:    eventID,
		EventType:  "chain.height.advanced",
		OccurredAt: time.Now().UTC(),
		Data:       data,
	}
}

func TestHeightConsumerAdvancesAndDedups(t *testing.T) {
	store := memory.NewStore("owner")
	subscriber := &capturingSubscriber{}
	consumer := workers.HeightConsumer{
		Subscriber: subscriber,
		Dedup:      store,
		UoW:        store,
		Clock:      store,
		DedupTTL:   time.Hour,
	}
	ctx := context.Background()

	if err := consumer.Start(ctx); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(subscriber.subs) != 1 || subscriber.subs[0].topic != "chain.height.advanced" {
		t.Fatalf("unexpected subscriptions %+v", subscriber.subs)
	}
	handler := subscriber.subs[0].handler

	if err := handler(ctx, heightTick("tick-1", 42)); err != nil {
		t.Fatalf("first tick: %v", err)
	}
	state, err := store.GetState(ctx)
	if err != nil || state.CurrentHeight != 42 {
		t.Fatalf("expected height 42, got %d err=%v", state.CurrentHeight, err)
	}

	// Replaying the same event id is acknowledged without reapplying.
	if err := handler(ctx, heightTick("tick-1", 42)); err != nil {
		t.Fatalf("replayed tick: %v", err)
	}

	// A stale tick is acknowledged but never regresses the counter.
	if err := handler(ctx, heightTick("tick-2", 10)); err != nil {
		t.Fatalf("stale tick: %v", err)
	}
	state, err = store.GetState(ctx)
	if err != nil || state.CurrentHeight != 42 {
		t.Fatalf("stale tick must not regress height, got %d err=%v", state.CurrentHeight, err)
	}

	if err := handler(ctx, heightTick("tick-3", 43)); err != nil {
		t.Fatalf("next tick: %v", err)
	}
	state, err = store.GetState(ctx)
	if err != nil || state.CurrentHeight != 43 {
		t.Fatalf("expected height 43, got %d err=%v", state.CurrentHeight, err)
	}
}

func TestHeightConsumerDisabled(t *testing.T) {
	subscriber := &capturingSubscriber{}
	consumer := workers.HeightConsumer{
		Subscriber: subscriber,
		Disabled:   true,
	}
	if err := consumer.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if len(subscriber.subs) != 0 {
		t.Fatalf("disabled consumer must not subscribe, got %d", len(subscriber.subs))
	}
}
