package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"agora/contexts/governance/voting-engine/domain/entities"
	domainerrors "agora/contexts/governance/voting-engine/domain/errors"
	"agora/contexts/governance/voting-engine/ports"
)

func TestAtomicRollbackRestoresSnapshot(t *testing.T) {
	store := NewStore("owner")
	ctx := context.Background()

	boom := errors.New("boom")
	err := store.Atomic(ctx, func(repo ports.Repository) error {
		if err := repo.SaveRole(ctx, entities.RoleEntry{Account: "alice", Admin: true}); err != nil {
			return err
		}
		if _, err := repo.NextSequence(ctx, "round"); err != nil {
			return err
		}
		if err := repo.SaveRound(ctx, entities.Round{ID: 1, Name: "orphan"}); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected closure error, got %v", err)
	}

	if _, found, _ := store.GetRole(ctx, "alice"); found {
		t.Fatal("role write must be rolled back")
	}
	if _, err := store.GetRound(ctx, 1); !errors.Is(err, domainerrors.ErrRoundNotFound) {
		t.Fatalf("round write must be rolled back, got %v", err)
	}
	seq, err := store.NextSequence(ctx, "round")
	if err != nil {
		t.Fatalf("next sequence: %v", err)
	}
	if seq != 1 {
		t.Fatalf("sequence increment must be rolled back, got %d", seq)
	}
}

func TestAtomicCommitKeepsWrites(t *testing.T) {
	store := NewStore("owner")
	ctx := context.Background()

	err := store.Atomic(ctx, func(repo ports.Repository) error {
		return repo.SaveRound(ctx, entities.Round{ID: 7, Name: "kept"})
	})
	if err != nil {
		t.Fatalf("atomic: %v", err)
	}
	round, err := store.GetRound(ctx, 7)
	if err != nil || round.Name != "kept" {
		t.Fatalf("expected committed round, got %+v err=%v", round, err)
	}
}

func TestSequencesAreIndependent(t *testing.T) {
	store := NewStore("owner")
	ctx := context.Background()

	for want := uint64(1); want <= 3; want++ {
		got, err := store.NextSequence(ctx, "round")
		if err != nil || got != want {
			t.Fatalf("round sequence: got %d err=%v, want %d", got, err, want)
		}
	}
	got, err := store.NextSequence(ctx, "proposal")
	if err != nil || got != 1 {
		t.Fatalf("proposal sequence must start at 1, got %d err=%v", got, err)
	}
}

func TestVoteRecordsAreInsertOnly(t *testing.T) {
	store := NewStore("owner")
	ctx := context.Background()

	record := entities.VoteRecord{Voter: "alice", RoundID: 1, HasVoted: true, CandidateID: 2}
	if err := store.SaveVoteRecord(ctx, record); err != nil {
		t.Fatalf("first save: %v", err)
	}
	record.CandidateID = 3
	if err := store.SaveVoteRecord(ctx, record); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict on rewrite, got %v", err)
	}
	stored, found, err := store.GetVoteRecord(ctx, "alice", 1)
	if err != nil || !found {
		t.Fatalf("load record: found=%v err=%v", found, err)
	}
	if stored.CandidateID != 2 {
		t.Fatalf("original record must survive, got %+v", stored)
	}
}

func TestEventLogIDsAreDense(t *testing.T) {
	store := NewStore("owner")
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		id, err := store.AppendEvent(ctx, entities.EventLogEntry{Type: "governance.test"})
		if err != nil {
			t.Fatalf("append: %v", err)
		}
		if id != uint64(i)+1 {
			t.Fatalf("expected id %d, got %d", i+1, id)
		}
	}

	page, err := store.ListEvents(ctx, 2, 2)
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	if len(page) != 2 || page[0].ID != 3 || page[1].ID != 4 {
		t.Fatalf("unexpected page %+v", page)
	}
}

func TestOutboxIdempotentAppend(t *testing.T) {
	store := NewStore("owner")
	ctx := context.Background()

	envelope := ports.EventEnvelope{
		EventID:    "evt-1",
		EventType:  "governance.round.created",
		OccurredAt: time.Now().UTC(),
	}
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("append: %v", err)
	}
	// Same id and payload is a no-op.
	if err := store.AppendOutbox(ctx, envelope); err != nil {
		t.Fatalf("idempotent append: %v", err)
	}
	envelope.EventType = "governance.round.finalized"
	if err := store.AppendOutbox(ctx, envelope); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict for divergent payload, got %v", err)
	}

	pending, err := store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 1 {
		t.Fatalf("expected one pending row, got %d err=%v", len(pending), err)
	}
	if err := store.MarkOutboxPublished(ctx, "evt-1", time.Now().UTC()); err != nil {
		t.Fatalf("mark published: %v", err)
	}
	pending, err = store.ListPendingOutbox(ctx, 10)
	if err != nil || len(pending) != 0 {
		t.Fatalf("expected empty pending set, got %d err=%v", len(pending), err)
	}
}

func TestReserveEventDedup(t *testing.T) {
	store := NewStore("owner")
	ctx := context.Background()
	expires := time.Now().UTC().Add(time.Hour)

	replayed, err := store.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	if err != nil || replayed {
		t.Fatalf("first reservation: replayed=%v err=%v", replayed, err)
	}
	replayed, err = store.ReserveEvent(ctx, "evt-1", "hash-a", expires)
	if err != nil || !replayed {
		t.Fatalf("second reservation must report replay: replayed=%v err=%v", replayed, err)
	}
	if _, err = store.ReserveEvent(ctx, "evt-1", "hash-b", expires); !errors.Is(err, domainerrors.ErrConflict) {
		t.Fatalf("expected ErrConflict for diverging payload hash, got %v", err)
	}

	// An expired reservation is replaced rather than replayed.
	if _, err := store.ReserveEvent(ctx, "evt-2", "hash-a", time.Now().UTC().Add(-time.Minute)); err != nil {
		t.Fatalf("seed expired reservation: %v", err)
	}
	replayed, err = store.ReserveEvent(ctx, "evt-2", "hash-c", expires)
	if err != nil || replayed {
		t.Fatalf("expired reservation must be reusable: replayed=%v err=%v", replayed, err)
	}
}

func TestEnsureStateIsIdempotent(t *testing.T) {
	store := NewStore("owner")
	ctx := context.Background()

	state, err := store.EnsureState(ctx, "someone-else")
	if err != nil {
		t.Fatalf("ensure: %v", err)
	}
	if state.Owner != "owner" {
		t.Fatalf("ensure must not overwrite the seeded owner, got %q", state.Owner)
	}
}
