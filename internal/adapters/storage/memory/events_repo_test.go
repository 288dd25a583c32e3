package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"calendar-assistant/internal/domain/events"
)

func at(hour int) time.Time {
	return time.Date(2025, 6, 2, hour, 0, 0, 0, time.UTC)
}

func draft(title string, start, end time.Time) events.Draft {
	return events.Draft{Title: title, Start: start, End: end}
}

func TestInsert_AssignsIdentityAndTimestamps(t *testing.T) {
	repo := NewEventRepo()

	e, err := repo.Insert(context.Background(), draft("a", at(9), at(10)), false)
	if err != nil {
		t.Fatalf("insert: %v", err)
	}
	if e.ID != 1 || e.CreatedAt.IsZero() || e.UpdatedAt.IsZero() {
		t.Fatalf("identity/timestamps not assigned: %+v", e)
	}
	if e.SyncedAt != nil {
		t.Fatalf("local insert must not set SyncedAt")
	}

	synced, err := repo.Insert(context.Background(), draft("b", at(11), at(12)), true)
	if err != nil {
		t.Fatalf("insert synced: %v", err)
	}
	if synced.ID != 2 || synced.SyncedAt == nil {
		t.Fatalf("synced insert: %+v", synced)
	}
}

func TestIDsAreNeverReused(t *testing.T) {
	repo := NewEventRepo()

	first, _ := repo.Insert(context.Background(), draft("a", at(9), at(10)), false)
	if err := repo.SoftDelete(context.Background(), first.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	second, _ := repo.Insert(context.Background(), draft("b", at(11), at(12)), false)
	if second.ID == first.ID {
		t.Fatalf("ids must be monotonic, got %d twice", first.ID)
	}
}

func TestUpsert_InsertThenUpdate(t *testing.T) {
	repo := NewEventRepo()

	d := draft("remote", at(9), at(10))
	d.ExternalID = "ext-1"

	e1, inserted, err := repo.UpsertByExternalID(context.Background(), d)
	if err != nil {
		t.Fatalf("upsert insert: %v", err)
	}
	if !inserted || e1.SyncedAt == nil {
		t.Fatalf("first upsert should insert with SyncedAt, got inserted=%v", inserted)
	}

	d.Title = "remote v2"
	d.Start, d.End = at(14), at(15)
	e2, inserted, err := repo.UpsertByExternalID(context.Background(), d)
	if err != nil {
		t.Fatalf("upsert update: %v", err)
	}
	if inserted {
		t.Fatalf("second upsert should update, not insert")
	}
	if e2.ID != e1.ID {
		t.Fatalf("update must preserve id: want %d got %d", e1.ID, e2.ID)
	}
	if e2.Title != "remote v2" || !e2.Start.Equal(at(14)) {
		t.Fatalf("mutable fields not overwritten: %+v", e2)
	}
	if !e2.CreatedAt.Equal(e1.CreatedAt) {
		t.Fatalf("CreatedAt must be preserved on update")
	}
}

func TestUpsert_DeletedEventDoesNotMatch(t *testing.T) {
	repo := NewEventRepo()

	d := draft("remote", at(9), at(10))
	d.ExternalID = "ext-1"

	e1, _, err := repo.UpsertByExternalID(context.Background(), d)
	if err != nil {
		t.Fatalf("upsert: %v", err)
	}
	if err := repo.SoftDelete(context.Background(), e1.ID); err != nil {
		t.Fatalf("delete: %v", err)
	}

	// El re-sync del mismo external id recrea el evento como fila nueva.
	e2, inserted, err := repo.UpsertByExternalID(context.Background(), d)
	if err != nil {
		t.Fatalf("upsert after delete: %v", err)
	}
	if !inserted || e2.ID == e1.ID {
		t.Fatalf("expected fresh insert after soft delete, got inserted=%v id=%d", inserted, e2.ID)
	}
}

func TestQuery_RangeAndOrder(t *testing.T) {
	repo := NewEventRepo()

	repo.Insert(context.Background(), draft("late", at(18), at(19)), false)
	repo.Insert(context.Background(), draft("early", at(9), at(10)), false)
	repo.Insert(context.Background(), draft("mid", at(12), at(13)), false)

	all, err := repo.Query(context.Background(), events.Filter{})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(all) != 3 || all[0].Title != "early" || all[2].Title != "late" {
		t.Fatalf("expected Start asc order, got %+v", all)
	}

	from, to := at(11), at(14)
	ranged, err := repo.Query(context.Background(), events.Filter{From: &from, To: &to})
	if err != nil {
		t.Fatalf("ranged query: %v", err)
	}
	if len(ranged) != 1 || ranged[0].Title != "mid" {
		t.Fatalf("expected only mid, got %+v", ranged)
	}

	limited, err := repo.Query(context.Background(), events.Filter{Limit: 2})
	if err != nil {
		t.Fatalf("limited query: %v", err)
	}
	if len(limited) != 2 {
		t.Fatalf("expected 2 events with limit, got %d", len(limited))
	}
}

func TestQuery_BoundaryIsExclusive(t *testing.T) {
	repo := NewEventRepo()
	repo.Insert(context.Background(), draft("a", at(9), at(10)), false)

	// Rango que empieza exactamente donde termina el evento: fuera.
	from := at(10)
	got, err := repo.Query(context.Background(), events.Filter{From: &from})
	if err != nil {
		t.Fatalf("query: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("interval test must be open, got %+v", got)
	}
}

func TestSoftDelete_Idempotent(t *testing.T) {
	repo := NewEventRepo()
	e, _ := repo.Insert(context.Background(), draft("a", at(9), at(10)), false)

	if err := repo.SoftDelete(context.Background(), e.ID); err != nil {
		t.Fatalf("first delete: %v", err)
	}
	if err := repo.SoftDelete(context.Background(), e.ID); err != nil {
		t.Fatalf("second delete must be a no-op: %v", err)
	}

	if err := repo.SoftDelete(context.Background(), 99); !errors.Is(err, events.ErrNotFound) {
		t.Fatalf("expected ErrNotFound for unknown id, got %v", err)
	}

	// GetByID sigue devolviendo el evento borrado (lo necesita Cancel).
	got, err := repo.GetByID(context.Background(), e.ID)
	if err != nil {
		t.Fatalf("get deleted: %v", err)
	}
	if !got.Deleted {
		t.Fatalf("expected Deleted=true")
	}
}
