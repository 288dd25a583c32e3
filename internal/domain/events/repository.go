package events

import (
	"context"
	"errors"
	"time"
)

var ErrNotFound = errors.New("event not found")

// Repository es el contrato del store de eventos. Los adapters (sqlite,
// postgres, memory) son los únicos que asignan ID y timestamps.
type Repository interface {
	// Insert asigna un id nuevo y CreatedAt/UpdatedAt. SyncedAt solo se
	// setea cuando synced es true (evento traído del proveedor).
	Insert(ctx context.Context, d Draft, synced bool) (Event, error)

	// UpsertByExternalID: si existe un evento activo con el mismo
	// ExternalID, sobreescribe sus campos mutables (título, intervalo,
	// descripción, ubicación, asistentes) y refresca UpdatedAt/SyncedAt
	// conservando el id original; si no, inserta con SyncedAt seteado.
	// El check-then-act debe ser atómico por external id (tx, mutex o
	// single-writer según el adapter).
	// Devuelve el evento resultante y true si fue un insert.
	UpsertByExternalID(ctx context.Context, d Draft) (Event, bool, error)

	GetByID(ctx context.Context, id int64) (Event, error)

	// Query devuelve eventos activos ordenados por Start ascendente.
	// Con rango, solo los que intersectan (Start < To && End > From).
	Query(ctx context.Context, f Filter) ([]Event, error)

	// SoftDelete marca el evento como borrado. Idempotente: borrar un
	// evento ya borrado es un no-op exitoso.
	SoftDelete(ctx context.Context, id int64) error
}

type Filter struct {
	From  *time.Time
	To    *time.Time
	Limit int
}
