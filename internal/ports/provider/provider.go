package provider

import (
	"context"
	"time"

	"calendar-assistant/internal/domain/events"
)

// Provider es el contrato con el proveedor de calendario remoto (Google
// Calendar, CalDAV). El core no reintenta: una falla acá se propaga y el
// caller decide.
type Provider interface {
	Name() string

	// Create da de alta el evento en el proveedor y devuelve el external id
	// asignado.
	Create(ctx context.Context, d events.Draft) (string, error)

	// List devuelve los eventos del proveedor cuyo intervalo cae en el
	// rango, en la forma de wire (la conversión y los skips los decide la
	// reconciliación, no el adapter).
	List(ctx context.Context, from, to time.Time) ([]events.RemoteEvent, error)

	Update(ctx context.Context, externalID string, d events.Draft) error
	Delete(ctx context.Context, externalID string) error
}
