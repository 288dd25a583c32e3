package events

import "time"

// Event es la entidad central: un evento de calendario almacenado localmente.
// ID, CreatedAt, UpdatedAt y SyncedAt los asigna siempre el store, nunca el caller.
type Event struct {
	ID int64

	Title       string
	Start       time.Time
	End         time.Time
	Description string
	Location    string
	Attendees   []string

	// ExternalID es el identificador asignado por el proveedor remoto.
	// Cuando existe, es la clave de reconciliación: a lo sumo un evento
	// activo puede llevar un ExternalID dado.
	ExternalID string

	CreatedAt time.Time
	UpdatedAt time.Time

	// SyncedAt solo se setea cuando el evento pasó por la reconciliación
	// (distingue eventos creados localmente de los traídos del proveedor).
	SyncedAt *time.Time

	// Soft delete: los eventos borrados se excluyen de todas las queries
	// pero no se eliminan físicamente.
	Deleted bool
}

// Draft es lo que produce el parser (o la conversión de un evento remoto)
// antes de que el store asigne identidad y timestamps.
type Draft struct {
	Title       string
	Start       time.Time
	End         time.Time
	Description string
	Location    string
	Attendees   []string
	ExternalID  string
}
