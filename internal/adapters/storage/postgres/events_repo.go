package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"calendar-assistant/internal/domain/events"
)

type eventRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventRepo(db *sql.DB) events.Repository {
	return &eventRepo{db: db, now: time.Now}
}

const eventColumns = `id, title, start_at, end_at, description, location, attendees, external_id, created_at, updated_at, synced_at, is_deleted`

func (r *eventRepo) Insert(ctx context.Context, d events.Draft, synced bool) (events.Event, error) {
	now := r.now().UTC()

	attendees, err := encodeAttendees(d.Attendees)
	if err != nil {
		return events.Event{}, err
	}

	var syncedAt *time.Time
	if synced {
		syncedAt = &now
	}

	var id int64
	err = r.db.QueryRowContext(ctx, `
		INSERT INTO events (title, start_at, end_at, description, location, attendees, external_id, created_at, updated_at, synced_at, is_deleted)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, FALSE)
		RETURNING id`,
		d.Title, d.Start.UTC(), d.End.UTC(), d.Description, d.Location,
		attendees, nullableText(d.ExternalID), now, now, syncedAt,
	).Scan(&id)
	if err != nil {
		return events.Event{}, fmt.Errorf("postgres insert event: %w", err)
	}
	return r.GetByID(ctx, id)
}

// UpsertByExternalID corre dentro de una tx: el SELECT ... FOR UPDATE deja la
// fila activa bloqueada hasta el commit, así dos reconciliaciones concurrentes
// no pueden duplicar un external id. El índice único parcial es la red de
// seguridad si ninguna fila existía todavía.
func (r *eventRepo) UpsertByExternalID(ctx context.Context, d events.Draft) (events.Event, bool, error) {
	if strings.TrimSpace(d.ExternalID) == "" {
		e, err := r.Insert(ctx, d, true)
		return e, true, err
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return events.Event{}, false, fmt.Errorf("postgres begin tx: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM events WHERE external_id = $1 AND NOT is_deleted FOR UPDATE`,
		d.ExternalID,
	).Scan(&existingID)

	now := r.now().UTC()

	attendees, aerr := encodeAttendees(d.Attendees)
	if aerr != nil {
		return events.Event{}, false, aerr
	}

	inserted := false
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET title = $1, start_at = $2, end_at = $3, description = $4, location = $5, attendees = $6, updated_at = $7, synced_at = $7
			WHERE id = $8`,
			d.Title, d.Start.UTC(), d.End.UTC(), d.Description, d.Location,
			attendees, now, existingID,
		)
		if err != nil {
			return events.Event{}, false, fmt.Errorf("postgres update event: %w", err)
		}

	case errors.Is(err, sql.ErrNoRows):
		inserted = true
		err = tx.QueryRowContext(ctx, `
			INSERT INTO events (title, start_at, end_at, description, location, attendees, external_id, created_at, updated_at, synced_at, is_deleted)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $8, $8, FALSE)
			RETURNING id`,
			d.Title, d.Start.UTC(), d.End.UTC(), d.Description, d.Location,
			attendees, d.ExternalID, now,
		).Scan(&existingID)
		if err != nil {
			return events.Event{}, false, fmt.Errorf("postgres insert event: %w", err)
		}

	default:
		return events.Event{}, false, fmt.Errorf("postgres lookup by external id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return events.Event{}, false, fmt.Errorf("postgres commit upsert: %w", err)
	}

	e, err := r.GetByID(ctx, existingID)
	return e, inserted, err
}

func (r *eventRepo) GetByID(ctx context.Context, id int64) (events.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = $1`, id)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return events.Event{}, events.ErrNotFound
	}
	return e, err
}

func (r *eventRepo) Query(ctx context.Context, f events.Filter) ([]events.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE NOT is_deleted`
	args := []any{}

	// Intersección de intervalo abierto con el rango pedido.
	if f.To != nil {
		args = append(args, f.To.UTC())
		q += fmt.Sprintf(` AND start_at < $%d`, len(args))
	}
	if f.From != nil {
		args = append(args, f.From.UTC())
		q += fmt.Sprintf(` AND end_at > $%d`, len(args))
	}
	q += ` ORDER BY start_at ASC, id ASC`
	if f.Limit > 0 {
		args = append(args, f.Limit)
		q += fmt.Sprintf(` LIMIT $%d`, len(args))
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("postgres query events: %w", err)
	}
	defer rows.Close()

	out := make([]events.Event, 0)
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("postgres iterate events: %w", err)
	}
	return out, nil
}

func (r *eventRepo) SoftDelete(ctx context.Context, id int64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE events SET is_deleted = TRUE, updated_at = $1 WHERE id = $2 AND NOT is_deleted`,
		r.now().UTC(), id)
	if err != nil {
		return fmt.Errorf("postgres soft delete event: %w", err)
	}

	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	// Cero filas: o no existe, o ya estaba borrado (no-op exitoso).
	var exists bool
	err = r.db.QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM events WHERE id = $1)`, id).Scan(&exists)
	if err != nil {
		return fmt.Errorf("postgres lookup event: %w", err)
	}
	if !exists {
		return events.ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (events.Event, error) {
	var (
		e          events.Event
		attendees  []byte
		externalID sql.NullString
		syncedAt   sql.NullTime
	)

	err := row.Scan(&e.ID, &e.Title, &e.Start, &e.End, &e.Description, &e.Location,
		&attendees, &externalID, &e.CreatedAt, &e.UpdatedAt, &syncedAt, &e.Deleted)
	if err != nil {
		return events.Event{}, err
	}

	if len(attendees) > 0 && string(attendees) != "[]" {
		if err := json.Unmarshal(attendees, &e.Attendees); err != nil {
			return events.Event{}, fmt.Errorf("postgres decode attendees: %w", err)
		}
	}
	e.ExternalID = externalID.String
	if syncedAt.Valid {
		ts := syncedAt.Time
		e.SyncedAt = &ts
	}
	return e, nil
}

func encodeAttendees(in []string) ([]byte, error) {
	if len(in) == 0 {
		return []byte("[]"), nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return nil, fmt.Errorf("postgres encode attendees: %w", err)
	}
	return b, nil
}

func nullableText(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
