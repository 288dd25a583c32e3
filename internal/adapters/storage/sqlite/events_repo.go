package sqlite

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

// timeLayout es RFC3339 con nanosegundos de ancho fijo, siempre en UTC.
// El ancho fijo importa: las queries de rango comparan las columnas como
// texto y el orden lexicográfico debe coincidir con el temporal.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

type eventRepo struct {
	db  *sql.DB
	now func() time.Time
}

func NewEventRepo(db *sql.DB) events.Repository {
	return &eventRepo{db: db, now: time.Now}
}

const eventColumns = `id, title, start_datetime, end_datetime, description, location, attendees, external_id, created_at, updated_at, synced_at, is_deleted`

func (r *eventRepo) Insert(ctx context.Context, d events.Draft, synced bool) (events.Event, error) {
	now := r.now().UTC()

	attendees, err := encodeAttendees(d.Attendees)
	if err != nil {
		return events.Event{}, err
	}

	var syncedAt sql.NullString
	if synced {
		syncedAt = sql.NullString{String: now.Format(timeLayout), Valid: true}
	}

	res, err := r.db.ExecContext(ctx, `
		INSERT INTO events (title, start_datetime, end_datetime, description, location, attendees, external_id, created_at, updated_at, synced_at, is_deleted)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
		d.Title,
		d.Start.UTC().Format(timeLayout),
		d.End.UTC().Format(timeLayout),
		d.Description,
		d.Location,
		attendees,
		nullableText(d.ExternalID),
		now.Format(timeLayout),
		now.Format(timeLayout),
		syncedAt,
	)
	if err != nil {
		return events.Event{}, fmt.Errorf("sqlite insert event: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return events.Event{}, fmt.Errorf("sqlite last insert id: %w", err)
	}
	return r.GetByID(ctx, id)
}

func (r *eventRepo) UpsertByExternalID(ctx context.Context, d events.Draft) (events.Event, bool, error) {
	if strings.TrimSpace(d.ExternalID) == "" {
		e, err := r.Insert(ctx, d, true)
		return e, true, err
	}

	// La tx hace atómico el check-then-act; con MaxOpenConns(1) además no
	// hay otro writer concurrente posible.
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return events.Event{}, false, fmt.Errorf("sqlite begin tx: %w", err)
	}
	defer tx.Rollback()

	var existingID int64
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM events WHERE external_id = ? AND is_deleted = 0`,
		d.ExternalID,
	).Scan(&existingID)

	now := r.now().UTC().Format(timeLayout)

	attendees, aerr := encodeAttendees(d.Attendees)
	if aerr != nil {
		return events.Event{}, false, aerr
	}

	inserted := false
	switch {
	case err == nil:
		_, err = tx.ExecContext(ctx, `
			UPDATE events
			SET title = ?, start_datetime = ?, end_datetime = ?, description = ?, location = ?, attendees = ?, updated_at = ?, synced_at = ?
			WHERE id = ?`,
			d.Title,
			d.Start.UTC().Format(timeLayout),
			d.End.UTC().Format(timeLayout),
			d.Description,
			d.Location,
			attendees,
			now,
			now,
			existingID,
		)
		if err != nil {
			return events.Event{}, false, fmt.Errorf("sqlite update event: %w", err)
		}

	case errors.Is(err, sql.ErrNoRows):
		inserted = true
		res, ierr := tx.ExecContext(ctx, `
			INSERT INTO events (title, start_datetime, end_datetime, description, location, attendees, external_id, created_at, updated_at, synced_at, is_deleted)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, 0)`,
			d.Title,
			d.Start.UTC().Format(timeLayout),
			d.End.UTC().Format(timeLayout),
			d.Description,
			d.Location,
			attendees,
			d.ExternalID,
			now,
			now,
			now,
		)
		if ierr != nil {
			return events.Event{}, false, fmt.Errorf("sqlite insert event: %w", ierr)
		}
		existingID, err = res.LastInsertId()
		if err != nil {
			return events.Event{}, false, fmt.Errorf("sqlite last insert id: %w", err)
		}

	default:
		return events.Event{}, false, fmt.Errorf("sqlite lookup by external id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return events.Event{}, false, fmt.Errorf("sqlite commit upsert: %w", err)
	}

	e, err := r.GetByID(ctx, existingID)
	return e, inserted, err
}

func (r *eventRepo) GetByID(ctx context.Context, id int64) (events.Event, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE id = ?`, id)

	e, err := scanEvent(row)
	if errors.Is(err, sql.ErrNoRows) {
		return events.Event{}, events.ErrNotFound
	}
	return e, err
}

func (r *eventRepo) Query(ctx context.Context, f events.Filter) ([]events.Event, error) {
	q := `SELECT ` + eventColumns + ` FROM events WHERE is_deleted = 0`
	args := []any{}

	// Intersección de intervalo abierto con el rango pedido.
	if f.To != nil {
		q += ` AND start_datetime < ?`
		args = append(args, f.To.UTC().Format(timeLayout))
	}
	if f.From != nil {
		q += ` AND end_datetime > ?`
		args = append(args, f.From.UTC().Format(timeLayout))
	}
	q += ` ORDER BY start_datetime ASC, id ASC`
	if f.Limit > 0 {
		q += ` LIMIT ?`
		args = append(args, f.Limit)
	}

	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite query events: %w", err)
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
		return nil, fmt.Errorf("sqlite iterate events: %w", err)
	}
	return out, nil
}

func (r *eventRepo) SoftDelete(ctx context.Context, id int64) error {
	var deleted int
	err := r.db.QueryRowContext(ctx,
		`SELECT is_deleted FROM events WHERE id = ?`, id).Scan(&deleted)
	if errors.Is(err, sql.ErrNoRows) {
		return events.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("sqlite lookup event: %w", err)
	}
	if deleted != 0 {
		// ya estaba borrado: no-op exitoso
		return nil
	}

	_, err = r.db.ExecContext(ctx,
		`UPDATE events SET is_deleted = 1, updated_at = ? WHERE id = ?`,
		r.now().UTC().Format(timeLayout), id)
	if err != nil {
		return fmt.Errorf("sqlite soft delete event: %w", err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanEvent(row rowScanner) (events.Event, error) {
	var (
		e          events.Event
		start, end string
		attendees  string
		externalID sql.NullString
		created    string
		updated    string
		synced     sql.NullString
		deleted    int
	)

	err := row.Scan(&e.ID, &e.Title, &start, &end, &e.Description, &e.Location,
		&attendees, &externalID, &created, &updated, &synced, &deleted)
	if err != nil {
		return events.Event{}, err
	}

	if e.Start, err = time.Parse(timeLayout, start); err != nil {
		return events.Event{}, fmt.Errorf("sqlite parse start_datetime: %w", err)
	}
	if e.End, err = time.Parse(timeLayout, end); err != nil {
		return events.Event{}, fmt.Errorf("sqlite parse end_datetime: %w", err)
	}
	if e.CreatedAt, err = time.Parse(timeLayout, created); err != nil {
		return events.Event{}, fmt.Errorf("sqlite parse created_at: %w", err)
	}
	if e.UpdatedAt, err = time.Parse(timeLayout, updated); err != nil {
		return events.Event{}, fmt.Errorf("sqlite parse updated_at: %w", err)
	}
	if synced.Valid {
		ts, err := time.Parse(timeLayout, synced.String)
		if err != nil {
			return events.Event{}, fmt.Errorf("sqlite parse synced_at: %w", err)
		}
		e.SyncedAt = &ts
	}

	if attendees != "" && attendees != "[]" {
		if err := json.Unmarshal([]byte(attendees), &e.Attendees); err != nil {
			return events.Event{}, fmt.Errorf("sqlite decode attendees: %w", err)
		}
	}
	e.ExternalID = externalID.String
	e.Deleted = deleted != 0
	return e, nil
}

func encodeAttendees(in []string) (string, error) {
	if len(in) == 0 {
		return "[]", nil
	}
	b, err := json.Marshal(in)
	if err != nil {
		return "", fmt.Errorf("sqlite encode attendees: %w", err)
	}
	return string(b), nil
}

func nullableText(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
