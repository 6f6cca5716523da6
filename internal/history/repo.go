package history

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Event is one check-in or check-out the gateway performed, mirrored locally
// so history stays available when the Odoo server is unreachable and so the
// photo worker has a row to stamp.
type Event struct {
	ID         string    `json:"id"`
	EmployeeID int       `json:"employee_id"`
	DeviceID   string    `json:"device_id"`
	Action     string    `json:"action"`
	RecordID   int64     `json:"record_id"`
	When       time.Time `json:"when"`
	Latitude   *float64  `json:"latitude,omitempty"`
	Longitude  *float64  `json:"longitude,omitempty"`
	Address    string    `json:"address,omitempty"`
	PhotoURL   string    `json:"photo_url,omitempty"`
	Status     string    `json:"status"`
	CreatedAt  time.Time `json:"created_at"`
}

// Event statuses for the photo pipeline.
const (
	StatusPending  = "pending"
	StatusComplete = "complete"
	StatusFailed   = "failed"
)

// Repository persists mirrored attendance events in Postgres.
type Repository struct {
	db *sql.DB
}

// NewRepository creates a repo.
func NewRepository(db *sql.DB) *Repository {
	return &Repository{db: db}
}

// InsertEvent writes a new mirrored event.
func (r *Repository) InsertEvent(ctx context.Context, evt Event) (Event, error) {
	if evt.ID == "" {
		evt.ID = uuid.NewString()
	}
	if evt.When.IsZero() {
		evt.When = time.Now().UTC()
	}
	if evt.Status == "" {
		evt.Status = StatusPending
	}
	row := r.db.QueryRowContext(ctx, `
		INSERT INTO attendance_events (id, employee_id, device_id, action, record_id, occurred_at, latitude, longitude, address, photo_url, status)
		VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
		RETURNING created_at
	`, evt.ID, evt.EmployeeID, evt.DeviceID, evt.Action, evt.RecordID, evt.When, evt.Latitude, evt.Longitude, evt.Address, evt.PhotoURL, evt.Status)
	if err := row.Scan(&evt.CreatedAt); err != nil {
		return Event{}, err
	}
	return evt, nil
}

// GetEvent returns a single event by id, or nil when absent.
func (r *Repository) GetEvent(ctx context.Context, id string) (*Event, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT id, employee_id, device_id, action, record_id, occurred_at, latitude, longitude, address, photo_url, status, created_at
		FROM attendance_events WHERE id = $1
	`, id)
	var evt Event
	if err := scanEvent(row, &evt); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	return &evt, nil
}

// SetPhotoURL stamps the uploaded photo location and marks the event complete.
func (r *Repository) SetPhotoURL(ctx context.Context, id, url string) error {
	_, err := r.db.ExecContext(ctx, `
		UPDATE attendance_events SET photo_url = $2, status = $3 WHERE id = $1
	`, id, url, StatusComplete)
	return err
}

// SetAddress stores the reverse-geocoded address for an event.
func (r *Repository) SetAddress(ctx context.Context, id, address string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE attendance_events SET address = $2 WHERE id = $1`, id, address)
	return err
}

// SetStatus updates the pipeline status.
func (r *Repository) SetStatus(ctx context.Context, id, status string) error {
	_, err := r.db.ExecContext(ctx, `UPDATE attendance_events SET status = $2 WHERE id = $1`, id, status)
	return err
}

// ListByEmployee returns an employee's mirrored events, newest first.
func (r *Repository) ListByEmployee(ctx context.Context, employeeID, limit, offset int) ([]Event, error) {
	if limit <= 0 {
		limit = 50
	}
	if offset < 0 {
		offset = 0
	}
	rows, err := r.db.QueryContext(ctx, `
		SELECT id, employee_id, device_id, action, record_id, occurred_at, latitude, longitude, address, photo_url, status, created_at
		FROM attendance_events
		WHERE employee_id = $1
		ORDER BY occurred_at DESC
		LIMIT $2 OFFSET $3
	`, employeeID, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []Event
	for rows.Next() {
		var evt Event
		if err := scanEvent(rows, &evt); err != nil {
			return nil, err
		}
		events = append(events, evt)
	}
	return events, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEvent(s scanner, evt *Event) error {
	return s.Scan(&evt.ID, &evt.EmployeeID, &evt.DeviceID, &evt.Action, &evt.RecordID,
		&evt.When, &evt.Latitude, &evt.Longitude, &evt.Address, &evt.PhotoURL, &evt.Status, &evt.CreatedAt)
}
