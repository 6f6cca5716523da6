package attendance

import (
	"context"
	"encoding/json"
	"fmt"

	"attendgw/internal/odoo"
)

const attendanceModel = "hr.attendance"

// readFields is the search_read field list. Geo columns are only named when
// the server is known (or assumed) to have them: servers without the geo
// columns reject any read that names them.
func readFields(withGeo bool) []string {
	fields := []string{"check_in", "check_out"}
	if withGeo {
		fields = append(fields, fieldInLatitude, fieldInLongitude)
	}
	return fields
}

// OdooSource adapts the Odoo client to the RecordSource interface, reading
// and writing hr.attendance rows for one authenticated session.
type OdooSource struct {
	Client  *odoo.Client
	Session odoo.Session
}

// NewOdooSource binds a client and session.
func NewOdooSource(client *odoo.Client, session odoo.Session) *OdooSource {
	return &OdooSource{Client: client, Session: session}
}

// attendanceRow mirrors the search_read wire shape. Odoo serializes null
// datetimes and floats as JSON false, so everything lands in RawMessage
// and is coerced afterwards.
type attendanceRow struct {
	ID          int64           `json:"id"`
	CheckIn     json.RawMessage `json:"check_in"`
	CheckOut    json.RawMessage `json:"check_out"`
	InLatitude  json.RawMessage `json:"in_latitude"`
	InLongitude json.RawMessage `json:"in_longitude"`
}

func (row attendanceRow) toRecord() (Record, error) {
	rec := Record{ID: row.ID}

	in, err := rawDatetime(row.CheckIn)
	if err != nil {
		return Record{}, fmt.Errorf("attendance record %d: bad check_in: %w", row.ID, err)
	}
	if in == nil {
		return Record{}, fmt.Errorf("attendance record %d: missing check_in", row.ID)
	}
	rec.CheckIn = *in

	if rec.CheckOut, err = rawDatetime(row.CheckOut); err != nil {
		return Record{}, fmt.Errorf("attendance record %d: bad check_out: %w", row.ID, err)
	}
	rec.InLatitude = rawFloat(row.InLatitude)
	rec.InLongitude = rawFloat(row.InLongitude)
	return rec, nil
}

// OpenAttendance returns the employee's record with no check-out datetime,
// or nil when there is none.
func (s *OdooSource) OpenAttendance(ctx context.Context, employeeID int, withGeo bool) (*Record, error) {
	domain := []any{
		[]any{"employee_id", "=", employeeID},
		[]any{"check_out", "=", false},
	}
	var rows []attendanceRow
	if err := s.Client.SearchRead(ctx, s.Session, attendanceModel, domain, readFields(withGeo), 1, "", &rows); err != nil {
		return nil, err
	}
	if len(rows) == 0 {
		return nil, nil
	}
	rec, err := rows[0].toRecord()
	if err != nil {
		return nil, err
	}
	return &rec, nil
}

// CreateAttendance submits a record-creation payload.
func (s *OdooSource) CreateAttendance(ctx context.Context, values map[string]any) (int64, error) {
	return s.Client.Create(ctx, s.Session, attendanceModel, values)
}

// WriteAttendance applies a partial payload to an existing record.
func (s *OdooSource) WriteAttendance(ctx context.Context, recordID int64, values map[string]any) error {
	return s.Client.Write(ctx, s.Session, attendanceModel, []int64{recordID}, values)
}

// Recent returns the employee's latest attendance records, newest first.
// History reads run outside the reconciler, so a geo rejection narrows the
// field list and retries once here instead.
func (s *OdooSource) Recent(ctx context.Context, employeeID, limit int, withGeo bool) ([]Record, error) {
	domain := []any{[]any{"employee_id", "=", employeeID}}
	var rows []attendanceRow
	err := s.Client.SearchRead(ctx, s.Session, attendanceModel, domain, readFields(withGeo), limit, "check_in desc", &rows)
	if err != nil && withGeo && isGeoRejection(err) {
		err = s.Client.SearchRead(ctx, s.Session, attendanceModel, domain, readFields(false), limit, "check_in desc", &rows)
	}
	if err != nil {
		return nil, err
	}
	records := make([]Record, 0, len(rows))
	for _, row := range rows {
		rec, err := row.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, rec)
	}
	return records, nil
}
