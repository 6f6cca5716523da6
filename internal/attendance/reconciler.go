package attendance

import (
	"context"
	"errors"
	"strings"
	"sync"
	"time"

	"attendgw/internal/odoo"
)

// Action tags returned on successful reconciliation.
const (
	ActionCheckIn  = "check_in"
	ActionCheckOut = "check_out"
)

// GeoCapability records whether the remote schema accepts latitude/longitude
// fields on attendance writes. It starts unknown (treated as supported) and
// is downgraded permanently the first time the server rejects a geo field.
type GeoCapability int

const (
	GeoUnknown GeoCapability = iota
	GeoSupported
	GeoUnsupported
)

// Geo field names on the attendance model. The downgrade logic matches the
// server's rejection text against these exact strings, so they must stay in
// sync with the write payloads below.
const (
	fieldInLatitude   = "in_latitude"
	fieldInLongitude  = "in_longitude"
	fieldOutLatitude  = "out_latitude"
	fieldOutLongitude = "out_longitude"
)

var geoFields = [...]string{fieldInLatitude, fieldInLongitude, fieldOutLatitude, fieldOutLongitude}

// FailureKind classifies a reconciliation failure for callers that map
// outcomes to transport-level responses.
type FailureKind string

const (
	FailureNone             FailureKind = ""
	FailureNotAuthenticated FailureKind = "not_authenticated"
	FailureTransport        FailureKind = "transport"
	FailureRemote           FailureKind = "remote"
)

// Record is one attendance row as seen by the reconciler. CheckOut is nil
// while the session is open.
type Record struct {
	ID          int64
	CheckIn     time.Time
	CheckOut    *time.Time
	InLatitude  *float64
	InLongitude *float64
}

// Status is the employee's current check-in state as derived from the
// remote source of truth.
type Status struct {
	CheckedIn   bool      `json:"is_checked_in"`
	RecordID    int64     `json:"record_id,omitempty"`
	CheckInTime time.Time `json:"check_in_time,omitempty"`
}

// Result is the outcome of a check-in or check-out attempt.
type Result struct {
	Success  bool        `json:"success"`
	Action   string      `json:"action,omitempty"`
	RecordID int64       `json:"record_id,omitempty"`
	Error    string      `json:"error,omitempty"`
	Kind     FailureKind `json:"-"`
}

// RecordSource is the remote attendance store. OpenAttendance returns nil
// when the employee has no open record. withGeo controls whether the query
// names geo fields: servers without geo columns reject reads naming them,
// not just writes.
type RecordSource interface {
	OpenAttendance(ctx context.Context, employeeID int, withGeo bool) (*Record, error)
	CreateAttendance(ctx context.Context, values map[string]any) (int64, error)
	WriteAttendance(ctx context.Context, recordID int64, values map[string]any) error
}

// Reconciler decides check-in/check-out state against the remote store and
// performs geolocation-tagged writes, narrowing the payload once when the
// server rejects geo fields as unknown schema.
//
// The geo capability is per-Reconciler state rather than process-global, so
// concurrent sessions hold independent values and tests can set it directly.
type Reconciler struct {
	src        RecordSource
	employeeID int
	now        func() time.Time

	mu  sync.Mutex
	geo GeoCapability
}

// NewReconciler creates a reconciler for one employee.
func NewReconciler(src RecordSource, employeeID int) *Reconciler {
	return &Reconciler{
		src:        src,
		employeeID: employeeID,
		now:        time.Now,
	}
}

// SetGeoCapability seeds the capability, e.g. when restoring a previously
// discovered downgrade from a session store.
func (r *Reconciler) SetGeoCapability(c GeoCapability) {
	r.mu.Lock()
	r.geo = c
	r.mu.Unlock()
}

// GeoCapability returns the current capability.
func (r *Reconciler) GeoCapability() GeoCapability {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geo
}

// SetClock overrides the timestamp source, for tests.
func (r *Reconciler) SetClock(now func() time.Time) {
	r.now = now
}

// Status queries the remote store for an open record. The query only names
// geo fields while the capability allows it, with the same one-shot
// downgrade-and-retry as the write path, so geo-less servers still report
// their open record. Remaining read failures are treated as "not checked
// in": the action endpoints re-query before writing, so failing open here
// only affects what the caller displays.
func (r *Reconciler) Status(ctx context.Context) Status {
	if !r.authenticated() {
		return Status{}
	}
	withGeo := r.geoAllowed()
	rec, err := r.src.OpenAttendance(ctx, r.employeeID, withGeo)
	if err != nil && withGeo && isGeoRejection(err) {
		r.downgradeGeo()
		rec, err = r.src.OpenAttendance(ctx, r.employeeID, false)
	}
	if err != nil || rec == nil {
		return Status{}
	}
	return Status{CheckedIn: true, RecordID: rec.ID, CheckInTime: rec.CheckIn}
}

// CheckIn creates a new attendance record stamped with the current server
// datetime and, while the capability allows it, the caller's coordinates.
func (r *Reconciler) CheckIn(ctx context.Context, lat, lng *float64) Result {
	if !r.authenticated() {
		return notAuthenticated()
	}

	withGeo := r.geoAllowed() && lat != nil && lng != nil
	values := map[string]any{
		"employee_id": r.employeeID,
		"check_in":    odoo.FormatDatetime(r.now()),
	}
	if withGeo {
		values[fieldInLatitude] = *lat
		values[fieldInLongitude] = *lng
	}

	id, err := r.src.CreateAttendance(ctx, values)
	if err != nil && withGeo && isGeoRejection(err) {
		r.downgradeGeo()
		// Retry with a fresh map: the source may have retained the first
		// payload, so deleting keys in place would mutate it.
		retry := make(map[string]any, len(values))
		for k, v := range values {
			if k == fieldInLatitude || k == fieldInLongitude {
				continue
			}
			retry[k] = v
		}
		id, err = r.src.CreateAttendance(ctx, retry)
	}
	if err != nil {
		return failure(err)
	}
	if withGeo {
		r.confirmGeo()
	}
	return Result{Success: true, Action: ActionCheckIn, RecordID: id}
}

// CheckOut stamps a check-out datetime onto the open record identified by
// recordID, with the same one-shot capability-downgrade-and-retry policy
// as CheckIn.
func (r *Reconciler) CheckOut(ctx context.Context, recordID int64, lat, lng *float64) Result {
	if !r.authenticated() {
		return notAuthenticated()
	}

	withGeo := r.geoAllowed() && lat != nil && lng != nil
	values := map[string]any{
		"check_out": odoo.FormatDatetime(r.now()),
	}
	if withGeo {
		values[fieldOutLatitude] = *lat
		values[fieldOutLongitude] = *lng
	}

	err := r.src.WriteAttendance(ctx, recordID, values)
	if err != nil && withGeo && isGeoRejection(err) {
		r.downgradeGeo()
		delete(values, fieldOutLatitude)
		delete(values, fieldOutLongitude)
		err = r.src.WriteAttendance(ctx, recordID, values)
	}
	if err != nil {
		return failure(err)
	}
	if withGeo {
		r.confirmGeo()
	}
	return Result{Success: true, Action: ActionCheckOut, RecordID: recordID}
}

func (r *Reconciler) authenticated() bool {
	return r.src != nil && r.employeeID > 0
}

func (r *Reconciler) geoAllowed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.geo != GeoUnsupported
}

// downgradeGeo is one-way: the capability never recovers for the lifetime
// of this reconciler.
func (r *Reconciler) downgradeGeo() {
	r.mu.Lock()
	r.geo = GeoUnsupported
	r.mu.Unlock()
}

// confirmGeo promotes unknown to supported after a successful geo write.
// A downgrade that happened in between stays in place.
func (r *Reconciler) confirmGeo() {
	r.mu.Lock()
	if r.geo == GeoUnknown {
		r.geo = GeoSupported
	}
	r.mu.Unlock()
}

// isGeoRejection matches the server's field-rejection text for the four geo
// field names. The substring is an exact contract with the backend's error
// format; it is brittle by nature, so it is matched verbatim and nothing
// more general is attempted.
func isGeoRejection(err error) bool {
	msg := err.Error()
	for _, f := range geoFields {
		if strings.Contains(msg, "Invalid field '"+f+"'") {
			return true
		}
	}
	return false
}

func notAuthenticated() Result {
	return Result{Error: "not authenticated", Kind: FailureNotAuthenticated}
}

func failure(err error) Result {
	kind := FailureTransport
	var rpcErr *odoo.RPCError
	if errors.As(err, &rpcErr) {
		kind = FailureRemote
	}
	return Result{Error: err.Error(), Kind: kind}
}
