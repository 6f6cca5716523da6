package attendance

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"attendgw/internal/odoo"
)

// fakeOdoo answers every JSON-RPC call with the configured result.
func fakeOdoo(t *testing.T, result any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/jsonrpc" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  result,
		})
	}))
}

func testSource(srv *httptest.Server) *OdooSource {
	client := odoo.New(srv.URL, "testdb")
	return NewOdooSource(client, odoo.Session{UID: 2, Login: "worker", APIKey: "k", EmployeeID: 7})
}

func TestOpenAttendanceParsesOpenRow(t *testing.T) {
	srv := fakeOdoo(t, []map[string]any{{
		"id":           42,
		"check_in":     "2026-03-14 08:00:00",
		"check_out":    false,
		"in_latitude":  1.25,
		"in_longitude": false,
	}})
	defer srv.Close()

	rec, err := testSource(srv).OpenAttendance(context.Background(), 7, true)
	if err != nil {
		t.Fatalf("OpenAttendance: %v", err)
	}
	if rec == nil {
		t.Fatal("expected a record")
	}
	if rec.ID != 42 {
		t.Errorf("ID = %d, want 42", rec.ID)
	}
	want := time.Date(2026, 3, 14, 8, 0, 0, 0, time.UTC)
	if !rec.CheckIn.Equal(want) {
		t.Errorf("CheckIn = %v, want %v", rec.CheckIn, want)
	}
	if rec.CheckOut != nil {
		t.Error("CheckOut must be nil for an open record")
	}
	if rec.InLatitude == nil || *rec.InLatitude != 1.25 {
		t.Errorf("InLatitude = %v, want 1.25", rec.InLatitude)
	}
	if rec.InLongitude != nil {
		t.Error("false longitude must decode as nil")
	}
}

func TestOpenAttendanceNoRows(t *testing.T) {
	srv := fakeOdoo(t, []map[string]any{})
	defer srv.Close()

	rec, err := testSource(srv).OpenAttendance(context.Background(), 7, true)
	if err != nil {
		t.Fatalf("OpenAttendance: %v", err)
	}
	if rec != nil {
		t.Fatal("expected nil record when no open attendance exists")
	}
}

func TestOpenAttendanceWithoutGeoOmitsGeoFields(t *testing.T) {
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result": []map[string]any{{
				"id":        42,
				"check_in":  "2026-03-14 08:00:00",
				"check_out": false,
			}},
		})
	}))
	defer srv.Close()

	rec, err := testSource(srv).OpenAttendance(context.Background(), 7, false)
	if err != nil {
		t.Fatalf("OpenAttendance: %v", err)
	}
	if rec == nil || rec.ID != 42 {
		t.Fatalf("record = %+v, want id 42", rec)
	}
	if len(bodies) != 1 {
		t.Fatalf("requests = %d, want 1", len(bodies))
	}
	if strings.Contains(bodies[0], "in_latitude") || strings.Contains(bodies[0], "in_longitude") {
		t.Error("geo-less query must not name geo fields")
	}
}

func TestRecentParsesClosedRows(t *testing.T) {
	srv := fakeOdoo(t, []map[string]any{
		{"id": 2, "check_in": "2026-03-14 08:00:00", "check_out": "2026-03-14 16:00:00"},
		{"id": 1, "check_in": "2026-03-13 08:30:00", "check_out": "2026-03-13 17:00:00"},
	})
	defer srv.Close()

	records, err := testSource(srv).Recent(context.Background(), 7, 10, true)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("len = %d, want 2", len(records))
	}
	if records[0].CheckOut == nil {
		t.Fatal("closed record must carry a check-out time")
	}
	if got := records[0].Worked(time.Now()); got != 8*time.Hour {
		t.Errorf("Worked = %v, want 8h", got)
	}
}

func TestRecentGeoRejectionRetriesWithoutGeo(t *testing.T) {
	// First read names geo fields and is rejected; the narrowed retry is served.
	var bodies []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(body))
		if strings.Contains(string(body), "in_latitude") {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"jsonrpc": "2.0",
				"id":      1,
				"error": map[string]any{
					"code":    200,
					"message": "Odoo Server Error",
					"data": map[string]any{
						"message": "Invalid field 'in_latitude' on model 'hr.attendance'",
					},
				},
			})
			return
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result": []map[string]any{
				{"id": 2, "check_in": "2026-03-14 08:00:00", "check_out": "2026-03-14 16:00:00"},
			},
		})
	}))
	defer srv.Close()

	records, err := testSource(srv).Recent(context.Background(), 7, 10, true)
	if err != nil {
		t.Fatalf("Recent: %v", err)
	}
	if len(records) != 1 || records[0].ID != 2 {
		t.Fatalf("records = %+v, want the single closed row", records)
	}
	if len(bodies) != 2 {
		t.Fatalf("requests = %d, want 2", len(bodies))
	}
	if strings.Contains(bodies[1], "in_latitude") {
		t.Error("retry must not name geo fields")
	}
}
