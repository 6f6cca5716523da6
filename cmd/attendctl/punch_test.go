package main

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
)

// fakeServer answers common.login and serves the given rows for every
// hr.attendance search_read.
func fakeServer(t *testing.T, attendanceRows any) *httptest.Server {
	t.Helper()
	return httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Params struct {
				Service string            `json:"service"`
				Method  string            `json:"method"`
				Args    []json.RawMessage `json:"args"`
			} `json:"params"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Errorf("decode request: %v", err)
		}

		var result any
		switch req.Params.Service {
		case "common":
			result = 2
		case "object":
			var model string
			if len(req.Params.Args) > 3 {
				_ = json.Unmarshal(req.Params.Args[3], &model)
			}
			if model != "hr.attendance" {
				t.Errorf("unexpected model %q", model)
			}
			result = attendanceRows
		default:
			t.Errorf("unexpected service %q", req.Params.Service)
		}
		_ = json.NewEncoder(w).Encode(map[string]any{
			"jsonrpc": "2.0",
			"id":      1,
			"result":  result,
		})
	}))
}

func writeTestConfig(t *testing.T, serverURL string) {
	t.Helper()
	flagConfigPath = filepath.Join(t.TempDir(), "config.json")
	t.Cleanup(func() { flagConfigPath = "" })
	cfg := Config{
		ServerURL:  serverURL,
		Database:   "prod",
		Login:      "alice",
		APIKey:     "key123",
		EmployeeID: 7,
	}
	if err := saveConfig(cfg); err != nil {
		t.Fatalf("saveConfig: %v", err)
	}
}

func TestRunInAlreadyCheckedIn(t *testing.T) {
	srv := fakeServer(t, []map[string]any{{
		"id":        42,
		"check_in":  "2026-03-14 08:00:00",
		"check_out": false,
	}})
	defer srv.Close()
	writeTestConfig(t, srv.URL)

	err := runIn(inCmd, nil)
	if err == nil {
		t.Fatal("expected an error when an open record exists")
	}
	if err.Error() != "already checked in" {
		t.Errorf("error = %q, want %q", err.Error(), "already checked in")
	}
}

func TestRunOutWithoutOpenRecord(t *testing.T) {
	srv := fakeServer(t, []map[string]any{})
	defer srv.Close()
	writeTestConfig(t, srv.URL)

	err := runOut(outCmd, nil)
	if err == nil {
		t.Fatal("expected an error when no record is open")
	}
	if err.Error() != "no open attendance to check out of" {
		t.Errorf("error = %q, want %q", err.Error(), "no open attendance to check out of")
	}
}
