package odoo

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func TestFormatDatetime(t *testing.T) {
	// 9:26:53.5 in UTC+2 must come out as a zero-padded UTC string with
	// second precision and no zone suffix.
	zone := time.FixedZone("UTC+2", 2*3600)
	in := time.Date(2026, 3, 4, 9, 6, 3, 500000000, zone)
	if got := FormatDatetime(in); got != "2026-03-04 07:06:03" {
		t.Errorf("FormatDatetime = %q, want %q", got, "2026-03-04 07:06:03")
	}
}

func TestParseDatetime(t *testing.T) {
	got, err := ParseDatetime("2026-03-04 07:06:03")
	if err != nil {
		t.Fatalf("ParseDatetime: %v", err)
	}
	want := time.Date(2026, 3, 4, 7, 6, 3, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("ParseDatetime = %v, want %v", got, want)
	}
	if got.Location() != time.UTC {
		t.Error("parsed datetimes must be UTC")
	}
}

// rpcHandler decodes the request envelope and delegates to fn.
func rpcHandler(t *testing.T, fn func(params map[string]any) (any, map[string]any)) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		var req map[string]any
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("decode request: %v", err)
		}
		if req["jsonrpc"] != "2.0" || req["method"] != "call" {
			t.Errorf("bad envelope: %v", req)
		}
		result, rpcErr := fn(req["params"].(map[string]any))
		resp := map[string]any{"jsonrpc": "2.0", "id": req["id"]}
		if rpcErr != nil {
			resp["error"] = rpcErr
		} else {
			resp["result"] = result
		}
		_ = json.NewEncoder(w).Encode(resp)
	}
}

func TestAuthenticate(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, func(params map[string]any) (any, map[string]any) {
		if params["service"] != "common" || params["method"] != "login" {
			t.Errorf("unexpected call %v.%v", params["service"], params["method"])
		}
		args := params["args"].([]any)
		if args[0] != "testdb" || args[1] != "alice" {
			t.Errorf("unexpected args %v", args)
		}
		if args[2] == "secret" {
			return 2, nil
		}
		return false, nil // Odoo signals bad credentials with false
	}))
	defer srv.Close()

	client := New(srv.URL, "testdb")
	ctx := context.Background()

	uid, err := client.Authenticate(ctx, "alice", "secret")
	if err != nil {
		t.Fatalf("Authenticate: %v", err)
	}
	if uid != 2 {
		t.Errorf("uid = %d, want 2", uid)
	}

	if _, err := client.Authenticate(ctx, "alice", "wrong"); err == nil {
		t.Fatal("expected error for bad credentials")
	}
}

func TestCreateReturnsRecordID(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, func(params map[string]any) (any, map[string]any) {
		if params["service"] != "object" || params["method"] != "execute_kw" {
			t.Errorf("unexpected call %v.%v", params["service"], params["method"])
		}
		args := params["args"].([]any)
		// db, uid, key, model, method, args, kwargs
		if args[3] != "hr.attendance" || args[4] != "create" {
			t.Errorf("unexpected model call %v %v", args[3], args[4])
		}
		return 57, nil
	}))
	defer srv.Close()

	client := New(srv.URL, "testdb")
	sess := Session{UID: 2, APIKey: "k"}

	id, err := client.Create(context.Background(), sess, "hr.attendance", map[string]any{"employee_id": 7})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if id != 57 {
		t.Errorf("id = %d, want 57", id)
	}
}

func TestRPCErrorCarriesServerDetail(t *testing.T) {
	srv := httptest.NewServer(rpcHandler(t, func(params map[string]any) (any, map[string]any) {
		return nil, map[string]any{
			"code":    200,
			"message": "Odoo Server Error",
			"data": map[string]any{
				"name":    "builtins.ValueError",
				"message": "Invalid field 'in_latitude' on model 'hr.attendance'",
			},
		}
	}))
	defer srv.Close()

	client := New(srv.URL, "testdb")
	_, err := client.Create(context.Background(), Session{UID: 2, APIKey: "k"}, "hr.attendance", nil)
	if err == nil {
		t.Fatal("expected RPC error")
	}

	rpcErr, ok := err.(*RPCError)
	if !ok {
		t.Fatalf("error type = %T, want *RPCError", err)
	}
	if !strings.Contains(rpcErr.Error(), "Invalid field 'in_latitude'") {
		t.Errorf("Error() = %q, must surface data.message verbatim", rpcErr.Error())
	}
}

func TestTransportErrorIsNotRPCError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad gateway", http.StatusBadGateway)
	}))
	defer srv.Close()

	client := New(srv.URL, "testdb")
	_, err := client.Authenticate(context.Background(), "alice", "secret")
	if err == nil {
		t.Fatal("expected error")
	}
	if _, ok := err.(*RPCError); ok {
		t.Error("HTTP-level failures must not be typed as RPCError")
	}
}
