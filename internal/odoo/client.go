package odoo

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync/atomic"
	"time"
)

// DatetimeFormat is the fixed-width datetime layout the Odoo server expects:
// zero-padded, second precision, no fractional seconds, no timezone suffix.
const DatetimeFormat = "2006-01-02 15:04:05"

// FormatDatetime renders t as a server datetime string. Values are always
// normalized to UTC before formatting.
func FormatDatetime(t time.Time) string {
	return t.UTC().Format(DatetimeFormat)
}

// ParseDatetime parses a server datetime string as UTC.
func ParseDatetime(s string) (time.Time, error) {
	return time.ParseInLocation(DatetimeFormat, s, time.UTC)
}

// Session identifies an authenticated Odoo user. Every execute_kw call
// carries the uid and API key, so a Session is all the state a caller
// needs to hold between requests.
type Session struct {
	UID        int    `json:"uid"`
	Login      string `json:"login"`
	APIKey     string `json:"api_key"`
	EmployeeID int    `json:"employee_id"`
}

// Authenticated reports whether the session can issue object calls.
func (s Session) Authenticated() bool {
	return s.UID > 0 && s.APIKey != ""
}

// RPCError is a structured error returned by the Odoo server. Message holds
// the envelope message ("Odoo Server Error"); Detail holds data.message,
// which carries the server-side exception text verbatim.
type RPCError struct {
	Code    int
	Message string
	Detail  string
}

func (e *RPCError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return e.Message
}

// Client calls the Odoo JSON-RPC endpoint.
type Client struct {
	BaseURL  string
	Database string
	HTTP     *http.Client

	reqID atomic.Int64
}

// New creates a client for the given server URL and database.
func New(baseURL, database string) *Client {
	return &Client{
		BaseURL:  baseURL,
		Database: database,
		HTTP: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

type rpcRequest struct {
	JSONRPC string    `json:"jsonrpc"`
	Method  string    `json:"method"`
	Params  rpcParams `json:"params"`
	ID      int64     `json:"id"`
}

type rpcParams struct {
	Service string `json:"service"`
	Method  string `json:"method"`
	Args    []any  `json:"args"`
}

type rpcResponse struct {
	Result json.RawMessage `json:"result"`
	Error  *struct {
		Code    int    `json:"code"`
		Message string `json:"message"`
		Data    struct {
			Name    string `json:"name"`
			Message string `json:"message"`
		} `json:"data"`
	} `json:"error"`
}

// call performs one JSON-RPC round trip and decodes the result into out.
func (c *Client) call(ctx context.Context, service, method string, args []any, out any) error {
	body, err := json.Marshal(rpcRequest{
		JSONRPC: "2.0",
		Method:  "call",
		Params:  rpcParams{Service: service, Method: method, Args: args},
		ID:      c.reqID.Add(1),
	})
	if err != nil {
		return fmt.Errorf("odoo: encode request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/jsonrpc", bytes.NewReader(body))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return fmt.Errorf("odoo: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		b, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("odoo: server error %s: %s", resp.Status, string(b))
	}

	var envelope rpcResponse
	if err := json.NewDecoder(resp.Body).Decode(&envelope); err != nil {
		return fmt.Errorf("odoo: decode response: %w", err)
	}
	if envelope.Error != nil {
		return &RPCError{
			Code:    envelope.Error.Code,
			Message: envelope.Error.Message,
			Detail:  envelope.Error.Data.Message,
		}
	}
	if out != nil {
		if err := json.Unmarshal(envelope.Result, out); err != nil {
			return fmt.Errorf("odoo: decode result: %w", err)
		}
	}
	return nil
}

// Authenticate verifies credentials via common.login and returns the uid.
// Odoo answers false (not an error) for bad credentials.
func (c *Client) Authenticate(ctx context.Context, login, password string) (int, error) {
	var result json.RawMessage
	if err := c.call(ctx, "common", "login", []any{c.Database, login, password}, &result); err != nil {
		return 0, err
	}
	var uid int
	if err := json.Unmarshal(result, &uid); err != nil {
		return 0, fmt.Errorf("odoo: invalid credentials for %s", login)
	}
	if uid <= 0 {
		return 0, fmt.Errorf("odoo: invalid credentials for %s", login)
	}
	return uid, nil
}

// ExecuteKw invokes a model method through object.execute_kw.
func (c *Client) ExecuteKw(ctx context.Context, s Session, model, method string, args []any, kwargs map[string]any, out any) error {
	if kwargs == nil {
		kwargs = map[string]any{}
	}
	callArgs := []any{c.Database, s.UID, s.APIKey, model, method, args, kwargs}
	return c.call(ctx, "object", "execute_kw", callArgs, out)
}

// SearchRead runs search_read on a model and decodes rows into out.
func (c *Client) SearchRead(ctx context.Context, s Session, model string, domain []any, fields []string, limit int, order string, out any) error {
	kwargs := map[string]any{"fields": fields}
	if limit > 0 {
		kwargs["limit"] = limit
	}
	if order != "" {
		kwargs["order"] = order
	}
	return c.ExecuteKw(ctx, s, model, "search_read", []any{domain}, kwargs, out)
}

// Create inserts a record and returns its id.
func (c *Client) Create(ctx context.Context, s Session, model string, values map[string]any) (int64, error) {
	var id int64
	if err := c.ExecuteKw(ctx, s, model, "create", []any{values}, nil, &id); err != nil {
		return 0, err
	}
	return id, nil
}

// Write updates the given records with a partial payload.
func (c *Client) Write(ctx context.Context, s Session, model string, ids []int64, values map[string]any) error {
	return c.ExecuteKw(ctx, s, model, "write", []any{ids, values}, nil, nil)
}

// EmployeeID resolves the hr.employee record linked to the session's user.
func (c *Client) EmployeeID(ctx context.Context, s Session) (int, error) {
	var rows []struct {
		ID int `json:"id"`
	}
	domain := []any{[]any{"user_id", "=", s.UID}}
	if err := c.SearchRead(ctx, s, "hr.employee", domain, []string{"id"}, 1, "", &rows); err != nil {
		return 0, err
	}
	if len(rows) == 0 {
		return 0, fmt.Errorf("odoo: no employee linked to user %d", s.UID)
	}
	return rows[0].ID, nil
}
