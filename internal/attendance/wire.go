package attendance

import (
	"encoding/json"
	"time"

	"attendgw/internal/odoo"
)

// rawDatetime decodes an Odoo datetime value that is either a formatted
// string or false (null). Returns nil for null.
func rawDatetime(raw json.RawMessage) (*time.Time, error) {
	if nullish(raw) {
		return nil, nil
	}
	var s string
	if err := json.Unmarshal(raw, &s); err != nil {
		return nil, err
	}
	t, err := odoo.ParseDatetime(s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

// rawFloat decodes a float that may be false (null). Malformed values are
// treated as absent; coordinates are display-only on the read path.
func rawFloat(raw json.RawMessage) *float64 {
	if nullish(raw) {
		return nil
	}
	var f float64
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil
	}
	return &f
}

func nullish(raw json.RawMessage) bool {
	s := string(raw)
	return len(raw) == 0 || s == "false" || s == "null"
}
