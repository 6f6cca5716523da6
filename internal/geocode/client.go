package geocode

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"
)

// Client resolves coordinates to display addresses against a Nominatim-style
// reverse geocoding endpoint.
type Client struct {
	BaseURL string
	HTTP    *http.Client
	Skip    bool
}

// New creates a client. Skip makes Reverse return a plain coordinate string
// without any network call, for dev setups and tests.
func New(baseURL string, skip bool) *Client {
	return &Client{
		BaseURL: baseURL,
		Skip:    skip,
		HTTP: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// Reverse returns the display address for a coordinate pair.
func (c *Client) Reverse(ctx context.Context, lat, lng float64) (string, error) {
	if c.Skip {
		return fmt.Sprintf("%.5f, %.5f", lat, lng), nil
	}

	q := url.Values{}
	q.Set("format", "jsonv2")
	q.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("lon", strconv.FormatFloat(lng, 'f', -1, 64))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.BaseURL+"/reverse?"+q.Encode(), nil)
	if err != nil {
		return "", err
	}
	req.Header.Set("User-Agent", "attendgw/1.0")

	resp, err := c.HTTP.Do(req)
	if err != nil {
		return "", fmt.Errorf("geocode: request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		body, _ := io.ReadAll(resp.Body)
		return "", fmt.Errorf("geocode: error %s: %s", resp.Status, string(body))
	}

	var out struct {
		DisplayName string `json:"display_name"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		return "", fmt.Errorf("geocode: decode response failed: %w", err)
	}
	if out.DisplayName == "" {
		return "", fmt.Errorf("geocode: no address for %.5f, %.5f", lat, lng)
	}
	return out.DisplayName, nil
}
