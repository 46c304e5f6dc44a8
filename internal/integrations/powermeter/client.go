package powermeter

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hearth-home/hearth-core/internal/client"
)

// requestTimeout bounds one status request independently of the
// coordinator's fetch timeout.
const requestTimeout = 8 * time.Second

// Reading is one full meter snapshot. Pointer fields are optional in the
// firmware payload; single-phase meters omit the per-phase section.
type Reading struct {
	PowerW    float64  `json:"power_w"`
	EnergyKWh float64  `json:"energy_kwh"`
	VoltageV  *float64 `json:"voltage_v"`
	Phases    *Phases  `json:"phases"`
}

// Phases holds per-phase power for three-phase installations.
type Phases struct {
	L1W float64 `json:"l1_w"`
	L2W float64 `json:"l2_w"`
	L3W float64 `json:"l3_w"`
}

// Client reads the meter's JSON status endpoint.
type Client struct {
	baseURL string
	apiKey  string
	http    *http.Client
}

// NewClient creates a client for one meter.
func NewClient(host, apiKey string) *Client {
	return &Client{
		baseURL: "http://" + host,
		apiKey:  apiKey,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// Fetch retrieves the current reading. Network failures are transient,
// HTTP 401/403 are auth errors, and undecodable bodies are malformed.
func (c *Client) Fetch(ctx context.Context) (Reading, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/v1/status", nil)
	if err != nil {
		return Reading{}, fmt.Errorf("building status request: %w", err)
	}
	if c.apiKey != "" {
		req.Header.Set("X-API-Key", c.apiKey)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Reading{}, client.Transient(fmt.Errorf("meter unreachable: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Reading{}, client.Auth(fmt.Errorf("meter rejected API key: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return Reading{}, client.Transientf("unexpected meter status %d", resp.StatusCode)
	}

	var r Reading
	if err := json.NewDecoder(resp.Body).Decode(&r); err != nil {
		return Reading{}, client.Malformed(fmt.Errorf("decoding meter status: %w", err))
	}
	return r, nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
