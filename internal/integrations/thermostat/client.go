package thermostat

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/hearth-home/hearth-core/internal/client"
)

const requestTimeout = 8 * time.Second

// Target temperature bounds accepted by the firmware.
const (
	MinTargetC = 5.0
	MaxTargetC = 35.0
)

// Modes accepted by the firmware, in display order.
var Modes = []string{"off", "heat", "cool", "auto"}

// Info is the thermostat's full state as returned by /query/info.
type Info struct {
	CurrentTempC float64  `json:"spacetemp"`
	TargetTempC  float64  `json:"heattemp"`
	Mode         string   `json:"mode"`
	Heating      bool     `json:"heating"`
	HumidityPct  *float64 `json:"hum"`
}

// controlResult is the firmware's answer to a /control command. Older
// revisions return success:false with an empty reason.
type controlResult struct {
	Success bool   `json:"success"`
	Reason  string `json:"reason"`
}

// Client talks to one thermostat.
type Client struct {
	baseURL string
	pin     string
	http    *http.Client
}

// NewClient creates a client for one thermostat.
func NewClient(host, pin string) *Client {
	return &Client{
		baseURL: "http://" + host,
		pin:     pin,
		http:    &http.Client{Timeout: requestTimeout},
	}
}

// Fetch retrieves the thermostat's current state.
func (c *Client) Fetch(ctx context.Context) (Info, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/query/info", nil)
	if err != nil {
		return Info{}, fmt.Errorf("building info request: %w", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return Info{}, client.Transient(fmt.Errorf("thermostat unreachable: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return Info{}, client.Auth(fmt.Errorf("thermostat rejected credentials: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return Info{}, client.Transientf("unexpected thermostat status %d", resp.StatusCode)
	}

	var info Info
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return Info{}, client.Malformed(fmt.Errorf("decoding thermostat info: %w", err))
	}
	return info, nil
}

// SetTarget sends a new target temperature.
func (c *Client) SetTarget(ctx context.Context, tempC float64) error {
	return c.control(ctx, map[string]any{"heattemp": tempC})
}

// SetMode sends a new operating mode.
func (c *Client) SetMode(ctx context.Context, mode string) error {
	return c.control(ctx, map[string]any{"mode": mode})
}

// control posts a command and normalizes the firmware's boolean-result
// convention: success:false becomes a rejection error, with the firmware's
// reason passed through verbatim when it provides one.
func (c *Client) control(ctx context.Context, cmd map[string]any) error {
	if c.pin != "" {
		cmd["pin"] = c.pin
	}

	body, err := json.Marshal(cmd)
	if err != nil {
		return fmt.Errorf("encoding control command: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/control", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building control request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return client.Transient(fmt.Errorf("thermostat unreachable: %w", err))
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return client.Auth(fmt.Errorf("thermostat rejected PIN: status %d", resp.StatusCode))
	case resp.StatusCode != http.StatusOK:
		return client.Transientf("unexpected thermostat status %d", resp.StatusCode)
	}

	var result controlResult
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return client.Malformed(fmt.Errorf("decoding control result: %w", err))
	}
	if !result.Success {
		if result.Reason == "" {
			return client.Rejected("command rejected by thermostat")
		}
		return client.Rejected(result.Reason)
	}
	return nil
}

// Close releases idle connections.
func (c *Client) Close() error {
	c.http.CloseIdleConnections()
	return nil
}
