// Package capmc provides a client for the power control service. It covers
// exactly the operations the lifecycle stages need: commanding components
// on or off and querying their current power state.
package capmc

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/platform/gateway"
	"github.com/Cray-HPE/sat-sub000/internal/util/retry"
)

// State is a component power state as reported by the power control service.
type State string

const (
	StateOn        State = "on"
	StateOff       State = "off"
	StateUndefined State = "undefined"
)

// PowerController is the stage-facing contract of the power control service.
type PowerController interface {
	// SetPower requests the given state for every target and returns the
	// per-target rejections; an empty map means every target was accepted.
	SetPower(ctx context.Context, xnames []string, state State) (map[string]error, error)

	// QueryPower returns the current state of every target.
	QueryPower(ctx context.Context, xnames []string) (map[string]State, error)
}

// Client talks to the power control service over its REST API. Requests
// that fail with a retryable error (connection refused, throttling, 5xx)
// are retried with backoff; fatal errors surface immediately.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryOpts  []retry.Option
}

// NewClient creates a power control client for the service at baseURL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type xnameControl struct {
	Xnames []string `json:"xnames"`
	Force  bool     `json:"force,omitempty"`
}

type xnameResult struct {
	Xname  string `json:"xname"`
	E      int    `json:"e"`
	ErrMsg string `json:"err_msg"`
}

type controlResponse struct {
	E      int           `json:"e"`
	ErrMsg string        `json:"err_msg"`
	Xnames []xnameResult `json:"xnames"`
}

type statusResponse struct {
	E         int      `json:"e"`
	ErrMsg    string   `json:"err_msg"`
	On        []string `json:"on"`
	Off       []string `json:"off"`
	Undefined []string `json:"undefined"`
}

// SetPower implements PowerController.
func (c *Client) SetPower(ctx context.Context, xnames []string, state State) (map[string]error, error) {
	var path string
	switch state {
	case StateOn:
		path = "/capmc/v1/xname_on"
	case StateOff:
		path = "/capmc/v1/xname_off"
	default:
		return nil, fmt.Errorf("capmc: cannot request power state %q", state)
	}

	var resp controlResponse
	if err := c.post(ctx, path, xnameControl{Xnames: xnames}, &resp); err != nil {
		return nil, err
	}

	rejected := make(map[string]error)
	for _, res := range resp.Xnames {
		if res.E != 0 {
			rejected[res.Xname] = fmt.Errorf("capmc rejected %s: %s (e=%d)", res.Xname, res.ErrMsg, res.E)
		}
	}
	if resp.E != 0 && len(rejected) == 0 {
		return nil, fmt.Errorf("capmc %s failed: %s (e=%d)", path, resp.ErrMsg, resp.E)
	}
	return rejected, nil
}

// QueryPower implements PowerController.
func (c *Client) QueryPower(ctx context.Context, xnames []string) (map[string]State, error) {
	var resp statusResponse
	if err := c.post(ctx, "/capmc/v1/get_xname_status", xnameControl{Xnames: xnames}, &resp); err != nil {
		return nil, err
	}
	if resp.E != 0 {
		return nil, fmt.Errorf("capmc status query failed: %s (e=%d)", resp.ErrMsg, resp.E)
	}

	states := make(map[string]State, len(xnames))
	for _, x := range resp.On {
		states[x] = StateOn
	}
	for _, x := range resp.Off {
		states[x] = StateOff
	}
	for _, x := range resp.Undefined {
		states[x] = StateUndefined
	}
	return states, nil
}

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("capmc: marshal request: %w", err)
	}

	// The request body must be rebuilt per attempt.
	return retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
		if err != nil {
			return retry.Fatal(fmt.Errorf("capmc: build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("capmc %s: %w", path, err)
		}
		defer resp.Body.Close()

		if err := gateway.CheckStatus("capmc", path, resp); err != nil {
			return err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("capmc %s: read response: %w", path, err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return retry.Fatal(fmt.Errorf("capmc %s: parse response: %w", path, err))
		}
		return nil
	}, c.retryOpts...)
}
