// Package fabric provides a client for the high-speed network fabric
// manager, used to confirm routes are established before compute cabinets
// are powered on.
package fabric

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/platform/gateway"
	"github.com/Cray-HPE/sat-sub000/internal/util/retry"
)

// enabledThreshold is the fraction of enabled ports that must be online
// before routes are considered established. Fabrics routinely carry a few
// administratively drained ports, so 100% is not a useful bar.
const enabledThreshold = 0.95

// StatusClient is the stage-facing contract of the fabric manager.
type StatusClient interface {
	// RoutesEstablished reports whether the fabric is ready to carry
	// traffic, with a short state description for diagnostics.
	RoutesEstablished(ctx context.Context) (bool, string, error)
}

// Client talks to the fabric manager over its REST API.
// Retryable request failures are retried with backoff.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryOpts  []retry.Option
}

// NewClient creates a fabric status client for the service at baseURL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type portStatus struct {
	Enable bool   `json:"enable"`
	Status string `json:"status"`
}

type portsResponse struct {
	Ports []portStatus `json:"ports"`
}

// RoutesEstablished implements StatusClient.
func (c *Client) RoutesEstablished(ctx context.Context) (bool, string, error) {
	const path = "/fabric/ports"

	var ports portsResponse
	err := retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return retry.Fatal(fmt.Errorf("fabric: build request: %w", err))
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("fabric ports query: %w", err)
		}
		defer resp.Body.Close()

		if err := gateway.CheckStatus("fabric", path, resp); err != nil {
			return err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("fabric: read response: %w", err)
		}
		ports = portsResponse{}
		if err := json.Unmarshal(data, &ports); err != nil {
			return retry.Fatal(fmt.Errorf("fabric: parse response: %w", err))
		}
		return nil
	}, c.retryOpts...)
	if err != nil {
		return false, "", err
	}

	enabled, online := 0, 0
	for _, port := range ports.Ports {
		if !port.Enable {
			continue
		}
		enabled++
		if port.Status == "online" {
			online++
		}
	}

	state := fmt.Sprintf("%d/%d enabled ports online", online, enabled)
	if enabled == 0 {
		return false, "no enabled fabric ports reported", nil
	}
	return float64(online)/float64(enabled) >= enabledThreshold, state, nil
}
