// Package hsm provides a client for the hardware state manager, the
// inventory of record for node roles, cabinets, and periodic discovery.
package hsm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/platform/gateway"
	"github.com/Cray-HPE/sat-sub000/internal/util/retry"
)

// Inventory is the contract consumed by target resolution and the
// cabinet power stage.
type Inventory interface {
	// NodesByRole returns the node identifiers holding the given role
	// (e.g. "Management", "Compute", "Application").
	NodesByRole(ctx context.Context, role string) ([]string, error)

	// NodesBySubRole returns management nodes of the given subrole
	// ("Master", "Storage", "Worker").
	NodesBySubRole(ctx context.Context, subRole string) ([]string, error)

	// AllNodes returns every enabled node identifier.
	AllNodes(ctx context.Context) ([]string, error)

	// Cabinets returns every cabinet identifier.
	Cabinets(ctx context.Context) ([]string, error)

	// SuspendDiscovery stops periodic hardware discovery so it does not
	// fight cabinet power changes.
	SuspendDiscovery(ctx context.Context) error

	// ResumeDiscovery re-enables periodic hardware discovery.
	ResumeDiscovery(ctx context.Context) error
}

// Client talks to the hardware state manager over its REST API.
// Retryable request failures are retried with backoff.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryOpts  []retry.Option
}

// NewClient creates an inventory client for the service at baseURL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type component struct {
	ID      string `json:"ID"`
	Type    string `json:"Type"`
	Role    string `json:"Role"`
	SubRole string `json:"SubRole"`
	Enabled *bool  `json:"Enabled"`
}

type componentList struct {
	Components []component `json:"Components"`
}

// NodesByRole implements Inventory.
func (c *Client) NodesByRole(ctx context.Context, role string) ([]string, error) {
	query := url.Values{"type": {"Node"}, "role": {role}}
	return c.componentIDs(ctx, query)
}

// NodesBySubRole implements Inventory.
func (c *Client) NodesBySubRole(ctx context.Context, subRole string) ([]string, error) {
	query := url.Values{"type": {"Node"}, "role": {"Management"}, "subrole": {subRole}}
	return c.componentIDs(ctx, query)
}

// AllNodes implements Inventory.
func (c *Client) AllNodes(ctx context.Context) ([]string, error) {
	return c.componentIDs(ctx, url.Values{"type": {"Node"}})
}

// Cabinets implements Inventory.
func (c *Client) Cabinets(ctx context.Context) ([]string, error) {
	return c.componentIDs(ctx, url.Values{"type": {"Cabinet"}})
}

func (c *Client) componentIDs(ctx context.Context, query url.Values) ([]string, error) {
	path := "/hsm/v2/State/Components?" + query.Encode()

	var list componentList
	err := retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
		if err != nil {
			return retry.Fatal(fmt.Errorf("hsm: build request: %w", err))
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("hsm components query: %w", err)
		}
		defer resp.Body.Close()

		if err := gateway.CheckStatus("hsm", path, resp); err != nil {
			return err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("hsm: read response: %w", err)
		}
		list = componentList{}
		if err := json.Unmarshal(data, &list); err != nil {
			return retry.Fatal(fmt.Errorf("hsm: parse response: %w", err))
		}
		return nil
	}, c.retryOpts...)
	if err != nil {
		return nil, err
	}

	var ids []string
	for _, comp := range list.Components {
		if comp.Enabled != nil && !*comp.Enabled {
			continue
		}
		ids = append(ids, comp.ID)
	}
	return ids, nil
}

// SuspendDiscovery implements Inventory.
func (c *Client) SuspendDiscovery(ctx context.Context) error {
	return c.patchDiscovery(ctx, false)
}

// ResumeDiscovery implements Inventory.
func (c *Client) ResumeDiscovery(ctx context.Context) error {
	return c.patchDiscovery(ctx, true)
}

func (c *Client) patchDiscovery(ctx context.Context, enabled bool) error {
	body, err := json.Marshal(map[string]bool{"Enabled": enabled})
	if err != nil {
		return fmt.Errorf("hsm: marshal discovery patch: %w", err)
	}

	const path = "/hsm/v2/Subscriptions/SCN/Discovery"
	return retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodPatch, c.baseURL+path, bytes.NewReader(body))
		if err != nil {
			return retry.Fatal(fmt.Errorf("hsm: build request: %w", err))
		}
		req.Header.Set("Content-Type", "application/json")
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("hsm discovery patch: %w", err)
		}
		defer resp.Body.Close()

		return gateway.CheckStatus("hsm", path, resp)
	}, c.retryOpts...)
}
