// Package sessions queries the management services that run long-lived
// sessions (boot, configuration, rolling upgrade, firmware, dump) for work
// still in flight. A shutdown must not begin while any of them is active.
package sessions

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sort"
	"strings"
	"time"

	"github.com/Cray-HPE/sat-sub000/internal/platform/gateway"
	"github.com/Cray-HPE/sat-sub000/internal/util/retry"
)

// Session is one active session on a management service.
type Session struct {
	Service string
	ID      string
	Status  string
}

func (s Session) String() string {
	return fmt.Sprintf("%s session %s (%s)", s.Service, s.ID, s.Status)
}

// Checker reports sessions still in flight across all watched services.
type Checker interface {
	ActiveSessions(ctx context.Context) ([]Session, error)
}

// terminal session states, shared by the watched services.
var terminalStates = map[string]bool{
	"complete":  true,
	"completed": true,
	"failed":    true,
	"aborted":   true,
	"succeeded": true,
}

// HTTPChecker queries each configured service's session list endpoint.
// Every watched service exposes a JSON array of objects carrying an
// identifier and a status field.
type HTTPChecker struct {
	services   map[string]string // service name -> sessions URL
	token      string
	httpClient *http.Client
	retryOpts  []retry.Option
}

// NewHTTPChecker builds a checker over the given service name to sessions
// URL mapping.
func NewHTTPChecker(services map[string]string, token string) *HTTPChecker {
	return &HTTPChecker{
		services:   services,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type sessionRecord struct {
	Name      string `json:"name"`
	ID        string `json:"id"`
	SessionID string `json:"session_id"`
	Status    string `json:"status"`
	State     string `json:"state"`
	Complete  *bool  `json:"complete"`
}

func (r sessionRecord) identifier() string {
	switch {
	case r.Name != "":
		return r.Name
	case r.ID != "":
		return r.ID
	default:
		return r.SessionID
	}
}

func (r sessionRecord) status() string {
	if r.Status != "" {
		return r.Status
	}
	return r.State
}

func (r sessionRecord) active() bool {
	if r.Complete != nil {
		return !*r.Complete
	}
	return !terminalStates[strings.ToLower(r.status())]
}

// ActiveSessions implements Checker. Services are queried in name order so
// reports are stable.
func (c *HTTPChecker) ActiveSessions(ctx context.Context) ([]Session, error) {
	names := make([]string, 0, len(c.services))
	for name := range c.services {
		names = append(names, name)
	}
	sort.Strings(names)

	var active []Session
	for _, name := range names {
		records, err := c.list(ctx, name, c.services[name])
		if err != nil {
			return nil, fmt.Errorf("list %s sessions: %w", name, err)
		}
		for _, rec := range records {
			if rec.active() {
				status := rec.status()
				if status == "" {
					status = "in progress"
				}
				active = append(active, Session{Service: name, ID: rec.identifier(), Status: status})
			}
		}
	}
	return active, nil
}

func (c *HTTPChecker) list(ctx context.Context, service, url string) ([]sessionRecord, error) {
	var records []sessionRecord
	err := retry.Do(ctx, func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return retry.Fatal(fmt.Errorf("build request: %w", err))
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if err := gateway.CheckStatus(service, url, resp); err != nil {
			return err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("read response: %w", err)
		}
		records = nil
		if err := json.Unmarshal(data, &records); err != nil {
			return retry.Fatal(fmt.Errorf("parse response: %w", err))
		}
		return nil
	}, c.retryOpts...)
	if err != nil {
		return nil, err
	}
	return records, nil
}
