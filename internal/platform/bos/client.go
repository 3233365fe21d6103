// Package bos provides a client for the boot orchestration service, which
// drives compute and application node boot and shutdown through session
// templates.
package bos

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

// Operation is a session operation the service can perform.
type Operation string

const (
	OperationBoot     Operation = "boot"
	OperationShutdown Operation = "shutdown"
	OperationReboot   Operation = "reboot"
)

// SessionStatus summarizes one session's progress.
type SessionStatus struct {
	ID       string
	Complete bool
	InDanger bool
	Error    string
}

// SessionManager is the stage-facing contract of the boot orchestration
// service.
type SessionManager interface {
	// LaunchSession starts a session applying op to the nodes of template,
	// optionally restricted by limit, and returns the session ID.
	LaunchSession(ctx context.Context, template string, op Operation, limit string) (string, error)

	// QuerySession reports a session's progress.
	QuerySession(ctx context.Context, id string) (SessionStatus, error)

	// TemplateTargets returns the node identifiers the template's boot
	// sets address.
	TemplateTargets(ctx context.Context, template string) ([]string, error)
}

// Client talks to the boot orchestration service over its REST API.
// Retryable request failures are retried with backoff.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
	retryOpts  []retry.Option
}

// NewClient creates a boot orchestration client for the service at baseURL.
func NewClient(baseURL, token string) *Client {
	return &Client{
		baseURL:    baseURL,
		token:      token,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
}

type createSessionRequest struct {
	TemplateName string `json:"templateName"`
	Operation    string `json:"operation"`
	Limit        string `json:"limit,omitempty"`
}

type sessionResource struct {
	Name   string `json:"name"`
	Status struct {
		Status string `json:"status"`
		Error  string `json:"error"`
	} `json:"status"`
}

type sessionTemplate struct {
	Name     string `json:"name"`
	BootSets map[string]struct {
		NodeList []string `json:"node_list"`
	} `json:"boot_sets"`
}

// LaunchSession implements SessionManager.
func (c *Client) LaunchSession(ctx context.Context, template string, op Operation, limit string) (string, error) {
	body := createSessionRequest{
		TemplateName: template,
		Operation:    string(op),
		Limit:        limit,
	}

	var created sessionResource
	if err := c.do(ctx, http.MethodPost, "/v2/sessions", body, &created); err != nil {
		return "", fmt.Errorf("launch %s session for template %s: %w", op, template, err)
	}
	if created.Name == "" {
		return "", fmt.Errorf("bos: session create for template %s returned no session name", template)
	}
	return created.Name, nil
}

// QuerySession implements SessionManager.
func (c *Client) QuerySession(ctx context.Context, id string) (SessionStatus, error) {
	var res sessionResource
	if err := c.do(ctx, http.MethodGet, "/v2/sessions/"+id, nil, &res); err != nil {
		return SessionStatus{}, fmt.Errorf("query session %s: %w", id, err)
	}

	status := SessionStatus{ID: id, Error: res.Status.Error}
	switch res.Status.Status {
	case "complete":
		status.Complete = true
	case "running", "pending":
	default:
		status.InDanger = true
	}
	return status, nil
}

// TemplateTargets implements SessionManager.
func (c *Client) TemplateTargets(ctx context.Context, template string) ([]string, error) {
	var tmpl sessionTemplate
	if err := c.do(ctx, http.MethodGet, "/v2/sessiontemplates/"+template, nil, &tmpl); err != nil {
		return nil, fmt.Errorf("fetch session template %s: %w", template, err)
	}

	var nodes []string
	for _, bootSet := range tmpl.BootSets {
		nodes = append(nodes, bootSet.NodeList...)
	}
	return nodes, nil
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var payload []byte
	if body != nil {
		var err error
		payload, err = json.Marshal(body)
		if err != nil {
			return fmt.Errorf("bos: marshal request: %w", err)
		}
	}

	return retry.Do(ctx, func() error {
		var reader io.Reader
		if payload != nil {
			reader = bytes.NewReader(payload)
		}

		req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
		if err != nil {
			return retry.Fatal(fmt.Errorf("bos: build request: %w", err))
		}
		if payload != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		if c.token != "" {
			req.Header.Set("Authorization", "Bearer "+c.token)
		}

		resp, err := c.httpClient.Do(req)
		if err != nil {
			return fmt.Errorf("bos %s: %w", path, err)
		}
		defer resp.Body.Close()

		if err := gateway.CheckStatus("bos", path, resp); err != nil {
			return err
		}

		data, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("bos %s: read response: %w", path, err)
		}
		if err := json.Unmarshal(data, out); err != nil {
			return retry.Fatal(fmt.Errorf("bos %s: parse response: %w", path, err))
		}
		return nil
	}, c.retryOpts...)
}
