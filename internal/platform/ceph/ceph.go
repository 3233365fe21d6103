// Package ceph checks and controls the distributed storage cluster through
// commands run on a mon host. Shutdown freezes the cluster so OSDs are not
// marked out while their hosts power down; boot unfreezes it and waits for
// health.
package ceph

import (
	"context"
	"fmt"
	"strings"

	"github.com/Cray-HPE/sat-sub000/internal/platform/ssh"
)

// HealthChecker is the stage-facing contract of the storage cluster.
type HealthChecker interface {
	// IsHealthy reports cluster health with the raw status string for
	// diagnostics.
	IsHealthy(ctx context.Context) (bool, string, error)

	// Freeze sets the flags that keep the cluster stable across a
	// planned shutdown.
	Freeze(ctx context.Context) error

	// Unfreeze clears the shutdown flags.
	Unfreeze(ctx context.Context) error
}

// freezeFlags are the OSD flags set for a planned shutdown.
var freezeFlags = []string{"noout", "norecover", "nobackfill"}

// Client runs ceph administration commands on a mon host over SSH.
type Client struct {
	runner ssh.CommandRunner
	mon    string
}

// NewClient creates a storage health client using runner against mon.
func NewClient(runner ssh.CommandRunner, mon string) *Client {
	return &Client{runner: runner, mon: mon}
}

// IsHealthy implements HealthChecker. HEALTH_OK and HEALTH_WARN both count
// as healthy: a freshly thawed cluster carries warnings (clock skew,
// recent crashes) that do not block bringing services up.
func (c *Client) IsHealthy(ctx context.Context) (bool, string, error) {
	out, err := c.runner.Run(ctx, c.mon, "ceph health")
	if err != nil {
		return false, "", fmt.Errorf("ceph health on %s: %w", c.mon, err)
	}

	status := strings.TrimSpace(out)
	healthy := strings.HasPrefix(status, "HEALTH_OK") || strings.HasPrefix(status, "HEALTH_WARN")
	return healthy, status, nil
}

// Freeze implements HealthChecker.
func (c *Client) Freeze(ctx context.Context) error {
	for _, flag := range freezeFlags {
		if _, err := c.runner.Run(ctx, c.mon, "ceph osd set "+flag); err != nil {
			return fmt.Errorf("set %s on %s: %w", flag, c.mon, err)
		}
	}
	return nil
}

// Unfreeze implements HealthChecker.
func (c *Client) Unfreeze(ctx context.Context) error {
	for _, flag := range freezeFlags {
		if _, err := c.runner.Run(ctx, c.mon, "ceph osd unset "+flag); err != nil {
			return fmt.Errorf("unset %s on %s: %w", flag, c.mon, err)
		}
	}
	return nil
}
