// Package console provides node-level access for management node power
// stages: graceful OS shutdown and service control over SSH, out-of-band
// power control through each node's BMC with ipmitool, and conman console
// monitoring sessions so boot and shutdown output is captured even when a
// node never comes back.
package console

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/Cray-HPE/sat-sub000/internal/platform/capmc"
	"github.com/Cray-HPE/sat-sub000/internal/platform/ssh"
)

// NodeAccess is the stage-facing contract for per-node operations.
type NodeAccess interface {
	// GracefulShutdown asks the node's OS to halt.
	GracefulShutdown(ctx context.Context, node string) error

	// PowerOff forces the node off through its BMC.
	PowerOff(ctx context.Context, node string) error

	// PowerOn powers the node on through its BMC.
	PowerOn(ctx context.Context, node string) error

	// PowerStatus reports the node's power state through its BMC.
	PowerStatus(ctx context.Context, node string) (capmc.State, error)

	// OpenConsole starts a console monitoring session for the node and
	// returns a handle that stops it.
	OpenConsole(ctx context.Context, node string) (io.Closer, error)

	// StopService stops a systemd service on the node.
	StopService(ctx context.Context, node, service string) error

	// StartService starts a systemd service on the node.
	StartService(ctx context.Context, node, service string) error

	// Reachable reports whether the node's OS answers over SSH.
	Reachable(ctx context.Context, node string) bool
}

// Client implements NodeAccess for management nodes.
type Client struct {
	runner    *ssh.Runner
	bmcSuffix string
	ipmiUser  string
	ipmiPass  string
	logDir    string
}

// NewClient builds a node access client. BMC hostnames are derived by
// appending bmcSuffix to the node name; IPMI credentials come from the
// IPMI_USERNAME and IPMI_PASSWORD environment variables.
func NewClient(runner *ssh.Runner, bmcSuffix, logDir string) *Client {
	return &Client{
		runner:    runner,
		bmcSuffix: bmcSuffix,
		ipmiUser:  os.Getenv("IPMI_USERNAME"),
		ipmiPass:  os.Getenv("IPMI_PASSWORD"),
		logDir:    logDir,
	}
}

// GracefulShutdown implements NodeAccess. The command is detached so the
// SSH session does not hang waiting for a host that is halting.
func (c *Client) GracefulShutdown(ctx context.Context, node string) error {
	_, err := c.runner.Run(ctx, node, "nohup shutdown -h now >/dev/null 2>&1 &")
	if err != nil {
		return fmt.Errorf("graceful shutdown of %s: %w", node, err)
	}
	return nil
}

// PowerOff implements NodeAccess.
func (c *Client) PowerOff(ctx context.Context, node string) error {
	_, err := c.ipmitool(ctx, node, "power", "off")
	return err
}

// PowerOn implements NodeAccess.
func (c *Client) PowerOn(ctx context.Context, node string) error {
	_, err := c.ipmitool(ctx, node, "power", "on")
	return err
}

// PowerStatus implements NodeAccess.
func (c *Client) PowerStatus(ctx context.Context, node string) (capmc.State, error) {
	out, err := c.ipmitool(ctx, node, "power", "status")
	if err != nil {
		return capmc.StateUndefined, err
	}

	lower := strings.ToLower(out)
	switch {
	case strings.Contains(lower, "is on"):
		return capmc.StateOn, nil
	case strings.Contains(lower, "is off"):
		return capmc.StateOff, nil
	default:
		return capmc.StateUndefined, nil
	}
}

// consoleSession is a running conman process; Close stops it.
type consoleSession struct {
	cancel context.CancelFunc
	done   chan error
	log    *os.File
}

func (s *consoleSession) Close() error {
	s.cancel()
	<-s.done
	return s.log.Close()
}

// OpenConsole implements NodeAccess. Console output is appended to
// <logDir>/console-<node>.log for the lifetime of the session.
func (c *Client) OpenConsole(ctx context.Context, node string) (io.Closer, error) {
	if err := os.MkdirAll(c.logDir, 0o750); err != nil {
		return nil, fmt.Errorf("create console log dir: %w", err)
	}
	logPath := filepath.Join(c.logDir, "console-"+node+".log")
	logFile, err := os.OpenFile(logPath, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o640)
	if err != nil {
		return nil, fmt.Errorf("open console log %s: %w", logPath, err)
	}

	sessionCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	cmd := exec.CommandContext(sessionCtx, "conman", "-m", node)
	cmd.Stdout = logFile
	cmd.Stderr = logFile

	if err := cmd.Start(); err != nil {
		cancel()
		logFile.Close()
		return nil, fmt.Errorf("start conman for %s: %w", node, err)
	}

	done := make(chan error, 1)
	go func() { done <- cmd.Wait() }()
	return &consoleSession{cancel: cancel, done: done, log: logFile}, nil
}

// StopService implements NodeAccess.
func (c *Client) StopService(ctx context.Context, node, service string) error {
	if _, err := c.runner.Run(ctx, node, "systemctl stop "+service); err != nil {
		return fmt.Errorf("stop %s on %s: %w", service, node, err)
	}
	return nil
}

// StartService implements NodeAccess.
func (c *Client) StartService(ctx context.Context, node, service string) error {
	if _, err := c.runner.Run(ctx, node, "systemctl start "+service); err != nil {
		return fmt.Errorf("start %s on %s: %w", service, node, err)
	}
	return nil
}

// Reachable implements NodeAccess.
func (c *Client) Reachable(ctx context.Context, node string) bool {
	return c.runner.Reachable(ctx, node)
}

func (c *Client) ipmitool(ctx context.Context, node string, args ...string) (string, error) {
	argv := []string{"-I", "lanplus", "-H", node + c.bmcSuffix}
	if c.ipmiUser != "" {
		argv = append(argv, "-U", c.ipmiUser)
	}
	if c.ipmiPass != "" {
		argv = append(argv, "-E")
	}
	argv = append(argv, args...)

	cmd := exec.CommandContext(ctx, "ipmitool", argv...)
	if c.ipmiPass != "" {
		cmd.Env = append(os.Environ(), "IPMITOOL_PASSWORD="+c.ipmiPass)
	}
	out, err := cmd.CombinedOutput()
	if err != nil {
		return "", fmt.Errorf("ipmitool %s %s: %w (%s)", node, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
	}
	return string(out), nil
}
