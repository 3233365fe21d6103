// Package ssh runs commands on management nodes over SSH. Stages use it for
// OS-level work the management services cannot do: graceful shutdowns,
// systemd service control, and Ceph administration on mon hosts.
package ssh

import (
	"bytes"
	"context"
	"fmt"
	"net"
	"os"
	"time"

	"golang.org/x/crypto/ssh"
)

// Runner executes commands on remote hosts. It dials a fresh connection per
// command so a node rebooting underneath us cannot poison a cached session.
type Runner struct {
	user        string
	signer      ssh.Signer
	dialTimeout time.Duration
}

// CommandRunner is the node command contract consumed by adapters that
// shell out over SSH.
type CommandRunner interface {
	Run(ctx context.Context, host, command string) (string, error)
}

// NewRunner builds a Runner authenticating as user with the private key at
// keyPath.
func NewRunner(user, keyPath string) (*Runner, error) {
	keyData, err := os.ReadFile(keyPath)
	if err != nil {
		return nil, fmt.Errorf("read ssh key %s: %w", keyPath, err)
	}
	signer, err := ssh.ParsePrivateKey(keyData)
	if err != nil {
		return nil, fmt.Errorf("parse ssh key %s: %w", keyPath, err)
	}
	return &Runner{
		user:        user,
		signer:      signer,
		dialTimeout: 15 * time.Second,
	}, nil
}

// Run executes command on host and returns its combined output. The
// connection is closed when ctx is cancelled, which aborts the remote
// command from the caller's point of view.
func (r *Runner) Run(ctx context.Context, host, command string) (string, error) {
	cfg := &ssh.ClientConfig{
		User:            r.user,
		Auth:            []ssh.AuthMethod{ssh.PublicKeys(r.signer)},
		HostKeyCallback: ssh.InsecureIgnoreHostKey(), //nolint:gosec // management network, host keys churn on reinstall
		Timeout:         r.dialTimeout,
	}

	dialer := &net.Dialer{Timeout: r.dialTimeout}
	conn, err := dialer.DialContext(ctx, "tcp", net.JoinHostPort(host, "22"))
	if err != nil {
		return "", fmt.Errorf("dial %s: %w", host, err)
	}

	sshConn, chans, reqs, err := ssh.NewClientConn(conn, host, cfg)
	if err != nil {
		conn.Close()
		return "", fmt.Errorf("ssh handshake with %s: %w", host, err)
	}
	client := ssh.NewClient(sshConn, chans, reqs)
	defer client.Close()

	session, err := client.NewSession()
	if err != nil {
		return "", fmt.Errorf("ssh session on %s: %w", host, err)
	}
	defer session.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			client.Close()
		case <-done:
		}
	}()

	var out bytes.Buffer
	session.Stdout = &out
	session.Stderr = &out
	if err := session.Run(command); err != nil {
		if ctx.Err() != nil {
			return out.String(), ctx.Err()
		}
		return out.String(), fmt.Errorf("%s on %s: %w (%s)", command, host, err, bytes.TrimSpace(out.Bytes()))
	}
	return out.String(), nil
}

// Reachable reports whether host accepts an SSH connection. Used when
// waiting for a node to come back after power-on.
func (r *Runner) Reachable(ctx context.Context, host string) bool {
	_, err := r.Run(ctx, host, "true")
	return err == nil
}
