package sessions

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cray-HPE/sat-sub000/internal/util/retry"
)

func TestActiveSessions_AcrossServices(t *testing.T) {
	t.Parallel()

	bosSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[
			{"name": "boot-session-1", "status": "running"},
			{"name": "boot-session-2", "status": "Pending"},
			{"name": "boot-session-3", "status": "complete"}
		]`)
	}))
	defer bosSrv.Close()

	cfsSrv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[
			{"id": "cfg-1", "state": "pending"},
			{"id": "cfg-2", "state": "Completed"}
		]`)
	}))
	defer cfsSrv.Close()

	checker := NewHTTPChecker(map[string]string{
		"bos": bosSrv.URL,
		"cfs": cfsSrv.URL,
	}, "tok")

	active, err := checker.ActiveSessions(context.Background())
	require.NoError(t, err)

	// Services are reported in name order.
	require.Len(t, active, 3)
	assert.Equal(t, "bos", active[0].Service)
	assert.Equal(t, "boot-session-2", active[1].ID)
	assert.Equal(t, "cfg-1", active[2].ID)
	assert.Equal(t, "pending", active[2].Status)
}

func TestActiveSessions_CompleteFlag(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[
			{"session_id": "dump-1", "complete": false},
			{"session_id": "dump-2", "complete": true}
		]`)
	}))
	defer srv.Close()

	checker := NewHTTPChecker(map[string]string{"sdu": srv.URL}, "")
	active, err := checker.ActiveSessions(context.Background())
	require.NoError(t, err)

	require.Len(t, active, 1)
	assert.Equal(t, "dump-1", active[0].ID)
	assert.Equal(t, "in progress", active[0].Status)
}

func TestActiveSessions_EmptyAndNoServices(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `[]`)
	}))
	defer srv.Close()

	checker := NewHTTPChecker(map[string]string{"bos": srv.URL}, "")
	active, err := checker.ActiveSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)

	empty := NewHTTPChecker(nil, "")
	active, err = empty.ActiveSessions(context.Background())
	require.NoError(t, err)
	assert.Empty(t, active)
}

func TestActiveSessions_ServiceErrorPropagates(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	checker := NewHTTPChecker(map[string]string{"bos": srv.URL}, "")
	checker.retryOpts = []retry.Option{retry.WithMaxRetries(1), retry.WithInitialDelay(time.Millisecond)}
	_, err := checker.ActiveSessions(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "bos")
}

func TestSessionString(t *testing.T) {
	t.Parallel()

	s := Session{Service: "cfs", ID: "cfg-1", Status: "pending"}
	assert.Equal(t, "cfs session cfg-1 (pending)", s.String())
}
