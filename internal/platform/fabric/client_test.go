package fabric

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cray-HPE/sat-sub000/internal/util/retry"
)

func fastRetry() []retry.Option {
	return []retry.Option{retry.WithMaxRetries(1), retry.WithInitialDelay(time.Millisecond)}
}

func portsServer(t *testing.T, body string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/fabric/ports", r.URL.Path)
		fmt.Fprint(w, body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func TestRoutesEstablished_AllOnline(t *testing.T) {
	t.Parallel()

	srv := portsServer(t, `{"ports": [
		{"enable": true, "status": "online"},
		{"enable": true, "status": "online"},
		{"enable": false, "status": "offline"}
	]}`)

	client := NewClient(srv.URL, "")
	ok, state, err := client.RoutesEstablished(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, "2/2 enabled ports online", state)
}

func TestRoutesEstablished_BelowThreshold(t *testing.T) {
	t.Parallel()

	// 8 of 10 enabled ports online is under the 95% bar.
	ports := `{"ports": [`
	for i := 0; i < 10; i++ {
		status := "online"
		if i < 2 {
			status = "offline"
		}
		if i > 0 {
			ports += ","
		}
		ports += fmt.Sprintf(`{"enable": true, "status": %q}`, status)
	}
	ports += `]}`
	srv := portsServer(t, ports)

	client := NewClient(srv.URL, "")
	ok, state, err := client.RoutesEstablished(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "8/10 enabled ports online", state)
}

func TestRoutesEstablished_NoEnabledPorts(t *testing.T) {
	t.Parallel()

	srv := portsServer(t, `{"ports": []}`)

	client := NewClient(srv.URL, "")
	ok, state, err := client.RoutesEstablished(context.Background())
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, "no enabled fabric ports reported", state)
}

func TestRoutesEstablished_ServerError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	client.retryOpts = fastRetry()
	_, _, err := client.RoutesEstablished(context.Background())
	require.Error(t, err)
}

func TestRoutesEstablished_RetriesServerError(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		fmt.Fprint(w, `{"ports": [{"enable": true, "status": "online"}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	client.retryOpts = fastRetry()
	ok, _, err := client.RoutesEstablished(context.Background())
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, int32(2), calls.Load())
}
