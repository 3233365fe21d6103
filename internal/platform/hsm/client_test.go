package hsm

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNodesByRole(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/hsm/v2/State/Components", r.URL.Path)
		assert.Equal(t, "Node", r.URL.Query().Get("type"))
		assert.Equal(t, "Management", r.URL.Query().Get("role"))

		fmt.Fprint(w, `{"Components": [
			{"ID": "x3000c0s1b0n0", "Role": "Management"},
			{"ID": "x3000c0s3b0n0", "Role": "Management"}
		]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "tok")
	nodes, err := client.NodesByRole(context.Background(), "Management")
	require.NoError(t, err)
	assert.Equal(t, []string{"x3000c0s1b0n0", "x3000c0s3b0n0"}, nodes)
}

func TestNodesBySubRole_QueryParameters(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Management", r.URL.Query().Get("role"))
		assert.Equal(t, "Worker", r.URL.Query().Get("subrole"))
		fmt.Fprint(w, `{"Components": [{"ID": "x3000c0s7b0n0"}]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	nodes, err := client.NodesBySubRole(context.Background(), "Worker")
	require.NoError(t, err)
	assert.Equal(t, []string{"x3000c0s7b0n0"}, nodes)
}

func TestComponentIDs_SkipsDisabled(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		fmt.Fprint(w, `{"Components": [
			{"ID": "x1000", "Enabled": true},
			{"ID": "x1001", "Enabled": false},
			{"ID": "x1002"}
		]}`)
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	cabinets, err := client.Cabinets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"x1000", "x1002"}, cabinets)
}

func TestDiscoveryPatch(t *testing.T) {
	t.Parallel()

	var patches []bool
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		assert.Equal(t, "/hsm/v2/Subscriptions/SCN/Discovery", r.URL.Path)

		var body map[string]bool
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		patches = append(patches, body["Enabled"])
	}))
	defer srv.Close()

	client := NewClient(srv.URL, "")
	require.NoError(t, client.SuspendDiscovery(context.Background()))
	require.NoError(t, client.ResumeDiscovery(context.Background()))
	assert.Equal(t, []bool{false, true}, patches)
}
