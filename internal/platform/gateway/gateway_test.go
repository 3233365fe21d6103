package gateway

import (
	"io"
	"net/http"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Cray-HPE/sat-sub000/internal/util/retry"
)

func response(status int, body string) *http.Response {
	return &http.Response{
		StatusCode: status,
		Body:       io.NopCloser(strings.NewReader(body)),
	}
}

func TestCheckStatus_Success(t *testing.T) {
	t.Parallel()

	assert.NoError(t, CheckStatus("capmc", "/x", response(http.StatusOK, "")))
	assert.NoError(t, CheckStatus("capmc", "/x", response(http.StatusNoContent, "")))
}

func TestCheckStatus_AuthFailuresAreFatal(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusUnauthorized, http.StatusForbidden} {
		err := CheckStatus("bos", "/v2/sessions", response(status, "denied"))
		require.Error(t, err)
		assert.True(t, retry.IsFatal(err), "HTTP %d", status)
		assert.Contains(t, err.Error(), "authentication failed")
	}
}

func TestCheckStatus_ThrottlingIsRetryable(t *testing.T) {
	t.Parallel()

	for _, status := range []int{http.StatusRequestTimeout, http.StatusTooManyRequests} {
		err := CheckStatus("bos", "/v2/sessions", response(status, ""))
		require.Error(t, err)
		assert.False(t, retry.IsFatal(err), "HTTP %d", status)
	}
}

func TestCheckStatus_OtherClientErrorsAreFatal(t *testing.T) {
	t.Parallel()

	err := CheckStatus("hsm", "/hsm/v2/State/Components", response(http.StatusNotFound, "no such component"))
	require.Error(t, err)
	assert.True(t, retry.IsFatal(err))
	assert.Contains(t, err.Error(), "no such component")
}

func TestCheckStatus_ServerErrorsAreRetryable(t *testing.T) {
	t.Parallel()

	err := CheckStatus("fabric", "/fabric/ports", response(http.StatusBadGateway, ""))
	require.Error(t, err)
	assert.False(t, retry.IsFatal(err))
}
