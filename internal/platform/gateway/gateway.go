// Package gateway holds helpers shared by the management service HTTP
// clients behind the API gateway.
package gateway

import (
	"fmt"
	"io"
	"net/http"

	"github.com/Cray-HPE/sat-sub000/internal/util/retry"
)

// CheckStatus converts a non-2xx response into an error. Authentication
// failures and other client-side errors are marked fatal so callers stop
// polling immediately; server-side and throttling errors stay retryable.
func CheckStatus(service, path string, resp *http.Response) error {
	if resp.StatusCode < 300 {
		return nil
	}

	body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
	err := fmt.Errorf("%s %s: HTTP %d: %s", service, path, resp.StatusCode, string(body))

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return retry.Fatal(fmt.Errorf("authentication failed: %w", err))
	case resp.StatusCode == http.StatusRequestTimeout || resp.StatusCode == http.StatusTooManyRequests:
		return err
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		return retry.Fatal(err)
	default:
		return err
	}
}
