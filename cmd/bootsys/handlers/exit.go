package handlers

import "fmt"

// ExitError carries a process exit code up to main. It wraps no cause: by
// the time it is constructed the run report has already been printed.
type ExitError struct {
	Code    int
	Message string
}

func (e *ExitError) Error() string {
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("exit status %d", e.Code)
}
