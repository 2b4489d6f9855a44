package telegram

import "fmt"

// APIError is a non-retryable error reported by the Bot API (bad request,
// invalid token, rejected payload). Retrying the same call will not help.
type APIError struct {
	Code        int
	Description string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("telegram: api error %d: %s", e.Code, e.Description)
}
