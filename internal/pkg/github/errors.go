package github

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-resty/resty/v2"
)

// Error kinds surfaced by the client. Callers match with errors.Is to
// decide whether to warn, abort or report a specific condition.
var (
	ErrAuthentication   = errors.New("github: authentication failed")
	ErrNotFound         = errors.New("github: not found")
	ErrConflict         = errors.New("github: already exists")
	ErrPermissionDenied = errors.New("github: permission denied")
	ErrImportFailed     = errors.New("github: repository import failed")
	ErrImportTimeout    = errors.New("github: repository import timed out")
	ErrUpstream         = errors.New("github: hosting api unavailable")
)

// respMessage extracts the "message" field GitHub puts in error
// bodies, falling back when the body is empty or not JSON.
func respMessage(resp *resty.Response, fallback string) string {
	var body struct {
		Message string `json:"message"`
	}
	if err := json.Unmarshal(resp.Body(), &body); err == nil && body.Message != "" {
		return body.Message
	}
	return fallback
}

// statusError maps a non-2xx response onto an error kind carrying the
// host-reported message.
func statusError(resp *resty.Response) error {
	msg := respMessage(resp, resp.Status())
	switch {
	case resp.StatusCode() == 401:
		return fmt.Errorf("%w: %s", ErrAuthentication, msg)
	case resp.StatusCode() == 403:
		return fmt.Errorf("%w: %s", ErrPermissionDenied, msg)
	case resp.StatusCode() == 404:
		return fmt.Errorf("%w: %s", ErrNotFound, msg)
	case resp.StatusCode() == 409 || resp.StatusCode() == 422:
		return fmt.Errorf("%w: %s", ErrConflict, msg)
	case resp.StatusCode() >= 500:
		return fmt.Errorf("%w: status %d: %s", ErrUpstream, resp.StatusCode(), msg)
	default:
		return fmt.Errorf("github api error: status %d: %s", resp.StatusCode(), msg)
	}
}

func wrapTransport(err error) error {
	return fmt.Errorf("%w: %v", ErrUpstream, err)
}
