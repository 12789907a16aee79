package resource

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/frankli0324/go-restkit/internal/model"
)

var (
	// ErrUnauthorized is matched by 401 and 403 responses.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrResourceNotFound is matched by 404 responses.
	ErrResourceNotFound = errors.New("resource not found")
	// ErrRequestFailed is matched by every other status >= 400.
	ErrRequestFailed = errors.New("request failed")
)

// ResourceError is a complete response whose status the resource treats as
// a failure. Response is kept with its body already read into Body.
type ResourceError struct {
	StatusCode int
	Body       string
	Response   *model.Response
	Err        error
}

func (e *ResourceError) Error() string {
	return fmt.Sprintf("%v: %d, body: %s", e.Err, e.StatusCode, e.Body)
}

func (e *ResourceError) Unwrap() error {
	return e.Err
}

// checkStatus turns a failed response into a *ResourceError, reading its
// body and so releasing the connection.
func checkStatus(resp *model.Response) error {
	if resp.StatusCode < 400 {
		return nil
	}
	var sentinel error
	switch resp.StatusCode {
	case http.StatusUnauthorized, http.StatusForbidden:
		sentinel = ErrUnauthorized
	case http.StatusNotFound:
		sentinel = ErrResourceNotFound
	default:
		sentinel = ErrRequestFailed
	}
	body, err := resp.BodyString()
	if err != nil {
		return fmt.Errorf("reading body of %d response: %w", resp.StatusCode, err)
	}
	return &ResourceError{StatusCode: resp.StatusCode, Body: body, Response: resp, Err: sentinel}
}
