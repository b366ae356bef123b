package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/dohr-michael/tasktrack/internal/tasks"
)

// ErrTransport wraps failures that never produced a usable HTTP response:
// connection errors, timeouts and unparseable bodies.
var ErrTransport = errors.New("transport error")

// APIError is a non-2xx response from the Task API.
type APIError struct {
	Status  int
	Message string
	Fields  map[string][]string
}

func (e *APIError) Error() string {
	if len(e.Fields) > 0 {
		return e.validation().Error()
	}
	if e.Message != "" {
		return e.Message
	}
	return fmt.Sprintf("HTTP %d", e.Status)
}

// Unwrap exposes tasks.ErrNotFound for 404 and a *tasks.ValidationError for 422.
func (e *APIError) Unwrap() error {
	switch e.Status {
	case http.StatusNotFound:
		return tasks.ErrNotFound
	case http.StatusUnprocessableEntity:
		return e.validation()
	}
	return nil
}

func (e *APIError) validation() *tasks.ValidationError {
	return &tasks.ValidationError{Fields: e.Fields}
}

// IsNotFound reports whether err is a 404 from the Task API.
func IsNotFound(err error) bool {
	return errors.Is(err, tasks.ErrNotFound)
}

// decodeAPIError builds an APIError from a failed response body.
// 422 bodies are field maps; everything else is {"error": "..."}.
func decodeAPIError(status int, body []byte) *APIError {
	e := &APIError{Status: status}

	if status == http.StatusUnprocessableEntity {
		var fields map[string][]string
		if err := json.Unmarshal(body, &fields); err == nil && len(fields) > 0 {
			e.Fields = fields
			return e
		}
	}

	var msg struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(body, &msg); err == nil && msg.Error != "" {
		e.Message = msg.Error
		return e
	}

	e.Message = fmt.Sprintf("HTTP %d %s", status, http.StatusText(status))
	return e
}

func transportErr(op string, err error) error {
	return fmt.Errorf("%s: %w: %w", op, ErrTransport, err)
}
