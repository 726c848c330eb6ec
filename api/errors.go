package api

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/pkg/errors"
)

// Kind classifies a handler failure for the HTTP boundary.
type Kind int

const (
	KindInternal Kind = iota
	KindNotFound
)

const internalDetail = "An internal server error occurred. Please try again later."

// Error is returned by handlers. Reason is shown to clients only for
// KindNotFound.
type Error struct {
	Kind   Kind
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Reason, e.Err)
	}
	return e.Reason
}

func (e *Error) Unwrap() error { return e.Err }

// NotFound reports unavailable data or a rejected parameter.
func NotFound(format string, args ...any) *Error {
	return &Error{Kind: KindNotFound, Reason: fmt.Sprintf(format, args...)}
}

// Internal reports an unexpected failure. err is logged, never returned.
func Internal(err error) *Error {
	return &Error{Kind: KindInternal, Reason: "internal error", Err: err}
}

type errorBody struct {
	Detail string `json:"detail"`
}

func statusAndDetail(err error) (int, string) {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Kind == KindNotFound {
		return http.StatusNotFound, "The requested data could not be found. Reason: " + apiErr.Reason
	}
	return http.StatusInternalServerError, internalDetail
}

func writeError(w http.ResponseWriter, r *http.Request, logger *slog.Logger, err error) {
	status, detail := statusAndDetail(err)
	logger.Error("request failed",
		"request_id", RequestID(r.Context()),
		"method", r.Method,
		"url", r.URL.String(),
		"status", status,
		"error", err)
	writeJSON(w, status, errorBody{Detail: detail})
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
