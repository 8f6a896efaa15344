package server

import (
	"errors"
	"net/http"

	"github.com/go-chi/render"

	"github.com/KaramelBytes/vitals-cli/internal/parser"
	"github.com/KaramelBytes/vitals-cli/internal/store"
)

// APIError is the JSON body of every failed request.
type APIError struct {
	StatusCode int    `json:"status_code"`
	ErrorCode  string `json:"error_code"`
	Message    string `json:"message"`
	Details    any    `json:"details,omitempty"`
}

func (e *APIError) Error() string { return e.Message }

// Render implements render.Renderer.
func (e *APIError) Render(w http.ResponseWriter, r *http.Request) error {
	render.Status(r, e.StatusCode)
	return nil
}

func newAPIError(status int, code, msg string) *APIError {
	return &APIError{StatusCode: status, ErrorCode: code, Message: msg}
}

func badRequest(msg string, details any) *APIError {
	e := newAPIError(http.StatusBadRequest, "INVALID_REQUEST", msg)
	e.Details = details
	return e
}

var (
	errNoDataset   = newAPIError(http.StatusNotFound, "NO_DATASET", "No data loaded. Upload a file first.")
	errRateLimited = newAPIError(http.StatusTooManyRequests, "RATE_LIMITED", "Too many uploads. Retry shortly.")
)

// fromError maps a domain failure to its HTTP form.
func fromError(err error) *APIError {
	var ae *APIError
	if errors.As(err, &ae) {
		return ae
	}
	var fe *parser.FileError
	if errors.As(err, &fe) {
		status := http.StatusUnprocessableEntity
		if errors.Is(err, parser.ErrUnsupported) {
			status = http.StatusUnsupportedMediaType
		}
		e := newAPIError(status, fe.Code(), err.Error())
		if fe.Detail != "" {
			e.Details = fe.Detail
		}
		return e
	}
	if errors.Is(err, store.ErrQuotaExceeded) {
		return newAPIError(http.StatusInsufficientStorage, "QUOTA_EXCEEDED", err.Error())
	}
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return newAPIError(http.StatusRequestEntityTooLarge, "UPLOAD_TOO_LARGE", err.Error())
	}
	return newAPIError(http.StatusInternalServerError, "INTERNAL_ERROR", err.Error())
}

func renderError(w http.ResponseWriter, r *http.Request, err error) {
	_ = render.Render(w, r, fromError(err))
}
