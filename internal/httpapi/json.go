package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/raketrapport/raket/internal/report"
	"github.com/raketrapport/raket/internal/tax"
)

// errorResponse is the standard error payload for the API.
type errorResponse struct {
	Success    bool   `json:"success"`
	Error      string `json:"error"`
	IncidentID string `json:"incident_id,omitempty"`
}

// toJSON writes a JSON response with status code.
func toJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	toJSON(w, status, errorResponse{Error: msg})
}

// decodeJSON reads one JSON value from the request body.
func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// writeFailure maps an error to a status and writes it.
func writeFailure(w http.ResponseWriter, err error) {
	var (
		fault   *report.FaultError
		tooBig  *http.MaxBytesError
		status  = http.StatusBadRequest
		payload = errorResponse{Error: err.Error()}
	)
	switch {
	case errors.As(err, &fault):
		status = http.StatusInternalServerError
		payload.IncidentID = fault.IncidentID
		payload.Error = fault.Error()
	case errors.As(err, &tooBig):
		status = http.StatusRequestEntityTooLarge
		payload.Error = fmt.Sprintf("request body exceeds %d bytes", tooBig.Limit)
	case errors.Is(err, tax.ErrInvalidTransition):
		status = http.StatusConflict
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		status = http.StatusServiceUnavailable
	case errors.Is(err, io.EOF):
		payload.Error = "request body is empty"
	}
	toJSON(w, status, payload)
}
