package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log"
	"net/http"
	"strings"
	"time"

	"fleet-scheduling-service/internal/domain"
	"fleet-scheduling-service/internal/platform/obs"
)

func writeJSON(w http.ResponseWriter, r *http.Request, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("encode failed: method=%s path=%s err=%v", r.Method, r.URL.Path, err)
	}
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	writeJSON(w, r, status, map[string]string{"error": msg})
}

// decodeJSON reads exactly one JSON object into v and rejects unknown
// fields. It writes the 400 response itself and reports whether to go on.
func decodeJSON(w http.ResponseWriter, r *http.Request, v any) bool {
	dec := json.NewDecoder(r.Body)
	defer r.Body.Close()
	dec.DisallowUnknownFields()

	if err := dec.Decode(v); err != nil {
		writeError(w, r, http.StatusBadRequest, "invalid json body")
		return false
	}
	if err := dec.Decode(&struct{}{}); err != io.EOF {
		writeError(w, r, http.StatusBadRequest, "body must contain only one JSON object")
		return false
	}
	return true
}

// writeServiceError maps engine error kinds to HTTP status codes.
func writeServiceError(w http.ResponseWriter, r *http.Request, op string, err error) {
	status := http.StatusInternalServerError
	msg := err.Error()

	switch {
	case errors.Is(err, domain.ErrNotFound):
		status = http.StatusNotFound
	case errors.Is(err, domain.ErrUnroutable), errors.Is(err, domain.ErrGeocodingFailed):
		status = http.StatusUnprocessableEntity
	case errors.Is(err, domain.ErrSolverRejected):
		status = http.StatusBadGateway
	case errors.Is(err, domain.ErrSolverUnavailable):
		status = http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		status = http.StatusGatewayTimeout
	case errors.Is(err, domain.ErrPersistenceFailed):
		// 500, but the message lists the unsaved orders.
	default:
		msg = "internal server error"
	}

	log.Printf("req_id=%s %s failed: status=%d err=%v", obs.RequestID(r.Context()), op, status, err)
	writeError(w, r, status, msg)
}

// parseDay reads a YYYY-MM-DD date in loc. An empty value yields the zero
// time, which the planner reads as today.
func parseDay(s string, loc *time.Location) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	if loc == nil {
		loc = time.UTC
	}
	t, err := time.ParseInLocation(time.DateOnly, s, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", s)
	}
	return t, nil
}

func requireID(s string) (string, bool) {
	s = strings.TrimSpace(s)
	return s, s != ""
}

func inRange(v *int, lo, hi int) bool {
	return v == nil || (*v >= lo && *v <= hi)
}
