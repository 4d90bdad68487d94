package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// statusError is a domain failure already carrying the HTTP status it
// should translate to (spec §7: BadInput, NotFound, AuthorizationFailure
// all surface to the caller with a specific class; everything else
// collapses to 500).
type statusError struct {
	status int
	msg    string
}

func (e *statusError) Error() string { return e.msg }

func badInput(format string, a ...any) error {
	return &statusError{status: http.StatusBadRequest, msg: fmt.Sprintf(format, a...)}
}

func notFound(format string, a ...any) error {
	return &statusError{status: http.StatusNotFound, msg: fmt.Sprintf(format, a...)}
}

func forbidden(format string, a ...any) error {
	return &statusError{status: http.StatusForbidden, msg: fmt.Sprintf(format, a...)}
}

// writeError translates a domain error into a JSON response, defaulting
// to 500 for anything that isn't a recognized statusError.
func writeError(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	var se *statusError
	if errors.As(err, &se) {
		status = se.status
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": err.Error()})
}
