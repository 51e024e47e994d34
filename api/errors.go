package api

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/mystikonetwork/relayer/log"
)

// Error satisfies the error interface and knows how to render itself as the
// API's response envelope.
type Error struct {
	Err        error
	Code       int
	HTTPstatus int
}

// Error returns the human-readable description of the error.
func (e Error) Error() string {
	return e.Err.Error()
}

// Withf returns a copy of the error with the formatted string appended.
func (e Error) Withf(format string, args ...any) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, fmt.Sprintf(format, args...)),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// WithErr returns a copy of the error with the underlying error appended.
func (e Error) WithErr(err error) Error {
	return Error{
		Err:        fmt.Errorf("%w: %v", e.Err, err.Error()),
		Code:       e.Code,
		HTTPstatus: e.HTTPstatus,
	}
}

// Write renders the error as the response envelope with its HTTP status.
func (e Error) Write(w http.ResponseWriter) {
	body, err := json.Marshal(Response{Code: e.Code, Message: e.Error()})
	if err != nil {
		log.Warnw("marshal error failed", "error", err.Error())
		http.Error(w, e.Error(), e.HTTPstatus)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(e.HTTPstatus)
	if _, err := w.Write(body); err != nil {
		log.Warnw("failed to write http response", "error", err.Error())
	}
}
