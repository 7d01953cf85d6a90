package controller

import (
	"errors"
	"strings"
)

// ServerError is an explicit backend-reported failure delivered as an
// error frame on an otherwise healthy stream.
type ServerError struct {
	Message string
}

func (e *ServerError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "stream error"
	}
	return "server error: " + msg
}

// IsServerSignaled reports whether err came from an error frame.
func IsServerSignaled(err error) bool {
	var se *ServerError
	return errors.As(err, &se)
}
