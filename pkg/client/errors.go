package client

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// TransportError means the request never got a usable response: connection
// refused, DNS failure, or the connection dropped before any frame arrived.
type TransportError struct {
	Op  string
	Err error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s: %v", e.Op, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

// APIError is a non-200 response from the backend.
type APIError struct {
	StatusCode int
	Message    string
	Body       string
}

func (e *APIError) Error() string {
	msg := strings.TrimSpace(e.Message)
	if msg == "" {
		msg = "unknown API error"
	}
	if e.StatusCode > 0 {
		return fmt.Sprintf("API error (%d): %s", e.StatusCode, msg)
	}
	return "API error: " + msg
}

// ClassifyAPIError converts a non-200 response body into a typed error.
func ClassifyAPIError(statusCode int, payload string) error {
	payload = strings.TrimSpace(payload)
	message := extractAPIErrorMessage(payload)
	if message == "" {
		message = payload
	}
	return &APIError{
		StatusCode: statusCode,
		Message:    message,
		Body:       payload,
	}
}

// IsTransportFailure reports whether err means the backend was never
// reached, or dropped the connection mid-request.
func IsTransportFailure(err error) bool {
	var te *TransportError
	return errors.As(err, &te)
}

// IsAPIError reports whether err is a backend-reported HTTP failure.
func IsAPIError(err error) bool {
	var ae *APIError
	return errors.As(err, &ae)
}

func extractAPIErrorMessage(payload string) string {
	if payload == "" {
		return ""
	}

	var decoded map[string]any
	if err := json.Unmarshal([]byte(payload), &decoded); err != nil {
		return ""
	}

	// {"error":{"message":"..."}} and {"error":"..."}
	if rawErr, ok := decoded["error"]; ok {
		switch v := rawErr.(type) {
		case string:
			return strings.TrimSpace(v)
		case map[string]any:
			if message, ok := v["message"].(string); ok {
				return strings.TrimSpace(message)
			}
			if detail, ok := v["detail"].(string); ok {
				return strings.TrimSpace(detail)
			}
		}
	}

	if message, ok := decoded["message"].(string); ok {
		return strings.TrimSpace(message)
	}
	if detail, ok := decoded["detail"].(string); ok {
		return strings.TrimSpace(detail)
	}

	return ""
}
