package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

var (
	// ErrTransport wraps failures where no response was received.
	ErrTransport = errors.New("api request failed")
	// ErrDecode is returned when a success body cannot be decoded.
	ErrDecode = errors.New("failed to decode response")
)

// Error is a rejection reported by the server. Message is shown verbatim.
type Error struct {
	StatusCode int
	Message    string
	Code       string
}

func (e *Error) Error() string {
	return e.Message
}

// errorBody covers the error shapes the API produces.
type errorBody struct {
	Error   string `json:"error"`
	Message string `json:"message"`
	Msg     string `json:"msg"`
	Code    string `json:"code"`
}

func newError(status int, body []byte) *Error {
	e := &Error{StatusCode: status}
	var eb errorBody
	if err := json.Unmarshal(body, &eb); err == nil {
		switch {
		case eb.Error != "":
			e.Message = eb.Error
		case eb.Message != "":
			e.Message = eb.Message
		case eb.Msg != "":
			e.Message = eb.Msg
		}
		e.Code = eb.Code
	}
	if e.Message == "" {
		e.Message = strings.TrimSpace(string(body))
	}
	if e.Message == "" || strings.HasPrefix(e.Message, "<") {
		e.Message = fmt.Sprintf("%d %s", status, http.StatusText(status))
	}
	return e
}

// MessageOf returns the server message carried by err, or fallback when the
// failure has no structured message (transport or decode failures).
func MessageOf(err error, fallback string) string {
	var apiErr *Error
	if errors.As(err, &apiErr) && apiErr.Message != "" {
		return apiErr.Message
	}
	return fallback
}

// StatusOf returns the HTTP status of a server rejection, or 0.
func StatusOf(err error) int {
	var apiErr *Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode
	}
	return 0
}

// IsNotFound reports a 404 rejection.
func IsNotFound(err error) bool { return StatusOf(err) == http.StatusNotFound }

// IsUnauthorized reports a 401 rejection.
func IsUnauthorized(err error) bool { return StatusOf(err) == http.StatusUnauthorized }
