/*
Copyright 2025 Chainguard, Inc.
SPDX-License-Identifier: Apache-2.0
*/

package transport

import (
	"fmt"
	"net/http"
	"slices"
)

// TransportError is returned when the HTTP exchange itself failed
// (connection refused, DNS failure, timeout, ...).
type TransportError struct {
	Method string
	URL    string
	Err    error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: %v", e.Method, e.URL, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// ClientError is returned when the build server rejected the request with a
// 400 and a structured message.
type ClientError struct {
	StatusCode int
	Message    string
}

func (e *ClientError) Error() string {
	return e.Message
}

// ServerError is returned for any other status the caller did not accept.
type ServerError struct {
	StatusCode int
	Message    string
}

func (e *ServerError) Error() string {
	msg := fmt.Sprintf("asset build server responded with unknown error. http status %d", e.StatusCode)
	if e.Message != "" {
		msg += ". original message: " + e.Message
	}
	return msg
}

// CheckStatus maps resp onto the error taxonomy. Statuses listed in ok are
// successes; with no ok statuses only 200 is.
func CheckStatus(resp *Response, ok ...int) error {
	if len(ok) == 0 {
		ok = []int{http.StatusOK}
	}
	if slices.Contains(ok, resp.StatusCode) {
		return nil
	}
	if resp.StatusCode == http.StatusBadRequest {
		msg := resp.Message()
		if msg == "" {
			msg = http.StatusText(http.StatusBadRequest)
		}
		return &ClientError{StatusCode: resp.StatusCode, Message: msg}
	}
	return &ServerError{StatusCode: resp.StatusCode, Message: resp.Message()}
}
