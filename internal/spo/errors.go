// Package spo provides an HTTP client for the SharePoint Online REST API:
// app-only token acquisition, form digest retrieval, and the file write
// calls used for one-shot and chunked uploads.
package spo

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"
)

// Sentinel errors for HTTP status code classification.
// Use errors.Is(err, spo.ErrForbidden) to check.
var (
	ErrBadRequest   = errors.New("spo: bad request")
	ErrUnauthorized = errors.New("spo: unauthorized")
	ErrForbidden    = errors.New("spo: forbidden")
	ErrNotFound     = errors.New("spo: not found")
	ErrConflict     = errors.New("spo: conflict")
	ErrTooLarge     = errors.New("spo: request entity too large")
	ErrThrottled    = errors.New("spo: throttled")
	ErrLocked       = errors.New("spo: resource locked")
	ErrServerError  = errors.New("spo: server error")

	// ErrMalformedResponse is returned when a 2xx body cannot be decoded.
	ErrMalformedResponse = errors.New("spo: malformed response")

	errMissingUploadID = errors.New("spo: endpoint has no upload id")
)

// AuthError reports a failure to obtain an access token or form digest.
type AuthError struct {
	Op         string // "token" or "contextinfo"
	StatusCode int    // 0 when no HTTP response was received
	Message    string
	Err        error

	retryAfter time.Duration // from a Retry-After header, zero if absent
}

func (e *AuthError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("spo: %s failed: HTTP %d: %s", e.Op, e.StatusCode, e.Message)
	}

	if e.Err != nil {
		return fmt.Sprintf("spo: %s failed: %v", e.Op, e.Err)
	}

	return fmt.Sprintf("spo: %s failed: %s", e.Op, e.Message)
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

// TransferError reports a file write rejected by SharePoint. Code and Message
// carry the odata error body when SharePoint sent one.
type TransferError struct {
	Op         string
	StatusCode int
	RequestID  string
	Code       string
	Message    string
	Err        error // sentinel, for errors.Is()
}

func (e *TransferError) Error() string {
	msg := e.Message
	if e.Code != "" {
		msg = e.Code + ": " + e.Message
	}

	if e.RequestID != "" {
		return fmt.Sprintf("spo: %s: HTTP %d (request-id: %s): %s", e.Op, e.StatusCode, e.RequestID, msg)
	}

	return fmt.Sprintf("spo: %s: HTTP %d: %s", e.Op, e.StatusCode, msg)
}

func (e *TransferError) Unwrap() error {
	return e.Err
}

// odataError is the verbose odata error envelope:
//
//	{"error":{"code":"-2130575338, Microsoft.SharePoint.SPException","message":{"lang":"en-US","value":"..."}}}
type odataError struct {
	Error struct {
		Code    string `json:"code"`
		Message struct {
			Lang  string `json:"lang"`
			Value string `json:"value"`
		} `json:"message"`
	} `json:"error"`
}

// parseODataError extracts code and message from an error body. Bodies that
// are not odata JSON are returned verbatim as the message.
func parseODataError(body []byte) (code, message string) {
	var oe odataError
	if err := json.Unmarshal(body, &oe); err != nil || (oe.Error.Code == "" && oe.Error.Message.Value == "") {
		return "", string(body)
	}

	return oe.Error.Code, oe.Error.Message.Value
}

// classifyStatus maps an HTTP status code to a sentinel error.
// Returns nil for codes without a dedicated sentinel.
func classifyStatus(code int) error {
	switch code {
	case http.StatusBadRequest:
		return ErrBadRequest
	case http.StatusUnauthorized:
		return ErrUnauthorized
	case http.StatusForbidden:
		return ErrForbidden
	case http.StatusNotFound:
		return ErrNotFound
	case http.StatusConflict:
		return ErrConflict
	case http.StatusRequestEntityTooLarge:
		return ErrTooLarge
	case http.StatusTooManyRequests:
		return ErrThrottled
	case http.StatusLocked:
		return ErrLocked
	default:
		if code >= http.StatusInternalServerError {
			return ErrServerError
		}

		return nil
	}
}

// isRetryable reports whether the given HTTP status code should be retried.
// Only token and digest fetches retry; file writes never do.
func isRetryable(code int) bool {
	switch code {
	case http.StatusRequestTimeout,
		http.StatusTooManyRequests,
		http.StatusInternalServerError,
		http.StatusBadGateway,
		http.StatusServiceUnavailable,
		http.StatusGatewayTimeout:
		return true
	default:
		// 509 Bandwidth Limit Exceeded (SharePoint).
		const statusBandwidthExceeded = 509
		return code == statusBandwidthExceeded
	}
}
