package paypal

import (
	"errors"
	"fmt"
)

// ErrMissingCredentials means the client id or secret is not configured.
// Returned before any network call is attempted.
var ErrMissingCredentials = errors.New("paypal credentials not configured")

// TokenError reports a failed client-credentials exchange. Status and Code
// carry the processor's response unchanged.
type TokenError struct {
	Status      int
	Code        string
	Description string
}

func (e *TokenError) Error() string {
	if e.Description != "" {
		return fmt.Sprintf("token request failed: status %d (%s): %s", e.Status, e.Code, e.Description)
	}
	return fmt.Sprintf("token request failed: status %d (%s)", e.Status, e.Code)
}

// FieldIssue is one entry of the processor's per-field issue list.
type FieldIssue struct {
	Field       string `json:"field,omitempty"`
	Issue       string `json:"issue,omitempty"`
	Description string `json:"description,omitempty"`
}

// RejectedError means the processor declined an operation. The status code and
// the structured issue list are preserved verbatim for client display.
type RejectedError struct {
	Status  int
	Code    string // processor error name, e.g. UNPROCESSABLE_ENTITY
	Message string
	DebugID string
	Details []FieldIssue
}

func (e *RejectedError) Error() string {
	return fmt.Sprintf("processor rejected: status %d (%s): %s [debug_id=%s]", e.Status, e.Code, e.Message, e.DebugID)
}
