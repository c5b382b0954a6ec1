// Package shared holds the error taxonomy used across the service.
//
//nolint:revive // "shared" is an intentional package name for cross-cutting helpers.
package shared

import (
	"fmt"
	"strings"
)

// SessionExpiredMessage is reported when the stored refresh token is absent or
// was rejected. The connection is cleared and the user must reconnect.
const SessionExpiredMessage = "Session expired. Please reconnect your Notion workspace."

// ConfigurationError reports server settings required by an operation that are not set.
type ConfigurationError struct {
	Missing []string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("notion oauth not configured on server (missing %s)", strings.Join(e.Missing, ", "))
}

// RequireConfig returns a ConfigurationError naming every empty value, or nil.
// pairs alternates name, value.
func RequireConfig(pairs ...string) error {
	var missing []string
	for i := 0; i+1 < len(pairs); i += 2 {
		if pairs[i+1] == "" {
			missing = append(missing, pairs[i])
		}
	}
	if len(missing) == 0 {
		return nil
	}
	return &ConfigurationError{Missing: missing}
}

// InputError reports a malformed client request.
type InputError struct {
	Message string
}

func (e *InputError) Error() string {
	return e.Message
}

// UpstreamError carries a third-party rejection so it can be passed through verbatim.
type UpstreamError struct {
	Status int
	Body   []byte
}

func (e *UpstreamError) Error() string {
	return fmt.Sprintf("upstream returned status %d: %s", e.Status, truncateForError(e.Body))
}

// ParseError reports model output that is not valid JSON or violates the feedback schema.
type ParseError struct {
	Raw string
	Err error
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("parse model output: %v", e.Err)
}

func (e *ParseError) Unwrap() error {
	return e.Err
}

func truncateForError(b []byte) string {
	const limit = 256
	if len(b) > limit {
		return string(b[:limit]) + "..."
	}
	return string(b)
}
