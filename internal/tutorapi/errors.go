package tutorapi

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

// Kind classifies a submission failure for user-facing copy.
type Kind string

const (
	KindInvalidFormat     Kind = "invalid-format"
	KindUnauthorized      Kind = "unauthorized"
	KindUnprocessable     Kind = "unprocessable"
	KindServer            Kind = "server"
	KindNetwork           Kind = "network"
	KindMalformedResponse Kind = "malformed-response"
	KindGeneric           Kind = "generic"
)

// SubmissionError is a classified tutor API failure.
type SubmissionError struct {
	Kind   Kind
	Status int
	Detail string
	Err    error
}

func (e *SubmissionError) Error() string {
	switch {
	case e.Status != 0:
		return fmt.Sprintf("tutor api %s (status %d): %s", e.Kind, e.Status, e.Detail)
	case e.Err != nil:
		return fmt.Sprintf("tutor api %s: %v", e.Kind, e.Err)
	default:
		return fmt.Sprintf("tutor api %s: %s", e.Kind, e.Detail)
	}
}

func (e *SubmissionError) Unwrap() error { return e.Err }

// Retryable is false only for unauthorized, which needs re-authentication.
func (e *SubmissionError) Retryable() bool {
	return e.Kind != KindUnauthorized
}

// KindOf extracts the submission kind, defaulting to KindGeneric.
func KindOf(err error) Kind {
	var subErr *SubmissionError
	if errors.As(err, &subErr) {
		return subErr.Kind
	}
	return KindGeneric
}

// kindForStatus maps a non-2xx status onto the taxonomy.
func kindForStatus(status int) Kind {
	switch {
	case status == http.StatusBadRequest:
		return KindInvalidFormat
	case status == http.StatusUnauthorized:
		return KindUnauthorized
	case status == http.StatusUnprocessableEntity:
		return KindUnprocessable
	case status >= 500:
		return KindServer
	default:
		return KindGeneric
	}
}

// statusError builds the error for a non-2xx response. The detail comes from
// a {"detail": ...} body when present, else "HTTP <status>: <statusText>".
func statusError(status int, body []byte) *SubmissionError {
	detail := errorDetail(body)
	if detail == "" {
		detail = fmt.Sprintf("HTTP %d: %s", status, http.StatusText(status))
	}
	return &SubmissionError{Kind: kindForStatus(status), Status: status, Detail: detail}
}

func errorDetail(body []byte) string {
	var payload struct {
		Detail json.RawMessage `json:"detail"`
	}
	if err := json.Unmarshal(body, &payload); err != nil || len(payload.Detail) == 0 {
		return ""
	}

	var text string
	if err := json.Unmarshal(payload.Detail, &text); err == nil {
		return strings.TrimSpace(text)
	}

	// Validation errors arrive as [{"msg": "...", ...}].
	var items []struct {
		Msg string `json:"msg"`
	}
	if err := json.Unmarshal(payload.Detail, &items); err == nil {
		msgs := make([]string, 0, len(items))
		for _, item := range items {
			if m := strings.TrimSpace(item.Msg); m != "" {
				msgs = append(msgs, m)
			}
		}
		return strings.Join(msgs, "; ")
	}
	return ""
}
