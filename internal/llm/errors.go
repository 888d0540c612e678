package llm

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/url"

	"google.golang.org/api/googleapi"
)

// ErrMissingAPIKey is returned when GEMINI_API_KEY is not set
var ErrMissingAPIKey = errors.New("GEMINI_API_KEY missing")

// ErrorKind classifies a Generate failure for the caller
type ErrorKind int

const (
	KindUnexpected ErrorKind = iota
	KindConfiguration
	KindHTTP
	KindNetwork
)

// Classify maps err to its kind. For KindHTTP it also returns the upstream
// status and message.
func Classify(err error) (ErrorKind, int, string) {
	if errors.Is(err, ErrMissingAPIKey) {
		return KindConfiguration, 0, ""
	}

	var gerr *googleapi.Error
	if errors.As(err, &gerr) {
		return KindHTTP, gerr.Code, gerr.Message
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return KindNetwork, 0, ""
	}
	var netErr net.Error
	if errors.As(err, &netErr) {
		return KindNetwork, 0, ""
	}
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return KindNetwork, 0, ""
	}

	return KindUnexpected, 0, ""
}

// StatusHint returns an operator-facing explanation for an upstream status
func StatusHint(status int) string {
	switch status {
	case 402:
		return "Payment required or billing/quotas not enabled for the Gemini API. Enable billing and access to the requested model."
	case 401, 403:
		return "Unauthorized/forbidden. Check GEMINI_API_KEY and API access permissions."
	case 404:
		return "Model not found. Use a valid Gemini model (e.g., 'gemini-1.5-pro')."
	default:
		return "Upstream LLM error."
	}
}

// StatusDetail formats the hint, status and upstream message into one line
func StatusDetail(status int, message string) string {
	detail := fmt.Sprintf("%s (%d).", StatusHint(status), status)
	if message != "" {
		detail += " " + message
	}
	return detail
}

func retryable(err error) bool {
	kind, status, _ := Classify(err)
	switch kind {
	case KindNetwork:
		return !errors.Is(err, context.DeadlineExceeded)
	case KindHTTP:
		return status == 429 || status >= 500
	default:
		return false
	}
}
