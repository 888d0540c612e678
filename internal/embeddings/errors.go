package embeddings

import (
	"errors"
	"fmt"
)

// ErrConfiguration is returned when the credential or endpoint required by the
// embedding service is unset. Callers use it to choose a degraded response.
var ErrConfiguration = errors.New("embeddings: service not configured")

// HTTPError is returned for non-2xx responses from the embedding service
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	if e.Body == "" {
		return fmt.Sprintf("embeddings: upstream returned HTTP %d", e.Status)
	}
	return fmt.Sprintf("embeddings: upstream returned HTTP %d: %s", e.Status, e.Body)
}

// NetworkError wraps transport failures (timeout, DNS, connection reset)
type NetworkError struct {
	Err error
}

func (e *NetworkError) Error() string {
	return fmt.Sprintf("embeddings: network error: %v", e.Err)
}

func (e *NetworkError) Unwrap() error {
	return e.Err
}

// FormatError is returned when the response cannot be parsed into one vector per chunk
type FormatError struct {
	Reason string
}

func (e *FormatError) Error() string {
	return "embeddings: unexpected response format: " + e.Reason
}

// IsConfigurationError reports whether err means the embedder is not configured
func IsConfigurationError(err error) bool {
	return errors.Is(err, ErrConfiguration)
}
