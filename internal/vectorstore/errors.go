package vectorstore

import (
	"errors"
	"fmt"
)

var (
	// ErrBackendUnavailable marks failures of the persistent backend.
	// It never crosses the VectorStore boundary; stores log it and fall back.
	ErrBackendUnavailable = errors.New("vectorstore: persistent backend unavailable")

	ErrDimensionMismatch = errors.New("vectorstore: vector dimension mismatch")
	ErrCountMismatch     = errors.New("vectorstore: chunk and embedding counts differ")
)

// BackendError wraps a persistent backend failure with the operation that failed
type BackendError struct {
	Op  string
	Err error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("vectorstore.%s: %v", e.Op, e.Err)
}

func (e *BackendError) Unwrap() error {
	return e.Err
}

// Is lets errors.Is(err, ErrBackendUnavailable) match any BackendError
func (e *BackendError) Is(target error) bool {
	return target == ErrBackendUnavailable
}

func backendError(op string, err error) error {
	if err == nil {
		return nil
	}
	return &BackendError{Op: op, Err: err}
}
