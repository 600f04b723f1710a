package hindex

import (
	"errors"
	"fmt"

	"github.com/hupe1980/hindex/model"
)

var (
	// ErrClosed is returned when an operation is attempted after Close.
	ErrClosed = errors.New("index is closed")

	// ErrAlreadyPopulated is returned on a second attempt to populate a
	// single-shot index.
	ErrAlreadyPopulated = errors.New("index already populated")

	// ErrUninitialized is returned when a read is attempted before the
	// required type metadata has been persisted or loaded.
	ErrUninitialized = errors.New("index not initialized")
)

// ErrUnsupportedRequest indicates a predicate shape the index cannot answer,
// such as a range lookup on a bitmap index. Callers should fall back to an
// unindexed scan.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ErrUnsupportedRequest struct {
	Op    model.Operator
	cause error
}

// NewErrUnsupportedRequest builds an ErrUnsupportedRequest for op.
func NewErrUnsupportedRequest(op model.Operator) *ErrUnsupportedRequest {
	return &ErrUnsupportedRequest{Op: op}
}

func (e *ErrUnsupportedRequest) Error() string {
	return fmt.Sprintf("unsupported request: %v", e.Op)
}

func (e *ErrUnsupportedRequest) Unwrap() error { return e.cause }
