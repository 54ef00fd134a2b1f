// Package backend builds the transaction store the tracker UI runs on.
package backend

import (
	"context"

	"budget/internal/services"
)

// CleanupFunc releases what a backend holds open.
type CleanupFunc func() error

// ReadyFunc reports whether the backend can serve requests.
type ReadyFunc func(ctx context.Context) error

// BackendResult contains the store plus its readiness check and cleanup.
// Ready and Cleanup are never nil.
type BackendResult struct {
	Store   services.TransactionStore
	Ready   ReadyFunc
	Cleanup CleanupFunc
}

// Factory creates backends based on configuration
type Factory interface {
	CreateBackend(ctx context.Context, config Config) (*BackendResult, error)
}

// BackendType represents the type of backend
type BackendType string

const (
	HTTPBackend   BackendType = "http"
	SQLiteBackend BackendType = "sqlite"
	MemoryBackend BackendType = "memory"
)

// String implements fmt.Stringer
func (bt BackendType) String() string {
	return string(bt)
}

// IsValid returns true if the backend type is valid
func (bt BackendType) IsValid() bool {
	switch bt {
	case HTTPBackend, SQLiteBackend, MemoryBackend:
		return true
	default:
		return false
	}
}
