package storage

import (
	"errors"

	"github.com/cuemby/zerocon/pkg/store"
)

// ErrNotFound is returned when no view was saved for a resource
var ErrNotFound = errors.New("view state not found")

// Store defines the interface for persisted view state. A view is the
// filter and page a resource was last shown with.
type Store interface {
	SaveView(resource string, view store.View) error
	LoadView(resource string) (store.View, error)
	DeleteView(resource string) error
	ListViews() (map[string]store.View, error)

	// BindServer ties the saved views to one console. Views saved for a
	// different server are dropped.
	BindServer(server string) error

	Close() error
}
