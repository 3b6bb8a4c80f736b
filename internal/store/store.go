// Package store provides the transactional key-document store the rest of
// the system runs on: opaque string ids grouped into collections, JSON
// document values, and atomic multi-document transactions.
package store

import (
	"context"
	"encoding/json"
	"errors"
)

var (
	// ErrNotFound reports a missing document.
	ErrNotFound = errors.New("document not found")
	// ErrTxConflict reports a transaction that kept losing against
	// concurrent writers after retries. Transient; callers may retry.
	ErrTxConflict = errors.New("transaction conflict")
	// ErrUnavailable reports a store that cannot be reached.
	ErrUnavailable = errors.New("store unavailable")
)

type Op string

const (
	OpPut    Op = "put"
	OpDelete Op = "delete"
)

// Event describes one committed document change, fanned out to subscribers
// so terminals can refresh their snapshots.
type Event struct {
	Collection string `json:"collection"`
	ID         string `json:"id"`
	Op         Op     `json:"op"`
}

type Doc struct {
	ID   string
	Data json.RawMessage
}

// Tx is the view inside RunTx. Reads see prior writes of the same
// transaction; nothing is visible outside until RunTx returns nil.
type Tx interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	List(ctx context.Context, collection string) ([]Doc, error)
	Put(ctx context.Context, collection, id string, doc any) error
	Delete(ctx context.Context, collection, id string) error
}

// Store is the backing-store contract. Implementations must guarantee that
// RunTx applies all of fn's writes atomically or none of them, with
// serializable isolation against concurrent transactions.
type Store interface {
	Get(ctx context.Context, collection, id string) (json.RawMessage, error)
	List(ctx context.Context, collection string) ([]Doc, error)
	RunTx(ctx context.Context, fn func(tx Tx) error) error
	Ping(ctx context.Context) error
	Close()
}

// Notifier receives the change events of each committed transaction.
type Notifier interface {
	PublishEvents(events []Event) error
}
