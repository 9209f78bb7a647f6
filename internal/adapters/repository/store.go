// Package repository provides the two-table key-value store used for accounts and leaderboard entries.
package repository

import "context"

// Table names one of the two record families.
type Table string

// Tables managed by the store.
const (
	// Accounts maps a player id to a single account record.
	Accounts Table = "accounts"
	// Leaderboard maps a composite key to one or more entry records,
	// ordered by insertion.
	Leaderboard Table = "leaderboard"
)

// Reader exposes the read half of the store contract.
type Reader interface {
	// Get returns the first value stored under key.
	Get(ctx context.Context, table Table, key string) ([]byte, bool, error)
	// GetAll returns every value under key in insertion order.
	// An empty key scans the whole table.
	GetAll(ctx context.Context, table Table, key string) ([][]byte, error)
}

// Tx is a read-write view used inside Update.
type Tx interface {
	Reader
	// Put upserts an account, or appends/replaces a leaderboard value
	// depending on the multi-score setting.
	Put(ctx context.Context, table Table, key string, value []byte) error
}

// Store provides transactional access to the accounts and leaderboard tables.
// Get, GetAll and Put each run in their own transaction.
type Store interface {
	Tx

	// Count returns the number of values stored in table.
	Count(ctx context.Context, table Table) (int, error)

	// View runs fn in a read-only transaction that never blocks writers.
	View(ctx context.Context, fn func(Reader) error) error

	// Update runs fn in a single write transaction. The transaction commits
	// when fn returns nil and rolls back otherwise.
	Update(ctx context.Context, fn func(Tx) error) error

	// Close releases the underlying database handles.
	Close() error
}
