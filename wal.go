// wal.go -- the in-memory, non-durable write-ahead log for interactive
// transactions.
//
// A transaction is nothing more than a UUID naming an ordered list of
// staged mutations. Nothing here ever touches disk; the only durable state
// is the hash engine itself, written by Engine.Flush/Engine.Close.

package xhashdb

import (
	"sync"

	"github.com/google/uuid"
)

// MutationKind distinguishes a staged Put from a staged Delete.
type MutationKind int

const (
	MutationPut MutationKind = iota
	MutationDelete
)

// Mutation is one staged write, not yet applied to the hash engine.
type Mutation struct {
	Kind  MutationKind
	Key   string
	Value []byte
}

// Wal holds, per transaction ID, the ordered list of mutations staged
// against it since Begin.
type Wal struct {
	mu   sync.Mutex
	txns map[string][]Mutation
}

// NewWal constructs an empty WAL.
func NewWal() *Wal {
	return &Wal{txns: make(map[string][]Mutation)}
}

// Begin allocates a fresh transaction ID and an empty mutation list. A
// BEGIN issued while already inside a transaction always starts a new,
// independent transaction rather than nesting.
func (w *Wal) Begin() string {
	w.mu.Lock()
	defer w.mu.Unlock()

	tid := uuid.NewString()
	w.txns[tid] = nil
	return tid
}

// Stage appends a mutation to tid's list. Returns ErrCodeUnknownTransaction
// if tid is not open.
func (w *Wal) Stage(tid string, m Mutation) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	ms, ok := w.txns[tid]
	if !ok {
		return NewError(ErrCodeUnknownTransaction, "unknown transaction", nil).WithDetail("tid", tid)
	}
	w.txns[tid] = append(ms, m)
	return nil
}

// WalLookupKind classifies what Wal.Get found for a key within a
// transaction: no staged mutation at all, a staged value, or a staged
// tombstone. A tombstone is a distinct outcome from "no match" -- it means
// the key was deleted within this transaction and must read back as
// absent, not fall through to the hash engine's on-disk value.
type WalLookupKind int

const (
	WalLookupNone WalLookupKind = iota
	WalLookupValue
	WalLookupTombstone
)

// Get implements read-your-writes: it scans tid's staged mutations from
// newest to oldest and classifies the first one naming key. open is false
// if tid itself is not a live transaction. When open is true and kind is
// WalLookupNone, no staged mutation mentions key and the caller must fall
// through to the hash engine.
func (w *Wal) Get(tid, key string) (kind WalLookupKind, value []byte, open bool) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ms, open := w.txns[tid]
	if !open {
		return WalLookupNone, nil, false
	}
	for i := len(ms) - 1; i >= 0; i-- {
		m := ms[i]
		if m.Key != key {
			continue
		}
		if m.Kind == MutationDelete {
			return WalLookupTombstone, nil, true
		}
		return WalLookupValue, m.Value, true
	}
	return WalLookupNone, nil, true
}

// Commit removes and returns tid's staged mutations, in insertion order,
// for the caller to apply to the hash engine. Returns
// ErrCodeUnknownTransaction if tid is not open.
func (w *Wal) Commit(tid string) ([]Mutation, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	ms, ok := w.txns[tid]
	if !ok {
		return nil, NewError(ErrCodeUnknownTransaction, "unknown transaction", nil).WithDetail("tid", tid)
	}
	delete(w.txns, tid)
	return ms, nil
}

// Rollback discards tid's staged mutations without applying them. Returns
// ErrCodeUnknownTransaction if tid is not open.
func (w *Wal) Rollback(tid string) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if _, ok := w.txns[tid]; !ok {
		return NewError(ErrCodeUnknownTransaction, "unknown transaction", nil).WithDetail("tid", tid)
	}
	delete(w.txns, tid)
	return nil
}
