// command.go -- the StorageCommand/CommandOutput sum types and the single
// routing function that dispatches a parsed command to either the WAL or
// the hash engine, depending on whether a transaction is active.
//
// Command and output are modeled as sum types via interfaces with an
// unexported marker method, and the active transaction ID is threaded as a
// plain string (empty string means "no active transaction").

package xhashdb

import "fmt"

// StorageCommand is one of GetCommand, PutCommand, DeleteCommand,
// BeginCommand, CommitCommand, RollbackCommand, ExitCommand.
// See Execute for the dispatch rules applied to each.
type StorageCommand interface {
	isStorageCommand()
}

type GetCommand struct{ Key string }
type PutCommand struct {
	Key   string
	Value []byte
}
type DeleteCommand struct{ Key string }
type BeginCommand struct{}
type CommitCommand struct{}
type RollbackCommand struct{}
type ExitCommand struct{}

func (GetCommand) isStorageCommand()      {}
func (PutCommand) isStorageCommand()      {}
func (DeleteCommand) isStorageCommand()   {}
func (BeginCommand) isStorageCommand()    {}
func (CommitCommand) isStorageCommand()   {}
func (RollbackCommand) isStorageCommand() {}
func (ExitCommand) isStorageCommand()     {}

// CommandOutput is the result of executing a StorageCommand, rendered to
// the line-oriented wire format via String().
type CommandOutput interface {
	fmt.Stringer
	isCommandOutput()
}

type FoundOutput struct{ Value []byte }
type NotFoundOutput struct{ Key string }
type PutOutput struct{}
type DeleteOutput struct{}
type BeginOutput struct{ TxID string }
type CommitOutput struct{}
type RollbackOutput struct{}
type ExitOutput struct{}

func (FoundOutput) isCommandOutput()    {}
func (NotFoundOutput) isCommandOutput() {}
func (PutOutput) isCommandOutput()      {}
func (DeleteOutput) isCommandOutput()   {}
func (BeginOutput) isCommandOutput()    {}
func (CommitOutput) isCommandOutput()   {}
func (RollbackOutput) isCommandOutput() {}
func (ExitOutput) isCommandOutput()     {}

func (o FoundOutput) String() string    { return "FOUND " + string(o.Value) }
func (o NotFoundOutput) String() string { return "NOT_FOUND " + o.Key }
func (PutOutput) String() string        { return "PUT" }
func (DeleteOutput) String() string     { return "DELETE" }
func (o BeginOutput) String() string    { return "BEGIN " + o.TxID }
func (CommitOutput) String() string     { return "COMMIT" }
func (RollbackOutput) String() string   { return "ROLLBACK" }
func (ExitOutput) String() string       { return "EXIT" }

// Execute dispatches cmd against store and wal. txID is the empty string
// when no transaction is active for the calling session; otherwise it
// names an open WAL transaction.
//
// Routing rule: with an active transaction, GET consults the WAL first and
// only falls through to the engine if the WAL has no staged mutation for
// the key; PUT/DELETE are staged in the WAL only; BEGIN always starts a
// fresh transaction (a nested BEGIN simply starts an independent one);
// COMMIT applies every staged mutation to the engine in insertion order,
// returning the first error encountered without undoing prior mutations;
// ROLLBACK discards the staged list; EXIT flushes the engine and ends this
// session only, leaving the engine open for any other session sharing it.
func Execute(store *Engine, wal *Wal, cmd StorageCommand, txID string) (CommandOutput, error) {
	if txID != "" {
		switch c := cmd.(type) {
		case GetCommand:
			kind, value, open := wal.Get(txID, c.Key)
			if !open {
				return nil, NewError(ErrCodeUnknownTransaction, "unknown transaction", nil).WithDetail("tid", txID)
			}
			switch kind {
			case WalLookupValue:
				return FoundOutput{Value: value}, nil
			case WalLookupTombstone:
				return NotFoundOutput{Key: c.Key}, nil
			case WalLookupNone:
				// No staged mutation for this key: fall through to the
				// engine below.
			}
		case PutCommand:
			if err := wal.Stage(txID, Mutation{Kind: MutationPut, Key: c.Key, Value: c.Value}); err != nil {
				return nil, err
			}
			return PutOutput{}, nil
		case DeleteCommand:
			if err := wal.Stage(txID, Mutation{Kind: MutationDelete, Key: c.Key}); err != nil {
				return nil, err
			}
			return DeleteOutput{}, nil
		}
	}

	switch c := cmd.(type) {
	case GetCommand:
		value, found, err := store.Get(c.Key)
		if err != nil {
			return nil, err
		}
		if !found {
			return NotFoundOutput{Key: c.Key}, nil
		}
		return FoundOutput{Value: value}, nil

	case PutCommand:
		if err := store.Put(c.Key, c.Value); err != nil {
			return nil, err
		}
		return PutOutput{}, nil

	case DeleteCommand:
		if err := store.Delete(c.Key); err != nil {
			return nil, err
		}
		return DeleteOutput{}, nil

	case BeginCommand:
		return BeginOutput{TxID: wal.Begin()}, nil

	case CommitCommand:
		muts, err := wal.Commit(txID)
		if err != nil {
			return nil, err
		}
		for _, m := range muts {
			switch m.Kind {
			case MutationPut:
				if err := store.Put(m.Key, m.Value); err != nil {
					return nil, err
				}
			case MutationDelete:
				if err := store.Delete(m.Key); err != nil {
					return nil, err
				}
			}
		}
		return CommitOutput{}, nil

	case RollbackCommand:
		if err := wal.Rollback(txID); err != nil {
			return nil, err
		}
		return RollbackOutput{}, nil

	case ExitCommand:
		// A client-issued EXIT only flushes the engine and ends this
		// session; it never closes the shared engine out from under
		// other concurrently connected sessions. Real process shutdown
		// is the owning process's responsibility.
		if err := store.Flush(); err != nil {
			return nil, err
		}
		return ExitOutput{}, nil

	default:
		return nil, NewError(ErrCodeParse, "unrecognized command", nil)
	}
}
