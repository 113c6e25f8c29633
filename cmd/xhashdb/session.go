// session.go -- one session's worth of state: the currently active
// transaction ID, if any, shared by both the REPL and each TCP connection.
//
// Session-to-transaction binding lives here, not in the engine or the WAL:
// the WAL is keyed purely by transaction ID, and it is this type's job to
// remember which ID, if any, belongs to the session issuing the next
// command.

package main

import (
	"go.uber.org/zap"

	"github.com/opencoff/xhashdb"
)

type session struct {
	store *xhashdb.Engine
	wal   *xhashdb.Wal
	log   *zap.SugaredLogger

	txID string
}

func newSession(store *xhashdb.Engine, wal *xhashdb.Wal, log *zap.SugaredLogger) *session {
	return &session{store: store, wal: wal, log: log}
}

// handleLine parses and executes one input line, returning the text to
// write back to the client (never including the trailing newline) and
// whether the session should now close (an EXIT command succeeded, or the
// engine returned a fatal error).
func (s *session) handleLine(line string) (string, bool) {
	cmd, err := parseLine(line)
	if err != nil {
		return "ERROR " + err.Error(), false
	}

	out, err := xhashdb.Execute(s.store, s.wal, cmd, s.txID)
	if err != nil {
		if xerr, ok := err.(*xhashdb.Error); ok {
			s.log.Errorw("command failed", "line", line, "code", xerr.Code(), "error", err)
			if xerr.IsFatal() {
				return "ERROR " + err.Error(), true
			}
		}
		return "ERROR " + err.Error(), false
	}

	switch o := out.(type) {
	case xhashdb.BeginOutput:
		s.txID = o.TxID
	case xhashdb.CommitOutput, xhashdb.RollbackOutput:
		s.txID = ""
	}

	_, isExit := cmd.(xhashdb.ExitCommand)
	return out.String(), isExit
}
