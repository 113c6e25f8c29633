// repl.go -- interactive STDIN pump, used when the process is attached to
// a terminal. A goroutine feeds STDIN lines into a channel, which is
// selected alongside a ctrl-c/SIGTERM signal channel.

package main

import (
	"bufio"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/opencoff/xhashdb"
)

func runRepl(store *xhashdb.Engine, wal *xhashdb.Wal, log *zap.SugaredLogger) {
	sess := newSession(store, wal, log)

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	lines := make(chan string)
	go func() {
		defer close(lines)
		scanner := bufio.NewScanner(os.Stdin)
		scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
		for scanner.Scan() {
			lines <- scanner.Text()
		}
	}()

	fmt.Println("Welcome to xhashdb!")
	defer fmt.Println("Goodbye!")

	for {
		select {
		case <-sigCh:
			sess.handleLine("EXIT")
			return
		case line, ok := <-lines:
			if !ok {
				sess.handleLine("EXIT")
				return
			}
			out, done := sess.handleLine(line)
			fmt.Println(out)
			if done {
				return
			}
		}
	}
}
