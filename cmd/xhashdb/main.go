// main.go -- CLI entry point. Detects interactive terminal vs. piped
// script the same way, and adds a TCP-server mode, all wired through
// github.com/opencoff/pflag and structured logging via go.uber.org/zap.

package main

import (
	"bufio"
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	flag "github.com/opencoff/pflag"
	"go.uber.org/zap"

	"github.com/opencoff/xhashdb"
)

func main() {
	var (
		dirFile     string
		bucketsFile string
		listen      string
		serve       bool
		verbose     bool
	)

	usage := fmt.Sprintf("%s [options]", os.Args[0])
	flag.StringVarP(&dirFile, "dir-file", "d", "hash_dir.db", "Path to the `FILE` holding the directory")
	flag.StringVarP(&bucketsFile, "buckets-file", "b", "hash_data.db", "Path to the `FILE` holding bucket pages")
	flag.StringVarP(&listen, "listen", "l", defaultListenAddr, "`ADDR` to listen on in --serve mode")
	flag.BoolVarP(&serve, "serve", "s", false, "Run the TCP line server instead of the REPL/script reader")
	flag.BoolVarP(&verbose, "verbose", "v", false, "Enable debug-level logging")
	flag.Usage = func() {
		fmt.Printf("xhashdb - persistent key/value store on extendible hashing\nUsage: %s\n", usage)
		flag.PrintDefaults()
	}
	flag.Parse()

	log := newLogger(verbose)
	defer log.Sync()

	store, err := xhashdb.Open(dirFile, bucketsFile, xhashdb.WithLogger(log))
	if err != nil {
		die(log, "open engine", err)
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Errorw("close engine", "error", err)
		}
	}()
	wal := xhashdb.NewWal()

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	switch {
	case serve:
		if err := runServer(ctx, listen, store, wal, log); err != nil {
			die(log, "run server", err)
		}
	case isTerminal(os.Stdin):
		runRepl(store, wal, log)
	default:
		runScript(os.Stdin, store, wal, log)
	}
}

func newLogger(verbose bool) *zap.SugaredLogger {
	cfg := zap.NewProductionConfig()
	if verbose {
		cfg.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
	}
	l, err := cfg.Build()
	if err != nil {
		l = zap.NewNop()
	}
	return l.Sugar()
}

func die(log *zap.SugaredLogger, msg string, err error) {
	log.Errorw(msg, "error", err)
	os.Exit(1)
}

// runScript feeds every line from r through a session, printing each
// response. Used for piped/non-interactive input.
func runScript(r *os.File, store *xhashdb.Engine, wal *xhashdb.Wal, log *zap.SugaredLogger) {
	sess := newSession(store, wal, log)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)
	for scanner.Scan() {
		out, done := sess.handleLine(scanner.Text())
		fmt.Println(out)
		if done {
			return
		}
	}
	sess.handleLine("EXIT")
}
