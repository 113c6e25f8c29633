// server.go -- the TCP line server: one goroutine per connection, each
// holding its own session (transaction) state, all funneling through the
// engine and WAL's own internal locks -- the engine's own mutex already
// serializes access, so no separate dispatch task is needed here.

package main

import (
	"bufio"
	"context"
	"net"

	"go.uber.org/zap"

	"github.com/opencoff/xhashdb"
)

const defaultListenAddr = "127.0.0.1:5476"

func runServer(ctx context.Context, addr string, store *xhashdb.Engine, wal *xhashdb.Wal, log *zap.SugaredLogger) error {
	lc := net.ListenConfig{}
	ln, err := lc.Listen(ctx, "tcp", addr)
	if err != nil {
		return err
	}
	log.Infow("listening", "addr", addr)

	go func() {
		<-ctx.Done()
		ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			select {
			case <-ctx.Done():
				return nil
			default:
				log.Errorw("accept failed", "error", err)
				return err
			}
		}
		go handleConn(conn, store, wal, log)
	}
}

func handleConn(conn net.Conn, store *xhashdb.Engine, wal *xhashdb.Wal, log *zap.SugaredLogger) {
	defer conn.Close()

	sess := newSession(store, wal, log)
	scanner := bufio.NewScanner(conn)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	for scanner.Scan() {
		line := scanner.Text()
		log.Debugw("received line", "remote", conn.RemoteAddr(), "line", line)

		out, done := sess.handleLine(line)
		if _, err := conn.Write([]byte(out + "\n")); err != nil {
			log.Errorw("write failed", "remote", conn.RemoteAddr(), "error", err)
			return
		}
		if done {
			return
		}
	}
}
