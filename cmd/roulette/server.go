package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"os"
	"strings"
	"time"

	"roulette/pkg/engine"
	"roulette/pkg/protocol"
)

// directiveServer answers line-delimited JSON directives on the watch
// daemon's UDS socket. Each connection carries one request and one ACK.
type directiveServer struct {
	engine   *engine.Engine
	ledger   engine.Ledger
	triggers chan<- engine.Trigger
	logger   *slog.Logger
}

// listenUnix binds socketPath, replacing a socket left by a dead daemon.
func listenUnix(socketPath string) (net.Listener, error) {
	if _, err := os.Stat(socketPath); err == nil {
		if socketLive(socketPath) {
			return nil, fmt.Errorf("socket %s is in use by another daemon", socketPath)
		}
		_ = os.Remove(socketPath)
	}
	ln, err := net.Listen("unix", socketPath) //nolint:noctx // UDS bind is instant
	if err != nil {
		return nil, fmt.Errorf("listen unix %s: %w", socketPath, err)
	}
	return ln, nil
}

// Serve accepts connections until ctx is done.
func (s *directiveServer) Serve(ctx context.Context, ln net.Listener) error {
	go func() {
		<-ctx.Done()
		_ = ln.Close()
	}()

	for {
		conn, err := ln.Accept()
		if err != nil {
			if ctx.Err() != nil {
				return nil
			}
			if errors.Is(err, net.ErrClosed) {
				return nil
			}
			s.logger.Warn("accept directive connection", "error", err)
			continue
		}
		go s.handleConn(ctx, conn)
	}
}

func (s *directiveServer) handleConn(ctx context.Context, conn net.Conn) {
	defer func() { _ = conn.Close() }()

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		return
	}

	var resp protocol.Response
	var req protocol.Request
	if err := json.Unmarshal(scanner.Bytes(), &req); err != nil {
		resp = protocol.Response{Error: fmt.Sprintf("malformed directive: %v", err)}
	} else {
		resp = s.handle(ctx, req)
	}

	data, err := json.Marshal(resp)
	if err != nil {
		return
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		s.logger.Debug("write ack", "error", err)
	}
}

// handle executes one directive.
func (s *directiveServer) handle(ctx context.Context, req protocol.Request) protocol.Response {
	s.logger.Info("directive", "op", req.Op)

	switch req.Op {
	case protocol.OpUndo:
		res, err := s.engine.Undo(ctx, req.SnapshotID)
		if msg, ok := benignUndo(err); ok {
			return protocol.Response{OK: true, Detail: msg}
		}
		if err != nil {
			return failure(err)
		}
		return protocol.Response{OK: true, Detail: describeUndo(res)}

	case protocol.OpAccept:
		detail, err := acceptLatest(ctx, s.engine, s.ledger)
		if err != nil {
			return failure(err)
		}
		return protocol.Response{OK: true, Detail: detail}

	case protocol.OpTrigger:
		select {
		case s.triggers <- engine.Trigger{Force: true, Reason: "directive"}:
			return protocol.Response{OK: true, Detail: "forced roulette queued"}
		default:
			return protocol.Response{Error: "a roulette cycle is already queued"}
		}

	case protocol.OpStatus:
		return protocol.Response{OK: true, Detail: describeStatus(s.engine)}

	default:
		return protocol.Response{Error: fmt.Sprintf("unknown op %q", req.Op)}
	}
}

func failure(err error) protocol.Response {
	return protocol.Response{Error: err.Error()}
}

// acceptLatest accepts the active mutation, or the latest event when the
// slot is empty.
func acceptLatest(ctx context.Context, eng *engine.Engine, led engine.Ledger) (string, error) {
	eventID := ""
	name := ""
	if info, ok := eng.Active(); ok {
		eventID, name = info.EventID, info.Mutation
	} else {
		latest, err := led.Latest(ctx)
		if err != nil {
			return "", err
		}
		if latest == nil {
			return "", errors.New("nothing to accept: history is empty")
		}
		eventID, name = latest.ID, latest.Mutation
	}
	if err := eng.Accept(ctx, eventID); err != nil {
		return "", err
	}
	return fmt.Sprintf("Fate accepted: %s stays.", name), nil
}

func describeUndo(res engine.UndoResult) string {
	switch res.Method {
	case engine.MethodSelfUndo:
		return fmt.Sprintf("Undid %s.", res.Mutation)
	case engine.MethodAlreadyReverted:
		return fmt.Sprintf("%s had already reverted itself; marked undone.", res.Mutation)
	default:
		var b strings.Builder
		if res.Mutation != "" {
			fmt.Fprintf(&b, "Undid %s: ", res.Mutation)
		}
		fmt.Fprintf(&b, "restored %d files from snapshot %s", res.Report.Restored, res.SnapshotID)
		if n := len(res.Report.Failed); n > 0 {
			fmt.Fprintf(&b, " (%d failed)", n)
		}
		b.WriteString(".")
		return b.String()
	}
}

func describeStatus(eng *engine.Engine) string {
	info, ok := eng.Active()
	if !ok {
		return fmt.Sprintf("state: %s, no active mutation", eng.State())
	}
	s := fmt.Sprintf("state: %s, active: %s (event %s, snapshot %s)", eng.State(), info.Mutation, info.EventID, info.SnapshotID)
	if !info.ExpiresAt.IsZero() {
		s += fmt.Sprintf(", expires in %s", time.Until(info.ExpiresAt).Round(time.Second))
	}
	return s
}
