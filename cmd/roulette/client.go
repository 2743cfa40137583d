package main

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"time"

	"roulette/pkg/protocol"
)

// directiveTimeout bounds a round trip. Undo restores whole snapshots, so
// it gets more slack than a dial.
const directiveTimeout = 30 * time.Second

// daemonUp reports whether a live watch daemon answers on paths.SocketPath.
func daemonUp(paths *Paths) bool {
	info, err := checkDaemon(paths)
	return err == nil && info.State == daemonRunning
}

// sendDirective sends req over the daemon socket and waits for the ACK.
func sendDirective(ctx context.Context, socketPath string, req protocol.Request) (*protocol.Response, error) {
	ctx, cancel := context.WithTimeout(ctx, directiveTimeout)
	defer cancel()

	dialer := &net.Dialer{}
	conn, err := dialer.DialContext(ctx, "unix", socketPath)
	if err != nil {
		return nil, fmt.Errorf("connect to daemon: %w", err)
	}
	defer func() { _ = conn.Close() }()
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal directive: %w", err)
	}
	data = append(data, '\n')
	if _, err := conn.Write(data); err != nil {
		return nil, fmt.Errorf("send directive: %w", err)
	}

	scanner := bufio.NewScanner(conn)
	if !scanner.Scan() {
		if err := scanner.Err(); err != nil {
			return nil, fmt.Errorf("read ack: %w", err)
		}
		return nil, errors.New("no ack received")
	}

	var resp protocol.Response
	if err := json.Unmarshal(scanner.Bytes(), &resp); err != nil {
		return nil, fmt.Errorf("unmarshal ack: %w", err)
	}
	if !resp.OK {
		return &resp, fmt.Errorf("daemon: %s", resp.Error)
	}
	return &resp, nil
}
