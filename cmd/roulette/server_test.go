package main

import (
	"context"
	"encoding/json"
	"net"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"roulette/pkg/engine"
	"roulette/pkg/protocol"

	"github.com/spf13/cobra"
)

type serverHarness struct {
	app      *app
	engine   *engine.Engine
	triggers chan engine.Trigger
	socket   string
}

func startServer(t *testing.T) *serverHarness {
	t.Helper()
	root := newWorkspace(t)
	onlyPlacebo(t, root)

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)

	cmd := &cobra.Command{}
	cmd.SetContext(ctx)
	a, err := openApp(cmd, &globalFlags{root: root, logLevel: "error"})
	if err != nil {
		t.Fatalf("openApp: %v", err)
	}
	t.Cleanup(func() { _ = a.Close() })

	eng, err := a.newEngine(nil)
	if err != nil {
		t.Fatalf("newEngine: %v", err)
	}
	t.Cleanup(func() { eng.Shutdown(context.Background()) })

	ln, err := listenUnix(a.paths.SocketPath)
	if err != nil {
		t.Fatalf("listenUnix: %v", err)
	}
	triggers := make(chan engine.Trigger, 1)
	srv := &directiveServer{engine: eng, ledger: a.ledger, triggers: triggers, logger: a.logger}
	go func() { _ = srv.Serve(ctx, ln) }()

	return &serverHarness{app: a, engine: eng, triggers: triggers, socket: a.paths.SocketPath}
}

func (h *serverHarness) send(t *testing.T, req protocol.Request) (*protocol.Response, error) {
	t.Helper()
	return sendDirective(context.Background(), h.socket, req)
}

func TestDirectiveStatusAndEmptyUndo(t *testing.T) {
	h := startServer(t)

	resp, err := h.send(t, protocol.Request{Op: protocol.OpStatus})
	if err != nil {
		t.Fatalf("status: %v", err)
	}
	if !strings.Contains(resp.Detail, "no active mutation") {
		t.Errorf("status detail = %q", resp.Detail)
	}

	resp, err = h.send(t, protocol.Request{Op: protocol.OpUndo})
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if resp.Detail != "Nothing to undo." {
		t.Errorf("undo detail = %q", resp.Detail)
	}
}

func TestDirectiveTriggerQueues(t *testing.T) {
	h := startServer(t)

	resp, err := h.send(t, protocol.Request{Op: protocol.OpTrigger})
	if err != nil {
		t.Fatalf("trigger: %v", err)
	}
	if !resp.OK {
		t.Fatalf("trigger not acked: %+v", resp)
	}

	// Nothing drains the queue, so a second trigger is refused.
	if _, err := h.send(t, protocol.Request{Op: protocol.OpTrigger}); err == nil {
		t.Fatal("second trigger should be refused while one is queued")
	}

	select {
	case trig := <-h.triggers:
		if !trig.Force {
			t.Error("directive trigger must be forced")
		}
	case <-time.After(time.Second):
		t.Fatal("trigger was not queued")
	}
}

func TestDirectiveAcceptThenUndo(t *testing.T) {
	h := startServer(t)

	out, err := h.engine.Roulette(context.Background(), engine.Trigger{Force: true})
	if err != nil {
		t.Fatalf("Roulette: %v", err)
	}
	if out.Mutation != "placebo" {
		t.Fatalf("Mutation = %q, want placebo", out.Mutation)
	}

	resp, err := h.send(t, protocol.Request{Op: protocol.OpAccept})
	if err != nil {
		t.Fatalf("accept: %v", err)
	}
	if resp.Detail != "Fate accepted: placebo stays." {
		t.Errorf("accept detail = %q", resp.Detail)
	}

	resp, err = h.send(t, protocol.Request{Op: protocol.OpUndo})
	if err != nil {
		t.Fatalf("undo: %v", err)
	}
	if !strings.Contains(resp.Detail, "Undid placebo") || !strings.Contains(resp.Detail, out.SnapshotID) {
		t.Errorf("undo detail = %q", resp.Detail)
	}

	resp, err = h.send(t, protocol.Request{Op: protocol.OpUndo})
	if err != nil {
		t.Fatalf("second undo: %v", err)
	}
	if resp.Detail != "placebo was already undone." {
		t.Errorf("second undo detail = %q", resp.Detail)
	}

	ev, err := h.app.ledger.Get(context.Background(), out.EventID)
	if err != nil {
		t.Fatal(err)
	}
	if ev.Status != protocol.StatusUndone {
		t.Errorf("status = %s, want undone", ev.Status)
	}
}

func TestDirectiveRejectsBadInput(t *testing.T) {
	h := startServer(t)

	if _, err := h.send(t, protocol.Request{Op: "spin-harder"}); err == nil || !strings.Contains(err.Error(), "unknown op") {
		t.Errorf("unknown op: err = %v", err)
	}

	conn, err := net.Dial("unix", h.socket)
	if err != nil {
		t.Fatal(err)
	}
	defer conn.Close()
	if _, err := conn.Write([]byte("{not json\n")); err != nil {
		t.Fatal(err)
	}
	var resp protocol.Response
	if err := json.NewDecoder(conn).Decode(&resp); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if resp.OK || !strings.Contains(resp.Error, "malformed") {
		t.Errorf("resp = %+v, want malformed error", resp)
	}
}

func TestListenUnixReplacesStaleSocket(t *testing.T) {
	sock := filepath.Join(t.TempDir(), "r.sock")

	ln, err := listenUnix(sock)
	if err != nil {
		t.Fatal(err)
	}
	if _, err := listenUnix(sock); err == nil {
		t.Fatal("second listener on a live socket should fail")
	}
	_ = ln.Close()

	// net.UnixListener.Close unlinks the file; recreate a dead one.
	ln2, err := net.Listen("unix", sock)
	if err != nil {
		t.Fatal(err)
	}
	ln2.(*net.UnixListener).SetUnlinkOnClose(false)
	_ = ln2.Close()

	ln3, err := listenUnix(sock)
	if err != nil {
		t.Fatalf("stale socket should be replaced: %v", err)
	}
	_ = ln3.Close()
}
