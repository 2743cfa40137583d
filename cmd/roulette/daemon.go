package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"
)

// daemonState is what a client can tell about the watch daemon without
// sending it a directive.
type daemonState string

const (
	daemonStopped daemonState = "stopped" // no PID file
	daemonStale   daemonState = "stale"   // PID file, but nothing answers on the socket
	daemonRunning daemonState = "running" // live PID and a listening socket
)

// livenessDialTimeout bounds the liveness dial. The socket is local, so a
// listener answers immediately.
const livenessDialTimeout = 200 * time.Millisecond

// daemonInfo is one observation of the daemon.
type daemonInfo struct {
	State daemonState
	PID   int
}

// checkDaemon combines the PID file with a dial of the directive socket.
// A recycled PID, or a daemon killed before it could clean up, reads as
// stale because nothing is listening.
func checkDaemon(paths *Paths) (daemonInfo, error) {
	pid, err := pidFile(paths.PIDPath).read()
	if err != nil {
		return daemonInfo{State: daemonStopped}, err
	}
	if pid == 0 {
		return daemonInfo{State: daemonStopped}, nil
	}
	if processAlive(pid) && socketLive(paths.SocketPath) {
		return daemonInfo{State: daemonRunning, PID: pid}, nil
	}
	return daemonInfo{State: daemonStale, PID: pid}, nil
}

// socketLive reports whether something accepts on the unix socket at path.
func socketLive(path string) bool {
	conn, err := net.DialTimeout("unix", path, livenessDialTimeout)
	if err != nil {
		return false
	}
	_ = conn.Close()
	return true
}

func processAlive(pid int) bool {
	proc, err := os.FindProcess(pid)
	if err != nil {
		return false
	}
	return proc.Signal(syscall.Signal(0)) == nil
}

// pidFile is the path of the daemon's PID file.
type pidFile string

// read returns 0 and no error when the file does not exist.
func (f pidFile) read() (int, error) {
	data, err := os.ReadFile(string(f))
	if errors.Is(err, os.ErrNotExist) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("read PID file: %w", err)
	}
	pid, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil || pid <= 0 {
		return 0, fmt.Errorf("PID file %s is corrupt: %q", string(f), strings.TrimSpace(string(data)))
	}
	return pid, nil
}

// claim records this process unless another live process holds the file.
// The socket is not consulted: a daemon that is still starting up owns its
// PID file before it listens. Stale and corrupt files are taken over.
func (f pidFile) claim() error {
	if pid, err := f.read(); err == nil && pid != 0 && pid != os.Getpid() && processAlive(pid) {
		return fmt.Errorf("roulette watch already running (PID %d)", pid)
	}
	if err := os.WriteFile(string(f), []byte(strconv.Itoa(os.Getpid())), 0o600); err != nil {
		return fmt.Errorf("write PID file: %w", err)
	}
	return nil
}

// release removes the file if it still names this process, so a daemon
// that lost the file to a successor leaves it alone.
func (f pidFile) release() {
	if pid, err := f.read(); err == nil && pid == os.Getpid() {
		_ = os.Remove(string(f))
	}
}

// daemonContext is cancelled by SIGINT or SIGTERM. The returned stop func
// releases the PID file and removes the socket when they are non-empty.
func daemonContext(parent context.Context, pid pidFile, socketPath string) (context.Context, func()) {
	ctx, stop := signal.NotifyContext(parent, os.Interrupt, syscall.SIGTERM)
	return ctx, func() {
		stop()
		if socketPath != "" {
			_ = os.Remove(socketPath)
		}
		if pid != "" {
			pid.release()
		}
	}
}
