// Package workspace answers the engine's questions about the working tree:
// which documents the last commit touched, which one is in focus, whether a
// terminal is attached, and whether a debugging session is running.
package workspace

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"
	"unicode/utf8"

	"roulette/pkg/gitwatch"
	"roulette/pkg/mutation"
	"roulette/pkg/protocol"

	"github.com/mattn/go-isatty"
)

// sniffLen is how much of a file is read to decide whether it is text.
const sniffLen = 8000

// Inspector derives a mutation.Workspace from the files changed by HEAD.
type Inspector struct {
	root     string
	exclude  []string
	runner   gitwatch.GitRunner
	terminal func() bool
	logger   *slog.Logger
}

// InspectorOption configures an Inspector.
type InspectorOption func(*Inspector)

// WithRunner replaces the git runner.
func WithRunner(r gitwatch.GitRunner) InspectorOption {
	return func(i *Inspector) { i.runner = r }
}

// WithTerminal replaces the terminal check.
func WithTerminal(fn func() bool) InspectorOption {
	return func(i *Inspector) { i.terminal = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) InspectorOption {
	return func(i *Inspector) { i.logger = l }
}

// NewInspector returns an Inspector for root.
func NewInspector(root string, opts ...InspectorOption) *Inspector {
	i := &Inspector{
		root:     root,
		exclude:  protocol.ExcludedDirs,
		runner:   &gitwatch.ExecGitRunner{},
		terminal: StdoutIsTerminal,
		logger:   slog.Default(),
	}
	for _, o := range opts {
		o(i)
	}
	return i
}

// StdoutIsTerminal reports whether stdout is a terminal, including Cygwin
// and MSYS ptys.
func StdoutIsTerminal() bool {
	fd := os.Stdout.Fd()
	return isatty.IsTerminal(fd) || isatty.IsCygwinTerminal(fd)
}

type candidate struct {
	rel   string
	mtime time.Time
}

// Inspect lists the text files changed by HEAD that still exist, newest
// first. The newest is the focused document. A repository without commits
// yields an empty workspace rather than an error.
func (i *Inspector) Inspect(ctx context.Context) (mutation.Workspace, error) {
	ws := mutation.Workspace{Root: i.root, Interactive: i.terminal()}

	// -z keeps paths verbatim; without it git quotes non-ASCII names.
	out, stderr, err := i.runner.Run(ctx, i.root,
		"diff-tree", "-z", "--root", "--no-commit-id", "--name-only", "-r", "HEAD")
	if err != nil {
		if ctx.Err() != nil {
			return ws, ctx.Err()
		}
		i.logger.Debug("no changed files", "error", err, "stderr", strings.TrimSpace(stderr))
		return ws, nil
	}

	var files []candidate
	for _, rel := range strings.Split(out, "\x00") {
		if rel == "" || i.excluded(rel) {
			continue
		}
		info, err := os.Stat(filepath.Join(i.root, filepath.FromSlash(rel)))
		if err != nil || !info.Mode().IsRegular() {
			continue
		}
		if !isText(filepath.Join(i.root, filepath.FromSlash(rel))) {
			continue
		}
		files = append(files, candidate{rel: rel, mtime: info.ModTime()})
	}

	slices.SortStableFunc(files, func(a, b candidate) int {
		if c := b.mtime.Compare(a.mtime); c != 0 {
			return c
		}
		return strings.Compare(a.rel, b.rel)
	})

	for _, f := range files {
		ws.Open = append(ws.Open, f.rel)
	}
	if len(ws.Open) > 0 {
		ws.Focus = ws.Open[0]
	}
	return ws, nil
}

func (i *Inspector) excluded(rel string) bool {
	for _, part := range strings.Split(rel, "/") {
		if slices.Contains(i.exclude, part) {
			return true
		}
	}
	return false
}

// isText reports whether the head of path is valid UTF-8 without NUL bytes.
func isText(path string) bool {
	f, err := os.Open(path) //nolint:gosec // path comes from git diff-tree
	if err != nil {
		return false
	}
	defer func() { _ = f.Close() }()

	buf := make([]byte, sniffLen)
	n, err := io.ReadFull(f, buf)
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return false
	}
	buf = buf[:n]
	if bytes.IndexByte(buf, 0) >= 0 {
		return false
	}
	if n == sniffLen {
		// A multi-byte rune may be cut at the sniff boundary.
		for j := len(buf) - 1; j >= 0 && j >= len(buf)-utf8.UTFMax; j-- {
			if utf8.RuneStart(buf[j]) {
				if !utf8.FullRune(buf[j:]) {
					buf = buf[:j]
				}
				break
			}
		}
	}
	return utf8.Valid(buf)
}
