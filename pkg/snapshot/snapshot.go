// Package snapshot keeps full-tree copies of a workspace so any mutation can
// be reverted by restoring the copy taken just before it.
package snapshot

import (
	"context"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"sync"
	"time"

	"roulette/pkg/protocol"
)

// Options configures a Store.
type Options struct {
	Root      string       // workspace root that gets copied
	Dir       string       // backup root; snapshots live in Dir/<id>
	Retention int          // snapshots kept after a prune (default protocol.SnapshotRetention)
	Exclude   []string     // directory names skipped at any depth (default protocol.ExcludedDirs)
	Logger    *slog.Logger // per-file failures are logged here
	Now       func() time.Time
}

// Store creates, restores and prunes snapshots of a single workspace root.
type Store struct {
	root      string
	dir       string
	retention int
	exclude   map[string]bool
	logger    *slog.Logger
	now       func() time.Time

	mu   sync.Mutex
	last int64 // newest id handed out by this process
}

// Info describes a snapshot on disk.
type Info struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	Files     int       `json:"files"`
	Bytes     int64     `json:"bytes"`
}

// FileError records a single file that could not be copied.
type FileError struct {
	Path string
	Err  error
}

// Report summarizes a restore. Failed files do not abort the restore.
type Report struct {
	ID       string
	Restored int
	Failed   []FileError
}

// New returns a Store for opts.Root backed by opts.Dir.
func New(opts Options) *Store {
	s := &Store{
		root:      opts.Root,
		dir:       opts.Dir,
		retention: opts.Retention,
		exclude:   make(map[string]bool),
		logger:    opts.Logger,
		now:       opts.Now,
	}
	if s.retention <= 0 {
		s.retention = protocol.SnapshotRetention
	}
	exclude := opts.Exclude
	if exclude == nil {
		exclude = protocol.ExcludedDirs
	}
	for _, name := range exclude {
		s.exclude[name] = true
	}
	if s.logger == nil {
		s.logger = slog.Default()
	}
	if s.now == nil {
		s.now = time.Now
	}
	return s
}

// Dir returns the backup root.
func (s *Store) Dir() string { return s.dir }

// Create copies every regular file under the root into a new snapshot and
// returns its id. Files that cannot be read are logged and skipped; only a
// failure to create the snapshot directory itself is an error.
func (s *Store) Create(ctx context.Context) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", &protocol.SnapshotCreationError{Dir: s.dir, Err: err}
	}

	id := s.nextID()
	dest := filepath.Join(s.dir, id)
	if err := os.Mkdir(dest, 0o755); err != nil {
		return "", &protocol.SnapshotCreationError{Dir: dest, Err: err}
	}

	copied := 0
	walkErr := filepath.WalkDir(s.root, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			s.logger.Warn("snapshot: skip unreadable path", "path", path, "err", err)
			if d != nil && d.IsDir() {
				return filepath.SkipDir
			}
			return nil
		}
		if d.IsDir() {
			// The backup root is skipped too when it lives under the workspace.
			if path != s.root && (s.exclude[d.Name()] || filepath.Clean(path) == filepath.Clean(s.dir)) {
				return filepath.SkipDir
			}
			return nil
		}
		if !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(s.root, path)
		if err != nil {
			s.logger.Warn("snapshot: skip file", "path", path, "err", err)
			return nil
		}
		if err := copyFile(path, filepath.Join(dest, rel)); err != nil {
			s.logger.Warn("snapshot: skip file", "path", rel, "err", err)
			return nil
		}
		copied++
		return nil
	})
	if walkErr != nil {
		_ = os.RemoveAll(dest)
		return "", fmt.Errorf("create snapshot %s: %w", id, walkErr)
	}

	s.logger.Debug("snapshot created", "id", id, "files", copied)

	if deleted, err := s.Prune(ctx); err != nil {
		s.logger.Warn("snapshot: prune failed", "err", err)
	} else if len(deleted) > 0 {
		s.logger.Debug("snapshot: pruned", "ids", deleted)
	}

	return id, nil
}

// Restore overwrites every live file that is present in snapshot id.
// Files created after the snapshot are left alone.
func (s *Store) Restore(ctx context.Context, id string) (Report, error) {
	report := Report{ID: id}
	if !s.Exists(id) {
		return report, &protocol.SnapshotNotFoundError{ID: id}
	}

	src := filepath.Join(s.dir, id)
	err := filepath.WalkDir(src, func(path string, d fs.DirEntry, err error) error {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}
		if err != nil {
			report.Failed = append(report.Failed, FileError{Path: path, Err: err})
			return nil
		}
		if d.IsDir() || !d.Type().IsRegular() {
			return nil
		}

		rel, err := filepath.Rel(src, path)
		if err != nil {
			report.Failed = append(report.Failed, FileError{Path: path, Err: err})
			return nil
		}
		if err := replaceFile(path, filepath.Join(s.root, rel)); err != nil {
			s.logger.Warn("snapshot: restore file failed", "path", rel, "err", err)
			report.Failed = append(report.Failed, FileError{Path: rel, Err: err})
			return nil
		}
		report.Restored++
		return nil
	})
	if err != nil {
		return report, fmt.Errorf("restore snapshot %s: %w", id, err)
	}

	s.logger.Info("snapshot restored", "id", id, "files", report.Restored, "failed", len(report.Failed))
	return report, nil
}

// Exists reports whether snapshot id is present on disk.
func (s *Store) Exists(id string) bool {
	if _, err := strconv.ParseInt(id, 10, 64); err != nil {
		return false
	}
	info, err := os.Stat(filepath.Join(s.dir, id))
	return err == nil && info.IsDir()
}

// nextID returns a millisecond timestamp id strictly greater than every id
// handed out before, including ids already on disk.
func (s *Store) nextID() string {
	s.mu.Lock()
	defer s.mu.Unlock()

	id := s.now().UnixMilli()
	if newest := s.newestOnDisk(); newest > s.last {
		s.last = newest
	}
	if id <= s.last {
		id = s.last + 1
	}
	s.last = id
	return strconv.FormatInt(id, 10)
}

func (s *Store) newestOnDisk() int64 {
	ids, err := s.ids()
	if err != nil || len(ids) == 0 {
		return 0
	}
	return ids[0]
}

// copyFile copies src to dst, creating parent directories and keeping the
// permission bits of src.
func copyFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // src comes from walking the workspace
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return err
	}

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, info.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		return err
	}
	return out.Close()
}

// replaceFile writes src over dst through a temp file in dst's directory so
// a live file is never left half-written.
func replaceFile(src, dst string) error {
	in, err := os.Open(src) //nolint:gosec // src is inside the snapshot dir
	if err != nil {
		return err
	}
	defer in.Close()

	info, err := in.Stat()
	if err != nil {
		return err
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, ".roulette-restore-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	cleanup := func(err error) error {
		_ = tmp.Close()
		_ = os.Remove(tmpName)
		return err
	}

	if _, err := io.Copy(tmp, in); err != nil {
		return cleanup(err)
	}
	if err := tmp.Chmod(info.Mode().Perm()); err != nil {
		return cleanup(err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmpName)
		return err
	}
	if err := os.Rename(tmpName, dst); err != nil {
		_ = os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", dst, err)
	}
	return nil
}
