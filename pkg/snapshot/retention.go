package snapshot

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"time"
)

// ids returns the numeric snapshot ids on disk, newest first. Entries whose
// name is not a decimal timestamp are not snapshots and are ignored.
func (s *Store) ids() ([]int64, error) {
	entries, err := os.ReadDir(s.dir)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, nil
		}
		return nil, fmt.Errorf("read snapshot dir: %w", err)
	}

	var ids []int64
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		id, err := strconv.ParseInt(entry.Name(), 10, 64)
		if err != nil {
			continue
		}
		ids = append(ids, id)
	}

	sort.Slice(ids, func(i, j int) bool { return ids[i] > ids[j] })
	return ids, nil
}

// Prune deletes every snapshot beyond the newest Retention and returns the
// deleted ids. Deletion continues past individual failures.
func (s *Store) Prune(ctx context.Context) ([]string, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}
	if len(ids) <= s.retention {
		return nil, nil
	}

	var deleted []string
	var lastErr error
	for _, id := range ids[s.retention:] {
		if ctx.Err() != nil {
			return deleted, ctx.Err()
		}
		name := strconv.FormatInt(id, 10)
		if err := os.RemoveAll(filepath.Join(s.dir, name)); err != nil {
			lastErr = err
			continue
		}
		deleted = append(deleted, name)
	}

	if lastErr != nil {
		return deleted, fmt.Errorf("delete old snapshots: %w", lastErr)
	}
	return deleted, nil
}

// List returns every snapshot on disk, newest first, with file counts and sizes.
func (s *Store) List() ([]Info, error) {
	ids, err := s.ids()
	if err != nil {
		return nil, err
	}

	infos := make([]Info, 0, len(ids))
	for _, id := range ids {
		name := strconv.FormatInt(id, 10)
		info := Info{ID: name, CreatedAt: time.UnixMilli(id)}
		_ = filepath.WalkDir(filepath.Join(s.dir, name), func(_ string, d fs.DirEntry, err error) error {
			if err != nil || d.IsDir() {
				return nil
			}
			if fi, err := d.Info(); err == nil {
				info.Files++
				info.Bytes += fi.Size()
			}
			return nil
		})
		infos = append(infos, info)
	}
	return infos, nil
}
