package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// maxDeleteErrors bounds how many failures are kept for the final report.
const maxDeleteErrors = 5

type deleteDoneMsg struct {
	path    string
	removed int64
	failed  int64
	err     error
}

// removeTree deletes path and everything beneath it, children before their
// parent. Every removed file or directory bumps counter.removed, every
// failure bumps counter.failed; failures never stop the remaining removals.
// Cancellation stops between removals and is not reported as an error.
func removeTree(ctx context.Context, path string, counter *deleteCounter) error {
	var errs []error
	fail := func(p string, err error) {
		counter.failed.Add(1)
		slog.Debug("delete failed", "path", p, "err", err)
		if len(errs) < maxDeleteErrors {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
		}
	}

	var walk func(p string, dir bool)
	walk = func(p string, dir bool) {
		if ctx.Err() != nil {
			return
		}
		if dir {
			ents, err := os.ReadDir(p)
			if err != nil {
				slog.Debug("delete: unreadable directory", "path", p, "err", err)
			}
			for _, e := range ents {
				// symlinks report IsDir false and are removed as links
				walk(filepath.Join(p, e.Name()), e.IsDir())
			}
			if ctx.Err() != nil {
				return
			}
		}
		if err := os.Remove(p); err != nil {
			fail(p, err)
			return
		}
		counter.removed.Add(1)
	}

	info, err := os.Lstat(path)
	if err != nil {
		fail(path, err)
		return errors.Join(errs...)
	}
	walk(path, info.IsDir())
	return errors.Join(errs...)
}

// deleteResult runs removeTree and packages its outcome for the model.
func deleteResult(ctx context.Context, path string, counter *deleteCounter) deleteDoneMsg {
	err := removeTree(ctx, path, counter)
	msg := deleteDoneMsg{
		path:    path,
		removed: counter.Removed(),
		failed:  counter.Failed(),
		err:     err,
	}
	slog.Info("delete finished", "path", path, "removed", msg.removed, "failed", msg.failed)
	return msg
}
