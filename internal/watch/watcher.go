// Package watch implements polling change detection over directory trees.
//
// A DirWatcher owns a snapshot of one tree (relative path -> last observed
// mtime) and reports the delta between snapshots on each Check call. A Set
// runs many watchers per tick with bounded concurrency and aggregates their
// changes. Detection is metadata-only: no file contents are read or hashed.
package watch

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
)

// Spec describes one directory tree to watch.
type Spec struct {
	// Root is the directory to watch. It is cleaned and made absolute at
	// construction.
	Root string

	// Extensions optionally restricts the watch to filename suffixes
	// (".txt", "log", ...). The leading dot may be omitted. Empty means
	// all files.
	Extensions []string

	// RecursionLimit optionally bounds subdirectory depth. 0 means the
	// root only. Nil means unbounded. Negative values are rejected.
	RecursionLimit *int
}

// DirWatcher maintains the snapshot for a single directory tree.
//
// The file index is exclusively owned by the watcher and mutated only by
// Check. Check is not safe for concurrent use on the same watcher; the Set
// scheduling discipline is what prevents overlapping calls.
type DirWatcher struct {
	root       string
	extensions map[string]struct{} // nil means no filter
	maxDepth   *int
	known      map[string]time.Time
	logger     *slog.Logger
}

// NewDirWatcher validates the spec and performs the initial full scan.
// No changes are ever reported for files present at construction.
func NewDirWatcher(spec Spec, logger *slog.Logger) (*DirWatcher, error) {
	if spec.RecursionLimit != nil && *spec.RecursionLimit < 0 {
		return nil, fmt.Errorf("%w: %d in %s", ErrNegativeRecursionLimit, *spec.RecursionLimit, spec.Root)
	}

	root, err := filepath.Abs(filepath.Clean(spec.Root))
	if err != nil {
		return nil, fmt.Errorf("resolve root %s: %w", spec.Root, err)
	}

	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("stat root: %w", err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrRootNotDirectory, root)
	}

	var extensions map[string]struct{}
	if len(spec.Extensions) > 0 {
		extensions = make(map[string]struct{}, len(spec.Extensions))
		for _, ext := range spec.Extensions {
			if !strings.HasPrefix(ext, ".") {
				ext = "." + ext
			}
			extensions[ext] = struct{}{}
		}
	}

	w := &DirWatcher{
		root:       root,
		extensions: extensions,
		maxDepth:   spec.RecursionLimit,
		known:      make(map[string]time.Time),
		logger:     logger.With("root", root),
	}

	snapshot, err := w.scan()
	if err != nil {
		return nil, fmt.Errorf("initial scan: %w", err)
	}
	w.known = snapshot

	w.logger.Info("watch created",
		"files", len(snapshot),
		"extensions", len(spec.Extensions),
		"recursion_limit", recursionLimitAttr(spec.RecursionLimit),
	)

	return w, nil
}

// Root returns the absolute root path of the watcher.
func (w *DirWatcher) Root() string {
	return w.root
}

// Check takes a fresh snapshot and reports the delta since the last one.
//
// A file present now but not before is new; a known file with a strictly
// newer mtime is modified; a known file missing from the snapshot is
// deleted. The order of returned changes is unspecified. On a scan failure
// the index is left untouched and the error is recoverable: the next Check
// diffs against the same baseline.
func (w *DirWatcher) Check() ([]Change, error) {
	snapshot, err := w.scan()
	if err != nil {
		return nil, &ScanError{Root: w.root, Err: err}
	}

	var changes []Change

	for path, mtime := range snapshot {
		prev, ok := w.known[path]
		if !ok {
			changes = append(changes, Change{Path: path, Kind: KindNew})
			w.known[path] = mtime
			continue
		}
		if mtime.After(prev) {
			changes = append(changes, Change{Path: path, Kind: KindModified})
			w.logger.Debug("mtime advanced", "path", path, "from", prev, "to", mtime)
			w.known[path] = mtime
		}
	}

	for path := range w.known {
		if _, ok := snapshot[path]; !ok {
			changes = append(changes, Change{Path: path, Kind: KindDeleted})
			delete(w.known, path)
		}
	}

	return changes, nil
}

// scan builds a complete snapshot of the tree under the filter and depth
// rules. The traversal carries an explicit depth so the bound is a real
// base case rather than an implicit recursion guard.
func (w *DirWatcher) scan() (map[string]time.Time, error) {
	snapshot := make(map[string]time.Time, len(w.known))
	if err := w.descend(w.root, 0, snapshot); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (w *DirWatcher) descend(dir string, depth int, snapshot map[string]time.Time) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if depth == 0 {
			// An unreadable root means the whole snapshot is meaningless.
			return err
		}
		// Unreadable subdirectory: skip it, keep the rest of the scan.
		w.logger.Warn("skipping unreadable directory", "path", dir, "error", err)
		return nil
	}

	for _, entry := range entries {
		path := filepath.Join(dir, entry.Name())

		if entry.IsDir() {
			if w.maxDepth != nil && depth+1 > *w.maxDepth {
				continue
			}
			if err := w.descend(path, depth+1, snapshot); err != nil {
				return err
			}
			continue
		}

		// Symlinks, sockets etc. are not regular files and are skipped.
		if !entry.Type().IsRegular() {
			continue
		}

		if w.extensions != nil {
			if _, ok := w.extensions[filepath.Ext(entry.Name())]; !ok {
				continue
			}
		}

		info, err := entry.Info()
		if err != nil {
			// Raced with a concurrent delete; the next scan settles it.
			w.logger.Debug("entry vanished mid-scan", "path", path, "error", err)
			continue
		}

		rel, err := filepath.Rel(w.root, path)
		if err != nil {
			return err
		}
		snapshot[filepath.ToSlash(rel)] = info.ModTime()
	}

	return nil
}

func recursionLimitAttr(limit *int) any {
	if limit == nil {
		return "unbounded"
	}
	return *limit
}
