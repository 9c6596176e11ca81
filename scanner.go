package main

import (
	"context"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/semaphore"
)

// --------------------------- Data model ---------------------------

// pendingSize marks an entry whose size has not been resolved yet.
const pendingSize int64 = -1

// Entry is one file or directory row of the displayed location.
type Entry struct {
	Name       string
	Path       string
	IsDir      bool
	Size       int64
	LastAccess time.Time
}

func (e Entry) Pending() bool { return e.Size < 0 }

// LargeFile is a member of the top-N oversized file list of a listing.
type LargeFile struct {
	Name string
	Path string
	Size int64
}

func cloneEntries(entries []Entry) []Entry {
	if entries == nil {
		return nil
	}
	out := make([]Entry, len(entries))
	copy(out, entries)
	return out
}

func cloneLargeFiles(files []LargeFile) []LargeFile {
	if files == nil {
		return nil
	}
	out := make([]LargeFile, len(files))
	copy(out, files)
	return out
}

// --------------------------- Scanner -----------------------------

type Scanner struct {
	threads      int
	rootParallel int
	sem          *semaphore.Weighted
	sizeOf       func(fs.FileInfo) int64
}

// NewScanner counts apparent file sizes; see UseDiskUsage.
func NewScanner(threads, rootParallel int) *Scanner {
	threads = max(1, threads)
	return &Scanner{
		threads:      threads,
		rootParallel: max(1, rootParallel),
		sem:          semaphore.NewWeighted(int64(threads)),
		sizeOf:       func(info fs.FileInfo) int64 { return info.Size() },
	}
}

// UseDiskUsage makes s count allocated blocks instead of apparent sizes,
// the way du does. Sparse and cloned files then weigh what they occupy.
func (s *Scanner) UseDiskUsage() {
	s.sizeOf = diskUsage
}

// scanJob describes one scan bound to one listing. With roots nil the
// directory at path is listed first and its children become the roots.
type scanJob struct {
	gen      int
	path     string
	roots    []Entry
	parallel int
}

type listingMsg struct {
	gen     int
	path    string
	entries []Entry
	err     error
}

// entrySizedMsg resolves one root. access is the root's last access time
// read before the walk touched it.
type entrySizedMsg struct {
	gen    int
	index  int
	path   string
	size   int64
	access time.Time
}

type scanDoneMsg struct {
	gen        int
	largeFiles []LargeFile
}

// Run executes job and streams listingMsg, entrySizedMsg and a final
// scanDoneMsg into out, closing it on return. Once ctx is cancelled nothing
// more is sent.
func (s *Scanner) Run(ctx context.Context, job scanJob, tracker *ProgressTracker, out chan<- tea.Msg) {
	defer close(out)

	roots := job.roots
	if roots == nil {
		entries, err := listDir(job.path)
		if !send(ctx, out, listingMsg{gen: job.gen, path: job.path, entries: cloneEntries(entries), err: err}) {
			return
		}
		if err != nil && len(entries) == 0 {
			send(ctx, out, scanDoneMsg{gen: job.gen})
			return
		}
		roots = entries
	}

	large := newLargeFileSet(maxLargeFiles)
	var g errgroup.Group
	limit := job.parallel
	if limit <= 0 {
		limit = s.rootParallel
	}
	g.SetLimit(limit)
	for i, root := range roots {
		if !root.Pending() {
			continue
		}
		if ctx.Err() != nil {
			break
		}
		g.Go(func() error {
			access := root.LastAccess
			if access.IsZero() {
				if info, err := os.Lstat(root.Path); err == nil {
					access = accessTime(info)
				}
			}
			size := s.measure(ctx, root, tracker, large)
			if ctx.Err() != nil {
				return nil
			}
			send(ctx, out, entrySizedMsg{gen: job.gen, index: i, path: root.Path, size: size, access: access})
			return nil
		})
	}
	_ = g.Wait()

	if ctx.Err() != nil {
		slog.Debug("scan cancelled", "path", job.path, "gen", job.gen)
		return
	}
	send(ctx, out, scanDoneMsg{gen: job.gen, largeFiles: large.sorted()})
}

// measure resolves the size of one root: a stat for files, a full subtree
// walk for directories.
func (s *Scanner) measure(ctx context.Context, e Entry, tracker *ProgressTracker, large *largeFileSet) int64 {
	if !e.IsDir {
		info, err := os.Lstat(e.Path)
		if err != nil {
			slog.Debug("skipping vanished file", "path", e.Path, "err", err)
			return 0
		}
		size := s.sizeOf(info)
		tracker.AddFile(e.Path, size)
		large.offer(LargeFile{Name: e.Name, Path: e.Path, Size: size})
		return size
	}
	tracker.AddDir(e.Path)
	return s.sumDir(ctx, e.Path, tracker, large)
}

// sumDir computes the total size of a subtree without building a tree.
// Subdirectories are walked on new goroutines while the semaphore has room
// and inline otherwise, so the fan-out stays bounded and never deadlocks.
func (s *Scanner) sumDir(ctx context.Context, path string, tracker *ProgressTracker, large *largeFileSet) int64 {
	var total atomic.Int64
	var wg sync.WaitGroup

	var walk func(string)
	walk = func(p string) {
		if ctx.Err() != nil {
			return
		}
		ents, err := os.ReadDir(p)
		if err != nil {
			slog.Debug("skipping unreadable directory", "path", p, "err", err)
			if len(ents) == 0 {
				return
			}
		}
		for _, e := range ents {
			if ctx.Err() != nil {
				return
			}
			// symlinks are never followed
			if e.Type()&fs.ModeSymlink != 0 {
				continue
			}
			child := filepath.Join(p, e.Name())
			if e.IsDir() {
				tracker.AddDir(child)
				if s.sem.TryAcquire(1) {
					wg.Add(1)
					go func(cp string) {
						defer wg.Done()
						defer s.sem.Release(1)
						walk(cp)
					}(child)
				} else {
					walk(child)
				}
				continue
			}
			fi, err := e.Info()
			if err != nil {
				continue
			}
			size := s.sizeOf(fi)
			total.Add(size)
			tracker.AddFile(child, size)
			large.offer(LargeFile{Name: e.Name(), Path: child, Size: size})
		}
	}

	walk(path)
	wg.Wait()
	return total.Load()
}

// listDir lists the immediate children of path with pending sizes.
// Symlinks are left out, the same way the walk skips them.
func listDir(path string) ([]Entry, error) {
	ents, err := os.ReadDir(path)
	if err != nil {
		err = fmt.Errorf("list %s: %w", path, err)
	}
	out := make([]Entry, 0, len(ents))
	for _, e := range ents {
		if e.Type()&fs.ModeSymlink != 0 {
			continue
		}
		entry := Entry{
			Name:  e.Name(),
			Path:  filepath.Join(path, e.Name()),
			IsDir: e.IsDir(),
			Size:  pendingSize,
		}
		// read before any walk of the child can bump it
		if info, infoErr := e.Info(); infoErr == nil {
			entry.LastAccess = accessTime(info)
		}
		out = append(out, entry)
	}
	return out, err
}

func send(ctx context.Context, out chan<- tea.Msg, msg tea.Msg) bool {
	select {
	case out <- msg:
		return true
	case <-ctx.Done():
		return false
	}
}

// largeFileSet collects files at or above minLargeFileSize and keeps the
// biggest limit of them.
type largeFileSet struct {
	mu    sync.Mutex
	limit int
	files []LargeFile
}

func newLargeFileSet(limit int) *largeFileSet {
	return &largeFileSet{limit: limit}
}

func (l *largeFileSet) offer(f LargeFile) {
	if f.Size < minLargeFileSize {
		return
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	l.files = append(l.files, f)
	if len(l.files) > 2*l.limit {
		l.trimLocked()
	}
}

func (l *largeFileSet) sorted() []LargeFile {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.trimLocked()
	return cloneLargeFiles(l.files)
}

func (l *largeFileSet) trimLocked() {
	sort.SliceStable(l.files, func(i, j int) bool { return l.files[i].Size > l.files[j].Size })
	if len(l.files) > l.limit {
		l.files = l.files[:l.limit]
	}
}
