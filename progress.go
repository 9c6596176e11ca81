package main

import "sync/atomic"

// ProgressTracker holds the counters scan workers write and the renderer
// reads. One tracker belongs to one listing; once the listing is superseded
// the tracker is sealed and later writes are dropped. A write that passed
// the check just before Seal can still land, so a sealed tracker is never
// read for display again.
type ProgressTracker struct {
	files   atomic.Int64
	dirs    atomic.Int64
	bytes   atomic.Int64
	current atomic.Pointer[string]
	sealed  atomic.Bool
}

// ProgressSnapshot is a point-in-time read of a tracker. The fields are read
// independently and need not be mutually consistent.
type ProgressSnapshot struct {
	Files       int64
	Dirs        int64
	Bytes       int64
	CurrentPath string
}

func NewProgressTracker() *ProgressTracker {
	return &ProgressTracker{}
}

func (p *ProgressTracker) AddFile(path string, size int64) {
	if p == nil || p.sealed.Load() {
		return
	}
	p.files.Add(1)
	p.bytes.Add(size)
	p.current.Store(&path)
}

func (p *ProgressTracker) AddDir(path string) {
	if p == nil || p.sealed.Load() {
		return
	}
	p.dirs.Add(1)
	p.current.Store(&path)
}

// Seal stops the tracker from accepting writes.
func (p *ProgressTracker) Seal() {
	if p == nil {
		return
	}
	p.sealed.Store(true)
}

func (p *ProgressTracker) Sealed() bool {
	return p != nil && p.sealed.Load()
}

func (p *ProgressTracker) Snapshot() ProgressSnapshot {
	if p == nil {
		return ProgressSnapshot{}
	}
	s := ProgressSnapshot{
		Files: p.files.Load(),
		Dirs:  p.dirs.Load(),
		Bytes: p.bytes.Load(),
	}
	if cur := p.current.Load(); cur != nil {
		s.CurrentPath = *cur
	}
	return s
}

// deleteCounter is the shared tally of a running deletion.
type deleteCounter struct {
	removed atomic.Int64
	failed  atomic.Int64
}

func (c *deleteCounter) Removed() int64 {
	if c == nil {
		return 0
	}
	return c.removed.Load()
}

func (c *deleteCounter) Failed() int64 {
	if c == nil {
		return 0
	}
	return c.failed.Load()
}
