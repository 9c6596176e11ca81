package main

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestProgressTrackerConcurrentWrites(t *testing.T) {
	p := NewProgressTracker()
	var wg sync.WaitGroup
	for w := 0; w < 8; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			for i := 0; i < 1000; i++ {
				p.AddFile(fmt.Sprintf("/w%d/f%d", w, i), 2)
				if i%10 == 0 {
					p.AddDir(fmt.Sprintf("/w%d/d%d", w, i))
				}
			}
		}(w)
	}
	wg.Wait()

	snap := p.Snapshot()
	assert.Equal(t, int64(8000), snap.Files)
	assert.Equal(t, int64(800), snap.Dirs)
	assert.Equal(t, int64(16000), snap.Bytes)
	assert.NotEmpty(t, snap.CurrentPath)
}

func TestProgressTrackerSealDropsWrites(t *testing.T) {
	p := NewProgressTracker()
	p.AddFile("/a", 10)
	p.Seal()
	p.AddFile("/b", 10)
	p.AddDir("/c")

	snap := p.Snapshot()
	assert.True(t, p.Sealed())
	assert.Equal(t, ProgressSnapshot{Files: 1, Bytes: 10, CurrentPath: "/a"}, snap)
}

func TestProgressTrackerNilSafe(t *testing.T) {
	var p *ProgressTracker
	p.AddFile("/a", 1)
	p.AddDir("/b")
	p.Seal()
	assert.False(t, p.Sealed())
	assert.Equal(t, ProgressSnapshot{}, p.Snapshot())

	var c *deleteCounter
	assert.Zero(t, c.Removed())
	assert.Zero(t, c.Failed())
}
