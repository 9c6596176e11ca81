package main

import (
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var (
	keyUp     = tea.KeyMsg{Type: tea.KeyUp}
	keyDown   = tea.KeyMsg{Type: tea.KeyDown}
	keyEnter  = tea.KeyMsg{Type: tea.KeyEnter}
	keyLeft   = tea.KeyMsg{Type: tea.KeyLeft}
	keyEsc    = tea.KeyMsg{Type: tea.KeyEsc}
	keyDelete = tea.KeyMsg{Type: tea.KeyBackspace}
)

func runeKey(r rune) tea.KeyMsg {
	return tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune{r}}
}

func newTestModel(t *testing.T, start string, roots ...string) *model {
	t.Helper()
	m := newModel(modelOptions{
		startPath:       start,
		roots:           roots,
		workers:         4,
		overviewWorkers: 2,
		apparentSize:    true,
		width:           100,
		height:          24,
	})
	t.Cleanup(m.cancelScan)
	return m
}

// awaitBuffered waits until the scan behind ch has queued a message.
func awaitBuffered(t *testing.T, ch chan tea.Msg) {
	t.Helper()
	require.Eventually(t, func() bool { return len(ch) > 0 }, 10*time.Second, time.Millisecond)
}

func press(m *model, k tea.KeyMsg) tea.Cmd {
	_, cmd := m.Update(k)
	return cmd
}

// finishScan feeds the running scan's messages to Update until the model
// leaves the scanning state.
func finishScan(t *testing.T, m *model) {
	t.Helper()
	deadline := time.After(10 * time.Second)
	for m.isScanning() {
		select {
		case msg, ok := <-m.scanCh:
			require.True(t, ok, "scan channel closed while scanning")
			m.Update(msg)
		case <-deadline:
			t.Fatal("scan did not finish")
		}
	}
}

// runCmd executes cmd and any batch it expands to, returning the messages.
func runCmd(cmd tea.Cmd) []tea.Msg {
	if cmd == nil {
		return nil
	}
	msg := cmd()
	if batch, ok := msg.(tea.BatchMsg); ok {
		var out []tea.Msg
		for _, c := range batch {
			out = append(out, runCmd(c)...)
		}
		return out
	}
	if msg == nil {
		return nil
	}
	return []tea.Msg{msg}
}

func selectName(t *testing.T, m *model, name string) Entry {
	t.Helper()
	for i, e := range m.entries {
		if e.Name == name {
			m.selected = i
			m.clampSelection()
			return e
		}
	}
	t.Fatalf("entry %q not listed", name)
	return Entry{}
}

func names(entries []Entry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Name)
	}
	return out
}

// confirmDelete arms and executes deletion of the selected row and returns
// the executor's result.
func confirmDelete(t *testing.T, m *model) tea.Msg {
	t.Helper()
	require.Nil(t, press(m, keyDelete))
	require.True(t, m.deleteConfirm)
	require.NotNil(t, m.deleteTarget)
	cmd := press(m, keyDelete)
	require.True(t, m.deleting)
	require.False(t, m.deleteConfirm)
	require.NotNil(t, cmd)
	return cmd()
}

func TestDetailScanSortsAndResolvesOnce(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{
		"a/x":   200,
		"a/y/z": 100,
		"b/x":   100,
		"c":     50,
	})
	m := newTestModel(t, tmp)
	m.Init()
	assert.True(t, m.scanning)
	finishScan(t, m)

	assert.Equal(t, []string{"a", "b", "c"}, names(m.entries))
	assert.Equal(t, int64(450), m.totalSize)
	assert.False(t, hasPending(m.entries))
	assert.Equal(t, "Scanned 450 B", m.status)
	assert.True(t, m.tracker.Sealed())

	// a second resolution of the same entry is ignored
	first := m.entries[0]
	m.Update(entrySizedMsg{gen: m.gen, index: 0, path: first.Path, size: 1})
	assert.Equal(t, first.Size, m.entries[0].Size)
	assert.Equal(t, int64(450), m.totalSize)

	// stale generations are ignored
	m.Update(listingMsg{gen: m.gen - 1, path: tmp})
	assert.Len(t, m.entries, 3)
}

func TestDeleteSequenceRemovesEntry(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{
		"victim/1":   10,
		"victim/2":   20,
		"victim/d/3": 30,
		"keep":       5,
	})
	m := newTestModel(t, tmp)
	m.Init()
	finishScan(t, m)
	victim := selectName(t, m, "victim")
	require.Equal(t, int64(60), victim.Size)

	msg := confirmDelete(t, m)
	assert.Contains(t, m.View(), "Deleting")
	done, ok := msg.(deleteDoneMsg)
	require.True(t, ok)
	assert.Equal(t, int64(5), m.deleteCounter.Removed()) // 3 files, d, victim
	assert.Zero(t, done.failed)

	m.Update(done)
	assert.False(t, m.deleting)
	assert.Nil(t, m.deleteTarget)
	assert.Equal(t, []string{"keep"}, names(m.entries))
	assert.Equal(t, int64(5), m.totalSize)
	assert.NoDirExists(t, filepath.Join(tmp, "victim"))
	assert.Contains(t, m.status, "Deleted 5 items")
	assert.False(t, m.isScanning())
}

func TestDeleteConfirmationDisarms(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{"a": 2, "b": 1})
	m := newTestModel(t, tmp)
	m.Init()
	finishScan(t, m)
	selectName(t, m, "a")

	press(m, keyDelete)
	require.True(t, m.deleteConfirm)
	press(m, keyDown)
	assert.False(t, m.deleteConfirm)
	assert.Nil(t, m.deleteTarget)

	press(m, keyDelete)
	require.True(t, m.deleteConfirm)
	press(m, keyEsc)
	assert.False(t, m.deleteConfirm)

	// a press on another entry re-arms instead of deleting
	selectName(t, m, "a")
	press(m, keyDelete)
	require.Equal(t, "a", m.deleteTarget.Name)
	selectName(t, m, "b")
	assert.Nil(t, press(m, keyDelete))
	assert.True(t, m.deleteConfirm)
	assert.Equal(t, "b", m.deleteTarget.Name)
	assert.False(t, m.deleting)
	assert.FileExists(t, filepath.Join(tmp, "a"))
}

func TestDeleteRejectedWhileScanning(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{"a": 1})
	m := newTestModel(t, tmp)
	m.Init()
	require.True(t, m.isScanning())

	press(m, keyDelete)
	assert.False(t, m.deleteConfirm)
	assert.False(t, m.deleting)
	assert.Equal(t, "Wait for the scan to finish", m.status)
}

func TestRefreshWhileDeletingIsDeferred(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{"gone/f": 3, "stay": 4})
	m := newTestModel(t, tmp)
	m.Init()
	finishScan(t, m)
	selectName(t, m, "gone")

	press(m, keyDelete)
	cmd := press(m, keyDelete)
	require.True(t, m.deleting)

	gen := m.gen
	press(m, runeKey('r'))
	assert.True(t, m.rescanQueued)
	assert.False(t, m.isScanning())
	assert.Equal(t, gen, m.gen)

	m.Update(cmd())
	assert.False(t, m.deleting)
	assert.False(t, m.rescanQueued)
	require.True(t, m.scanning, "queued refresh runs after the deletion")
	finishScan(t, m)
	assert.Equal(t, []string{"stay"}, names(m.entries))
	assert.Equal(t, int64(4), m.totalSize)
}

func TestBackCancelsScanAndRestoresFrame(t *testing.T) {
	tmp := t.TempDir()
	files := map[string]int{"b/f": 7}
	for i := 0; i < 200; i++ {
		files[filepath.Join("a", "d"+string(rune('a'+i%26)), "f"+string(rune('a'+i/26)))] = 1
	}
	writeTree(t, tmp, files)
	m := newTestModel(t, tmp)
	m.Init()
	finishScan(t, m)
	before := cloneEntries(m.entries)
	selectName(t, m, "a")
	selected := m.selected

	press(m, keyEnter)
	require.True(t, m.scanning)
	require.Equal(t, filepath.Join(tmp, "a"), m.path)
	oldCh, oldTracker := m.scanCh, m.tracker
	awaitBuffered(t, oldCh)

	press(m, keyLeft)
	assert.False(t, m.isScanning(), "restored frame has nothing pending")
	assert.True(t, oldTracker.Sealed())
	assert.Nil(t, m.tracker)
	assert.Equal(t, before, m.entries)
	assert.Equal(t, selected, m.selected)
	assert.Equal(t, tmp, m.path)
	assert.Empty(t, m.history)

	// whatever the cancelled scan still delivers must not touch the listing
	for msg := range oldCh {
		m.Update(msg)
	}
	assert.Equal(t, before, m.entries)
	assert.Equal(t, tmp, m.path)
}

func TestBackFromRootDetailOpensOverview(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{"x/f": 10, "y/f": 20})
	x, y := filepath.Join(tmp, "x"), filepath.Join(tmp, "y")
	m := newTestModel(t, x, x, y)
	m.Init()
	finishScan(t, m)

	press(m, keyLeft)
	assert.Equal(t, modeOverview, m.mode)
	assert.True(t, m.overviewScanning)
	assert.Equal(t, x, m.entries[m.selected].Path)
	finishScan(t, m)

	assert.Equal(t, []string{y, x}, []string{m.entries[0].Path, m.entries[1].Path})
	assert.Equal(t, int64(30), m.totalSize)
	assert.Equal(t, x, m.entries[m.selected].Path, "selection follows the entry after sorting")

	press(m, keyDelete)
	assert.False(t, m.deleteConfirm)
	assert.Contains(t, m.status, "not available")
}

func TestBackToCachedOverviewIgnoresCancelledScan(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{"x/a/f": 10, "x/b/f": 10, "y/f": 20})
	x, y := filepath.Join(tmp, "x"), filepath.Join(tmp, "y")
	sizes := newSizeCache(filepath.Join(t.TempDir(), "overview.json"), time.Hour)
	require.NoError(t, sizes.Store(x, 500))
	require.NoError(t, sizes.Store(y, 900))

	m := newModel(modelOptions{startPath: x, roots: []string{x, y}, sizes: sizes, apparentSize: true, workers: 2, overviewWorkers: 2, width: 100, height: 24})
	t.Cleanup(m.cancelScan)
	m.Init()
	oldCh := m.scanCh
	awaitBuffered(t, oldCh)

	press(m, keyLeft)
	require.Equal(t, modeOverview, m.mode)
	assert.False(t, m.isScanning(), "every root is cached")
	want := []string{y, x}
	assert.Equal(t, want, []string{m.entries[0].Path, m.entries[1].Path})

	for msg := range oldCh {
		m.Update(msg)
	}
	assert.Equal(t, modeOverview, m.mode)
	assert.Equal(t, want, []string{m.entries[0].Path, m.entries[1].Path})
	assert.Equal(t, int64(1400), m.totalSize)
	assert.Empty(t, m.largeFiles)
}

func TestOverviewHydratesFromSizeCache(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{"x/f": 10, "y/f": 20})
	x, y := filepath.Join(tmp, "x"), filepath.Join(tmp, "y")
	sizes := newSizeCache(filepath.Join(t.TempDir(), "overview.json"), time.Hour)
	require.NoError(t, sizes.Store(x, 12345))

	m := newModel(modelOptions{roots: []string{x, y}, sizes: sizes, apparentSize: true, workers: 2, overviewWorkers: 2, width: 100, height: 24})
	t.Cleanup(m.cancelScan)
	assert.Equal(t, int64(12345), m.entries[0].Size)
	assert.True(t, m.entries[1].Pending())

	m.Init()
	finishScan(t, m)
	assert.Equal(t, []int64{12345, 20}, []int64{m.entries[0].Size, m.entries[1].Size})
	assert.Equal(t, int64(12365), m.totalSize)
}

func TestPaginationKeepsOffsetInRange(t *testing.T) {
	tmp := t.TempDir()
	files := map[string]int{}
	for i := 0; i < 40; i++ {
		files[fmt.Sprintf("f%02d", i)] = i + 1
	}
	writeTree(t, tmp, files)
	m := newTestModel(t, tmp)
	m.Update(tea.WindowSizeMsg{Width: 100, Height: 10})
	m.Init()
	finishScan(t, m)

	vp := m.viewport()
	require.Equal(t, 4, vp)
	check := func() {
		t.Helper()
		n := len(m.entries)
		assert.GreaterOrEqual(t, m.offset, 0)
		assert.LessOrEqual(t, m.offset, max(0, n-m.viewport()))
		assert.GreaterOrEqual(t, m.selected, m.offset)
		assert.Less(t, m.selected, m.offset+m.viewport())
	}
	for i := 0; i < 45; i++ {
		press(m, keyDown)
		check()
	}
	assert.Equal(t, 39, m.selected)
	assert.Equal(t, 36, m.offset)

	m.Update(tea.WindowSizeMsg{Width: 100, Height: 40})
	check()
	assert.Equal(t, 10, m.offset)

	for i := 0; i < 50; i++ {
		press(m, keyUp)
		check()
	}
	assert.Zero(t, m.selected)
	assert.Zero(t, m.offset)
}

func TestLargeFilesViewAndDelete(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{"media/small": 5})
	big := filepath.Join(tmp, "media", "big.bin")
	f, err := os.Create(big)
	require.NoError(t, err)
	require.NoError(t, f.Truncate(minLargeFileSize))
	require.NoError(t, f.Close())

	m := newTestModel(t, tmp)
	m.Init()
	finishScan(t, m)
	require.Len(t, m.largeFiles, 1)
	assert.Equal(t, big, m.largeFiles[0].Path)
	assert.Contains(t, m.View(), "top(1)")

	press(m, runeKey('t'))
	require.True(t, m.showLargeFiles)
	assert.Contains(t, m.View(), "big.bin")
	press(m, keyEsc)
	assert.False(t, m.showLargeFiles)

	press(m, runeKey('T'))
	msg := confirmDelete(t, m)
	m.Update(msg)
	assert.Empty(t, m.largeFiles)
	assert.NoFileExists(t, big)
	assert.Equal(t, int64(5), m.entries[0].Size)
	assert.Equal(t, int64(5), m.totalSize)
	assert.Contains(t, m.View(), "No large files found")
}

func TestDeleteAdjustsHistoryFrames(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{"p/q/file": 1000, "p/other": 10})
	m := newTestModel(t, tmp)
	m.Init()
	finishScan(t, m)
	require.Equal(t, int64(1010), m.totalSize)

	press(m, keyEnter)
	finishScan(t, m)
	selectName(t, m, "q")
	m.Update(confirmDelete(t, m))
	assert.Equal(t, int64(10), m.totalSize)

	press(m, keyLeft)
	assert.False(t, m.isScanning())
	require.Len(t, m.entries, 1)
	assert.Equal(t, int64(10), m.entries[0].Size)
	assert.Equal(t, int64(10), m.totalSize)
}

func TestViewRendersRows(t *testing.T) {
	m := newTestModel(t, "/data")
	m.entries = []Entry{
		{Name: "big", Path: "/data/big", IsDir: true, Size: 100},
		{Name: "node_modules", Path: "/data/node_modules", IsDir: true, Size: 50},
		{Name: "later", Path: "/data/later", IsDir: true, Size: pendingSize},
		{Name: "old.log", Path: "/data/old.log", Size: 10, LastAccess: time.Now().Add(-400 * 24 * time.Hour)},
	}
	m.totalSize = 160
	m.cleanable = cleanableMatcher([]string{"node_modules"})

	out := stripANSI(m.View())
	lines := strings.Split(out, "\n")
	row := func(name string) string {
		for _, l := range lines {
			if strings.Contains(l, name) {
				return l
			}
		}
		t.Fatalf("row %q not rendered:\n%s", name, out)
		return ""
	}
	assert.Contains(t, row("big"), strings.Repeat("█", barWidth))
	assert.Contains(t, row("big"), " 62.5%")
	assert.Contains(t, row("later"), "pending")
	assert.Contains(t, row("later"), "  --  ")
	assert.Contains(t, row("node_modules"), "🧹")
	assert.Contains(t, row("old.log"), ">1yr")
	assert.Contains(t, out, "Total: 160 B")
	assert.Contains(t, out, "▶")
}

func TestViewShowsDeleteProgress(t *testing.T) {
	m := newTestModel(t, "/data")
	m.entries = []Entry{{Name: "gone", Path: "/data/gone", Size: 1}}
	m.deleting = true
	m.deleteTarget = &Entry{Name: "gone", Path: "/data/gone", Size: 1}
	m.deleteCounter = &deleteCounter{}
	m.deleteCounter.removed.Add(1234)

	out := stripANSI(m.View())
	assert.Contains(t, out, "1,234 items removed")
	assert.Contains(t, out, "Deleting gone")
}

func TestAccessTimesAreLookedUpForVisibleRows(t *testing.T) {
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{"d/f": 1})
	m := newTestModel(t, tmp)
	m.Init()
	finishScan(t, m)
	// as if restored without access times
	for i := range m.entries {
		m.entries[i].LastAccess = time.Time{}
	}
	m.accessTimes = map[string]time.Time{}
	m.accessInFlight = map[string]struct{}{}

	m.scanning = true
	assert.Nil(t, m.visibleAccessCmds(), "directories wait for the scan")
	m.scanning = false

	cmd := m.visibleAccessCmds()
	require.NotNil(t, cmd)
	assert.Nil(t, m.visibleAccessCmds(), "lookups in flight are not repeated")
	for _, msg := range runCmd(cmd) {
		m.Update(msg)
	}
	assert.Empty(t, m.accessInFlight)
	assert.Contains(t, m.accessTimes, filepath.Join(tmp, "d"))
}

func TestDirectoryAccessHintSurvivesScan(t *testing.T) {
	if runtime.GOOS != "linux" && runtime.GOOS != "darwin" {
		t.Skip("no access times on this platform")
	}
	tmp := t.TempDir()
	writeTree(t, tmp, map[string]int{"old/a/f": 1, "old/b": 1})
	old := time.Now().Add(-2 * 365 * 24 * time.Hour).Truncate(time.Second)
	dir := filepath.Join(tmp, "old")
	require.NoError(t, os.Chtimes(dir, old, old))

	m := newTestModel(t, tmp)
	m.Init()
	finishScan(t, m)
	e := selectName(t, m, "old")
	assert.Equal(t, old.Unix(), e.LastAccess.Unix())
	assert.Contains(t, stripANSI(m.View()), ">2yr")
}
