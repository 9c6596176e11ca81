package main

import (
	"context"
	"log/slog"
	"sort"
	"time"

	"github.com/charmbracelet/bubbles/help"
	tea "github.com/charmbracelet/bubbletea"
)

// --------------------------- TUI ------------------------------

type viewMode int

const (
	modeOverview viewMode = iota
	modeDetail
)

// HistoryFrame is a snapshot of a listing taken when drilling in. Frames
// own their slices; nothing else writes to them.
type HistoryFrame struct {
	Mode       viewMode
	Path       string
	Entries    []Entry
	Selected   int
	Offset     int
	TotalSize  int64
	LargeFiles []LargeFile
}

type modelOptions struct {
	startPath       string
	roots           []string
	workers         int
	overviewWorkers int
	apparentSize    bool
	sizes           *sizeCache
	cleanable       func(string) bool
	home            string
	exportDir       string
	width           int
	height          int
}

type model struct {
	scanner         *Scanner
	overviewWorkers int
	sizes           *sizeCache
	cleanable       func(string) bool
	keys            keyMap
	help            help.Model
	home            string
	exportDir       string
	now             func() time.Time

	mode      viewMode
	roots     []string
	path      string
	entries   []Entry
	selected  int
	offset    int
	totalSize int64
	history   []HistoryFrame

	largeFiles     []LargeFile
	showLargeFiles bool
	largeSelected  int
	largeOffset    int

	scanning         bool
	overviewScanning bool
	gen              int
	scanCancel       context.CancelFunc
	scanCh           chan tea.Msg
	tracker          *ProgressTracker
	partial          bool
	reselect         string

	deleting      bool
	deleteConfirm bool
	deleteTarget  *Entry
	deleteCounter *deleteCounter
	deleteCancel  context.CancelFunc
	rescanQueued  bool

	accessTimes    map[string]time.Time
	accessInFlight map[string]struct{}

	width        int
	height       int
	spinnerFrame int
	status       string
}

type tickMsg time.Time

func newModel(opts modelOptions) *model {
	h := help.New()
	h.ShortSeparator = " | "
	cleanable := opts.cleanable
	if cleanable == nil {
		cleanable = func(string) bool { return false }
	}
	scanner := NewScanner(opts.workers, opts.workers)
	if !opts.apparentSize {
		scanner.UseDiskUsage()
	}
	m := &model{
		scanner:         scanner,
		overviewWorkers: max(1, opts.overviewWorkers),
		sizes:           opts.sizes,
		cleanable:       cleanable,
		keys:            newKeyMap(),
		help:            h,
		home:            opts.home,
		exportDir:       opts.exportDir,
		now:             time.Now,
		roots:           opts.roots,
		accessTimes:     map[string]time.Time{},
		accessInFlight:  map[string]struct{}{},
		width:           opts.width,
		height:          opts.height,
	}
	if opts.startPath != "" {
		m.mode = modeDetail
		m.path = opts.startPath
	} else {
		m.mode = modeOverview
		m.entries = m.overviewEntries()
		m.totalSize = resolvedTotal(m.entries)
	}
	return m
}

func (m *model) Init() tea.Cmd {
	return tea.Batch(tickCmd(), m.startCurrentScan())
}

func tickCmd() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg { return tickMsg(t) })
}

// waitScanMsg delivers the next message of a scan channel; nil once the
// channel is closed.
func waitScanMsg(ch <-chan tea.Msg) tea.Cmd {
	return func() tea.Msg {
		msg, ok := <-ch
		if !ok {
			return nil
		}
		return msg
	}
}

// overviewEntries builds one pending entry per root, filled from the size
// cache where it has a fresh value.
func (m *model) overviewEntries() []Entry {
	entries := make([]Entry, 0, len(m.roots))
	for _, r := range m.roots {
		e := Entry{Name: displayPath(r, m.home), Path: r, IsDir: true, Size: pendingSize}
		if size, ok := m.sizes.Lookup(r); ok {
			e.Size = size
		}
		entries = append(entries, e)
	}
	return entries
}

// startCurrentScan scans whatever the current location still needs: a full
// listing in Detail, the pending roots in Overview.
func (m *model) startCurrentScan() tea.Cmd {
	if m.mode == modeDetail {
		return m.startScan(scanJob{path: m.path})
	}
	if !hasPending(m.entries) {
		m.sortEntries()
		return nil
	}
	return m.startScan(scanJob{roots: cloneEntries(m.entries), parallel: m.overviewWorkers})
}

// startScan cancels any running scan and launches job under a new
// generation with a fresh tracker.
func (m *model) startScan(job scanJob) tea.Cmd {
	m.cancelScan()
	job.gen = m.gen
	if job.path == "" {
		job.path = m.path
	}
	ctx, cancel := context.WithCancel(context.Background())
	m.scanCancel = cancel
	m.tracker = NewProgressTracker()
	m.partial = false
	ch := make(chan tea.Msg, scanChannelBuffer)
	m.scanCh = ch
	if m.mode == modeOverview {
		m.overviewScanning = true
	} else {
		m.scanning = true
	}
	slog.Debug("scan started", "path", job.path, "gen", job.gen, "roots", len(job.roots))
	go m.scanner.Run(ctx, job, m.tracker, ch)
	return waitScanMsg(ch)
}

// cancelScan stops the running scan and retires its generation, so any
// message it still delivers is dropped. The tracker is sealed and let go;
// a worker already past the seal check may still bump it once.
func (m *model) cancelScan() {
	if m.scanCancel != nil {
		m.scanCancel()
		m.scanCancel = nil
		slog.Debug("scan cancelled", "path", m.path, "gen", m.gen)
	}
	m.gen++
	m.tracker.Seal()
	m.tracker = nil
	m.scanCh = nil
	m.scanning = false
	m.overviewScanning = false
}

func (m *model) isScanning() bool { return m.scanning || m.overviewScanning }

func (m *model) pushHistory() {
	m.history = append(m.history, HistoryFrame{
		Mode:       m.mode,
		Path:       m.path,
		Entries:    cloneEntries(m.entries),
		Selected:   m.selected,
		Offset:     m.offset,
		TotalSize:  m.totalSize,
		LargeFiles: cloneLargeFiles(m.largeFiles),
	})
}

func (m *model) popHistory() (HistoryFrame, bool) {
	if len(m.history) == 0 {
		return HistoryFrame{}, false
	}
	f := m.history[len(m.history)-1]
	m.history = m.history[:len(m.history)-1]
	return f, true
}

// restoreFrame installs f as the current listing. The frame keeps its own
// slices untouched.
func (m *model) restoreFrame(f HistoryFrame) {
	m.mode = f.Mode
	m.path = f.Path
	m.entries = cloneEntries(f.Entries)
	m.selected = f.Selected
	m.offset = f.Offset
	m.totalSize = f.TotalSize
	m.largeFiles = cloneLargeFiles(f.LargeFiles)
	m.showLargeFiles = false
	m.largeSelected, m.largeOffset = 0, 0
	m.clampSelection()
}

func (m *model) selectedEntry() (Entry, bool) {
	if m.selected < 0 || m.selected >= len(m.entries) {
		return Entry{}, false
	}
	return m.entries[m.selected], true
}

func (m *model) selectedLargeFile() (LargeFile, bool) {
	if m.largeSelected < 0 || m.largeSelected >= len(m.largeFiles) {
		return LargeFile{}, false
	}
	return m.largeFiles[m.largeSelected], true
}

func (m *model) viewport() int {
	return calculateViewport(m.height, m.showLargeFiles)
}

// clampSelection restores the selection and offset invariants after any
// change to the lists or the terminal size.
func (m *model) clampSelection() {
	if len(m.entries) == 0 {
		m.selected, m.offset = 0, 0
	} else {
		m.selected = clamp(m.selected, 0, len(m.entries)-1)
		m.offset = ensureVisible(m.selected, m.offset, len(m.entries), calculateViewport(m.height, false))
	}
	if len(m.largeFiles) == 0 {
		m.largeSelected, m.largeOffset = 0, 0
	} else {
		m.largeSelected = clamp(m.largeSelected, 0, len(m.largeFiles)-1)
		m.largeOffset = ensureVisible(m.largeSelected, m.largeOffset, len(m.largeFiles), calculateViewport(m.height, true))
	}
}

// ensureVisible scrolls offset the least amount that keeps sel in view.
func ensureVisible(sel, offset, n, viewport int) int {
	if sel < offset {
		offset = sel
	}
	if sel >= offset+viewport {
		offset = sel - viewport + 1
	}
	return clampOffset(offset, n, viewport)
}

func (m *model) selectPath(path string) {
	for i, e := range m.entries {
		if e.Path == path {
			m.selected = i
			break
		}
	}
	m.clampSelection()
}

// sortEntries orders the listing by size, largest first, keeping the
// selection on the same entry.
func (m *model) sortEntries() {
	cur, ok := m.selectedEntry()
	sort.SliceStable(m.entries, func(i, j int) bool { return m.entries[i].Size > m.entries[j].Size })
	if ok {
		m.selectPath(cur.Path)
	}
}

func (m *model) disarmDelete() {
	m.deleteConfirm = false
	if !m.deleting {
		m.deleteTarget = nil
	}
}

// visibleAccessCmds requests last access times for visible rows that do
// not have one yet. Directories wait for the scan to finish: the walk reads
// them and would report its own access.
func (m *model) visibleAccessCmds() tea.Cmd {
	if m.showLargeFiles || len(m.entries) == 0 {
		return nil
	}
	end := min(len(m.entries), m.offset+m.viewport())
	var cmds []tea.Cmd
	for i := m.offset; i < end; i++ {
		e := m.entries[i]
		if !e.LastAccess.IsZero() || (e.IsDir && (m.isScanning() || m.cleanable(e.Path))) {
			continue
		}
		if _, done := m.accessTimes[e.Path]; done {
			continue
		}
		if _, busy := m.accessInFlight[e.Path]; busy {
			continue
		}
		m.accessInFlight[e.Path] = struct{}{}
		cmds = append(cmds, accessTimeCmd(e.Path))
	}
	return tea.Batch(cmds...)
}

func (m *model) applyAccessTime(path string, at time.Time) {
	delete(m.accessInFlight, path)
	m.accessTimes[path] = at
	for i := range m.entries {
		if m.entries[i].Path == path && m.entries[i].LastAccess.IsZero() {
			m.entries[i].LastAccess = at
		}
	}
}

// fillAccessTimes copies already known access times into entries.
func (m *model) fillAccessTimes(entries []Entry) {
	for i := range entries {
		if entries[i].LastAccess.IsZero() {
			entries[i].LastAccess = m.accessTimes[entries[i].Path]
		}
	}
}

func hasPending(entries []Entry) bool {
	for _, e := range entries {
		if e.Pending() {
			return true
		}
	}
	return false
}

func resolvedTotal(entries []Entry) int64 {
	var total int64
	for _, e := range entries {
		if !e.Pending() {
			total += e.Size
		}
	}
	return total
}

// mergeLargeFiles combines two top lists, dropping duplicate paths and
// keeping the biggest maxLargeFiles.
func mergeLargeFiles(a, b []LargeFile) []LargeFile {
	set := newLargeFileSet(maxLargeFiles)
	seen := map[string]struct{}{}
	for _, list := range [][]LargeFile{a, b} {
		for _, f := range list {
			if _, dup := seen[f.Path]; dup {
				continue
			}
			seen[f.Path] = struct{}{}
			set.offer(f)
		}
	}
	return set.sorted()
}
