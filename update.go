package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
)

func (m *model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		m.clampSelection()
		return m, m.visibleAccessCmds()

	case tickMsg:
		m.spinnerFrame = (m.spinnerFrame + 1) % len(spinnerFrames)
		return m, tickCmd()

	case listingMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m, m.handleListing(msg)

	case entrySizedMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m, m.handleEntrySized(msg)

	case scanDoneMsg:
		if msg.gen != m.gen {
			return m, nil
		}
		return m, m.handleScanDone(msg)

	case deleteDoneMsg:
		return m, m.handleDeleteDone(msg)

	case accessTimeMsg:
		m.applyAccessTime(msg.path, msg.at)
		return m, nil

	case fileInfoMsg:
		if msg.err != nil {
			m.status = msg.err.Error()
		} else {
			m.status = msg.text
		}
		return m, nil

	case exportDoneMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("Export failed: %v", msg.err)
		} else {
			m.status = "Exported to " + msg.path
		}
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m *model) handleListing(msg listingMsg) tea.Cmd {
	m.entries = msg.entries
	m.fillAccessTimes(m.entries)
	m.totalSize = 0
	m.largeFiles = nil
	m.selected, m.offset = 0, 0
	m.selectPath(m.reselect)
	m.reselect = ""
	if msg.err != nil {
		slog.Debug("listing incomplete", "path", msg.path, "err", msg.err)
		m.status = fmt.Sprintf("Cannot fully read %s", displayPath(msg.path, m.home))
		m.partial = true
	}
	return tea.Batch(waitScanMsg(m.scanCh), m.visibleAccessCmds())
}

func (m *model) handleEntrySized(msg entrySizedMsg) tea.Cmd {
	next := waitScanMsg(m.scanCh)
	if msg.index < 0 || msg.index >= len(m.entries) {
		return next
	}
	e := &m.entries[msg.index]
	if e.Path != msg.path || !e.Pending() {
		return next
	}
	e.Size = msg.size
	m.totalSize += msg.size
	if e.LastAccess.IsZero() && !msg.access.IsZero() {
		e.LastAccess = msg.access
		m.accessTimes[e.Path] = msg.access
	}
	if m.mode == modeOverview {
		sizes, path, size := m.sizes, msg.path, msg.size
		return tea.Batch(next, func() tea.Msg {
			if err := sizes.Store(path, size); err != nil {
				slog.Debug("size cache store failed", "path", path, "err", err)
			}
			return nil
		})
	}
	return next
}

func (m *model) handleScanDone(msg scanDoneMsg) tea.Cmd {
	if m.scanCancel != nil {
		m.scanCancel()
		m.scanCancel = nil
	}
	m.tracker.Seal()
	m.scanCh = nil
	m.scanning, m.overviewScanning = false, false

	m.largeFiles = mergeLargeFiles(m.largeFiles, msg.largeFiles)
	m.totalSize = resolvedTotal(m.entries)
	m.sortEntries()
	m.clampSelection()
	if !m.partial {
		m.status = "Scanned " + humanizeBytes(m.totalSize)
	}
	slog.Debug("scan finished", "path", m.path, "gen", msg.gen, "total", m.totalSize)
	return m.visibleAccessCmds()
}

func (m *model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	k := m.keys
	if key.Matches(msg, k.Quit) {
		m.cancelScan()
		if m.deleteCancel != nil {
			m.deleteCancel()
		}
		return m, tea.Quit
	}

	if m.deleting {
		if key.Matches(msg, k.Refresh) {
			m.rescanQueued = true
			m.status = "Refresh queued until the deletion finishes"
		}
		return m, nil
	}

	if key.Matches(msg, k.Delete) {
		return m, m.handleDelete()
	}
	// every other key disarms a pending delete
	wasArmed := m.deleteConfirm
	m.disarmDelete()

	switch {
	case key.Matches(msg, k.Cancel):
		if !wasArmed && m.showLargeFiles {
			m.showLargeFiles = false
			return m, m.visibleAccessCmds()
		}
		return m, nil
	case key.Matches(msg, k.Up):
		m.move(-1)
		return m, m.visibleAccessCmds()
	case key.Matches(msg, k.Down):
		m.move(1)
		return m, m.visibleAccessCmds()
	case key.Matches(msg, k.Enter):
		return m, m.enter()
	case key.Matches(msg, k.Back):
		return m, m.back()
	case key.Matches(msg, k.Refresh):
		return m, m.refresh()
	case key.Matches(msg, k.Top):
		if m.mode == modeDetail {
			m.showLargeFiles = !m.showLargeFiles
			m.clampSelection()
		}
		return m, m.visibleAccessCmds()
	case key.Matches(msg, k.Open):
		if p, _, ok := m.actionTarget(); ok {
			return m, openPathCmd(p, false)
		}
	case key.Matches(msg, k.Info):
		if p, size, ok := m.actionTarget(); ok {
			return m, tea.Batch(openPathCmd(p, true), fileInfoCmd(p, size))
		}
	case key.Matches(msg, k.Export):
		if m.mode == modeDetail && !m.showLargeFiles {
			return m, exportCmd(m.exportDir, m.entries)
		}
	}
	return m, nil
}

// actionTarget is the path and known size the O and F keys act on.
func (m *model) actionTarget() (string, int64, bool) {
	if m.showLargeFiles {
		f, ok := m.selectedLargeFile()
		return f.Path, f.Size, ok
	}
	e, ok := m.selectedEntry()
	return e.Path, e.Size, ok
}

func (m *model) move(delta int) {
	if m.showLargeFiles {
		if len(m.largeFiles) == 0 {
			return
		}
		m.largeSelected = clamp(m.largeSelected+delta, 0, len(m.largeFiles)-1)
	} else {
		if len(m.entries) == 0 {
			return
		}
		m.selected = clamp(m.selected+delta, 0, len(m.entries)-1)
	}
	m.clampSelection()
}

func (m *model) enter() tea.Cmd {
	if m.showLargeFiles {
		return nil
	}
	e, ok := m.selectedEntry()
	if !ok || !e.IsDir {
		return nil
	}
	m.cancelScan()
	m.pushHistory()
	m.mode = modeDetail
	m.path = e.Path
	m.entries = nil
	m.selected, m.offset = 0, 0
	m.totalSize = 0
	m.largeFiles = nil
	m.largeSelected, m.largeOffset = 0, 0
	m.status = ""
	return m.startScan(scanJob{path: e.Path})
}

func (m *model) back() tea.Cmd {
	if m.showLargeFiles {
		m.showLargeFiles = false
		return m.visibleAccessCmds()
	}
	if f, ok := m.popHistory(); ok {
		m.cancelScan()
		m.restoreFrame(f)
		m.status = ""
		var scan tea.Cmd
		if hasPending(m.entries) {
			parallel := 0
			if m.mode == modeOverview {
				parallel = m.overviewWorkers
			}
			scan = m.startScan(scanJob{path: m.path, roots: cloneEntries(m.entries), parallel: parallel})
		}
		return tea.Batch(scan, m.visibleAccessCmds())
	}
	if m.mode == modeDetail && len(m.roots) > 0 {
		m.cancelScan()
		from := m.path
		m.mode = modeOverview
		m.path = ""
		m.entries = m.overviewEntries()
		m.totalSize = resolvedTotal(m.entries)
		m.largeFiles = nil
		m.selected, m.offset = 0, 0
		m.selectPath(from)
		m.status = ""
		return tea.Batch(m.startCurrentScan(), m.visibleAccessCmds())
	}
	return nil
}

// refresh discards the current listing and scans it again from pending.
func (m *model) refresh() tea.Cmd {
	m.status = ""
	if m.mode == modeOverview {
		m.cancelScan()
		for i := range m.entries {
			m.entries[i].Size = pendingSize
		}
		m.totalSize = 0
		sizes, roots := m.sizes, append([]string(nil), m.roots...)
		forget := func() tea.Msg {
			if err := sizes.Forget(roots...); err != nil {
				slog.Debug("size cache forget failed", "err", err)
			}
			return nil
		}
		return tea.Sequence(forget, m.startCurrentScan())
	}
	m.cancelScan()
	if e, ok := m.selectedEntry(); ok {
		m.reselect = e.Path
	}
	m.entries = nil
	m.totalSize = 0
	m.largeFiles = nil
	return m.startScan(scanJob{path: m.path})
}

// handleDelete arms deletion of the selected entry on the first press and
// starts it on a second press against the same target.
func (m *model) handleDelete() tea.Cmd {
	if m.mode == modeOverview {
		m.status = "Delete is not available in the overview"
		return nil
	}
	if m.isScanning() {
		m.disarmDelete()
		m.status = "Wait for the scan to finish"
		return nil
	}
	var target Entry
	if m.showLargeFiles {
		f, ok := m.selectedLargeFile()
		if !ok {
			return nil
		}
		target = Entry{Name: f.Name, Path: f.Path, Size: f.Size}
	} else {
		e, ok := m.selectedEntry()
		if !ok {
			return nil
		}
		target = e
	}

	if !m.deleteConfirm || m.deleteTarget == nil || m.deleteTarget.Path != target.Path {
		m.deleteTarget = &target
		m.deleteConfirm = true
		return nil
	}

	m.deleteConfirm = false
	m.deleting = true
	m.deleteCounter = &deleteCounter{}
	ctx, cancel := context.WithCancel(context.Background())
	m.deleteCancel = cancel
	counter, path := m.deleteCounter, target.Path
	slog.Info("delete started", "path", path)
	return func() tea.Msg {
		return deleteResult(ctx, path, counter)
	}
}

func (m *model) handleDeleteDone(msg deleteDoneMsg) tea.Cmd {
	if m.deleteCancel != nil {
		m.deleteCancel()
		m.deleteCancel = nil
	}
	m.deleting = false
	target := m.deleteTarget
	m.deleteTarget = nil
	m.deleteConfirm = false

	var cmds []tea.Cmd
	sizes := m.sizes
	cmds = append(cmds, func() tea.Msg {
		if err := sizes.InvalidateContaining(msg.path); err != nil {
			slog.Debug("size cache invalidate failed", "path", msg.path, "err", err)
		}
		return nil
	})

	rescan := msg.failed > 0 || msg.err != nil
	if target != nil && !rescan {
		rescan = !m.applyDeletion(target.Path, target.Size)
	}
	if msg.failed > 0 {
		m.status = fmt.Sprintf("Deleted %s items, %s failed", formatNumber(msg.removed), formatNumber(msg.failed))
		if msg.err != nil {
			m.status += ": " + msg.err.Error()
		}
	} else {
		m.status = fmt.Sprintf("Deleted %s items", formatNumber(msg.removed))
		if target != nil && !target.Pending() {
			m.status += " (" + humanizeBytes(target.Size) + ")"
		}
	}

	if rescan || m.rescanQueued {
		m.rescanQueued = false
		status := m.status
		cmds = append(cmds, m.refresh())
		m.status = status
	}
	return tea.Batch(append(cmds, m.visibleAccessCmds())...)
}

// applyDeletion removes path from the listing and subtracts size from every
// entry and total that counted it, history frames included. It reports
// false when a size involved was unknown and the listing needs a rescan.
func (m *model) applyDeletion(path string, size int64) bool {
	if size < 0 {
		return false
	}
	exact := true
	kept := m.entries[:0:0]
	for _, e := range m.entries {
		switch {
		case e.Path == path:
			if e.Pending() {
				exact = false
			}
			continue
		case isWithin(path, e.Path):
			if e.Pending() {
				exact = false
			} else {
				e.Size = max(0, e.Size-size)
			}
		}
		kept = append(kept, e)
	}
	m.entries = kept
	m.totalSize = max(0, m.totalSize-size)

	largeKept := m.largeFiles[:0:0]
	for _, f := range m.largeFiles {
		if !isWithin(f.Path, path) {
			largeKept = append(largeKept, f)
		}
	}
	m.largeFiles = largeKept

	for i, f := range m.history {
		adjusted := f
		adjusted.Entries = cloneEntries(f.Entries)
		touched := false
		for j := range adjusted.Entries {
			e := &adjusted.Entries[j]
			if !e.Pending() && isWithin(path, e.Path) {
				e.Size = max(0, e.Size-size)
				touched = true
			}
		}
		if touched {
			adjusted.TotalSize = max(0, f.TotalSize-size)
			adjusted.LargeFiles = nil
			for _, lf := range f.LargeFiles {
				if !isWithin(lf.Path, path) {
					adjusted.LargeFiles = append(adjusted.LargeFiles, lf)
				}
			}
			m.history[i] = adjusted
		}
	}
	m.clampSelection()
	return exact
}
