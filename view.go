package main

import (
	"fmt"
	"strings"
)

const appTitle = "Disk Usage"

// View renders the dashboard. It only reads the model and the shared
// progress counters.
func (m *model) View() string {
	var b strings.Builder
	b.WriteString("\n")
	b.WriteString(m.headerLine())
	b.WriteString("\n")
	b.WriteString(m.progressLine())
	b.WriteString("\n")

	if m.showLargeFiles {
		m.renderLargeFiles(&b)
	} else {
		m.renderEntries(&b)
	}

	b.WriteString("\n")
	b.WriteString(m.help.ShortHelpView(m.footerBindings()))
	b.WriteString("\n")
	if line := m.bottomLine(); line != "" {
		b.WriteString(line)
		b.WriteString("\n")
	}

	if m.deleting {
		return m.withDeletePopup(b.String())
	}
	return b.String()
}

func (m *model) spinner() string {
	return spinnerFrames[m.spinnerFrame%len(spinnerFrames)]
}

func (m *model) headerLine() string {
	title := ui.title.Render(appTitle)
	if m.mode == modeOverview {
		line := title + "  " + ui.muted.Render("Select a location to explore:")
		if m.overviewScanning || hasPending(m.entries) {
			line += "  " + ui.accent.Render(m.spinner()) + " Scanning..."
		}
		return line
	}
	line := title + "  " + ui.muted.Render(displayPath(m.path, m.home))
	if !m.scanning {
		line += "  |  Total: " + humanizeBytes(m.totalSize)
	}
	return line
}

// progressLine shows the live scan counters and the path being visited.
func (m *model) progressLine() string {
	if !m.isScanning() {
		return ""
	}
	snap := m.tracker.Snapshot()
	line := fmt.Sprintf("%s Scanning: %s, %s, %s",
		ui.accent.Render(m.spinner()),
		ui.count.Render(formatNumber(snap.Files)+" files"),
		ui.count.Render(formatNumber(snap.Dirs)+" dirs"),
		ui.bytes.Render(humanizeBytes(snap.Bytes)))
	if snap.CurrentPath != "" {
		line += "  " + ui.muted.Render(truncateMiddle(displayPath(snap.CurrentPath, m.home), 50))
	}
	return line
}

func (m *model) bottomLine() string {
	if m.deleteConfirm && m.deleteTarget != nil {
		size := "pending"
		if !m.deleteTarget.Pending() {
			size = humanizeBytes(m.deleteTarget.Size)
		}
		return fmt.Sprintf("%s %s (%s)  %s",
			ui.danger.Render("Delete:"), m.deleteTarget.Name, size,
			ui.muted.Render("Press ⌫ again  |  ESC cancel"))
	}
	if m.status != "" {
		return ui.muted.Render(m.status)
	}
	return ""
}

func (m *model) renderEntries(b *strings.Builder) {
	if len(m.entries) == 0 {
		if m.isScanning() {
			b.WriteString("  Reading directory...\n")
		} else {
			b.WriteString("  Empty directory\n")
		}
		return
	}
	maxSize := int64(1)
	for _, e := range m.entries {
		maxSize = max(maxSize, e.Size)
	}
	nameWidth := calculateNameWidth(m.width)
	start := clampOffset(m.offset, len(m.entries), m.viewport())
	end := min(len(m.entries), start+m.viewport())
	for idx := start; idx < end; idx++ {
		b.WriteString(m.entryRow(idx, m.entries[idx], maxSize, nameWidth))
		b.WriteString("\n")
	}
}

func (m *model) entryRow(idx int, e Entry, maxSize int64, nameWidth int) string {
	icon := "📄"
	if e.IsDir {
		icon = "📁"
	}
	var percent float64
	percentText := "  --  "
	sizeText := "pending"
	sizeStyle := ui.muted
	barValue := int64(0)
	if !e.Pending() {
		barValue = e.Size
		sizeText = humanizeBytes(e.Size)
		if m.totalSize > 0 {
			percent = float64(e.Size) / float64(m.totalSize) * 100
			percentText = fmt.Sprintf("%5.1f%%", percent)
			sizeStyle = bandStyle(percent)
		}
	}
	bar := coloredProgressBar(barValue, maxSize, percent)
	name := fitName(e.Name, nameWidth)

	prefix := "   "
	num := fmt.Sprintf("%2d.", idx+1)
	nameSeg := icon + " " + name
	size := sizeStyle.Render(fmt.Sprintf("%10s", sizeText))
	if idx == m.selected {
		prefix = " " + ui.accent.Render("▶") + " "
		num = ui.selected.Render(num)
		percentText = ui.selected.Render(percentText)
		nameSeg = ui.selected.Render(nameSeg)
		size = ui.selected.Render(fmt.Sprintf("%10s", sizeText))
	}

	row := fmt.Sprintf("%s%s %s %s  |  %s %s", prefix, num, bar, percentText, nameSeg, size)
	if hint := m.hintLabel(e); hint != "" {
		row += "  " + hint
	}
	return row
}

// hintLabel marks cleanable directories, otherwise long-unused entries.
func (m *model) hintLabel(e Entry) string {
	if e.IsDir && m.cleanable(e.Path) {
		return ui.hint.Render("🧹")
	}
	if age := formatUnusedTime(e.LastAccess, m.now()); age != "" {
		return ui.muted.Render(age)
	}
	return ""
}

func (m *model) renderLargeFiles(b *strings.Builder) {
	if len(m.largeFiles) == 0 {
		b.WriteString("  No large files found (>=100MB)\n")
		return
	}
	maxSize := int64(1)
	for _, f := range m.largeFiles {
		maxSize = max(maxSize, f.Size)
	}
	nameWidth := calculateNameWidth(m.width)
	viewport := m.viewport()
	start := clampOffset(m.largeOffset, len(m.largeFiles), viewport)
	end := min(len(m.largeFiles), start+viewport)
	for idx := start; idx < end; idx++ {
		f := m.largeFiles[idx]
		path := padName(truncateMiddle(displayPath(f.Path, m.home), nameWidth), nameWidth)
		prefix := "   "
		num := fmt.Sprintf("%2d.", idx+1)
		size := ui.muted.Render(fmt.Sprintf("%10s", humanizeBytes(f.Size)))
		if idx == m.largeSelected {
			prefix = " " + ui.accent.Render("▶") + " "
			num = ui.selected.Render(num)
			path = ui.selected.Render(path)
			size = ui.selected.Render(fmt.Sprintf("%10s", humanizeBytes(f.Size)))
		}
		fmt.Fprintf(b, "%s%s %s  |  📄 %s  %s\n", prefix, num, coloredProgressBar(f.Size, maxSize, 0), path, size)
	}
}

func (m *model) withDeletePopup(base string) string {
	name := ""
	if m.deleteTarget != nil {
		name = trimNameWithWidth(m.deleteTarget.Name, minNameWidth)
	}
	popup := ui.popup.Render(fmt.Sprintf("%s Deleting %s\n%s items removed, please wait...",
		ui.accent.Render(m.spinner()), name,
		ui.count.Render(formatNumber(m.deleteCounter.Removed()))))
	if m.width <= 0 || m.height <= 0 {
		return base + "\n" + popup + "\n"
	}
	return renderOverlay(base, popup, m.width, m.height)
}
