package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/mattn/go-runewidth"
)

// --------------------------- Helpers ------------------------------

const ellipsis = "…"

// widthCond measures names. Ambiguous-width runes count as one column so
// the result matches what most terminals draw.
var widthCond = func() *runewidth.Condition {
	c := runewidth.NewCondition()
	c.EastAsianWidth = false
	return c
}()

func humanizeBytes(size int64) string {
	if size < 0 {
		return "0 B"
	}
	const unit = 1024
	if size < unit {
		return fmt.Sprintf("%d B", size)
	}
	div, exp := int64(unit), 0
	for n := size / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(size)/float64(div), "KMGTPE"[exp])
}

func formatNumber(n int64) string {
	return humanize.Comma(n)
}

func runeWidth(r rune) int {
	return widthCond.RuneWidth(r)
}

func displayWidth(s string) int {
	return widthCond.StringWidth(s)
}

// calculateNameWidth sizes the name column from the terminal width.
func calculateNameWidth(termWidth int) int {
	return clamp(termWidth-nameColumnOverhead, minNameWidth, maxNameWidth)
}

// calculateViewport is the number of entry rows that fit the terminal.
func calculateViewport(termHeight int, largeFiles bool) int {
	if termHeight <= 0 {
		return defaultViewport
	}
	reserved := reservedRows
	if largeFiles {
		reserved = reservedLargeRows
	}
	return clamp(termHeight-reserved, minViewport, maxViewport)
}

// clampOffset keeps offset inside [0, max(0, n-viewport)].
func clampOffset(offset, n, viewport int) int {
	return clamp(offset, 0, max(0, n-viewport))
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}

// trimNameWithWidth shortens name to at most maxWidth display columns,
// ending it with an ellipsis when something was cut.
func trimNameWithWidth(name string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if displayWidth(name) <= maxWidth {
		return name
	}
	budget := maxWidth - displayWidth(ellipsis)
	var b strings.Builder
	used := 0
	for _, r := range name {
		w := runeWidth(r)
		if used+w > budget {
			break
		}
		b.WriteRune(r)
		used += w
	}
	return b.String() + ellipsis
}

func padName(name string, targetWidth int) string {
	if w := displayWidth(name); w < targetWidth {
		return name + strings.Repeat(" ", targetWidth-w)
	}
	return name
}

// fitName truncates and pads name to exactly width columns.
func fitName(name string, width int) string {
	return padName(trimNameWithWidth(name, width), width)
}

// truncateMiddle keeps the head and a longer tail of s, since the end of a
// path is usually what matters.
func truncateMiddle(s string, maxWidth int) string {
	if displayWidth(s) <= maxWidth {
		return s
	}
	if maxWidth < 10 {
		return trimNameWithWidth(s, maxWidth)
	}
	runes := []rune(s)
	headBudget := (maxWidth - 1) / 3
	tailBudget := maxWidth - 1 - headBudget

	headIdx, used := 0, 0
	for i, r := range runes {
		w := runeWidth(r)
		if used+w > headBudget {
			break
		}
		used += w
		headIdx = i + 1
	}
	tailIdx, used := len(runes), 0
	for i := len(runes) - 1; i >= headIdx; i-- {
		w := runeWidth(runes[i])
		if used+w > tailBudget {
			break
		}
		used += w
		tailIdx = i
	}
	return string(runes[:headIdx]) + ellipsis + string(runes[tailIdx:])
}

// barCells splits a bar of barWidth cells for value/max into its drawn
// part and its empty track. The value equal to max fills every cell.
func barCells(value, max int64) (filled, track string) {
	if max <= 0 || value <= 0 {
		return "", strings.Repeat("░", barWidth)
	}
	scaled := value * barWidth
	full := int(scaled / max)
	if full >= barWidth {
		return strings.Repeat("█", barWidth), ""
	}
	var b strings.Builder
	b.WriteString(strings.Repeat("█", full))
	cells := full
	if rem := scaled % max; rem > 0 {
		switch {
		case rem > max/2:
			b.WriteString("█")
		case rem > max/4:
			b.WriteString("▓")
		default:
			b.WriteString("▒")
		}
		cells++
	}
	return b.String(), strings.Repeat("░", barWidth-cells)
}

func coloredProgressBar(value, max int64, percent float64) string {
	filled, track := barCells(value, max)
	return bandStyle(percent).Render(filled) + ui.muted.Render(track)
}

// formatUnusedTime renders a compact age for entries last accessed at
// least unusedAfterDays ago, or "" otherwise.
func formatUnusedTime(lastAccess, now time.Time) string {
	if lastAccess.IsZero() {
		return ""
	}
	days := int(now.Sub(lastAccess).Hours() / 24)
	if days < unusedAfterDays {
		return ""
	}
	years := days / 365
	months := days / 30
	switch {
	case years >= 1:
		return fmt.Sprintf(">%dyr", years)
	case months >= 3:
		return fmt.Sprintf(">%dmo", months)
	}
	return ""
}

// displayPath abbreviates home to "~".
func displayPath(path, home string) string {
	if home == "" {
		return path
	}
	if path == home {
		return "~"
	}
	if isWithin(path, home) {
		return "~" + strings.TrimPrefix(path, home)
	}
	return path
}
