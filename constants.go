package main

import (
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/lipgloss"
)

const (
	barWidth           = 24
	maxLargeFiles      = 30
	minLargeFileSize   = 100 << 20 // 100 MiB
	defaultViewport    = 10
	minViewport        = 1
	maxViewport        = 30
	reservedRows       = 6
	reservedLargeRows  = 5
	nameColumnOverhead = 61 // prefix, index, bar, percent, separators, icon, size, hint
	minNameWidth       = 24
	maxNameWidth       = 60
	defaultTermWidth   = 80
	defaultTermHeight  = 24
	unusedAfterDays    = 90

	tickInterval       = 80 * time.Millisecond
	openCommandTimeout = 10 * time.Second
	overviewCacheTTL   = 7 * 24 * time.Hour
	defaultOverviewPar = 3
	scanChannelBuffer  = 64
)

var spinnerFrames = spinner.Dot.Frames

// --------------------------- Styles ------------------------------

type styles struct {
	title    lipgloss.Style
	muted    lipgloss.Style
	accent   lipgloss.Style
	selected lipgloss.Style
	count    lipgloss.Style
	bytes    lipgloss.Style
	danger   lipgloss.Style
	hint     lipgloss.Style
	popup    lipgloss.Style

	bandHigh   lipgloss.Style // >= 50%
	bandMedium lipgloss.Style // >= 20%
	bandLow    lipgloss.Style // >= 5%
	bandTiny   lipgloss.Style
}

var ui = styles{
	title:    lipgloss.NewStyle().Foreground(lipgloss.Color("135")).Bold(true),
	muted:    lipgloss.NewStyle().Foreground(lipgloss.Color("242")),
	accent:   lipgloss.NewStyle().Foreground(lipgloss.Color("86")).Bold(true),
	selected: lipgloss.NewStyle().Foreground(lipgloss.Color("86")),
	count:    lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	bytes:    lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
	danger:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")).Bold(true),
	hint:     lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	popup: lipgloss.NewStyle().
		Border(lipgloss.NormalBorder()).
		BorderForeground(lipgloss.Color("238")).
		Padding(1, 2).
		Align(lipgloss.Center),

	bandHigh:   lipgloss.NewStyle().Foreground(lipgloss.Color("203")),
	bandMedium: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
	bandLow:    lipgloss.NewStyle().Foreground(lipgloss.Color("75")),
	bandTiny:   lipgloss.NewStyle().Foreground(lipgloss.Color("78")),
}

// bandStyle picks the color band for a share of the listing total.
func bandStyle(percent float64) lipgloss.Style {
	switch {
	case percent >= 50:
		return ui.bandHigh
	case percent >= 20:
		return ui.bandMedium
	case percent >= 5:
		return ui.bandLow
	default:
		return ui.bandTiny
	}
}
