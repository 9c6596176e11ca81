package main

import (
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"
)

// renderOverlay centers popup over base on a width x height surface. Rows
// covered by the popup show the popup line centered; every other row keeps
// the base line truncated and padded to width.
func renderOverlay(base, popup string, width, height int) string {
	width, height = max(1, width), max(1, height)
	screen := lipgloss.Place(width, height, lipgloss.Left, lipgloss.Top, base)
	bgLines := strings.Split(screen, "\n")
	popLines := strings.Split(popup, "\n")

	startRow := max(0, (height-len(popLines))/2)
	out := make([]string, 0, height)
	for i := 0; i < height; i++ {
		line := ""
		if i < len(bgLines) {
			line = bgLines[i]
		}
		if pi := i - startRow; pi >= 0 && pi < len(popLines) {
			line = lipgloss.PlaceHorizontal(width, lipgloss.Center, truncateToWidth(popLines[pi], width))
		}
		out = append(out, fitToWidth(line, width))
	}
	return strings.Join(out, "\n")
}

// truncateToWidth cuts s to maxWidth visible columns, keeping escape
// sequences intact.
func truncateToWidth(s string, maxWidth int) string {
	if lipgloss.Width(s) <= maxWidth {
		return s
	}
	return ansi.Truncate(s, maxWidth, "")
}

func fitToWidth(s string, width int) string {
	s = truncateToWidth(s, width)
	if w := lipgloss.Width(s); w < width {
		s += strings.Repeat(" ", width-w)
	}
	return s
}
