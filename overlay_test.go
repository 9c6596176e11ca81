package main

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/charmbracelet/lipgloss"
)

func TestRenderOverlay(t *testing.T) {
	base := "Hello World\nSecond Line\nThird Line"
	popup := "POPUP"
	width := 11
	height := 3

	result := renderOverlay(base, popup, width, height)
	lines := strings.Split(result, "\n")

	if len(lines) != height {
		t.Fatalf("Expected %d lines, got %d", height, len(lines))
	}
	for i, line := range lines {
		if lipgloss.Width(line) != width {
			t.Fatalf("Line %d has width %d, expected %d: %q", i, lipgloss.Width(line), width, line)
		}
	}

	// the popup row is owned by the popup, centered
	if lines[1] != "   POPUP   " {
		t.Fatalf("Popup row incorrect.\nExpected: %q\nActual:   %q", "   POPUP   ", lines[1])
	}
	if lines[0] != "Hello World" {
		t.Fatalf("First line changed unexpectedly: %q", lines[0])
	}
	if lines[2] != "Third Line " {
		t.Fatalf("Third line changed unexpectedly: %q", lines[2])
	}
}

func TestRenderOverlayEdgeCases(t *testing.T) {
	// popup wider than the surface is cut to width
	result := renderOverlay("Hi", "Very Long Popup Text", 10, 1)
	if result != "Very Long " {
		t.Fatalf("Expected truncated popup, got %q", result)
	}

	// multi-line popup is centered vertically
	result = renderOverlay("Line1\nLine2\nLine3\nLine4", "POP1\nPOP2", 6, 4)
	lines := strings.Split(result, "\n")
	want := []string{"Line1 ", " POP1 ", " POP2 ", "Line4 "}
	if len(lines) != len(want) {
		t.Fatalf("Expected %d lines, got %d", len(want), len(lines))
	}
	for i := range want {
		if lines[i] != want[i] {
			t.Fatalf("Line %d incorrect. Expected: %q, Got: %q", i, want[i], lines[i])
		}
	}

	// base taller than the surface is cut to height
	result = renderOverlay("a\nb\nc\nd\ne", "", 3, 2)
	if got := strings.Count(result, "\n") + 1; got != 2 {
		t.Fatalf("Expected 2 lines, got %d", got)
	}
}

func TestRenderOverlayBorderedPopup(t *testing.T) {
	width, height := 80, 24
	body := strings.Repeat("Background Content Line\n", height-1) + "Background Content Line"
	popup := ui.popup.Render("Deleting build\n1,234 items removed")

	result := renderOverlay(body, popup, width, height)
	lines := strings.Split(result, "\n")
	if len(lines) != height {
		t.Fatalf("Expected %d lines, got %d", height, len(lines))
	}

	top := -1
	for i, line := range lines {
		if strings.Contains(line, "┌") {
			top = i
			break
		}
	}
	if top == -1 {
		t.Fatal("Could not find popup border in result")
	}
	popH := lipgloss.Height(popup)
	if want := (height - popH) / 2; top != want {
		t.Fatalf("Popup starts at row %d, want %d", top, want)
	}
	for i, line := range lines {
		if w := lipgloss.Width(line); w != width {
			t.Errorf("Line %d has visual width %d, expected %d", i, w, width)
		}
		if !utf8.ValidString(line) {
			t.Errorf("Line %d is not valid UTF-8: %q", i, line)
		}
	}
	if !strings.Contains(result, "1,234 items removed") {
		t.Fatal("popup text missing from overlay")
	}
}

func TestTruncateToWidth(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		maxWidth int
		expected string
	}{
		{"Simple ASCII - no truncation needed", "Hello World", 20, "Hello World"},
		{"Simple ASCII - truncation needed", "Hello World", 5, "Hello"},
		{"Unicode box characters - no truncation", "╔══════╗", 10, "╔══════╗"},
		{"Unicode box characters - truncation needed", "╔══════╗", 5, "╔════"},
		{"Mixed content with Unicode", "Text ╔══════╗ More", 10, "Text ╔════"},
		{"Empty string", "", 5, ""},
		{"Zero width", "Hello", 0, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := truncateToWidth(tt.input, tt.maxWidth)
			if result != tt.expected {
				t.Errorf("truncateToWidth(%q, %d) = %q; want %q", tt.input, tt.maxWidth, result, tt.expected)
			}
			if w := lipgloss.Width(result); w > tt.maxWidth {
				t.Errorf("Result width %d exceeds maxWidth %d for input %q", w, tt.maxWidth, tt.input)
			}
			if !utf8.ValidString(result) {
				t.Errorf("Result is not valid UTF-8: %q", result)
			}
		})
	}
}

func TestTruncateToWidthKeepsEscapes(t *testing.T) {
	styled := "\x1b[31mHello World\x1b[0m"
	got := truncateToWidth(styled, 5)
	if lipgloss.Width(got) != 5 {
		t.Fatalf("visual width = %d, want 5: %q", lipgloss.Width(got), got)
	}
	if !strings.HasPrefix(got, "\x1b[31m") {
		t.Fatalf("escape sequence lost: %q", got)
	}
}
