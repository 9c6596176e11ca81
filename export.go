package main

import (
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	tea "github.com/charmbracelet/bubbletea"
)

// --------------------------- Export ------------------------------

type exportDoneMsg struct {
	path string
	err  error
}

// exportCSV writes entries to du-YYYYMMDD-HHMMSS.csv inside dir.
func exportCSV(dir string, entries []Entry, now time.Time) (path string, err error) {
	if len(entries) == 0 {
		return "", errors.New("nothing to export")
	}
	path = filepath.Join(dir, fmt.Sprintf("du-%s.csv", now.Format("20060102-150405")))
	f, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("create export: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = fmt.Errorf("close export: %w", cerr)
		}
	}()

	var total int64
	for _, e := range entries {
		if !e.Pending() {
			total += e.Size
		}
	}

	w := csv.NewWriter(f)
	if err := w.Write([]string{"Name", "Path", "Kind", "SizeBytes", "SizeHuman", "ParentShare%", "LastAccess"}); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	for _, e := range entries {
		kind := "file"
		if e.IsDir {
			kind = "dir"
		}
		size, human, share := "", "pending", ""
		if !e.Pending() {
			size = strconv.FormatInt(e.Size, 10)
			human = humanizeBytes(e.Size)
			if total > 0 {
				share = fmt.Sprintf("%.1f", float64(e.Size)/float64(total)*100)
			}
		}
		access := ""
		if !e.LastAccess.IsZero() {
			access = e.LastAccess.Format(time.RFC3339)
		}
		if err := w.Write([]string{e.Name, e.Path, kind, size, human, share, access}); err != nil {
			return "", fmt.Errorf("write export: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", fmt.Errorf("write export: %w", err)
	}
	return path, nil
}

func exportCmd(dir string, entries []Entry) tea.Cmd {
	entries = cloneEntries(entries)
	return func() tea.Msg {
		path, err := exportCSV(dir, entries, time.Now())
		return exportDoneMsg{path: path, err: err}
	}
}
