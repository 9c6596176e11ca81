package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"
)

type fileInfoMsg struct {
	path string
	text string
	err  error
}

// openCommand builds the host command that opens path, or with reveal set,
// shows it inside its folder.
func openCommand(goos, path string, reveal bool) (string, []string) {
	switch goos {
	case "darwin":
		if reveal {
			return "open", []string{"-R", path}
		}
		return "open", []string{path}
	case "windows":
		if reveal {
			return "explorer", []string{"/select," + path}
		}
		return "explorer", []string{path}
	default:
		if reveal {
			return "xdg-open", []string{filepath.Dir(path)}
		}
		return "xdg-open", []string{path}
	}
}

// openPathCmd hands path to the OS. Failures are logged and otherwise
// ignored.
func openPathCmd(path string, reveal bool) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), openCommandTimeout)
		defer cancel()
		name, args := openCommand(runtime.GOOS, path, reveal)
		if err := exec.CommandContext(ctx, name, args...).Run(); err != nil {
			slog.Debug("open failed", "cmd", name, "path", path, "err", err)
		}
		return nil
	}
}

// fileInfoCmd stats path off the control loop. size is the size the
// listing already knows, used for directories.
func fileInfoCmd(path string, size int64) tea.Cmd {
	return func() tea.Msg {
		info, err := os.Lstat(path)
		if err != nil {
			return fileInfoMsg{path: path, err: fmt.Errorf("stat %s: %w", path, err)}
		}
		return fileInfoMsg{path: path, text: describeFile(info, size)}
	}
}

func describeFile(info os.FileInfo, size int64) string {
	kind := "file"
	switch {
	case info.IsDir():
		kind = "directory"
	case info.Mode()&os.ModeSymlink != 0:
		kind = "symlink"
	}
	if !info.IsDir() || size < 0 {
		size = info.Size()
	}
	return fmt.Sprintf("%s  %s  %s  modified %s  %s",
		info.Name(), kind, humanizeBytes(size), humanize.Time(info.ModTime()), info.Mode().Perm())
}
