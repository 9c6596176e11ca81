// duscope: interactive disk usage analyzer built on Bubble Tea

package main

import (
	"flag"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/adrg/xdg"
	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/term"
)

const pathEnv = "DUSCOPE_PATH"

// terminalSize reads the initial size; Bubble Tea reports later changes.
func terminalSize() (int, int) {
	w, h, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || w <= 0 {
		return defaultTermWidth, defaultTermHeight
	}
	return w, h
}

// startPath picks the Detail location from the arguments or the
// environment; "" means Overview.
func startPath(args []string) (string, error) {
	p := os.Getenv(pathEnv)
	if len(args) > 0 {
		p = args[0]
	}
	if p == "" {
		return "", nil
	}
	abs, err := filepath.Abs(p)
	if err != nil {
		return "", fmt.Errorf("resolve %s: %w", p, err)
	}
	if !isDir(abs) {
		return "", fmt.Errorf("%s is not a directory", abs)
	}
	return abs, nil
}

func main() {
	var configPath, logPath string
	var workers int
	var noCache, apparent bool
	flag.StringVar(&configPath, "config", "", "Config file (default: search XDG config dirs for duscope/config.json)")
	flag.IntVar(&workers, "workers", 0, "Worker concurrency for size calculation (default from config)")
	flag.StringVar(&logPath, "log", "", "Write logs to this file")
	flag.BoolVar(&noCache, "no-cache", false, "Do not read or write the overview size cache")
	flag.BoolVar(&apparent, "apparent-size", false, "Count apparent file sizes instead of allocated disk usage")
	flag.Parse()

	resolved := resolveConfigPath(configPath)
	cfg, err := loadConfig(resolved)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	if workers > 0 {
		cfg.Workers = workers
	}
	if apparent {
		cfg.ApparentSize = true
	}
	if logPath != "" {
		cfg.LogFile = logPath
	}

	closer, err := setupLogging(cfg.LogFile)
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	defer closer.Close()

	start, err := startPath(flag.Args())
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
	roots := overviewRoots(cfg.Roots)
	if start == "" && len(roots) == 0 {
		fmt.Fprintln(os.Stderr, "Error: no overview locations exist; pass a directory")
		os.Exit(1)
	}

	if resolved != "" {
		slog.Info("config loaded", "path", resolved)
	} else {
		slog.Debug("no config file found, using defaults")
	}

	// cached sizes are allocated usage and would not match apparent sizes
	cachePath := cfg.CacheFile
	if noCache || cfg.ApparentSize {
		cachePath = ""
	}
	sizes := newSizeCache(cachePath, overviewCacheTTL)
	if err := sizes.Load(); err != nil {
		slog.Warn("size cache unavailable", "path", cachePath, "err", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		cwd = "."
	}
	width, height := terminalSize()
	slog.Info("starting", "path", start, "roots", len(roots), "workers", cfg.Workers, "apparent_size", cfg.ApparentSize)

	m := newModel(modelOptions{
		startPath:       start,
		roots:           roots,
		workers:         cfg.Workers,
		overviewWorkers: cfg.OverviewWorkers,
		apparentSize:    cfg.ApparentSize,
		sizes:           sizes,
		cleanable:       cleanableMatcher(cfg.Cleanable),
		home:            xdg.Home,
		exportDir:       cwd,
		width:           width,
		height:          height,
	})
	p := tea.NewProgram(m, tea.WithAltScreen())
	if _, err := p.Run(); err != nil {
		fmt.Println("Error:", err)
		os.Exit(1)
	}
}
