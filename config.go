package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"runtime"

	"github.com/adrg/xdg"
)

const appName = "duscope"

type Config struct {
	Roots           []string `json:"roots"`
	Workers         int      `json:"workers"`
	OverviewWorkers int      `json:"overview_workers"`
	Cleanable       []string `json:"cleanable"`
	CacheFile       string   `json:"cache_file"`
	LogFile         string   `json:"log_file"`
	ApparentSize    bool     `json:"apparent_size"`
}

func defaultConfig() Config {
	return Config{
		Workers:         runtime.GOMAXPROCS(0) * 4,
		OverviewWorkers: defaultOverviewPar,
		CacheFile:       filepath.Join(xdg.CacheHome, appName, "overview.json"),
	}
}

// resolveConfigPath returns the config file to load. An explicit path always
// wins; otherwise the XDG config dirs are searched and "" means none exists.
func resolveConfigPath(explicit string) string {
	if explicit != "" {
		return explicit
	}
	p, err := xdg.SearchConfigFile(filepath.Join(appName, "config.json"))
	if err != nil {
		return ""
	}
	return p
}

// loadConfig reads path over the defaults. Zero values in the file keep the
// defaults.
func loadConfig(path string) (Config, error) {
	cfg := defaultConfig()
	if path == "" {
		return cfg, nil
	}
	content, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config %s: %w", path, err)
	}
	var file Config
	if err := json.Unmarshal(content, &file); err != nil {
		return Config{}, fmt.Errorf("parse config %s: %w", path, err)
	}
	return mergeConfig(cfg, file)
}

func mergeConfig(base, file Config) (Config, error) {
	if file.Workers < 0 || file.OverviewWorkers < 0 {
		return Config{}, errors.New("config: workers must be >= 0")
	}
	for _, pattern := range file.Cleanable {
		if _, err := filepath.Match(pattern, ""); err != nil {
			return Config{}, fmt.Errorf("config: cleanable pattern %q: %w", pattern, err)
		}
	}
	if len(file.Roots) > 0 {
		base.Roots = file.Roots
	}
	if file.Workers > 0 {
		base.Workers = file.Workers
	}
	if file.OverviewWorkers > 0 {
		base.OverviewWorkers = file.OverviewWorkers
	}
	if len(file.Cleanable) > 0 {
		base.Cleanable = file.Cleanable
	}
	if file.CacheFile != "" {
		base.CacheFile = file.CacheFile
	}
	if file.LogFile != "" {
		base.LogFile = file.LogFile
	}
	base.ApparentSize = base.ApparentSize || file.ApparentSize
	return base, nil
}

// overviewRoots returns the locations shown in Overview mode. Configured
// roots replace the platform defaults; either way only existing
// directories survive.
func overviewRoots(configured []string) []string {
	candidates := configured
	if len(candidates) == 0 {
		candidates = platformRoots(runtime.GOOS, xdg.Home)
	}
	seen := map[string]struct{}{}
	out := make([]string, 0, len(candidates))
	for _, c := range candidates {
		abs, err := filepath.Abs(c)
		if err != nil {
			continue
		}
		if _, dup := seen[abs]; dup {
			continue
		}
		if !isDir(abs) {
			continue
		}
		seen[abs] = struct{}{}
		out = append(out, abs)
	}
	return out
}

func platformRoots(goos, home string) []string {
	roots := []string{home}
	switch goos {
	case "darwin":
		roots = append(roots,
			filepath.Join(home, "Library"),
			"/Applications",
			"/Library",
		)
		if hasExternalVolumes("/Volumes") {
			roots = append(roots, "/Volumes")
		}
	case "windows":
		if pf := os.Getenv("ProgramFiles"); pf != "" {
			roots = append(roots, pf)
		}
		if ad := os.Getenv("LOCALAPPDATA"); ad != "" {
			roots = append(roots, ad)
		}
	default:
		roots = append(roots, "/usr", "/var", "/opt")
	}
	return roots
}

// hasExternalVolumes reports whether dir holds anything besides the boot
// volume symlink.
func hasExternalVolumes(dir string) bool {
	ents, err := os.ReadDir(dir)
	if err != nil {
		return false
	}
	for _, e := range ents {
		if e.Type()&fs.ModeSymlink == 0 {
			return true
		}
	}
	return false
}

func isDir(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}

// cleanableMatcher builds the "cleanable directory" predicate from glob
// patterns matched against the base name.
func cleanableMatcher(patterns []string) func(string) bool {
	if len(patterns) == 0 {
		return func(string) bool { return false }
	}
	return func(path string) bool {
		base := filepath.Base(path)
		for _, p := range patterns {
			if ok, _ := filepath.Match(p, base); ok {
				return true
			}
		}
		return false
	}
}
