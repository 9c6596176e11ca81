package main

import (
	"os"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"golang.org/x/sync/singleflight"
)

type accessTimeMsg struct {
	path string
	at   time.Time
}

var accessGroup singleflight.Group

// lookupAccessTime stats path for its last access time; zero when unknown.
// Concurrent lookups of the same path share one stat.
func lookupAccessTime(path string) time.Time {
	v, _, _ := accessGroup.Do(path, func() (any, error) {
		info, err := os.Stat(path)
		if err != nil {
			return time.Time{}, nil
		}
		return accessTime(info), nil
	})
	return v.(time.Time)
}

func accessTimeCmd(path string) tea.Cmd {
	return func() tea.Msg {
		return accessTimeMsg{path: path, at: lookupAccessTime(path)}
	}
}
