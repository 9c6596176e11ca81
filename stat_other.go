//go:build !linux && !darwin

package main

import (
	"io/fs"
	"time"
)

// accessTime is unknown on this platform; callers treat zero as "no hint".
func accessTime(fs.FileInfo) time.Time {
	return time.Time{}
}

func diskUsage(info fs.FileInfo) int64 {
	return info.Size()
}
