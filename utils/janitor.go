package utils

import (
	"os"
	"path/filepath"
	"time"
)

// staleAfter is how old an ephemeral delivery file must be before the sweep
// removes it. Freshly scheduled deletions happen inline in the dispatcher;
// the sweep only catches files left behind by crashes.
const staleAfter = time.Hour

// StartTempSweeper launches a background goroutine that periodically removes
// stale files from the ephemeral delivery area. It is best-effort and logs failures.
func StartTempSweeper(dir string, interval time.Duration) {
	if interval <= 0 {
		interval = 5 * time.Minute
	}
	go func() {
		sweepTempDir(dir)
		for {
			time.Sleep(interval)
			sweepTempDir(dir)
		}
	}()
}

func sweepTempDir(dir string) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if !os.IsNotExist(err) && Sugar != nil {
			Sugar.Warnf("temp sweep read dir failed: %v", err)
		}
		return
	}
	cutoff := time.Now().Add(-staleAfter)
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		info, err := e.Info()
		if err != nil {
			continue
		}
		if info.ModTime().After(cutoff) {
			continue
		}
		if err := os.Remove(filepath.Join(dir, e.Name())); err != nil && Sugar != nil {
			Sugar.Warnf("temp sweep remove failed: %v", err)
		}
	}
}
