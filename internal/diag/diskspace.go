// Package diag runs pre-flight environment checks for the backtest
// CLI. Currently: warning (never failing) about low free disk space on
// the cache volume before a large multi-ticker portfolio run, the way
// the teacher's system handlers report CPU/RAM/disk usage for
// dashboard display.
package diag

import (
	"fmt"

	"github.com/rs/zerolog"
	"github.com/shirou/gopsutil/v3/disk"
)

// minFreePercent below which CheckCacheDiskSpace logs a warning.
const minFreePercent = 10.0

// DiskSpaceWarning describes a low-free-space condition found by
// CheckCacheDiskSpace. It is informational: callers are never required
// to act on it.
type DiskSpaceWarning struct {
	Path        string
	FreePercent float64
	FreeBytes   uint64
	UsedPercent float64
}

// CheckCacheDiskSpace inspects the filesystem backing cacheDir and logs
// (but never returns an error for) low free space, so a long
// multi-ticker composer run doesn't fail mid-way through a cache
// merge. Returns the warning, or nil if space is adequate or the check
// itself could not run.
func CheckCacheDiskSpace(cacheDir string, log zerolog.Logger) *DiskSpaceWarning {
	usage, err := disk.Usage(cacheDir)
	if err != nil {
		log.Debug().Err(err).Str("path", cacheDir).Msg("could not read disk usage, skipping pre-flight check")
		return nil
	}

	freePercent := 100 - usage.UsedPercent
	if freePercent >= minFreePercent {
		return nil
	}

	warning := &DiskSpaceWarning{
		Path:        cacheDir,
		FreePercent: freePercent,
		FreeBytes:   usage.Free,
		UsedPercent: usage.UsedPercent,
	}

	log.Warn().
		Str("path", cacheDir).
		Float64("free_percent", freePercent).
		Uint64("free_bytes", usage.Free).
		Msg("low free disk space on cache volume")

	return warning
}

// String renders a human-readable summary, for CLI output.
func (w *DiskSpaceWarning) String() string {
	return fmt.Sprintf("low disk space at %s: %.1f%% free (%d bytes)", w.Path, w.FreePercent, w.FreeBytes)
}
