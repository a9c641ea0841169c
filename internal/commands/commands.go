package commands

import (
	"fmt"
	"io"
	"math"
	"strings"
	"time"

	"github.com/buildkite/azstore"
	"github.com/buildkite/azstore/internal/console"
	"github.com/dustin/go-humanize"
)

type Globals struct {
	Debug   bool
	Version string
	Gateway *azstore.Gateway
	Printer *console.Printer

	// Stdout receives command output meant for other programs, Stdin feeds
	// upload-data.
	Stdout io.Writer
	Stdin  io.Reader
}

// parseUploadItem splits a "local=remote" argument.
func parseUploadItem(arg string) (azstore.UploadItem, error) {
	local, remote, ok := strings.Cut(strings.Trim(arg, "\"' \t"), "=")
	if !ok || local == "" || remote == "" {
		return azstore.UploadItem{}, fmt.Errorf("invalid upload item %q, expected local=remote", arg)
	}

	return azstore.UploadItem{LocalPath: local, UploadPath: remote}, nil
}

func formatSize(size int64) string {
	return humanize.Bytes(Int64ToUint64(size))
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.UTC().Format(time.RFC3339)
}

func formatSpeed(mbps float64) string {
	return fmt.Sprintf("%.2fMB/s", mbps)
}

// Int64ToUint64 converts an int64 to uint64, handling negative values and max int64
func Int64ToUint64(x int64) uint64 {
	if x < 0 {
		return 0
	}
	if x == math.MaxInt64 {
		return math.MaxUint64
	}
	return uint64(x)
}
