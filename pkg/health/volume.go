package health

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/cuemby/datavol/pkg/platform"
	"github.com/docker/go-units"
)

// VolumeChecker verifies that the configured data directory is usable
type VolumeChecker struct {
	// Path returns the directory to check
	Path func() (string, error)

	Platform platform.Platform

	// MinFreeBytes is the free space below which the volume is unhealthy
	MinFreeBytes uint64
}

// NewVolumeChecker creates a checker for the directory returned by path
func NewVolumeChecker(path func() (string, error), p platform.Platform, minFree uint64) *VolumeChecker {
	return &VolumeChecker{Path: path, Platform: p, MinFreeBytes: minFree}
}

func (c *VolumeChecker) Name() string {
	return "data_dir"
}

// Check performs the volume health check
func (c *VolumeChecker) Check(ctx context.Context) Result {
	start := time.Now()
	result := func(healthy bool, format string, args ...any) Result {
		return Result{
			Healthy:   healthy,
			Message:   fmt.Sprintf(format, args...),
			CheckedAt: start,
			Duration:  time.Since(start),
		}
	}

	if err := ctx.Err(); err != nil {
		return result(false, "check cancelled: %v", err)
	}

	path, err := c.Path()
	if err != nil {
		return result(false, "failed to read configured path: %v", err)
	}
	if path == "" {
		return result(false, "no data directory configured")
	}

	info, err := os.Stat(path)
	if err != nil {
		return result(false, "data directory unavailable: %v", err)
	}
	if !info.IsDir() {
		return result(false, "data path is not a directory: %s", path)
	}
	if !c.Platform.Writable(path) {
		return result(false, "data directory is not writable: %s", path)
	}

	usage, err := c.Platform.Usage(path)
	if err != nil {
		return result(false, "failed to read free space: %v", err)
	}
	if usage.FreeBytes < c.MinFreeBytes {
		return result(false, "low free space: %s left, %s required",
			units.BytesSize(float64(usage.FreeBytes)), units.BytesSize(float64(c.MinFreeBytes)))
	}

	return result(true, "%s free", units.BytesSize(float64(usage.FreeBytes)))
}
