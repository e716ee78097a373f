//go:build linux

package platform

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/cuemby/datavol/pkg/log"
	"github.com/cuemby/datavol/pkg/types"
	"github.com/moby/sys/mountinfo"
	"github.com/rs/zerolog"
	"golang.org/x/sys/unix"
)

// HostConfig describes where the host adapter looks for candidates.
type HostConfig struct {
	InternalDir  string
	AppDir       string   // Created on every external mount
	MountRoots   []string // Mounts strictly below these are external volumes
	ExternalDirs []string // Extra candidates, probed as-is
}

// Host implements Platform on Linux using the kernel mount table.
type Host struct {
	cfg    HostConfig
	logger zerolog.Logger

	mu sync.Mutex
	// candidate dir -> mountpoint it was derived from
	origins map[string]string
}

// NewHost creates a Linux platform adapter
func NewHost(cfg HostConfig) *Host {
	return &Host{
		cfg:     cfg,
		logger:  log.WithComponent("platform"),
		origins: make(map[string]string),
	}
}

// InternalDir ensures the internal data directory exists and returns it
func (h *Host) InternalDir() (string, error) {
	if h.cfg.InternalDir == "" {
		return "", fmt.Errorf("internal directory is not configured")
	}
	if err := os.MkdirAll(h.cfg.InternalDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create internal directory: %w", err)
	}
	return h.cfg.InternalDir, nil
}

// ExternalDirs returns <mountpoint>/<AppDir> for every mount below the
// configured roots, followed by the configured extra directories.
func (h *Host) ExternalDirs() ([]string, error) {
	mounts, err := mountinfo.GetMounts(func(info *mountinfo.Info) (skip, stop bool) {
		return !underRoot(info.Mountpoint, h.cfg.MountRoots), false
	})
	if err != nil {
		return nil, fmt.Errorf("failed to read mount table: %w", err)
	}

	sort.SliceStable(mounts, func(i, j int) bool {
		return mounts[i].Mountpoint < mounts[j].Mountpoint
	})

	origins := make(map[string]string, len(mounts))
	seen := make(map[string]bool)
	var dirs []string

	for _, m := range mounts {
		dir := filepath.Join(m.Mountpoint, h.cfg.AppDir)
		if !hasOption(m.Options, "ro") {
			// Like per-app external dirs, the directory is created on demand
			if err := os.MkdirAll(dir, 0755); err != nil {
				h.logger.Debug().Err(err).Str("dir", dir).Msg("Cannot create app directory on mount")
			}
		}
		origins[filepath.Clean(dir)] = m.Mountpoint
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	for _, dir := range h.cfg.ExternalDirs {
		if !seen[dir] {
			seen[dir] = true
			dirs = append(dirs, dir)
		}
	}

	h.mu.Lock()
	h.origins = origins
	h.mu.Unlock()

	return dirs, nil
}

// Inspect reports the state of the mount holding path
func (h *Host) Inspect(path string) (DeviceInfo, error) {
	clean := filepath.Clean(path)

	mounts, err := mountinfo.GetMounts(mountinfo.ParentsFilter(clean))
	if err != nil {
		return DeviceInfo{}, fmt.Errorf("failed to read mount table: %w", err)
	}
	m := deepest(mounts)
	if m == nil {
		return DeviceInfo{}, fmt.Errorf("no mount holds %s", clean)
	}

	info := DeviceInfo{
		State:  types.MountStateMounted,
		Device: m.Source,
	}

	h.mu.Lock()
	origin, ok := h.origins[clean]
	h.mu.Unlock()
	if ok && origin != m.Mountpoint {
		// The volume went away between listing and probing
		info.State = types.MountStateUnmounted
		return info, nil
	}

	if hasOption(m.Options, "ro") || hasOption(m.VFSOptions, "ro") {
		info.State = types.MountStateMountedReadOnly
	}
	info.Removable = removableDevice(m.Source)
	info.Emulated = isEmulatedFS(m.FSType) || h.sharesInternalDevice(m)
	info.Label = deviceLabel(m.Source)

	return info, nil
}

// Usage reports filesystem capacity. Free bytes exclude root-reserved blocks.
func (h *Host) Usage(path string) (Usage, error) {
	var st unix.Statfs_t
	if err := unix.Statfs(path, &st); err != nil {
		return Usage{}, fmt.Errorf("statfs %s: %w", path, err)
	}

	bsize := uint64(st.Bsize)
	return Usage{
		TotalBytes: st.Blocks * bsize,
		FreeBytes:  st.Bavail * bsize,
	}, nil
}

// Writable reports write access for the current process
func (h *Host) Writable(path string) bool {
	return unix.Access(path, unix.W_OK) == nil
}

func (h *Host) sharesInternalDevice(m *mountinfo.Info) bool {
	if h.cfg.InternalDir == "" {
		return false
	}
	mounts, err := mountinfo.GetMounts(mountinfo.ParentsFilter(filepath.Clean(h.cfg.InternalDir)))
	if err != nil {
		return false
	}
	internal := deepest(mounts)
	if internal == nil {
		return false
	}
	return internal.Major == m.Major && internal.Minor == m.Minor
}

func deepest(mounts []*mountinfo.Info) *mountinfo.Info {
	var best *mountinfo.Info
	for _, m := range mounts {
		// Later entries on the same mountpoint shadow earlier ones
		if best == nil || len(strings.TrimSuffix(m.Mountpoint, "/")) >= len(strings.TrimSuffix(best.Mountpoint, "/")) {
			best = m
		}
	}
	return best
}
