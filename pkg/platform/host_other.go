//go:build !linux

package platform

import (
	"errors"
	"fmt"
	"os"
)

var errUnsupported = errors.New("storage probing is only supported on linux")

// HostConfig describes where the host adapter looks for candidates.
type HostConfig struct {
	InternalDir  string
	AppDir       string
	MountRoots   []string
	ExternalDirs []string
}

// Host is a reduced adapter: only configured directories are offered and
// capacity cannot be measured, so every candidate is excluded.
type Host struct {
	cfg HostConfig
}

// NewHost creates a platform adapter
func NewHost(cfg HostConfig) *Host {
	return &Host{cfg: cfg}
}

func (h *Host) InternalDir() (string, error) {
	if h.cfg.InternalDir == "" {
		return "", fmt.Errorf("internal directory is not configured")
	}
	if err := os.MkdirAll(h.cfg.InternalDir, 0755); err != nil {
		return "", fmt.Errorf("failed to create internal directory: %w", err)
	}
	return h.cfg.InternalDir, nil
}

func (h *Host) ExternalDirs() ([]string, error) {
	return append([]string(nil), h.cfg.ExternalDirs...), nil
}

func (h *Host) Inspect(path string) (DeviceInfo, error) {
	return DeviceInfo{}, errUnsupported
}

func (h *Host) Usage(path string) (Usage, error) {
	return Usage{}, errUnsupported
}

func (h *Host) Writable(path string) bool {
	return false
}
