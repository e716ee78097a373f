package platform

import (
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

var (
	// Overridden in tests
	sysBlockDir = "/sys/class/block"
	byLabelDir  = "/dev/disk/by-label"
)

// underRoot reports whether mountpoint lies strictly below one of roots.
func underRoot(mountpoint string, roots []string) bool {
	mp := filepath.Clean(mountpoint)
	for _, root := range roots {
		r := filepath.Clean(root)
		if mp != r && strings.HasPrefix(mp, r+string(filepath.Separator)) {
			return true
		}
	}
	return false
}

// hasOption reports whether a comma-separated mount option list contains opt.
func hasOption(options, opt string) bool {
	for _, o := range strings.Split(options, ",") {
		if o == opt {
			return true
		}
	}
	return false
}

// isEmulatedFS reports filesystem types that re-export another device's storage.
func isEmulatedFS(fstype string) bool {
	switch {
	case fstype == "fuse", fstype == "sdcardfs", fstype == "overlay", fstype == "bindfs":
		return true
	case strings.HasPrefix(fstype, "fuse.") && fstype != "fuse.exfat" && fstype != "fuse.ntfs-3g":
		return true
	}
	return false
}

// removableDevice consults sysfs for the removable flag of a block device or
// its parent disk. SD/MMC cards are always treated as removable.
func removableDevice(source string) bool {
	if !strings.HasPrefix(source, "/dev/") {
		return false
	}
	if resolved, err := filepath.EvalSymlinks(source); err == nil {
		source = resolved
	}

	name := filepath.Base(source)
	if strings.HasPrefix(name, "mmcblk") {
		return true
	}

	dir, err := filepath.EvalSymlinks(filepath.Join(sysBlockDir, name))
	if err != nil {
		return false
	}
	for _, d := range []string{dir, filepath.Dir(dir)} {
		data, err := os.ReadFile(filepath.Join(d, "removable"))
		if err == nil {
			return strings.TrimSpace(string(data)) == "1"
		}
	}
	return false
}

// deviceLabel looks the device up in the udev by-label directory.
func deviceLabel(source string) string {
	if source == "" {
		return ""
	}
	entries, err := os.ReadDir(byLabelDir)
	if err != nil {
		return ""
	}

	want := source
	if resolved, err := filepath.EvalSymlinks(source); err == nil {
		want = resolved
	}

	for _, e := range entries {
		target, err := filepath.EvalSymlinks(filepath.Join(byLabelDir, e.Name()))
		if err != nil {
			continue
		}
		if target == want {
			return unescapeLabel(e.Name())
		}
	}
	return ""
}

// unescapeLabel decodes udev's \xHH escapes (e.g. "MY\x20CARD").
func unescapeLabel(name string) string {
	if !strings.Contains(name, `\x`) {
		return name
	}

	var b strings.Builder
	for i := 0; i < len(name); i++ {
		if name[i] == '\\' && i+4 <= len(name) && name[i+1] == 'x' {
			if v, err := strconv.ParseUint(name[i+2:i+4], 16, 8); err == nil {
				b.WriteByte(byte(v))
				i += 3
				continue
			}
		}
		b.WriteByte(name[i])
	}
	return b.String()
}
