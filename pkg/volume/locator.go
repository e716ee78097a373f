package volume

import (
	"os"
	"path/filepath"
	"strconv"

	"github.com/cuemby/datavol/pkg/types"
)

// Data directories are named after the data version, a six digit stamp
const (
	versionStampLen = 6
	minVersionStamp = 120000 // exclusive
	maxVersionStamp = 999999
)

// IsVersionStamp reports whether name is a data version directory name
func IsVersionStamp(name string) bool {
	if len(name) != versionStampLen {
		return false
	}
	v, err := strconv.Atoi(name)
	if err != nil {
		return false
	}
	return v > minVersionStamp && v <= maxVersionStamp
}

// ContainsData reports whether path holds a non-empty version directory.
// Unreadable directories hold no data.
func ContainsData(path string) bool {
	entries, err := os.ReadDir(path)
	if err != nil {
		return false
	}
	for _, e := range entries {
		if !e.IsDir() || !IsVersionStamp(e.Name()) {
			continue
		}
		if !isEmptyDir(filepath.Join(path, e.Name())) {
			return true
		}
	}
	return false
}

func isEmptyDir(path string) bool {
	f, err := os.Open(path)
	if err != nil {
		return true
	}
	defer f.Close()
	names, _ := f.Readdirnames(1)
	return len(names) == 0
}

// FindDataVolume picks the volume the data should be read from: the current
// volume when it holds data, else the first volume that does, else the
// volume with the most free space.
func FindDataVolume(s types.Snapshot) (string, error) {
	if len(s.Volumes) == 0 {
		return "", types.ErrNoStorage
	}

	if cur, ok := s.Current(); ok && ContainsData(cur.Path) {
		return cur.Path, nil
	}
	for i, vol := range s.Volumes {
		if i == s.CurrentIndex {
			continue
		}
		if ContainsData(vol.Path) {
			return vol.Path, nil
		}
	}

	best, _ := BiggestVolume(s)
	return best.Path, nil
}
