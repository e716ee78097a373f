// Package fsutil holds the filesystem primitives datavol builds on: path
// canonicalization and verified single-file moves.
package fsutil

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"golang.org/x/sys/unix"
)

// AddTrailingSeparator appends a path separator unless one is already present.
// The data engine assumes every storage path ends with one.
func AddTrailingSeparator(path string) string {
	if strings.HasSuffix(path, string(filepath.Separator)) {
		return path
	}
	return path + string(filepath.Separator)
}

// Canonicalize returns the absolute, symlink-free form of path with a
// trailing separator. Paths that do not exist yet are made absolute and
// cleaned without resolving links.
func Canonicalize(path string) (string, error) {
	if strings.TrimSpace(path) == "" {
		return "", fmt.Errorf("path is empty")
	}

	abs, err := filepath.Abs(path)
	if err != nil {
		return "", fmt.Errorf("resolve absolute path for %q: %w", path, err)
	}

	resolved, err := filepath.EvalSymlinks(abs)
	switch {
	case err == nil:
		abs = resolved
	case errors.Is(err, os.ErrNotExist):
		abs = filepath.Clean(abs)
	default:
		return "", fmt.Errorf("resolve symlinks for %q: %w", path, err)
	}

	return AddTrailingSeparator(abs), nil
}

// SamePath reports whether a and b canonicalize to the same directory.
func SamePath(a, b string) bool {
	ca, err := Canonicalize(a)
	if err != nil {
		return false
	}
	cb, err := Canonicalize(b)
	if err != nil {
		return false
	}
	return ca == cb
}

// Contains reports whether child lies inside parent (or is parent).
func Contains(parent, child string) bool {
	p, err := Canonicalize(parent)
	if err != nil {
		return false
	}
	c, err := Canonicalize(child)
	if err != nil {
		return false
	}
	return strings.HasPrefix(c, p)
}

// Swapped in tests to reach the cross-device branch of MoveFile.
var (
	rename     = os.Rename
	copyFile   = CopyFile
	removeFile = os.Remove
)

// MoveFile moves the regular file src to dest and returns its size.
// A rename is used when possible; across devices the file is copied,
// synced, size-checked and only then removed from src. Whenever an error is
// returned src is still in place and dest was not written by this call.
func MoveFile(src, dest string) (int64, error) {
	info, err := os.Lstat(src)
	if err != nil {
		return 0, fmt.Errorf("stat source file %s: %w", src, err)
	}
	if !info.Mode().IsRegular() {
		return 0, fmt.Errorf("source is not a regular file: %s", src)
	}

	if err := rename(src, dest); err == nil {
		return info.Size(), nil
	} else if !errors.Is(err, unix.EXDEV) {
		return 0, fmt.Errorf("rename %s to %s: %w", src, dest, err)
	}

	if err := copyFile(src, dest); err != nil {
		return 0, err
	}
	if err := verifySize(dest, info.Size()); err != nil {
		_ = os.Remove(dest)
		return 0, err
	}
	if err := removeFile(src); err != nil {
		_ = os.Remove(dest)
		return 0, fmt.Errorf("remove moved source %s: %w", src, err)
	}

	return info.Size(), nil
}

// CopyFile copies src to dest through a temporary file that is synced and
// renamed into place.
func CopyFile(src, dest string) error {
	srcInfo, err := os.Stat(src)
	if err != nil {
		return fmt.Errorf("stat source file %s: %w", src, err)
	}
	if !srcInfo.Mode().IsRegular() {
		return fmt.Errorf("source is not a regular file: %s", src)
	}

	srcFile, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("open source file %s: %w", src, err)
	}
	defer srcFile.Close()

	tmpDest := dest + ".tmp"
	dstFile, err := os.OpenFile(tmpDest, os.O_CREATE|os.O_TRUNC|os.O_WRONLY, srcInfo.Mode().Perm())
	if err != nil {
		return fmt.Errorf("create temporary file %s: %w", tmpDest, err)
	}

	_, copyErr := io.Copy(dstFile, srcFile)
	if copyErr == nil {
		copyErr = dstFile.Sync()
	}
	closeErr := dstFile.Close()
	if copyErr != nil {
		_ = os.Remove(tmpDest)
		return fmt.Errorf("copy %s to %s: %w", src, tmpDest, copyErr)
	}
	if closeErr != nil {
		_ = os.Remove(tmpDest)
		return fmt.Errorf("close temporary file %s: %w", tmpDest, closeErr)
	}

	if err := os.Rename(tmpDest, dest); err != nil {
		_ = os.Remove(tmpDest)
		return fmt.Errorf("replace %s with %s: %w", dest, tmpDest, err)
	}

	return nil
}

// RemoveFiles removes every listed file, ignoring ones already gone, and
// returns the individual failures.
func RemoveFiles(paths []string) []error {
	var errs []error
	for _, p := range paths {
		if err := os.Remove(p); err != nil && !errors.Is(err, os.ErrNotExist) {
			errs = append(errs, fmt.Errorf("remove %s: %w", p, err))
		}
	}
	return errs
}

func verifySize(path string, want int64) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("verify %s: %w", path, err)
	}
	if info.Size() != want {
		return fmt.Errorf("verify %s: size %d, want %d", path, info.Size(), want)
	}
	return nil
}
