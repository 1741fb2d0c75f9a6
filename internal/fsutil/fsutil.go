// Package fsutil provides file system utility functions for staging files
// into the bootstrap home.
package fsutil

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/nk/detstrap/internal/config"
)

// WriteFileAtomic streams r into destDir/base, honoring the conflict policy.
// The content is written to a temporary file in destDir and renamed into
// place, so a failed write never leaves a half-copied destination. It
// returns the destination path, the hex SHA-256 digest of the bytes
// written, and whether the write was skipped due to an existing file.
func WriteFileAtomic(destDir, base string, r io.Reader, policy config.ConflictPolicy) (string, string, bool, error) {
	dest := filepath.Join(destDir, base)

	if _, err := os.Lstat(dest); err == nil {
		switch policy {
		case config.Skip:
			return dest, "", true, nil
		case config.Fail:
			return "", "", false, fmt.Errorf("destination %s already exists", dest)
		}
		// Overwrite falls through; the rename below replaces the file.
	} else if !os.IsNotExist(err) {
		return "", "", false, fmt.Errorf("failed to stat destination %s: %w", dest, err)
	}

	tmp, err := os.CreateTemp(destDir, "."+base+".tmp-*")
	if err != nil {
		return "", "", false, fmt.Errorf("failed to create temporary file in %s: %w", destDir, err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	hasher := sha256.New()
	if _, err := io.Copy(tmp, io.TeeReader(r, hasher)); err != nil {
		tmp.Close()
		return "", "", false, fmt.Errorf("failed to write %s: %w", dest, err)
	}
	if err := tmp.Close(); err != nil {
		return "", "", false, fmt.Errorf("failed to close temporary file for %s: %w", dest, err)
	}

	if err := os.Rename(tmpName, dest); err != nil {
		return "", "", false, fmt.Errorf("failed to move %s into place: %w", dest, err)
	}

	return dest, hex.EncodeToString(hasher.Sum(nil)), false, nil
}

// StageFile copies src into destDir under its basename via WriteFileAtomic.
// The source must exist and be a regular file.
func StageFile(src, destDir string, policy config.ConflictPolicy) (string, string, bool, error) {
	info, err := os.Stat(src)
	if err != nil {
		return "", "", false, fmt.Errorf("source file %s is not readable: %w", src, err)
	}
	if info.IsDir() {
		return "", "", false, fmt.Errorf("source %s is a directory, not a file", src)
	}

	f, err := os.Open(src)
	if err != nil {
		return "", "", false, fmt.Errorf("failed to open source file %s: %w", src, err)
	}
	defer f.Close()

	return WriteFileAtomic(destDir, filepath.Base(src), f, policy)
}

// IsDirWritable reports whether the process can create files in dir, by
// creating and removing a probe file.
func IsDirWritable(dir string) error {
	probe, err := os.CreateTemp(dir, ".detstrap-probe-*")
	if err != nil {
		return fmt.Errorf("directory %s is not writable: %w", dir, err)
	}
	name := probe.Name()
	probe.Close()
	return os.Remove(name)
}
