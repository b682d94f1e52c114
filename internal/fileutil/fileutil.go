// Package fileutil provides the small file helpers shared by pipeline stages.
package fileutil

import (
	"fmt"
	"io"
	"os"

	"github.com/google/renameio/v2"
)

// CopyFile streams src to dst using io.Copy with default permissions (0o644).
func CopyFile(src, dst string) error {
	return CopyFileMode(src, dst, 0o644)
}

// CopyFileMode streams src to dst, setting the given file mode on dst.
func CopyFileMode(src, dst string, mode os.FileMode) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.OpenFile(dst, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, mode)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}

// WriteFileAtomic replaces dst with data atomically. Readers never observe a
// partially written file, which keeps artifact-presence checks trustworthy.
func WriteFileAtomic(dst string, data []byte, mode os.FileMode) error {
	if err := renameio.WriteFile(dst, data, mode); err != nil {
		return fmt.Errorf("atomic write %s: %w", dst, err)
	}
	return nil
}

// Exists reports whether path names an existing regular file.
func Exists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.Mode().IsRegular()
}

// DirExists reports whether path names an existing directory.
func DirExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && info.IsDir()
}
