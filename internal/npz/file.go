package npz

import (
	"fmt"
	"math"
	"os"
	"path/filepath"
)

func createFile(path string) (*os.File, error) {
	if dir := filepath.Dir(path); dir != "" && dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("npz create %s: %w", path, err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, fmt.Errorf("npz create %s: %w", path, err)
	}
	return file, nil
}

func floatBits(v float32) uint32 {
	return math.Float32bits(v)
}
