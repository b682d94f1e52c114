package deps

import (
	"fmt"

	"golang.org/x/sys/unix"
)

// CheckFreeSpace verifies the filesystem holding dir has at least minGiB free.
// Intermediate scene artifacts can exceed the source size several times over,
// so this runs before the first transcode rather than mid-pipeline.
func CheckFreeSpace(dir string, minGiB int) Status {
	status := Status{
		Name:        "Disk space",
		Command:     dir,
		Description: fmt.Sprintf("at least %d GiB free for run artifacts", minGiB),
	}

	var stat unix.Statfs_t
	if err := unix.Statfs(dir, &stat); err != nil {
		status.Detail = fmt.Sprintf("statfs %s: %v", dir, err)
		return status
	}

	freeBytes := stat.Bavail * uint64(stat.Bsize)
	required := uint64(minGiB) << 30
	if freeBytes < required {
		status.Detail = fmt.Sprintf("%.1f GiB free, need %d GiB", float64(freeBytes)/(1<<30), minGiB)
		return status
	}

	status.Available = true
	return status
}
