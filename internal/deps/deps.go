// Package deps checks the external prerequisites a run depends on before
// any stage work begins. A missing required tool is a fatal condition.
package deps

import (
	"fmt"
	"os/exec"
	"strings"
)

// Requirement defines an external dependency parallax relies on.
type Requirement struct {
	Name        string
	Command     string
	Description string
	Optional    bool
}

// Status reports the availability of a dependency.
type Status struct {
	Name        string
	Command     string
	Description string
	Optional    bool
	Available   bool
	Detail      string
}

// ToolRequirements builds the external tool set preflight checks before a
// run. needBackend includes the local depth backend binary; remote backends
// are health-probed over HTTP instead of looked up on PATH.
func ToolRequirements(ffmpeg, ffprobe, splitter, backend string, needBackend bool) []Requirement {
	requirements := []Requirement{
		{Name: "ffmpeg", Command: ffmpeg, Description: "video transcoding"},
		{Name: "ffprobe", Command: ffprobe, Description: "stream inspection"},
		{Name: "scene splitter", Command: splitter, Description: "scene boundary detection"},
	}
	if needBackend {
		requirements = append(requirements, Requirement{
			Name:        "depth backend",
			Command:     backend,
			Description: "depth inference",
		})
	}
	return requirements
}

// CheckBinaries evaluates the provided requirements and reports availability.
func CheckBinaries(requirements []Requirement) []Status {
	results := make([]Status, 0, len(requirements))
	for _, req := range requirements {
		cmd := strings.TrimSpace(req.Command)
		status := Status{
			Name:        req.Name,
			Command:     cmd,
			Description: strings.TrimSpace(req.Description),
			Optional:    req.Optional,
		}
		if cmd == "" {
			status.Detail = "command not configured"
			results = append(results, status)
			continue
		}
		if _, err := exec.LookPath(cmd); err != nil {
			status.Detail = fmt.Sprintf("binary %q not found", cmd)
			results = append(results, status)
			continue
		}
		status.Available = true
		results = append(results, status)
	}
	return results
}

// MissingRequired filters statuses down to unavailable non-optional entries.
func MissingRequired(statuses []Status) []Status {
	var missing []Status
	for _, status := range statuses {
		if !status.Available && !status.Optional {
			missing = append(missing, status)
		}
	}
	return missing
}
