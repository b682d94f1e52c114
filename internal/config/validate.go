package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// Validate reports configuration values that cannot drive a run.
func (c *Config) Validate() error {
	var problems []string

	if c.Pipeline.ResolutionCeiling < 2 {
		problems = append(problems, fmt.Sprintf("pipeline.resolution_ceiling must be at least 2, got %d", c.Pipeline.ResolutionCeiling))
	}
	if c.Pipeline.FPSCeiling <= 0 {
		problems = append(problems, fmt.Sprintf("pipeline.fps_ceiling must be positive, got %g", c.Pipeline.FPSCeiling))
	}
	if c.Pipeline.DurationCeiling < 0 {
		problems = append(problems, fmt.Sprintf("pipeline.duration_ceiling must not be negative, got %g", c.Pipeline.DurationCeiling))
	}
	if c.Pipeline.MaxSceneSeconds <= 0 {
		problems = append(problems, fmt.Sprintf("pipeline.max_scene_seconds must be positive, got %g", c.Pipeline.MaxSceneSeconds))
	}
	if c.Pipeline.Divisor <= 0 {
		problems = append(problems, fmt.Sprintf("pipeline.divisor must be positive, got %d", c.Pipeline.Divisor))
	}
	if c.DepthBackend.TimeoutSeconds < 0 {
		problems = append(problems, fmt.Sprintf("depth_backend.timeout_seconds must not be negative, got %d", c.DepthBackend.TimeoutSeconds))
	}
	if c.DepthBackend.URL != "" {
		if parsed, err := url.Parse(c.DepthBackend.URL); err != nil || parsed.Scheme == "" || parsed.Host == "" {
			problems = append(problems, fmt.Sprintf("depth_backend.url is not a valid URL: %q", c.DepthBackend.URL))
		}
	}

	if len(problems) == 0 {
		return nil
	}
	return errors.New("invalid configuration: " + strings.Join(problems, "; "))
}
