package depthbackend

import (
	"bytes"
	"context"
	"errors"
	"os/exec"
	"strconv"
	"strings"
	"time"
)

// Request describes one scene inference call.
type Request struct {
	// SceneVideo is the trimmed RGB unit the model should process.
	SceneVideo string
	// ModelDir is the checkpoint directory (subprocess mode).
	ModelDir string
	// Resolution is the model processing width in pixels.
	Resolution int
	// FPS is the target frame rate of the scene.
	FPS float64
	// OutputNPZ is where the backend must leave the compressed depth volume.
	OutputNPZ string
}

// Result carries the backend's combined output for failure classification.
type Result struct {
	Output string
}

// Client is the contract scene workers use for depth inference.
type Client interface {
	// Infer runs the model on one scene. The returned Result's Output is
	// populated on failure as well so callers can classify the error.
	Infer(ctx context.Context, req Request) (Result, error)
}

// CommandOption configures the subprocess client.
type CommandOption func(*CommandClient)

// WithRunner injects a custom process runner (primarily for tests).
func WithRunner(runner Runner) CommandOption {
	return func(c *CommandClient) {
		if runner != nil {
			c.runner = runner
		}
	}
}

// Runner abstracts subprocess execution for testability.
type Runner interface {
	Run(ctx context.Context, binary string, args []string) ([]byte, error)
}

type execRunner struct{}

func (execRunner) Run(ctx context.Context, binary string, args []string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, binary, args...)
	var combined bytes.Buffer
	cmd.Stdout = &combined
	cmd.Stderr = &combined
	err := cmd.Run()
	return combined.Bytes(), err
}

// CommandClient runs the depth model as a local subprocess.
type CommandClient struct {
	binary  string
	timeout time.Duration
	runner  Runner
}

// NewCommandClient constructs a subprocess-mode client.
func NewCommandClient(binary string, timeoutSeconds int, opts ...CommandOption) (*CommandClient, error) {
	binary = strings.TrimSpace(binary)
	if binary == "" {
		return nil, errors.New("depth backend binary required")
	}
	client := &CommandClient{
		binary:  binary,
		timeout: time.Duration(timeoutSeconds) * time.Second,
		runner:  execRunner{},
	}
	for _, opt := range opts {
		opt(client)
	}
	return client, nil
}

// Infer invokes the backend binary on one scene video.
func (c *CommandClient) Infer(ctx context.Context, req Request) (Result, error) {
	if strings.TrimSpace(req.SceneVideo) == "" {
		return Result{}, errors.New("depth backend: scene video required")
	}
	if strings.TrimSpace(req.OutputNPZ) == "" {
		return Result{}, errors.New("depth backend: output path required")
	}

	inferCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		inferCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	args := []string{
		"infer",
		"--input", req.SceneVideo,
		"--output", req.OutputNPZ,
		"--process-res", strconv.Itoa(req.Resolution),
	}
	if req.FPS > 0 {
		args = append(args, "--fps", strconv.FormatFloat(req.FPS, 'f', -1, 64))
	}
	if strings.TrimSpace(req.ModelDir) != "" {
		args = append(args, "--model-dir", req.ModelDir)
	}

	output, err := c.runner.Run(inferCtx, c.binary, args)
	result := Result{Output: string(output)}
	if err != nil {
		return result, err
	}
	return result, nil
}
