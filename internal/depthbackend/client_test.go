package depthbackend

import (
	"context"
	"strings"
	"testing"
)

type fakeRunner struct {
	binary string
	args   []string
	output []byte
	err    error
}

func (f *fakeRunner) Run(_ context.Context, binary string, args []string) ([]byte, error) {
	f.binary = binary
	f.args = args
	return f.output, f.err
}

func TestCommandClientArgs(t *testing.T) {
	runner := &fakeRunner{output: []byte("ok")}
	client, err := NewCommandClient("da3", 0, WithRunner(runner))
	if err != nil {
		t.Fatalf("NewCommandClient: %v", err)
	}

	result, err := client.Infer(context.Background(), Request{
		SceneVideo: "/runs/demo/scenes/scene_004.mp4",
		ModelDir:   "/models/da3",
		Resolution: 720,
		FPS:        23.976,
		OutputNPZ:  "/runs/demo/scenes/scene_004_depth.npz",
	})
	if err != nil {
		t.Fatalf("Infer: %v", err)
	}
	if result.Output != "ok" {
		t.Errorf("result output = %q", result.Output)
	}
	if runner.binary != "da3" {
		t.Errorf("binary = %q", runner.binary)
	}

	joined := strings.Join(runner.args, " ")
	for _, want := range []string{
		"infer",
		"--input /runs/demo/scenes/scene_004.mp4",
		"--output /runs/demo/scenes/scene_004_depth.npz",
		"--process-res 720",
		"--fps 23.976",
		"--model-dir /models/da3",
	} {
		if !strings.Contains(joined, want) {
			t.Errorf("args missing %q: %s", want, joined)
		}
	}
}

func TestCommandClientValidation(t *testing.T) {
	if _, err := NewCommandClient("  ", 0); err == nil {
		t.Error("empty binary accepted")
	}

	client, err := NewCommandClient("da3", 0, WithRunner(&fakeRunner{}))
	if err != nil {
		t.Fatalf("NewCommandClient: %v", err)
	}
	if _, err := client.Infer(context.Background(), Request{OutputNPZ: "out.npz"}); err == nil {
		t.Error("missing scene video accepted")
	}
	if _, err := client.Infer(context.Background(), Request{SceneVideo: "scene.mp4"}); err == nil {
		t.Error("missing output path accepted")
	}
}
