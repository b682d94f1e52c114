package npz

import (
	"archive/zip"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
)

func TestWriteReadDepthVolume(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depth.npz")
	want := Array{
		Shape: []int{2, 3, 4},
		Data: []float32{
			0.5, 1, 1.5, 2, 2.5, 3, 3.5, 4, 4.5, 5, 5.5, 6,
			6.5, 7, 7.5, 8, 8.5, 9, 9.5, 10, 10.5, 11, 11.5, 12,
		},
	}
	if err := WriteDepth(path, want); err != nil {
		t.Fatalf("WriteDepth: %v", err)
	}

	got, err := ReadDepth(path)
	if err != nil {
		t.Fatalf("ReadDepth: %v", err)
	}
	if diff := cmp.Diff(want.Shape, got.Shape); diff != "" {
		t.Errorf("shape mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want.Data, got.Data); diff != "" {
		t.Errorf("data mismatch (-want +got):\n%s", diff)
	}
}

func TestWriteDepthRejectsShapeMismatch(t *testing.T) {
	path := filepath.Join(t.TempDir(), "depth.npz")
	err := WriteDepth(path, Array{Shape: []int{2, 2}, Data: make([]float32, 3)})
	if err == nil {
		t.Fatal("WriteDepth accepted mismatched shape")
	}
}

func TestReadDepthMissingMember(t *testing.T) {
	archivePath := filepath.Join(t.TempDir(), "other.npz")
	file, err := os.Create(archivePath)
	if err != nil {
		t.Fatalf("create: %v", err)
	}
	zw := zip.NewWriter(file)
	member, err := zw.Create("confidence.npy")
	if err != nil {
		t.Fatalf("create member: %v", err)
	}
	if _, err := member.Write([]byte("not depth")); err != nil {
		t.Fatalf("write member: %v", err)
	}
	if err := zw.Close(); err != nil {
		t.Fatalf("close zip: %v", err)
	}
	if err := file.Close(); err != nil {
		t.Fatalf("close file: %v", err)
	}

	if _, err := ReadDepth(archivePath); !errors.Is(err, ErrMissingDepth) {
		t.Fatalf("err = %v, want ErrMissingDepth", err)
	}
}
