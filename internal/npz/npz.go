package npz

import (
	"archive/zip"
	"encoding/binary"
	"errors"
	"fmt"
	"strings"

	"github.com/sbinet/npyio"
)

// DepthKey is the archive member holding the depth volume.
const DepthKey = "depth"

// ErrMissingDepth reports an archive without the expected depth member.
// Treated as an invariant violation by callers: a backend that "succeeded"
// without producing depth data has a defect that must not be papered over.
var ErrMissingDepth = errors.New("npz: no depth array in archive")

// Array holds one n-dimensional float32 volume and its original shape.
type Array struct {
	Shape []int
	Data  []float32
}

// Len returns the total element count implied by the shape.
func (a Array) Len() int {
	if len(a.Shape) == 0 {
		return 0
	}
	n := 1
	for _, dim := range a.Shape {
		n *= dim
	}
	return n
}

// ReadDepth extracts the depth member from an NPZ archive. Float64 payloads
// are narrowed to float32; other dtypes are rejected.
func ReadDepth(path string) (Array, error) {
	archive, err := zip.OpenReader(path)
	if err != nil {
		return Array{}, fmt.Errorf("npz open %s: %w", path, err)
	}
	defer archive.Close()

	for _, member := range archive.File {
		name := strings.TrimSuffix(member.Name, ".npy")
		if name != DepthKey {
			continue
		}
		reader, err := member.Open()
		if err != nil {
			return Array{}, fmt.Errorf("npz member %s: %w", member.Name, err)
		}
		defer reader.Close()

		npy, err := npyio.NewReader(reader)
		if err != nil {
			return Array{}, fmt.Errorf("npz decode %s: %w", member.Name, err)
		}

		shape := append([]int{}, npy.Header.Descr.Shape...)
		count := 1
		for _, dim := range shape {
			count *= dim
		}

		switch npy.Header.Descr.Type {
		case "<f4", "f4", "float32":
			data := make([]float32, count)
			if err := npy.Read(&data); err != nil {
				return Array{}, fmt.Errorf("npz read %s: %w", member.Name, err)
			}
			return Array{Shape: shape, Data: data}, nil
		case "<f8", "f8", "float64":
			wide := make([]float64, count)
			if err := npy.Read(&wide); err != nil {
				return Array{}, fmt.Errorf("npz read %s: %w", member.Name, err)
			}
			data := make([]float32, count)
			for i, v := range wide {
				data[i] = float32(v)
			}
			return Array{Shape: shape, Data: data}, nil
		default:
			return Array{}, fmt.Errorf("npz read %s: unsupported dtype %q", member.Name, npy.Header.Descr.Type)
		}
	}
	return Array{}, fmt.Errorf("%w: %s", ErrMissingDepth, path)
}

// WriteDepth stores a single float32 volume as the depth member of a new
// NPZ archive, deflate-compressed.
func WriteDepth(path string, arr Array) (err error) {
	if arr.Len() != len(arr.Data) {
		return fmt.Errorf("npz write %s: shape %v does not cover %d elements", path, arr.Shape, len(arr.Data))
	}

	file, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := file.Close(); err == nil {
			err = cerr
		}
	}()

	zw := zip.NewWriter(file)
	member, err := zw.CreateHeader(&zip.FileHeader{
		Name:   DepthKey + ".npy",
		Method: zip.Deflate,
	})
	if err != nil {
		return fmt.Errorf("npz write %s: %w", path, err)
	}

	if _, err := member.Write(npyHeader(arr.Shape)); err != nil {
		return fmt.Errorf("npz write %s: %w", path, err)
	}
	buf := make([]byte, 4*len(arr.Data))
	for i, v := range arr.Data {
		binary.LittleEndian.PutUint32(buf[i*4:], floatBits(v))
	}
	if _, err := member.Write(buf); err != nil {
		return fmt.Errorf("npz write %s: %w", path, err)
	}
	if err := zw.Close(); err != nil {
		return fmt.Errorf("npz finalize %s: %w", path, err)
	}
	return nil
}

// npyHeader renders a v1.0 NPY preamble for a little-endian float32 array.
func npyHeader(shape []int) []byte {
	dims := make([]string, len(shape))
	for i, dim := range shape {
		dims[i] = fmt.Sprintf("%d", dim)
	}
	shapeRepr := strings.Join(dims, ", ")
	if len(shape) == 1 {
		shapeRepr += ","
	}
	dict := fmt.Sprintf("{'descr': '<f4', 'fortran_order': False, 'shape': (%s), }", shapeRepr)

	// Total preamble length (magic + version + length field + dict + '\n')
	// must be a multiple of 64.
	prefix := 10
	padded := prefix + len(dict) + 1
	if rem := padded % 64; rem != 0 {
		padded += 64 - rem
	}
	header := make([]byte, padded)
	copy(header, "\x93NUMPY")
	header[6] = 1
	header[7] = 0
	binary.LittleEndian.PutUint16(header[8:10], uint16(padded-prefix))
	copy(header[prefix:], dict)
	for i := prefix + len(dict); i < padded-1; i++ {
		header[i] = ' '
	}
	header[padded-1] = '\n'
	return header
}
