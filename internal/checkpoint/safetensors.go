// Package checkpoint persists fields and optimizer state in SafeTensors format.
//
//	Format Structure:
//	  [8 bytes: header_size (uint64 LE)]
//	  [header_size bytes: JSON header]
//	  [tensor data: raw bytes, names in alphabetical order]
//
// Only F64 and BOOL tensors are written; that covers field values, active
// masks and every optimizer buffer. String metadata is stored under the
// "__metadata__" header key.
package checkpoint

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"io"
	"math"
	"os"
	"sort"

	"github.com/pkg/errors"
)

// Format constants.
const (
	DTypeF64    = "F64"
	DTypeBool   = "BOOL"
	metadataKey = "__metadata__"

	MaxHeaderSize  = 100 * 1024 * 1024 // 100MB - maximum header size
	MaxTensorCount = 100_000           // Maximum number of tensors in a file
)

// Tensor is one named array in a checkpoint.
//
// Exactly one of F64 or Bool is set.
type Tensor struct {
	Shape []int
	F64   []float64
	Bool  []bool
}

// DType returns the SafeTensors dtype string.
func (t Tensor) DType() string {
	if t.Bool != nil {
		return DTypeBool
	}
	return DTypeF64
}

func (t Tensor) numElements() int {
	if t.Bool != nil {
		return len(t.Bool)
	}
	return len(t.F64)
}

func (t Tensor) byteSize() int64 {
	return int64(t.numElements() * dtypeSize(t.DType()))
}

// header is a tensor entry in the SafeTensors header.
type header struct {
	DType       string   `json:"dtype"`
	Shape       []int64  `json:"shape"`
	DataOffsets [2]int64 `json:"data_offsets"`
}

func dtypeSize(dtype string) int {
	switch dtype {
	case DTypeF64:
		return 8
	case DTypeBool:
		return 1
	default:
		return 0
	}
}

func shapeElements(shape []int) int {
	n := 1
	for _, d := range shape {
		n *= d
	}
	return n
}

// WriteFile writes tensors to a SafeTensors file.
func WriteFile(path string, tensors map[string]Tensor, metadata map[string]string) error {
	//nolint:gosec // G304: path comes from the caller, which is expected for checkpointing
	file, err := os.Create(path)
	if err != nil {
		return errors.Wrap(err, "failed to create file")
	}

	if err := Write(file, tensors, metadata); err != nil {
		_ = file.Close() // Best effort close
		return err
	}
	return file.Close()
}

// Write writes tensors to w in SafeTensors format.
//
// Tensors are written in alphabetical order by name (SafeTensors requirement).
func Write(w io.Writer, tensors map[string]Tensor, metadata map[string]string) error {
	names := make([]string, 0, len(tensors))
	for name, t := range tensors {
		if name == "" || name == metadataKey {
			return errors.Wrapf(ErrInvalidTensorName, "%q", name)
		}
		if shapeElements(t.Shape) != t.numElements() {
			return errors.Errorf("tensor %q: shape %v does not match %d elements", name, t.Shape, t.numElements())
		}
		names = append(names, name)
	}
	sort.Strings(names)

	hdr := make(map[string]interface{}, len(names)+1)
	if len(metadata) > 0 {
		hdr[metadataKey] = metadata
	}

	var offset int64
	for _, name := range names {
		t := tensors[name]
		shape := make([]int64, len(t.Shape))
		for i, d := range t.Shape {
			shape[i] = int64(d)
		}
		size := t.byteSize()
		hdr[name] = header{
			DType:       t.DType(),
			Shape:       shape,
			DataOffsets: [2]int64{offset, offset + size},
		}
		offset += size
	}

	headerJSON, err := json.Marshal(hdr)
	if err != nil {
		return errors.Wrap(err, "failed to marshal header")
	}

	bw := bufio.NewWriter(w)
	if err := binary.Write(bw, binary.LittleEndian, uint64(len(headerJSON))); err != nil {
		return errors.Wrap(err, "failed to write header size")
	}
	if _, err := bw.Write(headerJSON); err != nil {
		return errors.Wrap(err, "failed to write header")
	}

	var buf [8]byte
	for _, name := range names {
		t := tensors[name]
		if t.Bool != nil {
			for _, b := range t.Bool {
				var v byte
				if b {
					v = 1
				}
				if err := bw.WriteByte(v); err != nil {
					return errors.Wrapf(err, "failed to write tensor %s", name)
				}
			}
			continue
		}
		for _, v := range t.F64 {
			binary.LittleEndian.PutUint64(buf[:], math.Float64bits(v))
			if _, err := bw.Write(buf[:]); err != nil {
				return errors.Wrapf(err, "failed to write tensor %s", name)
			}
		}
	}

	return bw.Flush()
}

// ReadFile reads a SafeTensors file.
func ReadFile(path string) (map[string]Tensor, map[string]string, error) {
	//nolint:gosec // G304: path comes from the caller, which is expected for checkpointing
	file, err := os.Open(path)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to open file")
	}
	defer func() {
		_ = file.Close()
	}()
	return Read(bufio.NewReader(file))
}

// Read reads SafeTensors data from r, validating every tensor's offsets
// against the data section before decoding.
func Read(r io.Reader) (map[string]Tensor, map[string]string, error) {
	var headerSize uint64
	if err := binary.Read(r, binary.LittleEndian, &headerSize); err != nil {
		return nil, nil, errors.Wrap(err, "failed to read header size")
	}
	if headerSize > MaxHeaderSize {
		return nil, nil, errors.Wrapf(ErrHeaderTooLarge, "%d bytes", headerSize)
	}

	headerJSON := make([]byte, headerSize)
	if _, err := io.ReadFull(r, headerJSON); err != nil {
		return nil, nil, errors.Wrap(err, "failed to read header")
	}

	var raw map[string]json.RawMessage
	if err := json.Unmarshal(headerJSON, &raw); err != nil {
		return nil, nil, errors.Wrap(err, "failed to parse header")
	}

	var metadata map[string]string
	if m, ok := raw[metadataKey]; ok {
		if err := json.Unmarshal(m, &metadata); err != nil {
			return nil, nil, errors.Wrap(err, "failed to parse metadata")
		}
		delete(raw, metadataKey)
	}
	if len(raw) > MaxTensorCount {
		return nil, nil, &ValidationError{
			Type:    "too_many_tensors",
			Details: "header lists too many tensors",
		}
	}

	entries := make(map[string]header, len(raw))
	for name, msg := range raw {
		var h header
		if err := json.Unmarshal(msg, &h); err != nil {
			return nil, nil, errors.Wrapf(err, "failed to parse tensor %q", name)
		}
		entries[name] = h
	}

	data, err := io.ReadAll(r)
	if err != nil {
		return nil, nil, errors.Wrap(err, "failed to read tensor data")
	}
	if err := validateOffsets(entries, int64(len(data))); err != nil {
		return nil, nil, err
	}

	tensors := make(map[string]Tensor, len(entries))
	for name, h := range entries {
		tensors[name] = decode(h, data[h.DataOffsets[0]:h.DataOffsets[1]])
	}
	return tensors, metadata, nil
}

// validateOffsets checks dtype, shape and offsets of every entry.
// Offsets must be non-negative, in bounds and non-overlapping; empty
// tensors are exempt from the overlap check.
func validateOffsets(entries map[string]header, dataSize int64) error {
	names := make([]string, 0, len(entries))
	for name, h := range entries {
		size := dtypeSize(h.DType)
		if size == 0 {
			return &ValidationError{Type: "unsupported_dtype", Tensor: name, Details: h.DType, Err: ErrUnsupportedDType}
		}
		start, end := h.DataOffsets[0], h.DataOffsets[1]
		if start < 0 || end < start {
			return &ValidationError{
				Type:    "negative_offset",
				Tensor:  name,
				Details: "invalid data offsets",
				Err:     ErrNegativeOffset,
			}
		}
		if end > dataSize {
			return &ValidationError{
				Type:    "out_of_bounds",
				Tensor:  name,
				Details: "data offsets exceed data section",
				Err:     ErrOutOfBounds,
			}
		}
		n := int64(1)
		for _, d := range h.Shape {
			if d < 0 {
				return &ValidationError{Type: "invalid_shape", Tensor: name, Details: "negative dimension", Err: ErrNegativeOffset}
			}
			if d > 0 && n > math.MaxInt64/d {
				return &ValidationError{Type: "invalid_shape", Tensor: name, Details: "element count overflows", Err: ErrOutOfBounds}
			}
			n *= d
		}
		nbytes := end - start
		if nbytes%int64(size) != 0 || n != nbytes/int64(size) {
			return &ValidationError{
				Type:    "size_mismatch",
				Tensor:  name,
				Details: "shape does not match data offsets",
				Err:     ErrOutOfBounds,
			}
		}
		if end > start {
			names = append(names, name)
		}
	}

	sort.Slice(names, func(i, j int) bool {
		return entries[names[i]].DataOffsets[0] < entries[names[j]].DataOffsets[0]
	})
	for i := 1; i < len(names); i++ {
		prev, cur := entries[names[i-1]], entries[names[i]]
		if cur.DataOffsets[0] < prev.DataOffsets[1] {
			return &ValidationError{
				Type:    "offset_overlap",
				Tensor:  names[i-1],
				Tensor2: names[i],
				Details: "data ranges overlap",
				Err:     ErrOffsetOverlap,
			}
		}
	}
	return nil
}

func decode(h header, data []byte) Tensor {
	shape := make([]int, len(h.Shape))
	for i, d := range h.Shape {
		shape[i] = int(d)
	}

	if h.DType == DTypeBool {
		b := make([]bool, len(data))
		for i, v := range data {
			b[i] = v != 0
		}
		return Tensor{Shape: shape, Bool: b}
	}

	f := make([]float64, len(data)/8)
	for i := range f {
		f[i] = math.Float64frombits(binary.LittleEndian.Uint64(data[i*8:]))
	}
	return Tensor{Shape: shape, F64: f}
}
