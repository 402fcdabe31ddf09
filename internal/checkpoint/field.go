package checkpoint

import (
	"strconv"

	"github.com/pkg/errors"

	"github.com/born-ml/tomo/internal/field"
)

// Tensor and metadata names used for fields.
const (
	FieldValues = "values"
	FieldMask   = "mask"
	MetaUpper   = "upper"
	MetaReset   = "reset"
)

// SaveField writes a field's values, mask and bounds to path.
func SaveField(path string, f *field.Field) error {
	shape := []int(f.Shape())
	values := make([]float64, f.Len())
	copy(values, f.Values())

	tensors := map[string]Tensor{
		FieldValues: {Shape: shape, F64: values},
		FieldMask:   {Shape: shape, Bool: f.Mask()},
	}
	b := f.Bounds()
	metadata := map[string]string{
		MetaUpper: strconv.FormatFloat(b.Upper, 'g', -1, 64),
		MetaReset: strconv.FormatFloat(b.Reset, 'g', -1, 64),
	}
	return WriteFile(path, tensors, metadata)
}

// LoadField reads a field written by SaveField.
func LoadField(path string) (*field.Field, error) {
	tensors, metadata, err := ReadFile(path)
	if err != nil {
		return nil, err
	}

	values, ok := tensors[FieldValues]
	if !ok || values.DType() != DTypeF64 {
		return nil, errors.Wrapf(ErrMissingTensor, "%q (F64)", FieldValues)
	}
	mask, ok := tensors[FieldMask]
	if !ok || mask.DType() != DTypeBool {
		return nil, errors.Wrapf(ErrMissingTensor, "%q (BOOL)", FieldMask)
	}
	if !field.Shape(values.Shape).Equal(field.Shape(mask.Shape)) {
		return nil, errors.Wrapf(field.ErrShapeMismatch, "values shape %v, mask shape %v", values.Shape, mask.Shape)
	}

	upper, err := parseFloatMeta(metadata, MetaUpper)
	if err != nil {
		return nil, err
	}
	reset, err := parseFloatMeta(metadata, MetaReset)
	if err != nil {
		return nil, err
	}

	return field.New(field.Shape(values.Shape), values.F64, mask.Bool, field.Bounds{Upper: upper, Reset: reset})
}

func parseFloatMeta(metadata map[string]string, key string) (float64, error) {
	s, ok := metadata[key]
	if !ok {
		return 0, errors.Wrapf(ErrMissingMetadata, "%q", key)
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, errors.Wrapf(err, "metadata %q", key)
	}
	return v, nil
}
