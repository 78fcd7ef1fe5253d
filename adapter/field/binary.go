package field

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"

	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/xeipuuv/gojsonschema"
)

// Binary implements [domain.FieldType] for raw bytes.
type Binary struct {
	scalar
	maxBytes int
}

// NewBinary returns a [Binary] field type.
func NewBinary(options ...BinaryOption) *Binary {
	b := &Binary{}
	for _, option := range options {
		option(b)
	}
	return b
}

// IsEmpty implements [domain.FieldType].
func (b *Binary) IsEmpty(v any) bool {
	if bs, ok := v.([]byte); ok {
		return len(bs) == 0
	}
	return v == nil
}

// Validate implements [domain.FieldType].
func (b *Binary) Validate(v any) bool {
	if v == nil {
		return true
	}
	bs, ok := v.([]byte)
	return ok && (b.maxBytes <= 0 || len(bs) <= b.maxBytes)
}

// Encode implements [domain.FieldType].
func (b *Binary) Encode(v any) (any, error) {
	switch t := v.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.Clone(t), nil
	case string:
		return []byte(t), nil
	default:
		return nil, domain.ErrEncode{Value: v, Type: "binary"}
	}
}

// Decode implements [domain.FieldType]. Strings are read as standard base64,
// the way JSON encoders write byte slices.
func (b *Binary) Decode(w any) (any, error) {
	switch t := w.(type) {
	case nil:
		return nil, nil
	case []byte:
		return bytes.Clone(t), nil
	case string:
		bs, err := base64.StdEncoding.DecodeString(t)
		if err != nil {
			return nil, fmt.Errorf("%w: %w", domain.ErrDecode{Source: w, Target: []byte{}}, err)
		}
		return bs, nil
	default:
		return nil, domain.ErrDecode{Source: w, Target: []byte{}}
	}
}

// JSON implements [domain.FieldType] for free form values stored as a JSON
// string. Decoded values use the JSON data model: documents become
// map[string]any, lists []any and numbers float64.
type JSON struct {
	scalar
	schemaSource string
	schema       *gojsonschema.Schema
}

// NewJSON returns a [JSON] field type. It fails if the JSON Schema given with
// [WithJSONSchema] cannot be compiled.
func NewJSON(options ...JSONOption) (*JSON, error) {
	j := &JSON{}
	for _, option := range options {
		option(j)
	}
	if j.schemaSource != "" {
		s, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(j.schemaSource))
		if err != nil {
			return nil, fmt.Errorf("compiling json schema: %w", err)
		}
		j.schema = s
	}
	return j, nil
}

// Validate implements [domain.FieldType].
func (j *JSON) Validate(v any) bool {
	if v == nil {
		return true
	}
	data, err := json.Marshal(v)
	if err != nil {
		return false
	}
	if j.schema == nil {
		return true
	}
	res, err := j.schema.Validate(gojsonschema.NewBytesLoader(data))
	return err == nil && res.Valid()
}

// Encode implements [domain.FieldType].
func (j *JSON) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrEncode{Value: v, Type: "json"}, err)
	}
	return string(data), nil
}

// Decode implements [domain.FieldType].
func (j *JSON) Decode(w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	s, ok := w.(string)
	if !ok {
		return nil, domain.ErrDecode{Source: w, Target: ""}
	}
	var res any
	if err := json.Unmarshal([]byte(s), &res); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrDecode{Source: w, Target: res}, err)
	}
	return res, nil
}
