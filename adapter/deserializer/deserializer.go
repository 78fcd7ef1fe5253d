// Package deserializer reads the JSON lines written by the serializer back
// into wire documents.
package deserializer

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// NewDeserializer returns a new [Deserializer]. Targets other than documents
// are filled by decoder.
func NewDeserializer(decoder domain.Decoder) *Deserializer {
	return &Deserializer{
		decoder: decoder,
	}
}

// Deserializer reads JSON lines into documents.
type Deserializer struct {
	decoder domain.Decoder
}

// Deserialize reads the line b into target. Integers are read as int64 and
// other numbers as float64. Tagged dates and binary values are restored.
func (d *Deserializer) Deserialize(ctx context.Context, b []byte, target any) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	if target == nil {
		return domain.ErrTargetNil
	}

	var doc domain.M
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	if err := dec.Decode(&doc); err != nil {
		return err
	}
	v, err := d.value(doc)
	if err != nil {
		return err
	}
	doc, _ = v.(domain.M)

	switch p := target.(type) {
	case *domain.M:
		*p = doc
		return nil
	case *any:
		*p = doc
		return nil
	}
	return d.decoder.Decode(doc, target)
}

func (d *Deserializer) value(v any) (any, error) {
	switch t := v.(type) {
	case json.Number:
		if n, err := t.Int64(); err == nil {
			return n, nil
		}
		return t.Float64()
	case []any:
		for n, item := range t {
			var err error
			if t[n], err = d.value(item); err != nil {
				return nil, err
			}
		}
		return t, nil
	case domain.M:
		if len(t) == 1 {
			if ms, ok := t["$$date"].(json.Number); ok {
				n, err := ms.Int64()
				if err != nil {
					return nil, fmt.Errorf("reading $$date: %w", err)
				}
				return time.UnixMilli(n), nil
			}
			if s, ok := t["$$binary"].(string); ok {
				return base64.StdEncoding.DecodeString(s)
			}
		}
		for k, item := range t {
			var err error
			if t[k], err = d.value(item); err != nil {
				return nil, err
			}
		}
		return t, nil
	}
	return v, nil
}
