// Package serializer writes wire documents as single JSON lines. Values JSON
// cannot hold are tagged: times as {"$$date": <unix ms>} and binary data as
// {"$$binary": <base64>}.
package serializer

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"strings"
	"time"

	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// Serializer turns documents into JSON lines.
type Serializer struct{}

// NewSerializer returns a new [Serializer].
func NewSerializer() *Serializer {
	return &Serializer{}
}

// Serialize returns the JSON line of doc, without the trailing line break.
// Keys starting with "$$" are reserved for tagged values and rejected.
func (s *Serializer) Serialize(ctx context.Context, doc domain.M) ([]byte, error) {
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}
	v, err := s.value(doc)
	if err != nil {
		return nil, err
	}
	return json.Marshal(v)
}

func (s *Serializer) value(v any) (any, error) {
	switch t := v.(type) {
	case time.Time:
		return domain.M{"$$date": t.UnixMilli()}, nil
	case []byte:
		return domain.M{"$$binary": base64.StdEncoding.EncodeToString(t)}, nil
	case domain.M:
		res := make(domain.M, len(t))
		for k, item := range t {
			if strings.HasPrefix(k, "$$") {
				return nil, domain.ErrFieldPath{Path: k, Reason: "keys starting with $$ are reserved"}
			}
			var err error
			if res[k], err = s.value(item); err != nil {
				return nil, err
			}
		}
		return res, nil
	}
	if list, ok := v.([]any); ok {
		res := make([]any, len(list))
		for n, item := range list {
			var err error
			if res[n], err = s.value(item); err != nil {
				return nil, err
			}
		}
		return res, nil
	}
	return v, nil
}
