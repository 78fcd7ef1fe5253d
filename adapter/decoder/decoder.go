// Package decoder contains the default [domain.Decoder] implementation, used to
// scan records into user structs.
package decoder

import (
	"fmt"
	stdreflect "reflect"
	"time"

	"github.com/goccy/go-reflect"
	"github.com/google/uuid"
	"github.com/mitchellh/mapstructure"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// Mapper is implemented by values that can present themselves as a plain
// document, such as records.
type Mapper interface {
	Map() domain.M
}

var (
	timeType = stdreflect.TypeOf(time.Time{})
	uuidType = stdreflect.TypeOf(uuid.UUID{})
)

// Decoder implements domain.Decoder.
type Decoder struct{}

// NewDecoder returns a new implementation of domain.Decoder.
func NewDecoder() domain.Decoder {
	return &Decoder{}
}

// Decode implements domain.Decoder.
func (d *Decoder) Decode(source any, target any) error {
	if target == nil {
		return domain.ErrTargetNil
	}

	value := reflect.ValueNoEscapeOf(target)
	if value.Kind() != reflect.Ptr {
		return domain.ErrNonPointer
	}

	source = d.adjustDoc(source)

	dec, err := mapstructure.NewDecoder(&mapstructure.DecoderConfig{
		TagName:    structure.TagName,
		Result:     target,
		DecodeHook: mapstructure.DecodeHookFuncType(d.hook),
	})
	if err != nil {
		return err
	}
	if err := dec.Decode(source); err != nil {
		errDec := domain.ErrDecode{Source: source, Target: target}
		return fmt.Errorf("%w: %w", errDec, err)
	}
	return nil
}

// hook keeps time and uuid values intact and parses them from strings.
func (d *Decoder) hook(_ stdreflect.Type, to stdreflect.Type, data any) (any, error) {
	s, ok := data.(string)
	if !ok {
		return data, nil
	}
	switch to {
	case timeType:
		return time.Parse(time.RFC3339Nano, s)
	case uuidType:
		return uuid.Parse(s)
	}
	return data, nil
}

func (d *Decoder) adjustDoc(value any) any {
	switch t := value.(type) {
	case Mapper:
		return d.adjustDoc(t.Map())
	case domain.M:
		doc := make(map[string]any, len(t))
		for k, v := range t {
			doc[k] = d.adjustDoc(v)
		}
		return doc
	case []any:
		lst := make([]any, len(t))
		for n, v := range t {
			lst[n] = d.adjustDoc(v)
		}
		return lst
	default:
		return value
	}
}
