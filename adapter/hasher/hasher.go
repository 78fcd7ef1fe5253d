// Package hasher contains a json based implementation of [domain.Hasher] for
// wire values. Values are rewritten into a canonical form before being
// marshaled, so that values [comparer.Comparer] considers equal hash the
// same: every number is hashed by its exact value whatever its Go type, and
// document keys are sorted. Types the comparer cannot order all share one
// hash per Go type.
package hasher

import (
	"bytes"
	"encoding/json"
	"fmt"
	"hash/fnv"
	"slices"
	"strings"
	"time"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

// type tags, kept short since they are hashed with every value
const (
	tagUndefined = "u"
	tagNumber    = "n"
	tagString    = "s"
	tagBinary    = "b"
	tagTime      = "t"
	tagList      = "l"
	tagUnknown   = "?"
)

// Hasher implements [domain.Hasher].
type Hasher struct{}

// NewHasher returns a new implementation of [domain.Hasher].
func NewHasher() domain.Hasher {
	return &Hasher{}
}

// Hash implements domain.Hasher.
func (h *Hasher) Hash(value any) (uint64, error) {
	b, err := json.Marshal(h.canonicalize(value))
	if err != nil {
		return 0, err
	}

	hasher := fnv.New64a()

	_, _ = hasher.Write(b) // fnv.sum64a.Write never returns error

	return hasher.Sum64(), nil
}

func (h *Hasher) canonicalize(a any) any {
	if g, ok := a.(domain.Getter); ok {
		v, defined := g.Get()
		if !defined {
			return []any{tagUndefined}
		}
		a = v
	}

	if n, ok := comparer.AsNumber(a); ok {
		return []any{tagNumber, n.String()}
	}

	switch v := a.(type) {
	case nil, bool:
		return v
	case string:
		return []any{tagString, v}
	case []byte:
		return []any{tagBinary, v}
	case time.Time:
		return []any{tagTime, v.UnixNano()}
	case domain.M:
		pairs := make(object, 0, len(v))
		for k, val := range v {
			pairs = append(pairs, keyValuePair{key: k, val: h.canonicalize(val)})
		}
		return pairs
	case []any:
		res := make([]any, len(v)+1)
		res[0] = tagList
		for n, item := range v {
			res[n+1] = h.canonicalize(item)
		}
		return res
	default:
		return []any{tagUnknown, fmt.Sprintf("%T", a)}
	}
}

type keyValuePair struct {
	key string
	val any
}

type object []keyValuePair

func (o object) MarshalJSON() (r []byte, err error) {
	buf := bytes.NewBuffer(append(make([]byte, 0, 1024), '{'))

	sorted := slices.SortedFunc(slices.Values(o), func(a, b keyValuePair) int {
		return strings.Compare(a.key, b.key)
	})

	for n, item := range sorted {
		b, _ := json.Marshal(item.key)
		_, _ = buf.Write(b)
		_, _ = buf.WriteRune(':')
		v, err := json.Marshal(item.val)
		if err != nil {
			return nil, err
		}
		_, _ = buf.Write(v)

		if n < len(sorted)-1 {
			_, _ = buf.WriteRune(',')
		}
	}
	_, _ = buf.WriteRune('}')

	return buf.Bytes(), nil
}
