package field

import (
	"encoding/hex"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

var validate = validator.New()

// Email implements [domain.FieldType] for e-mail addresses.
type Email struct {
	String
}

// NewEmail returns an [Email] field type.
func NewEmail() *Email { return &Email{} }

// Validate implements [domain.FieldType].
func (e *Email) Validate(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && validate.Var(s, "required,email") == nil
}

// URL implements [domain.FieldType] for http and https URLs.
type URL struct {
	String
}

// NewURL returns an [URL] field type.
func NewURL() *URL { return &URL{} }

// Validate implements [domain.FieldType].
func (u *URL) Validate(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok || validate.Var(s, "required,url") != nil {
		return false
	}
	lower := strings.ToLower(s)
	return strings.HasPrefix(lower, "http://") || strings.HasPrefix(lower, "https://")
}

// UUID implements [domain.FieldType] for UUIDs. Both [uuid.UUID] values and
// strings are accepted; the canonical string is stored and decoded back into a
// [uuid.UUID].
type UUID struct {
	scalar
}

// NewUUID returns an [UUID] field type.
func NewUUID() *UUID { return &UUID{} }

// IsEmpty implements [domain.FieldType].
func (u *UUID) IsEmpty(v any) bool { return v == nil || v == "" }

// Validate implements [domain.FieldType].
func (u *UUID) Validate(v any) bool {
	if v == nil {
		return true
	}
	_, ok := toUUID(v)
	return ok
}

// Encode implements [domain.FieldType].
func (u *UUID) Encode(v any) (any, error) {
	if v == nil {
		return nil, nil
	}
	id, ok := toUUID(v)
	if !ok {
		return nil, domain.ErrEncode{Value: v, Type: "uuid"}
	}
	return id.String(), nil
}

// Decode implements [domain.FieldType].
func (u *UUID) Decode(w any) (any, error) {
	if w == nil {
		return nil, nil
	}
	id, ok := toUUID(w)
	if !ok {
		return nil, domain.ErrDecode{Source: w, Target: uuid.UUID{}}
	}
	return id, nil
}

func toUUID(v any) (uuid.UUID, bool) {
	switch t := v.(type) {
	case uuid.UUID:
		return t, true
	case string:
		id, err := uuid.Parse(t)
		return id, err == nil
	case []byte:
		id, err := uuid.FromBytes(t)
		return id, err == nil
	default:
		return uuid.UUID{}, false
	}
}

// Hexer is implemented by native object id values of document store drivers.
type Hexer interface {
	Hex() string
}

// ObjectID implements [domain.FieldType] for object ids, given either as 24
// hexadecimal characters or as a driver value exposing Hex. Values are stored
// as given.
type ObjectID struct {
	scalar
}

// NewObjectID returns an [ObjectID] field type.
func NewObjectID() *ObjectID { return &ObjectID{} }

// Validate implements [domain.FieldType].
func (o *ObjectID) Validate(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case string:
		return IsObjectIDHex(t)
	case Hexer:
		return IsObjectIDHex(t.Hex())
	default:
		return false
	}
}

// Encode implements [domain.FieldType].
func (o *ObjectID) Encode(v any) (any, error) {
	if !o.Validate(v) {
		return nil, domain.ErrEncode{Value: v, Type: "object id"}
	}
	return v, nil
}

// Decode implements [domain.FieldType].
func (o *ObjectID) Decode(w any) (any, error) {
	return w, nil
}

// IsObjectIDHex reports whether s holds 24 hexadecimal characters.
func IsObjectIDHex(s string) bool {
	if len(s) != 24 {
		return false
	}
	_, err := hex.DecodeString(s)
	return err == nil
}
