package fieldnavigator

import "github.com/vinicius-lino-figueiredo/godm/domain"

// ListGetSetter is a [domain.GetSetter] that can read and write a specific
// index in a wire list.
type ListGetSetter struct {
	List  []any
	Index int
}

// NewGetSetterWithArrayIndex returns a new implementation of
// [domain.GetSetter] that will represent a value from a wire list.
func NewGetSetterWithArrayIndex(list []any, index int) domain.GetSetter {
	return &ListGetSetter{List: list, Index: index}
}

func (l *ListGetSetter) inRange() bool {
	return l.Index >= 0 && l.Index < len(l.List)
}

// Get implements [domain.GetSetter].
func (l *ListGetSetter) Get() (value any, defined bool) {
	if l.inRange() {
		return l.List[l.Index], true
	}
	return nil, false
}

// Set implements [domain.GetSetter].
func (l *ListGetSetter) Set(value any) {
	if l.inRange() {
		l.List[l.Index] = value
	}
}

// Unset implements [domain.GetSetter]. List items cannot be removed without
// shifting the others, so the item becomes nil.
func (l *ListGetSetter) Unset() {
	if l.inRange() {
		l.List[l.Index] = nil
	}
}

// DocGetSetter is a [domain.GetSetter] that can read and write a key of a
// wire document.
type DocGetSetter struct {
	Doc domain.M
	Key string
}

// NewGetSetterWithDoc returns a new implementation of [domain.GetSetter] that
// will represent a value from a wire document.
func NewGetSetterWithDoc(doc domain.M, key string) domain.GetSetter {
	return &DocGetSetter{Doc: doc, Key: key}
}

// Get implements [domain.GetSetter].
func (d *DocGetSetter) Get() (value any, defined bool) {
	value, defined = d.Doc[d.Key]
	return
}

// Set implements [domain.GetSetter].
func (d *DocGetSetter) Set(value any) {
	d.Doc[d.Key] = value
}

// Unset implements [domain.GetSetter].
func (d *DocGetSetter) Unset() {
	delete(d.Doc, d.Key)
}

// EmptyGetSetter is the address of an undefined value. Writes are no-op.
type EmptyGetSetter struct{}

// NewGetSetterEmpty returns a new [domain.GetSetter] of an undefined value.
func NewGetSetterEmpty() domain.GetSetter {
	return EmptyGetSetter{}
}

// Get implements [domain.GetSetter].
func (EmptyGetSetter) Get() (any, bool) { return nil, false }

// Set implements [domain.GetSetter].
func (EmptyGetSetter) Set(any) {}

// Unset implements [domain.GetSetter].
func (EmptyGetSetter) Unset() {}
