// Package modifier applies wire update documents for the in-memory driver.
package modifier

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/adapter/matcher"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

type modFunc func(doc domain.M, addr []string, arg any) error

// Modifier implements [domain.Modifier].
type Modifier struct {
	comp           domain.Comparer
	fieldNavigator domain.FieldNavigator
	mods           map[string]modFunc
}

// NewModifier returns a new implementation of [domain.Modifier].
func NewModifier(options ...Option) domain.Modifier {
	m := &Modifier{
		comp:           comparer.NewComparer(),
		fieldNavigator: fieldnavigator.NewFieldNavigator(),
	}
	for _, option := range options {
		option(m)
	}

	m.mods = map[string]modFunc{
		"$set":      m.set,
		"$unset":    m.unset,
		"$inc":      m.inc,
		"$push":     m.push,
		"$addToSet": m.addToSet,
		"$pop":      m.pop,
		"$pull":     m.pull,
		"$max":      m.minMax(1),
		"$min":      m.minMax(-1),
	}
	return m
}

func invalid(key string, reason string, args ...any) error {
	return domain.ErrInvalidFilter{Filter: key, Reason: fmt.Sprintf(reason, args...)}
}

// Modify implements [domain.Modifier]. An update without operators replaces
// the whole document, keeping its _id. The _id itself can never change.
func (m *Modifier) Modify(doc domain.M, update domain.M) (domain.M, error) {
	dollar := 0
	for k := range update {
		if strings.HasPrefix(k, "$") {
			dollar++
		}
	}
	var res domain.M
	var err error
	switch dollar {
	case 0:
		res = structure.CloneDoc(update)
		if res == nil {
			res = domain.M{}
		}
		if id, ok := doc[domain.IDField]; ok {
			if newID, ok := res[domain.IDField]; ok {
				if err := m.sameID(id, newID); err != nil {
					return nil, err
				}
			}
			res[domain.IDField] = id
		}
	case len(update):
		res, err = m.dollarMod(doc, update)
	default:
		return nil, invalid("update", "cannot mix modifiers and normal fields")
	}
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (m *Modifier) sameID(a, b any) error {
	c, err := m.comp.Compare(a, b)
	if err != nil {
		return err
	}
	if c != 0 {
		return invalid(domain.IDField, "cannot change a document's _id")
	}
	return nil
}

func (m *Modifier) dollarMod(doc domain.M, update domain.M) (domain.M, error) {
	for _, name := range slices.Sorted(maps.Keys(update)) {
		if _, ok := m.mods[name]; !ok {
			return nil, invalid(name, "unknown modifier")
		}
		if _, ok := update[name].(domain.M); !ok {
			return nil, invalid(name, "argument must be a document, got %T", update[name])
		}
	}

	res := structure.CloneDoc(doc)
	if res == nil {
		res = domain.M{}
	}
	for _, name := range slices.Sorted(maps.Keys(update)) {
		args := update[name].(domain.M)
		for _, key := range slices.Sorted(maps.Keys(args)) {
			addr, err := m.fieldNavigator.GetAddress(key)
			if err != nil {
				return nil, err
			}
			if err := m.mods[name](res, addr, structure.Clone(args[key])); err != nil {
				return nil, err
			}
		}
	}

	if id, ok := doc[domain.IDField]; ok {
		if err := m.sameID(id, res[domain.IDField]); err != nil {
			return nil, err
		}
	}
	return res, nil
}

func (m *Modifier) set(doc domain.M, addr []string, arg any) error {
	fields, err := m.fieldNavigator.EnsureField(doc, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		field.Set(arg)
	}
	return nil
}

func (m *Modifier) unset(doc domain.M, addr []string, _ any) error {
	fields, _, err := m.fieldNavigator.GetField(doc, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		if _, defined := field.Get(); defined {
			field.Unset()
		}
	}
	return nil
}

func isInteger(v any) bool {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint, uint8, uint16, uint32:
		return true
	default:
		return false
	}
}

// inc adds arg to the value at addr. Two integers add up to an int64,
// anything else to a float64. A missing field counts as zero.
func (m *Modifier) inc(doc domain.M, addr []string, arg any) error {
	key := strings.Join(addr, ".")
	if !structure.IsNumber(arg) {
		return invalid(key, "$inc expects a number, got %T", arg)
	}
	fields, err := m.fieldNavigator.EnsureField(doc, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		value, _ := field.Get()
		if value == nil {
			value = 0
		}
		if !structure.IsNumber(value) {
			return invalid(key, "cannot apply $inc to a value of type %T", value)
		}
		if isInteger(value) && isInteger(arg) {
			a, _ := structure.AsInt64(value)
			b, _ := structure.AsInt64(arg)
			field.Set(a + b)
			continue
		}
		a, _ := structure.AsFloat64(value)
		b, _ := structure.AsFloat64(arg)
		field.Set(a + b)
	}
	return nil
}

// list returns the list at field. A missing or nil value is an empty list.
func (m *Modifier) list(key string, op string, field domain.GetSetter) ([]any, error) {
	value, _ := field.Get()
	if value == nil {
		return []any{}, nil
	}
	list, ok := value.([]any)
	if !ok {
		return nil, invalid(key, "cannot apply %s to a value of type %T", op, value)
	}
	return list, nil
}

// each reads {"$each": [...], "$slice": n} arguments. Other arguments are a
// single item.
func (m *Modifier) each(key string, arg any, allowSlice bool) (items []any, slice *int, err error) {
	d, ok := arg.(domain.M)
	if !ok {
		return []any{arg}, nil, nil
	}
	eachArg, hasEach := d["$each"]
	if !hasEach {
		return []any{arg}, nil, nil
	}
	if items, ok = structure.List(eachArg); !ok {
		return nil, nil, invalid(key, "$each requires a list")
	}
	used := 1
	if s, ok := d["$slice"]; ok {
		if !allowSlice {
			return nil, nil, invalid(key, "$slice cannot be used here")
		}
		n, ok := structure.AsInt64(s)
		if !ok {
			return nil, nil, invalid(key, "$slice requires an integer")
		}
		i := int(n)
		slice = &i
		used++
	}
	if len(d) > used {
		return nil, nil, invalid(key, "unexpected fields along with $each")
	}
	return items, slice, nil
}

func (m *Modifier) push(doc domain.M, addr []string, arg any) error {
	key := strings.Join(addr, ".")
	items, slice, err := m.each(key, arg, true)
	if err != nil {
		return err
	}
	fields, err := m.fieldNavigator.EnsureField(doc, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		list, err := m.list(key, "$push", field)
		if err != nil {
			return err
		}
		list = append(list, items...)
		if slice != nil {
			if *slice >= 0 {
				list = list[:min(*slice, len(list))]
			} else {
				list = list[max(0, len(list)+*slice):]
			}
		}
		field.Set(list)
	}
	return nil
}

func (m *Modifier) addToSet(doc domain.M, addr []string, arg any) error {
	key := strings.Join(addr, ".")
	items, _, err := m.each(key, arg, false)
	if err != nil {
		return err
	}
	fields, err := m.fieldNavigator.EnsureField(doc, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		list, err := m.list(key, "$addToSet", field)
		if err != nil {
			return err
		}
	items:
		for _, item := range items {
			for _, existing := range list {
				c, err := m.comp.Compare(item, existing)
				if err != nil {
					return err
				}
				if c == 0 {
					continue items
				}
			}
			list = append(list, item)
		}
		field.Set(list)
	}
	return nil
}

// pop removes the last item for 1 and the first one for -1.
func (m *Modifier) pop(doc domain.M, addr []string, arg any) error {
	key := strings.Join(addr, ".")
	n, ok := structure.AsInt64(arg)
	if !ok || (n != 1 && n != -1) {
		return invalid(key, "$pop expects 1 or -1, got %v", arg)
	}
	fields, _, err := m.fieldNavigator.GetField(doc, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		if _, defined := field.Get(); !defined {
			continue
		}
		list, err := m.list(key, "$pop", field)
		if err != nil {
			return err
		}
		if len(list) == 0 {
			continue
		}
		if n > 0 {
			field.Set(list[:len(list)-1])
		} else {
			field.Set(list[1:])
		}
	}
	return nil
}

// pull removes the items equal to arg, or matching it when arg is a
// condition.
func (m *Modifier) pull(doc domain.M, addr []string, arg any) error {
	key := strings.Join(addr, ".")
	mtchr := matcher.NewMatcher(matcher.WithComparer(m.comp), matcher.WithFieldNavigator(m.fieldNavigator))
	// items are matched as the "v" field of a wrapper document
	if err := mtchr.SetQuery(m.pullQuery(arg)); err != nil {
		return err
	}

	fields, _, err := m.fieldNavigator.GetField(doc, addr...)
	if err != nil {
		return err
	}
	for _, field := range fields {
		if _, defined := field.Get(); !defined {
			continue
		}
		list, err := m.list(key, "$pull", field)
		if err != nil {
			return err
		}
		res := make([]any, 0, len(list))
		for _, item := range list {
			matches, err := mtchr.Match(domain.M{"v": item})
			if err != nil {
				return err
			}
			if !matches {
				res = append(res, item)
			}
		}
		field.Set(res)
	}
	return nil
}

func (m *Modifier) pullQuery(arg any) domain.M {
	d, ok := arg.(domain.M)
	if !ok {
		return domain.M{"v": arg}
	}
	for k := range d {
		if strings.HasPrefix(k, "$") {
			return domain.M{"v": d}
		}
	}
	// a plain document is a condition over the fields of the items
	query := make(domain.M, len(d))
	for k, v := range d {
		query["v."+k] = v
	}
	return query
}

// minMax keeps the greater value for sign 1 and the lower one for sign -1.
func (m *Modifier) minMax(sign int) modFunc {
	return func(doc domain.M, addr []string, arg any) error {
		found, _, err := m.fieldNavigator.GetField(doc, addr...)
		if err != nil {
			return err
		}
		_, defined := found[0].Get()
		fields, err := m.fieldNavigator.EnsureField(doc, addr...)
		if err != nil {
			return err
		}
		for _, field := range fields {
			current, _ := field.Get()
			if !defined {
				field.Set(arg)
				continue
			}
			c, err := m.comp.Compare(arg, current)
			if err != nil {
				return err
			}
			if c*sign > 0 {
				field.Set(arg)
			}
		}
		return nil
	}
}
