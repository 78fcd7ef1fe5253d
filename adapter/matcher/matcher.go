// Package matcher evaluates wire filters against wire documents for the
// in-memory driver. The filter grammar is the one the document store accepts
// and that the query package emits.
package matcher

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/vinicius-lino-figueiredo/godm/adapter/comparer"
	"github.com/vinicius-lino-figueiredo/godm/adapter/fieldnavigator"
	"github.com/vinicius-lino-figueiredo/godm/domain"
	"github.com/vinicius-lino-figueiredo/godm/pkg/structure"
)

// docPred reports whether a whole document matches.
type docPred func(domain.M) (bool, error)

// fieldPred reports whether the values reached by a path match.
type fieldPred func([]domain.Getter) (bool, error)

// Matcher implements [domain.Matcher].
type Matcher struct {
	comparer       domain.Comparer
	fieldNavigator domain.FieldNavigator
	pred           docPred
}

// NewMatcher returns a new implementation of domain.Matcher. Until
// [Matcher.SetQuery] is called every document matches.
func NewMatcher(options ...Option) domain.Matcher {
	m := &Matcher{
		comparer:       comparer.NewComparer(),
		fieldNavigator: fieldnavigator.NewFieldNavigator(),
	}
	for _, option := range options {
		option(m)
	}
	return m
}

// SetQuery implements [domain.Matcher]. The whole filter is checked here, so
// an unknown operator is reported even if Match would never reach it.
func (m *Matcher) SetQuery(filter domain.M) error {
	pred, err := m.compileDoc(filter)
	if err != nil {
		return err
	}
	m.pred = pred
	return nil
}

// Match implements [domain.Matcher].
func (m *Matcher) Match(doc domain.M) (bool, error) {
	if m.pred == nil {
		return true, nil
	}
	return m.pred(doc)
}

func (m *Matcher) invalid(filter string, reason string, args ...any) error {
	return domain.ErrInvalidFilter{Filter: filter, Reason: fmt.Sprintf(reason, args...)}
}

func (m *Matcher) compileDoc(filter domain.M) (docPred, error) {
	preds := make([]docPred, 0, len(filter))
	for key, value := range filter {
		var pred docPred
		var err error
		switch key {
		case "$and", "$or", "$nor":
			pred, err = m.compileLogic(key, value)
		default:
			if strings.HasPrefix(key, "$") {
				return nil, m.invalid(key, "unknown top level operator")
			}
			pred, err = m.compileField(key, value)
		}
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return func(doc domain.M) (bool, error) {
		for _, pred := range preds {
			matches, err := pred(doc)
			if err != nil || !matches {
				return false, err
			}
		}
		return true, nil
	}, nil
}

func (m *Matcher) compileLogic(op string, value any) (docPred, error) {
	items, ok := structure.List(value)
	if !ok || len(items) == 0 {
		return nil, m.invalid(op, "expects a non-empty list")
	}
	preds := make([]docPred, len(items))
	for n, item := range items {
		sub, ok := item.(domain.M)
		if !ok {
			return nil, m.invalid(op, "items must be documents, got %T", item)
		}
		pred, err := m.compileDoc(sub)
		if err != nil {
			return nil, err
		}
		preds[n] = pred
	}
	return func(doc domain.M) (bool, error) {
		for _, pred := range preds {
			matches, err := pred(doc)
			if err != nil {
				return false, err
			}
			switch {
			case op == "$and" && !matches:
				return false, nil
			case op == "$or" && matches:
				return true, nil
			case op == "$nor" && matches:
				return false, nil
			}
		}
		return op != "$or", nil
	}, nil
}

func (m *Matcher) compileField(key string, value any) (docPred, error) {
	addr, err := m.fieldNavigator.GetAddress(key)
	if err != nil {
		return nil, err
	}
	var pred fieldPred
	if ops, ok, err := m.operatorDoc(key, value); err != nil {
		return nil, err
	} else if ok {
		pred, err = m.compileOps(key, ops)
		if err != nil {
			return nil, err
		}
	} else {
		pred = m.eq(value)
	}
	return func(doc domain.M) (bool, error) {
		fields, _, err := m.fieldNavigator.GetField(doc, addr...)
		if err != nil {
			return false, err
		}
		getters := make([]domain.Getter, len(fields))
		for n, f := range fields {
			getters[n] = f
		}
		return pred(getters)
	}, nil
}

// operatorDoc reports whether value is a document of operators. Operators
// and plain fields cannot be mixed.
func (m *Matcher) operatorDoc(key string, value any) (domain.M, bool, error) {
	doc, ok := value.(domain.M)
	if !ok || len(doc) == 0 {
		return nil, false, nil
	}
	dollar := 0
	for k := range doc {
		if strings.HasPrefix(k, "$") {
			dollar++
		}
	}
	switch dollar {
	case 0:
		return nil, false, nil
	case len(doc):
		return doc, true, nil
	default:
		return nil, false, m.invalid(key, "cannot mix operators and fields")
	}
}

func (m *Matcher) compileOps(key string, ops domain.M) (fieldPred, error) {
	preds := make([]fieldPred, 0, len(ops))
	for op, arg := range ops {
		var pred fieldPred
		var err error
		switch op {
		case "$eq":
			pred = m.eq(arg)
		case "$ne":
			pred = m.not(m.eq(arg))
		case "$gt", "$gte", "$lt", "$lte":
			pred = m.rangeOp(op, arg)
		case "$in", "$nin":
			items, ok := structure.List(arg)
			if !ok {
				return nil, m.invalid(key, "%s expects a list, got %T", op, arg)
			}
			pred, err = m.in(items)
			if op == "$nin" && err == nil {
				pred = m.not(pred)
			}
		case "$all":
			items, ok := structure.List(arg)
			if !ok {
				return nil, m.invalid(key, "$all expects a list, got %T", arg)
			}
			pred = m.all(items)
		case "$exists":
			pred = m.exists(m.truthy(arg))
		case "$regex":
			var rgx *regexp.Regexp
			rgx, err = m.regexp(key, arg, ops["$options"])
			pred = m.regex(rgx)
		case "$options":
			if _, ok := ops["$regex"]; !ok {
				return nil, m.invalid(key, "$options without $regex")
			}
			continue
		case "$not":
			pred, err = m.compileNot(key, arg)
		case "$size":
			size, ok := structure.AsInt64(arg)
			if !ok {
				return nil, m.invalid(key, "$size expects an integer, got %v", arg)
			}
			pred = m.size(int(size))
		case "$elemMatch":
			pred, err = m.compileElemMatch(key, arg)
		default:
			return nil, m.invalid(key, "unknown operator %q", op)
		}
		if err != nil {
			return nil, err
		}
		preds = append(preds, pred)
	}
	return func(fields []domain.Getter) (bool, error) {
		for _, pred := range preds {
			matches, err := pred(fields)
			if err != nil || !matches {
				return false, err
			}
		}
		return true, nil
	}, nil
}

func (m *Matcher) compileNot(key string, arg any) (fieldPred, error) {
	switch t := arg.(type) {
	case *regexp.Regexp:
		return m.not(m.regex(t)), nil
	case domain.M:
		ops, ok, err := m.operatorDoc(key, t)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, m.invalid(key, "$not expects operators")
		}
		pred, err := m.compileOps(key, ops)
		if err != nil {
			return nil, err
		}
		return m.not(pred), nil
	default:
		return nil, m.invalid(key, "$not expects a document or a regular expression, got %T", arg)
	}
}

func (m *Matcher) compileElemMatch(key string, arg any) (fieldPred, error) {
	doc, ok := arg.(domain.M)
	if !ok {
		return nil, m.invalid(key, "$elemMatch expects a document, got %T", arg)
	}
	var itemPred func(any) (bool, error)
	if ops, isOps, err := m.operatorDoc(key, doc); err != nil {
		return nil, err
	} else if isOps {
		pred, err := m.compileOps(key, ops)
		if err != nil {
			return nil, err
		}
		itemPred = func(item any) (bool, error) {
			return pred([]domain.Getter{value{item}})
		}
	} else {
		pred, err := m.compileDoc(doc)
		if err != nil {
			return nil, err
		}
		itemPred = func(item any) (bool, error) {
			sub, ok := item.(domain.M)
			if !ok {
				return false, nil
			}
			return pred(sub)
		}
	}
	return func(fields []domain.Getter) (bool, error) {
		for _, f := range fields {
			v, _ := f.Get()
			list, ok := v.([]any)
			if !ok {
				continue
			}
			for _, item := range list {
				matches, err := itemPred(item)
				if err != nil || matches {
					return matches, err
				}
			}
		}
		return false, nil
	}, nil
}

// value is a defined value outside any document.
type value [1]any

// Get implements [domain.Getter].
func (v value) Get() (any, bool) { return v[0], true }

// candidates lists the values a condition is checked against: every defined
// value, and the items of the ones that are lists.
func candidates(fields []domain.Getter, withLists bool) []any {
	var res []any
	for _, f := range fields {
		v, defined := f.Get()
		if !defined {
			continue
		}
		list, ok := v.([]any)
		if !ok {
			res = append(res, v)
			continue
		}
		if withLists {
			res = append(res, v)
		}
		res = append(res, list...)
	}
	return res
}

func (m *Matcher) not(pred fieldPred) fieldPred {
	return func(fields []domain.Getter) (bool, error) {
		matches, err := pred(fields)
		return !matches && err == nil, err
	}
}

// eq matches when a value, or an item of a list value, is equal to arg. A
// nil arg also matches undefined values.
func (m *Matcher) eq(arg any) fieldPred {
	if rgx, ok := arg.(*regexp.Regexp); ok {
		return m.regex(rgx)
	}
	return func(fields []domain.Getter) (bool, error) {
		if arg == nil {
			for _, f := range fields {
				if _, defined := f.Get(); !defined {
					return true, nil
				}
			}
		}
		for _, v := range candidates(fields, true) {
			c, err := m.comparer.Compare(v, arg)
			if err != nil {
				return false, err
			}
			if c == 0 {
				return true, nil
			}
		}
		return false, nil
	}
}

func (m *Matcher) rangeOp(op string, arg any) fieldPred {
	return func(fields []domain.Getter) (bool, error) {
		for _, v := range candidates(fields, false) {
			if !m.comparer.Comparable(v, arg) {
				continue
			}
			c, err := m.comparer.Compare(v, arg)
			if err != nil {
				return false, err
			}
			var matches bool
			switch op {
			case "$gt":
				matches = c > 0
			case "$gte":
				matches = c >= 0
			case "$lt":
				matches = c < 0
			default:
				matches = c <= 0
			}
			if matches {
				return true, nil
			}
		}
		return false, nil
	}
}

func (m *Matcher) in(items []any) (fieldPred, error) {
	preds := make([]fieldPred, len(items))
	for n, item := range items {
		preds[n] = m.eq(item)
	}
	return func(fields []domain.Getter) (bool, error) {
		for _, pred := range preds {
			matches, err := pred(fields)
			if err != nil || matches {
				return matches, err
			}
		}
		return false, nil
	}, nil
}

// all matches lists holding every item. An empty $all matches nothing.
func (m *Matcher) all(items []any) fieldPred {
	preds := make([]fieldPred, len(items))
	for n, item := range items {
		preds[n] = m.eq(item)
	}
	return func(fields []domain.Getter) (bool, error) {
		if len(preds) == 0 {
			return false, nil
		}
		for _, pred := range preds {
			matches, err := pred(fields)
			if err != nil || !matches {
				return false, err
			}
		}
		return true, nil
	}
}

func (m *Matcher) exists(want bool) fieldPred {
	return func(fields []domain.Getter) (bool, error) {
		for _, f := range fields {
			if _, defined := f.Get(); defined {
				return want, nil
			}
		}
		return !want, nil
	}
}

func (m *Matcher) truthy(v any) bool {
	switch t := v.(type) {
	case nil:
		return false
	case bool:
		return t
	}
	if f, ok := structure.AsFloat64(v); ok {
		return f != 0
	}
	return true
}

// regexp builds a regular expression from a $regex argument. Options are the
// letters i, m and s.
func (m *Matcher) regexp(key string, arg any, options any) (*regexp.Regexp, error) {
	if rgx, ok := arg.(*regexp.Regexp); ok && options == nil {
		return rgx, nil
	}
	var pattern string
	switch t := arg.(type) {
	case string:
		pattern = t
	case *regexp.Regexp:
		pattern = t.String()
	default:
		return nil, m.invalid(key, "$regex expects a string, got %T", arg)
	}
	if options != nil {
		opts, ok := options.(string)
		if !ok {
			return nil, m.invalid(key, "$options expects a string, got %T", options)
		}
		for _, o := range opts {
			if !strings.ContainsRune("ims", o) {
				return nil, m.invalid(key, "unsupported regex option %q", o)
			}
		}
		if opts != "" {
			pattern = "(?" + opts + ")" + pattern
		}
	}
	rgx, err := regexp.Compile(pattern)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", m.invalid(key, "bad regular expression"), err)
	}
	return rgx, nil
}

func (m *Matcher) regex(rgx *regexp.Regexp) fieldPred {
	return func(fields []domain.Getter) (bool, error) {
		for _, v := range candidates(fields, false) {
			if str, ok := v.(string); ok && rgx.MatchString(str) {
				return true, nil
			}
		}
		return false, nil
	}
}

func (m *Matcher) size(n int) fieldPred {
	return func(fields []domain.Getter) (bool, error) {
		for _, f := range fields {
			v, _ := f.Get()
			if list, ok := v.([]any); ok && len(list) == n {
				return true, nil
			}
		}
		return false, nil
	}
}
