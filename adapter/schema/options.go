package schema

// FieldOption configures a [Field].
type FieldOption func(*Field)

// WithWireName sets the name the field has in wire documents.
func WithWireName(name string) FieldOption {
	return func(f *Field) {
		f.wireName = name
	}
}

// WithRequired makes validation reject empty values.
func WithRequired() FieldOption {
	return func(f *Field) {
		f.required = true
	}
}

// WithDefault sets a value assigned to new records missing the field. Mutable
// values such as maps or slices should use [WithDefaultFunc] instead.
func WithDefault(v any) FieldOption {
	return func(f *Field) {
		f.dflt = v
		f.hasDefault = true
	}
}

// WithDefaultFunc sets a factory called for every new record missing the
// field.
func WithDefaultFunc(fn func() any) FieldOption {
	return func(f *Field) {
		f.defaultFunc = fn
	}
}

// WithUnique asks for a unique index on the field.
func WithUnique() FieldOption {
	return func(f *Field) {
		f.unique = true
	}
}

// WithSparse makes the index of the field sparse.
func WithSparse() FieldOption {
	return func(f *Field) {
		f.sparse = true
	}
}

// Option configures a [Schema] being declared.
type Option func(*Schema)

// WithCollection sets the collection name. It defaults to the schema name.
func WithCollection(name string) Option {
	return func(s *Schema) {
		s.collection = name
	}
}

// WithFields appends own fields, in declaration order.
func WithFields(fields ...*Field) Option {
	return func(s *Schema) {
		s.own = append(s.own, fields...)
	}
}

// WithBases sets the schemas whose fields are inherited.
func WithBases(bases ...*Schema) Option {
	return func(s *Schema) {
		s.bases = append(s.bases, bases...)
	}
}

// WithLazy sets whether references must be loaded explicitly. Schemas are
// lazy by default.
func WithLazy(lazy bool) Option {
	return func(s *Schema) {
		s.lazy = lazy
	}
}

// WithOpen sets whether undeclared keys become dynamic fields instead of being
// rejected. Schemas are closed by default.
func WithOpen(open bool) Option {
	return func(s *Schema) {
		s.open = open
	}
}
