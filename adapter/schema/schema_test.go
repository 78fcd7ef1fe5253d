package schema_test

import (
	"testing"

	"github.com/stretchr/testify/suite"
	"github.com/vinicius-lino-figueiredo/godm/adapter/field"
	"github.com/vinicius-lino-figueiredo/godm/adapter/schema"
	"github.com/vinicius-lino-figueiredo/godm/domain"
)

type SchemaTestSuite struct {
	suite.Suite
	reg *schema.Registry
}

func (s *SchemaTestSuite) SetupTest() {
	s.reg = schema.NewRegistry()
}

func names(fields []*schema.Field) []string {
	res := make([]string, len(fields))
	for n, f := range fields {
		res[n] = f.Name()
	}
	return res
}

func (s *SchemaTestSuite) TestDeclarationOrder() {
	user, err := s.reg.Declare("User",
		schema.WithFields(
			schema.NewField("name", field.NewString()),
			schema.NewField("email", field.NewEmail(), schema.WithWireName("mail")),
			schema.NewField("age", field.NewInt()),
		),
	)
	s.Require().NoError(err)

	s.Equal("User", user.Name())
	s.Equal("User", user.Collection())
	s.True(user.Lazy())
	s.False(user.Open())

	fields := user.Fields()
	s.Equal([]string{"name", "email", "age"}, names(fields))
	s.Equal("mail", fields[1].WireName())
	s.Less(fields[0].Order(), fields[1].Order())
	s.Less(fields[1].Order(), fields[2].Order())

	post, err := s.reg.Declare("Post", schema.WithFields(schema.NewField("title", field.NewString())))
	s.Require().NoError(err)
	s.Greater(post.Fields()[0].Order(), fields[2].Order())

	f, ok := user.Field("email")
	s.True(ok)
	s.Equal(domain.KindScalar, f.Kind())
	f, ok = user.FieldByWire("mail")
	s.True(ok)
	s.Equal("email", f.Name())
	_, ok = user.Field("mail")
	s.False(ok)
}

func (s *SchemaTestSuite) TestDeclareIsIdempotent() {
	fields := func() schema.Option {
		return schema.WithFields(
			schema.NewField("name", field.NewString(field.WithMaxLength(10)), schema.WithRequired()),
			schema.NewField("tags", field.NewList(field.NewString())),
		)
	}
	a, err := s.reg.Declare("User", schema.WithCollection("users"), fields())
	s.Require().NoError(err)
	b, err := s.reg.Declare("User", schema.WithCollection("users"), fields())
	s.Require().NoError(err)
	s.Same(a, b)

	got, ok := s.reg.Get("User")
	s.True(ok)
	s.Same(a, got)
	_, ok = s.reg.Get("Nope")
	s.False(ok)
}

func (s *SchemaTestSuite) TestRedeclareDifferently() {
	a := schema.NewField("a", field.NewString())
	doc, err := s.reg.Declare("Doc", schema.WithCollection("docs"), schema.WithFields(a))
	s.Require().NoError(err)

	redeclarations := [][]schema.Option{
		{schema.WithCollection("other"), schema.WithFields(a)},
		{schema.WithCollection("docs")},
		{schema.WithCollection("docs"), schema.WithFields(a, schema.NewField("b", field.NewInt(), schema.WithWireName("a")))},
		{schema.WithCollection("docs"), schema.WithFields(schema.NewField("a", field.NewInt()))},
		{schema.WithCollection("docs"), schema.WithFields(schema.NewField("a", field.NewString(), schema.WithUnique()))},
		{schema.WithCollection("docs"), schema.WithFields(a), schema.WithOpen(true)},
	}
	for n, options := range redeclarations {
		_, err := s.reg.Declare("Doc", options...)
		var target domain.ErrSchema
		s.Require().ErrorAs(err, &target, "redeclaration %d", n)
		s.Equal("Doc", target.Schema)
		s.Equal("schema already declared", target.Reason)
	}

	got, ok := s.reg.Get("Doc")
	s.True(ok)
	s.Same(doc, got)
	s.Equal("docs", got.Collection())
	s.Equal([]string{"a"}, names(got.Fields()))
}

func (s *SchemaTestSuite) TestDuplicateWireName() {
	_, err := s.reg.Declare("User", schema.WithFields(
		schema.NewField("name", field.NewString()),
		schema.NewField("other", field.NewString(), schema.WithWireName("name")),
	))
	var errSchema domain.ErrSchema
	s.ErrorAs(err, &errSchema)
	s.Equal([]string{"name"}, errSchema.Fields)
	_, ok := s.reg.Get("User")
	s.False(ok)
}

func (s *SchemaTestSuite) TestInheritedDuplicate() {
	base := s.reg.MustDeclare("Base", schema.WithFields(
		schema.NewField("name", field.NewString()),
	))
	_, err := s.reg.Declare("Child",
		schema.WithBases(base),
		schema.WithFields(schema.NewField("title", field.NewString(), schema.WithWireName("name"))),
	)
	s.ErrorAs(err, &domain.ErrSchema{})
}

func (s *SchemaTestSuite) TestInvalidDeclarations() {
	_, err := s.reg.Declare("")
	s.ErrorAs(err, &domain.ErrSchema{})
	_, err = s.reg.Declare("A", schema.WithFields(schema.NewField("a", nil)))
	s.ErrorAs(err, &domain.ErrSchema{})
	_, err = s.reg.Declare("B", schema.WithFields(schema.NewField("", field.NewString())))
	s.ErrorAs(err, &domain.ErrSchema{})
	_, err = s.reg.Declare("C", schema.WithFields(schema.NewField("x", field.NewString(), schema.WithWireName("_id"))))
	s.ErrorAs(err, &domain.ErrSchema{})
	s.Panics(func() {
		s.reg.MustDeclare("D", schema.WithFields(schema.NewField("a", nil)))
	})
}

func (s *SchemaTestSuite) TestInheritance() {
	a := s.reg.MustDeclare("A", schema.WithFields(schema.NewField("a", field.NewString())))
	b := s.reg.MustDeclare("B", schema.WithBases(a), schema.WithFields(schema.NewField("b", field.NewString())))
	c := s.reg.MustDeclare("C", schema.WithBases(a), schema.WithFields(schema.NewField("c", field.NewString())))
	d := s.reg.MustDeclare("D", schema.WithBases(b, c), schema.WithFields(schema.NewField("d", field.NewString())))

	s.Equal([]string{"a", "b", "c", "d"}, names(d.Fields()))
	s.Equal([]*schema.Schema{b, c}, d.Bases())
	s.True(d.IsA(a))
	s.True(d.IsA(d))
	s.False(a.IsA(d))
}

func (s *SchemaTestSuite) TestFieldOptions() {
	n := 0
	f := schema.NewField("tags", field.NewList(field.NewString()),
		schema.WithRequired(),
		schema.WithUnique(),
		schema.WithSparse(),
		schema.WithDefaultFunc(func() any { n++; return []any{} }),
	)
	s.True(f.Required())
	s.True(f.Unique())
	s.True(f.Sparse())
	v, ok := f.Default()
	s.True(ok)
	s.Equal([]any{}, v)
	_, _ = f.Default()
	s.Equal(2, n)

	it, ok := f.ItemType()
	s.True(ok)
	s.IsType(&field.String{}, it)

	g := schema.NewField("x", field.NewInt(), schema.WithDefault(int64(1)))
	v, ok = g.Default()
	s.True(ok)
	s.Equal(int64(1), v)
	_, ok = g.ItemType()
	s.False(ok)

	_, ok = schema.NewField("y", field.NewInt()).Default()
	s.False(ok)
}

func (s *SchemaTestSuite) TestIndexes() {
	user := s.reg.MustDeclare("User", schema.WithFields(
		schema.NewField("name", field.NewString()),
		schema.NewField("email", field.NewEmail(), schema.WithUnique(), schema.WithSparse(), schema.WithWireName("mail")),
	))
	s.Equal([]domain.IndexModel{{
		Name:   "mail_1",
		Keys:   domain.Sort{{Key: "mail", Order: domain.Ascending}},
		Unique: true,
		Sparse: true,
	}}, user.Indexes())
}

func (s *SchemaTestSuite) declareTree() *schema.Schema {
	category := s.reg.MustDeclare("Category", schema.WithFields(
		schema.NewField("name", field.NewString()),
	))
	emb := s.reg.MustDeclare("Embedded", schema.WithFields(
		schema.NewField("test", field.NewString(), schema.WithWireName("other")),
	))
	return s.reg.MustDeclare("Doc", schema.WithFields(
		schema.NewField("embedded", field.NewEmbedded(emb), schema.WithWireName("embedded_document")),
		schema.NewField("items", field.NewList(field.NewEmbedded(emb))),
		schema.NewField("numbers", field.NewList(field.NewInt())),
		schema.NewField("category", field.NewReference(category)),
		schema.NewField("extra", field.NewDynamic()),
		schema.NewField("name", field.NewString()),
	))
}

func (s *SchemaTestSuite) TestResolve() {
	doc := s.declareTree()

	p, err := doc.Resolve("embedded.test")
	s.Require().NoError(err)
	s.Equal("embedded_document.other", p.Wire)
	s.Equal("test", p.Field.Name())

	p, err = doc.Resolve("embedded_document.other")
	s.Require().NoError(err)
	s.Equal("embedded_document.other", p.Wire)

	p, err = doc.Resolve("items.test")
	s.Require().NoError(err)
	s.Equal("items.other", p.Wire)

	p, err = doc.Resolve("items.2.test")
	s.Require().NoError(err)
	s.Equal("items.2.other", p.Wire)

	p, err = doc.Resolve("numbers.0")
	s.Require().NoError(err)
	s.Equal("numbers.0", p.Wire)
	s.IsType(&field.Int{}, p.Type)
	s.Equal("numbers", p.Field.Name())

	p, err = doc.Resolve("id")
	s.Require().NoError(err)
	s.Equal("_id", p.Wire)
	s.Nil(p.Field)

	p, err = doc.Resolve("category.name")
	s.Require().NoError(err)
	s.Equal("category", p.Wire)
	s.Equal("name", p.Rest)
	s.Equal("category", p.Field.Name())

	p, err = doc.Resolve("extra.anything.deep")
	s.Require().NoError(err)
	s.Equal("extra.anything.deep", p.Wire)
	s.True(p.Dynamic)
	s.Nil(p.Field)
}

func (s *SchemaTestSuite) TestResolveErrors() {
	doc := s.declareTree()
	for _, path := range []string{"nope", "name.first", "numbers.x", "embedded.nope", "embedded..test", ""} {
		_, err := doc.Resolve(path)
		s.ErrorAs(err, &domain.ErrInvalidFilter{}, path)
	}
}

func (s *SchemaTestSuite) TestResolveOpen() {
	open := s.reg.MustDeclare("Open", schema.WithOpen(true), schema.WithFields(
		schema.NewField("name", field.NewString()),
	))
	p, err := open.Resolve("whatever.sub")
	s.Require().NoError(err)
	s.Equal("whatever.sub", p.Wire)
	s.True(p.Dynamic)
}

func TestSchemaTestSuite(t *testing.T) {
	suite.Run(t, new(SchemaTestSuite))
}
