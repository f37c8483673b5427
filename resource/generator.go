package resource

import (
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/introspect"
	"github.com/syssam/concerto/schema/field"
)

// Generate selects how a new instance is populated beyond its defaults.
type Generate uint8

const (
	// None leaves properties without a default unset.
	None Generate = iota
	// Empty fills them with empty values: "", zero numbers (moved into
	// their range), false, the factory clock, the first enum value, empty
	// arrays and placeholder relationships.
	Empty
	// Sample fills them with random sample data.
	Sample
)

// String implements fmt.Stringer.
func (g Generate) String() string {
	switch g {
	case Empty:
		return "empty"
	case Sample:
		return "sample"
	}
	return "none"
}

// sampleArrayLen is the length of generated sample arrays.
const sampleArrayLen = 3

// InstanceOption configures the creation of one instance.
type InstanceOption func(*instanceOptions)

type instanceOptions struct {
	generate Generate
	optional bool
}

// WithGenerate populates the properties of a new instance, and of the
// concepts nested in it, that have no default value.
func WithGenerate(g Generate) InstanceOption {
	return func(o *instanceOptions) { o.generate = g }
}

// WithOptionalFields makes WithGenerate populate optional properties too.
func WithOptionalFields() InstanceOption {
	return func(o *instanceOptions) { o.optional = true }
}

// WithSampleSeed makes Sample generation reproducible.
func WithSampleSeed(seed uint64) FactoryOption {
	return func(f *Factory) { f.seed = &seed }
}

func (f *Factory) initialize(r *Resource, opts []InstanceOption) error {
	applyDefaults(r)
	var o instanceOptions
	for _, opt := range opts {
		opt(&o)
	}
	if o.generate == None {
		return nil
	}
	g := &instanceGenerator{
		f:        f,
		values:   f.valuesFor(o.generate),
		optional: o.optional,
		stack:    []*Resource{r},
		seen:     []string{r.FullyQualifiedType()},
	}
	_, err := r.class.Accept(g, introspect.Parameters{})
	return err
}

func (f *Factory) valuesFor(g Generate) valueGenerator {
	if g == Empty {
		return emptyValues{now: f.now}
	}
	seed := rand.Uint64()
	if f.seed != nil {
		seed = *f.seed
	}
	return &sampleValues{now: f.now, rng: rand.New(rand.NewPCG(seed, seed>>1|1))}
}

// instanceGenerator fills the unset properties of the resource on top of
// its stack, creating nested concepts and relationships as it goes.
type instanceGenerator struct {
	f        *Factory
	values   valueGenerator
	optional bool
	stack    []*Resource
	seen     []string // types being generated, outermost first
}

// Visit implements introspect.Visitor.
func (g *instanceGenerator) Visit(node any, params introspect.Parameters) (any, error) {
	switch node := node.(type) {
	case *introspect.ClassDeclaration:
		return g.visitClass(node, params)
	case *introspect.Field:
		return g.visitField(node, params)
	case *introspect.Relationship:
		return g.visitRelationship(node)
	default:
		return nil, concerto.NewUnrecognisedTypeError(node)
	}
}

func (g *instanceGenerator) visitClass(cd *introspect.ClassDeclaration, params introspect.Parameters) (any, error) {
	r := g.stack[len(g.stack)-1]
	g.stack = g.stack[:len(g.stack)-1]
	for _, p := range cd.Properties() {
		if r.Has(p.Name()) || (p.IsOptional() && !g.optional) {
			continue
		}
		v, err := p.Accept(g, params)
		if err != nil {
			return nil, err
		}
		if v != nil {
			r.data[p.Name()] = v
		}
	}
	return r, nil
}

func (g *instanceGenerator) visitField(fd *introspect.Field, params introspect.Parameters) (any, error) {
	if !fd.IsArray() {
		return g.value(fd, params)
	}
	items := make([]any, 0, g.values.arrayLen())
	for range g.values.arrayLen() {
		v, err := g.value(fd, params)
		if err != nil {
			return nil, err
		}
		if v == nil {
			return nil, nil
		}
		items = append(items, v)
	}
	return items, nil
}

// value returns one value of the field type. A concept that is already
// being generated yields nil, which leaves the property unset.
func (g *instanceGenerator) value(fd *introspect.Field, params introspect.Parameters) (any, error) {
	if fd.IsPrimitive() {
		return g.values.primitive(fd), nil
	}
	cd, err := g.f.mm.Type(fd.FullyQualifiedTypeName())
	if err != nil {
		return nil, err
	}
	if cd.IsEnum() {
		return g.values.enum(cd.OwnProperties()), nil
	}
	if cd, err = concrete(cd); err != nil {
		return nil, err
	}
	if g.generating(cd.FullyQualifiedName()) {
		return nil, nil
	}
	id := ""
	if cd.IsIdentified() {
		id = g.values.identifier(cd.IdentifierFieldName())
	}
	nested := newResource(cd, id)
	applyDefaults(nested)
	g.stack = append(g.stack, nested)
	g.seen = append(g.seen, cd.FullyQualifiedName())
	defer func() { g.seen = g.seen[:len(g.seen)-1] }()
	return cd.Accept(g, params)
}

func (g *instanceGenerator) visitRelationship(rd *introspect.Relationship) (any, error) {
	cd, err := g.f.mm.Type(rd.FullyQualifiedTypeName())
	if err != nil {
		return nil, err
	}
	newRel := func() *Relationship {
		return &Relationship{Namespace: cd.Namespace(), Type: cd.Name(), ID: g.values.identifier(cd.IdentifierFieldName())}
	}
	if !rd.IsArray() {
		return newRel(), nil
	}
	items := make([]any, g.values.arrayLen())
	for i := range items {
		items[i] = newRel()
	}
	return items, nil
}

func (g *instanceGenerator) generating(fqn string) bool {
	for _, s := range g.seen {
		if s == fqn {
			return true
		}
	}
	return false
}

// concrete returns cd, or its first non-abstract subclass when cd is
// abstract.
func concrete(cd *introspect.ClassDeclaration) (*introspect.ClassDeclaration, error) {
	for _, d := range cd.AssignableClassDeclarations() {
		if !d.IsAbstract() {
			return d, nil
		}
	}
	return nil, violationf(cd.FullyQualifiedName(), "", "No concrete type extends %s", cd.FullyQualifiedName())
}

// valueGenerator supplies the leaf values of generated instances.
type valueGenerator interface {
	primitive(fd *introspect.Field) any
	enum(values []introspect.Property) string
	identifier(fieldName string) string
	arrayLen() int
}

type emptyValues struct {
	now func() time.Time
}

func (v emptyValues) primitive(fd *introspect.Field) any {
	switch t := fd.PrimitiveType(); t {
	case field.TypeString:
		return ""
	case field.TypeBoolean:
		return false
	case field.TypeDateTime:
		return v.now()
	default:
		lo, hi := bounds(fd, 0, 0)
		if t.Integral() {
			lo, hi = math.Ceil(lo), math.Floor(hi)
		}
		return number(t, math.Max(lo, math.Min(0, hi)))
	}
}

func (emptyValues) enum(values []introspect.Property) string { return values[0].Name() }

func (emptyValues) identifier(fieldName string) string { return fieldName + ":0000" }

func (emptyValues) arrayLen() int { return 0 }

type sampleValues struct {
	now func() time.Time
	rng *rand.Rand
}

var sampleWords = []string{
	"lorem", "ipsum", "dolor", "sit", "amet", "consectetur", "adipiscing", "elit",
	"sed", "do", "eiusmod", "tempor", "incididunt", "labore", "magna", "aliqua",
}

// sampleStrings are tried against a regex validator when the random words
// do not match it.
var sampleStrings = []string{"sample", "Sample", "SAMPLE", "12345", "A1", "a", "1", "sample@example.com"}

func (v *sampleValues) primitive(fd *introspect.Field) any {
	switch t := fd.PrimitiveType(); t {
	case field.TypeString:
		return v.text(fd)
	case field.TypeBoolean:
		return v.rng.IntN(2) == 1
	case field.TypeDateTime:
		return v.now()
	case field.TypeDouble:
		lo, hi := bounds(fd, 0, 1000)
		return lo + v.rng.Float64()*(hi-lo)
	default:
		lo, hi := bounds(fd, 0, 9999)
		lo, hi = math.Ceil(lo), math.Floor(hi)
		n := lo
		if hi > lo {
			n += float64(v.rng.Int64N(int64(hi-lo) + 1))
		}
		return number(t, n)
	}
}

func (v *sampleValues) text(fd *introspect.Field) string {
	s := sampleWords[v.rng.IntN(len(sampleWords))] + " " + sampleWords[v.rng.IntN(len(sampleWords))]
	val := fd.Validator()
	if val == nil || val.Validate(fd.Name(), s) == nil {
		return s
	}
	for _, c := range sampleStrings {
		if val.Validate(fd.Name(), c) == nil {
			return c
		}
	}
	return s
}

func (v *sampleValues) enum(values []introspect.Property) string {
	return values[v.rng.IntN(len(values))].Name()
}

func (v *sampleValues) identifier(fieldName string) string {
	return fmt.Sprintf("%s:%04d", fieldName, v.rng.IntN(10000))
}

func (*sampleValues) arrayLen() int { return sampleArrayLen }

// bounds narrows [lo, hi] to the range validator of fd, keeping a span of
// hi-lo when only one side is bounded.
func bounds(fd *introspect.Field, lo, hi float64) (float64, float64) {
	rv, ok := fd.Validator().(*field.RangeValidator)
	if !ok {
		return lo, hi
	}
	span := hi - lo
	switch {
	case rv.Lower != nil && rv.Upper != nil:
		return *rv.Lower, *rv.Upper
	case rv.Lower != nil:
		return *rv.Lower, math.Max(hi, *rv.Lower+span)
	default:
		return math.Min(lo, *rv.Upper-span), *rv.Upper
	}
}

func number(t field.Type, f float64) any {
	switch t {
	case field.TypeInteger:
		return int32(f)
	case field.TypeLong:
		return int64(f)
	}
	return f
}
