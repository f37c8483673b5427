// Package parser turns model file text into the typed tree of package ast.
//
// The grammar, informally:
//
//	file        := 'namespace' qname import* declaration*
//	import      := 'import' qname ['.' '*'] ['from' uri]
//	declaration := decorator* ['abstract'] kind IDENT ['identified' 'by' IDENT] ['extends' qname] '{' member* '}'
//	member      := decorator* ('o' type IDENT option* | '-->' type IDENT ['optional'])
//	type        := IDENT ['[' ']']
//	option      := 'optional' | 'default' '=' literal | 'regex' '=' REGEX | 'range' '=' '[' [num] ',' [num] ']'
//	decorator   := '@' IDENT ['(' [arg {',' arg}] ')']
//
// Inside an enum, members are written 'o' IDENT.
package parser

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/syssam/concerto"
	"github.com/syssam/concerto/schema/ast"
)

// Parse parses a model file. The returned error is a *concerto.ParseError
// carrying fileName and the location of the offending token.
func Parse(src, fileName string) (*ast.File, error) {
	p := &parser{s: newScanner(src), file: fileName}
	p.next()
	f, err := p.parseFile()
	if err != nil {
		return nil, err
	}
	return f, nil
}

type parser struct {
	s    *scanner
	file string
	tok  token
	// end of the last consumed token, for node ranges.
	last concerto.Position
}

func (p *parser) next() {
	p.last = p.tok.loc.End
	p.tok = p.s.scan()
}

func (p *parser) errorf(loc concerto.Location, format string, args ...any) error {
	return concerto.NewParseError(p.file, loc, fmt.Sprintf(format, args...))
}

// expected reports the current token as unexpected.
func (p *parser) expected(what string) error {
	if p.s.err != nil {
		return concerto.NewParseError(p.file, p.s.err.loc, p.s.err.msg)
	}
	return p.errorf(p.tok.loc, "Expected %s but %s found.", what, p.tok.describe())
}

func (p *parser) is(kind tokenKind) bool {
	return p.tok.kind == kind
}

func (p *parser) isKeyword(kw string) bool {
	return p.tok.kind == tokIdent && p.tok.text == kw
}

func (p *parser) expect(kind tokenKind) (token, error) {
	if p.tok.kind != kind {
		return token{}, p.expected(kind.String())
	}
	t := p.tok
	p.next()
	return t, nil
}

func (p *parser) expectKeyword(kw string) error {
	if !p.isKeyword(kw) {
		return p.expected(strconv.Quote(kw))
	}
	p.next()
	return nil
}

func (p *parser) ident() (string, error) {
	if p.tok.kind != tokIdent {
		return "", p.expected("identifier")
	}
	name := p.tok.text
	p.next()
	return name, nil
}

// qualifiedName reads IDENT {'.' IDENT}. When allowWildcard is set a
// trailing '.*' or '.**' is accepted.
func (p *parser) qualifiedName(allowWildcard bool) (string, error) {
	first, err := p.ident()
	if err != nil {
		return "", err
	}
	parts := []string{first}
	for p.is(tokDot) {
		p.next()
		if allowWildcard && p.is(tokStar) {
			p.next()
			star := "*"
			if p.is(tokStar) {
				p.next()
				star = "**"
			}
			parts = append(parts, star)
			break
		}
		part, err := p.ident()
		if err != nil {
			return "", err
		}
		parts = append(parts, part)
	}
	return strings.Join(parts, "."), nil
}

func (p *parser) parseFile() (*ast.File, error) {
	start := p.tok.loc.Start
	if err := p.expectKeyword("namespace"); err != nil {
		return nil, err
	}
	ns, err := p.qualifiedName(false)
	if err != nil {
		return nil, err
	}
	f := &ast.File{Namespace: ns}
	for p.isKeyword("import") {
		imp, err := p.parseImport()
		if err != nil {
			return nil, err
		}
		f.Imports = append(f.Imports, imp)
	}
	for !p.is(tokEOF) {
		decl, err := p.parseDeclaration()
		if err != nil {
			return nil, err
		}
		f.Declarations = append(f.Declarations, decl)
	}
	if p.s.err != nil {
		return nil, concerto.NewParseError(p.file, p.s.err.loc, p.s.err.msg)
	}
	f.Location = concerto.Location{Start: start, End: p.tok.loc.End}
	return f, nil
}

func (p *parser) parseImport() (*ast.Import, error) {
	start := p.tok.loc.Start
	p.next()
	name, err := p.qualifiedName(true)
	if err != nil {
		return nil, err
	}
	if !strings.Contains(name, ".") {
		return nil, p.errorf(concerto.Location{Start: start, End: p.last}, "Import %s must be fully qualified.", name)
	}
	imp := &ast.Import{Name: name}
	if p.isKeyword("from") {
		uri, err := p.parseURI()
		if err != nil {
			return nil, err
		}
		imp.URI = uri
	}
	imp.Location = concerto.Location{Start: start, End: p.last}
	return imp, nil
}

// parseURI reads the text following "from" up to the next whitespace.
func (p *parser) parseURI() (string, error) {
	p.last = p.tok.loc.End
	p.tok = p.s.scanRaw()
	if p.tok.text == "" {
		return "", p.expected("URI")
	}
	uri := p.tok.text
	p.next()
	return uri, nil
}

func (p *parser) parseDecorators() ([]*ast.Decorator, error) {
	var decorators []*ast.Decorator
	for p.is(tokAt) {
		d, err := p.parseDecorator()
		if err != nil {
			return nil, err
		}
		decorators = append(decorators, d)
	}
	return decorators, nil
}

func (p *parser) parseDecorator() (*ast.Decorator, error) {
	start := p.tok.loc.Start
	p.next()
	if p.tok.kind != tokIdent {
		return nil, p.expected("decorator name")
	}
	d := &ast.Decorator{Name: p.tok.text}
	p.next()
	if p.is(tokLParen) {
		p.next()
		for !p.is(tokRParen) {
			arg, err := p.parseLiteral(true)
			if err != nil {
				return nil, err
			}
			d.Arguments = append(d.Arguments, arg)
			if !p.is(tokComma) {
				break
			}
			p.next()
		}
		if _, err := p.expect(tokRParen); err != nil {
			return nil, err
		}
	}
	d.Location = concerto.Location{Start: start, End: p.last}
	return d, nil
}

// parseLiteral reads a string, number or boolean. Identifier arguments,
// optionally followed by [], are accepted when allowIdent is set.
func (p *parser) parseLiteral(allowIdent bool) (*ast.Literal, error) {
	t := p.tok
	lit := &ast.Literal{Raw: t.raw, Location: t.loc}
	switch {
	case t.kind == tokString:
		lit.Kind, lit.String = ast.LiteralString, t.text
		p.next()
	case t.kind == tokNumber:
		n, err := strconv.ParseFloat(t.text, 64)
		if err != nil {
			return nil, p.errorf(t.loc, "Invalid number %s.", t.raw)
		}
		lit.Kind, lit.Number = ast.LiteralNumber, n
		p.next()
	case t.kind == tokIdent && (t.text == "true" || t.text == "false"):
		lit.Kind, lit.Bool = ast.LiteralBoolean, t.text == "true"
		p.next()
	case t.kind == tokIdent && allowIdent:
		lit.Kind, lit.Name = ast.LiteralIdentifier, t.text
		p.next()
		if p.is(tokLBracket) {
			p.next()
			if _, err := p.expect(tokRBracket); err != nil {
				return nil, err
			}
			lit.Array = true
		}
		lit.Raw = p.s.src[t.loc.Start.Offset:p.last.Offset]
		lit.Location.End = p.last
	default:
		return nil, p.expected("literal")
	}
	return lit, nil
}

func (p *parser) parseDeclaration() (*ast.Declaration, error) {
	start := p.tok.loc.Start
	decorators, err := p.parseDecorators()
	if err != nil {
		return nil, err
	}
	decl := &ast.Declaration{Decorators: decorators}
	if p.isKeyword("abstract") {
		decl.Abstract = true
		p.next()
	}
	kind, ok := ast.KindOf(p.tok.text)
	if p.tok.kind != tokIdent || !ok {
		return nil, p.expected(`"asset", "participant", "transaction", "event", "concept" or "enum"`)
	}
	decl.Kind = kind
	p.next()
	if decl.Name, err = p.ident(); err != nil {
		return nil, err
	}
	// identified by and extends may appear in either order.
	for {
		switch {
		case p.isKeyword("identified"):
			p.next()
			if err := p.expectKeyword("by"); err != nil {
				return nil, err
			}
			if decl.IdentifiedBy, err = p.ident(); err != nil {
				return nil, err
			}
			continue
		case p.isKeyword("extends"):
			p.next()
			if decl.Extends, err = p.qualifiedName(false); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(tokLBrace); err != nil {
		return nil, err
	}
	for !p.is(tokRBrace) {
		prop, err := p.parseProperty(kind == ast.KindEnum)
		if err != nil {
			return nil, err
		}
		decl.Properties = append(decl.Properties, prop)
	}
	p.next()
	decl.Location = concerto.Location{Start: start, End: p.last}
	return decl, nil
}

func (p *parser) parseProperty(enum bool) (*ast.Property, error) {
	start := p.tok.loc.Start
	decorators, err := p.parseDecorators()
	if err != nil {
		return nil, err
	}
	prop := &ast.Property{Decorators: decorators}
	switch {
	case p.isKeyword("o") && enum:
		p.next()
		prop.Kind = ast.PropertyEnumValue
		if prop.Name, err = p.ident(); err != nil {
			return nil, err
		}
	case p.isKeyword("o"):
		p.next()
		prop.Kind = ast.PropertyField
		if err := p.parseTypeAndName(prop); err != nil {
			return nil, err
		}
		if err := p.parseFieldOptions(prop); err != nil {
			return nil, err
		}
	case p.is(tokArrow) && !enum:
		p.next()
		prop.Kind = ast.PropertyRelationship
		if err := p.parseTypeAndName(prop); err != nil {
			return nil, err
		}
		if p.isKeyword("optional") {
			prop.Optional = true
			p.next()
		}
	default:
		if enum {
			return nil, p.expected(`"o" or "}"`)
		}
		return nil, p.expected(`"o", "-->" or "}"`)
	}
	prop.Location = concerto.Location{Start: start, End: p.last}
	return prop, nil
}

func (p *parser) parseTypeAndName(prop *ast.Property) error {
	var err error
	if prop.Type, err = p.qualifiedName(false); err != nil {
		return err
	}
	if p.is(tokLBracket) {
		p.next()
		if _, err := p.expect(tokRBracket); err != nil {
			return err
		}
		prop.Array = true
	}
	prop.Name, err = p.ident()
	return err
}

func (p *parser) parseFieldOptions(prop *ast.Property) error {
	for {
		switch {
		case p.isKeyword("optional"):
			prop.Optional = true
			p.next()
		case p.isKeyword("default"):
			p.next()
			if _, err := p.expect(tokEquals); err != nil {
				return err
			}
			lit, err := p.parseLiteral(false)
			if err != nil {
				return err
			}
			prop.Default = lit
		case p.isKeyword("regex"):
			p.next()
			if !p.is(tokEquals) {
				return p.expected(`"="`)
			}
			// The scanner must read the pattern itself, so the '=' is
			// consumed without scanning ahead.
			p.last = p.tok.loc.End
			p.tok = p.s.scanRegex()
			if !p.is(tokRegex) {
				return p.expected("regular expression")
			}
			prop.Regex = p.tok.text
			p.next()
		case p.isKeyword("range"):
			p.next()
			if _, err := p.expect(tokEquals); err != nil {
				return err
			}
			r, err := p.parseRange()
			if err != nil {
				return err
			}
			prop.Range = r
		default:
			return nil
		}
	}
}

func (p *parser) parseRange() (*ast.Range, error) {
	start := p.tok.loc.Start
	if _, err := p.expect(tokLBracket); err != nil {
		return nil, err
	}
	r := &ast.Range{}
	bound := func() (*float64, error) {
		if !p.is(tokNumber) {
			return nil, nil
		}
		n, err := strconv.ParseFloat(p.tok.text, 64)
		if err != nil {
			return nil, p.errorf(p.tok.loc, "Invalid number %s.", p.tok.raw)
		}
		p.next()
		return &n, nil
	}
	var err error
	if r.Lower, err = bound(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokComma); err != nil {
		return nil, err
	}
	if r.Upper, err = bound(); err != nil {
		return nil, err
	}
	if _, err := p.expect(tokRBracket); err != nil {
		return nil, err
	}
	if r.Lower == nil && r.Upper == nil {
		return nil, p.errorf(concerto.Location{Start: start, End: p.last}, "Range must have a lower or an upper bound.")
	}
	return r, nil
}
