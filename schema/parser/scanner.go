package parser

import (
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/syssam/concerto"
)

// tokenKind classifies lexical tokens.
type tokenKind uint8

const (
	tokEOF tokenKind = iota
	tokIdent
	tokString
	tokNumber
	tokRegex
	tokArrow    // -->
	tokLBrace   // {
	tokRBrace   // }
	tokLParen   // (
	tokRParen   // )
	tokLBracket // [
	tokRBracket // ]
	tokComma    // ,
	tokEquals   // =
	tokAt       // @
	tokDot      // .
	tokStar     // *
	tokIllegal
)

var tokenNames = map[tokenKind]string{
	tokEOF:      "end of input",
	tokIdent:    "identifier",
	tokString:   "string",
	tokNumber:   "number",
	tokRegex:    "regular expression",
	tokArrow:    `"-->"`,
	tokLBrace:   `"{"`,
	tokRBrace:   `"}"`,
	tokLParen:   `"("`,
	tokRParen:   `")"`,
	tokLBracket: `"["`,
	tokRBracket: `"]"`,
	tokComma:    `","`,
	tokEquals:   `"="`,
	tokAt:       `"@"`,
	tokDot:      `"."`,
	tokStar:     `"*"`,
	tokIllegal:  "illegal character",
}

func (k tokenKind) String() string {
	return tokenNames[k]
}

// token is a lexeme with its source range. For strings, text holds the
// unquoted value; raw always holds the source slice.
type token struct {
	kind tokenKind
	text string
	raw  string
	loc  concerto.Location
}

// describe returns the token the way it is quoted in error messages.
func (t token) describe() string {
	switch t.kind {
	case tokEOF:
		return "end of input"
	case tokString:
		return t.raw
	}
	return `"` + t.raw + `"`
}

// scanner tracks line, column and offset while reading source text.
type scanner struct {
	src    string
	offset int
	line   int
	column int
	err    *scanError
}

type scanError struct {
	msg string
	loc concerto.Location
}

func newScanner(src string) *scanner {
	return &scanner{src: src, line: 1, column: 1}
}

func (s *scanner) pos() concerto.Position {
	return concerto.Position{Line: s.line, Column: s.column, Offset: s.offset}
}

func (s *scanner) peekRune() (rune, int) {
	if s.offset >= len(s.src) {
		return -1, 0
	}
	return utf8.DecodeRuneInString(s.src[s.offset:])
}

func (s *scanner) advance() rune {
	r, w := s.peekRune()
	if w == 0 {
		return -1
	}
	s.offset += w
	if r == '\n' {
		s.line++
		s.column = 1
	} else {
		s.column++
	}
	return r
}

// skipSpace skips whitespace and comments.
func (s *scanner) skipSpace() {
	for s.offset < len(s.src) {
		r, _ := s.peekRune()
		switch {
		case unicode.IsSpace(r):
			s.advance()
		case strings.HasPrefix(s.src[s.offset:], "//"):
			for s.offset < len(s.src) {
				if s.advance() == '\n' {
					break
				}
			}
		case strings.HasPrefix(s.src[s.offset:], "/*"):
			start := s.pos()
			s.advance()
			s.advance()
			closed := false
			for s.offset < len(s.src) {
				if strings.HasPrefix(s.src[s.offset:], "*/") {
					s.advance()
					s.advance()
					closed = true
					break
				}
				s.advance()
			}
			if !closed && s.err == nil {
				s.err = &scanError{msg: "Unterminated comment.", loc: concerto.Location{Start: start, End: s.pos()}}
			}
		default:
			return
		}
	}
}

func isIdentStart(r rune) bool {
	return r == '_' || r == '$' || unicode.IsLetter(r)
}

func isIdentPart(r rune) bool {
	return isIdentStart(r) || unicode.IsDigit(r)
}

// scan returns the next token.
func (s *scanner) scan() token {
	s.skipSpace()
	start := s.pos()
	r, _ := s.peekRune()
	mk := func(k tokenKind, text string) token {
		return token{kind: k, text: text, raw: s.src[start.Offset:s.offset], loc: concerto.Location{Start: start, End: s.pos()}}
	}
	switch {
	case r < 0:
		return mk(tokEOF, "")
	case isIdentStart(r):
		for {
			r, _ := s.peekRune()
			if r < 0 || !isIdentPart(r) {
				break
			}
			s.advance()
		}
		return mk(tokIdent, s.src[start.Offset:s.offset])
	case r == '"' || r == '\'':
		text, ok := s.scanString(r)
		tok := mk(tokString, text)
		if !ok {
			tok.kind = tokIllegal
		}
		return tok
	case unicode.IsDigit(r) || (r == '-' && s.isNumberAfterSign()):
		s.scanNumber()
		return mk(tokNumber, s.src[start.Offset:s.offset])
	case strings.HasPrefix(s.src[s.offset:], "-->"):
		s.advance()
		s.advance()
		s.advance()
		return mk(tokArrow, "-->")
	}
	s.advance()
	switch r {
	case '{':
		return mk(tokLBrace, "{")
	case '}':
		return mk(tokRBrace, "}")
	case '(':
		return mk(tokLParen, "(")
	case ')':
		return mk(tokRParen, ")")
	case '[':
		return mk(tokLBracket, "[")
	case ']':
		return mk(tokRBracket, "]")
	case ',':
		return mk(tokComma, ",")
	case '=':
		return mk(tokEquals, "=")
	case '@':
		return mk(tokAt, "@")
	case '.':
		return mk(tokDot, ".")
	case '*':
		return mk(tokStar, "*")
	}
	return mk(tokIllegal, string(r))
}

func (s *scanner) isNumberAfterSign() bool {
	if s.offset+1 >= len(s.src) {
		return false
	}
	c := s.src[s.offset+1]
	return c >= '0' && c <= '9'
}

func (s *scanner) scanNumber() {
	if r, _ := s.peekRune(); r == '-' {
		s.advance()
	}
	digits := func() {
		for {
			r, _ := s.peekRune()
			if r < '0' || r > '9' {
				return
			}
			s.advance()
		}
	}
	digits()
	if r, _ := s.peekRune(); r == '.' && s.offset+1 < len(s.src) && s.src[s.offset+1] >= '0' && s.src[s.offset+1] <= '9' {
		s.advance()
		digits()
	}
	if r, _ := s.peekRune(); r == 'e' || r == 'E' {
		s.advance()
		if r, _ := s.peekRune(); r == '+' || r == '-' {
			s.advance()
		}
		digits()
	}
}

// scanString reads a quoted string and returns its unescaped value.
func (s *scanner) scanString(quote rune) (string, bool) {
	s.advance()
	var b strings.Builder
	for {
		r := s.advance()
		switch r {
		case -1, '\n':
			return b.String(), false
		case quote:
			return b.String(), true
		case '\\':
			esc := s.advance()
			switch esc {
			case 'n':
				b.WriteRune('\n')
			case 't':
				b.WriteRune('\t')
			case 'r':
				b.WriteRune('\r')
			case -1:
				return b.String(), false
			default:
				b.WriteRune(esc)
			}
		default:
			b.WriteRune(r)
		}
	}
}

// scanRegex reads a /pattern/flags literal. It is only called by the parser
// right after "regex =", where a slash cannot start a comment.
func (s *scanner) scanRegex() token {
	for s.offset < len(s.src) {
		r, _ := s.peekRune()
		if r != ' ' && r != '\t' {
			break
		}
		s.advance()
	}
	start := s.pos()
	mk := func(k tokenKind, text string) token {
		return token{kind: k, text: text, raw: s.src[start.Offset:s.offset], loc: concerto.Location{Start: start, End: s.pos()}}
	}
	if r, _ := s.peekRune(); r != '/' {
		return s.scan()
	}
	s.advance()
	inClass := false
	for {
		r := s.advance()
		switch {
		case r == -1 || r == '\n':
			return mk(tokIllegal, s.src[start.Offset:s.offset])
		case r == '\\':
			s.advance()
		case r == '[':
			inClass = true
		case r == ']':
			inClass = false
		case r == '/' && !inClass:
			for {
				f, _ := s.peekRune()
				if f < 0 || !unicode.IsLetter(f) {
					break
				}
				s.advance()
			}
			return mk(tokRegex, s.src[start.Offset:s.offset])
		}
	}
}

// scanRaw reads a run of non-space characters, used for import URIs where
// "//" is not a comment.
func (s *scanner) scanRaw() token {
	for s.offset < len(s.src) {
		r, _ := s.peekRune()
		if !unicode.IsSpace(r) {
			break
		}
		s.advance()
	}
	start := s.pos()
	for s.offset < len(s.src) {
		r, _ := s.peekRune()
		if unicode.IsSpace(r) {
			break
		}
		s.advance()
	}
	text := s.src[start.Offset:s.offset]
	return token{kind: tokString, text: text, raw: text, loc: concerto.Location{Start: start, End: s.pos()}}
}
