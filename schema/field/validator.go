package field

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/syssam/concerto/schema/ast"
)

// Validator checks the value of a field beyond its type.
type Validator interface {
	// Validate checks a value already converted by Value.
	Validate(identifier string, value any) error
	// String returns the validator as written in a model file.
	String() string
}

// NewValidator builds the validator declared for a field of type t. It
// returns nil when the field declares none.
func NewValidator(t Type, regex string, r *ast.Range) (Validator, error) {
	switch {
	case regex != "" && r != nil:
		return nil, errors.Newf("a field cannot declare both a regex and a range")
	case regex != "":
		if t != TypeString {
			return nil, errors.Newf("regex validators are only supported on String fields, not %s", t)
		}
		return NewRegexValidator(regex)
	case r != nil:
		if !t.Numeric() {
			return nil, errors.Newf("range validators are only supported on numeric fields, not %s", t)
		}
		return NewRangeValidator(r.Lower, r.Upper)
	}
	return nil, nil
}

// RegexValidator matches String values against a pattern.
type RegexValidator struct {
	source string
	re     *regexp.Regexp
}

// NewRegexValidator compiles a /pattern/flags literal. The flags i, m and s
// map to the Go equivalents; g and u are accepted and ignored.
func NewRegexValidator(literal string) (*RegexValidator, error) {
	if len(literal) < 2 || literal[0] != '/' {
		return nil, errors.Newf("invalid regular expression %s", literal)
	}
	end := strings.LastIndexByte(literal, '/')
	if end == 0 {
		return nil, errors.Newf("invalid regular expression %s", literal)
	}
	pattern, flags := literal[1:end], literal[end+1:]
	var goFlags strings.Builder
	for _, f := range flags {
		switch f {
		case 'i', 'm', 's':
			goFlags.WriteRune(f)
		case 'g', 'u':
		default:
			return nil, errors.Newf("unsupported regular expression flag %q in %s", f, literal)
		}
	}
	if goFlags.Len() > 0 {
		pattern = "(?" + goFlags.String() + ")" + pattern
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid regular expression %s", literal)
	}
	return &RegexValidator{source: literal, re: re}, nil
}

// Validate implements Validator.
func (v *RegexValidator) Validate(identifier string, value any) error {
	s, ok := value.(string)
	if !ok {
		return typeMismatch(TypeString, value)
	}
	if !v.re.MatchString(s) {
		return &ValueError{
			Field:   identifier,
			Type:    TypeString,
			Value:   value,
			Message: fmt.Sprintf("Value '%s' failed to match validation regex: %s", s, v.source),
		}
	}
	return nil
}

// String implements Validator.
func (v *RegexValidator) String() string {
	return "regex=" + v.source
}

// RangeValidator bounds numeric values. A nil bound is open.
type RangeValidator struct {
	Lower *float64
	Upper *float64
}

// NewRangeValidator returns a validator for the inclusive range [lower, upper].
func NewRangeValidator(lower, upper *float64) (*RangeValidator, error) {
	if lower == nil && upper == nil {
		return nil, errors.Newf("a range must have a lower or an upper bound")
	}
	if lower != nil && upper != nil && *lower > *upper {
		return nil, errors.Newf("lower bound %v must be less than or equal to upper bound %v", *lower, *upper)
	}
	return &RangeValidator{Lower: lower, Upper: upper}, nil
}

// Validate implements Validator.
func (v *RangeValidator) Validate(identifier string, value any) error {
	f, ok := toFloat(value)
	if !ok {
		return typeMismatch(TypeDouble, value)
	}
	if v.Lower != nil && f < *v.Lower {
		return &ValueError{Field: identifier, Type: TypeDouble, Value: value,
			Message: fmt.Sprintf("Value is outside lower bound %s", formatBound(*v.Lower))}
	}
	if v.Upper != nil && f > *v.Upper {
		return &ValueError{Field: identifier, Type: TypeDouble, Value: value,
			Message: fmt.Sprintf("Value is outside upper bound %s", formatBound(*v.Upper))}
	}
	return nil
}

// String implements Validator.
func (v *RangeValidator) String() string {
	var lo, hi string
	if v.Lower != nil {
		lo = formatBound(*v.Lower)
	}
	if v.Upper != nil {
		hi = formatBound(*v.Upper)
	}
	return "range=[" + lo + "," + hi + "]"
}

func formatBound(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
