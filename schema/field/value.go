package field

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"time"

	"github.com/cockroachdb/errors"

	"github.com/syssam/concerto/schema/ast"
)

// ErrInvalidValue is returned when a value does not fit its declared type
// or fails a validator.
var ErrInvalidValue = errors.New("concerto: invalid field value")

// ValueError describes a value rejected for a field.
type ValueError struct {
	Field   string // field name, may be empty
	Type    Type
	Value   any
	Message string
}

// Error implements the error interface.
func (e *ValueError) Error() string {
	if e.Field != "" {
		return fmt.Sprintf("concerto: field %s: %s", e.Field, e.Message)
	}
	return "concerto: " + e.Message
}

// Is reports whether the target matches ErrInvalidValue.
func (e *ValueError) Is(target error) bool {
	return target == ErrInvalidValue
}

// IsValueError returns true if the error is a ValueError.
func IsValueError(err error) bool {
	if err == nil {
		return false
	}
	var e *ValueError
	return errors.As(err, &e)
}

func typeMismatch(t Type, v any) *ValueError {
	return &ValueError{
		Type:    t,
		Value:   v,
		Message: fmt.Sprintf("Model violation: value %v of type %T is not a %s", v, v, t),
	}
}

// Value converts v to the Go representation of t:
//
//	String   -> string
//	Double   -> float64
//	Integer  -> int32
//	Long     -> int64
//	DateTime -> time.Time
//	Boolean  -> bool
//
// Inputs decoded from JSON (float64, json.Number, RFC 3339 strings) are
// accepted. Strings are not parsed into numbers or booleans.
func Value(t Type, v any) (any, error) {
	switch t {
	case TypeString:
		if s, ok := v.(string); ok {
			return s, nil
		}
	case TypeBoolean:
		if b, ok := v.(bool); ok {
			return b, nil
		}
	case TypeDouble:
		if f, ok := toFloat(v); ok {
			return f, nil
		}
	case TypeInteger:
		f, ok := toFloat(v)
		if !ok || f != math.Trunc(f) {
			break
		}
		if f < math.MinInt32 || f > math.MaxInt32 {
			return nil, &ValueError{Type: t, Value: v, Message: fmt.Sprintf("Model violation: value %v overflows Integer", v)}
		}
		return int32(f), nil
	case TypeLong:
		return toLong(v)
	case TypeDateTime:
		switch x := v.(type) {
		case time.Time:
			return x, nil
		case string:
			ts, err := time.Parse(time.RFC3339Nano, x)
			if err != nil {
				return nil, &ValueError{Type: t, Value: v, Message: fmt.Sprintf("Model violation: %q is not a valid DateTime", x)}
			}
			return ts, nil
		}
	default:
		return nil, &ValueError{Type: t, Value: v, Message: "Model violation: unknown primitive type"}
	}
	return nil, typeMismatch(t, v)
}

// toLong converts v to int64 without a float64 round trip for integer
// inputs, so values above 2^53 keep their precision.
func toLong(v any) (any, error) {
	switch x := v.(type) {
	case int64:
		return x, nil
	case int:
		return int64(x), nil
	case int32:
		return int64(x), nil
	case int16:
		return int64(x), nil
	case int8:
		return int64(x), nil
	case uint8:
		return int64(x), nil
	case uint16:
		return int64(x), nil
	case uint32:
		return int64(x), nil
	case uint:
		if uint64(x) > math.MaxInt64 {
			return nil, longOverflow(v)
		}
		return int64(x), nil
	case uint64:
		if x > math.MaxInt64 {
			return nil, longOverflow(v)
		}
		return int64(x), nil
	case json.Number:
		if i, err := x.Int64(); err == nil {
			return i, nil
		}
	}
	f, ok := toFloat(v)
	if !ok || f != math.Trunc(f) {
		return nil, typeMismatch(TypeLong, v)
	}
	// float64(math.MaxInt64) rounds up to 2^63, which is already out of range.
	if f < math.MinInt64 || f >= math.MaxInt64 {
		return nil, longOverflow(v)
	}
	return int64(f), nil
}

func longOverflow(v any) *ValueError {
	return &ValueError{Type: TypeLong, Value: v, Message: fmt.Sprintf("Model violation: value %v overflows Long", v)}
}

func toFloat(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int8:
		return float64(x), true
	case int16:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case uint:
		return float64(x), true
	case uint8:
		return float64(x), true
	case uint16:
		return float64(x), true
	case uint32:
		return float64(x), true
	case uint64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return 0, false
}

// Default converts a default value literal to the Go representation of t.
// String literals are parsed for non-String types, so default="42" is a
// valid Integer default.
func Default(t Type, lit *ast.Literal) (any, error) {
	if lit == nil {
		return nil, nil
	}
	var raw any
	switch lit.Kind {
	case ast.LiteralString:
		raw = lit.String
		if t != TypeString && t != TypeDateTime {
			parsed, err := parseText(t, lit.String)
			if err != nil {
				return nil, err
			}
			raw = parsed
		}
	case ast.LiteralNumber:
		raw = lit.Number
	case ast.LiteralBoolean:
		raw = lit.Bool
	default:
		return nil, &ValueError{Type: t, Value: lit.Raw, Message: fmt.Sprintf("Model violation: default value %s is not a literal", lit.Raw)}
	}
	v, err := Value(t, raw)
	if err != nil {
		var ve *ValueError
		if errors.As(err, &ve) {
			ve.Message = fmt.Sprintf("Default value %s is not a valid %s", lit.Raw, t)
		}
		return nil, err
	}
	return v, nil
}

func parseText(t Type, s string) (any, error) {
	switch {
	case t == TypeBoolean:
		b, err := strconv.ParseBool(s)
		if err != nil {
			return nil, &ValueError{Type: t, Value: s, Message: fmt.Sprintf("Default value %q is not a valid Boolean", s)}
		}
		return b, nil
	case t.Numeric():
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, &ValueError{Type: t, Value: s, Message: fmt.Sprintf("Default value %q is not a valid %s", s, t)}
		}
		return f, nil
	}
	return s, nil
}
