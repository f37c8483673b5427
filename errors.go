package concerto

import (
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// Sentinel errors for the failure kinds surfaced by the model layer.
var (
	// ErrParse is returned when schema text cannot be parsed.
	ErrParse = errors.New("concerto: parse error")

	// ErrIllegalModel is returned when a parsed model fails semantic validation.
	ErrIllegalModel = errors.New("concerto: illegal model")

	// ErrTypeNotFound is returned when a fully qualified type cannot be located.
	ErrTypeNotFound = errors.New("concerto: type not found")

	// ErrDecoratorArgument is returned when a decorator is given arguments
	// that do not match its contract.
	ErrDecoratorArgument = errors.New("concerto: invalid decorator arguments")

	// ErrUnrecognisedType is returned by visitors handed a node they do not know.
	ErrUnrecognisedType = errors.New("concerto: unrecognised type")
)

// ParseError reports malformed schema text.
type ParseError struct {
	File     string
	Location Location
	Message  string
}

// Error returns the error string.
func (e *ParseError) Error() string {
	return "concerto: " + e.Message + locationSuffix(e.File, e.Location)
}

// Is reports whether the target matches ErrParse.
func (e *ParseError) Is(target error) bool {
	return target == ErrParse
}

// NewParseError returns a new ParseError.
func NewParseError(file string, loc Location, message string) *ParseError {
	return &ParseError{File: file, Location: loc, Message: message}
}

// IsParseError returns true if the error is a ParseError.
func IsParseError(err error) bool {
	if err == nil {
		return false
	}
	var e *ParseError
	return errors.As(err, &e)
}

// IllegalModelError reports a semantic defect in a model: duplicate names,
// unresolvable types, identifier constraints and similar.
type IllegalModelError struct {
	File     string
	Location Location
	Message  string
	Cause    error
}

// Error returns the error string.
func (e *IllegalModelError) Error() string {
	var b strings.Builder
	b.WriteString("concerto: ")
	b.WriteString(e.Message)
	b.WriteString(locationSuffix(e.File, e.Location))
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying error.
func (e *IllegalModelError) Unwrap() error {
	return e.Cause
}

// Is reports whether the target matches ErrIllegalModel.
func (e *IllegalModelError) Is(target error) bool {
	return target == ErrIllegalModel
}

// NewIllegalModelError returns a new IllegalModelError.
func NewIllegalModelError(file string, loc Location, message string) *IllegalModelError {
	return &IllegalModelError{File: file, Location: loc, Message: message}
}

// IllegalModelf returns a new IllegalModelError with a formatted message.
func IllegalModelf(file string, loc Location, format string, args ...any) *IllegalModelError {
	return NewIllegalModelError(file, loc, fmt.Sprintf(format, args...))
}

// IsIllegalModel returns true if the error is an IllegalModelError or a
// DecoratorError.
func IsIllegalModel(err error) bool {
	if err == nil {
		return false
	}
	var e *IllegalModelError
	if errors.As(err, &e) {
		return true
	}
	var d *DecoratorError
	return errors.As(err, &d)
}

// TypeNotFoundError reports a failed type lookup. NamespaceRegistered tells
// an unknown namespace apart from a known namespace missing the type.
type TypeNotFoundError struct {
	Type                string // fully qualified type name
	Namespace           string
	NamespaceRegistered bool
}

// Error returns the error string.
func (e *TypeNotFoundError) Error() string {
	if !e.NamespaceRegistered {
		return fmt.Sprintf("concerto: No registered namespace for type %s", e.Type)
	}
	return fmt.Sprintf("concerto: No type %s in namespace %s", shortName(e.Type), e.Namespace)
}

// Is reports whether the target matches ErrTypeNotFound.
func (e *TypeNotFoundError) Is(target error) bool {
	return target == ErrTypeNotFound
}

// NewTypeNotFoundError returns a new TypeNotFoundError.
func NewTypeNotFoundError(typeName, namespace string, registered bool) *TypeNotFoundError {
	return &TypeNotFoundError{Type: typeName, Namespace: namespace, NamespaceRegistered: registered}
}

// IsTypeNotFound returns true if the error is a TypeNotFoundError.
func IsTypeNotFound(err error) bool {
	if err == nil {
		return false
	}
	var e *TypeNotFoundError
	return errors.As(err, &e)
}

// DecoratorError reports a decorator whose arguments break its contract.
type DecoratorError struct {
	Decorator string // decorator name, without '@'
	Expected  string
	Actual    string
	File      string
	Location  Location
}

// Error returns the error string.
func (e *DecoratorError) Error() string {
	return fmt.Sprintf("concerto: @%s decorator expects %s, but %s.%s",
		e.Decorator, e.Expected, e.Actual, locationSuffix(e.File, e.Location))
}

// Is reports whether the target matches ErrDecoratorArgument or ErrIllegalModel.
func (e *DecoratorError) Is(target error) bool {
	return target == ErrDecoratorArgument || target == ErrIllegalModel
}

// NewDecoratorError returns a new DecoratorError.
func NewDecoratorError(name, expected, actual, file string, loc Location) *DecoratorError {
	return &DecoratorError{Decorator: name, Expected: expected, Actual: actual, File: file, Location: loc}
}

// UnrecognisedTypeError is returned by a visitor for a node it cannot handle.
type UnrecognisedTypeError struct {
	Type string
}

// Error returns the error string.
func (e *UnrecognisedTypeError) Error() string {
	return "concerto: Unrecognised type: " + e.Type
}

// Is reports whether the target matches ErrUnrecognisedType.
func (e *UnrecognisedTypeError) Is(target error) bool {
	return target == ErrUnrecognisedType
}

// NewUnrecognisedTypeError returns an UnrecognisedTypeError describing the
// dynamic type of node.
func NewUnrecognisedTypeError(node any) *UnrecognisedTypeError {
	return &UnrecognisedTypeError{Type: fmt.Sprintf("%T", node)}
}

// IsUnrecognisedType returns true if the error is an UnrecognisedTypeError.
func IsUnrecognisedType(err error) bool {
	if err == nil {
		return false
	}
	var e *UnrecognisedTypeError
	return errors.As(err, &e)
}

func locationSuffix(file string, loc Location) string {
	var b strings.Builder
	if file != "" {
		b.WriteString(" File ")
		b.WriteString(file)
	}
	if !loc.IsZero() {
		b.WriteString(" ")
		b.WriteString(loc.String())
	}
	return b.String()
}

func shortName(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}
