// Package ast declares the typed syntax tree produced by the schema parser.
//
// The tree is a direct image of the source text. Name resolution,
// inheritance and validation happen later, in package introspect.
package ast

import (
	"github.com/syssam/concerto"
)

// DeclarationKind discriminates class declarations.
type DeclarationKind uint8

// Declaration kinds.
const (
	KindInvalid DeclarationKind = iota
	KindAsset
	KindParticipant
	KindTransaction
	KindEvent
	KindConcept
	KindEnum
)

var kindNames = [...]string{
	KindInvalid:     "invalid",
	KindAsset:       "asset",
	KindParticipant: "participant",
	KindTransaction: "transaction",
	KindEvent:       "event",
	KindConcept:     "concept",
	KindEnum:        "enum",
}

// String returns the DSL keyword of the kind.
func (k DeclarationKind) String() string {
	if int(k) < len(kindNames) {
		return kindNames[k]
	}
	return "invalid"
}

// KindOf returns the declaration kind for a DSL keyword.
func KindOf(keyword string) (DeclarationKind, bool) {
	for k, name := range kindNames {
		if k != int(KindInvalid) && name == keyword {
			return DeclarationKind(k), true
		}
	}
	return KindInvalid, false
}

// PropertyKind discriminates class members.
type PropertyKind uint8

// Property kinds.
const (
	PropertyField PropertyKind = iota + 1
	PropertyRelationship
	PropertyEnumValue
)

// String returns a readable name of the property kind.
func (k PropertyKind) String() string {
	switch k {
	case PropertyField:
		return "FieldDeclaration"
	case PropertyRelationship:
		return "RelationshipDeclaration"
	case PropertyEnumValue:
		return "EnumPropertyDeclaration"
	}
	return "invalid"
}

// LiteralKind discriminates decorator arguments and default values.
type LiteralKind uint8

// Literal kinds.
const (
	LiteralString LiteralKind = iota + 1
	LiteralNumber
	LiteralBoolean
	LiteralIdentifier
)

// String returns the name used in error messages.
func (k LiteralKind) String() string {
	switch k {
	case LiteralString:
		return "string"
	case LiteralNumber:
		return "number"
	case LiteralBoolean:
		return "boolean"
	case LiteralIdentifier:
		return "identifier"
	}
	return "invalid"
}

// File is the root of a parsed model file.
type File struct {
	Namespace    string            `json:"namespace"`
	Imports      []*Import         `json:"imports,omitempty"`
	Declarations []*Declaration    `json:"declarations,omitempty"`
	Location     concerto.Location `json:"location"`
}

// Import is one import statement. Name ends in ".*" for wildcard imports.
type Import struct {
	Name     string            `json:"name"`
	URI      string            `json:"uri,omitempty"`
	Location concerto.Location `json:"location"`
}

// Declaration is a class declaration of any kind.
type Declaration struct {
	Kind         DeclarationKind   `json:"kind"`
	Name         string            `json:"name"`
	Abstract     bool              `json:"abstract,omitempty"`
	IdentifiedBy string            `json:"identifiedBy,omitempty"`
	Extends      string            `json:"extends,omitempty"`
	Decorators   []*Decorator      `json:"decorators,omitempty"`
	Properties   []*Property       `json:"properties,omitempty"`
	Location     concerto.Location `json:"location"`
}

// Property is a field, relationship or enum value.
type Property struct {
	Kind       PropertyKind      `json:"kind"`
	Name       string            `json:"name"`
	Type       string            `json:"type,omitempty"`
	Array      bool              `json:"array,omitempty"`
	Optional   bool              `json:"optional,omitempty"`
	Default    *Literal          `json:"default,omitempty"`
	Regex      string            `json:"regex,omitempty"`
	Range      *Range            `json:"range,omitempty"`
	Decorators []*Decorator      `json:"decorators,omitempty"`
	Location   concerto.Location `json:"location"`
}

// Range is a numeric validator. Nil bounds are open.
type Range struct {
	Lower *float64 `json:"lower,omitempty"`
	Upper *float64 `json:"upper,omitempty"`
}

// Decorator is an annotation such as @foo("bar", 1, true, Baz[]).
type Decorator struct {
	Name      string            `json:"name"`
	Arguments []*Literal        `json:"arguments,omitempty"`
	Location  concerto.Location `json:"location"`
}

// Literal is a decorator argument or a default value.
type Literal struct {
	Kind   LiteralKind `json:"kind"`
	String string      `json:"string,omitempty"`
	Number float64     `json:"number,omitempty"`
	Bool   bool        `json:"bool,omitempty"`
	// Identifier literals carry a type name and an array flag.
	Name  string `json:"name,omitempty"`
	Array bool   `json:"array,omitempty"`
	// Raw is the literal as written in the source.
	Raw      string            `json:"raw,omitempty"`
	Location concerto.Location `json:"location"`
}

// Value returns the Go value of the literal: string, float64, bool, or
// *Literal for identifiers.
func (l *Literal) Value() any {
	switch l.Kind {
	case LiteralString:
		return l.String
	case LiteralNumber:
		return l.Number
	case LiteralBoolean:
		return l.Bool
	default:
		return l
	}
}
