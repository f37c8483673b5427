package field

// Type is a primitive property type.
type Type uint8

// Primitive types.
const (
	TypeInvalid Type = iota
	TypeString
	TypeDouble
	TypeInteger
	TypeLong
	TypeDateTime
	TypeBoolean
	endTypes
)

var typeNames = [...]string{
	TypeInvalid:  "invalid",
	TypeString:   "String",
	TypeDouble:   "Double",
	TypeInteger:  "Integer",
	TypeLong:     "Long",
	TypeDateTime: "DateTime",
	TypeBoolean:  "Boolean",
}

// String returns the type name as written in model files.
func (t Type) String() string {
	if t < endTypes {
		return typeNames[t]
	}
	return typeNames[TypeInvalid]
}

// Valid reports if the given type is a known primitive.
func (t Type) Valid() bool {
	return t > TypeInvalid && t < endTypes
}

// Numeric reports if the given type is a numeric type.
func (t Type) Numeric() bool {
	return t == TypeDouble || t == TypeInteger || t == TypeLong
}

// Integral reports if the given type holds whole numbers only.
func (t Type) Integral() bool {
	return t == TypeInteger || t == TypeLong
}

// Types returns every primitive type in declaration order.
func Types() []Type {
	types := make([]Type, 0, endTypes-1)
	for t := TypeString; t < endTypes; t++ {
		types = append(types, t)
	}
	return types
}

// ParseType returns the primitive type for a type name.
func ParseType(name string) (Type, bool) {
	for t := TypeString; t < endTypes; t++ {
		if typeNames[t] == name {
			return t, true
		}
	}
	return TypeInvalid, false
}

// IsPrimitive reports whether name is a primitive type name.
func IsPrimitive(name string) bool {
	_, ok := ParseType(name)
	return ok
}
