// Package field describes the primitive property types of the modeling
// language and the checks attached to fields.
//
// # Primitive Types
//
// Six primitive types are built in:
//
//	o String   name
//	o Double   price
//	o Integer  count     // 32-bit
//	o Long     total     // 64-bit
//	o DateTime createdAt // RFC 3339 on the wire
//	o Boolean  active
//
// Every other type name refers to a class declaration.
//
// # Defaults
//
// A default value is checked against the declared type when the model is
// validated:
//
//	o Integer count default=0
//	o String  status default="open"
//	o Boolean active default=true
//
// # Validators
//
// String fields accept a regular expression, numeric fields a range with an
// optional open bound:
//
//	o String  code  regex=/^[A-Z]{3}$/
//	o Integer age   range=[0,150]
//	o Double  score range=[0.0,]
package field
