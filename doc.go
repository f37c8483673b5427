// Package concerto holds the error taxonomy and source locations shared by
// the schema parser, the introspection layer and the code generators.
//
// Errors are typed structs that match a sentinel through errors.Is:
//
//	mf, err := mm.AddModelFile(text, "car.cto")
//	switch {
//	case errors.Is(err, concerto.ErrParse):
//		// malformed text; err carries file and location
//	case errors.Is(err, concerto.ErrIllegalModel):
//		// semantic validation failure
//	}
package concerto
