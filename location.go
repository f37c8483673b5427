package concerto

import "fmt"

// Position is a point in schema source text. Line and Column are 1-based,
// Offset is the 0-based byte offset.
type Position struct {
	Line   int `json:"line" msgpack:"line"`
	Column int `json:"column" msgpack:"column"`
	Offset int `json:"offset" msgpack:"offset"`
}

// Location is a half-open range of source text.
type Location struct {
	Start Position `json:"start" msgpack:"start"`
	End   Position `json:"end" msgpack:"end"`
}

// IsZero reports whether the location carries no position information.
func (l Location) IsZero() bool {
	return l.Start.Line == 0 && l.End.Line == 0
}

// String formats the location as "line L column C, to line L column C.".
func (l Location) String() string {
	return fmt.Sprintf("line %d column %d, to line %d column %d.",
		l.Start.Line, l.Start.Column, l.End.Line, l.End.Column)
}
