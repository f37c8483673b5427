package introspect

import (
	"strings"

	"github.com/syssam/concerto/schema/ast"
)

// Kind is the kind of a class declaration.
type Kind = ast.DeclarationKind

// Declaration kinds.
const (
	KindAsset       = ast.KindAsset
	KindParticipant = ast.KindParticipant
	KindTransaction = ast.KindTransaction
	KindEvent       = ast.KindEvent
	KindConcept     = ast.KindConcept
	KindEnum        = ast.KindEnum
)

// kindTitle returns the capitalised kind name used in error messages.
func kindTitle(k Kind) string {
	s := k.String()
	return strings.ToUpper(s[:1]) + s[1:]
}
