package introspect

// Parameters is the argument bag passed through a traversal. Code
// generators find their FileWriter under the "fileWriter" key.
type Parameters map[string]any

// Visitor processes nodes of the model graph. Implementations switch on the
// dynamic type of node and must return a *concerto.UnrecognisedTypeError for
// types they do not handle.
type Visitor interface {
	Visit(node any, params Parameters) (any, error)
}

// The VisitorFunc type is an adapter to allow the use of ordinary functions
// as visitors.
type VisitorFunc func(node any, params Parameters) (any, error)

// Visit calls f(node, params).
func (f VisitorFunc) Visit(node any, params Parameters) (any, error) {
	return f(node, params)
}

// Acceptor is implemented by every node of the model graph.
type Acceptor interface {
	Accept(v Visitor, params Parameters) (any, error)
}

var (
	_ Acceptor = (*ModelManager)(nil)
	_ Acceptor = (*ModelFile)(nil)
	_ Acceptor = (*ClassDeclaration)(nil)
	_ Acceptor = (*Field)(nil)
	_ Acceptor = (*Relationship)(nil)
	_ Acceptor = (*EnumValue)(nil)
	_ Acceptor = (*BaseDecorator)(nil)
	_ Acceptor = (*ReturnsDecorator)(nil)
	_ Acceptor = (*Introspector)(nil)
)
