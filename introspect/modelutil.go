package introspect

import (
	"strings"

	"github.com/syssam/concerto/schema/field"
)

// SystemNamespace is the reserved namespace of the built-in system model.
const SystemNamespace = "org.hyperledger.composer.system"

// ShortName returns the last segment of a fully qualified name.
func ShortName(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[i+1:]
	}
	return fqn
}

// NamespaceOf returns the namespace of a fully qualified name, or the empty
// string for a short name.
func NamespaceOf(fqn string) string {
	if i := strings.LastIndexByte(fqn, '.'); i >= 0 {
		return fqn[:i]
	}
	return ""
}

// FullyQualifiedName joins a namespace and a short type name.
func FullyQualifiedName(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "." + name
}

// IsWildcardName reports whether name is a wildcard import such as org.acme.*.
func IsWildcardName(name string) bool {
	return ShortName(name) == "*"
}

// IsRecursiveWildcardName reports whether name is a recursive wildcard
// import such as org.acme.**.
func IsRecursiveWildcardName(name string) bool {
	return ShortName(name) == "**"
}

// IsPrimitiveType reports whether name is one of the built-in primitive types.
func IsPrimitiveType(name string) bool {
	return field.IsPrimitive(name)
}

// IsSystemNamespace reports whether ns is the reserved system namespace.
func IsSystemNamespace(ns string) bool {
	return ns == SystemNamespace
}

// IsAssignableTo reports whether an instance of typeName, resolved from mf,
// may be stored in p: the types match or typeName extends the type of p.
func IsAssignableTo(mf *ModelFile, typeName string, p Property) bool {
	target := p.FullyQualifiedTypeName()
	if typeName == target || IsPrimitiveType(typeName) || IsPrimitiveType(target) {
		return typeName == target
	}
	cd := mf.Type(typeName)
	if cd == nil {
		return false
	}
	for _, st := range cd.AllSuperTypeDeclarations() {
		if st.FullyQualifiedName() == target {
			return true
		}
	}
	return false
}
