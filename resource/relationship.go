package resource

import (
	"net/url"
	"strings"

	"github.com/cockroachdb/errors"

	"github.com/syssam/concerto/introspect"
)

// URIScheme prefixes every relationship URI.
const URIScheme = "resource:"

// Relationship is a typed pointer to an identified instance.
type Relationship struct {
	Namespace string
	Type      string
	ID        string
}

// FullyQualifiedType returns the fully qualified name of the target type.
func (r *Relationship) FullyQualifiedType() string {
	return introspect.FullyQualifiedName(r.Namespace, r.Type)
}

// FullyQualifiedIdentifier returns ns.Type#id.
func (r *Relationship) FullyQualifiedIdentifier() string {
	return r.FullyQualifiedType() + "#" + r.ID
}

// URI formats the relationship as resource:ns.Type#id.
func (r *Relationship) URI() string {
	return URIScheme + r.FullyQualifiedType() + "#" + url.PathEscape(r.ID)
}

// String implements fmt.Stringer.
func (r *Relationship) String() string {
	return "Relationship {id=" + r.FullyQualifiedIdentifier() + "}"
}

// ParseURI parses a relationship URI. A bare identifier is accepted when
// defaultNamespace and defaultType are given, which is how relationships
// were written before URIs carried the type.
func ParseURI(uri, defaultNamespace, defaultType string) (*Relationship, error) {
	rest, ok := strings.CutPrefix(uri, URIScheme)
	if !ok {
		if defaultNamespace == "" || defaultType == "" {
			return nil, errors.Newf("invalid URI %q: missing %s scheme and no default type", uri, URIScheme)
		}
		if uri == "" {
			return nil, errors.New("invalid URI: empty identifier")
		}
		return &Relationship{Namespace: defaultNamespace, Type: defaultType, ID: uri}, nil
	}
	fqn, rawID, ok := strings.Cut(rest, "#")
	if !ok || fqn == "" || rawID == "" {
		return nil, errors.Newf("invalid URI %q: expected %sns.Type#id", uri, URIScheme)
	}
	id, err := url.PathUnescape(rawID)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid URI %q", uri)
	}
	ns := introspect.NamespaceOf(fqn)
	if ns == "" {
		ns = defaultNamespace
	}
	return &Relationship{Namespace: ns, Type: introspect.ShortName(fqn), ID: id}, nil
}
