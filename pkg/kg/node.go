package kg

import (
	"encoding/json"
	"fmt"
	"path"
	"strings"
)

// Node is any instance stored in the graph.
type Node interface {
	// Type returns the openMINDS type IRI of the node.
	Type() string
	Instance() *Meta
}

// Meta carries the identity of a node. A node whose Space is empty has not
// been persisted yet.
type Meta struct {
	ID    string `json:"-"`
	Space string `json:"-"`

	relaxed map[string]bool
}

func (m *Meta) Instance() *Meta { return m }

// Persisted reports whether the node was loaded from or saved to a store.
func (m *Meta) Persisted() bool { return m.Space != "" }

// UUID returns the bare identifier of the node.
func (m *Meta) UUID() string { return UUIDFromURI(m.ID) }

// Option configures a node built by one of the New* constructors.
type Option func(*Meta)

// Relax lets the node be saved without the named required properties. It
// applies to the single node it is given to.
func Relax(fields ...string) Option {
	return func(m *Meta) {
		if m.relaxed == nil {
			m.relaxed = make(map[string]bool, len(fields))
		}

		for _, f := range fields {
			m.relaxed[f] = true
		}
	}
}

// WithID fixes the identifier of the node.
func WithID(id string) Option {
	return func(m *Meta) {
		if id != "" {
			m.ID = URIFromUUID(id)
		}
	}
}

func (m *Meta) apply(opts []Option) {
	for _, opt := range opts {
		opt(m)
	}
}

// parent is implemented by nodes that link to other nodes.
type parent interface {
	Links() []*Link
}

// checked is implemented by nodes with required properties. It returns the
// names of required properties that are empty.
type checked interface {
	missing() []string
}

// Children returns the links held by node, in declaration order.
func Children(node Node) []*Link {
	p, ok := node.(parent)
	if !ok {
		return nil
	}

	var out []*Link

	for _, l := range p.Links() {
		if l != nil {
			out = append(out, l)
		}
	}

	return out
}

// Validate checks that node carries every required property that was not
// relaxed when it was built.
func Validate(node Node) error {
	c, ok := node.(checked)
	if !ok {
		return nil
	}

	meta := node.Instance()

	var absent []string

	for _, field := range c.missing() {
		if !meta.relaxed[field] {
			absent = append(absent, field)
		}
	}

	if len(absent) == 0 {
		return nil
	}

	return &InstanceError{
		Op:  "validate",
		ID:  meta.ID,
		Err: fmt.Errorf("%w: %s requires %s", ErrStrictValidation, ShortType(node.Type()), strings.Join(absent, ", ")),
	}
}

// ShortType returns the last path segment of a type IRI.
func ShortType(typ string) string {
	return path.Base(typ)
}

// Link references another node. An attached link carries the node itself
// and is saved along with its parent; a proxy link only knows the target's
// identifier and must be resolved through a Store before it can be read.
type Link struct {
	ID   string
	Type string

	node Node
}

// Ref builds a proxy link.
func Ref(id, typ string) *Link {
	return &Link{ID: URIFromUUID(id), Type: typ}
}

// To builds a link attached to node.
func To(node Node) *Link {
	if node == nil {
		return nil
	}

	return &Link{ID: node.Instance().ID, Type: node.Type(), node: node}
}

// Node returns the attached node, or nil for an unresolved proxy.
func (l *Link) Node() Node {
	return l.node
}

// Attach binds a loaded node to the link.
func (l *Link) Attach(node Node) {
	l.node = node
	l.ID = node.Instance().ID
	l.Type = node.Type()
}

// Target returns the identifier of the referenced node.
func (l *Link) Target() string {
	if l.node != nil && l.node.Instance().ID != "" {
		return l.node.Instance().ID
	}

	return l.ID
}

type linkJSON struct {
	ID   string `json:"@id"`
	Type string `json:"@type,omitempty"`
}

func (l *Link) MarshalJSON() ([]byte, error) {
	id := l.Target()
	if id == "" {
		return nil, &InstanceError{Op: "encode", Err: fmt.Errorf("%w: link to unsaved %s", ErrUnresolvedLink, ShortType(l.Type))}
	}

	return json.Marshal(linkJSON{ID: id, Type: l.Type})
}

func (l *Link) UnmarshalJSON(data []byte) error {
	var raw struct {
		ID   string    `json:"@id"`
		Type typeField `json:"@type"`
	}

	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	l.ID = raw.ID
	l.Type = string(raw.Type)
	l.node = nil

	return nil
}

// Resolved returns the node behind link without touching a store. It fails
// with ErrUnresolvedLink for proxies.
func Resolved[T Node](l *Link) (T, error) {
	var zero T

	if l == nil || l.node == nil {
		id := ""
		if l != nil {
			id = l.ID
		}

		return zero, &InstanceError{Op: "read", ID: id, Err: ErrUnresolvedLink}
	}

	n, ok := l.node.(T)
	if !ok {
		return zero, &InstanceError{Op: "read", ID: l.ID, Err: fmt.Errorf("%w: %s", ErrUnexpectedType, ShortType(l.node.Type()))}
	}

	return n, nil
}
