package kg

import (
	"context"
	"fmt"
)

// WriteFunc persists a single node whose identifier is already assigned.
type WriteFunc func(ctx context.Context, node Node, opts SaveOptions) error

// SaveTree validates node and writes it through write. With opts.Recursive
// set, attached children that were never persisted are written first, depth
// first, each into the same space. Children are always created, never
// replaced.
func SaveTree(ctx context.Context, node Node, opts SaveOptions, write WriteFunc) error {
	if opts.Recursive {
		childOpts := opts
		childOpts.Replace = false

		for _, link := range Children(node) {
			child := link.Node()
			if child == nil || child.Instance().Persisted() {
				continue
			}

			if err := SaveTree(ctx, child, childOpts, write); err != nil {
				return err
			}

			link.ID = child.Instance().ID
		}
	}

	if err := Validate(node); err != nil {
		return err
	}

	meta := node.Instance()
	if meta.ID == "" {
		meta.ID = NewID()
	}

	return write(ctx, node, opts)
}

// ResolveLink is the Resolve implementation shared by stores: attached links
// are returned as they are, proxies are loaded through get and attached.
func ResolveLink(ctx context.Context, link *Link, scope Scope, get func(context.Context, string, Scope) (Node, error)) (Node, error) {
	if link == nil {
		return nil, &InstanceError{Op: "resolve", Err: ErrUnresolvedLink}
	}

	if link.node != nil {
		return link.node, nil
	}

	node, err := get(ctx, link.ID, scope)
	if err != nil {
		return nil, err
	}

	link.Attach(node)

	return node, nil
}

// ResolveAs resolves link and checks the node has the expected Go type.
func ResolveAs[T Node](ctx context.Context, store Store, link *Link, scope Scope) (T, error) {
	var zero T

	node, err := store.Resolve(ctx, link, scope)
	if err != nil {
		return zero, err
	}

	typed, ok := node.(T)
	if !ok {
		return zero, &InstanceError{Op: "resolve", ID: link.ID, Err: fmt.Errorf("%w: %s", ErrUnexpectedType, ShortType(node.Type()))}
	}

	return typed, nil
}

// GetAs loads an instance and checks it has the expected node type IRI. A
// type mismatch is reported as ErrNotFound.
func GetAs(ctx context.Context, store Store, id, typ string, scope Scope) (Node, error) {
	node, err := store.Get(ctx, id, scope)
	if err != nil {
		return nil, err
	}

	if node.Type() != typ {
		return nil, &InstanceError{Op: "get", ID: id, Err: fmt.Errorf("%w: instance is a %s", ErrNotFound, ShortType(node.Type()))}
	}

	return node, nil
}
