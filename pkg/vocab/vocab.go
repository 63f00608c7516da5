// Package vocab holds the controlled vocabularies the mappers translate
// names against: content types, units, hardware systems, organizations,
// repository types and action status types. A Registry is read concurrently
// and may be refreshed in place by a Refresher.
package vocab

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"golang.org/x/sync/errgroup"
)

// Types lists the vocabularies loaded by Load.
var Types = []string{
	kg.TypeContentType,
	kg.TypeUnitOfMeasurement,
	kg.TypeHardwareSystem,
	kg.TypeOrganization,
	kg.TypeFileRepositoryType,
	kg.TypeActionStatusType,
}

const pageSize = 1000

// Registry maps vocabulary names to graph instances and back.
type Registry struct {
	mu     sync.RWMutex
	byName map[string]map[string]kg.Node
	byID   map[string]kg.Node
}

// New builds a registry from nodes. Every node must carry an identifier.
func New(nodes ...kg.Node) *Registry {
	r := &Registry{
		byName: make(map[string]map[string]kg.Node),
		byID:   make(map[string]kg.Node),
	}

	for _, node := range nodes {
		r.add(node)
	}

	return r
}

func (r *Registry) add(node kg.Node) {
	name := nameOf(node)
	if name == "" {
		return
	}

	names, ok := r.byName[node.Type()]
	if !ok {
		names = make(map[string]kg.Node)
		r.byName[node.Type()] = names
	}

	names[name] = node
	r.byID[node.Instance().ID] = node
}

func nameOf(node kg.Node) string {
	switch n := node.(type) {
	case *kg.Term:
		return n.Name
	case *kg.Organization:
		if n.ShortName != "" {
			return n.ShortName
		}

		return n.FullName
	default:
		return ""
	}
}

// Load fetches every vocabulary in Types from store. Any failure aborts the
// whole load.
func Load(ctx context.Context, store kg.Store, logger *slog.Logger) (*Registry, error) {
	var (
		mu    sync.Mutex
		nodes []kg.Node
	)

	g, ctx := errgroup.WithContext(ctx)

	for _, typ := range Types {
		g.Go(func() error {
			loaded, err := loadType(ctx, store, typ)
			if err != nil {
				return fmt.Errorf("failed to load %s vocabulary: %w", kg.ShortType(typ), err)
			}

			logger.Debug("loaded vocabulary", "type", kg.ShortType(typ), "terms", len(loaded))

			mu.Lock()
			nodes = append(nodes, loaded...)
			mu.Unlock()

			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	r := New(nodes...)
	logger.InfoContext(ctx, "vocabularies loaded", "terms", len(r.byID))

	return r, nil
}

func loadType(ctx context.Context, store kg.Store, typ string) ([]kg.Node, error) {
	var all []kg.Node

	for from := 0; ; from += pageSize {
		page, err := store.List(ctx, kg.ListOptions{Type: typ, Scope: kg.ScopeReleased, From: from, Size: pageSize})
		if err != nil {
			return nil, err
		}

		all = append(all, page...)

		if len(page) < pageSize {
			return all, nil
		}
	}
}

// Replace swaps in the terms of other.
func (r *Registry) Replace(other *Registry) {
	other.mu.RLock()
	byName, byID := other.byName, other.byID
	other.mu.RUnlock()

	r.mu.Lock()
	r.byName, r.byID = byName, byID
	r.mu.Unlock()
}

// Ref returns a proxy link to the named term of vocabulary typ.
func (r *Registry) Ref(typ, name string) (*kg.Link, bool) {
	r.mu.RLock()
	node, ok := r.byName[typ][name]
	r.mu.RUnlock()

	if !ok {
		return nil, false
	}

	return kg.Ref(node.Instance().ID, typ), true
}

// Lookup returns the term with the given identifier.
func (r *Registry) Lookup(id string) (kg.Node, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	node, ok := r.byID[kg.URIFromUUID(id)]
	return node, ok
}

// Name returns the name of the term link points at.
func (r *Registry) Name(link *kg.Link) (string, bool) {
	if link == nil {
		return "", false
	}

	node, ok := r.Lookup(link.Target())
	if !ok {
		return "", false
	}

	return nameOf(node), true
}

// Names lists the names of vocabulary typ in sorted order.
func (r *Registry) Names(typ string) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.byName[typ]))
	for name := range r.byName[typ] {
		names = append(names, name)
	}

	sort.Strings(names)

	return names
}

// Len returns the number of terms across all vocabularies.
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return len(r.byID)
}

func (r *Registry) ContentType(name string) (*kg.Link, bool) {
	return r.Ref(kg.TypeContentType, name)
}

func (r *Registry) Unit(name string) (*kg.Link, bool) {
	return r.Ref(kg.TypeUnitOfMeasurement, name)
}

func (r *Registry) Hardware(name string) (*kg.Link, bool) {
	return r.Ref(kg.TypeHardwareSystem, name)
}

func (r *Registry) Organization(shortName string) (*kg.Link, bool) {
	return r.Ref(kg.TypeOrganization, shortName)
}

func (r *Registry) RepositoryType(name string) (*kg.Link, bool) {
	return r.Ref(kg.TypeFileRepositoryType, name)
}

func (r *Registry) ActionStatus(name string) (*kg.Link, bool) {
	return r.Ref(kg.TypeActionStatusType, name)
}
