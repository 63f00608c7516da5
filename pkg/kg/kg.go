// Package kg models the knowledge graph that stores provenance records: its
// openMINDS-shaped object types, the links between them and the Store
// interface through which they are saved, resolved, listed and deleted.
package kg

import (
	"context"
	"strings"

	"github.com/google/uuid"
)

const (
	// InstancePrefix is prepended to a UUID to form an instance IRI.
	InstancePrefix = "https://kg.ebrains.eu/api/instances/"

	// VocabPrefix is the namespace of every openMINDS property name.
	VocabPrefix = "https://openminds.ebrains.eu/vocab/"

	// MySpace is the caller's private space.
	MySpace = "myspace"
)

// Scope selects which stage of the graph is visible to a lookup.
type Scope string

const (
	ScopeReleased   Scope = "released"
	ScopeInProgress Scope = "in progress"
	ScopeAny        Scope = "any"
)

// URIFromUUID turns a bare UUID into an instance IRI. Values that already are
// IRIs are returned unchanged.
func URIFromUUID(id string) string {
	if strings.HasPrefix(id, InstancePrefix) {
		return id
	}

	return InstancePrefix + id
}

// UUIDFromURI returns the UUID part of an instance IRI.
func UUIDFromURI(uri string) string {
	return strings.TrimPrefix(uri, InstancePrefix)
}

// NewID allocates a fresh instance IRI.
func NewID() string {
	return InstancePrefix + uuid.NewString()
}

// Account describes the user a store handle acts for.
type Account struct {
	Username   string
	GivenName  string
	FamilyName string
}

// SaveOptions controls how a node is written.
type SaveOptions struct {
	Space     string
	Recursive bool
	Replace   bool
}

// Filter restricts List results to instances whose property at Path holds
// Value. Path segments that cross a link are followed through the store.
type Filter struct {
	Path  []string
	Value string
}

// ListOptions selects a page of instances of one type.
type ListOptions struct {
	Type    string
	Space   string
	Scope   Scope
	Filters []Filter
	From    int
	Size    int
}

// Store is a handle on the knowledge graph acting for a single user.
type Store interface {
	// Save writes node into opts.Space. With Recursive set, every attached
	// child node that has not been persisted yet is saved first.
	Save(ctx context.Context, node Node, opts SaveOptions) error

	// Get loads the instance with the given UUID or IRI.
	Get(ctx context.Context, id string, scope Scope) (Node, error)

	// Resolve returns the node behind link, loading it if it is a proxy.
	Resolve(ctx context.Context, link *Link, scope Scope) (Node, error)

	List(ctx context.Context, opts ListOptions) ([]Node, error)
	Count(ctx context.Context, opts ListOptions) (int, error)
	Delete(ctx context.Context, node Node) error

	// Account reports who the handle acts for.
	Account(ctx context.Context) (*Account, error)

	// Spaces lists the spaces the account can read.
	Spaces(ctx context.Context) ([]string, error)
}

// Connector hands out store handles bound to a bearer token.
type Connector interface {
	ForToken(token string) Store
}

// Me returns the Person record of the account behind store. When no such
// record exists yet an unsaved Person is returned; saving the record that
// links to it persists it.
func Me(ctx context.Context, store Store) (*Person, error) {
	account, err := store.Account(ctx)
	if err != nil {
		return nil, err
	}

	person, err := FindPerson(ctx, store, account.GivenName, account.FamilyName, "")
	if err != nil {
		return nil, err
	}

	if person != nil {
		return person, nil
	}

	return &Person{GivenName: account.GivenName, FamilyName: account.FamilyName}, nil
}
