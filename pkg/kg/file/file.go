// Package file provides a file-backed knowledge graph store. Instances are
// JSON-LD documents laid out as <root>/<space>/<uuid>.json; the private
// space of each user lives under <root>/_private/<username>.
package file

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strings"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
)

const privateDir = "_private"

// Connector hands out file stores sharing one root directory.
type Connector struct {
	root     string
	accounts kg.AccountFunc
	released map[string]bool
}

// NewConnector creates a connector rooted at root. A "file://" prefix is
// accepted. Documents in the "common" and "controlled" spaces are treated
// as released.
func NewConnector(root string, accounts kg.AccountFunc) *Connector {
	return &Connector{
		root:     strings.Replace(root, "file://", "", 1),
		accounts: accounts,
		released: map[string]bool{"common": true, "controlled": true},
	}
}

// ForToken returns a store acting for the owner of token.
func (c *Connector) ForToken(token string) kg.Store {
	return &Store{Connector: c, token: token}
}

// Root returns the directory the connector writes to.
func (c *Connector) Root() string {
	return c.root
}

// HealthCheck verifies the root directory exists.
func (c *Connector) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(c.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Store is a file-backed kg.Store bound to one user.
type Store struct {
	*Connector

	token string
}

func (s *Store) Account(ctx context.Context) (*kg.Account, error) {
	if s.accounts == nil {
		return nil, fmt.Errorf("file store: no account resolver configured")
	}

	return s.accounts(ctx, s.token)
}

// dir maps a space name to its directory.
func (s *Store) dir(ctx context.Context, space string) (string, error) {
	if space == "" {
		return "", fmt.Errorf("file store: space is required")
	}

	if space != kg.MySpace {
		return filepath.Clean(path.Join(s.root, space)), nil
	}

	account, err := s.Account(ctx)
	if err != nil {
		return "", err
	}

	return filepath.Clean(path.Join(s.root, privateDir, account.Username)), nil
}

func (s *Store) Spaces(_ context.Context) ([]string, error) {
	entries, err := os.ReadDir(s.root)
	if err != nil && !os.IsNotExist(err) {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}

	spaces := []string{kg.MySpace}

	for _, entry := range entries {
		if entry.IsDir() && entry.Name() != privateDir {
			spaces = append(spaces, entry.Name())
		}
	}

	sort.Strings(spaces[1:])

	return spaces, nil
}

// locate finds the file holding the instance with the given UUID.
func (s *Store) locate(ctx context.Context, id string) (string, string, error) {
	spaces, err := s.Spaces(ctx)
	if err != nil {
		return "", "", err
	}

	for _, space := range spaces {
		dir, err := s.dir(ctx, space)
		if err != nil {
			return "", "", err
		}

		filePath := filepath.Join(dir, id+".json")
		if _, err := os.Stat(filePath); err == nil {
			return filePath, space, nil
		}
	}

	return "", "", &kg.InstanceError{Op: "get", ID: id, Err: kg.ErrNotFound}
}

func (s *Store) readDoc(filePath, space string) (map[string]any, error) {
	body, err := os.ReadFile(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read instance %s: %w", filePath, err)
	}

	var doc map[string]any

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance %s: %w", filePath, err)
	}

	doc[kg.SpaceKey] = space

	return doc, nil
}

func (s *Store) visible(space string, scope kg.Scope) bool {
	return scope != kg.ScopeReleased || s.released[space]
}

func (s *Store) getDoc(ctx context.Context, id string, scope kg.Scope) (map[string]any, error) {
	id = kg.UUIDFromURI(id)

	filePath, space, err := s.locate(ctx, id)
	if err != nil {
		return nil, err
	}

	if !s.visible(space, scope) {
		return nil, &kg.InstanceError{Op: "get", ID: id, Err: kg.ErrNotFound}
	}

	return s.readDoc(filePath, space)
}

func (s *Store) Get(ctx context.Context, id string, scope kg.Scope) (kg.Node, error) {
	doc, err := s.getDoc(ctx, id, scope)
	if err != nil {
		return nil, err
	}

	return kg.Decode(doc)
}

func (s *Store) Resolve(ctx context.Context, link *kg.Link, scope kg.Scope) (kg.Node, error) {
	return kg.ResolveLink(ctx, link, scope, s.Get)
}

func (s *Store) Save(ctx context.Context, node kg.Node, opts kg.SaveOptions) error {
	return kg.SaveTree(ctx, node, opts, s.write)
}

func (s *Store) write(ctx context.Context, node kg.Node, opts kg.SaveOptions) error {
	meta := node.Instance()

	dir, err := s.dir(ctx, opts.Space)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(dir, 0750); err != nil {
		return fmt.Errorf("failed to create space directory: %w", err)
	}

	doc, err := kg.Encode(node)
	if err != nil {
		return err
	}

	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return &kg.InstanceError{Op: "save", ID: meta.ID, Err: err}
	}

	filePath := filepath.Join(dir, meta.UUID()+".json")
	if err := os.WriteFile(filePath, data, 0600); err != nil {
		return &kg.InstanceError{Op: "save", ID: meta.ID, Err: err}
	}

	meta.Space = opts.Space

	return nil
}

func (s *Store) Delete(ctx context.Context, node kg.Node) error {
	meta := node.Instance()

	filePath, _, err := s.locate(ctx, meta.UUID())
	if err != nil {
		return err
	}

	if err := os.Remove(filePath); err != nil {
		return &kg.InstanceError{Op: "delete", ID: meta.ID, Err: err}
	}

	return nil
}

func (s *Store) List(ctx context.Context, opts kg.ListOptions) ([]kg.Node, error) {
	docs, err := s.query(ctx, opts)
	if err != nil {
		return nil, err
	}

	start := opts.From
	if start >= len(docs) {
		return []kg.Node{}, nil
	}

	end := len(docs)
	if opts.Size > 0 && start+opts.Size < end {
		end = start + opts.Size
	}

	nodes := make([]kg.Node, 0, end-start)

	for _, doc := range docs[start:end] {
		node, err := kg.Decode(doc)
		if err != nil {
			return nil, err
		}

		nodes = append(nodes, node)
	}

	return nodes, nil
}

func (s *Store) Count(ctx context.Context, opts kg.ListOptions) (int, error) {
	docs, err := s.query(ctx, opts)
	if err != nil {
		return 0, err
	}

	return len(docs), nil
}

// query loads every document of opts.Type matching the filters, ordered by
// identifier.
func (s *Store) query(ctx context.Context, opts kg.ListOptions) ([]map[string]any, error) {
	spaces := []string{opts.Space}
	if opts.Space == "" {
		var err error

		spaces, err = s.Spaces(ctx)
		if err != nil {
			return nil, err
		}
	}

	var docs []map[string]any

	for _, space := range spaces {
		if !s.visible(space, opts.Scope) {
			continue
		}

		dir, err := s.dir(ctx, space)
		if err != nil {
			return nil, err
		}

		jsonFiles, err := fs.Glob(os.DirFS(dir), "*.json")
		if err != nil {
			return nil, fmt.Errorf("failed to list instance files: %w", err)
		}

		for _, name := range jsonFiles {
			doc, err := s.readDoc(filepath.Join(dir, name), space)
			if err != nil {
				if errors.Is(err, fs.ErrNotExist) {
					continue
				}

				return nil, err
			}

			if kg.DocumentType(doc) != opts.Type {
				continue
			}

			ok, err := s.matches(ctx, doc, opts.Filters, opts.Scope)
			if err != nil {
				return nil, err
			}

			if ok {
				docs = append(docs, doc)
			}
		}
	}

	sort.Slice(docs, func(i, j int) bool {
		return fmt.Sprint(docs[i]["@id"]) < fmt.Sprint(docs[j]["@id"])
	})

	return docs, nil
}

func (s *Store) matches(ctx context.Context, doc map[string]any, filters []kg.Filter, scope kg.Scope) (bool, error) {
	return kg.MatchFilters(ctx, doc, filters, func(ctx context.Context, id string) (map[string]any, error) {
		return s.getDoc(ctx, id, scope)
	})
}
