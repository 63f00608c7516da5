// Package postgres provides a PostgreSQL-backed knowledge graph store. Each
// instance is one row holding its JSON-LD document; private spaces are kept
// under "_private/<username>".
package postgres

import (
	"bytes"
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/ebrains-prov/provenance-api/pkg/kg"
	"github.com/lib/pq"
)

const privatePrefix = "_private/"

var releasedSpaces = []string{"common", "controlled"}

// Connector hands out stores sharing one database.
type Connector struct {
	db       *sql.DB
	logger   *slog.Logger
	accounts kg.AccountFunc
}

// NewConnector opens databaseURL and migrates the schema.
func NewConnector(ctx context.Context, logger *slog.Logger, databaseURL string, accounts kg.AccountFunc) (*Connector, error) {
	database, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to PostgreSQL database: %w", err)
	}

	if err := database.PingContext(ctx); err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	if err := NewMigrationManager(logger, database, migrations()).RunMigrations(ctx); err != nil {
		_ = database.Close()

		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return &Connector{db: database, logger: logger, accounts: accounts}, nil
}

func (c *Connector) Close() error {
	if err := c.db.Close(); err != nil {
		return fmt.Errorf("failed to close database connection: %w", err)
	}

	return nil
}

// HealthCheck verifies the database connection is healthy.
func (c *Connector) HealthCheck(ctx context.Context) error {
	if err := c.db.PingContext(ctx); err != nil {
		return fmt.Errorf("%w: failed to ping database: %v", kg.ErrUpstream, err)
	}

	return nil
}

func (c *Connector) ForToken(token string) kg.Store {
	return &Store{Connector: c, token: token}
}

// Store is a database-backed kg.Store bound to one user.
type Store struct {
	*Connector

	token string
}

func (s *Store) Account(ctx context.Context) (*kg.Account, error) {
	if s.accounts == nil {
		return nil, errors.New("postgres store: no account resolver configured")
	}

	return s.accounts(ctx, s.token)
}

func (s *Store) privateSpace(ctx context.Context) (string, error) {
	account, err := s.Account(ctx)
	if err != nil {
		return "", err
	}

	return privatePrefix + account.Username, nil
}

// column maps a space name to the value stored in the space column.
func (s *Store) column(ctx context.Context, space string) (string, error) {
	switch {
	case space == "":
		return "", errors.New("postgres store: space is required")
	case space == kg.MySpace:
		return s.privateSpace(ctx)
	case strings.HasPrefix(space, privatePrefix):
		return "", fmt.Errorf("postgres store: invalid space %q", space)
	default:
		return space, nil
	}
}

// visibleSpaces lists the space column values readable under scope.
func (s *Store) visibleSpaces(ctx context.Context, space string, scope kg.Scope) ([]string, error) {
	if scope == kg.ScopeReleased {
		if space == "" {
			return releasedSpaces, nil
		}

		for _, released := range releasedSpaces {
			if released == space {
				return []string{space}, nil
			}
		}

		return nil, nil
	}

	if space != "" {
		column, err := s.column(ctx, space)
		if err != nil {
			return nil, err
		}

		return []string{column}, nil
	}

	spaces, err := s.Spaces(ctx)
	if err != nil {
		return nil, err
	}

	for i, name := range spaces {
		if name == kg.MySpace {
			if spaces[i], err = s.privateSpace(ctx); err != nil {
				return nil, err
			}
		}
	}

	return spaces, nil
}

func (s *Store) Spaces(ctx context.Context) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT DISTINCT space FROM instances WHERE space NOT LIKE $1 ORDER BY space", `\_private/%`)
	if err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}
	defer rows.Close()

	spaces := []string{kg.MySpace}

	for rows.Next() {
		var space string
		if err := rows.Scan(&space); err != nil {
			return nil, fmt.Errorf("failed to scan space: %w", err)
		}

		spaces = append(spaces, space)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to list spaces: %w", err)
	}

	return spaces, nil
}

// ownPrivate returns the caller's private space among spaces, which only
// ever holds the caller's own.
func ownPrivate(spaces []string) string {
	for _, space := range spaces {
		if strings.HasPrefix(space, privatePrefix) {
			return space
		}
	}

	return ""
}

func (s *Store) decodeRow(space string, body []byte, private string) (map[string]any, error) {
	var doc map[string]any

	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()

	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("failed to unmarshal instance: %w", err)
	}

	if private != "" && space == private {
		space = kg.MySpace
	}

	doc[kg.SpaceKey] = space

	return doc, nil
}

func (s *Store) getDoc(ctx context.Context, id string, scope kg.Scope) (map[string]any, error) {
	id = kg.UUIDFromURI(id)

	spaces, err := s.visibleSpaces(ctx, "", scope)
	if err != nil {
		return nil, err
	}

	private := ownPrivate(spaces)

	var (
		space string
		body  []byte
	)

	err = s.db.QueryRowContext(ctx,
		"SELECT space, doc FROM instances WHERE id = $1 AND space = ANY($2)", id, pq.Array(spaces),
	).Scan(&space, &body)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, &kg.InstanceError{Op: "get", ID: id, Err: kg.ErrNotFound}
	}

	if err != nil {
		if pqErr := (*pq.Error)(nil); errors.As(err, &pqErr) && pqErr.Code.Name() == "invalid_text_representation" {
			return nil, &kg.InstanceError{Op: "get", ID: id, Err: kg.ErrNotFound}
		}

		return nil, &kg.InstanceError{Op: "get", ID: id, Err: err}
	}

	return s.decodeRow(space, body, private)
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

	space, err := s.column(ctx, opts.Space)
	if err != nil {
		return err
	}

	doc, err := kg.Encode(node)
	if err != nil {
		return err
	}

	delete(doc, kg.SpaceKey)

	body, err := json.Marshal(doc)
	if err != nil {
		return &kg.InstanceError{Op: "save", ID: meta.ID, Err: err}
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO instances (id, space, type, doc)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (id) DO UPDATE SET
			space = EXCLUDED.space,
			type = EXCLUDED.type,
			doc = EXCLUDED.doc,
			updated_at = NOW()
	`, meta.UUID(), space, node.Type(), body)
	if err != nil {
		return &kg.InstanceError{Op: "save", ID: meta.ID, Err: err}
	}

	meta.Space = opts.Space

	return nil
}

func (s *Store) Delete(ctx context.Context, node kg.Node) error {
	meta := node.Instance()

	spaces, err := s.visibleSpaces(ctx, "", kg.ScopeAny)
	if err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"DELETE FROM instances WHERE id = $1 AND space = ANY($2)", meta.UUID(), pq.Array(spaces))
	if err != nil {
		return &kg.InstanceError{Op: "delete", ID: meta.ID, Err: err}
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return &kg.InstanceError{Op: "delete", ID: meta.ID, Err: err}
	}

	if rowsAffected == 0 {
		return &kg.InstanceError{Op: "delete", ID: meta.ID, Err: kg.ErrNotFound}
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

// query loads every document of opts.Type in the visible spaces that
// matches the filters, ordered by identifier. Filters are evaluated in Go
// since they may cross links.
func (s *Store) query(ctx context.Context, opts kg.ListOptions) ([]map[string]any, error) {
	spaces, err := s.visibleSpaces(ctx, opts.Space, opts.Scope)
	if err != nil {
		return nil, err
	}

	if len(spaces) == 0 {
		return nil, nil
	}

	private := ownPrivate(spaces)

	rows, err := s.db.QueryContext(ctx,
		"SELECT space, doc FROM instances WHERE type = $1 AND space = ANY($2) ORDER BY id", opts.Type, pq.Array(spaces))
	if err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}
	defer rows.Close()

	var candidates []map[string]any

	for rows.Next() {
		var (
			space string
			body  []byte
		)

		if err := rows.Scan(&space, &body); err != nil {
			return nil, fmt.Errorf("failed to scan instance: %w", err)
		}

		doc, err := s.decodeRow(space, body, private)
		if err != nil {
			return nil, err
		}

		candidates = append(candidates, doc)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to query instances: %w", err)
	}

	docs := candidates[:0]

	for _, doc := range candidates {
		ok, err := kg.MatchFilters(ctx, doc, opts.Filters, func(ctx context.Context, id string) (map[string]any, error) {
			return s.getDoc(ctx, id, opts.Scope)
		})
		if err != nil {
			return nil, err
		}

		if ok {
			docs = append(docs, doc)
		}
	}

	return docs, nil
}
