package catalog

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// DB is the slice of pgxpool.Pool the store uses; pgxmock satisfies it in
// tests.
type DB interface {
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Close()
}

// Postgres implements Repository against the catalog_servers and
// catalog_models tables.
type Postgres struct {
	db DB
}

// NewPostgres connects a pool for the given DSN.
func NewPostgres(ctx context.Context, dsn string) (*Postgres, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("create catalog pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("ping catalog database: %w", err)
	}
	return &Postgres{db: pool}, nil
}

// NewPostgresWithDB wraps an existing connection; used by tests with pgxmock.
func NewPostgresWithDB(db DB) *Postgres {
	return &Postgres{db: db}
}

// Close releases the pool.
func (p *Postgres) Close() {
	p.db.Close()
}

// ListServers returns every server sorted by name.
func (p *Postgres) ListServers(ctx context.Context) ([]Server, error) {
	query := `
		SELECT id, name, base_url, kind, enabled, added_at
		FROM catalog_servers
		ORDER BY name;
	`
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list servers: %w", err)
	}
	defer rows.Close()

	var out []Server
	for rows.Next() {
		var s Server
		if err := rows.Scan(&s.ID, &s.Name, &s.BaseURL, &s.Kind, &s.Enabled, &s.AddedAt); err != nil {
			return nil, fmt.Errorf("scan server row: %w", err)
		}
		out = append(out, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate server rows: %w", err)
	}
	return out, nil
}

// GetServer loads one server or returns ErrNotFound.
func (p *Postgres) GetServer(ctx context.Context, id string) (Server, error) {
	query := `
		SELECT id, name, base_url, kind, enabled, added_at
		FROM catalog_servers
		WHERE id = $1;
	`
	var s Server
	err := p.db.QueryRow(ctx, query, id).Scan(&s.ID, &s.Name, &s.BaseURL, &s.Kind, &s.Enabled, &s.AddedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Server{}, ErrNotFound
		}
		return Server{}, fmt.Errorf("get server: %w", err)
	}
	return s, nil
}

// ListModels returns every model sorted by name. Aliases live in a JSONB
// column mapping site name to username.
func (p *Postgres) ListModels(ctx context.Context) ([]Model, error) {
	query := `
		SELECT id, name, aliases, added_at
		FROM catalog_models
		ORDER BY name;
	`
	rows, err := p.db.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list models: %w", err)
	}
	defer rows.Close()

	var out []Model
	for rows.Next() {
		m, err := scanModel(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate model rows: %w", err)
	}
	return out, nil
}

// GetModel loads one model or returns ErrNotFound.
func (p *Postgres) GetModel(ctx context.Context, id string) (Model, error) {
	query := `
		SELECT id, name, aliases, added_at
		FROM catalog_models
		WHERE id = $1;
	`
	m, err := scanModel(p.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Model{}, ErrNotFound
		}
		return Model{}, err
	}
	return m, nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanModel(row scannable) (Model, error) {
	var (
		m       Model
		aliases []byte
	)
	if err := row.Scan(&m.ID, &m.Name, &aliases, &m.AddedAt); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Model{}, pgx.ErrNoRows
		}
		return Model{}, fmt.Errorf("scan model row: %w", err)
	}
	if len(aliases) > 0 {
		if err := json.Unmarshal(aliases, &m.Aliases); err != nil {
			return Model{}, fmt.Errorf("parse model aliases: %w", err)
		}
	}
	return m, nil
}
