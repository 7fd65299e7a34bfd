// Package catalog stores the directory of scrape targets: the servers the
// service knows how to talk to and the creator profiles tracked across them.
// The repository interface decouples the API from the backing store so the
// same endpoints serve a seeded in-memory catalog or Postgres.
package catalog

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound signals that the requested record does not exist.
var ErrNotFound = errors.New("catalog record not found")

// Server is one registered scrape target.
type Server struct {
	ID      string    `json:"id"`
	Name    string    `json:"name"`
	BaseURL string    `json:"base_url"`
	Kind    string    `json:"kind"`
	Enabled bool      `json:"enabled"`
	AddedAt time.Time `json:"added_at"`
}

// Model is one tracked creator profile, with the per-site usernames it goes
// by.
type Model struct {
	ID      string            `json:"id"`
	Name    string            `json:"name"`
	Aliases map[string]string `json:"aliases,omitempty"` // site -> username
	AddedAt time.Time         `json:"added_at"`
}

// Repository is the read surface the API serves.
type Repository interface {
	ListServers(ctx context.Context) ([]Server, error)
	GetServer(ctx context.Context, id string) (Server, error)
	ListModels(ctx context.Context) ([]Model, error)
	GetModel(ctx context.Context, id string) (Model, error)
	Close()
}
