// Package app assembles the stores shared by the server and the operator CLI.
package app

import (
	"context"
	"database/sql"
	"fmt"

	"credential-gate/internal/config"
	"credential-gate/internal/repository"
	"credential-gate/internal/repository/postgres"
	"credential-gate/internal/repository/sqlite"
)

// Stores bundles the repositories for the configured database driver.
type Stores struct {
	DB       *sql.DB
	Users    repository.UserRepository
	Sessions repository.SessionRepository
}

// OpenStores opens the configured database and prepares its schema.
func OpenStores(ctx context.Context, cfg config.Config) (*Stores, error) {
	var (
		db  *sql.DB
		err error
		s   Stores
	)
	switch cfg.Database.Driver {
	case config.DriverPostgres:
		db, err = postgres.Open(ctx, cfg.Database.DSN)
		if err != nil {
			return nil, err
		}
		s = Stores{DB: db, Users: postgres.NewUserRepository(db), Sessions: postgres.NewSessionRepository(db)}
	case config.DriverSQLite:
		db, err = sqlite.Open(cfg.Database.Path)
		if err != nil {
			return nil, err
		}
		s = Stores{DB: db, Users: sqlite.NewUserRepository(db), Sessions: sqlite.NewSessionRepository(db)}
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}

	if err := s.Users.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init user repository: %w", err)
	}
	if err := s.Sessions.Init(ctx); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("init session repository: %w", err)
	}
	return &s, nil
}

// Close releases the database handle.
func (s *Stores) Close() error {
	return s.DB.Close()
}
