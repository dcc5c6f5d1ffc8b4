package postgres

import (
	"context"
	"fmt"
	"log"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
	"github.com/doodlesbykumbi/dbinit/pkg/db"
)

// Session is an administrative connection to the maintenance database plus
// one connection per selected target database.
type Session struct {
	engine    *Engine
	admin     bootstrap.AdminCredential
	cluster   *gorm.DB
	databases map[string]*gorm.DB
}

// Database selects name, creating it if it does not exist yet.
func (s *Session) Database(ctx context.Context, name string) (bootstrap.Database, error) {
	if conn, ok := s.databases[name]; ok {
		return &Database{name: name, cluster: s.cluster, conn: conn}, nil
	}

	if err := s.ensureDatabase(ctx, name); err != nil {
		return nil, err
	}

	conn, err := s.engine.open(ctx, s.admin.Username, s.admin.Password, name)
	if err != nil {
		return nil, err
	}
	s.databases[name] = conn
	return &Database{name: name, cluster: s.cluster, conn: conn}, nil
}

func (s *Session) ensureDatabase(ctx context.Context, name string) error {
	var exists bool
	err := s.cluster.WithContext(ctx).
		Raw(`SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = ?)`, name).
		Row().Scan(&exists)
	if err != nil {
		return classify(err)
	}
	if exists {
		return nil
	}

	log.Printf("postgres: creating database %s", name)
	if err := s.cluster.WithContext(ctx).Exec(fmt.Sprintf("CREATE DATABASE %s", pq.QuoteIdentifier(name))).Error; err != nil {
		return classify(err)
	}
	return nil
}

// Close closes every connection the session opened.
func (s *Session) Close(ctx context.Context) error {
	var firstErr error
	for name, conn := range s.databases {
		if err := db.Close(conn); err != nil && firstErr == nil {
			firstErr = err
		}
		delete(s.databases, name)
	}
	if err := db.Close(s.cluster); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}
