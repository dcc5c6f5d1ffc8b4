package postgres

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
	"github.com/doodlesbykumbi/dbinit/pkg/db"
)

const Name = "postgres"

var (
	_ bootstrap.Engine   = (*Engine)(nil)
	_ bootstrap.Session  = (*Session)(nil)
	_ bootstrap.Database = (*Database)(nil)
)

// Config holds the server address shared by every connection the engine opens.
type Config struct {
	URL            string
	ConnectTimeout time.Duration
}

// Engine provisions login roles on a PostgreSQL cluster. A principal exists on
// a database when its role holds an explicit CONNECT grant there.
type Engine struct {
	config  Config
	connect func(db.Config) (*gorm.DB, error)
}

// New creates a PostgreSQL engine.
func New(config Config) *Engine {
	return &Engine{config: config, connect: db.Connect}
}

func (e *Engine) Name() string {
	return Name
}

func (e *Engine) open(ctx context.Context, username, password, database string) (*gorm.DB, error) {
	conn, err := e.connect(db.Config{
		URL:            e.config.URL,
		Username:       username,
		Password:       password,
		Database:       database,
		ConnectTimeout: e.config.ConnectTimeout,
	})
	if err != nil {
		return nil, classify(err)
	}

	sqlDB, err := conn.DB()
	if err != nil {
		return nil, err
	}
	if err := sqlDB.PingContext(ctx); err != nil {
		_ = sqlDB.Close()
		return nil, classify(err)
	}
	return conn.WithContext(ctx), nil
}

// Open connects as the admin principal to its source database.
func (e *Engine) Open(ctx context.Context, admin bootstrap.AdminCredential) (bootstrap.Session, error) {
	conn, err := e.open(ctx, admin.Username, admin.Password, admin.Source)
	if err != nil {
		return nil, err
	}
	return &Session{engine: e, admin: admin, cluster: conn, databases: map[string]*gorm.DB{}}, nil
}
