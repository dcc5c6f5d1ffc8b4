package mongo

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/event"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
)

const Name = "mongo"

// Connection settings shared with the connector service's data layer.
const (
	ServerSelectionTimeout = 5 * time.Second
	DefaultConnectTimeout  = 10 * time.Second
	SocketTimeout          = 10 * time.Second
	MinPoolSize            = 5
	MaxPoolSize            = 50
)

// Config holds the server address and client settings.
type Config struct {
	URL            string
	ConnectTimeout time.Duration
	// Debug logs every command sent to the server.
	Debug bool
}

var (
	_ bootstrap.Engine   = (*Engine)(nil)
	_ bootstrap.Session  = (*Session)(nil)
	_ bootstrap.Database = (*Database)(nil)
)

// Engine provisions users on a MongoDB deployment.
type Engine struct {
	config Config
}

// New creates a MongoDB engine.
func New(config Config) *Engine {
	return &Engine{config: config}
}

func (e *Engine) Name() string {
	return Name
}

// clientOptions builds client options authenticating as username against source.
func (e *Engine) clientOptions(username, password, source string) *options.ClientOptions {
	connectTimeout := e.config.ConnectTimeout
	if connectTimeout <= 0 {
		connectTimeout = DefaultConnectTimeout
	}

	opts := options.Client().
		ApplyURI(e.config.URL).
		SetAuth(options.Credential{
			AuthSource: source,
			Username:   username,
			Password:   password,
		}).
		SetServerSelectionTimeout(ServerSelectionTimeout).
		SetConnectTimeout(connectTimeout).
		SetSocketTimeout(SocketTimeout).
		SetMinPoolSize(MinPoolSize).
		SetMaxPoolSize(MaxPoolSize)

	if e.config.Debug {
		opts.SetMonitor(&event.CommandMonitor{
			Started: func(_ context.Context, evt *event.CommandStartedEvent) {
				log.Printf("mongo: %s on %s (request %d)", evt.CommandName, evt.DatabaseName, evt.RequestID)
			},
			Failed: func(_ context.Context, evt *event.CommandFailedEvent) {
				log.Printf("mongo: %s failed after %s: %v", evt.CommandName, evt.Duration, evt.Failure)
			},
		})
	}
	return opts
}

// connect opens a client and pings source so bad credentials fail here.
func (e *Engine) connect(ctx context.Context, username, password, source string) (*mongo.Client, error) {
	opts := e.clientOptions(username, password, source)
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return nil, classify(err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, classify(err)
	}
	if err := client.Database(source).RunCommand(ctx, bson.D{{Key: "ping", Value: 1}}).Err(); err != nil {
		_ = client.Disconnect(context.WithoutCancel(ctx))
		return nil, classify(err)
	}
	return client, nil
}

// Open authenticates the admin principal against its source database.
func (e *Engine) Open(ctx context.Context, admin bootstrap.AdminCredential) (bootstrap.Session, error) {
	client, err := e.connect(ctx, admin.Username, admin.Password, admin.Source)
	if err != nil {
		return nil, err
	}
	return &Session{client: client}, nil
}

// Session is an authenticated administrative client.
type Session struct {
	client *mongo.Client
}

// Database selects name. MongoDB creates it lazily on first write.
func (s *Session) Database(ctx context.Context, name string) (bootstrap.Database, error) {
	return &Database{db: s.client.Database(name)}, nil
}

func (s *Session) Close(ctx context.Context) error {
	return s.client.Disconnect(ctx)
}
