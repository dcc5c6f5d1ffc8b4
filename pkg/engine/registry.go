package engine

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"sync"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
	"github.com/doodlesbykumbi/dbinit/pkg/config"
	"github.com/doodlesbykumbi/dbinit/pkg/engine/mongo"
	"github.com/doodlesbykumbi/dbinit/pkg/engine/postgres"
)

// Factory builds an engine from configuration.
type Factory func(cfg *config.Config) bootstrap.Engine

// Registry holds the engine factories by name
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory under name, replacing any previous one
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// Get returns a factory by name
func (r *Registry) Get(name string) (Factory, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	factory, ok := r.factories[name]
	return factory, ok
}

// Installed returns the registered engine names, sorted
func (r *Registry) Installed() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds the engine cfg selects.
func (r *Registry) New(cfg *config.Config) (bootstrap.Engine, error) {
	factory, ok := r.Get(cfg.Engine.String())
	if !ok {
		return nil, fmt.Errorf("engine %q not installed (installed: %s)", cfg.Engine, strings.Join(r.Installed(), ", "))
	}
	return factory(cfg), nil
}

func debugEnabled() bool {
	return strings.EqualFold(os.Getenv("DBINIT_LOG_LEVEL"), "debug")
}

// NewDefaultRegistry returns a registry with the MongoDB and PostgreSQL engines.
func NewDefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(config.EngineMongo.String(), func(cfg *config.Config) bootstrap.Engine {
		return mongo.New(mongo.Config{
			URL:            cfg.DatabaseURL,
			ConnectTimeout: cfg.ConnectTimeoutDuration(),
			Debug:          debugEnabled(),
		})
	})
	r.Register(config.EnginePostgres.String(), func(cfg *config.Config) bootstrap.Engine {
		return postgres.New(postgres.Config{
			URL:            cfg.DatabaseURL,
			ConnectTimeout: cfg.ConnectTimeoutDuration(),
		})
	})
	return r
}

// DefaultRegistry is used by New and NewRunner.
var DefaultRegistry = NewDefaultRegistry()

// New builds the configured engine from the default registry.
func New(cfg *config.Config) (bootstrap.Engine, error) {
	return DefaultRegistry.New(cfg)
}
