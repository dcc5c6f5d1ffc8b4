package integration

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/testcontainers/testcontainers-go"
	tcmongodb "github.com/testcontainers/testcontainers-go/modules/mongodb"
	tcpostgres "github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

const (
	adminUser     = "admin"
	adminPassword = "password"
)

// TestContext holds the database servers shared by all scenarios
type TestContext struct {
	MongoContainer    testcontainers.Container
	PostgresContainer testcontainers.Container

	// URLs carry no credentials; scenarios pass them through configuration.
	MongoURL    string
	PostgresURL string
}

// NewTestContext starts a MongoDB and a PostgreSQL container with admin/password superusers.
func NewTestContext(ctx context.Context) (*TestContext, error) {
	mongoContainer, err := tcmongodb.Run(ctx,
		"mongo:7",
		tcmongodb.WithUsername(adminUser),
		tcmongodb.WithPassword(adminPassword),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start mongodb container: %w", err)
	}

	mongoHost, err := mongoContainer.Host(ctx)
	if err != nil {
		_ = mongoContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mongodb host: %w", err)
	}
	mongoPort, err := mongoContainer.MappedPort(ctx, "27017")
	if err != nil {
		_ = mongoContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get mongodb port: %w", err)
	}

	pgContainer, err := tcpostgres.Run(ctx,
		"postgres:16-alpine",
		tcpostgres.WithDatabase("postgres"),
		tcpostgres.WithUsername(adminUser),
		tcpostgres.WithPassword(adminPassword),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		_ = mongoContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	pgHost, err := pgContainer.Host(ctx)
	if err != nil {
		_ = mongoContainer.Terminate(ctx)
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get postgres host: %w", err)
	}
	pgPort, err := pgContainer.MappedPort(ctx, "5432")
	if err != nil {
		_ = mongoContainer.Terminate(ctx)
		_ = pgContainer.Terminate(ctx)
		return nil, fmt.Errorf("failed to get postgres port: %w", err)
	}

	tc := &TestContext{
		MongoContainer:    mongoContainer,
		PostgresContainer: pgContainer,
		MongoURL:          fmt.Sprintf("mongodb://%s:%s", mongoHost, mongoPort.Port()),
		PostgresURL:       fmt.Sprintf("postgres://%s:%s/postgres?sslmode=disable", pgHost, pgPort.Port()),
	}
	log.Printf("MongoDB at %s, PostgreSQL at %s", tc.MongoURL, tc.PostgresURL)
	return tc, nil
}

// URL returns the server URL for engine.
func (tc *TestContext) URL(engine string) string {
	if engine == "postgres" {
		return tc.PostgresURL
	}
	return tc.MongoURL
}

// Close terminates the containers
func (tc *TestContext) Close(ctx context.Context) {
	if tc.MongoContainer != nil {
		_ = tc.MongoContainer.Terminate(ctx)
	}
	if tc.PostgresContainer != nil {
		_ = tc.PostgresContainer.Terminate(ctx)
	}
}
