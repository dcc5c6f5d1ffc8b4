// Package engine maps the configured engine name to a bootstrap.Engine and
// builds bootstrap runners from configuration.
//
// Supported engines:
//
//   - mongo: MongoDB users created with createUser (pkg/engine/mongo)
//   - postgres: PostgreSQL login roles with readWrite-equivalent grants (pkg/engine/postgres)
//
// # Debugging
//
// Set DBINIT_LOG_LEVEL=debug to log MongoDB commands or PostgreSQL statements.
package engine
