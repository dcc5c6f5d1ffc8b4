// Package db opens PostgreSQL connections through GORM.
//
// The PostgreSQL engine connects several times with different identities:
// as the admin principal to the maintenance database, as the admin principal
// to each target database, and as the application principal when probing.
// Config carries the server URL plus the identity and database to use, which
// override whatever the URL contains.
//
// # Connection
//
//	database, err := db.Connect(db.Config{
//	    URL:      "postgres://localhost:5432/postgres?sslmode=disable",
//	    Username: "admin",
//	    Password: "password",
//	    Database: "inbox_connector_db",
//	})
//
// # Environment Variables
//
//   - DBINIT_LOG_LEVEL: Set to "debug" for SQL query logging
package db
