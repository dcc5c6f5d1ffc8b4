// Command dbinitctl provisions the application database principal when a
// database environment starts.
//
// It runs as an init hook before the dependent application: it opens an
// administrative session, then ensures an application user with a single
// readWrite role exists on each target database. Re-running it is safe when
// duplicate suppression is enabled (the default "inbox" profile).
//
// # Quick Start
//
//	# MongoDB, inbox connector defaults
//	dbinitctl bootstrap
//
//	# M365 connector: fails if the user already exists
//	DBINIT_PROFILE=m365 dbinitctl bootstrap
//
//	# Extra tenant databases
//	dbinitctl bootstrap --tenant 42 --tenant 43
//
//	# Check the result
//	dbinitctl user verify
//
// # Encrypted configuration values
//
//	export DBINIT_DATA_KEY="$(dbinitctl data-key generate)"
//	dbinitctl secret encrypt app_password 's3cret'   # prints enc:...
//
// # Environment Variables
//
//   - DBINIT_ENGINE: mongo (default) or postgres
//   - DBINIT_PROFILE: inbox (default) or m365
//   - DBINIT_ENV: development (default) or production; production has no credential defaults
//   - DBINIT_DATABASE_URL: server URL (falls back to MONGODB_URL or DATABASE_URL)
//   - DBINIT_ADMIN_USER, DBINIT_ADMIN_PASSWORD, DBINIT_ADMIN_SOURCE: administrative identity
//   - DBINIT_TARGET_DB: comma-separated target databases
//   - DBINIT_APP_USER, DBINIT_APP_PASSWORD: application identity
//   - DBINIT_SUPPRESS_DUPLICATE_ERROR: true to report an existing user instead of failing
//   - DBINIT_CONNECT_RETRIES, DBINIT_CONNECT_TIMEOUT: connection policy
//   - DBINIT_CONFIG_PATH: directory holding dbinit.yml (default /etc/dbinit)
//   - DBINIT_DATA_KEY: Base64-encoded 256-bit key for enc: values
//   - DBINIT_AUDIT_ENABLED: false disables audit events on stderr
//   - AUDIT_DATABASE_URL: PostgreSQL database for persisted audit events
//   - DBINIT_LOG_LEVEL: debug logs driver commands
package main
