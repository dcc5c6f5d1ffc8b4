// Package bootstrap ensures an application principal exists on one or more
// target databases.
//
// The Runner opens an administrative session through an Engine, selects each
// target database and creates the application credential with a single
// readWrite role scoped to that database. A "principal already exists"
// failure is either reported on the output and skipped or returned, depending
// on Options.SuppressDuplicateError.
//
// Engines (MongoDB, PostgreSQL) live in pkg/engine and translate driver
// errors into the sentinels defined here:
//
//   - ErrDuplicatePrincipal: the credential already exists
//   - ErrAuthentication: the server rejected the credentials
//   - ErrConnectivity: the server could not be reached (retryable)
//   - ErrPrincipalNotFound: the credential does not exist
package bootstrap
