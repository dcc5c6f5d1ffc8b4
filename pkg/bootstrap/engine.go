package bootstrap

import "context"

// Engine provisions principals on one kind of database server.
type Engine interface {
	// Name returns the engine name (e.g., "mongo", "postgres")
	Name() string

	// Open authenticates an administrative session
	Open(ctx context.Context, admin AdminCredential) (Session, error)

	// Probe connects as cred to database and reports what it can do there
	Probe(ctx context.Context, database string, cred Credential) (*Probe, error)
}

// Session is an open administrative connection.
type Session interface {
	// Database selects a target logical database
	Database(ctx context.Context, name string) (Database, error)

	Close(ctx context.Context) error
}

// Database manages principals scoped to one logical database.
type Database interface {
	Name() string

	// CreateUser returns an error wrapping ErrDuplicatePrincipal if the user exists
	CreateUser(ctx context.Context, cred Credential) error

	// FindUser returns the user's role grants; Password is left empty.
	// It returns an error wrapping ErrPrincipalNotFound if the user does not exist.
	FindUser(ctx context.Context, username string) (*Credential, error)

	// DropUser returns an error wrapping ErrPrincipalNotFound if the user does not exist
	DropUser(ctx context.Context, username string) error
}

// Probe is what an application credential was observed to be allowed to do.
type Probe struct {
	Authenticated bool `json:"authenticated"`
	CanRead       bool `json:"can_read"`
	CanWrite      bool `json:"can_write"`
	// AdminDenied is true when an administrative operation was refused.
	AdminDenied bool `json:"admin_denied"`
}

// OK reports whether the credential behaves like a readWrite principal.
func (p *Probe) OK() bool {
	return p != nil && p.Authenticated && p.CanRead && p.CanWrite && p.AdminDenied
}
