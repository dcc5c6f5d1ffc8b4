package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"gorm.io/gorm"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
)

const (
	roleStateQuery = `SELECT EXISTS (SELECT 1 FROM pg_roles WHERE rolname = ?),
	EXISTS (SELECT 1 FROM pg_database d CROSS JOIN LATERAL aclexplode(d.datacl) a JOIN pg_roles r ON r.oid = a.grantee
		WHERE d.datname = ? AND r.rolname = ? AND a.privilege_type = 'CONNECT')`

	// readWrite is the role's own default table privileges in public. Schema
	// USAGE alone says nothing: PUBLIC holds it before PostgreSQL 15.
	roleAttributesQuery = `SELECT r.rolsuper, r.rolcreaterole, r.rolcreatedb,
	(SELECT count(DISTINCT a.privilege_type) = 4 FROM pg_default_acl da
		JOIN pg_namespace n ON n.oid = da.defaclnamespace
		CROSS JOIN LATERAL aclexplode(da.defaclacl) a
		WHERE n.nspname = 'public' AND da.defaclobjtype = 'r' AND a.grantee = r.oid
			AND a.privilege_type IN ('SELECT', 'INSERT', 'UPDATE', 'DELETE'))
	FROM pg_roles r WHERE r.rolname = ?`

	membershipQuery = `SELECT g.rolname FROM pg_auth_members m
	JOIN pg_roles g ON g.oid = m.roleid JOIN pg_roles u ON u.oid = m.member
	WHERE u.rolname = ? ORDER BY g.rolname`

	connectGrantCountQuery = `SELECT count(*) FROM pg_database d CROSS JOIN LATERAL aclexplode(d.datacl) a JOIN pg_roles r ON r.oid = a.grantee
	WHERE r.rolname = ? AND a.privilege_type = 'CONNECT'`
)

// Database manages the application role's privileges on one database.
type Database struct {
	name    string
	cluster *gorm.DB
	conn    *gorm.DB
}

func (d *Database) Name() string {
	return d.name
}

func (d *Database) roleState(ctx context.Context, username string) (exists, granted bool, err error) {
	err = d.conn.WithContext(ctx).Raw(roleStateQuery, username, d.name, username).Row().Scan(&exists, &granted)
	if err != nil {
		return false, false, classify(err)
	}
	return exists, granted, nil
}

// CreateUser creates the login role, or resets the password of an existing one,
// and grants it readWrite on the database.
func (d *Database) CreateUser(ctx context.Context, cred bootstrap.Credential) error {
	for _, grant := range cred.Roles {
		if grant.Role != bootstrap.RoleReadWrite || grant.DB != d.name {
			return fmt.Errorf("unsupported role grant %s on database %q", grant, d.name)
		}
	}

	exists, granted, err := d.roleState(ctx, cred.Username)
	if err != nil {
		return err
	}
	if granted {
		return fmt.Errorf("%w: role %q already exists on database %q", bootstrap.ErrDuplicatePrincipal, cred.Username, d.name)
	}

	// A role reused from another database takes the configured password too.
	verb := "CREATE"
	if exists {
		verb = "ALTER"
	}
	stmt := fmt.Sprintf("%s ROLE %s WITH LOGIN PASSWORD %s", verb, pq.QuoteIdentifier(cred.Username), pq.QuoteLiteral(cred.Password))
	if err := d.cluster.WithContext(ctx).Exec(stmt).Error; err != nil {
		return classify(err)
	}

	return d.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range readWriteGrants(d.name, cred.Username) {
			if err := tx.Exec(stmt).Error; err != nil {
				return classify(err)
			}
		}
		return nil
	})
}

func readWriteGrants(database, username string) []string {
	role := pq.QuoteIdentifier(username)
	return []string{
		fmt.Sprintf("GRANT CONNECT ON DATABASE %s TO %s", pq.QuoteIdentifier(database), role),
		fmt.Sprintf("GRANT USAGE, CREATE ON SCHEMA public TO %s", role),
		fmt.Sprintf("GRANT SELECT, INSERT, UPDATE, DELETE ON ALL TABLES IN SCHEMA public TO %s", role),
		fmt.Sprintf("GRANT USAGE, SELECT, UPDATE ON ALL SEQUENCES IN SCHEMA public TO %s", role),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public GRANT SELECT, INSERT, UPDATE, DELETE ON TABLES TO %s", role),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public GRANT USAGE, SELECT, UPDATE ON SEQUENCES TO %s", role),
	}
}

func readWriteRevokes(database, username string) []string {
	role := pq.QuoteIdentifier(username)
	return []string{
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public REVOKE ALL ON TABLES FROM %s", role),
		fmt.Sprintf("ALTER DEFAULT PRIVILEGES IN SCHEMA public REVOKE ALL ON SEQUENCES FROM %s", role),
		fmt.Sprintf("REVOKE ALL ON ALL TABLES IN SCHEMA public FROM %s", role),
		fmt.Sprintf("REVOKE ALL ON ALL SEQUENCES IN SCHEMA public FROM %s", role),
		fmt.Sprintf("REVOKE ALL ON SCHEMA public FROM %s", role),
		fmt.Sprintf("REVOKE ALL ON DATABASE %s FROM %s", pq.QuoteIdentifier(database), role),
	}
}

// FindUser reports the role's grants as seen from this database. Cluster-wide
// attributes and memberships are reported with an empty DB.
func (d *Database) FindUser(ctx context.Context, username string) (*bootstrap.Credential, error) {
	exists, granted, err := d.roleState(ctx, username)
	if err != nil {
		return nil, err
	}
	if !exists || !granted {
		return nil, fmt.Errorf("%w: role %q on database %q", bootstrap.ErrPrincipalNotFound, username, d.name)
	}

	var super, createRole, createDB, readWrite bool
	err = d.conn.WithContext(ctx).Raw(roleAttributesQuery, username).Row().Scan(&super, &createRole, &createDB, &readWrite)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: role %q", bootstrap.ErrPrincipalNotFound, username)
	}
	if err != nil {
		return nil, classify(err)
	}

	cred := &bootstrap.Credential{Username: username}
	if readWrite {
		cred.Roles = append(cred.Roles, bootstrap.RoleGrant{Role: bootstrap.RoleReadWrite, DB: d.name})
	}
	attributes := []struct {
		name string
		set  bool
	}{{"superuser", super}, {"createrole", createRole}, {"createdb", createDB}}
	for _, attr := range attributes {
		if attr.set {
			cred.Roles = append(cred.Roles, bootstrap.RoleGrant{Role: attr.name})
		}
	}

	rows, err := d.conn.WithContext(ctx).Raw(membershipQuery, username).Rows()
	if err != nil {
		return nil, classify(err)
	}
	defer func() { _ = rows.Close() }()
	for rows.Next() {
		var group string
		if err := rows.Scan(&group); err != nil {
			return nil, err
		}
		cred.Roles = append(cred.Roles, bootstrap.RoleGrant{Role: group})
	}
	return cred, rows.Err()
}

// DropUser revokes the role's privileges on this database and drops the role
// once no database grants it CONNECT any more.
func (d *Database) DropUser(ctx context.Context, username string) error {
	exists, granted, err := d.roleState(ctx, username)
	if err != nil {
		return err
	}
	if !exists || !granted {
		return fmt.Errorf("%w: role %q on database %q", bootstrap.ErrPrincipalNotFound, username, d.name)
	}

	err = d.conn.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, stmt := range readWriteRevokes(d.name, username) {
			if err := tx.Exec(stmt).Error; err != nil {
				return classify(err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}

	var remaining int64
	if err := d.cluster.WithContext(ctx).Raw(connectGrantCountQuery, username).Row().Scan(&remaining); err != nil {
		return classify(err)
	}
	if remaining > 0 {
		return nil
	}
	return classify(d.cluster.WithContext(ctx).Exec(fmt.Sprintf("DROP ROLE %s", pq.QuoteIdentifier(username))).Error)
}
