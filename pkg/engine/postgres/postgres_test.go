package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"regexp"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/jackc/pgconn"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
	"github.com/doodlesbykumbi/dbinit/pkg/db"
)

func setupTestDB(t *testing.T) (*gorm.DB, sqlmock.Sqlmock) {
	mockDB, mock, err := sqlmock.New()
	require.NoError(t, err)

	gormDB, err := gorm.Open(
		postgres.New(postgres.Config{
			Conn:                 mockDB,
			PreferSimpleProtocol: true,
		}),
		&gorm.Config{
			Logger: logger.Default.LogMode(logger.Silent),
		},
	)
	require.NoError(t, err)

	return gormDB, mock
}

func testDatabase(t *testing.T, name string) (*Database, sqlmock.Sqlmock) {
	gormDB, mock := setupTestDB(t)
	return &Database{name: name, cluster: gormDB, conn: gormDB}, mock
}

func expectRoleState(mock sqlmock.Sqlmock, user, database string, exists, granted bool) {
	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM pg_roles WHERE rolname = \$1\)`).
		WithArgs(user, database, user).
		WillReturnRows(sqlmock.NewRows([]string{"exists", "granted"}).AddRow(exists, granted))
}

func expectStatements(mock sqlmock.Sqlmock, statements []string) {
	mock.ExpectBegin()
	for _, stmt := range statements {
		mock.ExpectExec(regexp.QuoteMeta(stmt)).WillReturnResult(sqlmock.NewResult(0, 0))
	}
	mock.ExpectCommit()
}

func TestEngineName(t *testing.T) {
	assert.Equal(t, "postgres", New(Config{}).Name())
}

func TestCreateUserFresh(t *testing.T) {
	database, mock := testDatabase(t, "inbox_connector_db")

	expectRoleState(mock, "app_user", "inbox_connector_db", false, false)
	mock.ExpectExec(regexp.QuoteMeta(`CREATE ROLE "app_user" WITH LOGIN PASSWORD 'app''password'`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	expectStatements(mock, readWriteGrants("inbox_connector_db", "app_user"))

	err := database.CreateUser(context.Background(), bootstrap.NewAppCredential("app_user", "app'password", "inbox_connector_db"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserRoleFromAnotherDatabase(t *testing.T) {
	database, mock := testDatabase(t, "tenant_2")

	expectRoleState(mock, "app_user", "tenant_2", true, false)
	mock.ExpectExec(regexp.QuoteMeta(`ALTER ROLE "app_user" WITH LOGIN PASSWORD 'new_password'`)).
		WillReturnResult(sqlmock.NewResult(0, 0))
	expectStatements(mock, readWriteGrants("tenant_2", "app_user"))

	err := database.CreateUser(context.Background(), bootstrap.NewAppCredential("app_user", "new_password", "tenant_2"))
	require.NoError(t, err)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserDuplicate(t *testing.T) {
	database, mock := testDatabase(t, "m365_connector")

	expectRoleState(mock, "app_user", "m365_connector", true, true)

	err := database.CreateUser(context.Background(), bootstrap.NewAppCredential("app_user", "app_password", "m365_connector"))
	require.ErrorIs(t, err, bootstrap.ErrDuplicatePrincipal)
	assert.Contains(t, err.Error(), `role "app_user" already exists on database "m365_connector"`)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestCreateUserRaceReportsDuplicate(t *testing.T) {
	database, mock := testDatabase(t, "m365_connector")

	expectRoleState(mock, "app_user", "m365_connector", false, false)
	mock.ExpectExec(`CREATE ROLE`).WillReturnError(&pq.Error{Code: "42710", Message: `role "app_user" already exists`})

	err := database.CreateUser(context.Background(), bootstrap.NewAppCredential("app_user", "app_password", "m365_connector"))
	require.ErrorIs(t, err, bootstrap.ErrDuplicatePrincipal)
}

func TestCreateUserRejectsOtherRoles(t *testing.T) {
	database, _ := testDatabase(t, "inbox_connector_db")

	cred := bootstrap.Credential{Username: "app_user", Roles: []bootstrap.RoleGrant{{Role: "dbOwner", DB: "inbox_connector_db"}}}
	assert.Error(t, database.CreateUser(context.Background(), cred))
}

func TestCreateUserGrantFailureRollsBack(t *testing.T) {
	database, mock := testDatabase(t, "inbox_connector_db")

	expectRoleState(mock, "app_user", "inbox_connector_db", true, false)
	mock.ExpectExec(`ALTER ROLE "app_user"`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectBegin()
	mock.ExpectExec(`GRANT CONNECT`).WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied for database"})
	mock.ExpectRollback()

	err := database.CreateUser(context.Background(), bootstrap.NewAppCredential("app_user", "app_password", "inbox_connector_db"))
	require.Error(t, err)
	assert.False(t, errors.Is(err, bootstrap.ErrDuplicatePrincipal))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUser(t *testing.T) {
	database, mock := testDatabase(t, "inbox_connector_db")

	expectRoleState(mock, "app_user", "inbox_connector_db", true, true)
	mock.ExpectQuery(`SELECT r.rolsuper, r.rolcreaterole, r.rolcreatedb`).
		WithArgs("app_user").
		WillReturnRows(sqlmock.NewRows([]string{"rolsuper", "rolcreaterole", "rolcreatedb", "read_write"}).AddRow(false, false, false, true))
	mock.ExpectQuery(`SELECT g.rolname FROM pg_auth_members`).
		WithArgs("app_user").
		WillReturnRows(sqlmock.NewRows([]string{"rolname"}))

	cred, err := database.FindUser(context.Background(), "app_user")
	require.NoError(t, err)
	assert.True(t, cred.HasExactRoles(bootstrap.RoleGrant{Role: "readWrite", DB: "inbox_connector_db"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserWithExtraPrivileges(t *testing.T) {
	database, mock := testDatabase(t, "inbox_connector_db")

	expectRoleState(mock, "app_user", "inbox_connector_db", true, true)
	mock.ExpectQuery(`SELECT r.rolsuper`).
		WillReturnRows(sqlmock.NewRows([]string{"rolsuper", "rolcreaterole", "rolcreatedb", "read_write"}).AddRow(false, true, false, true))
	mock.ExpectQuery(`SELECT g.rolname`).
		WillReturnRows(sqlmock.NewRows([]string{"rolname"}).AddRow("pg_read_all_data"))

	cred, err := database.FindUser(context.Background(), "app_user")
	require.NoError(t, err)
	assert.Equal(t, []bootstrap.RoleGrant{
		{Role: "readWrite", DB: "inbox_connector_db"},
		{Role: "createrole"},
		{Role: "pg_read_all_data"},
	}, cred.Roles)
}

func TestFindUserWithoutTableDefaults(t *testing.T) {
	database, mock := testDatabase(t, "inbox_connector_db")

	// CONNECT alone, as any role has on a pre-15 server with PUBLIC schema usage.
	expectRoleState(mock, "app_user", "inbox_connector_db", true, true)
	mock.ExpectQuery(`SELECT r.rolsuper, r.rolcreaterole, r.rolcreatedb,\s+\(SELECT count\(DISTINCT a.privilege_type\) = 4 FROM pg_default_acl`).
		WithArgs("app_user").
		WillReturnRows(sqlmock.NewRows([]string{"rolsuper", "rolcreaterole", "rolcreatedb", "read_write"}).AddRow(false, false, false, false))
	mock.ExpectQuery(`SELECT g.rolname`).
		WillReturnRows(sqlmock.NewRows([]string{"rolname"}))

	cred, err := database.FindUser(context.Background(), "app_user")
	require.NoError(t, err)
	assert.Empty(t, cred.Roles)
	assert.False(t, cred.HasExactRoles(bootstrap.RoleGrant{Role: "readWrite", DB: "inbox_connector_db"}))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestFindUserNotFound(t *testing.T) {
	database, mock := testDatabase(t, "inbox_connector_db")

	expectRoleState(mock, "app_user", "inbox_connector_db", true, false)

	_, err := database.FindUser(context.Background(), "app_user")
	require.ErrorIs(t, err, bootstrap.ErrPrincipalNotFound)
}

func TestDropUserKeepsRoleUsedElsewhere(t *testing.T) {
	database, mock := testDatabase(t, "inbox_connector_db")

	expectRoleState(mock, "app_user", "inbox_connector_db", true, true)
	expectStatements(mock, readWriteRevokes("inbox_connector_db", "app_user"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM pg_database`).
		WithArgs("app_user").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))

	require.NoError(t, database.DropUser(context.Background(), "app_user"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropUserDropsLastGrant(t *testing.T) {
	database, mock := testDatabase(t, "inbox_connector_db")

	expectRoleState(mock, "app_user", "inbox_connector_db", true, true)
	expectStatements(mock, readWriteRevokes("inbox_connector_db", "app_user"))
	mock.ExpectQuery(`SELECT count\(\*\) FROM pg_database`).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	mock.ExpectExec(regexp.QuoteMeta(`DROP ROLE "app_user"`)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, database.DropUser(context.Background(), "app_user"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestDropUserNotFound(t *testing.T) {
	database, mock := testDatabase(t, "inbox_connector_db")

	expectRoleState(mock, "app_user", "inbox_connector_db", false, false)

	err := database.DropUser(context.Background(), "app_user")
	require.ErrorIs(t, err, bootstrap.ErrPrincipalNotFound)
}

func TestSessionCreatesMissingDatabase(t *testing.T) {
	gormDB, mock := setupTestDB(t)
	session := &Session{cluster: gormDB, databases: map[string]*gorm.DB{}}

	mock.ExpectQuery(`SELECT EXISTS \(SELECT 1 FROM pg_database WHERE datname = \$1\)`).
		WithArgs("tenant_7").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	mock.ExpectExec(regexp.QuoteMeta(`CREATE DATABASE "tenant_7"`)).WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, session.ensureDatabase(context.Background(), "tenant_7"))
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineOpen(t *testing.T) {
	gormDB, mock := setupTestDB(t)

	var got db.Config
	engine := New(Config{URL: "postgres://db:5432/postgres"})
	engine.connect = func(cfg db.Config) (*gorm.DB, error) {
		got = cfg
		return gormDB, nil
	}

	session, err := engine.Open(context.Background(), bootstrap.AdminCredential{Username: "admin", Password: "password", Source: "postgres"})
	require.NoError(t, err)
	assert.NotNil(t, session)
	assert.Equal(t, "admin", got.Username)
	assert.Equal(t, "postgres", got.Database)
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestEngineOpenAuthenticationFailure(t *testing.T) {
	engine := New(Config{URL: "postgres://db:5432/postgres"})
	engine.connect = func(cfg db.Config) (*gorm.DB, error) {
		return nil, fmt.Errorf("failed to connect to database: %w", &pgconn.PgError{Code: "28P01", Message: "password authentication failed"})
	}

	_, err := engine.Open(context.Background(), bootstrap.AdminCredential{Username: "admin"})
	require.ErrorIs(t, err, bootstrap.ErrAuthentication)
	assert.False(t, bootstrap.IsRetryable(err))
}

func TestConnectRetriesWhileStartingUp(t *testing.T) {
	gormDB, _ := setupTestDB(t)

	attempts := 0
	engine := New(Config{URL: "postgres://db:5432/postgres"})
	engine.connect = func(cfg db.Config) (*gorm.DB, error) {
		attempts++
		if attempts == 1 {
			return nil, fmt.Errorf("failed to connect to database: %w",
				&pgconn.PgError{Severity: "FATAL", Code: "57P03", Message: "the database system is starting up"})
		}
		return gormDB, nil
	}

	retry := bootstrap.RetryConfig{InitialDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1, MaxRetries: 2}
	session, err := bootstrap.Connect(context.Background(), engine, bootstrap.AdminCredential{Username: "admin", Source: "postgres"}, retry)
	require.NoError(t, err)
	assert.NotNil(t, session)
	assert.Equal(t, 2, attempts)
}

func TestClassify(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want error
	}{
		{"duplicate", &pgconn.PgError{Code: "42710"}, bootstrap.ErrDuplicatePrincipal},
		{"duplicate lib/pq", &pq.Error{Code: "42710"}, bootstrap.ErrDuplicatePrincipal},
		{"bad password", &pgconn.PgError{Code: "28P01"}, bootstrap.ErrAuthentication},
		{"no such role", &pgconn.PgError{Code: "28000"}, bootstrap.ErrAuthentication},
		{"undefined role", &pq.Error{Code: "42704"}, bootstrap.ErrPrincipalNotFound},
		{"connection failure", &pgconn.PgError{Code: "08006"}, bootstrap.ErrConnectivity},
		{"starting up", &pgconn.PgError{Severity: "FATAL", Code: "57P03", Message: "the database system is starting up"}, bootstrap.ErrConnectivity},
		{"admin shutdown", &pgconn.PgError{Code: "57P01"}, bootstrap.ErrConnectivity},
		{"crash shutdown", &pq.Error{Code: "57P02"}, bootstrap.ErrConnectivity},
		{"dial", &net.OpError{Op: "dial", Net: "tcp", Err: errors.New("connection refused")}, bootstrap.ErrConnectivity},
		{"timeout", context.DeadlineExceeded, bootstrap.ErrConnectivity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.ErrorIs(t, classify(tt.err), tt.want)
		})
	}

	assert.Nil(t, classify(nil))

	other := &pgconn.PgError{Code: "42501"}
	assert.Equal(t, error(other), classify(other))

	assert.True(t, bootstrap.IsRetryable(classify(&pgconn.PgError{Code: "57P03"})))
	assert.False(t, bootstrap.IsRetryable(classify(&pgconn.PgError{Code: "28P01"})))
}

func TestRunProbe(t *testing.T) {
	gormDB, mock := setupTestDB(t)

	mock.ExpectExec(`CREATE TABLE IF NOT EXISTS dbinit_probe`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`INSERT INTO dbinit_probe`).WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(`SELECT count\(\*\) FROM dbinit_probe`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectExec(`DROP TABLE dbinit_probe`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`CREATE ROLE dbinit_probe_admin`).WillReturnError(&pgconn.PgError{Code: "42501", Message: "permission denied to create role"})

	probe := &bootstrap.Probe{Authenticated: true}
	runProbe(gormDB, probe)

	assert.True(t, probe.OK())
	assert.NoError(t, mock.ExpectationsWereMet())
}

func TestRunProbeAdminAllowed(t *testing.T) {
	gormDB, mock := setupTestDB(t)

	mock.ExpectExec(`CREATE TABLE`).WillReturnError(&pgconn.PgError{Code: "42501"})
	mock.ExpectExec(`CREATE ROLE dbinit_probe_admin`).WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectExec(`DROP ROLE dbinit_probe_admin`).WillReturnResult(sqlmock.NewResult(0, 0))

	probe := &bootstrap.Probe{Authenticated: true}
	runProbe(gormDB, probe)

	assert.False(t, probe.CanWrite)
	assert.False(t, probe.AdminDenied)
	assert.NoError(t, mock.ExpectationsWereMet())
}
