package postgres

import (
	"context"
	"errors"
	"fmt"
	"net"
	"strings"

	"github.com/jackc/pgconn"
	"github.com/lib/pq"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
)

// SQLSTATE codes the engine cares about.
const (
	codeDuplicateObject       = "42710"
	codeInsufficientPrivilege = "42501"
	codeInvalidPassword       = "28P01"
	codeInvalidAuthorization  = "28000"
	codeUndefinedObject       = "42704"
	codeAdminShutdown         = "57P01"
	codeCrashShutdown         = "57P02"
	codeCannotConnectNow      = "57P03"
)

// sqlState extracts the SQLSTATE from a pgx or lib/pq error.
func sqlState(err error) string {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		return string(pqErr.Code)
	}
	return ""
}

// classify wraps driver errors with the matching bootstrap sentinel.
func classify(err error) error {
	if err == nil {
		return nil
	}

	code := sqlState(err)
	switch {
	case code == codeDuplicateObject:
		return fmt.Errorf("%w: %v", bootstrap.ErrDuplicatePrincipal, err)
	case code == codeInvalidPassword || code == codeInvalidAuthorization:
		return fmt.Errorf("%w: %v", bootstrap.ErrAuthentication, err)
	case code == codeUndefinedObject:
		return fmt.Errorf("%w: %v", bootstrap.ErrPrincipalNotFound, err)
	case strings.HasPrefix(code, "08"),
		code == codeAdminShutdown, code == codeCrashShutdown, code == codeCannotConnectNow:
		return fmt.Errorf("%w: %v", bootstrap.ErrConnectivity, err)
	case code != "":
		return err
	}

	var netErr net.Error
	if errors.As(err, &netErr) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", bootstrap.ErrConnectivity, err)
	}
	if strings.Contains(err.Error(), "failed to connect") {
		return fmt.Errorf("%w: %v", bootstrap.ErrConnectivity, err)
	}
	return err
}
