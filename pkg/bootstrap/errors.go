package bootstrap

import "errors"

var (
	ErrDuplicatePrincipal = errors.New("principal already exists")
	ErrAuthentication     = errors.New("authentication failed")
	ErrConnectivity       = errors.New("server unreachable")
	ErrPrincipalNotFound  = errors.New("principal not found")
)

// IsRetryable reports whether err is worth another connection attempt.
// Only connectivity failures are; a rejected password stays rejected.
func IsRetryable(err error) bool {
	return err != nil && errors.Is(err, ErrConnectivity) && !errors.Is(err, ErrAuthentication)
}
