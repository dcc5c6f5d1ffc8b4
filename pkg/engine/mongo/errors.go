package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver/topology"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
)

// Server error codes the engine cares about.
const (
	codeUserNotFound         = 11
	codeUnauthorized         = 13
	codeAuthenticationFailed = 18
	codeDuplicateKey         = 11000
	codeUserAlreadyExists    = 51003
)

func hasErrorCode(err error, codes ...int) bool {
	var serverErr mongo.ServerError
	if !errors.As(err, &serverErr) {
		return false
	}
	for _, code := range codes {
		if serverErr.HasErrorCode(code) {
			return true
		}
	}
	return false
}

// isAuthFailure also looks at the message, because handshake failures reach
// the caller wrapped in server selection errors without a server error code.
func isAuthFailure(err error) bool {
	if hasErrorCode(err, codeAuthenticationFailed) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "AuthenticationFailed") || strings.Contains(msg, "auth error")
}

func isConnectivityFailure(err error) bool {
	var selectionErr topology.ServerSelectionError
	return errors.As(err, &selectionErr) ||
		mongo.IsNetworkError(err) ||
		mongo.IsTimeout(err) ||
		errors.Is(err, context.DeadlineExceeded)
}

// classify wraps driver errors with the matching bootstrap sentinel.
func classify(err error) error {
	switch {
	case err == nil:
		return nil
	case hasErrorCode(err, codeUserAlreadyExists, codeDuplicateKey):
		return fmt.Errorf("%w: %v", bootstrap.ErrDuplicatePrincipal, err)
	case hasErrorCode(err, codeUserNotFound):
		return fmt.Errorf("%w: %v", bootstrap.ErrPrincipalNotFound, err)
	case isAuthFailure(err):
		return fmt.Errorf("%w: %v", bootstrap.ErrAuthentication, err)
	case isConnectivityFailure(err):
		return fmt.Errorf("%w: %v", bootstrap.ErrConnectivity, err)
	}
	return err
}
