package bootstrap

import (
	"context"
	"errors"
	"fmt"

	"github.com/doodlesbykumbi/dbinit/pkg/audit"
)

// Drop removes the application user from every target database. A user that
// is already gone is reported and skipped.
func (r *Runner) Drop(ctx context.Context) (*Result, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	session, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSession(ctx, session)

	result := &Result{}
	for _, name := range r.opts.Databases {
		event := audit.UserDropEvent{
			AdminUser: r.admin.Username,
			User:      r.opts.AppUser,
			Database:  name,
		}

		db, err := session.Database(ctx, name)
		if err == nil {
			err = db.DropUser(ctx, r.opts.AppUser)
		}

		switch {
		case err == nil:
			event.Success = true
			r.audit(event)
			fmt.Fprintf(r.out, "User %s dropped from %s\n", r.opts.AppUser, name)
			result.Outcomes = append(result.Outcomes, Outcome{Database: name, Dropped: true})
		case errors.Is(err, ErrPrincipalNotFound):
			fmt.Fprintf(r.out, "User %s not found on %s\n", r.opts.AppUser, name)
			result.Outcomes = append(result.Outcomes, Outcome{Database: name})
		default:
			event.ErrorMessage = err.Error()
			r.audit(event)
			return result, fmt.Errorf("failed to drop user %q from %q: %w", r.opts.AppUser, name, err)
		}
	}
	return result, nil
}
