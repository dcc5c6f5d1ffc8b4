package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// Verification is the observed state of the application user on one database.
type Verification struct {
	Database   string      `json:"database"`
	Exists     bool        `json:"exists"`
	Roles      []RoleGrant `json:"roles"`
	RolesMatch bool        `json:"roles_match"`
	Probe      *Probe      `json:"probe,omitempty"`
	Error      string      `json:"error,omitempty"`
}

// OK reports whether the user exists with exactly readWrite and behaves accordingly.
func (v Verification) OK() bool {
	return v.Exists && v.RolesMatch && v.Probe.OK()
}

// Problems lists what is wrong, empty when OK.
func (v Verification) Problems() []string {
	var problems []string
	if v.Error != "" {
		problems = append(problems, v.Error)
	}
	if !v.Exists {
		return append(problems, "user does not exist")
	}
	if !v.RolesMatch {
		problems = append(problems, fmt.Sprintf("unexpected roles %v", v.Roles))
	}
	if v.Probe == nil {
		return problems
	}
	if !v.Probe.Authenticated {
		problems = append(problems, "cannot authenticate")
	}
	if v.Probe.Authenticated && !v.Probe.CanRead {
		problems = append(problems, "cannot read")
	}
	if v.Probe.Authenticated && !v.Probe.CanWrite {
		problems = append(problems, "cannot write")
	}
	if v.Probe.Authenticated && !v.Probe.AdminDenied {
		problems = append(problems, "administrative operation was allowed")
	}
	return problems
}

// Verify checks every target database and returns an error if any of them is not OK.
// Connectivity and authentication failures of the admin session are returned as-is.
func (r *Runner) Verify(ctx context.Context) ([]Verification, error) {
	if err := r.validate(); err != nil {
		return nil, err
	}

	session, err := r.connect(ctx)
	if err != nil {
		return nil, err
	}
	defer closeSession(ctx, session)

	var (
		results []Verification
		failed  []string
	)
	for _, name := range r.opts.Databases {
		v, err := r.verifyUser(ctx, session, name)
		if err != nil {
			return results, err
		}
		results = append(results, v)
		if !v.OK() {
			failed = append(failed, fmt.Sprintf("%s (%s)", name, strings.Join(v.Problems(), ", ")))
		}
	}

	if len(failed) > 0 {
		return results, fmt.Errorf("user %q failed verification on %s", r.opts.AppUser, strings.Join(failed, "; "))
	}
	return results, nil
}

func (r *Runner) verifyUser(ctx context.Context, session Session, name string) (Verification, error) {
	v := Verification{Database: name}

	db, err := session.Database(ctx, name)
	if err != nil {
		return v, fmt.Errorf("failed to select database %q: %w", name, err)
	}

	found, err := db.FindUser(ctx, r.opts.AppUser)
	if errors.Is(err, ErrPrincipalNotFound) {
		return v, nil
	}
	if err != nil {
		return v, fmt.Errorf("failed to look up user %q on %q: %w", r.opts.AppUser, name, err)
	}

	v.Exists = true
	v.Roles = found.Roles
	v.RolesMatch = found.HasExactRoles(RoleGrant{Role: RoleReadWrite, DB: name})

	cred := NewAppCredential(r.opts.AppUser, r.opts.AppPassword, name)
	probe, err := r.engine.Probe(ctx, name, cred)
	if err != nil && !errors.Is(err, ErrAuthentication) {
		v.Error = err.Error()
	}
	if probe == nil {
		probe = &Probe{}
	}
	v.Probe = probe
	return v, nil
}
