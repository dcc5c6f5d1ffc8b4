package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/doodlesbykumbi/dbinit/pkg/audit"
)

// DuplicateNotice prefixes the line printed for a suppressed duplicate.
const DuplicateNotice = "User might already exist: "

// Options parameterize one bootstrap run.
type Options struct {
	Databases   []string
	AppUser     string
	AppPassword string

	SuppressDuplicateError bool

	// SuccessMessage is printed after each created user, CompletionMessage once at the end.
	SuccessMessage    string
	CompletionMessage string

	Retry RetryConfig
}

// Outcome is what happened on one target database.
type Outcome struct {
	Database string
	Created  bool
	Existed  bool
	Dropped  bool
}

// Result collects the outcomes of a run, in target order.
type Result struct {
	Outcomes []Outcome
}

// Runner drives an Engine through a bootstrap, verify or drop pass.
type Runner struct {
	engine Engine
	admin  AdminCredential
	opts   Options
	out    io.Writer
	audit  func(audit.Event)
}

// NewRunner creates a runner writing to stdout and the default audit log.
func NewRunner(engine Engine, admin AdminCredential, opts Options) *Runner {
	return &Runner{
		engine: engine,
		admin:  admin,
		opts:   opts,
		out:    os.Stdout,
		audit:  audit.Log,
	}
}

// SetOutput sets where the init hook's lines are written
func (r *Runner) SetOutput(w io.Writer) {
	r.out = w
}

// SetAuditor replaces the audit sink
func (r *Runner) SetAuditor(fn func(audit.Event)) {
	r.audit = fn
}

func (r *Runner) validate() error {
	if len(r.opts.Databases) == 0 {
		return errors.New("no target databases")
	}
	for _, name := range r.opts.Databases {
		if name == "" {
			return errors.New("target database name is empty")
		}
	}
	if r.opts.AppUser == "" {
		return errors.New("application user is empty")
	}
	return nil
}

// connect opens the administrative session and records the attempt.
func (r *Runner) connect(ctx context.Context) (Session, error) {
	session, err := Connect(ctx, r.engine, r.admin, r.opts.Retry)

	event := audit.SessionEvent{
		Engine:      r.engine.Name(),
		AdminUser:   r.admin.Username,
		AdminSource: r.admin.Source,
		Success:     err == nil,
	}
	if err != nil {
		event.ErrorMessage = err.Error()
	}
	r.audit(event)

	if err != nil {
		return nil, fmt.Errorf("failed to open administrative session: %w", err)
	}
	return session, nil
}

func closeSession(ctx context.Context, session Session) {
	_ = session.Close(context.WithoutCancel(ctx))
}

// Run ensures the application user exists with readWrite on every target database.
// It stops at the first failure that is not a suppressed duplicate.
func (r *Runner) Run(ctx context.Context) (*Result, error) {
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
		outcome, err := r.ensureUser(ctx, session, name)
		if err != nil {
			return result, err
		}
		result.Outcomes = append(result.Outcomes, *outcome)
	}

	if r.opts.CompletionMessage != "" {
		fmt.Fprintln(r.out, r.opts.CompletionMessage)
	}
	return result, nil
}

func (r *Runner) ensureUser(ctx context.Context, session Session, name string) (*Outcome, error) {
	event := audit.UserCreateEvent{
		AdminUser: r.admin.Username,
		User:      r.opts.AppUser,
		Database:  name,
		Role:      RoleReadWrite,
	}

	db, err := session.Database(ctx, name)
	if err != nil {
		event.Result = audit.ResultFailure
		event.ErrorMessage = err.Error()
		r.audit(event)
		return nil, fmt.Errorf("failed to select database %q: %w", name, err)
	}

	err = db.CreateUser(ctx, NewAppCredential(r.opts.AppUser, r.opts.AppPassword, name))
	switch {
	case err == nil:
		event.Result = audit.ResultCreated
		r.audit(event)
		if r.opts.SuccessMessage != "" {
			fmt.Fprintln(r.out, r.opts.SuccessMessage)
		}
		return &Outcome{Database: name, Created: true}, nil

	case errors.Is(err, ErrDuplicatePrincipal) && r.opts.SuppressDuplicateError:
		event.Result = audit.ResultExists
		r.audit(event)
		fmt.Fprintln(r.out, DuplicateNotice+err.Error())
		return &Outcome{Database: name, Existed: true}, nil

	default:
		event.Result = audit.ResultFailure
		event.ErrorMessage = err.Error()
		r.audit(event)
		return nil, fmt.Errorf("failed to create user %q on %q: %w", r.opts.AppUser, name, err)
	}
}

// Wait opens and closes an administrative session, retrying until the server is reachable.
func (r *Runner) Wait(ctx context.Context) error {
	session, err := r.connect(ctx)
	if err != nil {
		return err
	}
	closeSession(ctx, session)
	return nil
}
