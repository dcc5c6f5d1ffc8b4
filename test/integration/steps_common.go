package integration

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/cucumber/godog"
	"gopkg.in/yaml.v3"

	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
	"github.com/doodlesbykumbi/dbinit/pkg/config"
	"github.com/doodlesbykumbi/dbinit/pkg/engine"
)

// StepsContext holds state shared between step definitions
type StepsContext struct {
	tc *TestContext

	engine    string
	profile   string
	targetDBs []string

	output bytes.Buffer
	runErr error
}

// NewStepsContext creates a new steps context
func NewStepsContext(tc *TestContext) *StepsContext {
	return &StepsContext{tc: tc, engine: "mongo", profile: config.DefaultProfile}
}

// RegisterSteps registers all step definitions
func (s *StepsContext) RegisterSteps(sc *godog.ScenarioContext) {
	// Setup steps
	sc.Step(`^a (mongo|postgres) server$`, s.aServer)
	sc.Step(`^the "([^"]*)" profile$`, s.theProfile)
	sc.Step(`^the target databases "([^"]*)"$`, s.theTargetDatabases)
	sc.Step(`^the application user does not exist$`, s.theApplicationUserDoesNotExist)
	sc.Step(`^the application user already exists$`, s.theApplicationUserAlreadyExists)

	// Action steps
	sc.Step(`^I run the bootstrap$`, s.iRunTheBootstrap)

	// Outcome steps
	sc.Step(`^the bootstrap succeeds$`, s.theBootstrapSucceeds)
	sc.Step(`^the bootstrap fails with a duplicate principal error$`, s.theBootstrapFailsWithDuplicate)
	sc.Step(`^the output contains "([^"]*)"$`, s.theOutputContains)
	sc.Step(`^the output does not contain "([^"]*)"$`, s.theOutputDoesNotContain)
	sc.Step(`^the output has a line starting with "([^"]*)"$`, s.theOutputHasALineStartingWith)
	sc.Step(`^the application user has exactly the readWrite role on "([^"]*)"$`, s.theUserHasExactlyReadWrite)
	sc.Step(`^the application user can read and write "([^"]*)" but not administer the server$`, s.theUserCanReadAndWrite)
	sc.Step(`^the application user passes verification$`, s.theUserPassesVerification)
}

// Configuration

func (s *StepsContext) loadConfig() (*config.Config, error) {
	file := map[string]interface{}{
		"engine":         s.engine,
		"profile":        s.profile,
		"database_url":   s.tc.URL(s.engine),
		"admin_user":     adminUser,
		"admin_password": adminPassword,
		"app_user":       "app_user",
		"app_password":   "app_password",
	}
	if len(s.targetDBs) > 0 {
		file["target_dbs"] = s.targetDBs
	}

	data, err := yaml.Marshal(file)
	if err != nil {
		return nil, err
	}
	dir, err := os.MkdirTemp("", "dbinit-")
	if err != nil {
		return nil, err
	}
	defer func() { _ = os.RemoveAll(dir) }()

	path := filepath.Join(dir, config.ConfigFileName)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		return nil, err
	}
	return config.LoadFile(path)
}

func (s *StepsContext) newRunner(out io.Writer) (*bootstrap.Runner, *config.Config, error) {
	cfg, err := s.loadConfig()
	if err != nil {
		return nil, nil, err
	}
	runner, err := engine.NewRunner(cfg)
	if err != nil {
		return nil, nil, err
	}
	runner.SetOutput(out)
	return runner, cfg, nil
}

// Setup steps

func (s *StepsContext) aServer(name string) error {
	s.engine = name
	return nil
}

func (s *StepsContext) theProfile(name string) error {
	if _, ok := config.Profiles[name]; !ok {
		return fmt.Errorf("unknown profile %q", name)
	}
	s.profile = name
	return nil
}

func (s *StepsContext) theTargetDatabases(names string) error {
	s.targetDBs = strings.Split(names, ",")
	return nil
}

func (s *StepsContext) theApplicationUserDoesNotExist() error {
	runner, _, err := s.newRunner(io.Discard)
	if err != nil {
		return err
	}
	_, err = runner.Drop(context.Background())
	return err
}

func (s *StepsContext) theApplicationUserAlreadyExists() error {
	if err := s.theApplicationUserDoesNotExist(); err != nil {
		return err
	}
	runner, _, err := s.newRunner(io.Discard)
	if err != nil {
		return err
	}
	_, err = runner.Run(context.Background())
	return err
}

// Action steps

func (s *StepsContext) iRunTheBootstrap() error {
	s.output.Reset()
	runner, _, err := s.newRunner(&s.output)
	if err != nil {
		return err
	}
	_, s.runErr = runner.Run(context.Background())
	return nil
}

// Outcome steps

func (s *StepsContext) theBootstrapSucceeds() error {
	if s.runErr != nil {
		return fmt.Errorf("expected success, got: %w", s.runErr)
	}
	return nil
}

func (s *StepsContext) theBootstrapFailsWithDuplicate() error {
	if !errors.Is(s.runErr, bootstrap.ErrDuplicatePrincipal) {
		return fmt.Errorf("expected a duplicate principal error, got: %v", s.runErr)
	}
	return nil
}

func (s *StepsContext) theOutputContains(expected string) error {
	if !strings.Contains(s.output.String(), expected) {
		return fmt.Errorf("expected output to contain %q, got:\n%s", expected, s.output.String())
	}
	return nil
}

func (s *StepsContext) theOutputDoesNotContain(unexpected string) error {
	if strings.Contains(s.output.String(), unexpected) {
		return fmt.Errorf("expected output not to contain %q, got:\n%s", unexpected, s.output.String())
	}
	return nil
}

func (s *StepsContext) theOutputHasALineStartingWith(prefix string) error {
	for _, line := range strings.Split(s.output.String(), "\n") {
		if strings.HasPrefix(line, prefix) {
			return nil
		}
	}
	return fmt.Errorf("expected a line starting with %q, got:\n%s", prefix, s.output.String())
}

func (s *StepsContext) theUserHasExactlyReadWrite(database string) error {
	ctx := context.Background()
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}

	session, err := eng.Open(ctx, engine.AdminCredential(cfg))
	if err != nil {
		return err
	}
	defer func() { _ = session.Close(ctx) }()

	db, err := session.Database(ctx, database)
	if err != nil {
		return err
	}
	cred, err := db.FindUser(ctx, cfg.AppUser)
	if err != nil {
		return err
	}
	if !cred.HasExactRoles(bootstrap.RoleGrant{Role: bootstrap.RoleReadWrite, DB: database}) {
		return fmt.Errorf("expected exactly readWrite@%s, got %v", database, cred.Roles)
	}
	return nil
}

func (s *StepsContext) theUserCanReadAndWrite(database string) error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}
	eng, err := engine.New(cfg)
	if err != nil {
		return err
	}

	probe, err := eng.Probe(context.Background(), database, bootstrap.NewAppCredential(cfg.AppUser, cfg.AppPassword, database))
	if err != nil {
		return err
	}
	if !probe.OK() {
		return fmt.Errorf("unexpected probe result: %+v", *probe)
	}
	return nil
}

func (s *StepsContext) theUserPassesVerification() error {
	runner, _, err := s.newRunner(io.Discard)
	if err != nil {
		return err
	}
	_, err = runner.Verify(context.Background())
	return err
}
