package bootstrap

import (
	"context"
	"fmt"
	"sync"
)

// fakeEngine keeps users in memory, keyed by database then username.
type fakeEngine struct {
	mu        sync.Mutex
	users     map[string]map[string]Credential
	openErrs  []error
	opens     int
	closes    int
	probe     *Probe
	probeErr  error
	createErr map[string]error
}

func newFakeEngine() *fakeEngine {
	return &fakeEngine{
		users:     map[string]map[string]Credential{},
		probe:     &Probe{Authenticated: true, CanRead: true, CanWrite: true, AdminDenied: true},
		createErr: map[string]error{},
	}
}

func (e *fakeEngine) Name() string { return "fake" }

func (e *fakeEngine) Open(ctx context.Context, admin AdminCredential) (Session, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.opens++
	if len(e.openErrs) > 0 {
		err := e.openErrs[0]
		e.openErrs = e.openErrs[1:]
		if err != nil {
			return nil, err
		}
	}
	return &fakeSession{engine: e}, nil
}

func (e *fakeEngine) Probe(ctx context.Context, database string, cred Credential) (*Probe, error) {
	return e.probe, e.probeErr
}

func (e *fakeEngine) put(database string, cred Credential) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.users[database] == nil {
		e.users[database] = map[string]Credential{}
	}
	e.users[database][cred.Username] = cred
}

func (e *fakeEngine) get(database, username string) (Credential, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	cred, ok := e.users[database][username]
	return cred, ok
}

type fakeSession struct {
	engine *fakeEngine
}

func (s *fakeSession) Database(ctx context.Context, name string) (Database, error) {
	return &fakeDatabase{engine: s.engine, name: name}, nil
}

func (s *fakeSession) Close(ctx context.Context) error {
	s.engine.mu.Lock()
	defer s.engine.mu.Unlock()
	s.engine.closes++
	return nil
}

type fakeDatabase struct {
	engine *fakeEngine
	name   string
}

func (d *fakeDatabase) Name() string { return d.name }

func (d *fakeDatabase) CreateUser(ctx context.Context, cred Credential) error {
	if err := d.engine.createErr[d.name]; err != nil {
		return err
	}
	if _, ok := d.engine.get(d.name, cred.Username); ok {
		return fmt.Errorf("%w: User \"%s@%s\" already exists", ErrDuplicatePrincipal, cred.Username, d.name)
	}
	d.engine.put(d.name, cred)
	return nil
}

func (d *fakeDatabase) FindUser(ctx context.Context, username string) (*Credential, error) {
	cred, ok := d.engine.get(d.name, username)
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrPrincipalNotFound, username)
	}
	return &Credential{Username: cred.Username, Roles: cred.Roles}, nil
}

func (d *fakeDatabase) DropUser(ctx context.Context, username string) error {
	d.engine.mu.Lock()
	defer d.engine.mu.Unlock()
	if _, ok := d.engine.users[d.name][username]; !ok {
		return fmt.Errorf("%w: %s", ErrPrincipalNotFound, username)
	}
	delete(d.engine.users[d.name], username)
	return nil
}
