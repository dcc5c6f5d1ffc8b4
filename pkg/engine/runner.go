package engine

import (
	"github.com/doodlesbykumbi/dbinit/pkg/bootstrap"
	"github.com/doodlesbykumbi/dbinit/pkg/config"
)

// AdminCredential returns the administrative identity from cfg.
func AdminCredential(cfg *config.Config) bootstrap.AdminCredential {
	return bootstrap.AdminCredential{
		Username: cfg.AdminUser,
		Password: cfg.AdminPassword,
		Source:   cfg.AdminSource,
	}
}

// Options returns the runner options from cfg.
func Options(cfg *config.Config) bootstrap.Options {
	return bootstrap.Options{
		Databases:              cfg.TargetDBs,
		AppUser:                cfg.AppUser,
		AppPassword:            cfg.AppPassword,
		SuppressDuplicateError: cfg.SuppressDuplicateError,
		SuccessMessage:         cfg.SuccessMessage,
		CompletionMessage:      cfg.CompletionMessage,
		Retry:                  bootstrap.DefaultRetryConfig().WithMaxRetries(cfg.ConnectRetries),
	}
}

// NewRunner validates cfg and returns a runner for the configured engine.
func NewRunner(cfg *config.Config) (*bootstrap.Runner, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	eng, err := New(cfg)
	if err != nil {
		return nil, err
	}
	return bootstrap.NewRunner(eng, AdminCredential(cfg), Options(cfg)), nil
}
