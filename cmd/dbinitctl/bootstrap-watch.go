package main

import (
	"context"
	"fmt"
	"io"
	"log"
	"path/filepath"

	"github.com/fsnotify/fsnotify"

	"github.com/doodlesbykumbi/dbinit/pkg/config"
)

// watchBootstrap runs the bootstrap, then again on every change to the config file.
func watchBootstrap(ctx context.Context, tenants []string, out io.Writer) error {
	cfg, err := loadConfig(tenants)
	if err != nil {
		return err
	}
	filename := cfg.ConfigFilePath()

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer func() { _ = watcher.Close() }()

	// Watch the directory so editors and config-map updates that replace the file are seen.
	if err := watcher.Add(filepath.Dir(filename)); err != nil {
		return fmt.Errorf("failed to watch %s: %w", filepath.Dir(filename), err)
	}

	rerun := func(cfg *config.Config) {
		cfg.SuppressDuplicateError = true
		if err := runBootstrap(ctx, cfg, out); err != nil {
			log.Printf("bootstrap failed: %v", err)
		}
	}

	rerun(cfg)
	log.Printf("Watching %s for configuration changes", filename)

	for {
		select {
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !isConfigChange(event, filename) {
				continue
			}

			log.Printf("%s changed, re-running bootstrap", filename)
			cfg, err := loadConfig(tenants)
			if err != nil {
				log.Printf("Error loading configuration: %v", err)
				continue
			}
			rerun(cfg)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			log.Printf("Watcher error: %v", err)
		case <-ctx.Done():
			log.Println("Shutting down...")
			return nil
		}
	}
}

func isConfigChange(event fsnotify.Event, filename string) bool {
	if filepath.Clean(event.Name) != filepath.Clean(filename) {
		return false
	}
	return event.Has(fsnotify.Write) || event.Has(fsnotify.Create)
}
