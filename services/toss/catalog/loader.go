// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package catalog

import (
	"context"
	"embed"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/fsnotify/fsnotify"
	"gopkg.in/yaml.v3"
)

//go:embed providers/*.yaml
var embeddedCatalogs embed.FS

// Service is the read-only catalog contract the resolution engine depends
// on. Injecting it (rather than reading ambient global state) lets tests
// run against synthetic catalogs.
type Service interface {
	// Get returns the provider with the given id.
	// Returns ErrProviderNotFound if the id is unknown.
	Get(id string) (*Provider, error)

	// List returns all loaded providers in stable (id-sorted) order.
	List() []*Provider
}

// StoreOptions configures Store construction.
type StoreOptions struct {
	// Dir is an optional directory of provider YAML files layered over the
	// embedded defaults. A file whose provider id matches an embedded
	// catalog replaces it.
	Dir string

	// Logger for load and reload events. Defaults to slog.Default().
	Logger *slog.Logger
}

// StoreOption is a functional option for configuring a Store.
type StoreOption func(*StoreOptions)

// WithDir layers provider files from dir over the embedded catalogs.
func WithDir(dir string) StoreOption {
	return func(o *StoreOptions) {
		o.Dir = dir
	}
}

// WithLogger sets the logger used for load and reload events.
func WithLogger(logger *slog.Logger) StoreOption {
	return func(o *StoreOptions) {
		o.Logger = logger
	}
}

// Store is the in-memory provider catalog.
//
// Description:
//
//	Loads the embedded default catalogs, then any catalogs from the
//	configured directory. Providers are immutable once loaded; Watch can
//	reload the directory layer when files change, swapping providers
//	atomically under the write lock.
//
// Thread Safety:
//
//	Store is safe for concurrent use. Reads take an RLock; only reloads
//	take the write lock.
type Store struct {
	mu        sync.RWMutex
	providers map[string]*Provider

	options StoreOptions
}

// NewStore creates a Store loaded with the embedded catalogs plus any
// directory override.
//
// Outputs:
//
//	*Store - The loaded store. Nil on error.
//	error - Non-nil if any embedded catalog fails to parse or validate, or
//	        if the override directory is unreadable. Individual invalid
//	        files in the override directory are skipped with a warning,
//	        not fatal.
func NewStore(opts ...StoreOption) (*Store, error) {
	options := StoreOptions{Logger: slog.Default()}
	for _, opt := range opts {
		opt(&options)
	}

	s := &Store{
		providers: make(map[string]*Provider),
		options:   options,
	}

	if err := s.loadEmbedded(); err != nil {
		return nil, err
	}

	if options.Dir != "" {
		if err := s.loadDir(options.Dir); err != nil {
			return nil, err
		}
	}

	return s, nil
}

// Get returns the provider with the given id, or ErrProviderNotFound.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Store) Get(id string) (*Provider, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.providers[id]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrProviderNotFound, id)
	}
	return p, nil
}

// List returns all loaded providers sorted by id.
//
// Thread Safety: This method is safe for concurrent use. The returned
// slice is a copy; the providers themselves are shared and immutable.
func (s *Store) List() []*Provider {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]*Provider, 0, len(s.providers))
	for _, p := range s.providers {
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// loadEmbedded parses and installs every embedded catalog. Embedded
// catalogs ship with the binary, so a failure here is a build defect and
// is fatal.
func (s *Store) loadEmbedded() error {
	entries, err := embeddedCatalogs.ReadDir("providers")
	if err != nil {
		return fmt.Errorf("read embedded catalogs: %w", err)
	}

	for _, entry := range entries {
		data, err := embeddedCatalogs.ReadFile("providers/" + entry.Name())
		if err != nil {
			return fmt.Errorf("read embedded catalog %s: %w", entry.Name(), err)
		}
		p, err := parseProvider(data)
		if err != nil {
			return fmt.Errorf("embedded catalog %s: %w", entry.Name(), err)
		}
		s.providers[p.ID] = p
	}

	s.options.Logger.Info("Embedded catalogs loaded", slog.Int("providers", len(s.providers)))
	return nil
}

// loadDir parses every *.yaml file in dir and installs the valid ones.
// Invalid files are skipped with a warning so one bad catalog cannot take
// down the rest; the previously loaded version (if any) keeps serving.
func (s *Store) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return fmt.Errorf("read catalog dir %s: %w", dir, err)
	}

	loaded := 0
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if s.loadFile(path) {
			loaded++
		}
	}

	s.options.Logger.Info("Catalog directory loaded",
		slog.String("dir", dir),
		slog.Int("providers", loaded))
	return nil
}

// loadFile parses one catalog file and swaps it in under the write lock.
// Returns true if the file was installed.
func (s *Store) loadFile(path string) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		s.options.Logger.Warn("Catalog file unreadable, keeping previous version",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return false
	}

	p, err := parseProvider(data)
	if err != nil {
		s.options.Logger.Warn("Catalog file invalid, keeping previous version",
			slog.String("path", path),
			slog.String("error", err.Error()))
		return false
	}

	s.mu.Lock()
	s.providers[p.ID] = p
	s.mu.Unlock()

	s.options.Logger.Info("Catalog installed",
		slog.String("provider", p.ID),
		slog.Int("materials", len(p.Materials)))
	return true
}

// Watch reloads override-directory catalogs when their files change.
//
// Description:
//
//	Starts an fsnotify watcher on the configured directory and reloads a
//	catalog file on every create or write event. Blocks until ctx is
//	cancelled. No-op (returns nil immediately) when no directory override
//	is configured.
//
// Inputs:
//
//	ctx - Cancels the watch loop.
//
// Outputs:
//
//	error - Non-nil if the watcher cannot be created or the directory
//	        cannot be watched.
//
// Thread Safety: Safe to run concurrently with Get/List. Run at most one
// Watch per Store.
func (s *Store) Watch(ctx context.Context) error {
	if s.options.Dir == "" {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create catalog watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(s.options.Dir); err != nil {
		return fmt.Errorf("watch catalog dir %s: %w", s.options.Dir, err)
	}

	s.options.Logger.Info("Watching catalog directory", slog.String("dir", s.options.Dir))

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if !event.Op.Has(fsnotify.Write) && !event.Op.Has(fsnotify.Create) {
				continue
			}
			if !strings.HasSuffix(event.Name, ".yaml") {
				continue
			}
			s.loadFile(event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			s.options.Logger.Warn("Catalog watcher error", slog.String("error", err.Error()))
		}
	}
}

// parseProvider decodes and validates one catalog document.
func parseProvider(data []byte) (*Provider, error) {
	var p Provider
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidProvider, err)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return &p, nil
}
