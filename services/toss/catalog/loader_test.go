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
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"
)

const testvilleYAML = `
id: testville
display_name: Testville Sanitation
coverage:
  country: US
  region: WA
  city: Testville
source:
  name: Testville Public Works
  generated_at: "2026-08-01"
materials:
  - id: paper
    name: Paper
    category: recycle
  - id: batteries
    name: Batteries
    aliases: [battery]
    category: hazardous
    instructions:
      - Tape the terminals.
      - Drop off at a collection site.
`

func TestNewStore_EmbeddedCatalogs(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(store.List()) == 0 {
		t.Fatal("expected embedded catalogs to load")
	}

	p, err := store.Get("general")
	if err != nil {
		t.Fatalf("expected the general catalog: %v", err)
	}
	if len(p.Materials) == 0 {
		t.Error("expected the general catalog to carry materials")
	}
	if err := p.Validate(); err != nil {
		t.Errorf("embedded catalog failed validation: %v", err)
	}
}

func TestStore_GetUnknown(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := store.Get("atlantis"); !errors.Is(err, ErrProviderNotFound) {
		t.Errorf("expected ErrProviderNotFound, got %v", err)
	}
}

func TestStore_ListSortedByID(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	providers := store.List()
	for i := 1; i < len(providers); i++ {
		if providers[i-1].ID >= providers[i].ID {
			t.Errorf("providers not sorted: %q before %q", providers[i-1].ID, providers[i].ID)
		}
	}
}

func TestNewStore_DirectoryOverlay(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "testville.yaml"), []byte(testvilleYAML), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	store, err := NewStore(WithDir(dir))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	p, err := store.Get("testville")
	if err != nil {
		t.Fatalf("expected overlay catalog to load: %v", err)
	}
	if p.DisplayName != "Testville Sanitation" {
		t.Errorf("unexpected display name %q", p.DisplayName)
	}
	if m := p.FindMaterial("batteries"); m == nil || len(m.Instructions) != 2 {
		t.Errorf("expected batteries with instructions, got %+v", m)
	}

	// Embedded catalogs survive alongside the overlay.
	if _, err := store.Get("general"); err != nil {
		t.Errorf("embedded catalog lost after overlay: %v", err)
	}
}

func TestNewStore_InvalidOverlayFileIsSkipped(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("id: [not: valid"), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "testville.yaml"), []byte(testvilleYAML), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	// One bad file must not take down the load.
	store, err := NewStore(WithDir(dir))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := store.Get("testville"); err != nil {
		t.Errorf("valid sibling catalog lost: %v", err)
	}
}

func TestNewStore_NonYAMLFilesIgnored(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "README.txt"), []byte("not a catalog"), 0o644); err != nil {
		t.Fatalf("write file: %v", err)
	}

	if _, err := NewStore(WithDir(dir)); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestNewStore_MissingDirFails(t *testing.T) {
	if _, err := NewStore(WithDir("/nonexistent/toss/catalogs")); err == nil {
		t.Error("expected an error for an unreadable directory")
	}
}

const othertownYAML = `
id: othertown
display_name: Othertown Disposal
coverage:
  country: US
source:
  name: Othertown County
materials:
  - id: glass
    name: Glass
    category: recycle
`

func TestStore_WatchKeepsLastGoodOnInvalidRewrite(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "testville.yaml")
	if err := os.WriteFile(path, []byte(testvilleYAML), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	store, err := NewStore(WithDir(dir))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	watchDone := make(chan error, 1)
	go func() { watchDone <- store.Watch(ctx) }()

	// Break the loaded catalog, then drop a new valid one. The watch loop
	// handles events in order, so once othertown is visible the invalid
	// rewrite has already been processed.
	if err := os.WriteFile(path, []byte("id: [broken"), 0o644); err != nil {
		t.Fatalf("rewrite catalog: %v", err)
	}
	if err := os.WriteFile(filepath.Join(dir, "othertown.yaml"), []byte(othertownYAML), 0o644); err != nil {
		t.Fatalf("write catalog: %v", err)
	}

	deadline := time.After(5 * time.Second)
	for {
		if _, err := store.Get("othertown"); err == nil {
			break
		}
		select {
		case <-deadline:
			t.Fatal("watcher never installed the new catalog")
		case <-time.After(20 * time.Millisecond):
		}
	}

	p, err := store.Get("testville")
	if err != nil {
		t.Fatalf("last good catalog stopped serving: %v", err)
	}
	if p.DisplayName != "Testville Sanitation" || len(p.Materials) != 2 {
		t.Errorf("expected the pre-rewrite catalog to keep serving, got %+v", p)
	}

	cancel()
	select {
	case <-watchDone:
	case <-time.After(5 * time.Second):
		t.Fatal("watch did not stop on context cancel")
	}
}

func TestStore_WatchWithoutDirIsNoop(t *testing.T) {
	store, err := NewStore()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := store.Watch(context.Background()); err != nil {
		t.Errorf("expected nil for a store without a directory, got %v", err)
	}
}

func TestParseProvider(t *testing.T) {
	t.Run("valid document", func(t *testing.T) {
		p, err := parseProvider([]byte(testvilleYAML))
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if p.ID != "testville" {
			t.Errorf("expected id testville, got %q", p.ID)
		}
	})

	t.Run("invalid yaml", func(t *testing.T) {
		if _, err := parseProvider([]byte("id: [oops")); !errors.Is(err, ErrInvalidProvider) {
			t.Errorf("expected ErrInvalidProvider, got %v", err)
		}
	})

	t.Run("valid yaml failing validation", func(t *testing.T) {
		doc := "id: x\ndisplay_name: X\ncoverage:\n  country: US\nsource:\n  name: S\nmaterials:\n  - id: a\n    name: A\n    category: landfill\n"
		if _, err := parseProvider([]byte(doc)); !errors.Is(err, ErrInvalidProvider) {
			t.Errorf("expected ErrInvalidProvider, got %v", err)
		}
	})
}
