// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package catalog holds the jurisdiction-specific provider catalogs: which
// materials a jurisdiction recognizes, their aliases, and the disposal
// category each one maps to. Catalogs are loaded once and are read-only
// thereafter; the resolution engine never mutates them.
package catalog

import (
	"fmt"

	"github.com/go-playground/validator/v10"
)

// DisposalCategory is the closed set of disposal outcomes a material can
// map to. Values are wire-stable and appear verbatim in API responses.
type DisposalCategory string

// The full category set. "unknown" is a valid catalog value for materials a
// jurisdiction lists but cannot classify (distinct from a failed resolution).
const (
	CategoryRecycle   DisposalCategory = "recycle"
	CategoryTrash     DisposalCategory = "trash"
	CategoryCompost   DisposalCategory = "compost"
	CategoryDropoff   DisposalCategory = "dropoff"
	CategoryHazardous DisposalCategory = "hazardous"
	CategoryUnknown   DisposalCategory = "unknown"
	CategoryDonate    DisposalCategory = "donate"
	CategoryYardWaste DisposalCategory = "yard-waste"
	CategoryDeposit   DisposalCategory = "deposit"
)

// allCategories is the canonical membership set for validation.
var allCategories = map[DisposalCategory]bool{
	CategoryRecycle:   true,
	CategoryTrash:     true,
	CategoryCompost:   true,
	CategoryDropoff:   true,
	CategoryHazardous: true,
	CategoryUnknown:   true,
	CategoryDonate:    true,
	CategoryYardWaste: true,
	CategoryDeposit:   true,
}

// Valid reports whether c is a member of the closed category set.
func (c DisposalCategory) Valid() bool {
	return allCategories[c]
}

// String returns the wire representation of the category.
func (c DisposalCategory) String() string {
	return string(c)
}

// Material is one disposal-relevant item type within a provider catalog.
//
// Ownership:
//
//	Materials are owned by their Provider and MUST NOT be mutated after the
//	provider has been loaded into a Store.
type Material struct {
	// ID is unique within the owning provider (not globally).
	ID string `yaml:"id" json:"id" validate:"required"`

	// Name is the display name shown to end users and matched against.
	Name string `yaml:"name" json:"name" validate:"required"`

	// Aliases are alternate names the matcher scores alongside Name.
	Aliases []string `yaml:"aliases,omitempty" json:"aliases"`

	// Category is the disposal outcome for this material.
	Category DisposalCategory `yaml:"category" json:"category" validate:"required"`

	// Instructions are the steps a resident should follow.
	Instructions []string `yaml:"instructions,omitempty" json:"instructions"`

	// Notes carry caveats that do not change the category.
	Notes []string `yaml:"notes,omitempty" json:"notes"`

	// CommonMistakes lists frequent mis-sorts involving this material.
	CommonMistakes []string `yaml:"common_mistakes,omitempty" json:"commonMistakes"`
}

// Coverage describes the geographic footprint of a provider.
type Coverage struct {
	Country string   `yaml:"country" json:"country" validate:"required"`
	Region  string   `yaml:"region,omitempty" json:"region,omitempty"`
	City    string   `yaml:"city,omitempty" json:"city,omitempty"`
	Zips    []string `yaml:"zips,omitempty" json:"zips,omitempty"`
	Aliases []string `yaml:"aliases,omitempty" json:"aliases,omitempty"`
}

// Source records where a catalog came from and when it was generated.
type Source struct {
	Name        string `yaml:"name" json:"name" validate:"required"`
	GeneratedAt string `yaml:"generated_at" json:"generatedAt"`
}

// Provider is a jurisdiction-specific catalog of materials and rules.
//
// Thread Safety: Immutable after loading; safe for unlimited concurrent readers.
type Provider struct {
	ID           string     `yaml:"id" json:"id" validate:"required"`
	DisplayName  string     `yaml:"display_name" json:"displayName" validate:"required"`
	Coverage     Coverage   `yaml:"coverage" json:"coverage"`
	Source       Source     `yaml:"source" json:"source"`
	Materials    []Material `yaml:"materials" json:"materials" validate:"required,min=1,dive"`
	RulesSummary string     `yaml:"rules_summary,omitempty" json:"rulesSummary"`
}

// FindMaterial returns the material with the given id, or nil if the id is
// not present in this provider. Lookup is linear; catalogs are small.
func (p *Provider) FindMaterial(id string) *Material {
	for i := range p.Materials {
		if p.Materials[i].ID == id {
			return &p.Materials[i]
		}
	}
	return nil
}

// structValidator validates struct tags on load. Shared, safe for concurrent use.
var structValidator = validator.New()

// Validate checks the structural integrity of a provider catalog.
//
// Description:
//
//	Runs struct-tag validation (required fields, at least one material),
//	then enforces the two rules tags cannot express: every category must
//	be a member of the closed DisposalCategory set, and material ids must
//	be unique within the provider.
//
// Outputs:
//
//	error - Non-nil describing the first integrity violation found.
func (p *Provider) Validate() error {
	if err := structValidator.Struct(p); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidProvider, err)
	}

	seen := make(map[string]bool, len(p.Materials))
	for i := range p.Materials {
		m := &p.Materials[i]
		if !m.Category.Valid() {
			return fmt.Errorf("%w: material %q has unknown category %q",
				ErrInvalidProvider, m.ID, m.Category)
		}
		if seen[m.ID] {
			return fmt.Errorf("%w: duplicate material id %q", ErrInvalidProvider, m.ID)
		}
		seen[m.ID] = true
	}

	return nil
}
