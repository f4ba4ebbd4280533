// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package toss is the HTTP service layer of Aleutian Toss: request
// validation, the resolution orchestrator, and the search endpoint over
// the jurisdiction catalogs.
package toss

import (
	"log/slog"

	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
	"github.com/AleutianAI/AleutianToss/services/toss/genai"
	"github.com/AleutianAI/AleutianToss/services/toss/match"
)

// Service holds the engine's collaborators. All state is read-only after
// construction; requests share nothing mutable.
type Service struct {
	catalogs catalog.Service
	resolver genai.Resolver
	logger   *slog.Logger
}

// ServiceOption is a functional option for configuring a Service.
type ServiceOption func(*Service)

// WithResolver enables the generative fallback. A nil resolver (the
// default) disables the GenerativeResolve phase entirely.
func WithResolver(r genai.Resolver) ServiceOption {
	return func(s *Service) {
		s.resolver = r
	}
}

// WithLogger sets the service logger.
func WithLogger(logger *slog.Logger) ServiceOption {
	return func(s *Service) {
		s.logger = logger
	}
}

// NewService creates the resolution service over an injected read-only
// catalog service.
func NewService(catalogs catalog.Service, opts ...ServiceOption) *Service {
	s := &Service{
		catalogs: catalogs,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Search runs the autocomplete engine against one provider.
//
// Description:
//
//	Reuses the deterministic matcher's scoring and returns the top limit
//	results. When the result set is empty, also computes edit-distance
//	"did you mean" suggestions over material display names.
//
// Outputs:
//
//	[]match.Result - Ranked results, possibly empty.
//	[]string - Suggestions; non-nil only when the result set is empty.
//	error - catalog.ErrProviderNotFound for an unknown provider id.
func (s *Service) Search(providerID, query string, limit int) ([]match.Result, []string, error) {
	provider, err := s.catalogs.Get(providerID)
	if err != nil {
		return nil, nil, err
	}

	results := match.Search(provider, query, limit)
	if len(results) > 0 {
		return results, nil, nil
	}
	return results, match.Suggest(provider, query), nil
}

// Providers returns a summary of every loaded catalog.
func (s *Service) Providers() []ProviderSummary {
	providers := s.catalogs.List()
	out := make([]ProviderSummary, 0, len(providers))
	for _, p := range providers {
		out = append(out, ProviderSummary{
			ID:            p.ID,
			DisplayName:   p.DisplayName,
			Coverage:      p.Coverage,
			MaterialCount: len(p.Materials),
		})
	}
	return out
}

// Provider returns one full catalog by id.
func (s *Service) Provider(id string) (*catalog.Provider, error) {
	return s.catalogs.Get(id)
}

// Ready reports whether the service can answer queries.
func (s *Service) Ready() bool {
	return len(s.catalogs.List()) > 0
}
