// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package toss

import (
	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
	"github.com/AleutianAI/AleutianToss/services/toss/match"
)

// ResolveRequest is the POST /resolve request body.
//
// Validation is expressed through gin's binding tags (go-playground
// validator). visionConfidence, when present, must already be in [0,1];
// out-of-range values are a schema violation, not something to clamp.
type ResolveRequest struct {
	ProviderID       string   `json:"providerId" binding:"required"`
	GuessedItemName  string   `json:"guessedItemName"`
	Labels           []string `json:"labels"`
	VisionConfidence *float64 `json:"visionConfidence" binding:"omitempty,gte=0,lte=1"`
}

// ResolveResponse is the POST /resolve response body.
type ResolveResponse struct {
	// Best is nil exactly when the final blended confidence fell below the
	// unknown threshold, or the catalog yielded no ranked matches at all.
	Best *catalog.Material `json:"best"`

	// Matches is the full ranked list, included even when Best is nil so
	// the caller can show "closest guesses".
	Matches []match.Result `json:"matches"`

	Confidence   float64  `json:"confidence"`
	Rationale    []string `json:"rationale"`
	ProviderName string   `json:"providerName"`
}

// ScanOutput is the vision collaborator's contract. The engine consumes it
// only as candidate labels plus an optional visionConfidence blend input;
// the scan itself happens elsewhere.
type ScanOutput struct {
	Labels           []string `json:"labels"`
	GuessedItemName  string   `json:"guessedItemName"`
	VisionConfidence float64  `json:"visionConfidence"`
	Notes            []string `json:"notes"`
}

// SearchEntry is one row of a non-empty GET /search response.
type SearchEntry struct {
	MaterialID string                   `json:"materialId"`
	Name       string                   `json:"name"`
	Category   catalog.DisposalCategory `json:"category"`
	Score      float64                  `json:"score"`
}

// EmptySearchResponse is the GET /search response when nothing matched.
type EmptySearchResponse struct {
	Results     []SearchEntry `json:"results"`
	Suggestions []string      `json:"suggestions"`
}

// ProviderSummary is one row of the GET /providers listing.
type ProviderSummary struct {
	ID            string           `json:"id"`
	DisplayName   string           `json:"displayName"`
	Coverage      catalog.Coverage `json:"coverage"`
	MaterialCount int              `json:"materialCount"`
}

// ErrorResponse is the uniform error body for 4xx/5xx responses.
type ErrorResponse struct {
	Error   string   `json:"error"`
	Details []string `json:"details,omitempty"`
}
