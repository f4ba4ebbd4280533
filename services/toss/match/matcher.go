// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package match implements the deterministic text matcher, the confidence
// blender, and the search/suggestion engine. Everything in this package is
// a pure computation over an in-memory catalog: no I/O, no shared mutable
// state, safe to run concurrently across requests without coordination.
package match

import (
	"fmt"
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
)

// Scoring constants. A material's score is the maximum across all of its
// name/alias comparisons; each comparison cascades through the tiers below.
const (
	// MinAcceptScore is the floor below which the top-ranked material is
	// not promoted to Best. It sits under the token-overlap band (0.40+)
	// so weak edit-distance matches stay ranked but never win outright.
	// Distinct from the 0.40 unknown threshold and the 0.80 AI trigger.
	MinAcceptScore = 0.30

	// Substring containment scores in (substringBase, substringBase+substringSpan],
	// proportional to the length-ratio overlap of the two strings.
	substringBase = 0.70
	substringSpan = 0.25

	// Token overlap (word-level intersection over union) is the mid tier.
	tokenBase = 0.40
	tokenSpan = 0.35

	// Edit-distance similarity is the lowest tier. Similarity below
	// minEditSimilarity is treated as no match at all.
	editScale         = 0.55
	minEditSimilarity = 0.5
)

// Match tier names, used in rationale traces and metrics labels.
const (
	TierExact     = "exact"
	TierSubstring = "substring"
	TierToken     = "token-overlap"
	TierEdit      = "edit-distance"
)

// Result pairs a material with its score for one query.
type Result struct {
	Material *catalog.Material `json:"material"`
	Score    float64           `json:"score"`
}

// Outcome is the full result of matching one query against a provider.
//
// Invariants:
//
//   - Confidence is clamped to [0,1].
//   - Matches is sorted by descending score with no duplicate material ids;
//     ties keep catalog declaration order.
//   - Best is nil exactly when no material clears MinAcceptScore.
type Outcome struct {
	Best       *catalog.Material
	Matches    []Result
	Confidence float64
	Rationale  []string
}

// Match scores a free-text query against every material in the provider.
//
// Description:
//
//	Normalizes the query (lowercase, trim, collapse whitespace), scores it
//	against each material's name and aliases taking the maximum, ranks
//	materials by score descending with catalog order breaking ties, and
//	promotes the top material to Best when it clears MinAcceptScore.
//	Confidence equals Best's score, or 0 when there is no acceptable best.
//
// Inputs:
//
//	provider - The catalog to match against. Must not be nil.
//	query - Free text. An empty (or whitespace-only) query yields an empty
//	        match set with confidence 0 and a nil Best.
//
// Thread Safety: Safe for concurrent use (pure function over an immutable catalog).
func Match(provider *catalog.Provider, query string) Outcome {
	normalized := Normalize(query)
	if normalized == "" {
		return Outcome{
			Matches:   []Result{},
			Rationale: []string{"empty query: nothing to match"},
		}
	}

	type scored struct {
		result  Result
		tier    string
		against string
	}

	var ranked []scored
	for i := range provider.Materials {
		m := &provider.Materials[i]

		bestScore := 0.0
		bestTier := ""
		bestAgainst := ""

		candidates := append([]string{m.Name}, m.Aliases...)
		for _, cand := range candidates {
			score, tier := scoreStrings(normalized, Normalize(cand))
			if score > bestScore {
				bestScore = score
				bestTier = tier
				bestAgainst = cand
			}
		}

		if bestScore <= 0 {
			continue
		}
		ranked = append(ranked, scored{
			result:  Result{Material: m, Score: clamp01(bestScore)},
			tier:    bestTier,
			against: bestAgainst,
		})
	}

	// Stable sort keeps catalog declaration order for equal scores.
	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].result.Score > ranked[j].result.Score
	})

	out := Outcome{Matches: make([]Result, 0, len(ranked))}
	for _, s := range ranked {
		out.Matches = append(out.Matches, s.result)
	}

	if len(ranked) == 0 {
		out.Rationale = []string{fmt.Sprintf("no material resembles %q", query)}
		matchTotal.WithLabelValues("none").Inc()
		return out
	}

	top := ranked[0]
	if top.result.Score < MinAcceptScore {
		out.Rationale = []string{fmt.Sprintf(
			"closest material %q scored %.2f via %s, below the %.2f acceptance floor",
			top.result.Material.Name, top.result.Score, top.tier, MinAcceptScore)}
		matchTotal.WithLabelValues("below_floor").Inc()
		return out
	}

	out.Best = top.result.Material
	out.Confidence = top.result.Score
	out.Rationale = []string{fmt.Sprintf(
		"%q matched %q on material %q via %s (score %.2f)",
		query, top.against, top.result.Material.Name, top.tier, top.result.Score)}
	matchTotal.WithLabelValues(top.tier).Inc()
	return out
}

// scoreStrings scores one normalized query against one normalized candidate
// string, cascading through the match tiers.
//
// Outputs:
//
//	float64 - Score in [0,1]. 0 means no match.
//	string - The tier that produced the score ("" when no match).
func scoreStrings(query, cand string) (float64, string) {
	if cand == "" {
		return 0, ""
	}

	// Tier 1: exact equality after normalization.
	if query == cand {
		return 1.0, TierExact
	}

	// Tier 2: full containment either direction. Score grows with how much
	// of the longer string the shorter one covers.
	if strings.Contains(query, cand) || strings.Contains(cand, query) {
		shorter, longer := len(cand), len(query)
		if shorter > longer {
			shorter, longer = longer, shorter
		}
		ratio := float64(shorter) / float64(longer)
		return substringBase + substringSpan*ratio, TierSubstring
	}

	// Tier 3: word-level intersection over union.
	if j := tokenJaccard(query, cand); j > 0 {
		return tokenBase + tokenSpan*j, TierToken
	}

	// Tier 4: normalized edit-distance similarity.
	if sim := Similarity(query, cand); sim >= minEditSimilarity {
		return editScale * sim, TierEdit
	}

	return 0, ""
}

// tokenJaccard computes word-level intersection over union of two
// normalized strings. Returns 0 when the strings share no tokens.
func tokenJaccard(a, b string) float64 {
	aTokens := strings.Fields(a)
	bTokens := strings.Fields(b)
	if len(aTokens) == 0 || len(bTokens) == 0 {
		return 0
	}

	aSet := make(map[string]bool, len(aTokens))
	for _, t := range aTokens {
		aSet[t] = true
	}
	bSet := make(map[string]bool, len(bTokens))
	for _, t := range bTokens {
		bSet[t] = true
	}

	shared := 0
	for t := range aSet {
		if bSet[t] {
			shared++
		}
	}
	if shared == 0 {
		return 0
	}

	union := len(aSet) + len(bSet) - shared
	return float64(shared) / float64(union)
}

// Normalize lowercases, trims, and collapses interior whitespace.
func Normalize(s string) string {
	return strings.Join(strings.Fields(strings.ToLower(s)), " ")
}

// clamp01 clamps x to [0,1].
func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
