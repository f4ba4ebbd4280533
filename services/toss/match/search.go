// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package match

import (
	"sort"
	"strings"

	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
)

// MaxSuggestions caps the "did you mean" list.
const MaxSuggestions = 3

// Search returns the top limit materials for an incremental/autocomplete
// query, reusing the matcher's scoring.
//
// Description:
//
//	Scores the query against every material exactly as Match does and
//	returns the top limit results by descending score, ties broken by
//	catalog declaration order. A limit <= 0 returns all scored results.
//	An empty (or whitespace-only) query returns an empty slice.
//
// Thread Safety: Safe for concurrent use (pure function over an immutable catalog).
func Search(provider *catalog.Provider, query string, limit int) []Result {
	out := Match(provider, query)

	results := out.Matches
	if limit > 0 && len(results) > limit {
		results = results[:limit]
	}

	if len(results) == 0 {
		searchTotal.WithLabelValues("empty").Inc()
	} else {
		searchTotal.WithLabelValues("hit").Inc()
	}
	return results
}

// Suggest computes "did you mean" suggestions for a query that matched
// nothing.
//
// Description:
//
//	Computes the Levenshtein distance between the lowercased query and
//	every material display name. A name is accepted only when
//	0 < distance <= max(2, floor(len(query)*0.4)). Returns up to
//	MaxSuggestions display names sorted by ascending distance (closest
//	first), ties broken by catalog declaration order.
//
// Thread Safety: Safe for concurrent use (pure function over an immutable catalog).
func Suggest(provider *catalog.Provider, query string) []string {
	q := strings.ToLower(strings.TrimSpace(query))
	if q == "" {
		return nil
	}

	threshold := max(2, len(q)*4/10)

	type candidate struct {
		name     string
		distance int
	}

	var accepted []candidate
	for i := range provider.Materials {
		name := provider.Materials[i].Name
		d := Distance(q, strings.ToLower(name))
		if d > 0 && d <= threshold {
			accepted = append(accepted, candidate{name: name, distance: d})
		}
	}

	sort.SliceStable(accepted, func(i, j int) bool {
		return accepted[i].distance < accepted[j].distance
	})

	if len(accepted) > MaxSuggestions {
		accepted = accepted[:MaxSuggestions]
	}

	suggestions := make([]string, len(accepted))
	for i, c := range accepted {
		suggestions[i] = c.name
	}
	return suggestions
}
