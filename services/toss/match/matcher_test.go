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
	"testing"

	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
)

// Helper function to create a small test catalog.
func testProvider() *catalog.Provider {
	return &catalog.Provider{
		ID:          "testville",
		DisplayName: "Testville Sanitation",
		Materials: []catalog.Material{
			{
				ID:       "paper",
				Name:     "Paper",
				Aliases:  []string{"paper"},
				Category: catalog.CategoryRecycle,
			},
			{
				ID:       "plastic-bottle",
				Name:     "Plastic Bottle",
				Category: catalog.CategoryRecycle,
			},
			{
				ID:       "glass-bottle",
				Name:     "Glass Bottle",
				Category: catalog.CategoryRecycle,
			},
			{
				ID:       "scrap-metal",
				Name:     "Scrap Metal",
				Aliases:  []string{"keys", "metal"},
				Category: catalog.CategoryDropoff,
			},
			{
				ID:       "batteries",
				Name:     "Batteries",
				Aliases:  []string{"battery"},
				Category: catalog.CategoryHazardous,
			},
		},
	}
}

func TestMatch_ExactName(t *testing.T) {
	out := Match(testProvider(), "Plastic Bottle")

	if out.Best == nil {
		t.Fatal("expected a best match")
	}
	if out.Best.ID != "plastic-bottle" {
		t.Errorf("expected best=plastic-bottle, got %q", out.Best.ID)
	}
	if out.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 for a verbatim name, got %.2f", out.Confidence)
	}
}

func TestMatch_ExactAfterNormalization(t *testing.T) {
	// Case and whitespace must not matter.
	out := Match(testProvider(), "  PLASTIC   bottle ")

	if out.Best == nil || out.Best.ID != "plastic-bottle" {
		t.Fatalf("expected best=plastic-bottle, got %+v", out.Best)
	}
	if out.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0, got %.2f", out.Confidence)
	}
}

func TestMatch_ExactAlias(t *testing.T) {
	out := Match(testProvider(), "keys")

	if out.Best == nil || out.Best.ID != "scrap-metal" {
		t.Fatalf("expected alias to resolve to scrap-metal, got %+v", out.Best)
	}
	if out.Confidence != 1.0 {
		t.Errorf("expected confidence 1.0 for a verbatim alias, got %.2f", out.Confidence)
	}
}

func TestMatch_SubstringContainment(t *testing.T) {
	out := Match(testProvider(), "piece of paper")

	if out.Best == nil || out.Best.ID != "paper" {
		t.Fatalf("expected best=paper, got %+v", out.Best)
	}
	// "paper" (5) contained in "piece of paper" (14):
	// 0.70 + 0.25*(5/14) ≈ 0.79
	if out.Confidence < 0.6 {
		t.Errorf("expected confidence >= 0.6, got %.2f", out.Confidence)
	}
	if out.Confidence >= 1.0 {
		t.Errorf("containment must score below exact, got %.2f", out.Confidence)
	}
}

func TestMatch_TokenOverlap(t *testing.T) {
	out := Match(testProvider(), "plastic cup")

	if out.Best == nil || out.Best.ID != "plastic-bottle" {
		t.Fatalf("expected best=plastic-bottle, got %+v", out.Best)
	}
	// Jaccard 1/3 over {plastic,cup} vs {plastic,bottle}:
	// 0.40 + 0.35*(1/3) ≈ 0.52
	if out.Confidence < tokenBase || out.Confidence >= substringBase {
		t.Errorf("expected a token-tier score in [%.2f, %.2f), got %.2f",
			tokenBase, substringBase, out.Confidence)
	}
}

func TestMatch_EditDistance(t *testing.T) {
	out := Match(testProvider(), "batery")

	if out.Best == nil || out.Best.ID != "batteries" {
		t.Fatalf("expected typo to resolve to batteries, got %+v", out.Best)
	}
	// distance("batery","battery")=1, sim=6/7: 0.55*(6/7) ≈ 0.47
	if out.Confidence < MinAcceptScore || out.Confidence >= tokenBase+tokenSpan {
		t.Errorf("expected an edit-tier score, got %.2f", out.Confidence)
	}
}

func TestMatch_BelowAcceptanceFloor(t *testing.T) {
	// distance("kxyz","keys")=2, sim=0.5: 0.55*0.5 = 0.275 < 0.30.
	out := Match(testProvider(), "kxyz")

	if out.Best != nil {
		t.Errorf("expected no best below the acceptance floor, got %q", out.Best.ID)
	}
	if out.Confidence != 0 {
		t.Errorf("expected confidence 0 without an accepted best, got %.2f", out.Confidence)
	}
	if len(out.Matches) == 0 {
		t.Error("expected the near-miss to remain ranked")
	}
	if len(out.Rationale) == 0 {
		t.Error("expected a rationale explaining the rejection")
	}
}

func TestMatch_Gibberish(t *testing.T) {
	out := Match(testProvider(), "xqzv")

	if out.Best != nil {
		t.Errorf("expected no best for gibberish, got %q", out.Best.ID)
	}
	if out.Confidence != 0 {
		t.Errorf("expected confidence 0, got %.2f", out.Confidence)
	}
	if len(out.Matches) != 0 {
		t.Errorf("expected no ranked matches, got %d", len(out.Matches))
	}
}

func TestMatch_EmptyQuery(t *testing.T) {
	for _, query := range []string{"", "   ", "\t\n"} {
		out := Match(testProvider(), query)
		if out.Best != nil {
			t.Errorf("query %q: expected nil best", query)
		}
		if len(out.Matches) != 0 {
			t.Errorf("query %q: expected empty matches, got %d", query, len(out.Matches))
		}
		if out.Confidence != 0 {
			t.Errorf("query %q: expected confidence 0, got %.2f", query, out.Confidence)
		}
	}
}

func TestMatch_RankingInvariants(t *testing.T) {
	out := Match(testProvider(), "bottle")

	if len(out.Matches) < 2 {
		t.Fatalf("expected both bottle materials ranked, got %d", len(out.Matches))
	}

	seen := make(map[string]bool)
	for i, m := range out.Matches {
		if m.Score <= 0 || m.Score > 1 {
			t.Errorf("match %d: score %.2f out of range", i, m.Score)
		}
		if i > 0 && m.Score > out.Matches[i-1].Score {
			t.Errorf("matches not sorted descending at index %d", i)
		}
		if seen[m.Material.ID] {
			t.Errorf("duplicate material %q in matches", m.Material.ID)
		}
		seen[m.Material.ID] = true
	}

	// "Glass Bottle" is the shorter containing name, so the query covers
	// more of it: 0.70 + 0.25*(6/12) beats 0.70 + 0.25*(6/14).
	if out.Matches[0].Material.ID != "glass-bottle" {
		t.Errorf("expected the tighter containment to rank first, got %q", out.Matches[0].Material.ID)
	}
}

func TestMatch_EqualScoresKeepCatalogOrder(t *testing.T) {
	// Two names of identical length containing the query score identically;
	// the stable sort must keep declaration order.
	p := &catalog.Provider{
		ID:          "ties",
		DisplayName: "Ties",
		Materials: []catalog.Material{
			{ID: "tin-can", Name: "Tin Can", Category: catalog.CategoryRecycle},
			{ID: "tin-cup", Name: "Tin Cup", Category: catalog.CategoryTrash},
		},
	}

	out := Match(p, "tin")
	if len(out.Matches) != 2 {
		t.Fatalf("expected both materials ranked, got %d", len(out.Matches))
	}
	if out.Matches[0].Score != out.Matches[1].Score {
		t.Fatalf("expected a genuine tie, got %.4f vs %.4f", out.Matches[0].Score, out.Matches[1].Score)
	}
	if out.Matches[0].Material.ID != "tin-can" || out.Matches[1].Material.ID != "tin-cup" {
		t.Errorf("expected catalog declaration order on ties, got %q then %q",
			out.Matches[0].Material.ID, out.Matches[1].Material.ID)
	}
}

func TestMatch_Determinism(t *testing.T) {
	p := testProvider()
	first := Match(p, "piece of paper")
	for i := 0; i < 10; i++ {
		again := Match(p, "piece of paper")
		if again.Confidence != first.Confidence {
			t.Fatalf("run %d: confidence drifted from %.4f to %.4f", i, first.Confidence, again.Confidence)
		}
		if len(again.Matches) != len(first.Matches) {
			t.Fatalf("run %d: match count drifted", i)
		}
		for j := range again.Matches {
			if again.Matches[j].Material.ID != first.Matches[j].Material.ID {
				t.Fatalf("run %d: ranking order drifted at index %d", i, j)
			}
		}
	}
}

func TestNormalize(t *testing.T) {
	cases := []struct {
		in   string
		want string
	}{
		{"Plastic Bottle", "plastic bottle"},
		{"  PLASTIC   bottle ", "plastic bottle"},
		{"\tkeys\n", "keys"},
		{"   ", ""},
		{"", ""},
	}
	for _, tc := range cases {
		if got := Normalize(tc.in); got != tc.want {
			t.Errorf("Normalize(%q) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestTokenJaccard(t *testing.T) {
	cases := []struct {
		a, b string
		want float64
	}{
		{"plastic bottle", "plastic bottle", 1.0},
		{"plastic cup", "plastic bottle", 1.0 / 3.0},
		{"glass jar", "plastic bottle", 0},
		{"", "plastic", 0},
	}
	for _, tc := range cases {
		if got := tokenJaccard(tc.a, tc.b); got != tc.want {
			t.Errorf("tokenJaccard(%q, %q) = %.4f, want %.4f", tc.a, tc.b, got, tc.want)
		}
	}
}
