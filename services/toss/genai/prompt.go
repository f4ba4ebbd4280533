// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package genai

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
)

// systemPrompt pins the model to the catalog and to strict JSON output.
const systemPrompt = `You classify physical items into a disposal catalog.
You are given the catalog's materials (id, name, aliases, category) and an
item description. Pick the single best material id FROM THE CATALOG ONLY.
Respond with strict JSON, no prose, no code fences:
{"best_material_id": "<id or null>", "alternatives": [{"material_id": "<id>", "score": 0.0}], "confidence": 0.0, "reasoning": ["<short sentence>"]}
confidence and scores are in [0,1]. Use null for best_material_id only when
no catalog material plausibly applies.`

// buildUserPrompt renders the catalog and the item signals for one call.
func buildUserPrompt(provider *catalog.Provider, guessedItemName string, labels []string) string {
	var b strings.Builder

	fmt.Fprintf(&b, "Catalog (%s):\n", provider.DisplayName)
	for i := range provider.Materials {
		m := &provider.Materials[i]
		fmt.Fprintf(&b, "- id=%s name=%q category=%s", m.ID, m.Name, m.Category)
		if len(m.Aliases) > 0 {
			fmt.Fprintf(&b, " aliases=%s", strings.Join(m.Aliases, ", "))
		}
		b.WriteString("\n")
	}

	fmt.Fprintf(&b, "\nItem: %q\n", guessedItemName)
	if len(labels) > 0 {
		fmt.Fprintf(&b, "Vision labels: %s\n", strings.Join(labels, ", "))
	}

	return b.String()
}

// resolveWire is the JSON shape requested from the model.
type resolveWire struct {
	BestMaterialID *string `json:"best_material_id"`
	Alternatives   []struct {
		MaterialID string  `json:"material_id"`
		Score      float64 `json:"score"`
	} `json:"alternatives"`
	Confidence float64  `json:"confidence"`
	Reasoning  []string `json:"reasoning"`
}

// parseResolveOutput extracts a ResolveOutput from raw model text.
//
// Description:
//
//	Models wrap JSON in code fences or prose despite instructions, so this
//	takes the substring between the first '{' and the last '}' before
//	decoding. Any shape violation is an error; the caller converts it into
//	a failed Outcome.
func parseResolveOutput(text string) (ResolveOutput, error) {
	start := strings.Index(text, "{")
	end := strings.LastIndex(text, "}")
	if start < 0 || end <= start {
		return ResolveOutput{}, fmt.Errorf("no JSON object in model response")
	}

	var wire resolveWire
	if err := json.Unmarshal([]byte(text[start:end+1]), &wire); err != nil {
		return ResolveOutput{}, fmt.Errorf("malformed model response: %w", err)
	}

	out := ResolveOutput{
		Confidence: wire.Confidence,
		Reasoning:  wire.Reasoning,
	}
	if wire.BestMaterialID != nil {
		out.BestMaterialID = *wire.BestMaterialID
	}
	for _, alt := range wire.Alternatives {
		out.Alternatives = append(out.Alternatives, Alternative{
			MaterialID: alt.MaterialID,
			Score:      alt.Score,
		})
	}

	return out, nil
}
