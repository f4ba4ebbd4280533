// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package genai wraps the generative-model collaborator used as a fallback
// for ambiguous disposal queries. The collaborator is untrusted: its output
// stays an unvalidated candidate until it has been cross-checked against
// the provider catalog, and any failure of the call is an Outcome the
// orchestrator can inspect, never an error that fails the request.
package genai

import (
	"context"

	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
)

// Alternative is one additional candidate material from the model.
type Alternative struct {
	MaterialID string  `json:"materialId"`
	Score      float64 `json:"score"`
}

// ResolveOutput is the typed contract of the generative collaborator.
//
// Trust model:
//
//	A ResolveOutput is UNVALIDATED until ValidateAgainst has cross-checked
//	every material id against the owning provider. Hallucinated ids must
//	never surface to the user.
type ResolveOutput struct {
	// BestMaterialID is the model's top pick. Empty when the model could
	// not resolve the item.
	BestMaterialID string `json:"bestMaterialId"`

	// Alternatives are lower-ranked candidates with model-assigned scores.
	Alternatives []Alternative `json:"alternatives"`

	// Confidence is the model's self-reported confidence in [0,1].
	Confidence float64 `json:"resolveConfidence"`

	// Reasoning is the model's free-text justification, passed through to
	// the response rationale.
	Reasoning []string `json:"reasoning"`
}

// Outcome is the explicit success/failure result of one resolver call.
// The orchestrator pattern-matches on OK instead of catching errors, which
// makes the "always continue on failure" contract testable.
type Outcome struct {
	OK     bool
	Output ResolveOutput

	// FailureReason describes why the call produced nothing usable
	// (network error, malformed response, rate limit, empty pick).
	// Informational only; never surfaced to the caller as an error.
	FailureReason string
}

// Success wraps a usable model output.
func Success(out ResolveOutput) Outcome {
	return Outcome{OK: true, Output: out}
}

// Failure records an unusable call. The pipeline continues deterministic-only.
func Failure(reason string) Outcome {
	return Outcome{FailureReason: reason}
}

// Resolver is the boundary contract for the generative collaborator.
//
// Thread Safety: Implementations must be safe for concurrent use.
type Resolver interface {
	// TryResolve asks the model to classify the item against the provider
	// catalog. Never returns an error: every failure mode is an Outcome
	// with OK == false. Honors ctx cancellation (an aborted request
	// abandons the call).
	TryResolve(ctx context.Context, provider *catalog.Provider, guessedItemName string, labels []string) Outcome
}

// ValidateAgainst cross-checks an unvalidated model output against the
// provider catalog.
//
// Description:
//
//	An output whose BestMaterialID is empty or absent from the catalog is
//	discarded entirely (treated as no-op, not an error). Alternatives
//	referencing unknown ids, duplicating the best pick, or duplicating an
//	earlier alternative are dropped individually. Scores are clamped to
//	[0,1].
//
// Outputs:
//
//	ResolveOutput - The validated output. Meaningful only when ok is true.
//	bool - True when the output is safe to merge into trusted results.
func (o ResolveOutput) ValidateAgainst(provider *catalog.Provider) (ResolveOutput, bool) {
	if o.BestMaterialID == "" || provider.FindMaterial(o.BestMaterialID) == nil {
		return ResolveOutput{}, false
	}

	validated := ResolveOutput{
		BestMaterialID: o.BestMaterialID,
		Confidence:     clamp01(o.Confidence),
		Reasoning:      o.Reasoning,
	}

	seen := map[string]bool{o.BestMaterialID: true}
	for _, alt := range o.Alternatives {
		if seen[alt.MaterialID] || provider.FindMaterial(alt.MaterialID) == nil {
			continue
		}
		seen[alt.MaterialID] = true
		validated.Alternatives = append(validated.Alternatives, Alternative{
			MaterialID: alt.MaterialID,
			Score:      clamp01(alt.Score),
		})
	}

	return validated, true
}

func clamp01(x float64) float64 {
	if x < 0 {
		return 0
	}
	if x > 1 {
		return 1
	}
	return x
}
