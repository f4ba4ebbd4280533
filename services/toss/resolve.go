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
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/sync/errgroup"

	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
	"github.com/AleutianAI/AleutianToss/services/toss/genai"
	"github.com/AleutianAI/AleutianToss/services/toss/match"
)

// Orchestrator thresholds.
const (
	// unknownThreshold is the sole gate in Decide: a final blended
	// confidence below it yields best = nil regardless of how high any
	// individual sub-score was.
	unknownThreshold = 0.40

	// aiTriggerThreshold gates the generative fallback: it runs only when
	// the deterministic confidence is below this and a resolver is
	// configured and the guessed item name is non-empty.
	aiTriggerThreshold = 0.80
)

// =============================================================================
// Prometheus Metrics
// =============================================================================

var (
	resolveTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toss",
		Subsystem: "resolve",
		Name:      "total",
		Help:      "Resolution outcomes: known or unknown",
	}, []string{"outcome"})

	resolveLatency = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "toss",
		Subsystem: "resolve",
		Name:      "latency_seconds",
		Help:      "End-to-end resolution latency including the optional generative call",
		Buckets:   []float64{0.001, 0.01, 0.1, 0.5, 1.0, 3.0, 10.0},
	})

	genaiTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toss",
		Subsystem: "genai",
		Name:      "total",
		Help:      "Generative fallback outcomes: success, hallucinated_id, failed, skipped",
	}, []string{"outcome"})
)

var resolveTracer = otel.Tracer("aleutian.toss.resolve")

// ResolveInput is the orchestrator's request: a provider id plus the
// candidate signals for one item.
type ResolveInput struct {
	ProviderID       string
	GuessedItemName  string
	Labels           []string
	VisionConfidence *float64
}

// Resolve classifies one item against a provider catalog.
//
// Description:
//
//	Runs the resolution state machine: DeterministicMatch over the
//	candidate strings (guessed item name plus vision labels), an optional
//	confidence-gated GenerativeResolve, Blend, then Decide. The generative
//	call is best-effort: any failure, including a hallucinated material
//	id, leaves the deterministic result untouched and never fails the
//	request.
//
// Inputs:
//
//	ctx - Cancels the generative call if the caller aborts. Deterministic
//	      work is never blocked or cancelled.
//	in - The resolution input. ProviderID must name a loaded catalog.
//
// Outputs:
//
//	*ResolveResponse - The assembled response; never nil on success.
//	error - catalog.ErrProviderNotFound for an unknown provider id.
//	        Resolution never proceeds with a guessed or default catalog.
//
// Thread Safety: This method is safe for concurrent use.
func (s *Service) Resolve(ctx context.Context, in ResolveInput) (*ResolveResponse, error) {
	ctx, span := resolveTracer.Start(ctx, "toss.Resolve")
	defer span.End()
	span.SetAttributes(attribute.String("provider", in.ProviderID))
	start := time.Now()

	provider, err := s.catalogs.Get(in.ProviderID)
	if err != nil {
		span.SetStatus(codes.Error, "provider not found")
		return nil, err
	}

	// --- DeterministicMatch ------------------------------------------------
	// Each candidate string is matched independently and the result with
	// the globally highest confidence wins; scores are never merged across
	// candidates.
	det := s.matchCandidates(provider, in.GuessedItemName, in.Labels)
	detConf := det.Confidence

	best := det.Best
	matches := det.Matches
	rationale := det.Rationale

	// --- GenerativeResolve (gated, best-effort) ----------------------------
	var resolveConf *float64
	if s.resolver == nil || detConf >= aiTriggerThreshold || match.Normalize(in.GuessedItemName) == "" {
		genaiTotal.WithLabelValues("skipped").Inc()
	} else {
		outcome := s.resolver.TryResolve(ctx, provider, in.GuessedItemName, in.Labels)
		switch {
		case !outcome.OK:
			genaiTotal.WithLabelValues("failed").Inc()
			s.logger.Warn("Generative fallback failed, continuing deterministic-only",
				slog.String("provider", provider.ID),
				slog.String("reason", outcome.FailureReason))

		default:
			validated, ok := outcome.Output.ValidateAgainst(provider)
			if !ok {
				// Hallucinated id: discard the whole output, no-op.
				genaiTotal.WithLabelValues("hallucinated_id").Inc()
				s.logger.Warn("Generative result referenced unknown material, discarded",
					slog.String("provider", provider.ID),
					slog.String("material_id", outcome.Output.BestMaterialID))
				break
			}

			genaiTotal.WithLabelValues("success").Inc()
			c := validated.Confidence
			resolveConf = &c

			if c > detConf {
				best = provider.FindMaterial(validated.BestMaterialID)
				matches = mergeGenerativeMatches(provider, validated, matches)
				rationale = append(rationale, fmt.Sprintf(
					"generative resolver selected %q (confidence %.2f), replacing the deterministic candidate",
					best.Name, c))
				rationale = append(rationale, validated.Reasoning...)
			} else {
				rationale = append(rationale, fmt.Sprintf(
					"generative resolver offered %q at %.2f, not above deterministic %.2f; kept deterministic match",
					validated.BestMaterialID, c, detConf))
			}
		}
	}

	// --- Blend -------------------------------------------------------------
	final := match.Blend(detConf, in.VisionConfidence, resolveConf)

	// --- Decide ------------------------------------------------------------
	// Final confidence is the sole gate. The ranked list survives either
	// way so the caller can show closest guesses.
	if best != nil && final < unknownThreshold {
		rationale = append(rationale, fmt.Sprintf(
			"final confidence %.2f is below the %.2f unknown threshold", final, unknownThreshold))
		best = nil
	}

	outcome := "known"
	if best == nil {
		outcome = "unknown"
	}
	resolveTotal.WithLabelValues(outcome).Inc()
	resolveLatency.Observe(time.Since(start).Seconds())
	span.SetAttributes(
		attribute.String("outcome", outcome),
		attribute.Float64("confidence", final),
		attribute.Int("matches", len(matches)),
	)
	span.SetStatus(codes.Ok, outcome)

	return &ResolveResponse{
		Best:         best,
		Matches:      matches,
		Confidence:   final,
		Rationale:    rationale,
		ProviderName: provider.DisplayName,
	}, nil
}

// matchCandidates runs the deterministic matcher over every non-empty
// candidate string concurrently and keeps the single best outcome.
//
// The winner is the outcome with the highest confidence; on equal
// confidence the earlier candidate wins (the guessed item name is ordered
// first), with top-ranked score as a final tiebreak so a candidate with
// near-miss matches beats one with none.
func (s *Service) matchCandidates(provider *catalog.Provider, guessedItemName string, labels []string) match.Outcome {
	candidates := make([]string, 0, 1+len(labels))
	for _, c := range append([]string{guessedItemName}, labels...) {
		if match.Normalize(c) != "" {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return match.Outcome{
			Matches:   []match.Result{},
			Rationale: []string{"no usable query or labels supplied"},
		}
	}

	outcomes := make([]match.Outcome, len(candidates))
	var g errgroup.Group
	for i, c := range candidates {
		i, c := i, c
		g.Go(func() error {
			outcomes[i] = match.Match(provider, c)
			return nil
		})
	}
	_ = g.Wait() // matching never errors

	bestIdx := 0
	for i := 1; i < len(outcomes); i++ {
		if outcomes[i].Confidence > outcomes[bestIdx].Confidence {
			bestIdx = i
			continue
		}
		if outcomes[i].Confidence == outcomes[bestIdx].Confidence &&
			topScore(outcomes[i]) > topScore(outcomes[bestIdx]) {
			bestIdx = i
		}
	}
	return outcomes[bestIdx]
}

// topScore returns the score of the highest-ranked match, 0 when empty.
func topScore(o match.Outcome) float64 {
	if len(o.Matches) == 0 {
		return 0
	}
	return o.Matches[0].Score
}

// mergeGenerativeMatches builds the match list after a validated generative
// result replaces the deterministic best: the new best first, then its
// alternatives, then the previous matches, deduplicated by material id and
// re-sorted by descending score (stable, so generative entries stay ahead
// of equal-scored deterministic ones).
func mergeGenerativeMatches(provider *catalog.Provider, validated genai.ResolveOutput, previous []match.Result) []match.Result {
	merged := make([]match.Result, 0, 1+len(validated.Alternatives)+len(previous))
	seen := make(map[string]bool)

	add := func(id string, score float64) {
		m := provider.FindMaterial(id)
		if m == nil || seen[m.ID] {
			return
		}
		seen[m.ID] = true
		merged = append(merged, match.Result{Material: m, Score: score})
	}

	add(validated.BestMaterialID, validated.Confidence)
	for _, alt := range validated.Alternatives {
		add(alt.MaterialID, alt.Score)
	}
	for _, prev := range previous {
		add(prev.Material.ID, prev.Score)
	}

	sort.SliceStable(merged, func(i, j int) bool {
		return merged[i].Score > merged[j].Score
	})
	return merged
}
