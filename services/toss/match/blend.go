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

import "math"

// Fixed blend weights. Not configurable per call.
const (
	WeightDeterministic = 0.5
	WeightVision        = 0.25
	WeightResolve       = 0.25
)

// Blend combines the deterministic, vision, and generative confidences
// into one final score.
//
// Description:
//
//	Pure function. When neither optional signal is supplied, returns the
//	deterministic confidence unchanged (no blending, no rounding
//	artifacts). Otherwise computes a weighted average where the
//	denominator is the sum of the weights actually used, so a missing
//	input never silently counts as zero. The blended result is rounded to
//	two decimal places and clamped to [0,1].
//
// Inputs:
//
//	deterministic - Confidence from the text matcher.
//	vision - Optional vision-model confidence. Nil when absent.
//	resolve - Optional validated generative confidence. Nil when absent.
//
// Thread Safety: Safe for concurrent use (stateless function).
func Blend(deterministic float64, vision, resolve *float64) float64 {
	if vision == nil && resolve == nil {
		return clamp01(deterministic)
	}

	sum := WeightDeterministic * clamp01(deterministic)
	denom := WeightDeterministic

	if vision != nil {
		sum += WeightVision * clamp01(*vision)
		denom += WeightVision
	}
	if resolve != nil {
		sum += WeightResolve * clamp01(*resolve)
		denom += WeightResolve
	}

	return clamp01(math.Round(sum/denom*100) / 100)
}
