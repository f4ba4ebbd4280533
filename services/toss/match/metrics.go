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
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	matchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toss",
		Subsystem: "match",
		Name:      "total",
		Help:      "Deterministic match outcomes by winning tier: exact, substring, token-overlap, edit-distance, below_floor, none",
	}, []string{"tier"})

	searchTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "toss",
		Subsystem: "search",
		Name:      "total",
		Help:      "Search outcomes: hit (non-empty result set) or empty (suggestions path)",
	}, []string{"result"})
)
