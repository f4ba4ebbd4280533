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
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
)

// Search limit bounds for the HTTP layer.
const (
	defaultSearchLimit = 10
	maxSearchLimit     = 50
)

// Handlers holds the HTTP handlers for the Toss API.
type Handlers struct {
	svc *Service
}

// NewHandlers creates the handlers over a service.
func NewHandlers(svc *Service) *Handlers {
	return &Handlers{svc: svc}
}

// getOrCreateRequestID returns the inbound X-Request-ID header or mints a
// new UUID so every log line for a request can be correlated.
func getOrCreateRequestID(c *gin.Context) string {
	if id := c.GetHeader("X-Request-ID"); id != "" {
		return id
	}
	return uuid.New().String()
}

// HandleResolve handles POST /resolve.
//
// Description:
//
//	Validates the request, runs the resolution orchestrator, and writes
//	the assembled response. A failed generative enrichment never produces
//	an error status; the engine returns its best-effort classification or
//	a clear 4xx for bad input.
//
// Response:
//
//	200 OK: ResolveResponse
//	400 Bad Request: schema violation, with per-field details
//	404 Not Found: unknown provider id
//	500 Internal Server Error: unexpected failure (generic, internals not exposed)
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleResolve(c *gin.Context) {
	requestID := getOrCreateRequestID(c)
	logger := h.svc.logger.With(slog.String("request_id", requestID), slog.String("handler", "HandleResolve"))

	var req ResolveRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Error:   "invalid request body",
			Details: validationDetails(err),
		})
		return
	}

	resp, err := h.svc.Resolve(c.Request.Context(), ResolveInput{
		ProviderID:       req.ProviderID,
		GuessedItemName:  req.GuessedItemName,
		Labels:           req.Labels,
		VisionConfidence: req.VisionConfidence,
	})
	if err != nil {
		if errors.Is(err, catalog.ErrProviderNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown provider: " + req.ProviderID})
			return
		}
		logger.Error("Resolution failed", slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	logger.Info("Item resolved",
		slog.String("provider", req.ProviderID),
		slog.Float64("confidence", resp.Confidence),
		slog.Bool("known", resp.Best != nil))
	c.JSON(http.StatusOK, resp)
}

// HandleSearch handles GET /search.
//
// Query Parameters:
//
//	q: The search text. Empty or missing returns an empty JSON array.
//	provider: The provider id to search within (required when q is set).
//	limit: Maximum results, default 10, capped at 50 (optional).
//
// Response:
//
//	200 OK: a JSON array of SearchEntry when matches exist, otherwise
//	        EmptySearchResponse carrying "did you mean" suggestions.
//	400 Bad Request: q set but provider missing.
//	404 Not Found: unknown provider id.
//
// Thread Safety: This method is safe for concurrent use.
func (h *Handlers) HandleSearch(c *gin.Context) {
	query := c.Query("q")
	if query == "" {
		c.JSON(http.StatusOK, []SearchEntry{})
		return
	}

	providerID := c.Query("provider")
	if providerID == "" {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "provider parameter is required"})
		return
	}

	limit := defaultSearchLimit
	if limitStr := c.Query("limit"); limitStr != "" {
		if parsed, err := strconv.Atoi(limitStr); err == nil && parsed > 0 {
			limit = min(parsed, maxSearchLimit)
		}
	}

	results, suggestions, err := h.svc.Search(providerID, query, limit)
	if err != nil {
		if errors.Is(err, catalog.ErrProviderNotFound) {
			c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown provider: " + providerID})
			return
		}
		h.svc.logger.Error("Search failed",
			slog.String("request_id", getOrCreateRequestID(c)),
			slog.String("error", err.Error()))
		c.JSON(http.StatusInternalServerError, ErrorResponse{Error: "internal error"})
		return
	}

	if len(results) == 0 {
		if suggestions == nil {
			suggestions = []string{}
		}
		c.JSON(http.StatusOK, EmptySearchResponse{Results: []SearchEntry{}, Suggestions: suggestions})
		return
	}

	entries := make([]SearchEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, SearchEntry{
			MaterialID: r.Material.ID,
			Name:       r.Material.Name,
			Category:   r.Material.Category,
			Score:      r.Score,
		})
	}
	c.JSON(http.StatusOK, entries)
}

// HandleListProviders handles GET /providers.
func (h *Handlers) HandleListProviders(c *gin.Context) {
	c.JSON(http.StatusOK, h.svc.Providers())
}

// HandleGetProvider handles GET /providers/:id, returning the full catalog
// including materials (used by clients to preload autocomplete data).
func (h *Handlers) HandleGetProvider(c *gin.Context) {
	id := c.Param("id")
	provider, err := h.svc.Provider(id)
	if err != nil {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "unknown provider: " + id})
		return
	}
	c.JSON(http.StatusOK, provider)
}

// HandleHealth handles GET /health.
func (h *Handlers) HandleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// HandleReady handles GET /ready. Ready means at least one catalog loaded.
func (h *Handlers) HandleReady(c *gin.Context) {
	if !h.svc.Ready() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "no catalogs loaded"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// validationDetails flattens a binding error into per-field messages.
func validationDetails(err error) []string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return []string{err.Error()}
	}

	details := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		details = append(details, fe.Field()+" failed "+fe.Tag()+" validation")
	}
	return details
}
