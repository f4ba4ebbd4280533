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
	"github.com/gin-gonic/gin"
)

// RegisterRoutes registers all Toss routes with the router.
//
// Description:
//
//	Registers the resolution and search endpoints with the given Gin
//	router group. The group should already have any required middleware
//	applied.
//
// Endpoints:
//
//	POST /resolve - Classify an item against a provider catalog
//	GET  /search - Autocomplete search with "did you mean" suggestions
//	GET  /providers - List loaded provider catalogs
//	GET  /providers/:id - Fetch one full provider catalog
//	GET  /health - Health check
//	GET  /ready - Readiness check
//
// Example:
//
//	store, _ := catalog.NewStore()
//	svc := toss.NewService(store)
//	handlers := toss.NewHandlers(svc)
//
//	v1 := router.Group("/v1")
//	toss.RegisterRoutes(v1, handlers)
func RegisterRoutes(rg *gin.RouterGroup, handlers *Handlers) {
	rg.POST("/resolve", handlers.HandleResolve)
	rg.GET("/search", handlers.HandleSearch)

	rg.GET("/providers", handlers.HandleListProviders)
	rg.GET("/providers/:id", handlers.HandleGetProvider)

	rg.GET("/health", handlers.HandleHealth)
	rg.GET("/ready", handlers.HandleReady)
}
