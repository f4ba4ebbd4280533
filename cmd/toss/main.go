// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command toss starts the Aleutian Toss API server.
//
// Aleutian Toss answers one question: how do I dispose of this item, under
// this jurisdiction's rules? It combines:
//   - Deterministic text matching against per-jurisdiction material catalogs
//   - Confidence blending across text, vision, and generative signals
//   - A generative-model fallback for ambiguous queries (optional)
//   - Autocomplete search with edit-distance "did you mean" suggestions
//
// Usage:
//
//	go run ./cmd/toss
//	go run ./cmd/toss -port 9090
//
// With the generative fallback:
//
//	OPENAI_API_KEY=sk-... go run ./cmd/toss
//
// With a catalog override directory (hot-reloaded on change):
//
//	TOSS_CATALOG_DIR=/etc/toss/catalogs go run ./cmd/toss
//
// Example requests:
//
//	# Health check
//	curl http://localhost:8080/v1/health
//
//	# Classify an item
//	curl -X POST http://localhost:8080/v1/resolve \
//	  -H "Content-Type: application/json" \
//	  -d '{"providerId": "seattle", "guessedItemName": "greasy pizza box", "labels": ["cardboard"]}'
//
//	# Autocomplete search
//	curl 'http://localhost:8080/v1/search?q=battery&provider=general'
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/propagation"

	"github.com/AleutianAI/AleutianToss/services/toss"
	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
	"github.com/AleutianAI/AleutianToss/services/toss/genai"
)

func main() {
	port := flag.Int("port", 8080, "Port to listen on")
	debug := flag.Bool("debug", false, "Enable debug mode")
	flag.Parse()

	if *debug {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	// W3C TraceContext propagation so trace context flows from incoming
	// headers through all handlers.
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))

	// Catalog store: embedded defaults plus optional override directory.
	var storeOpts []catalog.StoreOption
	if dir := os.Getenv("TOSS_CATALOG_DIR"); dir != "" {
		storeOpts = append(storeOpts, catalog.WithDir(dir))
	}
	store, err := catalog.NewStore(storeOpts...)
	if err != nil {
		slog.Error("Failed to load catalogs", slog.String("error", err.Error()))
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() {
		if err := store.Watch(ctx); err != nil {
			slog.Warn("Catalog watcher unavailable, hot reload disabled",
				slog.String("error", err.Error()))
		}
	}()

	// Generative fallback is optional: no API key means deterministic-only.
	var svcOpts []toss.ServiceOption
	resolver, err := genai.NewOpenAIResolver()
	genaiEnabled := err == nil
	if genaiEnabled {
		svcOpts = append(svcOpts, toss.WithResolver(resolver))
		slog.Info("Generative fallback enabled")
	} else {
		slog.Info("Generative fallback disabled", slog.String("reason", err.Error()))
	}

	svc := toss.NewService(store, svcOpts...)
	handlers := toss.NewHandlers(svc)

	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(otelgin.Middleware("aleutian-toss"))
	if *debug {
		router.Use(gin.Logger())
	}

	v1 := router.Group("/v1")
	toss.RegisterRoutes(v1, handlers)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	printBanner(*port, len(store.List()), genaiEnabled)

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		slog.Info("Shutting down Aleutian Toss server")
		cancel()
		os.Exit(0)
	}()

	addr := fmt.Sprintf(":%d", *port)
	slog.Info("Starting Aleutian Toss server", slog.String("address", addr))
	if err := router.Run(addr); err != nil {
		slog.Error("Failed to start server", slog.String("error", err.Error()))
		os.Exit(1)
	}
}

func printBanner(port, providers int, genaiEnabled bool) {
	genaiStatus := "DISABLED (set OPENAI_API_KEY to enable)"
	if genaiEnabled {
		genaiStatus = "ENABLED"
	}

	banner := `
╔═══════════════════════════════════════════════════════════════════╗
║                       ALEUTIAN TOSS SERVER                        ║
╠═══════════════════════════════════════════════════════════════════╣
║                                                                   ║
║  Disposal guidance: which bin, how sure, and why.                 ║
║  Providers loaded: %-4d                                           ║
║  Generative fallback: %-44s ║
║                                                                   ║
║  Quick Start:                                                     ║
║    curl http://localhost:%d/v1/health                           ║
║    curl http://localhost:%d/v1/providers                        ║
║    curl -X POST http://localhost:%d/v1/resolve \                ║
║      -d '{"providerId":"general","guessedItemName":"keys"}'       ║
║                                                                   ║
║  Press Ctrl+C to stop                                             ║
╚═══════════════════════════════════════════════════════════════════╝
`
	fmt.Printf(banner, providers, genaiStatus, port, port, port)
}
