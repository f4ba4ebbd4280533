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
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"os"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"golang.org/x/time/rate"

	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
)

// =============================================================================
// OpenAI Wire Types
// =============================================================================

const (
	defaultOpenAIBaseURL = "https://api.openai.com/v1/chat/completions"
	defaultOpenAIModel   = "gpt-4o-mini"

	// defaultTimeout bounds a single resolver call. An unbounded hang here
	// would stall the whole request.
	defaultTimeout = 30 * time.Second

	// Resolver calls are throttled process-wide. Ambiguous-query bursts
	// must not stampede the upstream API.
	defaultRatePerSecond = 2
	defaultRateBurst     = 4
)

type openaiRequest struct {
	Model               string          `json:"model"`
	Messages            []openaiMessage `json:"messages"`
	Temperature         *float32        `json:"temperature,omitempty"`
	MaxCompletionTokens *int            `json:"max_completion_tokens,omitempty"`
}

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiResponse struct {
	ID      string         `json:"id"`
	Choices []openaiChoice `json:"choices"`
	Error   *openaiError   `json:"error,omitempty"`
}

type openaiChoice struct {
	Index        int           `json:"index"`
	Message      openaiMessage `json:"message"`
	FinishReason string        `json:"finish_reason"`
}

type openaiError struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

// =============================================================================
// Client Implementation
// =============================================================================

var resolverTracer = otel.Tracer("aleutian.toss.genai")

// OpenAIResolver implements Resolver against the OpenAI Chat Completions
// REST API using raw net/http (no third-party SDK).
//
// Thread Safety: OpenAIResolver is safe for concurrent use.
type OpenAIResolver struct {
	httpClient *http.Client
	limiter    *rate.Limiter
	logger     *slog.Logger
	apiKey     string
	model      string
	baseURL    string
}

// NewOpenAIResolver creates a resolver from environment variables.
//
// Description:
//
//	Reads OPENAI_API_KEY and OPENAI_MODEL from the environment. Defaults
//	to "gpt-4o-mini" when OPENAI_MODEL is not set.
//
// Outputs:
//
//	*OpenAIResolver - The configured resolver.
//	error - Non-nil if OPENAI_API_KEY is missing. Callers treat a missing
//	        key as "generative fallback disabled", not a startup failure.
func NewOpenAIResolver() (*OpenAIResolver, error) {
	apiKey := os.Getenv("OPENAI_API_KEY")
	if apiKey == "" {
		return nil, fmt.Errorf("openai: OPENAI_API_KEY not set")
	}

	model := os.Getenv("OPENAI_MODEL")
	if model == "" {
		model = defaultOpenAIModel
	}

	return NewOpenAIResolverWithConfig(apiKey, model, defaultOpenAIBaseURL), nil
}

// NewOpenAIResolverWithConfig creates a resolver with explicit
// configuration. Useful for testing with mock servers.
func NewOpenAIResolverWithConfig(apiKey, model, baseURL string) *OpenAIResolver {
	return &OpenAIResolver{
		httpClient: &http.Client{Timeout: defaultTimeout},
		limiter:    rate.NewLimiter(rate.Limit(defaultRatePerSecond), defaultRateBurst),
		logger:     slog.Default(),
		apiKey:     apiKey,
		model:      model,
		baseURL:    baseURL,
	}
}

// TryResolve implements Resolver.
//
// Description:
//
//	Builds a catalog-grounded prompt, calls the chat-completions API, and
//	parses the model's JSON answer. Every failure mode (rate limit,
//	network, non-200, malformed body, empty pick) is a Failure Outcome;
//	this method never panics and never returns an error.
//
// Thread Safety: This method is safe for concurrent use.
func (r *OpenAIResolver) TryResolve(ctx context.Context, provider *catalog.Provider, guessedItemName string, labels []string) Outcome {
	ctx, span := resolverTracer.Start(ctx, "genai.TryResolve")
	defer span.End()
	span.SetAttributes(
		attribute.String("provider", provider.ID),
		attribute.String("model", r.model),
	)
	start := time.Now()

	if !r.limiter.Allow() {
		span.SetStatus(codes.Error, "rate limited")
		return Failure("resolver rate limit exceeded")
	}

	temperature := float32(0)
	maxTokens := 512
	reqBody := openaiRequest{
		Model: r.model,
		Messages: []openaiMessage{
			{Role: "system", Content: systemPrompt},
			{Role: "user", Content: buildUserPrompt(provider, guessedItemName, labels)},
		},
		Temperature:         &temperature,
		MaxCompletionTokens: &maxTokens,
	}

	payload, err := json.Marshal(reqBody)
	if err != nil {
		span.RecordError(err)
		return Failure(fmt.Sprintf("encode request: %v", err))
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, r.baseURL, bytes.NewReader(payload))
	if err != nil {
		span.RecordError(err)
		return Failure(fmt.Sprintf("build request: %v", err))
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+r.apiKey)

	resp, err := r.httpClient.Do(httpReq)
	if err != nil {
		// Covers timeouts and an aborted calling request (context cancel).
		span.RecordError(err)
		span.SetStatus(codes.Error, "call failed")
		r.logger.Warn("Generative resolve call failed",
			slog.String("provider", provider.ID),
			slog.String("error", err.Error()))
		return Failure(fmt.Sprintf("call failed: %v", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		span.RecordError(err)
		return Failure(fmt.Sprintf("read response: %v", err))
	}

	if resp.StatusCode != http.StatusOK {
		span.SetStatus(codes.Error, "non-200 response")
		r.logger.Warn("Generative resolve returned non-200",
			slog.Int("status", resp.StatusCode))
		return Failure(fmt.Sprintf("status %d: %s", resp.StatusCode, truncate(string(body), 200)))
	}

	var apiResp openaiResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		span.RecordError(err)
		return Failure(fmt.Sprintf("decode response: %v", err))
	}
	if apiResp.Error != nil {
		return Failure(fmt.Sprintf("api error: %s", apiResp.Error.Message))
	}
	if len(apiResp.Choices) == 0 {
		return Failure("no choices in response")
	}

	out, err := parseResolveOutput(apiResp.Choices[0].Message.Content)
	if err != nil {
		return Failure(err.Error())
	}
	if out.BestMaterialID == "" {
		return Failure("model returned no best material")
	}

	span.SetStatus(codes.Ok, "resolved")
	span.SetAttributes(
		attribute.String("best_material_id", out.BestMaterialID),
		attribute.Float64("confidence", out.Confidence),
		attribute.Int64("duration_ms", time.Since(start).Milliseconds()),
	)
	return Success(out)
}

// truncate shortens s for log and failure messages.
func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
