// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Command tossctl runs the Aleutian Toss engine from the command line,
// without a server, against the embedded catalogs (or a catalog directory
// via TOSS_CATALOG_DIR).
//
// Usage:
//
//	tossctl providers
//	tossctl classify "greasy pizza box" --provider seattle
//	tossctl search battery --provider general
//
// The generative fallback is used only when OPENAI_API_KEY is set.
package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/AleutianAI/AleutianToss/services/toss"
	"github.com/AleutianAI/AleutianToss/services/toss/catalog"
	"github.com/AleutianAI/AleutianToss/services/toss/genai"
)

// providerID holds the --provider flag value shared by subcommands.
var providerID string

func newService() *toss.Service {
	var storeOpts []catalog.StoreOption
	if dir := os.Getenv("TOSS_CATALOG_DIR"); dir != "" {
		storeOpts = append(storeOpts, catalog.WithDir(dir))
	}
	store, err := catalog.NewStore(storeOpts...)
	if err != nil {
		log.Fatalf("Error loading catalogs: %v", err)
	}

	var svcOpts []toss.ServiceOption
	if resolver, err := genai.NewOpenAIResolver(); err == nil {
		svcOpts = append(svcOpts, toss.WithResolver(resolver))
	}
	return toss.NewService(store, svcOpts...)
}

func runClassifyCommand(_ *cobra.Command, args []string) {
	query := strings.Join(args, " ")
	svc := newService()

	resp, err := svc.Resolve(context.Background(), toss.ResolveInput{
		ProviderID:      providerID,
		GuessedItemName: query,
	})
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	fmt.Printf("Provider: %s\n", resp.ProviderName)
	if resp.Best != nil {
		fmt.Printf("Result:   %s → %s (confidence %.2f)\n", resp.Best.Name, resp.Best.Category, resp.Confidence)
		for _, line := range resp.Best.Instructions {
			fmt.Printf("  - %s\n", line)
		}
	} else {
		fmt.Printf("Result:   unknown (confidence %.2f)\n", resp.Confidence)
	}

	if len(resp.Matches) > 0 {
		fmt.Println("\nClosest matches:")
		for i, m := range resp.Matches {
			if i >= 5 {
				break
			}
			fmt.Printf("%d. %s [%s] (%.2f)\n", i+1, m.Material.Name, m.Material.Category, m.Score)
		}
	}

	fmt.Println("\nRationale:")
	for _, line := range resp.Rationale {
		fmt.Printf("  %s\n", line)
	}
}

func runSearchCommand(_ *cobra.Command, args []string) {
	query := strings.Join(args, " ")
	svc := newService()

	results, suggestions, err := svc.Search(providerID, query, 10)
	if err != nil {
		log.Fatalf("Error: %v", err)
	}

	if len(results) == 0 {
		fmt.Println("No matches.")
		if len(suggestions) > 0 {
			fmt.Printf("Did you mean: %s?\n", strings.Join(suggestions, ", "))
		}
		return
	}

	for i, r := range results {
		fmt.Printf("%d. %s [%s] (%.2f)\n", i+1, r.Material.Name, r.Material.Category, r.Score)
	}
}

func runProvidersCommand(_ *cobra.Command, _ []string) {
	svc := newService()
	for _, p := range svc.Providers() {
		where := p.Coverage.Country
		if p.Coverage.City != "" {
			where = p.Coverage.City + ", " + p.Coverage.Region
		}
		fmt.Printf("%-12s %s (%s, %d materials)\n", p.ID, p.DisplayName, where, p.MaterialCount)
	}
}

func main() {
	rootCmd := &cobra.Command{
		Use:   "tossctl",
		Short: "Disposal guidance from the command line",
	}
	rootCmd.PersistentFlags().StringVar(&providerID, "provider", "general", "Provider catalog id")

	classifyCmd := &cobra.Command{
		Use:   "classify <item description>",
		Short: "Classify an item into a disposal category",
		Args:  cobra.MinimumNArgs(1),
		Run:   runClassifyCommand,
	}

	searchCmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Search a provider catalog with suggestions",
		Args:  cobra.MinimumNArgs(1),
		Run:   runSearchCommand,
	}

	providersCmd := &cobra.Command{
		Use:   "providers",
		Short: "List loaded provider catalogs",
		Run:   runProvidersCommand,
	}

	rootCmd.AddCommand(classifyCmd, searchCmd, providersCmd)
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
