// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package main

import (
	"github.com/spf13/cobra"
)

// --- Global Command Variables ---
var (
	serverFlag       string // CLI override for the walker service URL
	personalityLevel string // UX personality level (full/standard/minimal/machine)

	initPath  string // Target path for the generated config file
	initForce bool   // Overwrite an existing config without asking

	walkUser        string
	walkCharacter   string
	walkWith        []string // Secondary characters for a multi walk
	walkDepth       int
	walkMaxNodes    int
	walkSerendipity float64
	walkMinScore    float64
	walkInteractive bool
	walkJSON        bool

	agentUser       string
	agentCharacter  string
	agentCompanions []string
	agentSeeds      []string
	agentJSON       bool

	recentLimit int
	recentJSON  bool

	rootCmd = &cobra.Command{
		Use:   "reverie",
		Short: "A cli for the Reverie graph walker service",
		Long: `Reverie walks a property graph of users, characters, entities,
				topics, and artifacts, surfacing scored connections for dreams,
				diaries, and conversation context.`,
	}

	// --- Setup ---
	initCmd = &cobra.Command{
		Use:   "init",
		Short: "Create a reverie.yaml config through a short interactive wizard",
		Run:   runInitCommand, // Defined in cmd_init.go
	}

	// --- Walks ---
	walkCmd = &cobra.Command{
		Use:   "walk [seeds...]",
		Short: "Walk the graph outward from one or more seed nodes",
		Args:  cobra.MinimumNArgs(1),
		Run:   runWalkCommand, // Defined in cmd_walk.go
	}

	// --- Agent Walks ---
	dreamCmd = &cobra.Command{
		Use:   "dream",
		Short: "Run a dream walk for a character and print its interpretation",
		Run:   runDreamCommand, // Defined in cmd_agent.go
	}
	diaryCmd = &cobra.Command{
		Use:   "diary",
		Short: "Run a diary walk grounded in recent interactions",
		Run:   runDiaryCommand, // Defined in cmd_agent.go
	}
	contextCmd = &cobra.Command{
		Use:   "context",
		Short: "Run a fast context walk (no interpretation)",
		Run:   runContextCommand, // Defined in cmd_agent.go
	}

	// --- History ---
	recentCmd = &cobra.Command{
		Use:   "recent",
		Short: "List recently journaled walks",
		Run:   runRecentCommand, // Defined in cmd_recent.go
	}

	// --- Service ---
	healthCmd = &cobra.Command{
		Use:   "health",
		Short: "Check whether the walker service is reachable",
		Run:   runHealthCommand, // Defined in cmd_health.go
	}
)

// init runs when the Go program starts
func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&serverFlag, "server", "",
		"Walker service URL (overrides reverie.yaml and REVERIE_SERVER_URL)")
	rootCmd.PersistentFlags().StringVar(&personalityLevel, "personality", "",
		"Output style: full (default), standard, minimal, or machine (scripting)")

	rootCmd.AddCommand(initCmd)
	initCmd.Flags().StringVar(&initPath, "path", "",
		"Where to write the config (default ~/.reverie/reverie.yaml)")
	initCmd.Flags().BoolVar(&initForce, "force", false,
		"Overwrite an existing config without asking")

	rootCmd.AddCommand(walkCmd)
	walkCmd.Flags().StringVarP(&walkUser, "user", "u", "",
		"User whose relationships anchor the walk")
	walkCmd.Flags().StringVarP(&walkCharacter, "character", "c", "",
		"Character lens for anchor boosting")
	walkCmd.Flags().StringSliceVar(&walkWith, "with", nil,
		"Secondary characters for a trust-gated multi walk")
	walkCmd.Flags().IntVar(&walkDepth, "depth", 0,
		"Maximum walk depth (0 = service default, max 4)")
	walkCmd.Flags().IntVar(&walkMaxNodes, "max-nodes", 0,
		"Maximum nodes to collect (0 = service default, max 100)")
	walkCmd.Flags().Float64Var(&walkSerendipity, "serendipity", 0,
		"Chance to keep a low-scoring node anyway (0-0.5)")
	walkCmd.Flags().Float64Var(&walkMinScore, "min-score", 0,
		"Score floor for keeping nodes (0-1)")
	walkCmd.Flags().BoolVarP(&walkInteractive, "interactive", "i", false,
		"Stream per-depth progress over a websocket")
	walkCmd.Flags().BoolVar(&walkJSON, "json", false,
		"Output the raw result as JSON")

	rootCmd.AddCommand(dreamCmd)
	rootCmd.AddCommand(diaryCmd)
	rootCmd.AddCommand(contextCmd)
	for _, c := range []*cobra.Command{dreamCmd, diaryCmd, contextCmd} {
		c.Flags().StringVarP(&agentUser, "user", "u", "",
			"User the walk is about (default from reverie.yaml)")
		c.Flags().StringVarP(&agentCharacter, "character", "c", "",
			"Character doing the walking (default from reverie.yaml)")
		c.Flags().StringSliceVar(&agentSeeds, "seed", nil,
			"Extra seed nodes beyond what the agent derives")
		c.Flags().BoolVar(&agentJSON, "json", false,
			"Output the raw result as JSON")
	}
	dreamCmd.Flags().StringSliceVar(&agentCompanions, "companions", nil,
		"Other characters whose walks may blend in (trust-gated)")

	rootCmd.AddCommand(recentCmd)
	recentCmd.Flags().IntVarP(&recentLimit, "limit", "n", 20,
		"Number of journal entries to list (max 100)")
	recentCmd.Flags().BoolVar(&recentJSON, "json", false,
		"Output the raw entries as JSON")

	rootCmd.AddCommand(healthCmd)
}
