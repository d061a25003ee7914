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
	"log"
	"log/slog"

	"github.com/AleutianAI/reverie/pkg/logging"
	"github.com/AleutianAI/reverie/pkg/ux"
	"github.com/spf13/cobra"
)

var (
	cliConfig CLIConfig
	cliLogger *logging.Logger
)

func main() {
	defer func() {
		if cliLogger != nil {
			cliLogger.Close()
		}
	}()
	if err := rootCmd.Execute(); err != nil {
		log.Fatalf("Error executing command: %v", err)
	}
}

// init runs when the Go program starts
func init() {
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, args []string) {
		// Missing config is fine; every field has a working default.
		cliConfig = loadCLIConfig()

		switch {
		case personalityLevel != "":
			ux.SetPersonalityLevel(ux.ParsePersonalityLevel(personalityLevel))
		case cliConfig.Personality != "":
			ux.SetPersonalityLevel(ux.ParsePersonalityLevel(cliConfig.Personality))
		default:
			ux.InitPersonality()
		}

		// Warnings and up go to ~/.reverie/logs; stdout stays clean for the UX layer.
		cliLogger = logging.New(logging.Config{
			Level:   logging.LevelWarn,
			LogDir:  "~/.reverie/logs",
			Service: "reverie",
			Quiet:   true,
		})
		slog.SetDefault(cliLogger.Slog())
	}
}
