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
	"errors"
	"fmt"
	"net/url"
	"os"
	"path/filepath"

	"github.com/AleutianAI/reverie/pkg/ux"
	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

// runInitCommand walks the user through a reverie.yaml and writes it out.
//
// # Description
//
// Prefills the form from any config already on disk, so re-running init
// edits rather than resets. Declines to overwrite an existing file unless
// the user confirms or passes --force.
func runInitCommand(cmd *cobra.Command, args []string) {
	cfg := cliConfig
	if cfg.ServerURL == "" {
		cfg.ServerURL = fmt.Sprintf("http://%s:%d", DefaultWalkerHost, DefaultWalkerPort)
	}
	if cfg.Personality == "" {
		cfg.Personality = "full"
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Walker service URL").
				Description("Where the reverie walker service listens").
				Value(&cfg.ServerURL).
				Validate(validateServerURL),
			huh.NewInput().
				Title("Default user").
				Description("User ID sent with walks when --user is omitted").
				Value(&cfg.User),
			huh.NewInput().
				Title("Default character").
				Description("Character lens for dream and diary walks").
				Value(&cfg.Character),
			huh.NewSelect[string]().
				Title("Output personality").
				Options(huh.NewOptions("full", "standard", "minimal", "machine")...).
				Value(&cfg.Personality),
		),
	)

	if err := form.Run(); err != nil {
		if errors.Is(err, huh.ErrUserAborted) {
			ux.Warning("Init cancelled, nothing written")
			return
		}
		ux.Error(fmt.Sprintf("Init failed: %v", err))
		os.Exit(1)
	}

	path := initPath
	if path == "" {
		path = defaultConfigPath()
	}
	if _, err := os.Stat(path); err == nil && !initForce {
		overwrite := false
		confirm := huh.NewConfirm().
			Title(fmt.Sprintf("%s already exists. Overwrite?", path)).
			Value(&overwrite)
		if err := confirm.Run(); err != nil || !overwrite {
			ux.Warning("Init cancelled, existing config kept")
			return
		}
	}

	if err := writeCLIConfig(path, cfg); err != nil {
		ux.Error(fmt.Sprintf("Writing config: %v", err))
		os.Exit(1)
	}
	ux.Success(fmt.Sprintf("Wrote %s", path))
	ux.Muted("Run 'reverie walk <seed>' to take your first walk.")
}

func writeCLIConfig(path string, cfg CLIConfig) error {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return err
		}
	}
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func validateServerURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("not a valid URL")
	}
	if parsed.Scheme != "http" && parsed.Scheme != "https" {
		return fmt.Errorf("URL must start with http:// or https://")
	}
	if parsed.Host == "" {
		return fmt.Errorf("URL needs a host")
	}
	return nil
}
