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
	"fmt"
	"os"
	"time"

	"github.com/AleutianAI/reverie/pkg/ux"
	"github.com/spf13/cobra"
)

func runHealthCommand(cmd *cobra.Command, args []string) {
	var health struct {
		Status string `json:"status"`
	}
	if err := apiGet("/health", &health, 5*time.Second); err != nil {
		ux.Error(fmt.Sprintf("Walker service unreachable at %s: %v", serverBaseURL(), err))
		os.Exit(1)
	}
	if health.Status != "ok" {
		ux.Warning(fmt.Sprintf("Walker service at %s reported status %q", serverBaseURL(), health.Status))
		os.Exit(1)
	}
	ux.Success(fmt.Sprintf("Walker service is healthy at %s", serverBaseURL()))
}
