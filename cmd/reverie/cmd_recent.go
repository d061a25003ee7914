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
	"strconv"
	"time"

	"github.com/AleutianAI/reverie/pkg/ux"
	"github.com/spf13/cobra"
)

func runRecentCommand(cmd *cobra.Command, args []string) {
	path := fmt.Sprintf("/v1/walks/recent?limit=%d", recentLimit)
	var resp recentWalksResponse
	if err := apiGet(path, &resp, 15*time.Second); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	if recentJSON {
		printJSON(resp)
		return
	}

	if resp.Count == 0 {
		ux.Muted("No walks journaled yet.")
		return
	}

	ux.Title(fmt.Sprintf("Recent walks (%d)", resp.Count))
	rows := make([][]string, 0, len(resp.Walks))
	for _, entry := range resp.Walks {
		rows = append(rows, []string{
			shortID(entry.WalkID),
			entry.Kind,
			entry.Character,
			strconv.Itoa(entry.Stats.TotalNodes),
			strconv.Itoa(entry.Stats.DepthReached),
			formatAge(entry.CreatedAt),
		})
	}
	printTable([]string{"WALK", "KIND", "CHARACTER", "NODES", "DEPTH", "WHEN"}, rows)
}

// formatAge renders a journal timestamp as a rough age like "3h ago".
func formatAge(t time.Time) string {
	if t.IsZero() {
		return "unknown"
	}
	age := time.Since(t)
	switch {
	case age < time.Minute:
		return "just now"
	case age < time.Hour:
		return fmt.Sprintf("%dm ago", int(age.Minutes()))
	case age < 24*time.Hour:
		return fmt.Sprintf("%dh ago", int(age.Hours()))
	default:
		return fmt.Sprintf("%dd ago", int(age.Hours()/24))
	}
}
