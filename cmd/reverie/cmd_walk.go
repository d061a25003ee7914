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
	"strings"
	"time"

	"github.com/AleutianAI/reverie/pkg/ux"
	"github.com/spf13/cobra"
)

// runWalkCommand runs a single scored walk from the given seeds, or a
// multi-character walk when --with names secondary characters.
func runWalkCommand(cmd *cobra.Command, args []string) {
	user := firstNonEmpty(walkUser, cliConfig.User)
	character := firstNonEmpty(walkCharacter, cliConfig.Character)

	req := walkRequest{
		Seeds:       args,
		UserID:      user,
		Character:   character,
		MaxDepth:    walkDepth,
		MaxNodes:    walkMaxNodes,
		Serendipity: walkSerendipity,
		MinScore:    walkMinScore,
	}

	if walkInteractive {
		if len(walkWith) > 0 {
			ux.Warning("--with is ignored in interactive mode")
		}
		runWalkWatch(req)
		return
	}

	if len(walkWith) > 0 {
		if character == "" {
			ux.Error("--with needs a primary character (--character or reverie.yaml)")
			os.Exit(1)
		}
		multiReq := multiWalkRequest{
			Seeds:       req.Seeds,
			UserID:      req.UserID,
			Primary:     character,
			Secondaries: walkWith,
			MaxDepth:    req.MaxDepth,
			MaxNodes:    req.MaxNodes,
			Serendipity: req.Serendipity,
			MinScore:    req.MinScore,
		}
		var resp multiWalkResponse
		if err := apiPost("/v1/walk/multi", multiReq, &resp, 90*time.Second); err != nil {
			ux.Error(err.Error())
			os.Exit(1)
		}
		if walkJSON {
			printJSON(resp)
			return
		}
		renderMultiWalkResult(resp.WalkID, resp.Result)
		return
	}

	var resp walkResponse
	if err := apiPost("/v1/walk", req, &resp, 60*time.Second); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	if walkJSON {
		printJSON(resp)
		return
	}
	renderWalkResult(resp.WalkID, resp.Result)
}

func renderWalkResult(walkID string, res *walkResult) {
	if res == nil {
		ux.Warning("The walk returned no result")
		return
	}
	title := "Walk"
	if walkID != "" {
		title = fmt.Sprintf("Walk %s", shortID(walkID))
	}
	ux.Title(title)

	renderNodeTable(res.Nodes)

	for _, cluster := range res.Clusters {
		line := fmt.Sprintf("%s (cohesion %.2f)", cluster.Theme, cluster.CohesionScore)
		if cluster.CentralNode != nil {
			line = fmt.Sprintf("%s, around %s", line, cluster.CentralNode.Name)
		}
		ux.Info(line)
	}

	if res.Interpretation != "" {
		ux.Box("Interpretation", res.Interpretation)
	}

	renderWalkStats(res.Stats)
}

func renderMultiWalkResult(walkID string, res *multiWalkResult) {
	if res == nil {
		ux.Warning("The walk returned no result")
		return
	}
	title := "Multi walk"
	if walkID != "" {
		title = fmt.Sprintf("Multi walk %s", shortID(walkID))
	}
	ux.Title(title)

	renderNodeTable(res.MergedNodes)

	for _, concept := range res.SharedConcepts {
		ux.Info(fmt.Sprintf("%s shared: %s", ux.IconStar.Render(), concept))
	}

	if res.PrimaryWalk != nil {
		renderWalkStats(res.PrimaryWalk.Stats)
	}
}

// renderNodeTable prints walked nodes sorted as the service returned them
// (score-descending). Serendipitous finds get a star next to the name.
func renderNodeTable(nodes []walkedNode) {
	if len(nodes) == 0 {
		ux.Warning("No nodes survived the walk")
		return
	}
	rows := make([][]string, 0, len(nodes))
	for _, n := range nodes {
		name := n.Name
		if n.IsSerendipitous {
			name = fmt.Sprintf("%s %s", name, ux.IconStar.Render())
		}
		rows = append(rows, []string{
			name,
			n.Label,
			strconv.Itoa(n.Depth),
			ux.ScoreBar(n.Score, 12),
		})
	}
	printTable([]string{"NAME", "LABEL", "DEPTH", "SCORE"}, rows)
}

func renderWalkStats(stats walkStats) {
	ux.Muted(fmt.Sprintf("%d nodes, %d edges, depth %d, %d clusters, %d serendipitous, %dms",
		stats.TotalNodes, stats.TotalEdges, stats.DepthReached,
		stats.ClustersFound, stats.SerendipitousCount, stats.DurationMs))
	if stats.Error != "" {
		ux.Warning(fmt.Sprintf("Partial result: %s", stats.Error))
	}
}

// printTable handles the trailing-newline difference between the bordered
// table and machine mode's tab-separated lines.
func printTable(headers []string, rows [][]string) {
	out := ux.Table(headers, rows)
	if strings.HasSuffix(out, "\n") {
		fmt.Print(out)
		return
	}
	fmt.Println(out)
}
