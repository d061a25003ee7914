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

func runDreamCommand(cmd *cobra.Command, args []string) {
	runAgentWalk("/v1/dream", "Dream")
}

func runDiaryCommand(cmd *cobra.Command, args []string) {
	runAgentWalk("/v1/diary", "Diary")
}

func runContextCommand(cmd *cobra.Command, args []string) {
	runAgentWalk("/v1/context", "Context")
}

// runAgentWalk drives the agent endpoints, which derive their own seeds
// from the user's graph neighborhood and may add an LLM interpretation.
// Interpretation can take a while, hence the generous timeout.
func runAgentWalk(path, title string) {
	user := firstNonEmpty(agentUser, cliConfig.User)
	character := firstNonEmpty(agentCharacter, cliConfig.Character)
	if user == "" || character == "" {
		ux.Error("user and character are required (flags or reverie.yaml)")
		os.Exit(1)
	}

	req := agentWalkRequest{
		UserID:     user,
		Character:  character,
		Companions: agentCompanions,
		Seeds:      agentSeeds,
	}

	var resp agentWalkResponse
	if err := apiPost(path, req, &resp, 2*time.Minute); err != nil {
		ux.Error(err.Error())
		os.Exit(1)
	}
	if agentJSON {
		printJSON(resp)
		return
	}

	if resp.Result == nil {
		ux.Warning("The walk returned no result")
		return
	}

	heading := fmt.Sprintf("%s for %s", title, character)
	if resp.WalkID != "" {
		heading = fmt.Sprintf("%s (%s)", heading, shortID(resp.WalkID))
	}
	ux.Title(heading)

	if resp.Result.Interpretation != "" {
		ux.Box(title, resp.Result.Interpretation)
	}

	renderNodeTable(topNodes(resp.Result.Nodes, 10))

	if resp.Multi != nil {
		for _, concept := range resp.Multi.SharedConcepts {
			ux.Info(fmt.Sprintf("%s shared with companions: %s", ux.IconStar.Render(), concept))
		}
	}

	renderWalkStats(resp.Result.Stats)
}

func topNodes(nodes []walkedNode, n int) []walkedNode {
	if len(nodes) <= n {
		return nodes
	}
	return nodes[:n]
}
