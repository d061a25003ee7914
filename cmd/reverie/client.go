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
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"
)

// Request payloads mirror the walker service wire format. The CLI keeps its
// own copies so the binary does not drag in the service's storage stack.

type walkRequest struct {
	Seeds       []string `json:"seeds"`
	UserID      string   `json:"user_id,omitempty"`
	Character   string   `json:"character,omitempty"`
	MaxDepth    int      `json:"max_depth,omitempty"`
	MaxNodes    int      `json:"max_nodes,omitempty"`
	Serendipity float64  `json:"serendipity,omitempty"`
	MinScore    float64  `json:"min_score,omitempty"`
}

type multiWalkRequest struct {
	Seeds       []string `json:"seeds"`
	UserID      string   `json:"user_id,omitempty"`
	Primary     string   `json:"primary"`
	Secondaries []string `json:"secondaries"`
	MaxDepth    int      `json:"max_depth,omitempty"`
	MaxNodes    int      `json:"max_nodes,omitempty"`
	Serendipity float64  `json:"serendipity,omitempty"`
	MinScore    float64  `json:"min_score,omitempty"`
}

type agentWalkRequest struct {
	UserID     string   `json:"user_id"`
	Character  string   `json:"character"`
	Companions []string `json:"companions,omitempty"`
	Seeds      []string `json:"seeds,omitempty"`
}

// Response payloads.

type walkedNode struct {
	ID              string  `json:"id"`
	Label           string  `json:"label"`
	Name            string  `json:"name"`
	Score           float64 `json:"score"`
	Depth           int     `json:"depth"`
	IsSerendipitous bool    `json:"is_serendipitous"`
}

type thematicCluster struct {
	Theme         string      `json:"theme"`
	Nodes         []walkedNode `json:"nodes"`
	CentralNode   *walkedNode  `json:"central_node"`
	CohesionScore float64     `json:"cohesion_score"`
}

type walkStats struct {
	TotalNodes         int      `json:"total_nodes"`
	TotalEdges         int      `json:"total_edges"`
	DepthReached       int      `json:"depth_reached"`
	ClustersFound      int      `json:"clusters_found"`
	SerendipitousCount int      `json:"serendipitous_count"`
	TopNodes           []string `json:"top_nodes"`
	DurationMs         int64    `json:"duration_ms"`
	Error              string   `json:"error,omitempty"`
}

type walkResult struct {
	Nodes          []walkedNode      `json:"nodes"`
	Edges          json.RawMessage   `json:"edges,omitempty"`
	Clusters       []thematicCluster `json:"clusters"`
	Interpretation string            `json:"interpretation,omitempty"`
	Stats          walkStats         `json:"walk_stats"`
}

type multiWalkResult struct {
	PrimaryWalk    *walkResult            `json:"primary_walk"`
	SecondaryWalks map[string]*walkResult `json:"secondary_walks,omitempty"`
	MergedNodes    []walkedNode           `json:"merged_nodes"`
	MergedEdges    json.RawMessage        `json:"merged_edges,omitempty"`
	SharedConcepts []string               `json:"shared_concepts"`
}

type walkResponse struct {
	WalkID string      `json:"walk_id,omitempty"`
	Result *walkResult `json:"result"`
}

type multiWalkResponse struct {
	WalkID string           `json:"walk_id,omitempty"`
	Result *multiWalkResult `json:"result"`
}

type agentWalkResponse struct {
	WalkID string           `json:"walk_id"`
	Result *walkResult      `json:"result"`
	Multi  *multiWalkResult `json:"multi,omitempty"`
}

type journalEntry struct {
	WalkID         string    `json:"walk_id"`
	Kind           string    `json:"kind"`
	UserID         string    `json:"user_id"`
	Character      string    `json:"character"`
	Stats          walkStats `json:"stats"`
	Interpretation string    `json:"interpretation,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
}

type recentWalksResponse struct {
	Walks []journalEntry `json:"walks"`
	Count int            `json:"count"`
}

// wsFrame is one websocket message from /v1/walk/stream.
type wsFrame struct {
	Type     string           `json:"type"`
	Progress *walkProgressFrame `json:"progress,omitempty"`
	WalkID   string           `json:"walk_id,omitempty"`
	Result   *walkResult      `json:"result,omitempty"`
	Error    string           `json:"error,omitempty"`
}

type walkProgressFrame struct {
	Depth     int `json:"depth"`
	Frontier  int `json:"frontier"`
	Collected int `json:"collected"`
}

// apiPost sends a JSON payload to the walker service and decodes the reply
// into out. Non-2xx replies become errors carrying the service's message.
func apiPost(path string, payload any, out any, timeout time.Duration) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encoding request: %w", err)
	}
	client := &http.Client{Timeout: timeout}
	resp, err := client.Post(serverBaseURL()+path, "application/json", bytes.NewBuffer(body))
	if err != nil {
		return fmt.Errorf("calling walker service: %w", err)
	}
	defer resp.Body.Close()
	return decodeAPIResponse(resp, out)
}

// apiGet fetches a JSON document from the walker service.
func apiGet(path string, out any, timeout time.Duration) error {
	client := &http.Client{Timeout: timeout}
	resp, err := client.Get(serverBaseURL() + path)
	if err != nil {
		return fmt.Errorf("calling walker service: %w", err)
	}
	defer resp.Body.Close()
	return decodeAPIResponse(resp, out)
}

func decodeAPIResponse(resp *http.Response, out any) error {
	if resp.StatusCode >= 400 {
		raw, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var apiErr struct {
			Error string `json:"error"`
		}
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error != "" {
			return fmt.Errorf("walker service returned %d: %s", resp.StatusCode, apiErr.Error)
		}
		return fmt.Errorf("walker service returned %d: %s", resp.StatusCode, strings.TrimSpace(string(raw)))
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}

// printJSON writes v to stdout as indented JSON for --json output.
func printJSON(v any) {
	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(v); err != nil {
		fmt.Fprintf(os.Stderr, "Error encoding JSON: %v\n", err)
	}
}

// shortID trims a walk UUID down to a display prefix.
func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
