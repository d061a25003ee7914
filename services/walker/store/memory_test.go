// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package store

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/AleutianAI/reverie/services/walker/walk"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func smallGraph() *MemoryStore {
	s := NewMemoryStore()
	s.AddNode("u1", walk.LabelUser, "Uma", nil)
	s.AddNode("t1", walk.LabelTopic, "Ocean", nil)
	s.AddNode("e1", walk.LabelEntity, "Tide", nil)
	s.Connect("u1", "t1", "INTERESTED_IN", nil)
	s.Connect("t1", "e1", "RELATES_TO", nil)
	return s
}

func nodeIDs(nodes []*walk.WalkedNode) []string {
	ids := make([]string, len(nodes))
	for i, n := range nodes {
		ids[i] = n.ID
	}
	return ids
}

func TestMemoryStore_ExpandMatchesByIDOrName(t *testing.T) {
	s := smallGraph()
	ctx := context.Background()

	byID, _, err := s.Expand(ctx, []string{"u1"}, []string{"u1"}, 10)
	if err != nil {
		t.Fatalf("Expand by id returned error: %v", err)
	}
	byName, _, err := s.Expand(ctx, []string{"Uma"}, []string{"Uma"}, 10)
	if err != nil {
		t.Fatalf("Expand by name returned error: %v", err)
	}

	if len(byID) != 1 || byID[0].ID != "t1" {
		t.Errorf("Expand by id = %v, want [t1]", nodeIDs(byID))
	}
	if len(byName) != 1 || byName[0].ID != "t1" {
		t.Errorf("Expand by name = %v, want [t1]", nodeIDs(byName))
	}
}

func TestMemoryStore_ExpandExcludesVisitedByIDOrName(t *testing.T) {
	s := smallGraph()
	ctx := context.Background()

	// Expanding the topic with the user already visited by name must not
	// re-surface the user node.
	nodes, _, err := s.Expand(ctx, []string{"t1"}, []string{"Uma", "t1"}, 10)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != "e1" {
		t.Errorf("Expand = %v, want [e1]", nodeIDs(nodes))
	}
}

func TestMemoryStore_ExpandHonorsLimit(t *testing.T) {
	s := NewMemoryStore()
	s.AddNode("hub", walk.LabelTopic, "Hub", nil)
	for i := 0; i < 8; i++ {
		id := string(rune('a' + i))
		s.AddNode(id, walk.LabelEntity, "Spoke "+id, nil)
		s.Connect("hub", id, "RELATES_TO", nil)
	}

	nodes, edges, err := s.Expand(context.Background(), []string{"hub"}, []string{"hub"}, 3)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(nodes) != 3 {
		t.Errorf("len(nodes) = %d, want 3", len(nodes))
	}
	if len(edges) != 3 {
		t.Errorf("len(edges) = %d, want 3", len(edges))
	}
}

func TestMemoryStore_ExpandKeepsSiblingEdges(t *testing.T) {
	s := NewMemoryStore()
	s.AddNode("a", walk.LabelTopic, "Alpha", nil)
	s.AddNode("b", walk.LabelTopic, "Beta", nil)
	s.AddNode("d", walk.LabelEntity, "Delta", nil)
	s.Connect("a", "d", "RELATES_TO", nil)
	s.Connect("b", "d", "RELATES_TO", nil)

	// A diamond tail reached from both parents yields one node but both
	// connecting edges.
	nodes, edges, err := s.Expand(context.Background(), []string{"a", "b"}, []string{"a", "b"}, 10)
	if err != nil {
		t.Fatalf("Expand returned error: %v", err)
	}
	if len(nodes) != 1 || nodes[0].ID != "d" {
		t.Errorf("nodes = %v, want [d]", nodeIDs(nodes))
	}
	if len(edges) != 2 {
		t.Errorf("len(edges) = %d, want 2", len(edges))
	}
}

func TestMemoryStore_ExpandReturnsCopies(t *testing.T) {
	s := smallGraph()
	ctx := context.Background()

	first, _, _ := s.Expand(ctx, []string{"u1"}, []string{"u1"}, 10)
	first[0].Score = 0.9
	first[0].Depth = 3

	second, _, _ := s.Expand(ctx, []string{"u1"}, []string{"u1"}, 10)
	if second[0].Score != 0 || second[0].Depth != 0 {
		t.Errorf("stored node mutated: score=%v depth=%d", second[0].Score, second[0].Depth)
	}
}

func TestMemoryStore_GetRelationship(t *testing.T) {
	s := NewMemoryStore()
	s.SetRelationship("u1", "Mara", walk.Relationship{TrustScore: 55, Stage: "companion", Interactions: 12})

	rel, err := s.GetRelationship(context.Background(), "u1", "Mara")
	if err != nil {
		t.Fatalf("GetRelationship returned error: %v", err)
	}
	if rel.TrustScore != 55 || rel.Stage != "companion" || rel.Interactions != 12 {
		t.Errorf("GetRelationship = %+v, want trust 55 stage companion interactions 12", rel)
	}

	missing, err := s.GetRelationship(context.Background(), "u1", "Kai")
	if err != nil {
		t.Fatalf("GetRelationship for unknown pair returned error: %v", err)
	}
	if missing.TrustScore != 0 {
		t.Errorf("unknown pair trust = %v, want 0", missing.TrustScore)
	}
}

func TestMemoryStore_WalkIntegration(t *testing.T) {
	s := smallGraph()
	now := time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)
	walker := walk.New(s,
		walk.WithLogger(quietLogger()),
		walk.WithClock(func() time.Time { return now }),
		walk.WithRand(func() float64 { return 0.99 }),
	)

	// Seeding by name exercises the same resolution path the Neo4j
	// adapter provides.
	result := walker.Explore(context.Background(), []string{"Uma"},
		walk.WithMaxDepth(2),
	)

	if got := nodeIDs(result.Nodes); len(got) != 2 || got[0] != "t1" || got[1] != "e1" {
		t.Fatalf("Nodes = %v, want [t1 e1]", got)
	}
	if result.Nodes[0].Score != 0.5 {
		t.Errorf("topic score = %v, want 0.5", result.Nodes[0].Score)
	}
	if result.Nodes[1].Score != 0.333 {
		t.Errorf("entity score = %v, want 0.333", result.Nodes[1].Score)
	}
	if len(result.Edges) != 1 {
		t.Errorf("len(Edges) = %d, want 1 after pruning the seed edge", len(result.Edges))
	}
	if result.Stats.DepthReached != 2 {
		t.Errorf("DepthReached = %d, want 2", result.Stats.DepthReached)
	}
	if result.Stats.Error != "" {
		t.Errorf("Stats.Error = %q, want empty", result.Stats.Error)
	}
}
