// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package agent

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"strings"
	"testing"

	"github.com/AleutianAI/reverie/services/llm"
	"github.com/AleutianAI/reverie/services/walker/store"
	"github.com/AleutianAI/reverie/services/walker/themes"
	"github.com/AleutianAI/reverie/services/walker/walk"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// scriptedClient returns a fixed reply and records the last call.
type scriptedClient struct {
	reply      string
	err        error
	calls      int
	lastSystem string
	lastPrompt string
}

func (c *scriptedClient) Generate(_ context.Context, system, prompt string, _ llm.GenerationParams) (string, error) {
	c.calls++
	c.lastSystem = system
	c.lastPrompt = prompt
	if c.err != nil {
		return "", c.err
	}
	return c.reply, nil
}

// fakeMemory serves canned partners and themes and records stored
// dreams.
type fakeMemory struct {
	partners    []string
	topics      []string
	partnersErr error
	topicsErr   error
	storeErr    error
	stored      []themes.DreamRecord
}

func (m *fakeMemory) RecentThemes(_ context.Context, _ string, _ int) ([]string, error) {
	return m.topics, m.topicsErr
}

func (m *fakeMemory) RecentPartners(_ context.Context, _ string, _ int) ([]string, error) {
	return m.partners, m.partnersErr
}

func (m *fakeMemory) StoreDream(_ context.Context, dream themes.DreamRecord) error {
	if m.storeErr != nil {
		return m.storeErr
	}
	m.stored = append(m.stored, dream)
	return nil
}

// recordingStore captures the first expansion request and returns
// nothing.
type recordingStore struct {
	frontier []string
	limit    int
}

func (s *recordingStore) Expand(_ context.Context, frontier, _ []string, limit int) ([]*walk.WalkedNode, []*walk.WalkedEdge, error) {
	if s.frontier == nil {
		s.frontier = append([]string{}, frontier...)
		s.limit = limit
	}
	return nil, nil, nil
}

// dreamGraph is a user with one topic and one entity hanging off it.
func dreamGraph() *store.MemoryStore {
	s := store.NewMemoryStore()
	s.AddNode("u1", walk.LabelUser, "Uma", nil)
	s.AddNode("t1", walk.LabelTopic, "Ocean", nil)
	s.AddNode("e1", walk.LabelEntity, "Tide", nil)
	s.Connect("u1", "t1", "INTERESTED_IN", nil)
	s.Connect("t1", "e1", "RELATES_TO", nil)
	return s
}

func newTestAgent(s walk.GraphStore, opts ...Option) *Agent {
	walker := walk.New(s, walk.WithLogger(quietLogger()))
	opts = append(opts, WithLogger(quietLogger()))
	return New(walker, opts...)
}

func TestExploreForDream_InterpretsWalk(t *testing.T) {
	client := &scriptedClient{reply: "Salt water everywhere."}
	a := newTestAgent(dreamGraph(), WithLLM(client))

	res := a.ExploreForDream(context.Background(), Request{UserID: "u1", Character: "Elena"})

	if res.WalkID == "" {
		t.Fatal("expected a walk id")
	}
	if res.Multi != nil {
		t.Fatal("single-character dream should not produce a multi result")
	}
	if got := res.Walk.Interpretation; got != "Salt water everywhere." {
		t.Fatalf("interpretation = %q", got)
	}
	if client.calls != 1 {
		t.Fatalf("generation calls = %d, want 1", client.calls)
	}
	if !strings.Contains(client.lastSystem, "dream") {
		t.Errorf("system instruction %q does not mention dreaming", client.lastSystem)
	}
	for _, name := range []string{"Ocean", "Tide"} {
		if !strings.Contains(client.lastPrompt, name) {
			t.Errorf("prompt missing discovered node %q:\n%s", name, client.lastPrompt)
		}
	}
}

func TestExploreForDream_EmptyWalkSkipsGeneration(t *testing.T) {
	client := &scriptedClient{reply: "should never be used"}
	a := newTestAgent(store.NewMemoryStore(), WithLLM(client))

	res := a.ExploreForDream(context.Background(), Request{UserID: "ghost", Character: "Elena"})

	if client.calls != 0 {
		t.Fatalf("generation calls = %d, want 0 for an empty walk", client.calls)
	}
	if res.Walk == nil || res.Walk.Interpretation != "" {
		t.Fatalf("empty walk should yield an empty interpretation, got %+v", res.Walk)
	}
	if res.Walk.Stats.TotalNodes != 0 {
		t.Fatalf("TotalNodes = %d, want 0", res.Walk.Stats.TotalNodes)
	}
}

func TestExploreForDream_NoBackendMeansNoInterpretation(t *testing.T) {
	a := newTestAgent(dreamGraph())

	res := a.ExploreForDream(context.Background(), Request{UserID: "u1", Character: "Elena"})

	if res.Walk.Interpretation != "" {
		t.Fatalf("interpretation = %q, want empty without a backend", res.Walk.Interpretation)
	}
	if len(res.Walk.Nodes) == 0 {
		t.Fatal("structured result should survive a missing backend")
	}
}

func TestExploreForDream_GenerationFailureDegrades(t *testing.T) {
	client := &scriptedClient{err: errors.New("backend down")}
	mem := &fakeMemory{}
	a := newTestAgent(dreamGraph(), WithLLM(client), WithMemory(mem))

	res := a.ExploreForDream(context.Background(), Request{UserID: "u1", Character: "Elena"})

	if client.calls != 1 {
		t.Fatalf("generation calls = %d, want 1", client.calls)
	}
	if res.Walk.Interpretation != "" {
		t.Fatalf("interpretation = %q, want empty on failure", res.Walk.Interpretation)
	}
	if len(res.Walk.Nodes) != 2 {
		t.Fatalf("nodes = %d, want the structured result intact", len(res.Walk.Nodes))
	}
	if len(mem.stored) != 0 {
		t.Fatal("uninterpreted dream must not be written to memory")
	}
}

func TestExploreForDream_RemembersDream(t *testing.T) {
	client := &scriptedClient{reply: "A dream."}
	mem := &fakeMemory{}
	a := newTestAgent(dreamGraph(), WithLLM(client), WithMemory(mem))

	res := a.ExploreForDream(context.Background(), Request{UserID: "u1", Character: "Elena"})

	if len(mem.stored) != 1 {
		t.Fatalf("stored dreams = %d, want 1", len(mem.stored))
	}
	rec := mem.stored[0]
	if rec.WalkID != res.WalkID {
		t.Errorf("record walk id = %q, want %q", rec.WalkID, res.WalkID)
	}
	if rec.UserID != "u1" || rec.Character != "Elena" {
		t.Errorf("record identity = %q/%q", rec.UserID, rec.Character)
	}
	if rec.Interpretation != "A dream." {
		t.Errorf("record interpretation = %q", rec.Interpretation)
	}
	wantThemes := []string{"ocean", "tide"}
	if len(rec.Themes) != len(wantThemes) {
		t.Fatalf("themes = %v, want %v", rec.Themes, wantThemes)
	}
	for i, theme := range wantThemes {
		if rec.Themes[i] != theme {
			t.Errorf("themes[%d] = %q, want %q", i, rec.Themes[i], theme)
		}
	}
	if len(rec.Partners) != 1 || rec.Partners[0] != "Elena" {
		t.Errorf("partners = %v, want [Elena]", rec.Partners)
	}
}

func TestExploreForDream_MemoryWriteFailureTolerated(t *testing.T) {
	client := &scriptedClient{reply: "A dream."}
	mem := &fakeMemory{storeErr: errors.New("weaviate unreachable")}
	a := newTestAgent(dreamGraph(), WithLLM(client), WithMemory(mem))

	res := a.ExploreForDream(context.Background(), Request{UserID: "u1", Character: "Elena"})

	if res.Walk.Interpretation != "A dream." {
		t.Fatalf("interpretation = %q, memory failure must not affect it", res.Walk.Interpretation)
	}
	if len(mem.stored) != 0 {
		t.Fatal("failed store should record nothing")
	}
}

func TestExploreForDream_MultiCharacter(t *testing.T) {
	s := store.NewMemoryStore()
	s.AddNode("u1", walk.LabelUser, "Uma", nil)
	s.AddNode("t1", walk.LabelTopic, "Ocean", nil)
	s.AddNode("u2", walk.LabelUser, "Nilo", nil)
	s.Connect("u1", "t1", "INTERESTED_IN", nil)
	s.Connect("t1", "u2", "INTERESTED_IN", nil)
	// Low trust keeps Nilo out of the hand-off, so the companion walk
	// rediscovers him as a shared concept.
	s.SetRelationship("u2", "Nico", walk.Relationship{TrustScore: 10})

	client := &scriptedClient{reply: "Two minds, one tide."}
	walker := walk.New(s, walk.WithLogger(quietLogger()), walk.WithTrustSource(s))
	a := New(walker, WithLLM(client), WithLogger(quietLogger()))

	res := a.ExploreForDream(context.Background(), Request{
		UserID:     "u1",
		Character:  "Elena",
		Companions: []string{"Nico"},
	})

	if res.Multi == nil {
		t.Fatal("companion dream should produce a multi result")
	}
	if res.Walk != res.Multi.PrimaryWalk {
		t.Fatal("result walk should alias the primary walk")
	}
	if client.calls != 1 {
		t.Fatalf("generation calls = %d, want exactly 1", client.calls)
	}
	if res.Walk.Interpretation != "Two minds, one tide." {
		t.Fatalf("interpretation = %q", res.Walk.Interpretation)
	}
	if len(res.Multi.SharedConcepts) != 1 || res.Multi.SharedConcepts[0] != "Nilo" {
		t.Fatalf("shared concepts = %v, want [Nilo]", res.Multi.SharedConcepts)
	}
	if !strings.Contains(client.lastPrompt, "Shared with companion walks: Nilo") {
		t.Errorf("prompt missing shared concepts:\n%s", client.lastPrompt)
	}
}

func TestExploreForDiary_StaysShallow(t *testing.T) {
	s := dreamGraph()
	s.AddNode("t2", walk.LabelTopic, "Moonlight", nil)
	s.Connect("e1", "t2", "RELATES_TO", nil)

	client := &scriptedClient{reply: "Today the sea felt close."}
	a := newTestAgent(s, WithLLM(client))

	res := a.ExploreForDiary(context.Background(), Request{UserID: "u1", Character: "Elena"})

	if client.calls != 1 {
		t.Fatalf("generation calls = %d, want 1", client.calls)
	}
	if !strings.Contains(client.lastSystem, "diary") {
		t.Errorf("system instruction %q does not mention a diary", client.lastSystem)
	}
	for _, node := range res.Walk.Nodes {
		if node.Depth > 2 {
			t.Errorf("node %q at depth %d, diary walks stop at 2", node.Name, node.Depth)
		}
		if node.Name == "Moonlight" {
			t.Error("Moonlight sits three hops out and should be unreachable")
		}
	}
	if res.Walk.Interpretation != "Today the sea felt close." {
		t.Fatalf("interpretation = %q", res.Walk.Interpretation)
	}
}

func TestExploreForContext_SkipsInterpretation(t *testing.T) {
	client := &scriptedClient{reply: "should never be used"}
	a := newTestAgent(dreamGraph(), WithLLM(client))

	res := a.ExploreForContext(context.Background(), Request{UserID: "u1", Character: "Elena"})

	if client.calls != 0 {
		t.Fatalf("generation calls = %d, context walks never interpret", client.calls)
	}
	if len(res.Walk.Nodes) == 0 {
		t.Fatal("context walk should still return structured data")
	}
	if res.Walk.Interpretation != "" {
		t.Fatalf("interpretation = %q, want empty", res.Walk.Interpretation)
	}
}

func TestSeedAssembly(t *testing.T) {
	rec := &recordingStore{}
	mem := &fakeMemory{partners: []string{"Nico"}, topics: []string{"driftwood"}}
	a := newTestAgent(rec, WithMemory(mem))

	a.ExploreForDiary(context.Background(), Request{
		UserID:    "u1",
		Character: "Elena",
		Seeds:     []string{"extra", "u1"},
	})

	want := []string{"u1", "Nico", "driftwood", "Elena", "extra"}
	if len(rec.frontier) != len(want) {
		t.Fatalf("frontier = %v, want %v", rec.frontier, want)
	}
	for i, seed := range want {
		if rec.frontier[i] != seed {
			t.Errorf("frontier[%d] = %q, want %q", i, rec.frontier[i], seed)
		}
	}
}

func TestSeedAssembly_MemoryFailuresAreSoft(t *testing.T) {
	rec := &recordingStore{}
	mem := &fakeMemory{
		partnersErr: errors.New("weaviate down"),
		topicsErr:   errors.New("weaviate down"),
	}
	a := newTestAgent(rec, WithMemory(mem))

	a.ExploreForDream(context.Background(), Request{UserID: "u1", Character: "Elena"})

	want := []string{"u1", "Elena"}
	if len(rec.frontier) != len(want) {
		t.Fatalf("frontier = %v, want %v", rec.frontier, want)
	}
	for i, seed := range want {
		if rec.frontier[i] != seed {
			t.Errorf("frontier[%d] = %q, want %q", i, rec.frontier[i], seed)
		}
	}
}

func TestWithDreamNodeBudget(t *testing.T) {
	rec := &recordingStore{}
	a := newTestAgent(rec, WithDreamNodeBudget(15))

	a.ExploreForDream(context.Background(), Request{UserID: "u1"})

	if rec.limit != 15 {
		t.Fatalf("first expansion limit = %d, want the configured budget 15", rec.limit)
	}
}

func TestDedupSeeds(t *testing.T) {
	got := dedupSeeds([]string{" u1 ", "", "Nico", "u1", "  ", "Nico", "tide"})
	want := []string{"u1", "Nico", "tide"}
	if len(got) != len(want) {
		t.Fatalf("dedupSeeds = %v, want %v", got, want)
	}
	for i, seed := range want {
		if got[i] != seed {
			t.Errorf("dedupSeeds[%d] = %q, want %q", i, got[i], seed)
		}
	}
}

func TestClusterThemes(t *testing.T) {
	clusters := []*walk.ThematicCluster{
		{Theme: "ocean, tide"},
		{Theme: "tide, moonlight"},
		{Theme: ""},
	}
	got := clusterThemes(clusters)
	want := []string{"ocean", "tide", "moonlight"}
	if len(got) != len(want) {
		t.Fatalf("clusterThemes = %v, want %v", got, want)
	}
	for i, theme := range want {
		if got[i] != theme {
			t.Errorf("clusterThemes[%d] = %q, want %q", i, got[i], theme)
		}
	}
}

func TestClusterThemes_Capped(t *testing.T) {
	clusters := []*walk.ThematicCluster{
		{Theme: "a, b, c, d, e"},
		{Theme: "f, g, h, i, j"},
	}
	if got := clusterThemes(clusters); len(got) != dreamThemeLimit {
		t.Fatalf("clusterThemes kept %d tokens, want %d", len(got), dreamThemeLimit)
	}
}

func TestBuildPrompt(t *testing.T) {
	result := &walk.GraphWalkResult{
		Nodes: []*walk.WalkedNode{
			{ID: "t1", Label: walk.LabelTopic, Name: "Ocean", Score: 0.5, Depth: 1},
			{ID: "e1", Label: walk.LabelEntity, Name: "Tide", Score: 0.31, Depth: 2, IsSerendipitous: true},
		},
		Clusters: []*walk.ThematicCluster{
			{
				Theme: "ocean, tide",
				Nodes: []*walk.WalkedNode{
					{Name: "Ocean"},
					{Name: "Tide"},
				},
				CohesionScore: 0.405,
			},
		},
		Stats: walk.WalkStats{TotalNodes: 2, TotalEdges: 1, DepthReached: 2},
	}

	prompt := buildPrompt(result, []string{"Nilo"})

	for _, fragment := range []string{
		"- Ocean (Topic, score 0.50, depth 1)",
		"- Tide (Entity, score 0.31, depth 2) [unexpected]",
		"Thematic groupings:",
		"- ocean, tide: Ocean, Tide (cohesion 0.41)",
		"Shared with companion walks: Nilo",
		"covered 2 nodes and 1 edges, reaching depth 2",
	} {
		if !strings.Contains(prompt, fragment) {
			t.Errorf("prompt missing %q:\n%s", fragment, prompt)
		}
	}
}

func TestBuildPrompt_LimitsNodes(t *testing.T) {
	result := &walk.GraphWalkResult{}
	for i := 0; i < promptNodeLimit+1; i++ {
		result.Nodes = append(result.Nodes, &walk.WalkedNode{
			ID:    string(rune('a' + i)),
			Name:  "node" + string(rune('a'+i)),
			Label: walk.LabelTopic,
		})
	}

	prompt := buildPrompt(result, nil)

	if !strings.Contains(prompt, "node"+string(rune('a'+promptNodeLimit-1))) {
		t.Error("prompt should include the last node inside the limit")
	}
	if strings.Contains(prompt, "node"+string(rune('a'+promptNodeLimit))) {
		t.Error("prompt should cut off past the node limit")
	}
}

func TestPartnerNames(t *testing.T) {
	got := partnerNames(Request{Character: "Elena", Companions: []string{"", "Nico"}})
	if len(got) != 2 || got[0] != "Elena" || got[1] != "Nico" {
		t.Fatalf("partnerNames = %v, want [Elena Nico]", got)
	}
}
