// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package agent turns walk requests into narrated results.
//
// The agent assembles seeds from caller context (the user, recent dream
// partners and themes, the acting character), runs the walker with
// per-use-case tuning, and issues at most one generation call to turn
// the discovered subgraph into short prose guidance. Discovering
// nothing is normal: empty walks and failed generations degrade to an
// empty interpretation, never to an error.
package agent

import (
	"context"
	"log/slog"
	"strings"

	"github.com/google/uuid"

	"github.com/AleutianAI/reverie/services/llm"
	"github.com/AleutianAI/reverie/services/walker/themes"
	"github.com/AleutianAI/reverie/services/walker/walk"
)

const (
	// Dream walks roam wide and tolerate surprise.
	dreamDepth       = 3
	dreamSerendipity = 0.12

	// Diary and context walks stay close to the seeds. Diaries are
	// reflective, not exploratory.
	diaryDepth         = 2
	diarySerendipity   = 0.05
	contextDepth       = 2
	contextSerendipity = 0.05

	// DefaultDreamNodeBudget bounds dream walks when no budget is
	// configured. The walker clamps whatever value it receives.
	DefaultDreamNodeBudget = 50

	// recentSeedLimit caps how many recent partners and how many recent
	// themes each contribute to the seed list.
	recentSeedLimit = 5

	// dreamThemeLimit caps the theme tokens remembered per dream.
	dreamThemeLimit = 8

	interpretationMaxTokens = 1024

	dreamTemperature float32 = 0.9
	diaryTemperature float32 = 0.7
)

// Memory provides recent narrative context for seeding and receives
// finished dreams. *themes.Memory satisfies it.
type Memory interface {
	RecentThemes(ctx context.Context, userID string, limit int) ([]string, error)
	RecentPartners(ctx context.Context, userID string, limit int) ([]string, error)
	StoreDream(ctx context.Context, dream themes.DreamRecord) error
}

// Request names the caller context a walk starts from.
//
// Companions are additional characters for a multi-character dream;
// Seeds are extra node ids or names appended after the assembled ones.
type Request struct {
	UserID     string   `json:"user_id"`
	Character  string   `json:"character"`
	Companions []string `json:"companions,omitempty"`
	Seeds      []string `json:"seeds,omitempty"`
}

// Result pairs a walk with the id it is journaled and remembered under.
//
// Walk is never nil. Multi is set only for companion dreams, and Walk
// then aliases Multi.PrimaryWalk.
type Result struct {
	WalkID string                `json:"walk_id"`
	Walk   *walk.GraphWalkResult `json:"walk"`
	Multi  *walk.MultiWalkResult `json:"multi,omitempty"`
}

// Agent orchestrates seed assembly, walking, and interpretation.
type Agent struct {
	walker      *walk.Walker
	llm         llm.Client
	memory      Memory
	logger      *slog.Logger
	dreamBudget int
}

// Option configures an Agent.
type Option func(*Agent)

// WithLLM wires the generation backend. Without one, walks return
// structured data with an empty interpretation.
func WithLLM(client llm.Client) Option {
	return func(a *Agent) { a.llm = client }
}

// WithMemory wires long-term dream memory for seed assembly and dream
// persistence. Optional; absent memory means seeds come only from the
// request.
func WithMemory(memory Memory) Option {
	return func(a *Agent) { a.memory = memory }
}

// WithLogger overrides the default logger.
func WithLogger(logger *slog.Logger) Option {
	return func(a *Agent) {
		if logger != nil {
			a.logger = logger
		}
	}
}

// WithDreamNodeBudget overrides the node budget for dream walks.
// Non-positive values keep the default.
func WithDreamNodeBudget(n int) Option {
	return func(a *Agent) {
		if n > 0 {
			a.dreamBudget = n
		}
	}
}

// New builds an Agent around the given walker.
func New(walker *walk.Walker, opts ...Option) *Agent {
	a := &Agent{
		walker:      walker,
		logger:      slog.Default(),
		dreamBudget: DefaultDreamNodeBudget,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// ExploreForDream runs a wide, surprise-tolerant walk and interprets it
// as a dream fragment.
//
// Description:
//
//	Seeds come from the request context plus remembered partners and
//	themes. With companions present the walk runs as a trust-gated
//	multi-character walk and the interpretation covers the primary walk
//	plus the concepts shared with companion walks. Interpreted dreams
//	are written to dream memory when one is wired; a failed write is
//	logged and dropped.
//
// Inputs:
//
//	ctx  - Context honored by store and generation calls.
//	req  - Caller context. An empty request yields an empty walk.
//	opts - Extra walk options applied after the dream tuning.
//
// Outputs:
//
//	*Result - Never nil; Walk is always well-typed even on store failure.
func (a *Agent) ExploreForDream(ctx context.Context, req Request, opts ...walk.Option) *Result {
	result := &Result{WalkID: uuid.NewString()}
	seeds := a.assembleSeeds(ctx, req)
	walkOpts := append([]walk.Option{
		walk.WithUser(req.UserID),
		walk.WithCharacter(req.Character),
		walk.WithMaxDepth(dreamDepth),
		walk.WithMaxNodes(a.dreamBudget),
		walk.WithSerendipity(dreamSerendipity),
	}, opts...)

	var shared []string
	if len(req.Companions) > 0 {
		multi := a.walker.MultiCharacterWalk(ctx, req.Character, req.Companions, seeds, walkOpts...)
		result.Multi = multi
		result.Walk = multi.PrimaryWalk
		shared = multi.SharedConcepts
	} else {
		result.Walk = a.walker.Explore(ctx, seeds, walkOpts...)
	}

	result.Walk.Interpretation = a.interpret(ctx, dreamSystem, result.Walk, shared, dreamTemperature)
	a.rememberDream(ctx, result.WalkID, req, result.Walk)
	return result
}

// ExploreForDiary runs a short reflective walk and interprets it as a
// first-person diary passage.
func (a *Agent) ExploreForDiary(ctx context.Context, req Request, opts ...walk.Option) *Result {
	result := &Result{WalkID: uuid.NewString()}
	seeds := a.assembleSeeds(ctx, req)
	walkOpts := append([]walk.Option{
		walk.WithUser(req.UserID),
		walk.WithCharacter(req.Character),
		walk.WithMaxDepth(diaryDepth),
		walk.WithSerendipity(diarySerendipity),
	}, opts...)

	result.Walk = a.walker.Explore(ctx, seeds, walkOpts...)
	result.Walk.Interpretation = a.interpret(ctx, diarySystem, result.Walk, nil, diaryTemperature)
	return result
}

// ExploreForContext runs a short walk and returns the raw structured
// result. Context enrichment wants facts, not narrative, so no
// generation call is made.
func (a *Agent) ExploreForContext(ctx context.Context, req Request, opts ...walk.Option) *Result {
	result := &Result{WalkID: uuid.NewString()}
	seeds := a.assembleSeeds(ctx, req)
	walkOpts := append([]walk.Option{
		walk.WithUser(req.UserID),
		walk.WithCharacter(req.Character),
		walk.WithMaxDepth(contextDepth),
		walk.WithSerendipity(contextSerendipity),
	}, opts...)

	result.Walk = a.walker.Explore(ctx, seeds, walkOpts...)
	return result
}

// assembleSeeds builds the seed list: the user, remembered partners and
// themes, the acting character, then any caller-supplied extras. Order
// is preserved and duplicates dropped. Memory failures cost seeds, not
// the walk.
func (a *Agent) assembleSeeds(ctx context.Context, req Request) []string {
	seeds := make([]string, 0, 2+2*recentSeedLimit+len(req.Seeds))
	if req.UserID != "" {
		seeds = append(seeds, req.UserID)
	}

	if a.memory != nil && req.UserID != "" {
		partners, err := a.memory.RecentPartners(ctx, req.UserID, recentSeedLimit)
		if err != nil {
			a.logger.Warn("recent partners unavailable for seeding",
				slog.String("user_id", req.UserID),
				slog.String("error", err.Error()),
			)
		}
		seeds = append(seeds, partners...)

		topics, err := a.memory.RecentThemes(ctx, req.UserID, recentSeedLimit)
		if err != nil {
			a.logger.Warn("recent themes unavailable for seeding",
				slog.String("user_id", req.UserID),
				slog.String("error", err.Error()),
			)
		}
		seeds = append(seeds, topics...)
	}

	if req.Character != "" {
		seeds = append(seeds, req.Character)
	}
	seeds = append(seeds, req.Seeds...)
	return dedupSeeds(seeds)
}

// dedupSeeds trims, drops empties, and keeps the first occurrence of
// each seed. Filtering is in place; the agent owns the slice.
func dedupSeeds(seeds []string) []string {
	seen := make(map[string]bool, len(seeds))
	out := seeds[:0]
	for _, seed := range seeds {
		seed = strings.TrimSpace(seed)
		if seed == "" || seen[seed] {
			continue
		}
		seen[seed] = true
		out = append(out, seed)
	}
	return out
}

// interpret issues the single generation call for a walk. Walks that
// found nothing, and agents without a generation backend, stay
// uninterpreted.
func (a *Agent) interpret(ctx context.Context, system string, result *walk.GraphWalkResult, shared []string, temperature float32) string {
	if a.llm == nil || len(result.Nodes) == 0 {
		return ""
	}

	temp := temperature
	maxTokens := interpretationMaxTokens
	text, err := a.llm.Generate(ctx, system, buildPrompt(result, shared), llm.GenerationParams{
		Temperature: &temp,
		MaxTokens:   &maxTokens,
	})
	if err != nil {
		a.logger.Warn("interpretation failed, returning structured result only",
			slog.String("error", err.Error()),
		)
		return ""
	}
	return strings.TrimSpace(text)
}

// rememberDream writes an interpreted dream into long-term memory so
// later walks can seed from its partners and themes.
func (a *Agent) rememberDream(ctx context.Context, walkID string, req Request, result *walk.GraphWalkResult) {
	if a.memory == nil || result.Interpretation == "" {
		return
	}

	record := themes.DreamRecord{
		WalkID:         walkID,
		UserID:         req.UserID,
		Character:      req.Character,
		Interpretation: result.Interpretation,
		Themes:         clusterThemes(result.Clusters),
		Partners:       partnerNames(req),
	}
	if err := a.memory.StoreDream(ctx, record); err != nil {
		a.logger.Warn("dream memory write failed",
			slog.String("walk_id", walkID),
			slog.String("error", err.Error()),
		)
	}
}

// clusterThemes flattens cluster themes into distinct tokens, capped at
// dreamThemeLimit.
func clusterThemes(clusters []*walk.ThematicCluster) []string {
	seen := make(map[string]bool, dreamThemeLimit)
	tokens := make([]string, 0, dreamThemeLimit)
	for _, cluster := range clusters {
		for _, token := range strings.Split(cluster.Theme, ",") {
			token = strings.TrimSpace(token)
			if token == "" || seen[token] {
				continue
			}
			seen[token] = true
			tokens = append(tokens, token)
			if len(tokens) == dreamThemeLimit {
				return tokens
			}
		}
	}
	return tokens
}

// partnerNames lists the characters present in the dream, primary
// first.
func partnerNames(req Request) []string {
	names := make([]string, 0, 1+len(req.Companions))
	if req.Character != "" {
		names = append(names, req.Character)
	}
	for _, companion := range req.Companions {
		if companion != "" {
			names = append(names, companion)
		}
	}
	return names
}
