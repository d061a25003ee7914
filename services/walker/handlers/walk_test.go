// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Tests for walk.go handlers

package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/reverie/services/walker/datatypes"
	"github.com/AleutianAI/reverie/services/walker/history"
	"github.com/AleutianAI/reverie/services/walker/store"
	"github.com/AleutianAI/reverie/services/walker/walk"
)

func init() {
	gin.SetMode(gin.TestMode)
}

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// shoreGraph is a user with a topic and an entity hanging off it.
func shoreGraph() *store.MemoryStore {
	s := store.NewMemoryStore()
	s.AddNode("u1", walk.LabelUser, "Uma", nil)
	s.AddNode("t1", walk.LabelTopic, "Ocean", nil)
	s.AddNode("e1", walk.LabelEntity, "Tide", nil)
	s.Connect("u1", "t1", "INTERESTED_IN", nil)
	s.Connect("t1", "e1", "RELATES_TO", nil)
	return s
}

func newTestWalker(s walk.GraphStore) *walk.Walker {
	return walk.New(s, walk.WithLogger(quietLogger()))
}

func newTestJournal(t *testing.T) *history.Journal {
	t.Helper()
	j, err := history.Open(history.Config{InMemory: true}, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { j.Close() })
	return j
}

func postJSON(router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	data, err := json.Marshal(body)
	if err != nil {
		panic(err)
	}
	return postRaw(router, path, string(data))
}

func postRaw(router *gin.Engine, path, body string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("POST", path, bytes.NewReader([]byte(body)))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// HandleWalk Tests
// =============================================================================

func TestHandleWalk_ReturnsScoredNodes(t *testing.T) {
	journal := newTestJournal(t)
	router := gin.New()
	router.POST("/v1/walk", HandleWalk(newTestWalker(shoreGraph()), journal))

	w := postJSON(router, "/v1/walk", datatypes.WalkRequest{Seeds: []string{"u1"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp WalkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.WalkID)
	require.Len(t, resp.Result.Nodes, 2)
	assert.Equal(t, "Ocean", resp.Result.Nodes[0].Name)
	assert.Equal(t, "Tide", resp.Result.Nodes[1].Name)

	entries, err := journal.RecentWalks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "walk", entries[0].Kind)
	assert.Equal(t, resp.WalkID, entries[0].WalkID)
	assert.Equal(t, 2, entries[0].Stats.TotalNodes)
}

func TestHandleWalk_DepthLimitApplied(t *testing.T) {
	router := gin.New()
	router.POST("/v1/walk", HandleWalk(newTestWalker(shoreGraph()), nil))

	w := postJSON(router, "/v1/walk", datatypes.WalkRequest{Seeds: []string{"u1"}, MaxDepth: 1})
	require.Equal(t, http.StatusOK, w.Code)

	var resp WalkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Result.Nodes, 1)
	assert.Equal(t, "Ocean", resp.Result.Nodes[0].Name)
}

func TestHandleWalk_NoJournalOmitsWalkID(t *testing.T) {
	router := gin.New()
	router.POST("/v1/walk", HandleWalk(newTestWalker(shoreGraph()), nil))

	w := postJSON(router, "/v1/walk", datatypes.WalkRequest{Seeds: []string{"u1"}})
	require.Equal(t, http.StatusOK, w.Code)

	var resp WalkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Empty(t, resp.WalkID)
	assert.NotContains(t, w.Body.String(), "walk_id")
}

func TestHandleWalk_InvalidBody(t *testing.T) {
	router := gin.New()
	router.POST("/v1/walk", HandleWalk(newTestWalker(shoreGraph()), nil))

	w := postRaw(router, "/v1/walk", "{not json")
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid request body")
}

func TestHandleWalk_ValidationFailure(t *testing.T) {
	router := gin.New()
	router.POST("/v1/walk", HandleWalk(newTestWalker(shoreGraph()), nil))

	w := postJSON(router, "/v1/walk", datatypes.WalkRequest{})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation failed")
}

// =============================================================================
// HandleMultiWalk Tests
// =============================================================================

func TestHandleMultiWalk_MergesWalks(t *testing.T) {
	journal := newTestJournal(t)
	router := gin.New()
	router.POST("/v1/walk/multi", HandleMultiWalk(newTestWalker(shoreGraph()), journal))

	w := postJSON(router, "/v1/walk/multi", datatypes.MultiWalkRequest{
		Seeds:       []string{"u1"},
		Primary:     "Elena",
		Secondaries: []string{"Nico"},
	})
	require.Equal(t, http.StatusOK, w.Code)

	var resp MultiWalkResponse
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.WalkID)
	require.NotNil(t, resp.Result.PrimaryWalk)
	require.Contains(t, resp.Result.SecondaryWalks, "Nico")

	// The companion walk starts from the primary's discoveries and finds
	// its way back to the seed user, so the merge holds all three nodes.
	assert.Len(t, resp.Result.MergedNodes, 3)

	entries, err := journal.RecentWalks(context.Background(), 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "multi", entries[0].Kind)
	assert.Equal(t, "Elena", entries[0].Character)
}

func TestHandleMultiWalk_ValidationFailure(t *testing.T) {
	router := gin.New()
	router.POST("/v1/walk/multi", HandleMultiWalk(newTestWalker(shoreGraph()), nil))

	w := postJSON(router, "/v1/walk/multi", datatypes.MultiWalkRequest{Seeds: []string{"u1"}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "validation failed")
}

// =============================================================================
// tuningOptions Tests
// =============================================================================

func TestTuningOptions_ZeroValuesLeaveDefaults(t *testing.T) {
	opts := tuningOptions("", "", 0, 0, 0, 0)
	assert.Empty(t, opts)
}

func TestTuningOptions_AllFieldsSet(t *testing.T) {
	opts := tuningOptions("u1", "Elena", 3, 50, 0.2, 0.4)
	assert.Len(t, opts, 6)
}

func TestHandleWalk_EmptySeedListRejected(t *testing.T) {
	router := gin.New()
	router.POST("/v1/walk", HandleWalk(newTestWalker(shoreGraph()), nil))

	w := postRaw(router, "/v1/walk", `{"seeds": []}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "validation failed"))
}
