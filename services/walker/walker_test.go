// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

package walker

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/AleutianAI/reverie/services/llm"
	"github.com/AleutianAI/reverie/services/walker/store"
	"github.com/AleutianAI/reverie/services/walker/walk"
)

// =============================================================================
// Test Setup
// =============================================================================

func init() {
	gin.SetMode(gin.TestMode)
}

// tidePoolGraph seeds a small graph: a user interested in a topic that
// relates to an entity.
func tidePoolGraph() *store.MemoryStore {
	s := store.NewMemoryStore()
	s.AddNode("u1", "User", "Uma", nil)
	s.AddNode("t1", "Topic", "Ocean", nil)
	s.AddNode("e1", "Entity", "Tide", nil)
	s.Connect("u1", "t1", "INTERESTED_IN", nil)
	s.Connect("t1", "e1", "RELATES_TO", nil)
	return s
}

// newTestService builds a full service against the seeded graph with
// telemetry export off and the journal in memory.
func newTestService(t *testing.T, opts *Options) Service {
	t.Helper()

	if opts == nil {
		opts = &Options{}
	}
	if opts.Graph == nil {
		opts.Graph = tidePoolGraph()
	}

	svc, err := New(Config{
		TraceExporter:   "none",
		MetricExporter:  "none",
		JournalInMemory: true,
	}, opts)
	require.NoError(t, err)

	t.Cleanup(func() { svc.(*service).cleanup() })
	return svc
}

func postJSON(t *testing.T, router *gin.Engine, path string, body any) *httptest.ResponseRecorder {
	t.Helper()

	payload, err := json.Marshal(body)
	require.NoError(t, err)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	router.ServeHTTP(w, req)
	return w
}

// =============================================================================
// Config Tests
// =============================================================================

// TestApplyConfigDefaults_AllDefaults verifies default values are applied.
func TestApplyConfigDefaults_AllDefaults(t *testing.T) {
	result := applyConfigDefaults(Config{})

	assert.Equal(t, 12220, result.Port, "default port should be 12220")
	assert.Equal(t, "neo4j", result.Neo4jUser)
	assert.Equal(t, "none", result.LLMBackend, "walks should default to structure only")
	assert.Equal(t, 30, result.LLMRequestsPerMinute)
	assert.Equal(t, walk.DefaultTrustGate, result.TrustGate)
	assert.Equal(t, "24h0m0s", result.ArchiveInterval.String())
	assert.True(t, result.EnableMetrics, "metrics should be enabled by default")
	assert.NotNil(t, result.Secrets, "an empty secret store should be provided")
}

// TestApplyConfigDefaults_PreservesCustomValues verifies custom values
// are not overwritten.
func TestApplyConfigDefaults_PreservesCustomValues(t *testing.T) {
	result := applyConfigDefaults(Config{
		Port:       9999,
		Neo4jUser:  "reader",
		LLMBackend: "ollama",
		TrustGate:  55,
	})

	assert.Equal(t, 9999, result.Port)
	assert.Equal(t, "reader", result.Neo4jUser)
	assert.Equal(t, "ollama", result.LLMBackend)
	assert.Equal(t, 55.0, result.TrustGate)
}

// =============================================================================
// End-to-End Service Tests
// =============================================================================

// TestNew_ServesWalks drives a walk through the assembled router and
// checks the journal recorded it.
func TestNew_ServesWalks(t *testing.T) {
	svc := newTestService(t, nil)

	w := postJSON(t, svc.Router(), "/v1/walk", map[string]any{
		"seeds":   []string{"Uma"},
		"user_id": "u1",
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		WalkID string `json:"walk_id"`
		Result struct {
			Nodes []struct {
				Name string `json:"name"`
			} `json:"nodes"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))

	assert.NotEmpty(t, resp.WalkID, "journaled walks should carry an id")
	require.Len(t, resp.Result.Nodes, 2)
	assert.Equal(t, "Ocean", resp.Result.Nodes[0].Name)
	assert.Equal(t, "Tide", resp.Result.Nodes[1].Name)

	recent := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/v1/walks/recent", nil)
	svc.Router().ServeHTTP(recent, req)
	require.Equal(t, http.StatusOK, recent.Code)
	assert.Contains(t, recent.Body.String(), `"count":1`)
}

// TestNew_HealthAndMetricsEndpoints verifies the operational surface.
func TestNew_HealthAndMetricsEndpoints(t *testing.T) {
	svc := newTestService(t, nil)

	// Record one walk so walker metrics exist before the scrape.
	w := postJSON(t, svc.Router(), "/v1/walk", map[string]any{"seeds": []string{"Uma"}})
	require.Equal(t, http.StatusOK, w.Code)

	health := httptest.NewRecorder()
	svc.Router().ServeHTTP(health, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, health.Code)
	assert.Contains(t, health.Body.String(), `"status":"ok"`)

	metrics := httptest.NewRecorder()
	svc.Router().ServeHTTP(metrics, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, metrics.Code)
	assert.Contains(t, metrics.Body.String(), "reverie_walker_walks_total",
		"walk counters should reach the scrape")
}

// TestNew_DreamWithoutNarrator verifies dreams degrade to structure
// when no LLM backend is configured.
func TestNew_DreamWithoutNarrator(t *testing.T) {
	svc := newTestService(t, nil)

	w := postJSON(t, svc.Router(), "/v1/dream", map[string]any{
		"user_id":   "u1",
		"character": "Elena",
		"seeds":     []string{"Uma"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var resp struct {
		WalkID string `json:"walk_id"`
		Result struct {
			Interpretation string `json:"interpretation"`
		} `json:"result"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.NotEmpty(t, resp.WalkID)
	assert.Empty(t, resp.Result.Interpretation)
}

// TestNew_InjectedLLMNarratesDreams verifies the Options seam carries a
// client all the way into the agent.
func TestNew_InjectedLLMNarratesDreams(t *testing.T) {
	svc := newTestService(t, &Options{LLM: fixedReplyClient("The tide keeps the score.")})

	w := postJSON(t, svc.Router(), "/v1/dream", map[string]any{
		"user_id":   "u1",
		"character": "Elena",
		"seeds":     []string{"Uma"},
	})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Contains(t, w.Body.String(), "The tide keeps the score.")
}

// TestNew_ValidationErrorsSurfaceAs400 verifies binding failures do not
// reach the walk engine.
func TestNew_ValidationErrorsSurfaceAs400(t *testing.T) {
	svc := newTestService(t, nil)

	w := postJSON(t, svc.Router(), "/v1/walk", map[string]any{"seeds": []string{}})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.True(t, strings.Contains(w.Body.String(), "invalid request"), w.Body.String())
}

// =============================================================================
// Interface Compliance
// =============================================================================

func TestServiceImplementsInterface(t *testing.T) {
	var svc Service = (*service)(nil)
	_ = svc
}

// =============================================================================
// Test Doubles
// =============================================================================

// fixedReplyClient is an llm.Client returning a canned narration.
type fixedReplyClient string

func (c fixedReplyClient) Generate(context.Context, string, string, llm.GenerationParams) (string, error) {
	return string(c), nil
}

// =============================================================================
// Benchmarks
// =============================================================================

func BenchmarkApplyConfigDefaults(b *testing.B) {
	cfg := Config{Port: 8080}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = applyConfigDefaults(cfg)
	}
}
