// Copyright (C) 2025 Aleutian AI (jinterlante@aleutian.ai)
// This program is free software: you can redistribute it and/or modify
// it under the terms of the GNU Affero General Public License as published by
// the Free Software Foundation, either version 3 of the License, or
// (at your option) any later version.
// See the LICENSE.txt file for the full license text.
//
// NOTE: This work is subject to additional terms under AGPL v3 Section 7.
// See the NOTICE.txt file for details regarding AI system attribution.

// Package walker provides the graph walker service for Reverie.
//
// This package contains the main service type that coordinates all
// components of the walker: HTTP routing, the walk engine, trust and
// trajectory sources, dream memory, the walk journal, thematic anchors,
// LLM clients, and observability infrastructure.
//
// # Usage
//
// Minimal (in-memory graph, no narrator):
//
//	cfg := walker.Config{Port: 12220}
//	svc, err := walker.New(cfg, nil)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	log.Fatal(svc.Run())
//
// Full deployment wires Neo4j, InfluxDB, Weaviate, a Badger journal,
// and an LLM backend through the same Config; every external dependency
// beyond the graph store is optional and the service degrades without it.
package walker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/AleutianAI/reverie/pkg/secrets"
	"github.com/AleutianAI/reverie/services/llm"
	"github.com/AleutianAI/reverie/services/walker/agent"
	"github.com/AleutianAI/reverie/services/walker/anchors"
	"github.com/AleutianAI/reverie/services/walker/history"
	"github.com/AleutianAI/reverie/services/walker/observability"
	"github.com/AleutianAI/reverie/services/walker/routes"
	"github.com/AleutianAI/reverie/services/walker/store"
	"github.com/AleutianAI/reverie/services/walker/telemetry"
	"github.com/AleutianAI/reverie/services/walker/themes"
	"github.com/AleutianAI/reverie/services/walker/trust"
	"github.com/AleutianAI/reverie/services/walker/walk"
)

// =============================================================================
// Constants
// =============================================================================

// Secret names the service reads from its sealed store.
const (
	SecretOpenAIKey     = "OPENAI_API_KEY"
	SecretAnthropicKey  = "ANTHROPIC_API_KEY"
	SecretInfluxToken   = "INFLUXDB_TOKEN"
	SecretNeo4jPassword = "NEO4J_PASSWORD"
)

// archiveExportSize is how many journal entries each scheduled GCS
// export carries.
const archiveExportSize = 1000

// =============================================================================
// Interface Definition
// =============================================================================

// Service defines the contract for the walker service.
//
// # Description
//
// Service abstracts the walker lifecycle, enabling testing and
// alternative implementations. Only essential lifecycle methods are
// exposed.
//
// # Thread Safety
//
// Implementations must be safe for concurrent use. Run() blocks and
// should only be called once per instance.
type Service interface {
	// Run starts the HTTP server and blocks until shutdown or error.
	Run() error

	// Router returns the underlying Gin engine for testing.
	Router() *gin.Engine
}

// =============================================================================
// Configuration
// =============================================================================

// Config holds walker service configuration options.
//
// # Description
//
// Config centralizes all configuration for the walker service. Values
// can be populated from environment variables, config files, or
// programmatically for testing.
//
// # Required Fields
//
// None - with everything zero the service runs against an in-memory
// graph with no narrator, which is the test and demo posture.
//
// # Examples
//
//	// Minimal config (in-memory graph, all defaults)
//	cfg := Config{}
//
//	// Production shape
//	cfg := Config{
//	    Port:        12220,
//	    Neo4jURI:    "bolt://localhost:7687",
//	    Neo4jUser:   "neo4j",
//	    InfluxURL:   "http://localhost:8086",
//	    WeaviateURL: "localhost:8080",
//	    JournalPath: "/var/lib/reverie/journal",
//	    AnchorPath:  "/etc/reverie/anchors.yaml",
//	    LLMBackend:  "ollama",
//	    OllamaURL:   "http://localhost:11434",
//	    Secrets:     secrets.FromEnv(walker.SecretNeo4jPassword),
//	}
type Config struct {
	// Port is the HTTP server port. Default: 12220
	Port int

	// GinMode sets the Gin framework mode.
	// Valid values: "debug", "release", "test"
	// Default: uses GIN_MODE env var or "debug"
	GinMode string

	// Neo4jURI is the bolt URI of the property graph.
	// If empty, the service runs on an in-memory graph store.
	Neo4jURI string

	// Neo4jUser is the Neo4j username. Default: "neo4j"
	Neo4jUser string

	// Neo4jDatabase selects the Neo4j database. Empty uses the default.
	Neo4jDatabase string

	// InfluxURL is the InfluxDB endpoint for trust trajectory queries.
	// If empty, temporal scoring runs without trajectory data.
	InfluxURL string

	// InfluxOrg and InfluxBucket locate the trust_events series.
	InfluxOrg    string
	InfluxBucket string

	// WeaviateURL is the host:port of the dream-memory index.
	// If empty, recent-theme seeding and dream persistence are disabled.
	WeaviateURL string

	// JournalPath is the directory for the Badger walk journal.
	// If empty and JournalInMemory is false, journaling is disabled.
	JournalPath string

	// JournalInMemory keeps the journal off disk. For tests and dev runs.
	JournalInMemory bool

	// ArchiveBucket is a GCS bucket for periodic journal exports.
	// Requires ArchiveKeyPath. If empty, no exports run.
	ArchiveBucket string

	// ArchiveKeyPath is the service-account key file for GCS.
	ArchiveKeyPath string

	// ArchiveInterval is how often the journal is exported.
	// Default: 24 hours.
	ArchiveInterval time.Duration

	// AnchorPath is the YAML file of per-character thematic anchors.
	// If empty, walks run without anchor boosts. The file is watched
	// and hot-reloaded.
	AnchorPath string

	// LLMBackend specifies the interpretation provider.
	// Valid values: "openai", "ollama", "anthropic", "none"
	// Default: "none" (walks return structure without narration)
	LLMBackend string

	// LLMModel overrides the backend's default model.
	LLMModel string

	// OllamaURL is the Ollama endpoint, required for the ollama backend.
	OllamaURL string

	// LLMRequestsPerMinute rate-limits interpretation calls.
	// Default: 30. Set negative to disable limiting.
	LLMRequestsPerMinute int

	// TrustGate is the minimum trust score for sharing user nodes with
	// companion walks. Default: walk.DefaultTrustGate.
	TrustGate float64

	// DreamNodeBudget caps nodes per dream walk. Default: agent's own.
	DreamNodeBudget int

	// TraceExporter and MetricExporter select telemetry exporters.
	// Defaults follow telemetry.DefaultConfig (OTEL_* env vars).
	TraceExporter  string
	MetricExporter string

	// OTelEndpoint is the OTLP collector endpoint.
	OTelEndpoint string

	// EnableMetrics enables Prometheus walk metrics.
	// Default: true
	EnableMetrics bool

	// Secrets carries sealed API keys: SecretOpenAIKey,
	// SecretAnthropicKey, SecretInfluxToken, SecretNeo4jPassword.
	// If nil, an empty store is used and keyed backends are skipped.
	Secrets *secrets.Store
}

// Options injects pre-built dependencies into New.
//
// # Description
//
// Options bypasses the Config-driven constructors for individual
// components. Tests use it to walk a seeded in-memory graph; embedders
// use it to share clients across services. Nil fields fall back to
// whatever Config specifies.
//
// # Examples
//
//	graph := store.NewMemoryStore()
//	graph.AddNode("t1", "Topic", "Ocean", nil)
//	svc, err := walker.New(cfg, &walker.Options{Graph: graph})
type Options struct {
	// Graph replaces the Config-driven graph store. No close is
	// attempted on injected stores.
	Graph walk.GraphStore

	// Trust overrides the trust source. When nil, a graph store that
	// resolves relationships serves trust lookups itself.
	Trust walk.TrustSource

	// Trajectory overrides the InfluxDB-backed trajectory source.
	Trajectory walk.TrajectorySource

	// Memory overrides the Weaviate-backed dream memory.
	Memory agent.Memory

	// LLM overrides the Config-driven interpretation client. Injected
	// clients are used as-is, with no rate limiter wrapped around them.
	LLM llm.Client
}

// =============================================================================
// Implementation
// =============================================================================

// service implements Service for production use.
//
// # Description
//
// service coordinates:
//   - HTTP routing via Gin
//   - the walk engine and its trust, trajectory, and anchor sources
//   - the narrating agent and its LLM client
//   - the walk journal with optional GCS archiving
//   - OpenTelemetry tracing and Prometheus metrics
//
// # Thread Safety
//
// Thread-safe after construction. All fields are read-only after New()
// returns.
type service struct {
	config Config
	opts   Options

	router     *gin.Engine
	graph      walk.GraphStore
	graphClose func(context.Context) error
	trajClose  func()
	memory     agent.Memory
	journal    *history.Journal
	archiver   *history.Archiver
	anchors    *anchors.Table
	llmClient  llm.Client
	walker     *walk.Walker
	dreamer    *agent.Agent

	telemetryShutdown func(context.Context) error
	archiveDone       chan struct{}
	archiveOnce       sync.Once
}

// =============================================================================
// Constructor
// =============================================================================

// New creates a walker Service with the given configuration.
//
// # Description
//
// New initializes all walker components:
//  1. Applies default configuration for missing values
//  2. Initializes OpenTelemetry tracing and metrics export
//  3. Initializes Prometheus walk metrics
//  4. Opens the graph store (Neo4j, or in-memory when unconfigured)
//  5. Wires trust trajectory queries (InfluxDB, cached) if configured
//  6. Wires dream memory (Weaviate) if configured
//  7. Opens the walk journal and GCS archiver if configured
//  8. Loads thematic anchors and starts the hot-reload watcher
//  9. Creates the LLM client for the chosen backend
//  10. Builds the walk engine and agent, then the HTTP router
//
// Optional dependencies that fail log a warning and leave the service
// degraded. The graph store and anchor file are load-bearing: their
// failures abort construction.
//
// # Inputs
//
//   - cfg: Service configuration. Zero values use defaults.
//   - opts: Injected dependencies, or nil for Config-driven wiring.
//
// # Outputs
//
//   - Service: Ready-to-run walker service
//   - error: Non-nil if initialization fails
func New(cfg Config, opts *Options) (Service, error) {
	s := &service{
		config: applyConfigDefaults(cfg),
	}
	if opts != nil {
		s.opts = *opts
	}

	shutdown, err := s.initTelemetry()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	s.telemetryShutdown = shutdown

	if s.config.EnableMetrics {
		observability.InitMetrics()
		slog.Info("Initialized Prometheus walk metrics")
	}

	if err := s.initGraphStore(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize graph store: %w", err)
	}

	trajectory := s.initTrajectory()

	if err := s.initMemory(); err != nil {
		slog.Warn("Dream memory initialization failed, theme seeding disabled",
			"error", err)
		// Not fatal - continue without Weaviate
	}

	s.initJournal()

	if err := s.initAnchors(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to load thematic anchors: %w", err)
	}

	if err := s.initLLMClient(); err != nil {
		s.cleanup()
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	s.buildWalker(trajectory)
	s.buildAgent()
	s.initRouter()

	if s.archiver != nil {
		s.startArchiveLoop()
	}

	return s, nil
}

// =============================================================================
// Service Interface Methods
// =============================================================================

// Run starts the HTTP server and blocks until shutdown or error.
// Cleanup is automatic on return.
func (s *service) Run() error {
	defer s.cleanup()

	addr := fmt.Sprintf(":%d", s.config.Port)
	slog.Info("Starting walker server", "port", s.config.Port)

	return s.router.Run(addr)
}

// Router returns the underlying Gin engine for testing. Callers must
// not modify routes after construction.
func (s *service) Router() *gin.Engine {
	return s.router
}

// =============================================================================
// Private Initialization Methods
// =============================================================================

// applyConfigDefaults fills in missing configuration values.
func applyConfigDefaults(cfg Config) Config {
	if cfg.Port == 0 {
		cfg.Port = 12220
	}
	if cfg.Neo4jUser == "" {
		cfg.Neo4jUser = "neo4j"
	}
	if cfg.LLMBackend == "" {
		cfg.LLMBackend = "none"
	}
	if cfg.LLMRequestsPerMinute == 0 {
		cfg.LLMRequestsPerMinute = 30
	}
	if cfg.TrustGate == 0 {
		cfg.TrustGate = walk.DefaultTrustGate
	}
	if cfg.ArchiveInterval == 0 {
		cfg.ArchiveInterval = 24 * time.Hour
	}
	if cfg.Secrets == nil {
		cfg.Secrets = secrets.NewStore()
	}
	// EnableMetrics defaults to true (zero value is false, so we need explicit check)
	cfg.EnableMetrics = true

	return cfg
}

// initTelemetry wires tracing and metric export through the telemetry
// package, honoring OTEL_* environment defaults where the config is
// silent.
func (s *service) initTelemetry() (func(context.Context) error, error) {
	tcfg := telemetry.DefaultConfig()
	if s.config.TraceExporter != "" {
		tcfg.TraceExporter = s.config.TraceExporter
	}
	if s.config.MetricExporter != "" {
		tcfg.MetricExporter = s.config.MetricExporter
	}
	if s.config.OTelEndpoint != "" {
		tcfg.OTLPEndpoint = s.config.OTelEndpoint
	}
	return telemetry.Init(context.Background(), tcfg)
}

// initGraphStore opens Neo4j when configured and falls back to the
// in-memory store otherwise. A configured Neo4j that cannot be reached
// is a hard failure; silently walking an empty substitute graph would
// mask it.
func (s *service) initGraphStore() error {
	if s.opts.Graph != nil {
		s.graph = s.opts.Graph
		return nil
	}
	if s.config.Neo4jURI == "" {
		slog.Info("Neo4j not configured, using the in-memory graph store")
		s.graph = store.NewMemoryStore()
		return nil
	}

	password := ""
	if s.config.Secrets.Has(SecretNeo4jPassword) {
		if err := s.config.Secrets.Use(SecretNeo4jPassword, func(v string) error {
			password = v
			return nil
		}); err != nil {
			return err
		}
	}

	neoStore, err := store.NewNeo4jStore(context.Background(), store.Neo4jConfig{
		URI:      s.config.Neo4jURI,
		Username: s.config.Neo4jUser,
		Password: password,
		Database: s.config.Neo4jDatabase,
	}, slog.Default())
	if err != nil {
		return err
	}

	s.graph = neoStore
	s.graphClose = neoStore.Close
	slog.Info("Neo4j graph store initialized", "uri", s.config.Neo4jURI)
	return nil
}

// initTrajectory wires the InfluxDB trust trajectory source behind the
// caching layer. Missing configuration or token disables it.
func (s *service) initTrajectory() walk.TrajectorySource {
	if s.opts.Trajectory != nil {
		return s.opts.Trajectory
	}
	if s.config.InfluxURL == "" {
		return nil
	}
	if !s.config.Secrets.Has(SecretInfluxToken) {
		slog.Warn("InfluxDB configured without a token, trajectory scoring disabled")
		return nil
	}

	token := ""
	if err := s.config.Secrets.Use(SecretInfluxToken, func(v string) error {
		token = v
		return nil
	}); err != nil {
		slog.Warn("Failed to read InfluxDB token, trajectory scoring disabled",
			"error", err)
		return nil
	}

	influx := trust.NewInfluxTrajectory(trust.InfluxConfig{
		URL:    s.config.InfluxURL,
		Token:  token,
		Org:    s.config.InfluxOrg,
		Bucket: s.config.InfluxBucket,
	}, slog.Default())
	s.trajClose = influx.Close

	slog.Info("InfluxDB trajectory source initialized", "url", s.config.InfluxURL)
	return trust.NewCachedTrajectory(influx)
}

// initMemory wires the Weaviate dream-memory index.
func (s *service) initMemory() error {
	if s.opts.Memory != nil {
		s.memory = s.opts.Memory
		return nil
	}
	if s.config.WeaviateURL == "" {
		slog.Info("Weaviate not configured, running without dream memory")
		return nil
	}

	memory, err := themes.NewMemory(themes.Config{URL: s.config.WeaviateURL}, slog.Default())
	if err != nil {
		return err
	}
	s.memory = memory
	slog.Info("Dream memory initialized", "url", s.config.WeaviateURL)
	return nil
}

// initJournal opens the walk journal and the optional GCS archiver.
// Both are best-effort: the walker serves requests without history.
func (s *service) initJournal() {
	if s.config.JournalPath == "" && !s.config.JournalInMemory {
		slog.Info("Journal not configured, walks will not be recorded")
		return
	}

	journal, err := history.Open(history.Config{
		Path:     s.config.JournalPath,
		InMemory: s.config.JournalInMemory,
	}, slog.Default())
	if err != nil {
		slog.Warn("Journal initialization failed, walks will not be recorded",
			"path", s.config.JournalPath,
			"error", err)
		return
	}
	s.journal = journal

	if s.config.ArchiveBucket == "" {
		return
	}
	archiver, err := history.NewArchiver(context.Background(),
		s.config.ArchiveBucket, s.config.ArchiveKeyPath, slog.Default())
	if err != nil {
		slog.Warn("Journal archiver initialization failed, exports disabled",
			"bucket", s.config.ArchiveBucket,
			"error", err)
		return
	}
	s.archiver = archiver
}

// initAnchors loads the thematic anchor table and starts watching its
// file for edits. A missing file yields an empty table; a malformed one
// aborts startup.
func (s *service) initAnchors() error {
	table, err := anchors.Load(s.config.AnchorPath, slog.Default())
	if err != nil {
		return err
	}
	s.anchors = table

	if err := table.Watch(context.Background()); err != nil {
		slog.Warn("Anchor file watcher failed, edits need a restart",
			"path", s.config.AnchorPath,
			"error", err)
	}
	return nil
}

// initLLMClient creates the interpretation backend, wrapped in a rate
// limiter. The "none" backend leaves walks unnarrated.
func (s *service) initLLMClient() error {
	if s.opts.LLM != nil {
		s.llmClient = s.opts.LLM
		return nil
	}

	var client llm.Client

	switch s.config.LLMBackend {
	case "none":
		slog.Info("No LLM backend configured, walks return structure only")
		return nil
	case "openai":
		err := s.config.Secrets.Use(SecretOpenAIKey, func(key string) error {
			c, cerr := llm.NewOpenAIClient(llm.OpenAIConfig{APIKey: key, Model: s.config.LLMModel})
			client = c
			return cerr
		})
		if err != nil {
			return err
		}
		slog.Info("Using OpenAI LLM backend")
	case "ollama":
		c, err := llm.NewOllamaClient(llm.OllamaConfig{BaseURL: s.config.OllamaURL, Model: s.config.LLMModel})
		if err != nil {
			return err
		}
		client = c
		slog.Info("Using Ollama LLM backend")
	case "claude", "anthropic":
		err := s.config.Secrets.Use(SecretAnthropicKey, func(key string) error {
			c, cerr := llm.NewAnthropicClient(llm.AnthropicConfig{APIKey: key, Model: s.config.LLMModel})
			client = c
			return cerr
		})
		if err != nil {
			return err
		}
		slog.Info("Using Anthropic (Claude) LLM backend")
	default:
		slog.Warn("Unknown LLM backend, walks return structure only",
			"backend", s.config.LLMBackend)
		return nil
	}

	if s.config.LLMRequestsPerMinute > 0 {
		client = llm.NewLimited(client, s.config.LLMRequestsPerMinute, llm.DefaultBurst)
	}
	s.llmClient = client
	return nil
}

// buildWalker assembles the walk engine from the initialized sources.
// The graph store serves trust lookups when it can and nothing else
// overrides it.
func (s *service) buildWalker(trajectory walk.TrajectorySource) {
	opts := []walk.WalkerOption{
		walk.WithLogger(slog.Default()),
		walk.WithTrustGate(s.config.TrustGate),
	}
	if s.opts.Trust != nil {
		opts = append(opts, walk.WithTrustSource(s.opts.Trust))
	} else if ts, ok := s.graph.(walk.TrustSource); ok {
		opts = append(opts, walk.WithTrustSource(ts))
	}
	if trajectory != nil {
		opts = append(opts, walk.WithTrajectorySource(trajectory))
	}
	if s.anchors != nil {
		opts = append(opts, walk.WithAnchorSource(s.anchors.Lookup))
	}
	s.walker = walk.New(s.graph, opts...)
}

// buildAgent assembles the narrating agent on top of the walker.
func (s *service) buildAgent() {
	opts := []agent.Option{agent.WithLogger(slog.Default())}
	if s.llmClient != nil {
		opts = append(opts, agent.WithLLM(s.llmClient))
	}
	if s.memory != nil {
		opts = append(opts, agent.WithMemory(s.memory))
	}
	if s.config.DreamNodeBudget > 0 {
		opts = append(opts, agent.WithDreamNodeBudget(s.config.DreamNodeBudget))
	}
	s.dreamer = agent.New(s.walker, opts...)
}

// initRouter sets up the Gin HTTP router with all routes.
func (s *service) initRouter() {
	if s.config.GinMode != "" {
		gin.SetMode(s.config.GinMode)
	}
	s.router = gin.Default()
	s.router.Use(otelgin.Middleware("walker-service"))

	routes.SetupRoutes(s.router, s.walker, s.dreamer, s.journal)
}

// startArchiveLoop exports the journal to GCS on a fixed interval until
// cleanup.
func (s *service) startArchiveLoop() {
	s.archiveDone = make(chan struct{})
	go func() {
		ticker := time.NewTicker(s.config.ArchiveInterval)
		defer ticker.Stop()
		for {
			select {
			case <-s.archiveDone:
				return
			case <-ticker.C:
				if _, err := s.archiver.Export(context.Background(), s.journal, archiveExportSize); err != nil {
					slog.Warn("Journal archive export failed", "error", err)
				}
			}
		}
	}()
	slog.Info("Journal archive loop started",
		"bucket", s.config.ArchiveBucket,
		"interval", s.config.ArchiveInterval.String())
}

// cleanup releases all resources held by the service. Called when Run()
// exits or on initialization failure.
func (s *service) cleanup() {
	if s.archiveDone != nil {
		s.archiveOnce.Do(func() { close(s.archiveDone) })
	}

	if s.archiver != nil {
		if err := s.archiver.Close(); err != nil {
			slog.Warn("Archiver close error", "error", err)
		}
	}

	if s.journal != nil {
		if err := s.journal.Close(); err != nil {
			slog.Warn("Journal close error", "error", err)
		}
	}

	if s.anchors != nil {
		s.anchors.Close()
	}

	if s.trajClose != nil {
		s.trajClose()
	}

	if s.graphClose != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.graphClose(ctx); err != nil {
			slog.Warn("Graph store close error", "error", err)
		}
	}

	if s.telemetryShutdown != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.telemetryShutdown(ctx); err != nil {
			slog.Warn("Telemetry shutdown error", "error", err)
		}
	}
}

// =============================================================================
// Compile-time Interface Compliance
// =============================================================================

var _ Service = (*service)(nil)
