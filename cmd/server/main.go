// cmd/server/main.go is the composition root: wires C1-C11 plus the
// thin httpapi façade and runs them until SIGTERM/Interrupt, mirroring
// the teacher's main.go startup/shutdown shape (signal.Notify, bounded
// drain window, app.ShutdownWithContext) with the news/auth/db wiring
// replaced by the ingestion-to-push pipeline this repo implements.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/marketpulse/core/internal/adapters"
	"github.com/marketpulse/core/internal/aggregator"
	"github.com/marketpulse/core/internal/cache"
	"github.com/marketpulse/core/internal/chunker"
	"github.com/marketpulse/core/internal/config"
	"github.com/marketpulse/core/internal/denseindex"
	"github.com/marketpulse/core/internal/hub"
	"github.com/marketpulse/core/internal/httpapi"
	"github.com/marketpulse/core/internal/httpapi/authmw"
	"github.com/marketpulse/core/internal/ingest"
	"github.com/marketpulse/core/internal/retrieve"
	"github.com/marketpulse/core/internal/sparseindex"
	"github.com/marketpulse/core/internal/stream"
	"github.com/marketpulse/core/internal/subject"
	"github.com/marketpulse/core/internal/verdict"
	"github.com/marketpulse/core/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config load failed:", err)
		os.Exit(1)
	}

	log := logger.NewLogger()
	log.Info("marketpulse core starting", "environment", cfg.Environment, "aggregator_mode", cfg.AggregatorMode)

	rdb := redis.NewClient(mustParseRedisURL(cfg.RedisURL, log))
	verdictCache := cache.NewVerdictCache(rdb, cfg.VerdictCacheTTL, log)
	quota := cache.NewQuotaCounter(rdb, time.Minute)

	// C1: source adapters, sharing a Redis-backed quota counter so every
	// core instance polling the same provider credential sees one
	// aggregate per-window budget rather than an independent one each.
	sourceAdapters := adapters.BuildAll(cfg.Adapters, log, quota)
	sources := make([]aggregator.Source, 0, len(sourceAdapters))
	for _, a := range sourceAdapters {
		sources = append(sources, a)
	}

	// C2: aggregator (fan-out + dedupe).
	agg := aggregator.New(sources, cfg, log)

	// C3: chunker.
	chunk := chunker.New(cfg.ChunkMaxTokens)

	// C4/C5: dense + sparse indices.
	embedder := denseindex.NewHashEmbedder(256)
	dense := denseindex.New(embedder)
	sparse := sparseindex.New(cfg.BM25K1, cfg.BM25B)
	chunkMeta := retrieve.NewChunkMetadata()

	// C6: hybrid retriever (RRF fusion; reranker omitted, degrades gracefully).
	retriever := retrieve.New(dense, sparse, chunkMeta, cfg.RRFK, log)

	// C11: push hub.
	pushHub := hub.New(cfg.SinkWatermark, log)

	// C10: verdict assembler, backed by an external agent HTTP service
	// when configured, otherwise every call degrades to the documented
	// heuristic fallback.
	registry := verdict.NewRegistry()
	agentBaseURL := os.Getenv("AGENT_SERVICE_URL")
	var assembler *verdict.Assembler
	if agentBaseURL != "" {
		agentClient := verdict.NewHTTPAgentClient(agentBaseURL, log)
		assembler = verdict.New(retriever, agentClient, agentClient, agentClient, agentClient, registry, pushHub, log,
			verdict.WithReportAdapter(agentClient), verdict.WithCache(verdictCache))
	} else {
		log.Warn("AGENT_SERVICE_URL not set, verdict assembly will run in heuristic-only mode")
		noop := verdict.NewHTTPAgentClient("http://unconfigured.invalid", log)
		assembler = verdict.New(retriever, noop, noop, noop, noop, registry, pushHub, log, verdict.WithCache(verdictCache))
	}

	// C9: subject router, single-flight recompute scheduling, plus
	// market_update broadcast over C11 for every touched+active subject.
	router := subject.New(pushHub, assembler, registry, pushHub, log)

	// metrics_update broadcast (§6, §4.11) over every commit.
	metricsSink := hub.NewMetricsSink(pushHub)

	// C8: ingest coordinator (chunk -> commit -> notify router).
	coordinator := ingest.New(chunk, dense, sparse, chunkMeta, router, cfg.MicroBatchSize, cfg.MicroBatchWindow, cfg.CommitDrainDeadline, log,
		ingest.WithMetrics(metricsSink))

	// C7: streaming driver polling the aggregator.
	driver := stream.New(agg, coordinator, cfg.RefreshInterval, log)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	go coordinator.Run(ctx)
	go driver.Run(ctx)

	// Auth for the façade's protected routes.
	jwtManager := authmw.NewManager(cfg.JWTSecret, 24*time.Hour)
	var staticAuth *authmw.StaticTokenAuthenticator
	if cfg.IngestTokenHash != "" {
		staticAuth = authmw.NewStaticTokenAuthenticator(cfg.IngestTokenHash)
	}

	server := httpapi.New(httpapi.Config{
		AllowedOrigins: cfg.AllowedOrigins,
		AuthMode:       cfg.AuthMode,
	}, assembler, agg, coordinator, pushHub, jwtManager, staticAuth, log)

	addr := ":" + cfg.Port
	errCh := make(chan error, 1)
	go func() {
		if err := server.Listen(addr); err != nil {
			errCh <- err
		}
	}()
	log.Info("httpapi listening", "address", addr)

	sig := make(chan os.Signal, 1)
	signal.Notify(sig, os.Interrupt, syscall.SIGTERM)

	select {
	case <-sig:
		log.Info("shutdown signal received")
	case err := <-errCh:
		log.Error("httpapi listener failed", "error", err)
	}

	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.CommitDrainDeadline+5*time.Second)
	defer shutdownCancel()
	if err := server.ShutdownWithContext(shutdownCtx); err != nil {
		log.Error("httpapi forced shutdown", "error", err)
	}

	<-coordinator.Done()
	log.Info("marketpulse core stopped")
}

func mustParseRedisURL(raw string, log *logger.Logger) *redis.Options {
	opts, err := redis.ParseURL(raw)
	if err != nil {
		log.Warn("invalid REDIS_URL, falling back to localhost default", "error", err)
		return &redis.Options{Addr: "localhost:6379"}
	}
	return opts
}
