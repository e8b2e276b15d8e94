// Package ingest implements C8: drains ArticleAdmitted events into
// bounded micro-batches, chunks each article, and commits the batch to
// the dense and sparse indices under a single write-exclusive critical
// section — the commit that enforces I3. Hands the committed set to C9.
package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/internal/stream"
	"github.com/marketpulse/core/pkg/errors"
	"github.com/marketpulse/core/pkg/logger"
)

// Chunker is the narrow surface the coordinator needs from C3.
type Chunker interface {
	Chunk(a model.Article) []model.Chunk
}

// DenseIndex is the narrow surface the coordinator needs from C4.
type DenseIndex interface {
	Add(ctx context.Context, chunks []model.Chunk) error
}

// SparseIndex is the narrow surface the coordinator needs from C5.
type SparseIndex interface {
	Add(chunks []model.Chunk)
}

// ChunkMetadata is the narrow surface the coordinator needs to keep
// chunk text/provenance resolvable for the retriever.
type ChunkMetadata interface {
	Save(chunks []model.Chunk)
}

// Router is the narrow surface the coordinator needs from C9.
type Router interface {
	OnCommitted(ctx context.Context, articles []model.Article, chunks []model.Chunk)
}

// CommitRecord is emitted after every successful commit, for metrics
// broadcast (ingest-latency) over the push hub.
type CommitRecord struct {
	ArticleCount int
	ChunkCount   int
	LatencyMS    int64
}

// MetricsSink receives commit records; optional.
type MetricsSink interface {
	OnCommit(record CommitRecord)
}

// Coordinator implements the micro-batch drain-and-commit loop.
type Coordinator struct {
	chunker  Chunker
	dense    DenseIndex
	sparse   SparseIndex
	metadata ChunkMetadata
	router   Router
	metrics  MetricsSink
	log      *logger.Logger

	maxBatchSize  int
	batchWindow   time.Duration
	drainDeadline time.Duration

	queue    chan queuedEvent
	commitMu sync.Mutex // single write-exclusive critical section across C4+C5
	done     chan struct{}

	totalCommits        atomic.Int64
	lastCommitLatencyMS atomic.Int64
}

type queuedEvent struct {
	event      stream.ArticleAdmitted
	receivedAt time.Time
}

type Option func(*Coordinator)

func WithMetrics(m MetricsSink) Option {
	return func(c *Coordinator) { c.metrics = m }
}

func New(chunker Chunker, dense DenseIndex, sparse SparseIndex, metadata ChunkMetadata, router Router, maxBatchSize int, batchWindow, drainDeadline time.Duration, log *logger.Logger, opts ...Option) *Coordinator {
	if maxBatchSize <= 0 {
		maxBatchSize = 64
	}
	if batchWindow <= 0 {
		batchWindow = 50 * time.Millisecond
	}
	if drainDeadline <= 0 {
		drainDeadline = 5 * time.Second
	}
	c := &Coordinator{
		chunker:       chunker,
		dense:         dense,
		sparse:        sparse,
		metadata:      metadata,
		router:        router,
		log:           log.Named("ingest_coordinator"),
		maxBatchSize:  maxBatchSize,
		batchWindow:   batchWindow,
		drainDeadline: drainDeadline,
		queue:         make(chan queuedEvent, maxBatchSize*4),
		done:          make(chan struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Admit implements stream.Sink: enqueues an ArticleAdmitted event for the
// next micro-batch.
func (c *Coordinator) Admit(ctx context.Context, event stream.ArticleAdmitted) {
	select {
	case c.queue <- queuedEvent{event: event, receivedAt: time.Now()}:
	case <-ctx.Done():
	}
}

// Run drains the queue into bounded micro-batches (up to maxBatchSize
// events or batchWindow elapsed, whichever first) and commits each
// batch. On ctx cancellation it drains remaining queued events up to
// drainDeadline, then discards and returns.
func (c *Coordinator) Run(ctx context.Context) {
	defer close(c.done)
	ticker := time.NewTicker(c.batchWindow)
	defer ticker.Stop()

	var batch []queuedEvent

	flush := func() {
		if len(batch) == 0 {
			return
		}
		c.commit(ctx, batch)
		batch = nil
	}

	for {
		select {
		case <-ctx.Done():
			c.drainOnShutdown(batch)
			return
		case ev := <-c.queue:
			batch = append(batch, ev)
			if len(batch) >= c.maxBatchSize {
				flush()
			}
		case <-ticker.C:
			flush()
		}
	}
}

// drainOnShutdown gives the queue up to drainDeadline to empty before
// giving up, per the cooperative-shutdown contract in §5.
func (c *Coordinator) drainOnShutdown(pending []queuedEvent) {
	deadline := time.NewTimer(c.drainDeadline)
	defer deadline.Stop()

	batch := pending
	bg := context.Background()
	for {
		if len(batch) >= c.maxBatchSize {
			c.commit(bg, batch)
			batch = nil
		}
		select {
		case ev := <-c.queue:
			batch = append(batch, ev)
		case <-deadline.C:
			if len(batch) > 0 {
				c.commit(bg, batch)
			}
			c.log.Info("ingest coordinator drained and stopped")
			return
		}
	}
}

// commit runs C3 over every article in the batch, then appends the
// resulting chunks to C4 and C5 under a single write-exclusive critical
// section. An embedder failure aborts the whole batch (I3): neither
// index is updated, and the articles are not retried.
func (c *Coordinator) commit(ctx context.Context, batch []queuedEvent) {
	var articles []model.Article
	var chunks []model.Chunk
	for _, qe := range batch {
		articles = append(articles, qe.event.Article)
		chunks = append(chunks, c.chunker.Chunk(qe.event.Article)...)
	}

	if len(chunks) == 0 {
		// Empty-body articles produce zero chunks: no commit, no fan-out.
		return
	}

	c.commitMu.Lock()
	err := c.dense.Add(ctx, chunks)
	if err != nil {
		c.commitMu.Unlock()
		c.log.Error("commit aborted: embedder failure", "error", errors.CommitAborted("dense index rejected batch", err))
		return
	}
	c.sparse.Add(chunks)
	c.metadata.Save(chunks)
	c.commitMu.Unlock()

	var earliestLatency int64
	if len(batch) > 0 {
		earliestLatency = time.Since(batch[0].receivedAt).Milliseconds()
	}
	c.totalCommits.Add(1)
	c.lastCommitLatencyMS.Store(earliestLatency)

	if c.metrics != nil {
		c.metrics.OnCommit(CommitRecord{
			ArticleCount: len(articles),
			ChunkCount:   len(chunks),
			LatencyMS:    earliestLatency,
		})
	}

	c.router.OnCommitted(ctx, articles, chunks)
}

// Done is closed once Run has returned.
func (c *Coordinator) Done() <-chan struct{} { return c.done }

// HealthCheck reports queue pressure and commit activity using the
// teacher's status+issues map idiom. An issue is raised when the admit
// queue is more than three-quarters full, which signals Run is falling
// behind the micro-batch window.
func (c *Coordinator) HealthCheck() map[string]interface{} {
	depth := len(c.queue)
	capacity := cap(c.queue)

	var issues []string
	if capacity > 0 && depth*4 > capacity*3 {
		issues = append(issues, "admit queue over 75% full")
	}

	return map[string]interface{}{
		"status":                 "healthy",
		"queue_depth":            depth,
		"queue_capacity":         capacity,
		"total_commits":          c.totalCommits.Load(),
		"last_commit_latency_ms": c.lastCommitLatencyMS.Load(),
		"issues":                 issues,
	}
}
