// Package stream implements C7: a single long-lived task that polls the
// aggregator on a ticker and emits an ArticleAdmitted changefeed event
// per new article. The driver is the sole source of monotonic ingest
// sequence numbers used for at-most-once delivery accounting in C11.
package stream

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/marketpulse/core/internal/model"
	"github.com/marketpulse/core/pkg/logger"
)

// ArticleAdmitted is the changefeed event C8 consumes.
type ArticleAdmitted struct {
	Article model.Article
	Seq     uint64
}

// Source is the narrow surface the driver needs from C2.
type Source interface {
	Aggregate(ctx context.Context, query string) []model.Article
}

// Sink is the narrow surface the driver needs from C8.
type Sink interface {
	Admit(ctx context.Context, event ArticleAdmitted)
}

// Driver runs the periodic poll-and-emit loop.
type Driver struct {
	source          Source
	sink            Sink
	refreshInterval time.Duration
	log             *logger.Logger
	seq             atomic.Uint64
}

func New(source Source, sink Sink, refreshInterval time.Duration, log *logger.Logger) *Driver {
	if refreshInterval <= 0 {
		refreshInterval = 30 * time.Second
	}
	return &Driver{
		source:          source,
		sink:            sink,
		refreshInterval: refreshInterval,
		log:             log.Named("stream_driver"),
	}
}

// Run blocks until ctx is cancelled, sleeping refreshInterval between
// ticks. Honors cooperative shutdown: on cancellation it finishes the
// current tick and returns, per §5.
func (d *Driver) Run(ctx context.Context) {
	ticker := time.NewTicker(d.refreshInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			d.log.Info("streaming driver stopping")
			return
		case <-ticker.C:
			d.tick(ctx)
		}
	}
}

// tick is tolerant of its own failures: any panic inside is recovered,
// logged, and the loop continues with the next interval.
func (d *Driver) tick(ctx context.Context) {
	defer func() {
		if r := recover(); r != nil {
			d.log.Error("tick panicked, continuing with next interval", "panic", r)
		}
	}()

	articles := d.source.Aggregate(ctx, "")
	if len(articles) == 0 {
		return
	}

	for _, article := range articles {
		seq := d.seq.Add(1)
		d.sink.Admit(ctx, ArticleAdmitted{Article: article, Seq: seq})
	}
}
