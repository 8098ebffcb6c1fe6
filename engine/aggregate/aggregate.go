// Package aggregate fans out to every source adapter, merges their output
// with source-priority deduplication, and caches the merged list.
package aggregate

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"

	"github.com/andyarntsen-alt/kortreist/engine/domain"
	"github.com/andyarntsen-alt/kortreist/engine/source"
	"github.com/andyarntsen-alt/kortreist/pkg/cache"
	"github.com/andyarntsen-alt/kortreist/pkg/fn"
	"github.com/andyarntsen-alt/kortreist/pkg/metrics"
)

// DefaultTTL keeps a merged list for an hour.
const DefaultTTL = time.Hour

var tracer = otel.Tracer("engine/aggregate")

// Origin says whether a result was served from the aggregator cache.
type Origin string

const (
	OriginCache Origin = "cache"
	OriginFresh Origin = "fresh"
)

// Result is one merged producer list with provenance.
type Result struct {
	Producers []domain.Producer
	Origin    Origin
	// Sources counts what each adapter contributed before deduplication.
	Sources map[domain.Source]int
}

// merged is the cached payload; Origin is attached per call.
type merged struct {
	producers []domain.Producer
	sources   map[domain.Source]int
}

// Config configures the Aggregator.
type Config struct {
	TTL     time.Duration
	Logger  *slog.Logger
	Metrics *metrics.Registry
}

// Aggregator merges adapters in priority order. The adapter order given to
// New is the deduplication tie-break: on a normalized-name collision the
// earlier adapter's record wins and the later one is discarded entirely.
type Aggregator struct {
	adapters []source.Adapter
	cache    *cache.TTL[merged]
	log      *slog.Logger

	cacheHits   *metrics.Counter
	cacheMisses *metrics.Counter
	mergeTime   *metrics.Histogram
	reg         *metrics.Registry
}

// New creates an Aggregator over adapters in decreasing priority.
func New(cfg Config, adapters ...source.Adapter) *Aggregator {
	if cfg.TTL <= 0 {
		cfg.TTL = DefaultTTL
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = metrics.New()
	}
	return &Aggregator{
		adapters:    adapters,
		cache:       cache.New[merged](cfg.TTL),
		log:         cfg.Logger,
		cacheHits:   cfg.Metrics.Counter(metrics.WithLabels("kortreist_aggregate_cache_total", "result", "hit"), "Aggregator cache lookups."),
		cacheMisses: cfg.Metrics.Counter(metrics.WithLabels("kortreist_aggregate_cache_total", "result", "miss"), "Aggregator cache lookups."),
		mergeTime:   cfg.Metrics.Histogram("kortreist_aggregate_merge_seconds", "Time to fetch and merge all sources.", nil),
		reg:         cfg.Metrics,
	}
}

// Producers returns the merged producer list, served from cache while fresh.
// The cache-hit path never invokes an adapter. On a miss all adapters are
// fetched concurrently; an adapter that fails or panics degrades to an empty
// contribution, so partial data always beats no data.
func (a *Aggregator) Producers(ctx context.Context) Result {
	if m, ok := a.cache.Get(); ok {
		a.cacheHits.Inc()
		return Result{Producers: m.producers, Origin: OriginCache, Sources: m.sources}
	}
	a.cacheMisses.Inc()

	ctx, span := tracer.Start(ctx, "aggregate.merge")
	defer span.End()
	start := time.Now()

	fetches := fn.Map(a.adapters, func(ad source.Adapter) func() []domain.Producer {
		return func() []domain.Producer { return a.fetchOne(ctx, ad) }
	})
	perSource := fn.FanOut(fetches...)

	sources := make(map[domain.Source]int, len(a.adapters))
	for i, ad := range a.adapters {
		sources[ad.Name()] = len(perSource[i])
		a.reg.Gauge(
			metrics.WithLabels("kortreist_source_producers", "source", string(ad.Name())),
			"Producers contributed by a source before deduplication.",
		).Set(int64(len(perSource[i])))
	}

	producers := Merge(perSource...)
	a.mergeTime.Since(start)
	a.log.Info("producers merged",
		"total", len(producers),
		"sources", fmt.Sprintf("%v", sources),
		"duration", time.Since(start),
	)

	a.cache.Set(merged{producers: producers, sources: sources})
	return Result{Producers: producers, Origin: OriginFresh, Sources: sources}
}

// TTLWindow returns the aggregator cache TTL, for cache-control headers.
func (a *Aggregator) TTLWindow() time.Duration { return a.cache.TTLWindow() }

// fetchOne runs one adapter with full containment: errors and panics both
// degrade to an empty list.
func (a *Aggregator) fetchOne(ctx context.Context, ad source.Adapter) (producers []domain.Producer) {
	ctx, span := tracer.Start(ctx, "aggregate.fetch."+string(ad.Name()))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("adapter %s panicked: %v", ad.Name(), r)
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			a.log.Error("adapter panicked", "source", ad.Name(), "panic", fmt.Sprintf("%v", r))
			producers = nil
		}
	}()

	producers, err := ad.Fetch(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		a.log.Warn("adapter failed", "source", ad.Name(), "err", err)
		a.reg.Counter(
			metrics.WithLabels("kortreist_source_failures_total", "source", string(ad.Name())),
			"Adapter fetches that produced nothing.",
		).Inc()
		return nil
	}
	return producers
}

// Merge concatenates the lists in the order given and deduplicates by the
// normalized name key. First occurrence wins, so list order is the priority
// order.
func Merge(lists ...[]domain.Producer) []domain.Producer {
	all := fn.FlatMap(lists, func(ps []domain.Producer) []domain.Producer { return ps })
	return fn.UniqueBy(all, func(p domain.Producer) string { return domain.NameKey(p.Name) })
}
