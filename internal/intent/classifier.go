// Package intent decides whether a query is about products or is general
// conversation. Decisions come from a per-process cache, then a set of
// phrase heuristics, then a fallback model.
package intent

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"sync/atomic"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"golang.org/x/sync/singleflight"

	"github.com/randalmurphal/querybot/internal/session"
	"github.com/randalmurphal/querybot/pkg/flowgraph/observability"
)

// Decision is the classifier's verdict. It is always ProductQuery or
// GeneralConversation.
type Decision = session.Intent

// Decisions the classifier can return.
const (
	ProductQuery        = session.IntentProductQuery
	GeneralConversation = session.IntentGeneralConversation
)

// DefaultModelTimeout bounds a shared model call when no timeout is set.
const DefaultModelTimeout = 30 * time.Second

// Source names the layer that produced a decision.
type Source string

const (
	SourceCache     Source = "cache"
	SourceHeuristic Source = "heuristic"
	SourceModel     Source = "model"
)

// Normalize returns the cache key for a query.
func Normalize(query string) string {
	return strings.ToLower(strings.TrimSpace(query))
}

// Classifier routes queries. It is safe for concurrent use.
//
// Counters are bumped under the read lock and Reset takes the write lock,
// so a Stats snapshot never observes a half-applied reset. Work that
// started before a Reset is neither cached nor counted after it.
type Classifier struct {
	mu         sync.RWMutex
	cache      *gocache.Cache
	generation uint64

	rules        *ruleSet
	model        Model
	modelTimeout time.Duration
	flights      singleflight.Group

	logger  *slog.Logger
	metrics observability.MetricsRecorder

	total         atomic.Int64
	cacheHits     atomic.Int64
	heuristicHits atomic.Int64
	modelCalls    atomic.Int64
}

// Option configures a Classifier.
type Option func(*Classifier)

// WithRules replaces the default heuristic phrase lists.
func WithRules(r Rules) Option {
	return func(c *Classifier) {
		c.rules = r.compile()
	}
}

// WithLogger sets the logger. Nil is ignored.
func WithLogger(logger *slog.Logger) Option {
	return func(c *Classifier) {
		if logger != nil {
			c.logger = logger
		}
	}
}

// WithMetrics records one classification counter per decision.
func WithMetrics(m observability.MetricsRecorder) Option {
	return func(c *Classifier) {
		if m != nil {
			c.metrics = m
		}
	}
}

// WithModelTimeout bounds a shared model call. Zero leaves it unbounded.
func WithModelTimeout(d time.Duration) Option {
	return func(c *Classifier) {
		c.modelTimeout = d
	}
}

// New creates a classifier that falls back to model. A nil model makes
// every fallback fail open.
func New(model Model, opts ...Option) *Classifier {
	c := &Classifier{
		cache:        gocache.New(gocache.NoExpiration, 0),
		rules:        DefaultRules().compile(),
		model:        model,
		modelTimeout: DefaultModelTimeout,
		logger:       slog.Default(),
		metrics:      observability.NoopMetrics{},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Classify returns the decision for query. It never fails: a missing or
// broken model yields FailOpenDecision.
func (c *Classifier) Classify(ctx context.Context, query string) Decision {
	key := Normalize(query)

	c.mu.RLock()
	if d, ok := c.lookup(key); ok {
		c.cacheHits.Add(1)
		c.total.Add(1)
		c.mu.RUnlock()
		c.observe(ctx, d, SourceCache)
		return d
	}
	gen := c.generation
	c.mu.RUnlock()

	if d, outcome := c.rules.evaluate(key); outcome == ruleMatched {
		d = c.store(gen, key, d)
		c.tally(gen, &c.heuristicHits)
		c.observe(ctx, d, SourceHeuristic)
		return d
	}

	d, src := c.fallback(ctx, key, query, gen)
	c.observe(ctx, d, src)
	return d
}

type flightResult struct {
	decision  Decision
	source    Source
	cacheable bool
}

// fallback asks the model once per key even under concurrent callers.
// The shared call is detached from any one caller's cancellation and bounded
// by the model timeout instead; a caller whose context ends stops waiting and
// fails open on its own. Callers that share another caller's cached answer
// count as cache hits.
func (c *Classifier) fallback(ctx context.Context, key, query string, gen uint64) (Decision, Source) {
	if ctx.Err() != nil {
		c.tally(gen, nil)
		return failOpen(), SourceModel
	}

	ran := false
	ch := c.flights.DoChan(fmt.Sprintf("%d\x00%s", gen, key), func() (any, error) {
		ran = true

		c.mu.RLock()
		if d, ok := c.lookup(key); ok {
			c.mu.RUnlock()
			return flightResult{decision: d, source: SourceCache, cacheable: true}, nil
		}
		if c.generation == gen {
			c.modelCalls.Add(1)
		}
		c.mu.RUnlock()

		fctx, cancel := c.detach(ctx)
		defer cancel()

		d, cacheable := c.ask(fctx, query)
		if cacheable {
			d = c.store(gen, key, d)
		}
		return flightResult{decision: d, source: SourceModel, cacheable: cacheable}, nil
	})

	select {
	case <-ctx.Done():
		c.logger.Warn("classification abandoned by caller, failing open", slog.String("error", ctx.Err().Error()))
		c.tally(gen, nil)
		return failOpen(), SourceModel
	case r := <-ch:
		res := r.Val.(flightResult)
		if (ran && res.source == SourceModel) || !res.cacheable {
			c.tally(gen, nil)
			return res.decision, SourceModel
		}
		c.tally(gen, &c.cacheHits)
		return res.decision, SourceCache
	}
}

func (c *Classifier) detach(ctx context.Context) (context.Context, context.CancelFunc) {
	ctx = context.WithoutCancel(ctx)
	if c.modelTimeout > 0 {
		return context.WithTimeout(ctx, c.modelTimeout)
	}
	return context.WithCancel(ctx)
}

// ask queries the model. The result is not cacheable when the call ran out
// of time, since the fail-open answer then says nothing about the query.
func (c *Classifier) ask(ctx context.Context, query string) (Decision, bool) {
	if c.model == nil {
		c.logger.Warn("no intent model configured, failing open")
		return failOpen(), true
	}

	reply, err := c.model.Classify(ctx, BuildPrompt(query))
	if err != nil {
		c.logger.Warn("intent model failed, failing open", slog.String("error", err.Error()))
		return failOpen(), ctx.Err() == nil
	}

	d, ok := ParseReply(reply)
	if !ok {
		c.logger.Warn("unrecognized intent model reply, failing open", slog.String("reply", reply))
	}
	return d, true
}

// store caches d unless a Reset happened since gen was read. An existing
// cache entry wins over d.
func (c *Classifier) store(gen uint64, key string, d Decision) Decision {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.generation != gen {
		return d
	}
	if err := c.cache.Add(key, d, gocache.NoExpiration); err != nil {
		if existing, ok := c.lookup(key); ok {
			d = existing
		}
	}
	return d
}

// tally counts one classification, plus counter when set, unless a Reset
// happened since gen was read.
func (c *Classifier) tally(gen uint64, counter *atomic.Int64) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	if c.generation != gen {
		return
	}
	if counter != nil {
		counter.Add(1)
	}
	c.total.Add(1)
}

func (c *Classifier) lookup(key string) (Decision, bool) {
	v, ok := c.cache.Get(key)
	if !ok {
		return "", false
	}
	d, ok := v.(Decision)
	return d, ok
}

func (c *Classifier) observe(ctx context.Context, d Decision, src Source) {
	observability.LogClassification(c.logger, string(d), string(src))
	c.metrics.RecordClassification(ctx, string(d), string(src))
}

// Stats returns a consistent snapshot of the counters.
func (c *Classifier) Stats() Stats {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return newStats(
		c.total.Load(),
		c.cacheHits.Load(),
		c.heuristicHits.Load(),
		c.modelCalls.Load(),
		c.cache.ItemCount(),
	)
}

// Reset empties the cache and zeroes every counter atomically.
func (c *Classifier) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache.Flush()
	c.total.Store(0)
	c.cacheHits.Store(0)
	c.heuristicHits.Store(0)
	c.modelCalls.Store(0)
	c.generation++
	c.logger.Info("intent classifier reset")
}
