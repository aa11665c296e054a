// Package lifecycle is the single authority for job and application status
// transitions. Every operation runs in one transaction and hands its
// notification events to the emitter only after commit.
package lifecycle

import (
	"context"
	"time"

	"greencrew/internal/common/config"
	"greencrew/internal/common/logger"
	"greencrew/internal/common/metrics"
	"greencrew/internal/common/observability"
	"greencrew/internal/models"
	"greencrew/internal/notify"
	"greencrew/internal/store"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

type Emitter interface {
	Emit(ctx context.Context, events ...notify.Event) int
}

// Indexer mirrors jobs into the search index. Failures are logged only; the
// search backend's reindex repairs the drift.
type Indexer interface {
	IndexJob(ctx context.Context, job *models.Job) error
	RemoveJob(ctx context.Context, id string) error
}

type Engine struct {
	store   store.Store
	emitter Emitter
	indexer Indexer
	rules   config.MarketplaceConfig
	obs     *observability.Observability
	log     logger.Logger
	now     func() time.Time
	newID   func() string
}

type Option func(*Engine)

func WithIndexer(ix Indexer) Option {
	return func(e *Engine) { e.indexer = ix }
}

func WithObservability(obs *observability.Observability) Option {
	return func(e *Engine) { e.obs = obs }
}

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

func WithIDGenerator(newID func() string) Option {
	return func(e *Engine) { e.newID = newID }
}

func NewEngine(st store.Store, emitter Emitter, rules config.MarketplaceConfig, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		store:   st,
		emitter: emitter,
		rules:   rules,
		log:     log.WithFields(map[string]interface{}{"component": "lifecycle"}),
		now:     func() time.Time { return time.Now().UTC() },
		newID:   uuid.NewString,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// track wraps an operation with a span, metrics and a debug log line.
// Call the returned func with a pointer to the operation's named error.
func (e *Engine) track(ctx context.Context, op string, actor models.Actor) (context.Context, func(*error)) {
	start := time.Now()
	ctx, span := e.obs.StartSpan(ctx, "lifecycle."+op,
		attribute.String("actor.id", actor.UserID),
		attribute.String("actor.role", string(actor.Role)),
	)
	return ctx, func(errp *error) {
		err := *errp
		outcome := metrics.Outcome(err)
		elapsed := time.Since(start)

		metrics.LifecycleTransitions.WithLabelValues(op, outcome).Inc()
		metrics.LifecycleDuration.WithLabelValues(op).Observe(elapsed.Seconds())
		e.obs.RecordOperation(ctx, op, outcome, elapsed)

		fields := map[string]interface{}{
			"operation": op,
			"actorId":   actor.UserID,
			"duration":  elapsed.String(),
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
			e.log.WithError(err).Debug("Lifecycle operation rejected", fields)
		} else {
			e.log.Debug("Lifecycle operation applied", fields)
		}
		span.End()
	}
}

// publish runs after commit; emission never fails the operation.
func (e *Engine) publish(ctx context.Context, events []notify.Event) {
	if e.emitter == nil || len(events) == 0 {
		return
	}
	e.emitter.Emit(ctx, events...)
}

func (e *Engine) index(ctx context.Context, job *models.Job) {
	if e.indexer == nil || job == nil {
		return
	}
	if err := e.indexer.IndexJob(ctx, job); err != nil {
		e.log.WithError(err).Warn("Failed to index job", map[string]interface{}{"jobId": job.ID})
	}
}

func (e *Engine) unindex(ctx context.Context, id string) {
	if e.indexer == nil {
		return
	}
	if err := e.indexer.RemoveJob(ctx, id); err != nil {
		e.log.WithError(err).Warn("Failed to remove job from index", map[string]interface{}{"jobId": id})
	}
}
