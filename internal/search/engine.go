// Package search answers job queries: server-side candidate filtering by a
// pluggable backend, then distance, experience cutoff, ranking, statistics
// and pagination in process.
package search

import (
	"context"
	"time"

	"greencrew/internal/common/config"
	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/common/logger"
	"greencrew/internal/common/metrics"
	"greencrew/internal/common/observability"
	"greencrew/internal/models"
	"greencrew/internal/store"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
)

// CandidateSource returns the jobs matching the server-side part of a query.
type CandidateSource interface {
	Name() string
	Candidates(ctx context.Context, q store.JobQuery) ([]models.Job, error)
}

// ApplicationCounter counts non-withdrawn applications per job.
type ApplicationCounter interface {
	CountLiveApplications(ctx context.Context, jobIDs []string) (map[string]int, error)
}

type Result struct {
	Jobs       []JobResult `json:"jobs"`
	Pagination Pagination  `json:"pagination"`
	Stats      Stats       `json:"stats"`
}

type Engine struct {
	source   CandidateSource
	counter  ApplicationCounter
	profiles store.ProfileStore
	cfg      config.SearchConfig
	obs      *observability.Observability
	log      logger.Logger
}

type Option func(*Engine)

func WithObservability(obs *observability.Observability) Option {
	return func(e *Engine) { e.obs = obs }
}

// NewEngine builds a search engine. profiles may be nil, which disables
// requester personalization.
func NewEngine(source CandidateSource, counter ApplicationCounter, profiles store.ProfileStore, cfg config.SearchConfig, log logger.Logger, opts ...Option) *Engine {
	e := &Engine{
		source:   source,
		counter:  counter,
		profiles: profiles,
		cfg:      cfg,
		log:      log.WithFields(map[string]interface{}{"component": "search"}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Search runs f on behalf of requester (nil for anonymous callers).
func (e *Engine) Search(ctx context.Context, requester *models.Actor, f Filter) (res *Result, err error) {
	start := time.Now()
	ctx, span := e.obs.StartSpan(ctx, "search.jobs", attribute.String("search.backend", e.source.Name()))
	defer func() {
		elapsed := time.Since(start)
		metrics.SearchDuration.WithLabelValues(e.source.Name()).Observe(elapsed.Seconds())
		e.obs.RecordOperation(ctx, "search", metrics.Outcome(err), elapsed)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		}
		span.End()
	}()

	if err := e.Validate(f); err != nil {
		return nil, err
	}
	f = e.normalize(f)

	if e.cfg.QueryTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, config.GetDuration(e.cfg.QueryTimeout))
		defer cancel()
	}

	level, err := e.requesterLevel(ctx, requester)
	if err != nil {
		return nil, err
	}

	results, scanned, err := e.collect(ctx, f, level)
	if err != nil {
		return nil, err
	}
	Rank(results)
	metrics.SearchResults.Observe(float64(len(results)))

	stats := computeStats(results)
	page, pagination := paginate(results, f.Page, f.Limit)
	if err := e.annotate(ctx, page); err != nil {
		return nil, err
	}

	e.log.Debug("Search completed", map[string]interface{}{
		"backend":    e.source.Name(),
		"candidates": scanned,
		"matches":    stats.Total,
		"page":       f.Page,
	})
	return &Result{Jobs: page, Pagination: pagination, Stats: stats}, nil
}

// normalize applies defaults to a validated filter.
func (e *Engine) normalize(f Filter) Filter {
	if f.Status == "" {
		f.Status = models.JobStatusOpen
	}
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit < 1 {
		f.Limit = e.cfg.DefaultPageSize
	}
	if f.Limit > e.cfg.MaxPageSize {
		f.Limit = e.cfg.MaxPageSize
	}
	if f.Location != nil && f.Radius == nil {
		r := e.cfg.DefaultRadius
		f.Radius = &r
	}
	return f
}

func (e *Engine) query(f Filter) store.JobQuery {
	q := store.JobQuery{
		Text:               f.Text,
		Category:           f.Category,
		MinRate:            f.MinRate,
		MaxRate:            f.MaxRate,
		Urgency:            f.Urgency,
		RequiredExperience: f.RequiredExperience,
		Status:             f.Status,
		Certifications:     f.Certifications,
		Limit:              e.cfg.BatchSize,
	}
	if f.Location != nil {
		box := BoundingBox(*f.Location, *f.Radius)
		q.Box = &box
	}
	return q
}

// collect reads every candidate in batches and keeps the ones inside the
// radius and experience cutoff, so totals cover the whole match set.
func (e *Engine) collect(ctx context.Context, f Filter, level models.ExperienceLevel) ([]JobResult, int, error) {
	q := e.query(f)
	var results []JobResult
	scanned := 0
	for {
		batch, err := e.source.Candidates(ctx, q)
		if err != nil {
			if _, ok := apperrors.As(err); ok {
				return nil, 0, err
			}
			return nil, 0, apperrors.NewSearchBackendError(e.source.Name(), err)
		}
		scanned += len(batch)
		results = append(results, e.filter(batch, f, level)...)

		if q.Limit <= 0 || len(batch) < q.Limit {
			return results, scanned, nil
		}
		last := batch[len(batch)-1]
		q.After = &store.JobCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}
}

// requesterLevel is the experience level jobs must not exceed, or "" when the
// requester is not a professional with a known level.
func (e *Engine) requesterLevel(ctx context.Context, requester *models.Actor) (models.ExperienceLevel, error) {
	if requester == nil || !requester.IsProfessional() || e.profiles == nil {
		return "", nil
	}
	p, err := e.profiles.GetProfile(ctx, requester.UserID)
	if apperrors.IsCode(err, apperrors.ErrCodeNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	if !p.ExperienceLevel.Valid() {
		return "", nil
	}
	return p.ExperienceLevel, nil
}

func (e *Engine) filter(candidates []models.Job, f Filter, level models.ExperienceLevel) []JobResult {
	results := make([]JobResult, 0, len(candidates))
	for _, job := range candidates {
		if level != "" && !level.Satisfies(job.RequiredExperience) {
			continue
		}
		r := JobResult{Job: job}
		if f.Location != nil {
			d := Haversine(*f.Location, Point{Lat: job.Location.Lat, Lng: job.Location.Lng})
			if d > *f.Radius {
				continue
			}
			rounded := roundTenth(d)
			r.rawDistance = d
			r.Distance = &rounded
		}
		results = append(results, r)
	}
	return results
}

func (e *Engine) annotate(ctx context.Context, page []JobResult) error {
	if len(page) == 0 || e.counter == nil {
		return nil
	}
	ids := make([]string, len(page))
	for i := range page {
		ids[i] = page[i].ID
	}
	counts, err := e.counter.CountLiveApplications(ctx, ids)
	if err != nil {
		return err
	}
	for i := range page {
		page[i].ApplicationCount = counts[page[i].ID]
	}
	return nil
}
