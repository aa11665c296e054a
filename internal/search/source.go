package search

import (
	"context"

	"greencrew/internal/models"
	"greencrew/internal/store"
)

// StoreSource reads candidates from the primary store (Postgres).
type StoreSource struct {
	searcher store.JobSearcher
}

func NewStoreSource(searcher store.JobSearcher) *StoreSource {
	return &StoreSource{searcher: searcher}
}

func (s *StoreSource) Name() string { return "postgres" }

func (s *StoreSource) Candidates(ctx context.Context, q store.JobQuery) ([]models.Job, error) {
	return s.searcher.SearchJobs(ctx, q)
}
