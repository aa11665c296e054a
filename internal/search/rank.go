package search

import (
	"math"
	"sort"

	"greencrew/internal/models"
)

// JobResult is a job annotated for a search response. Distance is set only
// when the search had a location.
type JobResult struct {
	models.Job
	Distance         *float64 `json:"distance,omitempty"`
	ApplicationCount int      `json:"applicationCount"`

	rawDistance float64
}

// Rank orders results by distance ascending (when known), then newest first,
// then id. The order is total so pages never overlap.
func Rank(results []JobResult) {
	sort.Slice(results, func(i, j int) bool {
		a, b := results[i], results[j]
		if a.Distance != nil && b.Distance != nil && a.rawDistance != b.rawDistance {
			return a.rawDistance < b.rawDistance
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.After(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}

type Stats struct {
	Total       int                        `json:"total"`
	AverageRate float64                    `json:"averageRate"`
	Categories  map[models.JobCategory]int `json:"categories"`
	Urgencies   map[models.Urgency]int     `json:"urgencies"`
}

func computeStats(results []JobResult) Stats {
	s := Stats{
		Total:      len(results),
		Categories: map[models.JobCategory]int{},
		Urgencies:  map[models.Urgency]int{},
	}
	var sum float64
	for _, r := range results {
		sum += r.HourlyRate
		s.Categories[r.Category]++
		s.Urgencies[r.Urgency]++
	}
	if len(results) > 0 {
		s.AverageRate = math.Round(sum/float64(len(results))*100) / 100
	}
	return s
}

type Pagination struct {
	Page       int  `json:"page"`
	Limit      int  `json:"limit"`
	Total      int  `json:"total"`
	TotalPages int  `json:"totalPages"`
	HasNext    bool `json:"hasNext"`
	HasPrev    bool `json:"hasPrev"`
}

// paginate returns the 1-indexed page of results. A page past the end is empty.
func paginate(results []JobResult, page, limit int) ([]JobResult, Pagination) {
	total := len(results)
	p := Pagination{
		Page:       page,
		Limit:      limit,
		Total:      total,
		TotalPages: (total + limit - 1) / limit,
	}
	p.HasNext = page < p.TotalPages
	p.HasPrev = page > 1

	from := (page - 1) * limit
	if from >= total {
		return []JobResult{}, p
	}
	to := from + limit
	if to > total {
		to = total
	}
	return results[from:to], p
}
