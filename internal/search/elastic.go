package search

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync/atomic"
	"time"

	apperrors "greencrew/internal/common/errors"
	"greencrew/internal/common/logger"
	"greencrew/internal/models"
	"greencrew/internal/store"

	"github.com/elastic/go-elasticsearch/v8"
	"github.com/elastic/go-elasticsearch/v8/esapi"
	"github.com/elastic/go-elasticsearch/v8/esutil"
)

const maxResultWindow = 10000

// Documents carry the job's updated_at as an external version so a stale
// write never replaces a newer one. The "substring" subfields back the
// case-insensitive contains match on free text.
const jobsMapping = `{
	"mappings": {
		"properties": {
			"id":                     {"type": "keyword"},
			"posterId":               {"type": "keyword"},
			"title":                  {"type": "text", "fields": {"substring": {"type": "wildcard"}}},
			"description":            {"type": "text", "fields": {"substring": {"type": "wildcard"}}},
			"category":               {"type": "keyword"},
			"location":               {"type": "geo_point"},
			"address":                {"type": "text"},
			"startAt":                {"type": "date"},
			"endAt":                  {"type": "date"},
			"hourlyRate":             {"type": "double"},
			"requiredCertifications": {"type": "keyword"},
			"requiredExperience":     {"type": "keyword"},
			"urgency":                {"type": "keyword"},
			"status":                 {"type": "keyword"},
			"createdAt":              {"type": "date_nanos"},
			"updatedAt":              {"type": "date"},
			"syncedAt":               {"type": "date"}
		}
	}
}`

// ElasticBackend serves search candidates from an Elasticsearch index and
// keeps that index in step with job writes.
type ElasticBackend struct {
	client *elasticsearch.Client
	index  string
	log    logger.Logger
}

func NewElasticBackend(client *elasticsearch.Client, index string, log logger.Logger) *ElasticBackend {
	if index == "" {
		index = "jobs"
	}
	return &ElasticBackend{
		client: client,
		index:  index,
		log:    log.WithFields(map[string]interface{}{"component": "search.elasticsearch", "index": index}),
	}
}

func (b *ElasticBackend) Name() string { return "elasticsearch" }

type geoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

type jobDocument struct {
	ID                     string    `json:"id"`
	PosterID               string    `json:"posterId"`
	Title                  string    `json:"title"`
	Description            string    `json:"description"`
	Category               string    `json:"category"`
	Location               geoPoint  `json:"location"`
	Address                string    `json:"address,omitempty"`
	StartAt                time.Time `json:"startAt"`
	EndAt                  time.Time `json:"endAt"`
	HourlyRate             float64   `json:"hourlyRate"`
	RequiredCertifications []string  `json:"requiredCertifications"`
	RequiredExperience     string    `json:"requiredExperience"`
	Urgency                string    `json:"urgency"`
	Status                 string    `json:"status"`
	CreatedAt              time.Time `json:"createdAt"`
	UpdatedAt              time.Time `json:"updatedAt"`
	SyncedAt               time.Time `json:"syncedAt"`
}

func toDocument(j *models.Job, syncedAt time.Time) jobDocument {
	certs := j.RequiredCertifications
	if certs == nil {
		certs = []string{}
	}
	return jobDocument{
		ID:                     j.ID,
		PosterID:               j.PosterID,
		Title:                  j.Title,
		Description:            j.Description,
		Category:               string(j.Category),
		Location:               geoPoint{Lat: j.Location.Lat, Lon: j.Location.Lng},
		Address:                j.Location.Address,
		StartAt:                j.StartAt,
		EndAt:                  j.EndAt,
		HourlyRate:             j.HourlyRate,
		RequiredCertifications: certs,
		RequiredExperience:     string(j.RequiredExperience),
		Urgency:                string(j.Urgency),
		Status:                 string(j.Status),
		CreatedAt:              j.CreatedAt,
		UpdatedAt:              j.UpdatedAt,
		SyncedAt:               syncedAt,
	}
}

func documentVersion(j *models.Job) int64 {
	return j.UpdatedAt.UnixNano()
}

func (d jobDocument) job() models.Job {
	return models.Job{
		ID:                     d.ID,
		PosterID:               d.PosterID,
		Title:                  d.Title,
		Description:            d.Description,
		Category:               models.JobCategory(d.Category),
		Location:               models.Location{Lat: d.Location.Lat, Lng: d.Location.Lon, Address: d.Address},
		StartAt:                d.StartAt,
		EndAt:                  d.EndAt,
		HourlyRate:             d.HourlyRate,
		RequiredCertifications: d.RequiredCertifications,
		RequiredExperience:     models.ExperienceLevel(d.RequiredExperience),
		Urgency:                models.Urgency(d.Urgency),
		Status:                 models.JobStatus(d.Status),
		CreatedAt:              d.CreatedAt,
		UpdatedAt:              d.UpdatedAt,
	}
}

// buildQuery translates a JobQuery into a bool query with a filter clause per
// populated field, sorted to match store.JobCursor.
func buildQuery(q store.JobQuery) map[string]interface{} {
	filterClauses := []interface{}{}

	if q.Text != "" {
		pattern := "*" + wildcardEscaper.Replace(q.Text) + "*"
		filterClauses = append(filterClauses, map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					wildcard("title.substring", pattern),
					wildcard("description.substring", pattern),
				},
				"minimum_should_match": 1,
			},
		})
	}

	status := q.Status
	if status == "" {
		status = models.JobStatusOpen
	}
	filterClauses = append(filterClauses, term("status", string(status)))
	if q.Category != "" {
		filterClauses = append(filterClauses, term("category", string(q.Category)))
	}
	if q.Urgency != "" {
		filterClauses = append(filterClauses, term("urgency", string(q.Urgency)))
	}
	if q.RequiredExperience != "" {
		filterClauses = append(filterClauses, term("requiredExperience", string(q.RequiredExperience)))
	}

	if q.MinRate != nil || q.MaxRate != nil {
		bounds := map[string]interface{}{}
		if q.MinRate != nil {
			bounds["gte"] = *q.MinRate
		}
		if q.MaxRate != nil {
			bounds["lte"] = *q.MaxRate
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"range": map[string]interface{}{"hourlyRate": bounds},
		})
	}

	if len(q.Certifications) > 0 {
		filterClauses = append(filterClauses, map[string]interface{}{
			"terms": map[string]interface{}{"requiredCertifications": q.Certifications},
		})
	}

	if q.Box != nil {
		left, right := q.Box.MinLng, q.Box.MaxLng
		// A top-left east of the bottom-right makes Elasticsearch wrap across ±180.
		if left < -180 {
			left += 360
		}
		if right > 180 {
			right -= 360
		}
		filterClauses = append(filterClauses, map[string]interface{}{
			"geo_bounding_box": map[string]interface{}{
				"location": map[string]interface{}{
					"top_left":     geoPoint{Lat: q.Box.MaxLat, Lon: left},
					"bottom_right": geoPoint{Lat: q.Box.MinLat, Lon: right},
				},
			},
		})
	}

	body := map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"must":   []interface{}{map[string]interface{}{"match_all": map[string]interface{}{}}},
				"filter": filterClauses,
			},
		},
		"sort": []interface{}{
			map[string]interface{}{"createdAt": map[string]interface{}{"order": "desc"}},
			map[string]interface{}{"id": map[string]interface{}{"order": "desc"}},
		},
	}
	if q.After != nil {
		body["search_after"] = []interface{}{q.After.CreatedAt.UnixNano(), q.After.ID}
	}
	return body
}

var wildcardEscaper = strings.NewReplacer(`\`, `\\`, `*`, `\*`, `?`, `\?`)

func wildcard(field, pattern string) map[string]interface{} {
	return map[string]interface{}{
		"wildcard": map[string]interface{}{
			field: map[string]interface{}{"value": pattern, "case_insensitive": true},
		},
	}
}

func term(field, value string) map[string]interface{} {
	return map[string]interface{}{"term": map[string]interface{}{field: value}}
}

type searchResponse struct {
	Hits struct {
		Hits []struct {
			Source jobDocument `json:"_source"`
		} `json:"hits"`
	} `json:"hits"`
}

func (b *ElasticBackend) Candidates(ctx context.Context, q store.JobQuery) ([]models.Job, error) {
	body, err := json.Marshal(buildQuery(q))
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	size := q.Limit
	if size <= 0 || size > maxResultWindow {
		size = maxResultWindow
	}
	req := esapi.SearchRequest{
		Index: []string{b.index},
		Body:  bytes.NewReader(body),
		Size:  &size,
	}

	res, err := req.Do(ctx, b.client)
	if err != nil {
		return nil, apperrors.NewSearchBackendError("search", err)
	}
	defer res.Body.Close()

	if res.IsError() {
		return nil, apperrors.NewSearchBackendError("search", responseError(res))
	}

	var parsed searchResponse
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return nil, apperrors.NewSearchBackendError("decode", err)
	}

	jobs := make([]models.Job, 0, len(parsed.Hits.Hits))
	for _, hit := range parsed.Hits.Hits {
		jobs = append(jobs, hit.Source.job())
	}
	return jobs, nil
}

// IndexJob upserts the job document. A conflict means the index already
// holds the same or a newer version of the job.
func (b *ElasticBackend) IndexJob(ctx context.Context, job *models.Job) error {
	body, err := json.Marshal(toDocument(job, time.Now().UTC()))
	if err != nil {
		return apperrors.NewInternalError(err)
	}

	version := int(documentVersion(job))
	req := esapi.IndexRequest{
		Index:       b.index,
		DocumentID:  job.ID,
		Body:        bytes.NewReader(body),
		Version:     &version,
		VersionType: "external_gte",
	}
	res, err := req.Do(ctx, b.client)
	if err != nil {
		return apperrors.NewSearchBackendError("index", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusConflict {
		return apperrors.NewSearchBackendError("index", responseError(res))
	}
	return nil
}

// RemoveJob deletes the job document. A missing document is not an error.
func (b *ElasticBackend) RemoveJob(ctx context.Context, id string) error {
	req := esapi.DeleteRequest{Index: b.index, DocumentID: id}
	res, err := req.Do(ctx, b.client)
	if err != nil {
		return apperrors.NewSearchBackendError("delete", err)
	}
	defer res.Body.Close()

	if res.IsError() && res.StatusCode != http.StatusNotFound {
		return apperrors.NewSearchBackendError("delete", responseError(res))
	}
	return nil
}

// EnsureIndex creates the jobs index with its geo_point mapping if absent.
func (b *ElasticBackend) EnsureIndex(ctx context.Context) error {
	req := esapi.IndicesCreateRequest{
		Index: b.index,
		Body:  strings.NewReader(jobsMapping),
	}
	res, err := req.Do(ctx, b.client)
	if err != nil {
		return apperrors.NewSearchBackendError("create_index", err)
	}
	defer res.Body.Close()

	if !res.IsError() {
		b.log.Info("Created search index", nil)
		return nil
	}
	cause := responseError(res)
	if strings.Contains(cause.Error(), "resource_already_exists_exception") {
		return nil
	}
	return apperrors.NewSearchBackendError("create_index", cause)
}

// JobScanner pages through every stored job, newest first.
type JobScanner interface {
	ScanJobs(ctx context.Context, after *store.JobCursor, limit int) ([]models.Job, error)
}

type ReindexStats struct {
	Indexed int
	Skipped int
	Removed int
}

// Reindex copies every job from src into the index with the bulk API, then
// deletes documents this run did not touch (jobs removed while the index was
// unreachable). Stale documents are kept when any write failed.
func (b *ElasticBackend) Reindex(ctx context.Context, src JobScanner, batch int) (ReindexStats, error) {
	var stats ReindexStats
	if batch <= 0 {
		batch = 1000
	}
	started := time.Now().UTC()

	var skipped, failed int64
	bi, err := esutil.NewBulkIndexer(esutil.BulkIndexerConfig{
		Client:     b.client,
		Index:      b.index,
		NumWorkers: 2,
		OnError: func(_ context.Context, err error) {
			b.log.WithError(err).Warn("Bulk indexer error", nil)
		},
	})
	if err != nil {
		return stats, apperrors.NewSearchBackendError("bulk", err)
	}

	var after *store.JobCursor
	for {
		jobs, err := src.ScanJobs(ctx, after, batch)
		if err != nil {
			_ = bi.Close(ctx)
			return stats, err
		}
		for i := range jobs {
			j := &jobs[i]
			body, err := json.Marshal(toDocument(j, started))
			if err != nil {
				_ = bi.Close(ctx)
				return stats, apperrors.NewInternalError(err)
			}
			version := documentVersion(j)
			err = bi.Add(ctx, esutil.BulkIndexerItem{
				Action:      "index",
				DocumentID:  j.ID,
				Body:        bytes.NewReader(body),
				Version:     &version,
				VersionType: "external_gte",
				OnFailure: func(_ context.Context, item esutil.BulkIndexerItem, res esutil.BulkIndexerResponseItem, err error) {
					if res.Status == http.StatusConflict {
						atomic.AddInt64(&skipped, 1)
						return
					}
					atomic.AddInt64(&failed, 1)
					fields := map[string]interface{}{"jobId": item.DocumentID, "status": res.Status, "reason": res.Error.Reason}
					if err != nil {
						fields["error"] = err.Error()
					}
					b.log.Warn("Failed to reindex job", fields)
				},
			})
			if err != nil {
				_ = bi.Close(ctx)
				return stats, apperrors.NewSearchBackendError("bulk", err)
			}
		}
		if len(jobs) < batch {
			break
		}
		last := jobs[len(jobs)-1]
		after = &store.JobCursor{CreatedAt: last.CreatedAt, ID: last.ID}
	}

	if err := bi.Close(ctx); err != nil {
		return stats, apperrors.NewSearchBackendError("bulk", err)
	}
	stats.Indexed = int(bi.Stats().NumIndexed)
	stats.Skipped = int(atomic.LoadInt64(&skipped))
	if n := atomic.LoadInt64(&failed); n > 0 {
		return stats, apperrors.NewSearchBackendError("bulk", fmt.Errorf("%d documents failed to index", n))
	}

	removed, err := b.removeUnsynced(ctx, started)
	if err != nil {
		return stats, err
	}
	stats.Removed = removed

	b.log.Info("Reindexed jobs", map[string]interface{}{
		"indexed": stats.Indexed,
		"skipped": stats.Skipped,
		"removed": stats.Removed,
	})
	return stats, nil
}

// removeUnsynced deletes documents last written before since.
func (b *ElasticBackend) removeUnsynced(ctx context.Context, since time.Time) (int, error) {
	refresh := esapi.IndicesRefreshRequest{Index: []string{b.index}}
	res, err := refresh.Do(ctx, b.client)
	if err != nil {
		return 0, apperrors.NewSearchBackendError("refresh", err)
	}
	if res.IsError() {
		defer res.Body.Close()
		return 0, apperrors.NewSearchBackendError("refresh", responseError(res))
	}
	res.Body.Close()

	body, err := json.Marshal(map[string]interface{}{
		"query": map[string]interface{}{
			"bool": map[string]interface{}{
				"should": []interface{}{
					map[string]interface{}{"range": map[string]interface{}{"syncedAt": map[string]interface{}{"lt": since.Format(time.RFC3339Nano)}}},
					map[string]interface{}{"bool": map[string]interface{}{"must_not": map[string]interface{}{"exists": map[string]interface{}{"field": "syncedAt"}}}},
				},
				"minimum_should_match": 1,
			},
		},
	})
	if err != nil {
		return 0, apperrors.NewInternalError(err)
	}

	req := esapi.DeleteByQueryRequest{
		Index:     []string{b.index},
		Body:      bytes.NewReader(body),
		Conflicts: "proceed",
	}
	res, err = req.Do(ctx, b.client)
	if err != nil {
		return 0, apperrors.NewSearchBackendError("delete_by_query", err)
	}
	defer res.Body.Close()
	if res.IsError() {
		return 0, apperrors.NewSearchBackendError("delete_by_query", responseError(res))
	}

	var parsed struct {
		Deleted int `json:"deleted"`
	}
	if err := json.NewDecoder(res.Body).Decode(&parsed); err != nil {
		return 0, apperrors.NewSearchBackendError("decode", err)
	}
	return parsed.Deleted, nil
}

func responseError(res *esapi.Response) error {
	data, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
	return fmt.Errorf("%s: %s", res.Status(), strings.TrimSpace(string(data)))
}
