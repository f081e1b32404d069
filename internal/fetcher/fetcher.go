// Package fetcher retrieves the full object list of a synchronization source,
// handling pagination, rate limits and configured extra-data fetches.
package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/syncline/syncline/internal/conditions"
	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/httpcall"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/objectstore"
	"github.com/syncline/syncline/internal/repository"
)

const (
	// MaxPages bounds the fetch loop so a misbehaving API cannot spin it
	// forever
	MaxPages = 50

	// defaultPageParam is the query parameter used for page-number
	// pagination when none is configured
	defaultPageParam = "page"

	// nextLinkKey is the response field that switches the loop to
	// next-link pagination
	nextLinkKey = "next"
)

// defaultResultKeys are tried in order when no results path is configured
var defaultResultKeys = []string{"items", "result", "results"}

// Fetcher retrieves all objects of a synchronization source
type Fetcher interface {
	// FetchAll returns the source's objects. In test mode only the first
	// object of the first page is returned. A rate-limit abort returns
	// the objects fetched so far together with a *domain.RateLimitError.
	FetchAll(ctx context.Context, sync *domain.Synchronization, isTest bool) ([]any, error)

	// FetchOne returns a single object of a register source by its object
	// id. Only register sources support addressed lookups.
	FetchOne(ctx context.Context, sync *domain.Synchronization, objectID string) (map[string]any, error)
}

type fetcher struct {
	call      httpcall.Service
	sources   repository.Source
	syncs     repository.Synchronization
	objects   objectstore.Store
	evaluator *conditions.Evaluator
}

// NewFetcher creates a source fetcher
func NewFetcher(call httpcall.Service, sources repository.Source, syncs repository.Synchronization, objects objectstore.Store) Fetcher {
	return &fetcher{
		call:      call,
		sources:   sources,
		syncs:     syncs,
		objects:   objects,
		evaluator: conditions.NewEvaluator(),
	}
}

func (f *fetcher) FetchAll(ctx context.Context, sync *domain.Synchronization, isTest bool) ([]any, error) {
	switch sync.SourceType {
	case domain.SourceTypeAPI:
		return f.fetchAPI(ctx, sync, isTest)
	case domain.SourceTypeRegister:
		return f.fetchRegister(ctx, sync, isTest)
	case domain.SourceTypeDatabase:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSourceType, sync.SourceType)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedSourceType, sync.SourceType)
	}
}

func (f *fetcher) FetchOne(ctx context.Context, sync *domain.Synchronization, objectID string) (map[string]any, error) {
	if sync.SourceType != domain.SourceTypeRegister {
		return nil, fmt.Errorf("%w: single-object fetch needs a register source, got %s", domain.ErrUnsupportedSourceType, sync.SourceType)
	}
	register, schema, ok := strings.Cut(sync.SourceID, "/")
	if !ok {
		return nil, fmt.Errorf("%w: register source id %q is not register/schema", domain.ErrInvalidConfiguration, sync.SourceID)
	}
	record, err := f.objects.Find(ctx, register, schema, objectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load register object: %w", err)
	}
	return record, nil
}

// fetchRegister reads objects straight from the internal object store.
// The source id is a "register/schema" pair.
func (f *fetcher) fetchRegister(ctx context.Context, sync *domain.Synchronization, isTest bool) ([]any, error) {
	register, schema, ok := strings.Cut(sync.SourceID, "/")
	if !ok {
		return nil, fmt.Errorf("%w: register source id %q is not register/schema", domain.ErrInvalidConfiguration, sync.SourceID)
	}

	records, err := f.objects.FindAll(ctx, register, schema, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to list register objects: %w", err)
	}

	objects := make([]any, 0, len(records))
	for _, record := range records {
		objects = append(objects, record)
	}
	if isTest && len(objects) > 1 {
		objects = objects[:1]
	}
	return objects, nil
}

func (f *fetcher) fetchAPI(ctx context.Context, sync *domain.Synchronization, isTest bool) ([]any, error) {
	log := logger.FromContext(ctx)
	cfg := sync.SourceConfig

	sourceID, err := uuid.Parse(sync.SourceID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid source id %q", domain.ErrInvalidConfiguration, sync.SourceID)
	}
	source, err := f.sources.GetByID(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve source: %w", err)
	}

	// Fail fast when the cached rate-limit budget is already exhausted
	if err := f.call.CheckRateLimit(source.ID.String()); err != nil {
		return nil, err
	}

	pageParam := cfg.PageParam
	if pageParam == "" {
		pageParam = defaultPageParam
	}

	page := sync.CurrentPage
	if page < 1 {
		page = 1
	}

	endpoint := cfg.Endpoint
	usingNextLink := false
	var all []any

	for i := 0; i < MaxPages; i++ {
		callCfg := httpcall.CallConfig{
			Headers: cfg.Headers,
			Query:   map[string]string{},
		}
		for k, v := range cfg.Query {
			callCfg.Query[k] = v
		}
		if !usingNextLink && !cfg.WholeBody {
			callCfg.Query[pageParam] = strconv.Itoa(page)
		}

		resp, err := f.call.Call(ctx, source, endpoint, http.MethodGet, callCfg)
		if err != nil {
			// A rate-limit abort keeps the partial result; the resume
			// cursor was persisted after the last successful page.
			return all, err
		}
		if !resp.IsSuccess() {
			return all, fmt.Errorf("source returned status %d for %s", resp.StatusCode, endpoint)
		}

		body, err := decodeBody(resp.Body)
		if err != nil {
			return all, fmt.Errorf("failed to decode source response: %w", err)
		}

		objects := extractObjects(cfg, body)
		if len(objects) == 0 {
			break
		}

		for _, object := range objects {
			record, ok := object.(map[string]any)
			if !ok {
				all = append(all, object)
				continue
			}
			if err := f.applyExtraData(ctx, sync, source, record); err != nil {
				log.Warn("Extra data fetch failed, keeping object as fetched",
					"synchronization", sync.ID, "error", err)
			}
			all = append(all, record)
		}

		if isTest {
			return all[:1], nil
		}
		if cfg.WholeBody {
			break
		}

		// Persist the resume cursor before moving on, so a crash or
		// rate-limit abort between pages resumes here.
		page++
		sync.CurrentPage = page
		if err := f.syncs.UpdateCurrentPage(ctx, sync.ID, page); err != nil {
			return all, fmt.Errorf("failed to persist pagination cursor: %w", err)
		}

		next := nextLink(body)
		if next != "" {
			// The next link is threaded through literally, relative
			// paths included.
			endpoint = next
			usingNextLink = true
			continue
		}
		if usingNextLink {
			break
		}
	}

	// Completed without abort: reset the cursor so the next run starts
	// from the first page.
	if sync.CurrentPage != 1 {
		sync.CurrentPage = 1
		if err := f.syncs.UpdateCurrentPage(ctx, sync.ID, 1); err != nil {
			return all, fmt.Errorf("failed to reset pagination cursor: %w", err)
		}
	}

	log.Info("Fetched source objects", "synchronization", sync.ID, "count", len(all))
	return all, nil
}

// extractObjects pulls the object list out of a decoded response body
func extractObjects(cfg domain.SourceConfig, body any) []any {
	if list, ok := body.([]any); ok {
		return list
	}

	record, ok := body.(map[string]any)
	if !ok || len(record) == 0 {
		return nil
	}

	if cfg.WholeBody {
		return []any{record}
	}

	if cfg.ResultsPath != "" {
		return listAt(record, cfg.ResultsPath)
	}

	for _, key := range defaultResultKeys {
		if list := listAt(record, key); list != nil {
			return list
		}
	}
	return nil
}

func nextLink(body any) string {
	record, ok := body.(map[string]any)
	if !ok {
		return ""
	}
	if next, ok := record[nextLinkKey].(string); ok {
		return next
	}
	return ""
}
