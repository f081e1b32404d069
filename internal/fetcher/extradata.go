package fetcher

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/spf13/cast"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/httpcall"
	"github.com/syncline/syncline/internal/pathutil"
)

// Placeholders substituted into static extra-data endpoints
const (
	placeholderOriginID    = "{{originId}}"
	placeholderSubObjectID = "{{subObjectId}}"
)

// applyExtraData runs the configured secondary fetches for one object,
// merging or nesting each result. Configs marked BeforeConditions run
// unconditionally; the rest only when the synchronization's conditions pass
// for the object.
func (f *fetcher) applyExtraData(ctx context.Context, sync *domain.Synchronization, source *domain.Source, object map[string]any) error {
	if len(sync.SourceConfig.ExtraData) == 0 {
		return nil
	}

	var deferred []domain.ExtraDataConfig
	for _, cfg := range sync.SourceConfig.ExtraData {
		if cfg.BeforeConditions {
			if err := f.fetchExtra(ctx, sync, source, cfg, object); err != nil {
				return err
			}
			continue
		}
		deferred = append(deferred, cfg)
	}

	if len(deferred) == 0 {
		return nil
	}

	if sync.HasConditions() {
		ok, err := f.evaluator.Evaluate(sync.Conditions, object)
		if err != nil {
			return fmt.Errorf("failed to evaluate conditions for extra data: %w", err)
		}
		if !ok {
			return nil
		}
	}

	for _, cfg := range deferred {
		if err := f.fetchExtra(ctx, sync, source, cfg, object); err != nil {
			return err
		}
	}
	return nil
}

func (f *fetcher) fetchExtra(ctx context.Context, sync *domain.Synchronization, source *domain.Source, cfg domain.ExtraDataConfig, object map[string]any) error {
	endpoint := f.resolveExtraEndpoint(sync, cfg, object)
	if endpoint == "" {
		return nil
	}

	resp, err := f.call.Call(ctx, source, endpoint, http.MethodGet, httpcall.CallConfig{
		Headers: sync.SourceConfig.Headers,
	})
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("extra data endpoint %s returned status %d", endpoint, resp.StatusCode)
	}

	body, err := decodeBody(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to decode extra data: %w", err)
	}

	result := body
	if cfg.ResultsPath != "" {
		if record, ok := body.(map[string]any); ok {
			if list := listAt(record, cfg.ResultsPath); list != nil {
				result = list
			}
		}
	}

	if cfg.PerResultItem {
		if list, ok := result.([]any); ok {
			for _, item := range list {
				record, ok := item.(map[string]any)
				if !ok {
					continue
				}
				if err := f.fetchExtraPerItem(ctx, sync, source, cfg, record); err != nil {
					return err
				}
			}
		}
	}

	f.mergeExtra(cfg, object, result)
	return nil
}

// fetchExtraPerItem recurses one level into a list result, fetching the
// item's own dynamic endpoint and merging the response into the item.
func (f *fetcher) fetchExtraPerItem(ctx context.Context, sync *domain.Synchronization, source *domain.Source, cfg domain.ExtraDataConfig, item map[string]any) error {
	if cfg.EndpointPath == "" {
		return nil
	}
	value, ok := pathutil.Get(item, cfg.EndpointPath)
	if !ok {
		return nil
	}
	endpoint := cast.ToString(value)
	if endpoint == "" {
		return nil
	}

	resp, err := f.call.Call(ctx, source, endpoint, http.MethodGet, httpcall.CallConfig{
		Headers: sync.SourceConfig.Headers,
	})
	if err != nil {
		return err
	}
	if !resp.IsSuccess() {
		return fmt.Errorf("extra data endpoint %s returned status %d", endpoint, resp.StatusCode)
	}

	body, err := decodeBody(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to decode extra data item: %w", err)
	}
	if record, ok := body.(map[string]any); ok {
		pathutil.Merge(item, record)
	}
	return nil
}

// resolveExtraEndpoint derives the secondary endpoint, either dynamically
// from a field inside the object or from a static template.
func (f *fetcher) resolveExtraEndpoint(sync *domain.Synchronization, cfg domain.ExtraDataConfig, object map[string]any) string {
	if cfg.EndpointPath != "" {
		if value, ok := pathutil.Get(object, cfg.EndpointPath); ok {
			return cast.ToString(value)
		}
		return ""
	}

	endpoint := cfg.Endpoint
	if endpoint == "" {
		return ""
	}

	if strings.Contains(endpoint, placeholderOriginID) {
		originID, ok := pathutil.Get(object, sync.IDPath())
		if !ok {
			return ""
		}
		endpoint = strings.ReplaceAll(endpoint, placeholderOriginID, cast.ToString(originID))
	}

	if strings.Contains(endpoint, placeholderSubObjectID) {
		subID, ok := pathutil.Get(object, pathutil.Join(cfg.Destination, "id"))
		if !ok {
			return ""
		}
		endpoint = strings.ReplaceAll(endpoint, placeholderSubObjectID, cast.ToString(subID))
	}

	return endpoint
}

// mergeExtra places the fetched result on the object, nested when a
// destination path is configured, merged into the root otherwise.
func (f *fetcher) mergeExtra(cfg domain.ExtraDataConfig, object map[string]any, result any) {
	if cfg.Destination != "" {
		pathutil.Set(object, cfg.Destination, result)
		return
	}
	if record, ok := result.(map[string]any); ok {
		pathutil.Merge(object, record)
	}
}
