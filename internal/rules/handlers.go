package rules

import (
	"context"
	"fmt"
	"net/http"
	"path"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/httpcall"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/pathutil"
)

// Configuration keys shared by the rule handlers
const (
	cfgKeyMappingID   = "mappingId"
	cfgKeySyncID      = "synchronizationId"
	cfgKeyRegister    = "register"
	cfgKeySchema      = "schema"
	cfgKeyIDPath      = "idPath"
	cfgKeyURL         = "url"
	cfgKeyURLPath     = "urlPath"
	cfgKeyName        = "name"
	cfgKeyPath        = "path"
	cfgKeyDestination = "destination"
	cfgKeyProperties  = "properties"
	cfgKeyMessage     = "message"
)

func cfgString(rule *domain.Rule, key string) string {
	return cast.ToString(rule.Configuration[key])
}

func cfgUUID(rule *domain.Rule, key string) (uuid.UUID, error) {
	raw := cfgString(rule, key)
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("%w: rule %s has no valid %s", domain.ErrInvalidConfiguration, rule.ID, key)
	}
	return id, nil
}

// objectID resolves the object's own id from the data, honouring an
// optionally configured id path.
func objectID(rule *domain.Rule, data map[string]any) string {
	idPath := cfgString(rule, cfgKeyIDPath)
	if idPath == "" {
		idPath = "id"
	}
	value, ok := pathutil.Get(data, idPath)
	if !ok {
		return ""
	}
	return cast.ToString(value)
}

// handleMapping replaces the object data with the result of a mapping recipe
func (p *pipeline) handleMapping(ctx context.Context, rule *domain.Rule, data map[string]any) (map[string]any, *Terminal, error) {
	mappingID, err := cfgUUID(rule, cfgKeyMappingID)
	if err != nil {
		return data, nil, err
	}
	m, err := p.mappings.GetByID(ctx, mappingID)
	if err != nil {
		return data, nil, fmt.Errorf("failed to resolve mapping %s: %w", mappingID, err)
	}
	mapped, err := p.engine.Execute(ctx, m, data)
	if err != nil {
		return data, nil, err
	}
	return mapped, nil, nil
}

// handleSaveObject persists the current data as an internal object and feeds
// the definitive id back into the data.
func (p *pipeline) handleSaveObject(ctx context.Context, rule *domain.Rule, data map[string]any) (map[string]any, *Terminal, error) {
	register := cfgString(rule, cfgKeyRegister)
	schema := cfgString(rule, cfgKeySchema)
	if register == "" || schema == "" {
		return data, nil, fmt.Errorf("%w: save_object rule %s needs register and schema", domain.ErrInvalidConfiguration, rule.ID)
	}

	saved, err := p.objects.Save(ctx, register, schema, data, objectID(rule, data))
	if err != nil {
		return data, nil, fmt.Errorf("failed to save object: %w", err)
	}

	idPath := cfgString(rule, cfgKeyIDPath)
	if idPath == "" {
		idPath = "id"
	}
	pathutil.Set(data, idPath, saved["id"])
	return data, nil, nil
}

// handleSynchronization triggers a follow-up synchronization run
func (p *pipeline) handleSynchronization(ctx context.Context, rule *domain.Rule, data map[string]any) (map[string]any, *Terminal, error) {
	syncID, err := cfgUUID(rule, cfgKeySyncID)
	if err != nil {
		return data, nil, err
	}
	if p.followUp == nil {
		logger.FromContext(ctx).Warn("No follow-up runner wired, skipping synchronization rule", "rule", rule.ID)
		return data, nil, nil
	}
	if err := p.followUp(ctx, syncID); err != nil {
		return data, nil, fmt.Errorf("follow-up synchronization %s failed: %w", syncID, err)
	}
	return data, nil, nil
}

// handleFetchFile downloads a file and stores it as an attachment of the
// object. The download URL comes from the configuration or from a path
// inside the data.
func (p *pipeline) handleFetchFile(ctx context.Context, rule *domain.Rule, data map[string]any) (map[string]any, *Terminal, error) {
	url := cfgString(rule, cfgKeyURL)
	if urlPath := cfgString(rule, cfgKeyURLPath); urlPath != "" {
		if value, ok := pathutil.Get(data, urlPath); ok {
			url = cast.ToString(value)
		}
	}
	if url == "" {
		return data, nil, nil
	}

	id := objectID(rule, data)
	if id == "" {
		return data, nil, fmt.Errorf("%w: fetch_file rule %s found no object id", domain.ErrOriginIDMissing, rule.ID)
	}

	resp, err := p.call.Call(ctx, &domain.Source{}, url, http.MethodGet, httpcall.CallConfig{})
	if err != nil {
		return data, nil, fmt.Errorf("failed to fetch file %s: %w", url, err)
	}
	if !resp.IsSuccess() {
		return data, nil, fmt.Errorf("file endpoint %s returned status %d", url, resp.StatusCode)
	}

	name := cfgString(rule, cfgKeyName)
	if name == "" {
		name = path.Base(url)
	}
	if err := p.files.Save(ctx, id, name, resp.Body); err != nil {
		return data, nil, err
	}

	if destination := cfgString(rule, cfgKeyDestination); destination != "" {
		pathutil.Set(data, destination, name)
	}
	return data, nil, nil
}

// handleWriteFile writes a value from the data as an attachment file and
// removes it from the data.
func (p *pipeline) handleWriteFile(ctx context.Context, rule *domain.Rule, data map[string]any) (map[string]any, *Terminal, error) {
	contentPath := cfgString(rule, cfgKeyPath)
	name := cfgString(rule, cfgKeyName)
	if contentPath == "" || name == "" {
		return data, nil, fmt.Errorf("%w: write_file rule %s needs path and name", domain.ErrInvalidConfiguration, rule.ID)
	}

	value, ok := pathutil.Get(data, contentPath)
	if !ok {
		return data, nil, nil
	}
	id := objectID(rule, data)
	if id == "" {
		return data, nil, fmt.Errorf("%w: write_file rule %s found no object id", domain.ErrOriginIDMissing, rule.ID)
	}

	if err := p.files.Save(ctx, id, name, []byte(cast.ToString(value))); err != nil {
		return data, nil, err
	}
	pathutil.Delete(data, contentPath)
	return data, nil, nil
}

// handleExtendInput merges configured properties into the object data
func (p *pipeline) handleExtendInput(_ context.Context, rule *domain.Rule, data map[string]any) (map[string]any, *Terminal, error) {
	properties, ok := rule.Configuration[cfgKeyProperties].(map[string]any)
	if !ok || len(properties) == 0 {
		return data, nil, nil
	}
	pathutil.Merge(data, pathutil.DeepCopy(properties))
	return data, nil, nil
}

// handleError stops the pipeline and marks the object invalid
func (p *pipeline) handleError(_ context.Context, rule *domain.Rule, data map[string]any) (map[string]any, *Terminal, error) {
	message := cfgString(rule, cfgKeyMessage)
	if message == "" {
		message = fmt.Sprintf("rejected by rule %s", rule.Name)
	}
	return data, &Terminal{RuleID: rule.ID, Message: message}, nil
}

// handleCustom is a passthrough for rule types registered by deployments
// that extend the engine; without a registered implementation it only logs.
func (p *pipeline) handleCustom(ctx context.Context, rule *domain.Rule, data map[string]any) (map[string]any, *Terminal, error) {
	logger.FromContext(ctx).Info("Custom rule has no registered handler, passing through", "rule", rule.ID)
	return data, nil, nil
}
