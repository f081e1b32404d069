// Package writer applies a reconciled object to the synchronization target
// and records the result on the contract.
package writer

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cast"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/httpcall"
	"github.com/syncline/syncline/internal/mapping"
	"github.com/syncline/syncline/internal/objectstore"
	"github.com/syncline/syncline/internal/pathutil"
	"github.com/syncline/syncline/internal/repository"
)

// placeholderTargetID is substituted into update and delete endpoints
const placeholderTargetID = "{{targetId}}"

// Writer performs the create, update or delete against the target side
type Writer interface {
	// Write applies the object to the target and updates the contract's
	// target fields in place. The returned object is the target's version,
	// definitive id included.
	Write(ctx context.Context, sync *domain.Synchronization, contract *domain.SynchronizationContract, object map[string]any, action domain.ContractAction) (map[string]any, error)
}

type writer struct {
	call     httpcall.Service
	sources  repository.Source
	mappings repository.Mapping
	objects  objectstore.Store
	engine   *mapping.Engine
	now      func() time.Time
}

// NewWriter creates a target writer
func NewWriter(call httpcall.Service, sources repository.Source, mappings repository.Mapping, objects objectstore.Store) Writer {
	return &writer{
		call:     call,
		sources:  sources,
		mappings: mappings,
		objects:  objects,
		engine:   mapping.NewEngine(),
		now:      time.Now,
	}
}

func (w *writer) Write(ctx context.Context, sync *domain.Synchronization, contract *domain.SynchronizationContract, object map[string]any, action domain.ContractAction) (map[string]any, error) {
	var (
		written map[string]any
		err     error
	)
	switch sync.TargetType {
	case domain.TargetTypeRegister:
		written, err = w.writeRegister(ctx, sync, contract, object, action)
	case domain.TargetTypeAPI:
		written, err = w.writeAPI(ctx, sync, contract, object, action)
	case domain.TargetTypeDatabase:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedTargetType, sync.TargetType)
	default:
		return nil, fmt.Errorf("%w: %s", domain.ErrUnsupportedTargetType, sync.TargetType)
	}
	if err != nil {
		return nil, err
	}

	now := w.now()
	contract.TargetLastAction = action
	contract.TargetLastChanged = &now
	contract.TargetLastSynced = &now

	if action == domain.ContractActionDelete {
		contract.TargetID = ""
		contract.TargetHash = ""
		return nil, nil
	}

	hash, err := mapping.ObjectHash(written)
	if err != nil {
		return nil, fmt.Errorf("failed to hash written object: %w", err)
	}
	contract.TargetHash = hash
	return written, nil
}

// writeRegister saves or deletes the object in the internal object store
func (w *writer) writeRegister(ctx context.Context, sync *domain.Synchronization, contract *domain.SynchronizationContract, object map[string]any, action domain.ContractAction) (map[string]any, error) {
	cfg := sync.TargetConfig
	if cfg.Register == "" || cfg.Schema == "" {
		return nil, fmt.Errorf("%w: register target needs register and schema", domain.ErrInvalidConfiguration)
	}

	if action == domain.ContractActionDelete {
		if contract.TargetID == "" {
			return nil, nil
		}
		if err := w.objects.Delete(ctx, cfg.Register, cfg.Schema, contract.TargetID); err != nil {
			return nil, fmt.Errorf("failed to delete target object: %w", err)
		}
		return nil, nil
	}

	w.propagateSubObjectIDs(ctx, sync, contract, object)

	saved, err := w.objects.Save(ctx, cfg.Register, cfg.Schema, object, contract.TargetID)
	if err != nil {
		return nil, fmt.Errorf("failed to save target object: %w", err)
	}
	contract.TargetID = cast.ToString(saved["id"])
	return saved, nil
}

// propagateSubObjectIDs copies existing sub-object ids from the stored target
// object onto the incoming one, so repeated syncs keep nested objects stable
// instead of recreating them. Sub-objects are matched on their origin id.
func (w *writer) propagateSubObjectIDs(ctx context.Context, sync *domain.Synchronization, contract *domain.SynchronizationContract, object map[string]any) {
	cfg := sync.TargetConfig
	if len(cfg.SubObjectPaths) == 0 || contract.TargetID == "" {
		return
	}
	existing, err := w.objects.Find(ctx, cfg.Register, cfg.Schema, contract.TargetID)
	if err != nil {
		return
	}

	for _, path := range cfg.SubObjectPaths {
		incoming := subObjects(object, path)
		if len(incoming) == 0 {
			continue
		}
		byOrigin := map[string]string{}
		for _, sub := range subObjects(existing, path) {
			originID := cast.ToString(sub["originId"])
			if originID == "" {
				continue
			}
			byOrigin[originID] = cast.ToString(sub["id"])
		}
		for _, sub := range incoming {
			if id, ok := byOrigin[cast.ToString(sub["originId"])]; ok && id != "" {
				sub["id"] = id
			}
		}
	}
}

func subObjects(object map[string]any, path string) []map[string]any {
	value, ok := pathutil.Get(object, path)
	if !ok {
		return nil
	}
	switch node := value.(type) {
	case []any:
		var subs []map[string]any
		for _, item := range node {
			if sub, ok := item.(map[string]any); ok {
				subs = append(subs, sub)
			}
		}
		return subs
	case map[string]any:
		return []map[string]any{node}
	default:
		return nil
	}
}

// writeAPI sends the object to the external target API
func (w *writer) writeAPI(ctx context.Context, sync *domain.Synchronization, contract *domain.SynchronizationContract, object map[string]any, action domain.ContractAction) (map[string]any, error) {
	cfg := sync.TargetConfig

	targetID, err := uuid.Parse(sync.TargetID)
	if err != nil {
		return nil, fmt.Errorf("%w: invalid target id %q", domain.ErrInvalidConfiguration, sync.TargetID)
	}
	target, err := w.sources.GetByID(ctx, targetID)
	if err != nil {
		return nil, fmt.Errorf("failed to resolve target: %w", err)
	}

	endpoint, method, body, err := w.apiRequest(ctx, cfg, contract, object, action)
	if err != nil {
		return nil, err
	}
	if endpoint == "" {
		return nil, nil
	}

	resp, err := w.call.Call(ctx, target, endpoint, method, httpcall.CallConfig{Body: body})
	if err != nil {
		return nil, err
	}
	if !resp.IsSuccess() {
		return nil, fmt.Errorf("target returned status %d for %s %s", resp.StatusCode, method, endpoint)
	}

	if action == domain.ContractActionDelete {
		return nil, nil
	}

	written := pathutil.DeepCopy(object)
	if len(resp.Body) > 0 {
		var responseBody map[string]any
		if err := decodeJSON(resp.Body, &responseBody); err == nil && responseBody != nil {
			written = responseBody
		}
	}

	idPath := cfg.IDPath
	if idPath == "" {
		idPath = "id"
	}
	if value, ok := pathutil.Get(written, idPath); ok {
		contract.TargetID = cast.ToString(value)
	} else if contract.TargetID == "" {
		return nil, fmt.Errorf("target response for %s carries no id at %q", endpoint, idPath)
	}
	return written, nil
}

// apiRequest derives endpoint, method and body for one target API call
func (w *writer) apiRequest(ctx context.Context, cfg domain.TargetConfig, contract *domain.SynchronizationContract, object map[string]any, action domain.ContractAction) (string, string, any, error) {
	switch action {
	case domain.ContractActionCreate:
		method := cfg.Method
		if method == "" {
			method = http.MethodPost
		}
		return cfg.Endpoint, method, object, nil

	case domain.ContractActionUpdate:
		endpoint := cfg.UpdateEndpoint
		if endpoint == "" {
			endpoint = cfg.Endpoint + "/" + placeholderTargetID
		}
		method := cfg.UpdateMethod
		if method == "" {
			method = http.MethodPut
		}
		return strings.ReplaceAll(endpoint, placeholderTargetID, contract.TargetID), method, object, nil

	case domain.ContractActionDelete:
		if contract.TargetID == "" {
			return "", "", nil, nil
		}
		endpoint := cfg.DeleteEndpoint
		if endpoint == "" {
			endpoint = cfg.Endpoint + "/" + placeholderTargetID
		}
		var body any = object
		if cfg.DeleteMapping != nil {
			m, err := w.mappings.GetByID(ctx, *cfg.DeleteMapping)
			if err != nil {
				return "", "", nil, fmt.Errorf("failed to resolve delete mapping: %w", err)
			}
			body, err = w.engine.Execute(ctx, m, object)
			if err != nil {
				return "", "", nil, err
			}
		}
		return strings.ReplaceAll(endpoint, placeholderTargetID, contract.TargetID), http.MethodDelete, body, nil
	}
	return "", "", nil, fmt.Errorf("%w: unknown action %q", domain.ErrInvalidConfiguration, action)
}
