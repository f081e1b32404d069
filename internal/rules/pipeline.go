// Package rules applies the configurable rule pipeline that runs around each
// object reconciliation.
package rules

import (
	"context"
	"fmt"
	"sort"

	"github.com/google/uuid"

	"github.com/syncline/syncline/internal/conditions"
	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/filestore"
	"github.com/syncline/syncline/internal/httpcall"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/mapping"
	"github.com/syncline/syncline/internal/objectstore"
	"github.com/syncline/syncline/internal/pathutil"
	"github.com/syncline/syncline/internal/repository"
)

// Terminal is returned when an error rule fires. It stops the pipeline and
// marks the object invalid without failing the run.
type Terminal struct {
	RuleID  uuid.UUID
	Message string
}

// FollowUpFunc triggers another synchronization from a synchronization rule.
// The orchestrator injects it so the pipeline stays free of a direct
// dependency on run execution.
type FollowUpFunc func(ctx context.Context, syncID uuid.UUID) error

// Pipeline resolves and applies the rules attached to a synchronization
type Pipeline interface {
	// Apply runs the rules matching the given timing and action over the
	// object data, in rule order. Unresolvable rule ids are dropped. A
	// non-nil Terminal means an error rule fired and the object must be
	// treated as invalid.
	Apply(ctx context.Context, ruleIDs []uuid.UUID, timing domain.RuleTiming, action domain.RuleAction, data map[string]any) (map[string]any, *Terminal, error)

	// SetFollowUpFunc wires the callback used by synchronization rules
	SetFollowUpFunc(fn FollowUpFunc)
}

type handlerFunc func(ctx context.Context, rule *domain.Rule, data map[string]any) (map[string]any, *Terminal, error)

type pipeline struct {
	rules     repository.Rule
	mappings  repository.Mapping
	engine    *mapping.Engine
	evaluator *conditions.Evaluator
	objects   objectstore.Store
	files     filestore.Service
	call      httpcall.Service
	followUp  FollowUpFunc
	handlers  map[domain.RuleType]handlerFunc
}

// NewPipeline creates a rule pipeline with the built-in handler set
func NewPipeline(rules repository.Rule, mappings repository.Mapping, objects objectstore.Store, files filestore.Service, call httpcall.Service) Pipeline {
	p := &pipeline{
		rules:     rules,
		mappings:  mappings,
		engine:    mapping.NewEngine(),
		evaluator: conditions.NewEvaluator(),
		objects:   objects,
		files:     files,
		call:      call,
	}
	p.handlers = map[domain.RuleType]handlerFunc{
		domain.RuleTypeMapping:         p.handleMapping,
		domain.RuleTypeSaveObject:      p.handleSaveObject,
		domain.RuleTypeSynchronization: p.handleSynchronization,
		domain.RuleTypeFetchFile:       p.handleFetchFile,
		domain.RuleTypeWriteFile:       p.handleWriteFile,
		domain.RuleTypeExtendInput:     p.handleExtendInput,
		domain.RuleTypeError:           p.handleError,
		domain.RuleTypeCustom:          p.handleCustom,
	}
	return p
}

func (p *pipeline) SetFollowUpFunc(fn FollowUpFunc) {
	p.followUp = fn
}

func (p *pipeline) Apply(ctx context.Context, ruleIDs []uuid.UUID, timing domain.RuleTiming, action domain.RuleAction, data map[string]any) (map[string]any, *Terminal, error) {
	if len(ruleIDs) == 0 {
		return data, nil, nil
	}
	log := logger.FromContext(ctx)

	resolved, err := p.rules.GetByIDs(ctx, ruleIDs)
	if err != nil {
		return data, nil, fmt.Errorf("failed to resolve rules: %w", err)
	}
	if len(resolved) < len(ruleIDs) {
		log.Warn("Some rule references could not be resolved",
			"requested", len(ruleIDs), "resolved", len(resolved))
	}

	sort.SliceStable(resolved, func(i, j int) bool {
		return resolved[i].Order < resolved[j].Order
	})

	current := pathutil.DeepCopy(data)
	for i := range resolved {
		rule := &resolved[i]
		if !p.matches(ctx, rule, timing, action, current) {
			continue
		}

		handler, ok := p.handlers[rule.Type]
		if !ok {
			log.Warn("Unknown rule type, skipping", "rule", rule.ID, "type", rule.Type)
			continue
		}

		next, terminal, err := handler(ctx, rule, current)
		if err != nil {
			return current, nil, fmt.Errorf("rule %s (%s) failed: %w", rule.Name, rule.ID, err)
		}
		if terminal != nil {
			return current, terminal, nil
		}
		current = next
	}
	return current, nil, nil
}

// matches gates a rule on enablement, timing, action and conditions
func (p *pipeline) matches(ctx context.Context, rule *domain.Rule, timing domain.RuleTiming, action domain.RuleAction, data map[string]any) bool {
	if !rule.IsEnabled {
		return false
	}
	if rule.Timing != timing {
		return false
	}
	if rule.Action != "" && action != "" && rule.Action != action {
		return false
	}
	if len(rule.Conditions) == 0 {
		return true
	}
	ok, err := p.evaluator.Evaluate(rule.Conditions, data)
	if err != nil {
		logger.FromContext(ctx).Warn("Rule condition evaluation failed, skipping rule",
			"rule", rule.ID, "error", err)
		return false
	}
	return ok
}
