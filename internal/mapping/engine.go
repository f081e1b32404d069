// Package mapping implements the declarative transformation engine: field
// copies, templated values, unsets and an ordered cast pipeline. Execution
// is pure; the same mapping and input always produce the same output.
package mapping

import (
	"bytes"
	"context"
	"fmt"
	"strings"
	"text/template"

	"github.com/syncline/syncline/internal/domain"
	"github.com/syncline/syncline/internal/logger"
	"github.com/syncline/syncline/internal/pathutil"
)

// rootKey unwraps the output when a mapping produces a non-object root value
const rootKey = "#"

// Engine executes mapping recipes
type Engine struct{}

// NewEngine creates a new mapping engine
func NewEngine() *Engine {
	return &Engine{}
}

// Execute applies a mapping to a single object and returns the mapped object.
// Non-object root results (via the "#" key) are rejected here; use ExecuteRaw
// when the mapping may produce a scalar or list root.
func (e *Engine) Execute(ctx context.Context, m *domain.Mapping, input map[string]any) (map[string]any, error) {
	out, err := e.ExecuteRaw(ctx, m, input)
	if err != nil {
		return nil, err
	}
	obj, ok := out.(map[string]any)
	if !ok {
		return nil, fmt.Errorf("mapping %s produced a non-object root value", m.ID)
	}
	return obj, nil
}

// ExecuteRaw applies a mapping to a single object. If the result has exactly
// one top-level key named "#", that value becomes the root of the output.
func (e *Engine) ExecuteRaw(ctx context.Context, m *domain.Mapping, input map[string]any) (any, error) {
	out := e.execute(ctx, m, input)

	if len(out) == 1 {
		if root, ok := out[rootKey]; ok {
			return root, nil
		}
	}
	return out, nil
}

// ExecuteOnList maps each element of a list independently. When extra is
// non-empty its values are merged into every element before mapping.
func (e *Engine) ExecuteOnList(ctx context.Context, m *domain.Mapping, list []map[string]any, extra map[string]any) ([]map[string]any, error) {
	out := make([]map[string]any, 0, len(list))
	for _, item := range list {
		element := pathutil.DeepCopy(item)
		if len(extra) > 0 {
			pathutil.Merge(element, extra)
		}
		mapped, err := e.Execute(ctx, m, element)
		if err != nil {
			return nil, err
		}
		out = append(out, mapped)
	}
	return out, nil
}

func (e *Engine) execute(ctx context.Context, m *domain.Mapping, input map[string]any) map[string]any {
	var out map[string]any
	if m.PassThrough {
		out = pathutil.DeepCopy(input)
	} else {
		out = make(map[string]any)
	}

	for _, field := range m.Fields {
		pathutil.Set(out, field.Target, e.resolveSource(ctx, field.Source, input))
	}

	for _, path := range m.Unset {
		pathutil.Delete(out, path)
	}

	for _, fc := range m.Casts {
		e.applyCasts(ctx, out, fc)
	}

	return out
}

// resolveSource produces the value for one field mapping entry. A literal
// (non-string) source is copied verbatim; a string is first tried as a
// dotted path into the input and otherwise rendered as a template against
// the entire original input. A failing template falls back to the literal
// spec, so every entry resolves to a value.
func (e *Engine) resolveSource(ctx context.Context, source any, input map[string]any) any {
	spec, isString := source.(string)
	if !isString {
		return deepCopyAny(source)
	}

	if value, ok := pathutil.Get(input, spec); ok {
		return deepCopyAny(value)
	}

	rendered, err := renderTemplate(spec, input)
	if err != nil {
		logger.FromContext(ctx).Warn("Mapping template failed, using literal value",
			"template", spec, "error", err)
		return spec
	}
	return rendered
}

// renderTemplate renders a source spec against the whole input object,
// enabling cross-field concatenation and conditionals.
func renderTemplate(spec string, input map[string]any) (string, error) {
	if !strings.Contains(spec, "{{") {
		return spec, nil
	}
	tmpl, err := template.New("field").Option("missingkey=zero").Parse(spec)
	if err != nil {
		return "", fmt.Errorf("failed to parse template: %w", err)
	}
	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, input); err != nil {
		return "", fmt.Errorf("failed to render template: %w", err)
	}
	return buf.String(), nil
}

func deepCopyAny(v any) any {
	switch node := v.(type) {
	case map[string]any:
		return pathutil.DeepCopy(node)
	case []any:
		out := make([]any, len(node))
		for i, item := range node {
			out[i] = deepCopyAny(item)
		}
		return out
	default:
		return v
	}
}
