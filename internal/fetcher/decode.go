package fetcher

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/clbanning/mxj/v2"

	"github.com/syncline/syncline/internal/pathutil"
)

// decodeBody parses a response body as JSON, falling back to XML-to-map
// conversion (attributes and namespaces preserved) when JSON parsing yields
// nothing.
func decodeBody(body []byte) (any, error) {
	trimmed := bytes.TrimSpace(body)
	if len(trimmed) == 0 {
		return nil, nil
	}

	var decoded any
	if err := json.Unmarshal(trimmed, &decoded); err == nil && decoded != nil {
		return decoded, nil
	}

	xmlMap, err := mxj.NewMapXml(trimmed)
	if err != nil {
		return nil, fmt.Errorf("body is neither valid JSON nor XML: %w", err)
	}
	return map[string]any(xmlMap), nil
}

// listAt resolves a dotted path inside a record and coerces it to a list.
// A single object at the path becomes a one-element list.
func listAt(record map[string]any, path string) []any {
	value, ok := pathutil.Get(record, path)
	if !ok {
		return nil
	}
	switch node := value.(type) {
	case []any:
		return node
	case map[string]any:
		return []any{node}
	default:
		return nil
	}
}
