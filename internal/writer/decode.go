package writer

import (
	"bytes"
	"encoding/json"
)

func decodeJSON(body []byte, out *map[string]any) error {
	return json.Unmarshal(bytes.TrimSpace(body), out)
}
