package mapping

import (
	"crypto/sha256"
	"encoding/json"
	"fmt"
)

// ObjectHash returns a stable sha256 hex digest of an object. Marshaling
// sorts map keys, so the hash is invariant under key reordering.
func ObjectHash(object map[string]any) (string, error) {
	data, err := json.Marshal(object)
	if err != nil {
		return "", fmt.Errorf("failed to marshal object for hashing: %w", err)
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}
