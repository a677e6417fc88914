package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeRunID computes a deterministic validation-run id using SHA256.
// Formula: SHA256(edge_id|ran_at_ms|classification)
// Returns hex-encoded hash (64 characters).
func ComputeRunID(edgeID string, ranAtMs int64, classification string) string {
	data := fmt.Sprintf("%s|%d|%s", edgeID, ranAtMs, classification)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
