package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeTradeID computes a deterministic trade id using SHA256.
// Formula: SHA256(edge_id|day|direction|signal_bar_index)
// Returns hex-encoded hash (64 characters).
func ComputeTradeID(edgeID, day, direction string, signalBarIndex int) string {
	data := fmt.Sprintf("%s|%s|%s|%d", edgeID, day, direction, signalBarIndex)
	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
