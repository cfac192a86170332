package idhash

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
)

// ComputeSnapshotID computes a deterministic snapshot_id using SHA256.
// Formula: SHA256(channel_id|scanned_at)
// Returns hex-encoded hash (64 characters).
func ComputeSnapshotID(channelID string, scannedAt int64) string {
	data := fmt.Sprintf("%s|%d", channelID, scannedAt)

	hash := sha256.Sum256([]byte(data))
	return hex.EncodeToString(hash[:])
}
