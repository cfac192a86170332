package ingestion

import "context"

// SnapshotSource delivers raw snapshot payloads pushed by a scanner feed.
// A payload is one snapshot JSON object or a JSON array of them.
type SnapshotSource interface {
	// Subscribe returns a channel of payloads. The channel is closed when the
	// context is cancelled or the source gives up.
	Subscribe(ctx context.Context) (<-chan []byte, error)
}
