// Package stub provides in-memory snapshot sources for tests and local runs.
package stub

import (
	"context"
	"encoding/json"
)

// Source replays a fixed list of payloads, then closes its channel.
// Implements ingestion.SnapshotSource interface.
type Source struct {
	payloads [][]byte
}

// NewSource creates a source that emits payloads in order.
func NewSource(payloads ...[]byte) *Source {
	return &Source{payloads: payloads}
}

// NewJSONSource marshals each value into one payload.
func NewJSONSource(values ...any) (*Source, error) {
	payloads := make([][]byte, 0, len(values))
	for _, v := range values {
		b, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		payloads = append(payloads, b)
	}
	return NewSource(payloads...), nil
}

// Subscribe returns a channel with copies of the payloads.
func (s *Source) Subscribe(ctx context.Context) (<-chan []byte, error) {
	ch := make(chan []byte)
	go func() {
		defer close(ch)
		for _, p := range s.payloads {
			msg := append([]byte(nil), p...)
			select {
			case ch <- msg:
			case <-ctx.Done():
				return
			}
		}
	}()
	return ch, nil
}
