package memory

import (
	"context"
	"errors"
	"testing"

	"channel-trust-lab/internal/storage"
)

func TestIngestCursorStore(t *testing.T) {
	store := NewIngestCursorStore()
	ctx := context.Background()

	if _, err := store.GetLastScanned(ctx, "chan"); !errors.Is(err, storage.ErrNotFound) {
		t.Fatalf("Expected ErrNotFound, got %v", err)
	}

	steps := []struct {
		ts    int64
		moved bool
		want  int64
	}{
		{ts: 1000, moved: true, want: 1000},
		{ts: 900, moved: false, want: 1000},
		{ts: 1000, moved: false, want: 1000},
		{ts: 1500, moved: true, want: 1500},
	}
	for _, s := range steps {
		moved, err := store.Advance(ctx, "chan", s.ts)
		if err != nil {
			t.Fatalf("Advance(%d) failed: %v", s.ts, err)
		}
		if moved != s.moved {
			t.Errorf("Advance(%d) moved = %v, want %v", s.ts, moved, s.moved)
		}
		got, _ := store.GetLastScanned(ctx, "chan")
		if got != s.want {
			t.Errorf("after Advance(%d) cursor = %d, want %d", s.ts, got, s.want)
		}
	}

	if _, err := store.Advance(ctx, "", 1); !errors.Is(err, storage.ErrInvalidInput) {
		t.Errorf("Expected ErrInvalidInput, got %v", err)
	}
}
