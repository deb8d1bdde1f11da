package tasting

import (
	"context"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tastingroom/internal/deck"
)

func TestSessionLoader_Load(t *testing.T) {
	now := time.Now()

	mockDB := &MockDB{}
	mockDB.QueryRowFunc = func(ctx context.Context, sql string, args ...any) pgx.Row {
		return &MockRow{ScanFunc: func(dest ...any) error {
			*dest[0].(*string) = "sess-1"
			*dest[1].(*string) = "pkg-1"
			*dest[2].(*string) = "TASTE1"
			*dest[3].(*time.Time) = now
			return nil
		}}
	}
	mockDB.QueryFunc = func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		if strings.Contains(sql, "FROM wines") {
			return &MockRows{Data: [][]any{
				{"w1", "pkg-1", "Pinot Noir", "", 1, now},
			}}, nil
		}
		return &MockRows{Data: [][]any{
			{"s1", "w1", "interlude", "intro", 10, json.RawMessage(`{"title":"Welcome","is_welcome":true}`), now},
			{"s2", "w1", "question", "deep_dive", 20, json.RawMessage(`{"prompt":"?"}`), now},
		}}, nil
	}

	loader := NewSessionLoader(mockDB)
	sess, wines, slides, err := loader.Load(context.Background(), "TASTE1")
	require.NoError(t, err)

	assert.Equal(t, "sess-1", sess.ID)
	require.Len(t, wines, 1)
	require.Len(t, slides, 2)

	// Slides come out typed and ready for the sequencer.
	assert.True(t, deck.IsWelcome(slides[0]))
	entries := deck.BuildSequence(wines, slides)
	assert.Len(t, entries, 2)
}

func TestSessionLoader_NotFound(t *testing.T) {
	mockDB := &MockDB{}
	mockDB.QueryRowFunc = func(ctx context.Context, sql string, args ...any) pgx.Row {
		return &MockRow{ScanFunc: func(dest ...any) error {
			return pgx.ErrNoRows
		}}
	}

	loader := NewSessionLoader(mockDB)
	_, _, _, err := loader.Load(context.Background(), "NOPE")
	assert.ErrorIs(t, err, ErrSessionNotFound)
}

func TestSessionLoader_CorruptPayload(t *testing.T) {
	now := time.Now()

	mockDB := &MockDB{}
	mockDB.QueryRowFunc = func(ctx context.Context, sql string, args ...any) pgx.Row {
		return &MockRow{ScanFunc: func(dest ...any) error {
			*dest[0].(*string) = "sess-1"
			*dest[1].(*string) = "pkg-1"
			*dest[2].(*string) = "TASTE1"
			*dest[3].(*time.Time) = now
			return nil
		}}
	}
	mockDB.QueryFunc = func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		if strings.Contains(sql, "FROM wines") {
			return &MockRows{}, nil
		}
		return &MockRows{Data: [][]any{
			{"s1", "w1", "hologram", "", 10, json.RawMessage(`{}`), now},
		}}, nil
	}

	loader := NewSessionLoader(mockDB)
	_, _, _, err := loader.Load(context.Background(), "TASTE1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown slide type")
}
