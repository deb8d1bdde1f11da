package tasting

import (
	"context"
	"strings"
	"testing"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// summaryServer feeds buildSummary a fixed response grid and group size.
func summaryServer(responses [][]any, groupSize int) *Server {
	mockDB := &MockDB{}
	mockDB.QueryFunc = func(ctx context.Context, sql string, args ...any) (pgx.Rows, error) {
		return &MockRows{Data: responses}, nil
	}
	mockDB.QueryRowFunc = func(ctx context.Context, sql string, args ...any) pgx.Row {
		if strings.Contains(sql, "COUNT(*)") {
			return &MockRow{ScanFunc: func(dest ...any) error {
				*dest[0].(*int) = groupSize
				return nil
			}}
		}
		return &MockRow{}
	}
	return NewServer(mockDB, nil)
}

func TestBuildSummary_AgreementAndPersonality(t *testing.T) {
	// Three participants, two question slides on one wine. p1 matches the
	// modal answer both times, p3 never does.
	responses := [][]any{
		{"p1", "slide-1", "wine-1", "Pinot Noir", `{"answer":"fruit"}`},
		{"p2", "slide-1", "wine-1", "Pinot Noir", `{"answer":"fruit"}`},
		{"p3", "slide-1", "wine-1", "Pinot Noir", `{"answer":"oak"}`},
		{"p1", "slide-2", "wine-1", "Pinot Noir", `{"answer":"yes"}`},
		{"p2", "slide-2", "wine-1", "Pinot Noir", `{"answer":"yes"}`},
		{"p3", "slide-2", "wine-1", "Pinot Noir", `{"answer":"no"}`},
	}

	srv := summaryServer(responses, 3)

	sum, err := srv.buildSummary(context.Background(), "sess-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 2, sum.Responses)
	assert.Equal(t, 3, sum.GroupSize)
	assert.InDelta(t, 1.0, sum.Agreement, 1e-9)
	assert.Equal(t, personalityHarmonizer, sum.Personality)

	require.Len(t, sum.Wines, 1)
	assert.Equal(t, "Pinot Noir", sum.Wines[0].Name)
	assert.Equal(t, 2, sum.Wines[0].Responses)
	assert.InDelta(t, 1.0, sum.Wines[0].Agreement, 1e-9)

	sum, err = srv.buildSummary(context.Background(), "sess-1", "p3")
	require.NoError(t, err)
	assert.InDelta(t, 0.0, sum.Agreement, 1e-9)
	assert.Equal(t, personalityIndependent, sum.Personality)
}

func TestBuildSummary_BalancedBand(t *testing.T) {
	// p1 matches the crowd on one of two answers: agreement 0.5 lands in
	// the balanced band.
	responses := [][]any{
		{"p1", "slide-1", "wine-1", "Pinot Noir", `{"answer":"fruit"}`},
		{"p2", "slide-1", "wine-1", "Pinot Noir", `{"answer":"fruit"}`},
		{"p1", "slide-2", "wine-1", "Pinot Noir", `{"answer":"no"}`},
		{"p2", "slide-2", "wine-1", "Pinot Noir", `{"answer":"yes"}`},
		{"p3", "slide-2", "wine-1", "Pinot Noir", `{"answer":"yes"}`},
	}

	srv := summaryServer(responses, 3)

	sum, err := srv.buildSummary(context.Background(), "sess-1", "p1")
	require.NoError(t, err)
	assert.InDelta(t, 0.5, sum.Agreement, 1e-9)
	assert.Equal(t, personalityBalanced, sum.Personality)
}

func TestBuildSummary_NoResponses(t *testing.T) {
	srv := summaryServer(nil, 2)

	sum, err := srv.buildSummary(context.Background(), "sess-1", "p1")
	require.NoError(t, err)
	assert.Equal(t, 0, sum.Responses)
	assert.Zero(t, sum.Agreement)
	assert.Equal(t, personalityIndependent, sum.Personality)
	assert.Empty(t, sum.Wines)
}

func TestBuildSummary_TieCountsAsModal(t *testing.T) {
	// 1-1 split on a slide: both answers are modal, so both participants
	// count as agreeing.
	responses := [][]any{
		{"p1", "slide-1", "wine-1", "Pinot Noir", `{"answer":"fruit"}`},
		{"p2", "slide-1", "wine-1", "Pinot Noir", `{"answer":"oak"}`},
	}

	srv := summaryServer(responses, 2)

	sum, err := srv.buildSummary(context.Background(), "sess-1", "p1")
	require.NoError(t, err)
	assert.InDelta(t, 1.0, sum.Agreement, 1e-9)
}

func TestIsModal(t *testing.T) {
	counts := map[string]int{"a": 3, "b": 3, "c": 1}
	assert.True(t, isModal(counts, "a"))
	assert.True(t, isModal(counts, "b"))
	assert.False(t, isModal(counts, "c"))
	assert.False(t, isModal(nil, "a"))
}
