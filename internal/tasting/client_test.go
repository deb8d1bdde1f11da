package tasting

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tastingroom/internal/deck"
)

func TestClient_FetchEditorData(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "GET", r.Method)
		assert.Equal(t, "/editor/TASTE1", r.URL.Path)
		assert.Equal(t, "host-1", r.Header.Get("X-User-Id"))

		writeJSON(w, http.StatusOK, map[string]any{
			"package": map[string]any{"id": "pkg-1", "code": "TASTE1", "hostId": "host-1", "name": "Reds"},
			"wines": []map[string]any{
				{"id": "w1", "packageId": "pkg-1", "name": "Pinot", "position": 1},
			},
			"slides": []map[string]any{
				{
					"id": "s1", "wineId": "w1", "type": "interlude", "sectionType": "intro",
					"position": 10, "payload": map[string]any{"title": "Welcome", "is_welcome": true},
				},
			},
		})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "host-1")
	data, err := c.FetchEditorData(context.Background(), "TASTE1")
	require.NoError(t, err)

	assert.Equal(t, "pkg-1", data.Package.ID)
	require.Len(t, data.Wines, 1)
	require.Len(t, data.Slides, 1)

	// Payloads come back typed, not as blobs.
	sl := data.Slides[0]
	assert.True(t, deck.IsWelcome(sl))
	p, ok := sl.Payload.(deck.InterludePayload)
	require.True(t, ok)
	assert.Equal(t, "Welcome", p.Title)
}

func TestClient_ReorderSlides(t *testing.T) {
	var got struct {
		Updates []deck.PositionUpdate `json:"updates"`
	}
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "POST", r.Method)
		assert.Equal(t, "/wines/w1/slides/reorder", r.URL.Path)
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeJSON(w, http.StatusOK, map[string]any{"wineId": "w1", "updated": len(got.Updates)})
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "host-1")
	err := c.ReorderSlides(context.Background(), "w1", []deck.PositionUpdate{
		{SlideID: "s1", Position: 20},
		{SlideID: "s2", Position: 10},
	})
	require.NoError(t, err)
	require.Len(t, got.Updates, 2)
	assert.Equal(t, "s1", got.Updates[0].SlideID)
}

func TestClient_SurfacesServerError(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		writeError(w, http.StatusConflict, "cannot delete the wine's only welcome slide")
	}))
	defer ts.Close()

	c := NewClient(ts.URL, "host-1")
	err := c.DeleteSlide(context.Background(), "s1")
	require.Error(t, err)
	// The server's reason travels with the error; the editor shows it to
	// the user.
	assert.Contains(t, err.Error(), "only welcome slide")
}

// The client satisfies the editor's Store contract, so an Editor can run
// against a live service end to end.
func TestClient_DrivesEditor(t *testing.T) {
	reorders := 0
	mux := http.NewServeMux()
	mux.HandleFunc("GET /editor/TASTE1", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]any{
			"package": map[string]any{"id": "pkg-1", "code": "TASTE1", "hostId": "host-1", "name": "Reds"},
			"wines": []map[string]any{
				{"id": "w1", "packageId": "pkg-1", "name": "Pinot", "position": 1},
			},
			"slides": []map[string]any{
				{"id": "s1", "wineId": "w1", "type": "interlude", "sectionType": "intro", "position": 10,
					"payload": map[string]any{"title": "Welcome", "is_welcome": true}},
				{"id": "s2", "wineId": "w1", "type": "question", "sectionType": "intro", "position": 20,
					"payload": map[string]any{"prompt": "?"}},
				{"id": "s3", "wineId": "w1", "type": "question", "sectionType": "deep_dive", "position": 30,
					"payload": map[string]any{"prompt": "??"}},
			},
		})
	})
	mux.HandleFunc("POST /wines/w1/slides/reorder", func(w http.ResponseWriter, r *http.Request) {
		reorders++
		writeJSON(w, http.StatusOK, map[string]any{"wineId": "w1", "updated": 2})
	})
	mux.HandleFunc("PATCH /slides/s3", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, Slide{ID: "s3", WineID: "w1", Type: "question", SectionType: "intro", Position: 20, Payload: json.RawMessage(`{"prompt":"??"}`)})
	})
	ts := httptest.NewServer(mux)
	defer ts.Close()

	ed := deck.NewEditor(NewClient(ts.URL, "host-1"), "TASTE1")
	require.NoError(t, ed.Load(context.Background()))

	diff, err := ed.MoveSlide(context.Background(), "s3", deck.MoveUp)
	require.NoError(t, err)
	require.NotEmpty(t, diff)
	assert.Equal(t, 1, reorders)
}
