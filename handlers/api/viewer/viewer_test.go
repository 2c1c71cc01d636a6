package viewer

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"slideshow-server/core"
	"slideshow-server/deck"
	"slideshow-server/stores/memory"
	"strings"
	"testing"
)

func newDeck(t *testing.T, ids ...string) *deck.Deck {
	t.Helper()
	initial := make([]core.Slide, len(ids))
	for i, id := range ids {
		initial[i] = core.Slide{ID: id, ImageData: "img-" + id}
	}
	d := deck.New(context.Background(), memory.NewStore(), nil, initial)
	t.Cleanup(d.Wait)
	return d
}

func TestHandleGetDeck(t *testing.T) {
	d := newDeck(t, "a", "b")
	rr := httptest.NewRecorder()

	HandleGetDeck(d)(rr, httptest.NewRequest(http.MethodGet, "/api/deck", nil))

	if rr.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rr.Code)
	}
	var resp deckResponse
	if err := json.Unmarshal(rr.Body.Bytes(), &resp); err != nil {
		t.Fatalf("invalid response: %v", err)
	}
	if resp.Total != 2 || resp.Current != 0 || resp.Slides[1].ID != "b" {
		t.Errorf("response = %+v", resp)
	}
}

func TestHandleNavigation(t *testing.T) {
	d := newDeck(t, "a", "b")

	steps := []struct {
		handler http.HandlerFunc
		want    int
	}{
		{HandlePrevious(d), 0},
		{HandleNext(d), 1},
		{HandleNext(d), 1},
		{HandlePrevious(d), 0},
	}
	for i, step := range steps {
		rr := httptest.NewRecorder()
		step.handler(rr, httptest.NewRequest(http.MethodPost, "/", nil))

		var state deck.State
		json.Unmarshal(rr.Body.Bytes(), &state)
		if state.Current != step.want {
			t.Errorf("step %d: current = %d, want %d", i, state.Current, step.want)
		}
	}
}

func TestHandleSelect(t *testing.T) {
	d := newDeck(t, "a", "b", "c")

	tests := []struct {
		body       string
		wantStatus int
	}{
		{`{"index":2}`, http.StatusOK},
		{`{"index":3}`, http.StatusBadRequest},
		{`{"index":-1}`, http.StatusBadRequest},
		{`{}`, http.StatusBadRequest},
		{`x`, http.StatusBadRequest},
		{`{"index":0,"note":"` + strings.Repeat("x", 2*maxSelectBytes) + `"}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		rr := httptest.NewRecorder()
		HandleSelect(d)(rr, httptest.NewRequest(http.MethodPut, "/api/deck/current", bytes.NewBufferString(tt.body)))
		if rr.Code != tt.wantStatus {
			t.Errorf("body %s: status = %d, want %d", tt.body, rr.Code, tt.wantStatus)
		}
	}
	if d.Current() != 2 {
		t.Errorf("Current() = %d, want 2", d.Current())
	}
}
