package viewer

import (
	"encoding/json"
	"errors"
	"net/http"
	"slideshow-server/core"
	"slideshow-server/deck"

	"github.com/go-chi/render"
)

const maxSelectBytes = 1 << 10

type deckResponse struct {
	Slides  []core.Slide `json:"slides"`
	Current int          `json:"current"`
	Total   int          `json:"total"`
}

type selectRequest struct {
	Index *int `json:"index"`
}

func HandleGetDeck(d *deck.Deck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		slides := d.Slides()
		render.JSON(w, r, deckResponse{
			Slides:  slides,
			Current: d.Current(),
			Total:   len(slides),
		})
	}
}

func HandleNext(d *deck.Deck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Next()
		render.JSON(w, r, d.State())
	}
}

func HandlePrevious(d *deck.Deck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		d.Previous()
		render.JSON(w, r, d.State())
	}
}

func HandleSelect(d *deck.Deck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req selectRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxSelectBytes)).Decode(&req); err != nil || req.Index == nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Body must be {\"index\": n}"})
			return
		}

		if err := d.Select(*req.Index); err != nil {
			status := http.StatusInternalServerError
			if errors.Is(err, core.ErrIndexOutOfRange) {
				status = http.StatusBadRequest
			}
			render.Status(r, status)
			render.JSON(w, r, map[string]string{"error": err.Error()})
			return
		}
		render.JSON(w, r, d.State())
	}
}
