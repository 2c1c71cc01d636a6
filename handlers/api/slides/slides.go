package slides

import (
	"encoding/json"
	"errors"
	"net/http"
	"slideshow-server/core"
	"slideshow-server/deck"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/render"
	"github.com/sirupsen/logrus"
)

// Images arrive inline as data URLs.
const maxBodyBytes = 64 << 20

type addRequest struct {
	Images []string `json:"images"`
}

type reorderRequest struct {
	From *int `json:"from"`
	To   *int `json:"to"`
}

func HandleAddSlides(d *deck.Deck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req addRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid JSON in request body"})
			return
		}
		if len(req.Images) == 0 {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "At least one image is required"})
			return
		}
		for _, image := range req.Images {
			if image == "" {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": "Images must not be empty"})
				return
			}
		}

		added, err := d.AddImages(req.Images...)
		if err != nil {
			writeError(w, r, err, "Failed to add slides")
			return
		}

		render.Status(r, http.StatusCreated)
		render.JSON(w, r, added)
	}
}

func HandleUpdateSlide(d *deck.Deck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := indexParam(w, r)
		if !ok {
			return
		}

		var update deck.SlideUpdate
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&update); err != nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Invalid JSON in request body"})
			return
		}

		slide, err := d.ReplaceAt(index, update)
		if err != nil {
			writeError(w, r, err, "Failed to update slide")
			return
		}

		logrus.WithField("slide_id", slide.ID).Info("Slide updated")
		render.JSON(w, r, slide)
	}
}

func HandleDeleteSlide(d *deck.Deck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := indexParam(w, r)
		if !ok {
			return
		}

		if err := d.Remove(index); err != nil {
			writeError(w, r, err, "Failed to delete slide")
			return
		}
		w.WriteHeader(http.StatusNoContent)
	}
}

func HandleReorder(d *deck.Deck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req reorderRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil || req.From == nil || req.To == nil {
			render.Status(r, http.StatusBadRequest)
			render.JSON(w, r, map[string]string{"error": "Body must be {\"from\": n, \"to\": m}"})
			return
		}

		if err := d.Reorder(*req.From, *req.To); err != nil {
			if errors.Is(err, core.ErrIndexOutOfRange) {
				render.Status(r, http.StatusBadRequest)
				render.JSON(w, r, map[string]string{"error": err.Error()})
				return
			}
			writeError(w, r, err, "Failed to reorder slides")
			return
		}
		render.JSON(w, r, d.State())
	}
}

func HandleRegenerate(d *deck.Deck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		index, ok := indexParam(w, r)
		if !ok {
			return
		}

		slide, err := d.Regenerate(r.Context(), index)
		if err != nil {
			writeError(w, r, err, "Failed to regenerate slide text")
			return
		}
		render.JSON(w, r, slide)
	}
}

func indexParam(w http.ResponseWriter, r *http.Request) (int, bool) {
	index, err := strconv.Atoi(chi.URLParam(r, "index"))
	if err != nil {
		render.Status(r, http.StatusBadRequest)
		render.JSON(w, r, map[string]string{"error": "Slide index must be a number"})
		return 0, false
	}
	return index, true
}

func writeError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	switch {
	case errors.Is(err, core.ErrIndexOutOfRange):
		render.Status(r, http.StatusNotFound)
		render.JSON(w, r, map[string]string{"error": err.Error()})
	case errors.Is(err, core.ErrDuplicateID):
		render.Status(r, http.StatusConflict)
		render.JSON(w, r, map[string]string{"error": err.Error()})
	case errors.Is(err, core.ErrGeneration):
		render.Status(r, http.StatusBadGateway)
		render.JSON(w, r, map[string]string{"error": err.Error()})
	default:
		logrus.WithError(err).Error(msg)
		render.Status(r, http.StatusInternalServerError)
		render.JSON(w, r, map[string]string{"error": msg})
	}
}
