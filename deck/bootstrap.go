package deck

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slideshow-server/core"

	"github.com/sirupsen/logrus"
)

// Store is what the deck needs at startup: the keyed collection and the legacy location.
type Store interface {
	core.SlideStore
	core.LegacyStore
}

// DefaultSlide is the seed shown when there is nothing else to show.
func DefaultSlide() core.Slide {
	return core.Slide{
		ID:          core.DefaultIDPrefix + "-1",
		ImageData:   "https://picsum.photos/1920/1080",
		Title:       "Happy 24th birthday, Daniel!",
		Description: "Welcome to the celebration. Starting soon...",
	}
}

// Bootstrap loads the persisted collection in display order. An empty store is filled from
// the legacy location, or with the default seed.
func Bootstrap(ctx context.Context, store Store) []core.Slide {
	loaded, err := store.LoadAll(ctx)
	if err != nil {
		logrus.WithError(err).Error("Failed to load slides, showing the default slide")
		return []core.Slide{DefaultSlide()}
	}
	if len(loaded) > 0 {
		slides := core.ResolveOrder(loaded)
		logrus.WithField("slide_count", len(slides)).Info("Slides loaded")
		return slides
	}

	slides, err := ImportLegacy(ctx, store)
	if err != nil {
		logrus.WithError(err).Warn("Legacy import incomplete")
	}
	return slides
}

// ImportLegacy moves the legacy slide list into store and removes it from the legacy
// location. The returned slides are always usable; a non-nil error says what went wrong
// along the way. A payload that cannot be parsed is left in place and the default seed
// is saved instead.
func ImportLegacy(ctx context.Context, store Store) ([]core.Slide, error) {
	payload, err := store.ReadLegacy(ctx)
	if errors.Is(err, core.ErrLegacyNotFound) {
		return seed(ctx, store), nil
	}
	if err != nil {
		return seed(ctx, store), fmt.Errorf("failed to read legacy slides: %w", err)
	}

	slides, err := parseLegacy(payload)
	if err != nil {
		logrus.WithError(err).Warn("Legacy slides are malformed, keeping them for manual recovery")
		return seed(ctx, store), err
	}

	if len(slides) == 0 {
		if err := store.ClearLegacy(ctx); err != nil {
			logrus.WithError(err).Warn("Failed to clear empty legacy slides")
		}
		return seed(ctx, store), nil
	}

	if err := store.SaveAll(ctx, slides); err != nil {
		return core.Numbered(slides), fmt.Errorf("failed to save imported slides: %w", err)
	}
	if err := store.ClearLegacy(ctx); err != nil {
		return core.Numbered(slides), fmt.Errorf("failed to clear legacy slides: %w", err)
	}

	logrus.WithField("slide_count", len(slides)).Info("Imported legacy slides")
	return core.Numbered(slides), nil
}

func parseLegacy(payload []byte) ([]core.Slide, error) {
	var slides []core.Slide
	if err := json.Unmarshal(payload, &slides); err != nil {
		return nil, fmt.Errorf("%w: %v", core.ErrLegacyParseFailed, err)
	}

	seen := make(map[string]bool, len(slides))
	for i := range slides {
		id := slides[i].ID
		if id == "" {
			return nil, fmt.Errorf("%w: slide %d has no id", core.ErrLegacyParseFailed, i)
		}
		if seen[id] {
			return nil, fmt.Errorf("%w: duplicate id %s", core.ErrLegacyParseFailed, id)
		}
		seen[id] = true
		slides[i].Order = nil
	}
	return slides, nil
}

func seed(ctx context.Context, store core.SlideStore) []core.Slide {
	slides := []core.Slide{DefaultSlide()}
	if err := store.SaveAll(ctx, slides); err != nil {
		logrus.WithError(err).Warn("Failed to save the default slide")
	}
	return core.Numbered(slides)
}
