package core

import "context"

const (
	// DefaultIDPrefix marks built-in seed slides. The order fallback sorts them first.
	DefaultIDPrefix = "default"
	// SlideIDPrefix is used for slides created through the editor.
	SlideIDPrefix = "slide-"
)

type (
	// Slide is one image with its display text and position hint.
	Slide struct {
		ID          string `json:"id"`
		ImageData   string `json:"imageData"`
		Title       string `json:"title"`
		Description string `json:"description"`
		// Order is the position at last save. Nil for legacy, seed and unsaved slides.
		Order *int `json:"order,omitempty"`
	}

	// Content is the text produced for a slide image.
	Content struct {
		Title       string `json:"title"`
		Description string `json:"description"`
	}

	// SlideStore persists the whole slide collection.
	SlideStore interface {
		// Initialize ensures the backing table or collection exists. It is safe to call
		// more than once and fails with ErrStorageUnavailable when nothing can be persisted.
		Initialize(ctx context.Context) error

		// SaveAll replaces every persisted slide with slides, setting Order to the
		// position of each slide in the input.
		SaveAll(ctx context.Context, slides []Slide) error

		// LoadAll returns every persisted slide in no particular order.
		LoadAll(ctx context.Context) ([]Slide, error)
	}

	// LegacyStore exposes the flat JSON location used before slides were keyed by id.
	LegacyStore interface {
		// ReadLegacy returns the raw payload or ErrLegacyNotFound.
		ReadLegacy(ctx context.Context) ([]byte, error)
		ClearLegacy(ctx context.Context) error
	}

	// ContentGenerator writes a title and description for an image.
	ContentGenerator interface {
		Generate(ctx context.Context, imageData string) (Content, error)
	}
)

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// Clone returns a copy of s that shares no memory with it.
func (s Slide) Clone() Slide {
	if s.Order != nil {
		s.Order = IntPtr(*s.Order)
	}
	return s
}

// WithOrder returns a copy of s positioned at order.
func (s Slide) WithOrder(order int) Slide {
	s.Order = IntPtr(order)
	return s
}

// Numbered copies slides and sets each Order to its index.
func Numbered(slides []Slide) []Slide {
	out := make([]Slide, len(slides))
	for i, s := range slides {
		out[i] = s.WithOrder(i)
	}
	return out
}
