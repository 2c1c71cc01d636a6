package memory

import (
	"context"
	"fmt"
	"slideshow-server/core"
	"sync"

	"github.com/sirupsen/logrus"
)

// memStore implements core.SlideStore and core.LegacyStore without durability.
type memStore struct {
	mu     sync.RWMutex
	slides map[string]core.Slide
	legacy []byte
}

// NewStore creates an empty in-memory store.
func NewStore() *memStore {
	return &memStore{slides: make(map[string]core.Slide)}
}

// NewStoreWithLegacy creates an in-memory store holding a legacy payload.
func NewStoreWithLegacy(payload []byte) *memStore {
	s := NewStore()
	s.legacy = append([]byte(nil), payload...)
	return s
}

func (s *memStore) Initialize(ctx context.Context) error {
	return nil
}

func (s *memStore) SaveAll(ctx context.Context, slides []core.Slide) error {
	next := make(map[string]core.Slide, len(slides))
	for i, slide := range slides {
		if _, dup := next[slide.ID]; dup {
			logrus.WithField("slide_id", slide.ID).Error("Duplicate slide id in save")
			return fmt.Errorf("%w: duplicate slide id %s", core.ErrStorageWriteFailed, slide.ID)
		}
		next[slide.ID] = slide.WithOrder(i)
	}

	s.mu.Lock()
	s.slides = next
	s.mu.Unlock()

	logrus.WithField("slide_count", len(slides)).Debug("Slides saved in memory")
	return nil
}

func (s *memStore) LoadAll(ctx context.Context) ([]core.Slide, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	slides := make([]core.Slide, 0, len(s.slides))
	for _, slide := range s.slides {
		slides = append(slides, slide.Clone())
	}
	return slides, nil
}

func (s *memStore) ReadLegacy(ctx context.Context) ([]byte, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if s.legacy == nil {
		return nil, core.ErrLegacyNotFound
	}
	return append([]byte(nil), s.legacy...), nil
}

func (s *memStore) ClearLegacy(ctx context.Context) error {
	s.mu.Lock()
	s.legacy = nil
	s.mu.Unlock()
	return nil
}

func (s *memStore) Close() error {
	return nil
}
