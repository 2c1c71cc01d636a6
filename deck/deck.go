package deck

import (
	"context"
	"errors"
	"fmt"
	"slideshow-server/core"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

// Text shown while a generated title is pending, and when generation failed.
const (
	PlaceholderTitle       = "Loading description..."
	PlaceholderDescription = "Analyzing the photo..."
	FallbackTitle          = "New photo"
	FallbackDescription    = "You can edit this manually"
)

type (
	// State is what viewers need to follow the presentation.
	State struct {
		Current int      `json:"current"`
		Total   int      `json:"total"`
		IDs     []string `json:"ids"`
	}

	// SlideUpdate carries the fields to replace on one slide. Nil fields are kept.
	SlideUpdate struct {
		Title       *string `json:"title,omitempty"`
		Description *string `json:"description,omitempty"`
		ImageData   *string `json:"imageData,omitempty"`
	}

	// Deck owns the ordered slide collection and the current position. Every mutation
	// writes the whole collection back to the store in the background.
	Deck struct {
		mu        sync.Mutex
		slides    map[string]core.Slide
		order     []string
		current   int
		observers []func(State)

		ctx       context.Context
		store     core.SlideStore
		generator core.ContentGenerator

		// Saves run one at a time in the order they were issued.
		saveMu   sync.Mutex
		saveCond *sync.Cond
		issued   uint64
		saved    uint64
		wg       sync.WaitGroup
	}
)

// New creates a deck holding initial in the given order. ctx bounds background saves and
// generation tasks. A nil generator leaves new slides with placeholder text.
func New(ctx context.Context, store core.SlideStore, generator core.ContentGenerator, initial []core.Slide) *Deck {
	d := &Deck{
		slides:    make(map[string]core.Slide, len(initial)),
		order:     make([]string, 0, len(initial)),
		ctx:       ctx,
		store:     store,
		generator: generator,
	}
	d.saveCond = sync.NewCond(&d.saveMu)
	for _, s := range initial {
		if _, exists := d.slides[s.ID]; exists {
			logrus.WithField("slide_id", s.ID).Warn("Dropping slide with duplicate id")
			continue
		}
		d.slides[s.ID] = s.Clone()
		d.order = append(d.order, s.ID)
	}
	d.renumberLocked()
	return d
}

// NewSlideID returns a fresh id for a slide created in the editor.
func NewSlideID() string {
	return core.SlideIDPrefix + ulid.Make().String()
}

// OnChange registers fn to run after every mutation or navigation.
func (d *Deck) OnChange(fn func(State)) {
	d.mu.Lock()
	d.observers = append(d.observers, fn)
	d.mu.Unlock()
}

// Slides returns a copy of the collection in display order.
func (d *Deck) Slides() []core.Slide {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.snapshotLocked()
}

func (d *Deck) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.order)
}

func (d *Deck) Current() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.current
}

// CurrentSlide returns the slide at the current position, or false when the deck is empty.
func (d *Deck) CurrentSlide() (core.Slide, bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if len(d.order) == 0 {
		return core.Slide{}, false
	}
	return d.slides[d.order[d.current]].Clone(), true
}

func (d *Deck) State() State {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.stateLocked()
}

// Append adds slides at the end. The current position does not move. Ids already in the
// deck, or repeated within slides, reject the whole call.
func (d *Deck) Append(slides ...core.Slide) error {
	if len(slides) == 0 {
		return nil
	}
	d.mu.Lock()
	seen := make(map[string]bool, len(slides))
	for _, s := range slides {
		if _, exists := d.slides[s.ID]; exists || seen[s.ID] {
			d.mu.Unlock()
			return fmt.Errorf("%w: %s", core.ErrDuplicateID, s.ID)
		}
		seen[s.ID] = true
	}
	for _, s := range slides {
		d.slides[s.ID] = s.Clone()
		d.order = append(d.order, s.ID)
	}
	d.commitLocked()
	return nil
}

// AddImages appends one placeholder slide per image and starts generating its text.
func (d *Deck) AddImages(images ...string) ([]core.Slide, error) {
	added := make([]core.Slide, len(images))
	for i, image := range images {
		added[i] = core.Slide{
			ID:          NewSlideID(),
			ImageData:   image,
			Title:       PlaceholderTitle,
			Description: PlaceholderDescription,
		}
	}
	if err := d.Append(added...); err != nil {
		return nil, err
	}

	if d.generator != nil {
		for _, s := range added {
			d.wg.Add(1)
			go func(id, image string) {
				defer d.wg.Done()
				d.ApplyContent(id, d.generate(d.ctx, id, image))
			}(s.ID, s.ImageData)
		}
	}

	logrus.WithField("slide_count", len(added)).Info("Slides added")
	return added, nil
}

// ApplyContent sets the title and description of the slide with id. It reports false and
// changes nothing when the slide no longer exists.
func (d *Deck) ApplyContent(id string, content core.Content) bool {
	d.mu.Lock()
	s, ok := d.slides[id]
	if !ok {
		d.mu.Unlock()
		logrus.WithField("slide_id", id).Debug("Generated content for removed slide ignored")
		return false
	}
	s.Title = content.Title
	s.Description = content.Description
	d.slides[id] = s
	d.commitLocked()
	return true
}

// ReplaceAt applies update to the slide at index and returns the result.
func (d *Deck) ReplaceAt(index int, update SlideUpdate) (core.Slide, error) {
	d.mu.Lock()
	if index < 0 || index >= len(d.order) {
		d.mu.Unlock()
		return core.Slide{}, fmt.Errorf("%w: %d", core.ErrIndexOutOfRange, index)
	}
	id := d.order[index]
	s := d.slides[id]
	if update.Title != nil {
		s.Title = *update.Title
	}
	if update.Description != nil {
		s.Description = *update.Description
	}
	if update.ImageData != nil {
		s.ImageData = *update.ImageData
	}
	d.slides[id] = s
	d.commitLocked()
	return s.Clone(), nil
}

// Remove deletes the slide at index. A current position left past the end moves to the
// last slide.
func (d *Deck) Remove(index int) error {
	d.mu.Lock()
	if index < 0 || index >= len(d.order) {
		d.mu.Unlock()
		return fmt.Errorf("%w: %d", core.ErrIndexOutOfRange, index)
	}
	id := d.order[index]
	delete(d.slides, id)
	d.order = append(d.order[:index], d.order[index+1:]...)
	if d.current >= len(d.order) {
		d.current = max(0, len(d.order)-1)
	}
	d.commitLocked()

	logrus.WithField("slide_id", id).Info("Slide removed")
	return nil
}

// Reorder moves the slide at from so that it ends up at to. The current position follows
// the slide that was selected before the move.
func (d *Deck) Reorder(from, to int) error {
	d.mu.Lock()
	n := len(d.order)
	if from < 0 || from >= n || to < 0 || to >= n {
		d.mu.Unlock()
		return fmt.Errorf("%w: move %d to %d", core.ErrIndexOutOfRange, from, to)
	}
	selected := d.order[d.current]

	id := d.order[from]
	d.order = append(d.order[:from], d.order[from+1:]...)
	d.order = append(d.order[:to], append([]string{id}, d.order[to:]...)...)

	for i, other := range d.order {
		if other == selected {
			d.current = i
			break
		}
	}
	d.commitLocked()
	return nil
}

// Next moves forward one slide. It reports false at the last slide.
func (d *Deck) Next() bool {
	d.mu.Lock()
	if d.current >= len(d.order)-1 {
		d.mu.Unlock()
		return false
	}
	d.current++
	d.notifyLocked()
	return true
}

// Previous moves back one slide. It reports false at the first slide.
func (d *Deck) Previous() bool {
	d.mu.Lock()
	if d.current <= 0 {
		d.mu.Unlock()
		return false
	}
	d.current--
	d.notifyLocked()
	return true
}

// Select makes index the current position.
func (d *Deck) Select(index int) error {
	d.mu.Lock()
	if index < 0 || index >= len(d.order) {
		d.mu.Unlock()
		return fmt.Errorf("%w: %d", core.ErrIndexOutOfRange, index)
	}
	d.current = index
	d.notifyLocked()
	return nil
}

// Regenerate asks the generator for new text for the slide at index and waits for it.
// A failed generation leaves the slide as it was and returns an error wrapping
// core.ErrGeneration.
func (d *Deck) Regenerate(ctx context.Context, index int) (core.Slide, error) {
	d.mu.Lock()
	if index < 0 || index >= len(d.order) {
		d.mu.Unlock()
		return core.Slide{}, fmt.Errorf("%w: %d", core.ErrIndexOutOfRange, index)
	}
	s := d.slides[d.order[index]]
	d.mu.Unlock()

	if d.generator == nil {
		return s.Clone(), nil
	}

	d.wg.Add(1)
	defer d.wg.Done()

	log := logrus.WithField("slide_id", s.ID)
	content, err := d.generator.Generate(ctx, s.ImageData)
	if err != nil {
		log.WithError(err).Warn("Content regeneration failed, keeping current text")
		if errors.Is(err, core.ErrGeneration) {
			return core.Slide{}, err
		}
		return core.Slide{}, fmt.Errorf("%w: %v", core.ErrGeneration, err)
	}

	d.ApplyContent(s.ID, content)
	s.Title = content.Title
	s.Description = content.Description
	return s.Clone(), nil
}

// Wait blocks until every background save and generation task has finished.
func (d *Deck) Wait() {
	d.wg.Wait()
}

func (d *Deck) generate(ctx context.Context, id, image string) core.Content {
	content, err := d.generator.Generate(ctx, image)
	if err != nil {
		logrus.WithError(err).WithField("slide_id", id).Warn("Content generation failed, using fallback text")
		return core.Content{Title: FallbackTitle, Description: FallbackDescription}
	}
	return content
}

// commitLocked renumbers, schedules a save, notifies observers and releases d.mu.
func (d *Deck) commitLocked() {
	d.renumberLocked()
	d.persistLocked(d.snapshotLocked())
	d.notifyLocked()
}

// notifyLocked releases d.mu and then calls the observers.
func (d *Deck) notifyLocked() {
	state := d.stateLocked()
	observers := append([]func(State){}, d.observers...)
	d.mu.Unlock()

	for _, fn := range observers {
		fn(state)
	}
}

// persistLocked schedules a save of snapshot behind every save issued before it.
func (d *Deck) persistLocked(snapshot []core.Slide) {
	ticket := d.issued
	d.issued++

	d.wg.Add(1)
	go func() {
		defer d.wg.Done()
		d.saveMu.Lock()
		defer d.saveMu.Unlock()
		for d.saved != ticket {
			d.saveCond.Wait()
		}
		defer func() {
			d.saved++
			d.saveCond.Broadcast()
		}()

		if err := d.store.SaveAll(d.ctx, snapshot); err != nil {
			logrus.WithError(err).WithField("slide_count", len(snapshot)).Error("Failed to persist slides")
			return
		}
		logrus.WithField("slide_count", len(snapshot)).Debug("Slides persisted")
	}()
}

func (d *Deck) renumberLocked() {
	for i, id := range d.order {
		d.slides[id] = d.slides[id].WithOrder(i)
	}
}

func (d *Deck) snapshotLocked() []core.Slide {
	out := make([]core.Slide, len(d.order))
	for i, id := range d.order {
		out[i] = d.slides[id].Clone()
	}
	return out
}

func (d *Deck) stateLocked() State {
	return State{
		Current: d.current,
		Total:   len(d.order),
		IDs:     append([]string{}, d.order...),
	}
}
