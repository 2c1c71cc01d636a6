package filesystem

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"slideshow-server/core"
	"sort"
	"strings"
	"sync"

	"github.com/oklog/ulid/v2"
	"github.com/sirupsen/logrus"
)

const (
	slidesDir     = "slides"
	stagingPrefix = ".slides-"
	retiredPrefix = ".slides-old-"
)

type fsStore struct {
	basePath  string
	legacyKey string
	mu        sync.Mutex
}

// NewStore creates a filesystem-backed store rooted at basePath. Nothing touches the disk
// until Initialize.
func NewStore(basePath, legacyKey string) *fsStore {
	return &fsStore{basePath: basePath, legacyKey: legacyKey}
}

func (s *fsStore) slidesPath() string {
	return filepath.Join(s.basePath, slidesDir)
}

func (s *fsStore) legacyPath() string {
	return filepath.Join(s.basePath, s.legacyKey+".json")
}

func (s *fsStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithField("path", s.slidesPath())
	s.recoverSwap(log)
	if err := os.MkdirAll(s.slidesPath(), 0755); err != nil {
		log.WithError(err).Error("Failed to create slides directory")
		return fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
	}
	log.Debug("Slides directory ready")
	return nil
}

// recoverSwap finishes a SaveAll that stopped between its two renames and removes the
// directories such a save leaves behind. A staging directory whose retired twin exists was
// fully written, so it wins over the retired copy.
func (s *fsStore) recoverSwap(log *logrus.Entry) {
	entries, err := os.ReadDir(s.basePath)
	if err != nil {
		return
	}

	var staged, retired []string
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		name := entry.Name()
		switch {
		case strings.HasPrefix(name, retiredPrefix):
			retired = append(retired, strings.TrimPrefix(name, retiredPrefix))
		case strings.HasPrefix(name, stagingPrefix):
			staged = append(staged, strings.TrimPrefix(name, stagingPrefix))
		}
	}

	if _, err := os.Stat(s.slidesPath()); os.IsNotExist(err) && len(retired) > 0 {
		sort.Strings(retired)
		stamp := retired[len(retired)-1]
		source := filepath.Join(s.basePath, retiredPrefix+stamp)
		if slices.Contains(staged, stamp) {
			source = filepath.Join(s.basePath, stagingPrefix+stamp)
		}
		if err := os.Rename(source, s.slidesPath()); err != nil {
			log.WithError(err).Error("Failed to recover slides from an interrupted save")
		} else {
			log.WithField("recovered_from", source).Warn("Recovered slides from an interrupted save")
		}
	}

	for _, stamp := range staged {
		os.RemoveAll(filepath.Join(s.basePath, stagingPrefix+stamp))
	}
	for _, stamp := range retired {
		os.RemoveAll(filepath.Join(s.basePath, retiredPrefix+stamp))
	}
}

// SaveAll writes the collection into a fresh directory and swaps it in, so readers see
// either the previous set or the new one.
func (s *fsStore) SaveAll(ctx context.Context, slides []core.Slide) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	stamp := ulid.Make().String()
	stagingPath := filepath.Join(s.basePath, stagingPrefix+stamp)
	log := logrus.WithFields(logrus.Fields{
		"path":        s.slidesPath(),
		"slide_count": len(slides),
	})

	if err := s.writeStaging(ctx, stagingPath, slides); err != nil {
		os.RemoveAll(stagingPath)
		log.WithError(err).Error("Failed to write slides")
		return fmt.Errorf("%w: %v", core.ErrStorageWriteFailed, err)
	}

	retiredPath := filepath.Join(s.basePath, retiredPrefix+stamp)
	if err := os.Rename(s.slidesPath(), retiredPath); err != nil && !os.IsNotExist(err) {
		os.RemoveAll(stagingPath)
		log.WithError(err).Error("Failed to retire previous slides")
		return fmt.Errorf("%w: %v", core.ErrStorageWriteFailed, err)
	}
	if err := os.Rename(stagingPath, s.slidesPath()); err != nil {
		// Put the previous set back so the store is never left empty.
		os.Rename(retiredPath, s.slidesPath())
		os.RemoveAll(stagingPath)
		log.WithError(err).Error("Failed to activate new slides")
		return fmt.Errorf("%w: %v", core.ErrStorageWriteFailed, err)
	}
	if err := os.RemoveAll(retiredPath); err != nil {
		log.WithError(err).Warn("Failed to remove retired slides directory")
	}

	log.Info("Slides saved successfully")
	return nil
}

func (s *fsStore) writeStaging(ctx context.Context, stagingPath string, slides []core.Slide) error {
	if err := os.MkdirAll(stagingPath, 0755); err != nil {
		return err
	}
	seen := make(map[string]bool, len(slides))
	for i, slide := range slides {
		if seen[slide.ID] {
			return fmt.Errorf("duplicate slide id %s", slide.ID)
		}
		seen[slide.ID] = true
		if err := ctx.Err(); err != nil {
			return err
		}
		name, err := fileName(slide.ID)
		if err != nil {
			return err
		}
		data, err := json.Marshal(slide.WithOrder(i))
		if err != nil {
			return fmt.Errorf("marshal slide %s: %w", slide.ID, err)
		}
		if err := os.WriteFile(filepath.Join(stagingPath, name), data, 0644); err != nil {
			return fmt.Errorf("write slide %s: %w", slide.ID, err)
		}
	}
	return nil
}

func (s *fsStore) LoadAll(ctx context.Context) ([]core.Slide, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithField("path", s.slidesPath())
	files, err := os.ReadDir(s.slidesPath())
	if err != nil {
		if os.IsNotExist(err) {
			return []core.Slide{}, nil
		}
		log.WithError(err).Error("Failed to read slides directory")
		return nil, err
	}

	slides := make([]core.Slide, 0, len(files))
	for _, file := range files {
		if file.IsDir() || !strings.HasSuffix(file.Name(), ".json") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(s.slidesPath(), file.Name()))
		if err != nil {
			log.WithError(err).Warnf("Failed to read slide file %s, skipping", file.Name())
			continue
		}
		var slide core.Slide
		if err := json.Unmarshal(data, &slide); err != nil {
			log.WithError(err).Warnf("Failed to unmarshal slide file %s, skipping", file.Name())
			continue
		}
		slides = append(slides, slide)
	}

	log.Infof("Loaded %d slides", len(slides))
	return slides, nil
}

func (s *fsStore) ReadLegacy(ctx context.Context) ([]byte, error) {
	data, err := os.ReadFile(s.legacyPath())
	if err != nil {
		if os.IsNotExist(err) {
			return nil, core.ErrLegacyNotFound
		}
		return nil, err
	}
	return data, nil
}

func (s *fsStore) ClearLegacy(ctx context.Context) error {
	err := os.Remove(s.legacyPath())
	if err != nil && !os.IsNotExist(err) {
		logrus.WithField("path", s.legacyPath()).WithError(err).Error("Failed to remove legacy slides")
		return err
	}
	return nil
}

// fileName maps a slide id to its file, rejecting ids that would escape the directory.
func fileName(id string) (string, error) {
	if id == "" || id == "." || id == ".." || filepath.Base(id) != id || strings.ContainsAny(id, `/\`) {
		return "", fmt.Errorf("invalid slide id %q: must not be a path", id)
	}
	return id + ".json", nil
}

func (s *fsStore) Close() error {
	return nil
}
