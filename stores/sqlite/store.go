package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"slideshow-server/core"
	"sync"

	_ "github.com/mattn/go-sqlite3"
	"github.com/sirupsen/logrus"
	_ "modernc.org/sqlite"
)

const (
	// DriverPure is the pure-Go modernc driver.
	DriverPure = "sqlite"
	// DriverCGO is the mattn driver; it only works when built with cgo.
	DriverCGO = "sqlite3"
)

var schema = []string{
	`CREATE TABLE IF NOT EXISTS slides (
		id TEXT PRIMARY KEY,
		image_data TEXT NOT NULL,
		title TEXT NOT NULL,
		description TEXT NOT NULL,
		sort_order INTEGER
	);`,
	`CREATE TABLE IF NOT EXISTS legacy_kv (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);`,
}

type sqliteStore struct {
	driver         string
	dataSourceName string
	legacyKey      string

	mu sync.Mutex
	db *sql.DB
}

// NewStore creates a SQLite-backed store. The database is opened by Initialize.
func NewStore(driver, dataSourceName, legacyKey string) *sqliteStore {
	if driver == "" {
		driver = DriverPure
	}
	return &sqliteStore{driver: driver, dataSourceName: dataSourceName, legacyKey: legacyKey}
}

func (s *sqliteStore) Initialize(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	log := logrus.WithFields(logrus.Fields{
		"driver":         s.driver,
		"dataSourceName": s.dataSourceName,
	})

	if s.db == nil {
		db, err := sql.Open(s.driver, s.dataSourceName)
		if err != nil {
			log.WithError(err).Error("Failed to open sqlite database")
			return fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
		}
		if err := db.PingContext(ctx); err != nil {
			db.Close()
			log.WithError(err).Error("Failed to reach sqlite database")
			return fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
		}
		// One connection serializes writers.
		db.SetMaxOpenConns(1)
		s.db = db
	}

	for _, stmt := range schema {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			log.WithError(err).Error("Failed to create slides tables")
			return fmt.Errorf("%w: %v", core.ErrStorageUnavailable, err)
		}
	}

	log.Debug("SQLite store initialized")
	return nil
}

func (s *sqliteStore) conn() (*sql.DB, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil, fmt.Errorf("%w: sqlite store not initialized", core.ErrStorageUnavailable)
	}
	return s.db, nil
}

func (s *sqliteStore) SaveAll(ctx context.Context, slides []core.Slide) error {
	db, err := s.conn()
	if err != nil {
		return err
	}

	log := logrus.WithField("slide_count", len(slides))
	if err := s.replaceAll(ctx, db, slides); err != nil {
		log.WithError(err).Error("Failed to save slides")
		return fmt.Errorf("%w: %v", core.ErrStorageWriteFailed, err)
	}

	log.Info("Slides saved successfully")
	return nil
}

func (s *sqliteStore) replaceAll(ctx context.Context, db *sql.DB, slides []core.Slide) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, "DELETE FROM slides"); err != nil {
		return err
	}

	stmt, err := tx.PrepareContext(ctx, "INSERT INTO slides (id, image_data, title, description, sort_order) VALUES (?, ?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i, slide := range slides {
		if _, err := stmt.ExecContext(ctx, slide.ID, slide.ImageData, slide.Title, slide.Description, i); err != nil {
			return fmt.Errorf("insert slide %s: %w", slide.ID, err)
		}
	}

	return tx.Commit()
}

func (s *sqliteStore) LoadAll(ctx context.Context) ([]core.Slide, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	rows, err := db.QueryContext(ctx, "SELECT id, image_data, title, description, sort_order FROM slides")
	if err != nil {
		logrus.WithError(err).Error("Failed to query slides")
		return nil, err
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil {
			logrus.WithError(cerr).Warn("Failed to close slide rows")
		}
	}()

	slides := []core.Slide{}
	for rows.Next() {
		var slide core.Slide
		var order sql.NullInt64
		if err := rows.Scan(&slide.ID, &slide.ImageData, &slide.Title, &slide.Description, &order); err != nil {
			return nil, err
		}
		if order.Valid {
			slide.Order = core.IntPtr(int(order.Int64))
		}
		slides = append(slides, slide)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}

	logrus.WithField("slide_count", len(slides)).Debug("Slides loaded")
	return slides, nil
}

func (s *sqliteStore) ReadLegacy(ctx context.Context) ([]byte, error) {
	db, err := s.conn()
	if err != nil {
		return nil, err
	}

	var value string
	err = db.QueryRowContext(ctx, "SELECT value FROM legacy_kv WHERE key = ?", s.legacyKey).Scan(&value)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, core.ErrLegacyNotFound
		}
		return nil, err
	}
	return []byte(value), nil
}

func (s *sqliteStore) ClearLegacy(ctx context.Context) error {
	db, err := s.conn()
	if err != nil {
		return err
	}
	_, err = db.ExecContext(ctx, "DELETE FROM legacy_kv WHERE key = ?", s.legacyKey)
	return err
}

// Close releases the database handle.
func (s *sqliteStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.db == nil {
		return nil
	}
	err := s.db.Close()
	s.db = nil
	return err
}
