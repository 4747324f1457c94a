// Package store persists matching runs and their reported entries in sqlite.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/RyanBlaney/melodia/config"
	"github.com/RyanBlaney/melodia/logging"
	"github.com/RyanBlaney/melodia/matching"
	"github.com/glebarez/sqlite"
	"github.com/google/uuid"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

const DefaultDBFile = "melodia.sqlite3"

const batchSize = 500

var errStoreNil = errors.New("store: not open")

// Run is one orchestrator run.
type Run struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	Matcher   string `gorm:"index:idx_run_matcher"`
	Features  string
	Config    string // JSON
	Results   int
	CreatedAt time.Time
}

// MatchEntry is one reported occurrence. Onsets are nil when positions were not requested.
type MatchEntry struct {
	ID             uint   `gorm:"primaryKey;autoIncrement"`
	RunID          string `gorm:"type:varchar(36);index:idx_entry_run"`
	TuneFamilyID   string `gorm:"index:idx_entry_family"`
	QueryFilename  string
	QuerySegmentID int
	MatchFilename  string
	QueryLength    int
	Measure        string
	Rank           int
	Similarity     float64
	StartOnset     *float64
	EndOnset       *float64
}

// Store is a sqlite database of runs.
type Store struct {
	db     *gorm.DB
	sqlDB  *sql.DB
	logger logging.Logger
}

// Open opens or creates the database at path and migrates the schema.
func Open(path string) (*Store, error) {
	if path == "" {
		path = DefaultDBFile
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("creating db dir: %w", err)
		}
	}

	db, err := gorm.Open(sqlite.Open(path), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting sql.DB from gorm: %w", err)
	}
	// sqlite serializes writers
	sqlDB.SetMaxOpenConns(1)

	if err := db.AutoMigrate(&Run{}, &MatchEntry{}); err != nil {
		sqlDB.Close()
		return nil, fmt.Errorf("auto migrate: %w", err)
	}

	return &Store{
		db:    db,
		sqlDB: sqlDB,
		logger: logging.WithFields(logging.Fields{
			"component": "store",
			"path":      path,
		}),
	}, nil
}

// Close releases the database.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// SaveRun stores the configuration and every entry of results under a new run id.
func (s *Store) SaveRun(ctx context.Context, cfg *config.Config, results []matching.MatchResult) (string, error) {
	if s == nil || s.db == nil {
		return "", errStoreNil
	}

	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return "", fmt.Errorf("encoding config: %w", err)
	}

	run := Run{
		ID:       uuid.NewString(),
		Matcher:  string(cfg.Matcher),
		Features: strings.Join(cfg.Features, ","),
		Config:   string(cfgJSON),
		Results:  len(results),
	}
	entries := Flatten(run.ID, results)

	err = s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return fmt.Errorf("creating run: %w", err)
		}
		if len(entries) == 0 {
			return nil
		}
		if err := tx.CreateInBatches(&entries, batchSize).Error; err != nil {
			return fmt.Errorf("inserting entries: %w", err)
		}
		return nil
	})
	if err != nil {
		return "", err
	}

	s.logger.WithFields(logging.Fields{
		"function": "SaveRun",
		"run_id":   run.ID,
	}).Info("Saved run", logging.Fields{
		"results": len(results),
		"entries": len(entries),
	})
	return run.ID, nil
}

// Entries returns the entries of a run in insertion order.
func (s *Store) Entries(ctx context.Context, runID string) ([]MatchEntry, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNil
	}
	var rows []MatchEntry
	if err := s.db.WithContext(ctx).Where("run_id = ?", runID).Order("id").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying entries of run %s: %w", runID, err)
	}
	return rows, nil
}

// Runs lists stored runs, newest first.
func (s *Store) Runs(ctx context.Context) ([]Run, error) {
	if s == nil || s.db == nil {
		return nil, errStoreNil
	}
	var rows []Run
	if err := s.db.WithContext(ctx).Order("created_at DESC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}
	return rows, nil
}

// Flatten turns results into entry rows, measures in name order and ties ranked from 0.
func Flatten(runID string, results []matching.MatchResult) []MatchEntry {
	var rows []MatchEntry
	for _, r := range results {
		byMeasure := r.Payload.Entries()
		for _, measure := range slices.Sorted(maps.Keys(byMeasure)) {
			for rank, e := range byMeasure[measure] {
				row := MatchEntry{
					RunID:          runID,
					TuneFamilyID:   r.TuneFamilyID,
					QueryFilename:  r.QueryFilename,
					QuerySegmentID: r.QuerySegmentID,
					MatchFilename:  r.MatchFilename,
					QueryLength:    r.QueryLength,
					Measure:        measure,
					Rank:           rank,
					Similarity:     e.Similarity,
				}
				if e.Span != nil {
					start, end := e.Start, e.End
					row.StartOnset = &start
					row.EndOnset = &end
				}
				rows = append(rows, row)
			}
		}
	}
	return rows
}
