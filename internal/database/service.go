/**
 * Copyright 2025-present Coinbase Global, Inc.
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *  http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package database

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"

	"invest-platform-go/internal/models"
	"invest-platform-go/internal/store"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.DocumentStore.
var _ store.DocumentStore = (*Service)(nil)

// Service is the SQLite-backed document store. Each collection lives in a
// single row of the documents table; the revision column is replaced with a
// fresh UUID on every successful save, giving the same revision-gated write
// semantics as the remote backend.
type Service struct {
	db *sql.DB
}

func NewService(ctx context.Context, cfg models.DatabaseConfig) (*Service, error) {
	if cfg.Path == "" {
		return nil, fmt.Errorf("database path cannot be empty")
	}
	if cfg.MaxOpenConns <= 0 {
		return nil, fmt.Errorf("max open connections must be positive, got %d", cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns < 0 {
		return nil, fmt.Errorf("max idle connections cannot be negative, got %d", cfg.MaxIdleConns)
	}
	if cfg.PingTimeout <= 0 {
		return nil, fmt.Errorf("ping timeout must be positive, got %v", cfg.PingTimeout)
	}

	zap.L().Info("Opening SQLite document store", zap.String("file", cfg.Path))
	db, err := sql.Open("sqlite3", cfg.Path+"?_journal_mode=WAL&_synchronous=NORMAL&_cache_size=1000")
	if err != nil {
		return nil, fmt.Errorf("unable to open database: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxOpenConns)
	db.SetMaxIdleConns(cfg.MaxIdleConns)
	db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	db.SetConnMaxIdleTime(cfg.ConnMaxIdleTime)

	pingCtx, cancel := context.WithTimeout(ctx, cfg.PingTimeout)
	defer cancel()
	if err := db.PingContext(pingCtx); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to ping database: %w", err)
	}

	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		if closeErr := db.Close(); closeErr != nil {
			return nil, closeErr
		}
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}

	zap.L().Info("Document store initialized successfully")
	return service, nil
}

// NewServiceWithDB wraps an existing connection; used by tests with
// in-memory databases.
func NewServiceWithDB(db *sql.DB) (*Service, error) {
	service := &Service{db: db}
	if err := service.initSchema(); err != nil {
		return nil, fmt.Errorf("unable to initialize schema: %w", err)
	}
	return service, nil
}

func (s *Service) initSchema() error {
	schema := `
	CREATE TABLE IF NOT EXISTS documents (
		collection TEXT PRIMARY KEY,
		content TEXT NOT NULL,
		revision TEXT NOT NULL,
		updated_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
	);`

	if _, err := s.db.Exec(schema); err != nil {
		return err
	}
	return nil
}

// Load returns the collection's records and its current revision. A missing
// collection yields an empty slice; corrupt stored content is logged and
// treated as empty rather than surfaced, favoring availability.
func (s *Service) Load(ctx context.Context, collection string) ([]store.Record, string, error) {
	var content, revision string
	err := s.db.QueryRowContext(ctx, queryGetDocument, collection).Scan(&content, &revision)
	if err == sql.ErrNoRows {
		return []store.Record{}, "", nil
	}
	if err != nil {
		return nil, "", fmt.Errorf("failed to load collection %s: %w", collection, err)
	}

	var records []store.Record
	if err := json.Unmarshal([]byte(content), &records); err != nil {
		zap.L().Warn("Corrupt collection content, substituting empty array",
			zap.String("collection", collection),
			zap.String("revision", revision),
			zap.Error(err))
		return []store.Record{}, revision, nil
	}
	if records == nil {
		records = []store.Record{}
	}

	return records, revision, nil
}

// Save replaces the collection content conditioned on expectedRevision.
func (s *Service) Save(ctx context.Context, collection string, records []store.Record, expectedRevision string) (string, error) {
	if records == nil {
		records = []store.Record{}
	}
	content, err := json.Marshal(records)
	if err != nil {
		return "", fmt.Errorf("failed to encode collection %s: %w", collection, err)
	}

	newRevision := uuid.New().String()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return "", fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if expectedRevision == "" {
		var count int
		if err := tx.QueryRowContext(ctx, queryCountDocument, collection).Scan(&count); err != nil {
			return "", fmt.Errorf("failed to check collection existence: %w", err)
		}
		if count > 0 {
			return "", fmt.Errorf("collection %s already initialized - %w", collection, store.ErrConflict)
		}
		if _, err := tx.ExecContext(ctx, queryInsertDocument, collection, string(content), newRevision); err != nil {
			return "", fmt.Errorf("failed to initialize collection %s: %w", collection, err)
		}
	} else {
		result, err := tx.ExecContext(ctx, queryUpdateDocument, string(content), newRevision, collection, expectedRevision)
		if err != nil {
			return "", fmt.Errorf("failed to update collection %s: %w", collection, err)
		}
		rowsAffected, err := result.RowsAffected()
		if err != nil {
			return "", fmt.Errorf("failed to check rows affected: %w", err)
		}
		if rowsAffected == 0 {
			return "", fmt.Errorf("collection %s write failed - %w", collection, store.ErrConflict)
		}
	}

	if err := tx.Commit(); err != nil {
		return "", fmt.Errorf("failed to commit collection %s: %w", collection, err)
	}

	return newRevision, nil
}

func (s *Service) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Service) Close() {
	if err := s.db.Close(); err != nil {
		if !errors.Is(err, sql.ErrConnDone) {
			zap.L().Warn("Failed to close database connection", zap.Error(err))
		}
	}
}
