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

package collections

import (
	"context"
	"errors"
	"fmt"
	"math"
	"math/rand"
	"time"

	"invest-platform-go/internal/models"
	"invest-platform-go/internal/store"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Collections whose creates are mirrored into the audit trail.
var auditedCollections = map[string]bool{
	"transactions": true,
	"wallets":      true,
}

// Service implements document CRUD on top of a DocumentStore using the
// read-mutate-write protocol: load the full collection with its revision,
// mutate in memory, save conditioned on that revision. Revision conflicts
// are retried from scratch a bounded number of times before surfacing.
type Service struct {
	backend        store.DocumentStore
	maxRetries     int
	initialBackoff time.Duration
}

func NewService(backend store.DocumentStore) *Service {
	return &Service{
		backend:        backend,
		maxRetries:     3,
		initialBackoff: 50 * time.Millisecond,
	}
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	Id     string
	UserId string
}

// List returns the records of a collection matching the filter.
func (s *Service) List(ctx context.Context, collection string, filter Filter) ([]store.Record, error) {
	records, _, err := s.backend.Load(ctx, collection)
	if err != nil {
		return nil, err
	}

	matched := make([]store.Record, 0, len(records))
	for _, record := range records {
		if filter.Id != "" && stringField(record, "id") != filter.Id {
			continue
		}
		if filter.UserId != "" && stringField(record, "user_id") != filter.UserId {
			continue
		}
		matched = append(matched, record)
	}
	return matched, nil
}

// Get returns a single record by id.
func (s *Service) Get(ctx context.Context, collection, id string) (store.Record, error) {
	records, _, err := s.backend.Load(ctx, collection)
	if err != nil {
		return nil, err
	}
	record, _ := findById(records, id)
	if record == nil {
		return nil, fmt.Errorf("%s/%s - %w", collection, id, store.ErrNotFound)
	}
	return record, nil
}

// Create validates the payload, assigns identity fields when absent, and
// appends the record to the collection.
func (s *Service) Create(ctx context.Context, collection string, payload store.Record) (store.Record, error) {
	if err := store.Validate(collection, payload); err != nil {
		return nil, err
	}

	record := cloneRecord(payload)
	if stringField(record, "id") == "" {
		record["id"] = GenerateId()
	}
	if _, present := record["created_at"]; !present {
		record["created_at"] = time.Now().UTC().Format(time.RFC3339)
	}

	err := s.mutate(ctx, collection, func(records []store.Record) ([]store.Record, error) {
		return append(records, record), nil
	})
	if err != nil {
		return nil, err
	}

	if auditedCollections[collection] {
		s.appendAudit(ctx, "create", collection, record)
	}

	return record, nil
}

// Update shallow-merges patch into the record with the given id and stamps
// updated_at. On a revision conflict the original patch is re-applied
// against freshly loaded data: last writer wins per field.
func (s *Service) Update(ctx context.Context, collection, id string, patch store.Record) (store.Record, error) {
	var updated store.Record

	err := s.mutate(ctx, collection, func(records []store.Record) ([]store.Record, error) {
		record, idx := findById(records, id)
		if record == nil {
			return nil, fmt.Errorf("%s/%s - %w", collection, id, store.ErrNotFound)
		}

		merged := cloneRecord(record)
		for field, value := range patch {
			if field == "id" || field == "created_at" {
				continue
			}
			merged[field] = value
		}
		merged["updated_at"] = time.Now().UTC().Format(time.RFC3339)

		records[idx] = merged
		updated = merged
		return records, nil
	})
	if err != nil {
		return nil, err
	}

	return updated, nil
}

// Delete removes the record with the given id and returns it.
func (s *Service) Delete(ctx context.Context, collection, id string) (store.Record, error) {
	var deleted store.Record

	err := s.mutate(ctx, collection, func(records []store.Record) ([]store.Record, error) {
		record, idx := findById(records, id)
		if record == nil {
			return nil, fmt.Errorf("%s/%s - %w", collection, id, store.ErrNotFound)
		}
		deleted = record
		return append(records[:idx], records[idx+1:]...), nil
	})
	if err != nil {
		return nil, err
	}

	return deleted, nil
}

// Ping reports backend reachability.
func (s *Service) Ping(ctx context.Context) error {
	return s.backend.Ping(ctx)
}

// mutate runs one read-mutate-write cycle, retrying the whole cycle on
// revision conflicts with exponential backoff.
func (s *Service) mutate(ctx context.Context, collection string, apply func([]store.Record) ([]store.Record, error)) error {
	var lastErr error

	for attempt := 0; attempt <= s.maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(s.backoffFor(attempt)):
			case <-ctx.Done():
				return ctx.Err()
			}
		}

		records, revision, err := s.backend.Load(ctx, collection)
		if err != nil {
			return err
		}

		mutated, err := apply(records)
		if err != nil {
			return err
		}

		if _, err := s.backend.Save(ctx, collection, mutated, revision); err != nil {
			if errors.Is(err, store.ErrConflict) {
				lastErr = err
				zap.L().Warn("Revision conflict, retrying mutation",
					zap.String("collection", collection),
					zap.Int("attempt", attempt+1))
				continue
			}
			return err
		}

		return nil
	}

	return lastErr
}

func (s *Service) backoffFor(attempt int) time.Duration {
	backoff := float64(s.initialBackoff) * math.Pow(2, float64(attempt-1))
	jitter := backoff * 0.1 * rand.Float64()
	return time.Duration(backoff + jitter)
}

// appendAudit writes an append-only trail entry for a sensitive-collection
// create. Failures are logged, never propagated: the trail is best-effort
// by contract.
func (s *Service) appendAudit(ctx context.Context, action, collection string, record store.Record) {
	entry, err := models.ToRecord(models.AuditEntry{
		Id:         GenerateId(),
		Action:     action,
		Collection: collection,
		ItemId:     stringField(record, "id"),
		Actor:      models.ActorFromContext(ctx),
		Payload:    cloneRecord(record),
		CreatedAt:  time.Now().UTC(),
	})
	if err == nil {
		err = s.mutate(ctx, "audit_trail", func(records []store.Record) ([]store.Record, error) {
			return append(records, entry), nil
		})
	}
	if err != nil {
		zap.L().Warn("Failed to append audit trail entry",
			zap.String("collection", collection),
			zap.String("item_id", stringField(record, "id")),
			zap.Error(err))
	}
}

// GenerateId builds a sortable record id: millisecond timestamp plus a
// random suffix with enough entropy that collisions are practically
// impossible.
func GenerateId() string {
	return fmt.Sprintf("%d-%s", time.Now().UnixMilli(), uuid.New().String()[:8])
}

func findById(records []store.Record, id string) (store.Record, int) {
	for idx, record := range records {
		if stringField(record, "id") == id {
			return record, idx
		}
	}
	return nil, -1
}

func stringField(record store.Record, field string) string {
	value, _ := record[field].(string)
	return value
}

func cloneRecord(record store.Record) store.Record {
	clone := make(store.Record, len(record))
	for field, value := range record {
		clone[field] = value
	}
	return clone
}
