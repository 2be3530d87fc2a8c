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

package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"

	"invest-platform-go/internal/models"
	"invest-platform-go/internal/store"

	"go.uber.org/zap"
)

// Compile-time check: *Service must satisfy store.DocumentStore.
var _ store.DocumentStore = (*Service)(nil)

// Service stores each collection as one JSON file inside a git repository,
// using the contents API blob SHA as the revision token. The commit-by-SHA
// protocol gives single-writer-wins semantics per revision.
type Service struct {
	client  *client
	dataDir string
}

func NewService(cfg models.GitHubConfig) (*Service, error) {
	if cfg.Owner == "" || cfg.Repo == "" {
		return nil, fmt.Errorf("%w: repository owner and name are required", store.ErrConfiguration)
	}
	if cfg.Token == "" {
		return nil, fmt.Errorf("%w: access token is required", store.ErrConfiguration)
	}

	c, err := newClient(cfg)
	if err != nil {
		return nil, err
	}

	zap.L().Info("Initialized GitHub document store",
		zap.String("repo", cfg.Owner+"/"+cfg.Repo),
		zap.String("branch", cfg.Branch),
		zap.String("data_dir", cfg.DataDir))

	return &Service{client: c, dataDir: strings.Trim(cfg.DataDir, "/")}, nil
}

func (s *Service) pathFor(collection string) string {
	if s.dataDir == "" {
		return collection + ".json"
	}
	return s.dataDir + "/" + collection + ".json"
}

func (s *Service) Load(ctx context.Context, collection string) ([]store.Record, string, error) {
	content, sha, err := s.client.getFile(ctx, s.pathFor(collection))
	if err != nil {
		return nil, "", err
	}
	if sha == "" {
		return []store.Record{}, "", nil
	}

	var records []store.Record
	if err := json.Unmarshal(content, &records); err != nil {
		zap.L().Warn("Corrupt collection content, substituting empty array",
			zap.String("collection", collection),
			zap.String("revision", sha),
			zap.Error(err))
		return []store.Record{}, sha, nil
	}
	if records == nil {
		records = []store.Record{}
	}

	return records, sha, nil
}

func (s *Service) Save(ctx context.Context, collection string, records []store.Record, expectedRevision string) (string, error) {
	if records == nil {
		records = []store.Record{}
	}
	content, err := json.MarshalIndent(records, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to encode collection %s: %w", collection, err)
	}

	message := fmt.Sprintf("Update %s (%d records)", collection, len(records))
	if expectedRevision == "" {
		message = fmt.Sprintf("Initialize %s", collection)
	}

	newSHA, err := s.client.putFile(ctx, s.pathFor(collection), message, content, expectedRevision)
	if err != nil {
		return "", err
	}

	return newSHA, nil
}

// Ping verifies credentials and repository reachability by probing the data
// directory. A missing directory is fine; auth and network failures are not.
func (s *Service) Ping(ctx context.Context) error {
	_, _, err := s.client.getFile(ctx, s.pathFor("users"))
	return err
}

func (s *Service) Close() {
	s.client.httpClient.CloseIdleConnections()
}

func decodeContent(file contentsFile) ([]byte, error) {
	if file.Encoding != "" && file.Encoding != "base64" {
		return nil, fmt.Errorf("unexpected content encoding %q", file.Encoding)
	}
	// The API wraps base64 payloads in newlines.
	cleaned := strings.ReplaceAll(file.Content, "\n", "")
	return base64.StdEncoding.DecodeString(cleaned)
}

func encodeContent(content []byte) string {
	return base64.StdEncoding.EncodeToString(content)
}
