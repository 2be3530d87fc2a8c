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

package ledger

import (
	"context"
	"errors"
	"fmt"

	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/models"
	"invest-platform-go/internal/rates"
	"invest-platform-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// settingsId is the fixed id of the singleton settings record.
const settingsId = "app-settings"

// Service implements the transaction lifecycle state machine and the wallet
// mutations coupled to it.
type Service struct {
	docs  *collections.Service
	rates *rates.Service
}

func NewService(docs *collections.Service, rateService *rates.Service) *Service {
	return &Service{docs: docs, rates: rateService}
}

// Settings returns the singleton settings record, or sensible zero defaults
// when it has not been seeded yet.
func (s *Service) Settings(ctx context.Context) (*models.Settings, error) {
	record, err := s.docs.Get(ctx, "settings", settingsId)
	if err != nil {
		if isNotFound(err) {
			return &models.Settings{
				Id:               settingsId,
				ExchangeFeePct:   decimal.Zero,
				WithdrawalFees:   map[string]decimal.Decimal{},
				DepositAddresses: map[string]string{},
			}, nil
		}
		return nil, err
	}

	var settings models.Settings
	if err := models.FromRecord(record, &settings); err != nil {
		return nil, fmt.Errorf("failed to decode settings: %w", err)
	}
	return &settings, nil
}

// notify writes a user notification. Best effort: operational messages must
// never fail the financial operation that produced them.
func (s *Service) notify(ctx context.Context, userId, title, message string) {
	_, err := s.docs.Create(ctx, "notifications", store.Record{
		"user_id": userId,
		"title":   title,
		"message": message,
		"read":    false,
	})
	if err != nil {
		zap.L().Warn("Failed to write notification",
			zap.String("user_id", userId),
			zap.String("title", title),
			zap.Error(err))
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}
