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

package invest

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/ledger"
	"invest-platform-go/internal/models"
	"invest-platform-go/internal/rates"
	"invest-platform-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Service manages investment plans and subscriptions, including the daily
// accrual batch.
type Service struct {
	docs   *collections.Service
	ledger *ledger.Service
	rates  *rates.Service
}

func NewService(docs *collections.Service, ledgerService *ledger.Service, rateService *rates.Service) *Service {
	return &Service{docs: docs, ledger: ledgerService, rates: rateService}
}

// GetPlan returns a plan by id.
func (s *Service) GetPlan(ctx context.Context, planId string) (*models.Plan, error) {
	record, err := s.docs.Get(ctx, "plans", planId)
	if err != nil {
		return nil, err
	}

	var plan models.Plan
	if err := models.FromRecord(record, &plan); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &plan, nil
}

// CreatePlan validates and stores a new investment plan.
func (s *Service) CreatePlan(ctx context.Context, plan *models.Plan) (*models.Plan, error) {
	if err := validatePlan(plan); err != nil {
		return nil, err
	}
	if plan.Status == "" {
		plan.Status = "active"
	}

	record, err := models.ToRecord(plan)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	delete(record, "id")
	delete(record, "created_at")
	delete(record, "updated_at")

	created, err := s.docs.Create(ctx, "plans", record)
	if err != nil {
		return nil, err
	}

	var out models.Plan
	if err := models.FromRecord(created, &out); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &out, nil
}

// SavePlan applies a partial update to an existing plan, re-validating the
// merged result before it is written.
func (s *Service) SavePlan(ctx context.Context, planId string, patch store.Record) (*models.Plan, error) {
	existing, err := s.GetPlan(ctx, planId)
	if err != nil {
		return nil, err
	}

	merged, err := models.ToRecord(existing)
	if err != nil {
		return nil, fmt.Errorf("failed to encode plan: %w", err)
	}
	for key, value := range patch {
		merged[key] = value
	}

	var candidate models.Plan
	if err := models.FromRecord(merged, &candidate); err != nil {
		return nil, fmt.Errorf("invalid plan patch - %w", store.ErrValidation)
	}
	if err := validatePlan(&candidate); err != nil {
		return nil, err
	}

	updated, err := s.docs.Update(ctx, "plans", planId, patch)
	if err != nil {
		return nil, err
	}

	var out models.Plan
	if err := models.FromRecord(updated, &out); err != nil {
		return nil, fmt.Errorf("failed to decode plan: %w", err)
	}
	return &out, nil
}

// Purchase converts the EUR amount into the pay asset at the current rate,
// debits the client's wallet and opens an ACTIVE subscription. Plan name and
// duration are captured on the subscription at purchase time. The invest
// transaction is written already completed.
func (s *Service) Purchase(ctx context.Context, userId, planId string, amountEur decimal.Decimal, payAsset string) (*models.PurchaseResult, error) {
	plan, err := s.GetPlan(ctx, planId)
	if err != nil {
		return nil, err
	}
	if plan.Status != "active" {
		return nil, fmt.Errorf("plan %s is %s - %w", plan.Name, plan.Status, store.ErrValidation)
	}
	if amountEur.LessThan(plan.MinEur) {
		return nil, fmt.Errorf("amount %s EUR below plan minimum %s - %w",
			amountEur.String(), plan.MinEur.String(), store.ErrValidation)
	}
	if plan.MaxEur.IsPositive() && amountEur.GreaterThan(plan.MaxEur) {
		return nil, fmt.Errorf("amount %s EUR above plan maximum %s - %w",
			amountEur.String(), plan.MaxEur.String(), store.ErrValidation)
	}

	assetAmount, err := s.rates.Convert(ctx, "EUR", payAsset, amountEur)
	if err != nil {
		return nil, err
	}

	wallet, err := s.ledger.DebitWallet(ctx, userId, payAsset, assetAmount)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("no %s wallet - %w", payAsset, store.ErrInsufficientFunds)
		}
		return nil, err
	}

	subRecord, err := s.docs.Create(ctx, "subscriptions", store.Record{
		"user_id":       userId,
		"plan_id":       plan.Id,
		"plan_name":     plan.Name,
		"amount_eur":    amountEur,
		"duration_days": plan.DurationDays,
		"status":        "ACTIVE",
		"accrued_eur":   decimal.Zero,
		"start_date":    nowUTC().Format(timeFormat),
	})
	if err != nil {
		// Compensating credit-back: the wallet was debited but no
		// subscription exists, so the funds go back.
		if _, reverseErr := s.ledger.CreditWallet(ctx, userId, payAsset, assetAmount); reverseErr != nil {
			zap.L().Error("Failed to reverse purchase debit",
				zap.String("user_id", userId),
				zap.String("crypto", payAsset),
				zap.Error(reverseErr))
		}
		return nil, err
	}

	var subscription models.Subscription
	if err := models.FromRecord(subRecord, &subscription); err != nil {
		return nil, fmt.Errorf("failed to decode subscription: %w", err)
	}

	txRecord, err := s.docs.Create(ctx, "transactions", store.Record{
		"user_id":   userId,
		"type":      "invest",
		"crypto":    payAsset,
		"amount":    assetAmount,
		"status":    "completed",
		"reference": fmt.Sprintf("%s (%s EUR)", plan.Name, amountEur.String()),
	})
	if err != nil {
		// Unwind the whole purchase: without its transaction record the
		// subscription would accrue against funds that have no audit trail.
		subId, _ := subRecord["id"].(string)
		if _, reverseErr := s.docs.Delete(ctx, "subscriptions", subId); reverseErr != nil {
			zap.L().Error("Failed to remove subscription after transaction write failure",
				zap.String("subscription_id", subId),
				zap.Error(reverseErr))
		}
		if _, reverseErr := s.ledger.CreditWallet(ctx, userId, payAsset, assetAmount); reverseErr != nil {
			zap.L().Error("Failed to reverse purchase debit",
				zap.String("user_id", userId),
				zap.String("crypto", payAsset),
				zap.Error(reverseErr))
		}
		return nil, err
	}

	var tx models.Transaction
	if err := models.FromRecord(txRecord, &tx); err != nil {
		return nil, fmt.Errorf("failed to decode transaction: %w", err)
	}

	zap.L().Info("Subscription purchased",
		zap.String("user_id", userId),
		zap.String("plan", plan.Name),
		zap.String("amount_eur", amountEur.String()),
		zap.String("pay_asset", payAsset),
		zap.String("asset_amount", assetAmount.String()))

	return &models.PurchaseResult{
		Subscription: &subscription,
		Transaction:  &tx,
		Wallet:       wallet,
		AssetAmount:  assetAmount,
	}, nil
}

// GetSubscription returns a subscription by id.
func (s *Service) GetSubscription(ctx context.Context, subscriptionId string) (*models.Subscription, error) {
	record, err := s.docs.Get(ctx, "subscriptions", subscriptionId)
	if err != nil {
		return nil, err
	}

	var subscription models.Subscription
	if err := models.FromRecord(record, &subscription); err != nil {
		return nil, fmt.Errorf("failed to decode subscription: %w", err)
	}
	return &subscription, nil
}

// Close moves an ACTIVE subscription to CLOSED and stamps closed_at.
// Bookkeeping only, there is no payout.
func (s *Service) Close(ctx context.Context, subscriptionId string) (*models.Subscription, error) {
	subscription, err := s.GetSubscription(ctx, subscriptionId)
	if err != nil {
		return nil, err
	}
	if subscription.Status != "ACTIVE" {
		return nil, fmt.Errorf("subscription %s is %s - %w",
			subscriptionId, subscription.Status, store.ErrTerminalState)
	}

	record, err := s.docs.Update(ctx, "subscriptions", subscriptionId, store.Record{
		"status":    "CLOSED",
		"closed_at": nowUTC().Format(timeFormat),
	})
	if err != nil {
		return nil, err
	}
	if err := models.FromRecord(record, subscription); err != nil {
		return nil, fmt.Errorf("failed to decode subscription: %w", err)
	}
	return subscription, nil
}

func validatePlan(plan *models.Plan) error {
	if strings.TrimSpace(plan.Name) == "" {
		return fmt.Errorf("plan name is required - %w", store.ErrValidation)
	}
	if plan.RoiMin.GreaterThan(plan.RoiMax) {
		return fmt.Errorf("roi_min %s > roi_max %s - %w",
			plan.RoiMin.String(), plan.RoiMax.String(), store.ErrValidation)
	}
	if plan.MaxEur.IsPositive() && plan.MinEur.GreaterThan(plan.MaxEur) {
		return fmt.Errorf("min_eur %s > max_eur %s - %w",
			plan.MinEur.String(), plan.MaxEur.String(), store.ErrValidation)
	}
	if plan.DurationDays <= 0 {
		return fmt.Errorf("duration_days must be positive - %w", store.ErrValidation)
	}
	return nil
}
