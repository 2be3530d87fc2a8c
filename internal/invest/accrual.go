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
	"fmt"
	"time"

	"invest-platform-go/internal/collections"
	"invest-platform-go/internal/models"
	"invest-platform-go/internal/store"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	timeFormat = time.RFC3339
	dateFormat = "2006-01-02"
)

var (
	hundred     = decimal.NewFromInt(100)
	daysInCycle = decimal.NewFromInt(30)
)

// dailyRate is the plan's daily yield fraction: the midpoint of the monthly
// ROI band divided by 100 and spread over a 30-day cycle.
func dailyRate(plan *models.Plan) decimal.Decimal {
	midpoint := plan.RoiMin.Add(plan.RoiMax).Div(decimal.NewFromInt(2))
	return midpoint.Div(hundred).Div(daysInCycle)
}

// RunDailyAccrual credits one day of yield to every ACTIVE subscription.
// A subscription already accrued today (by last_accrued_date, UTC) is
// skipped, which makes re-running the batch within a day harmless. Failures
// on individual subscriptions are logged and counted but do not stop the
// run.
func (s *Service) RunDailyAccrual(ctx context.Context) (*models.AccrualSummary, error) {
	records, err := s.docs.List(ctx, "subscriptions", collections.Filter{})
	if err != nil {
		return nil, fmt.Errorf("failed to list subscriptions - %w", err)
	}

	today := nowUTC().Format(dateFormat)
	summary := &models.AccrualSummary{
		TotalCredits: decimal.Zero,
		RunAt:        nowUTC(),
	}
	plans := map[string]*models.Plan{}

	for _, record := range records {
		var subscription models.Subscription
		if err := models.FromRecord(record, &subscription); err != nil {
			zap.L().Warn("Skipping undecodable subscription", zap.Error(err))
			summary.Failed++
			continue
		}

		if subscription.Status != "ACTIVE" {
			continue
		}
		if subscription.LastAccruedDate == today {
			summary.Skipped++
			continue
		}

		plan, cached := plans[subscription.PlanId]
		if !cached {
			plan, err = s.GetPlan(ctx, subscription.PlanId)
			if err != nil {
				zap.L().Warn("Subscription references unknown plan",
					zap.String("subscription_id", subscription.Id),
					zap.String("plan_id", subscription.PlanId),
					zap.Error(err))
				summary.Failed++
				continue
			}
			plans[subscription.PlanId] = plan
		}

		gain := subscription.AmountEur.Mul(dailyRate(plan)).Round(8)
		newAccrued := subscription.AccruedEur.Add(gain)

		_, err := s.docs.Update(ctx, "subscriptions", subscription.Id, store.Record{
			"accrued_eur":       newAccrued,
			"last_accrued_date": today,
		})
		if err != nil {
			zap.L().Error("Failed to accrue subscription",
				zap.String("subscription_id", subscription.Id),
				zap.Error(err))
			summary.Failed++
			continue
		}

		summary.Processed++
		summary.TotalCredits = summary.TotalCredits.Add(gain)
	}

	zap.L().Info("Daily accrual complete",
		zap.Int("processed", summary.Processed),
		zap.Int("skipped", summary.Skipped),
		zap.Int("failed", summary.Failed),
		zap.String("total_credits_eur", summary.TotalCredits.String()))
	return summary, nil
}

func nowUTC() time.Time {
	return time.Now().UTC()
}
