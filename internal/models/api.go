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

package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Quote is one cached spot price in the quote currency
type Quote struct {
	Symbol string          `json:"symbol"`
	Price  decimal.Decimal `json:"price"`
	AsOf   time.Time       `json:"last_update"`
	Source string          `json:"source"` // "upstream" or "fallback"
}

// RateSnapshot is the full response of a rate lookup
type RateSnapshot struct {
	Quote    string           `json:"quote"`
	Rates    map[string]Quote `json:"rates"`
	Cached   bool             `json:"cached"`
	Fallback bool             `json:"fallback"`
	Age      time.Duration    `json:"-"`
}

// ApprovalResult represents the outcome of an admin transaction action
type ApprovalResult struct {
	Transaction *Transaction     `json:"transaction"`
	Wallet      *Wallet          `json:"wallet,omitempty"`
	NewBalance  *decimal.Decimal `json:"new_balance,omitempty"`
}

// ExchangeResult captures both wallet movements of an exchange
type ExchangeResult struct {
	Transaction *Transaction    `json:"transaction"`
	Debited     *Wallet         `json:"debited"`
	Credited    *Wallet         `json:"credited"`
	FeeAmount   decimal.Decimal `json:"fee_amount"`
}

// PurchaseResult captures a subscription purchase
type PurchaseResult struct {
	Subscription *Subscription   `json:"subscription"`
	Transaction  *Transaction    `json:"transaction"`
	Wallet       *Wallet         `json:"wallet"`
	AssetAmount  decimal.Decimal `json:"asset_amount"`
}

// AccrualSummary is the per-run result of the daily accrual batch
type AccrualSummary struct {
	Processed    int             `json:"processed"`
	Skipped      int             `json:"skipped"`
	Failed       int             `json:"failed"`
	TotalCredits decimal.Decimal `json:"total_credits_eur"`
	RunAt        time.Time       `json:"run_at"`
}
