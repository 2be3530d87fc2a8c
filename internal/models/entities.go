package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// User represents a platform account (admin or client)
type User struct {
	Id           string    `json:"id"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"password_hash,omitempty"`
	Role         string    `json:"role"`
	Status       string    `json:"status"`
	FullName     string    `json:"full_name,omitempty"`
	Phone        string    `json:"phone,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at,omitempty"`
}

// Wallet represents current balance state for one (user, crypto) pair.
// One wallet per pair, created lazily on first credit.
type Wallet struct {
	Id        string          `json:"id"`
	UserId    string          `json:"user_id"`
	Crypto    string          `json:"crypto"`
	Balance   decimal.Decimal `json:"balance"`
	UpdatedAt time.Time       `json:"updated_at"`
}

// Transaction represents a deposit/withdraw/exchange/invest record moving
// through the lifecycle state machine.
type Transaction struct {
	Id           string          `json:"id"`
	UserId       string          `json:"user_id"`
	Type         string          `json:"type"`
	Crypto       string          `json:"crypto"` // symbol, or "FROM-TO" for exchanges
	Amount       decimal.Decimal `json:"amount"`
	Status       string          `json:"status"`
	TxHash       string          `json:"tx_hash,omitempty"`
	RejectReason string          `json:"reject_reason,omitempty"`
	Reference    string          `json:"reference,omitempty"`
	FeePct       decimal.Decimal `json:"fee_pct,omitempty"`
	FeeAmount    decimal.Decimal `json:"fee_amount,omitempty"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at,omitempty"`
}

// Plan is an admin-defined investment offer
type Plan struct {
	Id           string          `json:"id"`
	Name         string          `json:"name"`
	RoiMin       decimal.Decimal `json:"roi_min"`
	RoiMax       decimal.Decimal `json:"roi_max"`
	MinEur       decimal.Decimal `json:"min_eur"`
	MaxEur       decimal.Decimal `json:"max_eur"`
	DurationDays int             `json:"duration_days"`
	RefAsset     string          `json:"ref_asset,omitempty"`
	Status       string          `json:"status"`
	CreatedAt    time.Time       `json:"created_at"`
	UpdatedAt    time.Time       `json:"updated_at,omitempty"`
}

// Subscription is a client's investment against a plan. Plan name and
// duration are denormalized at purchase time and not kept in sync with
// later plan edits.
type Subscription struct {
	Id              string          `json:"id"`
	UserId          string          `json:"user_id"`
	PlanId          string          `json:"plan_id"`
	PlanName        string          `json:"plan_name"`
	AmountEur       decimal.Decimal `json:"amount_eur"`
	DurationDays    int             `json:"duration_days"`
	Status          string          `json:"status"`
	AccruedEur      decimal.Decimal `json:"accrued_eur"`
	StartDate       time.Time       `json:"start_date"`
	ClosedAt        *time.Time      `json:"closed_at,omitempty"`
	LastAccruedDate string          `json:"last_accrued_date,omitempty"` // UTC YYYY-MM-DD
	UpdatedAt       time.Time       `json:"updated_at,omitempty"`
}

// Settings is the singleton application settings record (id "app-settings")
type Settings struct {
	Id               string                     `json:"id"`
	ExchangeFeePct   decimal.Decimal            `json:"exchange_fee_pct"`
	WithdrawalFees   map[string]decimal.Decimal `json:"withdrawal_fees"`
	DepositAddresses map[string]string          `json:"deposit_addresses"`
	UpdatedAt        time.Time                  `json:"updated_at,omitempty"`
}

// Notification is a user-scoped message with a read flag
type Notification struct {
	Id        string    `json:"id"`
	UserId    string    `json:"user_id"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	Read      bool      `json:"read"`
	CreatedAt time.Time `json:"created_at"`
}

// AuditEntry is one append-only audit trail record written alongside
// creates on sensitive collections.
type AuditEntry struct {
	Id         string         `json:"id"`
	Action     string         `json:"action"`
	Collection string         `json:"collection"`
	ItemId     string         `json:"item_id"`
	Actor      string         `json:"actor,omitempty"`
	Payload    map[string]any `json:"payload,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
}
