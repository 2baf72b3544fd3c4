package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CashSession represents one open-to-close working period of a till.
// Status: "open" | "closed"
// At most one open session exists per tenant at any instant — enforced by a
// partial unique index on (tenant_id) WHERE status = 'open' (see infra).
type CashSession struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID      uuid.UUID       `gorm:"type:uuid;not null;index"`
	Status        string          `gorm:"type:varchar(10);not null;default:'open'"`
	InitialAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	// ExpectedCash / FinalAmountCounted / Difference are stamped on close by
	// the implicit reconciliation.
	ExpectedCash       *decimal.Decimal `gorm:"type:decimal(12,2)"`
	FinalAmountCounted *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Difference         *decimal.Decimal `gorm:"type:decimal(12,2)"`
	Notes              *string
	OpenedBy           uuid.UUID  `gorm:"type:uuid;not null"`
	ClosedBy           *uuid.UUID `gorm:"type:uuid"`
	OpenedAt           time.Time
	ClosedAt           *time.Time

	Movements []CashMovement `gorm:"foreignKey:SessionID"`
}

// CashMovement is an immutable event in the session ledger.
// Type: "sale" | "expense" | "cash_in" | "cash_out"
// Amount is stored signed (sale/cash_in positive, expense/cash_out negative);
// callers supply magnitude and the service applies the sign.
// Movements are NEVER modified or deleted — corrections are new compensating
// movements.
type CashMovement struct {
	ID            uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID     uuid.UUID       `gorm:"type:uuid;index;not null"`
	Type          string          `gorm:"type:varchar(10);not null"`
	Amount        decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	PaymentMethod string          `gorm:"type:varchar(10);not null"` // cash | card | transfer
	Concept       string          `gorm:"not null"`
	// Category classifies expenses (supplies, rent, …); empty otherwise.
	Category  *string `gorm:"type:varchar(40)"`
	CreatedBy uuid.UUID `gorm:"type:uuid;not null"`
	CreatedAt time.Time
}

// ReconciliationRecord (arqueo) compares counted physical cash against the
// ledger-expected cash. State: "balanced" | "surplus" | "shortfall", derived
// from the sign of Difference. A record may be produced mid-session as a spot
// check, or implicitly on close.
type ReconciliationRecord struct {
	ID           uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	SessionID    uuid.UUID       `gorm:"type:uuid;index;not null"`
	ExpectedCash decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	CountedCash  decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Difference   decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	State        string          `gorm:"type:varchar(10);not null"`
	Notes        *string
	PerformedBy  uuid.UUID `gorm:"type:uuid;not null"`
	PerformedAt  time.Time
}
