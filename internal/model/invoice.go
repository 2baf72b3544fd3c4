package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Invoice is the billing document.
// Type: "ordinary" | "simplified" | "proforma" | "corrective"
// Status: "issued" | "paid" | "void"  — "overdue" is a view over issued/partial
// with an elapsed due date, never a persisted status.
// PaymentStatus: "pending" | "partial" | "paid"
//
// Number is assigned once at creation (same transaction as the sequence
// allocation) and never reassigned. Totals are recomputed deterministically
// from lines + tax rate + global discount at creation; they are never edited
// afterwards. A void invoice accepts no further payments and its lines and
// totals are frozen.
type Invoice struct {
	ID       uuid.UUID `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	TenantID uuid.UUID `gorm:"type:uuid;not null;uniqueIndex:idx_invoices_tenant_number,priority:1"`
	Number   string    `gorm:"type:varchar(20);not null;uniqueIndex:idx_invoices_tenant_number,priority:2"`
	Type     string    `gorm:"type:varchar(12);not null"`

	Status        string `gorm:"type:varchar(10);not null;default:'issued'"`
	PaymentStatus string `gorm:"type:varchar(10);not null;default:'pending'"`

	IssueDate time.Time `gorm:"not null"`
	DueDate   time.Time `gorm:"not null"`

	// Customer snapshot — captured at issue time, not a live reference.
	CustomerName    string  `gorm:"not null"`
	CustomerTaxID   *string `gorm:"type:varchar(20)"`
	CustomerAddress *string
	CustomerEmail   *string

	Currency          string          `gorm:"type:varchar(3);not null;default:'EUR'"`
	TaxRateCode       string          `gorm:"type:varchar(15);not null"`
	TaxRatePct        decimal.Decimal `gorm:"type:decimal(5,2);not null"`
	GlobalDiscountPct decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`

	Subtotal       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	DiscountAmount decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxableBase    decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	TaxAmount      decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Total          decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	AmountPaid     decimal.Decimal `gorm:"type:decimal(12,2);not null;default:0"`

	Notes      *string
	VoidReason *string

	// Overdue is a reporting materialization refreshed by the periodic sweep.
	// Read queries derive the effective status from DueDate regardless.
	Overdue bool `gorm:"not null;default:false"`

	CreatedAt time.Time
	UpdatedAt time.Time

	Lines    []InvoiceLine `gorm:"foreignKey:InvoiceID"`
	Payments []Payment     `gorm:"foreignKey:InvoiceID"`
}

// EffectiveStatus derives "overdue" at read time: an unpaid, non-void invoice
// whose due date has elapsed.
func (i *Invoice) EffectiveStatus(now time.Time) string {
	if i.Status == "issued" && i.PaymentStatus != "paid" && i.DueDate.Before(now) {
		return "overdue"
	}
	return i.Status
}

// InvoiceLine is a priced line. Base = quantity × unit_price × (1 − discount/100),
// kept at the rounded 2-digit representation of the full-precision value.
type InvoiceLine struct {
	ID              uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InvoiceID       uuid.UUID       `gorm:"type:uuid;index;not null"`
	Description     string          `gorm:"not null"`
	Quantity        decimal.Decimal `gorm:"type:decimal(12,3);not null"`
	UnitPrice       decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	LineDiscountPct decimal.Decimal `gorm:"type:decimal(5,2);not null;default:0"`
	Base            decimal.Decimal `gorm:"type:decimal(12,2);not null"`
}

// Payment is an append-only receipt against an invoice. The sum of a given
// invoice's payments never exceeds its total.
type Payment struct {
	ID         uuid.UUID       `gorm:"type:uuid;primaryKey;default:gen_random_uuid()"`
	InvoiceID  uuid.UUID       `gorm:"type:uuid;index;not null"`
	Amount     decimal.Decimal `gorm:"type:decimal(12,2);not null"`
	Method     string          `gorm:"type:varchar(10);not null"` // cash | card | transfer
	Reference  *string         `gorm:"type:varchar(80)"`
	ReceivedAt time.Time
}
