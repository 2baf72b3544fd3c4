package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type CustomerSnapshotRequest struct {
	Name    string  `json:"name"    validate:"required,min=2"`
	TaxID   *string `json:"tax_id"`
	Address *string `json:"address"`
	Email   *string `json:"email"   validate:"omitempty,email"`
}

type InvoiceLineRequest struct {
	Description     string          `json:"description"       validate:"required,min=1"`
	Quantity        decimal.Decimal `json:"quantity"          validate:"required,gt=0"`
	UnitPrice       decimal.Decimal `json:"unit_price"        validate:"min=0"`
	LineDiscountPct decimal.Decimal `json:"line_discount_pct" validate:"min=0,max=100"`
}

type CreateInvoiceRequest struct {
	Type              string                  `json:"type"                validate:"required,oneof=ordinary simplified proforma corrective"`
	Customer          CustomerSnapshotRequest `json:"customer"            validate:"required"`
	Lines             []InvoiceLineRequest    `json:"lines"               validate:"required,min=1,dive"`
	TaxRateCode       string                  `json:"tax_rate_code"       validate:"required"`
	GlobalDiscountPct decimal.Decimal         `json:"global_discount_pct" validate:"min=0,max=100"`
	DueInDays         int                     `json:"due_in_days"         validate:"min=0"`
	Notes             *string                 `json:"notes"`
}

type ApplyPaymentRequest struct {
	Amount decimal.Decimal `json:"amount"    validate:"required,gt=0"`
	Method string          `json:"method"    validate:"required,oneof=cash card transfer"`
	// Reference carries the external gateway charge id for card payments.
	Reference *string `json:"reference"`
}

type VoidInvoiceRequest struct {
	Reason string `json:"reason" validate:"required,min=3"`
}

type InvoiceFilter struct {
	Status string `form:"status" validate:"omitempty,oneof=issued partial paid overdue void"`
	Type   string `form:"type"   validate:"omitempty,oneof=ordinary simplified proforma corrective"`
	From   string `form:"from"` // YYYY-MM-DD
	To     string `form:"to"`
	Page   int    `form:"page,default=1"   validate:"min=1"`
	Limit  int    `form:"limit,default=50" validate:"min=1,max=200"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type InvoiceLineResponse struct {
	ID              string          `json:"id"`
	Description     string          `json:"description"`
	Quantity        decimal.Decimal `json:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price"`
	LineDiscountPct decimal.Decimal `json:"line_discount_pct"`
	Base            decimal.Decimal `json:"base"`
}

type PaymentResponse struct {
	ID         string          `json:"id"`
	InvoiceID  string          `json:"invoice_id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Reference  *string         `json:"reference,omitempty"`
	ReceivedAt string          `json:"received_at"`
}

type InvoiceResponse struct {
	ID                string                `json:"id"`
	Number            string                `json:"number"`
	Type              string                `json:"type"`
	Status            string                `json:"status"` // effective — may report "overdue"
	PaymentStatus     string                `json:"payment_status"`
	IssueDate         string                `json:"issue_date"`
	DueDate           string                `json:"due_date"`
	CustomerName      string                `json:"customer_name"`
	CustomerTaxID     *string               `json:"customer_tax_id,omitempty"`
	CustomerAddress   *string               `json:"customer_address,omitempty"`
	Currency          string                `json:"currency"`
	TaxRateCode       string                `json:"tax_rate_code"`
	TaxRatePct        decimal.Decimal       `json:"tax_rate_pct"`
	GlobalDiscountPct decimal.Decimal       `json:"global_discount_pct"`
	Subtotal          decimal.Decimal       `json:"subtotal"`
	DiscountAmount    decimal.Decimal       `json:"discount_amount"`
	TaxableBase       decimal.Decimal       `json:"taxable_base"`
	TaxAmount         decimal.Decimal       `json:"tax_amount"`
	Total             decimal.Decimal       `json:"total"`
	AmountPaid        decimal.Decimal       `json:"amount_paid"`
	Notes             *string               `json:"notes,omitempty"`
	VoidReason        *string               `json:"void_reason,omitempty"`
	Lines             []InvoiceLineResponse `json:"lines"`
	Payments          []PaymentResponse     `json:"payments"`
	CreatedAt         string                `json:"created_at"`
}

type InvoiceListResponse struct {
	Data  []InvoiceResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
