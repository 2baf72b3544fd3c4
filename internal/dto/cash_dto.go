package dto

import "github.com/shopspring/decimal"

// ─── Request DTOs ────────────────────────────────────────────────────────────

type OpenSessionRequest struct {
	InitialAmount decimal.Decimal `json:"initial_amount" validate:"min=0"`
	Notes         *string         `json:"notes"`
}

type MovementRequest struct {
	SessionID     string          `json:"session_id"     validate:"required,uuid"`
	Type          string          `json:"type"           validate:"required,oneof=sale expense cash_in cash_out"`
	Amount        decimal.Decimal `json:"amount"         validate:"required,gt=0"`
	PaymentMethod string          `json:"payment_method" validate:"required,oneof=cash card transfer"`
	Concept       string          `json:"concept"        validate:"required,min=3"`
	Category      *string         `json:"category"`
}

type ReconcileRequest struct {
	SessionID   string          `json:"session_id"   validate:"required,uuid"`
	CountedCash decimal.Decimal `json:"counted_cash" validate:"min=0"`
	Notes       *string         `json:"notes"`
}

// CloseSessionRequest requires the counted amount — closing never defaults to
// "expected", so real shortfalls are never silently hidden.
type CloseSessionRequest struct {
	SessionID          string          `json:"session_id"           validate:"required,uuid"`
	FinalAmountCounted decimal.Decimal `json:"final_amount_counted" validate:"min=0"`
	Notes              *string         `json:"notes"`
}

// ─── Response DTOs ───────────────────────────────────────────────────────────

type BalanceByMethod struct {
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	Transfer decimal.Decimal `json:"transfer"`
	Total    decimal.Decimal `json:"total"`
}

type MovementResponse struct {
	ID            string          `json:"id"`
	SessionID     string          `json:"session_id"`
	Type          string          `json:"type"`
	Amount        decimal.Decimal `json:"amount"`
	PaymentMethod string          `json:"payment_method"`
	Concept       string          `json:"concept"`
	Category      *string         `json:"category,omitempty"`
	CreatedAt     string          `json:"created_at"`
}

type ReconciliationResponse struct {
	ID           string          `json:"id"`
	SessionID    string          `json:"session_id"`
	ExpectedCash decimal.Decimal `json:"expected_cash"`
	CountedCash  decimal.Decimal `json:"counted_cash"`
	Difference   decimal.Decimal `json:"difference"`
	State        string          `json:"state"` // balanced | surplus | shortfall
	Notes        *string         `json:"notes,omitempty"`
	PerformedAt  string          `json:"performed_at"`
}

type SessionResponse struct {
	ID                 string                  `json:"id"`
	Status             string                  `json:"status"`
	InitialAmount      decimal.Decimal         `json:"initial_amount"`
	Balance            BalanceByMethod         `json:"balance"`
	ExpectedCash       *decimal.Decimal        `json:"expected_cash,omitempty"`
	FinalAmountCounted *decimal.Decimal        `json:"final_amount_counted,omitempty"`
	Difference         *decimal.Decimal        `json:"difference,omitempty"`
	Notes              *string                 `json:"notes,omitempty"`
	Reconciliation     *ReconciliationResponse `json:"reconciliation,omitempty"`
	OpenedAt           string                  `json:"opened_at"`
	ClosedAt           *string                 `json:"closed_at,omitempty"`
}

type SessionListResponse struct {
	Data  []SessionResponse `json:"data"`
	Total int64             `json:"total"`
	Page  int               `json:"page"`
	Limit int               `json:"limit"`
}
