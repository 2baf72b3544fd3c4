package dto

import "github.com/shopspring/decimal"

// StatsFilter bounds a statistics query to a tenant-local date range.
type StatsFilter struct {
	From string `form:"from"` // YYYY-MM-DD, inclusive
	To   string `form:"to"`   // YYYY-MM-DD, exclusive
}

type MethodBreakdown struct {
	Cash     decimal.Decimal `json:"cash"`
	Card     decimal.Decimal `json:"card"`
	Transfer decimal.Decimal `json:"transfer"`
}

// OverdueAgingBucket groups overdue invoices by days elapsed past due date.
type OverdueAgingBucket struct {
	Bucket string          `json:"bucket"` // 0-30 | 31-60 | 61-90 | 90+
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"` // outstanding (total − paid)
}

type StatsResponse struct {
	From string `json:"from"`
	To   string `json:"to"`

	// Cash ledger rollups
	CashIn    decimal.Decimal `json:"cash_in"`
	CashOut   decimal.Decimal `json:"cash_out"`
	NetCash   decimal.Decimal `json:"net_cash"`
	ByMethod  MethodBreakdown `json:"by_method"`
	Sessions  int64           `json:"sessions"`

	// Invoicing rollups
	InvoicedTotal  decimal.Decimal      `json:"invoiced_total"`
	CollectedTotal decimal.Decimal      `json:"collected_total"`
	CollectionRate decimal.Decimal      `json:"collection_rate"` // collected / invoiced, 4 decimals
	InvoiceCount   int64                `json:"invoice_count"`
	OverdueAging   []OverdueAgingBucket `json:"overdue_aging"`
}
