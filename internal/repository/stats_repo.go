package repository

import (
	"context"
	"time"

	"neuriax/internal/apperror"
	"neuriax/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// CashTotals is the movement rollup for a date range.
type CashTotals struct {
	In       decimal.Decimal
	Out      decimal.Decimal
	ByMethod map[string]decimal.Decimal
	Sessions int64
}

// InvoiceTotals is the invoicing rollup for a date range.
type InvoiceTotals struct {
	Invoiced  decimal.Decimal
	Collected decimal.Decimal
	Count     int64
}

// OverdueAgingRow buckets overdue invoices by days past due.
type OverdueAgingRow struct {
	Bucket      string
	Count       int64
	Outstanding decimal.Decimal
}

// StatsRepository serves read-only rollups. No invariants of its own — it
// only ever reads committed CashLedger/InvoiceEngine state.
type StatsRepository interface {
	CashTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*CashTotals, error)
	InvoiceTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*InvoiceTotals, error)
	OverdueAging(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]OverdueAgingRow, error)
}

type statsRepo struct{ db *gorm.DB }

func NewStatsRepository(db *gorm.DB) StatsRepository { return &statsRepo{db: db} }

func (r *statsRepo) CashTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*CashTotals, error) {
	rows := []struct {
		PaymentMethod string
		In            decimal.Decimal
		Out           decimal.Decimal
	}{}
	err := r.db.WithContext(ctx).Raw(`
		SELECT m.payment_method,
		       COALESCE(SUM(m.amount) FILTER (WHERE m.amount > 0), 0) AS in,
		       COALESCE(-SUM(m.amount) FILTER (WHERE m.amount < 0), 0) AS out
		FROM cash_movements m
		JOIN cash_sessions s ON s.id = m.session_id
		WHERE s.tenant_id = ? AND m.created_at >= ? AND m.created_at < ?
		GROUP BY m.payment_method
	`, tenantID, from, to).Scan(&rows).Error
	if err != nil {
		return nil, apperror.Persistence(err)
	}

	totals := &CashTotals{ByMethod: map[string]decimal.Decimal{
		"cash": decimal.Zero, "card": decimal.Zero, "transfer": decimal.Zero,
	}}
	for _, row := range rows {
		totals.In = totals.In.Add(row.In)
		totals.Out = totals.Out.Add(row.Out)
		totals.ByMethod[row.PaymentMethod] = row.In.Sub(row.Out)
	}

	err = r.db.WithContext(ctx).
		Model(&model.CashSession{}).
		Where("tenant_id = ? AND opened_at >= ? AND opened_at < ?", tenantID, from, to).
		Count(&totals.Sessions).Error
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return totals, nil
}

func (r *statsRepo) InvoiceTotals(ctx context.Context, tenantID uuid.UUID, from, to time.Time) (*InvoiceTotals, error) {
	row := struct {
		Invoiced  decimal.Decimal
		Collected decimal.Decimal
		Count     int64
	}{}
	// Void invoices are excluded: they no longer represent expected revenue.
	err := r.db.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(total), 0)       AS invoiced,
		       COALESCE(SUM(amount_paid), 0) AS collected,
		       COUNT(*)                      AS count
		FROM invoices
		WHERE tenant_id = ? AND status <> 'void'
		  AND issue_date >= ? AND issue_date < ?
	`, tenantID, from, to).Scan(&row).Error
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return &InvoiceTotals{Invoiced: row.Invoiced, Collected: row.Collected, Count: row.Count}, nil
}

func (r *statsRepo) OverdueAging(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]OverdueAgingRow, error) {
	rows := []OverdueAgingRow{}
	err := r.db.WithContext(ctx).Raw(`
		SELECT CASE
		         WHEN ? - due_date <= INTERVAL '30 days' THEN '0-30'
		         WHEN ? - due_date <= INTERVAL '60 days' THEN '31-60'
		         WHEN ? - due_date <= INTERVAL '90 days' THEN '61-90'
		         ELSE '90+'
		       END AS bucket,
		       COUNT(*) AS count,
		       COALESCE(SUM(total - amount_paid), 0) AS outstanding
		FROM invoices
		WHERE tenant_id = ? AND status = 'issued'
		  AND payment_status <> 'paid' AND due_date < ?
		GROUP BY bucket
		ORDER BY bucket
	`, now, now, now, tenantID, now).Scan(&rows).Error
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return rows, nil
}
