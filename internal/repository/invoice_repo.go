package repository

import (
	"context"
	"errors"
	"time"

	"neuriax/internal/apperror"
	"neuriax/internal/dto"
	"neuriax/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type InvoiceRepository interface {
	CreateTx(tx *gorm.DB, inv *model.Invoice) error
	FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Invoice, error)
	// FindByIDForUpdateTx takes a row-level lock so that concurrent payment
	// applications against the same invoice are serialized by the database.
	FindByIDForUpdateTx(tx *gorm.DB, tenantID, id uuid.UUID) (*model.Invoice, error)
	UpdateTx(tx *gorm.DB, inv *model.Invoice) error
	CreatePaymentTx(tx *gorm.DB, p *model.Payment) error
	List(ctx context.Context, tenantID uuid.UUID, filter dto.InvoiceFilter) ([]model.Invoice, int64, error)
	ListOverdue(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]model.Invoice, error)
	// MarkOverdue refreshes the reporting materialization for the sweep.
	MarkOverdue(ctx context.Context, now time.Time) (int64, error)
	// Transaction runs fn inside one database transaction.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type invoiceRepo struct{ db *gorm.DB }

func NewInvoiceRepository(db *gorm.DB) InvoiceRepository { return &invoiceRepo{db: db} }

func (r *invoiceRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *invoiceRepo) CreateTx(tx *gorm.DB, inv *model.Invoice) error {
	if err := r.use(tx).Create(inv).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			// Number collision — another creation won the same counter value.
			// Only possible under storage faults; retrying re-allocates.
			return apperror.Concurrency("invoice number already taken", err)
		}
		if isSerializationFailure(err) {
			return apperror.Concurrency("invoice creation lost a race", err)
		}
		return apperror.Persistence(err)
	}
	return nil
}

func (r *invoiceRepo) FindByID(ctx context.Context, tenantID, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.db.WithContext(ctx).
		Preload("Lines").Preload("Payments").
		Where("tenant_id = ?", tenantID).
		First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("invoice %s not found", id)
	}
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return &inv, nil
}

func (r *invoiceRepo) FindByIDForUpdateTx(tx *gorm.DB, tenantID, id uuid.UUID) (*model.Invoice, error) {
	var inv model.Invoice
	err := r.use(tx).
		Clauses(clause.Locking{Strength: "UPDATE"}).
		Where("tenant_id = ?", tenantID).
		First(&inv, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("invoice %s not found", id)
	}
	if err != nil {
		if isSerializationFailure(err) {
			return nil, apperror.Concurrency("invoice row lock lost a race", err)
		}
		return nil, apperror.Persistence(err)
	}
	return &inv, nil
}

func (r *invoiceRepo) UpdateTx(tx *gorm.DB, inv *model.Invoice) error {
	// Save without associations — lines and payments are append-only and
	// written through their own calls.
	if err := r.use(tx).Omit("Lines", "Payments").Save(inv).Error; err != nil {
		if isSerializationFailure(err) {
			return apperror.Concurrency("invoice update lost a race", err)
		}
		return apperror.Persistence(err)
	}
	return nil
}

func (r *invoiceRepo) CreatePaymentTx(tx *gorm.DB, p *model.Payment) error {
	if err := r.use(tx).Create(p).Error; err != nil {
		return apperror.Persistence(err)
	}
	return nil
}

func (r *invoiceRepo) List(ctx context.Context, tenantID uuid.UUID, filter dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	var invoices []model.Invoice
	var total int64

	q := r.db.WithContext(ctx).Model(&model.Invoice{}).Where("tenant_id = ?", tenantID)

	switch filter.Status {
	case "":
		// no filter
	case "overdue":
		// Derived at read time — never trusts the materialized flag alone.
		q = q.Where("status = 'issued' AND payment_status <> 'paid' AND due_date < ?", time.Now())
	case "partial":
		q = q.Where("status = 'issued' AND payment_status = 'partial'")
	default:
		q = q.Where("status = ?", filter.Status)
	}
	if filter.Type != "" {
		q = q.Where("type = ?", filter.Type)
	}
	if filter.From != "" {
		q = q.Where("issue_date >= ?", filter.From)
	}
	if filter.To != "" {
		q = q.Where("issue_date < ?", filter.To)
	}

	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperror.Persistence(err)
	}

	err := q.Preload("Lines").Preload("Payments").
		Order("issue_date DESC, number DESC").
		Offset((filter.Page - 1) * filter.Limit).Limit(filter.Limit).
		Find(&invoices).Error
	if err != nil {
		return nil, 0, apperror.Persistence(err)
	}
	return invoices, total, nil
}

func (r *invoiceRepo) ListOverdue(ctx context.Context, tenantID uuid.UUID, now time.Time) ([]model.Invoice, error) {
	var invoices []model.Invoice
	err := r.db.WithContext(ctx).
		Preload("Lines").Preload("Payments").
		Where("tenant_id = ? AND status = 'issued' AND payment_status <> 'paid' AND due_date < ?", tenantID, now).
		Order("due_date ASC").
		Find(&invoices).Error
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return invoices, nil
}

func (r *invoiceRepo) MarkOverdue(ctx context.Context, now time.Time) (int64, error) {
	res := r.db.WithContext(ctx).
		Model(&model.Invoice{}).
		Where("status = 'issued' AND payment_status <> 'paid' AND due_date < ? AND overdue = false", now).
		Update("overdue", true)
	if res.Error != nil {
		return 0, apperror.Persistence(res.Error)
	}
	return res.RowsAffected, nil
}

func (r *invoiceRepo) use(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
