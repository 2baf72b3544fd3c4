package repository

import (
	"context"
	"errors"

	"neuriax/internal/apperror"
	"neuriax/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CashRepository interface {
	// CreateSession inserts a new open session. The partial unique index
	// (tenant_id) WHERE status='open' makes check-and-create atomic: a race
	// between two terminals surfaces as ErrDuplicatedKey, never as two open
	// sessions.
	CreateSession(ctx context.Context, s *model.CashSession) error
	FindOpenSession(ctx context.Context, tenantID uuid.UUID) (*model.CashSession, error)
	FindSessionByID(ctx context.Context, tenantID, id uuid.UUID) (*model.CashSession, error)
	// CloseSessionTx seals a session. The status guard in its WHERE clause
	// makes the terminal transition atomic: of two racing closes exactly one
	// matches the open row, the other gets SessionNotOpen.
	CloseSessionTx(tx *gorm.DB, s *model.CashSession) error
	CreateMovement(ctx context.Context, m *model.CashMovement) error
	ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error)
	SumMovementsByMethod(ctx context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error)
	CreateReconciliation(ctx context.Context, r *model.ReconciliationRecord) error
	CreateReconciliationTx(tx *gorm.DB, r *model.ReconciliationRecord) error
	ListSessions(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.CashSession, int64, error)
	// Transaction runs fn inside one database transaction.
	Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error
}

type cashRepo struct{ db *gorm.DB }

func NewCashRepository(db *gorm.DB) CashRepository { return &cashRepo{db: db} }

func (r *cashRepo) Transaction(ctx context.Context, fn func(tx *gorm.DB) error) error {
	return r.db.WithContext(ctx).Transaction(fn)
}

func (r *cashRepo) CreateSession(ctx context.Context, s *model.CashSession) error {
	if err := r.db.WithContext(ctx).Create(s).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return apperror.StateConflict(apperror.CodeSessionAlreadyOpen,
				"an open cash session already exists for this tenant")
		}
		return apperror.Persistence(err)
	}
	return nil
}

func (r *cashRepo) FindOpenSession(ctx context.Context, tenantID uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = 'open'", tenantID).
		First(&s).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return &s, nil
}

func (r *cashRepo) FindSessionByID(ctx context.Context, tenantID, id uuid.UUID) (*model.CashSession, error) {
	var s model.CashSession
	err := r.db.WithContext(ctx).
		Where("tenant_id = ?", tenantID).
		First(&s, "id = ?", id).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.NotFound("cash session %s not found", id)
	}
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return &s, nil
}

func (r *cashRepo) CloseSessionTx(tx *gorm.DB, s *model.CashSession) error {
	res := r.use(tx).Model(&model.CashSession{}).
		Where("id = ? AND status = 'open'", s.ID).
		Updates(map[string]interface{}{
			"status":               s.Status,
			"expected_cash":        s.ExpectedCash,
			"final_amount_counted": s.FinalAmountCounted,
			"difference":           s.Difference,
			"notes":                s.Notes,
			"closed_by":            s.ClosedBy,
			"closed_at":            s.ClosedAt,
		})
	if res.Error != nil {
		return apperror.Persistence(res.Error)
	}
	if res.RowsAffected == 0 {
		// Another close won the race between our read and this write.
		return apperror.StateConflict(apperror.CodeSessionNotOpen,
			"session %s is no longer open", s.ID)
	}
	return nil
}

func (r *cashRepo) CreateMovement(ctx context.Context, m *model.CashMovement) error {
	if err := r.db.WithContext(ctx).Create(m).Error; err != nil {
		return apperror.Persistence(err)
	}
	return nil
}

func (r *cashRepo) ListMovements(ctx context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	var movs []model.CashMovement
	err := r.db.WithContext(ctx).
		Where("session_id = ?", sessionID).
		Order("created_at ASC").
		Find(&movs).Error
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return movs, nil
}

func (r *cashRepo) SumMovementsByMethod(ctx context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	rows := []struct {
		PaymentMethod string
		Total         decimal.Decimal
	}{}
	err := r.db.WithContext(ctx).
		Model(&model.CashMovement{}).
		Select("payment_method, COALESCE(SUM(amount), 0) AS total").
		Where("session_id = ?", sessionID).
		Group("payment_method").
		Scan(&rows).Error
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	sums := map[string]decimal.Decimal{
		"cash":     decimal.Zero,
		"card":     decimal.Zero,
		"transfer": decimal.Zero,
	}
	for _, row := range rows {
		sums[row.PaymentMethod] = row.Total
	}
	return sums, nil
}

func (r *cashRepo) CreateReconciliation(ctx context.Context, rec *model.ReconciliationRecord) error {
	if err := r.db.WithContext(ctx).Create(rec).Error; err != nil {
		return apperror.Persistence(err)
	}
	return nil
}

func (r *cashRepo) CreateReconciliationTx(tx *gorm.DB, rec *model.ReconciliationRecord) error {
	if err := r.use(tx).Create(rec).Error; err != nil {
		return apperror.Persistence(err)
	}
	return nil
}

func (r *cashRepo) ListSessions(ctx context.Context, tenantID uuid.UUID, page, limit int) ([]model.CashSession, int64, error) {
	var sessions []model.CashSession
	var total int64
	q := r.db.WithContext(ctx).Model(&model.CashSession{}).Where("tenant_id = ?", tenantID)
	if err := q.Count(&total).Error; err != nil {
		return nil, 0, apperror.Persistence(err)
	}
	err := q.Order("opened_at DESC").
		Offset((page - 1) * limit).Limit(limit).
		Find(&sessions).Error
	if err != nil {
		return nil, 0, apperror.Persistence(err)
	}
	return sessions, total, nil
}

// use returns tx when the caller is inside a transaction, else the base DB.
func (r *cashRepo) use(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return r.db
}
