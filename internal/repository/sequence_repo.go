package repository

import (
	"errors"

	"neuriax/internal/apperror"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"
)

// SequenceRepository allocates document numbers. NextTx is a single
// increment-and-read statement — never "read current then write next" as two
// steps — so it is linearizable per (tenant, type, period). It must run inside
// the same transaction that persists the document: if the transaction rolls
// back, the allocation rolls back with it and no number is skipped.
type SequenceRepository interface {
	NextTx(tx *gorm.DB, tenantID uuid.UUID, documentType, periodKey string) (int64, error)
}

type sequenceRepo struct{ db *gorm.DB }

func NewSequenceRepository(db *gorm.DB) SequenceRepository { return &sequenceRepo{db: db} }

func (r *sequenceRepo) NextTx(tx *gorm.DB, tenantID uuid.UUID, documentType, periodKey string) (int64, error) {
	db := tx
	if db == nil {
		db = r.db
	}
	var next int64
	err := db.Raw(`
		INSERT INTO sequence_counters (tenant_id, document_type, period_key, next_value)
		VALUES (?, ?, ?, 1)
		ON CONFLICT (tenant_id, document_type, period_key)
		DO UPDATE SET next_value = sequence_counters.next_value + 1
		RETURNING next_value
	`, tenantID, documentType, periodKey).Scan(&next).Error
	if err != nil {
		if isSerializationFailure(err) {
			return 0, apperror.Concurrency("sequence allocation lost a race", err)
		}
		return 0, apperror.Persistence(err)
	}
	return next, nil
}

// isSerializationFailure detects PostgreSQL serialization (40001) and
// deadlock (40P01) aborts, which are safe to retry from scratch.
func isSerializationFailure(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "40001" || pgErr.Code == "40P01"
	}
	return false
}
