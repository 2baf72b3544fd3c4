package infra

import (
	"fmt"

	"neuriax/internal/model"

	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// NewDatabase establishes a GORM connection backed by pgx, runs AutoMigrate to
// create / update all tables, then applies the idempotent SQL patches that GORM
// cannot express (partial unique indexes in particular).
//
// TranslateError is on so unique violations surface as gorm.ErrDuplicatedKey,
// which the repositories map to domain conflicts.
func NewDatabase(dsn string) (*gorm.DB, error) {
	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger:         logger.Default.LogMode(logger.Silent),
		TranslateError: true,
	})
	if err != nil {
		return nil, err
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, err
	}
	sqlDB.SetMaxOpenConns(25)
	sqlDB.SetMaxIdleConns(5)

	if err := RunMigrations(db); err != nil {
		return nil, err
	}
	return db, nil
}

// RunMigrations applies AutoMigrate plus the manual patches. Exposed so
// integration tests can bring up a schema on a fresh database.
func RunMigrations(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&model.Tenant{},
		&model.User{},
		&model.CashSession{},
		&model.CashMovement{},
		&model.ReconciliationRecord{},
		&model.Invoice{},
		&model.InvoiceLine{},
		&model.Payment{},
		&model.SequenceCounter{},
	); err != nil {
		return fmt.Errorf("AutoMigrate: %w", err)
	}
	return applySchemaPatches(db)
}

// applySchemaPatches runs idempotent DDL that AutoMigrate cannot express.
// The partial unique index is what actually enforces the one-open-session
// rule under concurrency; the service-level check only improves the error
// message.
func applySchemaPatches(db *gorm.DB) error {
	patches := []string{
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_cash_sessions_one_open') THEN
		    CREATE UNIQUE INDEX idx_cash_sessions_one_open
		        ON cash_sessions (tenant_id)
		        WHERE status = 'open';
		  END IF;
		END $$`,
		// overdue sweep scans unpaid issued invoices by due date
		`DO $$ BEGIN
		  IF NOT EXISTS (SELECT 1 FROM pg_indexes WHERE indexname = 'idx_invoices_unpaid_due') THEN
		    CREATE INDEX idx_invoices_unpaid_due
		        ON invoices (due_date)
		        WHERE status = 'issued' AND payment_status <> 'paid';
		  END IF;
		END $$`,
	}

	for _, sql := range patches {
		if err := db.Exec(sql).Error; err != nil {
			return fmt.Errorf("patch %q: %w", sql[:min(len(sql), 60)], err)
		}
	}
	return nil
}
