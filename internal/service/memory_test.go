package service_test

// In-memory repository fakes shared by the service tests. All fakes are
// mutex-guarded so concurrency tests exercise the same at-most-once semantics
// the database constraints provide in production.

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"neuriax/internal/apperror"
	"neuriax/internal/dto"
	"neuriax/internal/model"
	"neuriax/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// ── Cash repository fake ──────────────────────────────────────────────────────

type memCashRepo struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	sessions map[uuid.UUID]*model.CashSession
	movs     []model.CashMovement
	recs     []model.ReconciliationRecord
}

func newMemCashRepo() *memCashRepo {
	return &memCashRepo{sessions: make(map[uuid.UUID]*model.CashSession)}
}

var _ repository.CashRepository = (*memCashRepo)(nil)

// Transaction serializes whole transactions the way the database does, so
// concurrent callers interleave between transactions, never inside one.
func (r *memCashRepo) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(nil)
}

// CreateSession mirrors the partial unique index: the open-check and the
// insert happen under one lock.
func (r *memCashRepo) CreateSession(_ context.Context, s *model.CashSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.sessions {
		if existing.TenantID == s.TenantID && existing.Status == "open" {
			return apperror.StateConflict(apperror.CodeSessionAlreadyOpen,
				"an open cash session already exists for this tenant")
		}
	}
	if s.ID == uuid.Nil {
		s.ID = uuid.New()
	}
	r.sessions[s.ID] = s
	return nil
}

// Reads return copies: mutations only land through the status-guarded close,
// like the real repository where writes go through the transaction.
func (r *memCashRepo) FindOpenSession(_ context.Context, tenantID uuid.UUID) (*model.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, s := range r.sessions {
		if s.TenantID == tenantID && s.Status == "open" {
			cp := *s
			return &cp, nil
		}
	}
	return nil, nil
}

func (r *memCashRepo) FindSessionByID(_ context.Context, tenantID, id uuid.UUID) (*model.CashSession, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	s, ok := r.sessions[id]
	if !ok || s.TenantID != tenantID {
		return nil, apperror.NotFound("cash session %s not found", id)
	}
	cp := *s
	return &cp, nil
}

// CloseSessionTx mirrors the conditional UPDATE ... WHERE status = 'open':
// the guard and the write happen under one lock.
func (r *memCashRepo) CloseSessionTx(_ *gorm.DB, s *model.CashSession) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.sessions[s.ID]
	if !ok || stored.Status != "open" {
		return apperror.StateConflict(apperror.CodeSessionNotOpen,
			"session %s is no longer open", s.ID)
	}
	cp := *s
	r.sessions[s.ID] = &cp
	return nil
}

func (r *memCashRepo) CreateMovement(_ context.Context, m *model.CashMovement) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	r.movs = append(r.movs, *m)
	return nil
}

func (r *memCashRepo) ListMovements(_ context.Context, sessionID uuid.UUID) ([]model.CashMovement, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.CashMovement
	for _, m := range r.movs {
		if m.SessionID == sessionID {
			out = append(out, m)
		}
	}
	return out, nil
}

func (r *memCashRepo) SumMovementsByMethod(_ context.Context, sessionID uuid.UUID) (map[string]decimal.Decimal, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	sums := map[string]decimal.Decimal{
		"cash": decimal.Zero, "card": decimal.Zero, "transfer": decimal.Zero,
	}
	for _, m := range r.movs {
		if m.SessionID == sessionID {
			sums[m.PaymentMethod] = sums[m.PaymentMethod].Add(m.Amount)
		}
	}
	return sums, nil
}

func (r *memCashRepo) CreateReconciliation(_ context.Context, rec *model.ReconciliationRecord) error {
	return r.CreateReconciliationTx(nil, rec)
}

func (r *memCashRepo) CreateReconciliationTx(_ *gorm.DB, rec *model.ReconciliationRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if rec.ID == uuid.Nil {
		rec.ID = uuid.New()
	}
	r.recs = append(r.recs, *rec)
	return nil
}

func (r *memCashRepo) ListSessions(_ context.Context, tenantID uuid.UUID, page, limit int) ([]model.CashSession, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var all []model.CashSession
	for _, s := range r.sessions {
		if s.TenantID == tenantID {
			all = append(all, *s)
		}
	}
	total := int64(len(all))
	start := (page - 1) * limit
	if start >= len(all) {
		return nil, total, nil
	}
	end := start + limit
	if end > len(all) {
		end = len(all)
	}
	return all[start:end], total, nil
}

// ── Sequence repository fake ──────────────────────────────────────────────────

type memSequenceRepo struct {
	mu       sync.Mutex
	counters map[string]int64
}

func newMemSequenceRepo() *memSequenceRepo {
	return &memSequenceRepo{counters: make(map[string]int64)}
}

var _ repository.SequenceRepository = (*memSequenceRepo)(nil)

func (r *memSequenceRepo) NextTx(_ *gorm.DB, tenantID uuid.UUID, documentType, periodKey string) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	key := fmt.Sprintf("%s/%s/%s", tenantID, documentType, periodKey)
	r.counters[key]++
	return r.counters[key], nil
}

// ── Invoice repository fake ───────────────────────────────────────────────────

type memInvoiceRepo struct {
	mu       sync.Mutex
	txMu     sync.Mutex
	invoices map[uuid.UUID]*model.Invoice
}

func newMemInvoiceRepo() *memInvoiceRepo {
	return &memInvoiceRepo{invoices: make(map[uuid.UUID]*model.Invoice)}
}

var _ repository.InvoiceRepository = (*memInvoiceRepo)(nil)

// Transaction serializes whole transactions, mirroring the effect of the
// FOR UPDATE row lock the real FindByIDForUpdateTx takes: a concurrent
// payment cannot read amount_paid between another payment's read and write.
func (r *memInvoiceRepo) Transaction(_ context.Context, fn func(tx *gorm.DB) error) error {
	r.txMu.Lock()
	defer r.txMu.Unlock()
	return fn(nil)
}

func (r *memInvoiceRepo) CreateTx(_ *gorm.DB, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.invoices {
		if existing.TenantID == inv.TenantID && existing.Number == inv.Number {
			return apperror.Concurrency("invoice number already taken", nil)
		}
	}
	if inv.ID == uuid.Nil {
		inv.ID = uuid.New()
	}
	for i := range inv.Lines {
		if inv.Lines[i].ID == uuid.Nil {
			inv.Lines[i].ID = uuid.New()
		}
		inv.Lines[i].InvoiceID = inv.ID
	}
	inv.CreatedAt = time.Now()
	stored := *inv
	r.invoices[inv.ID] = &stored
	return nil
}

func (r *memInvoiceRepo) FindByID(_ context.Context, tenantID, id uuid.UUID) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(tenantID, id)
}

func (r *memInvoiceRepo) FindByIDForUpdateTx(_ *gorm.DB, tenantID, id uuid.UUID) (*model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.find(tenantID, id)
}

// find returns a copy so mutations only land via UpdateTx, matching the
// real repository where writes go through the transaction.
func (r *memInvoiceRepo) find(tenantID, id uuid.UUID) (*model.Invoice, error) {
	inv, ok := r.invoices[id]
	if !ok || inv.TenantID != tenantID {
		return nil, apperror.NotFound("invoice %s not found", id)
	}
	cp := *inv
	return &cp, nil
}

func (r *memInvoiceRepo) UpdateTx(_ *gorm.DB, inv *model.Invoice) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	stored, ok := r.invoices[inv.ID]
	if !ok {
		return apperror.NotFound("invoice %s not found", inv.ID)
	}
	// Associations are owned by their own writes, like the real UpdateTx
	// which omits Lines and Payments.
	lines, payments := stored.Lines, stored.Payments
	cp := *inv
	cp.Lines, cp.Payments = lines, payments
	r.invoices[inv.ID] = &cp
	return nil
}

func (r *memInvoiceRepo) CreatePaymentTx(_ *gorm.DB, p *model.Payment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	inv, ok := r.invoices[p.InvoiceID]
	if !ok {
		return apperror.NotFound("invoice %s not found", p.InvoiceID)
	}
	if p.ID == uuid.Nil {
		p.ID = uuid.New()
	}
	inv.Payments = append(inv.Payments, *p)
	return nil
}

func (r *memInvoiceRepo) List(_ context.Context, tenantID uuid.UUID, filter dto.InvoiceFilter) ([]model.Invoice, int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	now := time.Now()
	var out []model.Invoice
	for _, inv := range r.invoices {
		if inv.TenantID != tenantID {
			continue
		}
		if filter.Type != "" && inv.Type != filter.Type {
			continue
		}
		if filter.Status != "" && !matchesStatus(inv, filter.Status, now) {
			continue
		}
		out = append(out, *inv)
	}
	return out, int64(len(out)), nil
}

func matchesStatus(inv *model.Invoice, status string, now time.Time) bool {
	switch status {
	case "overdue":
		return inv.EffectiveStatus(now) == "overdue"
	case "partial":
		return inv.Status == "issued" && inv.PaymentStatus == "partial"
	default:
		return inv.Status == status
	}
}

func (r *memInvoiceRepo) ListOverdue(_ context.Context, tenantID uuid.UUID, now time.Time) ([]model.Invoice, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []model.Invoice
	for _, inv := range r.invoices {
		if inv.TenantID == tenantID && inv.EffectiveStatus(now) == "overdue" {
			out = append(out, *inv)
		}
	}
	return out, nil
}

func (r *memInvoiceRepo) MarkOverdue(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var n int64
	for _, inv := range r.invoices {
		if !inv.Overdue && inv.EffectiveStatus(now) == "overdue" {
			inv.Overdue = true
			n++
		}
	}
	return n, nil
}

// ── Gateway fake ──────────────────────────────────────────────────────────────

type memGateway struct {
	mu       sync.Mutex
	rejected map[string]bool
	calls    []string
}

func newMemGateway() *memGateway {
	return &memGateway{rejected: make(map[string]bool)}
}

func (g *memGateway) reject(reference string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.rejected[reference] = true
}

func (g *memGateway) ConfirmCharge(_ context.Context, reference string, _ decimal.Decimal, _ string) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.calls = append(g.calls, reference)
	if g.rejected[reference] {
		return fmt.Errorf("charge %s declined", reference)
	}
	return nil
}

// ── Small helpers ─────────────────────────────────────────────────────────────

func strPtr(s string) *string { return &s }

func hasCode(err error, code string) bool {
	return err != nil && apperror.IsCode(err, code) && strings.Contains(err.Error(), code)
}
