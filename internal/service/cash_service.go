package service

import (
	"context"
	"time"

	"neuriax/internal/apperror"
	"neuriax/internal/dto"
	"neuriax/internal/model"
	"neuriax/internal/money"
	"neuriax/internal/repository"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

type CashService interface {
	Open(ctx context.Context, tenantID, userID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error)
	RegisterMovement(ctx context.Context, tenantID, userID uuid.UUID, req dto.MovementRequest) (*dto.MovementResponse, error)
	CurrentBalance(ctx context.Context, tenantID, sessionID uuid.UUID) (*dto.BalanceByMethod, error)
	Reconcile(ctx context.Context, tenantID, userID uuid.UUID, req dto.ReconcileRequest) (*dto.ReconciliationResponse, error)
	Close(ctx context.Context, tenantID, userID uuid.UUID, req dto.CloseSessionRequest) (*dto.SessionResponse, error)
	Current(ctx context.Context, tenantID uuid.UUID) (*dto.SessionResponse, error)
	History(ctx context.Context, tenantID uuid.UUID, page, limit int) (*dto.SessionListResponse, error)
}

type cashService struct {
	repo repository.CashRepository
}

func NewCashService(repo repository.CashRepository) CashService {
	return &cashService{repo: repo}
}

// ── Open ─────────────────────────────────────────────────────────────────────

func (s *cashService) Open(ctx context.Context, tenantID, userID uuid.UUID, req dto.OpenSessionRequest) (*dto.SessionResponse, error) {
	if req.InitialAmount.IsNegative() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount,
			"initial amount must not be negative, got %s", req.InitialAmount)
	}

	// Pre-check only to produce a precise message; the partial unique index
	// is what actually guarantees at-most-one open session under races.
	if existing, err := s.repo.FindOpenSession(ctx, tenantID); err == nil && existing != nil {
		return nil, apperror.StateConflict(apperror.CodeSessionAlreadyOpen,
			"session %s already open since %s", existing.ID, existing.OpenedAt.Format(time.RFC3339))
	}

	session := &model.CashSession{
		TenantID:      tenantID,
		Status:        "open",
		InitialAmount: req.InitialAmount,
		Notes:         req.Notes,
		OpenedBy:      userID,
		OpenedAt:      time.Now(),
	}
	if err := s.repo.CreateSession(ctx, session); err != nil {
		return nil, err
	}
	return s.buildSessionResponse(ctx, session)
}

// ── RegisterMovement ─────────────────────────────────────────────────────────
// Callers supply magnitude; the sign is applied here from the movement type.
// Movements are immutable — corrections are new compensating movements.

func (s *cashService) RegisterMovement(ctx context.Context, tenantID, userID uuid.UUID, req dto.MovementRequest) (*dto.MovementResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "invalid session_id: %v", err)
	}
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount,
			"movement amount must be positive, got %s", req.Amount)
	}

	session, err := s.repo.FindSessionByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status == "closed" {
		return nil, apperror.StateConflict(apperror.CodeSessionClosed,
			"session %s was closed at %s — no further movements accepted", session.ID, closedAtString(session))
	}

	mov := &model.CashMovement{
		SessionID:     session.ID,
		Type:          req.Type,
		Amount:        signedAmount(req.Type, req.Amount),
		PaymentMethod: req.PaymentMethod,
		Concept:       req.Concept,
		Category:      req.Category,
		CreatedBy:     userID,
		CreatedAt:     time.Now(),
	}
	if err := s.repo.CreateMovement(ctx, mov); err != nil {
		return nil, err
	}
	return movementToResponse(mov), nil
}

// ── CurrentBalance ───────────────────────────────────────────────────────────
// Pure and idempotent: derived by summing all movements of the session.

func (s *cashService) CurrentBalance(ctx context.Context, tenantID, sessionID uuid.UUID) (*dto.BalanceByMethod, error) {
	session, err := s.repo.FindSessionByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	balance, err := s.balance(ctx, session)
	if err != nil {
		return nil, err
	}
	return balance, nil
}

// ── Reconcile ────────────────────────────────────────────────────────────────
// Mid-session spot check (arqueo). Does NOT close the session.

func (s *cashService) Reconcile(ctx context.Context, tenantID, userID uuid.UUID, req dto.ReconcileRequest) (*dto.ReconciliationResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "invalid session_id: %v", err)
	}
	if req.CountedCash.IsNegative() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount,
			"counted cash must not be negative, got %s", req.CountedCash)
	}

	session, err := s.repo.FindSessionByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != "open" {
		return nil, apperror.StateConflict(apperror.CodeSessionNotOpen,
			"session %s is not open", session.ID)
	}

	rec, err := s.buildReconciliation(ctx, session, req.CountedCash, req.Notes, userID)
	if err != nil {
		return nil, err
	}
	if err := s.repo.CreateReconciliation(ctx, rec); err != nil {
		return nil, err
	}
	return reconciliationToResponse(rec), nil
}

// ── Close ────────────────────────────────────────────────────────────────────
// Terminal transition. Performs an implicit reconciliation against the counted
// amount — the counted amount is a required input, never defaulted to the
// expected value. Session update and reconciliation record are one atomic
// transaction; the status-guarded write in CloseSessionTx ensures a racing
// second close fails instead of stamping a second reconciliation.

func (s *cashService) Close(ctx context.Context, tenantID, userID uuid.UUID, req dto.CloseSessionRequest) (*dto.SessionResponse, error) {
	sessionID, err := uuid.Parse(req.SessionID)
	if err != nil {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "invalid session_id: %v", err)
	}
	if req.FinalAmountCounted.IsNegative() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount,
			"final counted amount must not be negative, got %s", req.FinalAmountCounted)
	}

	session, err := s.repo.FindSessionByID(ctx, tenantID, sessionID)
	if err != nil {
		return nil, err
	}
	if session.Status != "open" {
		return nil, apperror.StateConflict(apperror.CodeSessionNotOpen,
			"session %s was already closed at %s", session.ID, closedAtString(session))
	}

	rec, err := s.buildReconciliation(ctx, session, req.FinalAmountCounted, req.Notes, userID)
	if err != nil {
		return nil, err
	}

	// Large deviations need an explanation before the session can be sealed.
	if deviationExceedsThreshold(rec) && (req.Notes == nil || *req.Notes == "") {
		return nil, apperror.Validation(apperror.CodeInvalidAmount,
			"difference of %s exceeds 5%% of expected cash %s — closing notes are required",
			rec.Difference, rec.ExpectedCash)
	}

	now := time.Now()
	expected := rec.ExpectedCash
	counted := rec.CountedCash
	diff := rec.Difference
	session.Status = "closed"
	session.ExpectedCash = &expected
	session.FinalAmountCounted = &counted
	session.Difference = &diff
	session.ClosedBy = &userID
	session.ClosedAt = &now
	if req.Notes != nil {
		session.Notes = req.Notes
	}

	txErr := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		if err := s.repo.CloseSessionTx(tx, session); err != nil {
			return err
		}
		return s.repo.CreateReconciliationTx(tx, rec)
	})
	if txErr != nil {
		return nil, txErr
	}
	resp, err := s.buildSessionResponse(ctx, session)
	if err != nil {
		return nil, err
	}
	resp.Reconciliation = reconciliationToResponse(rec)
	return resp, nil
}

// ── Current / History ────────────────────────────────────────────────────────

func (s *cashService) Current(ctx context.Context, tenantID uuid.UUID) (*dto.SessionResponse, error) {
	session, err := s.repo.FindOpenSession(ctx, tenantID)
	if err != nil {
		return nil, err
	}
	if session == nil {
		return nil, apperror.NotFound("no open cash session for this tenant")
	}
	return s.buildSessionResponse(ctx, session)
}

func (s *cashService) History(ctx context.Context, tenantID uuid.UUID, page, limit int) (*dto.SessionListResponse, error) {
	if page < 1 {
		page = 1
	}
	if limit < 1 || limit > 100 {
		limit = 20
	}
	sessions, total, err := s.repo.ListSessions(ctx, tenantID, page, limit)
	if err != nil {
		return nil, err
	}
	items := make([]dto.SessionResponse, 0, len(sessions))
	for i := range sessions {
		resp, err := s.buildSessionResponse(ctx, &sessions[i])
		if err != nil {
			return nil, err
		}
		items = append(items, *resp)
	}
	return &dto.SessionListResponse{Data: items, Total: total, Page: page, Limit: limit}, nil
}

// ── Helpers ──────────────────────────────────────────────────────────────────

// signedAmount applies the ledger sign convention: sale/cash_in positive,
// expense/cash_out negative.
func signedAmount(movType string, magnitude decimal.Decimal) decimal.Decimal {
	switch movType {
	case "expense", "cash_out":
		return magnitude.Neg()
	default:
		return magnitude
	}
}

// classifyDifference derives the reconciliation state from the sign of
// counted − expected.
func classifyDifference(diff decimal.Decimal) string {
	switch {
	case diff.IsZero():
		return "balanced"
	case diff.IsPositive():
		return "surplus"
	default:
		return "shortfall"
	}
}

// deviationExceedsThreshold reports whether |difference| > 5% of expected.
func deviationExceedsThreshold(rec *model.ReconciliationRecord) bool {
	if rec.ExpectedCash.IsZero() {
		return false
	}
	pct := rec.Difference.Abs().Div(rec.ExpectedCash.Abs()).Mul(decimal.NewFromInt(100))
	return pct.GreaterThan(decimal.NewFromInt(5))
}

func (s *cashService) balance(ctx context.Context, session *model.CashSession) (*dto.BalanceByMethod, error) {
	sums, err := s.repo.SumMovementsByMethod(ctx, session.ID)
	if err != nil {
		return nil, err
	}
	// The opening float is physical cash in the till.
	balance := &dto.BalanceByMethod{
		Cash:     money.Finalize(session.InitialAmount.Add(sums["cash"])),
		Card:     money.Finalize(sums["card"]),
		Transfer: money.Finalize(sums["transfer"]),
	}
	balance.Total = money.Finalize(money.Sum(balance.Cash, balance.Card, balance.Transfer))
	return balance, nil
}

func (s *cashService) buildReconciliation(ctx context.Context, session *model.CashSession, counted decimal.Decimal, notes *string, userID uuid.UUID) (*model.ReconciliationRecord, error) {
	balance, err := s.balance(ctx, session)
	if err != nil {
		return nil, err
	}
	expected := balance.Cash
	diff := money.Finalize(counted.Sub(expected))
	return &model.ReconciliationRecord{
		SessionID:    session.ID,
		ExpectedCash: expected,
		CountedCash:  money.Finalize(counted),
		Difference:   diff,
		State:        classifyDifference(diff),
		Notes:        notes,
		PerformedBy:  userID,
		PerformedAt:  time.Now(),
	}, nil
}

func (s *cashService) buildSessionResponse(ctx context.Context, session *model.CashSession) (*dto.SessionResponse, error) {
	balance, err := s.balance(ctx, session)
	if err != nil {
		return nil, err
	}
	resp := &dto.SessionResponse{
		ID:                 session.ID.String(),
		Status:             session.Status,
		InitialAmount:      session.InitialAmount,
		Balance:            *balance,
		ExpectedCash:       session.ExpectedCash,
		FinalAmountCounted: session.FinalAmountCounted,
		Difference:         session.Difference,
		Notes:              session.Notes,
		OpenedAt:           session.OpenedAt.Format(time.RFC3339),
	}
	if session.ClosedAt != nil {
		t := session.ClosedAt.Format(time.RFC3339)
		resp.ClosedAt = &t
	}
	return resp, nil
}

func movementToResponse(m *model.CashMovement) *dto.MovementResponse {
	return &dto.MovementResponse{
		ID:            m.ID.String(),
		SessionID:     m.SessionID.String(),
		Type:          m.Type,
		Amount:        m.Amount,
		PaymentMethod: m.PaymentMethod,
		Concept:       m.Concept,
		Category:      m.Category,
		CreatedAt:     m.CreatedAt.Format(time.RFC3339),
	}
}

func reconciliationToResponse(rec *model.ReconciliationRecord) *dto.ReconciliationResponse {
	return &dto.ReconciliationResponse{
		ID:           rec.ID.String(),
		SessionID:    rec.SessionID.String(),
		ExpectedCash: rec.ExpectedCash,
		CountedCash:  rec.CountedCash,
		Difference:   rec.Difference,
		State:        rec.State,
		Notes:        rec.Notes,
		PerformedAt:  rec.PerformedAt.Format(time.RFC3339),
	}
}

func closedAtString(session *model.CashSession) string {
	if session.ClosedAt == nil {
		return "unknown time"
	}
	return session.ClosedAt.Format(time.RFC3339)
}
