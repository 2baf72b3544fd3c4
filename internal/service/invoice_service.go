package service

import (
	"context"
	"time"

	"neuriax/internal/apperror"
	"neuriax/internal/dto"
	"neuriax/internal/export"
	"neuriax/internal/model"
	"neuriax/internal/money"
	"neuriax/internal/repository"
	"neuriax/internal/sequence"
	"neuriax/internal/worker"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// maxWriteRetries bounds internal retries for pure contention (lost sequence
// race, serialization abort). Anything beyond that surfaces to the caller.
const maxWriteRetries = 3

// ChargeConfirmer confirms that an external card charge succeeded. The
// gateway is a collaborator — this backend never processes cards itself.
type ChargeConfirmer interface {
	ConfirmCharge(ctx context.Context, reference string, amount decimal.Decimal, currency string) error
}

type InvoiceService interface {
	Create(ctx context.Context, tenantID uuid.UUID, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error)
	Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*dto.InvoiceResponse, error)
	ApplyPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, req dto.ApplyPaymentRequest) (*dto.PaymentResponse, error)
	Void(ctx context.Context, tenantID, invoiceID uuid.UUID, reason string) (*dto.InvoiceResponse, error)
	List(ctx context.Context, tenantID uuid.UUID, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error)
	ListOverdue(ctx context.Context, tenantID uuid.UUID) ([]dto.InvoiceResponse, error)
	Export(ctx context.Context, tenantID, invoiceID uuid.UUID, format string) ([]byte, string, error)
}

type invoiceService struct {
	repo       repository.InvoiceRepository
	sequences  repository.SequenceRepository
	gateway    ChargeConfirmer    // nil: card charges accepted unverified
	dispatcher *worker.Dispatcher // nil: no async delivery
}

func NewInvoiceService(
	repo repository.InvoiceRepository,
	sequences repository.SequenceRepository,
	gateway ChargeConfirmer,
	dispatcher *worker.Dispatcher,
) InvoiceService {
	return &invoiceService{repo: repo, sequences: sequences, gateway: gateway, dispatcher: dispatcher}
}

// ── Create ───────────────────────────────────────────────────────────────────
// Number allocation and invoice persistence are one atomic unit: if the
// transaction rolls back, the allocation rolls back with it, so no invoice is
// ever left numberless and no number is skipped by partial failure.

func (s *invoiceService) Create(ctx context.Context, tenantID uuid.UUID, req dto.CreateInvoiceRequest) (*dto.InvoiceResponse, error) {
	taxRate, err := money.TaxRate(req.TaxRateCode)
	if err != nil {
		return nil, err
	}
	if len(req.Lines) == 0 {
		return nil, apperror.Validation(apperror.CodeInvalidAmount, "invoice needs at least one line")
	}

	// Per-line bases at full precision; rounding happens only on finalized
	// totals so that summation order can never change the result.
	lines := make([]model.InvoiceLine, 0, len(req.Lines))
	fullBases := make([]decimal.Decimal, 0, len(req.Lines))
	for _, lr := range req.Lines {
		if !lr.Quantity.IsPositive() {
			return nil, apperror.Validation(apperror.CodeInvalidAmount,
				"line %q: quantity must be positive, got %s", lr.Description, lr.Quantity)
		}
		gross, err := money.Multiply(lr.Quantity, lr.UnitPrice)
		if err != nil {
			return nil, err
		}
		base, err := money.ApplyPercentDiscount(gross, lr.LineDiscountPct)
		if err != nil {
			return nil, err
		}
		fullBases = append(fullBases, base)
		lines = append(lines, model.InvoiceLine{
			Description:     lr.Description,
			Quantity:        lr.Quantity,
			UnitPrice:       lr.UnitPrice,
			LineDiscountPct: lr.LineDiscountPct,
			Base:            money.Finalize(base),
		})
	}

	subtotalFull := money.Sum(fullBases...)
	taxableFull, err := money.ApplyPercentDiscount(subtotalFull, req.GlobalDiscountPct)
	if err != nil {
		return nil, err
	}
	taxFull, err := money.ApplyTax(taxableFull, taxRate)
	if err != nil {
		return nil, err
	}

	issueDate := time.Now()
	inv := &model.Invoice{
		TenantID:          tenantID,
		Type:              req.Type,
		Status:            "issued",
		PaymentStatus:     "pending",
		IssueDate:         issueDate,
		DueDate:           issueDate.AddDate(0, 0, req.DueInDays),
		CustomerName:      req.Customer.Name,
		CustomerTaxID:     req.Customer.TaxID,
		CustomerAddress:   req.Customer.Address,
		CustomerEmail:     req.Customer.Email,
		Currency:          "EUR",
		TaxRateCode:       req.TaxRateCode,
		TaxRatePct:        taxRate,
		GlobalDiscountPct: req.GlobalDiscountPct,
		Subtotal:          money.Finalize(subtotalFull),
		DiscountAmount:    money.Finalize(subtotalFull.Sub(taxableFull)),
		TaxableBase:       money.Finalize(taxableFull),
		TaxAmount:         money.Finalize(taxFull),
		Total:             money.Finalize(taxableFull.Add(taxFull)),
		AmountPaid:        decimal.Zero,
		Notes:             req.Notes,
		Lines:             lines,
	}

	// Bounded retry: a lost sequence race re-allocates a fresh number inside
	// a fresh transaction.
	var txErr error
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		txErr = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
			n, err := s.sequences.NextTx(tx, tenantID, req.Type, sequence.PeriodKey(issueDate))
			if err != nil {
				return err
			}
			inv.Number = sequence.Format(req.Type, issueDate.Year(), n)
			return s.repo.CreateTx(tx, inv)
		})
		if txErr == nil || apperror.KindOf(txErr) != apperror.KindConcurrency {
			break
		}
		inv.ID = uuid.Nil // retry persists a fresh row
	}
	if txErr != nil {
		return nil, txErr
	}

	// Async delivery is best-effort and never blocks creation.
	if s.dispatcher != nil && inv.CustomerEmail != nil && *inv.CustomerEmail != "" {
		_ = s.dispatcher.EnqueueInvoiceEmail(ctx, worker.InvoiceEmailJobPayload{
			TenantID:  tenantID.String(),
			InvoiceID: inv.ID.String(),
			ToEmail:   *inv.CustomerEmail,
		})
	}

	return invoiceToResponse(inv, time.Now()), nil
}

// ── Get / List / ListOverdue ─────────────────────────────────────────────────

func (s *invoiceService) Get(ctx context.Context, tenantID, invoiceID uuid.UUID) (*dto.InvoiceResponse, error) {
	inv, err := s.repo.FindByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, err
	}
	return invoiceToResponse(inv, time.Now()), nil
}

func (s *invoiceService) List(ctx context.Context, tenantID uuid.UUID, filter dto.InvoiceFilter) (*dto.InvoiceListResponse, error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.Limit < 1 {
		filter.Limit = 50
	}
	invoices, total, err := s.repo.List(ctx, tenantID, filter)
	if err != nil {
		return nil, err
	}
	now := time.Now()
	items := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, *invoiceToResponse(&invoices[i], now))
	}
	return &dto.InvoiceListResponse{Data: items, Total: total, Page: filter.Page, Limit: filter.Limit}, nil
}

func (s *invoiceService) ListOverdue(ctx context.Context, tenantID uuid.UUID) ([]dto.InvoiceResponse, error) {
	now := time.Now()
	invoices, err := s.repo.ListOverdue(ctx, tenantID, now)
	if err != nil {
		return nil, err
	}
	items := make([]dto.InvoiceResponse, 0, len(invoices))
	for i := range invoices {
		items = append(items, *invoiceToResponse(&invoices[i], now))
	}
	return items, nil
}

// ── ApplyPayment ─────────────────────────────────────────────────────────────
// The read-modify-write of amount_paid is serialized per invoice with a
// row-level lock, so two simultaneous partial payments can never both read a
// stale amount_paid and slip past the ceiling.

func (s *invoiceService) ApplyPayment(ctx context.Context, tenantID, invoiceID uuid.UUID, req dto.ApplyPaymentRequest) (*dto.PaymentResponse, error) {
	if !req.Amount.IsPositive() {
		return nil, apperror.Validation(apperror.CodeInvalidAmount,
			"payment amount must be positive, got %s", req.Amount)
	}

	// Card charges are confirmed against the gateway before anything is
	// written — a rejected charge must leave the invoice untouched.
	if req.Method == "card" && s.gateway != nil {
		if req.Reference == nil || *req.Reference == "" {
			return nil, apperror.Validation(apperror.CodeInvalidAmount,
				"card payments require a gateway charge reference")
		}
		if err := s.gateway.ConfirmCharge(ctx, *req.Reference, req.Amount, "EUR"); err != nil {
			return nil, apperror.StateConflict(apperror.CodeGatewayRejected,
				"gateway did not confirm charge %s: %v", *req.Reference, err)
		}
	}

	var payment *model.Payment
	var txErr error
	for attempt := 0; attempt < maxWriteRetries; attempt++ {
		txErr = s.repo.Transaction(ctx, func(tx *gorm.DB) error {
			inv, err := s.repo.FindByIDForUpdateTx(tx, tenantID, invoiceID)
			if err != nil {
				return err
			}
			if inv.Status == "void" {
				return apperror.StateConflict(apperror.CodeInvoiceVoid,
					"invoice %s is void — payments are not accepted", inv.Number)
			}

			newPaid := inv.AmountPaid.Add(req.Amount)
			if newPaid.GreaterThan(inv.Total) {
				return apperror.StateConflict(apperror.CodeOverPayment,
					"payment of %s would exceed invoice total %s by %s (already paid %s)",
					req.Amount, inv.Total, newPaid.Sub(inv.Total), inv.AmountPaid)
			}

			payment = &model.Payment{
				InvoiceID:  inv.ID,
				Amount:     req.Amount,
				Method:     req.Method,
				Reference:  req.Reference,
				ReceivedAt: time.Now(),
			}
			if err := s.repo.CreatePaymentTx(tx, payment); err != nil {
				return err
			}

			inv.AmountPaid = newPaid
			switch {
			case newPaid.Equal(inv.Total):
				inv.PaymentStatus = "paid"
				inv.Status = "paid"
				inv.Overdue = false
			case newPaid.IsPositive():
				inv.PaymentStatus = "partial"
			}
			return s.repo.UpdateTx(tx, inv)
		})
		if txErr == nil || apperror.KindOf(txErr) != apperror.KindConcurrency {
			break
		}
		payment = nil
	}
	if txErr != nil {
		return nil, txErr
	}
	return paymentToResponse(payment), nil
}

// ── Void ─────────────────────────────────────────────────────────────────────
// Reachable from any non-void state, including paid (a later correction).
// Voiding never un-applies payments — it only freezes the document.

func (s *invoiceService) Void(ctx context.Context, tenantID, invoiceID uuid.UUID, reason string) (*dto.InvoiceResponse, error) {
	var inv *model.Invoice
	txErr := s.repo.Transaction(ctx, func(tx *gorm.DB) error {
		var err error
		inv, err = s.repo.FindByIDForUpdateTx(tx, tenantID, invoiceID)
		if err != nil {
			return err
		}
		if inv.Status == "void" {
			return apperror.StateConflict(apperror.CodeAlreadyVoid,
				"invoice %s is already void (%s)", inv.Number, voidReasonString(inv))
		}
		inv.Status = "void"
		inv.VoidReason = &reason
		inv.Overdue = false
		return s.repo.UpdateTx(tx, inv)
	})
	if txErr != nil {
		return nil, txErr
	}
	// Re-fetch with associations so the response mirrors the frozen document.
	full, err := s.repo.FindByID(ctx, tenantID, invoiceID)
	if err != nil {
		return invoiceToResponse(inv, time.Now()), nil
	}
	return invoiceToResponse(full, time.Now()), nil
}

// ── Export ───────────────────────────────────────────────────────────────────
// Pure read-side serialization: reproduces the totals computed at creation
// time, never recomputes tax or discount.

func (s *invoiceService) Export(ctx context.Context, tenantID, invoiceID uuid.UUID, format string) ([]byte, string, error) {
	inv, err := s.repo.FindByID(ctx, tenantID, invoiceID)
	if err != nil {
		return nil, "", err
	}
	return export.Render(inv, export.Format(format))
}

// ── Helpers ──────────────────────────────────────────────────────────────────

func invoiceToResponse(inv *model.Invoice, now time.Time) *dto.InvoiceResponse {
	lines := make([]dto.InvoiceLineResponse, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, dto.InvoiceLineResponse{
			ID:              l.ID.String(),
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			LineDiscountPct: l.LineDiscountPct,
			Base:            l.Base,
		})
	}
	payments := make([]dto.PaymentResponse, 0, len(inv.Payments))
	for i := range inv.Payments {
		payments = append(payments, *paymentToResponse(&inv.Payments[i]))
	}
	return &dto.InvoiceResponse{
		ID:                inv.ID.String(),
		Number:            inv.Number,
		Type:              inv.Type,
		Status:            inv.EffectiveStatus(now),
		PaymentStatus:     inv.PaymentStatus,
		IssueDate:         inv.IssueDate.Format("2006-01-02"),
		DueDate:           inv.DueDate.Format("2006-01-02"),
		CustomerName:      inv.CustomerName,
		CustomerTaxID:     inv.CustomerTaxID,
		CustomerAddress:   inv.CustomerAddress,
		Currency:          inv.Currency,
		TaxRateCode:       inv.TaxRateCode,
		TaxRatePct:        inv.TaxRatePct,
		GlobalDiscountPct: inv.GlobalDiscountPct,
		Subtotal:          inv.Subtotal,
		DiscountAmount:    inv.DiscountAmount,
		TaxableBase:       inv.TaxableBase,
		TaxAmount:         inv.TaxAmount,
		Total:             inv.Total,
		AmountPaid:        inv.AmountPaid,
		Notes:             inv.Notes,
		VoidReason:        inv.VoidReason,
		Lines:             lines,
		Payments:          payments,
		CreatedAt:         inv.CreatedAt.Format(time.RFC3339),
	}
}

func paymentToResponse(p *model.Payment) *dto.PaymentResponse {
	return &dto.PaymentResponse{
		ID:         p.ID.String(),
		InvoiceID:  p.InvoiceID.String(),
		Amount:     p.Amount,
		Method:     p.Method,
		Reference:  p.Reference,
		ReceivedAt: p.ReceivedAt.Format(time.RFC3339),
	}
}

func voidReasonString(inv *model.Invoice) string {
	if inv.VoidReason == nil {
		return "no reason recorded"
	}
	return *inv.VoidReason
}
