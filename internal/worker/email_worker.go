package worker

// email_worker.go
// Processes invoice-delivery jobs from QueueInvoiceEmail: renders the invoice
// PDF and mails it to the customer via SMTP.

import (
	"context"
	"encoding/json"
	"fmt"

	"neuriax/internal/export"
	"neuriax/internal/infra"
	"neuriax/internal/repository"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
)

// InvoiceEmailJobPayload is the job envelope sent to QueueInvoiceEmail.
type InvoiceEmailJobPayload struct {
	TenantID  string `json:"tenant_id"`
	InvoiceID string `json:"invoice_id"`
	ToEmail   string `json:"to_email"`
}

// EmailWorker renders and delivers invoice PDFs.
type EmailWorker struct {
	invoices repository.InvoiceRepository
	mailer   *infra.Mailer
}

func NewEmailWorker(invoices repository.InvoiceRepository, mailer *infra.Mailer) *EmailWorker {
	return &EmailWorker{invoices: invoices, mailer: mailer}
}

// Process renders the invoice as PDF and sends it as an attachment.
// A returned error requeues the job (bounded by the pool's retry limit).
func (w *EmailWorker) Process(ctx context.Context, raw json.RawMessage) error {
	var payload InvoiceEmailJobPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		log.Error().Err(err).Msg("email_worker: invalid payload")
		return nil // malformed jobs are not retryable
	}
	if payload.ToEmail == "" {
		log.Warn().Msg("email_worker: empty to_email — skipping")
		return nil
	}

	tenantID, err := uuid.Parse(payload.TenantID)
	if err != nil {
		log.Error().Err(err).Str("tenant_id", payload.TenantID).Msg("email_worker: bad tenant id")
		return nil
	}
	invoiceID, err := uuid.Parse(payload.InvoiceID)
	if err != nil {
		log.Error().Err(err).Str("invoice_id", payload.InvoiceID).Msg("email_worker: bad invoice id")
		return nil
	}

	inv, err := w.invoices.FindByID(ctx, tenantID, invoiceID)
	if err != nil {
		return fmt.Errorf("email_worker: load invoice: %w", err)
	}

	pdf, _, err := export.Render(inv, export.FormatPDF)
	if err != nil {
		return fmt.Errorf("email_worker: render pdf: %w", err)
	}

	subject := fmt.Sprintf("Factura %s", inv.Number)
	body := fmt.Sprintf("Adjuntamos la factura %s por un total de %s %s.",
		inv.Number, inv.Total.StringFixed(2), inv.Currency)
	fileName := fmt.Sprintf("factura_%s.pdf", inv.Number)

	if err := w.mailer.SendInvoice(payload.ToEmail, subject, body, fileName, pdf); err != nil {
		return fmt.Errorf("email_worker: send: %w", err)
	}
	log.Info().Str("to", payload.ToEmail).Str("number", inv.Number).Msg("email_worker: invoice sent")
	return nil
}
