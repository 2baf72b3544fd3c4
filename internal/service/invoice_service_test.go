package service_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"neuriax/internal/apperror"
	"neuriax/internal/dto"
	"neuriax/internal/service"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newInvoiceService(gateway service.ChargeConfirmer) (service.InvoiceService, *memInvoiceRepo) {
	repo := newMemInvoiceRepo()
	return service.NewInvoiceService(repo, newMemSequenceRepo(), gateway, nil), repo
}

func basicInvoiceRequest() dto.CreateInvoiceRequest {
	return dto.CreateInvoiceRequest{
		Type: "ordinary",
		Customer: dto.CustomerSnapshotRequest{
			Name:  "Peluquería Sol",
			TaxID: strPtr("B12345678"),
		},
		Lines: []dto.InvoiceLineRequest{
			{Description: "Corte y peinado", Quantity: d("2"), UnitPrice: d("50"), LineDiscountPct: d("10")},
		},
		TaxRateCode: "general",
		DueInDays:   30,
	}
}

func TestCreateInvoiceTotals(t *testing.T) {
	svc, _ := newInvoiceService(nil)

	inv, err := svc.Create(context.Background(), uuid.New(), basicInvoiceRequest())
	require.NoError(t, err)

	// 2 × 50 at 10% line discount → base 90; 21% IVA
	assert.True(t, inv.Subtotal.Equal(d("90.00")), "got %s", inv.Subtotal)
	assert.True(t, inv.TaxableBase.Equal(d("90.00")))
	assert.True(t, inv.TaxAmount.Equal(d("18.90")), "got %s", inv.TaxAmount)
	assert.True(t, inv.Total.Equal(d("108.90")), "got %s", inv.Total)
	assert.True(t, inv.AmountPaid.IsZero())
	assert.Equal(t, "issued", inv.Status)
	assert.Equal(t, "pending", inv.PaymentStatus)

	year := time.Now().Year()
	assert.Equal(t, fmt.Sprintf("FAC-%d-000001", year), inv.Number)
}

func TestCreateInvoiceGlobalDiscount(t *testing.T) {
	svc, _ := newInvoiceService(nil)

	req := basicInvoiceRequest()
	req.Lines = []dto.InvoiceLineRequest{
		{Description: "Tratamiento capilar", Quantity: d("1"), UnitPrice: d("200")},
	}
	req.GlobalDiscountPct = d("15")

	inv, err := svc.Create(context.Background(), uuid.New(), req)
	require.NoError(t, err)
	assert.True(t, inv.Subtotal.Equal(d("200.00")))
	assert.True(t, inv.DiscountAmount.Equal(d("30.00")))
	assert.True(t, inv.TaxableBase.Equal(d("170.00")))
	assert.True(t, inv.TaxAmount.Equal(d("35.70")))
	assert.True(t, inv.Total.Equal(d("205.70")), "got %s", inv.Total)
}

func TestCreateRoundsOnlyAtFinalization(t *testing.T) {
	svc, _ := newInvoiceService(nil)

	// three lines of 1 × 0.335: per-line rounding would give 0.34 × 3 = 1.02,
	// full-precision summation gives 1.005 → 1.01
	req := basicInvoiceRequest()
	req.TaxRateCode = "exento"
	req.Lines = []dto.InvoiceLineRequest{
		{Description: "a", Quantity: d("1"), UnitPrice: d("0.335")},
		{Description: "b", Quantity: d("1"), UnitPrice: d("0.335")},
		{Description: "c", Quantity: d("1"), UnitPrice: d("0.335")},
	}

	inv, err := svc.Create(context.Background(), uuid.New(), req)
	require.NoError(t, err)
	assert.True(t, inv.Total.Equal(d("1.01")), "got %s", inv.Total)
}

func TestCreateRejectsUnknownTaxCode(t *testing.T) {
	svc, _ := newInvoiceService(nil)

	req := basicInvoiceRequest()
	req.TaxRateCode = "luxury"
	_, err := svc.Create(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, hasCode(err, apperror.CodeInvalidAmount))
}

func TestSequentialNumbersPerTypeAndTenant(t *testing.T) {
	svc, _ := newInvoiceService(nil)
	tenantID := uuid.New()
	ctx := context.Background()
	year := time.Now().Year()

	first, err := svc.Create(ctx, tenantID, basicInvoiceRequest())
	require.NoError(t, err)
	second, err := svc.Create(ctx, tenantID, basicInvoiceRequest())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("FAC-%d-000001", year), first.Number)
	assert.Equal(t, fmt.Sprintf("FAC-%d-000002", year), second.Number)

	// proforma runs its own series
	req := basicInvoiceRequest()
	req.Type = "proforma"
	pro, err := svc.Create(ctx, tenantID, req)
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("PRO-%d-000001", year), pro.Number)

	// another tenant starts from 1
	other, err := svc.Create(ctx, uuid.New(), basicInvoiceRequest())
	require.NoError(t, err)
	assert.Equal(t, fmt.Sprintf("FAC-%d-000001", year), other.Number)
}

func TestConcurrentCreatesGetDistinctNumbers(t *testing.T) {
	svc, _ := newInvoiceService(nil)
	tenantID := uuid.New()

	const n = 20
	start := make(chan struct{})
	var wg sync.WaitGroup
	numbers := make([]string, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			inv, err := svc.Create(context.Background(), tenantID, basicInvoiceRequest())
			if err == nil {
				numbers[i] = inv.Number
			}
		}(i)
	}
	close(start)
	wg.Wait()

	// the allocated numbers form the gap-free set 1..n — no skips, no reuse
	year := time.Now().Year()
	expected := make([]string, n)
	for i := range expected {
		expected[i] = fmt.Sprintf("FAC-%d-%06d", year, i+1)
	}
	assert.ElementsMatch(t, expected, numbers)
}

func TestConcurrentPaymentsNeverExceedTotal(t *testing.T) {
	svc, _ := newInvoiceService(nil)
	tenantID := uuid.New()
	ctx := context.Background()

	inv, err := svc.Create(ctx, tenantID, basicInvoiceRequest()) // total 108.90
	require.NoError(t, err)
	invoiceID := uuid.MustParse(inv.ID)

	// four racing 60.00 payments: only one fits under the total
	const n = 4
	start := make(chan struct{})
	var wg sync.WaitGroup
	errs := make([]error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			<-start
			_, errs[i] = svc.ApplyPayment(ctx, tenantID, invoiceID, dto.ApplyPaymentRequest{
				Amount: d("60.00"), Method: "cash",
			})
		}(i)
	}
	close(start)
	wg.Wait()

	succeeded := 0
	for _, err := range errs {
		if err == nil {
			succeeded++
		} else {
			assert.True(t, hasCode(err, apperror.CodeOverPayment), "unexpected error: %v", err)
		}
	}
	assert.Equal(t, 1, succeeded, "exactly one payment fits")

	after, err := svc.Get(ctx, tenantID, invoiceID)
	require.NoError(t, err)
	assert.True(t, after.AmountPaid.Equal(d("60.00")), "got %s", after.AmountPaid)
	assert.True(t, after.AmountPaid.LessThanOrEqual(after.Total))
	assert.Len(t, after.Payments, 1)
}

func TestPaymentLifecycle(t *testing.T) {
	svc, _ := newInvoiceService(nil)
	tenantID := uuid.New()
	ctx := context.Background()

	inv, err := svc.Create(ctx, tenantID, basicInvoiceRequest())
	require.NoError(t, err)
	invoiceID := uuid.MustParse(inv.ID)

	_, err = svc.ApplyPayment(ctx, tenantID, invoiceID, dto.ApplyPaymentRequest{
		Amount: d("60.00"), Method: "cash",
	})
	require.NoError(t, err)

	mid, err := svc.Get(ctx, tenantID, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, "partial", mid.PaymentStatus)
	assert.Equal(t, "issued", mid.Status)
	assert.True(t, mid.AmountPaid.Equal(d("60.00")))

	_, err = svc.ApplyPayment(ctx, tenantID, invoiceID, dto.ApplyPaymentRequest{
		Amount: d("48.90"), Method: "transfer",
	})
	require.NoError(t, err)

	final, err := svc.Get(ctx, tenantID, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, "paid", final.PaymentStatus)
	assert.Equal(t, "paid", final.Status)
	assert.True(t, final.AmountPaid.Equal(d("108.90")))
	assert.Len(t, final.Payments, 2)
}

func TestOverpaymentRejected(t *testing.T) {
	svc, _ := newInvoiceService(nil)
	tenantID := uuid.New()
	ctx := context.Background()

	inv, err := svc.Create(ctx, tenantID, basicInvoiceRequest())
	require.NoError(t, err)
	invoiceID := uuid.MustParse(inv.ID)

	_, err = svc.ApplyPayment(ctx, tenantID, invoiceID, dto.ApplyPaymentRequest{
		Amount: d("200.00"), Method: "cash",
	})
	require.Error(t, err)
	assert.True(t, hasCode(err, apperror.CodeOverPayment))

	// the rejected payment left no trace
	after, err := svc.Get(ctx, tenantID, invoiceID)
	require.NoError(t, err)
	assert.True(t, after.AmountPaid.IsZero())
	assert.Empty(t, after.Payments)
}

func TestCardPaymentConfirmsThroughGateway(t *testing.T) {
	gateway := newMemGateway()
	svc, _ := newInvoiceService(gateway)
	tenantID := uuid.New()
	ctx := context.Background()

	inv, err := svc.Create(ctx, tenantID, basicInvoiceRequest())
	require.NoError(t, err)
	invoiceID := uuid.MustParse(inv.ID)

	_, err = svc.ApplyPayment(ctx, tenantID, invoiceID, dto.ApplyPaymentRequest{
		Amount: d("50.00"), Method: "card", Reference: strPtr("ch_001"),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"ch_001"}, gateway.calls)

	// missing reference is refused before touching the gateway
	_, err = svc.ApplyPayment(ctx, tenantID, invoiceID, dto.ApplyPaymentRequest{
		Amount: d("10.00"), Method: "card",
	})
	require.Error(t, err)
	assert.True(t, hasCode(err, apperror.CodeInvalidAmount))
}

func TestCardPaymentRejectedByGateway(t *testing.T) {
	gateway := newMemGateway()
	gateway.reject("ch_bad")
	svc, _ := newInvoiceService(gateway)
	tenantID := uuid.New()
	ctx := context.Background()

	inv, err := svc.Create(ctx, tenantID, basicInvoiceRequest())
	require.NoError(t, err)
	invoiceID := uuid.MustParse(inv.ID)

	_, err = svc.ApplyPayment(ctx, tenantID, invoiceID, dto.ApplyPaymentRequest{
		Amount: d("50.00"), Method: "card", Reference: strPtr("ch_bad"),
	})
	require.Error(t, err)
	assert.True(t, hasCode(err, apperror.CodeGatewayRejected))

	after, err := svc.Get(ctx, tenantID, invoiceID)
	require.NoError(t, err)
	assert.True(t, after.AmountPaid.IsZero())
}

func TestVoidFreezesInvoice(t *testing.T) {
	svc, _ := newInvoiceService(nil)
	tenantID := uuid.New()
	ctx := context.Background()

	inv, err := svc.Create(ctx, tenantID, basicInvoiceRequest())
	require.NoError(t, err)
	invoiceID := uuid.MustParse(inv.ID)

	voided, err := svc.Void(ctx, tenantID, invoiceID, "duplicate entry")
	require.NoError(t, err)
	assert.Equal(t, "void", voided.Status)
	require.NotNil(t, voided.VoidReason)
	assert.Equal(t, "duplicate entry", *voided.VoidReason)
	// totals stay frozen
	assert.True(t, voided.Total.Equal(d("108.90")))

	_, err = svc.ApplyPayment(ctx, tenantID, invoiceID, dto.ApplyPaymentRequest{
		Amount: d("10.00"), Method: "cash",
	})
	require.Error(t, err)
	assert.True(t, hasCode(err, apperror.CodeInvoiceVoid))

	_, err = svc.Void(ctx, tenantID, invoiceID, "again")
	require.Error(t, err)
	assert.True(t, hasCode(err, apperror.CodeAlreadyVoid))
}

func TestVoidPaidInvoiceKeepsPayments(t *testing.T) {
	svc, _ := newInvoiceService(nil)
	tenantID := uuid.New()
	ctx := context.Background()

	inv, err := svc.Create(ctx, tenantID, basicInvoiceRequest())
	require.NoError(t, err)
	invoiceID := uuid.MustParse(inv.ID)

	_, err = svc.ApplyPayment(ctx, tenantID, invoiceID, dto.ApplyPaymentRequest{
		Amount: d("108.90"), Method: "cash",
	})
	require.NoError(t, err)

	voided, err := svc.Void(ctx, tenantID, invoiceID, "issued to wrong customer")
	require.NoError(t, err)
	assert.Equal(t, "void", voided.Status)
	assert.True(t, voided.AmountPaid.Equal(d("108.90")), "void never un-applies payments")
	assert.Len(t, voided.Payments, 1)
}

func TestOverdueIsDerivedAtReadTime(t *testing.T) {
	svc, repo := newInvoiceService(nil)
	tenantID := uuid.New()
	ctx := context.Background()

	req := basicInvoiceRequest()
	req.DueInDays = 0
	inv, err := svc.Create(ctx, tenantID, req)
	require.NoError(t, err)
	invoiceID := uuid.MustParse(inv.ID)

	// push the due date into the past
	repo.mu.Lock()
	stored := repo.invoices[invoiceID]
	stored.DueDate = time.Now().AddDate(0, 0, -10)
	repo.mu.Unlock()

	got, err := svc.Get(ctx, tenantID, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, "overdue", got.Status)
	// persisted status is untouched
	repo.mu.Lock()
	assert.Equal(t, "issued", repo.invoices[invoiceID].Status)
	repo.mu.Unlock()

	overdue, err := svc.ListOverdue(ctx, tenantID)
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, inv.Number, overdue[0].Number)

	// paying it clears the derived state
	_, err = svc.ApplyPayment(ctx, tenantID, invoiceID, dto.ApplyPaymentRequest{
		Amount: d("108.90"), Method: "transfer",
	})
	require.NoError(t, err)
	after, err := svc.Get(ctx, tenantID, invoiceID)
	require.NoError(t, err)
	assert.Equal(t, "paid", after.Status)
}
