package export

import (
	"encoding/json"
	"strings"
	"testing"
	"time"

	"neuriax/internal/model"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func d(s string) decimal.Decimal { return decimal.RequireFromString(s) }

func sampleInvoice() *model.Invoice {
	taxID := "B12345678"
	return &model.Invoice{
		ID:            uuid.New(),
		TenantID:      uuid.New(),
		Number:        "FAC-2026-000042",
		Type:          "ordinary",
		Status:        "issued",
		PaymentStatus: "partial",
		IssueDate:     time.Date(2026, 3, 10, 0, 0, 0, 0, time.UTC),
		DueDate:       time.Date(2026, 4, 9, 0, 0, 0, 0, time.UTC),
		CustomerName:  "Peluquería Sol",
		CustomerTaxID: &taxID,
		Currency:      "EUR",
		TaxRateCode:   "general",
		TaxRatePct:    d("21"),
		// Stored totals are deliberately inconsistent with the lines: export
		// must reproduce them verbatim, never recompute.
		Subtotal:       d("90.00"),
		DiscountAmount: d("0.00"),
		TaxableBase:    d("90.00"),
		TaxAmount:      d("18.90"),
		Total:          d("108.90"),
		AmountPaid:     d("60.00"),
		Lines: []model.InvoiceLine{
			{
				Description: "Corte y peinado",
				Quantity:    d("2"), UnitPrice: d("999"),
				LineDiscountPct: d("10"), Base: d("90.00"),
			},
		},
	}
}

func TestRenderJSONMirrorsStoredTotals(t *testing.T) {
	data, contentType, err := Render(sampleInvoice(), FormatJSON)
	require.NoError(t, err)
	assert.Equal(t, "application/json", contentType)

	var doc map[string]any
	require.NoError(t, json.Unmarshal(data, &doc))
	assert.Equal(t, "FAC-2026-000042", doc["number"])
	assert.Equal(t, "108.90", doc["total"])
	assert.Equal(t, "18.90", doc["tax_amount"])
	assert.Equal(t, "60.00", doc["amount_paid"])
	assert.Equal(t, "2026-03-10", doc["issue_date"])
}

func TestRenderXML(t *testing.T) {
	data, contentType, err := Render(sampleInvoice(), FormatXML)
	require.NoError(t, err)
	assert.Equal(t, "application/xml", contentType)

	xmlStr := string(data)
	assert.True(t, strings.HasPrefix(xmlStr, "<?xml"))
	assert.Contains(t, xmlStr, "<number>FAC-2026-000042</number>")
	assert.Contains(t, xmlStr, "<total>108.90</total>")
	assert.Contains(t, xmlStr, "<name>Peluquería Sol</name>")
	assert.Contains(t, xmlStr, "<tax_id>B12345678</tax_id>")
}

func TestRenderFacturae(t *testing.T) {
	data, contentType, err := Render(sampleInvoice(), FormatFacturae)
	require.NoError(t, err)
	assert.Equal(t, "application/xml", contentType)

	xmlStr := string(data)
	assert.Contains(t, xmlStr, "Facturae")
	assert.Contains(t, xmlStr, "FAC-2026-000042")
	assert.Contains(t, xmlStr, "108.90")
	// outstanding = total − paid
	assert.Contains(t, xmlStr, "48.90")
}

func TestRenderPDF(t *testing.T) {
	data, contentType, err := Render(sampleInvoice(), FormatPDF)
	require.NoError(t, err)
	assert.Equal(t, "application/pdf", contentType)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"), "not a PDF header")
}

func TestRenderPDFTruncatesLongAccentedDescription(t *testing.T) {
	inv := sampleInvoice()
	// accented runes straddling the truncation point must not be split
	inv.Lines[0].Description = strings.Repeat("Tratamiento de queratina y peinado señora, ", 3)

	data, _, err := Render(inv, FormatPDF)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "%PDF"))
}

func TestRenderVoidPDF(t *testing.T) {
	inv := sampleInvoice()
	inv.Status = "void"
	reason := "duplicate entry"
	inv.VoidReason = &reason

	data, _, err := Render(inv, FormatPDF)
	require.NoError(t, err)
	assert.NotEmpty(t, data)
}

func TestRenderUnknownFormat(t *testing.T) {
	_, _, err := Render(sampleInvoice(), Format("csv"))
	require.Error(t, err)
}
