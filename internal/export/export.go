package export

import (
	"encoding/json"
	"encoding/xml"

	"neuriax/internal/apperror"
	"neuriax/internal/model"

	"github.com/shopspring/decimal"
)

// Format selects the export serialization.
type Format string

const (
	FormatJSON     Format = "json"
	FormatXML      Format = "xml"
	FormatFacturae Format = "facturae"
	FormatPDF      Format = "pdf"
)

// Render serializes an invoice in the requested format and returns the bytes
// plus the matching Content-Type. All renderers reproduce the stored totals
// verbatim — export never recomputes tax or discounts.
func Render(inv *model.Invoice, format Format) ([]byte, string, error) {
	switch format {
	case FormatJSON:
		data, err := json.MarshalIndent(buildDocument(inv), "", "  ")
		if err != nil {
			return nil, "", apperror.Persistence(err)
		}
		return data, "application/json", nil
	case FormatXML:
		data, err := xml.MarshalIndent(buildDocument(inv), "", "  ")
		if err != nil {
			return nil, "", apperror.Persistence(err)
		}
		return append([]byte(xml.Header), data...), "application/xml", nil
	case FormatFacturae:
		data, err := renderFacturae(inv)
		if err != nil {
			return nil, "", err
		}
		return data, "application/xml", nil
	case FormatPDF:
		data, err := renderPDF(inv)
		if err != nil {
			return nil, "", err
		}
		return data, "application/pdf", nil
	default:
		return nil, "", apperror.Validation(apperror.CodeInvalidAmount,
			"unknown export format %q (want json, xml, facturae or pdf)", format)
	}
}

// Document is the flat export shape shared by the JSON and XML renderers.
type Document struct {
	XMLName           xml.Name        `json:"-" xml:"invoice"`
	Number            string          `json:"number" xml:"number"`
	Type              string          `json:"type" xml:"type"`
	Status            string          `json:"status" xml:"status"`
	IssueDate         string          `json:"issue_date" xml:"issue_date"`
	DueDate           string          `json:"due_date" xml:"due_date"`
	CustomerName      string          `json:"customer_name" xml:"customer>name"`
	CustomerTaxID     string          `json:"customer_tax_id,omitempty" xml:"customer>tax_id,omitempty"`
	CustomerAddress   string          `json:"customer_address,omitempty" xml:"customer>address,omitempty"`
	Currency          string          `json:"currency" xml:"currency"`
	TaxRateCode       string          `json:"tax_rate_code" xml:"tax_rate_code"`
	TaxRatePct        decimal.Decimal `json:"tax_rate_pct" xml:"tax_rate_pct"`
	GlobalDiscountPct decimal.Decimal `json:"global_discount_pct" xml:"global_discount_pct"`
	Subtotal          decimal.Decimal `json:"subtotal" xml:"subtotal"`
	DiscountAmount    decimal.Decimal `json:"discount_amount" xml:"discount_amount"`
	TaxableBase       decimal.Decimal `json:"taxable_base" xml:"taxable_base"`
	TaxAmount         decimal.Decimal `json:"tax_amount" xml:"tax_amount"`
	Total             decimal.Decimal `json:"total" xml:"total"`
	AmountPaid        decimal.Decimal `json:"amount_paid" xml:"amount_paid"`
	Lines             []DocumentLine  `json:"lines" xml:"lines>line"`
}

type DocumentLine struct {
	Description     string          `json:"description" xml:"description"`
	Quantity        decimal.Decimal `json:"quantity" xml:"quantity"`
	UnitPrice       decimal.Decimal `json:"unit_price" xml:"unit_price"`
	LineDiscountPct decimal.Decimal `json:"line_discount_pct" xml:"line_discount_pct"`
	Base            decimal.Decimal `json:"base" xml:"base"`
}

func buildDocument(inv *model.Invoice) Document {
	lines := make([]DocumentLine, 0, len(inv.Lines))
	for _, l := range inv.Lines {
		lines = append(lines, DocumentLine{
			Description:     l.Description,
			Quantity:        l.Quantity,
			UnitPrice:       l.UnitPrice,
			LineDiscountPct: l.LineDiscountPct,
			Base:            l.Base,
		})
	}
	return Document{
		Number:            inv.Number,
		Type:              inv.Type,
		Status:            inv.Status,
		IssueDate:         inv.IssueDate.Format("2006-01-02"),
		DueDate:           inv.DueDate.Format("2006-01-02"),
		CustomerName:      inv.CustomerName,
		CustomerTaxID:     deref(inv.CustomerTaxID),
		CustomerAddress:   deref(inv.CustomerAddress),
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
		Lines:             lines,
	}
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
