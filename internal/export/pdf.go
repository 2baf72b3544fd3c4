package export

// pdf.go — A4 invoice rendering with go-pdf/fpdf:
//   - number, type and status header
//   - customer snapshot block
//   - line table (description, qty, unit price, discount, base)
//   - totals block with discount, taxable base, tax and amount paid

import (
	"bytes"
	"fmt"

	"neuriax/internal/apperror"
	"neuriax/internal/model"

	"github.com/go-pdf/fpdf"
)

var typeLabels = map[string]string{
	"ordinary":   "Factura",
	"simplified": "Factura Simplificada",
	"proforma":   "Factura Proforma",
	"corrective": "Factura Rectificativa",
}

func renderPDF(inv *model.Invoice) ([]byte, error) {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pageW, _ := pdf.GetPageSize()
	contentW := pageW - 30

	label := typeLabels[inv.Type]
	if label == "" {
		label = "Factura"
	}

	// ── Header ───────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 16)
	pdf.CellFormat(contentW, 9, label, "", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "B", 11)
	pdf.CellFormat(contentW, 6, inv.Number, "", 1, "L", false, 0, "")

	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, "Fecha de emisión: "+inv.IssueDate.Format("02/01/2006"), "", 1, "L", false, 0, "")
	pdf.CellFormat(contentW, 5, "Vencimiento: "+inv.DueDate.Format("02/01/2006"), "", 1, "L", false, 0, "")
	if inv.Status == "void" {
		pdf.SetFont("Helvetica", "B", 10)
		pdf.SetTextColor(180, 0, 0)
		pdf.CellFormat(contentW, 6, "ANULADA", "", 1, "L", false, 0, "")
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.Ln(3)

	// ── Customer ─────────────────────────────────────────────────────────────
	pdf.SetFont("Helvetica", "B", 9)
	pdf.CellFormat(contentW, 5, "Cliente", "B", 1, "L", false, 0, "")
	pdf.SetFont("Helvetica", "", 9)
	pdf.CellFormat(contentW, 5, inv.CustomerName, "", 1, "L", false, 0, "")
	if inv.CustomerTaxID != nil {
		pdf.CellFormat(contentW, 5, "NIF: "+*inv.CustomerTaxID, "", 1, "L", false, 0, "")
	}
	if inv.CustomerAddress != nil {
		pdf.CellFormat(contentW, 5, *inv.CustomerAddress, "", 1, "L", false, 0, "")
	}
	pdf.Ln(4)

	// ── Line table ───────────────────────────────────────────────────────────
	col1 := contentW * 0.40 // description
	col2 := contentW * 0.13 // quantity
	col3 := contentW * 0.17 // unit price
	col4 := contentW * 0.13 // discount
	col5 := contentW * 0.17 // base

	pdf.SetFont("Helvetica", "B", 8)
	pdf.CellFormat(col1, 6, "Concepto", "B", 0, "L", false, 0, "")
	pdf.CellFormat(col2, 6, "Cant.", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col3, 6, "Precio", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col4, 6, "Dto.", "B", 0, "R", false, 0, "")
	pdf.CellFormat(col5, 6, "Base", "B", 1, "R", false, 0, "")

	pdf.SetFont("Helvetica", "", 8)
	for _, l := range inv.Lines {
		// truncate on rune boundaries — descriptions are routinely accented
		desc := l.Description
		if r := []rune(desc); len(r) > 48 {
			desc = string(r[:47]) + "…"
		}
		pdf.CellFormat(col1, 5, desc, "", 0, "L", false, 0, "")
		pdf.CellFormat(col2, 5, l.Quantity.String(), "", 0, "R", false, 0, "")
		pdf.CellFormat(col3, 5, l.UnitPrice.StringFixed(2), "", 0, "R", false, 0, "")
		pdf.CellFormat(col4, 5, l.LineDiscountPct.StringFixed(0)+"%", "", 0, "R", false, 0, "")
		pdf.CellFormat(col5, 5, l.Base.StringFixed(2), "", 1, "R", false, 0, "")
	}

	pdf.Ln(2)
	pdf.Line(15, pdf.GetY(), pageW-15, pdf.GetY())
	pdf.Ln(2)

	// ── Totals ───────────────────────────────────────────────────────────────
	labelW := col1 + col2 + col3 + col4
	totalLine := func(name, value string, bold bool) {
		if bold {
			pdf.SetFont("Helvetica", "B", 10)
		} else {
			pdf.SetFont("Helvetica", "", 9)
		}
		pdf.CellFormat(labelW, 5.5, name, "", 0, "R", false, 0, "")
		pdf.CellFormat(col5, 5.5, value, "", 1, "R", false, 0, "")
	}

	totalLine("Subtotal:", inv.Subtotal.StringFixed(2), false)
	if !inv.GlobalDiscountPct.IsZero() {
		totalLine(fmt.Sprintf("Descuento (%s%%):", inv.GlobalDiscountPct.StringFixed(0)),
			"-"+inv.DiscountAmount.StringFixed(2), false)
	}
	totalLine("Base imponible:", inv.TaxableBase.StringFixed(2), false)
	totalLine(fmt.Sprintf("IVA (%s%%):", inv.TaxRatePct.StringFixed(0)), inv.TaxAmount.StringFixed(2), false)
	totalLine("TOTAL "+inv.Currency+":", inv.Total.StringFixed(2), true)
	if inv.AmountPaid.IsPositive() {
		totalLine("Pagado:", inv.AmountPaid.StringFixed(2), false)
		totalLine("Pendiente:", inv.Total.Sub(inv.AmountPaid).StringFixed(2), false)
	}

	if inv.Notes != nil && *inv.Notes != "" {
		pdf.Ln(4)
		pdf.SetFont("Helvetica", "I", 8)
		pdf.MultiCell(contentW, 4, *inv.Notes, "", "L", false)
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, apperror.Persistence(err)
	}
	return buf.Bytes(), nil
}
