package export

// facturae.go — minimal Facturae 3.2.2 document. Covers the single-invoice,
// single-tax-rate shape this backend produces; it is not a full implementation
// of the schema.

import (
	"encoding/xml"

	"neuriax/internal/apperror"
	"neuriax/internal/model"
)

type facturaeDoc struct {
	XMLName    xml.Name `xml:"fe:Facturae"`
	XmlnsFe    string   `xml:"xmlns:fe,attr"`
	FileHeader struct {
		SchemaVersion string `xml:"SchemaVersion"`
		Modality      string `xml:"Modality"`
		Batch         struct {
			BatchIdentifier string         `xml:"BatchIdentifier"`
			InvoicesCount   int            `xml:"InvoicesCount"`
			TotalAmount     facturaeAmount `xml:"TotalInvoicesAmount"`
			TotalOutstand   facturaeAmount `xml:"TotalOutstandingAmount"`
			TotalExecutable facturaeAmount `xml:"TotalExecutableAmount"`
			CurrencyCode    string         `xml:"InvoiceCurrencyCode"`
		} `xml:"Batch"`
	} `xml:"FileHeader"`
	Parties struct {
		BuyerParty struct {
			TaxID struct {
				PersonTypeCode string `xml:"PersonTypeCode"`
				TaxIDNumber    string `xml:"TaxIdentificationNumber"`
			} `xml:"TaxIdentification"`
			LegalEntity struct {
				CorporateName string `xml:"CorporateName"`
				Address       string `xml:"AddressInSpain>Address,omitempty"`
			} `xml:"LegalEntity"`
		} `xml:"BuyerParty"`
	} `xml:"Parties"`
	Invoices struct {
		Invoice struct {
			Header struct {
				InvoiceNumber string `xml:"InvoiceNumber"`
				DocumentType  string `xml:"InvoiceDocumentType"`
				Class         string `xml:"InvoiceClass"`
			} `xml:"InvoiceHeader"`
			IssueData struct {
				IssueDate    string `xml:"IssueDate"`
				CurrencyCode string `xml:"InvoiceCurrencyCode"`
				TaxCurrency  string `xml:"TaxCurrencyCode"`
				LanguageName string `xml:"LanguageName"`
			} `xml:"InvoiceIssueData"`
			TaxesOutputs struct {
				Tax struct {
					TaxTypeCode string         `xml:"TaxTypeCode"`
					TaxRate     string         `xml:"TaxRate"`
					TaxableBase facturaeAmount `xml:"TaxableBase"`
					TaxAmount   facturaeAmount `xml:"TaxAmount"`
				} `xml:"Tax"`
			} `xml:"TaxesOutputs"`
			Totals struct {
				GrossAmount      string `xml:"TotalGrossAmount"`
				GeneralDiscounts string `xml:"TotalGeneralDiscounts"`
				GrossBeforeTaxes string `xml:"TotalGrossAmountBeforeTaxes"`
				TaxOutputs       string `xml:"TotalTaxOutputs"`
				InvoiceTotal     string `xml:"InvoiceTotal"`
				TotalOutstanding string `xml:"TotalOutstandingAmount"`
				TotalExecutable  string `xml:"TotalExecutableAmount"`
			} `xml:"InvoiceTotals"`
			Items struct {
				Lines []facturaeLine `xml:"InvoiceLine"`
			} `xml:"Items"`
		} `xml:"Invoice"`
	} `xml:"Invoices"`
}

type facturaeAmount struct {
	TotalAmount string `xml:"TotalAmount"`
}

type facturaeLine struct {
	ItemDescription string `xml:"ItemDescription"`
	Quantity        string `xml:"Quantity"`
	UnitPriceWOTax  string `xml:"UnitPriceWithoutTax"`
	TotalCost       string `xml:"TotalCost"`
}

// invoiceClass maps the document type to the Facturae InvoiceClass code.
// "OO" original, "OR" corrective original.
func invoiceClass(invoiceType string) string {
	if invoiceType == "corrective" {
		return "OR"
	}
	return "OO"
}

func renderFacturae(inv *model.Invoice) ([]byte, error) {
	doc := facturaeDoc{XmlnsFe: "http://www.facturae.es/Facturae/2014/v3.2.1/Facturae"}

	outstanding := inv.Total.Sub(inv.AmountPaid)

	doc.FileHeader.SchemaVersion = "3.2.2"
	doc.FileHeader.Modality = "I"
	doc.FileHeader.Batch.BatchIdentifier = inv.Number
	doc.FileHeader.Batch.InvoicesCount = 1
	doc.FileHeader.Batch.TotalAmount.TotalAmount = inv.Total.StringFixed(2)
	doc.FileHeader.Batch.TotalOutstand.TotalAmount = outstanding.StringFixed(2)
	doc.FileHeader.Batch.TotalExecutable.TotalAmount = outstanding.StringFixed(2)
	doc.FileHeader.Batch.CurrencyCode = inv.Currency

	doc.Parties.BuyerParty.TaxID.PersonTypeCode = "F"
	doc.Parties.BuyerParty.TaxID.TaxIDNumber = deref(inv.CustomerTaxID)
	doc.Parties.BuyerParty.LegalEntity.CorporateName = inv.CustomerName
	doc.Parties.BuyerParty.LegalEntity.Address = deref(inv.CustomerAddress)

	i := &doc.Invoices.Invoice
	i.Header.InvoiceNumber = inv.Number
	i.Header.DocumentType = "FC"
	i.Header.Class = invoiceClass(inv.Type)
	i.IssueData.IssueDate = inv.IssueDate.Format("2006-01-02")
	i.IssueData.CurrencyCode = inv.Currency
	i.IssueData.TaxCurrency = inv.Currency
	i.IssueData.LanguageName = "es"

	i.TaxesOutputs.Tax.TaxTypeCode = "01" // IVA
	i.TaxesOutputs.Tax.TaxRate = inv.TaxRatePct.StringFixed(2)
	i.TaxesOutputs.Tax.TaxableBase.TotalAmount = inv.TaxableBase.StringFixed(2)
	i.TaxesOutputs.Tax.TaxAmount.TotalAmount = inv.TaxAmount.StringFixed(2)

	i.Totals.GrossAmount = inv.Subtotal.StringFixed(2)
	i.Totals.GeneralDiscounts = inv.DiscountAmount.StringFixed(2)
	i.Totals.GrossBeforeTaxes = inv.TaxableBase.StringFixed(2)
	i.Totals.TaxOutputs = inv.TaxAmount.StringFixed(2)
	i.Totals.InvoiceTotal = inv.Total.StringFixed(2)
	i.Totals.TotalOutstanding = outstanding.StringFixed(2)
	i.Totals.TotalExecutable = outstanding.StringFixed(2)

	for _, l := range inv.Lines {
		i.Items.Lines = append(i.Items.Lines, facturaeLine{
			ItemDescription: l.Description,
			Quantity:        l.Quantity.String(),
			UnitPriceWOTax:  l.UnitPrice.StringFixed(2),
			TotalCost:       l.Base.StringFixed(2),
		})
	}

	data, err := xml.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, apperror.Persistence(err)
	}
	return append([]byte(xml.Header), data...), nil
}
