package parser

import (
	"regexp"

	"github.com/quangtd/invoice2sap/internal/domain/invoice"
)

// ViettelParser handles Viettel post-paid invoices. The serial and
// invoice numbers sit in a labelled box at the top right, the date is
// "Ngày lập: DD/MM/YYYY" (with a textual fallback), and charge lines
// carry base, rate%, VAT, total in that order. Repeated "CỘNG" summary
// rows duplicate the service line and are dropped.
type ViettelParser struct {
	serial   *regexp.Regexp
	number   *regexp.Regexp
	dateNum  *regexp.Regexp
	dateText *regexp.Regexp
	line     *regexp.Regexp
}

// NewViettelParser compiles the Viettel layout patterns.
func NewViettelParser() *ViettelParser {
	return &ViettelParser{
		serial:   regexp.MustCompile(`(?i)Ký\s*hiệu\s*[:\s]\s*([A-Z0-9]+)`),
		number:   regexp.MustCompile(`(?i)Số\s*[:\s]\s*(\d+)`),
		dateNum:  regexp.MustCompile(`(?i)Ngày\s*(?:lập)?\s*[:\s]*([0-9]{1,2})/([0-9]{1,2})/([0-9]{4})`),
		dateText: regexp.MustCompile(`(?i)Ngày\s+([0-9]{1,2})\s+tháng\s+([0-9]{1,2})\s+năm\s+([0-9]{4})`),
		line:     regexp.MustCompile(`([0-9][0-9.,]*)\s+(\d{1,2})%\s+([0-9][0-9.,]*)\s+([0-9][0-9.,]*)`),
	}
}

// Vendor implements Parser.
func (p *ViettelParser) Vendor() invoice.Vendor { return invoice.VendorViettel }

// Parse implements Parser.
func (p *ViettelParser) Parse(text string) (*invoice.Invoice, error) {
	inv := &invoice.Invoice{Vendor: invoice.VendorViettel}

	if m := p.serial.FindStringSubmatch(text); m != nil {
		inv.SerialNo = m[1]
	}
	if m := p.number.FindStringSubmatch(text); m != nil {
		inv.InvoiceNo = m[1]
	}

	if m := p.dateNum.FindStringSubmatch(text); m != nil {
		inv.InvoiceDate = isoDate(m[1], m[2], m[3])
	} else if m := p.dateText.FindStringSubmatch(text); m != nil {
		inv.InvoiceDate = isoDate(m[1], m[2], m[3])
	}

	// Viettel prints base, rate, VAT, total in that order.
	for _, m := range p.line.FindAllStringSubmatch(text, -1) {
		inv.Lines = append(inv.Lines, invoice.Line{
			BaseAmount:  ParseAmount(m[1]),
			VATRate:     atoiSafe(m[2]),
			VATAmount:   ParseAmount(m[3]),
			TotalAmount: ParseAmount(m[4]),
		})
	}
	inv.DedupeLines()
	return inv, nil
}
