package parser

import (
	"regexp"

	"github.com/quangtd/invoice2sap/internal/domain/invoice"
)

// MobifoneParser handles Mobifone post-paid invoices. The layout is
// bilingual and does not always print the serial and invoice numbers in
// the expected order, so a combined "serial number Ký hiệu Số" pattern
// is tried first with per-field fallbacks after it. Charge lines are
// four numeric fields (total, VAT, rate, base) directly before the word
// "Cước".
type MobifoneParser struct {
	serialNumberCombo *regexp.Regexp
	serial            *regexp.Regexp
	number            *regexp.Regexp
	date              *regexp.Regexp
	line              *regexp.Regexp
}

// NewMobifoneParser compiles the Mobifone layout patterns.
func NewMobifoneParser() *MobifoneParser {
	return &MobifoneParser{
		serialNumberCombo: regexp.MustCompile(`(?i)\b([A-Z0-9]{4,})\s+(\d{4,})\s+Ký\s*hiệu\s*Số`),
		serial:            regexp.MustCompile(`(?i)Ký\s*hiệu[^:]*[:\s]\s*([A-Z0-9]{4,})`),
		number:            regexp.MustCompile(`(?i)Số\s*(?:\(No\.\))?[^:]*[:\s]\s*(\d+)`),
		date:              regexp.MustCompile(`(?i)Ngày\s+(\d{1,2})\s+tháng\s+(\d{1,2})\s+năm\s+(\d{4})`),
		line:              regexp.MustCompile(`(?i)([0-9][0-9.,]*)\s+([0-9][0-9.,]*)\s+(\d{1,2})%\s+([0-9][0-9.,]*)\s+Cước`),
	}
}

// Vendor implements Parser.
func (p *MobifoneParser) Vendor() invoice.Vendor { return invoice.VendorMobifone }

// Parse implements Parser.
func (p *MobifoneParser) Parse(text string) (*invoice.Invoice, error) {
	inv := &invoice.Invoice{Vendor: invoice.VendorMobifone}

	if m := p.serialNumberCombo.FindStringSubmatch(text); m != nil {
		inv.SerialNo = m[1]
		inv.InvoiceNo = m[2]
	} else {
		if m := p.serial.FindStringSubmatch(text); m != nil {
			inv.SerialNo = m[1]
		}
		if m := p.number.FindStringSubmatch(text); m != nil {
			inv.InvoiceNo = m[1]
		}
	}

	if m := p.date.FindStringSubmatch(text); m != nil {
		inv.InvoiceDate = isoDate(m[1], m[2], m[3])
	}

	// Mobifone prints total, VAT, rate, base in that order.
	for _, m := range p.line.FindAllStringSubmatch(text, -1) {
		inv.Lines = append(inv.Lines, invoice.Line{
			TotalAmount: ParseAmount(m[1]),
			VATAmount:   ParseAmount(m[2]),
			VATRate:     atoiSafe(m[3]),
			BaseAmount:  ParseAmount(m[4]),
		})
	}
	inv.DedupeLines()
	return inv, nil
}
