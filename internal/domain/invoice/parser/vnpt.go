package parser

import (
	"regexp"

	"github.com/quangtd/invoice2sap/internal/domain/invoice"
)

// VNPTParser handles VNPT VAT invoices (Hóa đơn GTGT). Unlike the other
// vendors, VNPT does not repeat the VAT rate and amount on each table
// line; a summary block near the bottom carries "Cộng tiền hàng",
// "Thuế suất thuế GTGT", "Tiền thuế GTGT" and "Tổng cộng tiền thanh
// toán". The parser extracts those summary values as a single line.
type VNPTParser struct {
	serial      *regexp.Regexp
	number      *regexp.Regexp
	date        *regexp.Regexp
	baseAmount  *regexp.Regexp
	vatRate     *regexp.Regexp
	vatAmount   *regexp.Regexp
	totalAmount *regexp.Regexp
}

// NewVNPTParser compiles the VNPT layout patterns.
func NewVNPTParser() *VNPTParser {
	return &VNPTParser{
		serial: regexp.MustCompile(`(?i)Ký\s*hiệu\s*[:\s]+([A-Z0-9]+)`),
		number: regexp.MustCompile(`(?i)Số\s*[:\s]+(\d+)`),
		// Header reads "Ngày (Date) DD Tháng (Month) MM Năm (Year) YYYY";
		// the English words in parentheses sit between the numbers.
		date:        regexp.MustCompile(`(?i)Ngày[^0-9]*([0-9]{1,2})[^0-9]+([0-9]{1,2})[^0-9]+([0-9]{4})`),
		baseAmount:  regexp.MustCompile(`(?i)Cộng\s+tiền\s+hàng[^:]*:\s*([0-9][0-9.,]*)`),
		vatRate:     regexp.MustCompile(`(?i)Thuế\s+suất\s+thuế\s+GTGT[^:]*:\s*(\d{1,2})%?`),
		vatAmount:   regexp.MustCompile(`(?i)Tiền\s+thuế\s+GTGT[^:]*:\s*([0-9][0-9.,]*)`),
		totalAmount: regexp.MustCompile(`(?i)Tổng\s+cộng\s+tiền\s+thanh\s+toán[^:]*:\s*([0-9][0-9.,]*)`),
	}
}

// Vendor implements Parser.
func (p *VNPTParser) Vendor() invoice.Vendor { return invoice.VendorVNPT }

// Parse implements Parser.
func (p *VNPTParser) Parse(text string) (*invoice.Invoice, error) {
	inv := &invoice.Invoice{Vendor: invoice.VendorVNPT}

	if m := p.serial.FindStringSubmatch(text); m != nil {
		inv.SerialNo = m[1]
	}
	if m := p.number.FindStringSubmatch(text); m != nil {
		inv.InvoiceNo = m[1]
	}
	if m := p.date.FindStringSubmatch(text); m != nil {
		inv.InvoiceDate = isoDate(m[1], m[2], m[3])
	}

	var line invoice.Line
	found := false
	if m := p.baseAmount.FindStringSubmatch(text); m != nil {
		line.BaseAmount = ParseAmount(m[1])
		found = true
	}
	if m := p.vatRate.FindStringSubmatch(text); m != nil {
		line.VATRate = atoiSafe(m[1])
	}
	if m := p.vatAmount.FindStringSubmatch(text); m != nil {
		line.VATAmount = ParseAmount(m[1])
		found = true
	}
	if m := p.totalAmount.FindStringSubmatch(text); m != nil {
		line.TotalAmount = ParseAmount(m[1])
		found = true
	}
	if found {
		inv.Lines = append(inv.Lines, line)
	}
	return inv, nil
}
