// Package invoice defines the structured representation of a parsed
// telecom invoice. Vendor parsers produce this type; the transform layer
// consumes it.
package invoice

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Vendor identifies a supported telecom provider.
type Vendor string

const (
	VendorMobifone Vendor = "mobifone"
	VendorViettel  Vendor = "viettel"
	VendorVNPT     Vendor = "vnpt"

	// VendorAuto asks the pipeline to detect the vendor from the PDF text.
	VendorAuto Vendor = "auto"
)

// Vendors lists the concrete providers in UI order.
var Vendors = []Vendor{VendorMobifone, VendorVNPT, VendorViettel}

// ParseVendor validates a user-supplied vendor name (case insensitive).
func ParseVendor(s string) (Vendor, error) {
	switch Vendor(strings.ToLower(strings.TrimSpace(s))) {
	case VendorMobifone:
		return VendorMobifone, nil
	case VendorViettel:
		return VendorViettel, nil
	case VendorVNPT:
		return VendorVNPT, nil
	case VendorAuto:
		return VendorAuto, nil
	}
	return "", fmt.Errorf("unsupported vendor: %q", s)
}

// DisplayName returns the provider name as shown in the UI.
func (v Vendor) DisplayName() string {
	switch v {
	case VendorMobifone:
		return "Mobifone"
	case VendorViettel:
		return "Viettel"
	case VendorVNPT:
		return "VNPT"
	case VendorAuto:
		return "Auto-detect"
	}
	return string(v)
}

// Line is a single charge line on an invoice.
type Line struct {
	// BaseAmount is the service charge before VAT.
	BaseAmount decimal.Decimal
	// VATRate is the VAT percentage (10 for 10%).
	VATRate int
	// VATAmount is the VAT alone, excluding the base.
	VATAmount decimal.Decimal
	// TotalAmount is base + VAT as printed on the invoice.
	TotalAmount decimal.Decimal
}

// Key returns a comparable identity for deduplication. Invoices often
// repeat the charge line in a "CỘNG" summary row.
func (l Line) Key() string {
	return fmt.Sprintf("%s|%d|%s|%s",
		l.BaseAmount.String(), l.VATRate, l.VATAmount.String(), l.TotalAmount.String())
}

// Invoice is the normalized output of a vendor parser.
type Invoice struct {
	Vendor Vendor
	// InvoiceNo is the sequential number printed on the document ("Số").
	InvoiceNo string
	// SerialNo is the series code ("Ký hiệu", e.g. "1K25DAA").
	SerialNo string
	// InvoiceDate is the billing date in ISO format (YYYY-MM-DD), empty
	// when it could not be extracted.
	InvoiceDate string
	Lines       []Line
}

// Total sums the gross amounts of all lines.
func (inv *Invoice) Total() decimal.Decimal {
	total := decimal.Zero
	for _, l := range inv.Lines {
		total = total.Add(l.TotalAmount)
	}
	return total
}

// Empty reports whether the parser found nothing usable. Such invoices
// are surfaced to the user as parse failures rather than exported.
func (inv *Invoice) Empty() bool {
	return inv.InvoiceNo == "" && inv.SerialNo == "" && len(inv.Lines) == 0
}

// DedupeLines removes repeated charge lines, preserving first-seen order.
func (inv *Invoice) DedupeLines() {
	seen := make(map[string]struct{}, len(inv.Lines))
	unique := inv.Lines[:0]
	for _, l := range inv.Lines {
		k := l.Key()
		if _, ok := seen[k]; ok {
			continue
		}
		seen[k] = struct{}{}
		unique = append(unique, l)
	}
	inv.Lines = unique
}
