// Package parser implements the vendor-specific invoice parsers. Each
// parser turns the whitespace-normalized text of one PDF into a
// structured invoice. Parsers are stateless and fail-soft: fields that
// cannot be located come back empty or zero, never as an error.
package parser

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quangtd/invoice2sap/internal/domain/invoice"
)

// Parser extracts structured invoice data from normalized PDF text.
type Parser interface {
	// Vendor identifies which provider's layout this parser handles.
	Vendor() invoice.Vendor
	// Parse extracts invoice fields from whitespace-normalized text.
	Parse(text string) (*invoice.Invoice, error)
}

// Registry resolves parsers by vendor.
type Registry struct {
	parsers map[invoice.Vendor]Parser
}

// NewRegistry builds a registry with all supported vendor parsers.
func NewRegistry() *Registry {
	r := &Registry{parsers: make(map[invoice.Vendor]Parser)}
	r.register(NewMobifoneParser())
	r.register(NewViettelParser())
	r.register(NewVNPTParser())
	return r
}

func (r *Registry) register(p Parser) {
	r.parsers[p.Vendor()] = p
}

// Get returns the parser for a vendor.
func (r *Registry) Get(v invoice.Vendor) (Parser, error) {
	p, ok := r.parsers[v]
	if !ok {
		return nil, fmt.Errorf("no parser available for vendor: %s", v)
	}
	return p, nil
}

// ParseAmount converts a monetary string as printed on Vietnamese
// invoices into a decimal. Dots are thousands separators, commas are
// decimal separators (e.g. "44.545" or "1.234,5"). Garbage parses to
// zero so a malformed cell never aborts the whole invoice.
func ParseAmount(value string) decimal.Decimal {
	cleaned := strings.ReplaceAll(value, "\u00a0", "")
	cleaned = strings.TrimSpace(cleaned)
	cleaned = strings.ReplaceAll(cleaned, " ", "")
	if cleaned == "" {
		return decimal.Zero
	}
	// Comma is the decimal separator, dot the thousands separator.
	cleaned = strings.ReplaceAll(cleaned, ",", "#")
	cleaned = strings.ReplaceAll(cleaned, ".", "")
	cleaned = strings.ReplaceAll(cleaned, "#", ".")
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// isoDate validates day/month/year captures and renders an ISO date.
// Returns "" for impossible dates (e.g. 31/02).
func isoDate(dayStr, monthStr, yearStr string) string {
	var day, month, year int
	if _, err := fmt.Sscanf(dayStr+" "+monthStr+" "+yearStr, "%d %d %d", &day, &month, &year); err != nil {
		return ""
	}
	t := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	if t.Day() != day || int(t.Month()) != month || t.Year() != year {
		return ""
	}
	return t.Format("2006-01-02")
}

// atoiSafe parses a small integer capture, 0 on failure.
func atoiSafe(s string) int {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0
	}
	return n
}
