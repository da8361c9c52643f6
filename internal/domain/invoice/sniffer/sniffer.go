// Package sniffer detects which telecom provider issued an invoice from
// its extracted text, for uploads where the user picked auto-detect.
//
// Detection runs in two passes: an Aho-Corasick multi-pattern scan over
// vendor marker phrases (one pass through the text regardless of how
// many markers are registered), then a fuzzy ranking fallback for PDFs
// whose text layer mangles diacritics or spacing.
package sniffer

import (
	"errors"
	"strings"

	"github.com/cloudflare/ahocorasick"
	"github.com/lithammer/fuzzysearch/fuzzy"

	"github.com/quangtd/invoice2sap/internal/domain/invoice"
)

// ErrUnknownVendor indicates no vendor marker was found in the text.
var ErrUnknownVendor = errors.New("could not detect invoice vendor")

// Marker phrases that identify a vendor. Company names appear on every
// invoice; tax codes are stable fallbacks when the name is mangled.
var vendorMarkers = map[invoice.Vendor][]string{
	invoice.VendorMobifone: {
		"mobifone",
		"tổng công ty viễn thông mobifone",
		"0100686209",
	},
	invoice.VendorViettel: {
		"viettel",
		"tập đoàn công nghiệp - viễn thông quân đội",
		"0100109106",
	},
	invoice.VendorVNPT: {
		"vnpt",
		"tập đoàn bưu chính viễn thông việt nam",
		"0200784273",
	},
}

// Detector matches invoice text against vendor marker phrases.
type Detector struct {
	matcher *ahocorasick.Matcher
	// vendors[i] is the vendor owning pattern i in the matcher.
	vendors  []invoice.Vendor
	patterns []string
}

// NewDetector builds the marker state machine.
func NewDetector() *Detector {
	d := &Detector{}
	var bytePatterns [][]byte
	for _, v := range invoice.Vendors {
		for _, marker := range vendorMarkers[v] {
			bytePatterns = append(bytePatterns, []byte(marker))
			d.vendors = append(d.vendors, v)
			d.patterns = append(d.patterns, marker)
		}
	}
	d.matcher = ahocorasick.NewMatcher(bytePatterns)
	return d
}

// Detect returns the vendor whose markers occur most often in the text.
// Ties go to the vendor with the first marker hit, which in practice is
// the issuer (other vendors' names may appear in call detail lines).
func (d *Detector) Detect(text string) (invoice.Vendor, error) {
	lower := strings.ToLower(text)

	hits := d.matcher.Match([]byte(lower))
	if len(hits) > 0 {
		// Match reports each pattern once, so count occurrences
		// ourselves: a Viettel bill can mention Mobifone's name on
		// every call-detail line.
		counts := make(map[invoice.Vendor]int)
		for _, idx := range hits {
			counts[d.vendors[idx]] += strings.Count(lower, d.patterns[idx])
		}
		best := d.vendors[hits[0]]
		for _, v := range invoice.Vendors {
			if counts[v] > counts[best] {
				best = v
			}
		}
		return best, nil
	}

	return d.fuzzyDetect(lower)
}

// fuzzyDetect scores each vendor's markers against the text words.
// Rescues invoices whose text layer drops or garbles diacritics.
func (d *Detector) fuzzyDetect(lower string) (invoice.Vendor, error) {
	words := strings.Fields(lower)
	bestVendor := invoice.Vendor("")
	bestRank := -1

	for i, pattern := range d.patterns {
		// Only single-word markers rank reliably against word tokens.
		if strings.ContainsAny(pattern, " -") {
			continue
		}
		for _, w := range words {
			rank := fuzzy.RankMatchNormalizedFold(pattern, w)
			if rank < 0 {
				continue
			}
			// Lower rank is a closer match.
			if bestRank < 0 || rank < bestRank {
				bestRank = rank
				bestVendor = d.vendors[i]
			}
		}
	}

	if bestVendor == "" {
		return "", ErrUnknownVendor
	}
	return bestVendor, nil
}
