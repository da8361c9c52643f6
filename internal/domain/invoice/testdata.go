package invoice

import (
	"fmt"
	"strings"
	"time"

	"github.com/brianvoe/gofakeit/v6"
	"github.com/shopspring/decimal"
)

// TestDataGenerator builds realistic invoice fixtures with gofakeit.
// Used by service and repository tests that need batches of parsed
// invoices without real PDFs.
type TestDataGenerator struct {
	faker *gofakeit.Faker
}

// NewTestDataGenerator creates a generator with a random seed.
func NewTestDataGenerator() *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(0)}
}

// NewTestDataGeneratorWithSeed creates a reproducible generator.
func NewTestDataGeneratorWithSeed(seed int64) *TestDataGenerator {
	return &TestDataGenerator{faker: gofakeit.New(seed)}
}

// Invoice generates a random parsed invoice for the given vendor with
// one to three charge lines at a 10% VAT rate.
func (g *TestDataGenerator) Invoice(vendor Vendor) *Invoice {
	inv := &Invoice{
		Vendor:      vendor,
		SerialNo:    g.serialNo(),
		InvoiceNo:   fmt.Sprintf("%07d", g.faker.Number(1, 9999999)),
		InvoiceDate: g.invoiceDate(),
	}

	lines := g.faker.Number(1, 3)
	for i := 0; i < lines; i++ {
		inv.Lines = append(inv.Lines, g.Line(10))
	}
	return inv
}

// Invoices generates a batch of invoices across random vendors.
func (g *TestDataGenerator) Invoices(count int) []*Invoice {
	out := make([]*Invoice, count)
	for i := range out {
		out[i] = g.Invoice(Vendors[g.faker.Number(0, len(Vendors)-1)])
	}
	return out
}

// Line generates a consistent charge line at the given VAT rate. The
// VAT and total are derived from the base so totals reconcile.
func (g *TestDataGenerator) Line(vatRate int) Line {
	base := decimal.NewFromInt(int64(g.faker.Number(10000, 2000000)))
	vat := base.Mul(decimal.NewFromInt(int64(vatRate))).
		Div(decimal.NewFromInt(100)).Round(0)
	return Line{
		BaseAmount:  base,
		VATRate:     vatRate,
		VATAmount:   vat,
		TotalAmount: base.Add(vat),
	}
}

// serialNo mimics the "1C24TMB" style serial codes on VAT invoices.
func (g *TestDataGenerator) serialNo() string {
	return fmt.Sprintf("1%s%02d%s",
		g.faker.RandomString([]string{"C", "K"}),
		g.faker.Number(22, 25),
		strings.ToUpper(g.faker.LetterN(3)))
}

func (g *TestDataGenerator) invoiceDate() string {
	d := g.faker.DateRange(
		time.Now().AddDate(-1, 0, 0),
		time.Now())
	return d.Format("2006-01-02")
}
