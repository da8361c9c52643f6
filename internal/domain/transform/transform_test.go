package transform

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/quangtd/invoice2sap/internal/domain/invoice"
)

func testConfig() Config {
	return Config{
		VendorCode:          "V00000262",
		VendorName:          "TỔNG CÔNG TY VIỄN THÔNG MOBIFONE",
		VendorTaxCode:       "0100686209",
		VendorAddress:       "Số 01 Phạm Văn Bạch, Hà Nội",
		DefaultBranch:       "TTG",
		DescriptionTemplate: "CP DIEN THOAI MOBIFONE {period} - HD{invoice_no}",
		Period:              "T12.24",
	}
}

func testInvoice() *invoice.Invoice {
	return &invoice.Invoice{
		Vendor:      invoice.VendorMobifone,
		InvoiceNo:   "5036143",
		SerialNo:    "1C24TMB",
		InvoiceDate: "2024-12-05",
		Lines: []invoice.Line{{
			BaseAmount:  decimal.NewFromInt(44545),
			VATRate:     10,
			VATAmount:   decimal.NewFromInt(4455),
			TotalAmount: decimal.NewFromInt(49000),
		}},
	}
}

func TestConfig_ApplyDefaults(t *testing.T) {
	var cfg Config
	cfg.ApplyDefaults()

	assert.Equal(t, "64271001", cfg.ExpenseAccount)
	assert.Equal(t, "13311001", cfg.VATAccount)
	assert.Equal(t, "33111001", cfg.PayableAccount)
	assert.Equal(t, "TTG", cfg.ProjectCode)
	assert.Equal(t, "PVN1", cfg.TaxGroups[10])
	assert.Equal(t, "PVN3", cfg.TaxGroups[0])
}

func TestConfig_Description(t *testing.T) {
	cfg := testConfig()
	got := cfg.Description("5036143")
	assert.Equal(t, "CP DIEN THOAI MOBIFONE T12.24 - HD5036143", got)
}

func TestLedgerRows(t *testing.T) {
	t.Run("single invoice produces expense, vat and credit rows", func(t *testing.T) {
		rows := LedgerRows([]*invoice.Invoice{testInvoice()}, testConfig(), "")
		require.Len(t, rows, 3)

		expense := rows[0]
		assert.Equal(t, "64271001", expense.AccountCode)
		assert.Equal(t, "Chi phí dịch vụ mua ngoài", expense.AccountName)
		assert.Equal(t, "44545", expense.DebitSC)
		assert.Empty(t, expense.Credit)
		assert.Equal(t, "PVN1", expense.TaxGroup)
		assert.Equal(t, "2024-12-05", expense.DocumentDate)
		assert.Equal(t, "5036143", expense.ReceiptNumber)
		assert.Equal(t, "1C24TMB", expense.InvoiceSerial)
		assert.Equal(t, "Kê khai", expense.DeclarationStatus)
		assert.Equal(t, "T12.24", expense.DeclarationPeriod)
		assert.Equal(t, "No", expense.IsInvoice)
		assert.Equal(t, "No", expense.IsReversal)
		assert.Equal(t, "CP DIEN THOAI MOBIFONE T12.24 - HD5036143", expense.Description)
		assert.Equal(t, expense.Description, expense.RemarksJE)

		vat := rows[1]
		assert.Equal(t, "13311001", vat.AccountCode)
		assert.Equal(t, "Thuế GTGT được khấu trừ của hàng hóa, dịch vụ", vat.AccountName)
		assert.Equal(t, "4455", vat.DebitSC)
		assert.Equal(t, "PVN1", vat.TaxGroup)

		credit := rows[2]
		assert.Equal(t, "V00000262", credit.AccountCode)
		assert.Equal(t, "TỔNG CÔNG TY VIỄN THÔNG MOBIFONE", credit.AccountName)
		assert.Equal(t, "33111001", credit.ControlAccount)
		assert.Equal(t, "49000", credit.Credit)
		assert.Empty(t, credit.DebitSC)
		assert.Equal(t, "0100686209", credit.PartnerTaxCode)

		// Only the debit lines carry the branch.
		assert.Equal(t, "TTG", expense.Branch)
		assert.Equal(t, "TTG", vat.Branch)
		assert.Empty(t, credit.Branch)
	})

	t.Run("zero rate line skips vat row and maps PVN3", func(t *testing.T) {
		inv := testInvoice()
		inv.Lines = []invoice.Line{{
			BaseAmount:  decimal.NewFromInt(30000),
			VATRate:     0,
			TotalAmount: decimal.NewFromInt(30000),
		}}

		rows := LedgerRows([]*invoice.Invoice{inv}, testConfig(), "")
		require.Len(t, rows, 2)
		assert.Equal(t, "PVN3", rows[0].TaxGroup)
		assert.Equal(t, "30000", rows[1].Credit)
	})

	t.Run("missing invoice date falls back to document date", func(t *testing.T) {
		inv := testInvoice()
		inv.InvoiceDate = ""

		rows := LedgerRows([]*invoice.Invoice{inv}, testConfig(), "2024-12-31")
		require.NotEmpty(t, rows)
		assert.Equal(t, "2024-12-31", rows[0].DocumentDate)
	})

	t.Run("missing dates fall back to today", func(t *testing.T) {
		inv := testInvoice()
		inv.InvoiceDate = ""

		rows := LedgerRows([]*invoice.Invoice{inv}, testConfig(), "")
		require.NotEmpty(t, rows)
		assert.NotEmpty(t, rows[0].DocumentDate)
	})

	t.Run("invoice without lines yields no rows", func(t *testing.T) {
		inv := &invoice.Invoice{Vendor: invoice.VendorMobifone, InvoiceNo: "1"}
		rows := LedgerRows([]*invoice.Invoice{inv}, testConfig(), "")
		assert.Empty(t, rows)
	})

	t.Run("two invoices keep their own dates and numbers", func(t *testing.T) {
		first := testInvoice()
		second := testInvoice()
		second.InvoiceNo = "5036144"
		second.InvoiceDate = "2024-12-06"

		rows := LedgerRows([]*invoice.Invoice{first, second}, testConfig(), "")
		require.Len(t, rows, 6)
		assert.Equal(t, "5036143", rows[0].ReceiptNumber)
		assert.Equal(t, "5036144", rows[3].ReceiptNumber)
		assert.Equal(t, "2024-12-06", rows[3].DocumentDate)
	})
}

func TestHeadersMatchValues(t *testing.T) {
	var r Row
	assert.Len(t, Headers(), 43)
	assert.Len(t, r.Values(), len(Headers()))
}

func TestLedgerRows_GeneratedBatch(t *testing.T) {
	gen := invoice.NewTestDataGeneratorWithSeed(3)
	invoices := gen.Invoices(30)

	rows := LedgerRows(invoices, testConfig(), "2024-12-31")

	// Every 10% line yields an expense row and a VAT row, plus one
	// credit row per invoice.
	wantRows := 0
	for _, inv := range invoices {
		wantRows += 2*len(inv.Lines) + 1
	}
	require.Len(t, rows, wantRows)

	for i := range rows {
		assert.Len(t, rows[i].Values(), 43)
	}

	// Debits and credits balance per batch.
	debit := decimal.Zero
	credit := decimal.Zero
	for i := range rows {
		if rows[i].DebitSC != "" {
			d, err := decimal.NewFromString(rows[i].DebitSC)
			require.NoError(t, err)
			debit = debit.Add(d)
		}
		if rows[i].Credit != "" {
			c, err := decimal.NewFromString(rows[i].Credit)
			require.NoError(t, err)
			credit = credit.Add(c)
		}
	}
	assert.True(t, debit.Equal(credit), "debit %s != credit %s", debit, credit)
}
