// Package transform converts parsed invoices into SAP Business One
// journal-entry rows. Each invoice yields one expense (debit) row per
// charge line, a VAT (debit) row for each taxable line and a single
// vendor credit row balancing the invoice total. Column names and order
// follow the accounting team's SAP import template.
package transform

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/quangtd/invoice2sap/internal/domain/invoice"
)

// G/L account names as they appear in the chart of accounts.
const (
	expenseAccountName = "Chi phí dịch vụ mua ngoài"
	vatAccountName     = "Thuế GTGT được khấu trừ của hàng hóa, dịch vụ"
	declarationStatus  = "Kê khai"
)

// Config carries the vendor details and account mappings for one
// conversion batch. Vendor fields come from the upload form; account
// codes default to the fixed telecom expense accounts.
type Config struct {
	VendorCode    string
	VendorName    string
	VendorTaxCode string
	VendorAddress string

	// ExpenseAccount is debited for service charges.
	ExpenseAccount string
	// VATAccount is debited for deductible input VAT.
	VATAccount string
	// PayableAccount is the A/P control account credited to the vendor.
	PayableAccount string

	ProjectCode   string
	DefaultBranch string

	// TaxGroups maps a VAT percentage to the SAP tax group code.
	TaxGroups map[int]string

	// DescriptionTemplate builds the "Diễn giải" field. {period} and
	// {invoice_no} placeholders are substituted per invoice.
	DescriptionTemplate string
	RemarksTemplate     string

	// Period is the billing period identifier, e.g. "T12.24".
	Period string
	CFWID  string
}

// ApplyDefaults fills unset accounts and tax groups with the standard
// telecom expense mapping.
func (c *Config) ApplyDefaults() {
	if c.ExpenseAccount == "" {
		c.ExpenseAccount = "64271001"
	}
	if c.VATAccount == "" {
		c.VATAccount = "13311001"
	}
	if c.PayableAccount == "" {
		c.PayableAccount = "33111001"
	}
	if c.ProjectCode == "" {
		c.ProjectCode = "TTG"
	}
	if c.TaxGroups == nil {
		c.TaxGroups = map[int]string{10: "PVN1", 0: "PVN3"}
	}
	if c.DescriptionTemplate == "" {
		c.DescriptionTemplate = "CP DIEN THOAI {period} - HD{invoice_no}"
	}
}

// Description renders the description template for one invoice.
func (c *Config) Description(invoiceNo string) string {
	s := strings.ReplaceAll(c.DescriptionTemplate, "{period}", c.Period)
	return strings.ReplaceAll(s, "{invoice_no}", invoiceNo)
}

// Row is one line of the SAP import template. All cells are strings;
// empty cells stay empty rather than zero so the template imports
// cleanly. The csv tags double as the template's column headers.
type Row struct {
	AccountCode       string `csv:"G/L Acct/BP Code"`
	AccountName       string `csv:"G/L Acct/BP Name"`
	ControlAccount    string `csv:"Control Acct"`
	Credit            string `csv:"Credit"`
	DebitSC           string `csv:"Debit (SC)"`
	CreditSC          string `csv:"Credit (SC)"`
	RemarksTemplate   string `csv:"Remarks Template"`
	DocumentDate      string `csv:"Document Date"`
	Project           string `csv:"Project/Khế ước"`
	TaxGroup          string `csv:"Tax Group"`
	FederalTaxID      string `csv:"Federal Tax ID"`
	ReceiptNumber     string `csv:"Receipt Number"`
	TaxAmount         string `csv:"Tax Amount"`
	GrossValue        string `csv:"Gross Value"`
	BaseAmount        string `csv:"Base Amount"`
	PrimaryFormItem   string `csv:"Primary Form Item"`
	DistributionRule  string `csv:"Distr. Rule"`
	Branch            string `csv:"Branch"`
	InvoiceSerial     string `csv:"Seri HĐ"`
	DebitUSD          string `csv:"Debit USD S1"`
	CreditUSD         string `csv:"Credit USD S1"`
	InvoiceType       string `csv:"InvType"`
	DeclarationStatus string `csv:"Tình trạng kê khai"`
	DeclarationPeriod string `csv:"Kỳ kê khai"`
	CFWID             string `csv:"CFWId"`
	PromoInvoiceNo    string `csv:"Số HĐKM"`
	PromoSerial       string `csv:"Seri HĐKM"`
	PromoDescription  string `csv:"Diễn giải HĐKM"`
	DebtLabel         string `csv:"Nhãn tính C.Nợ"`
	IsInvoice         string `csv:"Invoice?"`
	IsReversal        string `csv:"Đảo?"`
	BDExp             string `csv:"BD: Exp"`
	TemplateNumber    string `csv:"Mẫu số HĐ"`
	AdjTran           string `csv:"AdjTran"`
	PartnerCode       string `csv:"Mã đối tác"`
	PartnerName       string `csv:"Tên đối tác"`
	PartnerAddress    string `csv:"Địa chỉ"`
	PartnerTaxCode    string `csv:"MST"`
	Description       string `csv:"Diễn giải"`
	RemarksJE         string `csv:"RemarksJE"`
	BankAccount       string `csv:"Bank Account"`
	BPBankAccount     string `csv:"BP Bank Account"`
	ShareholderNo     string `csv:"Share Holder No"`
}

// Headers lists the template columns in import order.
func Headers() []string {
	return []string{
		"G/L Acct/BP Code", "G/L Acct/BP Name", "Control Acct", "Credit",
		"Debit (SC)", "Credit (SC)", "Remarks Template", "Document Date",
		"Project/Khế ước", "Tax Group", "Federal Tax ID", "Receipt Number",
		"Tax Amount", "Gross Value", "Base Amount", "Primary Form Item",
		"Distr. Rule", "Branch", "Seri HĐ", "Debit USD S1", "Credit USD S1",
		"InvType", "Tình trạng kê khai", "Kỳ kê khai", "CFWId", "Số HĐKM",
		"Seri HĐKM", "Diễn giải HĐKM", "Nhãn tính C.Nợ", "Invoice?", "Đảo?",
		"BD: Exp", "Mẫu số HĐ", "AdjTran", "Mã đối tác", "Tên đối tác",
		"Địa chỉ", "MST", "Diễn giải", "RemarksJE", "Bank Account",
		"BP Bank Account", "Share Holder No",
	}
}

// Values returns the row's cells in the same order as Headers.
func (r *Row) Values() []string {
	return []string{
		r.AccountCode, r.AccountName, r.ControlAccount, r.Credit,
		r.DebitSC, r.CreditSC, r.RemarksTemplate, r.DocumentDate,
		r.Project, r.TaxGroup, r.FederalTaxID, r.ReceiptNumber,
		r.TaxAmount, r.GrossValue, r.BaseAmount, r.PrimaryFormItem,
		r.DistributionRule, r.Branch, r.InvoiceSerial, r.DebitUSD,
		r.CreditUSD, r.InvoiceType, r.DeclarationStatus, r.DeclarationPeriod,
		r.CFWID, r.PromoInvoiceNo, r.PromoSerial, r.PromoDescription,
		r.DebtLabel, r.IsInvoice, r.IsReversal, r.BDExp, r.TemplateNumber,
		r.AdjTran, r.PartnerCode, r.PartnerName, r.PartnerAddress,
		r.PartnerTaxCode, r.Description, r.RemarksJE, r.BankAccount,
		r.BPBankAccount, r.ShareholderNo,
	}
}

// LedgerRows converts parsed invoices into SAP journal rows. When an
// invoice has no date, documentDate is used; when that is empty too the
// posting date defaults to today.
func LedgerRows(invoices []*invoice.Invoice, cfg Config, documentDate string) []Row {
	cfg.ApplyDefaults()

	var rows []Row
	for _, inv := range invoices {
		invDate := inv.InvoiceDate
		if invDate == "" {
			invDate = documentDate
		}
		if invDate == "" {
			invDate = time.Now().Format("2006-01-02")
		}

		description := cfg.Description(inv.InvoiceNo)
		base := baseRow(cfg, inv, invDate, description)

		for _, line := range inv.Lines {
			expense := base
			expense.AccountCode = cfg.ExpenseAccount
			expense.AccountName = expenseAccountName
			expense.ControlAccount = cfg.ExpenseAccount
			expense.DebitSC = amount(line.BaseAmount)
			expense.TaxGroup = cfg.TaxGroups[line.VATRate]
			rows = append(rows, expense)

			if !line.VATAmount.IsZero() {
				vat := base
				vat.AccountCode = cfg.VATAccount
				vat.AccountName = vatAccountName
				vat.ControlAccount = cfg.VATAccount
				vat.DebitSC = amount(line.VATAmount)
				vat.TaxGroup = cfg.TaxGroups[line.VATRate]
				rows = append(rows, vat)
			}
		}

		if total := inv.Total(); !total.IsZero() {
			credit := base
			credit.AccountCode = cfg.VendorCode
			credit.AccountName = cfg.VendorName
			credit.ControlAccount = cfg.PayableAccount
			credit.Credit = amount(total)
			// The payable line carries no branch in the template.
			credit.Branch = ""
			rows = append(rows, credit)
		}
	}
	return rows
}

// baseRow carries the cells shared by all three row kinds of one invoice.
func baseRow(cfg Config, inv *invoice.Invoice, invDate, description string) Row {
	return Row{
		RemarksTemplate:   cfg.RemarksTemplate,
		DocumentDate:      invDate,
		Project:           cfg.ProjectCode,
		FederalTaxID:      cfg.VendorTaxCode,
		ReceiptNumber:     inv.InvoiceNo,
		Branch:            cfg.DefaultBranch,
		InvoiceSerial:     inv.SerialNo,
		DeclarationStatus: declarationStatus,
		DeclarationPeriod: cfg.Period,
		CFWID:             cfg.CFWID,
		IsInvoice:         "No",
		IsReversal:        "No",
		PartnerCode:       cfg.VendorCode,
		PartnerName:       cfg.VendorName,
		PartnerAddress:    cfg.VendorAddress,
		PartnerTaxCode:    cfg.VendorTaxCode,
		Description:       description,
		RemarksJE:         description,
	}
}

// amount renders a decimal for the SAP sheet. VND amounts are whole
// numbers; decimal.String already drops trailing zeros.
func amount(d decimal.Decimal) string {
	return d.String()
}
