// Package notify sends batch-completion emails through Resend. Without
// an API key every call is a logged no-op, so local setups need no
// mail configuration.
package notify

import (
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"

	"github.com/quangtd/invoice2sap/pkg/config"
)

// BatchSummary is what the completion email reports.
type BatchSummary struct {
	BatchID      string
	Vendor       string
	Period       string
	InvoiceCount int
	FailedCount  int
	TotalDisplay string
	DownloadURL  string
}

// Notifier sends operational emails.
type Notifier struct {
	client *resend.Client
	logger *slog.Logger
	from   string
	to     string
}

// New creates a notifier. A missing API key disables sending.
func New(cfg config.NotifyConfig, logger *slog.Logger) *Notifier {
	var client *resend.Client
	if cfg.ResendAPIKey != "" {
		client = resend.NewClient(cfg.ResendAPIKey)
	}

	from := cfg.FromAddress
	if from == "" {
		from = "Invoice2SAP <noreply@invoice2sap.local>"
	}

	return &Notifier{
		client: client,
		logger: logger,
		from:   from,
		to:     cfg.ToAddress,
	}
}

// BatchCompleted emails the accounting inbox when a batch finishes.
func (n *Notifier) BatchCompleted(summary BatchSummary) error {
	if n.client == nil {
		n.logger.Debug("resend client not configured, skipping batch email",
			slog.String("batch_id", summary.BatchID))
		return nil
	}

	subject := fmt.Sprintf("SAP export ready: %s %s (%d invoices)",
		summary.Vendor, summary.Period, summary.InvoiceCount)

	html := fmt.Sprintf(`
<!DOCTYPE html>
<html>
<body style="font-family: sans-serif; color: #1f2937;">
  <h2>SAP journal export is ready</h2>
  <table cellpadding="6">
    <tr><td>Vendor</td><td><strong>%s</strong></td></tr>
    <tr><td>Period</td><td>%s</td></tr>
    <tr><td>Invoices parsed</td><td>%d</td></tr>
    <tr><td>Files failed</td><td>%d</td></tr>
    <tr><td>Batch total</td><td>%s</td></tr>
  </table>
  <p><a href="%s">Download the workbook</a></p>
  <p style="color: #6b7280; font-size: 12px;">Batch %s</p>
</body>
</html>
`, summary.Vendor, summary.Period, summary.InvoiceCount,
		summary.FailedCount, summary.TotalDisplay,
		summary.DownloadURL, summary.BatchID)

	_, err := n.client.Emails.Send(&resend.SendEmailRequest{
		From:    n.from,
		To:      []string{n.to},
		Subject: subject,
		Html:    html,
	})
	if err != nil {
		return fmt.Errorf("send batch email: %w", err)
	}
	return nil
}
