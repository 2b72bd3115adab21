package export

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/datapulse/datapulse/internal/analytics"
)

// MonthlyPDFFilename is the attachment name for PDF exports.
const MonthlyPDFFilename = "monthly_summary.pdf"

// MonthlyReport carries the pre-computed rows handed to the renderer.
type MonthlyReport struct {
	Title string
	Rows  []analytics.MonthlyRow
}

// PDFExporter wraps Gotenberg interactions for monthly summary exports. The
// rendering engine is an external collaborator; this type only supplies it
// with correctly shaped, display-rounded row data.
type PDFExporter struct {
	Endpoint string
	Client   *http.Client
}

var currencyPrinter = message.NewPrinter(language.English)

// RenderMonthly sends HTML content to Gotenberg and returns the PDF bytes.
func (p *PDFExporter) RenderMonthly(ctx context.Context, report MonthlyReport) ([]byte, error) {
	if p == nil {
		return nil, fmt.Errorf("pdf exporter not initialised")
	}
	endpoint := strings.TrimRight(p.Endpoint, "/")
	if endpoint == "" {
		return nil, fmt.Errorf("gotenberg endpoint required")
	}
	client := p.Client
	if client == nil {
		client = http.DefaultClient
	}

	html := buildHTML(report)
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreateFormFile("files", "monthly_summary.html")
	if err != nil {
		return nil, err
	}
	if _, err := io.WriteString(part, html); err != nil {
		return nil, err
	}
	if err := writer.Close(); err != nil {
		return nil, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint+"/forms/chromium/convert/html", body)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		data, _ := io.ReadAll(io.LimitReader(resp.Body, 4<<10))
		return nil, fmt.Errorf("gotenberg response %d: %s", resp.StatusCode, string(data))
	}

	return io.ReadAll(resp.Body)
}

func buildHTML(report MonthlyReport) string {
	title := report.Title
	if title == "" {
		title = "Monthly Sales Summary"
	}

	var b strings.Builder
	b.WriteString("<html><head><meta charset=\"utf-8\"><style>")
	b.WriteString("body{font-family:sans-serif;margin:24px;}h1{font-size:20px;}table{width:100%;border-collapse:collapse;}th,td{border:1px solid #ddd;padding:6px;text-align:right;}th{text-align:left;background:#f5f5f5;} .month-label{text-align:left;}")
	b.WriteString("</style></head><body>")
	b.WriteString(fmt.Sprintf("<h1>%s</h1>", templateEscape(title)))

	b.WriteString("<table><thead><tr><th>Year</th><th>Month</th><th>Revenue</th><th>Cost</th><th>Profit</th></tr></thead><tbody>")
	for _, row := range report.Rows {
		b.WriteString("<tr><td class=\"month-label\">")
		b.WriteString(fmt.Sprintf("%d", row.Year))
		b.WriteString("</td><td class=\"month-label\">")
		b.WriteString(templateEscape(row.MonthName))
		b.WriteString("</td><td>")
		b.WriteString(formatCurrency(row.Revenue))
		b.WriteString("</td><td>")
		b.WriteString(formatCurrency(row.Cost))
		b.WriteString("</td><td>")
		b.WriteString(formatCurrency(row.Profit))
		b.WriteString("</td></tr>")
	}
	b.WriteString("</tbody></table>")

	b.WriteString("</body></html>")
	return b.String()
}

func formatCurrency(v float64) string {
	return currencyPrinter.Sprintf("%.2f", v)
}

func templateEscape(v string) string {
	replacer := strings.NewReplacer(
		"&", "&amp;",
		"<", "&lt;",
		">", "&gt;",
		"\"", "&quot;",
		"'", "&#39;",
	)
	return replacer.Replace(v)
}
