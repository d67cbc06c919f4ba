package pdf

import (
	"bytes"
	"fmt"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/umuve/dispatch-engine/internal/model"
)

type Generator struct {
	fontName string
}

func NewGenerator() *Generator {
	return &Generator{fontName: "Helvetica"}
}

// GenerateReceipt renders the customer receipt for a settled job.
func (g *Generator) GenerateReceipt(receipt model.Receipt) ([]byte, error) {
	job := receipt.Job

	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.AddPage()

	pdf.SetFont(g.fontName, "B", 16)
	pdf.CellFormat(0, 10, "Umuve Junk Removal Receipt", "", 1, "C", false, 0, "")

	pdf.SetFont(g.fontName, "", 11)
	pdf.CellFormat(0, 6, fmt.Sprintf("Confirmation #%s", job.ConfirmationCode), "", 1, "C", false, 0, "")
	pdf.CellFormat(0, 6, fmt.Sprintf("Issued %s", formatDate(time.Now())), "", 1, "C", false, 0, "")
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Pickup", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 10)
	lines := []string{
		fmt.Sprintf("Customer: %s", safeValue(receipt.CustomerName)),
		fmt.Sprintf("Address: %s", safeValue(job.Address)),
		fmt.Sprintf("Scheduled: %s", formatOptionalDate(job.ScheduledAt)),
		fmt.Sprintf("Completed: %s", formatOptionalDate(job.CompletedAt)),
	}
	for _, line := range lines {
		pdf.MultiCell(0, 5, line, "", "L", false)
	}
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Items", "", 1, "L", false, 0, "")

	headers := []string{"Category", "Size", "Qty"}
	colWidths := []float64{100, 45, 35}
	drawTableRow(pdf, g.fontName, headers, colWidths, true)
	for _, item := range job.Items {
		row := []string{
			prettyCategory(item.Category),
			safeValue(item.Size),
			fmt.Sprintf("%d", item.Quantity),
		}
		drawTableRow(pdf, g.fontName, row, colWidths, false)
	}
	pdf.Ln(4)

	pdf.SetFont(g.fontName, "B", 12)
	pdf.CellFormat(0, 8, "Charges", "", 1, "L", false, 0, "")
	pdf.SetFont(g.fontName, "", 11)

	amountLine(pdf, "Items subtotal", job.ItemTotal)
	if job.DiscountAmount > 0 {
		amountLine(pdf, "Volume discount", -job.DiscountAmount)
	}
	if job.SurgeMultiplier > 1 {
		pdf.CellFormat(0, 6, fmt.Sprintf("Demand adjustment: x%.2f", job.SurgeMultiplier), "", 1, "R", false, 0, "")
	}
	amountLine(pdf, "Service fee", job.ServiceFee)

	total := job.TotalPrice
	if receipt.Payment != nil {
		total = receipt.Payment.Amount
		if receipt.Payment.TipAmount > 0 {
			amountLine(pdf, "Tip", receipt.Payment.TipAmount)
		}
	}
	pdf.SetFont(g.fontName, "B", 12)
	amountLine(pdf, "Total charged", total)

	if receipt.Payment != nil && receipt.Payment.PaymentStatus == model.PaymentStatusRefunded {
		pdf.SetFont(g.fontName, "", 11)
		pdf.SetTextColor(200, 0, 0)
		pdf.MultiCell(0, 6, "This booking was cancelled. The amount above reflects the retained fee.", "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}

	pdf.Ln(6)
	pdf.SetFont(g.fontName, "", 9)
	pdf.MultiCell(0, 5, "Thank you for choosing Umuve. Questions about this receipt? Reply to your booking confirmation email.", "", "L", false)

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func amountLine(pdf *gofpdf.Fpdf, label string, amount float64) {
	pdf.CellFormat(0, 6, fmt.Sprintf("%s: $%.2f", label, amount), "", 1, "R", false, 0, "")
}

func drawTableRow(pdf *gofpdf.Fpdf, fontName string, cols []string, widths []float64, header bool) {
	style := ""
	if header {
		style = "B"
	}
	pdf.SetFont(fontName, style, 10)
	for i, col := range cols {
		align := "L"
		if i == len(cols)-1 {
			align = "R"
		}
		pdf.CellFormat(widths[i], 8, col, "1", 0, align, false, 0, "")
	}
	pdf.Ln(-1)
}

func prettyCategory(category string) string {
	category = strings.ReplaceAll(category, "_", " ")
	if category == "" {
		return "-"
	}
	return strings.ToUpper(category[:1]) + category[1:]
}

func safeValue(value string) string {
	if strings.TrimSpace(value) == "" {
		return "-"
	}
	return value
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format("Jan 2, 2006")
}

func formatOptionalDate(t *time.Time) string {
	if t == nil {
		return "-"
	}
	return t.Format("Jan 2, 2006 3:04 PM")
}
