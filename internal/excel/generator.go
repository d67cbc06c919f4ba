package excel

import (
	"fmt"
	"time"

	"github.com/xuri/excelize/v2"

	"github.com/umuve/dispatch-engine/internal/model"
)

type Generator struct{}

func NewGenerator() *Generator {
	return &Generator{}
}

// Generate renders the operator fleet export: a summary block followed by
// one row per job in the period.
func (g *Generator) Generate(export model.FleetExport) ([]byte, error) {
	file := excelize.NewFile()

	sheet := "Fleet Jobs"
	file.SetSheetName("Sheet1", sheet)

	set := func(cell string, value interface{}) {
		_ = file.SetCellValue(sheet, cell, value)
	}

	totalRevenue := 0.0
	totalPayout := 0.0
	completed := 0
	for _, row := range export.Rows {
		totalRevenue += row.TotalPrice
		totalPayout += row.DriverPayout
		if row.Status == string(model.JobStatusCompleted) {
			completed++
		}
	}

	set("A1", "Operator")
	set("B1", export.OperatorName)
	set("A2", "Period start")
	set("B2", formatDate(export.PeriodStart))
	set("A3", "Period end")
	set("B3", formatDate(export.PeriodEnd))
	set("A4", "Jobs")
	set("B4", len(export.Rows))
	set("A5", "Completed")
	set("B5", completed)
	set("A6", "Gross revenue")
	set("B6", fmt.Sprintf("%.2f", totalRevenue))
	set("A7", "Driver payouts")
	set("B7", fmt.Sprintf("%.2f", totalPayout))

	tableRow := 9
	headers := []string{
		"Confirmation",
		"Status",
		"Address",
		"Driver",
		"Scheduled",
		"Completed",
		"Total price",
		"Driver payout",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, tableRow)
		set(cell, header)
	}

	for i, row := range export.Rows {
		line := tableRow + 1 + i
		set(fmt.Sprintf("A%d", line), row.ConfirmationCode)
		set(fmt.Sprintf("B%d", line), row.Status)
		set(fmt.Sprintf("C%d", line), row.Address)
		set(fmt.Sprintf("D%d", line), formatString(row.DriverName))
		set(fmt.Sprintf("E%d", line), formatDateTime(row.ScheduledAt))
		set(fmt.Sprintf("F%d", line), formatDateTime(row.CompletedAt))
		set(fmt.Sprintf("G%d", line), fmt.Sprintf("%.2f", row.TotalPrice))
		set(fmt.Sprintf("H%d", line), fmt.Sprintf("%.2f", row.DriverPayout))
	}

	_ = file.SetColWidth(sheet, "A", "A", 16)
	_ = file.SetColWidth(sheet, "B", "B", 14)
	_ = file.SetColWidth(sheet, "C", "C", 42)
	_ = file.SetColWidth(sheet, "D", "D", 24)
	_ = file.SetColWidth(sheet, "E", "F", 20)
	_ = file.SetColWidth(sheet, "G", "H", 14)

	file.SetActiveSheet(0)
	buf, err := file.WriteToBuffer()
	if err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}

func formatDateTime(t *time.Time) string {
	if t == nil || t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02 15:04")
}

func formatString(value *string) string {
	if value == nil {
		return ""
	}
	return *value
}
