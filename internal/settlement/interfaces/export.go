package interfaces

import (
	"bytes"
	"fmt"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"

	settlement "caregiving-cloud/internal/settlement/domain"
)

// BuildMonthlySettlementPDF renders a monthly settlement sheet as PDF.
func BuildMonthlySettlementPDF(monthStart time.Time, settlements []*settlement.Settlement) ([]byte, error) {
	pdf := gofpdf.New("L", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Monthly Settlement Sheet")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Month: %s", monthStart.Format("2006-01")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Settlements: %d", len(settlements)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.CellFormat(40, 6, "Accident Number", "1", 0, "C", false, 0, "")
	pdf.CellFormat(15, 6, "Round", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Daily Charge", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Basic", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Additional", "1", 0, "C", false, 0, "")
	pdf.CellFormat(30, 6, "Total", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Status", "1", 0, "C", false, 0, "")
	pdf.CellFormat(45, 6, "Organization", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 9)

	var totalSum int64
	for _, s := range settlements {
		pdf.CellFormat(40, 6, s.AccidentNumber(), "1", 0, "C", false, 0, "")
		pdf.CellFormat(15, 6, fmt.Sprintf("%d", s.CaregivingRoundNumber()), "1", 0, "C", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", s.DailyCaregivingCharge()), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", s.BasicAmount()), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", s.AdditionalAmount()), "1", 0, "R", false, 0, "")
		pdf.CellFormat(30, 6, fmt.Sprintf("%d", s.TotalAmount()), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, string(s.Status()), "1", 0, "C", false, 0, "")
		pdf.CellFormat(45, 6, s.AssignedOrganizationID(), "1", 0, "C", false, 0, "")
		pdf.Ln(-1)
		totalSum += s.TotalAmount()
	}

	pdf.Ln(4)
	pdf.SetFont("Arial", "B", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Month Total (KRW): %d", totalSum))

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// BuildMonthlySettlementXLSX renders a monthly settlement sheet as XLSX.
func BuildMonthlySettlementXLSX(monthStart time.Time, settlements []*settlement.Settlement) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	itemsSheet := "settlements"
	f.SetSheetName("Sheet1", summarySheet)
	f.NewSheet(itemsSheet)

	var totalSum int64
	for _, s := range settlements {
		totalSum += s.TotalAmount()
	}

	_ = f.SetCellValue(summarySheet, "A1", "Monthly Settlement Sheet")
	_ = f.SetCellValue(summarySheet, "A3", "Month")
	_ = f.SetCellValue(summarySheet, "B3", monthStart.Format("2006-01"))
	_ = f.SetCellValue(summarySheet, "A4", "Settlements")
	_ = f.SetCellValue(summarySheet, "B4", len(settlements))
	_ = f.SetCellValue(summarySheet, "A5", "Month Total (KRW)")
	_ = f.SetCellValue(summarySheet, "B5", totalSum)

	headers := []string{
		"Settlement ID", "Reception ID", "Accident Number", "Round",
		"Daily Charge", "Basic", "Additional", "Total",
		"Status", "Expected At", "Completion At", "Manager", "Organization",
	}
	for i, header := range headers {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		_ = f.SetCellValue(itemsSheet, cell, header)
	}
	for i, s := range settlements {
		row := i + 2
		values := []any{
			s.ID(), s.ReceptionID(), s.AccidentNumber(), s.CaregivingRoundNumber(),
			s.DailyCaregivingCharge(), s.BasicAmount(), s.AdditionalAmount(), s.TotalAmount(),
			string(s.Status()), s.ExpectedSettlementAt().Format("2006-01-02"),
			formatOptionalDate(s.CompletionAt()), s.SettlementManagerID(), s.AssignedOrganizationID(),
		}
		for col, value := range values {
			cell, _ := excelize.CoordinatesToCellName(col+1, row)
			_ = f.SetCellValue(itemsSheet, cell, value)
		}
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func formatOptionalDate(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format("2006-01-02")
}
