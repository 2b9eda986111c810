package report

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/jung-kurt/gofpdf"
	"github.com/xuri/excelize/v2"
)

// RenderPDF renders the report as a one-page A4 PDF.
func RenderPDF(rep *WaterReport) ([]byte, error) {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetFont("Arial", "", 12)
	pdf.AddPage()

	pdf.Cell(0, 8, "Wasserkostenabrechnung")
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 10)
	pdf.Cell(0, 6, fmt.Sprintf("Haus: %s", rep.HouseName))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Zeitraum: %s - %s", rep.PeriodStart.Format("02.01.2006"), rep.PeriodEnd.Format("02.01.2006")))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Gesamtkosten: %.2f EUR", rep.TotalCost))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Gesamtverbrauch: %.3f m3", rep.TotalConsumption))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Preis pro m3: %.4f EUR", rep.PricePerUnit))
	pdf.Ln(5)
	pdf.Cell(0, 6, fmt.Sprintf("Erstellt: %s", rep.GeneratedAt.Format(time.RFC3339)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 10)
	pdf.CellFormat(60, 6, "Mieter", "1", 0, "L", false, 0, "")
	pdf.CellFormat(35, 6, "Verbrauch (m3)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(35, 6, "Kosten (EUR)", "1", 0, "C", false, 0, "")
	pdf.CellFormat(50, 6, "WG mit", "1", 0, "C", false, 0, "")
	pdf.Ln(-1)
	pdf.SetFont("Arial", "", 10)
	for _, row := range rep.Rows {
		pdf.CellFormat(60, 6, row.TenantName, "1", 0, "L", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.3f", row.Consumption), "1", 0, "R", false, 0, "")
		pdf.CellFormat(35, 6, fmt.Sprintf("%.2f", row.Cost), "1", 0, "R", false, 0, "")
		pdf.CellFormat(50, 6, strings.Join(row.CoTenants, ", "), "1", 0, "L", false, 0, "")
		pdf.Ln(-1)
	}

	if len(rep.Warnings) > 0 {
		pdf.Ln(4)
		pdf.SetFont("Arial", "I", 9)
		for _, w := range rep.Warnings {
			pdf.Cell(0, 5, "Hinweis: "+w)
			pdf.Ln(5)
		}
	}

	var buf bytes.Buffer
	if err := pdf.Output(&buf); err != nil {
		return nil, fmt.Errorf("render pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderXLSX renders the report as a two-sheet workbook: a summary sheet
// and one row per tenant.
func RenderXLSX(rep *WaterReport) ([]byte, error) {
	f := excelize.NewFile()
	summarySheet := "summary"
	tenantSheet := "tenants"
	f.SetSheetName("Sheet1", summarySheet)
	if _, err := f.NewSheet(tenantSheet); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}

	_ = f.SetCellValue(summarySheet, "A1", "Wasserkostenabrechnung")
	_ = f.SetCellValue(summarySheet, "A3", "Haus")
	_ = f.SetCellValue(summarySheet, "B3", rep.HouseName)
	_ = f.SetCellValue(summarySheet, "A4", "Von")
	_ = f.SetCellValue(summarySheet, "B4", rep.PeriodStart.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A5", "Bis")
	_ = f.SetCellValue(summarySheet, "B5", rep.PeriodEnd.Format("2006-01-02"))
	_ = f.SetCellValue(summarySheet, "A6", "Gesamtkosten (EUR)")
	_ = f.SetCellValue(summarySheet, "B6", rep.TotalCost)
	_ = f.SetCellValue(summarySheet, "A7", "Gesamtverbrauch (m3)")
	_ = f.SetCellValue(summarySheet, "B7", rep.TotalConsumption)
	_ = f.SetCellValue(summarySheet, "A8", "Preis pro m3 (EUR)")
	_ = f.SetCellValue(summarySheet, "B8", rep.PricePerUnit)
	for i, w := range rep.Warnings {
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("A%d", 10+i), "Hinweis")
		_ = f.SetCellValue(summarySheet, fmt.Sprintf("B%d", 10+i), w)
	}

	_ = f.SetCellValue(tenantSheet, "A1", "Mieter")
	_ = f.SetCellValue(tenantSheet, "B1", "Verbrauch (m3)")
	_ = f.SetCellValue(tenantSheet, "C1", "Kosten (EUR)")
	_ = f.SetCellValue(tenantSheet, "D1", "WG")
	_ = f.SetCellValue(tenantSheet, "E1", "Mitbewohner")
	for i, row := range rep.Rows {
		n := i + 2
		_ = f.SetCellValue(tenantSheet, fmt.Sprintf("A%d", n), row.TenantName)
		_ = f.SetCellValue(tenantSheet, fmt.Sprintf("B%d", n), row.Consumption)
		_ = f.SetCellValue(tenantSheet, fmt.Sprintf("C%d", n), row.Cost)
		_ = f.SetCellValue(tenantSheet, fmt.Sprintf("D%d", n), row.WGMember)
		_ = f.SetCellValue(tenantSheet, fmt.Sprintf("E%d", n), strings.Join(row.CoTenants, ", "))
	}

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("render xlsx: %w", err)
	}
	return buf.Bytes(), nil
}

// RenderCSV renders the per-tenant rows as CSV with a header line.
func RenderCSV(rep *WaterReport) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write([]string{"tenant_id", "tenant_name", "consumption_m3", "cost_eur", "wg", "co_tenants"}); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	for _, row := range rep.Rows {
		rec := []string{
			row.TenantID,
			row.TenantName,
			strconv.FormatFloat(row.Consumption, 'f', 3, 64),
			strconv.FormatFloat(row.Cost, 'f', 2, 64),
			strconv.FormatBool(row.WGMember),
			strings.Join(row.CoTenants, "; "),
		}
		if err := w.Write(rec); err != nil {
			return nil, fmt.Errorf("render csv: %w", err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, fmt.Errorf("render csv: %w", err)
	}
	return buf.Bytes(), nil
}
