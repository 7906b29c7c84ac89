package output

import (
	"fmt"
	"io"
	"strings"

	"github.com/jung-kurt/gofpdf"

	"github.com/pankaj-dahiya-devops/cisaudit/internal/controls"
	"github.com/pankaj-dahiya-devops/cisaudit/internal/models"
)

type rgb struct{ r, g, b int }

var (
	pdfBlue  = rgb{3, 102, 214}
	pdfGrey  = rgb{108, 117, 125}
	pdfDark  = rgb{33, 37, 41}
	pdfRed   = rgb{220, 53, 69}
	pdfGreen = rgb{40, 167, 69}
	pdfLight = rgb{246, 248, 250}
)

var pdfSeverityColors = map[models.Severity]rgb{
	models.SeverityCritical: {176, 0, 32},
	models.SeverityHigh:     pdfRed,
	models.SeverityMedium:   {230, 140, 0},
	models.SeverityLow:      pdfBlue,
}

func textColor(pdf *gofpdf.Fpdf, c rgb) { pdf.SetTextColor(c.r, c.g, c.b) }

// WritePDF renders report as a PDF document: a cover page, the summary
// counts, a per-control status table, and the findings.
func WritePDF(w io.Writer, report *models.AuditReport) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 20)
	tr := pdf.UnicodeTranslatorFromDescriptor("")

	pdf.SetFooterFunc(func() {
		pdf.SetY(-15)
		pdf.SetFont("Arial", "", 8)
		textColor(pdf, pdfGrey)
		pdf.CellFormat(0, 4, fmt.Sprintf("Report %s | page %d", report.ReportID, pdf.PageNo()), "", 0, "C", false, 0, "")
	})

	pdfCover(pdf, tr, report)
	pdfSummary(pdf, report)
	pdfControls(pdf, tr, report)
	pdfFindings(pdf, tr, report)

	return pdf.Output(w)
}

func pdfCover(pdf *gofpdf.Fpdf, tr func(string) string, report *models.AuditReport) {
	pdf.AddPage()
	pdf.Ln(40)
	pdf.SetFont("Arial", "B", 26)
	textColor(pdf, pdfBlue)
	pdf.CellFormat(0, 14, "CIS AWS Foundations Benchmark", "", 1, "C", false, 0, "")
	pdf.SetFont("Arial", "", 14)
	textColor(pdf, pdfGrey)
	pdf.CellFormat(0, 8, "Audit Report", "", 1, "C", false, 0, "")
	pdf.Ln(20)

	account := report.AccountID
	if account == "" {
		account = "multiple accounts"
	}
	rows := [][2]string{
		{"Account", account},
		{"Profile", report.Profile},
		{"Regions", strings.Join(report.Regions, ", ")},
		{"Sections", strings.Join(report.Sections, ", ")},
		{"Generated", report.GeneratedAt.Format("2006-01-02 15:04:05 MST")},
	}
	for _, r := range rows {
		pdf.SetFont("Arial", "B", 11)
		textColor(pdf, pdfDark)
		pdf.CellFormat(40, 7, r[0], "", 0, "L", false, 0, "")
		pdf.SetFont("Arial", "", 11)
		pdf.MultiCell(0, 7, tr(r[1]), "", "L", false)
	}
}

func pdfSummary(pdf *gofpdf.Fpdf, report *models.AuditReport) {
	pdf.AddPage()
	pdfHeading(pdf, "Summary")

	s := report.Summary
	boxes := []struct {
		label string
		value int
		color rgb
	}{
		{"Critical", s.CriticalFindings, pdfSeverityColors[models.SeverityCritical]},
		{"High", s.HighFindings, pdfSeverityColors[models.SeverityHigh]},
		{"Medium", s.MediumFindings, pdfSeverityColors[models.SeverityMedium]},
		{"Low", s.LowFindings, pdfSeverityColors[models.SeverityLow]},
	}
	width := 45.0
	for _, b := range boxes {
		pdf.SetFillColor(b.color.r, b.color.g, b.color.b)
		pdf.SetTextColor(255, 255, 255)
		pdf.SetFont("Arial", "B", 18)
		x, y := pdf.GetXY()
		pdf.CellFormat(width-3, 14, fmt.Sprintf("%d", b.value), "", 0, "C", true, 0, "")
		pdf.SetXY(x, y+14)
		pdf.SetFont("Arial", "", 9)
		pdf.CellFormat(width-3, 6, b.label, "", 0, "C", true, 0, "")
		pdf.SetXY(x+width, y)
	}
	pdf.Ln(26)

	pdf.SetFont("Arial", "", 11)
	textColor(pdf, pdfDark)
	lines := []string{
		fmt.Sprintf("Total findings: %d", s.TotalFindings),
		fmt.Sprintf("Resources with issues: %d", s.ResourcesWithIssues),
		fmt.Sprintf("Controls failed: %d", len(s.FailedControls)),
		fmt.Sprintf("Controls passed: %d", len(s.PassedControls)),
	}
	if n, ok := report.Metadata["collection_exceptions"]; ok {
		lines = append(lines, fmt.Sprintf("Data sources not readable: %v", n))
	}
	for _, l := range lines {
		pdf.CellFormat(0, 7, l, "", 1, "L", false, 0, "")
	}
}

func pdfControls(pdf *gofpdf.Fpdf, tr func(string) string, report *models.AuditReport) {
	pdf.AddPage()
	pdfHeading(pdf, "Controls")

	failed := toSet(report.Summary.FailedControls)
	passed := toSet(report.Summary.PassedControls)
	resources := make(map[string]int)
	for _, f := range report.Findings {
		resources[f.ControlID]++
	}

	widths := []float64{16, 22, 20, 102, 20}
	pdfTableHeader(pdf, widths, []string{"ID", "Section", "Severity", "Title", "Status"})
	fill := false
	for _, c := range controls.All() {
		_, isFailed := failed[c.ID]
		_, isPassed := passed[c.ID]
		if !isFailed && !isPassed {
			continue
		}
		pdf.SetFillColor(pdfLight.r, pdfLight.g, pdfLight.b)
		pdf.SetFont("Arial", "", 8)
		textColor(pdf, pdfDark)
		pdf.CellFormat(widths[0], 6, c.ID, "", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[1], 6, string(c.Section), "", 0, "L", fill, 0, "")
		if sc, ok := pdfSeverityColors[c.Severity]; ok {
			textColor(pdf, sc)
		}
		pdf.CellFormat(widths[2], 6, string(c.Severity), "", 0, "L", fill, 0, "")
		textColor(pdf, pdfDark)
		pdf.CellFormat(widths[3], 6, tr(ShortenMessage(c.Title, 70)), "", 0, "L", fill, 0, "")
		if isFailed {
			textColor(pdf, pdfRed)
			pdf.CellFormat(widths[4], 6, fmt.Sprintf("FAIL (%d)", resources[c.ID]), "", 1, "L", fill, 0, "")
		} else {
			textColor(pdf, pdfGreen)
			pdf.CellFormat(widths[4], 6, "PASS", "", 1, "L", fill, 0, "")
		}
		fill = !fill
	}
}

func pdfFindings(pdf *gofpdf.Fpdf, tr func(string) string, report *models.AuditReport) {
	if len(report.Findings) == 0 {
		return
	}
	pdf.AddPage()
	pdfHeading(pdf, "Findings")

	widths := []float64{16, 20, 60, 84}
	pdfTableHeader(pdf, widths, []string{"Control", "Severity", "Resource", "Issue"})
	fill := false
	for _, f := range report.Findings {
		pdf.SetFillColor(pdfLight.r, pdfLight.g, pdfLight.b)
		pdf.SetFont("Arial", "", 8)
		textColor(pdf, pdfDark)
		pdf.CellFormat(widths[0], 6, f.ControlID, "", 0, "L", fill, 0, "")
		if sc, ok := pdfSeverityColors[f.Severity]; ok {
			textColor(pdf, sc)
		}
		pdf.CellFormat(widths[1], 6, string(f.Severity), "", 0, "L", fill, 0, "")
		textColor(pdf, pdfDark)
		pdf.CellFormat(widths[2], 6, tr(ShortenMessage(f.IssueKey(), 38)), "", 0, "L", fill, 0, "")
		pdf.CellFormat(widths[3], 6, tr(ShortenMessage(f.Message, 55)), "", 1, "L", fill, 0, "")
		fill = !fill
	}
}

func pdfHeading(pdf *gofpdf.Fpdf, title string) {
	pdf.SetFont("Arial", "B", 18)
	textColor(pdf, pdfBlue)
	pdf.CellFormat(0, 12, title, "", 1, "L", false, 0, "")
	pdf.Ln(4)
}

func pdfTableHeader(pdf *gofpdf.Fpdf, widths []float64, cols []string) {
	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(pdfDark.r, pdfDark.g, pdfDark.b)
	pdf.SetTextColor(255, 255, 255)
	for i, c := range cols {
		ln := 0
		if i == len(cols)-1 {
			ln = 1
		}
		pdf.CellFormat(widths[i], 7, c, "", ln, "L", true, 0, "")
	}
}
