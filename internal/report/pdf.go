package report

import (
	"context"
	"fmt"
	"os"
	"path"
	"path/filepath"
	"strings"
	"time"

	"github.com/go-pdf/fpdf"

	"civicdesk/internal/platform/config"
)

// Artifact locates a rendered report on disk and under the public prefix.
type Artifact struct {
	FileName     string `json:"fileName"`
	FilePath     string `json:"filePath"`
	RelativePath string `json:"relativePath"`
}

// PDFRenderer writes reports as PDF files into a directory.
type PDFRenderer struct {
	dir    string
	prefix string
	now    func() time.Time
}

func NewPDFRenderer(cfg config.ReportsConfig) *PDFRenderer {
	prefix := cfg.PublicPrefix
	if prefix == "" {
		prefix = "/reports"
	}
	return &PDFRenderer{dir: cfg.Dir, prefix: prefix, now: time.Now}
}

var (
	brandColor = [3]int{79, 70, 229}
	mutedColor = [3]int{107, 114, 128}
)

// GenerateMonthlyReport renders data to monthly-report-<unix-ms>.pdf.
func (p *PDFRenderer) GenerateMonthlyReport(ctx context.Context, data MonthlyData) (Artifact, error) {
	if err := ctx.Err(); err != nil {
		return Artifact{}, err
	}
	if err := os.MkdirAll(p.dir, 0o755); err != nil {
		return Artifact{}, fmt.Errorf("create report dir: %w", err)
	}
	now := p.now()
	name := fmt.Sprintf("monthly-report-%d.pdf", now.UnixMilli())
	file := filepath.Join(p.dir, name)

	doc := fpdf.New("P", "mm", "A4", "")
	doc.SetTitle("Monthly Statistics Report", true)
	doc.SetCreationDate(now)
	doc.SetMargins(18, 18, 18)
	tr := doc.UnicodeTranslatorFromDescriptor("")
	doc.SetFooterFunc(func() {
		doc.SetY(-15)
		doc.SetFont("Helvetica", "I", 9)
		setColor(doc, mutedColor)
		doc.CellFormat(0, 10, "Generated on "+now.Format("2006-01-02 15:04:05"), "", 0, "C", false, 0, "")
	})

	doc.AddPage()
	doc.SetFont("Helvetica", "B", 22)
	setColor(doc, brandColor)
	doc.CellFormat(0, 12, "Smart Village Management System", "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 16)
	setColor(doc, mutedColor)
	doc.CellFormat(0, 10, "Monthly Statistics Report", "", 1, "C", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
	doc.SetTextColor(0, 0, 0)
	doc.CellFormat(0, 8, "Report Period: "+data.Period, "", 1, "C", false, 0, "")
	doc.Ln(8)

	heading(doc, "Executive Summary")
	subheading(doc, "Complaints Overview:")
	c := data.Complaints
	line(doc, tr, fmt.Sprintf("Total Complaints: %d", c.Total))
	line(doc, tr, fmt.Sprintf("Pending: %d", c.Pending))
	line(doc, tr, fmt.Sprintf("In Progress: %d", c.InProgress))
	line(doc, tr, fmt.Sprintf("Resolved: %d", c.Resolved))
	line(doc, tr, fmt.Sprintf("Resolution Rate: %.2f%%", c.ResolutionRate))
	doc.Ln(4)

	subheading(doc, "Resource Usage:")
	for _, u := range data.Resources {
		line(doc, tr, fmt.Sprintf("%s: %.2f %s", usageLabel(string(u.Type)), u.Total, u.Unit))
	}
	doc.Ln(4)

	subheading(doc, "Complaints by Category:")
	if len(data.ByCategory) == 0 {
		line(doc, tr, "No complaints filed")
	}
	for _, cc := range data.ByCategory {
		line(doc, tr, fmt.Sprintf("%s: %d", capitalize(string(cc.Category)), cc.Count))
	}

	if len(data.TopIssues) > 0 {
		doc.AddPage()
		heading(doc, "Top Issues")
		for i, issue := range data.TopIssues {
			doc.SetFont("Helvetica", "BU", 11)
			doc.MultiCell(0, 6, tr(fmt.Sprintf("%d. %s", i+1, issue.Title)), "", "L", false)
			doc.SetFont("Helvetica", "", 9)
			doc.MultiCell(0, 5, tr(fmt.Sprintf("Category: %s | Status: %s | Priority: %s",
				issue.Category, issue.Status, issue.Priority)), "", "L", false)
			doc.Ln(3)
		}
	}

	if err := doc.OutputFileAndClose(file); err != nil {
		_ = os.Remove(file)
		return Artifact{}, fmt.Errorf("render monthly report: %w", err)
	}
	return Artifact{
		FileName:     name,
		FilePath:     file,
		RelativePath: path.Join(p.prefix, name),
	}, nil
}

func setColor(doc *fpdf.Fpdf, c [3]int) { doc.SetTextColor(c[0], c[1], c[2]) }

func heading(doc *fpdf.Fpdf, text string) {
	doc.SetFont("Helvetica", "B", 15)
	setColor(doc, brandColor)
	doc.CellFormat(0, 9, text, "", 1, "L", false, 0, "")
	doc.SetTextColor(0, 0, 0)
	doc.Ln(2)
}

func subheading(doc *fpdf.Fpdf, text string) {
	doc.SetFont("Helvetica", "U", 11)
	doc.CellFormat(0, 7, text, "", 1, "L", false, 0, "")
	doc.SetFont("Helvetica", "", 11)
}

func line(doc *fpdf.Fpdf, tr func(string) string, text string) {
	doc.CellFormat(0, 6, tr(text), "", 1, "L", false, 0, "")
}

func usageLabel(resourceType string) string {
	switch resourceType {
	case "water":
		return "Water Usage"
	case "electricity":
		return "Electricity Usage"
	case "waste":
		return "Waste Collected"
	}
	return capitalize(resourceType)
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
