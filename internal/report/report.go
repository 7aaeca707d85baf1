// Package report renders recorded loitering flights as a PDF.
package report

import (
	"fmt"
	"io"
	"sort"
	"time"

	"github.com/jung-kurt/gofpdf"

	"github.com/unklstewy/ads-loiter/internal/dailylog"
)

// Day groups the entries recorded on one calendar date.
type Day struct {
	Date    string
	Entries []dailylog.Entry
}

// Page geometry in mm (A4 portrait)
const (
	marginX     = 15.0
	rowHeight   = 7.0
	chartHeight = 40.0
	chartWidth  = 180.0
)

var (
	headerFill = [3]int{0x33, 0x66, 0x99}
	stripeFill = [3]int{0xee, 0xf2, 0xf7}
	barFill    = [3]int{0xcc, 0x55, 0x22}

	columns = []struct {
		title string
		width float64
	}{
		{"Time", 20},
		{"Callsign", 35},
		{"Owner", 65},
		{"Model", 60},
	}
)

// GroupByDay splits entries into days, newest first. Entries keep their
// log order within a day.
func GroupByDay(entries []dailylog.Entry) []Day {
	index := make(map[string]int)
	var days []Day
	for _, e := range entries {
		d := e.Day()
		i, ok := index[d]
		if !ok {
			i = len(days)
			index[d] = i
			days = append(days, Day{Date: d})
		}
		days[i].Entries = append(days[i].Entries, e)
	}
	sort.SliceStable(days, func(i, j int) bool { return days[i].Date > days[j].Date })
	return days
}

// Write renders title, a per-day count chart and one table per day.
func Write(output io.Writer, title string, days []Day, generated time.Time) error {
	pdf := gofpdf.New("P", "mm", "A4", "")
	tr := pdf.UnicodeTranslatorFromDescriptor("")
	pdf.SetMargins(marginX, 15, marginX)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AddPage()

	pdf.SetFont("Arial", "B", 16)
	pdf.Cell(0, 10, tr(title))
	pdf.Ln(10)
	pdf.SetFont("Arial", "", 9)
	pdf.Cell(0, 6, fmt.Sprintf("Generated %s", generated.Format(dailylog.DateLayout)))
	pdf.Ln(10)

	if len(days) == 0 {
		pdf.SetFont("Arial", "", 11)
		pdf.Cell(0, 8, "No loitering flights recorded.")
		return pdf.Output(output)
	}

	drawCountChart(pdf, days)

	for _, d := range days {
		drawDay(pdf, tr, d)
	}

	if err := pdf.Error(); err != nil {
		return fmt.Errorf("failed to render report: %w", err)
	}
	return pdf.Output(output)
}

// drawCountChart draws one bar per day, oldest on the left.
func drawCountChart(pdf *gofpdf.Fpdf, days []Day) {
	max := 0
	for _, d := range days {
		if len(d.Entries) > max {
			max = len(d.Entries)
		}
	}
	if max == 0 {
		return
	}

	x0, y0 := marginX, pdf.GetY()
	barW := chartWidth / float64(len(days))
	if barW > 20 {
		barW = 20
	}

	pdf.SetFillColor(barFill[0], barFill[1], barFill[2])
	pdf.SetFont("Arial", "", 7)
	for i := range days {
		d := days[len(days)-1-i]
		h := chartHeight * float64(len(d.Entries)) / float64(max)
		x := x0 + float64(i)*barW
		pdf.Rect(x+1, y0+chartHeight-h, barW-2, h, "F")
		pdf.MoveTo(x, y0+chartHeight-h-4)
		pdf.CellFormat(barW, 4, fmt.Sprintf("%d", len(d.Entries)), "", 0, "C", false, 0, "")
	}

	pdf.SetDrawColor(0, 0, 0)
	pdf.Line(x0, y0+chartHeight, x0+chartWidth, y0+chartHeight)
	pdf.SetY(y0 + chartHeight + 6)
}

func drawDay(pdf *gofpdf.Fpdf, tr func(string) string, d Day) {
	pdf.SetFont("Arial", "B", 12)
	pdf.SetTextColor(0, 0, 0)
	pdf.Cell(0, 8, fmt.Sprintf("%s (%d flights)", d.Date, len(d.Entries)))
	pdf.Ln(8)

	pdf.SetFont("Arial", "B", 9)
	pdf.SetFillColor(headerFill[0], headerFill[1], headerFill[2])
	pdf.SetTextColor(255, 255, 255)
	for _, c := range columns {
		pdf.CellFormat(c.width, rowHeight, c.title, "1", 0, "L", true, 0, "")
	}
	pdf.Ln(rowHeight)

	pdf.SetFont("Arial", "", 9)
	pdf.SetTextColor(0, 0, 0)
	pdf.SetFillColor(stripeFill[0], stripeFill[1], stripeFill[2])
	for i, e := range d.Entries {
		fill := i%2 == 1
		cells := []string{e.Date.Format("15:04"), e.Callsign, e.Owner, e.Model}
		for j, c := range columns {
			pdf.CellFormat(c.width, rowHeight, tr(fit(pdf, cells[j], c.width-2)), "1", 0, "L", fill, 0, "")
		}
		pdf.Ln(rowHeight)
	}
	pdf.Ln(4)
}

// fit truncates s so it renders within width.
func fit(pdf *gofpdf.Fpdf, s string, width float64) string {
	if pdf.GetStringWidth(s) <= width {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && pdf.GetStringWidth(string(r)+"...") > width {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}
