// Package pdf generates a one-page snapshot of a dashboard: the three summary
// cards with their deltas, followed by the municipality summary table when
// one is loaded.
package pdf

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/go-pdf/fpdf"

	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/table"
)

// Snapshot is what gets printed.
type Snapshot struct {
	Title       string
	Scope       domain.Scope
	GeneratedAt time.Time
	Cards       []domain.Card
	Summary     *table.Table
}

// Generator writes snapshots. With FontPath set to a UTF-8 TrueType font the
// report prints Arabic labels and cells; otherwise it uses Helvetica and text
// the cp1252 code page cannot show is replaced by a Latin placeholder.
type Generator struct {
	FontPath string
}

var cardNames = map[string]string{
	"visited":     "Visited",
	"not_visited": "Not visited",
	"total":       "Total licences",
}

// Write renders s as PDF to w.
func (g Generator) Write(w io.Writer, s Snapshot) error {
	pdf := fpdf.New("P", "mm", "A4", "")
	pdf.SetMargins(15, 15, 15)
	pdf.SetAutoPageBreak(true, 15)
	pdf.AliasNbPages("{nb}")

	d := &doc{pdf: pdf, family: "Helvetica", tr: pdf.UnicodeTranslatorFromDescriptor("")}
	if g.FontPath != "" {
		pdf.AddUTF8Font("body", "", g.FontPath)
		pdf.AddUTF8Font("body", "B", g.FontPath)
		d.family, d.unicode = "body", true
	}

	pdf.AddPage()
	d.header(s)
	d.cards(s.Cards)
	if s.Summary != nil {
		d.table(s.Summary)
	}
	d.footer(s.GeneratedAt)
	return pdf.Output(w)
}

type doc struct {
	pdf     *fpdf.Fpdf
	family  string
	unicode bool
	tr      func(string) string
}

// cp1252 characters outside Latin-1.
const cp1252Extra = "€‚ƒ„…†‡ˆ‰Š‹ŒŽ‘’“”•–—˜™š›œžŸ"

// Printable reports whether s can be printed without a UTF-8 font.
func Printable(s string) bool {
	for _, r := range s {
		if r >= 0x100 && !strings.ContainsRune(cp1252Extra, r) {
			return false
		}
	}
	return true
}

// text prepares s for the current font, or returns fallback when the
// built-in font cannot show it.
func (d *doc) text(s, fallback string) string {
	if d.unicode {
		return s
	}
	if !Printable(s) {
		s = fallback
	}
	return d.tr(s)
}

func (d *doc) contentWidth() float64 {
	pageW, _ := d.pdf.GetPageSize()
	l, _, r, _ := d.pdf.GetMargins()
	return pageW - l - r
}

// ── Header bar ───────────────────────────────────────────────────────────────

func (d *doc) header(s Snapshot) {
	pdf := d.pdf
	marginL, marginT, _, _ := pdf.GetMargins()
	w := d.contentWidth()

	pdf.SetFillColor(30, 30, 30)
	pdf.Rect(marginL, marginT, w, 10, "F")
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(d.family, "B", 11)
	pdf.SetXY(marginL+2, marginT+1.5)
	pdf.CellFormat(w-40, 7, d.text(s.Title, "Visits dashboard"), "", 0, "L", false, 0, "")
	pdf.SetFont(d.family, "", 9)
	pdf.CellFormat(0, 7, "Page "+fmt.Sprint(pdf.PageNo())+" of {nb}", "", 1, "R", false, 0, "")
	pdf.SetTextColor(0, 0, 0)

	pdf.SetXY(marginL, marginT+13)
	pdf.SetFont(d.family, "", 9)
	pdf.CellFormat(w, 6, d.text("Scope: "+scopeText(s.Scope), "Scope: "+s.Scope.Kind.String()), "", 1, "L", false, 0, "")
	pdf.Ln(2)
}

func scopeText(sc domain.Scope) string {
	switch sc.Kind {
	case domain.ScopeSector:
		return "sector " + sc.Key
	case domain.ScopeMunicipality:
		return "municipality " + sc.Key
	default:
		return "all data"
	}
}

// ── Cards ────────────────────────────────────────────────────────────────────

func (d *doc) cards(cards []domain.Card) {
	if len(cards) == 0 {
		return
	}
	pdf := d.pdf
	marginL, _, _, _ := pdf.GetMargins()
	gap := 4.0
	cardW := (d.contentWidth() - gap*float64(len(cards)-1)) / float64(len(cards))
	y := pdf.GetY()

	for i, c := range cards {
		x := marginL + float64(i)*(cardW+gap)
		pdf.SetFillColor(240, 240, 240)
		pdf.Rect(x, y, cardW, 26, "F")

		name := cardNames[c.Key]
		if name == "" {
			name = c.Label
		}
		pdf.SetXY(x+2, y+2)
		pdf.SetFont(d.family, "B", 8)
		pdf.CellFormat(cardW-4, 5, d.text(strings.ToUpper(name), strings.ToUpper(c.Key)), "", 2, "L", false, 0, "")
		pdf.SetFont(d.family, "B", 16)
		pdf.CellFormat(cardW-4, 9, humanize.Comma(int64(c.Value)), "", 2, "L", false, 0, "")

		r, g, b := deltaColour(c.Delta.Kind)
		pdf.SetTextColor(r, g, b)
		pdf.SetFont(d.family, "", 7)
		pdf.MultiCell(cardW-4, 3.5, d.text(c.Delta.Text, ""), "", "L", false)
		pdf.SetTextColor(0, 0, 0)
	}
	pdf.SetXY(marginL, y+30)
}

func deltaColour(k domain.DeltaKind) (int, int, int) {
	switch k {
	case domain.Increased:
		return 22, 128, 61
	case domain.Decreased:
		return 185, 28, 28
	default:
		return 110, 110, 110
	}
}

// ── Summary table ─────────────────────────────────────────────────────────────

func (d *doc) table(t *table.Table) {
	pdf := d.pdf
	marginL, _, _, _ := pdf.GetMargins()
	w := d.contentWidth()

	pdf.SetFont(d.family, "B", 10)
	pdf.SetX(marginL)
	pdf.CellFormat(w, 7, d.text(t.Title, "Summary"), "", 1, "L", false, 0, "")

	if t.Empty() {
		pdf.SetFont(d.family, "", 9)
		pdf.CellFormat(w, 6, d.text(table.NoDataText, "No data"), "", 1, "L", false, 0, "")
		return
	}

	colW := w / float64(len(t.Columns))
	pdf.SetFillColor(30, 30, 30)
	pdf.SetTextColor(255, 255, 255)
	pdf.SetFont(d.family, "B", 8)
	for i, c := range t.Columns {
		ln := 0
		if i == len(t.Columns)-1 {
			ln = 1
		}
		pdf.CellFormat(colW, 7, d.fit(c, fmt.Sprintf("col %d", i+1), colW), "1", ln, "C", true, 0, "")
	}
	pdf.SetTextColor(0, 0, 0)

	pdf.SetFont(d.family, "", 8)
	for i, cells := range t.Visible() {
		if i%2 == 0 {
			pdf.SetFillColor(250, 250, 250)
		} else {
			pdf.SetFillColor(255, 255, 255)
		}
		for j, c := range cells {
			ln := 0
			if j == len(cells)-1 {
				ln = 1
			}
			pdf.CellFormat(colW, 6, d.fit(c, "?", colW), "1", ln, "L", true, 0, "")
		}
	}
}

// fit prepares s like text and trims it until it fits into width.
func (d *doc) fit(s, fallback string, width float64) string {
	s = d.text(s, fallback)
	limit := width - 2
	if d.pdf.GetStringWidth(s) <= limit {
		return s
	}
	r := []rune(s)
	for len(r) > 0 && d.pdf.GetStringWidth(string(r)+"...") > limit {
		r = r[:len(r)-1]
	}
	return string(r) + "..."
}

// ── Footer ───────────────────────────────────────────────────────────────────

func (d *doc) footer(at time.Time) {
	pdf := d.pdf
	_, pageH := pdf.GetPageSize()
	marginL, _, _, marginB := pdf.GetMargins()
	pdf.SetXY(marginL, pageH-marginB-6)
	pdf.SetFont(d.family, "", 7.5)
	pdf.SetTextColor(130, 130, 130)
	pdf.CellFormat(d.contentWidth(), 5, "Generated "+at.Format("2006-01-02 15:04"), "", 0, "L", false, 0, "")
	pdf.SetTextColor(0, 0, 0)
}
