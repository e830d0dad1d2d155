// Package xlsx exports rendered tables to Excel and checks uploaded
// workbooks before they are forwarded to the reporting backend.
package xlsx

import (
	"errors"
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/xuri/excelize/v2"

	"github.com/csg33k/visits-dashboard/internal/table"
)

// ContentType of the workbooks written by Export.
const ContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

// Upload form fields accepted by the reporting backend.
const (
	FieldRawToday    = "raw_today"
	FieldMinistryNew = "ministry_new"
	FieldRawPrev     = "raw_prev"
)

// RawSheetName is the visits sheet of a raw export.
const RawSheetName = "1_الزيارات وحالاتها"

// Sections are the licence template sheets; a ministry workbook needs at
// least one of them.
var Sections = []string{"الصحية", "المباني", "الأسواق", "الايرادات", "الحفريات", "السكن الجماعي"}

// Required header cells. The visit status column of a raw export is optional;
// the backend only filters on it when present.
var (
	RawColumns      = []string{"رقم الرخصة"}
	MinistryColumns = []string{"license_id", "MUNICIPALITY_EN"}
)

var (
	ErrNotWorkbook  = errors.New("file is not an xlsx workbook")
	ErrMissingSheet = errors.New("required sheet missing")
	ErrMissingCol   = errors.New("required column missing")
)

// ── Export ───────────────────────────────────────────────────────────────────

// Export writes one right-to-left sheet per table with the rows the current
// search leaves visible. Cells that parse as numbers are stored as numbers,
// except zero-padded ones such as licence ids.
func Export(w io.Writer, tables ...*table.Table) error {
	f := excelize.NewFile()
	defer f.Close()

	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Size: 11, Color: "#FFFFFF"},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#1E1E1E"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
	})
	if err != nil {
		return fmt.Errorf("header style: %w", err)
	}

	rtl := true
	used := map[string]bool{}
	first := ""
	for _, t := range tables {
		if t == nil {
			continue
		}
		name := uniqueName(SafeSheetName(sheetTitle(t)), used)
		if _, err := f.NewSheet(name); err != nil {
			return fmt.Errorf("sheet %q: %w", name, err)
		}
		if first == "" {
			first = name
		}
		if err := f.SetSheetView(name, -1, &excelize.ViewOptions{RightToLeft: &rtl}); err != nil {
			return err
		}
		if err := writeTable(f, name, t, headerStyle); err != nil {
			return err
		}
	}
	if first == "" {
		first = "Sheet1"
		f.SetCellValue(first, "A1", table.NoDataText)
	} else if !used["sheet1"] {
		if err := f.DeleteSheet("Sheet1"); err != nil {
			return err
		}
		idx, _ := f.GetSheetIndex(first)
		f.SetActiveSheet(idx)
	}
	return f.Write(w)
}

func writeTable(f *excelize.File, sheet string, t *table.Table, headerStyle int) error {
	if t.Empty() {
		return f.SetCellValue(sheet, "A1", table.NoDataText)
	}
	for i, c := range t.Columns {
		cell, _ := excelize.CoordinatesToCellName(i+1, 1)
		f.SetCellValue(sheet, cell, c)
		f.SetCellStyle(sheet, cell, cell, headerStyle)
	}
	for r, cells := range t.Visible() {
		for c, v := range cells {
			cell, _ := excelize.CoordinatesToCellName(c+1, r+2)
			if err := f.SetCellValue(sheet, cell, cellValue(v)); err != nil {
				return fmt.Errorf("%s!%s: %w", sheet, cell, err)
			}
		}
	}
	last, _ := excelize.ColumnNumberToName(len(t.Columns))
	return f.SetColWidth(sheet, "A", last, 18)
}

func cellValue(s string) any {
	if s == "" || (len(s) > 1 && s[0] == '0' && s[1] != '.') {
		return s
	}
	if i, err := strconv.ParseInt(s, 10, 64); err == nil {
		return i
	}
	if x, err := strconv.ParseFloat(s, 64); err == nil && !strings.ContainsAny(s, "eEnN") {
		return x
	}
	return s
}

func sheetTitle(t *table.Table) string {
	if t.Title != "" {
		return t.Title
	}
	return t.ID
}

// SafeSheetName replaces characters Excel forbids in sheet names and trims
// the name to 31 characters.
func SafeSheetName(name string) string {
	name = strings.Map(func(r rune) rune {
		if strings.ContainsRune(`\/*?:[]`, r) {
			return '_'
		}
		return r
	}, name)
	if r := []rune(name); len(r) > 31 {
		name = string(r[:31])
	}
	if strings.TrimSpace(name) == "" {
		return "Sheet"
	}
	return name
}

func uniqueName(name string, used map[string]bool) string {
	candidate := name
	for i := 2; used[strings.ToLower(candidate)]; i++ {
		suffix := "_" + strconv.Itoa(i)
		r := []rune(name)
		if len(r)+len(suffix) > 31 {
			r = r[:31-len(suffix)]
		}
		candidate = string(r) + suffix
	}
	used[strings.ToLower(candidate)] = true
	return candidate
}

// ── Upload check ─────────────────────────────────────────────────────────────

// CheckUpload verifies that the workbook uploaded as field has the sheets and
// header columns the backend reads. The previous raw export is ignored by the
// backend and passes unchecked.
func CheckUpload(field string, r io.Reader) error {
	if field == FieldRawPrev {
		return nil
	}
	f, err := excelize.OpenReader(r)
	if err != nil {
		return fmt.Errorf("%s: %w", field, ErrNotWorkbook)
	}
	defer f.Close()
	sheets := f.GetSheetList()

	switch field {
	case FieldRawToday:
		if !slices.Contains(sheets, RawSheetName) {
			return fmt.Errorf("%s: %w: %q", field, ErrMissingSheet, RawSheetName)
		}
		return checkHeader(f, field, RawSheetName, RawColumns)
	case FieldMinistryNew:
		found := false
		for _, s := range Sections {
			if !slices.Contains(sheets, s) {
				continue
			}
			found = true
			if err := checkHeader(f, field, s, MinistryColumns); err != nil {
				return err
			}
		}
		if !found {
			return fmt.Errorf("%s: %w: one of %s", field, ErrMissingSheet, strings.Join(Sections, "، "))
		}
		return nil
	default:
		return fmt.Errorf("unknown upload field %q", field)
	}
}

func checkHeader(f *excelize.File, field, sheet string, want []string) error {
	rows, err := f.Rows(sheet)
	if err != nil {
		return fmt.Errorf("%s: read %q: %w", field, sheet, err)
	}
	defer rows.Close()

	var header []string
	if rows.Next() {
		if header, err = rows.Columns(); err != nil {
			return fmt.Errorf("%s: read %q header: %w", field, sheet, err)
		}
	}
	for i := range header {
		header[i] = strings.TrimSpace(header[i])
	}
	for _, col := range want {
		if !slices.Contains(header, col) {
			return fmt.Errorf("%s: %w: %q in sheet %q", field, ErrMissingCol, col, sheet)
		}
	}
	return nil
}
