// Package table turns ordered report rows into display tables and filters
// their rows by free-text search.
package table

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

// NoDataText is shown instead of a table when there are no rows.
const NoDataText = "لا توجد بيانات"

// Row is one rendered data row.
type Row struct {
	Cells  []string
	Hidden bool
	text   string // lower-cased cells joined by tabs, matched by Search
}

// Table is a rendered table. Columns are fixed at construction; Search only
// toggles Hidden on the stored rows.
type Table struct {
	ID      string
	Title   string
	Columns []string
	Rows    []Row
	Query   string
}

// New renders rows. Columns are preferred filtered down to the first row's
// keys; when that leaves nothing, the first row's own key order is used.
// Later rows are never inspected for extra keys.
func New(id string, rows []domain.TableRow, preferred []string, title string) *Table {
	t := &Table{ID: id, Title: title}
	if len(rows) == 0 {
		return t
	}
	t.Columns = columns(rows[0], preferred)
	t.Rows = make([]Row, 0, len(rows))
	for _, r := range rows {
		cells := make([]string, len(t.Columns))
		for i, c := range t.Columns {
			v, _ := r.Get(c)
			cells[i] = CellText(v)
		}
		t.Rows = append(t.Rows, Row{Cells: cells, text: strings.ToLower(strings.Join(cells, "\t"))})
	}
	return t
}

func columns(first domain.TableRow, preferred []string) []string {
	var cols []string
	for _, c := range preferred {
		if _, ok := first.Get(c); ok {
			cols = append(cols, c)
		}
	}
	if len(cols) == 0 {
		cols = first.Keys()
	}
	return cols
}

// CellText converts a cell value to its display string; nil becomes "".
func CellText(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case string:
		return x
	case json.Number:
		return x.String()
	case bool:
		return strconv.FormatBool(x)
	case int:
		return strconv.Itoa(x)
	case int64:
		return strconv.FormatInt(x, 10)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return fmt.Sprint(x)
	}
}

// Empty reports whether the table has no data rows.
func (t *Table) Empty() bool { return len(t.Rows) == 0 }

// Search hides every row whose text does not contain q, case-insensitively.
// A blank query shows every row. It returns the number of visible rows.
func (t *Table) Search(q string) int {
	t.Query = q
	needle := strings.ToLower(strings.TrimSpace(q))
	visible := 0
	for i := range t.Rows {
		t.Rows[i].Hidden = needle != "" && !strings.Contains(t.Rows[i].text, needle)
		if !t.Rows[i].Hidden {
			visible++
		}
	}
	return visible
}

// Visible returns the cells of the rows the current search leaves shown.
func (t *Table) Visible() [][]string {
	out := make([][]string, 0, len(t.Rows))
	for _, r := range t.Rows {
		if !r.Hidden {
			out = append(out, r.Cells)
		}
	}
	return out
}

// Clone returns a copy whose rows can be searched or rendered independently.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	c := *t
	c.Columns = append([]string(nil), t.Columns...)
	c.Rows = append([]Row(nil), t.Rows...)
	return &c
}
