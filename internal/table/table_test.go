package table

import (
	"encoding/json"
	"reflect"
	"testing"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

func rowsFromJSON(t *testing.T, s string) []domain.TableRow {
	t.Helper()
	var rows []domain.TableRow
	if err := json.Unmarshal([]byte(s), &rows); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	return rows
}

func TestEmptyRows(t *testing.T) {
	tbl := New("summaryTable", nil, []string{"a"}, "Summary")
	if !tbl.Empty() || len(tbl.Columns) != 0 {
		t.Errorf("empty table: columns %v, rows %d", tbl.Columns, len(tbl.Rows))
	}
	if n := tbl.Search("x"); n != 0 {
		t.Errorf("Search on empty table = %d", n)
	}
}

func TestPreferredOrderAndMissingCells(t *testing.T) {
	rows := rowsFromJSON(t, `[{"a":1,"b":2},{"a":3}]`)
	tbl := New("t", rows, []string{"b", "a"}, "")

	if !reflect.DeepEqual(tbl.Columns, []string{"b", "a"}) {
		t.Fatalf("Columns = %v, want [b a]", tbl.Columns)
	}
	if len(tbl.Rows) != 2 {
		t.Fatalf("got %d data rows, want 2", len(tbl.Rows))
	}
	if got := tbl.Rows[1].Cells; !reflect.DeepEqual(got, []string{"", "3"}) {
		t.Errorf("second row = %q, want [\"\" 3]", got)
	}
}

func TestColumnsFallBackToFirstRowOrder(t *testing.T) {
	rows := rowsFromJSON(t, `[{"z":1,"y":2},{"z":3,"y":4,"extra":5}]`)
	tbl := New("t", rows, []string{"nope"}, "")
	if !reflect.DeepEqual(tbl.Columns, []string{"z", "y"}) {
		t.Errorf("Columns = %v, want [z y]", tbl.Columns)
	}
	if len(tbl.Rows[1].Cells) != 2 {
		t.Errorf("second row has %d cells, extra key must be ignored", len(tbl.Rows[1].Cells))
	}
}

func TestNullRendersEmpty(t *testing.T) {
	rows := rowsFromJSON(t, `[{"a":null,"b":1.5,"c":true}]`)
	tbl := New("t", rows, nil, "")
	if got := tbl.Rows[0].Cells; !reflect.DeepEqual(got, []string{"", "1.5", "true"}) {
		t.Errorf("cells = %q", got)
	}
}

func TestSearchHidesNonMatchingRows(t *testing.T) {
	rows := []domain.TableRow{
		domain.NewTableRow("name", "Marba", "status", "visited"),
		domain.NewTableRow("name", "Tabab", "status", "NOT visited"),
		domain.NewTableRow("name", "Qana", "status", "visited"),
	}
	tbl := New("t", rows, nil, "")

	if n := tbl.Search("tabab"); n != 1 {
		t.Fatalf("Search visible = %d, want 1", n)
	}
	for i, want := range []bool{true, false, true} {
		if tbl.Rows[i].Hidden != want {
			t.Errorf("row %d hidden = %v, want %v", i, tbl.Rows[i].Hidden, want)
		}
	}
	if got := tbl.Visible(); len(got) != 1 || got[0][0] != "Tabab" {
		t.Errorf("visible rows = %v, want Tabab only", got)
	}

	if n := tbl.Search(""); n != 3 {
		t.Errorf("cleared search visible = %d, want 3", n)
	}
	for i, r := range tbl.Rows {
		if r.Hidden {
			t.Errorf("row %d still hidden after clear", i)
		}
	}
}

func TestSearchIsCaseInsensitiveWithinCells(t *testing.T) {
	rows := []domain.TableRow{
		domain.NewTableRow("a", "Alpha", "b", "Beta"),
		domain.NewTableRow("a", "Gamma", "b", "Delta"),
	}
	tbl := New("t", rows, nil, "")
	if n := tbl.Search("  BETA "); n != 1 {
		t.Errorf("visible = %d, want 1", n)
	}
	if got := tbl.Visible(); len(got) != 1 || got[0][0] != "Alpha" {
		t.Errorf("Visible() = %v", got)
	}
	// cells are joined with a tab, so a query running across a boundary misses
	if n := tbl.Search("alphabeta"); n != 0 {
		t.Errorf("cross-cell query visible = %d, want 0", n)
	}
}
