package xlsx

import (
	"bytes"
	"errors"
	"reflect"
	"testing"

	"github.com/xuri/excelize/v2"

	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/table"
)

func TestExportWritesVisibleRows(t *testing.T) {
	summary := table.New("summaryTable", []domain.TableRow{
		domain.NewTableRow("التصنيف", "الصحية", "تمت الزيارة", 3),
		domain.NewTableRow("التصنيف", "المباني", "تمت الزيارة", 4),
	}, nil, "الملخص")
	raw := table.New("rawTable", []domain.TableRow{
		domain.NewTableRow("رقم الرخصة", "0042", "الحالة", "تمت"),
		domain.NewTableRow("رقم الرخصة", "0043", "الحالة", "لم تتم"),
	}, nil, "الملخص")
	raw.Search("لم")

	var buf bytes.Buffer
	if err := Export(&buf, summary, raw); err != nil {
		t.Fatalf("Export: %v", err)
	}

	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatalf("OpenReader: %v", err)
	}
	defer f.Close()

	if got := f.GetSheetList(); !reflect.DeepEqual(got, []string{"الملخص", "الملخص_2"}) {
		t.Fatalf("sheets = %v", got)
	}
	rows, _ := f.GetRows("الملخص")
	if len(rows) != 3 || rows[0][0] != "التصنيف" || rows[2][1] != "4" {
		t.Errorf("summary rows = %v", rows)
	}
	rawRows, _ := f.GetRows("الملخص_2")
	if len(rawRows) != 2 || rawRows[1][0] != "0043" {
		t.Errorf("raw rows = %v, want header plus the one visible row", rawRows)
	}
	if typ, _ := f.GetCellType("الملخص", "B2"); typ == excelize.CellTypeSharedString || typ == excelize.CellTypeInlineString {
		t.Errorf("numeric cell stored as text")
	}
}

func TestExportEmpty(t *testing.T) {
	var buf bytes.Buffer
	if err := Export(&buf); err != nil {
		t.Fatalf("Export: %v", err)
	}
	f, err := excelize.OpenReader(&buf)
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	if v, _ := f.GetCellValue("Sheet1", "A1"); v != table.NoDataText {
		t.Errorf("A1 = %q", v)
	}
}

func TestSafeSheetName(t *testing.T) {
	tests := []struct{ in, want string }{
		{"a/b:c", "a_b_c"},
		{"", "Sheet"},
		{"0123456789012345678901234567890123", "0123456789012345678901234567890"},
	}
	for _, tt := range tests {
		if got := SafeSheetName(tt.in); got != tt.want {
			t.Errorf("SafeSheetName(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func workbook(t *testing.T, sheets map[string][]string) *bytes.Buffer {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	for name, header := range sheets {
		if _, err := f.NewSheet(name); err != nil {
			t.Fatal(err)
		}
		for i, h := range header {
			cell, _ := excelize.CoordinatesToCellName(i+1, 1)
			f.SetCellValue(name, cell, h)
		}
	}
	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		t.Fatal(err)
	}
	return &buf
}

func TestCheckUpload(t *testing.T) {
	tests := []struct {
		name  string
		field string
		book  map[string][]string
		want  error
	}{
		{"raw ok", FieldRawToday, map[string][]string{RawSheetName: {"رقم الرخصة", "حالة الزيارة", "البلدية"}}, nil},
		{"raw without status column", FieldRawToday, map[string][]string{RawSheetName: {" رقم الرخصة "}}, nil},
		{"raw prev any sheets", FieldRawPrev, map[string][]string{"whatever": {"x"}}, nil},
		{"raw sheet missing", FieldRawToday, map[string][]string{"data": {"x"}}, ErrMissingSheet},
		{"raw licence missing", FieldRawToday, map[string][]string{RawSheetName: {"حالة الزيارة"}}, ErrMissingCol},
		{"ministry ok", FieldMinistryNew, map[string][]string{"المباني": {"license_id", "MUNICIPALITY_EN"}}, nil},
		{"ministry no section", FieldMinistryNew, map[string][]string{"other": {"license_id"}}, ErrMissingSheet},
		{"ministry bad header", FieldMinistryNew, map[string][]string{"الصحية": {"license_id"}}, ErrMissingCol},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := CheckUpload(tt.field, workbook(t, tt.book))
			if tt.want == nil && err != nil {
				t.Fatalf("CheckUpload: %v", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestCheckUploadRejectsNonWorkbook(t *testing.T) {
	for _, field := range []string{FieldRawToday, FieldMinistryNew} {
		err := CheckUpload(field, bytes.NewBufferString("name,status\n"))
		if !errors.Is(err, ErrNotWorkbook) {
			t.Errorf("%s: err = %v", field, err)
		}
	}
	if err := CheckUpload(FieldRawPrev, bytes.NewBufferString("garbage")); err != nil {
		t.Errorf("raw_prev is not read by the backend, got %v", err)
	}
}
