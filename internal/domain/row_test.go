package domain

import (
	"encoding/json"
	"reflect"
	"testing"
)

func TestTableRowKeepsKeyOrder(t *testing.T) {
	var rows []TableRow
	data := `[{"التصنيف":"الصحية","إجمالي_الرخص":12,"zeta":null,"alpha":"x"},{"b":true}]`
	if err := json.Unmarshal([]byte(data), &rows); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if len(rows) != 2 {
		t.Fatalf("got %d rows, want 2", len(rows))
	}
	want := []string{"التصنيف", "إجمالي_الرخص", "zeta", "alpha"}
	if got := rows[0].Keys(); !reflect.DeepEqual(got, want) {
		t.Errorf("Keys() = %v, want %v", got, want)
	}
	v, ok := rows[0].Get("إجمالي_الرخص")
	if !ok || v.(json.Number).String() != "12" {
		t.Errorf("Get(total) = %v, %v", v, ok)
	}
	v, ok = rows[0].Get("zeta")
	if !ok || v != nil {
		t.Errorf("Get(zeta) = %v, %v; want nil, true", v, ok)
	}
	if _, ok := rows[0].Get("missing"); ok {
		t.Error("Get(missing) reported present")
	}
}

func TestTableRowNestedValuesBecomeText(t *testing.T) {
	var r TableRow
	if err := json.Unmarshal([]byte(`{"a":[1, 2],"b":{"c": 1}}`), &r); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if v, _ := r.Get("a"); v != "[1,2]" {
		t.Errorf("a = %v, want [1,2]", v)
	}
	if v, _ := r.Get("b"); v != `{"c":1}` {
		t.Errorf("b = %v", v)
	}
}

func TestTableRowRejectsNonObject(t *testing.T) {
	var r TableRow
	if err := json.Unmarshal([]byte(`[1,2]`), &r); err == nil {
		t.Error("expected error for array input")
	}
}

func TestTableRowMarshalRoundTripOrder(t *testing.T) {
	r := NewTableRow("b", 2, "a", "x")
	out, err := json.Marshal(r)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(out) != `{"b":2,"a":"x"}` {
		t.Errorf("Marshal = %s", out)
	}
}

func TestSectorMetaHelpers(t *testing.T) {
	meta := SectorMeta{
		"west": {Label: "West", Municipalities: []string{"Qana"}},
		"abha": {Label: "Abha", Municipalities: []string{"Marba", "Tabab"}},
	}
	if got := meta.Keys(); !reflect.DeepEqual(got, []string{"abha", "west"}) {
		t.Errorf("Keys() = %v", got)
	}
	if !meta.HasMunicipality("abha", "Tabab") {
		t.Error("HasMunicipality(abha, Tabab) = false")
	}
	if meta.HasMunicipality("west", "Tabab") {
		t.Error("HasMunicipality(west, Tabab) = true")
	}
	if meta.Label("nope") != "nope" {
		t.Errorf("Label fallback = %q", meta.Label("nope"))
	}
}
