package dashboard

import (
	"errors"
	"reflect"
	"testing"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

var testMeta = domain.SectorMeta{
	"khamis": {Label: "قطاع خميس مشيط", Municipalities: []string{"بلدية أحد رفيدة", "بلدية الواديين"}},
	"abha":   {Label: "قطاع أبها", Municipalities: []string{"بلدية السودة", "بلدية مربة"}},
}

func optionValues(c Control) []string {
	out := make([]string, len(c.Options))
	for i, o := range c.Options {
		out[i] = o.Value
	}
	return out
}

func TestSelectingNoSectorResetsMunicipalityControl(t *testing.T) {
	page := domain.Page{ID: domain.DefaultPageID, Features: domain.Features{Chart: true}}
	st := domain.FilterState{}

	st, _, err := Dispatch(page, testMeta, st, SelectSector{Key: "khamis"})
	if err != nil {
		t.Fatalf("select sector: %v", err)
	}
	st, _, err = Dispatch(page, testMeta, st, SelectMunicipality{Name: "بلدية الواديين"})
	if err != nil {
		t.Fatalf("select municipality: %v", err)
	}
	if c := MunicipalityControl(page, testMeta, st); !c.Enabled || len(c.Options) != 3 {
		t.Fatalf("control with sector = %+v", c)
	}

	st, views, err := Dispatch(page, testMeta, st, SelectSector{Key: ""})
	if err != nil {
		t.Fatalf("select no sector: %v", err)
	}
	if st != (domain.FilterState{}) {
		t.Errorf("state = %+v, want empty", st)
	}
	c := MunicipalityControl(page, testMeta, st)
	if c.Enabled {
		t.Error("municipality control should be disabled")
	}
	if len(c.Options) != 1 || c.Options[0].Value != "" || c.Options[0].Label != AllOptionLabel {
		t.Errorf("options = %+v, want only all", c.Options)
	}
	if !reflect.DeepEqual(views, []View{ViewTotals, ViewChart}) {
		t.Errorf("views = %v", views)
	}
}

func TestSelectingSectorResetsMunicipality(t *testing.T) {
	page := domain.Page{ID: domain.DefaultPageID}
	st := domain.FilterState{Sector: "khamis", Municipality: "بلدية الواديين"}
	st, _, err := Dispatch(page, testMeta, st, SelectSector{Key: "abha"})
	if err != nil {
		t.Fatal(err)
	}
	if st.Municipality != "" || st.Sector != "abha" {
		t.Errorf("state = %+v", st)
	}
	c := MunicipalityControl(page, testMeta, st)
	if got, want := optionValues(c), []string{"", "بلدية السودة", "بلدية مربة"}; !reflect.DeepEqual(got, want) {
		t.Errorf("options = %v, want %v", got, want)
	}
	if !c.Options[0].Selected {
		t.Error("all should be selected after sector change")
	}
}

func TestDispatchErrors(t *testing.T) {
	index := domain.Page{ID: domain.DefaultPageID}
	bound := domain.Page{ID: "abha", BoundSector: "abha"}

	tests := []struct {
		name string
		page domain.Page
		st   domain.FilterState
		ev   Event
		want error
	}{
		{"unknown sector", index, domain.FilterState{}, SelectSector{Key: "nope"}, ErrUnknownSector},
		{"municipality without sector", index, domain.FilterState{}, SelectMunicipality{Name: "x"}, ErrMunicipalityDisabled},
		{"municipality of other sector", index, domain.FilterState{Sector: "abha"}, SelectMunicipality{Name: "بلدية الواديين"}, ErrUnknownMunicipality},
		{"sector on bound page", bound, domain.FilterState{}, SelectSector{Key: "khamis"}, ErrPageBound},
		{"municipality on bound page", bound, domain.FilterState{Sector: "abha"}, SelectMunicipality{Name: "بلدية مربة"}, ErrMunicipalityDisabled},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, views, err := Dispatch(tt.page, testMeta, tt.st, tt.ev)
			if !errors.Is(err, tt.want) {
				t.Fatalf("err = %v, want %v", err, tt.want)
			}
			if got != tt.st || views != nil {
				t.Errorf("failed dispatch changed state: %+v %v", got, views)
			}
		})
	}
}

func TestReloadsFollowFeatures(t *testing.T) {
	page := domain.Page{Features: domain.Features{Chart: true, Details: true}}
	if got := Reloads(page); !reflect.DeepEqual(got, []View{ViewTotals, ViewChart, ViewDetails}) {
		t.Errorf("Reloads = %v", got)
	}
	if got := Reloads(domain.Page{}); !reflect.DeepEqual(got, []View{ViewTotals}) {
		t.Errorf("Reloads = %v", got)
	}
}

func TestSectorControlOnBoundPage(t *testing.T) {
	c := SectorControl(domain.Page{BoundSector: "khamis"}, testMeta, domain.FilterState{})
	if c.Enabled {
		t.Error("sector select should be disabled on a sector page")
	}
	if got, want := optionValues(c), []string{"", "abha", "khamis"}; !reflect.DeepEqual(got, want) {
		t.Errorf("options = %v, want %v", got, want)
	}
	if !c.Options[2].Selected || c.Options[2].Label != "قطاع خميس مشيط" {
		t.Errorf("bound option = %+v", c.Options[2])
	}
}
