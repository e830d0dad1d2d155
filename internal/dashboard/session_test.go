package dashboard

import (
	"context"
	"testing"
	"time"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

func TestSessionApplyAndReload(t *testing.T) {
	api := &fakeAPI{totals: map[domain.Scope]domain.Totals{
		domain.BySector("khamis"): {Visited: 4, NotVisited: 1, Total: 5},
	}}
	reg := NewRegistry(api, &fakeCharts{}, Columns{}, quietLogger())
	page := domain.Page{ID: domain.DefaultPageID, Features: domain.Features{Chart: true, Details: true}}

	s := reg.Get("sid", page, testMeta)
	views, err := s.Apply(SelectSector{Key: "khamis"})
	if err != nil {
		t.Fatal(err)
	}
	if status := s.Reload(context.Background(), views); status != "" {
		t.Errorf("status = %q", status)
	}
	if s.Scope() != domain.BySector("khamis") {
		t.Errorf("scope = %v", s.Scope())
	}
	if cards := s.Loader.Cards(); cards[0].Value != 4 {
		t.Errorf("cards = %+v", cards)
	}
	if reg.Get("sid", page, testMeta) != s {
		t.Error("registry returned a new session for the same id and page")
	}
	if reg.Get("sid", domain.Page{ID: "abha", BoundSector: "abha"}, testMeta) == s {
		t.Error("pages must not share a session")
	}
}

func TestRegistrySweepAndDrop(t *testing.T) {
	api := &fakeAPI{chart: domain.ChartData{Labels: []string{"a"}}}
	charts := &fakeCharts{}
	reg := NewRegistry(api, charts, Columns{}, quietLogger())
	now := time.Date(2025, 1, 1, 8, 0, 0, 0, time.UTC)
	reg.now = func() time.Time { return now }

	page := domain.Page{ID: domain.DefaultPageID}
	old := reg.Get("old", page, testMeta)
	old.Loader.LoadChart(context.Background(), domain.AllData())

	now = now.Add(time.Hour)
	reg.Get("fresh", page, testMeta)
	reg.Get("fresh", domain.Page{ID: "abha", BoundSector: "abha"}, testMeta)

	if n := reg.Sweep(30 * time.Minute); n != 1 {
		t.Errorf("swept %d, want 1", n)
	}
	if !charts.created[0].released {
		t.Error("swept session's chart was not released")
	}
	if reg.Len() != 2 {
		t.Errorf("live = %d, want 2", reg.Len())
	}
	reg.Drop("fresh")
	if reg.Len() != 0 {
		t.Errorf("live after drop = %d", reg.Len())
	}
}
