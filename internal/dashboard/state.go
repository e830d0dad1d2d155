package dashboard

import (
	"errors"
	"fmt"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

var (
	ErrUnknownSector        = errors.New("unknown sector")
	ErrUnknownMunicipality  = errors.New("municipality not in selected sector")
	ErrMunicipalityDisabled = errors.New("municipality filter is disabled")
	ErrPageBound            = errors.New("page is bound to a sector")
)

// View names one independently reloadable part of a page.
type View string

const (
	ViewTotals  View = "totals"
	ViewChart   View = "chart"
	ViewDetails View = "details"
)

// Event is a user selection fed to Dispatch.
type Event interface{ event() }

// SelectSector selects a sector; an empty Key means "no sector".
type SelectSector struct{ Key string }

// SelectMunicipality selects a municipality; an empty Name means "all".
type SelectMunicipality struct{ Name string }

func (SelectSector) event()       {}
func (SelectMunicipality) event() {}

// Dispatch applies ev to st and returns the new state plus the views that
// must be reloaded. It is the only place filter state changes.
func Dispatch(page domain.Page, meta domain.SectorMeta, st domain.FilterState, ev Event) (domain.FilterState, []View, error) {
	switch e := ev.(type) {
	case SelectSector:
		if page.IsSectorPage() {
			return st, nil, ErrPageBound
		}
		if e.Key != "" {
			if _, ok := meta[e.Key]; !ok {
				return st, nil, fmt.Errorf("%w: %q", ErrUnknownSector, e.Key)
			}
		}
		st = domain.FilterState{Sector: e.Key}
	case SelectMunicipality:
		if page.IsSectorPage() || st.Sector == "" {
			return st, nil, ErrMunicipalityDisabled
		}
		if e.Name != "" && !meta.HasMunicipality(st.Sector, e.Name) {
			return st, nil, fmt.Errorf("%w: %q", ErrUnknownMunicipality, e.Name)
		}
		st.Municipality = e.Name
	default:
		return st, nil, fmt.Errorf("unsupported event %T", ev)
	}
	return st, Reloads(page), nil
}

// Reloads lists the views present on page that follow the scope.
func Reloads(page domain.Page) []View {
	views := []View{ViewTotals}
	if page.Features.Chart {
		views = append(views, ViewChart)
	}
	if page.Features.Details {
		views = append(views, ViewDetails)
	}
	return views
}

// Option is one entry of a filter select.
type Option struct {
	Value    string
	Label    string
	Selected bool
}

// Control is the derived state of a filter select.
type Control struct {
	Enabled bool
	Options []Option
}

// AllOptionLabel is the label of the unrestricted option of both selects.
const AllOptionLabel = "الكل"

// SectorControl lists "all" plus every sector, marking the selection.
func SectorControl(page domain.Page, meta domain.SectorMeta, st domain.FilterState) Control {
	selected := st.Sector
	if page.IsSectorPage() {
		selected = page.BoundSector
	}
	c := Control{
		Enabled: !page.IsSectorPage(),
		Options: []Option{{Value: "", Label: AllOptionLabel, Selected: selected == ""}},
	}
	for _, k := range meta.Keys() {
		c.Options = append(c.Options, Option{Value: k, Label: meta.Label(k), Selected: k == selected})
	}
	return c
}

// MunicipalityControl is disabled with only the "all" option until a sector
// is selected; then it offers the sector's municipalities in order.
func MunicipalityControl(page domain.Page, meta domain.SectorMeta, st domain.FilterState) Control {
	all := Option{Value: "", Label: AllOptionLabel, Selected: st.Municipality == ""}
	if page.IsSectorPage() || st.Sector == "" {
		all.Selected = true
		return Control{Enabled: false, Options: []Option{all}}
	}
	c := Control{Enabled: true, Options: []Option{all}}
	for _, m := range meta[st.Sector].Municipalities {
		c.Options = append(c.Options, Option{Value: m, Label: m, Selected: m == st.Municipality})
	}
	return c
}
