package templates

import (
	"net/url"

	"github.com/dustin/go-humanize"

	"github.com/csg33k/visits-dashboard/internal/dashboard"
	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/table"
)

// ScopeChangedEvent is the htmx event that makes every view reload.
const ScopeChangedEvent = "scope-changed"

// PagePath builds the URL of a page-scoped endpoint.
func PagePath(pageID, suffix string) string {
	return "/p/" + url.PathEscape(pageID) + "/" + suffix
}

// comma formats a count with thousands separators.
func comma(n int) string {
	return humanize.Comma(int64(n))
}

type NavLink struct {
	Title  string
	Path   string
	Active bool
}

// DashboardView is everything the page body needs on first render; the
// views themselves load through htmx.
type DashboardView struct {
	Page         domain.Page
	Nav          []NavLink
	Sector       dashboard.Control
	Municipality dashboard.Control
	LoggedIn     bool
}

// DetailsView is the municipality detail section.
type DetailsView struct {
	PageID       string
	Municipality string
	ExcelURL     string
	Summary, Raw *table.Table
	Query        string
}

func (v DetailsView) ready() bool {
	return v.Municipality != "" && (v.Summary != nil || v.Raw != nil)
}

type cardSlot struct {
	ID, Label    string
	Value, Delta string
	Class        string
}

var cardOrder = []struct{ key, label string }{
	{"visited", "تمت الزيارة"},
	{"not_visited", "لم تُزر"},
	{"total", "إجمالي الرخص"},
}

// cardSlots lays the cards out in display order. Slots without a loaded card
// show a dash.
func cardSlots(cards []domain.Card) []cardSlot {
	byKey := make(map[string]domain.Card, len(cards))
	for _, c := range cards {
		byKey[c.Key] = c
	}
	slots := make([]cardSlot, 0, len(cardOrder))
	for _, o := range cardOrder {
		s := cardSlot{ID: "card-" + o.key, Label: o.label, Value: "—"}
		if c, ok := byKey[o.key]; ok {
			s.Value, s.Delta, s.Class = comma(c.Value), c.Delta.Text, c.Delta.Class
		}
		slots = append(slots, s)
	}
	return slots
}

type uploadField struct {
	Name, Label string
	Required    bool
}

var uploadFields = []uploadField{
	{"raw_today", "ملف الزيارات الحالي", true},
	{"ministry_new", "قالب الرخص من الوزارة", true},
	{"raw_prev", "ملف الزيارات السابق (اختياري)", false},
}
