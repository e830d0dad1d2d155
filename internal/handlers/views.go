package handlers

import (
	"net/http"
	"strconv"

	"github.com/a-h/templ"
	"github.com/zeebo/xxh3"

	"github.com/csg33k/visits-dashboard/internal/dashboard"
	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/templates"
)

// filters applies a select change. A sector change wins over the
// municipality select, which the form submits alongside it.
func (h *Handler) filters(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	st := s.State()
	sector, muni := r.PostFormValue("sector"), r.PostFormValue("municipality")

	var ev dashboard.Event
	switch {
	case !s.Page.IsSectorPage() && sector != st.Sector:
		ev = dashboard.SelectSector{Key: sector}
	case !s.Page.IsSectorPage() && st.Sector != "" && muni != st.Municipality:
		ev = dashboard.SelectMunicipality{Name: muni}
	}

	status := ""
	if ev != nil {
		if _, err := s.Apply(ev); err != nil {
			h.log.Info("filter change rejected", "page", s.Page.ID, "err", err)
			status = err.Error()
		} else {
			w.Header().Set("HX-Trigger", templates.ScopeChangedEvent)
		}
	}

	st = s.State()
	render(w, r,
		templates.Filters(s.Page.ID,
			dashboard.SectorControl(s.Page, s.Meta, st),
			dashboard.MunicipalityControl(s.Page, s.Meta, st)),
		templates.Status(status, true),
	)
}

// statusOOB returns the out-of-band status update for a finished load; a
// successful or stale load leaves the status line alone.
func statusOOB(o dashboard.Outcome) []templ.Component {
	if o.Stale || o.Status == "" {
		return nil
	}
	return []templ.Component{templates.Status(o.Status, true)}
}

func (h *Handler) totals(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	o := s.Loader.LoadTotals(r.Context(), s.Scope())
	render(w, r, append([]templ.Component{templates.Cards(s.Loader.Cards())}, statusOOB(o)...)...)
}

func (h *Handler) chart(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	if !s.Page.Features.Chart {
		http.NotFound(w, r)
		return
	}
	o := s.Loader.LoadChart(r.Context(), s.Scope())
	svg, live, err := s.Loader.ChartSVG()
	if err != nil {
		h.log.Error("chart render failed", "page", s.Page.ID, "err", err)
		live = false
	}
	render(w, r, append([]templ.Component{templates.Chart(s.Page.ID, chartVersion(svg), live)}, statusOOB(o)...)...)
}

// chartSVG serves the live chart image, revalidated by content hash.
func (h *Handler) chartSVG(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	svg, live, err := s.Loader.ChartSVG()
	switch {
	case err != nil:
		h.log.Error("chart render failed", "page", s.Page.ID, "err", err)
		http.Error(w, "chart render failed", http.StatusInternalServerError)
		return
	case !live:
		http.NotFound(w, r)
		return
	}
	etag := `"` + chartVersion(svg) + `"`
	w.Header().Set("ETag", etag)
	w.Header().Set("Cache-Control", "no-cache")
	if r.Header.Get("If-None-Match") == etag {
		w.WriteHeader(http.StatusNotModified)
		return
	}
	w.Header().Set("Content-Type", "image/svg+xml")
	w.Write(svg)
}

func chartVersion(svg []byte) string {
	if len(svg) == 0 {
		return ""
	}
	return strconv.FormatUint(xxh3.Hash(svg), 16)
}

func (h *Handler) details(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	if !s.Page.Features.Details {
		http.NotFound(w, r)
		return
	}
	scope := s.Scope()
	o := s.Loader.LoadDetails(r.Context(), scope)
	summary, raw := s.Loader.Tables()

	v := templates.DetailsView{
		PageID:  s.Page.ID,
		Summary: summary,
		Raw:     raw,
		Query:   s.Loader.Query(),
	}
	if scope.Kind == domain.ScopeMunicipality {
		v.Municipality = scope.Key
		v.ExcelURL = h.api.MunicipalityExcelURL(scope.Key)
	}
	render(w, r, append([]templ.Component{templates.Details(v)}, statusOOB(o)...)...)
}

// search filters the loaded detail tables in place; nothing is refetched.
func (h *Handler) search(w http.ResponseWriter, r *http.Request, s *dashboard.Session) {
	if !s.Page.Features.Details {
		http.NotFound(w, r)
		return
	}
	s.Loader.Search(r.URL.Query().Get("q"))
	summary, raw := s.Loader.Tables()
	render(w, r, templates.Tables(summary, raw))
}
