package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/a-h/templ"

	"github.com/csg33k/visits-dashboard/internal/adapters/pdf"
	"github.com/csg33k/visits-dashboard/internal/auth"
	"github.com/csg33k/visits-dashboard/internal/config"
	"github.com/csg33k/visits-dashboard/internal/dashboard"
	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/ports"
	"github.com/csg33k/visits-dashboard/internal/templates"
)

const sectorPagePrefix = "sector-"

type Handler struct {
	api      ports.ReportingAPI
	sessions *auth.Sessions
	registry *dashboard.Registry
	site     config.Site
	report   pdf.Generator
	log      *slog.Logger
	now      func() time.Time

	// sector metadata and the pages resolved from it, fetched on first use
	metaMu sync.Mutex
	meta   domain.SectorMeta
	pages  []domain.Page
}

func New(api ports.ReportingAPI, sessions *auth.Sessions, registry *dashboard.Registry, site config.Site, report pdf.Generator, log *slog.Logger) *Handler {
	return &Handler{
		api:      api,
		sessions: sessions,
		registry: registry,
		site:     site,
		report:   report,
		log:      log,
		now:      time.Now,
	}
}

func (h *Handler) Routes() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /healthz", h.healthz)
	mux.HandleFunc("GET /login", h.loginForm)
	mux.HandleFunc("POST /login", h.login)
	mux.HandleFunc("POST /logout", h.logout)

	for _, p := range h.site.Pages {
		pattern := "GET " + p.Path
		if strings.HasSuffix(p.Path, "/") {
			pattern += "{$}"
		}
		id := p.ID
		mux.HandleFunc(pattern, func(w http.ResponseWriter, r *http.Request) { h.dashboardPage(w, r, id) })
	}
	if h.site.SectorPages.Enabled {
		mux.HandleFunc("GET /sector/{key}", func(w http.ResponseWriter, r *http.Request) {
			h.dashboardPage(w, r, sectorPagePrefix+r.PathValue("key"))
		})
	}

	mux.HandleFunc("POST /p/{page}/filters", h.withSession(h.filters))
	mux.HandleFunc("GET /p/{page}/totals", h.withSession(h.totals))
	mux.HandleFunc("GET /p/{page}/chart", h.withSession(h.chart))
	mux.HandleFunc("GET /p/{page}/chart.svg", h.withSession(h.chartSVG))
	mux.HandleFunc("GET /p/{page}/details", h.withSession(h.details))
	mux.HandleFunc("GET /p/{page}/search", h.withSession(h.search))
	mux.HandleFunc("GET /p/{page}/export.xlsx", h.withSession(h.exportXLSX))
	mux.HandleFunc("GET /p/{page}/snapshot.pdf", h.withSession(h.snapshotPDF))
	mux.HandleFunc("GET /p/{page}/download", h.withSession(h.download))
	mux.HandleFunc("POST /p/{page}/upload", h.withSession(h.upload))

	return logRequests(h.log, h.sessions.Middleware(mux))
}

// ── Pages and sessions ───────────────────────────────────────────────────────

// metadata returns the sector metadata and resolved pages, fetching them on
// the first call that succeeds.
func (h *Handler) metadata(ctx context.Context) (domain.SectorMeta, []domain.Page, error) {
	h.metaMu.Lock()
	defer h.metaMu.Unlock()
	if h.meta != nil {
		return h.meta, h.pages, nil
	}
	meta, err := h.api.Sectors(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("load sector metadata: %w", err)
	}
	pages, err := h.site.Resolve(meta)
	if err != nil {
		return nil, nil, err
	}
	h.log.Info("sector metadata loaded", "sectors", len(meta), "pages", len(pages))
	h.meta, h.pages = meta, pages
	return meta, pages, nil
}

// features returns the flags of pageID without needing metadata.
func (h *Handler) features(pageID string) (domain.Features, bool) {
	for _, p := range h.site.Pages {
		if p.ID == pageID {
			return p.Features, true
		}
	}
	if h.site.SectorPages.Enabled && strings.HasPrefix(pageID, sectorPagePrefix) {
		return h.site.SectorPages.Features, true
	}
	return domain.Features{}, false
}

// session resolves the visitor's session for pageID. When it returns false
// the response has already been written.
func (h *Handler) session(w http.ResponseWriter, r *http.Request, pageID string, fragment bool) (*dashboard.Session, bool) {
	features, ok := h.features(pageID)
	if !ok {
		http.NotFound(w, r)
		return nil, false
	}
	if features.Auth && !auth.RequireLogin(w, r) {
		return nil, false
	}

	meta, pages, err := h.metadata(r.Context())
	if err != nil {
		h.log.Warn("metadata unavailable", "page", pageID, "err", err)
		msg := dashboard.StatusMessage(err)
		if fragment {
			w.Header().Set("HX-Reswap", "none")
			render(w, r, templates.Status(msg, true))
			return nil, false
		}
		h.renderPage(w, r, http.StatusBadGateway, h.site.Title, templates.Status(msg, false))
		return nil, false
	}

	for _, p := range pages {
		if p.ID == pageID {
			return h.registry.Get(auth.SessionID(r.Context()), p, meta), true
		}
	}
	http.NotFound(w, r)
	return nil, false
}

type sessionHandler func(w http.ResponseWriter, r *http.Request, s *dashboard.Session)

func (h *Handler) withSession(next sessionHandler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		s, ok := h.session(w, r, r.PathValue("page"), true)
		if !ok {
			return
		}
		next(w, r, s)
	}
}

func (h *Handler) dashboardPage(w http.ResponseWriter, r *http.Request, pageID string) {
	s, ok := h.session(w, r, pageID, false)
	if !ok {
		return
	}
	st := s.State()
	h.renderPage(w, r, http.StatusOK, s.Page.Title, templates.Dashboard(templates.DashboardView{
		Page:         s.Page,
		Nav:          h.nav(s.Page.ID),
		Sector:       dashboard.SectorControl(s.Page, s.Meta, st),
		Municipality: dashboard.MunicipalityControl(s.Page, s.Meta, st),
		LoggedIn:     auth.Header(r.Context()) != "",
	}))
}

func (h *Handler) nav(active string) []templates.NavLink {
	h.metaMu.Lock()
	defer h.metaMu.Unlock()
	links := make([]templates.NavLink, 0, len(h.pages))
	for _, p := range h.pages {
		links = append(links, templates.NavLink{Title: p.Title, Path: p.Path, Active: p.ID == active})
	}
	return links
}

func (h *Handler) healthz(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(map[string]any{
		"status":   "ok",
		"sessions": h.registry.Len(),
	})
}

// ── Login ────────────────────────────────────────────────────────────────────

func (h *Handler) loginForm(w http.ResponseWriter, r *http.Request) {
	h.renderPage(w, r, http.StatusOK, "تسجيل الدخول", templates.Login("", safeNext(r.URL.Query().Get("next"))))
}

func (h *Handler) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	next := safeNext(r.PostFormValue("next"))
	fail := func(status int, msg string) {
		h.renderPage(w, r, status, "تسجيل الدخول", templates.Login(msg, next))
	}

	var header string
	switch token, user := r.PostFormValue("token"), r.PostFormValue("username"); {
	case strings.TrimSpace(token) != "":
		header = auth.TokenHeader(token)
	case user != "":
		header = auth.BasicHeader(user, r.PostFormValue("password"))
	default:
		fail(http.StatusBadRequest, "enter a username and password or an access token")
		return
	}

	// the backend decides whether the credentials are good
	if _, err := h.api.Sectors(auth.WithHeader(r.Context(), header)); err != nil {
		var he *ports.HTTPError
		if errors.As(err, &he) && (he.Status == http.StatusUnauthorized || he.Status == http.StatusForbidden) {
			fail(http.StatusUnauthorized, "invalid credentials")
			return
		}
		fail(http.StatusBadGateway, dashboard.StatusMessage(err))
		return
	}

	if err := h.sessions.Login(r.Context(), header); err != nil {
		h.log.Error("store credentials", "err", err)
		fail(http.StatusInternalServerError, "could not start the session")
		return
	}
	h.registry.Drop(auth.SessionID(r.Context()))
	http.Redirect(w, r, next, http.StatusSeeOther)
}

func (h *Handler) logout(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Logout(r.Context()); err != nil {
		h.log.Warn("delete credentials", "err", err)
	}
	h.registry.Drop(auth.SessionID(r.Context()))
	http.Redirect(w, r, auth.LoginPath, http.StatusSeeOther)
}

// safeNext keeps post-login redirects on this site.
func safeNext(next string) string {
	if !strings.HasPrefix(next, "/") || strings.HasPrefix(next, "//") || strings.HasPrefix(next, "/\\") {
		return "/"
	}
	return next
}

// render writes templ components to the response in order.
func render(w http.ResponseWriter, r *http.Request, cs ...templ.Component) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	for _, c := range cs {
		if err := c.Render(r.Context(), w); err != nil {
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}
	}
}
