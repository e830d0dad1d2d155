package dashboard

import (
	"context"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/ports"
)

// Session is one visitor's view of one page: its filter state and the
// loader holding the rendered views.
type Session struct {
	Page   domain.Page
	Meta   domain.SectorMeta
	Loader *Loader

	mu       sync.Mutex
	state    domain.FilterState
	lastSeen time.Time
}

// State returns the current filter state.
func (s *Session) State() domain.FilterState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Scope resolves the current filter state against the page.
func (s *Session) Scope() domain.Scope {
	return ResolveScope(s.Page, s.State())
}

// Apply dispatches ev and stores the resulting state.
func (s *Session) Apply(ev Event) ([]View, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	next, views, err := Dispatch(s.Page, s.Meta, s.state, ev)
	if err != nil {
		return nil, err
	}
	s.state = next
	return views, nil
}

// Reload runs the loads for views against the current scope, one after the
// other, and returns the status of the first failure.
func (s *Session) Reload(ctx context.Context, views []View) string {
	scope := s.Scope()
	status := ""
	for _, v := range views {
		var o Outcome
		switch v {
		case ViewTotals:
			o = s.Loader.LoadTotals(ctx, scope)
		case ViewChart:
			o = s.Loader.LoadChart(ctx, scope)
		case ViewDetails:
			o = s.Loader.LoadDetails(ctx, scope)
		}
		if status == "" {
			status = o.Status
		}
	}
	return status
}

func (s *Session) touch(now time.Time) {
	s.mu.Lock()
	s.lastSeen = now
	s.mu.Unlock()
}

func (s *Session) idleSince(now time.Time) time.Duration {
	s.mu.Lock()
	defer s.mu.Unlock()
	return now.Sub(s.lastSeen)
}

// Registry keeps the sessions of every visitor, keyed by session id and page.
type Registry struct {
	api    ports.ReportingAPI
	charts ports.ChartFactory
	cols   Columns
	log    *slog.Logger
	now    func() time.Time

	mu       sync.Mutex
	sessions map[string]*Session
}

func NewRegistry(api ports.ReportingAPI, charts ports.ChartFactory, cols Columns, log *slog.Logger) *Registry {
	return &Registry{
		api:      api,
		charts:   charts,
		cols:     cols,
		log:      log,
		now:      time.Now,
		sessions: map[string]*Session{},
	}
}

// Get returns the session for id on page, creating it on first use with
// meta as its sector metadata.
func (r *Registry) Get(id string, page domain.Page, meta domain.SectorMeta) *Session {
	key := id + "|" + page.ID
	now := r.now()

	r.mu.Lock()
	s, ok := r.sessions[key]
	if !ok {
		s = &Session{
			Page:   page,
			Meta:   meta,
			Loader: NewLoader(r.api, r.charts, r.cols, r.log.With("session", id, "page", page.ID)),
		}
		r.sessions[key] = s
	}
	r.mu.Unlock()

	s.touch(now)
	return s
}

// Drop forgets every page session of id and releases their charts.
func (r *Registry) Drop(id string) {
	prefix := id + "|"
	r.mu.Lock()
	defer r.mu.Unlock()
	for k, s := range r.sessions {
		if strings.HasPrefix(k, prefix) {
			s.Loader.Close()
			delete(r.sessions, k)
		}
	}
}

// Len is the number of live page sessions.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Sweep drops sessions idle for longer than maxIdle and returns how many
// were removed.
func (r *Registry) Sweep(maxIdle time.Duration) int {
	now := r.now()
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for k, s := range r.sessions {
		if s.idleSince(now) > maxIdle {
			s.Loader.Close()
			delete(r.sessions, k)
			n++
		}
	}
	return n
}

// RunSweeper sweeps every interval until ctx is done.
func (r *Registry) RunSweeper(ctx context.Context, interval, maxIdle time.Duration) {
	t := time.NewTicker(interval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			if n := r.Sweep(maxIdle); n > 0 {
				r.log.Info("swept idle sessions", "removed", n, "live", r.Len())
			}
		}
	}
}
