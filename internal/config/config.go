// Package config reads the dashboard settings from the environment and the
// optional YAML pages file.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

// Session backends.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

type Config struct {
	Port       string
	APIBaseURL string
	APITimeout time.Duration

	SessionBackend string
	DBPath         string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionTTL     time.Duration
	SessionIdle    time.Duration
	SecureCookies  bool

	PagesFile string
	PDFFont   string

	LogLevel  slog.Level
	LogFormat string

	Site Site
}

// Site describes the served pages.
type Site struct {
	Title       string       `yaml:"title"`
	Pages       []PageConfig `yaml:"pages"`
	SectorPages SectorPages  `yaml:"sector_pages"`
	Columns     Columns      `yaml:"columns"`
}

type PageConfig struct {
	ID       string          `yaml:"id"`
	Path     string          `yaml:"path"`
	Title    string          `yaml:"title"`
	Sector   string          `yaml:"sector"`
	Features domain.Features `yaml:"features"`
}

// SectorPages controls the generated /sector/{key} page of every sector.
type SectorPages struct {
	Enabled  bool            `yaml:"enabled"`
	Features domain.Features `yaml:"features"`
}

// Columns are the preferred display orders of the detail tables.
type Columns struct {
	Summary []string `yaml:"summary"`
	Raw     []string `yaml:"raw"`
}

// reserved path prefixes that pages may not use.
var reserved = []string{"/p/", "/sector/", "/login", "/logout", "/healthz", "/static/"}

// DefaultSite is served when no pages file is configured.
func DefaultSite() Site {
	return Site{
		Title: "لوحة متابعة زيارات الرخص",
		Pages: []PageConfig{{
			ID:    domain.DefaultPageID,
			Path:  "/",
			Title: "لوحة متابعة زيارات الرخص",
			Features: domain.Features{
				Chart: true, Details: true, Download: true, Upload: true,
			},
		}},
		SectorPages: SectorPages{
			Enabled:  true,
			Features: domain.Features{Chart: true, Download: true},
		},
		Columns: Columns{
			Summary: []string{"MUNICIPALITY_EN", "التصنيف", "إجمالي_الرخص", "تمت الزيارة", "لم تزار"},
			Raw:     []string{"التصنيف", "license_id", "MUNICIPALITY_EN", "الحالات"},
		},
	}
}

// Load builds the configuration from lookup (normally os.Getenv).
func Load(lookup func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(lookup(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Port:           get("PORT", "8080"),
		APIBaseURL:     get("API_BASE_URL", "http://localhost:8000"),
		SessionBackend: strings.ToLower(get("SESSION_BACKEND", BackendSQLite)),
		DBPath:         get("DB_PATH", "dashboard.db"),
		RedisAddr:      get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  lookup("REDIS_PASSWORD"),
		PagesFile:      get("PAGES_FILE", ""),
		PDFFont:        get("PDF_FONT", ""),
		LogFormat:      strings.ToLower(get("LOG_FORMAT", "text")),
	}

	var err error
	if cfg.APITimeout, err = duration(get("API_TIMEOUT", "15s")); err != nil {
		return nil, fmt.Errorf("API_TIMEOUT: %w", err)
	}
	if cfg.SessionTTL, err = duration(get("SESSION_TTL", "12h")); err != nil {
		return nil, fmt.Errorf("SESSION_TTL: %w", err)
	}
	if cfg.SessionIdle, err = duration(get("SESSION_IDLE", "30m")); err != nil {
		return nil, fmt.Errorf("SESSION_IDLE: %w", err)
	}
	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("REDIS_DB: %w", err)
	}
	if cfg.SecureCookies, err = strconv.ParseBool(get("COOKIE_SECURE", "false")); err != nil {
		return nil, fmt.Errorf("COOKIE_SECURE: %w", err)
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(get("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	switch cfg.SessionBackend {
	case BackendSQLite, BackendRedis:
	default:
		return nil, fmt.Errorf("SESSION_BACKEND: unknown backend %q (sqlite/redis)", cfg.SessionBackend)
	}
	switch cfg.LogFormat {
	case "text", "json":
	default:
		return nil, fmt.Errorf("LOG_FORMAT: unknown format %q (text/json)", cfg.LogFormat)
	}
	if !strings.HasPrefix(cfg.APIBaseURL, "http://") && !strings.HasPrefix(cfg.APIBaseURL, "https://") {
		return nil, fmt.Errorf("API_BASE_URL: %q is not an http(s) url", cfg.APIBaseURL)
	}

	cfg.Site = DefaultSite()
	if cfg.PagesFile != "" {
		site, err := LoadSite(cfg.PagesFile)
		if err != nil {
			return nil, err
		}
		cfg.Site = *site
	}
	return cfg, nil
}

func duration(s string) (time.Duration, error) {
	d, err := time.ParseDuration(s)
	if err != nil {
		return 0, err
	}
	if d <= 0 {
		return 0, fmt.Errorf("must be positive, got %s", s)
	}
	return d, nil
}

// LoadSite reads and validates a YAML pages file.
func LoadSite(path string) (*Site, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read %q: %w", path, err)
	}
	return ParseSite(data)
}

// ParseSite parses and validates a pages document. Missing columns fall back
// to the defaults.
func ParseSite(data []byte) (*Site, error) {
	var site Site
	if err := yaml.Unmarshal(data, &site); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}
	if len(site.Pages) == 0 && !site.SectorPages.Enabled {
		return nil, fmt.Errorf("no pages configured")
	}

	ids := map[string]bool{}
	paths := map[string]bool{}
	for i := range site.Pages {
		p := &site.Pages[i]
		if p.ID == "" {
			return nil, fmt.Errorf("page[%d]: id is required", i)
		}
		if strings.ContainsAny(p.ID, "/ ") {
			return nil, fmt.Errorf("page %q: id may not contain '/' or spaces", p.ID)
		}
		if ids[p.ID] {
			return nil, fmt.Errorf("page %q: duplicate id", p.ID)
		}
		ids[p.ID] = true

		if !strings.HasPrefix(p.Path, "/") {
			return nil, fmt.Errorf("page %q: path must start with '/'", p.ID)
		}
		for _, r := range reserved {
			if strings.HasPrefix(p.Path, r) || p.Path+"/" == r {
				return nil, fmt.Errorf("page %q: path %q is reserved", p.ID, p.Path)
			}
		}
		if paths[p.Path] {
			return nil, fmt.Errorf("page %q: duplicate path %q", p.ID, p.Path)
		}
		paths[p.Path] = true

		if p.Sector != "" && p.Features.Details {
			return nil, fmt.Errorf("page %q: details need municipality filtering, which sector pages disable", p.ID)
		}
		if p.Title == "" {
			p.Title = site.Title
		}
	}

	def := DefaultSite()
	if site.Title == "" {
		site.Title = def.Title
	}
	if len(site.Columns.Summary) == 0 {
		site.Columns.Summary = def.Columns.Summary
	}
	if len(site.Columns.Raw) == 0 {
		site.Columns.Raw = def.Columns.Raw
	}
	return &site, nil
}

// Resolve returns the configured pages plus one page per sector when sector
// pages are enabled. A page bound to a sector missing from meta is an error.
func (s Site) Resolve(meta domain.SectorMeta) ([]domain.Page, error) {
	pages := make([]domain.Page, 0, len(s.Pages)+len(meta))
	for _, p := range s.Pages {
		if p.Sector != "" {
			if _, ok := meta[p.Sector]; !ok {
				return nil, fmt.Errorf("page %q: unknown sector %q", p.ID, p.Sector)
			}
		}
		pages = append(pages, domain.Page{
			ID:          p.ID,
			Path:        p.Path,
			Title:       p.Title,
			BoundSector: p.Sector,
			Features:    p.Features,
		})
	}
	if !s.SectorPages.Enabled {
		return pages, nil
	}
	features := s.SectorPages.Features
	features.Details = false
	for _, key := range meta.Keys() {
		pages = append(pages, domain.Page{
			ID:          "sector-" + key,
			Path:        "/sector/" + key,
			Title:       meta.Label(key),
			BoundSector: key,
			Features:    features,
		})
	}
	return pages, nil
}
