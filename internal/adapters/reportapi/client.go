// Package reportapi is the HTTP client of the external reporting backend.
package reportapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/csg33k/visits-dashboard/internal/auth"
	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/ports"
)

// maxBody caps how much of a response body is read.
const maxBody = 32 << 20

// ErrNetwork and HTTPError are the ports errors, re-exported for callers
// that only deal with this client.
var ErrNetwork = ports.ErrNetwork

type HTTPError = ports.HTTPError

type Client struct {
	base string
	http *http.Client
	log  *slog.Logger
}

// New returns a client for the backend rooted at baseURL.
func New(baseURL string, timeout time.Duration, log *slog.Logger) *Client {
	return &Client{
		base: strings.TrimRight(baseURL, "/"),
		http: &http.Client{Timeout: timeout},
		log:  log,
	}
}

// ── URLs ─────────────────────────────────────────────────────────────────────

// TotalsURL suffixes /api/totals with the scope.
func (c *Client) TotalsURL(scope domain.Scope) string {
	return c.base + "/api/totals" + scopeSuffix(scope)
}

// ChartURL builds the comparison chart query for the scope.
func (c *Client) ChartURL(scope domain.Scope) string {
	q := url.Values{}
	q.Set("scope", scope.Kind.String())
	switch scope.Kind {
	case domain.ScopeSector:
		q.Set("sector", scope.Key)
	case domain.ScopeMunicipality:
		q.Set("municipality", scope.Key)
	}
	return c.base + "/api/chart-data/compare?" + q.Encode()
}

// DetailsURL is the municipality detail tables endpoint.
func (c *Client) DetailsURL(name string) string {
	return c.base + "/api/municipality/" + url.PathEscape(name) + "/details"
}

func (c *Client) SectorDownloadURL(key string) string {
	return c.base + "/api/download/sector/" + url.PathEscape(key)
}

func (c *Client) MunicipalityExcelURL(name string) string {
	return c.base + "/api/municipality/" + url.PathEscape(name) + "/excel"
}

func scopeSuffix(scope domain.Scope) string {
	switch scope.Kind {
	case domain.ScopeSector:
		return "/sector/" + url.PathEscape(scope.Key)
	case domain.ScopeMunicipality:
		return "/municipality/" + url.PathEscape(scope.Key)
	default:
		return ""
	}
}

// ── Calls ────────────────────────────────────────────────────────────────────

func (c *Client) Sectors(ctx context.Context) (domain.SectorMeta, error) {
	var meta domain.SectorMeta
	if err := c.getJSON(ctx, c.base+"/api/meta/sectors", &meta); err != nil {
		return nil, err
	}
	if meta == nil {
		meta = domain.SectorMeta{}
	}
	return meta, nil
}

func (c *Client) Totals(ctx context.Context, scope domain.Scope) (domain.Totals, error) {
	var raw map[string]any
	if err := c.getJSON(ctx, c.TotalsURL(scope), &raw); err != nil {
		return domain.Totals{}, err
	}
	t := domain.Totals{
		Visited:         intOrZero(raw["visited"]),
		NotVisited:      intOrZero(raw["not_visited"]),
		Total:           intOrZero(raw["total"]),
		PrevVisited:     optInt(raw["prev_visited"]),
		PrevNotVisited:  optInt(raw["prev_not_visited"]),
		PrevTotal:       optInt(raw["prev_total"]),
		DeltaVisited:    optInt(raw["delta_visited"]),
		DeltaNotVisited: optInt(raw["delta_not_visited"]),
		DeltaTotal:      optInt(raw["delta_total"]),
	}
	if s, ok := raw["prev_run_date"].(string); ok {
		t.PrevRunDate = s
	}
	return t, nil
}

func (c *Client) ChartData(ctx context.Context, scope domain.Scope) (domain.ChartData, error) {
	var raw map[string]any
	if err := c.getJSON(ctx, c.ChartURL(scope), &raw); err != nil {
		return domain.ChartData{}, err
	}
	cd := domain.ChartData{
		Labels:         stringSlice(raw["labels"]),
		CurrentVisited: ints(raw["current_visited"]),
		CurrentNot:     ints(raw["current_not"]),
		PrevVisited:    ints(raw["prev_visited"]),
		PrevNot:        ints(raw["prev_not"]),
	}
	cd.HasPrev, _ = raw["has_prev"].(bool)
	return cd, nil
}

func (c *Client) MunicipalityDetails(ctx context.Context, name string) (domain.Details, error) {
	var body struct {
		Summary []domain.TableRow `json:"summary"`
		Raw     []domain.TableRow `json:"raw"`
	}
	if err := c.getJSON(ctx, c.DetailsURL(name), &body); err != nil {
		return domain.Details{}, err
	}
	return domain.Details{Summary: body.Summary, Raw: body.Raw}, nil
}

// Process forwards the uploaded workbooks as one multipart request.
func (c *Client) Process(ctx context.Context, files []domain.Upload) (domain.ProcessResult, error) {
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	for _, f := range files {
		part, err := mw.CreateFormFile(f.Field, f.Filename)
		if err != nil {
			return domain.ProcessResult{}, fmt.Errorf("multipart %s: %w", f.Field, err)
		}
		if _, err := part.Write(f.Data); err != nil {
			return domain.ProcessResult{}, fmt.Errorf("multipart %s: %w", f.Field, err)
		}
	}
	if err := mw.Close(); err != nil {
		return domain.ProcessResult{}, err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.base+"/api/process", &buf)
	if err != nil {
		return domain.ProcessResult{}, err
	}
	req.Header.Set("Content-Type", mw.FormDataContentType())

	var raw map[string]any
	if err := c.do(req, &raw); err != nil {
		return domain.ProcessResult{}, err
	}
	if msg, ok := raw["error"].(string); ok && msg != "" {
		return domain.ProcessResult{}, &HTTPError{Status: http.StatusOK, Message: msg}
	}
	res := domain.ProcessResult{Today: runTotals(raw["totals_today"])}
	res.RunID, _ = raw["run_id"].(string)
	if _, ok := raw["totals_prev"].(map[string]any); ok {
		p := runTotals(raw["totals_prev"])
		res.Prev = &p
	}
	if _, ok := raw["totals_delta"].(map[string]any); ok {
		d := runTotals(raw["totals_delta"])
		res.Delta = &d
	}
	return res, nil
}

// ── transport ────────────────────────────────────────────────────────────────

func (c *Client) getJSON(ctx context.Context, u string, dst any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	return c.do(req, dst)
}

func (c *Client) do(req *http.Request, dst any) error {
	req.Header.Set("Accept", "application/json")
	if h := auth.Header(req.Context()); h != "" {
		req.Header.Set("Authorization", h)
	}

	start := time.Now()
	resp, err := c.http.Do(req)
	if err != nil {
		c.log.Warn("reporting api request failed", "method", req.Method, "url", req.URL.Redacted(), "err", err)
		return fmt.Errorf("%w: %v", ErrNetwork, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBody))
	if err != nil {
		return fmt.Errorf("%w: reading body: %v", ErrNetwork, err)
	}
	c.log.Debug("reporting api", "method", req.Method, "url", req.URL.Redacted(),
		"status", resp.StatusCode, "bytes", len(body), "took", time.Since(start))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &HTTPError{Status: resp.StatusCode, Message: errorField(body)}
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(body))
	dec.UseNumber()
	if err := dec.Decode(dst); err != nil {
		// Malformed payloads degrade to empty data rather than failing the view.
		c.log.Warn("reporting api returned malformed json", "url", req.URL.Redacted(), "err", err)
	}
	return nil
}

func errorField(body []byte) string {
	var e struct {
		Error any `json:"error"`
	}
	if json.Unmarshal(body, &e) != nil {
		return ""
	}
	if s, ok := e.Error.(string); ok {
		return s
	}
	return ""
}
