package dashboard

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/ports"
	"github.com/csg33k/visits-dashboard/internal/table"
)

// User-visible status messages.
const (
	MsgConnection = "connection error: the reporting service could not be reached"
	MsgNoData     = "no data available"
)

// Element ids of the two detail tables.
const (
	SummaryTableID = "summaryTable"
	RawTableID     = "rawTable"
)

// Chart series labels.
const (
	SeriesVisited        = "تمت الزيارة"
	SeriesNotVisited     = "لم تُزر"
	SeriesPrevVisited    = "تمت الزيارة (السابق)"
	SeriesPrevNotVisited = "لم تُزر (السابق)"
)

// StatusMessage turns a load error into the status line text.
func StatusMessage(err error) string {
	var he *ports.HTTPError
	switch {
	case err == nil:
		return ""
	case errors.Is(err, ports.ErrNetwork):
		return MsgConnection
	case errors.As(err, &he) && he.Message != "":
		return he.Message
	default:
		return MsgNoData
	}
}

// Outcome reports how a single load finished.
type Outcome struct {
	// Status is the user-visible message of a failed load.
	Status string
	// Stale is set when a newer load of the same view started before this one
	// completed; its response was dropped and nothing was stored.
	Stale bool
	Err   error
}

// Columns lists the preferred column orders of the detail tables.
type Columns struct {
	Summary []string
	Raw     []string
}

// Loader fetches and keeps the three views of one dashboard page. Each view
// loads independently; a completion older than the latest started load of
// the same view is discarded.
type Loader struct {
	api    ports.ReportingAPI
	charts ports.ChartFactory
	cols   Columns
	log    *slog.Logger

	totalsGen  atomic.Uint64
	chartGen   atomic.Uint64
	detailsGen atomic.Uint64

	mu      sync.Mutex
	cards   []domain.Card
	chart   ports.Chart
	summary *table.Table
	raw     *table.Table
	query   string
}

func NewLoader(api ports.ReportingAPI, charts ports.ChartFactory, cols Columns, log *slog.Logger) *Loader {
	return &Loader{api: api, charts: charts, cols: cols, log: log}
}

// ── totals ───────────────────────────────────────────────────────────────────

// LoadTotals fetches the summary cards. On failure the previous cards stay.
func (l *Loader) LoadTotals(ctx context.Context, scope domain.Scope) Outcome {
	gen := l.totalsGen.Add(1)
	t, err := l.api.Totals(ctx, scope)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.totalsGen.Load() != gen {
		return Outcome{Stale: true}
	}
	if err != nil {
		l.log.Warn("totals load failed", "scope", scope.String(), "err", err)
		return Outcome{Status: StatusMessage(err), Err: err}
	}
	l.cards = Cards(t)
	return Outcome{}
}

// Cards returns the last successfully loaded cards, or nil before the first.
func (l *Loader) Cards() []domain.Card {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]domain.Card(nil), l.cards...)
}

// ── chart ────────────────────────────────────────────────────────────────────

// LoadChart fetches the comparison data and replaces the live chart. On
// failure the live chart is released and the view stays empty.
func (l *Loader) LoadChart(ctx context.Context, scope domain.Scope) Outcome {
	gen := l.chartGen.Add(1)
	cd, err := l.api.ChartData(ctx, scope)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.chartGen.Load() != gen {
		return Outcome{Stale: true}
	}
	l.releaseChart()
	if err != nil {
		l.log.Warn("chart load failed", "scope", scope.String(), "err", err)
		return Outcome{Status: StatusMessage(err), Err: err}
	}

	c, err := l.charts.NewChart(chartTitle(scope))
	if err != nil {
		l.log.Error("chart create failed", "err", err)
		return Outcome{Status: MsgNoData, Err: err}
	}
	if err := c.SetSeries(cd.Labels, Datasets(cd)); err != nil {
		c.Release()
		l.log.Error("chart series rejected", "scope", scope.String(), "err", err)
		return Outcome{Status: MsgNoData, Err: err}
	}
	l.chart = c
	return Outcome{}
}

// ChartSVG renders the live chart. ok is false when no chart is loaded.
func (l *Loader) ChartSVG() (svg []byte, ok bool, err error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.chart == nil {
		return nil, false, nil
	}
	var buf bytes.Buffer
	if _, err := l.chart.WriteTo(&buf); err != nil {
		return nil, true, fmt.Errorf("render chart: %w", err)
	}
	return buf.Bytes(), true, nil
}

// Close releases the live chart.
func (l *Loader) Close() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.releaseChart()
}

func (l *Loader) releaseChart() {
	if l.chart != nil {
		l.chart.Release()
		l.chart = nil
	}
}

// Datasets converts chart data into bar series. Previous-run series are only
// included when the backend reports a previous run.
func Datasets(cd domain.ChartData) []domain.Dataset {
	n := len(cd.Labels)
	ds := []domain.Dataset{
		{Label: SeriesVisited, Values: floats(cd.CurrentVisited, n)},
		{Label: SeriesNotVisited, Values: floats(cd.CurrentNot, n)},
	}
	if cd.HasPrev {
		ds = append(ds,
			domain.Dataset{Label: SeriesPrevVisited, Values: floats(cd.PrevVisited, n)},
			domain.Dataset{Label: SeriesPrevNotVisited, Values: floats(cd.PrevNot, n)},
		)
	}
	return ds
}

// floats pads or truncates vs to n values.
func floats(vs []int, n int) []float64 {
	out := make([]float64, n)
	for i := 0; i < n && i < len(vs); i++ {
		out[i] = float64(vs[i])
	}
	return out
}

func chartTitle(scope domain.Scope) string {
	switch scope.Kind {
	case domain.ScopeSector, domain.ScopeMunicipality:
		return scope.Key
	default:
		return "جميع البيانات"
	}
}

// ── details ──────────────────────────────────────────────────────────────────

// LoadDetails fetches the municipality tables. Outside municipality scope the
// tables are cleared. On failure the previous tables stay.
func (l *Loader) LoadDetails(ctx context.Context, scope domain.Scope) Outcome {
	gen := l.detailsGen.Add(1)
	if scope.Kind != domain.ScopeMunicipality {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.detailsGen.Load() == gen {
			l.summary, l.raw = nil, nil
		}
		return Outcome{}
	}

	d, err := l.api.MunicipalityDetails(ctx, scope.Key)

	l.mu.Lock()
	defer l.mu.Unlock()
	if l.detailsGen.Load() != gen {
		return Outcome{Stale: true}
	}
	if err != nil {
		l.log.Warn("details load failed", "municipality", scope.Key, "err", err)
		return Outcome{Status: StatusMessage(err), Err: err}
	}
	l.summary = table.New(SummaryTableID, d.Summary, l.cols.Summary, "الملخص")
	l.raw = table.New(RawTableID, d.Raw, l.cols.Raw, "البيانات التفصيلية")
	if l.query != "" {
		l.summary.Search(l.query)
		l.raw.Search(l.query)
	}
	return Outcome{}
}

// Tables returns copies of the loaded detail tables; both are nil outside
// municipality scope or before the first successful load.
func (l *Loader) Tables() (summary, raw *table.Table) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.summary.Clone(), l.raw.Clone()
}

// Search filters both detail tables and returns the visible row count.
// The query is kept and reapplied to tables loaded later.
func (l *Loader) Search(q string) int {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.query = q
	n := 0
	for _, t := range []*table.Table{l.summary, l.raw} {
		if t != nil {
			n += t.Search(q)
		}
	}
	return n
}

// Query is the current detail table search.
func (l *Loader) Query() string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.query
}
