package dashboard

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"

	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/ports"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type fakeAPI struct {
	mu         sync.Mutex
	totals     map[domain.Scope]domain.Totals
	totalsErr  error
	chart      domain.ChartData
	chartErr   error
	details    domain.Details
	detailsErr error

	// block holds a totals call for the scope until the channel is closed.
	block   map[domain.Scope]chan struct{}
	entered chan domain.Scope

	detailCalls int
}

func (f *fakeAPI) Sectors(context.Context) (domain.SectorMeta, error) { return testMeta, nil }

func (f *fakeAPI) Totals(_ context.Context, scope domain.Scope) (domain.Totals, error) {
	f.mu.Lock()
	ch := f.block[scope]
	f.mu.Unlock()
	if ch != nil {
		if f.entered != nil {
			f.entered <- scope
		}
		<-ch
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.totalsErr != nil {
		return domain.Totals{}, f.totalsErr
	}
	return f.totals[scope], nil
}

func (f *fakeAPI) ChartData(context.Context, domain.Scope) (domain.ChartData, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.chart, f.chartErr
}

func (f *fakeAPI) MunicipalityDetails(context.Context, string) (domain.Details, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls++
	return f.details, f.detailsErr
}

func (f *fakeAPI) Process(context.Context, []domain.Upload) (domain.ProcessResult, error) {
	return domain.ProcessResult{}, errors.New("not implemented")
}

func (f *fakeAPI) SectorDownloadURL(key string) string     { return "/dl/" + key }
func (f *fakeAPI) MunicipalityExcelURL(name string) string { return "/xl/" + name }

func (f *fakeAPI) set(fn func(f *fakeAPI)) {
	f.mu.Lock()
	defer f.mu.Unlock()
	fn(f)
}

type fakeChart struct {
	title    string
	labels   []string
	datasets []domain.Dataset
	released bool
}

func (c *fakeChart) SetSeries(labels []string, ds []domain.Dataset) error {
	c.labels, c.datasets = labels, ds
	return nil
}

func (c *fakeChart) WriteTo(w io.Writer) (int64, error) {
	n, err := io.WriteString(w, "<svg>"+c.title+"</svg>")
	return int64(n), err
}

func (c *fakeChart) Release() { c.released = true }

type fakeCharts struct {
	created []*fakeChart
}

func (f *fakeCharts) NewChart(title string) (ports.Chart, error) {
	c := &fakeChart{title: title}
	f.created = append(f.created, c)
	return c, nil
}
