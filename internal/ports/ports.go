package ports

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

// ErrNoCredentials is returned by a CredentialStore when the session has
// nothing stored.
var ErrNoCredentials = errors.New("no stored credentials")

// ErrNetwork wraps transport failures of the reporting API: the request never
// got a response.
var ErrNetwork = errors.New("reporting api unreachable")

// HTTPError is a non-2xx reporting API response. Message is the body's
// "error" field when the backend sent one.
type HTTPError struct {
	Status  int
	Message string
}

func (e *HTTPError) Error() string {
	if e.Message != "" {
		return fmt.Sprintf("reporting api: status %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("reporting api: status %d", e.Status)
}

// ReportingAPI defines the calls made against the external reporting backend.
// The Authorization header, when any, travels in ctx (see auth.WithHeader).
type ReportingAPI interface {
	Sectors(ctx context.Context) (domain.SectorMeta, error)
	Totals(ctx context.Context, scope domain.Scope) (domain.Totals, error)
	ChartData(ctx context.Context, scope domain.Scope) (domain.ChartData, error)
	MunicipalityDetails(ctx context.Context, name string) (domain.Details, error)
	Process(ctx context.Context, files []domain.Upload) (domain.ProcessResult, error)

	// SectorDownloadURL and MunicipalityExcelURL are navigated to by the
	// browser, never fetched by the dashboard.
	SectorDownloadURL(key string) string
	MunicipalityExcelURL(name string) string
}

// CredentialStore keeps the opaque Authorization value of a browser session.
type CredentialStore interface {
	Get(ctx context.Context, sessionID string) (string, error)
	Put(ctx context.Context, sessionID, authorization string) error
	Delete(ctx context.Context, sessionID string) error
	Close() error
}

// Chart is one live chart instance. Release must be called before the
// instance is replaced.
type Chart interface {
	SetSeries(labels []string, datasets []domain.Dataset) error
	WriteTo(w io.Writer) (int64, error)
	Release()
}

// ChartFactory creates chart instances.
type ChartFactory interface {
	NewChart(title string) (Chart, error)
}
