package reportapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/csg33k/visits-dashboard/internal/auth"
	"github.com/csg33k/visits-dashboard/internal/domain"
)

func quietLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func TestURLs(t *testing.T) {
	c := New("http://api.local/", time.Second, quietLogger())
	tests := []struct {
		name string
		got  string
		want string
	}{
		{"totals all", c.TotalsURL(domain.AllData()), "http://api.local/api/totals"},
		{"totals sector", c.TotalsURL(domain.BySector("abha")), "http://api.local/api/totals/sector/abha"},
		{"totals municipality", c.TotalsURL(domain.ByMunicipality("بلدية قنا")),
			"http://api.local/api/totals/municipality/%D8%A8%D9%84%D8%AF%D9%8A%D8%A9%20%D9%82%D9%86%D8%A7"},
		{"chart all", c.ChartURL(domain.AllData()), "http://api.local/api/chart-data/compare?scope=all"},
		{"chart sector", c.ChartURL(domain.BySector("west")), "http://api.local/api/chart-data/compare?scope=sector&sector=west"},
		{"chart municipality", c.ChartURL(domain.ByMunicipality("a b")), "http://api.local/api/chart-data/compare?municipality=a+b&scope=municipality"},
		{"details", c.DetailsURL("a/b"), "http://api.local/api/municipality/a%2Fb/details"},
		{"download", c.SectorDownloadURL("north"), "http://api.local/api/download/sector/north"},
		{"excel", c.MunicipalityExcelURL("x"), "http://api.local/api/municipality/x/excel"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("%s: got %q, want %q", tt.name, tt.got, tt.want)
		}
	}
}

func TestTotalsParsesDefensively(t *testing.T) {
	var gotAuth, gotPath string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotPath = r.URL.EscapedPath()
		io.WriteString(w, `{"visited": 10, "not_visited": 5.0, "prev_visited": 8, "prev_not_visited": null,
			"delta_visited": 2, "delta_not_visited": null, "prev_run_date": "20250101_101500"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, quietLogger())
	ctx := auth.WithHeader(context.Background(), "Bearer abc")
	got, err := c.Totals(ctx, domain.BySector("abha"))
	if err != nil {
		t.Fatalf("Totals: %v", err)
	}
	if gotAuth != "Bearer abc" {
		t.Errorf("Authorization = %q", gotAuth)
	}
	if gotPath != "/api/totals/sector/abha" {
		t.Errorf("path = %q", gotPath)
	}
	if got.Visited != 10 || got.NotVisited != 5 || got.Total != 0 {
		t.Errorf("counts = %d/%d/%d, want 10/5/0", got.Visited, got.NotVisited, got.Total)
	}
	if got.PrevVisited == nil || *got.PrevVisited != 8 {
		t.Errorf("PrevVisited = %v, want 8", got.PrevVisited)
	}
	if got.PrevNotVisited != nil || got.DeltaNotVisited != nil || got.PrevTotal != nil {
		t.Error("absent fields must stay nil")
	}
	if got.PrevRunDate != "20250101_101500" {
		t.Errorf("PrevRunDate = %q", got.PrevRunDate)
	}
}

func TestNoAuthorizationHeaderWithoutCredentials(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, ok := r.Header["Authorization"]; ok {
			t.Error("unexpected Authorization header")
		}
		io.WriteString(w, `{}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, quietLogger())
	if _, err := c.Totals(context.Background(), domain.AllData()); err != nil {
		t.Fatalf("Totals: %v", err)
	}
}

func TestHTTPErrorCarriesBodyMessage(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		io.WriteString(w, `{"error":"قطاع غير معروف"}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, quietLogger())
	_, err := c.Totals(context.Background(), domain.BySector("x"))
	var he *HTTPError
	if !errors.As(err, &he) {
		t.Fatalf("err = %v, want *HTTPError", err)
	}
	if he.Status != http.StatusBadRequest || he.Message != "قطاع غير معروف" {
		t.Errorf("HTTPError = %+v", he)
	}
}

func TestHTTPErrorWithoutBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, quietLogger())
	_, err := c.ChartData(context.Background(), domain.AllData())
	var he *HTTPError
	if !errors.As(err, &he) || he.Message != "" {
		t.Fatalf("err = %v, want HTTPError without message", err)
	}
}

func TestNetworkFailure(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c := New(url, time.Second, quietLogger())
	_, err := c.Sectors(context.Background())
	if !errors.Is(err, ErrNetwork) {
		t.Fatalf("err = %v, want ErrNetwork", err)
	}
}

func TestChartDataAndDetails(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/chart-data/compare", func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Query().Get("scope") != "municipality" || r.URL.Query().Get("municipality") != "بلدية قنا" {
			t.Errorf("query = %s", r.URL.RawQuery)
		}
		io.WriteString(w, `{"labels":["الصحية","المباني"],"current_visited":[3,4],"current_not":[1,"x"],"has_prev":false}`)
	})
	mux.HandleFunc("GET /api/municipality/{name}/details", func(w http.ResponseWriter, r *http.Request) {
		if r.PathValue("name") != "بلدية قنا" {
			t.Errorf("name = %q", r.PathValue("name"))
		}
		io.WriteString(w, `{"summary":[{"التصنيف":"الصحية","تمت الزيارة":3}],"raw":[]}`)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	c := New(srv.URL, time.Second, quietLogger())
	scope := domain.ByMunicipality("بلدية قنا")
	cd, err := c.ChartData(context.Background(), scope)
	if err != nil {
		t.Fatalf("ChartData: %v", err)
	}
	if len(cd.Labels) != 2 || cd.CurrentNot[1] != 0 || cd.HasPrev || cd.PrevVisited != nil {
		t.Errorf("chart = %+v", cd)
	}

	d, err := c.MunicipalityDetails(context.Background(), "بلدية قنا")
	if err != nil {
		t.Fatalf("MunicipalityDetails: %v", err)
	}
	if len(d.Summary) != 1 || len(d.Raw) != 0 {
		t.Fatalf("details = %+v", d)
	}
	if keys := d.Summary[0].Keys(); keys[0] != "التصنيف" {
		t.Errorf("summary keys = %v", keys)
	}
}

func TestProcessSendsMultipart(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseMultipartForm(1 << 20); err != nil {
			t.Errorf("ParseMultipartForm: %v", err)
		}
		for _, field := range []string{"raw_today", "ministry_new"} {
			f, hdr, err := r.FormFile(field)
			if err != nil {
				t.Errorf("FormFile(%s): %v", field, err)
				continue
			}
			b, _ := io.ReadAll(f)
			if !strings.HasPrefix(hdr.Filename, field) || string(b) != "data-"+field {
				t.Errorf("%s: filename %q body %q", field, hdr.Filename, b)
			}
		}
		json.NewEncoder(w).Encode(map[string]any{
			"run_id":       "20250102_080000",
			"totals_today": map[string]int{"visited": 12, "not_visited": 3},
			"totals_prev":  map[string]int{"visited": 10, "not_visited": 5},
			"totals_delta": map[string]int{"visited": 2, "not_visited": -2},
		})
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, quietLogger())
	res, err := c.Process(context.Background(), []domain.Upload{
		{Field: "raw_today", Filename: "raw_today.xlsx", Data: []byte("data-raw_today")},
		{Field: "ministry_new", Filename: "ministry_new.xlsx", Data: []byte("data-ministry_new")},
	})
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.RunID != "20250102_080000" || res.Today.Visited != 12 {
		t.Errorf("result = %+v", res)
	}
	if res.Delta == nil || res.Delta.NotVisited != -2 || res.Prev == nil {
		t.Errorf("delta/prev = %+v / %+v", res.Delta, res.Prev)
	}
}

func TestProcessFirstRunHasNoPrev(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		io.WriteString(w, `{"run_id":"1","totals_today":{"visited":1,"not_visited":2},"totals_prev":null,"totals_delta":null}`)
	}))
	defer srv.Close()

	c := New(srv.URL, time.Second, quietLogger())
	res, err := c.Process(context.Background(), nil)
	if err != nil {
		t.Fatalf("Process: %v", err)
	}
	if res.Prev != nil || res.Delta != nil {
		t.Errorf("first run should have no prev/delta: %+v", res)
	}
}
