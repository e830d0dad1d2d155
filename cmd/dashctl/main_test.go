package main

import (
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/urfave/cli/v2"
	"github.com/xuri/excelize/v2"

	"github.com/csg33k/visits-dashboard/internal/domain"
)

func quietApp() *cli.App {
	app := newApp()
	app.Writer = io.Discard
	app.ExitErrHandler = func(*cli.Context, error) {}
	return app
}

func testServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/municipality/{name}/details", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer t0k" {
			w.WriteHeader(http.StatusUnauthorized)
			io.WriteString(w, `{"error":"login required"}`)
			return
		}
		io.WriteString(w, `{"summary":[{"التصنيف":"الصحية","تمت الزيارة":3}],`+
			`"raw":[{"license_id":"0042","الحالات":"تمت"},{"license_id":"0043","الحالات":"لم تتم"}]}`)
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	return srv
}

func TestDetailsExport(t *testing.T) {
	srv := testServer(t)
	out := filepath.Join(t.TempDir(), "alpha.xlsx")

	err := quietApp().Run([]string{"dashctl", "--api", srv.URL, "--token", "t0k", "details", "--xlsx", out, "--q", "0043", "Alpha"})
	if err != nil {
		t.Fatalf("Run: %v", err)
	}

	f, err := excelize.OpenFile(out)
	if err != nil {
		t.Fatalf("OpenFile: %v", err)
	}
	defer f.Close()
	rows, err := f.GetRows("البيانات التفصيلية")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != "0043" {
		t.Errorf("raw rows = %v", rows)
	}
}

func TestDetailsErrors(t *testing.T) {
	srv := testServer(t)

	err := quietApp().Run([]string{"dashctl", "--api", srv.URL, "details"})
	if err == nil || !strings.Contains(err.Error(), "municipality name") {
		t.Errorf("missing name: err = %v", err)
	}

	err = quietApp().Run([]string{"dashctl", "--api", srv.URL, "details", "Alpha"})
	if err == nil || err.Error() != "login required" {
		t.Errorf("unauthorised: err = %v", err)
	}
}

func TestScopeFlags(t *testing.T) {
	tests := []struct {
		args []string
		want domain.Scope
	}{
		{nil, domain.AllData()},
		{[]string{"-s", "north"}, domain.BySector("north")},
		{[]string{"-m", "Alpha", "-s", "north"}, domain.ByMunicipality("Alpha")},
	}
	for _, tt := range tests {
		var got domain.Scope
		app := &cli.App{
			Flags:  scopeFlags(),
			Action: func(c *cli.Context) error { got = scopeOf(c); return nil },
		}
		if err := app.Run(append([]string{"dashctl"}, tt.args...)); err != nil {
			t.Fatalf("%v: %v", tt.args, err)
		}
		if got != tt.want {
			t.Errorf("%v: scope = %v, want %v", tt.args, got, tt.want)
		}
	}
}
