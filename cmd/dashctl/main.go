// Command dashctl queries the reporting API from the terminal with the same
// loaders and delta classification the dashboard uses.
package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/joho/godotenv"
	"github.com/urfave/cli/v2"

	"github.com/csg33k/visits-dashboard/internal/adapters/plotchart"
	"github.com/csg33k/visits-dashboard/internal/adapters/reportapi"
	"github.com/csg33k/visits-dashboard/internal/adapters/xlsx"
	"github.com/csg33k/visits-dashboard/internal/auth"
	"github.com/csg33k/visits-dashboard/internal/config"
	"github.com/csg33k/visits-dashboard/internal/dashboard"
	"github.com/csg33k/visits-dashboard/internal/domain"
	"github.com/csg33k/visits-dashboard/internal/table"
)

func main() {
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		slog.Warn("error loading .env file", "err", err)
	}
	if err := newApp().Run(os.Args); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func scopeFlags() []cli.Flag {
	return []cli.Flag{
		&cli.StringFlag{Name: "sector", Aliases: []string{"s"}, Usage: "restrict to a sector key"},
		&cli.StringFlag{Name: "municipality", Aliases: []string{"m"}, Usage: "restrict to a municipality (wins over --sector)"},
	}
}

func newApp() *cli.App {
	return &cli.App{
		Name:  "dashctl",
		Usage: "query the licence visits reporting API",
		Flags: []cli.Flag{
			&cli.StringFlag{Name: "api", Value: "http://localhost:8000", EnvVars: []string{"API_BASE_URL"}, Usage: "reporting API base URL"},
			&cli.StringFlag{Name: "token", EnvVars: []string{"DASH_TOKEN"}, Usage: "access token sent as Authorization"},
			&cli.DurationFlag{Name: "timeout", Value: 15 * time.Second, Usage: "per-request timeout"},
			&cli.BoolFlag{Name: "verbose", Aliases: []string{"v"}, Usage: "log requests to stderr"},
		},
		Commands: []*cli.Command{
			{
				Name:   "sectors",
				Usage:  "list sectors and their municipalities",
				Action: sectorsAction,
			},
			{
				Name:   "totals",
				Usage:  "print the summary cards for a scope",
				Flags:  scopeFlags(),
				Action: totalsAction,
			},
			{
				Name:  "chart",
				Usage: "render the comparison chart for a scope",
				Flags: append([]cli.Flag{
					&cli.StringFlag{Name: "svg", Value: "chart.svg", Usage: "output file"},
				}, scopeFlags()...),
				Action: chartAction,
			},
			{
				Name:      "details",
				Usage:     "print or export the detail tables of a municipality",
				ArgsUsage: "<municipality>",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "search", Aliases: []string{"q"}, Usage: "keep only rows containing this text"},
					&cli.StringFlag{Name: "xlsx", Usage: "write the tables to this workbook instead of printing"},
				},
				Action: detailsAction,
			},
		},
	}
}

type env struct {
	ctx    context.Context
	api    *reportapi.Client
	loader *dashboard.Loader
	log    *slog.Logger
}

func setup(c *cli.Context) env {
	level := slog.LevelWarn
	if c.Bool("verbose") {
		level = slog.LevelDebug
	}
	log := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	ctx := c.Context
	if tok := c.String("token"); tok != "" {
		ctx = auth.WithHeader(ctx, auth.TokenHeader(tok))
	}
	api := reportapi.New(c.String("api"), c.Duration("timeout"), log)
	def := config.DefaultSite().Columns
	loader := dashboard.NewLoader(api, plotchart.NewFactory(), dashboard.Columns{Summary: def.Summary, Raw: def.Raw}, log)
	return env{ctx: ctx, api: api, loader: loader, log: log}
}

// scopeOf resolves the scope flags the way the default dashboard page
// resolves its selects.
func scopeOf(c *cli.Context) domain.Scope {
	return dashboard.ResolveScope(domain.Page{ID: domain.DefaultPageID}, domain.FilterState{
		Sector:       c.String("sector"),
		Municipality: c.String("municipality"),
	})
}

// failed turns a load outcome into the command's error.
func failed(o dashboard.Outcome) error {
	if o.Err == nil {
		return nil
	}
	return cli.Exit(o.Status, 2)
}

func sectorsAction(c *cli.Context) error {
	e := setup(c)
	meta, err := e.api.Sectors(e.ctx)
	if err != nil {
		return cli.Exit(dashboard.StatusMessage(err), 2)
	}
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "KEY\tLABEL\tMUNICIPALITIES")
	for _, k := range meta.Keys() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", k, meta.Label(k), strings.Join(meta[k].Municipalities, ", "))
	}
	return tw.Flush()
}

func totalsAction(c *cli.Context) error {
	e := setup(c)
	scope := scopeOf(c)
	if err := failed(e.loader.LoadTotals(e.ctx, scope)); err != nil {
		return err
	}
	fmt.Printf("scope: %s\n", scope)
	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, card := range e.loader.Cards() {
		fmt.Fprintf(tw, "%s\t%s\t%s\n", card.Key, humanize.Comma(int64(card.Value)), card.Delta.Text)
	}
	return tw.Flush()
}

func chartAction(c *cli.Context) error {
	e := setup(c)
	defer e.loader.Close()
	if err := failed(e.loader.LoadChart(e.ctx, scopeOf(c))); err != nil {
		return err
	}
	svg, _, err := e.loader.ChartSVG()
	if err != nil {
		return err
	}
	out := c.String("svg")
	if err := os.WriteFile(out, svg, 0o644); err != nil {
		return err
	}
	fmt.Printf("wrote %s (%s)\n", out, humanize.Bytes(uint64(len(svg))))
	return nil
}

func detailsAction(c *cli.Context) error {
	name := c.Args().First()
	if name == "" {
		return cli.Exit("details needs a municipality name", 1)
	}
	e := setup(c)
	if err := failed(e.loader.LoadDetails(e.ctx, domain.ByMunicipality(name))); err != nil {
		return err
	}
	if q := c.String("search"); q != "" {
		e.loader.Search(q)
	}
	summary, raw := e.loader.Tables()

	if out := c.String("xlsx"); out != "" {
		f, err := os.Create(out)
		if err != nil {
			return err
		}
		if err := xlsx.Export(f, summary, raw); err != nil {
			f.Close()
			return err
		}
		if err := f.Close(); err != nil {
			return err
		}
		fmt.Printf("wrote %s\n", out)
		return nil
	}

	tw := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	for _, t := range []*table.Table{summary, raw} {
		fmt.Fprintf(tw, "== %s ==\n", t.Title)
		if t.Empty() {
			fmt.Fprintln(tw, table.NoDataText)
			continue
		}
		fmt.Fprintln(tw, strings.Join(t.Columns, "\t"))
		for _, cells := range t.Visible() {
			fmt.Fprintln(tw, strings.Join(cells, "\t"))
		}
	}
	return tw.Flush()
}
