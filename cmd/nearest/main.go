// Command nearest prints the markets nearest to a coordinate.
//
//	nearest --lat -6.2 --lng 106.8 --limit 5
//	nearest --demo --lat -7.7956 --lng 110.3695 --no-ga
//	nearest --address "Pasar Minggu, Jakarta" --route
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"
	"github.com/spf13/pflag"

	"market-finder/internal/config"
	"market-finder/internal/distance"
	"market-finder/internal/finder"
	"market-finder/internal/geocoding"
	"market-finder/internal/logging"
	"market-finder/internal/models"
	"market-finder/internal/store"
)

type options struct {
	dbPath   string
	lat      float64
	lng      float64
	address  string
	limit    int
	noGA     bool
	route    bool
	osrmURL  string
	demo     bool
	seedDemo bool
	verbose  bool
}

func main() {
	if err := run(os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func parseFlags(args []string, cfg *config.Config) (*options, error) {
	opts := &options{}
	fs := pflag.NewFlagSet("nearest", pflag.ContinueOnError)
	fs.StringVar(&opts.dbPath, "db", cfg.Database.Path, "SQLite database path")
	fs.Float64Var(&opts.lat, "lat", 0, "target latitude (required)")
	fs.Float64Var(&opts.lng, "lng", 0, "target longitude (required)")
	fs.StringVarP(&opts.address, "address", "a", "", "resolve the target from an address instead of --lat/--lng")
	fs.IntVarP(&opts.limit, "limit", "n", 5, "number of markets to return")
	fs.BoolVar(&opts.noGA, "no-ga", false, "rank by plain distance only")
	fs.BoolVar(&opts.route, "route", cfg.OSRM.Enabled, "refine distances with OSRM road routes")
	fs.StringVar(&opts.osrmURL, "osrm-url", cfg.OSRM.BaseURL, "OSRM base URL")
	fs.BoolVar(&opts.demo, "demo", false, "search the built-in demo markets instead of the database")
	fs.BoolVar(&opts.seedDemo, "seed-demo", false, "insert the demo markets into an empty database first")
	fs.BoolVarP(&opts.verbose, "verbose", "v", false, "log search details to stderr")

	if err := fs.Parse(args); err != nil {
		return nil, err
	}
	hasCoords := fs.Changed("lat") && fs.Changed("lng")
	if opts.address == "" && !hasCoords {
		return nil, errors.New("--lat and --lng are required unless --address is given")
	}
	if opts.address != "" && (fs.Changed("lat") || fs.Changed("lng")) {
		return nil, errors.New("--address cannot be combined with --lat/--lng")
	}
	return opts, nil
}

func run(args []string, out io.Writer) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	opts, err := parseFlags(args, cfg)
	if err != nil {
		return err
	}

	level := "warn"
	if opts.verbose {
		level = "debug"
	}
	logging.Init(logging.Config{Level: level, Format: "console", Output: os.Stderr})

	ctx := context.Background()
	target := models.Coordinates{Lat: opts.lat, Lng: opts.lng}
	if opts.address != "" {
		geocoder := geocoding.NewNominatimGeocoder(geocoding.Config{
			BaseURL:      cfg.Geocoding.BaseURL,
			CountryCodes: cfg.Geocoding.CountryCodes,
			Timeout:      cfg.Geocoding.Timeout,
		})
		found, err := geocoder.Geocode(ctx, opts.address)
		if err != nil {
			return err
		}
		target = found.Coords
		fmt.Fprintf(out, "Resolved %q to %s\n", opts.address, found.DisplayName)
	}

	src, routes, closeSrc, err := openSource(ctx, opts)
	if err != nil {
		return err
	}
	defer closeSrc()

	cfg.OSRM.Enabled = opts.route
	cfg.OSRM.BaseURL = opts.osrmURL
	f := finder.NewFromConfig(cfg, routes)

	res, err := f.FindNearestFromSource(ctx, src, finder.Query{
		Target:       target,
		Desired:      opts.limit,
		UseOptimizer: !opts.noGA,
	})
	if err != nil {
		return err
	}

	render(out, target, res)
	return nil
}

// openSource returns the candidate source and, when backed by a database,
// the store that persists route distances.
func openSource(ctx context.Context, opts *options) (store.CandidateSource, distance.RouteStore, func(), error) {
	if opts.demo {
		return store.DemoSource(), nil, func() {}, nil
	}

	db, err := store.New(opts.dbPath)
	if err != nil {
		return nil, nil, nil, err
	}
	if opts.seedDemo {
		n, err := db.Count(ctx)
		if err != nil {
			db.Close()
			return nil, nil, nil, err
		}
		if n == 0 {
			if _, err := db.Seed(ctx, store.DemoMarkets()); err != nil {
				db.Close()
				return nil, nil, nil, err
			}
		}
	}
	return db, db, func() { db.Close() }, nil
}

func render(out io.Writer, target models.Coordinates, res *finder.Result) {
	t := table.NewWriter()
	t.SetOutputMirror(out)
	t.SetTitle(fmt.Sprintf("Markets near %.5f, %.5f", target.Lat, target.Lng))
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "Market", "Location", "Category", "Distance", "Source"})

	var total float64
	for i, r := range res.Results {
		name, location, category := fmt.Sprintf("#%d", r.CandidateID), "", ""
		if c := r.Candidate; c != nil {
			name, location, category = c.Name, c.Location, string(c.Category)
		}
		source := "haversine"
		if r.RouteBased {
			source = "route"
		}
		t.AppendRow(table.Row{i + 1, name, location, category, fmt.Sprintf("%.2f km", r.DistanceKm), source})
		total += r.DistanceKm
	}

	t.SetColumnConfigs([]table.ColumnConfig{
		{Number: 1, Align: text.AlignRight},
		{Number: 5, Align: text.AlignRight},
	})
	t.AppendFooter(table.Row{"", "", "", "Total", humanize.CommafWithDigits(total, 2) + " km", ""})
	t.Render()

	fmt.Fprintf(out, "%s of %s markets via %s in %s\n",
		humanize.Comma(int64(len(res.Results))),
		humanize.Comma(int64(res.Candidates)),
		res.Strategy,
		res.Duration.Round(time.Microsecond),
	)
}
