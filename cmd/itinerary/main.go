// Command itinerary plans a trip offline from a track file and a catalog and
// prints it as text, KML or GeoJSON.
//
//	itinerary -track tmb.gpx -catalog huts.json -stops a,b,c -out kml > tmb.kml
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	catalogclient "github.com/dpup/trailplanner/server/internal/clients/catalog"
	"github.com/dpup/trailplanner/server/internal/clients/source"
	"github.com/dpup/trailplanner/server/internal/clients/trail"
	"github.com/dpup/trailplanner/server/internal/lib/catalog"
	"github.com/dpup/trailplanner/server/internal/lib/geo"
	"github.com/dpup/trailplanner/server/internal/lib/itinerary"
	"github.com/dpup/trailplanner/server/internal/lib/routing"
	"github.com/dpup/trailplanner/server/internal/lib/stages"
	"github.com/dpup/trailplanner/server/internal/logging"
)

type options struct {
	track       string
	trackFormat string
	catalog     string
	stops       string
	out         string
	name        string
	timeout     time.Duration
}

func main() {
	var opts options
	flag.StringVar(&opts.track, "track", "", "track file or URL (GeoJSON, GPX or encoded polyline)")
	flag.StringVar(&opts.trackFormat, "format", "", "track format: geojson, gpx or polyline (detected when empty)")
	flag.StringVar(&opts.catalog, "catalog", "", "accommodation catalog file or URL")
	flag.StringVar(&opts.stops, "stops", "", "comma separated accommodation ids in walking order")
	flag.StringVar(&opts.out, "out", "text", "output: text, kml, geojson or stages")
	flag.StringVar(&opts.name, "name", "", "itinerary name")
	flag.DurationVar(&opts.timeout, "timeout", time.Minute, "overall timeout for fetching sources")
	logLevel := flag.String("log-level", "warn", "log level")
	flag.Parse()

	logger, err := logging.New(*logLevel, false)
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(2)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := context.WithTimeout(logging.With(context.Background(), logger), opts.timeout)
	defer cancel()

	if err := run(ctx, opts, os.Stdout); err != nil {
		fmt.Fprintf(os.Stderr, "itinerary: %v\n", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, opts options, w io.Writer) error {
	if opts.catalog == "" {
		return fmt.Errorf("-catalog is required")
	}

	fetcher := source.NewFetcher(0)
	cat, err := catalogclient.NewClient(fetcher, opts.catalog).FetchCatalog(ctx)
	if err != nil {
		return err
	}

	var track *geo.Track
	if opts.track != "" {
		format, err := trail.ParseFormat(opts.trackFormat)
		if err != nil {
			return err
		}
		track, err = trail.NewClient(fetcher, opts.track, format).FetchTrack(ctx)
		if err != nil {
			return err
		}
	} else {
		logging.Warnw(ctx, "No track given, every leg is a straight-line estimate")
	}

	accs := cat.All()
	if track.Validate() == nil {
		accs, err = routing.NewMatcher().FillAccessibility(ctx, track, accs)
		if err != nil {
			return err
		}
		if cat, err = catalog.New(accs); err != nil {
			return err
		}
	}

	if strings.EqualFold(opts.out, "stages") {
		return writeStages(w, stages.GroupByStage(cat.All()))
	}

	format, err := itinerary.ParseFormat(opts.out)
	if err != nil {
		return err
	}

	var itOpts []itinerary.Option
	if opts.name != "" {
		itOpts = append(itOpts, itinerary.WithName(opts.name))
	}
	it := itinerary.New(track, itOpts...)
	for _, id := range splitIDs(opts.stops) {
		acc, ok := cat.Get(id)
		if !ok {
			return fmt.Errorf("accommodation %q is not in the catalog", id)
		}
		it.Append(acc)
	}

	return itinerary.Write(w, it, format)
}

func splitIDs(s string) []string {
	var ids []string
	for _, part := range strings.Split(s, ",") {
		if id := strings.TrimSpace(part); id != "" {
			ids = append(ids, id)
		}
	}
	return ids
}

func writeStages(w io.Writer, groups []stages.StageGroup) error {
	if len(groups) == 0 {
		_, err := fmt.Fprintln(w, "No stages in catalog.")
		return err
	}
	for _, g := range groups {
		if _, err := fmt.Fprintf(w, "Stage %d: %s (%s to %s)\n", g.StageNumber, g.StageName, g.StageStart, g.StageEnd); err != nil {
			return err
		}
		for _, acc := range g.Accommodations {
			if _, err := fmt.Fprintf(w, "  %-12s %s [%s]\n", acc.ID, acc.Name, acc.Accessibility); err != nil {
				return err
			}
		}
	}
	return nil
}
