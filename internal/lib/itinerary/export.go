package itinerary

import (
	"bufio"
	"fmt"
	"io"
	"strings"
)

// Format names an export representation
type Format string

const (
	FormatText    Format = "text"
	FormatKML     Format = "kml"
	FormatGeoJSON Format = "geojson"
)

// ParseFormat maps a user-supplied format name to a Format
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatText, FormatKML, FormatGeoJSON:
		return f, nil
	case "":
		return FormatText, nil
	}
	return "", fmt.Errorf("unsupported export format %q", s)
}

// ContentType returns the MIME type for the format
func (f Format) ContentType() string {
	switch f {
	case FormatKML:
		return "application/vnd.google-earth.kml+xml"
	case FormatGeoJSON:
		return "application/geo+json"
	}
	return "text/plain; charset=utf-8"
}

// Write renders the itinerary in the given format
func Write(w io.Writer, it *Itinerary, f Format) error {
	switch f {
	case FormatKML:
		return WriteKML(w, it)
	case FormatGeoJSON:
		return WriteGeoJSON(w, it)
	case FormatText:
		return WriteText(w, it)
	}
	return fmt.Errorf("unsupported export format %q", f)
}

// Text returns the plain-text report
func Text(it *Itinerary) string {
	var sb strings.Builder
	_ = WriteText(&sb, it)
	return sb.String()
}

// WriteText writes a day-by-day plain-text report followed by a summary
func WriteText(w io.Writer, it *Itinerary) error {
	view := it.Snapshot()
	name, stops, totals := view.Name, view.Stops, view.Totals

	bw := bufio.NewWriter(w)
	fmt.Fprintln(bw, name)
	fmt.Fprintln(bw, strings.Repeat("=", len(name)))
	fmt.Fprintln(bw)

	if len(stops) == 0 {
		fmt.Fprintln(bw, "No stops planned.")
		return bw.Flush()
	}

	for _, stop := range stops {
		acc := stop.Accommodation
		fmt.Fprintf(bw, "Day %d: %s\n", stop.Position, acc.Name)
		if acc.Type != "" {
			fmt.Fprintf(bw, "  Type: %s\n", acc.Type)
		}
		fmt.Fprintf(bw, "  Location: %s\n", acc.Accessibility)
		if acc.Altitude != nil {
			fmt.Fprintf(bw, "  Altitude: %.0f m\n", *acc.Altitude)
		}

		if stop.Leg.Precision == PrecisionStart {
			fmt.Fprintln(bw, "  Start")
		} else {
			fmt.Fprintf(bw, "  Distance: %.1f km\n", stop.Leg.DistanceKm)
			fmt.Fprintf(bw, "  Elevation: +%.0f m / -%.0f m\n", stop.Leg.ElevationGainM, stop.Leg.ElevationLossM)
			fmt.Fprintf(bw, "  Estimated time: %s\n", stop.Leg.Label)
			fmt.Fprintf(bw, "  Precision: %s\n", precisionLabel(stop.Leg.Precision))
		}
		fmt.Fprintln(bw)
	}

	fmt.Fprintln(bw, "Summary")
	fmt.Fprintln(bw, "-------")
	fmt.Fprintf(bw, "Total days: %d\n", totals.Days)
	fmt.Fprintf(bw, "Total distance: %.1f km\n", totals.DistanceKm)
	fmt.Fprintf(bw, "Total elevation gain: %.0f m\n", totals.GainM)
	fmt.Fprintf(bw, "Total elevation loss: %.0f m\n", totals.LossM)
	fmt.Fprintf(bw, "Total walking time: %s\n", totals.Label)

	return bw.Flush()
}

func precisionLabel(p Precision) string {
	if p == PrecisionStraightLine {
		return "straight-line estimate"
	}
	return string(p)
}
