package trail

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"path"
	"strings"

	"github.com/tkrajina/gpxgo/gpx"

	"github.com/dpup/trailplanner/server/internal/lib/geo"
)

// Format identifies a track document encoding
type Format string

const (
	FormatGeoJSON  Format = "geojson"
	FormatGPX      Format = "gpx"
	FormatPolyline Format = "polyline"
)

// ParseFormat validates a configured format name. Empty means detect.
func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case "", FormatGeoJSON, FormatGPX, FormatPolyline:
		return f, nil
	}
	return "", fmt.Errorf("unsupported track format %q", s)
}

// DetectFormat picks a format from the source's extension, then from the content
func DetectFormat(source string, data []byte) Format {
	ext := strings.ToLower(path.Ext(strings.SplitN(source, "?", 2)[0]))
	switch ext {
	case ".gpx":
		return FormatGPX
	case ".geojson", ".json":
		return FormatGeoJSON
	case ".polyline", ".txt":
		return FormatPolyline
	}

	trimmed := bytes.TrimSpace(data)
	switch {
	case bytes.HasPrefix(trimmed, []byte("<")):
		return FormatGPX
	case bytes.HasPrefix(trimmed, []byte("{")), bytes.HasPrefix(trimmed, []byte("[")):
		return FormatGeoJSON
	}
	return FormatPolyline
}

// Parse decodes a track document
func Parse(data []byte, format Format) (*geo.Track, error) {
	switch format {
	case FormatGeoJSON:
		return ParseGeoJSON(data)
	case FormatGPX:
		return ParseGPX(data)
	case FormatPolyline:
		return ParsePolyline(data)
	}
	return nil, fmt.Errorf("unsupported track format %q", format)
}

// geojsonObject covers the members used from Feature, FeatureCollection and bare
// geometries. Coordinates stay raw because their nesting depends on the type.
type geojsonObject struct {
	Type        string          `json:"type"`
	Features    []geojsonObject `json:"features"`
	Geometry    *geojsonObject  `json:"geometry"`
	Geometries  []geojsonObject `json:"geometries"`
	Coordinates json.RawMessage `json:"coordinates"`
}

// ParseGeoJSON reads LineString and MultiLineString geometries, keeping the third
// coordinate as elevation. Multiple lines are joined in document order.
func ParseGeoJSON(data []byte) (*geo.Track, error) {
	var obj geojsonObject
	if err := json.Unmarshal(data, &obj); err != nil {
		return nil, fmt.Errorf("failed to parse GeoJSON: %w", err)
	}

	var coords [][]float64
	if err := collectLines(obj, &coords); err != nil {
		return nil, err
	}
	if len(coords) == 0 {
		return nil, errors.New("GeoJSON contains no LineString geometry")
	}
	return geo.NewTrackFromCoordinates(coords)
}

func collectLines(obj geojsonObject, out *[][]float64) error {
	switch obj.Type {
	case "FeatureCollection":
		for _, f := range obj.Features {
			if err := collectLines(f, out); err != nil {
				return err
			}
		}
	case "Feature":
		if obj.Geometry != nil {
			return collectLines(*obj.Geometry, out)
		}
	case "GeometryCollection":
		for _, g := range obj.Geometries {
			if err := collectLines(g, out); err != nil {
				return err
			}
		}
	case "LineString":
		var line [][]float64
		if err := json.Unmarshal(obj.Coordinates, &line); err != nil {
			return fmt.Errorf("invalid LineString coordinates: %w", err)
		}
		*out = appendLine(*out, line)
	case "MultiLineString":
		var lines [][][]float64
		if err := json.Unmarshal(obj.Coordinates, &lines); err != nil {
			return fmt.Errorf("invalid MultiLineString coordinates: %w", err)
		}
		for _, line := range lines {
			*out = appendLine(*out, line)
		}
	case "":
		return errors.New("GeoJSON object has no type")
	}
	return nil
}

// appendLine joins a line onto the track, dropping a first vertex that repeats
// the previous line's last vertex.
func appendLine(track [][]float64, line [][]float64) [][]float64 {
	if len(track) > 0 && len(line) > 0 && sameCoord(track[len(track)-1], line[0]) {
		line = line[1:]
	}
	return append(track, line...)
}

func sameCoord(a, b []float64) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}

// ParseGPX reads every track segment in order, falling back to routes when the
// file has no tracks. Points without elevation get 0.
func ParseGPX(data []byte) (*geo.Track, error) {
	doc, err := gpx.ParseBytes(data)
	if err != nil {
		return nil, fmt.Errorf("failed to parse GPX: %w", err)
	}

	var points []geo.TrackPoint
	for _, track := range doc.Tracks {
		for _, segment := range track.Segments {
			for i := range segment.Points {
				points = append(points, gpxPoint(&segment.Points[i]))
			}
		}
	}
	if len(points) == 0 {
		for _, route := range doc.Routes {
			for i := range route.Points {
				points = append(points, gpxPoint(&route.Points[i]))
			}
		}
	}
	if len(points) == 0 {
		return nil, errors.New("GPX contains no track or route points")
	}
	return geo.NewTrack(points)
}

func gpxPoint(p *gpx.GPXPoint) geo.TrackPoint {
	tp := geo.TrackPoint{
		Latitude:  p.GetLatitude(),
		Longitude: p.GetLongitude(),
	}
	if ele := p.GetElevation(); ele.NotNull() {
		tp.Elevation = ele.Value()
	}
	return tp
}

// ParsePolyline reads a Google encoded polyline. Encoded polylines carry no
// elevation, so every point is at 0 m and legs report no ascent.
func ParsePolyline(data []byte) (*geo.Track, error) {
	points, err := geo.DecodePolyline(strings.TrimSpace(string(data)))
	if err != nil {
		return nil, err
	}
	tps := make([]geo.TrackPoint, len(points))
	for i, p := range points {
		tps[i] = geo.TrackPoint{Latitude: p.Latitude, Longitude: p.Longitude}
	}
	return geo.NewTrack(tps)
}
