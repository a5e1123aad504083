// Package trail loads the recorded trail Track from a file or URL.
package trail

import (
	"context"
	"fmt"

	"github.com/dpup/trailplanner/server/internal/clients/source"
	"github.com/dpup/trailplanner/server/internal/lib/geo"
)

// Client fetches and parses the configured track document
type Client struct {
	fetcher *source.Fetcher
	source  string
	format  Format
}

// NewClient creates a track client. An empty format is detected on every fetch.
func NewClient(fetcher *source.Fetcher, src string, format Format) *Client {
	return &Client{fetcher: fetcher, source: src, format: format}
}

// Source returns the configured location
func (c *Client) Source() string {
	return c.source
}

// FetchTrack downloads and parses the track
func (c *Client) FetchTrack(ctx context.Context) (*geo.Track, error) {
	data, err := c.fetcher.Fetch(ctx, c.source)
	if err != nil {
		return nil, err
	}

	format := c.format
	if format == "" {
		format = DetectFormat(c.source, data)
	}

	track, err := Parse(data, format)
	if err != nil {
		return nil, fmt.Errorf("failed to parse track %s as %s: %w", c.source, format, err)
	}
	return track, nil
}
