// Package catalog loads the accommodation catalog from a file or URL.
package catalog

import (
	"context"
	"fmt"

	"github.com/dpup/trailplanner/server/internal/clients/source"
	"github.com/dpup/trailplanner/server/internal/lib/catalog"
)

// Client fetches and decodes the configured catalog document
type Client struct {
	fetcher *source.Fetcher
	source  string
}

// NewClient creates a catalog client
func NewClient(fetcher *source.Fetcher, src string) *Client {
	return &Client{fetcher: fetcher, source: src}
}

// Source returns the configured location
func (c *Client) Source() string {
	return c.source
}

// FetchCatalog downloads, decodes and validates the catalog
func (c *Client) FetchCatalog(ctx context.Context) (*catalog.Catalog, error) {
	data, err := c.fetcher.Fetch(ctx, c.source)
	if err != nil {
		return nil, err
	}

	items, err := catalog.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("failed to decode catalog %s: %w", c.source, err)
	}

	cat, err := catalog.New(items)
	if err != nil {
		return nil, fmt.Errorf("invalid catalog %s: %w", c.source, err)
	}
	return cat, nil
}
