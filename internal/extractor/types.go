package extractor

import (
	"context"
	"time"
)

// Platform identifies a classified-ad marketplace.
type Platform string

const (
	PlatformKufar   Platform = "kufar"
	PlatformOnliner Platform = "onliner"
	PlatformOlx     Platform = "olx"
)

// PriceNotSpecified is the display price used when an upstream reports
// no price at all.
const PriceNotSpecified = "price not specified"

// NormalizedAd is the site-agnostic record shape produced by every
// extractor. ExternalID is unique per (tracked query, external id) pair,
// not globally: the same listing may appear under two different tracked
// queries belonging to two different subscribers.
type NormalizedAd struct {
	ExternalID  string     `json:"external_id"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Price       string     `json:"price"`
	ImageURL    string     `json:"image_url,omitempty"`
	Link        string     `json:"link"`
	Location    string     `json:"location,omitempty"`
	Address     string     `json:"address,omitempty"`
	PublishedAt *time.Time `json:"published_at,omitempty"`
}

// Extractor is the per-site extraction contract. Implementations are
// stateless per call; all lifecycle state lives in the scheduler.
type Extractor interface {
	// ValidateURL is a pure syntactic check that the URL belongs to this
	// site and looks like a search page, not a single-item permalink.
	ValidateURL(rawURL string) bool

	// Extract fetches the search page behind the URL and transforms it
	// into normalized ad records. Zero results is not an error.
	Extract(ctx context.Context, rawURL string) ([]NormalizedAd, error)

	// Platform returns the platform this extractor serves.
	Platform() Platform
}
