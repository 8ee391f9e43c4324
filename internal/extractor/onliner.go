package extractor

import (
	"context"
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"bymarket/adradar/config"
	apperrors "bymarket/adradar/pkg/errors"
	"bymarket/adradar/services/cache"
)

// onlinerStateSelector locates the script-embedded JSON state blob the
// server renders into every search page.
const onlinerStateSelector = `script#__INITIAL_STATE__[type="application/json"]`

type onlinerState struct {
	Search struct {
		Ads json.RawMessage `json:"ads"`
	} `json:"search"`
}

type onlinerAd struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
	URL   string `json:"url"`
	Price struct {
		Amount   string `json:"amount"`
		Currency string `json:"currency"`
	} `json:"price"`
	Images []struct {
		Original string `json:"original"`
	} `json:"images"`
	Location struct {
		City    string `json:"city"`
		Address string `json:"address"`
	} `json:"location"`
	Description string `json:"description"`
	CreatedAt   string `json:"created_at"`
}

// OnlinerExtractor extracts listings from the server-rendered Onliner
// flea-market search pages. The results live in a JSON blob embedded in
// the page; a site redesign that removes the expected structure degrades
// to zero results rather than failing the cycle.
type OnlinerExtractor struct {
	baseExtractor
	baseURL string
}

// NewOnlinerExtractor creates an Onliner extractor.
func NewOnlinerExtractor(cfg config.Config, cacheSvc cache.CacheService) *OnlinerExtractor {
	return &OnlinerExtractor{
		baseExtractor: newBaseExtractor(PlatformOnliner, cacheSvc, 300*time.Second),
		baseURL:       strings.TrimRight(cfg.OnlinerURL, "/"),
	}
}

// ValidateURL checks that the URL is an Onliner search page.
func (c *OnlinerExtractor) ValidateURL(rawURL string) bool {
	platform, ok := DetectPlatform(rawURL)
	return ok && platform == PlatformOnliner && ValidateSearchShape(rawURL, PlatformOnliner)
}

// Extract fetches the search page and walks the embedded state blob.
func (c *OnlinerExtractor) Extract(ctx context.Context, rawURL string) ([]NormalizedAd, error) {
	doc, err := c.fetchDocument(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	blob := strings.TrimSpace(doc.Find(onlinerStateSelector).First().Text())
	if blob == "" {
		// No data island on the page: treat as zero results.
		return nil, nil
	}

	var state onlinerState
	if err := json.Unmarshal([]byte(blob), &state); err != nil {
		return nil, apperrors.NewMalformed(string(PlatformOnliner), "embedded state is not valid JSON", err)
	}
	if len(state.Search.Ads) == 0 || string(state.Search.Ads) == "null" {
		return nil, nil
	}

	var rawAds []onlinerAd
	if err := json.Unmarshal(state.Search.Ads, &rawAds); err != nil {
		return nil, apperrors.NewMalformed(string(PlatformOnliner), "embedded ads field is not a list", err)
	}

	ads := make([]NormalizedAd, 0, len(rawAds))
	for _, raw := range rawAds {
		if raw.ID == 0 || raw.Title == "" {
			continue
		}
		ads = append(ads, c.normalize(raw))
	}
	return ads, nil
}

func (c *OnlinerExtractor) normalize(raw onlinerAd) NormalizedAd {
	ad := NormalizedAd{
		ExternalID:  strconv.FormatInt(raw.ID, 10),
		Title:       strings.TrimSpace(raw.Title),
		Description: strings.TrimSpace(raw.Description),
		Price:       PriceNotSpecified,
		Link:        raw.URL,
		Location:    strings.TrimSpace(raw.Location.City),
		Address:     strings.TrimSpace(raw.Location.Address),
	}

	if raw.Price.Amount != "" && raw.Price.Amount != "0" {
		currency := raw.Price.Currency
		if currency == "" {
			currency = "BYN"
		}
		ad.Price = raw.Price.Amount + " " + currency
	}

	if ad.Link == "" {
		ad.Link = c.baseURL + "/viewtopic.php?t=" + ad.ExternalID
	} else if strings.HasPrefix(ad.Link, "/") {
		ad.Link = c.baseURL + ad.Link
	}

	if len(raw.Images) > 0 {
		ad.ImageURL = raw.Images[0].Original
	}

	if raw.CreatedAt != "" {
		if ts, err := time.Parse(time.RFC3339, raw.CreatedAt); err == nil {
			ad.PublishedAt = &ts
		}
	}

	return ad
}
