package extractor

import (
	"context"
	"encoding/json"
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"sync"
	"time"

	"bymarket/adradar/config"
	"bymarket/adradar/helpers"
	apperrors "bymarket/adradar/pkg/errors"
	"bymarket/adradar/services/cache"
)

// kufarCategories maps search-URL path tokens to the backend category
// codes the API accepts.
var kufarCategories = map[string]string{
	"telefony-i-planshety":  "17000",
	"noutbuki-i-kompyutery": "16000",
	"bytovaya-tehnika":      "12000",
	"elektronika":           "15000",
	"mebel":                 "11000",
	"odezhda-i-obuv":        "8000",
	"detskiy-mir":           "9000",
	"hobbi-i-otdyh":         "4000",
	"zhivotnye":             "3000",
	"avtozapchasti":         "2010",
	"stroitelstvo-i-remont": "10000",
}

// kufarCurrencies is the fixed priority order for the minor-unit price
// fields the API reports.
var kufarCurrencies = []struct {
	field    string
	currency string
}{
	{"price_byn", "BYN"},
	{"price_usd", "USD"},
	{"price_eur", "EUR"},
}

// kufarFacets are the search facets parsed out of a tracked query URL.
type kufarFacets struct {
	Category string
	RegionID int // 0 means unresolved: let the upstream search unfiltered
	City     *CityEntry
	Query    string
	PriceMin string
	PriceMax string
}

type kufarAd struct {
	AdID         int64            `json:"ad_id"`
	Subject      string           `json:"subject"`
	BodyShort    string           `json:"body_short"`
	AdLink       string           `json:"ad_link"`
	ListTime     string           `json:"list_time"`
	PriceBYN     string           `json:"price_byn"`
	PriceUSD     string           `json:"price_usd"`
	PriceEUR     string           `json:"price_eur"`
	Images       []kufarImage     `json:"images"`
	AdParameters []kufarParameter `json:"ad_parameters"`
}

type kufarImage struct {
	ImageURL string `json:"image_url"`
	Path     string `json:"path"`
}

type kufarParameter struct {
	P  string `json:"p"`
	Vl string `json:"vl"`
}

// kufarResponse keeps the ad list raw so an absent field can be told
// apart from a structurally wrong one.
type kufarResponse struct {
	Ads json.RawMessage `json:"ads"`
}

// KufarExtractor extracts listings from the Kufar search API. Kufar
// exposes a paginated result feed and a separate promoted feed; both are
// queried concurrently and merged by ad id.
type KufarExtractor struct {
	baseExtractor
	apiURL   string
	imageCDN string
	regions  *RegionTable
}

// NewKufarExtractor creates a Kufar extractor.
func NewKufarExtractor(cfg config.Config, cacheSvc cache.CacheService, regions *RegionTable) *KufarExtractor {
	return &KufarExtractor{
		baseExtractor: newBaseExtractor(PlatformKufar, cacheSvc, 300*time.Second),
		apiURL:        strings.TrimRight(cfg.KufarAPIURL, "/"),
		imageCDN:      strings.TrimRight(cfg.KufarImageCDN, "/"),
		regions:       regions,
	}
}

// ValidateURL checks that the URL is a Kufar search page.
func (c *KufarExtractor) ValidateURL(rawURL string) bool {
	platform, ok := DetectPlatform(rawURL)
	return ok && platform == PlatformKufar && ValidateSearchShape(rawURL, PlatformKufar)
}

// Extract fetches both result feeds for the query and returns merged,
// normalized, locality-filtered records.
func (c *KufarExtractor) Extract(ctx context.Context, rawURL string) ([]NormalizedAd, error) {
	facets, err := c.parseFacets(rawURL)
	if err != nil {
		return nil, err
	}

	params := c.apiParams(facets)

	var (
		wg        sync.WaitGroup
		paginated []kufarAd
		promoted  []kufarAd
		pagErr    error
		promErr   error
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		paginated, pagErr = c.fetchFeed(ctx, "rendered-paginated", params)
	}()
	go func() {
		defer wg.Done()
		promoted, promErr = c.fetchFeed(ctx, "rendered-promoted", params)
	}()
	wg.Wait()

	if pagErr != nil {
		return nil, pagErr
	}
	if promErr != nil {
		return nil, promErr
	}

	// A promoted item may also appear in the main page; dedupe by the
	// upstream's own id before normalization.
	seen := make(map[int64]bool)
	merged := make([]kufarAd, 0, len(paginated)+len(promoted))
	for _, ad := range append(paginated, promoted...) {
		if ad.AdID == 0 || seen[ad.AdID] {
			continue
		}
		seen[ad.AdID] = true
		merged = append(merged, ad)
	}

	ads := make([]NormalizedAd, 0, len(merged))
	for _, raw := range merged {
		ad := c.normalize(raw)

		// The region facet only narrows to province granularity; when the
		// query asked for one specific city, filter the merged set by the
		// listing's reported locality under the city's known spellings.
		if facets.City != nil && !facets.City.FullRegion && !facets.City.MatchesCity(ad.Location) {
			continue
		}
		ads = append(ads, ad)
	}

	return ads, nil
}

// parseFacets turns a tracked query URL into API facets through the
// region/category lookup tables.
func (c *KufarExtractor) parseFacets(rawURL string) (*kufarFacets, error) {
	u, err := url.Parse(rawURL)
	if err != nil {
		return nil, apperrors.NewValidation(string(PlatformKufar), fmt.Sprintf("bad query URL: %v", err))
	}

	facets := &kufarFacets{}

	// Path shape: /l/<category>/<locality>... Unknown tokens are locality
	// candidates.
	var localityTokens []string
	for _, token := range strings.Split(strings.Trim(u.EscapedPath(), "/"), "/") {
		if token == "" || token == "l" {
			continue
		}
		if code, ok := kufarCategories[strings.ToLower(token)]; ok && facets.Category == "" {
			facets.Category = code
			continue
		}
		localityTokens = append(localityTokens, token)
	}

	q := u.Query()
	facets.Query = q.Get("query")
	if prc := q.Get("prc"); strings.HasPrefix(prc, "r:") {
		bounds := strings.TrimPrefix(prc, "r:")
		if min, err := helpers.GetSplitPart(bounds, ",", 0); err == nil {
			facets.PriceMin = min
		}
		if max, err := helpers.GetSplitPart(bounds, ",", 1); err == nil {
			facets.PriceMax = max
		}
	}

	// Region resolution precedence: an explicit unambiguous rgn hint in
	// the URL wins; otherwise known region/city tokens from the path;
	// otherwise the facet is omitted and the search runs unfiltered.
	if rgn := q.Get("rgn"); rgn != "" {
		if id, err := strconv.Atoi(rgn); err == nil {
			if _, ok := c.regions.RegionName(id); ok {
				facets.RegionID = id
			}
		}
	}
	for _, token := range localityTokens {
		if city, ok := c.regions.CityByToken(token); ok {
			facets.City = city
			if facets.RegionID == 0 {
				facets.RegionID = city.Region
			}
			continue
		}
		if facets.RegionID == 0 {
			if id, ok := c.regions.RegionByToken(token); ok {
				facets.RegionID = id
			}
		}
	}

	return facets, nil
}

// apiParams builds the query string shared by both feeds. Only facets
// verified to be accepted by the search surface are forwarded: the cnd
// (condition) facet silently returns zero matches when combined with a
// region facet, so it is never sent.
func (c *KufarExtractor) apiParams(facets *kufarFacets) url.Values {
	params := url.Values{}
	params.Set("size", "43")
	params.Set("lang", "ru")
	if facets.Category != "" {
		params.Set("cat", facets.Category)
	}
	if facets.RegionID != 0 {
		params.Set("rgn", strconv.Itoa(facets.RegionID))
	}
	if facets.Query != "" {
		params.Set("query", facets.Query)
	}
	if facets.PriceMin != "" || facets.PriceMax != "" {
		params.Set("prc", fmt.Sprintf("r:%s,%s", facets.PriceMin, facets.PriceMax))
	}
	return params
}

// fetchFeed fetches one API feed and decodes its ad list. An absent or
// null list is zero results; a list field that is not a list is a
// malformed response.
func (c *KufarExtractor) fetchFeed(ctx context.Context, feed string, params url.Values) ([]kufarAd, error) {
	body, err := c.fetch(ctx, c.apiURL+"/"+feed+"?"+params.Encode())
	if err != nil {
		return nil, err
	}

	var resp kufarResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, apperrors.NewMalformed(string(PlatformKufar), feed+" response is not an object", err)
	}
	if len(resp.Ads) == 0 || string(resp.Ads) == "null" {
		return nil, nil
	}

	var ads []kufarAd
	if err := json.Unmarshal(resp.Ads, &ads); err != nil {
		return nil, apperrors.NewMalformed(string(PlatformKufar), feed+" ads field is not a list", err)
	}
	return ads, nil
}

// normalize maps one raw API item to the site-agnostic record shape.
func (c *KufarExtractor) normalize(raw kufarAd) NormalizedAd {
	ad := NormalizedAd{
		ExternalID:  strconv.FormatInt(raw.AdID, 10),
		Title:       strings.TrimSpace(raw.Subject),
		Description: strings.TrimSpace(raw.BodyShort),
		Price:       c.formatPrice(raw),
		Link:        raw.AdLink,
	}
	if ad.Link == "" {
		ad.Link = "https://www.kufar.by/item/" + ad.ExternalID
	}

	// Prefer a direct image URL; otherwise synthesize one from the CDN
	// base and the relative path.
	for _, img := range raw.Images {
		if img.ImageURL != "" {
			ad.ImageURL = img.ImageURL
			break
		}
		if img.Path != "" {
			ad.ImageURL = c.imageCDN + "/" + strings.TrimLeft(img.Path, "/")
			break
		}
	}

	// The upstream marks coarse locality (area) and precise address as
	// distinct parameters; an address is never invented from a locality.
	for _, p := range raw.AdParameters {
		switch p.P {
		case "area":
			ad.Location = strings.TrimSpace(p.Vl)
		case "address":
			ad.Address = strings.TrimSpace(p.Vl)
		}
	}

	if raw.ListTime != "" {
		if ts, err := time.Parse(time.RFC3339, raw.ListTime); err == nil {
			ad.PublishedAt = &ts
		}
	}

	return ad
}

// formatPrice renders the first populated minor-unit currency field in
// the fixed BYN, USD, EUR priority order.
func (c *KufarExtractor) formatPrice(raw kufarAd) string {
	fields := map[string]string{
		"price_byn": raw.PriceBYN,
		"price_usd": raw.PriceUSD,
		"price_eur": raw.PriceEUR,
	}
	for _, cur := range kufarCurrencies {
		value := fields[cur.field]
		if value == "" || value == "0" {
			continue
		}
		minor, err := strconv.ParseInt(value, 10, 64)
		if err != nil {
			continue
		}
		return fmt.Sprintf("%d.%02d %s", minor/100, minor%100, cur.currency)
	}
	return PriceNotSpecified
}
