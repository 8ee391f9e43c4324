package extractor

import (
	"context"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bymarket/adradar/config"
	"bymarket/adradar/helpers"
	"bymarket/adradar/services/cache"
)

var olxIDRe = regexp.MustCompile(`-ID([0-9A-Za-z]+)\.html`)

// olxMonths translates the Russian month genitives OLX renders dates
// with into month numbers.
var olxMonths = map[string]time.Month{
	"января":   time.January,
	"февраля":  time.February,
	"марта":    time.March,
	"апреля":   time.April,
	"мая":      time.May,
	"июня":     time.June,
	"июля":     time.July,
	"августа":  time.August,
	"сентября": time.September,
	"октября":  time.October,
	"ноября":   time.November,
	"декабря":  time.December,
}

var olxDateRe = regexp.MustCompile(`(\d{1,2})\s+([а-я]+)\s+(\d{4})`)
var olxTodayRe = regexp.MustCompile(`Сегодня\s+в\s+(\d{1,2}):(\d{2})`)

// OlxExtractor extracts listings from server-rendered OLX search pages
// by walking the listing-card markup.
type OlxExtractor struct {
	baseExtractor
	baseURL string
}

// NewOlxExtractor creates an OLX extractor.
func NewOlxExtractor(cfg config.Config, cacheSvc cache.CacheService) *OlxExtractor {
	return &OlxExtractor{
		baseExtractor: newBaseExtractor(PlatformOlx, cacheSvc, 300*time.Second),
		baseURL:       strings.TrimRight(cfg.OlxURL, "/"),
	}
}

// ValidateURL checks that the URL is an OLX search page.
func (c *OlxExtractor) ValidateURL(rawURL string) bool {
	platform, ok := DetectPlatform(rawURL)
	return ok && platform == PlatformOlx && ValidateSearchShape(rawURL, PlatformOlx)
}

// Extract fetches the search page and walks its listing cards. A page
// without the expected cards yields zero results, not an error.
func (c *OlxExtractor) Extract(ctx context.Context, rawURL string) ([]NormalizedAd, error) {
	doc, err := c.fetchDocument(ctx, rawURL)
	if err != nil {
		return nil, err
	}

	var ads []NormalizedAd
	doc.Find(`div[data-cy="l-card"]`).Each(func(i int, s *goquery.Selection) {
		if ad := c.processCard(s); ad != nil {
			ads = append(ads, *ad)
		}
	})
	return ads, nil
}

// processCard maps a single listing card to the normalized record shape.
// Cards missing a title or link are skipped.
func (c *OlxExtractor) processCard(s *goquery.Selection) *NormalizedAd {
	title := strings.TrimSpace(s.Find("h6").First().Text())
	if title == "" {
		return nil
	}

	link, exists := s.Find("a").First().Attr("href")
	if !exists || link == "" {
		return nil
	}
	if strings.HasPrefix(link, "/") {
		link = c.baseURL + link
	}

	id, _ := s.Attr("id")
	if id == "" {
		if m := olxIDRe.FindStringSubmatch(link); m != nil {
			id = m[1]
		}
	}
	if id == "" {
		return nil
	}

	ad := &NormalizedAd{
		ExternalID: id,
		Title:      title,
		Price:      PriceNotSpecified,
		Link:       link,
	}

	if price := strings.TrimSpace(s.Find(`p[data-testid="ad-price"]`).First().Text()); price != "" {
		ad.Price = price
	}

	if src, exists := s.Find("img").First().Attr("src"); exists {
		ad.ImageURL = src
	}

	// OLX renders "<city>[, <district>] - <date>" in one string. Only the
	// coarse locality is reported; no address is invented from it.
	if locDate := strings.TrimSpace(s.Find(`p[data-testid="location-date"]`).First().Text()); locDate != "" {
		if city, err := helpers.GetSplitPart(locDate, " - ", 0); err == nil {
			ad.Location = strings.TrimSpace(city)
		}
		if date, err := helpers.GetSplitPart(locDate, " - ", 1); err == nil {
			ad.PublishedAt = parseOlxDate(strings.TrimSpace(date), time.Now())
		}
	}

	return ad
}

// parseOlxDate parses the human-readable dates OLX shows on cards:
// "Сегодня в 14:05" or "15 августа 2026 г.". Unparseable dates yield nil
// and the record simply carries no publication timestamp.
func parseOlxDate(text string, now time.Time) *time.Time {
	if m := olxTodayRe.FindStringSubmatch(text); m != nil {
		hour, minute := atoiOr(m[1]), atoiOr(m[2])
		ts := time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location())
		return &ts
	}

	if m := olxDateRe.FindStringSubmatch(text); m != nil {
		month, ok := olxMonths[m[2]]
		if !ok {
			return nil
		}
		ts := time.Date(atoiOr(m[3]), month, atoiOr(m[1]), 0, 0, 0, 0, now.Location())
		return &ts
	}

	return nil
}

func atoiOr(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}
