package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/PuerkitoBio/goquery"

	"bymarket/adradar/helpers"
	"bymarket/adradar/logger"
	apperrors "bymarket/adradar/pkg/errors"
	"bymarket/adradar/services/cache"
)

// baseExtractor provides shared fetch plumbing for all extractors:
// a cooldown gate in front of the retrying fetch helper, and error
// classification into the network/malformed taxonomy.
type baseExtractor struct {
	platform  Platform
	cacheSvc  cache.CacheService
	blockTime time.Duration
	log       *logger.Logger
}

func newBaseExtractor(platform Platform, cacheSvc cache.CacheService, blockTime time.Duration) baseExtractor {
	return baseExtractor{
		platform:  platform,
		cacheSvc:  cacheSvc,
		blockTime: blockTime,
		log:       logger.ForExtractor(string(platform)),
	}
}

// Platform returns the platform this extractor serves.
func (b *baseExtractor) Platform() Platform {
	return b.platform
}

// fetch fetches a URL through the retry helper while honoring the
// per-platform cooldown. When the upstream rate-limits us, the platform
// is blocked for blockTime and later fetches in the window fail fast.
func (b *baseExtractor) fetch(ctx context.Context, url string) ([]byte, error) {
	key := cache.BlockKey(string(b.platform))

	if b.cacheSvc != nil {
		if _, err := b.cacheSvc.Get(key); err == nil {
			return nil, apperrors.NewNetwork(string(b.platform),
				fmt.Sprintf("cooling down for %s after upstream rate limit", b.blockTime), nil)
		}
	}

	body, err := helpers.FetchWithRetry(ctx, url)
	if err != nil {
		if b.cacheSvc != nil && errors.Is(err, helpers.ErrRateLimited) {
			seconds := strconv.Itoa(int(b.blockTime / time.Second))
			b.cacheSvc.Set(key, []byte(seconds), b.blockTime)
			b.log.Warn().Dur("cooldown", b.blockTime).Msg("Upstream rate limited, cooling down")
		}
		return nil, apperrors.NewNetwork(string(b.platform), "fetch failed", err)
	}

	return body, nil
}

// fetchDocument fetches a URL and parses the body as an HTML document.
func (b *baseExtractor) fetchDocument(ctx context.Context, url string) (*goquery.Document, error) {
	body, err := b.fetch(ctx, url)
	if err != nil {
		return nil, err
	}

	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, apperrors.NewMalformed(string(b.platform), "HTML parse failed", err)
	}
	return doc, nil
}
