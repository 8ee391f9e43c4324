package main

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	"bymarket/adradar/config"
	"bymarket/adradar/internal/extractor"
	"bymarket/adradar/internal/storage"
	"bymarket/adradar/services/cache"
	"bymarket/adradar/services/notifier"

	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// A search results page that mimics the OLX listing-card markup
const testSearchHTML = `
<!DOCTYPE html>
<html>
<head><title>Поиск объявлений</title></head>
<body>
	<div data-cy="l-card" id="771001">
		<a href="/obyavlenie/divan-uglovoy-ID771001.html"><h6>Диван угловой</h6></a>
		<p data-testid="ad-price">450 р.</p>
		<img src="https://img.test/771001.jpg" />
		<p data-testid="location-date">Минск, Центральный - 15 августа 2026 г.</p>
	</div>
	<div data-cy="l-card" id="771002">
		<a href="/obyavlenie/kreslo-ofisnoe-ID771002.html"><h6>Кресло офисное</h6></a>
		<p data-testid="ad-price">120 р.</p>
		<img src="https://img.test/771002.jpg" />
		<p data-testid="location-date">Гродно - 16 августа 2026 г.</p>
	</div>
</body>
</html>
`

// MockCacheService implements a simple in-memory cache for testing
type MockCacheService struct {
	cache map[string][]byte
}

var _ cache.CacheService = (*MockCacheService)(nil)

func (m *MockCacheService) Get(key string) ([]byte, error) {
	if val, ok := m.cache[key]; ok {
		return val, nil
	}
	return nil, errors.New("cache miss")
}

func (m *MockCacheService) Set(key string, value []byte, expiration time.Duration) error {
	m.cache[key] = value
	return nil
}

func (m *MockCacheService) Delete(key string) error {
	delete(m.cache, key)
	return nil
}

// TestIntegration exercises the extraction-to-notification flow: a
// search page is extracted through the registry-built extractor and
// the resulting records are published to the Redis stream.
func TestIntegration(t *testing.T) {
	if os.Getenv("CI") != "" {
		t.Skip("Skipping integration test in CI environment")
	}

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		io.WriteString(w, testSearchHTML)
	}))
	defer server.Close()

	ctx := context.Background()

	redisAddr := "localhost:6379"
	redisClient := redis.NewClient(&redis.Options{
		Addr: redisAddr,
		DB:   0,
	})
	defer redisClient.Close()

	if _, err := redisClient.Ping(ctx).Result(); err != nil {
		t.Skip("Redis is not available, skipping integration test")
	}

	stream := "test_adradar_integration"
	redisClient.Del(ctx, stream)
	defer redisClient.Del(ctx, stream)

	cfg := config.LoadConfig()
	cfg.OlxURL = server.URL

	mockCache := &MockCacheService{cache: make(map[string][]byte)}
	registry, err := extractor.NewRegistry(cfg, mockCache)
	require.NoError(t, err)

	// Classification runs against the real host, extraction against the
	// test server
	platform, err := registry.ClassifyQuery("https://www.olx.by/mebel/q-divan/")
	require.NoError(t, err)
	require.Equal(t, extractor.PlatformOlx, platform)

	ext, ok := registry.Lookup(platform)
	require.True(t, ok)

	ads, err := ext.Extract(ctx, server.URL+"/mebel/q-divan/")
	require.NoError(t, err)
	require.Len(t, ads, 2)

	assert.Equal(t, "771001", ads[0].ExternalID)
	assert.Equal(t, "Диван угловой", ads[0].Title)
	assert.Equal(t, "450 р.", ads[0].Price)
	assert.Equal(t, server.URL+"/obyavlenie/divan-uglovoy-ID771001.html", ads[0].Link)
	assert.Equal(t, "Минск, Центральный", ads[0].Location)
	require.NotNil(t, ads[0].PublishedAt)
	assert.Equal(t, time.August, ads[0].PublishedAt.Month())

	nt := notifier.NewRedisNotifier(ctx, redisAddr, 0, stream, 64)
	defer nt.Close()

	for i, ad := range ads {
		persisted := storage.PersistedAd{
			ID:           int64(i + 1),
			QueryID:      1,
			NormalizedAd: ad,
			CreatedAt:    time.Now(),
		}
		require.NoError(t, nt.Notify(500, persisted))
	}

	entries, err := redisClient.XRange(ctx, stream, "-", "+").Result()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	var first storage.PersistedAd
	require.NoError(t, json.Unmarshal([]byte(entries[0].Values["ad"].(string)), &first))
	assert.Equal(t, "500", entries[0].Values["owner_id"])
	assert.Equal(t, "771001", first.ExternalID)
	assert.Equal(t, "Диван угловой", first.Title)
}
