package extractor

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bymarket/adradar/config"
	apperrors "bymarket/adradar/pkg/errors"
)

func onlinerPage(state string) string {
	if state == "" {
		return `<html><body><h1>Барахолка</h1></body></html>`
	}
	return fmt.Sprintf(
		`<html><body><div id="app"></div><script id="__INITIAL_STATE__" type="application/json">%s</script></body></html>`,
		state)
}

func onlinerServer(t *testing.T, state string) *httptest.Server {
	t.Helper()
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		w.Write([]byte(onlinerPage(state)))
	}))
	t.Cleanup(server.Close)
	return server
}

func TestOnlinerExtractFromEmbeddedState(t *testing.T) {
	state := `{"search":{"ads":[
		{"id":24661318,"title":"MacBook Air M2","url":"/viewtopic.php?t=24661318",
		 "price":{"amount":"2400.00","currency":"BYN"},
		 "images":[{"original":"https://content.onliner.by/x.jpg"}],
		 "location":{"city":"Минск","address":"ул. Немига 5"},
		 "created_at":"2026-08-27T09:30:00Z"},
		{"id":24661319,"title":"Чехол","url":"",
		 "price":{"amount":"","currency":""},
		 "location":{"city":"Гродно","address":""}}
	]}}`
	server := onlinerServer(t, state)

	ext := NewOnlinerExtractor(config.Config{OnlinerURL: server.URL}, nil)
	ads, err := ext.Extract(context.Background(), server.URL+"/search?query=macbook")
	require.NoError(t, err)
	require.Len(t, ads, 2)

	first := ads[0]
	assert.Equal(t, "24661318", first.ExternalID)
	assert.Equal(t, "MacBook Air M2", first.Title)
	assert.Equal(t, "2400.00 BYN", first.Price)
	assert.Equal(t, server.URL+"/viewtopic.php?t=24661318", first.Link)
	assert.Equal(t, "https://content.onliner.by/x.jpg", first.ImageURL)
	assert.Equal(t, "Минск", first.Location)
	assert.Equal(t, "ул. Немига 5", first.Address)
	require.NotNil(t, first.PublishedAt)

	second := ads[1]
	assert.Equal(t, PriceNotSpecified, second.Price)
	assert.Empty(t, second.Address)
	assert.Nil(t, second.PublishedAt)
	// A missing URL falls back to the canonical topic link
	assert.Equal(t, server.URL+"/viewtopic.php?t=24661319", second.Link)
}

func TestOnlinerMissingStateIsZeroResults(t *testing.T) {
	// A site redesign that removes the data island must degrade to zero
	// results, not fail the cycle.
	server := onlinerServer(t, "")

	ext := NewOnlinerExtractor(config.Config{OnlinerURL: server.URL}, nil)
	ads, err := ext.Extract(context.Background(), server.URL+"/search?query=macbook")
	assert.NoError(t, err)
	assert.Empty(t, ads)
}

func TestOnlinerNullAdsIsZeroResults(t *testing.T) {
	server := onlinerServer(t, `{"search":{"ads":null}}`)

	ext := NewOnlinerExtractor(config.Config{OnlinerURL: server.URL}, nil)
	ads, err := ext.Extract(context.Background(), server.URL+"/search")
	assert.NoError(t, err)
	assert.Empty(t, ads)
}

func TestOnlinerAdsNotAListIsMalformed(t *testing.T) {
	server := onlinerServer(t, `{"search":{"ads":{"count":5}}}`)

	ext := NewOnlinerExtractor(config.Config{OnlinerURL: server.URL}, nil)
	_, err := ext.Extract(context.Background(), server.URL+"/search")
	require.Error(t, err)
	assert.True(t, apperrors.IsMalformed(err))
}

func TestOnlinerBrokenStateIsMalformed(t *testing.T) {
	server := onlinerServer(t, `{"search": not json`)

	ext := NewOnlinerExtractor(config.Config{OnlinerURL: server.URL}, nil)
	_, err := ext.Extract(context.Background(), server.URL+"/search")
	require.Error(t, err)
	assert.True(t, apperrors.IsMalformed(err))
}

func TestOnlinerValidateURL(t *testing.T) {
	ext := NewOnlinerExtractor(config.Config{OnlinerURL: "https://baraholka.onliner.by"}, nil)

	assert.True(t, ext.ValidateURL("https://baraholka.onliner.by/search?query=iphone"))
	assert.True(t, ext.ValidateURL("https://baraholka.onliner.by/kupi/noutbuki"))
	assert.False(t, ext.ValidateURL("https://baraholka.onliner.by/viewtopic.php?t=24661318"))
	assert.False(t, ext.ValidateURL("https://www.kufar.by/l/minsk"))
}
