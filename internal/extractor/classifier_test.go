package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestDetectPlatform(t *testing.T) {
	cases := []struct {
		url      string
		platform Platform
		ok       bool
	}{
		{"https://www.kufar.by/l/telefony-i-planshety", PlatformKufar, true},
		{"https://re.kufar.by/l/minsk", PlatformKufar, true},
		{"https://baraholka.onliner.by/search?query=iphone", PlatformOnliner, true},
		{"https://www.onliner.by/kupi/noutbuki", PlatformOnliner, true},
		{"https://www.olx.by/elektronika/q-iphone/", PlatformOlx, true},
		{"https://www.olx.ua/elektronika/", PlatformOlx, true},
		{"https://www.avito.ru/minsk", "", false},
		{"not a url at all ::", "", false},
	}

	for _, tc := range cases {
		platform, ok := DetectPlatform(tc.url)
		assert.Equal(t, tc.ok, ok, tc.url)
		assert.Equal(t, tc.platform, platform, tc.url)
	}
}

func TestValidateSearchShape(t *testing.T) {
	// Search pages pass
	assert.True(t, ValidateSearchShape("https://www.kufar.by/l/telefony-i-planshety/minsk?query=iphone", PlatformKufar))
	assert.True(t, ValidateSearchShape("https://baraholka.onliner.by/search?query=iphone", PlatformOnliner))
	assert.True(t, ValidateSearchShape("https://baraholka.onliner.by/kupi/noutbuki", PlatformOnliner))
	assert.True(t, ValidateSearchShape("https://www.olx.by/elektronika/q-iphone/", PlatformOlx))

	// Single-item permalinks are rejected even on the correct host
	assert.False(t, ValidateSearchShape("https://www.kufar.by/item/1023456789", PlatformKufar))
	assert.False(t, ValidateSearchShape("https://www.kufar.by/vi/minsk/telefony/iphone-13", PlatformKufar))
	assert.False(t, ValidateSearchShape("https://baraholka.onliner.by/viewtopic.php?t=24661318", PlatformOnliner))
	assert.False(t, ValidateSearchShape("https://baraholka.onliner.by/kupi/noutbuki/24661318", PlatformOnliner))
	assert.False(t, ValidateSearchShape("https://www.olx.by/d/obyavlenie/iphone-13-kak-novyy-IDr2Lta.html", PlatformOlx))

	// Bare host is not a search
	assert.False(t, ValidateSearchShape("https://www.olx.by/", PlatformOlx))
	assert.False(t, ValidateSearchShape("https://www.kufar.by/", PlatformKufar))
}
