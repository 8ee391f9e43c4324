package extractor

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// Regression pin for the verified region mapping: the backend ids do not
// follow the natural reading order of the names, so every documented
// pair is asserted explicitly.
func TestDefaultRegionTablePinnedCodes(t *testing.T) {
	table := DefaultRegionTable()

	expected := map[int]string{
		1: "Брестская область",
		2: "Гомельская область",
		3: "Гродненская область",
		4: "Могилёвская область",
		5: "Минская область",
		6: "Витебская область",
		7: "Минск",
	}

	for id, name := range expected {
		got, ok := table.RegionName(id)
		require.True(t, ok, "region id %d missing", id)
		assert.Equal(t, name, got, "region id %d", id)
	}
}

func TestMinskCityResolvesToCityCode(t *testing.T) {
	table := DefaultRegionTable()

	// A Minsk-city hint must resolve to the Minsk-city code (7), never
	// the Minsk-region code (5).
	id, ok := table.RegionByToken("minsk")
	require.True(t, ok)
	assert.Equal(t, 7, id)

	id, ok = table.RegionByToken("minskaya-oblast")
	require.True(t, ok)
	assert.Equal(t, 5, id)
}

func TestCityByToken(t *testing.T) {
	table := DefaultRegionTable()

	city, ok := table.CityByToken("baranovichi")
	require.True(t, ok)
	assert.Equal(t, 1, city.Region)
	assert.False(t, city.FullRegion)

	minsk, ok := table.CityByToken("minsk")
	require.True(t, ok)
	assert.True(t, minsk.FullRegion)

	_, ok = table.CityByToken("atlantis")
	assert.False(t, ok)
}

func TestMatchesCitySpellings(t *testing.T) {
	table := DefaultRegionTable()
	city, ok := table.CityByToken("baranovichi")
	require.True(t, ok)

	assert.True(t, city.MatchesCity("Барановичи"))
	assert.True(t, city.MatchesCity("г. Барановичи, центр"))
	assert.True(t, city.MatchesCity("baranovichi"))
	assert.True(t, city.MatchesCity("Баранавічы"))
	assert.False(t, city.MatchesCity("Пинск"))
	assert.False(t, city.MatchesCity(""))
}

func TestLoadRegionTableOverride(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "regions.yaml")
	yaml := `
regions:
  - id: 9
    token: testgrad
    name: Тестоград
cities:
  - token: testgrad
    region: 9
    aliases: ["Тестоград"]
    full_region: true
`
	require.NoError(t, os.WriteFile(path, []byte(yaml), 0o644))

	table, err := LoadRegionTable(path)
	require.NoError(t, err)

	id, ok := table.RegionByToken("testgrad")
	require.True(t, ok)
	assert.Equal(t, 9, id)

	name, ok := table.RegionName(9)
	require.True(t, ok)
	assert.Equal(t, "Тестоград", name)
}

func TestLoadRegionTableErrors(t *testing.T) {
	_, err := LoadRegionTable("/nonexistent/regions.yaml")
	assert.Error(t, err)

	dir := t.TempDir()
	empty := filepath.Join(dir, "empty.yaml")
	os.WriteFile(empty, []byte("cities: []\n"), 0o644)
	_, err = LoadRegionTable(empty)
	assert.Error(t, err)

	// Empty path falls back to the built-in table
	table, err := LoadRegionTable("")
	assert.NoError(t, err)
	assert.NotEmpty(t, table.Regions)
}
