package extractor

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"bymarket/adradar/helpers"
)

// RegionEntry maps a URL path token to Kufar's backend region id.
//
// The ids do not follow the natural reading order of the region names:
// Minsk city is 7 while Minsk region is 5, and Vitebsk sits at 6 between
// them. The pairs below were verified against live search responses and
// must be carried as data, never re-derived from name order.
type RegionEntry struct {
	ID    int    `yaml:"id"`
	Token string `yaml:"token"`
	Name  string `yaml:"name"`
}

// CityEntry maps a URL path token to a city inside a region, together
// with the alternate spellings the upstream uses for it in listing
// locality strings. FullRegion marks cities whose region facet already
// narrows results exactly (Minsk city is its own region), so the
// client-side locality post-filter is unnecessary for them.
type CityEntry struct {
	Token      string   `yaml:"token"`
	Region     int      `yaml:"region"`
	Aliases    []string `yaml:"aliases"`
	FullRegion bool     `yaml:"full_region,omitempty"`
}

// RegionTable is the single source of truth for locality resolution on
// Kufar. It ships with a compiled-in default and can be replaced from a
// YAML file so a correction does not require a rebuild.
type RegionTable struct {
	Regions []RegionEntry `yaml:"regions"`
	Cities  []CityEntry   `yaml:"cities"`
}

// DefaultRegionTable returns the built-in verified table.
func DefaultRegionTable() *RegionTable {
	return &RegionTable{
		Regions: []RegionEntry{
			{ID: 1, Token: "brestskaya-oblast", Name: "Брестская область"},
			{ID: 2, Token: "gomelskaya-oblast", Name: "Гомельская область"},
			{ID: 3, Token: "grodnenskaya-oblast", Name: "Гродненская область"},
			{ID: 4, Token: "mogilevskaya-oblast", Name: "Могилёвская область"},
			{ID: 5, Token: "minskaya-oblast", Name: "Минская область"},
			{ID: 6, Token: "vitebskaya-oblast", Name: "Витебская область"},
			{ID: 7, Token: "minsk", Name: "Минск"},
		},
		Cities: []CityEntry{
			{Token: "minsk", Region: 7, Aliases: []string{"Минск", "Minsk", "Менск"}, FullRegion: true},
			{Token: "brest", Region: 1, Aliases: []string{"Брест", "Brest", "Бярэсце"}},
			{Token: "baranovichi", Region: 1, Aliases: []string{"Барановичи", "Baranovichi", "Баранавічы"}},
			{Token: "pinsk", Region: 1, Aliases: []string{"Пинск", "Pinsk", "Пінск"}},
			{Token: "gomel", Region: 2, Aliases: []string{"Гомель", "Gomel", "Гомель"}},
			{Token: "mozyr", Region: 2, Aliases: []string{"Мозырь", "Mozyr", "Мазыр"}},
			{Token: "grodno", Region: 3, Aliases: []string{"Гродно", "Grodno", "Гродна"}},
			{Token: "lida", Region: 3, Aliases: []string{"Лида", "Lida", "Ліда"}},
			{Token: "mogilev", Region: 4, Aliases: []string{"Могилёв", "Могилев", "Mogilev", "Магілёў"}},
			{Token: "bobruisk", Region: 4, Aliases: []string{"Бобруйск", "Bobruisk", "Бабруйск"}},
			{Token: "borisov", Region: 5, Aliases: []string{"Борисов", "Borisov", "Барысаў"}},
			{Token: "molodechno", Region: 5, Aliases: []string{"Молодечно", "Molodechno", "Маладзечна"}},
			{Token: "soligorsk", Region: 5, Aliases: []string{"Солигорск", "Soligorsk", "Салігорск"}},
			{Token: "vitebsk", Region: 6, Aliases: []string{"Витебск", "Vitebsk", "Віцебск"}},
			{Token: "orsha", Region: 6, Aliases: []string{"Орша", "Orsha", "Орша"}},
			{Token: "polotsk", Region: 6, Aliases: []string{"Полоцк", "Polotsk", "Полацк"}},
			{Token: "novopolotsk", Region: 6, Aliases: []string{"Новополоцк", "Novopolotsk", "Наваполацк"}},
		},
	}
}

// LoadRegionTable reads a region table from a YAML file. An empty path
// yields the built-in default.
func LoadRegionTable(path string) (*RegionTable, error) {
	if path == "" {
		return DefaultRegionTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read region table %s: %w", path, err)
	}

	var table RegionTable
	if err := yaml.Unmarshal(data, &table); err != nil {
		return nil, fmt.Errorf("parse region table %s: %w", path, err)
	}
	if len(table.Regions) == 0 {
		return nil, fmt.Errorf("region table %s defines no regions", path)
	}
	return &table, nil
}

// RegionByToken resolves a URL path token to a region id.
func (t *RegionTable) RegionByToken(token string) (int, bool) {
	token = strings.ToLower(token)
	for _, r := range t.Regions {
		if r.Token == token {
			return r.ID, true
		}
	}
	return 0, false
}

// RegionName returns the verified name for a region id.
func (t *RegionTable) RegionName(id int) (string, bool) {
	for _, r := range t.Regions {
		if r.ID == id {
			return r.Name, true
		}
	}
	return "", false
}

// CityByToken resolves a URL path token to a known city.
func (t *RegionTable) CityByToken(token string) (*CityEntry, bool) {
	token = strings.ToLower(token)
	for i := range t.Cities {
		if t.Cities[i].Token == token {
			return &t.Cities[i], true
		}
	}
	return nil, false
}

// MatchesCity reports whether a listing's reported locality string
// matches the city under any of its known spellings. The comparison is
// case-insensitive and accepts a substring match in either direction,
// because upstream locality strings range from "Минск" to
// "г. Минск, Октябрьский район".
func (c *CityEntry) MatchesCity(locality string) bool {
	for _, alias := range c.Aliases {
		if helpers.ContainsFold(locality, alias) {
			return true
		}
	}
	return false
}
