// Package sports holds the catalogue of sports the service can serve odds for.
package sports

import "sort"

// Sport is one catalogue entry
type Sport struct {
	Key      string `json:"key"`
	Title    string `json:"title"`
	Category string `json:"category"`
	Icon     string `json:"icon"`
}

// Category groups sports for display
type Category struct {
	Name   string  `json:"name"`
	Sports []Sport `json:"sports"`
}

var supported = []Sport{
	{Key: "americanfootball_nfl", Title: "NFL", Category: "American Football", Icon: "🏈"},
	{Key: "americanfootball_ncaaf", Title: "NCAAF", Category: "American Football", Icon: "🏈"},
	{Key: "basketball_nba", Title: "NBA", Category: "Basketball", Icon: "🏀"},
	{Key: "basketball_ncaab", Title: "NCAAB", Category: "Basketball", Icon: "🏀"},
	{Key: "basketball_euroleague", Title: "EuroLeague", Category: "Basketball", Icon: "🏀"},
	{Key: "icehockey_nhl", Title: "NHL", Category: "Hockey", Icon: "🏒"},
	{Key: "baseball_mlb", Title: "MLB", Category: "Baseball", Icon: "⚾"},
	{Key: "soccer_epl", Title: "Premier League", Category: "Soccer", Icon: "⚽"},
	{Key: "soccer_spain_la_liga", Title: "La Liga", Category: "Soccer", Icon: "⚽"},
	{Key: "soccer_uefa_champs_league", Title: "Champions League", Category: "Soccer", Icon: "⚽"},
	{Key: "soccer_usa_mls", Title: "MLS", Category: "Soccer", Icon: "⚽"},
	{Key: "mma_mixed_martial_arts", Title: "UFC/MMA", Category: "MMA", Icon: "🥊"},
	{Key: "boxing_boxing", Title: "Boxing", Category: "Boxing", Icon: "🥊"},
	{Key: "tennis_atp", Title: "ATP Tennis", Category: "Tennis", Icon: "🎾"},
	{Key: "tennis_wta", Title: "WTA Tennis", Category: "Tennis", Icon: "🎾"},
	{Key: "golf_pga", Title: "PGA Tour", Category: "Golf", Icon: "⛳"},
}

var byKey = func() map[string]Sport {
	m := make(map[string]Sport, len(supported))
	for _, s := range supported {
		m[s.Key] = s
	}
	return m
}()

// All returns every supported sport in catalogue order
func All() []Sport {
	return append([]Sport(nil), supported...)
}

// Lookup returns the sport for key
func Lookup(key string) (Sport, bool) {
	s, ok := byKey[key]
	return s, ok
}

// IsSupported reports whether key is in the catalogue
func IsSupported(key string) bool {
	_, ok := byKey[key]
	return ok
}

// ByCategory groups the catalogue by category, sorted by category name then sport key.
func ByCategory() []Category {
	grouped := make(map[string][]Sport)
	for _, s := range supported {
		grouped[s.Category] = append(grouped[s.Category], s)
	}

	categories := make([]Category, 0, len(grouped))
	for name, list := range grouped {
		sort.Slice(list, func(i, j int) bool { return list[i].Key < list[j].Key })
		categories = append(categories, Category{Name: name, Sports: list})
	}
	sort.Slice(categories, func(i, j int) bool { return categories[i].Name < categories[j].Name })
	return categories
}
