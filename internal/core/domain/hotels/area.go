// internal/core/domain/hotels/area.go
package hotels

import (
	"math"
	"strings"
)

// Area район Лондона из каталога
type Area struct {
	Key         string
	Name        string
	Description string
	Lat         float64
	Lon         float64
}

// areas каталог в порядке отображения
var areas = []Area{
	{Key: "westminster", Name: "Westminster", Description: "Parliament, Big Ben, London Eye", Lat: 51.5014, Lon: -0.1419},
	{Key: "kensington", Name: "South Kensington", Description: "Museums, Royal Albert Hall, Hyde Park", Lat: 51.4991, Lon: -0.1938},
	{Key: "camden", Name: "Camden", Description: "Markets, live music, canal walks", Lat: 51.5390, Lon: -0.1426},
	{Key: "shoreditch", Name: "Shoreditch", Description: "Nightlife, street art, trendy cafes", Lat: 51.5255, Lon: -0.0780},
	{Key: "covent garden", Name: "Covent Garden", Description: "Shopping, theatres, restaurants", Lat: 51.5117, Lon: -0.1234},
	{Key: "city", Name: "City of London", Description: "Financial district, St. Paul's Cathedral", Lat: 51.5155, Lon: -0.0922},
	{Key: "notting hill", Name: "Notting Hill", Description: "Portobello Market, colorful houses", Lat: 51.5099, Lon: -0.1959},
	{Key: "greenwich", Name: "Greenwich", Description: "Maritime history, Royal Observatory", Lat: 51.4826, Lon: -0.0077},
	{Key: "paddington", Name: "Paddington", Description: "Transport hub, Little Venice", Lat: 51.5154, Lon: -0.1755},
	{Key: "soho", Name: "Soho", Description: "Entertainment, dining, nightlife", Lat: 51.5136, Lon: -0.1357},
}

var areaIndex = func() map[string]Area {
	idx := make(map[string]Area, len(areas))
	for _, a := range areas {
		idx[a.Key] = a
	}
	return idx
}()

// Areas возвращает копию каталога в порядке отображения
func Areas() []Area {
	out := make([]Area, len(areas))
	copy(out, areas)
	return out
}

// LookupArea ищет район по ключу без учета регистра и пробелов по краям
func LookupArea(input string) (Area, bool) {
	a, ok := areaIndex[NormalizeAreaKey(input)]
	return a, ok
}

// NormalizeAreaKey приводит ввод к ключу каталога
func NormalizeAreaKey(input string) string {
	return strings.ToLower(strings.TrimSpace(input))
}

// AreaKeys возвращает ключи в порядке каталога
func AreaKeys() []string {
	keys := make([]string, len(areas))
	for i, a := range areas {
		keys[i] = a.Key
	}
	return keys
}

// DistanceTo евклидово расстояние в градусах до точки
func (a Area) DistanceTo(lat, lon float64) float64 {
	return math.Hypot(a.Lat-lat, a.Lon-lon)
}
