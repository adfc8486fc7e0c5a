package clinic

import (
	"math"
	"regexp"
	"sort"
	"strings"
)

const earthRadiusKm = 6371

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b GeoPoint) float64 {
	dLat := (b.Lat - a.Lat) * (math.Pi / 180)
	dLng := (b.Lng - a.Lng) * (math.Pi / 180)
	lat1 := a.Lat * (math.Pi / 180)
	lat2 := b.Lat * (math.Pi / 180)
	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
	return earthRadiusKm * c
}

// City is a known metro area used to anchor distances.
type City struct {
	Name  string
	Point GeoPoint
}

var cities = []struct {
	aliases []string
	city    City
}{
	{[]string{"mumbai", "bombay"}, City{"Mumbai", GeoPoint{19.0760, 72.8777}}},
	{[]string{"navi mumbai"}, City{"Navi Mumbai", GeoPoint{19.0330, 73.0297}}},
	{[]string{"delhi", "new delhi"}, City{"Delhi", GeoPoint{28.6139, 77.2090}}},
	{[]string{"bangalore", "bengaluru"}, City{"Bangalore", GeoPoint{12.9716, 77.5946}}},
	{[]string{"chennai", "madras"}, City{"Chennai", GeoPoint{13.0827, 80.2707}}},
	{[]string{"hyderabad"}, City{"Hyderabad", GeoPoint{17.3850, 78.4867}}},
	{[]string{"pune"}, City{"Pune", GeoPoint{18.5204, 73.8567}}},
	{[]string{"kolkata", "calcutta"}, City{"Kolkata", GeoPoint{22.5726, 88.3639}}},
	{[]string{"ahmedabad"}, City{"Ahmedabad", GeoPoint{23.0225, 72.5714}}},
	{[]string{"jaipur"}, City{"Jaipur", GeoPoint{26.9124, 75.7873}}},
	{[]string{"gurgaon", "gurugram"}, City{"Gurgaon", GeoPoint{28.4595, 77.0266}}},
	{[]string{"noida"}, City{"Noida", GeoPoint{28.5355, 77.3910}}},
	{[]string{"chandigarh"}, City{"Chandigarh", GeoPoint{30.7333, 76.7794}}},
	{[]string{"kochi", "cochin"}, City{"Kochi", GeoPoint{9.9312, 76.2673}}},
	{[]string{"lucknow"}, City{"Lucknow", GeoPoint{26.8467, 80.9462}}},
}

// DefaultOrigin anchors distances when the patient's city is unknown.
var DefaultOrigin = City{"Mumbai", GeoPoint{19.0760, 72.8777}}

type cityAlias struct {
	pattern *regexp.Regexp
	length  int
	city    City
}

// Longest aliases first so "navi mumbai" wins over "mumbai".
var cityAliases = func() []cityAlias {
	var out []cityAlias
	for _, entry := range cities {
		for _, alias := range entry.aliases {
			out = append(out, cityAlias{
				pattern: regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(alias) + `\b`),
				length:  len(alias),
				city:    entry.city,
			})
		}
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].length > out[j].length })
	return out
}()

// LookupCity resolves an exact city name or alias.
func LookupCity(name string) (City, bool) {
	name = strings.ToLower(strings.Join(strings.Fields(name), " "))
	for _, entry := range cities {
		for _, alias := range entry.aliases {
			if alias == name {
				return entry.city, true
			}
		}
	}
	return City{}, false
}

// FindCity returns the first known city mentioned anywhere in text.
func FindCity(text string) (City, bool) {
	for _, alias := range cityAliases {
		if alias.pattern.MatchString(text) {
			return alias.city, true
		}
	}
	return City{}, false
}

// OriginFor returns the coordinate for a free-text location, falling back
// to DefaultOrigin.
func OriginFor(location string) GeoPoint {
	if city, ok := FindCity(location); ok {
		return city.Point
	}
	return DefaultOrigin.Point
}
