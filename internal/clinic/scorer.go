package clinic

import (
	"math"
	"sort"
	"strings"
)

// RankingMode selects how recommendations are ordered.
type RankingMode string

const (
	RankByRating RankingMode = "rating"
	RankByScore  RankingMode = "score"
)

// ParseRankingMode defaults to RankByRating for unknown values.
func ParseRankingMode(raw string) RankingMode {
	if RankingMode(strings.ToLower(strings.TrimSpace(raw))) == RankByScore {
		return RankByScore
	}
	return RankByRating
}

const (
	ratingWeight     = 2.0
	serviceMatchBump = 5.0
	proximityCapKm   = 10.0
)

// Score computes rating*2, plus 5 when the clinic offers the service, plus
// a proximity bonus of max(0, 10 - km) from origin.
func Score(c Clinic, service string, origin GeoPoint) float64 {
	score := c.Rating * ratingWeight
	if c.Offers(service) {
		score += serviceMatchBump
	}
	score += math.Max(0, proximityCapKm-Haversine(origin, c.Location))
	return score
}

// Rank scores every clinic and orders them by mode. Ties keep source order.
func Rank(clinics []Clinic, service string, origin GeoPoint, mode RankingMode) []Recommendation {
	out := make([]Recommendation, 0, len(clinics))
	for _, c := range clinics {
		out = append(out, Recommendation{
			Clinic:     c,
			Score:      round2(Score(c, service, origin)),
			DistanceKm: round2(Haversine(origin, c.Location)),
		})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if mode == RankByScore {
			return out[i].Score > out[j].Score
		}
		return out[i].Rating > out[j].Rating
	})
	return out
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
