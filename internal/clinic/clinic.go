package clinic

import (
	"context"
	"strings"
)

// GeoPoint is a WGS84 coordinate.
type GeoPoint struct {
	Lat float64 `json:"lat" firestore:"lat"`
	Lng float64 `json:"lng" firestore:"lng"`
}

// Clinic is a directory entry.
type Clinic struct {
	ID       string   `json:"id" firestore:"-"`
	Name     string   `json:"name" firestore:"name"`
	Rating   float64  `json:"rating" firestore:"rating"`
	Services []string `json:"services" firestore:"services"`
	Location GeoPoint `json:"location" firestore:"location"`
	City     string   `json:"city,omitempty" firestore:"city"`
	Address  string   `json:"address,omitempty" firestore:"address"`
	Phone    string   `json:"phone,omitempty" firestore:"phone"`
}

// Offers reports whether the clinic lists the service tag.
func (c Clinic) Offers(service string) bool {
	service = strings.ToLower(strings.TrimSpace(service))
	if service == "" {
		return false
	}
	for _, s := range c.Services {
		if strings.ToLower(s) == service {
			return true
		}
	}
	return false
}

// Recommendation is a ranked clinic with its computed score and distance.
type Recommendation struct {
	Clinic
	Score      float64 `json:"score"`
	DistanceKm float64 `json:"distance_km"`
}

// Query narrows a directory lookup. An empty Service matches every clinic.
type Query struct {
	Service   string
	MinRating float64
	Limit     int
}

// Source is a clinic directory backend.
type Source interface {
	FindClinics(ctx context.Context, q Query) ([]Clinic, error)
}

// Services are the service tags clinics can list.
var Services = []string{"hair", "dental", "cosmetic", "ivf", "general"}

// IsKnownService reports whether s is one of Services.
func IsKnownService(s string) bool {
	s = strings.ToLower(strings.TrimSpace(s))
	for _, known := range Services {
		if s == known {
			return true
		}
	}
	return false
}
