package clinic

import "strings"

// fallbackClinics is served when the directory source fails or is empty.
// Every service tag has at least one entry.
var fallbackClinics = map[string][]Clinic{
	"hair": {
		{ID: "fallback-hair-1", Name: "Advanced Hair Restoration Centre", Rating: 4.8, Services: []string{"hair"}, Location: GeoPoint{19.0596, 72.8295}, City: "Mumbai", Address: "Linking Road, Bandra West", Phone: "+91 22 4000 1101"},
		{ID: "fallback-hair-2", Name: "Scalp & Follicle Clinic", Rating: 4.6, Services: []string{"hair", "cosmetic"}, Location: GeoPoint{28.5672, 77.2100}, City: "Delhi", Address: "Defence Colony", Phone: "+91 11 4000 1102"},
		{ID: "fallback-hair-3", Name: "Regrow Trichology Institute", Rating: 4.5, Services: []string{"hair"}, Location: GeoPoint{12.9352, 77.6245}, City: "Bangalore", Address: "Koramangala 5th Block", Phone: "+91 80 4000 1103"},
	},
	"dental": {
		{ID: "fallback-dental-1", Name: "Smile Dental Care", Rating: 4.9, Services: []string{"dental"}, Location: GeoPoint{19.1136, 72.8697}, City: "Mumbai", Address: "Andheri East", Phone: "+91 22 4000 2201"},
		{ID: "fallback-dental-2", Name: "Pearl Orthodontics & Implants", Rating: 4.7, Services: []string{"dental"}, Location: GeoPoint{28.6304, 77.2177}, City: "Delhi", Address: "Connaught Place", Phone: "+91 11 4000 2202"},
		{ID: "fallback-dental-3", Name: "Bright Teeth Family Dentistry", Rating: 4.5, Services: []string{"dental", "general"}, Location: GeoPoint{18.5314, 73.8446}, City: "Pune", Address: "Shivajinagar", Phone: "+91 20 4000 2203"},
	},
	"cosmetic": {
		{ID: "fallback-cosmetic-1", Name: "Glow Aesthetics Studio", Rating: 4.8, Services: []string{"cosmetic"}, Location: GeoPoint{19.0176, 72.8562}, City: "Mumbai", Address: "Dadar West", Phone: "+91 22 4000 3301"},
		{ID: "fallback-cosmetic-2", Name: "Derma Renew Skin Clinic", Rating: 4.6, Services: []string{"cosmetic", "hair"}, Location: GeoPoint{17.4126, 78.4482}, City: "Hyderabad", Address: "Banjara Hills", Phone: "+91 40 4000 3302"},
		{ID: "fallback-cosmetic-3", Name: "Contour Plastic Surgery", Rating: 4.4, Services: []string{"cosmetic"}, Location: GeoPoint{13.0418, 80.2341}, City: "Chennai", Address: "T. Nagar", Phone: "+91 44 4000 3303"},
	},
	"ivf": {
		{ID: "fallback-ivf-1", Name: "New Beginnings Fertility Centre", Rating: 4.9, Services: []string{"ivf"}, Location: GeoPoint{19.0728, 72.8826}, City: "Mumbai", Address: "Kurla West", Phone: "+91 22 4000 4401"},
		{ID: "fallback-ivf-2", Name: "Cradle IVF & Women's Health", Rating: 4.7, Services: []string{"ivf", "general"}, Location: GeoPoint{12.9719, 77.6412}, City: "Bangalore", Address: "Indiranagar", Phone: "+91 80 4000 4402"},
		{ID: "fallback-ivf-3", Name: "Hope Reproductive Medicine", Rating: 4.5, Services: []string{"ivf"}, Location: GeoPoint{22.5448, 88.3426}, City: "Kolkata", Address: "Park Street", Phone: "+91 33 4000 4403"},
	},
	"general": {
		{ID: "fallback-general-1", Name: "CityCare Multispeciality Clinic", Rating: 4.7, Services: []string{"general"}, Location: GeoPoint{19.0660, 72.8400}, City: "Mumbai", Address: "Santacruz West", Phone: "+91 22 4000 5501"},
		{ID: "fallback-general-2", Name: "Wellness First Polyclinic", Rating: 4.5, Services: []string{"general"}, Location: GeoPoint{28.5494, 77.2001}, City: "Delhi", Address: "Hauz Khas", Phone: "+91 11 4000 5502"},
	},
}

// FallbackClinics returns a copy of the static list for service. Unknown
// services get the general list.
func FallbackClinics(service string) []Clinic {
	list, ok := fallbackClinics[strings.ToLower(strings.TrimSpace(service))]
	if !ok {
		list = fallbackClinics["general"]
	}
	out := make([]Clinic, len(list))
	for i, c := range list {
		c.Services = append([]string(nil), c.Services...)
		out[i] = c
	}
	return out
}
