package booking

import (
	"sort"

	"metisconnect/models"
)

// servicesMap is the static catalog. Prices and durations submitted to
// the booking API always come from here, never from the draft.
var servicesMap = map[string]models.ServiceOffering{
	"haircut": {
		Code:            "haircut",
		DisplayName:     "Taglio di capelli",
		UnitPrice:       25,
		DurationMinutes: 30,
	},
	"beard_trim": {
		Code:            "beard_trim",
		DisplayName:     "Sistemazione barba",
		UnitPrice:       15,
		DurationMinutes: 20,
	},
	"shave": {
		Code:            "shave",
		DisplayName:     "Rasatura",
		UnitPrice:       20,
		DurationMinutes: 30,
	},
	"wash_and_cut": {
		Code:            "wash_and_cut",
		DisplayName:     "Lavaggio e taglio",
		UnitPrice:       35,
		DurationMinutes: 45,
	},
	"styling": {
		Code:            "styling",
		DisplayName:     "Styling",
		UnitPrice:       30,
		DurationMinutes: 45,
	},
}

// LookupService returns the offering for code.
func LookupService(code string) (models.ServiceOffering, bool) {
	svc, ok := servicesMap[code]
	return svc, ok
}

// ListServices returns the catalog ordered by price, then code.
func ListServices() []models.ServiceOffering {
	out := make([]models.ServiceOffering, 0, len(servicesMap))
	for _, svc := range servicesMap {
		out = append(out, svc)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].UnitPrice == out[j].UnitPrice {
			return out[i].Code < out[j].Code
		}
		return out[i].UnitPrice < out[j].UnitPrice
	})
	return out
}

// KnownDuration reports whether some offering lasts exactly minutes.
func KnownDuration(minutes int) bool {
	for _, svc := range servicesMap {
		if svc.DurationMinutes == minutes {
			return true
		}
	}
	return false
}
