package models

// ServiceOffering is a static catalog entry.
type ServiceOffering struct {
	Code            string  `json:"code"`
	DisplayName     string  `json:"displayName"`
	UnitPrice       float64 `json:"unitPrice"` // euros
	DurationMinutes int     `json:"durationMinutes"`
}
