package models

// SiteDescriptor is one unit of detection work, handed in by the upstream
// batch source. It is never mutated by the engine.
type SiteDescriptor struct {
	// ID is the upstream identifier for the business.
	ID string `json:"id"`

	// Name is the business name as known upstream (used for diagnostics
	// and location-mismatch checks).
	Name string `json:"name"`

	// URL is the candidate website to classify.
	URL string `json:"url"`
}
