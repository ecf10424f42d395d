package models

import "time"

// DetectionMethod records which stage of the pipeline produced the engine
// identification.
type DetectionMethod string

const (
	MethodStaticHTML       DetectionMethod = "static_html"
	MethodClickNavigation  DetectionMethod = "button_click_navigation"
	MethodClickPopup       DetectionMethod = "button_click_popup"
	MethodNetworkOnLoad    DetectionMethod = "network_sniff_on_load"
	MethodNetworkOnClick   DetectionMethod = "network_sniff_on_click"
	MethodIframeScan       DetectionMethod = "iframe_scan"
	MethodKeywordFallback  DetectionMethod = "html_keyword_fallback"
	MethodNoneFound        DetectionMethod = "none_found"
)

// Contact holds visible contact details extracted from the page, independent
// of whether an engine was identified.
type Contact struct {
	Phone         string `json:"phone,omitempty"`
	Email         string `json:"email,omitempty"`
	RoomCountHint string `json:"room_count_hint,omitempty"`
}

// DetectionOutcome is the single, immutable result produced for each
// attempted SiteDescriptor.
//
// Invariants:
//   - EngineName != "" implies Method != MethodNoneFound.
//   - EngineName == "" implies Method == MethodNoneFound or Error != nil.
type DetectionOutcome struct {
	SiteID   string `json:"site_id"`
	SiteName string `json:"site_name,omitempty"`
	URL      string `json:"url"`

	EngineName   string          `json:"engine_name,omitempty"`
	EngineDomain string          `json:"engine_domain,omitempty"`
	BookingURL   string          `json:"booking_url,omitempty"`
	Tier         int             `json:"tier,omitempty"`
	Method       DetectionMethod `json:"detection_method"`

	// NeedsReview marks a high-confidence external domain that is not in
	// the signature registry, so curation can promote it.
	NeedsReview bool `json:"needs_review,omitempty"`

	Contact Contact `json:"contact"`

	Error *ErrorDetail `json:"error,omitempty"`

	RegistryVersion string    `json:"registry_version,omitempty"`
	DetectedAt      time.Time `json:"detected_at"`
	DurationMs      int64     `json:"duration_ms"`
}

// Found reports whether an engine was identified.
func (o *DetectionOutcome) Found() bool {
	return o.EngineName != ""
}

// Failed reports whether the unit ended with an error rather than a
// definitive positive or negative.
func (o *DetectionOutcome) Failed() bool {
	return o.Error != nil
}
