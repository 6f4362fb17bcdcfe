package call

// Call is a normalized incoming dispatch event. A Call is immutable once
// parsed; a later payload with the same call number supersedes it wholesale.
type Call struct {
	CallNumber       string `json:"callNumber"`
	Area             string `json:"area"`
	DispatchCode     string `json:"dispatchCode"` // Single-letter severity, "?" when unparseable
	CallType         string `json:"callType"`
	CallDateTime     string `json:"callDateTime"`
	DispatchDateTime string `json:"dispatchDateTime"`

	Location     string `json:"location,omitempty"`
	LocationType string `json:"locationType,omitempty"`
	CrossStreets string `json:"crossStreets,omitempty"`
	Venue        string `json:"venue,omitempty"`
	CommonName   string `json:"commonName,omitempty"`
	CallInfo     string `json:"callInfo,omitempty"`
	CCText       string `json:"ccText,omitempty"`
	Breathing    string `json:"breathing,omitempty"`
	Conscious    string `json:"conscious,omitempty"`
	Response     string `json:"response,omitempty"`

	Valid bool `json:"valid"`
}
