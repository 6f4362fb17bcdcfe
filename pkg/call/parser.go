package call

import (
	"encoding/json"
	"regexp"
	"strings"
)

var (
	upperRe  = regexp.MustCompile(`[A-Z]`)
	latLngRe = regexp.MustCompile(`^[0-9,.\-]+$`)
)

// payload mirrors the raw JSON posted by the 911 system. Required fields are
// pointers so presence can be distinguished from the empty string.
type payload struct {
	CallNumber   *string `json:"callNumber"`
	Area         *string `json:"area"`
	CallType     *string `json:"callType"`
	DispatchCode *string `json:"dispatchCode"`

	CallDateTime     string `json:"callDateTime"`
	DispatchDateTime string `json:"dispatchDateTime"`
	Location         string `json:"location"`
	LocationType     string `json:"locationType"`
	CrossStreets     string `json:"crossStreets"`
	Venue            string `json:"venue"`
	CommonName       string `json:"commonName"`
	CallInfo         string `json:"callInfo"`
	CCText           string `json:"ccText"`
	Breathing        string `json:"breathing"`
	Conscious        string `json:"conscious"`
	Response         string `json:"response"`
}

// Parse normalizes a raw inbound payload into a Call. It never fails to the
// caller: malformed or incomplete input yields a Call with Valid=false and
// only defaults populated.
func Parse(raw []byte) Call {
	invalid := Call{CallType: "Unknown", DispatchCode: "?"}

	var p payload
	if err := json.Unmarshal(raw, &p); err != nil {
		return invalid
	}

	// Must haves
	if p.CallNumber == nil || *p.CallNumber == "" {
		return invalid
	}
	if p.Area == nil || *p.Area == "" {
		return invalid
	}
	if p.CallType == nil || *p.CallType == "" {
		return invalid
	}
	if p.DispatchCode == nil {
		return invalid
	}

	c := Call{
		CallNumber:       *p.CallNumber,
		Area:             *p.Area,
		CallType:         normalizeCallType(*p.CallType),
		DispatchCode:     extractSeverity(*p.DispatchCode),
		CallDateTime:     p.CallDateTime,
		DispatchDateTime: p.DispatchDateTime,
	}

	// Might haves
	if p.Location != "" {
		c.Location = normalizeLocation(p.Location)
	}
	if p.LocationType != "" {
		c.LocationType = p.LocationType
	}
	if p.CrossStreets != "" {
		c.CrossStreets = p.CrossStreets
	}
	if p.Venue != "" {
		c.Venue = p.Venue
	}
	if p.CommonName != "" {
		c.CommonName = p.CommonName
	}
	if p.CallInfo != "" {
		c.CallInfo = p.CallInfo
	}
	if p.CCText != "" {
		c.CCText = p.CCText
	}
	if p.Breathing != "" {
		c.Breathing = p.Breathing
	}
	if p.Conscious != "" {
		c.Conscious = p.Conscious
	}
	if p.Response != "" {
		c.Response = p.Response
	}

	c.Valid = true
	return c
}

// normalizeCallType strips the numeric code prefix from a call type. The 911
// system sends values like "43-Structure Fire"; only the first dash segment
// is dropped, and a value without a dash passes through unchanged.
func normalizeCallType(raw string) string {
	parts := strings.Split(raw, "-")
	if len(parts) > 1 {
		parts = parts[1:]
	}
	return strings.Join(parts, "-")
}

// extractSeverity pulls the severity letter out of a raw dispatch code like
// "25C01". Codes without an uppercase letter map to the unknown marker "?".
func extractSeverity(raw string) string {
	if m := upperRe.FindString(raw); m != "" {
		return m
	}
	return "?"
}

// normalizeLocation trims trailing zeros from the fractional parts of a raw
// lat,lng pair so equal coordinates compare equal regardless of how the 911
// system padded them. Street-address locations pass through unmodified.
func normalizeLocation(loc string) string {
	if !latLngRe.MatchString(loc) {
		return loc
	}
	parts := strings.Split(loc, ",")
	if len(parts) != 2 {
		return loc
	}
	return trimCoordinate(parts[0]) + "," + trimCoordinate(parts[1])
}

func trimCoordinate(coord string) string {
	if !strings.Contains(coord, ".") {
		return coord
	}
	coord = strings.TrimRight(coord, "0")
	return strings.TrimSuffix(coord, ".")
}
