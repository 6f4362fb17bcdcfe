package directions

import "context"

// Result is the directions payload broadcast to an area's displays and
// memoized on the call's history entry.
type Result struct {
	CallNumber      string  `json:"callNumber"`
	Area            string  `json:"area"`
	Summary         string  `json:"summary"`
	DistanceMeters  int     `json:"distanceMeters"`
	DurationSeconds int     `json:"durationSeconds"`
	EndLat          float64 `json:"endLat"`
	EndLng          float64 `json:"endLng"`
	Polyline        string  `json:"polyline,omitempty"`
	MapURL          string  `json:"mapUrl,omitempty"`
	Cached          bool    `json:"cached"`
}

// Route is a single driving route returned by a provider, reduced to the
// fields the displays need.
type Route struct {
	Summary         string
	DistanceMeters  int
	DurationSeconds int
	EndLat          float64
	EndLng          float64
	Polyline        string
}

// Origin is the starting coordinate for a lookup, normally a station's
// configured position.
type Origin struct {
	Lat float64
	Lng float64
}

// Provider resolves driving directions from an origin coordinate to a
// destination. Destination is either a "lat,lng" pair or a street address.
type Provider interface {
	Route(ctx context.Context, origin Origin, destination string) (Route, error)
}

// Reporter records provider failures with an external error tracker.
// Failures in the fetch path are contained: reported, never propagated.
type Reporter interface {
	Report(err error)
}
