package station

import (
	"fmt"
	"regexp"

	"github.com/akfire/dispatch-relay/pkg/config"
)

// Station is a named origin point for a service area. Its coordinate is the
// starting point for directions lookups and its address pattern decides which
// connecting displays may represent it.
type Station struct {
	ID      string
	Area    string
	Lat     float64
	Lng     float64
	ipMatch *regexp.Regexp
}

// MatchesAddress reports whether the given peer address satisfies this
// station's address pattern.
func (s *Station) MatchesAddress(addr string) bool {
	return s.ipMatch.MatchString(addr)
}

// Directory is the static registry of stations, loaded once at startup.
type Directory struct {
	stations []*Station
	byID     map[string]*Station
	byArea   map[string][]*Station
}

// NewDirectory builds a directory from station configuration. Patterns are
// compiled here; invalid patterns are a startup error.
func NewDirectory(cfgs []config.StationConfig) (*Directory, error) {
	d := &Directory{
		byID:   make(map[string]*Station),
		byArea: make(map[string][]*Station),
	}

	for _, c := range cfgs {
		re, err := regexp.Compile(c.IPMatch)
		if err != nil {
			return nil, fmt.Errorf("station %s: invalid ip_match pattern: %w", c.ID, err)
		}
		st := &Station{
			ID:      c.ID,
			Area:    c.Area,
			Lat:     c.Lat,
			Lng:     c.Lng,
			ipMatch: re,
		}
		d.stations = append(d.stations, st)
		d.byID[st.ID] = st
		d.byArea[st.Area] = append(d.byArea[st.Area], st)
	}

	return d, nil
}

// ResolveByAddress returns every station whose address pattern matches the
// given peer address. A peer on a shared uplink may represent several
// stations at once; callers route to the union of their areas.
func (d *Directory) ResolveByAddress(addr string) []*Station {
	var matched []*Station
	for _, st := range d.stations {
		if st.MatchesAddress(addr) {
			matched = append(matched, st)
		}
	}
	return matched
}

// InArea returns all stations configured for an area. An empty result means
// the area is unconfigured.
func (d *Directory) InArea(area string) []*Station {
	return d.byArea[area]
}

// ByID returns the station with the given id, or nil if not configured.
func (d *Directory) ByID(id string) *Station {
	return d.byID[id]
}

// Areas returns the distinct configured area names, in station order.
func (d *Directory) Areas() []string {
	seen := make(map[string]bool)
	var areas []string
	for _, st := range d.stations {
		if !seen[st.Area] {
			seen[st.Area] = true
			areas = append(areas, st.Area)
		}
	}
	return areas
}

// Count returns the number of configured stations.
func (d *Directory) Count() int {
	return len(d.stations)
}
