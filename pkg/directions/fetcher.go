package directions

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"regexp"
	"strings"

	"github.com/akfire/dispatch-relay/pkg/logger"
)

const staticMapBaseURL = "https://maps.googleapis.com/maps/api/staticmap"

// ErrRouteTooFar marks a route discarded by the distance sanity ceiling,
// usually a sign the provider geocoded the address to the wrong town.
var ErrRouteTooFar = errors.New("route distance exceeds ceiling")

var coordinatePairRe = regexp.MustCompile(`^-?[0-9.]+,-?[0-9.]+$`)

// Fetcher turns a raw call location into a broadcastable directions result.
// It owns destination shaping, the distance sanity ceiling, and static map
// URL construction; the Provider only resolves routes.
type Fetcher struct {
	provider        Provider
	reporter        Reporter
	logger          *logger.Logger
	staticMapsKey   string
	addressSuffix   string
	distanceCeiling int
}

// NewFetcher creates a fetcher around the given provider
func NewFetcher(provider Provider, reporter Reporter, staticMapsKey, addressSuffix string, distanceCeiling int, log *logger.Logger) *Fetcher {
	return &Fetcher{
		provider:        provider,
		reporter:        reporter,
		logger:          log,
		staticMapsKey:   staticMapsKey,
		addressSuffix:   addressSuffix,
		distanceCeiling: distanceCeiling,
	}
}

// Fetch resolves directions from origin to the call's location. Provider
// failures are logged and reported here; callers only classify the returned
// error. A route beyond the distance ceiling returns ErrRouteTooFar.
func (f *Fetcher) Fetch(ctx context.Context, origin Origin, callNumber, area, location, dispatchCode string) (Result, error) {
	destination := f.destinationFor(location)

	route, err := f.provider.Route(ctx, origin, destination)
	if err != nil {
		f.logger.Warn("Directions lookup failed",
			logger.String("call_number", callNumber),
			logger.String("destination", destination),
			logger.Error(err))
		if f.reporter != nil {
			f.reporter.Report(fmt.Errorf("directions lookup for call %s: %w", callNumber, err))
		}
		return Result{}, err
	}

	if f.distanceCeiling > 0 && route.DistanceMeters >= f.distanceCeiling {
		f.logger.Warn("Discarding implausible route",
			logger.String("call_number", callNumber),
			logger.Int("distance_meters", route.DistanceMeters),
			logger.Int("ceiling_meters", f.distanceCeiling))
		return Result{}, ErrRouteTooFar
	}

	return Result{
		CallNumber:      callNumber,
		Area:            area,
		Summary:         route.Summary,
		DistanceMeters:  route.DistanceMeters,
		DurationSeconds: route.DurationSeconds,
		EndLat:          route.EndLat,
		EndLng:          route.EndLng,
		Polyline:        route.Polyline,
		MapURL:          f.staticMapURL(route, dispatchCode),
	}, nil
}

// destinationFor passes coordinate-pair locations through verbatim and
// appends the configured suffix to street addresses so the provider geocodes
// them in the right town.
func (f *Fetcher) destinationFor(location string) string {
	if coordinatePairRe.MatchString(location) {
		return location
	}
	if f.addressSuffix != "" {
		return location + f.addressSuffix
	}
	return location
}

// staticMapURL builds a static map link showing the route polyline and a
// destination marker labeled with the call's severity letter.
func (f *Fetcher) staticMapURL(route Route, dispatchCode string) string {
	if f.staticMapsKey == "" {
		return ""
	}

	label := "X"
	if len(dispatchCode) == 1 && dispatchCode >= "A" && dispatchCode <= "Z" {
		label = dispatchCode
	}

	var b strings.Builder
	b.WriteString(staticMapBaseURL)
	b.WriteString("?size=640x640&scale=2&maptype=roadmap")
	b.WriteString("&key=")
	b.WriteString(url.QueryEscape(f.staticMapsKey))
	if route.Polyline != "" {
		b.WriteString("&path=enc:")
		b.WriteString(url.QueryEscape(route.Polyline))
	}
	b.WriteString("&markers=")
	b.WriteString(url.QueryEscape(fmt.Sprintf("color:red|label:%s|%f,%f", label, route.EndLat, route.EndLng)))
	return b.String()
}

// LogReporter satisfies Reporter by logging the failure. Used when no
// external error tracker is configured.
type LogReporter struct {
	Logger *logger.Logger
}

func (r *LogReporter) Report(err error) {
	r.Logger.Error("Directions provider error", logger.Error(err))
}
