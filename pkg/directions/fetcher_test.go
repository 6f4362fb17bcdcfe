package directions

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubProvider struct {
	route        Route
	err          error
	destinations []string
}

func (p *stubProvider) Route(_ context.Context, _ Origin, destination string) (Route, error) {
	p.destinations = append(p.destinations, destination)
	if p.err != nil {
		return Route{}, p.err
	}
	return p.route, nil
}

type recordingReporter struct {
	errs []error
}

func (r *recordingReporter) Report(err error) {
	r.errs = append(r.errs, err)
}

func TestFetcher_Fetch(t *testing.T) {
	provider := &stubProvider{route: Route{
		Summary:         "Sterling Hwy",
		DistanceMeters:  9000,
		DurationSeconds: 600,
		EndLat:          60.48,
		EndLng:          -151.07,
		Polyline:        "poly",
	}}
	f := NewFetcher(provider, nil, "map-key", ", Soldotna, AK", 160934, testLogger())

	r, err := f.Fetch(context.Background(), Origin{Lat: 60.5, Lng: -151.06}, "1010", "MESA", "144 N BINKLEY ST", "C")
	require.NoError(t, err)

	assert.Equal(t, "1010", r.CallNumber)
	assert.Equal(t, "MESA", r.Area)
	assert.Equal(t, "Sterling Hwy", r.Summary)
	assert.Equal(t, 9000, r.DistanceMeters)
	assert.False(t, r.Cached)
	assert.Contains(t, r.MapURL, "path=enc%3Apoly")
	assert.Contains(t, r.MapURL, "label%3AC")
}

func TestFetcher_DestinationShaping(t *testing.T) {
	provider := &stubProvider{route: Route{DistanceMeters: 100}}
	f := NewFetcher(provider, nil, "", ", Soldotna, AK", 0, testLogger())

	_, err := f.Fetch(context.Background(), Origin{}, "1", "MESA", "60.4821,-151.0705", "C")
	require.NoError(t, err)
	_, err = f.Fetch(context.Background(), Origin{}, "2", "MESA", "144 N BINKLEY ST", "C")
	require.NoError(t, err)

	require.Len(t, provider.destinations, 2)
	assert.Equal(t, "60.4821,-151.0705", provider.destinations[0], "coordinate pairs pass through verbatim")
	assert.Equal(t, "144 N BINKLEY ST, Soldotna, AK", provider.destinations[1], "street addresses get the suffix")
}

func TestFetcher_DistanceCeiling(t *testing.T) {
	provider := &stubProvider{route: Route{DistanceMeters: 200000}}
	reporter := &recordingReporter{}
	f := NewFetcher(provider, reporter, "", "", 160934, testLogger())

	_, err := f.Fetch(context.Background(), Origin{}, "1010", "MESA", "WRONG TOWN RD", "C")
	assert.ErrorIs(t, err, ErrRouteTooFar)
	assert.Empty(t, reporter.errs, "a discarded route is not a provider failure")
}

func TestFetcher_ProviderFailureReported(t *testing.T) {
	provider := &stubProvider{err: errors.New("quota exceeded")}
	reporter := &recordingReporter{}
	f := NewFetcher(provider, reporter, "", "", 160934, testLogger())

	_, err := f.Fetch(context.Background(), Origin{}, "1010", "MESA", "144 N BINKLEY ST", "C")
	require.Error(t, err)
	require.Len(t, reporter.errs, 1)
	assert.Contains(t, reporter.errs[0].Error(), "1010")
}

func TestFetcher_MarkerLabelFallback(t *testing.T) {
	provider := &stubProvider{route: Route{DistanceMeters: 100, EndLat: 60.1, EndLng: -151.1}}
	f := NewFetcher(provider, nil, "map-key", "", 0, testLogger())

	r, err := f.Fetch(context.Background(), Origin{}, "1", "MESA", "SOMEWHERE", "?")
	require.NoError(t, err)
	assert.Contains(t, r.MapURL, "label%3AX", "unknown severity falls back to X")
}

func TestFetcher_NoStaticMapsKey(t *testing.T) {
	provider := &stubProvider{route: Route{DistanceMeters: 100}}
	f := NewFetcher(provider, nil, "", "", 0, testLogger())

	r, err := f.Fetch(context.Background(), Origin{}, "1", "MESA", "SOMEWHERE", "C")
	require.NoError(t, err)
	assert.Empty(t, r.MapURL)
}
