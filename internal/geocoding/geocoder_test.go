package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quietLogger() *logrus.Logger {
	logger := logrus.New()
	logger.SetLevel(logrus.PanicLevel)
	return logger
}

func newNominatim(t *testing.T, body string) (*httptest.Server, *int32) {
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "compset-test", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(body))
	}))
	t.Cleanup(srv.Close)
	return srv, &calls
}

func TestGeocode(t *testing.T) {
	srv, calls := newNominatim(t, `[{"lat": "52.3791", "lon": "4.9003"}]`)
	dir := t.TempDir()

	g := NewGeocoder(quietLogger(), Options{BaseURL: srv.URL, UserAgent: "compset-test", CacheDir: dir})

	lat, lon, err := g.Geocode(context.Background(), "Stationsplein 1, Amsterdam")
	require.NoError(t, err)
	assert.Equal(t, 52.3791, lat)
	assert.Equal(t, 4.9003, lon)

	// Same address with different spacing and case comes from the cache
	_, _, err = g.Geocode(context.Background(), "  stationsplein 1,   AMSTERDAM ")
	require.NoError(t, err)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))

	// A new geocoder picks the cache up from disk
	reloaded := NewGeocoder(quietLogger(), Options{BaseURL: srv.URL, UserAgent: "compset-test", CacheDir: dir})
	lat, _, err = reloaded.Geocode(context.Background(), "Stationsplein 1, Amsterdam")
	require.NoError(t, err)
	assert.Equal(t, 52.3791, lat)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}

func TestGeocodeNoResults(t *testing.T) {
	srv, _ := newNominatim(t, `[]`)
	g := NewGeocoder(quietLogger(), Options{BaseURL: srv.URL, UserAgent: "compset-test"})

	_, _, err := g.Geocode(context.Background(), "Nowhere 0")
	assert.ErrorIs(t, err, ErrNoResults)

	_, _, err = g.Geocode(context.Background(), "   ")
	assert.ErrorIs(t, err, ErrNoResults)
}

func TestGeocodeUpstreamFailure(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	g := NewGeocoder(quietLogger(), Options{BaseURL: srv.URL, UserAgent: "compset-test"})
	_, _, err := g.Geocode(context.Background(), "Coolsingel 40, Rotterdam")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "429")
}

func TestGeocodeHonorsContext(t *testing.T) {
	srv, calls := newNominatim(t, `[{"lat": "1", "lon": "2"}]`)
	g := NewGeocoder(quietLogger(), Options{BaseURL: srv.URL, UserAgent: "compset-test", MinInterval: 1 << 40})

	_, _, err := g.Geocode(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, _, err = g.Geocode(ctx, "second")
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, int32(1), atomic.LoadInt32(calls))
}
