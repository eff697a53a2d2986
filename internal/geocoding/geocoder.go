// Package geocoding resolves property addresses to coordinates through a
// Nominatim-compatible search API, with an on-disk cache.
package geocoding

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/sirupsen/logrus"
)

const cacheFileName = "geocode_cache.json"

var ErrNoResults = errors.New("no geocoding results")

type Options struct {
	BaseURL     string
	UserAgent   string
	CacheDir    string
	MinInterval time.Duration
}

type Geocoder struct {
	logger    *logrus.Logger
	opts      Options
	cache     map[string][]float64
	cacheLock sync.RWMutex
	client    *http.Client

	// Serializes upstream calls so MinInterval is respected
	rateLock    sync.Mutex
	lastRequest time.Time
}

func NewGeocoder(logger *logrus.Logger, opts Options) *Geocoder {
	if opts.CacheDir != "" {
		if err := os.MkdirAll(opts.CacheDir, 0755); err != nil {
			logger.WithError(err).Warn("Could not create geocode cache directory")
		}
	}

	g := &Geocoder{
		logger: logger,
		opts:   opts,
		cache:  make(map[string][]float64),
		client: &http.Client{Timeout: 10 * time.Second},
	}
	g.loadCache()
	return g
}

func (g *Geocoder) cacheFile() string {
	if g.opts.CacheDir == "" {
		return ""
	}
	return filepath.Join(g.opts.CacheDir, cacheFileName)
}

func (g *Geocoder) loadCache() {
	path := g.cacheFile()
	if path == "" {
		return
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			g.logger.Warnf("Could not load geocode cache: %v", err)
		}
		return
	}

	if err := json.Unmarshal(data, &g.cache); err != nil {
		g.logger.Errorf("Failed to parse geocode cache: %v", err)
		return
	}

	g.logger.Infof("Loaded %d cached addresses", len(g.cache))
}

func (g *Geocoder) saveCache() {
	path := g.cacheFile()
	if path == "" {
		return
	}

	g.cacheLock.RLock()
	data, err := json.Marshal(g.cache)
	g.cacheLock.RUnlock()
	if err != nil {
		g.logger.Errorf("Failed to marshal geocode cache: %v", err)
		return
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		g.logger.Errorf("Failed to save geocode cache: %v", err)
	}
}

type nominatimResponse []struct {
	Lat string `json:"lat"`
	Lon string `json:"lon"`
}

func cacheKey(address string) string {
	return strings.ToLower(strings.Join(strings.Fields(address), " "))
}

// Geocode returns the latitude and longitude of a free-form address
func (g *Geocoder) Geocode(ctx context.Context, address string) (float64, float64, error) {
	key := cacheKey(address)
	if key == "" {
		return 0, 0, fmt.Errorf("empty address: %w", ErrNoResults)
	}

	g.cacheLock.RLock()
	coords, ok := g.cache[key]
	g.cacheLock.RUnlock()
	if ok && len(coords) == 2 {
		g.logger.WithFields(logrus.Fields{
			"address": address,
			"source":  "cache",
		}).Debug("Found coordinates in cache")
		return coords[0], coords[1], nil
	}

	if err := g.wait(ctx); err != nil {
		return 0, 0, err
	}

	lat, lon, err := g.search(ctx, address)
	if err != nil {
		g.logger.WithError(err).WithField("address", address).Warn("Geocoding failed")
		return 0, 0, err
	}

	g.logger.WithFields(logrus.Fields{
		"address":   address,
		"latitude":  lat,
		"longitude": lon,
		"source":    "nominatim",
	}).Info("Successfully geocoded address")

	g.cacheLock.Lock()
	g.cache[key] = []float64{lat, lon}
	g.cacheLock.Unlock()
	g.saveCache()

	return lat, lon, nil
}

// wait blocks until MinInterval has passed since the previous upstream call
func (g *Geocoder) wait(ctx context.Context) error {
	g.rateLock.Lock()
	defer g.rateLock.Unlock()

	if delay := g.opts.MinInterval - time.Since(g.lastRequest); delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	g.lastRequest = time.Now()
	return nil
}

func (g *Geocoder) search(ctx context.Context, address string) (float64, float64, error) {
	params := url.Values{
		"q":      []string{address},
		"format": []string{"json"},
		"limit":  []string{"1"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, strings.TrimRight(g.opts.BaseURL, "/")+"/search", nil)
	if err != nil {
		return 0, 0, fmt.Errorf("failed to create request: %w", err)
	}
	req.URL.RawQuery = params.Encode()
	req.Header.Set("User-Agent", g.opts.UserAgent)

	resp, err := g.client.Do(req)
	if err != nil {
		return 0, 0, fmt.Errorf("geocoding request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, 0, fmt.Errorf("geocoding request failed with status %d", resp.StatusCode)
	}

	var result nominatimResponse
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return 0, 0, fmt.Errorf("failed to parse response: %w", err)
	}
	if len(result) == 0 {
		return 0, 0, fmt.Errorf("%s: %w", address, ErrNoResults)
	}

	lat, err := strconv.ParseFloat(result[0].Lat, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid latitude %q: %w", result[0].Lat, err)
	}
	lon, err := strconv.ParseFloat(result[0].Lon, 64)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid longitude %q: %w", result[0].Lon, err)
	}
	return lat, lon, nil
}
