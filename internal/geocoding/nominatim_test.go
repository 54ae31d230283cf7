package geocoding

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/goccy/go-json"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestGeocoder(url string) Geocoder {
	return NewNominatimGeocoder(Config{
		BaseURL:      url,
		CountryCodes: "id",
		Timeout:      2 * time.Second,
		RateLimit:    1000, // Fast rate limit for testing
	})
}

func respond(w http.ResponseWriter, results []nominatimResponse) {
	w.Header().Set("Content-Type", "application/json")
	json.NewEncoder(w).Encode(results)
}

func TestNominatimGeocodeSuccess(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/search", r.URL.Path)
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		assert.Equal(t, "1", r.URL.Query().Get("limit"))
		assert.Equal(t, "id", r.URL.Query().Get("countrycodes"))
		assert.Equal(t, "Pasar Minggu, Jakarta", r.URL.Query().Get("q"))
		assert.Equal(t, userAgent, r.Header.Get("User-Agent"))

		respond(w, []nominatimResponse{
			{Lat: "-6.2854", Lon: "106.8415", DisplayName: "Pasar Minggu, Jakarta Selatan"},
		})
	}))
	defer server.Close()

	result, err := newTestGeocoder(server.URL).Geocode(context.Background(), "Pasar Minggu, Jakarta")

	require.NoError(t, err)
	assert.Equal(t, -6.2854, result.Coords.Lat)
	assert.Equal(t, 106.8415, result.Coords.Lng)
	assert.Equal(t, "Pasar Minggu, Jakarta Selatan", result.DisplayName)
}

func TestNominatimGeocodeFailures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
		reason  string
	}{
		{
			name:    "not found",
			handler: func(w http.ResponseWriter, r *http.Request) { respond(w, []nominatimResponse{}) },
			reason:  "no results found",
		},
		{
			name: "http error",
			handler: func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusInternalServerError)
				w.Write([]byte("Internal Server Error"))
			},
			reason: "HTTP 500",
		},
		{
			name: "invalid latitude",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respond(w, []nominatimResponse{{Lat: "north", Lon: "106.8"}})
			},
			reason: "invalid latitude",
		},
		{
			name: "latitude out of range",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respond(w, []nominatimResponse{{Lat: "95.1", Lon: "106.8"}})
			},
			reason: "coordinates out of range",
		},
		{
			name: "longitude out of range",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respond(w, []nominatimResponse{{Lat: "-6.2", Lon: "-180.5"}})
			},
			reason: "coordinates out of range",
		},
		{
			name: "invalid longitude",
			handler: func(w http.ResponseWriter, r *http.Request) {
				respond(w, []nominatimResponse{{Lat: "-6.2", Lon: ""}})
			},
			reason: "invalid longitude",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			server := httptest.NewServer(tt.handler)
			defer server.Close()

			result, err := newTestGeocoder(server.URL).Geocode(context.Background(), "Somewhere")

			require.Error(t, err)
			assert.Nil(t, result)
			var gerr *ErrGeocodingFailed
			require.ErrorAs(t, err, &gerr)
			assert.Contains(t, gerr.Reason, tt.reason)
		})
	}
}

func TestNominatimGeocodeInvalidJSON(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte("invalid json"))
	}))
	defer server.Close()

	_, err := newTestGeocoder(server.URL).Geocode(context.Background(), "Test Address")

	var gerr *ErrGeocodingFailed
	require.ErrorAs(t, err, &gerr)
}

func TestNominatimSearchSkipsInvalid(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "3", r.URL.Query().Get("limit"))
		respond(w, []nominatimResponse{
			{Lat: "-6.1744", Lon: "106.8294", DisplayName: "Tanah Abang"},
			{Lat: "bad", Lon: "106.8", DisplayName: "Broken"},
			{Lat: "-6.2", Lon: "NaN", DisplayName: "Nowhere"},
			{Lat: "-6.2854", Lon: "106.8415", DisplayName: "Pasar Minggu"},
		})
	}))
	defer server.Close()

	results, err := newTestGeocoder(server.URL).Search(context.Background(), "pasar", 3)

	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "Tanah Abang", results[0].DisplayName)
	assert.Equal(t, "Pasar Minggu", results[1].DisplayName)
}

func TestNominatimRespectsContext(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		respond(w, []nominatimResponse{{Lat: "0", Lon: "0"}})
	}))
	defer server.Close()

	g := NewNominatimGeocoder(Config{BaseURL: server.URL, RateLimit: 0.001})
	_, err := g.Geocode(context.Background(), "first")
	require.NoError(t, err)

	ctx, cancel := context.WithTimeout(context.Background(), 50*time.Millisecond)
	defer cancel()
	_, err = g.Geocode(ctx, "second")
	assert.Error(t, err, "second call waits on the limiter and gives up with the context")
}
