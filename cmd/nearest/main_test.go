package main

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"market-finder/internal/config"
)

func TestParseFlagsRequiresTarget(t *testing.T) {
	_, err := parseFlags([]string{"--lat", "-6.2"}, config.Default())
	assert.Error(t, err)

	opts, err := parseFlags([]string{"--lat", "-6.2", "--lng", "106.8", "-n", "3", "--no-ga"}, config.Default())
	require.NoError(t, err)
	assert.Equal(t, -6.2, opts.lat)
	assert.Equal(t, 3, opts.limit)
	assert.True(t, opts.noGA)
	assert.False(t, opts.route)
}

func TestRunDemo(t *testing.T) {
	t.Chdir(t.TempDir())
	var out bytes.Buffer

	err := run([]string{"--demo", "--lat", "-7.7956", "--lng", "110.3695", "--limit", "3"}, &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Pasar Beringharjo")
	assert.Contains(t, out.String(), "0.00 km")
	assert.Contains(t, out.String(), "3 of 20 markets via nearest")
}

func TestRunSeedDemoDatabase(t *testing.T) {
	t.Chdir(t.TempDir())
	db := filepath.Join(t.TempDir(), "markets.db")
	var out bytes.Buffer

	err := run([]string{"--db", db, "--seed-demo", "--lat", "-6.1744", "--lng", "106.8294", "-n", "2"}, &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Pasar Tanah Abang")
	assert.Contains(t, out.String(), "2 of 20 markets")
}

func TestRunInvalidLimit(t *testing.T) {
	t.Chdir(t.TempDir())
	err := run([]string{"--demo", "--lat", "0", "--lng", "0", "--limit", "0"}, &bytes.Buffer{})
	assert.Error(t, err)
}

func TestRunAddress(t *testing.T) {
	t.Chdir(t.TempDir())
	nominatim := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Pasar Klewer, Solo", r.URL.Query().Get("q"))
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`[{"lat": "-7.5755", "lon": "110.8243", "display_name": "Pasar Klewer, Surakarta"}]`))
	}))
	defer nominatim.Close()
	t.Setenv("MARKETFINDER_GEOCODING__BASE_URL", nominatim.URL)

	var out bytes.Buffer
	err := run([]string{"--demo", "--address", "Pasar Klewer, Solo", "-n", "1"}, &out)

	require.NoError(t, err)
	assert.Contains(t, out.String(), "Resolved \"Pasar Klewer, Solo\" to Pasar Klewer, Surakarta")
	assert.Contains(t, out.String(), "Pasar Klewer")
}

func TestParseFlagsAddressExclusive(t *testing.T) {
	_, err := parseFlags([]string{"--address", "Bandung", "--lat", "1"}, config.Default())
	assert.Error(t, err)

	opts, err := parseFlags([]string{"-a", "Bandung"}, config.Default())
	require.NoError(t, err)
	assert.Equal(t, "Bandung", opts.address)
}
