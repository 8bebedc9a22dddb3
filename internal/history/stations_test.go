package history

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const stationsCSV = `code,name,lat,lon,altitude_m,dedicated
21205880,Flores Chibcha,4.7336,-74.2639,2550,true
21205710,La Esperanza,4.8047,-74.3011,2580,false
`

func TestReadStationsCSV(t *testing.T) {
	stations, err := ReadStationsCSV(strings.NewReader(stationsCSV))
	require.NoError(t, err)
	require.Len(t, stations, 2)

	assert.Equal(t, "21205880", stations[0].Code)
	assert.Equal(t, "Flores Chibcha", stations[0].Name)
	assert.InDelta(t, 4.7336, stations[0].Latitude, 1e-12)
	assert.InDelta(t, -74.2639, stations[0].Longitude, 1e-12)
	assert.InDelta(t, 2550.0, stations[0].Altitude, 1e-12)
	assert.True(t, stations[0].Dedicated)
	assert.False(t, stations[1].Dedicated)
}

func TestReadStationsCSV_Errors(t *testing.T) {
	tests := []struct {
		name string
		csv  string
	}{
		{"bad header", "a,b,c,d,e,f\n"},
		{"empty file body", "code,name,lat,lon,altitude_m,dedicated\n"},
		{"bad latitude", "code,name,lat,lon,altitude_m,dedicated\nX,Test,north,-74,2550,true\n"},
		{"bad dedicated flag", "code,name,lat,lon,altitude_m,dedicated\nX,Test,4.7,-74,2550,maybe\n"},
		{"wrong field count", "code,name,lat,lon,altitude_m,dedicated\nX,Test,4.7\n"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ReadStationsCSV(strings.NewReader(tt.csv))
			assert.Error(t, err)
		})
	}
}
