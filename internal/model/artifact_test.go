package model

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"frostwatch/internal/types"
)

func bundleJSON(t *testing.T) []byte {
	t.Helper()
	data, err := json.Marshal(testBundle(0))
	require.NoError(t, err)
	return data
}

func TestParseBundle_Valid(t *testing.T) {
	bundle, err := ParseBundle(bundleJSON(t), "test.json")
	require.NoError(t, err)
	assert.Equal(t, "test-1", bundle.Version)
	assert.Equal(t, []string{"tmin_lag_1"}, bundle.Temperature.Features)
}

func TestParseBundle_Invalid(t *testing.T) {
	corrupt := func(mutate func(*ArtifactBundle)) []byte {
		b := testBundle(0)
		mutate(b)
		data, err := json.Marshal(b)
		require.NoError(t, err)
		return data
	}

	tests := []struct {
		name string
		data []byte
	}{
		{"not json", []byte("{{")},
		{"empty features", corrupt(func(b *ArtifactBundle) { b.Temperature.Features = nil })},
		{"scaler length mismatch", corrupt(func(b *ArtifactBundle) { b.Frost.ScalerMean = []float64{1, 2, 3} })},
		{"coefficient length mismatch", corrupt(func(b *ArtifactBundle) { b.Temperature.Coefficients = nil })},
		{"duplicate feature", corrupt(func(b *ArtifactBundle) {
			b.Frost.Features = []string{"tmin_lag_1", "tmin_lag_1"}
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseBundle(tt.data, "test.json")
			require.Error(t, err)

			var appErr *types.AppError
			require.ErrorAs(t, err, &appErr)
			assert.Equal(t, types.ErrCodeInternalArtifact, appErr.Code)
		})
	}
}

func TestLoadBundle_PlainJSON(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json")
	require.NoError(t, os.WriteFile(path, bundleJSON(t), 0o600))

	bundle, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, "test-1", bundle.Version)
}

func TestLoadBundle_Zstd(t *testing.T) {
	enc, err := zstd.NewWriter(nil)
	require.NoError(t, err)
	compressed := enc.EncodeAll(bundleJSON(t), nil)
	require.NoError(t, enc.Close())

	path := filepath.Join(t.TempDir(), "bundle.json.zst")
	require.NoError(t, os.WriteFile(path, compressed, 0o600))

	bundle, err := LoadBundle(path)
	require.NoError(t, err)
	assert.Equal(t, "test-1", bundle.Version)
}

func TestLoadBundle_MissingFile(t *testing.T) {
	_, err := LoadBundle(filepath.Join(t.TempDir(), "absent.json"))
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalArtifact, appErr.Code)
}

func TestLoadBundle_CorruptZstd(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bundle.json.zst")
	require.NoError(t, os.WriteFile(path, []byte("not zstd data"), 0o600))

	_, err := LoadBundle(path)
	var appErr *types.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, types.ErrCodeInternalArtifact, appErr.Code)
}
