// Package model wraps the pre-trained per-station regression and
// classification artifacts: standard scalers, ridge coefficient vectors, and
// the exact ordered feature list each model was fitted with. Artifacts are
// opaque versioned blobs loaded once at startup and never mutated at
// inference time.
package model

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"

	"frostwatch/internal/types"
)

// ArtifactBundle is the on-disk representation of one station group's trained
// model pair. Bundles are JSON, optionally zstd-compressed (".json.zst"),
// exported by the offline training pipeline.
type ArtifactBundle struct {
	Version     string        `json:"version"`
	Temperature ModelArtifact `json:"temperature"`
	Frost       ModelArtifact `json:"frost"`
}

// ModelArtifact holds one fitted linear model: the ordered feature schema,
// the standard scaler parameters, and the ridge coefficient vector. The
// feature list is explicit data, never inferred from model internals.
type ModelArtifact struct {
	Features     []string  `json:"features"`
	ScalerMean   []float64 `json:"scaler_mean"`
	ScalerScale  []float64 `json:"scaler_scale"`
	Coefficients []float64 `json:"coefficients"`
	Intercept    float64   `json:"intercept"`
}

// validate checks the internal consistency of a model artifact: every
// parallel array must match the feature schema length.
func (a *ModelArtifact) validate(kind string) error {
	n := len(a.Features)
	if n == 0 {
		return fmt.Errorf("%s model: empty feature list", kind)
	}
	if len(a.ScalerMean) != n || len(a.ScalerScale) != n {
		return fmt.Errorf("%s model: scaler length %d/%d does not match %d features",
			kind, len(a.ScalerMean), len(a.ScalerScale), n)
	}
	if len(a.Coefficients) != n {
		return fmt.Errorf("%s model: %d coefficients for %d features", kind, len(a.Coefficients), n)
	}
	seen := make(map[string]struct{}, n)
	for _, f := range a.Features {
		if _, dup := seen[f]; dup {
			return fmt.Errorf("%s model: duplicate feature %q", kind, f)
		}
		seen[f] = struct{}{}
	}
	return nil
}

// LoadBundle reads and validates an artifact bundle from disk. A ".zst"
// suffix selects zstd decompression. Any read, decode, or consistency failure
// is fatal to startup; artifacts are never retried per-request.
func LoadBundle(path string) (*ArtifactBundle, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalArtifact,
			fmt.Sprintf("reading model artifact %s", path),
			err,
		)
	}

	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(nil, zstd.WithDecoderConcurrency(1))
		if err != nil {
			return nil, types.NewAppError(types.ErrCodeInternalArtifact, "creating zstd decoder", err)
		}
		defer dec.Close()
		raw, err = dec.DecodeAll(raw, nil)
		if err != nil {
			return nil, types.NewAppError(
				types.ErrCodeInternalArtifact,
				fmt.Sprintf("decompressing model artifact %s", path),
				err,
			)
		}
	}

	return ParseBundle(raw, path)
}

// ParseBundle decodes and validates a JSON artifact bundle. The name is used
// only for error messages.
func ParseBundle(data []byte, name string) (*ArtifactBundle, error) {
	var bundle ArtifactBundle
	if err := json.Unmarshal(data, &bundle); err != nil {
		return nil, types.NewAppError(
			types.ErrCodeInternalArtifact,
			fmt.Sprintf("parsing model artifact %s", name),
			err,
		)
	}
	if err := bundle.Temperature.validate("temperature"); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalArtifact, fmt.Sprintf("artifact %s: %v", name, err), err)
	}
	if err := bundle.Frost.validate("frost"); err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalArtifact, fmt.Sprintf("artifact %s: %v", name, err), err)
	}
	return &bundle, nil
}
