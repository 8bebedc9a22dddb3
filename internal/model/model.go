package model

import (
	"fmt"
	"math"

	"frostwatch/internal/types"
)

// Prediction is the raw output of a station model for one target date:
// the regressed minimum temperature (no clamping; negative values represent
// frost) and the frost probability in [0, 1].
type Prediction struct {
	Temperature      float64
	FrostProbability float64
}

// StationModel wraps one trained temperature regressor and one trained frost
// classifier, each with its fitted scaler and ordered feature schema.
// A StationModel is immutable after construction and safe for unlimited
// concurrent use; Predict has no side effects.
type StationModel struct {
	temperature *linearModel
	frost       *linearModel
}

// NewStationModel builds a StationModel from a validated artifact bundle.
func NewStationModel(bundle *ArtifactBundle) *StationModel {
	return &StationModel{
		temperature: newLinearModel(&bundle.Temperature),
		frost:       newLinearModel(&bundle.Frost),
	}
}

// TemperatureFeatures returns the ordered feature schema of the temperature
// regressor.
func (m *StationModel) TemperatureFeatures() []string {
	return m.temperature.features
}

// FrostFeatures returns the ordered feature schema of the frost classifier.
// It is a superset of the temperature schema, extended with precipitation and
// maximum temperature features.
func (m *StationModel) FrostFeatures() []string {
	return m.frost.features
}

// Predict scores both models. tempVec and frostVec must match each model's
// schema exactly (names and order); any mismatch fails with
// feature_schema_mismatch since it indicates artifact drift.
//
// The frost classifier is a hard-margin linear classifier with no native
// probability output; its decision margin is mapped through the logistic
// sigmoid. This mapping is a fixed design choice, not a calibrated
// probability, and is pinned by tests.
func (m *StationModel) Predict(tempVec, frostVec types.FeatureVector) (Prediction, error) {
	temp, err := m.temperature.score(tempVec)
	if err != nil {
		return Prediction{}, err
	}
	margin, err := m.frost.score(frostVec)
	if err != nil {
		return Prediction{}, err
	}
	return Prediction{
		Temperature:      temp,
		FrostProbability: sigmoid(margin),
	}, nil
}

// sigmoid maps a decision margin to (0, 1).
func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

// linearModel is one fitted ridge model: standardize then dot product.
type linearModel struct {
	features  []string
	mean      []float64
	scale     []float64
	coef      []float64
	intercept float64
}

// newLinearModel copies artifact parameters so the model owns its state.
func newLinearModel(a *ModelArtifact) *linearModel {
	m := &linearModel{
		features:  append([]string(nil), a.Features...),
		mean:      append([]float64(nil), a.ScalerMean...),
		scale:     append([]float64(nil), a.ScalerScale...),
		coef:      append([]float64(nil), a.Coefficients...),
		intercept: a.Intercept,
	}
	// A zero scale denotes a constant training column; dividing by 1 keeps
	// the standardized value finite, matching scikit-learn's behavior.
	for i, s := range m.scale {
		if s == 0 {
			m.scale[i] = 1
		}
	}
	return m
}

// score validates the vector against the schema, applies the scaler, and
// returns the linear combination.
func (m *linearModel) score(vec types.FeatureVector) (float64, error) {
	if err := m.checkSchema(vec); err != nil {
		return 0, err
	}
	out := m.intercept
	for i, v := range vec.Values {
		out += m.coef[i] * (v - m.mean[i]) / m.scale[i]
	}
	return out, nil
}

// checkSchema verifies the vector's names equal the model's feature list in
// both content and order.
func (m *linearModel) checkSchema(vec types.FeatureVector) error {
	if len(vec.Names) != len(m.features) {
		return types.NewAppErrorWithDetails(
			types.ErrCodeFeatureSchemaMismatch,
			fmt.Sprintf("feature vector has %d features, model expects %d", len(vec.Names), len(m.features)),
			nil,
			map[string]any{"got": len(vec.Names), "want": len(m.features)},
		)
	}
	for i, name := range vec.Names {
		if name != m.features[i] {
			return types.NewAppErrorWithDetails(
				types.ErrCodeFeatureSchemaMismatch,
				fmt.Sprintf("feature %d is %q, model expects %q", i, name, m.features[i]),
				nil,
				map[string]any{"position": i, "got": name, "want": m.features[i]},
			)
		}
	}
	return nil
}
