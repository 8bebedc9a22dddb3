package model

import (
	"fmt"
	"log/slog"

	"frostwatch/internal/types"
)

// Registry resolves a station code to the model pair that scores it: the
// primary station carries a dedicated bundle, every other known station
// shares the unified bundle. The registry is constructed once at startup and
// immutable afterward, so concurrent resolution needs no locking. It is
// always passed explicitly, never held as a package global.
type Registry struct {
	dedicated *StationModel
	unified   *StationModel
	stations  map[string]types.Station
	primary   string
}

// NewRegistry builds a Registry from loaded station models and the station
// metadata table. Exactly one station must be flagged as dedicated.
func NewRegistry(dedicated, unified *StationModel, stations []types.Station) (*Registry, error) {
	if dedicated == nil || unified == nil {
		return nil, fmt.Errorf("registry requires both dedicated and unified models")
	}
	byCode := make(map[string]types.Station, len(stations))
	primary := ""
	for _, st := range stations {
		if _, dup := byCode[st.Code]; dup {
			return nil, fmt.Errorf("duplicate station code %s", st.Code)
		}
		byCode[st.Code] = st
		if st.Dedicated {
			if primary != "" {
				return nil, fmt.Errorf("stations %s and %s both flagged dedicated", primary, st.Code)
			}
			primary = st.Code
		}
	}
	if primary == "" {
		return nil, fmt.Errorf("no station flagged as dedicated")
	}
	return &Registry{
		dedicated: dedicated,
		unified:   unified,
		stations:  byCode,
		primary:   primary,
	}, nil
}

// LoadRegistry loads both artifact bundles from disk and assembles the
// registry. Any artifact failure here is fatal to startup.
func LoadRegistry(dedicatedPath, unifiedPath string, stations []types.Station, logger *slog.Logger) (*Registry, error) {
	if logger == nil {
		logger = slog.Default()
	}

	dedBundle, err := LoadBundle(dedicatedPath)
	if err != nil {
		return nil, err
	}
	uniBundle, err := LoadBundle(unifiedPath)
	if err != nil {
		return nil, err
	}

	reg, err := NewRegistry(NewStationModel(dedBundle), NewStationModel(uniBundle), stations)
	if err != nil {
		return nil, types.NewAppError(types.ErrCodeInternalArtifact, "assembling model registry", err)
	}

	logger.Info("model registry loaded",
		"stations", len(stations),
		"primary_station", reg.primary,
		"dedicated_version", dedBundle.Version,
		"unified_version", uniBundle.Version,
	)
	return reg, nil
}

// Resolve returns the model pair for a station code. Unknown codes fail with
// unknown_station.
func (r *Registry) Resolve(stationCode string) (*StationModel, error) {
	st, ok := r.stations[stationCode]
	if !ok {
		return nil, types.NewAppErrorWithDetails(
			types.ErrCodeUnknownStation,
			fmt.Sprintf("station %s is not registered", stationCode),
			nil,
			map[string]any{"station_code": stationCode},
		)
	}
	if st.Dedicated {
		return r.dedicated, nil
	}
	return r.unified, nil
}

// Station returns the metadata record for a station code.
func (r *Registry) Station(stationCode string) (types.Station, error) {
	st, ok := r.stations[stationCode]
	if !ok {
		return types.Station{}, types.NewAppErrorWithDetails(
			types.ErrCodeUnknownStation,
			fmt.Sprintf("station %s is not registered", stationCode),
			nil,
			map[string]any{"station_code": stationCode},
		)
	}
	return st, nil
}

// Stations returns the station metadata table. Order is not guaranteed;
// callers sort if they need it.
func (r *Registry) Stations() []types.Station {
	out := make([]types.Station, 0, len(r.stations))
	for _, st := range r.stations {
		out = append(out, st)
	}
	return out
}

// PrimaryStation returns the station carrying the dedicated model.
func (r *Registry) PrimaryStation() types.Station {
	return r.stations[r.primary]
}
