package types

// RiskLevel is the five-tier frost risk category derived from the predicted
// minimum temperature. Levels are ordered from most to least severe.
type RiskLevel string

const (
	RiskMuyAlto RiskLevel = "MUY_ALTO"
	RiskAlto    RiskLevel = "ALTO"
	RiskMedio   RiskLevel = "MEDIO"
	RiskBajo    RiskLevel = "BAJO"
	RiskMuyBajo RiskLevel = "MUY_BAJO"
)

// Fixed temperature thresholds (degrees Celsius) separating the risk tiers.
// These match the operational alerting table and must not drift from it.
const (
	ThresholdMuyAlto = -2.0
	ThresholdAlto    = 0.0
	ThresholdMedio   = 2.0
	ThresholdBajo    = 4.0
)

// RiskLevelForTemperature derives the risk level from a predicted minimum
// temperature:
//
//	T <= -2        MUY_ALTO
//	-2 < T <= 0    ALTO
//	 0 < T <= 2    MEDIO
//	 2 < T <= 4    BAJO
//	 T > 4         MUY_BAJO
func RiskLevelForTemperature(tempC float64) RiskLevel {
	switch {
	case tempC <= ThresholdMuyAlto:
		return RiskMuyAlto
	case tempC <= ThresholdAlto:
		return RiskAlto
	case tempC <= ThresholdMedio:
		return RiskMedio
	case tempC <= ThresholdBajo:
		return RiskBajo
	default:
		return RiskMuyBajo
	}
}

// Severity returns a numeric rank for ordering risk levels; higher is more
// severe. Unknown levels rank lowest.
func (r RiskLevel) Severity() int {
	switch r {
	case RiskMuyAlto:
		return 5
	case RiskAlto:
		return 4
	case RiskMedio:
		return 3
	case RiskBajo:
		return 2
	case RiskMuyBajo:
		return 1
	default:
		return 0
	}
}
