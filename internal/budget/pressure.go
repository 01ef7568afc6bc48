package budget

// ClassifyPressure maps current consumption to an ordinal pressure level.
// Thresholds are fractions of maxWeight; the boundary value itself belongs
// to the higher level. A non-positive maxWeight classifies as normal.
func ClassifyPressure(currentWeight, maxWeight int, warningThreshold, criticalThreshold float64) Pressure {
	if maxWeight <= 0 {
		return PressureNormal
	}
	ratio := float64(currentWeight) / float64(maxWeight)
	switch {
	case ratio >= criticalThreshold:
		return PressureCritical
	case ratio >= warningThreshold:
		return PressureWarning
	default:
		return PressureNormal
	}
}

// pressureChanged reports a transition between two evaluations. The monitor
// notifies on transitions only, not on every evaluation at the same level.
func pressureChanged(previous, current Pressure) bool {
	return previous != current
}
