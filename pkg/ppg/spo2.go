package ppg

// Calibration curve coefficients: SpO2 = A·R² + B·R + C.
const (
	calibrationA = -40.22
	calibrationB = 24.67
	calibrationC = 96.06
)

// SpO2 maps a ratio of ratios to an oxygen saturation percentage.
// Values outside the physiological range are returned unchanged.
func SpO2(r float64) float64 {
	return calibrationA*r*r + calibrationB*r + calibrationC
}
