// Package ppg implements the photoplethysmography signal pipeline used to
// estimate SpO2 and heart rate from a red and an infrared optical channel.
//
// The pipeline for a single channel submission is:
//
//	text → Decode → Filter → Extract → {HeartRate, ExtractACDC} → Measurement
//
// Two measurements (one per channel) are combined by Ratio into the
// ratio-of-ratios R, which SpO2 maps to an oxygen-saturation percentage.
//
// All functions are pure and safe for concurrent use. The sampling
// parameters shared by every stage live in a single Config value.
package ppg
