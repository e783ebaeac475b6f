package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"
)

// ChannelReport summarizes one channel analysis.
type ChannelReport struct {
	Channel   string    `json:"channel" yaml:"channel"`
	Samples   int       `json:"samples" yaml:"samples"`
	Peaks     int       `json:"peaks" yaml:"peaks"`
	Troughs   int       `json:"troughs" yaml:"troughs"`
	Pulses    int       `json:"pulses" yaml:"pulses"`
	HeartRate float64   `json:"heartRate" yaml:"heartRate"`
	AC        []float64 `json:"ac" yaml:"ac"`
	DC        []float64 `json:"dc" yaml:"dc"`
}

// PairReport is the reading computed from a red and an infrared file.
type PairReport struct {
	R          float64            `json:"r" yaml:"r"`
	SpO2       float64            `json:"spo2" yaml:"spo2"`
	HeartRate  float64            `json:"hr" yaml:"hr"`
	HeartRates map[string]float64 `json:"heartRates" yaml:"heartRates"`
	Pulses     int                `json:"pulses" yaml:"pulses"`
}

// writeReport encodes v as YAML or indented JSON.
func writeReport(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
