package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/HatiCode/pulseox/pkg/oximeter"
	"github.com/HatiCode/pulseox/pkg/ppg"
)

func newPairCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "pair RED_FILE IR_FILE",
		Short: "Compute SpO2 and heart rate from a red and an infrared file",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			p, policy, err := opts.pipeline()
			if err != nil {
				return err
			}

			ox := oximeter.New(policy)
			var out oximeter.Outcome
			for i, ch := range []ppg.Channel{ppg.Red, ppg.Infrared} {
				payload, err := readSamples(cmd, args[i])
				if err != nil {
					return err
				}
				a, err := p.Analyze(ch, payload)
				if err != nil {
					return err
				}
				if out, err = ox.Submit(a.Measurement); err != nil {
					return err
				}
			}
			if !out.Paired {
				return fmt.Errorf("channels did not pair")
			}

			res := ox.Retrieve()
			return writeReport(cmd.OutOrStdout(), opts.output, PairReport{
				R:         res.R,
				SpO2:      res.SpO2,
				HeartRate: res.HeartRate,
				HeartRates: map[string]float64{
					ppg.Red.String():      res.HeartRates.Red,
					ppg.Infrared.String(): res.HeartRates.Infrared,
				},
				Pulses: out.Pulses,
			})
		},
	}
}
