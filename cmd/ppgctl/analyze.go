package main

import (
	"encoding/csv"
	"fmt"
	"os"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/HatiCode/pulseox/pkg/ppg"
)

func newAnalyzeCmd(opts *options) *cobra.Command {
	var (
		channel   string
		dumpTrace string
	)

	cmd := &cobra.Command{
		Use:   "analyze --channel red|ir FILE",
		Short: "Run the pipeline on one channel's samples",
		Long: `Decode, filter and measure one channel. Prints the detected peaks,
troughs, per-pulse AC/DC values and the heart rate. --dump-trace writes the
filtered trace with peak and trough markers as CSV for plotting.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := ppg.ParseChannel(channel)
			if err != nil {
				return err
			}
			p, _, err := opts.pipeline()
			if err != nil {
				return err
			}
			payload, err := readSamples(cmd, args[0])
			if err != nil {
				return err
			}

			a, err := p.Analyze(ch, payload)
			if err != nil {
				return err
			}

			if dumpTrace != "" {
				if err := writeTrace(dumpTrace, a); err != nil {
					return err
				}
			}

			m := a.Measurement
			return writeReport(cmd.OutOrStdout(), opts.output, ChannelReport{
				Channel:   ch.String(),
				Samples:   a.Samples,
				Peaks:     len(a.Extrema.Peaks),
				Troughs:   len(a.Extrema.Troughs),
				Pulses:    m.Pulses(),
				HeartRate: m.HeartRate,
				AC:        m.AC,
				DC:        m.DC,
			})
		},
	}

	cmd.Flags().StringVar(&channel, "channel", "", "channel of the samples: red, ir or infrared")
	cmd.Flags().StringVar(&dumpTrace, "dump-trace", "", "write the filtered trace as CSV to this file")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}

// writeTrace writes time,value,peak,trough rows for the filtered trace.
func writeTrace(path string, a ppg.Analysis) (err error) {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create trace file: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil {
			err = cerr
		}
	}()

	peaks := indexSet(a.Extrema.Peaks)
	troughs := indexSet(a.Extrema.Troughs)

	w := csv.NewWriter(f)
	if err := w.Write([]string{"time", "value", "peak", "trough"}); err != nil {
		return err
	}
	for i, v := range a.Trace.Values {
		row := []string{
			strconv.FormatFloat(a.Trace.Times[i], 'f', 3, 64),
			strconv.FormatFloat(v, 'f', 6, 64),
			strconv.FormatBool(peaks[i]),
			strconv.FormatBool(troughs[i]),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}
	w.Flush()
	return w.Error()
}

func indexSet(idx []int) map[int]bool {
	set := make(map[int]bool, len(idx))
	for _, i := range idx {
		set[i] = true
	}
	return set
}
