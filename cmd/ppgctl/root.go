package main

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/HatiCode/pulseox/pkg/ppg"
)

// options are the flags shared by every command.
type options struct {
	configFile    string
	output        string
	ratioFallback bool
}

// samplingFile is the YAML form of the pipeline configuration. Keys that
// are absent keep their default values.
type samplingFile struct {
	SampleInterval   time.Duration `yaml:"sampleInterval"`
	TrimHead         int           `yaml:"trimHead"`
	TrimTail         int           `yaml:"trimTail"`
	HighPassHz       float64       `yaml:"highPassHz"`
	LowPassHz        float64       `yaml:"lowPassHz"`
	DCBias           float64       `yaml:"dcBias"`
	ProminenceFactor float64       `yaml:"prominenceFactor"`
	Precision        int           `yaml:"precision"`
	RatioFallback    bool          `yaml:"ratioFallback"`
}

func newRootCmd() *cobra.Command {
	opts := &options{}

	root := &cobra.Command{
		Use:           "ppgctl",
		Short:         "Offline PPG analysis and oximeter client",
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			switch opts.output {
			case "yaml", "json":
				return nil
			default:
				return fmt.Errorf("invalid output format %q (must be yaml or json)", opts.output)
			}
		},
	}

	root.PersistentFlags().StringVarP(&opts.configFile, "config", "c", "",
		"YAML file overriding the sampling configuration")
	root.PersistentFlags().StringVarP(&opts.output, "output", "o", "yaml",
		"output format (yaml, json)")
	root.PersistentFlags().BoolVar(&opts.ratioFallback, "ratio-fallback", false,
		"use the unfiltered mean when every ratio is an outlier")

	root.AddCommand(
		newAnalyzeCmd(opts),
		newPairCmd(opts),
		newSubmitCmd(opts),
		newRetrieveCmd(opts),
	)

	return root
}

// pipeline builds a pipeline from the defaults and the optional config file.
func (o *options) pipeline() (*ppg.Pipeline, ppg.RatioPolicy, error) {
	def := ppg.DefaultConfig()
	file := samplingFile{
		SampleInterval:   def.SampleInterval,
		TrimHead:         def.TrimHead,
		TrimTail:         def.TrimTail,
		HighPassHz:       def.HighPassHz,
		LowPassHz:        def.LowPassHz,
		DCBias:           def.DCBias,
		ProminenceFactor: def.ProminenceFactor,
		Precision:        def.Precision,
	}

	if o.configFile != "" {
		data, err := os.ReadFile(o.configFile)
		if err != nil {
			return nil, ppg.RatioPolicy{}, fmt.Errorf("read config: %w", err)
		}
		if err := yaml.Unmarshal(data, &file); err != nil {
			return nil, ppg.RatioPolicy{}, fmt.Errorf("parse config %s: %w", o.configFile, err)
		}
	}

	cfg := ppg.Config{
		SampleInterval:   file.SampleInterval,
		TrimHead:         file.TrimHead,
		TrimTail:         file.TrimTail,
		HighPassHz:       file.HighPassHz,
		LowPassHz:        file.LowPassHz,
		DCBias:           file.DCBias,
		ProminenceFactor: file.ProminenceFactor,
		Precision:        file.Precision,
	}

	p, err := ppg.NewPipeline(cfg, 0)
	if err != nil {
		return nil, ppg.RatioPolicy{}, err
	}
	return p, ppg.RatioPolicy{FallbackToMean: o.ratioFallback || file.RatioFallback}, nil
}

// readSamples reads a sample file ("-" for stdin) and returns it as a
// comma-separated payload.
func readSamples(cmd *cobra.Command, path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(cmd.InOrStdin())
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("read samples: %w", err)
	}

	fields := strings.FieldsFunc(string(data), func(r rune) bool {
		return r == ',' || r == ' ' || r == '\t' || r == '\n' || r == '\r'
	})
	if len(fields) == 0 {
		return "", fmt.Errorf("%s: no samples", path)
	}
	return strings.Join(fields, ","), nil
}
