package main

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/HatiCode/pulseox/pkg/httpx"
	"github.com/HatiCode/pulseox/pkg/ppg"
	"github.com/HatiCode/pulseox/pkg/tls"
)

// remoteOptions are the flags of commands that talk to an oximeter.
type remoteOptions struct {
	server  string
	timeout time.Duration
	tls     tls.Config
}

func (r *remoteOptions) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&r.server, "server", "http://localhost:5000", "oximeter base URL")
	cmd.Flags().DurationVar(&r.timeout, "timeout", 10*time.Second, "request timeout")
	cmd.Flags().StringVar(&r.tls.CAFile, "tls-ca-file", "", "CA used to verify the server")
	cmd.Flags().StringVar(&r.tls.CertFile, "tls-cert-file", "", "client certificate for mutual TLS")
	cmd.Flags().StringVar(&r.tls.KeyFile, "tls-key-file", "", "client key for mutual TLS")
}

func (r *remoteOptions) client() (*http.Client, error) {
	cfg := r.tls
	cfg.Enabled = strings.HasPrefix(r.server, "https://")
	return httpx.NewClient(cfg, r.timeout)
}

func (r *remoteOptions) url(path string) string {
	return strings.TrimSuffix(r.server, "/") + path
}

type submitRequest struct {
	Indicator  string `json:"indicator"`
	DataString string `json:"dataString"`
}

func newSubmitCmd(opts *options) *cobra.Command {
	var (
		remote  remoteOptions
		channel string
	)

	cmd := &cobra.Command{
		Use:   "submit --channel red|ir FILE",
		Short: "Send one channel's samples to an oximeter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ch, err := ppg.ParseChannel(channel)
			if err != nil {
				return err
			}
			payload, err := readSamples(cmd, args[0])
			if err != nil {
				return err
			}
			client, err := remote.client()
			if err != nil {
				return err
			}

			body, err := json.Marshal(submitRequest{Indicator: ch.String(), DataString: payload})
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodPost, remote.url("/send_data"), bytes.NewReader(body))
			if err != nil {
				return err
			}
			req.Header.Set("Content-Type", "application/json")

			var resp map[string]any
			if err := do(client, req, &resp); err != nil {
				return err
			}
			return writeReport(cmd.OutOrStdout(), opts.output, resp)
		},
	}

	remote.register(cmd)
	cmd.Flags().StringVar(&channel, "channel", "", "channel of the samples: red, ir or infrared")
	_ = cmd.MarkFlagRequired("channel")

	return cmd
}

func newRetrieveCmd(opts *options) *cobra.Command {
	var remote remoteOptions

	cmd := &cobra.Command{
		Use:   "retrieve",
		Short: "Fetch the current reading from an oximeter",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := remote.client()
			if err != nil {
				return err
			}

			req, err := http.NewRequestWithContext(cmd.Context(), http.MethodGet, remote.url("/retrieve_data"), nil)
			if err != nil {
				return err
			}

			var reading struct {
				SpO2    float64 `json:"spo2" yaml:"spo2"`
				HR      float64 `json:"hr" yaml:"hr"`
				Pending bool    `json:"pending" yaml:"pending"`
			}
			resp, err := doResponse(client, req, &reading)
			if err != nil {
				return err
			}
			reading.Pending = resp.Header.Get("X-Oximeter-Pending") == "true"

			return writeReport(cmd.OutOrStdout(), opts.output, reading)
		},
	}

	remote.register(cmd)
	return cmd
}

func do(client *http.Client, req *http.Request, v any) error {
	_, err := doResponse(client, req, v)
	return err
}

// doResponse sends req and decodes a 200 JSON body into v. Other statuses
// are returned as errors carrying the server's error message.
func doResponse(client *http.Client, req *http.Request, v any) (*http.Response, error) {
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", req.Method, req.URL, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var e httpx.ErrorResponse
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			return nil, fmt.Errorf("server returned %d: %s", resp.StatusCode, e.Error)
		}
		return nil, fmt.Errorf("server returned %d", resp.StatusCode)
	}

	if err := json.Unmarshal(data, v); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return resp, nil
}
