package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/danmuck/fastplan/internal/config"
	"github.com/danmuck/fastplan/internal/logging"
	"github.com/danmuck/fastplan/internal/sink"
)

// runFlags mirrors config.Run. A flag only overrides the file when it was
// set on the command line.
type runFlags struct {
	configPath     string
	planFile       string
	templateFiles  []string
	transport      string
	host           string
	port           int
	captureFile    string
	maxFrameSize   int
	receiveTimeout time.Duration
	separator      string
	metricsFile    string
}

func (f *runFlags) bind(cmd *cobra.Command) {
	fs := cmd.Flags()
	fs.StringVarP(&f.configPath, "config", "c", "", "path to fastplan.toml")
	fs.StringVarP(&f.planFile, "plan", "p", "", "test plan XML file")
	fs.StringSliceVarP(&f.templateFiles, "templates", "t", nil, "template XML files (repeatable or comma separated)")
	fs.StringVar(&f.transport, "transport", string(config.DefaultTransport), fmt.Sprintf("one of %v", sink.Transports()))
	fs.StringVar(&f.host, "host", config.DefaultHost, "remote host for the send transport")
	fs.IntVarP(&f.port, "port", "n", 0, "port for udp, tcp, send and pcap transports")
	fs.StringVarP(&f.captureFile, "pcap", "P", "", "capture file for the pcap transport")
	fs.IntVar(&f.maxFrameSize, "max-frame", config.DefaultMaxFrameSize, "largest frame in bytes")
	fs.DurationVar(&f.receiveTimeout, "timeout", config.DefaultReceiveTimeout, "loopback receive deadline per frame (0 disables)")
	fs.StringVar(&f.separator, "separator", config.DefaultSeparator, "text written after every byte by ascii and raw transports")
	fs.StringVar(&f.metricsFile, "metrics-file", "", "write prometheus metrics to this file after the run")
}

// resolveRun loads the config file, if any, then applies changed flags.
func resolveRun(cmd *cobra.Command, f *runFlags) (config.Run, error) {
	cfg := config.DefaultRun()
	if path := strings.TrimSpace(f.configPath); path != "" {
		loaded, err := config.LoadRun(path)
		if err != nil {
			return config.Run{}, err
		}
		cfg = loaded
		if cfg.LogLevel != "" && !cmd.Flags().Changed("log-level") && !logging.SetLevel(cfg.LogLevel) {
			return config.Run{}, &config.ValidationError{Field: "log_level", Reason: fmt.Sprintf("%q is unknown", cfg.LogLevel)}
		}
	}

	fs := cmd.Flags()
	if fs.Changed("plan") {
		cfg.PlanFile = strings.TrimSpace(f.planFile)
	}
	if fs.Changed("templates") {
		cfg.TemplateFiles = append([]string(nil), f.templateFiles...)
	}
	if fs.Changed("transport") {
		t, err := sink.ParseTransport(f.transport)
		if err != nil {
			return config.Run{}, err
		}
		cfg.Transport = t
	}
	if fs.Changed("host") {
		cfg.Host = strings.TrimSpace(f.host)
	}
	if fs.Changed("port") {
		cfg.Port = f.port
	}
	if fs.Changed("pcap") {
		cfg.CaptureFile = strings.TrimSpace(f.captureFile)
		// -P alone selects the capture transport.
		if !fs.Changed("transport") {
			cfg.Transport = sink.TransportCapture
		}
	}
	if fs.Changed("max-frame") {
		cfg.MaxFrameSize = f.maxFrameSize
	}
	if fs.Changed("timeout") {
		cfg.ReceiveTimeout = f.receiveTimeout
	}
	if fs.Changed("separator") {
		cfg.Separator = f.separator
	}
	if fs.Changed("metrics-file") {
		cfg.MetricsFile = strings.TrimSpace(f.metricsFile)
	}
	return cfg, nil
}
