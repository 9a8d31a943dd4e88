package main

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/danmuck/fastplan/internal/codec"
	"github.com/danmuck/fastplan/internal/config"
	"github.com/danmuck/fastplan/internal/logging"
	"github.com/danmuck/fastplan/internal/logging/logs"
	"github.com/danmuck/fastplan/internal/observability"
	"github.com/danmuck/fastplan/internal/plan"
	"github.com/danmuck/fastplan/internal/runner"
	"github.com/danmuck/fastplan/internal/sink"
	"github.com/danmuck/fastplan/internal/template"
)

// ErrUnitsFailed is returned when a run finished with failed units.
var ErrUnitsFailed = errors.New("units failed")

func newRootCmd() *cobra.Command {
	var logLevel string
	root := &cobra.Command{
		Use:           "fastplan",
		Short:         "Compile FAST conformance test plans into frames and replay or capture them",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			if logLevel != "" && !logging.SetLevel(logLevel) {
				return fmt.Errorf("unknown log level %q", logLevel)
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level (trace|debug|info|warn|error|disabled)")

	root.AddCommand(
		newRunCmd(),
		newValidateCmd(),
		newReceiveCmd(),
		newTemplatesCmd(),
		newInitCmd(),
		newConfigCmd(),
	)
	return root
}

func newRunCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Send every unit of a plan through the selected transport",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveRun(cmd, flags)
			if err != nil {
				return err
			}
			if err := config.ValidateRun(cfg); err != nil {
				return err
			}
			p, err := loadPlan(cfg)
			if err != nil {
				return err
			}
			s, err := sink.Open(config.SinkOptions(cfg, cmd.OutOrStdout()))
			if err != nil {
				return fmt.Errorf("open %s sink: %w", cfg.Transport, err)
			}
			sum, runErr := runner.New(s, runner.WithTransport(string(cfg.Transport))).Run(cmd.Context(), p)
			if err := s.Close(); err != nil {
				logs.Warnf("fastplan.run close sink: %v", err)
			}
			if cfg.MetricsFile != "" {
				if err := observability.WriteTextfile(cfg.MetricsFile); err != nil {
					logs.Warnf("fastplan.run write metrics file=%s: %v", cfg.MetricsFile, err)
				}
			}
			printSummary(cmd.ErrOrStderr(), sum)
			if runErr != nil {
				return runErr
			}
			if sum.Failed > 0 {
				return fmt.Errorf("%w: %d of %d", ErrUnitsFailed, sum.Failed, sum.Units)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newValidateCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "validate",
		Short: "Parse a plan and encode every unit without sending anything",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveRun(cmd, flags)
			if err != nil {
				return err
			}
			if strings.TrimSpace(cfg.PlanFile) == "" {
				return &config.ValidationError{Field: "plan_file", Reason: "is required"}
			}
			p, err := loadPlan(cfg)
			if err != nil {
				return err
			}
			sum, err := runner.New(sink.NewRaw(io.Discard, ""), runner.WithTransport("validate")).Run(cmd.Context(), p)
			if err != nil {
				return err
			}
			for _, ue := range sum.Errors {
				fmt.Fprintf(cmd.OutOrStdout(), "%v\n", ue)
			}
			printSummary(cmd.ErrOrStderr(), sum)
			if sum.Failed > 0 {
				return fmt.Errorf("%w: %d of %d", ErrUnitsFailed, sum.Failed, sum.Units)
			}
			return nil
		},
	}
	flags.bind(cmd)
	return cmd
}

func newReceiveCmd() *cobra.Command {
	var (
		host   string
		port   int
		sep    string
		decode bool
	)
	cmd := &cobra.Command{
		Use:   "receive",
		Short: "Print datagrams arriving on a UDP port as binary text",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if port < 1 || port > 65535 {
				return &config.ValidationError{Field: "port", Reason: fmt.Sprintf("%d is outside 1..65535", port)}
			}
			r, err := sink.NewReceiver(host, port)
			if err != nil {
				return err
			}
			defer r.Close()
			out := sink.NewASCII(cmd.OutOrStdout(), sep)
			defer out.Close()
			return r.Serve(cmd.Context(), func(d []byte) error {
				if decode {
					if frame, err := codec.Unmarshal(d); err == nil {
						logs.Infof("fastplan.receive template=%d fields=%d", frame.Header.TemplateID, len(frame.Fields))
					} else {
						logs.Debugf("fastplan.receive not a frame: %v", err)
					}
				}
				if err := out.Accept(d); err != nil {
					return err
				}
				return out.EndFrame()
			})
		},
	}
	cmd.Flags().StringVar(&host, "host", "", "address to bind (default all interfaces)")
	cmd.Flags().IntVarP(&port, "port", "n", 0, "UDP port to listen on (required)")
	cmd.Flags().StringVar(&sep, "separator", config.DefaultSeparator, "text written after every byte")
	cmd.Flags().BoolVar(&decode, "decode", false, "log the frame header of every datagram")
	_ = cmd.MarkFlagRequired("port")
	return cmd
}

func newTemplatesCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "templates FILE...",
		Short: "List the templates defined in template files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			reg, err := template.LoadRegistry(args...)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, tpl := range reg.List() {
				fmt.Fprintf(out, "%d\t%s\n", tpl.ID, tpl.Name)
				printFields(out, tpl.Fields, "  ")
			}
			return nil
		},
	}
}

func newInitCmd() *cobra.Command {
	var force bool
	cmd := &cobra.Command{
		Use:   "init [DIR]",
		Short: "Write a starter config, template file and plan",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := "."
			if len(args) == 1 {
				dir = args[0]
			}
			if err := os.MkdirAll(dir, 0o755); err != nil {
				return err
			}
			files := []struct{ name, kind string }{
				{"fastplan.toml", "run"},
				{"templates.xml", "templates"},
				{"plan.xml", "plan"},
			}
			for _, f := range files {
				path := filepath.Join(dir, f.name)
				if err := config.WriteTemplate(path, f.kind, force); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", path)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	return cmd
}

func newConfigCmd() *cobra.Command {
	flags := &runFlags{}
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Print the effective run configuration",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := resolveRun(cmd, flags)
			if err != nil {
				return err
			}
			out, err := config.Render(cfg)
			if err != nil {
				return err
			}
			_, err = cmd.OutOrStdout().Write(out)
			return err
		},
	}
	flags.bind(cmd)
	return cmd
}

func loadPlan(cfg config.Run) (*plan.Plan, error) {
	reg, err := template.LoadRegistry(cfg.TemplateFiles...)
	if err != nil {
		return nil, err
	}
	return plan.ParseFile(cfg.PlanFile, reg)
}

func printFields(w io.Writer, fields []template.Field, indent string) {
	for i, f := range fields {
		opt := ""
		if f.Optional {
			opt = " optional"
		}
		fmt.Fprintf(w, "%s%d %s %s%s\n", indent, i, f.Name, f.Kind, opt)
		if f.Kind.Composite() {
			printFields(w, f.Fields, indent+"  ")
		}
	}
}

func printSummary(w io.Writer, sum runner.Summary) {
	fmt.Fprintf(w, "run %s: units=%d sent=%d failed=%d bytes=%d duration=%s\n",
		sum.RunID, sum.Units, sum.Sent, sum.Failed, sum.Bytes, sum.Duration)
}
