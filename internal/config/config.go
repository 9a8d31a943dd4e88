package config

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	pelletier "github.com/pelletier/go-toml/v2"

	"github.com/danmuck/fastplan/internal/sink"
)

// Defaults for a run.
const (
	DefaultTransport      = sink.TransportASCII
	DefaultHost           = "127.0.0.1"
	DefaultMaxFrameSize   = 10 * 1024 * 1024
	DefaultReceiveTimeout = 2 * time.Second
	DefaultSeparator      = "\n"
)

var (
	ErrUnknownKey = errors.New("config: unknown key")
	ErrDuration   = errors.New("config: invalid duration")
)

// Run is the effective configuration of one fastplan invocation.
type Run struct {
	PlanFile       string
	TemplateFiles  []string
	Transport      sink.Transport
	Host           string
	Port           int
	CaptureFile    string
	MaxFrameSize   int
	ReceiveTimeout time.Duration
	Separator      string
	MetricsFile    string
	LogLevel       string
}

// fileConfig is the fastplan.toml key mapping.
type fileConfig struct {
	PlanFile       string   `toml:"plan_file"`
	TemplateFiles  []string `toml:"template_files"`
	Transport      string   `toml:"transport"`
	Host           string   `toml:"host"`
	Port           int      `toml:"port"`
	CaptureFile    string   `toml:"capture_file"`
	MaxFrameSize   int      `toml:"max_frame_size"`
	ReceiveTimeout string   `toml:"receive_timeout"`
	Separator      string   `toml:"separator"`
	MetricsFile    string   `toml:"metrics_file"`
	LogLevel       string   `toml:"log_level"`
}

// ValidationError names the offending setting.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("config: %s %s", e.Field, e.Reason)
}

func DefaultRun() Run {
	return Run{
		Transport:      DefaultTransport,
		Host:           DefaultHost,
		MaxFrameSize:   DefaultMaxFrameSize,
		ReceiveTimeout: DefaultReceiveTimeout,
		Separator:      DefaultSeparator,
	}
}

// LoadRun overlays the keys defined in path onto DefaultRun. Relative file
// paths resolve against the config file's directory.
func LoadRun(path string) (Run, error) {
	cfg := DefaultRun()

	var raw fileConfig
	meta, err := toml.DecodeFile(path, &raw)
	if err != nil {
		return Run{}, fmt.Errorf("load run config: %w", err)
	}
	if undecoded := meta.Undecoded(); len(undecoded) > 0 {
		return Run{}, fmt.Errorf("load run config: %w: %s", ErrUnknownKey, undecoded[0])
	}

	base := filepath.Dir(path)
	if meta.IsDefined("plan_file") {
		cfg.PlanFile = resolve(base, raw.PlanFile)
	}
	if meta.IsDefined("template_files") {
		cfg.TemplateFiles = make([]string, 0, len(raw.TemplateFiles))
		for _, f := range raw.TemplateFiles {
			cfg.TemplateFiles = append(cfg.TemplateFiles, resolve(base, f))
		}
	}
	if meta.IsDefined("transport") {
		cfg.Transport = sink.Transport(strings.ToLower(strings.TrimSpace(raw.Transport)))
	}
	if meta.IsDefined("host") {
		cfg.Host = strings.TrimSpace(raw.Host)
	}
	if meta.IsDefined("port") {
		cfg.Port = raw.Port
	}
	if meta.IsDefined("capture_file") {
		cfg.CaptureFile = resolve(base, raw.CaptureFile)
	}
	if meta.IsDefined("max_frame_size") {
		cfg.MaxFrameSize = raw.MaxFrameSize
	}
	if meta.IsDefined("receive_timeout") {
		d, err := ParseDuration(raw.ReceiveTimeout)
		if err != nil {
			return Run{}, fmt.Errorf("load run config: receive_timeout: %w", err)
		}
		cfg.ReceiveTimeout = d
	}
	if meta.IsDefined("separator") {
		cfg.Separator = raw.Separator
	}
	if meta.IsDefined("metrics_file") {
		cfg.MetricsFile = resolve(base, raw.MetricsFile)
	}
	if meta.IsDefined("log_level") {
		cfg.LogLevel = strings.TrimSpace(raw.LogLevel)
	}
	return cfg, nil
}

func resolve(base, p string) string {
	p = strings.TrimSpace(p)
	if p == "" || filepath.IsAbs(p) {
		return p
	}
	return filepath.Join(base, p)
}

// ParseDuration accepts Go duration strings; "0" disables the deadline.
func ParseDuration(raw string) (time.Duration, error) {
	raw = strings.TrimSpace(raw)
	if raw == "0" {
		return 0, nil
	}
	d, err := time.ParseDuration(raw)
	if err != nil || d < 0 {
		return 0, fmt.Errorf("%w: %q", ErrDuration, raw)
	}
	return d, nil
}

// ValidateRun checks the settings the selected transport needs.
func ValidateRun(cfg Run) error {
	if strings.TrimSpace(cfg.PlanFile) == "" {
		return &ValidationError{Field: "plan_file", Reason: "is required"}
	}
	if _, err := sink.ParseTransport(string(cfg.Transport)); err != nil {
		return &ValidationError{Field: "transport", Reason: fmt.Sprintf("%q is not one of %v", cfg.Transport, sink.Transports())}
	}
	return ValidateTransport(cfg)
}

// ValidateTransport checks port, host, file and frame settings.
func ValidateTransport(cfg Run) error {
	if cfg.MaxFrameSize <= 0 {
		return &ValidationError{Field: "max_frame_size", Reason: "must be positive"}
	}
	if cfg.ReceiveTimeout < 0 {
		return &ValidationError{Field: "receive_timeout", Reason: "must not be negative"}
	}
	switch cfg.Transport {
	case sink.TransportASCII, sink.TransportRaw:
		return nil
	case sink.TransportSend:
		if strings.TrimSpace(cfg.Host) == "" {
			return &ValidationError{Field: "host", Reason: "is required for send"}
		}
	case sink.TransportCapture:
		if strings.TrimSpace(cfg.CaptureFile) == "" {
			return &ValidationError{Field: "capture_file", Reason: "is required for pcap"}
		}
	}
	if cfg.Port < 1 || cfg.Port > 65535 {
		return &ValidationError{Field: "port", Reason: fmt.Sprintf("%d is outside 1..65535", cfg.Port)}
	}
	return nil
}

// Render encodes cfg in the fastplan.toml layout.
func Render(cfg Run) ([]byte, error) {
	raw := fileConfig{
		PlanFile:       cfg.PlanFile,
		TemplateFiles:  cfg.TemplateFiles,
		Transport:      string(cfg.Transport),
		Host:           cfg.Host,
		Port:           cfg.Port,
		CaptureFile:    cfg.CaptureFile,
		MaxFrameSize:   cfg.MaxFrameSize,
		ReceiveTimeout: cfg.ReceiveTimeout.String(),
		Separator:      cfg.Separator,
		MetricsFile:    cfg.MetricsFile,
		LogLevel:       cfg.LogLevel,
	}
	out, err := pelletier.Marshal(raw)
	if err != nil {
		return nil, fmt.Errorf("render run config: %w", err)
	}
	return out, nil
}
