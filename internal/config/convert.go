package config

import (
	"io"

	"github.com/danmuck/fastplan/internal/sink"
)

// SinkOptions maps a run config onto sink construction options.
func SinkOptions(cfg Run, out io.Writer) sink.Options {
	return sink.Options{
		Transport:      cfg.Transport,
		Host:           cfg.Host,
		Port:           cfg.Port,
		CaptureFile:    cfg.CaptureFile,
		MaxFrameSize:   cfg.MaxFrameSize,
		ReceiveTimeout: cfg.ReceiveTimeout,
		Separator:      cfg.Separator,
		Output:         out,
	}
}
