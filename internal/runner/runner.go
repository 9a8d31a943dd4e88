// Package runner drives a parsed plan through a sink, one frame per unit,
// in plan order.
package runner

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/danmuck/fastplan/internal/codec"
	"github.com/danmuck/fastplan/internal/compile"
	"github.com/danmuck/fastplan/internal/logging/logs"
	"github.com/danmuck/fastplan/internal/observability"
	"github.com/danmuck/fastplan/internal/plan"
	"github.com/danmuck/fastplan/internal/sink"
)

var ErrNilPlan = errors.New("runner: nil plan")

// Encoder turns a message unit into one frame.
type Encoder func(u *plan.MessageUnit) ([]byte, error)

// UnitError records why one unit produced no frame.
type UnitError struct {
	Index int
	Kind  string
	Err   error
}

func (e UnitError) Error() string {
	return fmt.Sprintf("unit %d (%s): %v", e.Index, e.Kind, e.Err)
}

func (e UnitError) Unwrap() error {
	return e.Err
}

// Summary reports one run.
type Summary struct {
	RunID    string
	Units    int
	Sent     int
	Failed   int
	Bytes    int64
	Duration time.Duration
	Errors   []UnitError
}

type Runner struct {
	sink      sink.Sink
	transport string
	encode    Encoder
	log       zerolog.Logger
}

type Option func(*Runner)

// WithEncoder replaces the default compile-and-marshal encoder.
func WithEncoder(e Encoder) Option {
	return func(r *Runner) {
		if e != nil {
			r.encode = e
		}
	}
}

// WithTransport sets the transport label used in logs and metrics.
func WithTransport(name string) Option {
	return func(r *Runner) {
		r.transport = name
	}
}

func WithLogger(l zerolog.Logger) Option {
	return func(r *Runner) {
		r.log = l
	}
}

func New(s sink.Sink, opts ...Option) *Runner {
	r := &Runner{
		sink:      s,
		transport: "unknown",
		encode:    Encode,
		log:       logs.Logger(),
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Encode binds a message unit into a fresh codec message and serializes it.
func Encode(u *plan.MessageUnit) ([]byte, error) {
	msg := codec.NewMessage(u.Template)
	if err := compile.Message(u.Template, u.Values, msg); err != nil {
		return nil, err
	}
	return codec.Marshal(msg)
}

// Run emits every unit in order. A failing unit is recorded and skipped;
// only context cancellation stops the run early.
func (r *Runner) Run(ctx context.Context, p *plan.Plan) (sum Summary, err error) {
	if p == nil {
		return Summary{}, ErrNilPlan
	}
	start := time.Now()
	sum = Summary{RunID: uuid.NewString(), Units: p.Len()}
	log := observability.RunLogger(r.log, sum.RunID, r.transport)
	log.Info().Int("units", sum.Units).Msg("run started")

	defer func() {
		sum.Duration = time.Since(start)
		observability.RecordRun(r.transport, sum.Duration)
	}()

	for i, u := range p.Units() {
		if err = ctx.Err(); err != nil {
			log.Warn().Int("unit", i).Err(err).Msg("run cancelled")
			return sum, err
		}
		frame, unitErr := r.frame(u)
		if unitErr == nil {
			unitErr = r.emit(u, frame)
		}
		if unitErr != nil {
			sum.Failed++
			sum.Errors = append(sum.Errors, UnitError{Index: i, Kind: u.Kind(), Err: unitErr})
			observability.RecordFrame(r.transport, u.Kind(), 0, false)
			log.Error().Int("unit", i).Str("kind", u.Kind()).Err(unitErr).Msg("unit failed")
			continue
		}
		sum.Sent++
		sum.Bytes += int64(len(frame))
		observability.RecordFrame(r.transport, u.Kind(), len(frame), true)
		log.Debug().Int("unit", i).Str("kind", u.Kind()).Int("bytes", len(frame)).Msg("unit sent")
	}

	log.Info().
		Int("sent", sum.Sent).
		Int("failed", sum.Failed).
		Int64("bytes", sum.Bytes).
		Msg("run finished")
	return sum, nil
}

func (r *Runner) frame(u plan.Unit) ([]byte, error) {
	switch unit := u.(type) {
	case *plan.MessageUnit:
		return r.encode(unit)
	case *plan.RawUnit:
		return unit.Payload, nil
	default:
		return nil, fmt.Errorf("runner: unsupported unit %T", u)
	}
}

func (r *Runner) emit(u plan.Unit, frame []byte) error {
	if a, ok := r.sink.(sink.Addressable); ok {
		from, to := u.Addresses()
		a.SetAddresses(from, to)
	}
	if err := r.sink.Accept(frame); err != nil {
		return err
	}
	return r.sink.EndFrame()
}
