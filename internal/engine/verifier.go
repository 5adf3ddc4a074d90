package engine

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"verify-ovpn/internal/gate"
	"verify-ovpn/internal/model"
	"verify-ovpn/internal/parser"
)

// ErrContentAccess marks a config that could not be opened or read.
var ErrContentAccess = errors.New("config content unreadable")

type Opener interface {
	Open(id string) (io.ReadCloser, error)
}

type Prober interface {
	Probe(ctx context.Context, target model.Target) error
}

type Sink interface {
	RecordSuccess(outcome model.Outcome) error
	Finish(tally model.Tally) error
}

// Progress receives two ticks per config: on admission and on completion.
type Progress interface {
	Advance()
}

type nopProgress struct{}

func (nopProgress) Advance() {}

type Verifier struct {
	opener   Opener
	prober   Prober
	gate     *gate.Gate
	limiter  *rate.Limiter
	progress Progress
	logger   *slog.Logger
}

type Option func(*Verifier)

func WithConcurrency(limit int) Option {
	return func(v *Verifier) { v.gate = gate.New(limit) }
}

func WithGate(g *gate.Gate) Option {
	return func(v *Verifier) { v.gate = g }
}

// WithRate paces admissions to perSecond launches. Zero or less disables pacing.
func WithRate(perSecond float64) Option {
	return func(v *Verifier) {
		if perSecond <= 0 {
			v.limiter = nil
			return
		}
		v.limiter = rate.NewLimiter(rate.Limit(perSecond), 1)
	}
}

func WithProgress(p Progress) Option {
	return func(v *Verifier) { v.progress = p }
}

func WithLogger(l *slog.Logger) Option {
	return func(v *Verifier) { v.logger = l }
}

func NewVerifier(opener Opener, prober Prober, opts ...Option) *Verifier {
	v := &Verifier{
		opener:   opener,
		prober:   prober,
		progress: nopProgress{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(v)
	}
	if v.gate == nil {
		v.gate = gate.New(gate.DefaultLimit)
	}
	return v
}

// Run verifies every config in ids and reports the tally. All units are
// launched before any is awaited; a failing unit never affects its
// siblings. Cancelling ctx stops further admissions only: units already
// launched run to completion and the partial report is returned with
// ctx's error.
func (v *Verifier) Run(ctx context.Context, ids []string, sink Sink) (model.Report, error) {
	unitCtx := context.WithoutCancel(ctx)
	outcomes := make([]model.Outcome, len(ids))

	var (
		g        errgroup.Group
		launched int
		admitErr error
	)
	for i, id := range ids {
		if v.limiter != nil {
			if err := v.limiter.Wait(ctx); err != nil {
				admitErr = err
				break
			}
		}
		ticket, err := v.gate.Acquire(ctx)
		if err != nil {
			admitErr = err
			break
		}
		v.progress.Advance()
		launched++

		g.Go(func() error {
			defer v.progress.Advance()
			defer ticket.Release()
			outcomes[i] = v.verify(unitCtx, id)
			return nil
		})
	}
	g.Wait()

	if admitErr != nil {
		v.logger.Warn("Admission stopped early", "launched", launched, "submitted", len(ids), "error", admitErr)
	}

	report := model.Report{}
	for _, outcome := range outcomes[:launched] {
		report.Tally.Total++
		if !outcome.Reachable {
			continue
		}
		report.Tally.Successful++
		report.Succeeded = append(report.Succeeded, outcome.Config)
		if sink != nil {
			if err := sink.RecordSuccess(outcome); err != nil {
				v.logger.Error("Failed to record success", "config", outcome.Config, "error", err)
			}
		}
	}
	if sink != nil {
		if err := sink.Finish(report.Tally); err != nil {
			v.logger.Error("Failed to finish result sink", "error", err)
		}
	}
	return report, admitErr
}

// verify runs one unit. Every error ends up in the outcome.
func (v *Verifier) verify(ctx context.Context, id string) (out model.Outcome) {
	start := time.Now()
	log := v.logger.With("config", id)
	out.Config = id
	defer func() {
		if r := recover(); r != nil {
			out.Reachable = false
			out.Err = fmt.Errorf("verification panicked: %v", r)
			log.Error("Unit panicked", "panic", r)
		}
		out.Duration = time.Since(start)
	}()

	target, ok, err := v.extract(id)
	if err != nil {
		out.Err = err
		log.Warn("Config unreadable", "error", err)
		return out
	}
	if !ok {
		log.Debug("No endpoint found in config")
		return out
	}
	out.Target = target
	out.Extracted = true

	if err := v.prober.Probe(ctx, target); err != nil {
		out.Err = err
		log.Debug("Probe failed", "protocol", target.Protocol, "endpoint", target.Endpoint, "error", err)
		return out
	}
	out.Reachable = true
	log.Debug("Endpoint reachable", "protocol", target.Protocol, "endpoint", target.Endpoint, "duration", time.Since(start))
	return out
}

// extract reads only as much of the config as needed; the content is
// released before any probing starts.
func (v *Verifier) extract(id string) (model.Target, bool, error) {
	rc, err := v.opener.Open(id)
	if err != nil {
		return model.Target{}, false, fmt.Errorf("%w: %w", ErrContentAccess, err)
	}
	defer rc.Close()

	target, ok, err := parser.ExtractReader(rc)
	if err != nil {
		return model.Target{}, false, fmt.Errorf("%w: %w", ErrContentAccess, err)
	}
	return target, ok, nil
}
