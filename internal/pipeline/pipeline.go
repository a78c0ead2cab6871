// Package pipeline runs load, enrich, synchronize and export for one or
// more symbols.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"trading-mtfsync/internal/indicator"
	"trading-mtfsync/internal/logger"
	"trading-mtfsync/internal/metrics"
	"trading-mtfsync/internal/model"
	"trading-mtfsync/internal/mtf"
	"trading-mtfsync/internal/resample"
	"trading-mtfsync/internal/sink"
	"trading-mtfsync/internal/source"
)

type Config struct {
	PrimaryTF   model.Timeframe
	SecondaryTF model.Timeframe

	// DerivePrimary resamples the secondary series instead of loading the
	// primary one.
	DerivePrimary bool

	Exchange    string
	Indicators  indicator.Params
	Sync        mtf.Options
	Concurrency int
	RunTimeout  time.Duration // per symbol; 0 means none
}

// Job is one symbol to process.
type Job struct {
	Symbol string
}

// Summary is the per-run digest that gets logged.
type Summary struct {
	Rows    int `json:"rows"`
	Matched int `json:"matched"`
	Missing int `json:"missing"`

	// Counted on the primary frame.
	StrongTrend  int `json:"strong_trend"`
	BullishCross int `json:"bullish_cross"`
	BearishCross int `json:"bearish_cross"`
}

// Output is the result of one run. It is returned alongside sink errors.
type Output struct {
	Run       *sink.Run
	Primary   *model.Frame
	Secondary *model.Frame
	Summary   Summary
}

type Pipeline struct {
	cfg     Config
	src     source.Source
	sinks   []sink.Sink
	metrics *metrics.Metrics
	health  *metrics.HealthStatus
	log     *zap.Logger
	now     func() time.Time
}

// New wires a pipeline. health may be nil.
func New(cfg Config, src source.Source, sinks []sink.Sink, m *metrics.Metrics, health *metrics.HealthStatus, log *zap.Logger) *Pipeline {
	if cfg.Concurrency <= 0 {
		cfg.Concurrency = 1
	}
	return &Pipeline{
		cfg:     cfg,
		src:     src,
		sinks:   sinks,
		metrics: m,
		health:  health,
		log:     log,
		now:     time.Now,
	}
}

// Run processes one symbol. Sinks all run even if one fails; their
// errors are joined and returned together with the output.
func (p *Pipeline) Run(ctx context.Context, job Job) (out *Output, err error) {
	started := p.now()
	ctx = logger.WithTraceID(ctx, logger.GenerateTraceID(job.Symbol, started))
	log := logger.For(ctx, p.log).With(zap.String("symbol", job.Symbol))
	if p.cfg.RunTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, p.cfg.RunTimeout)
		defer cancel()
	}
	defer func() {
		p.metrics.ObserveRun(err)
		if p.health != nil {
			p.health.RecordRun(p.now(), err)
		}
		if err != nil {
			log.Error("run failed", zap.Error(err), zap.Duration("took", time.Since(started)))
		}
	}()

	secondary, primary, err := p.load(ctx, job.Symbol)
	if err != nil {
		return nil, err
	}

	secFrame, err := p.compute(ctx, secondary)
	if err != nil {
		return nil, err
	}
	priFrame, err := p.compute(ctx, primary)
	if err != nil {
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		return nil, err
	}
	syncStart := time.Now()
	res, err := mtf.Synchronize(priFrame, secFrame, p.cfg.Sync)
	if err != nil {
		return nil, err
	}
	p.metrics.SyncDur.Observe(time.Since(syncStart).Seconds())
	p.metrics.RowsSynchronized.Add(float64(res.Stats.Rows))
	p.metrics.RowsMissingContext.Add(float64(res.Stats.Missing))

	out = &Output{
		Run: &sink.Run{
			Symbol:    job.Symbol,
			Exchange:  p.cfg.Exchange,
			Primary:   primary,
			Secondary: secondary,
			Result:    res,
			Started:   started,
		},
		Primary:   priFrame,
		Secondary: secFrame,
		Summary:   summarize(res.Stats, priFrame, p.adxStrong()),
	}

	err = p.write(ctx, out.Run, log)

	s := out.Summary
	log.Info("run complete",
		zap.Int("rows", s.Rows),
		zap.Int("matched", s.Matched),
		zap.Int("missing", s.Missing),
		zap.Int("strong_trend", s.StrongTrend),
		zap.Int("bullish_cross", s.BullishCross),
		zap.Int("bearish_cross", s.BearishCross),
		zap.Duration("took", time.Since(started)))
	return out, err
}

func (p *Pipeline) load(ctx context.Context, symbol string) (secondary, primary model.Series, err error) {
	secondary, err = p.src.Load(ctx, symbol, p.cfg.SecondaryTF)
	if err != nil {
		return secondary, primary, fmt.Errorf("load secondary: %w", err)
	}
	if p.cfg.DerivePrimary {
		primary, err = resample.Aggregate(secondary, p.cfg.PrimaryTF)
		if err != nil {
			return secondary, primary, fmt.Errorf("derive primary: %w", err)
		}
		return secondary, primary, nil
	}
	primary, err = p.src.Load(ctx, symbol, p.cfg.PrimaryTF)
	if err != nil {
		return secondary, primary, fmt.Errorf("load primary: %w", err)
	}
	return secondary, primary, nil
}

func (p *Pipeline) compute(ctx context.Context, s model.Series) (*model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	start := time.Now()
	f, err := indicator.Compute(s, p.cfg.Indicators)
	if err != nil {
		return nil, err
	}
	p.metrics.IndicatorComputeDur.WithLabelValues(string(s.TF)).Observe(time.Since(start).Seconds())
	return f, nil
}

func (p *Pipeline) write(ctx context.Context, run *sink.Run, log *zap.Logger) error {
	var errs []error
	for _, s := range p.sinks {
		if err := ctx.Err(); err != nil {
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
			continue
		}
		start := time.Now()
		err := s.Write(ctx, run)
		p.metrics.SinkWriteDur.WithLabelValues(s.Name()).Observe(time.Since(start).Seconds())
		if err != nil {
			p.metrics.SinkErrors.WithLabelValues(s.Name()).Inc()
			log.Error("sink write failed", zap.String("sink", s.Name()), zap.Error(err))
			errs = append(errs, fmt.Errorf("sink %s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

func (p *Pipeline) adxStrong() float64 {
	if p.cfg.Sync.ADXStrongThreshold > 0 {
		return p.cfg.Sync.ADXStrongThreshold
	}
	return mtf.DefaultADXStrongThreshold
}

func summarize(st mtf.Stats, primary *model.Frame, adxStrong float64) Summary {
	s := Summary{Rows: st.Rows, Matched: st.Matched, Missing: st.Missing}
	for _, v := range primary.Num(indicator.ColADX) {
		if v > adxStrong {
			s.StrongTrend++
		}
	}
	for _, v := range primary.Num(indicator.ColEMACross) {
		switch {
		case v > 0:
			s.BullishCross++
		case v < 0:
			s.BearishCross++
		}
	}
	return s
}

// RunAll processes jobs concurrently, at most Concurrency at a time. A
// failing symbol does not cancel the others. Outputs are in job order;
// a failed job's slot may be nil.
func (p *Pipeline) RunAll(ctx context.Context, jobs []Job) ([]*Output, error) {
	outs := make([]*Output, len(jobs))
	errs := make([]error, len(jobs))

	var g errgroup.Group
	g.SetLimit(p.cfg.Concurrency)
	for i, job := range jobs {
		g.Go(func() error {
			out, err := p.Run(ctx, job)
			outs[i] = out
			if err != nil {
				errs[i] = fmt.Errorf("%s: %w", job.Symbol, err)
			}
			return nil
		})
	}
	_ = g.Wait()
	return outs, errors.Join(errs...)
}

// Close closes the source and every sink.
func (p *Pipeline) Close() error {
	var errs []error
	for _, s := range p.sinks {
		if err := s.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close sink %s: %w", s.Name(), err))
		}
	}
	if err := p.src.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close source: %w", err))
	}
	return errors.Join(errs...)
}

// Jobs builds one job per symbol.
func Jobs(symbols []string) []Job {
	jobs := make([]Job, len(symbols))
	for i, s := range symbols {
		jobs[i] = Job{Symbol: s}
	}
	return jobs
}

// EnrichOnly computes the indicator frame of a single series.
func EnrichOnly(ctx context.Context, s model.Series, params indicator.Params) (*model.Frame, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return indicator.Compute(s, params)
}
