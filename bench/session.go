/*
Package bench runs counting sort benchmarks.

A Session owns the size sweep and one result series per strategy. Run
executes one strategy over the whole sweep: for every size it generates
the input, runs a fixed number of timed trials, and records their mean
in microseconds. The sweep is computed once and shared by all
strategies, so the series of different strategies are index-aligned.

Running a strategy again replaces its series once the new sweep has
completed. A sweep that fails or is cancelled leaves the previous
series untouched.
*/
package bench

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/exascience/countbench/countsort"
	"github.com/exascience/countbench/internal"
	"github.com/exascience/countbench/strategy"
)

// DefaultIterations is the number of trials per size.
const DefaultIterations = 50

// A Session is a benchmark session.
type Session struct {
	iterations  int
	seed, bound uint64
	verify      bool
	maxElements int
	now         func() time.Time
	progress    ProgressFunc
	log         *zap.Logger
	strategies  *strategy.Set
	closers     []io.Closer

	sweepOnce sync.Once
	sweep     Sweep

	mu      sync.Mutex
	running bool
	closed  bool
	series  map[strategy.ID][]int64
	samples map[strategy.ID][]Sample
}

// An Option configures a Session.
type Option func(*Session)

// WithIterations sets the number of trials per size.
func WithIterations(n int) Option {
	return func(s *Session) { s.iterations = n }
}

// WithSeed sets the seed of the input generator.
func WithSeed(seed uint64) Option {
	return func(s *Session) { s.seed = seed }
}

// WithBound sets the exclusive upper bound of generated values.
func WithBound(bound uint64) Option {
	return func(s *Session) { s.bound = bound }
}

// WithSweep replaces the default sweep. The last WithSweep wins.
func WithSweep(sweep Sweep) Option {
	return func(s *Session) {
		s.sweep = make(Sweep, len(sweep))
		copy(s.sweep, sweep)
	}
}

// WithVerify enables checking the output of the first trial of each
// size.
func WithVerify(verify bool) Option {
	return func(s *Session) { s.verify = verify }
}

// WithMaxElements rejects sizes above n with ErrResourceExhausted
// before any buffer is allocated. Zero means no limit.
func WithMaxElements(n int) Option {
	return func(s *Session) { s.maxElements = n }
}

// WithClock replaces the clock that times trials.
func WithClock(now func() time.Time) Option {
	return func(s *Session) { s.now = now }
}

// WithProgress sets the progress receiver.
func WithProgress(f ProgressFunc) Option {
	return func(s *Session) { s.progress = f }
}

// WithLogger sets the logger.
func WithLogger(log *zap.Logger) Option {
	return func(s *Session) { s.log = log }
}

// WithStrategies sets the strategies the session runs. The session
// takes ownership and closes them on Close.
func WithStrategies(set *strategy.Set) Option {
	return func(s *Session) { s.strategies = set }
}

// WithCloser registers c to be closed by Close, after the strategies.
func WithCloser(c io.Closer) Option {
	return func(s *Session) { s.closers = append(s.closers, c) }
}

// NewSession returns a session. Without WithStrategies, only the
// sequential and parallel strategies are available.
func NewSession(opts ...Option) (*Session, error) {
	s := &Session{
		iterations: DefaultIterations,
		seed:       DefaultSeed,
		bound:      DefaultBound,
		now:        time.Now,
		progress:   func(Progress) {},
		log:        zap.NewNop(),
		series:     make(map[strategy.ID][]int64),
		samples:    make(map[strategy.ID][]Sample),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.iterations <= 0 {
		return nil, fmt.Errorf("invalid number of iterations: %d", s.iterations)
	}
	if s.strategies == nil {
		s.strategies = strategy.NewSet(nil)
	}
	if err := s.Sweep().Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

// Sweep returns the sizes of the session. The default sweep is computed
// on first use.
func (s *Session) Sweep() Sweep {
	s.sweepOnce.Do(func() {
		if s.sweep == nil {
			s.sweep = DefaultSweep()
		}
	})
	return s.sweep
}

func (s *Session) begin() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	switch {
	case s.closed:
		return ErrSessionClosed
	case s.running:
		return ErrSessionBusy
	}
	s.running = true
	return nil
}

func (s *Session) end() {
	s.mu.Lock()
	s.running = false
	s.mu.Unlock()
}

// Run runs the strategy id over the whole sweep. Cancellation of ctx is
// observed between sizes only; a trial in progress always completes.
func (s *Session) Run(ctx context.Context, id strategy.ID) error {
	if err := s.begin(); err != nil {
		return err
	}
	defer s.end()

	st, err := s.strategies.Get(id)
	if err != nil {
		return err
	}
	sweep := s.Sweep()
	log := s.log.With(zap.Stringer("strategy", id))
	log.Info("sweep started", zap.Int("sizes", len(sweep)), zap.Int("trials", s.iterations))
	start := s.now()

	series := make([]int64, 0, len(sweep))
	samples := make([]Sample, 0, len(sweep))
	for i, n := range sweep {
		if err := ctx.Err(); err != nil {
			log.Warn("sweep cancelled", zap.Int("completed", i), zap.Error(err))
			return fmt.Errorf("%v sweep cancelled after %d of %d sizes: %w", id, i, len(sweep), err)
		}
		sample, err := s.measure(ctx, st, n)
		if err != nil {
			log.Error("sweep aborted", zap.Int("size", n), zap.Error(err))
			return err
		}
		series = append(series, sample.Mean)
		samples = append(samples, sample)
		log.Debug("size completed", zap.Int("size", n), zap.Int64("mean_us", sample.Mean))
		s.progress(Progress{
			Strategy:  id,
			Completed: i + 1,
			Total:     len(sweep),
			Percent:   float64(i+1) * 100 / float64(len(sweep)),
		})
	}

	s.mu.Lock()
	s.series[id] = series
	s.samples[id] = samples
	s.mu.Unlock()
	log.Info("sweep completed", zap.Duration("elapsed", s.now().Sub(start)))
	return nil
}

// Start runs Run on a dedicated goroutine. The returned channel
// receives the result of Run and is then closed.
func (s *Session) Start(ctx context.Context, id strategy.ID) <-chan error {
	done := make(chan error, 1)
	go func() {
		defer close(done)
		done <- s.Run(ctx, id)
	}()
	return done
}

// measure runs all trials for one size.
func (s *Session) measure(ctx context.Context, st strategy.Strategy, n int) (Sample, error) {
	if s.maxElements > 0 && n > s.maxElements {
		return Sample{}, &RunError{
			Strategy: st.ID(), Size: n,
			Err: fmt.Errorf("%w: size exceeds limit of %d elements", ErrResourceExhausted, s.maxElements),
		}
	}
	in := GenerateArray(n, s.seed, s.bound)
	trials := make([]time.Duration, s.iterations)
	trialCtx := context.WithoutCancel(ctx)
	for t := range trials {
		start := s.now()
		out, err := s.trial(trialCtx, st, in)
		trials[t] = s.now().Sub(start)
		if err == nil && s.verify && t == 0 {
			err = verify(in, out)
		}
		if err != nil {
			return Sample{}, &RunError{Strategy: st.ID(), Size: n, Trial: t, Err: err}
		}
	}
	return summarize(n, trials), nil
}

// trial runs one sort. A panic in the strategy is a logic error and is
// returned as an error carrying the stack of the panic.
func (s *Session) trial(ctx context.Context, st strategy.Strategy, in []uint64) (out []uint64, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, err = nil, internal.PanicError(p)
		}
	}()
	return st.Sort(ctx, in)
}

func verify(in, out []uint64) error {
	if !countsort.ParallelIsSorted(out) {
		return fmt.Errorf("%w: output not sorted", ErrVerification)
	}
	if !countsort.ParallelSameMultiset(in, out) {
		return fmt.Errorf("%w: output is not a permutation of the input", ErrVerification)
	}
	return nil
}

// Results is a snapshot of the results of a session.
type Results struct {
	// Sizes is the sweep.
	Sizes Sweep
	// Series holds, per strategy that completed a sweep, the mean
	// microseconds per size, index-aligned with Sizes.
	Series map[strategy.ID][]int64
	// Samples holds the full summaries behind Series.
	Samples map[strategy.ID][]Sample
}

// Results returns a copy of the sweep and all series.
func (s *Session) Results() Results {
	s.mu.Lock()
	defer s.mu.Unlock()
	r := Results{
		Sizes:   append(Sweep(nil), s.Sweep()...),
		Series:  make(map[strategy.ID][]int64, len(s.series)),
		Samples: make(map[strategy.ID][]Sample, len(s.samples)),
	}
	for id, series := range s.series {
		r.Series[id] = append([]int64(nil), series...)
	}
	for id, samples := range s.samples {
		r.Samples[id] = append([]Sample(nil), samples...)
	}
	return r
}

// Strategies returns the strategies that have results, in presentation
// order.
func (r Results) Strategies() []strategy.ID {
	var ids []strategy.ID
	for _, id := range strategy.IDs() {
		if len(r.Series[id]) > 0 {
			ids = append(ids, id)
		}
	}
	return ids
}

// Empty reports whether no strategy has results.
func (r Results) Empty() bool {
	return len(r.Strategies()) == 0
}

// Reset discards all series. The sweep is kept.
func (s *Session) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.series = make(map[strategy.ID][]int64)
	s.samples = make(map[strategy.ID][]Sample)
}

// Close releases the strategies of the session, including the
// accelerator, and then everything registered with WithCloser. Callers
// should not close a session with a run in progress.
func (s *Session) Close() error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.closed = true
	s.mu.Unlock()
	err := s.strategies.Close()
	for _, c := range s.closers {
		err = multierr.Append(err, c.Close())
	}
	return err
}
