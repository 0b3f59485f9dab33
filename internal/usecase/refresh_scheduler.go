package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"SignalDeck/internal/domain/models"
	domrepo "SignalDeck/internal/domain/repository"
	applogger "SignalDeck/pkg/logger"

	"github.com/google/uuid"
)

// ErrCycleInProgress is returned by RunOnce when a previous cycle is still running.
var ErrCycleInProgress = errors.New("refresh cycle already in progress")

// ViewProducer builds one dashboard view.
type ViewProducer interface {
	ProduceView(ctx context.Context) (*models.DashboardView, error)
}

// Scheduler runs the producer on start and then on every tick, handing each
// view to its sinks. Cycles never overlap; a tick that finds one running is
// dropped.
type Scheduler struct {
	producer     ViewProducer
	sinks        []domrepo.ViewSink
	interval     time.Duration
	cycleTimeout time.Duration
	metrics      domrepo.Metrics
	l            *applogger.Logger

	running sync.Mutex
	mu      sync.Mutex
	started bool
	stopCh  chan struct{}
	doneCh  chan struct{}
	cycles  sync.WaitGroup
}

type SchedulerOption func(*Scheduler)

// WithInterval sets the time between cycles.
func WithInterval(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.interval = d
		}
	}
}

// WithCycleTimeout bounds a single cycle.
func WithCycleTimeout(d time.Duration) SchedulerOption {
	return func(s *Scheduler) {
		if d > 0 {
			s.cycleTimeout = d
		}
	}
}

func WithSinks(sinks ...domrepo.ViewSink) SchedulerOption {
	return func(s *Scheduler) { s.sinks = append(s.sinks, sinks...) }
}

func WithSchedulerMetrics(m domrepo.Metrics) SchedulerOption {
	return func(s *Scheduler) { s.metrics = m }
}

func WithSchedulerLogger(l *applogger.Logger) SchedulerOption {
	return func(s *Scheduler) {
		if l != nil {
			s.l = l
		}
	}
}

func NewScheduler(producer ViewProducer, opts ...SchedulerOption) *Scheduler {
	s := &Scheduler{
		producer:     producer,
		interval:     30 * time.Second,
		cycleTimeout: 20 * time.Second,
		l:            applogger.Nop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Start launches the tick loop. The first cycle runs immediately.
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.started {
		return fmt.Errorf("scheduler already started")
	}
	s.started = true
	s.stopCh = make(chan struct{})
	s.doneCh = make(chan struct{})

	go s.loop(ctx, s.stopCh, s.doneCh)
	s.l.Info("refresh scheduler started",
		applogger.Duration("interval", s.interval),
		applogger.Int("sinks", len(s.sinks)),
	)
	return nil
}

func (s *Scheduler) loop(ctx context.Context, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	s.tick(ctx)
	for {
		select {
		case <-ctx.Done():
			return
		case <-stop:
			return
		case <-ticker.C:
			s.tick(ctx)
		}
	}
}

func (s *Scheduler) tick(ctx context.Context) {
	if !s.running.TryLock() {
		s.l.Debug("refresh tick dropped, previous cycle still running")
		return
	}
	s.cycles.Add(1)
	go func() {
		defer s.cycles.Done()
		defer s.running.Unlock()
		_, _ = s.cycle(ctx)
	}()
}

// RunOnce runs a single cycle synchronously.
func (s *Scheduler) RunOnce(ctx context.Context) (*models.DashboardView, error) {
	if !s.running.TryLock() {
		return nil, ErrCycleInProgress
	}
	defer s.running.Unlock()
	return s.cycle(ctx)
}

func (s *Scheduler) cycle(parent context.Context) (*models.DashboardView, error) {
	cycleID := uuid.NewString()
	l := s.l.With(applogger.String("cycle_id", cycleID))
	start := time.Now()

	ctx, cancel := context.WithTimeout(parent, s.cycleTimeout)
	defer cancel()

	view, err := s.producer.ProduceView(ctx)
	if err != nil {
		s.recordRefresh("failed", start)
		l.Warn("refresh cycle aborted", applogger.Error(err))
		return nil, err
	}

	failed := 0
	for _, sink := range s.sinks {
		if derr := sink.Deliver(ctx, view); derr != nil {
			failed++
			if s.metrics != nil {
				s.metrics.RecordError("sink_" + sink.Name())
			}
			l.Error("view delivery failed", applogger.String("sink", sink.Name()), applogger.Error(derr))
		}
	}

	status := "ok"
	if failed > 0 {
		status = "partial"
	}
	s.recordRefresh(status, start)
	l.Info("refresh cycle completed",
		applogger.String("view_id", view.ID),
		applogger.Bool("quotes_live", view.Quotes.Live),
		applogger.String("log_status", string(view.Log.Status)),
		applogger.Duration("elapsed", time.Since(start)),
	)
	return view, nil
}

func (s *Scheduler) recordRefresh(status string, start time.Time) {
	if s.metrics != nil {
		s.metrics.RecordRefresh(status, time.Since(start).Seconds())
	}
}

// Stop ends the tick loop and waits for the in-flight cycle, bounded by ctx.
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.started {
		s.mu.Unlock()
		return nil
	}
	s.started = false
	close(s.stopCh)
	done := s.doneCh
	s.mu.Unlock()

	finished := make(chan struct{})
	go func() {
		<-done
		s.cycles.Wait()
		close(finished)
	}()
	select {
	case <-finished:
		s.l.Info("refresh scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
