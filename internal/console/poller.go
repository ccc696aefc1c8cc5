package console

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"rover-console/internal/logging"
	"rover-console/internal/rover"
	"rover-console/internal/telemetry"
)

const (
	DefaultPollInterval = time.Second
	DefaultPollTimeout  = 2 * time.Second
	DefaultMaxBackoff   = 8 * time.Second
)

// ErrPollerRunning is returned by Start on a poller that is already running.
var ErrPollerRunning = errors.New("poller already running")

// StatusFetcher retrieves one telemetry snapshot.
type StatusFetcher interface {
	FetchStatus(ctx context.Context) (telemetry.Snapshot, error)
}

// Recorder persists applied snapshots.
type Recorder interface {
	Record(ctx context.Context, rec telemetry.Record) error
}

// PollResult is the outcome of one poll, tagged with its sequence number.
type PollResult struct {
	Seq       uint64
	Snapshot  telemetry.Snapshot
	Err       error
	Issued    time.Time
	Completed time.Time
}

// OK reports whether the poll produced a snapshot.
func (r PollResult) OK() bool { return r.Err == nil }

// PollSink receives poll results in completion order.
type PollSink interface {
	HandlePoll(PollResult)
}

// PollSinkFunc adapts a function to PollSink.
type PollSinkFunc func(PollResult)

// HandlePoll implements PollSink.
func (f PollSinkFunc) HandlePoll(r PollResult) { f(r) }

// PollerOptions tunes a Poller. Zero values select the defaults.
type PollerOptions struct {
	Interval   time.Duration
	Timeout    time.Duration
	MaxBackoff time.Duration
	RoverID    string
	Recorder   Recorder
}

// Poller fetches telemetry once at start and then on a fixed cadence.
// A tick that fires while a poll is outstanding is skipped, so results reach
// the sink in issue order.
type Poller struct {
	fetcher StatusFetcher
	sink    PollSink
	opts    PollerOptions
	now     func() time.Time

	seq      atomic.Uint64
	inFlight atomic.Bool
	polls    sync.WaitGroup

	mu         sync.Mutex
	failures   int
	lastIssued time.Time
	cancel     context.CancelFunc
	done       chan struct{}
}

// NewPoller creates a Poller delivering results to sink.
func NewPoller(fetcher StatusFetcher, sink PollSink, opts PollerOptions) *Poller {
	if opts.Interval <= 0 {
		opts.Interval = DefaultPollInterval
	}
	if opts.Timeout <= 0 {
		opts.Timeout = DefaultPollTimeout
	}
	if opts.MaxBackoff == 0 {
		opts.MaxBackoff = DefaultMaxBackoff
	}
	return &Poller{fetcher: fetcher, sink: sink, opts: opts, now: time.Now}
}

// Start runs the poll loop in the background until Stop is called or ctx is done.
func (p *Poller) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.cancel != nil {
		return ErrPollerRunning
	}
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})
	p.cancel, p.done = cancel, done
	go func() {
		defer close(done)
		p.Run(ctx)
	}()
	return nil
}

// Stop cancels the loop and any outstanding poll and waits for them to end.
// It is a no-op on a poller that is not running.
func (p *Poller) Stop() {
	p.mu.Lock()
	cancel, done := p.cancel, p.done
	p.cancel, p.done = nil, nil
	p.mu.Unlock()
	if cancel == nil {
		return
	}
	cancel()
	<-done
}

// Run polls immediately and then on every tick until ctx is done.
func (p *Poller) Run(ctx context.Context) {
	log := logging.FromContext(ctx)
	log.Info("starting poller", "interval", p.opts.Interval, "timeout", p.opts.Timeout)
	ticker := time.NewTicker(p.opts.Interval)
	defer ticker.Stop()
	defer p.polls.Wait()

	p.Poll(ctx)
	for {
		select {
		case <-ticker.C:
			p.Poll(ctx)
		case <-ctx.Done():
			log.Info("stopping poller")
			return
		}
	}
}

// Poll issues one poll in the background unless one is already outstanding
// or the poller is backing off. It reports whether a poll was issued.
func (p *Poller) Poll(ctx context.Context) bool {
	log := logging.FromContext(ctx)
	now := p.now()
	if wait := p.backoffRemaining(now); wait > 0 {
		log.Debug("poll skipped, backing off", "remaining", wait)
		return false
	}
	if !p.inFlight.CompareAndSwap(false, true) {
		log.Debug("poll skipped, previous poll in flight")
		return false
	}
	seq := p.seq.Add(1)
	p.mu.Lock()
	p.lastIssued = now
	p.mu.Unlock()

	p.polls.Add(1)
	go func() {
		defer p.polls.Done()
		defer p.inFlight.Store(false)
		p.poll(ctx, seq, now)
	}()
	return true
}

func (p *Poller) poll(ctx context.Context, seq uint64, issued time.Time) {
	log := logging.FromContext(ctx)
	reqCtx, cancel := context.WithTimeout(ctx, p.opts.Timeout)
	snap, err := p.fetcher.FetchStatus(reqCtx)
	cancel()
	if ctx.Err() != nil {
		return
	}
	res := PollResult{Seq: seq, Snapshot: snap, Err: err, Issued: issued, Completed: p.now()}

	p.mu.Lock()
	if err != nil {
		p.failures++
	} else {
		p.failures = 0
	}
	failures := p.failures
	p.mu.Unlock()

	if err != nil {
		log.Warn("poll failed", "seq", seq, "class", rover.Class(err), "consecutive", failures, "err", err)
	} else {
		log.Debug("poll ok", "seq", seq, "latency", res.Completed.Sub(issued))
	}
	p.sink.HandlePoll(res)

	if err == nil && p.opts.Recorder != nil {
		rec := telemetry.Record{Seq: seq, RoverID: p.opts.RoverID, Timestamp: res.Completed.UTC(), Snapshot: snap}
		if rerr := p.opts.Recorder.Record(ctx, rec); rerr != nil {
			log.Error("record failed", "seq", seq, "err", rerr)
		}
	}
}

// backoffRemaining returns how long polling should still be held back after
// consecutive failures. Attempts are spaced Interval*2^(n-1) apart, capped at
// MaxBackoff, with half an interval of slack for tick jitter.
func (p *Poller) backoffRemaining(now time.Time) time.Duration {
	p.mu.Lock()
	failures, last := p.failures, p.lastIssued
	p.mu.Unlock()
	spacing := p.backoff(failures)
	if spacing <= p.opts.Interval {
		return 0
	}
	wait := last.Add(spacing - p.opts.Interval/2).Sub(now)
	if wait < 0 {
		return 0
	}
	return wait
}

func (p *Poller) backoff(failures int) time.Duration {
	if failures <= 1 || p.opts.MaxBackoff <= p.opts.Interval {
		return p.opts.Interval
	}
	d := p.opts.Interval
	for i := 1; i < failures; i++ {
		d *= 2
		if d >= p.opts.MaxBackoff {
			return p.opts.MaxBackoff
		}
	}
	return d
}

// Failures returns the current count of consecutive failed polls.
func (p *Poller) Failures() int {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.failures
}
