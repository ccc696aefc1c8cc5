package console

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"rover-console/internal/rover"
	"rover-console/internal/telemetry"
)

type fakeFetcher struct {
	mu    sync.Mutex
	calls int
	fn    func(ctx context.Context, call int) (telemetry.Snapshot, error)
}

func (f *fakeFetcher) FetchStatus(ctx context.Context) (telemetry.Snapshot, error) {
	f.mu.Lock()
	f.calls++
	call := f.calls
	f.mu.Unlock()
	return f.fn(ctx, call)
}

func (f *fakeFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

type fakeRecorder struct {
	mu   sync.Mutex
	recs []telemetry.Record
}

func (r *fakeRecorder) Record(_ context.Context, rec telemetry.Record) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.recs = append(r.recs, rec)
	return nil
}

func (r *fakeRecorder) Records() []telemetry.Record {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]telemetry.Record(nil), r.recs...)
}

func chanSink() (PollSink, chan PollResult) {
	ch := make(chan PollResult, 16)
	return PollSinkFunc(func(r PollResult) { ch <- r }), ch
}

func waitResult(t *testing.T, ch <-chan PollResult) PollResult {
	t.Helper()
	select {
	case r := <-ch:
		return r
	case <-time.After(2 * time.Second):
		t.Fatalf("timed out waiting for poll result")
	}
	return PollResult{}
}

func okFetcher(battery int) *fakeFetcher {
	return &fakeFetcher{fn: func(context.Context, int) (telemetry.Snapshot, error) {
		return telemetry.Snapshot{Battery: battery, HasCommunication: true}, nil
	}}
}

func TestPollerPollsImmediately(t *testing.T) {
	f := okFetcher(80)
	sink, ch := chanSink()
	p := NewPoller(f, sink, PollerOptions{Interval: time.Hour})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	r := waitResult(t, ch)
	if r.Seq != 1 || !r.OK() || r.Snapshot.Battery != 80 {
		t.Fatalf("unexpected first result %+v", r)
	}
}

func TestPollerStartTwice(t *testing.T) {
	p := NewPoller(okFetcher(1), PollSinkFunc(func(PollResult) {}), PollerOptions{Interval: time.Hour})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	if err := p.Start(context.Background()); !errors.Is(err, ErrPollerRunning) {
		t.Fatalf("expected ErrPollerRunning, got %v", err)
	}
	p.Stop()
	p.Stop()
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("restart after stop: %v", err)
	}
	p.Stop()
}

func TestPollerTicks(t *testing.T) {
	f := okFetcher(50)
	sink, ch := chanSink()
	p := NewPoller(f, sink, PollerOptions{Interval: 10 * time.Millisecond})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	defer p.Stop()

	var last uint64
	for i := 0; i < 3; i++ {
		r := waitResult(t, ch)
		if r.Seq <= last {
			t.Fatalf("sequence not increasing: %d after %d", r.Seq, last)
		}
		last = r.Seq
	}
}

func TestPollerSkipsWhileInFlight(t *testing.T) {
	release := make(chan struct{})
	f := &fakeFetcher{fn: func(ctx context.Context, call int) (telemetry.Snapshot, error) {
		if call == 1 {
			<-release
		}
		return telemetry.Snapshot{Battery: call}, nil
	}}
	sink, ch := chanSink()
	p := NewPoller(f, sink, PollerOptions{Interval: time.Hour})
	ctx := context.Background()

	if !p.Poll(ctx) {
		t.Fatalf("first poll should be issued")
	}
	if p.Poll(ctx) {
		t.Fatalf("second poll should be skipped while the first is in flight")
	}
	close(release)
	if r := waitResult(t, ch); r.Seq != 1 {
		t.Fatalf("unexpected result %+v", r)
	}

	deadline := time.Now().Add(2 * time.Second)
	for !p.Poll(ctx) {
		if time.Now().After(deadline) {
			t.Fatalf("poller never became idle")
		}
		time.Sleep(time.Millisecond)
	}
	if r := waitResult(t, ch); r.Seq != 2 || r.Snapshot.Battery != 2 {
		t.Fatalf("unexpected result %+v", r)
	}
	if f.Calls() != 2 {
		t.Fatalf("expected 2 fetches, got %d", f.Calls())
	}
}

func TestPollerTimeout(t *testing.T) {
	f := &fakeFetcher{fn: func(ctx context.Context, _ int) (telemetry.Snapshot, error) {
		<-ctx.Done()
		return telemetry.Snapshot{}, ctx.Err()
	}}
	sink, ch := chanSink()
	p := NewPoller(f, sink, PollerOptions{Interval: time.Hour, Timeout: 10 * time.Millisecond})
	p.Poll(context.Background())

	r := waitResult(t, ch)
	if !errors.Is(r.Err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline exceeded, got %v", r.Err)
	}
	if p.Failures() != 1 {
		t.Fatalf("failures = %d", p.Failures())
	}
}

func TestPollerStopCancelsOutstanding(t *testing.T) {
	started := make(chan struct{})
	f := &fakeFetcher{fn: func(ctx context.Context, _ int) (telemetry.Snapshot, error) {
		close(started)
		<-ctx.Done()
		return telemetry.Snapshot{}, ctx.Err()
	}}
	sink, ch := chanSink()
	p := NewPoller(f, sink, PollerOptions{Interval: time.Hour, Timeout: time.Hour})
	if err := p.Start(context.Background()); err != nil {
		t.Fatalf("start: %v", err)
	}
	<-started
	p.Stop()
	select {
	case r := <-ch:
		t.Fatalf("no result expected after stop, got %+v", r)
	default:
	}
}

func TestPollerRecordsSuccessOnly(t *testing.T) {
	f := &fakeFetcher{fn: func(_ context.Context, call int) (telemetry.Snapshot, error) {
		if call == 2 {
			return telemetry.Snapshot{}, rover.ErrTransport
		}
		return telemetry.Snapshot{Battery: 40 + call}, nil
	}}
	rec := &fakeRecorder{}
	sink, ch := chanSink()
	p := NewPoller(f, sink, PollerOptions{Interval: time.Hour, RoverID: "rover-1", Recorder: rec, MaxBackoff: -1})
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		deadline := time.Now().Add(2 * time.Second)
		for !p.Poll(ctx) {
			if time.Now().After(deadline) {
				t.Fatalf("poll %d never issued", i+1)
			}
			time.Sleep(time.Millisecond)
		}
		waitResult(t, ch)
	}
	p.polls.Wait()

	recs := rec.Records()
	if len(recs) != 2 {
		t.Fatalf("expected 2 records, got %d", len(recs))
	}
	if recs[0].Seq != 1 || recs[1].Seq != 3 || recs[1].Battery != 43 || recs[0].RoverID != "rover-1" {
		t.Fatalf("unexpected records %+v", recs)
	}
}

func TestPollerBackoffSchedule(t *testing.T) {
	p := NewPoller(okFetcher(1), PollSinkFunc(func(PollResult) {}), PollerOptions{Interval: time.Second, MaxBackoff: 8 * time.Second})
	want := []time.Duration{time.Second, time.Second, 2 * time.Second, 4 * time.Second, 8 * time.Second, 8 * time.Second}
	for n, w := range want {
		if got := p.backoff(n); got != w {
			t.Errorf("backoff(%d) = %s, want %s", n, got, w)
		}
	}

	disabled := NewPoller(okFetcher(1), PollSinkFunc(func(PollResult) {}), PollerOptions{Interval: time.Second, MaxBackoff: time.Second})
	if got := disabled.backoff(5); got != time.Second {
		t.Fatalf("backoff should be disabled, got %s", got)
	}
}

func TestPollerBackoffSkipsTicks(t *testing.T) {
	p := NewPoller(okFetcher(1), PollSinkFunc(func(PollResult) {}), PollerOptions{Interval: time.Second, MaxBackoff: 8 * time.Second})
	t0 := time.Unix(1000, 0)
	p.failures = 3
	p.lastIssued = t0

	if p.backoffRemaining(t0.Add(time.Second)) == 0 {
		t.Fatalf("expected to back off one second after the third failure")
	}
	if p.backoffRemaining(t0.Add(3*time.Second)) == 0 {
		t.Fatalf("expected to back off three seconds after the third failure")
	}
	if got := p.backoffRemaining(t0.Add(4 * time.Second)); got != 0 {
		t.Fatalf("expected poll to be allowed at the fourth tick, remaining %s", got)
	}

	p.now = func() time.Time { return t0.Add(time.Second) }
	if p.Poll(context.Background()) {
		t.Fatalf("poll should be skipped while backing off")
	}
}
