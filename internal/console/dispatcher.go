package console

import (
	"context"
	"time"

	"github.com/google/uuid"

	"rover-console/internal/logging"
	"rover-console/internal/rover"
	"rover-console/internal/telemetry"
)

const DefaultDispatchTimeout = 2 * time.Second

// CommandSender posts one control command.
type CommandSender interface {
	SendCommand(ctx context.Context, kind telemetry.CommandKind) (telemetry.CommandResult, error)
}

// Outcome classifies a dispatch.
type Outcome string

const (
	OutcomeAccepted Outcome = "accepted"
	OutcomeRejected Outcome = "rejected"
	OutcomeFailed   Outcome = "failed"
)

// DispatchResult is the completion of one command dispatch.
type DispatchResult struct {
	ID        string
	Command   telemetry.CommandKind
	Result    telemetry.CommandResult
	Err       error
	Issued    time.Time
	Completed time.Time
}

// Outcome reports whether the command was accepted, rejected by the rover, or
// never got a usable answer.
func (r DispatchResult) Outcome() Outcome {
	switch {
	case r.Err != nil:
		return OutcomeFailed
	case !r.Result.Accepted():
		return OutcomeRejected
	default:
		return OutcomeAccepted
	}
}

// Dispatcher sends operator commands. Every call issues exactly one request;
// there is no queueing or deduplication.
type Dispatcher struct {
	sender  CommandSender
	timeout time.Duration
	now     func() time.Time
}

// NewDispatcher creates a Dispatcher. A non-positive timeout selects the default.
func NewDispatcher(sender CommandSender, timeout time.Duration) *Dispatcher {
	if timeout <= 0 {
		timeout = DefaultDispatchTimeout
	}
	return &Dispatcher{sender: sender, timeout: timeout, now: time.Now}
}

// Dispatch sends kind and waits for the answer or the timeout.
func (d *Dispatcher) Dispatch(ctx context.Context, kind telemetry.CommandKind) DispatchResult {
	id := uuid.NewString()
	log := logging.FromContext(ctx).With("request_id", id, "command", kind.String())
	res := DispatchResult{ID: id, Command: kind, Issued: d.now()}

	reqCtx, cancel := context.WithTimeout(rover.WithRequestID(ctx, id), d.timeout)
	defer cancel()
	res.Result, res.Err = d.sender.SendCommand(reqCtx, kind)
	res.Completed = d.now()

	switch res.Outcome() {
	case OutcomeFailed:
		log.Warn("command failed", "class", rover.Class(res.Err), "err", res.Err)
	case OutcomeRejected:
		log.Info("command rejected", "reason", res.Result.Error)
	default:
		log.Info("command accepted", "latency", res.Completed.Sub(res.Issued))
	}
	return res
}
