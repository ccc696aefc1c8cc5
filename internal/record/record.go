// Sinks persisting applied telemetry snapshots
package record

import (
	"context"
	"errors"

	"rover-console/internal/telemetry"
)

// Recorder persists one telemetry record at a time.
type Recorder interface {
	Record(ctx context.Context, rec telemetry.Record) error
	Close() error
}

// MultiRecorder fans records out to several recorders.
type MultiRecorder struct {
	recorders []Recorder
}

// NewMultiRecorder creates a MultiRecorder. Nil recorders are skipped.
func NewMultiRecorder(rs ...Recorder) *MultiRecorder {
	m := &MultiRecorder{}
	for _, r := range rs {
		if r != nil {
			m.recorders = append(m.recorders, r)
		}
	}
	return m
}

// Len returns the number of wrapped recorders.
func (m *MultiRecorder) Len() int { return len(m.recorders) }

// Record hands rec to every recorder. A failing recorder does not stop the
// others; all errors are returned joined.
func (m *MultiRecorder) Record(ctx context.Context, rec telemetry.Record) error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Record(ctx, rec); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every recorder.
func (m *MultiRecorder) Close() error {
	var errs []error
	for _, r := range m.recorders {
		if err := r.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
