package record

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"rover-console/internal/telemetry"
)

// Replay reads JSONL records from r and hands them to fn in order. A speed
// above zero reproduces the recorded spacing divided by speed; otherwise
// records are delivered without delay. Replay stops when ctx is done.
func Replay(ctx context.Context, r io.Reader, speed float64, fn func(telemetry.Record) error) error {
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 1<<20)
	var prev time.Time
	line := 0
	for sc.Scan() {
		line++
		if len(sc.Bytes()) == 0 {
			continue
		}
		var rec telemetry.Record
		if err := json.Unmarshal(sc.Bytes(), &rec); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := rec.Validate(); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if !prev.IsZero() && speed > 0 {
			diff := time.Duration(float64(rec.Timestamp.Sub(prev)) / speed)
			if diff > 0 {
				t := time.NewTimer(diff)
				select {
				case <-ctx.Done():
					t.Stop()
					return ctx.Err()
				case <-t.C:
				}
			}
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
		prev = rec.Timestamp
	}
	return sc.Err()
}

// ReplayFile opens path and replays its records.
func ReplayFile(ctx context.Context, path string, speed float64, fn func(telemetry.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return Replay(ctx, f, speed, fn)
}
