package record

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sync"

	"rover-console/internal/telemetry"
)

// FileRecorder appends records to a JSONL file.
type FileRecorder struct {
	mu   sync.Mutex
	file *os.File
	enc  *json.Encoder
}

// NewFileRecorder opens path for appending, creating it if needed.
func NewFileRecorder(path string) (*FileRecorder, error) {
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open recording: %w", err)
	}
	return &FileRecorder{file: f, enc: json.NewEncoder(f)}, nil
}

// Record writes rec as one JSON line.
func (f *FileRecorder) Record(_ context.Context, rec telemetry.Record) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.enc.Encode(rec)
}

// Close closes the underlying file.
func (f *FileRecorder) Close() error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.file == nil {
		return nil
	}
	err := f.file.Close()
	f.file = nil
	return err
}
