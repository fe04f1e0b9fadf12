package storage

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const maxLine = 10 * 1024 * 1024

// FileRecorder appends events as JSON lines to a single file. The append
// handle stays open until Close.
type FileRecorder struct {
	path string

	mu  sync.Mutex
	out *os.File
	enc *json.Encoder
}

func NewFileRecorder(path string) (*FileRecorder, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create journal dir: %w", err)
	}
	out, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	return &FileRecorder{path: path, out: out, enc: json.NewEncoder(out)}, nil
}

func (r *FileRecorder) Append(event Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out == nil {
		return os.ErrClosed
	}
	if err := r.enc.Encode(event); err != nil {
		return fmt.Errorf("append journal event: %w", err)
	}
	return nil
}

// Load reads every event back. A missing file is an empty journal and lines
// that do not decode are skipped.
func (r *FileRecorder) Load() ([]Event, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f, err := os.Open(r.path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("open journal: %w", err)
	}
	defer f.Close()
	return decodeLines(f)
}

func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.out == nil {
		return nil
	}
	err := r.out.Close()
	r.out, r.enc = nil, nil
	return err
}

func decodeLines(rd io.Reader) ([]Event, error) {
	s := bufio.NewScanner(rd)
	s.Buffer(make([]byte, 0, 64*1024), maxLine)
	var events []Event
	for s.Scan() {
		var ev Event
		if json.Unmarshal(s.Bytes(), &ev) != nil {
			continue
		}
		events = append(events, ev)
	}
	if err := s.Err(); err != nil {
		return events, fmt.Errorf("read journal: %w", err)
	}
	return events, nil
}
