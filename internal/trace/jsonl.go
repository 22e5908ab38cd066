package trace

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
)

// JSONLSink is the core's required sink: one JSON object per line, written
// in step order, per spec §6's "line-delimited JSON file sink".
type JSONLSink struct {
	w      io.Writer
	closer io.Closer
	enc    *json.Encoder
}

// NewJSONLSink opens path for appending line-delimited trace events. An
// empty path means stdout, for one-shot CLI inspection without a file.
func NewJSONLSink(path string) (*JSONLSink, error) {
	if path == "" {
		return &JSONLSink{w: os.Stdout, enc: json.NewEncoder(os.Stdout)}, nil
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, fmt.Errorf("trace: opening jsonl sink: %w", err)
	}
	return &JSONLSink{w: f, closer: f, enc: json.NewEncoder(f)}, nil
}

func (s *JSONLSink) Record(r Record) error {
	if err := s.enc.Encode(r); err != nil {
		return fmt.Errorf("trace: writing jsonl record: %w", err)
	}
	return nil
}

func (s *JSONLSink) Close() error {
	if s.closer == nil {
		return nil
	}
	return s.closer.Close()
}
