// Package watch implements termweave-watch: a read-only tail over a
// --trace-jsonl file. It never writes to the file and has no way to
// influence the run producing it.
package watch

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"termweave/internal/trace"
)

// Tailer incrementally reads newly-appended JSONL records from a trace
// file, remembering the byte offset it last read up to.
type Tailer struct {
	path   string
	offset int64
}

// NewTailer opens a tailer over path. The file need not exist yet — a run
// may not have created it until its first event fires.
func NewTailer(path string) *Tailer {
	return &Tailer{path: path}
}

// Poll reads any records appended since the last Poll call. A missing
// file is not an error: it returns zero records.
func (t *Tailer) Poll() ([]trace.Record, error) {
	f, err := os.Open(t.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("watch: opening trace file: %w", err)
	}
	defer f.Close()

	info, err := f.Stat()
	if err != nil {
		return nil, fmt.Errorf("watch: statting trace file: %w", err)
	}
	if info.Size() < t.offset {
		// The file was truncated or replaced (a fresh run); start over.
		t.offset = 0
	}

	if _, err := f.Seek(t.offset, io.SeekStart); err != nil {
		return nil, fmt.Errorf("watch: seeking trace file: %w", err)
	}

	var records []trace.Record
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
	var consumed int64
	for scanner.Scan() {
		line := scanner.Bytes()
		lineLen := int64(len(line)) + 1 // newline
		if t.offset+consumed+lineLen > info.Size() {
			// No trailing newline yet: leave the line for the next Poll.
			break
		}
		if len(line) == 0 {
			consumed += lineLen
			continue
		}
		var rec trace.Record
		if err := json.Unmarshal(line, &rec); err != nil {
			// A partially-flushed final line; stop here and retry on the
			// next Poll once the writer finishes it, without marking
			// these bytes as consumed.
			break
		}
		consumed += lineLen
		records = append(records, rec)
	}
	t.offset += consumed

	return records, nil
}
