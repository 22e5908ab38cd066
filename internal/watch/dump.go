package watch

import (
	"encoding/json"
	"fmt"
	"io"
)

// Dump does a single, non-interactive pass over the full trace file and
// writes each record as a JSON line to w — the fallback for a non-TTY
// stdout (piped output, CI logs) where a full-screen TUI can't render.
func Dump(path string, w io.Writer) error {
	t := NewTailer(path)
	records, err := t.Poll()
	if err != nil {
		return err
	}
	enc := json.NewEncoder(w)
	for _, rec := range records {
		if err := enc.Encode(rec); err != nil {
			return fmt.Errorf("watch: writing record: %w", err)
		}
	}
	return nil
}
