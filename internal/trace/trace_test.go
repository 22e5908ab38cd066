package trace

import (
	"bufio"
	"bytes"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"termweave/internal/term"
)

func TestJSONLSinkWritesOneRecordPerLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	sink, err := NewJSONLSink(path)
	require.NoError(t, err)

	require.NoError(t, sink.Record(Record{Step: 0, Rule: "up", Before: "a", After: []term.ID{"b"}}))
	require.NoError(t, sink.Record(Record{Step: 1, Rule: "down", Before: "b", After: []term.ID{"a"}}))
	require.NoError(t, sink.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	sc := bufio.NewScanner(bytes.NewReader(data))
	var lines []Record
	for sc.Scan() {
		var r Record
		require.NoError(t, json.Unmarshal(sc.Bytes(), &r))
		lines = append(lines, r)
	}
	require.Len(t, lines, 2)
	require.Equal(t, "up", lines[0].Rule)
	require.Equal(t, "down", lines[1].Rule)
}

type failingSink struct{}

func (failingSink) Record(Record) error { return errors.New("boom") }
func (failingSink) Close() error        { return nil }

type countingSink struct{ n int }

func (s *countingSink) Record(Record) error { s.n++; return nil }
func (s *countingSink) Close() error        { return nil }

func TestDetachingSinkDropsFailingSinkAfterOneWarning(t *testing.T) {
	warnings := 0
	good := &countingSink{}
	d := NewDetachingSink(func(name string, err error) { warnings++ }, map[string]Sink{
		"bad":  failingSink{},
		"good": good,
	})

	d.Record(Record{Step: 0})
	require.Equal(t, 1, warnings)
	require.Equal(t, 1, d.Active())

	d.Record(Record{Step: 1})
	require.Equal(t, 1, warnings, "must warn only once per sink")
	require.Equal(t, 2, good.n)
}
