package watch

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPollReturnsNothingForMissingFile(t *testing.T) {
	tailer := NewTailer(filepath.Join(t.TempDir(), "missing.jsonl"))
	records, err := tailer.Poll()
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestPollOnlyReturnsNewlyAppendedRecords(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"step":1,"rule":"up","before":"A","before_sym":"A","before_scale":0,"after":["F(A)"],"scale":0,"timestamp_ns":1}`+"\n"), 0o644))

	tailer := NewTailer(path)
	first, err := tailer.Poll()
	require.NoError(t, err)
	require.Len(t, first, 1)
	require.Equal(t, "up", first[0].Rule)

	second, err := tailer.Poll()
	require.NoError(t, err)
	require.Empty(t, second)

	f, err := os.OpenFile(path, os.O_APPEND|os.O_WRONLY, 0o644)
	require.NoError(t, err)
	_, err = f.WriteString(`{"step":2,"rule":"down","before":"F(A)","before_sym":"F(A)","before_scale":1,"after":["A"],"scale":1,"timestamp_ns":2}` + "\n")
	require.NoError(t, err)
	require.NoError(t, f.Close())

	third, err := tailer.Poll()
	require.NoError(t, err)
	require.Len(t, third, 1)
	require.Equal(t, "down", third[0].Rule)
}

func TestPollIgnoresUnterminatedFinalLine(t *testing.T) {
	path := filepath.Join(t.TempDir(), "trace.jsonl")
	require.NoError(t, os.WriteFile(path, []byte(`{"step":1,"rule":"up"`), 0o644))

	tailer := NewTailer(path)
	records, err := tailer.Poll()
	require.NoError(t, err)
	require.Empty(t, records)
}
