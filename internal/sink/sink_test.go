package sink

import (
	"bytes"
	"os"
	"path/filepath"
	"regexp"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var eventRe = regexp.MustCompile(`^\[\d{4}-\d{2}-\d{2} \d{2}:\d{2}:\d{2}\] Running fetch \.\.\.\n$`)

func TestEventWritesBothDestinations(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	console := &bytes.Buffer{}

	s, err := Open(console, path)
	require.NoError(t, err)

	s.Event("Running %s ...", "fetch")
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, console.String(), string(data))
	assert.Regexp(t, eventRe, string(data))
}

func TestRawTeesVerbatim(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	console := &bytes.Buffer{}

	s, err := Open(console, path)
	require.NoError(t, err)

	_, err = s.Raw().Write([]byte("line one\nline two\n"))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "line one\nline two\n", string(data))
	assert.Equal(t, "line one\nline two\n", console.String())
}

func TestAppendsAcrossOpens(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")

	for i := 0; i < 2; i++ {
		s, err := Open(&bytes.Buffer{}, path)
		require.NoError(t, err)
		s.Event("Done. (exit=0)")
		require.NoError(t, s.Close())
	}

	data, err := os.ReadFile(path)
	require.NoError(t, err)

	assert.Equal(t, 2, strings.Count(string(data), "Done. (exit=0)"))
}

func TestTail(t *testing.T) {
	path := filepath.Join(t.TempDir(), "run.log")
	require.NoError(t, os.WriteFile(path, []byte("a\nb\nc\nd\ne\n"), 0644))

	got, err := Tail(path, 2)
	require.NoError(t, err)
	assert.Equal(t, "d\ne", got)

	got, err = Tail(path, 100)
	require.NoError(t, err)
	assert.Equal(t, "a\nb\nc\nd\ne", got)
}

func TestTailMissingFile(t *testing.T) {
	_, err := Tail(filepath.Join(t.TempDir(), "nope.log"), 10)
	assert.Error(t, err)
}
