package recording

import (
	"bytes"
	"encoding/json"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestWriteThenRead(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "scan")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(w.Path(), "_scan.lvrec"))

	require.NoError(t, w.Record("s1", json.RawMessage(`{"face_count":3,"sentiment":"happy","emotion_counts":{"happy":3}}`)))
	require.NoError(t, w.Record("s1", json.RawMessage(`{"face_count":0}`)))
	require.NoError(t, w.Close())
	require.NoError(t, w.Close())

	f, err := os.Open(w.Path())
	require.NoError(t, err)
	defer f.Close()

	rd, err := NewReader(f)
	require.NoError(t, err)

	first, err := rd.Next()
	require.NoError(t, err)
	assert.Equal(t, "s1", first.SessionID)
	assert.Equal(t, uint64(1), first.Seq)
	assert.False(t, first.Timestamp.IsZero())

	out, err := json.Marshal(first.Payload)
	require.NoError(t, err)
	assert.JSONEq(t, `{"face_count":3,"sentiment":"happy","emotion_counts":{"happy":3}}`, string(out))

	second, err := rd.Next()
	require.NoError(t, err)
	assert.Equal(t, uint64(2), second.Seq)

	_, err = rd.Next()
	assert.ErrorIs(t, err, io.EOF)
}

func TestRecordRejectsInvalidJSON(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "bad")
	require.NoError(t, err)
	defer w.Close()

	assert.Error(t, w.Record("s", json.RawMessage(`{`)))
}

func TestRecordAfterClose(t *testing.T) {
	w, err := NewWriter(t.TempDir(), "closed")
	require.NoError(t, err)
	require.NoError(t, w.Close())

	assert.Error(t, w.Record("s", json.RawMessage(`{}`)))
}

func TestReaderBadMagic(t *testing.T) {
	_, err := NewReader(bytes.NewReader([]byte("NOTAFILE........")))
	assert.ErrorIs(t, err, ErrBadMagic)
}

func TestReaderTruncatedRecord(t *testing.T) {
	dir := t.TempDir()
	w, err := NewWriter(dir, "cut")
	require.NoError(t, err)
	require.NoError(t, w.Record("s", json.RawMessage(`{"face_count":1}`)))
	require.NoError(t, w.Close())

	data, err := os.ReadFile(w.Path())
	require.NoError(t, err)

	cut := filepath.Join(dir, "cut.lvrec")
	require.NoError(t, os.WriteFile(cut, data[:len(data)-3], 0o644))

	f, err := os.Open(cut)
	require.NoError(t, err)
	defer f.Close()

	rd, err := NewReader(f)
	require.NoError(t, err)
	_, err = rd.Next()
	assert.ErrorIs(t, err, io.EOF)
}
