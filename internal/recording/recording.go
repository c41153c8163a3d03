// Package recording appends raw backend responses to a binary log so a demo
// run can be inspected afterwards.
//
// File layout: the 8-byte magic "LVREC001", then records of
// [8B LE unix-nanos][4B LE payload length][CBOR payload].
package recording

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"reflect"
	"sync"
	"time"

	"github.com/fxamacker/cbor/v2"
)

const (
	Magic     = "LVREC001"
	Extension = ".lvrec"

	maxPayload = 16 << 20
)

var ErrBadMagic = errors.New("not a recording file")

type Record struct {
	Timestamp time.Time `cbor:"-" json:"timestamp"`
	SessionID string    `cbor:"session_id" json:"session_id"`
	Seq       uint64    `cbor:"seq" json:"seq"`
	Payload   any       `cbor:"payload" json:"payload"`
}

var decMode = func() cbor.DecMode {
	dm, err := cbor.DecOptions{
		DefaultMapType: reflect.TypeOf(map[string]any(nil)),
	}.DecMode()
	if err != nil {
		panic(err)
	}
	return dm
}()

type Writer struct {
	mu   sync.Mutex
	f    *os.File
	w    *bufio.Writer
	seq  uint64
	path string
}

// NewWriter creates a timestamped file in dir.
func NewWriter(dir string, prefix string) (*Writer, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}

	name := fmt.Sprintf("%s_%s%s", time.Now().Format("20060102_150405"), prefix, Extension)
	path := filepath.Join(dir, name)

	f, err := os.Create(path)
	if err != nil {
		return nil, err
	}

	w := bufio.NewWriterSize(f, 64*1024)
	if _, err := w.WriteString(Magic); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := w.Flush(); err != nil {
		_ = f.Close()
		return nil, err
	}

	return &Writer{f: f, w: w, path: path}, nil
}

func (r *Writer) Path() string { return r.path }

// Record appends one backend response. raw must be valid JSON.
func (r *Writer) Record(sessionID string, raw json.RawMessage) error {
	var value any
	if err := json.Unmarshal(raw, &value); err != nil {
		return fmt.Errorf("record payload: %w", err)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if r.w == nil {
		return fmt.Errorf("recording writer is closed")
	}

	r.seq++
	payload, err := cbor.Marshal(Record{SessionID: sessionID, Seq: r.seq, Payload: value})
	if err != nil {
		return err
	}

	var header [12]byte
	binary.LittleEndian.PutUint64(header[:8], uint64(time.Now().UnixNano()))
	binary.LittleEndian.PutUint32(header[8:12], uint32(len(payload)))

	if _, err := r.w.Write(header[:]); err != nil {
		return err
	}
	if _, err := r.w.Write(payload); err != nil {
		return err
	}
	return r.w.Flush()
}

func (r *Writer) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.w == nil {
		return nil
	}
	if err := r.w.Flush(); err != nil {
		_ = r.f.Close()
		r.w = nil
		return err
	}
	err := r.f.Close()
	r.w = nil
	return err
}

type Reader struct {
	r io.Reader
}

// NewReader checks the magic and positions r at the first record.
func NewReader(r io.Reader) (*Reader, error) {
	header := make([]byte, len(Magic))
	if _, err := io.ReadFull(r, header); err != nil {
		return nil, fmt.Errorf("read magic: %w", err)
	}
	if string(header) != Magic {
		return nil, fmt.Errorf("%w: magic %q", ErrBadMagic, string(header))
	}
	return &Reader{r: bufio.NewReader(r)}, nil
}

// Next returns io.EOF after the last complete record. A record cut short
// by a crash also ends the stream with io.EOF.
func (rd *Reader) Next() (Record, error) {
	var meta [12]byte
	if _, err := io.ReadFull(rd.r, meta[:]); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, io.EOF
		}
		return Record{}, err
	}

	ts := int64(binary.LittleEndian.Uint64(meta[:8]))
	size := binary.LittleEndian.Uint32(meta[8:12])
	if size > maxPayload {
		return Record{}, fmt.Errorf("record too large: %d bytes", size)
	}

	payload := make([]byte, size)
	if _, err := io.ReadFull(rd.r, payload); err != nil {
		if errors.Is(err, io.EOF) || errors.Is(err, io.ErrUnexpectedEOF) {
			return Record{}, io.EOF
		}
		return Record{}, err
	}

	var rec Record
	if err := decMode.Unmarshal(payload, &rec); err != nil {
		return Record{}, fmt.Errorf("decode record: %w", err)
	}
	rec.Timestamp = time.Unix(0, ts)

	return rec, nil
}
