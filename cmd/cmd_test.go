package cmd

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"livevision/internal/config"
	"livevision/internal/models"
	"livevision/internal/recording"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type backend struct {
	mu           sync.Mutex
	frames       int
	healthCode   int
	emotionCfg   models.EmotionConfig
	lastSentence string
}

func newBackend(t *testing.T) (*backend, *httptest.Server) {
	b := &backend{healthCode: http.StatusOK}

	mux := http.NewServeMux()
	mux.HandleFunc("/vision", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		b.frames++
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"face_count":1,"sentiment":"neutral","bytes":1234}`))
	})
	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(b.healthCode)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})
	mux.HandleFunc("/sentiment", func(w http.ResponseWriter, r *http.Request) {
		var req models.SentimentRequest
		_ = json.NewDecoder(r.Body).Decode(&req)
		b.mu.Lock()
		b.lastSentence = req.Text
		b.mu.Unlock()
		_, _ = w.Write([]byte(`{"sentiment":"positive"}`))
	})
	mux.HandleFunc("/emotion-config", func(w http.ResponseWriter, r *http.Request) {
		b.mu.Lock()
		defer b.mu.Unlock()
		if r.Method == http.MethodPost {
			_ = json.NewDecoder(r.Body).Decode(&b.emotionCfg)
		}
		_ = json.NewEncoder(w).Encode(b.emotionCfg)
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return b, srv
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()

	backendOverride = ""
	configPath = ""

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)

	err := rootCmd.ExecuteContext(context.Background())
	return out.String(), err
}

func useConfig(t *testing.T, backendURL string) string {
	t.Helper()

	backendOverride = ""
	configPath = filepath.Join(t.TempDir(), "config.json")
	cfg = config.NewDefaultConfig()
	cfg.SetBackendURL(backendURL)
	cfg.SetWidth(64)
	cfg.SetHeight(48)

	return configPath
}

func TestBackendURLCommand(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.json")

	out, err := execute(t, "--config", path, "backend-url")
	require.NoError(t, err)
	assert.Equal(t, config.DefaultBackendURL+"\n", out)

	out, err = execute(t, "--config", path, "backend-url", "http://vision.local:9000/")
	require.NoError(t, err)
	assert.Equal(t, "http://vision.local:9000\n", out)

	assert.Equal(t, "http://vision.local:9000", config.LoadConfigFile(path).GetBackendURL())

	out, err = execute(t, "--config", path, "backend-url")
	require.NoError(t, err)
	assert.Equal(t, "http://vision.local:9000\n", out)
}

func TestSentimentCommand(t *testing.T) {
	b, srv := newBackend(t)
	path := filepath.Join(t.TempDir(), "config.json")

	out, err := execute(t, "--config", path, "--backend", srv.URL+"/", "sentiment", "what", "a", "day")
	require.NoError(t, err)

	assert.Equal(t, "positive\n", out)
	assert.Equal(t, "what a day", b.lastSentence)
}

func TestEmotionConfigSetKeepsUnchangedFields(t *testing.T) {
	b, srv := newBackend(t)
	b.emotionCfg = models.EmotionConfig{Endpoint: "http://nim/v1", Token: "secret", Model: "llava"}
	path := filepath.Join(t.TempDir(), "config.json")

	out, err := execute(t, "--config", path, "--backend", srv.URL, "emotion-config", "set", "--model", "llama")
	require.NoError(t, err)
	assert.Equal(t, "Saved\n", out)

	assert.Equal(t, models.EmotionConfig{Endpoint: "http://nim/v1", Token: "secret", Model: "llama"}, b.emotionCfg)

	out, err = execute(t, "--config", path, "--backend", srv.URL, "emotion-config", "get")
	require.NoError(t, err)

	var got models.EmotionConfig
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Equal(t, "llama", got.Model)
}

func TestScanStaticRecordsResponses(t *testing.T) {
	b, srv := newBackend(t)
	useConfig(t, srv.URL)
	dir := t.TempDir()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	var out bytes.Buffer
	err := runScan(ctx, ScanOptions{
		Source:    sourceStatic,
		Interval:  20 * time.Millisecond,
		Frames:    2,
		Check:     true,
		Record:    true,
		RecordDir: dir,
	}, &out)
	require.NoError(t, err)
	require.NoError(t, ctx.Err(), "scan should stop on its own after two responses")

	assert.Contains(t, out.String(), "healthy")
	assert.Contains(t, out.String(), "2 frames received")

	b.mu.Lock()
	assert.GreaterOrEqual(t, b.frames, 2)
	b.mu.Unlock()

	files, err := filepath.Glob(filepath.Join(dir, "*"+recording.Extension))
	require.NoError(t, err)
	require.Len(t, files, 1)

	f, err := os.Open(files[0])
	require.NoError(t, err)
	defer f.Close()

	var dump bytes.Buffer
	n, err := replay(f, &dump, false)
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	sc := bufio.NewScanner(&dump)
	var seqs []float64
	for sc.Scan() {
		var rec map[string]any
		require.NoError(t, json.Unmarshal(sc.Bytes(), &rec))
		seqs = append(seqs, rec["seq"].(float64))

		payload := rec["payload"].(map[string]any)
		assert.Equal(t, float64(1), payload["face_count"])
		assert.NotEmpty(t, rec["session_id"])
	}
	assert.Equal(t, []float64{1, 2}, seqs)
}

func TestScanCheckFailsWhenUnhealthy(t *testing.T) {
	b, srv := newBackend(t)
	b.healthCode = http.StatusServiceUnavailable
	useConfig(t, srv.URL)

	err := runScan(context.Background(), ScanOptions{Source: sourceStatic, Check: true}, &bytes.Buffer{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "503")

	b.mu.Lock()
	assert.Zero(t, b.frames)
	b.mu.Unlock()
}

func TestReplayRejectsForeignFile(t *testing.T) {
	_, err := replay(strings.NewReader("definitely not a recording"), &bytes.Buffer{}, false)
	assert.ErrorIs(t, err, recording.ErrBadMagic)
}
