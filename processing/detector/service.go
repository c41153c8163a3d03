package processing

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/textproto"
	"strings"
	"time"

	"livevision/internal/config"
	"livevision/internal/models"
	"livevision/internal/settings"
)

const maxResponseBytes = 1 << 20

var ErrConnection = errors.New("Connection failed")

// HTTPError is returned when the backend answers with a non-2xx status.
type HTTPError struct {
	Status int
	Body   string
}

func (e *HTTPError) Error() string {
	return fmt.Sprintf("Backend error: %d", e.Status)
}

// RemoteDetector talks to the vision backend over HTTP. The base URL is
// read from the store on every call, so a new URL takes effect on the next
// frame without restarting the session.
type RemoteDetector struct {
	urls   settings.Store
	client *http.Client
}

func NewRemoteDetector(urls settings.Store, timeout time.Duration) *RemoteDetector {
	return &RemoteDetector{
		urls:   urls,
		client: &http.Client{Timeout: timeout},
	}
}

func (d *RemoteDetector) BaseURL() string {
	base := settings.Normalize(d.urls.Get())
	if base == "" {
		return config.DefaultBackendURL
	}
	return base
}

func (d *RemoteDetector) endpoint(path string) string {
	return d.BaseURL() + path
}

// SendFrame posts one JPEG as multipart field "frame" to /vision.
func (d *RemoteDetector) SendFrame(ctx context.Context, frame []byte) (*models.VisionResponse, error) {
	var body bytes.Buffer
	mw := multipart.NewWriter(&body)

	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="frame"; filename="frame.jpg"`)
	header.Set("Content-Type", "image/jpeg")

	part, err := mw.CreatePart(header)
	if err != nil {
		return nil, err
	}
	if _, err := part.Write(frame); err != nil {
		return nil, err
	}
	if err := mw.Close(); err != nil {
		return nil, err
	}

	raw, err := d.do(ctx, http.MethodPost, "/vision", &body, mw.FormDataContentType())
	if err != nil {
		return nil, err
	}

	var resp models.VisionResponse
	if err := json.Unmarshal(raw, &resp); err != nil {
		return nil, fmt.Errorf("decode vision response: %w", err)
	}
	resp.Raw = raw

	return &resp, nil
}

func (d *RemoteDetector) SendSentiment(ctx context.Context, text string) (*models.SentimentResponse, error) {
	var resp models.SentimentResponse
	if err := d.doJSON(ctx, http.MethodPost, "/sentiment", models.SentimentRequest{Text: text}, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (d *RemoteDetector) GetEmotionConfig(ctx context.Context) (*models.EmotionConfig, error) {
	var cfg models.EmotionConfig
	if err := d.doJSON(ctx, http.MethodGet, "/emotion-config", nil, &cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (d *RemoteDetector) SaveEmotionConfig(ctx context.Context, cfg models.EmotionConfig) error {
	cfg.Endpoint = strings.TrimSpace(cfg.Endpoint)
	cfg.Token = strings.TrimSpace(cfg.Token)
	cfg.Model = strings.TrimSpace(cfg.Model)

	return d.doJSON(ctx, http.MethodPost, "/emotion-config", cfg, nil)
}

func (d *RemoteDetector) Health(ctx context.Context) (*models.HealthResponse, error) {
	var resp models.HealthResponse
	if err := d.doJSON(ctx, http.MethodGet, "/health", nil, &resp); err != nil {
		return nil, err
	}
	return &resp, nil
}

func (d *RemoteDetector) doJSON(ctx context.Context, method, path string, in any, out any) error {
	var body io.Reader
	contentType := ""

	if in != nil {
		payload, err := json.Marshal(in)
		if err != nil {
			return err
		}
		body = bytes.NewReader(payload)
		contentType = "application/json"
	}

	raw, err := d.do(ctx, method, path, body, contentType)
	if err != nil {
		return err
	}

	if out == nil || len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode %s response: %w", path, err)
	}
	return nil
}

func (d *RemoteDetector) do(ctx context.Context, method, path string, body io.Reader, contentType string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, method, d.endpoint(path), body)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		return nil, fmt.Errorf("%w: %s %s: %v", ErrConnection, method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read %s: %v", ErrConnection, path, err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return nil, &HTTPError{Status: resp.StatusCode, Body: strings.TrimSpace(string(raw))}
	}

	return raw, nil
}
