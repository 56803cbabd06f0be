package transcribe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"transcriptbot/pkg/config"
)

const transcriptionsPath = "/v1/audio/transcriptions"

const defaultAPITimeout = 300 * time.Second

// APIClient posts audio to an OpenAI-compatible transcription endpoint.
// cfg.URL is the server base URL; the standard path is appended unless the
// URL already names it.
type APIClient struct {
	endpoint string
	model    string
	language string
	client   *http.Client
}

func NewAPIClient(cfg config.WhisperConfig) *APIClient {
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = defaultAPITimeout
	}

	endpoint := strings.TrimRight(strings.TrimSpace(cfg.URL), "/")
	if !strings.HasSuffix(endpoint, transcriptionsPath) {
		endpoint += transcriptionsPath
	}

	return &APIClient{
		endpoint: endpoint,
		model:    cfg.Model,
		language: strings.TrimSpace(cfg.Language),
		client:   &http.Client{Timeout: timeout},
	}
}

func (c *APIClient) Name() string {
	return config.ProviderAPI
}

// Transcribe uploads the file as multipart/form-data and returns the text
// from the JSON response.
func (c *APIClient) Transcribe(ctx context.Context, audioPath string) (string, error) {
	f, err := os.Open(audioPath)
	if err != nil {
		return "", fmt.Errorf("open audio file: %w", err)
	}
	defer f.Close()

	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)

	part, err := writer.CreateFormFile("file", filepath.Base(audioPath))
	if err != nil {
		return "", fmt.Errorf("create form file: %w", err)
	}
	if _, err := io.Copy(part, f); err != nil {
		return "", fmt.Errorf("read audio file: %w", err)
	}

	fields := map[string]string{
		"model":           c.model,
		"response_format": "json",
	}
	if c.language != "" {
		fields["language"] = c.language
	}
	for key, value := range fields {
		if err := writer.WriteField(key, value); err != nil {
			return "", fmt.Errorf("write form field %s: %w", key, err)
		}
	}

	if err := writer.Close(); err != nil {
		return "", fmt.Errorf("close multipart writer: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.endpoint, &buf)
	if err != nil {
		return "", fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	resp, err := c.client.Do(req)
	if err != nil {
		return "", fmt.Errorf("post transcription request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return "", fmt.Errorf("transcription API returned %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var parsed struct {
		Text string `json:"text"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&parsed); err != nil {
		return "", fmt.Errorf("decode transcription response: %w", err)
	}

	return parsed.Text, nil
}

func (c *APIClient) Close() error {
	return nil
}
