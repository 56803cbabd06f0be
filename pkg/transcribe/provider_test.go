package transcribe

import (
	"os"
	"path/filepath"
	"testing"

	"transcriptbot/pkg/config"
)

func TestNewSelectsAPIProvider(t *testing.T) {
	cfg := &config.Config{Whisper: config.WhisperConfig{
		Provider: config.ProviderAPI,
		Model:    "whisper-1",
		URL:      "http://localhost:8000",
	}}

	provider, err := New(cfg, nil)
	if err != nil {
		t.Fatalf("New error: %v", err)
	}
	if provider.Name() != config.ProviderAPI {
		t.Fatalf("provider = %q, want %q", provider.Name(), config.ProviderAPI)
	}
}

func TestNewLocalMissingModel(t *testing.T) {
	cfg := &config.Config{Whisper: config.WhisperConfig{
		Provider: config.ProviderLocal,
		Model:    "large-v3",
		ModelDir: t.TempDir(),
	}}

	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected error for missing model file")
	}
}

func TestNewLocalNilLogger(t *testing.T) {
	dir := t.TempDir()
	modelPath := filepath.Join(dir, "ggml-large-v3.bin")
	if err := os.WriteFile(modelPath, []byte("not a ggml model"), 0o600); err != nil {
		t.Fatalf("write model file: %v", err)
	}

	cfg := config.WhisperConfig{
		Provider: config.ProviderLocal,
		Model:    "large-v3",
		ModelDir: dir,
	}

	// Must reach the model-load step and report its failure as an error,
	// not panic on the absent logger.
	if _, err := NewLocal(cfg, nil); err == nil {
		t.Fatal("expected error loading an invalid model file")
	}
}

func TestNewUnsupportedProvider(t *testing.T) {
	cfg := &config.Config{Whisper: config.WhisperConfig{Provider: "deepgram"}}

	if _, err := New(cfg, nil); err == nil {
		t.Fatal("expected error for unsupported provider")
	}
}
