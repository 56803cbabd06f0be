package transcribe

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"transcriptbot/pkg/config"
)

// ErrTranscriptionFailed wraps any fault raised by a transcription backend.
// The pipeline branches on it to flip the status reaction to the failure
// marker instead of sending a reply.
var ErrTranscriptionFailed = errors.New("transcription failed")

// Provider is the interface for speech-to-text backends.
//
// Transcribe is synchronous and can take several seconds for the local
// backend; callers go through the Dispatcher so the sync loop never runs it
// directly.
type Provider interface {
	Name() string
	Transcribe(ctx context.Context, audioPath string) (string, error)
	Close() error
}

// New resolves the configured transcription backend.
func New(cfg *config.Config, log *slog.Logger) (Provider, error) {
	if log == nil {
		log = slog.Default()
	}

	switch cfg.Whisper.Provider {
	case config.ProviderLocal:
		return NewLocal(cfg.Whisper, log)
	case config.ProviderAPI:
		return NewAPIClient(cfg.Whisper), nil
	default:
		return nil, fmt.Errorf("unsupported whisper provider: %s", cfg.Whisper.Provider)
	}
}
