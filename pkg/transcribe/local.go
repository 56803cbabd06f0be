package transcribe

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"sync"

	whisper "github.com/ggerganov/whisper.cpp/bindings/go/pkg/whisper"

	"transcriptbot/pkg/config"
)

// Local runs whisper.cpp in-process. The model is loaded once at
// construction; each Transcribe call decodes the input media to 16 kHz mono
// PCM and runs inference on a fresh whisper context.
type Local struct {
	model    whisper.Model
	language string
	log      *slog.Logger

	// ggml inference is not thread safe across contexts on shared state.
	inferenceMu sync.Mutex
}

// NewLocal loads the ggml model named by cfg.Model from cfg.ModelDir.
func NewLocal(cfg config.WhisperConfig, log *slog.Logger) (*Local, error) {
	modelPath := filepath.Join(cfg.ModelDir, fmt.Sprintf("ggml-%s.bin", cfg.Model))
	if _, err := os.Stat(modelPath); err != nil {
		return nil, fmt.Errorf("whisper model not found: %w", err)
	}

	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "transcribe.local")
	log.Info("Loading whisper model", "model", cfg.Model, "path", modelPath)

	model, err := whisper.New(modelPath)
	if err != nil {
		return nil, fmt.Errorf("load whisper model: %w", err)
	}

	log.Info("Whisper model loaded")

	return &Local{
		model:    model,
		language: strings.TrimSpace(cfg.Language),
		log:      log,
	}, nil
}

func (l *Local) Name() string {
	return config.ProviderLocal
}

// Transcribe decodes the file at audioPath and returns the joined segment
// texts. An empty return with nil error means no speech was recognized.
func (l *Local) Transcribe(ctx context.Context, audioPath string) (string, error) {
	samples, err := decodeAudio(ctx, audioPath)
	if err != nil {
		return "", err
	}

	wctx, err := l.model.NewContext()
	if err != nil {
		return "", fmt.Errorf("create whisper context: %w", err)
	}

	if l.language != "" {
		if err := wctx.SetLanguage(l.language); err != nil {
			return "", fmt.Errorf("set language %q: %w", l.language, err)
		}
	}
	wctx.SetTranslate(false)

	var parts []string
	segmentCallback := func(segment whisper.Segment) {
		if text := strings.TrimSpace(segment.Text); text != "" {
			parts = append(parts, text)
		}
	}

	l.inferenceMu.Lock()
	err = wctx.Process(samples, nil, segmentCallback, nil)
	l.inferenceMu.Unlock()

	if err != nil {
		return "", fmt.Errorf("whisper process: %w", err)
	}

	return strings.Join(parts, " "), nil
}

func (l *Local) Close() error {
	return l.model.Close()
}
