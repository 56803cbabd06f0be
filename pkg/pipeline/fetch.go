package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
)

// ErrDownloadFailed covers every way of not getting usable audio bytes onto
// disk: transport errors, empty responses, decryption failures, temp-file
// trouble. The pipeline treats all of them as "nothing to do": clear the
// pending marker, send nothing.
var ErrDownloadFailed = errors.New("download failed")

const defaultSuffix = ".ogg"

// Fetcher turns a media reference into a local audio file.
type Fetcher struct {
	transport Transport
	log       *slog.Logger
}

func NewFetcher(transport Transport, log *slog.Logger) *Fetcher {
	if log == nil {
		log = slog.Default()
	}
	return &Fetcher{
		transport: transport,
		log:       log.With("component", "pipeline.fetcher"),
	}
}

// Fetch downloads the event's attachment, decrypts it when the room is
// encrypted, and writes it to a uniquely named temp file. The caller owns
// the returned path and must remove it.
func (f *Fetcher) Fetch(ctx context.Context, ev Event) (string, error) {
	ref := ev.URL
	if ev.File != nil {
		ref = ev.File.URL
	}

	uri, err := ref.Parse()
	if err != nil {
		return "", fmt.Errorf("%w: parse media reference: %v", ErrDownloadFailed, err)
	}

	data, err := f.transport.Download(ctx, uri)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrDownloadFailed, err)
	}
	if len(data) == 0 {
		return "", fmt.Errorf("%w: empty response", ErrDownloadFailed)
	}

	if ev.File != nil {
		// DecryptInPlace verifies the integrity hash; a mismatch fails here
		// instead of handing corrupt bytes to the transcriber.
		if err := ev.File.DecryptInPlace(data); err != nil {
			return "", fmt.Errorf("%w: decrypt attachment: %v", ErrDownloadFailed, err)
		}
	}

	tmp, err := os.CreateTemp("", "transcriptbot-*"+audioSuffix(ev.Filename))
	if err != nil {
		return "", fmt.Errorf("%w: create temp file: %v", ErrDownloadFailed, err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: write temp file: %v", ErrDownloadFailed, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmp.Name())
		return "", fmt.Errorf("%w: close temp file: %v", ErrDownloadFailed, err)
	}

	f.log.Debug("Attachment fetched", "event_id", ev.EventID, "path", tmp.Name(), "bytes", len(data))

	return tmp.Name(), nil
}

// audioSuffix infers the temp-file extension from the declared filename.
func audioSuffix(filename string) string {
	if ext := filepath.Ext(filename); ext != "" {
		return ext
	}
	return defaultSuffix
}
