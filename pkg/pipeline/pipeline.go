package pipeline

import (
	"context"
	"errors"
	"io/fs"
	"log/slog"
	"os"
	"time"

	"maunium.net/go/mautrix/id"
)

// Transcriber runs one blocking transcription off the sync loop.
// Implemented by transcribe.Dispatcher.
type Transcriber interface {
	Transcribe(ctx context.Context, audioPath string) (string, error)
}

// Pipeline orchestrates the per-message flow: filter, pending reaction,
// fetch, transcribe, reply. Each accepted event runs independently; the
// only shared state is the read-only startup watermark.
type Pipeline struct {
	transport   Transport
	transcriber Transcriber
	fetcher     *Fetcher
	selfID      id.UserID
	startedAt   int64 // ms, set once at construction
	log         *slog.Logger
}

func New(transport Transport, transcriber Transcriber, selfID id.UserID, log *slog.Logger) *Pipeline {
	if log == nil {
		log = slog.Default()
	}
	log = log.With("component", "pipeline")

	return &Pipeline{
		transport:   transport,
		transcriber: transcriber,
		fetcher:     NewFetcher(transport, log),
		selfID:      selfID,
		startedAt:   time.Now().UnixMilli(),
		log:         log,
	}
}

// HandleEvent filters one inbound message and processes accepted ones on
// their own goroutine, keeping the sync loop free to deliver further
// events while downloads and transcriptions are in flight.
func (p *Pipeline) HandleEvent(ctx context.Context, ev Event) {
	if !p.accept(ev) {
		return
	}
	go p.Process(ctx, ev)
}

// accept rejects the bot's own messages and backlog events replayed by
// catch-up sync.
func (p *Pipeline) accept(ev Event) bool {
	if ev.Sender == p.selfID {
		return false
	}
	if ev.Timestamp < p.startedAt {
		p.log.Debug("Ignoring backlog event", "event_id", ev.EventID, "timestamp", ev.Timestamp)
		return false
	}
	return true
}

// Process runs the full pipeline for one accepted event. Exactly one of
// {no visible change, transcript reply, no-speech reply, failure reaction}
// results, and the pending reaction never outlives the call.
func (p *Pipeline) Process(ctx context.Context, ev Event) {
	log := p.log.With("room_id", ev.RoomID, "event_id", ev.EventID, "sender", ev.Sender)
	log.Info("Processing voice message")

	m := newMarker(p.transport, ev.RoomID, ev.EventID, log)
	m.Pending(ctx)

	audioPath, err := p.fetcher.Fetch(ctx, ev)
	if err != nil {
		// An unfetchable attachment is not surfaced to the room.
		log.Error("Failed to fetch attachment", "error", err)
		m.Clear(ctx)
		return
	}

	text, err := p.runTranscription(ctx, audioPath)
	if err != nil {
		log.Error("Transcription failed", "error", err)
		m.Fail(ctx)
		return
	}

	m.Clear(ctx)

	body := FormatReply(text)
	if _, err := p.transport.SendReply(ctx, ev.RoomID, ev.EventID, body); err != nil {
		// Best-effort: reply delivery failures are logged, not retried.
		log.Error("Failed to send reply", "error", err)
		return
	}
	log.Info("Transcript delivered", "length", len(text))
}

// runTranscription removes the temp audio file as soon as the backend call
// returns, on success and failure alike.
func (p *Pipeline) runTranscription(ctx context.Context, audioPath string) (string, error) {
	defer func() {
		if err := os.Remove(audioPath); err != nil && !errors.Is(err, fs.ErrNotExist) {
			p.log.Warn("Failed to remove temp audio file", "path", audioPath, "error", err)
		}
	}()
	return p.transcriber.Transcribe(ctx, audioPath)
}
