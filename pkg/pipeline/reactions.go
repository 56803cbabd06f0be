package pipeline

import (
	"context"
	"log/slog"

	"maunium.net/go/mautrix/id"
)

const (
	pendingReaction = "🤖"
	failureReaction = "❌"
)

// marker manages the status reaction attached to one inbound event.
//
// Lifecycle: Pending posts the processing reaction, then exactly one of
// Clear or Fail retires it. At most one live reaction exists per event and
// none survives a terminal transition. Marker state lives in the pipeline
// goroutine's closure, so no locking.
type marker struct {
	transport  Transport
	roomID     id.RoomID
	target     id.EventID
	reactionID id.EventID
	log        *slog.Logger
}

func newMarker(transport Transport, roomID id.RoomID, target id.EventID, log *slog.Logger) *marker {
	return &marker{
		transport: transport,
		roomID:    roomID,
		target:    target,
		log:       log,
	}
}

// Pending posts the processing reaction and records its identity. A send
// failure is best-effort: processing continues without a marker to redact.
func (m *marker) Pending(ctx context.Context) {
	reactionID, err := m.transport.SendReaction(ctx, m.roomID, m.target, pendingReaction)
	if err != nil {
		m.log.Warn("Failed to post pending reaction", "error", err)
		return
	}
	m.reactionID = reactionID
}

// Clear redacts the pending reaction. No-op when none was recorded; the
// redact call is never attempted with an empty identity.
func (m *marker) Clear(ctx context.Context) {
	if m.reactionID == "" {
		return
	}
	if err := m.transport.Redact(ctx, m.roomID, m.reactionID); err != nil {
		m.log.Warn("Failed to redact pending reaction", "error", err)
	}
	m.reactionID = ""
}

// Fail retires the pending reaction and posts the failure reaction.
func (m *marker) Fail(ctx context.Context) {
	m.Clear(ctx)
	if _, err := m.transport.SendReaction(ctx, m.roomID, m.target, failureReaction); err != nil {
		m.log.Warn("Failed to post failure reaction", "error", err)
	}
}
