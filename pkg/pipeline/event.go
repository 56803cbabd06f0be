package pipeline

import (
	"context"

	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

// Event is one inbound audio/video message as handed over by the transport.
// Immutable; everything the pipeline needs is captured here.
type Event struct {
	RoomID    id.RoomID
	EventID   id.EventID
	Sender    id.UserID
	Timestamp int64 // server-assigned, milliseconds

	// Filename is the declared body of the media message, used only for
	// temp-file suffix inference.
	Filename string

	// URL is the plaintext media reference. In encrypted rooms File is set
	// instead and carries the reference plus decryption parameters.
	URL  id.ContentURIString
	File *event.EncryptedFileInfo
}

// FromMatrixEvent extracts the pipeline view of a message event.
func FromMatrixEvent(evt *event.Event) Event {
	content := evt.Content.AsMessage()
	return Event{
		RoomID:    evt.RoomID,
		EventID:   evt.ID,
		Sender:    evt.Sender,
		Timestamp: evt.Timestamp,
		Filename:  content.Body,
		URL:       content.URL,
		File:      content.File,
	}
}

// Transport is the slice of the chat client the pipeline talks to.
type Transport interface {
	Download(ctx context.Context, uri id.ContentURI) ([]byte, error)
	SendReaction(ctx context.Context, roomID id.RoomID, eventID id.EventID, key string) (id.EventID, error)
	Redact(ctx context.Context, roomID id.RoomID, eventID id.EventID) error
	SendReply(ctx context.Context, roomID id.RoomID, inReplyTo id.EventID, body string) (id.EventID, error)
}
