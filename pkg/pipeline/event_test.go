package pipeline

import (
	"testing"

	"github.com/stretchr/testify/require"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"
)

func TestFromMatrixEventPlaintext(t *testing.T) {
	evt := &event.Event{
		RoomID:    testRoom,
		ID:        testEvent,
		Sender:    testSender,
		Timestamp: 1700000000000,
		Content: event.Content{
			Parsed: &event.MessageEventContent{
				MsgType: event.MsgAudio,
				Body:    "memo.ogg",
				URL:     "mxc://example.com/abc123",
			},
		},
	}

	ev := FromMatrixEvent(evt)
	require.Equal(t, testRoom, ev.RoomID)
	require.Equal(t, testEvent, ev.EventID)
	require.Equal(t, testSender, ev.Sender)
	require.EqualValues(t, 1700000000000, ev.Timestamp)
	require.Equal(t, "memo.ogg", ev.Filename)
	require.EqualValues(t, "mxc://example.com/abc123", ev.URL)
	require.Nil(t, ev.File)
}

func TestFromMatrixEventEncrypted(t *testing.T) {
	file := &event.EncryptedFileInfo{
		URL: "mxc://example.com/enc456",
	}
	evt := &event.Event{
		RoomID:    testRoom,
		ID:        id.EventID("$voice2"),
		Sender:    testSender,
		Timestamp: 1700000000001,
		Content: event.Content{
			Parsed: &event.MessageEventContent{
				MsgType: event.MsgVideo,
				Body:    "clip.mp4",
				File:    file,
			},
		},
	}

	ev := FromMatrixEvent(evt)
	require.Empty(t, ev.URL)
	require.Same(t, file, ev.File)
	require.Equal(t, "clip.mp4", ev.Filename)
}
