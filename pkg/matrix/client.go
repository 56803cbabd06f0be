package matrix

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/rs/zerolog"
	"maunium.net/go/mautrix"
	"maunium.net/go/mautrix/event"
	"maunium.net/go/mautrix/id"

	"transcriptbot/pkg/config"
)

// MessageHandler processes one inbound message event.
type MessageHandler func(ctx context.Context, evt *event.Event)

// Client wraps the mautrix client behind the transport surface the
// pipeline needs: download, reactions, redaction, threaded replies, plus
// session lifecycle.
type Client struct {
	cfg config.MatrixConfig
	mx  *mautrix.Client
	log *slog.Logger

	session *session
}

// NewClient builds the underlying mautrix client. No network traffic
// happens until Login.
func NewClient(cfg config.MatrixConfig, log *slog.Logger) (*Client, error) {
	if log == nil {
		log = slog.Default()
	}

	mx, err := mautrix.NewClient(cfg.Homeserver, "", "")
	if err != nil {
		return nil, fmt.Errorf("create matrix client: %w", err)
	}
	mx.Log = zerolog.New(os.Stderr).With().Timestamp().Logger().Level(zerolog.WarnLevel)

	return &Client{
		cfg: cfg,
		mx:  mx,
		log: log.With("component", "matrix.client"),
	}, nil
}

// Login initializes the encrypted session store and performs password
// login. A failure here is fatal to the process.
func (c *Client) Login(ctx context.Context) error {
	s, err := newSession(ctx, c.mx, c.cfg)
	if err != nil {
		return err
	}
	c.session = s
	c.log.Info("Logged in", "user_id", c.mx.UserID)
	return nil
}

// SelfID is the bot's own user identity; valid after Login.
func (c *Client) SelfID() id.UserID {
	return c.mx.UserID
}

// OnMessage installs the message-kind handler table. Unlisted message
// types are ignored entirely. Must be called before Run.
func (c *Client) OnMessage(handlers map[event.MessageType]MessageHandler) {
	syncer := c.mx.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.EventMessage, func(ctx context.Context, evt *event.Event) {
		dispatchMessage(handlers, ctx, evt)
	})
}

func dispatchMessage(handlers map[event.MessageType]MessageHandler, ctx context.Context, evt *event.Event) {
	content := evt.Content.AsMessage()
	if content == nil {
		return
	}
	if handler, ok := handlers[content.MsgType]; ok {
		handler(ctx, evt)
	}
}

// EnableAutoJoin accepts room invites addressed to the bot.
func (c *Client) EnableAutoJoin() {
	syncer := c.mx.Syncer.(*mautrix.DefaultSyncer)
	syncer.OnEventType(event.StateMember, func(ctx context.Context, evt *event.Event) {
		if !shouldAutoJoin(evt, c.mx.UserID) {
			return
		}
		if _, err := c.mx.JoinRoomByID(ctx, evt.RoomID); err != nil {
			c.log.Error("Failed to join room", "room_id", evt.RoomID, "error", err)
			return
		}
		c.log.Info("Joined room", "room_id", evt.RoomID)
	})
}

func shouldAutoJoin(evt *event.Event, self id.UserID) bool {
	content := evt.Content.AsMember()
	if content == nil || content.Membership != event.MembershipInvite {
		return false
	}
	return id.UserID(evt.GetStateKey()) == self
}

// Run drives the sync loop until ctx is canceled or the transport fails.
func (c *Client) Run(ctx context.Context) error {
	err := c.mx.SyncWithContext(ctx)
	if err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("sync loop: %w", err)
	}
	return nil
}

// Close stops syncing and flushes the session store. In-flight requests
// are abandoned; the store is closed cleanly.
func (c *Client) Close() error {
	c.mx.StopSync()
	if c.session != nil {
		return c.session.Close()
	}
	return nil
}

// Download fetches raw attachment bytes for a media reference.
func (c *Client) Download(ctx context.Context, uri id.ContentURI) ([]byte, error) {
	return c.mx.DownloadBytes(ctx, uri)
}

// SendReaction annotates an event with an emoji and returns the reaction's
// own event identity, needed later for redaction.
func (c *Client) SendReaction(ctx context.Context, roomID id.RoomID, eventID id.EventID, key string) (id.EventID, error) {
	resp, err := c.mx.SendReaction(ctx, roomID, eventID, key)
	if err != nil {
		return "", err
	}
	return resp.EventID, nil
}

// Redact retracts a previously sent event.
func (c *Client) Redact(ctx context.Context, roomID id.RoomID, eventID id.EventID) error {
	_, err := c.mx.RedactEvent(ctx, roomID, eventID)
	return err
}

// SendReply posts a text message threaded onto the original event.
func (c *Client) SendReply(ctx context.Context, roomID id.RoomID, inReplyTo id.EventID, body string) (id.EventID, error) {
	content := &event.MessageEventContent{
		MsgType: event.MsgText,
		Body:    body,
		RelatesTo: &event.RelatesTo{
			InReplyTo: &event.InReplyTo{EventID: inReplyTo},
		},
	}

	resp, err := c.mx.SendMessageEvent(ctx, roomID, event.EventMessage, content)
	if err != nil {
		return "", err
	}
	return resp.EventID, nil
}
