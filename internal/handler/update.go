package handler

import (
	"context"
	"log"
	"net/http"
	"strings"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/iliyamo/shift-checklist-bot/internal/botapi"
	"github.com/iliyamo/shift-checklist-bot/internal/repository"
)

// Update is the inbound webhook envelope: either a plain message or a
// button press, never both.
type Update struct {
	UpdateID int64     `json:"update_id"`
	Message  *Message  `json:"message,omitempty"`
	Callback *Callback `json:"callback_query,omitempty"`
}

// Message is a plain text message from a chat.
type Message struct {
	From Peer   `json:"from"`
	Text string `json:"text"`
}

// Callback is a button press; Data carries the encoded command token.
type Callback struct {
	From Peer   `json:"from"`
	Data string `json:"data"`
}

// Peer identifies the sending chat.
type Peer struct {
	ID int64 `json:"id"`
}

// processTimeout bounds the handling of one inbound event. Exceeding it
// answers 504 to the transport, which may retry; the dedup middleware
// keeps retries idempotent.
const processTimeout = 10 * time.Second

const msgInternalError = "⚠️ Something went wrong. Please try again."

// Dispatcher routes inbound events to the two conversation machines. An
// active admin session (or the /admin command) sends the event to the
// admin machine; everything else belongs to the user machine. Events for
// the same chat are serialized through a per-sender lock; different chats
// proceed concurrently.
type Dispatcher struct {
	Sessions *Sessions
	Users    *repository.UserRepo
	User     *UserFlow
	Admin    *AdminFlow
	Sender   botapi.Sender
}

// HandleWebhook is the Echo handler for the transport webhook.
func (d *Dispatcher) HandleWebhook(c echo.Context) error {
	var upd Update
	if err := c.Bind(&upd); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid body"})
	}
	if upd.Message == nil && upd.Callback == nil {
		// Service updates (edits, joins, ...) are acknowledged and dropped.
		return c.NoContent(http.StatusOK)
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), processTimeout)
	defer cancel()

	errCh := make(chan error, 1)
	go func() { errCh <- d.Handle(ctx, upd) }()

	select {
	case err := <-errCh:
		if err != nil {
			log.Printf("dispatch: update %d failed: %v", upd.UpdateID, err)
			// The sender already got a generic notice; the transport gets OK
			// so it does not redeliver a poison update forever.
		}
		return c.NoContent(http.StatusOK)
	case <-ctx.Done():
		return c.JSON(http.StatusGatewayTimeout, echo.Map{"error": "processing timeout"})
	}
}

// Handle processes one inbound event end to end. Flow errors are
// converted here, at the machine boundary, into a generic user notice;
// raw details only reach the log.
func (d *Dispatcher) Handle(ctx context.Context, upd Update) error {
	senderID := d.senderOf(upd)
	if senderID == 0 {
		return nil
	}
	lock := d.Sessions.SenderLock(senderID)
	lock.Lock()
	defer lock.Unlock()

	err := d.route(ctx, senderID, upd)
	if err != nil {
		if sendErr := d.Sender.SendText(ctx, senderID, msgInternalError, nil); sendErr != nil {
			log.Printf("dispatch: failure notice to %d failed: %v", senderID, sendErr)
		}
	}
	return err
}

func (d *Dispatcher) senderOf(upd Update) int64 {
	if upd.Message != nil {
		return upd.Message.From.ID
	}
	if upd.Callback != nil {
		return upd.Callback.From.ID
	}
	return 0
}

func (d *Dispatcher) route(ctx context.Context, senderID int64, upd Update) error {
	if upd.Callback != nil {
		cmd, ok := ParseCommand(upd.Callback.Data)
		if !ok {
			// Stale button from an older message or revision.
			return d.Sender.SendText(ctx, senderID, "This button is no longer valid.", nil)
		}
		if cmd.AdminOnly() {
			return d.Admin.HandleCommand(ctx, senderID, cmd)
		}
		return d.User.HandleCommand(ctx, senderID, cmd)
	}

	text := strings.TrimSpace(upd.Message.Text)
	switch text {
	case "/admin":
		return d.Admin.Start(ctx, senderID)
	case "/cancel":
		if _, ok := d.Sessions.Admin(senderID); ok {
			return d.Admin.Stop(ctx, senderID)
		}
		d.Sessions.ClearUser(senderID)
		return d.Sender.SendText(ctx, senderID, "Cancelled. Send the password to start again.", nil)
	case "/start":
		d.Sessions.ClearUser(senderID)
		return d.Sender.SendText(ctx, senderID, "👋 Welcome! Enter the shift password to begin.", nil)
	}
	if _, ok := d.Sessions.Admin(senderID); ok && d.Users.IsAdmin(senderID) {
		return d.Admin.HandleText(ctx, senderID, text)
	}
	return d.User.HandleText(ctx, senderID, text)
}
