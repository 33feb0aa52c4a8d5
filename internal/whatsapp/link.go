package whatsapp

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/proto/waE2E"
	"go.mau.fi/whatsmeow/types"
	"go.mau.fi/whatsmeow/types/events"
	"google.golang.org/protobuf/proto"

	"github.com/sabbir421/whatsapp-message-server/internal/session"
)

const storeWipeTimeout = 5 * time.Second

// link is one live whatsmeow client, from Open until Close or a terminal
// event. It translates whatsmeow's event stream into session events.
type link struct {
	client *whatsmeow.Client
	log    zerolog.Logger

	events    chan session.Event
	done      chan struct{}
	closeOnce sync.Once
	handlerID uint32
}

func newLink(client *whatsmeow.Client, log zerolog.Logger) *link {
	return &link{
		client: client,
		log:    log,
		events: make(chan session.Event, 8),
		done:   make(chan struct{}),
	}
}

func (l *link) Events() <-chan session.Event {
	return l.events
}

// SendText delivers one plain text message. The recipient is the digits
// of a phone number including country code.
func (l *link) SendText(ctx context.Context, recipient, body string) error {
	jid := types.NewJID(recipient, types.DefaultUserServer)
	msg := &waE2E.Message{Conversation: proto.String(body)}
	if _, err := l.client.SendMessage(ctx, jid, msg); err != nil {
		return fmt.Errorf("send to %s: %w", recipient, err)
	}
	return nil
}

// Close disconnects without logging out, so the pairing survives for the
// next link.
func (l *link) Close() error {
	l.closeOnce.Do(func() {
		close(l.done)
		l.client.RemoveEventHandler(l.handlerID)
		l.client.Disconnect()
	})
	return nil
}

// emit hands an event to the session manager. It blocks until consumed so
// ordering is kept, with the done channel as the escape hatch once the
// link is torn down.
func (l *link) emit(evt session.Event) {
	select {
	case l.events <- evt:
	case <-l.done:
	}
}

func (l *link) handleEvent(evt interface{}) {
	switch e := evt.(type) {
	case *events.Connected:
		l.emit(session.Event{Kind: session.EventReady})

	case *events.Disconnected:
		l.emit(session.Event{Kind: session.EventDisconnected})

	case *events.StreamReplaced:
		l.emit(session.Event{
			Kind: session.EventDisconnected,
			Err:  errors.New("stream replaced by another session"),
		})

	case *events.LoggedOut:
		// The server revoked the pairing. Wipe it so the next handshake
		// starts from a fresh QR instead of looping on dead credentials.
		ctx, cancel := context.WithTimeout(context.Background(), storeWipeTimeout)
		defer cancel()
		if err := l.client.Store.Delete(ctx); err != nil {
			l.log.Warn().Err(err).Msg("wiping revoked device credentials failed")
		}
		l.emit(session.Event{
			Kind: session.EventAuthFailure,
			Err:  fmt.Errorf("logged out by server (on connect: %t, reason: %v)", e.OnConnect, e.Reason),
		})

	case *events.ConnectFailure:
		l.emit(session.Event{
			Kind: session.EventAuthFailure,
			Err:  fmt.Errorf("connect failure: %v (%s)", e.Reason, e.Message),
		})

	case *events.ClientOutdated:
		l.emit(session.Event{
			Kind: session.EventAuthFailure,
			Err:  errors.New("client version rejected as outdated"),
		})

	case *events.TemporaryBan:
		l.emit(session.Event{
			Kind: session.EventAuthFailure,
			Err:  fmt.Errorf("temporarily banned: %v (expires in %s)", e.Code, e.Expire),
		})
	}
}

// pumpQR feeds pairing codes from whatsmeow's QR channel to the manager.
// whatsmeow rotates codes every few seconds and closes the channel after
// a terminal item.
func (l *link) pumpQR(ctx context.Context, ch <-chan whatsmeow.QRChannelItem) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-l.done:
			return
		case item, ok := <-ch:
			if !ok {
				return
			}
			switch item.Event {
			case "code":
				l.emit(session.Event{Kind: session.EventQR, Code: item.Code})
			case "success":
				// Pairing accepted; the Connected event reports ready.
			case "timeout":
				l.emit(session.Event{
					Kind: session.EventAuthFailure,
					Err:  errors.New("linking timed out before the code was scanned"),
				})
			case "error":
				l.emit(session.Event{Kind: session.EventAuthFailure, Err: item.Error})
			default:
				l.emit(session.Event{
					Kind: session.EventAuthFailure,
					Err:  fmt.Errorf("linking ended: %s", item.Event),
				})
			}
		}
	}
}
