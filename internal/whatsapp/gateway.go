// Package whatsapp backs the session manager with a real WhatsApp
// multidevice connection via whatsmeow. Nothing outside this package
// touches whatsmeow types.
package whatsapp

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"
	"go.mau.fi/whatsmeow"
	"go.mau.fi/whatsmeow/store/sqlstore"
	waLog "go.mau.fi/whatsmeow/util/log"

	// Driver for the device credential store.
	_ "github.com/mattn/go-sqlite3"

	"github.com/sabbir421/whatsapp-message-server/internal/session"
)

// Gateway opens WhatsApp links. Device credentials live in a sqlite
// store, so a previously paired device reconnects without a QR scan.
type Gateway struct {
	container *sqlstore.Container
	log       zerolog.Logger
	waLog     waLog.Logger
}

// NewGateway opens (creating if needed) the device store at storePath.
func NewGateway(ctx context.Context, storePath string, log zerolog.Logger) (*Gateway, error) {
	log = log.With().Str("component", "whatsapp").Logger()
	wl := newWALogger(log)

	dsn := fmt.Sprintf("file:%s?_foreign_keys=on", storePath)
	container, err := sqlstore.New(ctx, "sqlite3", dsn, wl.Sub("store"))
	if err != nil {
		return nil, fmt.Errorf("open device store: %w", err)
	}

	return &Gateway{
		container: container,
		log:       log,
		waLog:     wl,
	}, nil
}

// Open connects a fresh link. When the store holds no paired identity the
// link's event channel first produces QR events for scanning; otherwise
// the handshake goes straight to ready.
func (g *Gateway) Open(ctx context.Context) (session.Link, error) {
	device, err := g.container.GetFirstDevice(ctx)
	if err != nil {
		return nil, fmt.Errorf("load device: %w", err)
	}

	client := whatsmeow.NewClient(device, g.waLog.Sub("client"))
	// Reconnects are explicit in this server: a dropped link stays down
	// until the next initialize request.
	client.EnableAutoReconnect = false

	l := newLink(client, g.log)
	l.handlerID = client.AddEventHandler(l.handleEvent)

	if client.Store.ID == nil {
		// Unpaired; the QR channel must be requested before Connect.
		qrChan, err := client.GetQRChannel(ctx)
		if err != nil {
			return nil, fmt.Errorf("request qr channel: %w", err)
		}
		go l.pumpQR(ctx, qrChan)
	} else {
		g.log.Debug().Str("jid", client.Store.ID.String()).Msg("reusing paired device")
	}

	if err := client.Connect(); err != nil {
		_ = l.Close()
		return nil, fmt.Errorf("connect: %w", err)
	}
	return l, nil
}

// Close releases the device store.
func (g *Gateway) Close() error {
	return g.container.Close()
}
