package qrterm

import (
	"bytes"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"

	"github.com/sabbir421/whatsapp-message-server/internal/session"
)

// Printer must satisfy the sink contract it is tee'd into.
var _ session.Sink = (*Printer)(nil)

func TestPrinterQR(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, zerolog.Nop())

	p.QR("2@abcdefghijklmnop,qrstuvwxyz012345,67890abcdef")

	out := buf.String()
	assert.Contains(t, out, "Linked Devices")
	// The small rendering uses half-height block characters.
	assert.Contains(t, out, "█")
}

func TestPrinterNotices(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf, zerolog.Nop())

	p.Ready()
	p.AuthFailure("Authentication failed. Please scan the QR code again.")

	out := buf.String()
	assert.Contains(t, out, "ready to send")
	assert.Contains(t, out, "Authentication failed")
}
