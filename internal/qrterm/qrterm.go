// Package qrterm renders linking payloads as QR codes on a terminal so a
// device can be linked on headless deployments.
package qrterm

import (
	"fmt"
	"io"
	"sync"

	"github.com/rs/zerolog"
	qrcode "github.com/skip2/go-qrcode"
)

// Printer implements session.Sink by drawing each linking payload as a
// scannable ASCII block.
type Printer struct {
	mu  sync.Mutex
	out io.Writer
	log zerolog.Logger
}

// NewPrinter writes QR codes and linking notices to out.
func NewPrinter(out io.Writer, log zerolog.Logger) *Printer {
	return &Printer{
		out: out,
		log: log.With().Str("component", "qrterm").Logger(),
	}
}

// QR renders one linking payload.
func (p *Printer) QR(code string) {
	qr, err := qrcode.New(code, qrcode.Medium)
	if err != nil {
		// The payload is still usable by hand, for example with an online
		// QR generator, so surface it instead of dropping it.
		p.log.Warn().Err(err).Str("payload", code).Msg("failed to render QR code")
		return
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, "Scan with WhatsApp: Settings > Linked Devices > Link a Device")
	fmt.Fprintln(p.out, qr.ToSmallString(false))
}

// Ready prints a one-line linked notice.
func (p *Printer) Ready() {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, "WhatsApp device linked; ready to send messages.")
}

// AuthFailure prints the user-safe failure message.
func (p *Printer) AuthFailure(message string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	fmt.Fprintln(p.out, message)
}
