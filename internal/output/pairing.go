package output

import (
	"fmt"
	"io"
	"os"
	"sync"

	"github.com/atotto/clipboard"
)

// PairingOptions configure a PairingPresenter.
type PairingOptions struct {
	// PNGPath, when set, receives the pairing code as a PNG image.
	PNGPath string
	// Copy puts the pairing URI on the system clipboard.
	Copy bool
	// QR configures the terminal rendering.
	QR QRConfig
}

// PairingPresenter shows a pairing URI in the terminal for a phone to scan.
type PairingPresenter struct {
	w    io.Writer
	msg  *Messenger
	opts PairingOptions

	// copyText is swapped in tests.
	copyText func(string) error

	mu      sync.Mutex
	showing bool
}

// NewPairingPresenter creates a presenter writing to w.
func NewPairingPresenter(w io.Writer, msg *Messenger, opts PairingOptions) *PairingPresenter {
	if opts.QR == (QRConfig{}) {
		opts.QR = DefaultQRConfig()
	}
	return &PairingPresenter{
		w:        w,
		msg:      msg,
		opts:     opts,
		copyText: clipboard.WriteAll,
	}
}

// Present draws the pairing code, or prints the URI when w is not a
// terminal, followed by the wallet deep link.
func (p *PairingPresenter) Present(uri, deepLink string) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.showing = true

	_, _ = fmt.Fprintln(p.w, "Scan with HashPack to connect:")
	if !RenderQR(p.w, uri, p.opts.QR) {
		_, _ = fmt.Fprintf(p.w, "  %s\n", uri)
	}
	if deepLink != "" {
		_, _ = fmt.Fprintf(p.w, "Or open on this device: %s\n", deepLink)
	}

	if p.opts.PNGPath != "" {
		if err := WritePNG(p.opts.PNGPath, uri, DefaultPNGSize); err != nil {
			p.msg.Warnf("could not write pairing code image: %v", err)
		} else {
			p.msg.Infof("pairing code saved to %s", p.opts.PNGPath)
		}
	}
	if p.opts.Copy {
		if err := p.copyText(uri); err != nil {
			p.msg.Warnf("could not copy pairing link: %v", err)
		} else {
			p.msg.Info("pairing link copied to clipboard")
		}
	}
	_, _ = fmt.Fprintln(p.w, p.msg.Faint("Waiting for approval in the wallet..."))
}

// Clear retires the pairing code once the attempt ends. The exported image
// is removed since its URI can no longer be used.
func (p *PairingPresenter) Clear() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.showing {
		return
	}
	p.showing = false

	if p.opts.PNGPath != "" {
		if err := os.Remove(p.opts.PNGPath); err != nil && !os.IsNotExist(err) {
			p.msg.Warnf("could not remove pairing code image: %v", err)
		}
	}
}

// Showing reports whether a pairing code is currently presented.
func (p *PairingPresenter) Showing() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.showing
}
