package output

import (
	"fmt"
	"io"

	"github.com/mdp/qrterminal/v3"
	"github.com/skip2/go-qrcode"
	"rsc.io/qr"

	"github.com/borderlesspay/bpay/internal/fileutil"
)

// DefaultPNGSize is the edge length in pixels of exported pairing codes.
const DefaultPNGSize = 384

// QRConfig configures QR code rendering.
type QRConfig struct {
	// Level is the error correction level.
	Level qr.Level
	// QuietZone is the number of empty blocks around the QR code.
	QuietZone int
	// HalfBlocks uses half-height blocks for a more compact display.
	HalfBlocks bool
}

// DefaultQRConfig returns defaults for terminal QR rendering. Pairing URIs
// are long, so medium correction keeps the code scannable at terminal size.
func DefaultQRConfig() QRConfig {
	return QRConfig{
		Level:      qr.M,
		QuietZone:  1,
		HalfBlocks: true,
	}
}

// CanRenderQR checks if the output writer is a terminal suitable for QR rendering.
func CanRenderQR(w io.Writer) bool {
	return isTerminal(w)
}

// RenderQR renders a QR code to the writer if it's a terminal. It reports
// whether anything was drawn.
func RenderQR(w io.Writer, data string, cfg QRConfig) bool {
	if !CanRenderQR(w) {
		return false
	}

	qrterminal.GenerateWithConfig(data, qrterminal.Config{
		Level:          cfg.Level,
		Writer:         w,
		QuietZone:      cfg.QuietZone,
		HalfBlocks:     cfg.HalfBlocks,
		BlackChar:      qrterminal.BLACK_BLACK,
		WhiteChar:      qrterminal.WHITE_WHITE,
		WhiteBlackChar: qrterminal.WHITE_BLACK,
		BlackWhiteChar: qrterminal.BLACK_WHITE,
	})
	return true
}

// EncodePNG returns data as a PNG QR code.
func EncodePNG(data string, size int) ([]byte, error) {
	code, err := qrcode.New(data, qrcode.Medium)
	if err != nil {
		return nil, fmt.Errorf("creating QR code: %w", err)
	}
	png, err := code.PNG(size)
	if err != nil {
		return nil, fmt.Errorf("encoding PNG: %w", err)
	}
	return png, nil
}

// WritePNG writes data as a private PNG QR code file.
func WritePNG(path, data string, size int) error {
	png, err := EncodePNG(data, size)
	if err != nil {
		return err
	}
	return fileutil.WriteAtomic(path, png, fileutil.PrivateFilePerm)
}
