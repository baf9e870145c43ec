// Package wallet manages the connection to the user's wallet: connector
// initialization, the connect flow and the shared connection state.
package wallet

import (
	"net/url"

	"github.com/pkg/browser"
)

// Logger receives wallet traces.
type Logger interface {
	Debug(format string, args ...any)
	Error(format string, args ...any)
}

type nopLogger struct{}

func (nopLogger) Debug(string, ...any) {}
func (nopLogger) Error(string, ...any) {}

// PairingPresenter shows a pairing URI to the user so it can be scanned or
// copied into the wallet.
type PairingPresenter interface {
	// Present shows uri. deepLink is the app link for the same URI.
	Present(uri, deepLink string)

	// Clear removes whatever Present showed.
	Clear()
}

// Opener opens a link in the wallet app or the system browser.
type Opener interface {
	OpenURL(url string) error
}

// BrowserOpener opens links with the system handler.
type BrowserOpener struct{}

// OpenURL implements Opener.
func (BrowserOpener) OpenURL(u string) error {
	return browser.OpenURL(u)
}

// PairingLink appends the escaped pairing URI to a deep or universal link
// base such as "hashpack://wc".
func PairingLink(base, uri string) string {
	return base + "?uri=" + url.QueryEscape(uri)
}

type nopPresenter struct{}

func (nopPresenter) Present(string, string) {}
func (nopPresenter) Clear()                 {}
