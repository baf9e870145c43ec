// Package environment classifies the host the wallet flow runs in.
//
// The classification decides how a pairing URI is handed to the wallet:
// inside the wallet's own browser nothing needs to happen, a desktop browser
// without the extension shows a scannable code, and everything else opens a
// deep link.
package environment

import (
	"net/http"
	"net/url"
	"regexp"
	"strconv"
	"strings"
)

// Environment is the detected wallet host.
type Environment string

// Environment values. Detecting is only the zero state before Detect runs.
const (
	Detecting        Environment = "detecting"
	InApp            Environment = "hashpack_in_app"
	DesktopExtension Environment = "desktop_extension"
	MobileBrowser    Environment = "mobile_browser"
	DesktopBrowser   Environment = "desktop_browser"
)

// Request headers read by FromRequest.
const (
	HeaderExtension = "X-Wallet-Extension"
	HeaderInApp     = "X-Wallet-InApp"
)

// walletUAMarker identifies the wallet's in-app browser.
const walletUAMarker = "HashPack"

//nolint:gochecknoglobals // compiled once
var mobileUA = regexp.MustCompile(`(?i)Android|iPhone|iPad|iPod|Mobile|webOS|BlackBerry|IEMobile|Opera Mini`)

// Signals are the observable facts the classification is based on.
type Signals struct {
	UserAgent        string `json:"userAgent"`
	ExtensionPresent bool   `json:"extensionPresent"`
	InAppBridge      bool   `json:"inAppBridge"`
	PageURL          string `json:"pageUrl,omitempty"`
}

// Logger receives the classification trace.
type Logger interface {
	Debug(format string, args ...any)
}

// Detect classifies signals. It never returns Detecting.
func Detect(s Signals, logger Logger) Environment {
	env, reason := classify(s)
	if logger != nil {
		logger.Debug("environment detected: %s (%s)", env, reason)
	}
	return env
}

func classify(s Signals) (Environment, string) {
	switch {
	case s.InAppBridge:
		return InApp, "in-app bridge injected"
	case strings.Contains(s.UserAgent, walletUAMarker):
		return InApp, "wallet user agent"
	case walletQuery(s.PageURL):
		return InApp, "wallet query parameter"
	case s.ExtensionPresent && !IsMobileUserAgent(s.UserAgent):
		return DesktopExtension, "extension injected"
	case IsMobileUserAgent(s.UserAgent):
		return MobileBrowser, "mobile user agent"
	default:
		return DesktopBrowser, "default"
	}
}

// IsMobileUserAgent reports whether ua looks like a phone or tablet browser.
func IsMobileUserAgent(ua string) bool {
	return ua != "" && mobileUA.MatchString(ua)
}

func walletQuery(pageURL string) bool {
	if pageURL == "" {
		return false
	}
	u, err := url.Parse(pageURL)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Query().Get("wallet"), "hashpack")
}

// FromRequest extracts signals from an HTTP request.
func FromRequest(r *http.Request) Signals {
	return Signals{
		UserAgent:        r.UserAgent(),
		ExtensionPresent: headerBool(r.Header.Get(HeaderExtension)),
		InAppBridge:      headerBool(r.Header.Get(HeaderInApp)),
		PageURL:          r.Referer(),
	}
}

func headerBool(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// String returns the environment name.
func (e Environment) String() string {
	return string(e)
}

// ShowsPairingCode reports whether the pairing URI should be rendered as a
// scannable code instead of being opened.
func (e Environment) ShowsPairingCode() bool {
	return e == DesktopBrowser
}
