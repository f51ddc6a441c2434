// Package browser provides the browser automation layer the farmer drives.
package browser

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrProxyDead means the account's proxy failed the liveness probe.
	ErrProxyDead = errors.New("proxy is dead")

	// ErrElementTimeout means a wait for an element ran out of time.
	ErrElementTimeout = errors.New("element wait timed out")

	// ErrTabUnavailable means a tab switch found no target to switch to.
	ErrTabUnavailable = errors.New("no browser tab available")
)

// SetupError wraps failures to launch or attach to a browser process. The run
// controller treats these as operator errors and aborts the whole run.
type SetupError struct {
	Err error
}

func (e *SetupError) Error() string { return fmt.Sprintf("browser setup failed: %v", e.Err) }
func (e *SetupError) Unwrap() error { return e.Err }

// OpenOptions describes one browser handle. Username and Mobile select the
// profile directory when session persistence is on, so desktop and mobile
// cookies never mix.
type OpenOptions struct {
	Username       string
	Mobile         bool
	UserAgent      string
	Lang           string
	Headless       bool
	Proxy          string
	ProfilesDir    string
	PersistSession bool
	DisableImages  bool
	BrowserPath    string
}

// Driver opens browser sessions. The chromedp implementation is the only real
// one; tests substitute a fake.
type Driver interface {
	Open(ctx context.Context, opts OpenOptions) (Session, error)
}

// Session is one live browser (a dedicated OS process) with an active tab.
// Every method that talks to the page takes a context so callers can bound it.
type Session interface {
	Navigate(ctx context.Context, url string) error
	Reload(ctx context.Context) error
	CurrentURL(ctx context.Context) (string, error)
	Title(ctx context.Context) (string, error)
	PageSource(ctx context.Context) (string, error)

	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	WaitClickable(ctx context.Context, selector string, timeout time.Duration) error
	WaitHidden(ctx context.Context, selector string, timeout time.Duration) error
	IsPresent(ctx context.Context, selector string) bool

	Click(ctx context.Context, selector string) error
	SendKeys(ctx context.Context, selector, text string) error
	PressEnter(ctx context.Context, selector string) error
	Eval(ctx context.Context, expression string, out interface{}) error

	SwitchToNewTab(ctx context.Context) error
	CloseActiveTab(ctx context.Context) error
	ResetTabs(ctx context.Context) error

	Close() error
}

// ProbeProxy checks a proxy by fetching a lightweight HTTPS page through it.
// Five seconds is deliberate; a proxy slower than that is useless for farming.
func ProbeProxy(proxy string) error {
	proxyURL, err := url.Parse(normalizeProxy(proxy))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProxyDead, err)
	}

	client := &http.Client{
		Transport: &http.Transport{Proxy: http.ProxyURL(proxyURL)},
		Timeout:   5 * time.Second,
	}
	resp, err := client.Get("https://www.bing.com/")
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProxyDead, err)
	}
	resp.Body.Close()
	return nil
}

// normalizeProxy defaults scheme-less "host:port" proxies to plain HTTP, which
// is how account files usually list them.
func normalizeProxy(proxy string) string {
	if proxy != "" && !strings.Contains(proxy, "://") {
		return "http://" + proxy
	}
	return proxy
}
