package browser

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"strings"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/cdproto/target"
	"github.com/chromedp/chromedp"
	"github.com/chromedp/chromedp/kb"
)

const defaultActionTimeout = 60 * time.Second

// DefaultEdgePath returns the usual Edge install location for the platform.
// chromedp falls back to its own browser discovery when the file is absent.
func DefaultEdgePath() string {
	switch runtime.GOOS {
	case "windows":
		return `C:\Program Files (x86)\Microsoft\Edge\Application\msedge.exe`
	case "darwin":
		return "/Applications/Microsoft Edge.app/Contents/MacOS/Microsoft Edge"
	default:
		return "/usr/bin/microsoft-edge"
	}
}

// ChromeDriver launches one dedicated Chromium/Edge process per Open call.
// Desktop and mobile handles never share a process so their user agents and
// cookies stay isolated.
type ChromeDriver struct{}

func NewChromeDriver() *ChromeDriver { return &ChromeDriver{} }

type chromeSession struct {
	allocCancel context.CancelFunc

	// base is the first tab; cur is the active one. They are the same
	// context until SwitchToNewTab.
	base      context.Context
	baseStop  context.CancelFunc
	cur       context.Context
	curCancel context.CancelFunc
}

func (d *ChromeDriver) Open(ctx context.Context, opts OpenOptions) (Session, error) {
	allocOpts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", opts.Headless),
		chromedp.Flag("disable-gpu", opts.Headless),
		chromedp.Flag("disable-blink-features", "AutomationControlled"),
		chromedp.Flag("force-webrtc-ip-handling-policy", "disable_non_proxied_udp"),
		chromedp.Flag("disable-save-password-bubble", true),
		chromedp.Flag("log-level", "3"),
	)
	if opts.UserAgent != "" {
		allocOpts = append(allocOpts, chromedp.UserAgent(opts.UserAgent))
	}
	lang := opts.Lang
	if lang == "" {
		lang = "en"
	}
	allocOpts = append(allocOpts, chromedp.Flag("lang", lang))

	if opts.Mobile {
		allocOpts = append(allocOpts, chromedp.WindowSize(414, 896))
	} else {
		allocOpts = append(allocOpts, chromedp.WindowSize(1280, 800))
	}

	if opts.Proxy != "" {
		allocOpts = append(allocOpts, chromedp.ProxyServer(opts.Proxy))
	}
	if opts.DisableImages {
		allocOpts = append(allocOpts, chromedp.Flag("blink-settings", "imagesEnabled=false"))
	}
	if path := strings.TrimSpace(opts.BrowserPath); path != "" {
		allocOpts = append(allocOpts, chromedp.ExecPath(path))
	}
	if runtime.GOOS == "linux" {
		allocOpts = append(allocOpts, chromedp.NoSandbox)
	}

	if opts.PersistSession {
		mode := "pc"
		if opts.Mobile {
			mode = "mobile"
		}
		profileDir := filepath.Join(opts.ProfilesDir, strings.ToLower(opts.Username), mode)
		if err := os.MkdirAll(profileDir, 0o755); err != nil {
			return nil, &SetupError{Err: fmt.Errorf("create profile dir: %w", err)}
		}
		allocOpts = append(allocOpts, chromedp.UserDataDir(profileDir))
	}

	allocCtx, allocCancel := chromedp.NewExecAllocator(ctx, allocOpts...)
	tabCtx, tabCancel := chromedp.NewContext(allocCtx)

	if err := chromedp.Run(tabCtx, chromedp.Navigate("about:blank")); err != nil {
		tabCancel()
		allocCancel()
		return nil, &SetupError{Err: err}
	}

	return &chromeSession{
		allocCancel: allocCancel,
		base:        tabCtx,
		baseStop:    tabCancel,
		cur:         tabCtx,
	}, nil
}

// run executes actions against the active tab, bounded by the caller context
// and a hard timeout.
func (s *chromeSession) run(ctx context.Context, timeout time.Duration, actions ...chromedp.Action) error {
	if timeout <= 0 {
		timeout = defaultActionTimeout
	}
	runCtx, cancel := context.WithTimeout(s.cur, timeout)
	defer cancel()
	if ctx != nil {
		go func() {
			select {
			case <-ctx.Done():
				cancel()
			case <-runCtx.Done():
			}
		}()
	}
	return chromedp.Run(runCtx, actions...)
}

func (s *chromeSession) Navigate(ctx context.Context, url string) error {
	return s.run(ctx, 0, chromedp.Navigate(url))
}

func (s *chromeSession) Reload(ctx context.Context) error {
	return s.run(ctx, 0, chromedp.Reload())
}

func (s *chromeSession) CurrentURL(ctx context.Context) (string, error) {
	var loc string
	err := s.run(ctx, 15*time.Second, chromedp.Location(&loc))
	return loc, err
}

func (s *chromeSession) Title(ctx context.Context) (string, error) {
	var title string
	err := s.run(ctx, 15*time.Second, chromedp.Title(&title))
	return title, err
}

func (s *chromeSession) PageSource(ctx context.Context) (string, error) {
	var html string
	err := s.run(ctx, 30*time.Second, chromedp.OuterHTML("html", &html, chromedp.ByQuery))
	return html, err
}

func (s *chromeSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	err := s.run(ctx, timeout, chromedp.WaitVisible(selector, chromedp.ByQuery))
	return mapWaitErr(err)
}

func (s *chromeSession) WaitClickable(ctx context.Context, selector string, timeout time.Duration) error {
	err := s.run(ctx, timeout,
		chromedp.WaitVisible(selector, chromedp.ByQuery),
		chromedp.WaitEnabled(selector, chromedp.ByQuery))
	return mapWaitErr(err)
}

func (s *chromeSession) WaitHidden(ctx context.Context, selector string, timeout time.Duration) error {
	err := s.run(ctx, timeout, chromedp.WaitNotVisible(selector, chromedp.ByQuery))
	return mapWaitErr(err)
}

func (s *chromeSession) IsPresent(ctx context.Context, selector string) bool {
	var present bool
	expr := fmt.Sprintf("document.querySelector(%q) !== null", selector)
	if err := s.run(ctx, 5*time.Second, chromedp.Evaluate(expr, &present)); err != nil {
		return false
	}
	return present
}

func (s *chromeSession) Click(ctx context.Context, selector string) error {
	return s.run(ctx, 30*time.Second, chromedp.Click(selector, chromedp.ByQuery))
}

func (s *chromeSession) SendKeys(ctx context.Context, selector, text string) error {
	return s.run(ctx, 30*time.Second, chromedp.SendKeys(selector, text, chromedp.ByQuery))
}

func (s *chromeSession) PressEnter(ctx context.Context, selector string) error {
	return s.run(ctx, 30*time.Second, chromedp.SendKeys(selector, kb.Enter, chromedp.ByQuery))
}

func (s *chromeSession) Eval(ctx context.Context, expression string, out interface{}) error {
	return s.run(ctx, 30*time.Second, chromedp.Evaluate(expression, out))
}

// SwitchToNewTab attaches to the most recently opened page target. Activities
// open their reward pages in new tabs; the farmer follows them here.
func (s *chromeSession) SwitchToNewTab(ctx context.Context) error {
	baseID := s.targetID(s.base)
	curID := s.targetID(s.cur)

	var pick target.ID
	deadline := time.Now().Add(10 * time.Second)
	for time.Now().Before(deadline) {
		infos, err := chromedp.Targets(s.base)
		if err != nil {
			return err
		}
		for _, info := range infos {
			if info.Type != "page" || info.TargetID == baseID || info.TargetID == curID {
				continue
			}
			pick = info.TargetID
		}
		if pick != "" {
			break
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-time.After(250 * time.Millisecond):
		}
	}
	if pick == "" {
		return ErrTabUnavailable
	}

	tabCtx, tabCancel := chromedp.NewContext(s.base, chromedp.WithTargetID(pick))
	if err := chromedp.Run(tabCtx); err != nil {
		tabCancel()
		return err
	}

	if s.curCancel != nil {
		s.curCancel()
	}
	s.cur = tabCtx
	s.curCancel = tabCancel
	return nil
}

// CloseActiveTab closes the extra tab and falls back to the base tab. Closing
// the base tab is a no-op.
func (s *chromeSession) CloseActiveTab(ctx context.Context) error {
	if s.curCancel == nil {
		return nil
	}
	_ = s.run(ctx, 10*time.Second, chromedp.ActionFunc(func(runCtx context.Context) error {
		return page.Close().Do(runCtx)
	}))
	s.curCancel()
	s.curCancel = nil
	s.cur = s.base
	return nil
}

// ResetTabs closes every page target except the base tab. Used to contain a
// failed activity so the next one starts from a clean slate.
func (s *chromeSession) ResetTabs(ctx context.Context) error {
	if s.curCancel != nil {
		s.curCancel()
		s.curCancel = nil
		s.cur = s.base
	}

	baseID := s.targetID(s.base)
	infos, err := chromedp.Targets(s.base)
	if err != nil {
		return err
	}
	for _, info := range infos {
		if info.Type != "page" || info.TargetID == baseID {
			continue
		}
		id := info.TargetID
		_ = s.run(ctx, 10*time.Second, chromedp.ActionFunc(func(runCtx context.Context) error {
			return target.CloseTarget(id).Do(runCtx)
		}))
	}
	return nil
}

func (s *chromeSession) Close() error {
	if s.curCancel != nil {
		s.curCancel()
		s.curCancel = nil
	}
	if s.baseStop != nil {
		s.baseStop()
	}
	if s.allocCancel != nil {
		s.allocCancel()
	}
	return nil
}

func (s *chromeSession) targetID(ctx context.Context) target.ID {
	if c := chromedp.FromContext(ctx); c != nil && c.Target != nil {
		return c.Target.TargetID
	}
	return ""
}

func mapWaitErr(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return ErrElementTimeout
	}
	return err
}
