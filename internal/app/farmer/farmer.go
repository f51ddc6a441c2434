// Package farmer drives the per-account browser sessions through login, the
// daily activities and the search loops, and persists every state change.
package farmer

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"runtime"
	"sync/atomic"
	"time"

	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/browser"
	apihttp "github.com/mrfarmer/rewards-farmer-bot/internal/adapters/http"
	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/report"
	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/words"
	"github.com/mrfarmer/rewards-farmer-bot/internal/config"
	"github.com/mrfarmer/rewards-farmer-bot/internal/domain/model"
	"github.com/mrfarmer/rewards-farmer-bot/internal/platform/logger"
	"github.com/mrfarmer/rewards-farmer-bot/internal/platform/ui"
	"github.com/mrfarmer/rewards-farmer-bot/internal/storage/farmlog"
)

const baseURL = "https://rewards.bing.com/"

// Farmer owns the full run: every account, its farm log, the browser driver
// and the word source. One Run call farms everything once.
type Farmer struct {
	cfg      config.Config
	driver   browser.Driver
	store    *farmlog.Store
	words    *words.Source
	accounts []model.Account

	running  atomic.Bool
	now      func() time.Time
	online   func() bool
	sleeper  func(ctx context.Context, d time.Duration)
	shutdown func() error
}

func New(cfg config.Config, driver browser.Driver, store *farmlog.Store, wordSource *words.Source, accounts []model.Account) *Farmer {
	f := &Farmer{
		cfg:      cfg,
		driver:   driver,
		store:    store,
		words:    wordSource,
		accounts: accounts,
		now:      time.Now,
		online:   apihttp.CheckInternet,
		sleeper:  snooze,
		shutdown: systemShutdown,
	}
	f.running.Store(true)
	return f
}

// Stop requests a graceful halt; the run loop checks it at stage boundaries.
func (f *Farmer) Stop() { f.running.Store(false) }

func (f *Farmer) Running() bool { return f.running.Load() }

// Accounts returns the live account slice; valid to read after Run returns.
func (f *Farmer) Accounts() []model.Account { return f.accounts }

func (f *Farmer) persist(acc *model.Account) error {
	return f.store.Save(acc.Username, acc.Log)
}

// PrepareLogs loads every account's persisted log and rolls it over for a new
// day. Accounts already farmed today or suspended keep their state.
func (f *Farmer) PrepareLogs() error {
	today := f.now()
	for i := range f.accounts {
		acc := &f.accounts[i]
		logRow, err := f.store.Load(acc.Username, today)
		if err != nil {
			return fmt.Errorf("load farm log for %s: %w", acc.Username, err)
		}
		acc.Log = logRow
		if !acc.WasFinished(today) && !acc.WasSuspended() {
			acc.CorrectLog()
		}
	}
	return nil
}

// Run farms every account in order and delivers the report. A timed start is
// honored first when configured.
func (f *Farmer) Run(ctx context.Context) error {
	if f.cfg.TimerSwitch {
		if err := f.waitForTimer(ctx); err != nil {
			return err
		}
		if !f.running.Load() {
			return nil
		}
	}

	if err := f.PrepareLogs(); err != nil {
		return err
	}

	for idx := range f.accounts {
		if !f.running.Load() || ctx.Err() != nil {
			break
		}
		if abort := f.farmAccount(ctx, idx); abort {
			break
		}
	}

	if err := f.store.SaveAll(f.accounts); err != nil {
		return err
	}

	f.deliverReport()

	if f.cfg.ShutdownAfterRun && f.running.Load() {
		return f.shutdown()
	}
	return nil
}

func (f *Farmer) waitForTimer(ctx context.Context) error {
	start, err := f.cfg.NextTimerStart(f.now())
	if err != nil {
		return err
	}
	ticker := time.NewTicker(1 * time.Second)
	defer ticker.Stop()
	for f.now().Before(start) {
		if !f.running.Load() {
			return nil
		}
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
	return nil
}

// farmAccount runs one account to completion, retrying through connectivity
// loss. Returns true when the whole run must abort.
func (f *Farmer) farmAccount(ctx context.Context, idx int) (abort bool) {
	acc := &f.accounts[idx]
	accLog := logger.NewNamed("Farmer", idx, acc)
	today := f.now()

	if acc.WasFinished(today) || acc.WasSuspended() {
		return false
	}

	acc.ResetRunState()
	if acc.Log.LastCheck != today.Format("2006-01-02") {
		acc.Log.LastCheck = today.Format("2006-01-02")
		if err := f.persist(acc); err != nil {
			accLog.JustLog(fmt.Sprintf("persist failed: %v", err))
		}
	}

	for f.running.Load() && ctx.Err() == nil {
		err := f.farmOnce(ctx, idx, acc, accLog)
		if err == nil {
			acc.Finish()
			if perr := f.persist(acc); perr != nil {
				accLog.JustLog(fmt.Sprintf("persist failed: %v", perr))
			}
			ui.SetSpinnerSuccess(idx, *acc, string(model.StatusFarmed))
			return false
		}

		accLog.JustLog(fmt.Sprintf("account failed: %v", err))

		// Transport-level trouble is not the account's fault: wait for the
		// network to come back and retry the same account.
		if isTransportError(err) {
			if f.waitForInternet(ctx, idx, acc) {
				continue
			}
			return true
		}

		return f.failAccount(idx, acc, accLog, err)
	}
	return !f.running.Load()
}

// failAccount applies the failure taxonomy to the account's persisted state.
// Returns true when the whole run must abort.
func (f *Farmer) failAccount(idx int, acc *model.Account, accLog *logger.ClassLogger, err error) bool {
	if f.cfg.SaveErrors {
		logger.SaveError(acc.Username, err)
	}

	var setupErr *browser.SetupError
	if errors.As(err, &setupErr) {
		// Operator problem, not an account problem; no status change.
		ui.SetSpinnerError(idx, *acc, setupErr.Error())
		return true
	}
	if errors.Is(err, ErrRegionUnavailable) {
		ui.SetSpinnerError(idx, *acc, "Not available in your region")
		return true
	}

	status, abort := statusForError(err)
	acc.CorrectLog()
	acc.Log.Status = status

	switch status {
	case model.StatusSuspended:
		acc.PointsNA = true
	case model.StatusPCLoginFailed, model.StatusMobileLoginFailed, model.StatusError:
		if acc.StartingPoints != -1 && acc.PointsCounter != -1 {
			acc.Log.TodayPoints = acc.PointsCounter - acc.StartingPoints
			acc.Log.TotalPoints = acc.PointsCounter
		}
	}

	if perr := f.persist(acc); perr != nil {
		accLog.JustLog(fmt.Sprintf("persist failed: %v", perr))
	}
	ui.SetSpinnerError(idx, *acc, string(status))
	return abort
}

// isTransportError groups the failures that mean the network or the browser
// transport glitched rather than anything about the account: connection
// errors, element waits that ran out of time and expired page deadlines.
// These never touch the persisted status.
func isTransportError(err error) bool {
	return errors.Is(err, browser.ErrElementTimeout) ||
		apihttp.IsConnectionError(err)
}

// statusForError maps a failure to the persisted status and whether the whole
// run aborts. Unusual activity means the automation itself got flagged.
func statusForError(err error) (model.Status, bool) {
	var loginErr *LoginError
	switch {
	case errors.Is(err, browser.ErrProxyDead):
		return model.StatusProxyDead, false
	case errors.Is(err, ErrAccountLocked):
		return model.StatusLocked, false
	case errors.Is(err, ErrAccountSuspended):
		return model.StatusSuspended, false
	case errors.Is(err, ErrUnusualActivity):
		return model.StatusUnusualActivity, true
	case errors.Is(err, words.ErrUnavailable):
		return model.StatusSearchWordsError, false
	case errors.As(err, &loginErr):
		if loginErr.Mobile {
			return model.StatusMobileLoginFailed, false
		}
		return model.StatusPCLoginFailed, false
	default:
		return model.StatusError, false
	}
}

// farmOnce performs the desktop phase then the mobile phase for one account.
func (f *Farmer) farmOnce(ctx context.Context, idx int, acc *model.Account, accLog *logger.ClassLogger) error {
	toggles := f.cfg.Toggles()

	if acc.NeedPC(toggles) {
		if err := f.runSurface(ctx, idx, acc, accLog, false, toggles); err != nil {
			return err
		}
	}
	if acc.NeedMobile(toggles) {
		if err := f.runSurface(ctx, idx, acc, accLog, true, toggles); err != nil {
			return err
		}
	}
	return nil
}

func (f *Farmer) runSurface(ctx context.Context, idx int, acc *model.Account, accLog *logger.ClassLogger, mobile bool, toggles model.Toggles) error {
	page, err := f.openBrowser(ctx, acc, mobile)
	if err != nil {
		return err
	}
	defer page.Close()

	s := &session{f: f, ctx: ctx, page: page, acc: acc, idx: idx, log: accLog, mobile: mobile}

	if err := s.login(); err != nil {
		return err
	}
	s.update("", "Logged in")

	if mobile {
		if acc.MobileRemainingSearches > 0 {
			if err := s.bingSearches(); err != nil {
				return err
			}
		}
		acc.Log.MobileSearches = true
		return f.persist(acc)
	}

	if err := s.goTo(baseURL); err != nil {
		return err
	}
	if err := page.WaitVisible(ctx, "#app-host", 30*time.Second); err != nil {
		return err
	}

	if toggles.DailyQuests && !acc.Log.Daily {
		if err := s.completeDailySet(); err != nil {
			return err
		}
	}
	if toggles.PunchCards && !acc.Log.PunchCards {
		if err := s.completePunchCards(); err != nil {
			return err
		}
	}
	if toggles.MoreActivities && !acc.Log.MorePromotions {
		if err := s.completeMorePromotions(); err != nil {
			return err
		}
	}
	if toggles.MSNShoppingGame && !acc.Log.ShoppingGame {
		if err := s.completeShoppingGame(); err != nil {
			return err
		}
	}
	if toggles.PCSearch && !acc.Log.PCSearches {
		d, err := s.dashboardData()
		if err != nil {
			return err
		}
		pc, mobileLeft := remainingSearches(d)
		acc.PCRemainingSearches, acc.MobileRemainingSearches = pc, mobileLeft
		if pc > 0 {
			if err := s.bingSearches(); err != nil {
				return err
			}
		}
		acc.Log.PCSearches = true
		if err := f.persist(acc); err != nil {
			return err
		}
	}

	s.update("-", "-")
	return nil
}

// openBrowser probes the account proxy and launches the surface's browser.
func (f *Farmer) openBrowser(ctx context.Context, acc *model.Account, mobile bool) (browser.Session, error) {
	proxy := ""
	if f.cfg.UseProxy && acc.Proxy != "" {
		if err := browser.ProbeProxy(acc.Proxy); err != nil {
			if f.cfg.SkipOnProxyFailure {
				return nil, err
			}
			// Farm without the broken proxy rather than skipping the account.
			acc.Detail = acc.Proxy + " is not working"
		} else {
			proxy = acc.Proxy
		}
	}

	browserPath := f.cfg.BrowserPath
	if browserPath == "" && f.cfg.EdgeWebdriver {
		browserPath = browser.DefaultEdgePath()
	}

	return f.driver.Open(ctx, browser.OpenOptions{
		Username:       acc.Username,
		Mobile:         mobile,
		UserAgent:      acc.UserAgent(mobile, f.cfg.PCUserAgent, f.cfg.MobileUserAgent),
		Lang:           "en",
		Headless:       f.cfg.Headless,
		Proxy:          proxy,
		ProfilesDir:    f.cfg.ProfilesDir,
		PersistSession: f.cfg.Session,
		DisableImages:  f.cfg.DisableImages,
		BrowserPath:    browserPath,
	})
}

// waitForInternet blocks until connectivity returns, the run is stopped, or
// the context ends. Returns true when it is safe to retry.
func (f *Farmer) waitForInternet(ctx context.Context, idx int, acc *model.Account) bool {
	for f.running.Load() && ctx.Err() == nil {
		if f.online() {
			acc.Section, acc.Detail = "-", "-"
			return true
		}
		acc.Section, acc.Detail = "No internet connection...", "Checking..."
		ui.UpdateStatus(idx, *acc, acc.Section, 0)
		select {
		case <-ctx.Done():
			return false
		case <-time.After(1 * time.Second):
		}
	}
	return false
}

func (f *Farmer) deliverReport() {
	if !f.cfg.SendToTelegram && !f.cfg.SendToDiscord {
		return
	}
	message := CreateMessage(f.accounts, f.now())

	if f.cfg.SendToTelegram {
		settings := report.TelegramSettings{
			Token:  f.cfg.TelegramToken,
			ChatID: f.cfg.TelegramChatID,
		}
		if f.cfg.TelegramProxySwitch {
			settings.Proxy = f.cfg.TelegramProxy
		}
		if err := report.SendToTelegram(settings, message); err != nil {
			logger.NewNamed("Farmer", 0, nil).JustLog(fmt.Sprintf("telegram report failed: %v", err))
		}
	}
	if f.cfg.SendToDiscord {
		if err := report.SendToDiscord(f.cfg.DiscordWebhookURL, message); err != nil {
			logger.NewNamed("Farmer", 0, nil).JustLog(fmt.Sprintf("discord report failed: %v", err))
		}
	}
}

func systemShutdown() error {
	if runtime.GOOS == "windows" {
		return exec.Command("shutdown", "/s", "/t", "10").Run()
	}
	return exec.Command("shutdown", "-h", "+1").Run()
}
