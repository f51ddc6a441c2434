package farmer

import (
	"context"
	"fmt"
	"strings"
	"time"
)

const (
	loginURL = "https://login.live.com/"
	bingURL  = "https://bing.com/"

	// bingLoginBudget caps the whole Bing verification; the page sometimes
	// never settles.
	bingLoginBudget = 300 * time.Second
	bingLoginTries  = 3
)

// login drives the full sign-in flow: credentials, interstitials, the rewards
// portal check and the Bing counter check.
func (s *session) login() error {
	sectionLabel := "Logging in..."
	if s.mobile {
		sectionLabel = "Logging in Mobile..."
	}
	s.update(sectionLabel, "-")

	// Persistent profiles reopen with a welcome tab in the way.
	if s.f.cfg.Session {
		s.sleepExact(2 * time.Second)
		_ = s.page.ResetTabs(s.ctx)
	}

	if err := s.goTo(loginURL); err != nil {
		return err
	}
	s.sleepExact(2 * time.Second)

	// A persisted session may land past the email prompt entirely.
	if s.f.cfg.Session && !s.page.IsPresent(s.ctx, "#i0116") {
		done, err := s.resumeSession()
		if err != nil || done {
			return err
		}
	}

	if err := s.enterEmail(); err != nil {
		return s.classifyLoginFailure(err)
	}
	if err := s.enterPassword(); err != nil {
		return s.classifyLoginFailure(err)
	}
	if err := s.handleInterstitials(); err != nil {
		return s.classifyLoginFailure(err)
	}

	s.sleepExact(5 * time.Second)
	// Security check and keep-signed-in leftovers; absent on most accounts.
	if s.page.IsPresent(s.ctx, "#iLandingViewAction") {
		_ = s.page.Click(s.ctx, "#iLandingViewAction")
	}
	_ = s.page.WaitVisible(s.ctx, "#KmsiCheckboxField", 10*time.Second)
	if s.page.IsPresent(s.ctx, "#idSIButton9") {
		_ = s.page.Click(s.ctx, "#idSIButton9")
		s.sleepExact(5 * time.Second)
	}

	return s.finishLogin()
}

// resumeSession handles the already-signed-in branches. Returns done=true when
// the login completed (or failed terminally) inside this path.
func (s *session) resumeSession() (bool, error) {
	if s.page.IsPresent(s.ctx, "#i0118") {
		if err := s.enterPassword(); err != nil {
			return true, s.classifyLoginFailure(err)
		}
		if s.page.IsPresent(s.ctx, "#idSIButton9") && s.page.IsPresent(s.ctx, "#idBtn_Back") {
			s.staySignedIn()
		}
	}
	if err := s.handleInterstitials(); err != nil {
		return true, s.classifyLoginFailure(err)
	}

	title, _ := s.page.Title(s.ctx)
	switch {
	case title == "Microsoft account | Home" || s.page.IsPresent(s.ctx, "#navs_container"):
		return true, s.finishLogin()

	case title == "Your account has been temporarily suspended":
		return true, ErrAccountLocked

	case s.page.IsPresent(s.ctx, "#mectrl_headerPicture"),
		s.page.IsPresent(s.ctx, "#meControl"),
		strings.Contains(title, "Sign In or Create"):
		return true, s.reauthenticate()
	}
	return false, nil
}

// reauthenticate clicks through the account picker when the session is known
// but needs a fresh confirmation.
func (s *session) reauthenticate() error {
	switch {
	case s.page.IsPresent(s.ctx, "#mectrl_headerPicture"):
		if err := s.page.Click(s.ctx, "#mectrl_headerPicture"); err != nil {
			return &LoginError{Mobile: s.mobile, Reason: "could not click account picture"}
		}
		_ = s.page.WaitHidden(s.ctx, "#mectrl_headerPicture", 30*time.Second)
		s.sleepExact(2 * time.Second)
	case s.page.IsPresent(s.ctx, "#meControl"):
		if err := s.page.Click(s.ctx, "#meControl"); err != nil {
			return &LoginError{Mobile: s.mobile, Reason: "could not click sign-in control"}
		}
		_ = s.page.WaitHidden(s.ctx, "#meControl", 30*time.Second)
		s.sleepExact(2 * time.Second)
	default:
		return &LoginError{Mobile: s.mobile, Reason: "could not locate sign in button"}
	}

	switch {
	case s.page.IsPresent(s.ctx, "#newSessionLink"):
		_ = s.page.WaitVisible(s.ctx, "#newSessionLink", 10*time.Second)
		if err := s.page.Click(s.ctx, "#newSessionLink"); err != nil {
			return &LoginError{Mobile: s.mobile, Reason: "could not resume session"}
		}
	case s.page.IsPresent(s.ctx, "#i0118"):
		if err := s.enterPassword(); err != nil {
			return &LoginError{Mobile: s.mobile, Reason: "could not relogin to account"}
		}
	default:
		return &LoginError{Mobile: s.mobile, Reason: "could not relogin to account"}
	}

	s.update("Logged in", "")
	return s.finishLogin()
}

func (s *session) finishLogin() error {
	s.update("", "Microsoft Rewards...")
	if err := s.rewardsLogin(); err != nil {
		return err
	}
	s.update("", "Bing...")
	return s.checkBingLogin()
}

func (s *session) enterEmail() error {
	if err := s.page.WaitVisible(s.ctx, "#loginHeader", 10*time.Second); err != nil {
		return err
	}
	if err := s.page.SendKeys(s.ctx, `input[name="loginfmt"]`, s.acc.Username); err != nil {
		return err
	}
	if err := s.page.Click(s.ctx, "#idSIButton9"); err != nil {
		return err
	}
	if err := s.page.WaitHidden(s.ctx, `input[name="loginfmt"]`, 30*time.Second); err != nil {
		return err
	}
	s.sleep(5 * time.Second)
	return nil
}

func (s *session) enterPassword() error {
	if err := s.page.WaitClickable(s.ctx, "#i0118", 10*time.Second); err != nil {
		return err
	}
	if err := s.page.SendKeys(s.ctx, "#i0118", s.acc.Password); err != nil {
		return err
	}
	s.sleepExact(2 * time.Second)
	if err := s.page.Click(s.ctx, "#idSIButton9"); err != nil {
		return err
	}
	if err := s.page.WaitHidden(s.ctx, "#i0118", 30*time.Second); err != nil {
		return err
	}
	s.sleep(5 * time.Second)
	return nil
}

// staySignedIn answers the keep-me-signed-in prompt according to whether
// profiles are persisted.
func (s *session) staySignedIn() {
	if s.f.cfg.Session {
		_ = s.page.Click(s.ctx, "#idSIButton9")
	} else {
		_ = s.page.Click(s.ctx, "#idBtn_Back")
	}
}

// handleInterstitials walks the pile of pages Microsoft can wedge between the
// password and the account home.
func (s *session) handleInterstitials() error {
	title, _ := s.page.Title(s.ctx)

	if title == "Microsoft account privacy notice" || s.page.IsPresent(s.ctx, "#interruptContainer") {
		if err := s.acceptPrivacyNotice(); err != nil {
			return err
		}
	}
	if title == "" {
		s.waitBlankPage()
	}

	title, _ = s.page.Title(s.ctx)
	if title == "We're updating our terms" || s.page.IsPresent(s.ctx, "#iAccrualForm") {
		s.sleepExact(2 * time.Second)
		if err := s.page.Click(s.ctx, "#iNext"); err != nil {
			return err
		}
		s.sleepExact(5 * time.Second)
	}

	s.answerSecurityInfoUpdate()

	if s.page.IsPresent(s.ctx, "#idSIButton9") && s.page.IsPresent(s.ctx, "#idBtn_Back") {
		s.staySignedIn()
	}

	s.answerSecurityInfoUpdate()

	// "Break free from your password" pitch.
	if s.page.IsPresent(s.ctx, "#setupAppDesc") {
		s.sleepExact(2 * time.Second)
		if err := s.page.Click(s.ctx, "#iCancel"); err != nil {
			return err
		}
		s.sleepExact(5 * time.Second)
	}
	return nil
}

func (s *session) acceptPrivacyNotice() error {
	s.sleepExact(3 * time.Second)
	if err := s.page.WaitVisible(s.ctx, "#id__0", 15*time.Second); err != nil {
		return err
	}
	_ = s.page.Eval(s.ctx, "window.scrollTo(0, document.body.scrollHeight);", nil)
	if err := s.page.WaitClickable(s.ctx, "#id__0", 15*time.Second); err != nil {
		return err
	}
	if err := s.page.Click(s.ctx, "#id__0"); err != nil {
		return err
	}
	_ = s.page.WaitHidden(s.ctx, "#id__0", 25*time.Second)
	s.sleepExact(5 * time.Second)
	return nil
}

func (s *session) waitBlankPage() {
	deadline := time.Now().Add(30 * time.Second)
	for time.Now().Before(deadline) {
		state, err := s.evalString("document.readyState")
		title, _ := s.page.Title(s.ctx)
		if err == nil && state == "complete" && title != "" {
			return
		}
		s.sleepExact(1 * time.Second)
	}
}

// answerSecurityInfoUpdate clicks "looks good" on the security info prompt.
func (s *session) answerSecurityInfoUpdate() {
	title, _ := s.page.Title(s.ctx)
	if title == "Is your security info still accurate?" || s.page.IsPresent(s.ctx, "#iLooksGood") {
		s.sleepExact(2 * time.Second)
		_ = s.page.Click(s.ctx, "#iLooksGood")
		s.sleepExact(5 * time.Second)
	}
}

// classifyLoginFailure turns a failed login step into the failure taxonomy,
// using the page title to tell a broken flow from a punished account.
func (s *session) classifyLoginFailure(cause error) error {
	title, _ := s.page.Title(s.ctx)
	switch {
	case title == "Your account has been temporarily suspended",
		s.page.IsPresent(s.ctx, ".serviceAbusePageContainer"):
		return ErrAccountLocked
	case title == "Help us protect your account":
		return ErrUnusualActivity
	default:
		return fmt.Errorf("%w: %v", ErrUnhandledLogin, cause)
	}
}

// rewardsLogin opens the rewards portal, classifies any error banner, and
// reads the run-scoped account state from the dashboard.
func (s *session) rewardsLogin() error {
	if err := s.goTo(baseURL); err != nil {
		return err
	}
	s.answerSecurityInfoUpdate()
	s.sleep(10 * time.Second)

	// New accounts see an opt-in link first.
	if s.page.IsPresent(s.ctx, "#start-earning-rewards-link") {
		_ = s.page.Click(s.ctx, "#start-earning-rewards-link")
		s.sleepExact(5 * time.Second)
		_ = s.page.Reload(s.ctx)
		s.sleepExact(5 * time.Second)
	}
	s.sleep(10 * time.Second)

	if s.page.IsPresent(s.ctx, "#error") {
		banner, _ := s.evalString(`(() => {
            const h1 = document.querySelector("#error h1");
            return h1 ? h1.innerHTML : "";
        })()`)
		switch {
		case strings.Contains(banner, "suspended"):
			return ErrAccountSuspended
		case strings.Contains(banner, "country"):
			return ErrRegionUnavailable
		default:
			return fmt.Errorf("%w: rewards page error banner", ErrUnhandledLogin)
		}
	}

	s.answerSecurityInfoUpdate()
	if err := s.page.WaitVisible(s.ctx, "#app-host", 30*time.Second); err != nil {
		return err
	}

	title, price, err := s.redeemGoal()
	if err != nil {
		return err
	}
	s.acc.RedeemGoalTitle = title
	s.acc.RedeemGoalPrice = price

	if s.acc.StartingPoints == -1 {
		points, err := s.accountPoints()
		if err != nil {
			return err
		}
		s.acc.StartingPoints = points
		s.acc.PointsCounter = points
	}
	s.setPoints(s.acc.PointsCounter)

	if s.mobile {
		d, err := s.dashboardData()
		if err != nil {
			return err
		}
		_, mobile := remainingSearches(d)
		s.acc.MobileRemainingSearches = mobile
	}
	return nil
}

// checkBingLogin verifies the search page carries the signed-in points
// counter. Bounded both by a hard time budget and an attempt cap.
func (s *session) checkBingLogin() error {
	ctx, cancel := context.WithTimeout(s.ctx, bingLoginBudget)
	defer cancel()

	inner := *s
	inner.ctx = ctx

	for attempt := 1; attempt <= bingLoginTries; attempt++ {
		if ctx.Err() != nil {
			break
		}
		if done := inner.tryBingLogin(); done {
			return nil
		}
	}
	return ErrDashboardUnavailable
}

func (s *session) tryBingLogin() bool {
	if err := s.goTo(bingURL); err != nil {
		return false
	}
	s.sleep(15 * time.Second)

	// A persisted session may already show the counter.
	if s.f.cfg.Session {
		if points, err := s.readBingCounter(); err == nil {
			s.setPoints(points)
			return true
		}
	}

	s.dismissCookieBanner()
	if s.mobile {
		s.mobileBingSignIn()
	}
	s.sleepExact(5 * time.Second)

	if err := s.goTo(bingURL); err != nil {
		return false
	}
	s.sleep(15 * time.Second)

	points, err := s.readBingCounter()
	if err != nil {
		return false
	}
	s.setPoints(points)
	return true
}

// mobileBingSignIn clicks through the hamburger sign-in path shown to mobile
// user agents. Every step is best effort; the caller re-reads the counter.
func (s *session) mobileBingSignIn() {
	s.sleepExact(1 * time.Second)
	if err := s.page.Click(s.ctx, "#mHamburger"); err != nil {
		s.dismissCookieBanner()
		s.sleepExact(1 * time.Second)
		_ = s.page.Click(s.ctx, "#mHamburger")
	}
	s.sleepExact(1 * time.Second)
	if s.page.IsPresent(s.ctx, "#HBSignIn") {
		_ = s.page.Click(s.ctx, "#HBSignIn")
		s.sleepExact(5 * time.Second)
		s.answerSecurityInfoUpdate()
	}
	s.sleepExact(2 * time.Second)
	if s.page.IsPresent(s.ctx, "#iShowSkip") {
		_ = s.page.Click(s.ctx, "#iShowSkip")
		s.sleepExact(3 * time.Second)
	}
}
