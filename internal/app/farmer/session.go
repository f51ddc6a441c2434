package farmer

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/browser"
	"github.com/mrfarmer/rewards-farmer-bot/internal/domain/model"
	"github.com/mrfarmer/rewards-farmer-bot/internal/platform/logger"
	"github.com/mrfarmer/rewards-farmer-bot/internal/platform/ui"
)

// session is one account's live browser plus the run-scoped state around it.
// All activity protocols hang off it.
type session struct {
	f      *Farmer
	ctx    context.Context
	page   browser.Session
	acc    *model.Account
	idx    int
	log    *logger.ClassLogger
	mobile bool
}

// serverErrorMarkers are the transient 5xx bodies worth refreshing through.
var serverErrorMarkers = []string{
	"HTTP ERROR 500",
	"HTTP ERROR 502",
	"HTTP ERROR 503",
	"HTTP ERROR 504",
	"HTTP ERROR 505",
}

func (s *session) sleep(d time.Duration) {
	s.f.sleeper(s.ctx, sleepFor(s.f.cfg.Speed, d))
}

// sleepExact ignores the speed multiplier, for pauses that are part of a
// protocol rather than pacing.
func (s *session) sleepExact(d time.Duration) {
	s.f.sleeper(s.ctx, d)
}

// update repaints the account panel with a new section and/or detail line.
// Pass "" to leave a field unchanged.
func (s *session) update(section, detail string) {
	if section != "" {
		s.acc.Section = section
	}
	if detail != "" {
		s.acc.Detail = detail
	}
	ui.UpdateStatus(s.idx, *s.acc, s.acc.Section, 0)
	s.log.JustLog(fmt.Sprintf("section=%s detail=%s", s.acc.Section, s.acc.Detail))
}

func (s *session) setPoints(points int) {
	if points > s.acc.PointsCounter {
		s.acc.PointsCounter = points
	}
	ui.UpdateStatus(s.idx, *s.acc, s.acc.Section, 0)
}

// goTo navigates and refreshes through transient 5xx error pages, bounded so
// a permanently broken page cannot spin forever.
func (s *session) goTo(url string) error {
	if err := s.page.Navigate(s.ctx, url); err != nil {
		return err
	}
	for attempt := 0; attempt < 5; attempt++ {
		src, err := s.page.PageSource(s.ctx)
		if err != nil {
			return err
		}
		if !containsServerError(src) {
			return nil
		}
		s.log.JustLog(fmt.Sprintf("server error page at %s, refreshing", url))
		s.sleepExact(5 * time.Second)
		if err := s.page.Reload(s.ctx); err != nil {
			return err
		}
	}
	return fmt.Errorf("server error persisted at %s", url)
}

func containsServerError(src string) bool {
	for _, marker := range serverErrorMarkers {
		if strings.Contains(src, marker) {
			return true
		}
	}
	return false
}

// resetTabs closes everything but the main tab and lands back on the rewards
// portal. Used to contain a failed activity.
func (s *session) resetTabs() {
	_ = s.page.ResetTabs(s.ctx)
	if err := s.goTo(baseURL); err != nil {
		s.log.JustLog(fmt.Sprintf("reset tabs navigation failed: %v", err))
	}
	_ = s.page.WaitVisible(s.ctx, "#app-host", 30*time.Second)
}

// closeActivityTab returns to the dashboard tab after an activity.
func (s *session) closeActivityTab() {
	s.sleepExact(2 * time.Second)
	_ = s.page.CloseActiveTab(s.ctx)
	s.sleepExact(2 * time.Second)
}

// openRewardsCard clicks the dashboard card with the given offer id and
// follows it into the new tab.
func (s *session) openRewardsCard(offerID, name string) error {
	s.sleep(5 * time.Second)
	var clicked bool
	expr := fmt.Sprintf(`(() => {
        const cards = document.getElementsByClassName("rewards-card-container");
        for (const card of cards) {
            if (card.getAttribute("data-bi-id") === %q) { card.click(); return true; }
        }
        return false;
    })()`, offerID)
	if err := s.page.Eval(s.ctx, expr, &clicked); err != nil {
		return err
	}
	if !clicked {
		return fmt.Errorf("could not locate the provided card: %s", name)
	}
	s.sleepExact(1 * time.Second)
	return s.page.SwitchToNewTab(s.ctx)
}

// dismissCookieBanner accepts the cookie popup when present. Best effort.
func (s *session) dismissCookieBanner() {
	if s.page.IsPresent(s.ctx, "#bnp_container") {
		_ = s.page.Click(s.ctx, "#bnp_btn_accept")
		s.sleepExact(2 * time.Second)
	}
}

// dismissWallpaperPopup clicks "later" on the wallpaper app promo. Best effort.
func (s *session) dismissWallpaperPopup() {
	if s.page.IsPresent(s.ctx, "#b_notificationContainer_bop") {
		_ = s.page.Click(s.ctx, "#bnp_hfly_cta2")
		s.sleepExact(2 * time.Second)
	}
}

// waitQuizLoads polls for the quiz container, refreshing the page a few times
// before giving up. Mirrors the flaky loading of the quiz frontend.
func (s *session) waitQuizLoads() bool {
	return s.pollWithRefresh("#currentQuestionContainer")
}

// waitQuestionRefresh waits for the credits strip that appears when the next
// question has rendered.
func (s *session) waitQuestionRefresh() bool {
	return s.pollWithRefresh(".rqECredits")
}

func (s *session) pollWithRefresh(selector string) bool {
	for refresh := 0; refresh <= 5; refresh++ {
		for try := 0; try < 10; try++ {
			if s.page.IsPresent(s.ctx, selector) {
				return true
			}
			s.sleepExact(500 * time.Millisecond)
		}
		if refresh < 5 {
			_ = s.page.Reload(s.ctx)
			s.sleepExact(5 * time.Second)
		}
	}
	return false
}

func (s *session) evalInt(expr string) (int, error) {
	var out int
	err := s.page.Eval(s.ctx, expr, &out)
	return out, err
}

func (s *session) evalString(expr string) (string, error) {
	var out string
	err := s.page.Eval(s.ctx, expr, &out)
	return out, err
}

// attr reads an element attribute via JS, "" when missing.
func (s *session) attr(selector, name string) string {
	expr := fmt.Sprintf(`(() => {
        const el = document.querySelector(%q);
        return el ? (el.getAttribute(%q) || "") : "";
    })()`, selector, name)
	out, err := s.evalString(expr)
	if err != nil {
		return ""
	}
	return out
}

// saveError appends the failure to errors.txt when enabled.
func (s *session) saveError(err error) {
	if s.f.cfg.SaveErrors {
		logger.SaveError(s.acc.Username, err)
	}
}
