package farmer

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/browser"
	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/words"
	"github.com/mrfarmer/rewards-farmer-bot/internal/config"
	"github.com/mrfarmer/rewards-farmer-bot/internal/domain/model"
	"github.com/mrfarmer/rewards-farmer-bot/internal/platform/logger"
	"github.com/mrfarmer/rewards-farmer-bot/internal/storage/farmlog"
)

// fakeSession scripts a whole account surface: waits succeed unless listed in
// waitErr, dashboard reads come from dash, and the live points counter grows
// when a rewards card in cards is opened or a search is submitted.
type fakeSession struct {
	title   string
	dash    string
	waitErr map[string]error
	present map[string]bool
	cards   map[string]int
	points  int
	actions []string
}

func (s *fakeSession) Navigate(_ context.Context, url string) error {
	s.actions = append(s.actions, "goto "+url)
	return nil
}

func (s *fakeSession) Reload(context.Context) error { return nil }

func (s *fakeSession) CurrentURL(context.Context) (string, error) { return "", nil }

func (s *fakeSession) Title(context.Context) (string, error) { return s.title, nil }

func (s *fakeSession) PageSource(context.Context) (string, error) {
	if s.dash == "" {
		return "<html>sign in</html>", nil
	}
	return "<html><script>var dashboard = " + s.dash +
		";\n        appDataModule.constant(\"prefetchedDashboard\", dashboard);</script></html>", nil
}

func (s *fakeSession) WaitVisible(_ context.Context, sel string, _ time.Duration) error {
	return s.waitErr[sel]
}

func (s *fakeSession) WaitClickable(_ context.Context, sel string, _ time.Duration) error {
	return s.waitErr[sel]
}

func (s *fakeSession) WaitHidden(context.Context, string, time.Duration) error { return nil }

func (s *fakeSession) IsPresent(_ context.Context, sel string) bool { return s.present[sel] }

func (s *fakeSession) Click(_ context.Context, sel string) error {
	s.actions = append(s.actions, "click "+sel)
	return nil
}

func (s *fakeSession) SendKeys(context.Context, string, string) error { return nil }

func (s *fakeSession) PressEnter(_ context.Context, sel string) error {
	s.actions = append(s.actions, "search")
	s.points += 5
	return nil
}

func (s *fakeSession) Eval(_ context.Context, expr string, out interface{}) error {
	switch {
	case strings.Contains(expr, "#id_rc"):
		scriptOut(out, strconv.Itoa(s.points))
	case strings.Contains(expr, "rewards-card-container"):
		for id, worth := range s.cards {
			if strings.Contains(expr, `"`+id+`"`) {
				s.actions = append(s.actions, "open "+id)
				s.points += worth
				scriptOut(out, true)
				return nil
			}
		}
		scriptOut(out, false)
	case strings.Contains(expr, "#sb_form_q"):
		scriptOut(out, true)
	case strings.Contains(expr, "document.readyState"):
		scriptOut(out, "complete")
	}
	return nil
}

func (s *fakeSession) SwitchToNewTab(context.Context) error { return nil }

func (s *fakeSession) CloseActiveTab(context.Context) error { return nil }

func (s *fakeSession) ResetTabs(context.Context) error {
	s.actions = append(s.actions, "reset tabs")
	return nil
}

func (s *fakeSession) Close() error { return nil }

// scriptOut writes a scripted value through the same JSON path the chromedp
// session uses for script results.
func scriptOut(out, v interface{}) {
	if out == nil {
		return
	}
	b, err := json.Marshal(v)
	if err != nil {
		return
	}
	_ = json.Unmarshal(b, out)
}

// scriptedDriver hands each account its own fake session.
type scriptedDriver struct {
	sessions map[string]browser.Session
}

func (d *scriptedDriver) Open(_ context.Context, opts browser.OpenOptions) (browser.Session, error) {
	s, ok := d.sessions[opts.Username]
	if !ok {
		return nil, &browser.SetupError{Err: errors.New("no session for " + opts.Username)}
	}
	return s, nil
}

// The pcSearch counters leave 8 searches at 5 points each: (55-15)/5. With the
// 10-point daily card that takes 100 starting points to exactly 150.
const farmDashboard = `{
  "userStatus": {
    "availablePoints": 100,
    "redeemGoal": {"title": "Gift card", "price": 5000},
    "counters": {
      "pcSearch": [
        {"pointProgress": 15, "pointProgressMax": 30},
        {"pointProgress": 0, "pointProgressMax": 25}
      ]
    },
    "levelInfo": {"activeLevel": "Level1"}
  },
  "dailySetPromotions": {
    "08/31/2026": [
      {"name": "Daily search", "offerId": "Gamification_DailySet_08312026_Child1",
       "complete": false, "promotionType": "urlreward",
       "pointProgress": 0, "pointProgressMax": 10,
       "destinationUrl": "https://www.bing.com"}
    ]
  },
  "punchCards": [],
  "morePromotions": [],
  "promotionalItem": null
}`

const promoDashboard = `{
  "userStatus": {
    "availablePoints": 100,
    "redeemGoal": {"title": "Gift card", "price": 5000},
    "counters": {},
    "levelInfo": {"activeLevel": "Level1"}
  },
  "dailySetPromotions": {},
  "punchCards": [],
  "morePromotions": [
    {"name": "Broken card", "offerId": "promo-broken", "complete": false,
     "promotionType": "urlreward", "pointProgress": 0, "pointProgressMax": 10},
    {"name": "Live card", "offerId": "promo-live", "complete": false,
     "promotionType": "urlreward", "pointProgress": 0, "pointProgressMax": 10}
  ],
  "promotionalItem": null
}`

func newFarmSession() *fakeSession {
	return &fakeSession{
		title:  "Microsoft account | Home",
		dash:   farmDashboard,
		cards:  map[string]int{"Gamification_DailySet_08312026_Child1": 10},
		points: 100,
	}
}

func newScriptedFarmer(t *testing.T, cfg config.Config, driver browser.Driver, accounts []model.Account) *Farmer {
	t.Helper()
	store, err := farmlog.NewStore(filepath.Join(t.TempDir(), "farm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	wordFile := filepath.Join(t.TempDir(), "words.txt")
	pool := "alpha\nbeta\ngamma\ndelta\nepsilon\nzeta\neta\ntheta\niota\nkappa\n"
	require.NoError(t, os.WriteFile(wordFile, []byte(pool), 0o644))

	f := New(cfg, driver, store, words.NewSource(wordFile, nil), accounts)
	f.now = func() time.Time { return time.Date(2026, 8, 31, 9, 0, 0, 0, time.UTC) }
	f.online = func() bool { return true }
	f.sleeper = func(context.Context, time.Duration) {}
	return f
}

func TestRunFarmsAccountsEndToEnd(t *testing.T) {
	lockedSession := &fakeSession{
		title:   "Your account has been temporarily suspended",
		waitErr: map[string]error{"#loginHeader": errors.New("username field never appeared")},
	}
	farmSession := newFarmSession()

	driver := &scriptedDriver{sessions: map[string]browser.Session{
		"locked@example.com": lockedSession,
		"farm@example.com":   farmSession,
	}}
	accounts := []model.Account{
		{Username: "locked@example.com", Password: "x"},
		{Username: "farm@example.com", Password: "x"},
	}
	cfg := config.Config{Speed: config.SpeedSuperFast, DailyQuests: true, PCSearch: true}
	f := newScriptedFarmer(t, cfg, driver, accounts)

	require.NoError(t, f.Run(context.Background()))

	got := f.Accounts()
	assert.Equal(t, model.StatusLocked, got[0].Log.Status)
	assert.Equal(t, model.StatusFarmed, got[1].Log.Status, "a locked account does not stop the run")
	assert.Equal(t, 50, got[1].Log.TodayPoints)
	assert.Equal(t, 150, got[1].Log.TotalPoints)
	assert.Equal(t, "Gift card", got[1].RedeemGoalTitle)

	stored, err := f.store.Load("farm@example.com", f.now())
	require.NoError(t, err)
	assert.Equal(t, model.StatusFarmed, stored.Status)
	assert.Equal(t, 150, stored.TotalPoints)
}

func TestDesktopSurfaceRaisesStageFlags(t *testing.T) {
	farmSession := newFarmSession()
	driver := &scriptedDriver{sessions: map[string]browser.Session{"farm@example.com": farmSession}}
	accounts := []model.Account{{Username: "farm@example.com", Password: "x"}}
	cfg := config.Config{Speed: config.SpeedSuperFast, DailyQuests: true, PCSearch: true}
	f := newScriptedFarmer(t, cfg, driver, accounts)

	acc := &f.accounts[0]
	acc.ResetRunState()
	accLog := logger.NewNamed("Farmer", 0, acc)

	require.NoError(t, f.farmOnce(context.Background(), 0, acc, accLog))

	assert.True(t, acc.Log.Daily)
	assert.True(t, acc.Log.PCSearches)
	assert.Equal(t, 100, acc.StartingPoints)
	assert.Equal(t, 150, acc.PointsCounter)
	assert.Contains(t, farmSession.actions, "open Gamification_DailySet_08312026_Child1")
}

func TestMorePromotionFailureIsContained(t *testing.T) {
	session := &fakeSession{
		title:  "Microsoft account | Home",
		dash:   promoDashboard,
		cards:  map[string]int{"promo-live": 10},
		points: 100,
	}
	driver := &scriptedDriver{sessions: map[string]browser.Session{"promo@example.com": session}}
	accounts := []model.Account{{Username: "promo@example.com", Password: "x"}}
	cfg := config.Config{Speed: config.SpeedSuperFast, MoreActivities: true}
	f := newScriptedFarmer(t, cfg, driver, accounts)

	acc := &f.accounts[0]
	acc.ResetRunState()
	accLog := logger.NewNamed("Farmer", 0, acc)

	require.NoError(t, f.farmOnce(context.Background(), 0, acc, accLog),
		"one broken card never fails the surface")

	assert.True(t, acc.Log.MorePromotions)
	assert.Contains(t, session.actions, "reset tabs", "the broken card is contained with a tab reset")
	assert.Contains(t, session.actions, "open promo-live", "the cards after the broken one still run")
	assert.Equal(t, 110, acc.PointsCounter)
}
