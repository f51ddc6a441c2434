package farmer

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/browser"
	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/words"
	"github.com/mrfarmer/rewards-farmer-bot/internal/config"
	"github.com/mrfarmer/rewards-farmer-bot/internal/domain/model"
)

func TestStatusForError(t *testing.T) {
	tests := []struct {
		err    error
		status model.Status
		abort  bool
	}{
		{browser.ErrProxyDead, model.StatusProxyDead, false},
		{ErrAccountLocked, model.StatusLocked, false},
		{ErrAccountSuspended, model.StatusSuspended, false},
		{ErrUnusualActivity, model.StatusUnusualActivity, true},
		{words.ErrUnavailable, model.StatusSearchWordsError, false},
		{&LoginError{Mobile: false, Reason: "no password field"}, model.StatusPCLoginFailed, false},
		{&LoginError{Mobile: true, Reason: "no password field"}, model.StatusMobileLoginFailed, false},
		{ErrUnhandledLogin, model.StatusError, false},
		{errors.New("anything else"), model.StatusError, false},
	}

	for _, tt := range tests {
		status, abort := statusForError(tt.err)
		assert.Equal(t, tt.status, status, "error: %v", tt.err)
		assert.Equal(t, tt.abort, abort, "error: %v", tt.err)
	}
}

func TestIsTransportError(t *testing.T) {
	assert.True(t, isTransportError(browser.ErrElementTimeout))
	assert.True(t, isTransportError(fmt.Errorf("wait for #app-host: %w", browser.ErrElementTimeout)))
	assert.True(t, isTransportError(context.DeadlineExceeded))
	assert.True(t, isTransportError(errors.New("dial tcp: connection refused")))

	assert.False(t, isTransportError(nil))
	assert.False(t, isTransportError(ErrAccountLocked))
	assert.False(t, isTransportError(browser.ErrProxyDead))
}

func TestStatusForWrappedError(t *testing.T) {
	wrapped := fmt.Errorf("while logging in: %w", ErrAccountSuspended)
	status, _ := statusForError(wrapped)
	assert.Equal(t, model.StatusSuspended, status)
}

func TestSleepForNormal(t *testing.T) {
	assert.Equal(t, 12*time.Second, sleepFor(config.SpeedNormal, 12*time.Second))
}

func TestSleepForFast(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := sleepFor(config.SpeedFast, 12*time.Second)
		assert.GreaterOrEqual(t, d, 3*time.Second)
		assert.LessOrEqual(t, d, 9*time.Second)
	}
}

func TestSleepForSuperFast(t *testing.T) {
	for i := 0; i < 50; i++ {
		d := sleepFor(config.SpeedSuperFast, 12*time.Second)
		assert.GreaterOrEqual(t, d, 1500*time.Millisecond)
		assert.LessOrEqual(t, d, 4500*time.Millisecond)
	}
}

func TestRemainingSearches(t *testing.T) {
	d := &dashboard{}
	d.UserStatus.LevelInfo.ActiveLevel = "Level2"
	d.UserStatus.Counters = map[string][]counterEntry{
		"pcSearch": {
			{PointProgress: 50, PointProgressMax: 90},
			{PointProgress: 0, PointProgressMax: 80},
		},
		"mobileSearch": {
			{PointProgress: 20, PointProgressMax: 100},
		},
	}

	pc, mobile := remainingSearches(d)
	assert.Equal(t, 24, pc, "(170-50)/5")
	assert.Equal(t, 16, mobile, "(100-20)/5")
}

func TestRemainingSearchesLevelOneHasNoMobile(t *testing.T) {
	d := &dashboard{}
	d.UserStatus.LevelInfo.ActiveLevel = "Level1"
	d.UserStatus.Counters = map[string][]counterEntry{
		"pcSearch": {
			{PointProgress: 0, PointProgressMax: 30},
			{PointProgress: 0, PointProgressMax: 25},
		},
		"mobileSearch": {
			{PointProgress: 0, PointProgressMax: 60},
		},
	}

	pc, mobile := remainingSearches(d)
	assert.Equal(t, 11, pc, "55/5")
	assert.Equal(t, 0, mobile)
}

func TestRemainingSearchesEUTier(t *testing.T) {
	d := &dashboard{}
	d.UserStatus.LevelInfo.ActiveLevel = "Level2"
	d.UserStatus.Counters = map[string][]counterEntry{
		"pcSearch": {
			{PointProgress: 30, PointProgressMax: 60},
			{PointProgress: 0, PointProgressMax: 42},
		},
	}

	pc, mobile := remainingSearches(d)
	assert.Equal(t, 24, pc, "(102-30)/3")
	assert.Equal(t, 0, mobile, "no mobile counter at all")
}

func TestRemainingSearchesMissingCounters(t *testing.T) {
	pc, mobile := remainingSearches(&dashboard{})
	assert.Zero(t, pc)
	assert.Zero(t, mobile)
}

func TestMaxNumberIn(t *testing.T) {
	assert.Equal(t, 3, maxNumberIn("1 of 3"))
	assert.Equal(t, 10, maxNumberIn("Question 2 of 10"))
	assert.Equal(t, 0, maxNumberIn("no digits"))
	assert.Equal(t, 0, maxNumberIn("mixed12x tokens"))
}

func TestIsPollActivity(t *testing.T) {
	inner := "https://www.bing.com/search?q=news&filters=" +
		url.QueryEscape(`PollScenarioId:"abc123"`)
	destination := "https://www.bing.com/rewardsapp/flyout?ru=" + url.QueryEscape(inner)
	assert.True(t, isPollActivity(destination))

	quizInner := "https://www.bing.com/search?q=news&filters=" +
		url.QueryEscape(`BTROID:"xyz"`)
	quizDestination := "https://www.bing.com/rewardsapp/flyout?ru=" + url.QueryEscape(quizInner)
	assert.False(t, isPollActivity(quizDestination))

	assert.False(t, isPollActivity("https://www.bing.com/search?q=plain"))
	assert.False(t, isPollActivity("://not-a-url"))
}

func TestShadowEval(t *testing.T) {
	js := shadowEval([]shadowStep{tag("shopping-page-base"), shadow(), query("shopping-homepage"), child(2), class("me-control")},
		`return el.textContent;`)

	assert.Contains(t, js, `el.getElementsByTagName("shopping-page-base")[0]`)
	assert.Contains(t, js, "el.shadowRoot")
	assert.Contains(t, js, `el.querySelector("shopping-homepage")`)
	assert.Contains(t, js, "el.children[2]")
	assert.Contains(t, js, `el.getElementsByClassName("me-control")[0]`)
	assert.Equal(t, 5, strings.Count(js, "if (!el) return null;"), "every hop is null-guarded")
	assert.Contains(t, js, "return el.textContent;")
}

func TestContainsServerError(t *testing.T) {
	assert.True(t, containsServerError("<html>HTTP ERROR 503</html>"))
	assert.True(t, containsServerError("HTTP ERROR 500"))
	assert.False(t, containsServerError("<html>all good</html>"))
}

func TestCardNumberOf(t *testing.T) {
	assert.Equal(t, "2", cardNumberOf("Gamification_DailySet_20260831_Child2"))
	assert.Equal(t, "?", cardNumberOf(""))
}

func TestCreateMessage(t *testing.T) {
	now := time.Date(2026, 8, 31, 20, 0, 0, 0, time.UTC)

	farmed := model.Account{
		Username:        "alice@example.com",
		RedeemGoalTitle: "Gift card",
		RedeemGoalPrice: 5000,
		Log: model.FarmLog{
			LastCheck:   "2026-08-31",
			Status:      model.StatusFarmed,
			TodayPoints: 260,
			TotalPoints: 13000,
		},
	}
	suspended := model.Account{
		Username: "bob@example.com",
		Log:      model.FarmLog{Status: model.StatusSuspended},
	}
	locked := model.Account{
		Username: "carol@example.com",
		Log:      model.FarmLog{Status: model.StatusLocked},
	}

	msg := CreateMessage([]model.Account{farmed, suspended, locked}, now)

	assert.Contains(t, msg, "📅 Daily report 31/08/2026")
	assert.Contains(t, msg, "1. alice@example.com")
	assert.Contains(t, msg, "✅ Farmed")
	assert.Contains(t, msg, "⭐️ Earned points: 260")
	assert.Contains(t, msg, "🏅 Total points: 13000")
	assert.Contains(t, msg, "🎁 Ready to redeem: Gift card for 5000 points (2x)")
	assert.Contains(t, msg, "2. bob@example.com")
	assert.Contains(t, msg, "❌ Suspended")
	assert.Contains(t, msg, "3. carol@example.com")
	assert.Contains(t, msg, "⚠️ Locked")
	assert.Contains(t, msg, "💵 Total earned points: 260 ($0.20) (€0.17)")
	assert.Contains(t, msg, "💵 Total points overall: 13000 ($10.00) (€8.67)")
}

func TestCreateMessageErrorStatus(t *testing.T) {
	now := time.Date(2026, 8, 31, 20, 0, 0, 0, time.UTC)
	acc := model.Account{
		Username: "dave@example.com",
		Log:      model.FarmLog{Status: model.StatusPCLoginFailed},
	}

	msg := CreateMessage([]model.Account{acc}, now)
	assert.Contains(t, msg, "⛔️ PC login failed")
}

func TestPrepareLogsRollsOverStaleDay(t *testing.T) {
	f := &Farmer{now: func() time.Time { return time.Date(2026, 8, 31, 8, 0, 0, 0, time.UTC) }}
	acc := model.Account{
		Username: "old@example.com",
		Log: model.FarmLog{
			LastCheck:   "2026-08-30",
			Status:      model.StatusFarmed,
			Daily:       true,
			PCSearches:  true,
			TotalPoints: 900,
		},
	}
	require.False(t, acc.WasFinished(f.now()))

	acc.CorrectLog()
	assert.Equal(t, model.StatusNotFarmed, acc.Log.Status)
	assert.False(t, acc.Log.Daily)
	assert.Equal(t, 900, acc.Log.TotalPoints, "totals survive the rollover")
}
