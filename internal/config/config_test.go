package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseBool(t *testing.T) {
	assert.True(t, parseBool("true", false))
	assert.True(t, parseBool("1", false))
	assert.False(t, parseBool("false", true))
	assert.True(t, parseBool("", true))
	assert.False(t, parseBool("not-a-bool", false))
}

func TestParseClock(t *testing.T) {
	clock, err := parseClock("07:30")
	require.NoError(t, err)
	assert.Equal(t, 7, clock.Hour)
	assert.Equal(t, 30, clock.Minute)

	_, err = parseClock("25:00")
	assert.Error(t, err)
	_, err = parseClock("12:60")
	assert.Error(t, err)
	_, err = parseClock("1230")
	assert.Error(t, err)
}

func TestNextTimerStart(t *testing.T) {
	now := time.Date(2026, 8, 31, 10, 0, 0, 0, time.UTC)

	cfg := Config{Timer: "15:00"}
	start, err := cfg.NextTimerStart(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 8, 31, 15, 0, 0, 0, time.UTC), start)

	cfg.Timer = "09:00"
	start, err = cfg.NextTimerStart(now)
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 1, 9, 0, 0, 0, time.UTC), start, "a time earlier today rolls to tomorrow")
}

func TestValidate(t *testing.T) {
	cfg := Config{AccountsPath: "accounts.json"}
	assert.NoError(t, cfg.Validate())

	cfg.TimerSwitch = true
	cfg.Timer = "bad"
	assert.Error(t, cfg.Validate())
	cfg.Timer = "06:00"
	assert.NoError(t, cfg.Validate())

	cfg.SendToTelegram = true
	assert.Error(t, cfg.Validate(), "token and chat id required")
	cfg.TelegramToken = "tok"
	cfg.TelegramChatID = "42"
	assert.NoError(t, cfg.Validate())

	cfg.SendToDiscord = true
	assert.Error(t, cfg.Validate(), "webhook url required")
	cfg.DiscordWebhookURL = "https://discord.com/api/webhooks/x"
	assert.NoError(t, cfg.Validate())
}

func TestLoadAccountsStringList(t *testing.T) {
	path := writeAccounts(t, `["alice@example.com:secret", "bob@example.com:hunter2"]`)
	cfg := Config{AccountsPath: path}

	accounts, err := cfg.LoadAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "alice@example.com", accounts[0].Username)
	assert.Equal(t, "secret", accounts[0].Password)
	assert.Equal(t, "bob@example.com", accounts[1].Username)
}

func TestLoadAccountsObjectList(t *testing.T) {
	path := writeAccounts(t, `[
        {"username": "alice@example.com", "password": "secret", "proxy": "http://127.0.0.1:8080"},
        {"username": "bob@example.com", "password": "hunter2", "mobile_user_agent": "custom-ua"}
    ]`)
	cfg := Config{AccountsPath: path}

	accounts, err := cfg.LoadAccounts()
	require.NoError(t, err)
	require.Len(t, accounts, 2)
	assert.Equal(t, "http://127.0.0.1:8080", accounts[0].Proxy)
	assert.Equal(t, "custom-ua", accounts[1].MobileUserAgent)
}

func TestLoadAccountsRejectsBadInput(t *testing.T) {
	cfg := Config{AccountsPath: writeAccounts(t, `["no-separator"]`)}
	_, err := cfg.LoadAccounts()
	assert.Error(t, err)

	cfg.AccountsPath = writeAccounts(t, `[{"username": "", "password": "x"}]`)
	_, err = cfg.LoadAccounts()
	assert.Error(t, err)
}

func TestToggles(t *testing.T) {
	cfg := Config{DailyQuests: true, PCSearch: true}
	toggles := cfg.Toggles()
	assert.True(t, toggles.DailyQuests)
	assert.True(t, toggles.PCSearch)
	assert.False(t, toggles.MobileSearch)
}

func writeAccounts(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "accounts.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}
