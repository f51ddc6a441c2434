package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/mrfarmer/rewards-farmer-bot/internal/domain/model"
)

// Speed controls how aggressively sleeps between browser interactions are
// shortened.
type Speed string

const (
	SpeedNormal    Speed = "Normal"
	SpeedFast      Speed = "Fast"
	SpeedSuperFast Speed = "Super fast"
)

const (
	defaultPCUserAgent     = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Safari/537.36 Edg/112.0.1722.58"
	defaultMobileUserAgent = "Mozilla/5.0 (Linux; Android 12; SM-N9750) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/112.0.0.0 Mobile Safari/537.36 EdgA/112.0.1722.46"
)

// Config is the complete, immutable option surface consumed by the farmer.
// Every recognized key is enumerated here; components receive the struct at
// construction time instead of looking up keys ad hoc.
type Config struct {
	AccountsPath string
	LogDBPath    string
	WordsPath    string
	ProfilesDir  string

	Speed              Speed
	Headless           bool
	Session            bool
	UseProxy           bool
	SkipOnProxyFailure bool
	DisableImages      bool
	EdgeWebdriver      bool
	BrowserPath        string
	SaveErrors         bool
	ShutdownAfterRun   bool

	DailyQuests     bool
	PunchCards      bool
	MoreActivities  bool
	MSNShoppingGame bool
	PCSearch        bool
	MobileSearch    bool

	TimerSwitch bool
	Timer       string // "HH:MM"

	PCUserAgent     string
	MobileUserAgent string

	SendToTelegram      bool
	TelegramToken       string
	TelegramChatID      string
	TelegramProxy       string
	TelegramProxySwitch bool
	SendToDiscord       bool
	DiscordWebhookURL   string
}

func Load() Config {
	err := godotenv.Load()
	if err != nil {
		log.Println("No .env file found, using default values")
	}

	speed := Speed(strings.TrimSpace(os.Getenv("SPEED")))
	switch speed {
	case SpeedNormal, SpeedFast, SpeedSuperFast:
	default:
		speed = SpeedNormal
	}

	return Config{
		AccountsPath: stringWithDefault(os.Getenv("ACCOUNTS_PATH"), "configs/accounts.json"),
		LogDBPath:    stringWithDefault(os.Getenv("LOG_DB_PATH"), "data/farmlog.db"),
		WordsPath:    stringWithDefault(os.Getenv("WORDS_PATH"), "assets/searchwords.txt"),
		ProfilesDir:  stringWithDefault(os.Getenv("PROFILES_DIR"), "data/profiles"),

		Speed:              speed,
		Headless:           parseBool(os.Getenv("HEADLESS"), false),
		Session:            parseBool(os.Getenv("SESSION"), false),
		UseProxy:           parseBool(os.Getenv("USE_PROXY"), false),
		SkipOnProxyFailure: parseBool(os.Getenv("SKIP_ON_PROXY_FAILURE"), true),
		DisableImages:      parseBool(os.Getenv("DISABLE_IMAGES"), false),
		EdgeWebdriver:      parseBool(os.Getenv("EDGE_WEBDRIVER"), false),
		BrowserPath:        strings.TrimSpace(os.Getenv("BROWSER_PATH")),
		SaveErrors:         parseBool(os.Getenv("SAVE_ERRORS"), false),
		ShutdownAfterRun:   parseBool(os.Getenv("SHUTDOWN_AFTER_RUN"), false),

		DailyQuests:     parseBool(os.Getenv("DAILY_QUESTS"), true),
		PunchCards:      parseBool(os.Getenv("PUNCH_CARDS"), true),
		MoreActivities:  parseBool(os.Getenv("MORE_ACTIVITIES"), true),
		MSNShoppingGame: parseBool(os.Getenv("MSN_SHOPPING_GAME"), false),
		PCSearch:        parseBool(os.Getenv("PC_SEARCH"), true),
		MobileSearch:    parseBool(os.Getenv("MOBILE_SEARCH"), true),

		TimerSwitch: parseBool(os.Getenv("TIMER_SWITCH"), false),
		Timer:       strings.TrimSpace(os.Getenv("TIMER")),

		PCUserAgent:     stringWithDefault(os.Getenv("PC_USER_AGENT"), defaultPCUserAgent),
		MobileUserAgent: stringWithDefault(os.Getenv("MOBILE_USER_AGENT"), defaultMobileUserAgent),

		SendToTelegram:      parseBool(os.Getenv("SEND_TO_TELEGRAM"), false),
		TelegramToken:       strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		TelegramChatID:      strings.TrimSpace(os.Getenv("TELEGRAM_CHAT_ID")),
		TelegramProxy:       strings.TrimSpace(os.Getenv("TELEGRAM_PROXY")),
		TelegramProxySwitch: parseBool(os.Getenv("TELEGRAM_PROXY_SWITCH"), false),
		SendToDiscord:       parseBool(os.Getenv("SEND_TO_DISCORD"), false),
		DiscordWebhookURL:   strings.TrimSpace(os.Getenv("DISCORD_WEBHOOK_URL")),
	}
}

func stringWithDefault(value, defaultVal string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultVal
	}
	return value
}

func parseBool(value string, defaultVal bool) bool {
	value = strings.TrimSpace(value)
	if value == "" {
		return defaultVal
	}
	if v, err := strconv.ParseBool(value); err == nil {
		return v
	}
	return defaultVal
}

func (c Config) Validate() error {
	if strings.TrimSpace(c.AccountsPath) == "" {
		return errors.New("accounts path is required")
	}
	if c.TimerSwitch {
		if _, err := parseClock(c.Timer); err != nil {
			return fmt.Errorf("invalid TIMER value %q: %w", c.Timer, err)
		}
	}
	if c.SendToTelegram && (c.TelegramToken == "" || c.TelegramChatID == "") {
		return errors.New("telegram reporting enabled but TELEGRAM_TOKEN or TELEGRAM_CHAT_ID missing")
	}
	if c.SendToDiscord && c.DiscordWebhookURL == "" {
		return errors.New("discord reporting enabled but DISCORD_WEBHOOK_URL missing")
	}
	return nil
}

func parseClock(value string) (struct{ Hour, Minute int }, error) {
	var out struct{ Hour, Minute int }
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) != 2 {
		return out, errors.New("expected HH:MM")
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil || h < 0 || h > 23 {
		return out, errors.New("hour out of range")
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil || m < 0 || m > 59 {
		return out, errors.New("minute out of range")
	}
	out.Hour, out.Minute = h, m
	return out, nil
}

// NextTimerStart returns the next wall-clock occurrence of the configured
// TIMER relative to now. A time earlier today rolls over to tomorrow.
func (c Config) NextTimerStart(now time.Time) (time.Time, error) {
	clock, err := parseClock(c.Timer)
	if err != nil {
		return time.Time{}, err
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), clock.Hour, clock.Minute, 0, 0, now.Location())
	if !start.After(now) {
		start = start.Add(24 * time.Hour)
	}
	return start, nil
}

// Toggles projects the per-activity switches for the account model.
func (c Config) Toggles() model.Toggles {
	return model.Toggles{
		DailyQuests:     c.DailyQuests,
		PunchCards:      c.PunchCards,
		MoreActivities:  c.MoreActivities,
		MSNShoppingGame: c.MSNShoppingGame,
		PCSearch:        c.PCSearch,
		MobileSearch:    c.MobileSearch,
	}
}

// LoadAccounts reads the account collection. Both a bare list of
// "username:password" strings and a list of account objects are accepted.
func (c Config) LoadAccounts() ([]model.Account, error) {
	b, err := os.ReadFile(c.AccountsPath)
	if err != nil {
		return nil, err
	}

	var rawAccounts []string
	if err := json.Unmarshal(b, &rawAccounts); err == nil {
		accounts := make([]model.Account, 0, len(rawAccounts))
		for idx, entry := range rawAccounts {
			username, password, found := strings.Cut(strings.TrimSpace(entry), ":")
			if !found || username == "" || password == "" {
				return nil, fmt.Errorf("invalid account input: expected username:password at index %d", idx)
			}
			accounts = append(accounts, model.Account{Username: username, Password: password})
		}
		return accounts, nil
	}

	var accounts []model.Account
	if err := json.Unmarshal(b, &accounts); err != nil {
		return nil, fmt.Errorf("failed to unmarshal accounts: %w", err)
	}
	for idx, acc := range accounts {
		if strings.TrimSpace(acc.Username) == "" || acc.Password == "" {
			return nil, fmt.Errorf("invalid account input: missing credentials at index %d", idx)
		}
	}

	return accounts, nil
}
