package model

import "time"

const dateLayout = "2006-01-02"

// FarmLog is the durable per-account record. It is the single source of truth
// for what an account has already done today; the run controller rewrites it
// after every stage transition.
type FarmLog struct {
	LastCheck      string
	Status         Status
	TodayPoints    int
	TotalPoints    int
	Daily          bool
	PunchCards     bool
	MorePromotions bool
	ShoppingGame   bool
	PCSearches     bool
	MobileSearches bool
}

// Account is one farmable identity plus its persisted log and the transient
// state accumulated during a run.
type Account struct {
	Username        string `json:"username"`
	Password        string `json:"password"`
	Proxy           string `json:"proxy,omitempty"`
	PCUserAgent     string `json:"pc_user_agent,omitempty"`
	MobileUserAgent string `json:"mobile_user_agent,omitempty"`

	Log FarmLog `json:"-"`

	// Run-scoped state, never persisted.
	RedeemGoalTitle         string `json:"-"`
	RedeemGoalPrice         int    `json:"-"`
	PCRemainingSearches     int    `json:"-"`
	MobileRemainingSearches int    `json:"-"`
	PointsCounter           int    `json:"-"`
	StartingPoints          int    `json:"-"`
	PointsNA                bool   `json:"-"`
	Section                 string `json:"-"`
	Detail                  string `json:"-"`
}

// ResetRunState puts the transient counters back to their "not read yet"
// sentinels before an account is processed.
func (a *Account) ResetRunState() {
	a.RedeemGoalTitle = ""
	a.RedeemGoalPrice = -1
	a.PCRemainingSearches = -1
	a.MobileRemainingSearches = -1
	a.PointsCounter = -1
	a.StartingPoints = -1
	a.PointsNA = false
	a.Section = "-"
	a.Detail = "-"
}

// CorrectLog clears every completion flag and resets status for a fresh day.
// Calling it twice is the same as calling it once.
func (a *Account) CorrectLog() {
	a.Log.Status = StatusNotFarmed
	a.Log.Daily = false
	a.Log.PunchCards = false
	a.Log.MorePromotions = false
	a.Log.ShoppingGame = false
	a.Log.PCSearches = false
	a.Log.MobileSearches = false
}

// WasFinished reports whether the account is done for the day: farmed with a
// last-check stamp of today.
func (a *Account) WasFinished(today time.Time) bool {
	return a.Log.Status == StatusFarmed && a.Log.LastCheck == today.Format(dateLayout)
}

func (a *Account) WasSuspended() bool { return a.Log.Status == StatusSuspended }
func (a *Account) WasLocked() bool    { return a.Log.Status == StatusLocked }

func (a *Account) GotUnusualActivity() bool { return a.Log.Status == StatusUnusualActivity }

// RanIntoError reports failures other than locked/suspended, mirroring the
// grouping used by the daily report.
func (a *Account) RanIntoError() bool {
	switch a.Log.Status {
	case StatusError, StatusPCLoginFailed, StatusMobileLoginFailed,
		StatusSearchWordsError, StatusProxyDead:
		return true
	}
	return false
}

// Toggles is the subset of configuration the account model needs to decide
// which stages still apply.
type Toggles struct {
	DailyQuests     bool
	PunchCards      bool
	MoreActivities  bool
	MSNShoppingGame bool
	PCSearch        bool
	MobileSearch    bool
}

// NeedFarm reports whether any enabled activity family is still incomplete.
func (a *Account) NeedFarm(t Toggles) bool {
	return a.NeedPC(t) || a.NeedMobile(t)
}

// NeedPC reports whether a desktop browser session is required.
func (a *Account) NeedPC(t Toggles) bool {
	switch {
	case t.DailyQuests && !a.Log.Daily:
		return true
	case t.PunchCards && !a.Log.PunchCards:
		return true
	case t.MoreActivities && !a.Log.MorePromotions:
		return true
	case t.MSNShoppingGame && !a.Log.ShoppingGame:
		return true
	case t.PCSearch && !a.Log.PCSearches:
		return true
	}
	return false
}

// NeedMobile reports whether a mobile browser session is required. A remaining
// count of -1 means "not read yet" and counts as needed.
func (a *Account) NeedMobile(t Toggles) bool {
	return t.MobileSearch && !a.Log.MobileSearches &&
		(a.MobileRemainingSearches > 0 || a.MobileRemainingSearches == -1)
}

// Finish seals the account for the day: earned points are the counter delta
// from the start of the run, and the completion flags are cleared so tomorrow
// starts fresh.
func (a *Account) Finish() {
	if a.StartingPoints != -1 && a.PointsCounter != -1 {
		a.Log.TodayPoints = a.PointsCounter - a.StartingPoints
		a.Log.TotalPoints = a.PointsCounter
	}
	a.Log.Status = StatusFarmed
	a.Log.Daily = false
	a.Log.PunchCards = false
	a.Log.MorePromotions = false
	a.Log.ShoppingGame = false
	a.Log.PCSearches = false
	a.Log.MobileSearches = false
}

// UserAgent picks the per-account override when present, else the global one.
func (a *Account) UserAgent(mobile bool, pcDefault, mobileDefault string) string {
	if mobile {
		if a.MobileUserAgent != "" {
			return a.MobileUserAgent
		}
		return mobileDefault
	}
	if a.PCUserAgent != "" {
		return a.PCUserAgent
	}
	return pcDefault
}

// ReadyForRedeem reports whether the tracked total reached the redeem goal
// read from the dashboard.
func (a *Account) ReadyForRedeem() bool {
	return a.RedeemGoalTitle != "" && a.RedeemGoalPrice > 0 &&
		a.Log.TotalPoints >= a.RedeemGoalPrice
}
