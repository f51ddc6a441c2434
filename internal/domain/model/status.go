package model

// Status is the closed set of per-account outcomes written to the farm log.
// The string codes are the persisted representation and are shown verbatim in
// the account list and the daily report.
type Status string

const (
	StatusNotFarmed         Status = "Not farmed"
	StatusFarmed            Status = "Farmed"
	StatusLocked            Status = "Your account has been locked"
	StatusSuspended         Status = "Your account has been suspended"
	StatusUnusualActivity   Status = "Unusual activity detected"
	StatusError             Status = "Unknown error"
	StatusPCLoginFailed     Status = "PC login failed"
	StatusMobileLoginFailed Status = "Mobile login failed"
	StatusSearchWordsError  Status = "Couldn't get search words"
	StatusProxyDead         Status = "Proxy is dead"
)

// IsTerminalError reports whether the status marks the account as failed for
// the day. NOT_FARMED and FARMED are the two steady states; everything else
// means the account is not retried within the same run.
func (s Status) IsTerminalError() bool {
	switch s {
	case StatusLocked, StatusSuspended, StatusUnusualActivity, StatusError,
		StatusPCLoginFailed, StatusMobileLoginFailed, StatusSearchWordsError,
		StatusProxyDead:
		return true
	}
	return false
}

// ParseStatus maps a persisted status string back to the enum. Unknown values
// collapse to StatusNotFarmed so a hand-edited log never wedges an account.
func ParseStatus(raw string) Status {
	switch Status(raw) {
	case StatusFarmed, StatusLocked, StatusSuspended, StatusUnusualActivity,
		StatusError, StatusPCLoginFailed, StatusMobileLoginFailed,
		StatusSearchWordsError, StatusProxyDead:
		return Status(raw)
	}
	return StatusNotFarmed
}
