package ui

import (
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/pterm/pterm"

	"github.com/mrfarmer/rewards-farmer-bot/internal/domain/model"
)

var (
	multi    *pterm.MultiPrinter
	spinners = make(map[int]*pterm.SpinnerPrinter)
	mu       sync.Mutex
)

func StartUISystem() {
	m, _ := pterm.DefaultMultiPrinter.Start()
	multi = m
}

func StopUISystem() {
	if multi != nil {
		multi.Stop()
	}
}

// UpdateStatus repaints one account's panel. The account value is a snapshot;
// callers pass the live struct and we only read from it under the lock.
func UpdateStatus(accIdx int, acc model.Account, status string, remainingDelay time.Duration) {
	mu.Lock()
	defer mu.Unlock()
	updateStatusLocked(accIdx, acc, status, remainingDelay)
}

func updateStatusLocked(accIdx int, acc model.Account, status string, remainingDelay time.Duration) {
	proxy := acc.Proxy
	if proxy == "" {
		proxy = "-"
	}

	earned := "-"
	if acc.StartingPoints != -1 && acc.PointsCounter != -1 {
		earned = strconv.Itoa(acc.PointsCounter - acc.StartingPoints)
	}

	content := fmt.Sprintf(`
=============== Account %d ================
Username : %s
Proxy    : %s

Points   :
- Counter %s
- Earned  %s

Section  : %s
Detail   : %s

Status   : %s
Delay    : %s
===========================================`,
		accIdx+1,
		acc.Username,
		proxy,
		formatPoints(acc),
		earned,
		defaultString(acc.Section, "-"),
		defaultString(acc.Detail, "-"),
		status,
		FormatDelay(remainingDelay))

	if spinner, ok := spinners[accIdx]; ok {
		spinner.UpdateText(content)
	} else if multi != nil {
		spinner, _ := pterm.DefaultSpinner.
			WithWriter(multi.NewWriter()).
			WithRemoveWhenDone(false).
			Start(content)
		spinners[accIdx] = spinner
	}
}

func SetSpinnerSuccess(accIdx int, acc model.Account, finalMessage string) {
	mu.Lock()
	defer mu.Unlock()
	if spinner, ok := spinners[accIdx]; ok {
		updateStatusLocked(accIdx, acc, finalMessage, 0)
		spinner.Success()
	}
}

func SetSpinnerError(accIdx int, acc model.Account, finalMessage string) {
	mu.Lock()
	defer mu.Unlock()
	if spinner, ok := spinners[accIdx]; ok {
		updateStatusLocked(accIdx, acc, finalMessage, 0)
		spinner.Fail()
	}
}

func FormatDelay(d time.Duration) string {
	d = d.Round(time.Second)
	h := int(d.Hours())
	m := int(d.Minutes()) % 60
	s := int(d.Seconds()) % 60
	return fmt.Sprintf("%02d H %02d M %02d S", h, m, s)
}

func formatPoints(acc model.Account) string {
	if acc.PointsNA {
		return "N/A"
	}
	if acc.PointsCounter == -1 {
		return "-"
	}
	return strconv.Itoa(acc.PointsCounter)
}

func defaultString(val, fallback string) string {
	if strings.TrimSpace(val) == "" {
		return fallback
	}
	return val
}
