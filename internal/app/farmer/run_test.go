package farmer

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/browser"
	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/words"
	"github.com/mrfarmer/rewards-farmer-bot/internal/config"
	"github.com/mrfarmer/rewards-farmer-bot/internal/domain/model"
	"github.com/mrfarmer/rewards-farmer-bot/internal/storage/farmlog"
)

// failingDriver refuses every open with a fixed error, standing in for the
// earliest failure a surface can hit.
type failingDriver struct{ err error }

func (d *failingDriver) Open(context.Context, browser.OpenOptions) (browser.Session, error) {
	return nil, d.err
}

func newTestFarmer(t *testing.T, driverErr error, accounts []model.Account) *Farmer {
	t.Helper()
	store, err := farmlog.NewStore(filepath.Join(t.TempDir(), "farm.db"))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	cfg := config.Config{
		Speed:       config.SpeedNormal,
		DailyQuests: true,
		PCSearch:    true,
	}
	return New(cfg, &failingDriver{err: driverErr}, store, words.NewSource("", nil), accounts)
}

// sequenceDriver fails each open with the next scripted error.
type sequenceDriver struct {
	errs  []error
	opens int
}

func (d *sequenceDriver) Open(context.Context, browser.OpenOptions) (browser.Session, error) {
	err := d.errs[d.opens%len(d.errs)]
	d.opens++
	return nil, err
}

func TestElementTimeoutRetriesWithoutStatusChange(t *testing.T) {
	accounts := []model.Account{{Username: "flaky@example.com", Password: "x"}}
	f := newTestFarmer(t, nil, accounts)

	driver := &sequenceDriver{errs: []error{
		fmt.Errorf("wait for #app-host: %w", browser.ErrElementTimeout),
		ErrAccountLocked,
	}}
	f.driver = driver
	f.online = func() bool { return true }

	require.NoError(t, f.Run(context.Background()))

	assert.Equal(t, 2, driver.opens, "the element timeout retries the same account")
	assert.Equal(t, model.StatusLocked, f.Accounts()[0].Log.Status,
		"the timeout itself never becomes a persisted status")
}

func TestRunAbortsOnUnusualActivity(t *testing.T) {
	accounts := []model.Account{
		{Username: "first@example.com", Password: "x"},
		{Username: "second@example.com", Password: "x"},
	}
	f := newTestFarmer(t, ErrUnusualActivity, accounts)

	require.NoError(t, f.Run(context.Background()))

	got := f.Accounts()
	assert.Equal(t, model.StatusUnusualActivity, got[0].Log.Status)
	assert.Equal(t, model.StatusNotFarmed, got[1].Log.Status, "the run stops before the second account")
}

func TestRunContinuesPastDeadProxy(t *testing.T) {
	accounts := []model.Account{
		{Username: "first@example.com", Password: "x"},
		{Username: "second@example.com", Password: "x"},
	}
	f := newTestFarmer(t, browser.ErrProxyDead, accounts)

	require.NoError(t, f.Run(context.Background()))

	got := f.Accounts()
	assert.Equal(t, model.StatusProxyDead, got[0].Log.Status)
	assert.Equal(t, model.StatusProxyDead, got[1].Log.Status, "a per-account failure does not stop the run")
}

func TestRunAbortsOnBrowserSetupFailure(t *testing.T) {
	accounts := []model.Account{
		{Username: "first@example.com", Password: "x"},
		{Username: "second@example.com", Password: "x"},
	}
	f := newTestFarmer(t, &browser.SetupError{Err: errors.New("chrome not found")}, accounts)

	require.NoError(t, f.Run(context.Background()))

	got := f.Accounts()
	assert.Equal(t, model.StatusNotFarmed, got[0].Log.Status, "operator errors leave the account untouched")
	assert.Equal(t, model.StatusNotFarmed, got[1].Log.Status)
}

func TestRunSkipsFinishedAccounts(t *testing.T) {
	today := time.Now().Format("2006-01-02")
	accounts := []model.Account{{
		Username: "done@example.com",
		Password: "x",
		Log:      model.FarmLog{Status: model.StatusFarmed, LastCheck: today, TotalPoints: 500},
	}}
	f := newTestFarmer(t, errors.New("must never be opened"), accounts)

	// Seed the store so PrepareLogs sees today's finished state.
	require.NoError(t, f.store.Save(accounts[0].Username, accounts[0].Log))

	require.NoError(t, f.Run(context.Background()))

	got := f.Accounts()
	assert.Equal(t, model.StatusFarmed, got[0].Log.Status)
	assert.Equal(t, 500, got[0].Log.TotalPoints)
}

func TestStopHaltsBeforeFarming(t *testing.T) {
	accounts := []model.Account{{Username: "a@example.com", Password: "x"}}
	f := newTestFarmer(t, errors.New("must never be opened"), accounts)
	f.Stop()

	require.NoError(t, f.Run(context.Background()))
	assert.Equal(t, model.StatusNotFarmed, f.Accounts()[0].Log.Status)
}

func TestFailureStatePersists(t *testing.T) {
	accounts := []model.Account{{Username: "sus@example.com", Password: "x"}}
	f := newTestFarmer(t, ErrAccountSuspended, accounts)

	require.NoError(t, f.Run(context.Background()))

	assert.Equal(t, model.StatusSuspended, f.Accounts()[0].Log.Status)
	assert.True(t, f.Accounts()[0].PointsNA)

	stored, err := f.store.Load("sus@example.com", time.Now())
	require.NoError(t, err)
	assert.Equal(t, model.StatusSuspended, stored.Status)
}
