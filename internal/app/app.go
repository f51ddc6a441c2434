package app

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/browser"
	apihttp "github.com/mrfarmer/rewards-farmer-bot/internal/adapters/http"
	"github.com/mrfarmer/rewards-farmer-bot/internal/adapters/words"
	"github.com/mrfarmer/rewards-farmer-bot/internal/app/farmer"
	"github.com/mrfarmer/rewards-farmer-bot/internal/config"
	"github.com/mrfarmer/rewards-farmer-bot/internal/platform/logger"
	"github.com/mrfarmer/rewards-farmer-bot/internal/storage/farmlog"
)

type App struct{ cfg config.Config }

func New(cfg config.Config) *App { return &App{cfg: cfg} }

// Run assembles the farmer from configuration and farms every account once.
// SIGINT and SIGTERM request a graceful stop at the next stage boundary.
func (app *App) Run() error {
	accounts, err := app.cfg.LoadAccounts()
	if err != nil {
		return err
	}

	store, err := farmlog.NewStore(app.cfg.LogDBPath)
	if err != nil {
		return err
	}
	defer store.Close()

	if app.cfg.SaveErrors {
		logger.EnableErrorDumps("logs/errors.txt")
	}

	client, err := apihttp.NewAPIClient("")
	if err != nil {
		return err
	}
	wordSource := words.NewSource(app.cfg.WordsPath, client)
	driver := browser.NewChromeDriver()

	f := farmer.New(app.cfg, driver, store, wordSource, accounts)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigCh)
	go func() {
		<-sigCh
		f.Stop()
		cancel()
	}()

	return f.Run(ctx)
}
