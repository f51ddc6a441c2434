package main

import (
	"os"
	"time"

	"github.com/pterm/pterm"

	"github.com/mrfarmer/rewards-farmer-bot/internal/app"
	"github.com/mrfarmer/rewards-farmer-bot/internal/config"
	"github.com/mrfarmer/rewards-farmer-bot/internal/platform/logger"
	"github.com/mrfarmer/rewards-farmer-bot/internal/platform/ui"
)

func main() {
	_ = logger.Init("logs/app.log")
	defer logger.Close()

	ui.StartUISystem()
	defer ui.StopUISystem()

	cfg := config.Load()

	if err := cfg.Validate(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	if err := app.New(cfg).Run(); err != nil {
		pterm.Error.Println(err)
		os.Exit(1)
	}

	time.Sleep(1 * time.Second)
}
