package main

import (
	"log"

	"github.com/m3rciful/cbrbot/bots/cbr/app"
	botconfig "github.com/m3rciful/cbrbot/bots/cbr/config"
	corecmd "github.com/m3rciful/cbrbot/core/cmd"
)

func main() {
	err := corecmd.Run(corecmd.Options{
		DefaultConfigPath: "config.yaml",
		LoadConfig: func(path string) (corecmd.ConfigCarrier, error) {
			return botconfig.Load(path)
		},
		Bootstrap: func(cfg corecmd.ConfigCarrier) (corecmd.TelegramApp, error) {
			return app.Bootstrap(cfg.(*botconfig.Config))
		},
	})
	if err != nil {
		log.Fatalf("cbrbot: %v", err)
	}
}
