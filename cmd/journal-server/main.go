// Command journal-server runs the journaling AI backend.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/GHR600/App-Project-sub003/internal/app"
	"github.com/GHR600/App-Project-sub003/internal/config"
	log "github.com/sirupsen/logrus"
)

func main() {
	settingsPath := flag.String("settings", "settings.yaml", "path to the optional YAML settings file")
	flag.Parse()

	cfg, errLoad := config.Load(*settingsPath)
	if errLoad != nil {
		log.WithError(errLoad).Fatal("load configuration")
	}

	application, errNew := app.New(cfg)
	if errNew != nil {
		log.WithError(errNew).Fatal("initialize application")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if errRun := application.Run(ctx); errRun != nil {
		log.WithError(errRun).Fatal("server exited")
	}
}
