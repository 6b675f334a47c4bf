// Package main is the bot entry point. It loads the configuration,
// assembles the application, and runs until a stop signal or the admin
// pineapple command.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	log "github.com/sirupsen/logrus"

	"github.com/Lesamuen/Meridia2/internal/app"
	"github.com/Lesamuen/Meridia2/internal/config"
)

func main() {
	setupLogging()

	log.Info("=== Meridia's Beacon starting ===")

	cfg, err := config.Load()
	if err != nil {
		log.WithError(err).Fatal("configuration failed to load")
	}

	if level, err := log.ParseLevel(cfg.AppLogLevel); err == nil {
		log.SetLevel(level)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// One stop channel serves both OS signals and the pineapple command.
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	requestStop := func() { quit <- syscall.SIGTERM }

	application, err := app.New(ctx, cfg, requestStop)
	if err != nil {
		log.WithError(err).Fatal("application failed to initialize")
	}

	application.Scheduler.Start(ctx)

	if err := application.Bot.Start(); err != nil {
		log.WithError(err).Fatal("gateway connection failed")
	}

	log.Info("=== Meridia's Beacon ready ===")

	sig := <-quit
	log.Infof("received %s, shutting down...", sig)

	cancel()
	application.Close()

	log.Info("=== Meridia's Beacon stopped ===")
}

// setupLogging configures the log format before anything else runs.
func setupLogging() {
	log.SetFormatter(&log.TextFormatter{
		FullTimestamp:   true,
		TimestampFormat: "2006-01-02 15:04:05",
	})
	log.SetOutput(os.Stdout)
	log.SetLevel(log.DebugLevel)
}
