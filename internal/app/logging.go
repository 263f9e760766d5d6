package app

import (
	"io"
	"os"

	"github.com/GHR600/App-Project-sub003/internal/config"
	log "github.com/sirupsen/logrus"
	"gopkg.in/natefinch/lumberjack.v2"
)

// setupLogging configures logrus output, format, and level. When a log file
// is configured, output goes to stdout and a rotating file.
func setupLogging(cfg *config.Config) {
	level, errParse := log.ParseLevel(cfg.LogLevel)
	if errParse != nil {
		level = log.InfoLevel
	}
	log.SetLevel(level)

	if cfg.IsDevelopment() {
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	} else {
		log.SetFormatter(&log.JSONFormatter{})
	}

	if cfg.LogFile != "" {
		rotating := &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    50, // megabytes
			MaxBackups: 5,
			MaxAge:     30, // days
			Compress:   true,
		}
		log.SetOutput(io.MultiWriter(os.Stdout, rotating))
	}
}
