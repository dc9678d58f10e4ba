package logging

import (
	"fmt"
	"os"

	"spellbreak/config"

	log "github.com/sirupsen/logrus"
)

// Setup configures the standard logrus logger from cfg.
func Setup(cfg *config.LogConfig) error {
	level, err := log.ParseLevel(cfg.Level)
	if err != nil {
		return fmt.Errorf("invalid log level: %w", err)
	}
	log.SetLevel(level)
	log.SetOutput(os.Stdout)

	switch cfg.Format {
	case "json":
		log.SetFormatter(&log.JSONFormatter{})
	case "text", "":
		log.SetFormatter(&log.TextFormatter{FullTimestamp: true})
	default:
		return fmt.Errorf("unsupported log format %q", cfg.Format)
	}
	return nil
}
