// Command patternctl runs the sentiment pattern detector over JSON files
// without a database, for backtesting and ad-hoc inspection.
package main

import (
	"os"

	"sentiment-pattern-bot/pkg/logger"
)

func main() {
	_ = logger.Init(os.Getenv("LOG_LEVEL"), os.Getenv("APP_ENV"))
	defer logger.Sync()

	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
