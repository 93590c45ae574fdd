package main

import (
	"context"
	"os"

	"github.com/charmbracelet/log"
	"github.com/joho/godotenv"
)

func main() {
	_ = godotenv.Load(".env")

	logger := log.NewWithOptions(os.Stderr, log.Options{
		ReportTimestamp: true,
		Prefix:          "meetctl",
	})

	runner := NewRunner(RunnerOpts{Logger: logger})
	defer runner.Close()

	if err := newApp(runner).Run(context.Background(), os.Args); err != nil {
		logger.Fatal("command failed", "err", err)
	}
}
