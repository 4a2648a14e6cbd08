package main

import (
	"os"

	"github.com/harvestpath/harvestpath/internal/infrastructure/cli"
	"github.com/joho/godotenv"
)

func main() {
	// Provider keys may live in a local .env file.
	_ = godotenv.Load()

	if err := cli.Execute(); err != nil {
		os.Exit(1)
	}
}
