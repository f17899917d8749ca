package main

import (
	"os"

	"github.com/joho/godotenv"

	"github.com/mnemod/mnemod/internal/cli"
)

func main() {
	// A local .env is a convenience for development; absence is fine.
	_ = godotenv.Load()

	if err := cli.RootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
