package main

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/waybackdl/waybackdl/internal/config"
	"github.com/waybackdl/waybackdl/internal/tui"
)

func main() {
	_ = godotenv.Load()

	settings := config.DefaultSettings()
	settings.ApplyEnv()
	settings.Normalize()

	if err := tui.Run(settings); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}
