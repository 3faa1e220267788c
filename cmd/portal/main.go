package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/examprep/internal/portal/app"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	application, err := app.New(app.LoadConfig())
	if err != nil {
		log.Fatalf("failed to initialize portal: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("portal error: %v", err)
	}
}
