package main

import (
	"log"

	"github.com/joho/godotenv"

	"github.com/aussiebroadwan/examprep/internal/devapi"
)

func main() {
	// A missing .env file is fine; the environment may already be set.
	_ = godotenv.Load()

	application, err := devapi.NewApplication(devapi.LoadConfig())
	if err != nil {
		log.Fatalf("failed to initialize devapi: %v", err)
	}

	if err := application.Run(); err != nil {
		log.Fatalf("devapi error: %v", err)
	}
}
