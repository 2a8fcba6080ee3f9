package main

import (
	"os"

	"careertrack.dev/careertrack-go/app/utils/logger"
	"careertrack.dev/careertrack-go/internal/mockapi"
)

// mockapi serves an in-memory CareerTrack backend for local development of
// the SDK and CLI. State is lost on exit.
func main() {
	log := logger.GetLogger()

	srv := mockapi.New()
	srv.AddUser("dev@careertrack.local", "devpassword")

	addr := os.Getenv("MOCKAPI_ADDR")
	if addr == "" {
		addr = ":8081"
	}
	log.Infof("mockapi listening on %s (user dev@careertrack.local / devpassword)", addr)
	if err := srv.Run(addr); err != nil {
		log.Fatalf("mockapi: %v", err)
	}
}
