package main

import (
	"log"

	"github.com/MrSnakeDoc/bookmarker/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ bookmarker failed to start: %v", err)
	}
}
