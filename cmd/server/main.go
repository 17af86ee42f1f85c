package main

import (
	"log"
	"os"

	approuters "chatline/internal/app_routers"
	"chatline/internal/configuration"
)

func main() {
	configPath := os.Getenv("CHATLINE_CONFIG")
	if configPath == "" {
		configPath = "config.json"
	}

	container, err := configuration.BuildContainer(configPath)
	if err != nil {
		log.Fatalf("Failed to build container: %v", err)
	}

	// Ensure cleanup on shutdown
	defer container.Close()

	approuters.StartServer(container)
}
