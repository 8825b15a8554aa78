package main

import (
	"log"

	"medscribe/internal/api"
	"medscribe/internal/config"
	"medscribe/session"
)

func main() {
	cfg := config.Load()

	sessionMgr, err := session.NewManager(cfg.DataDir)
	if err != nil {
		log.Fatalf("Failed to create session manager: %v", err)
	}

	server := api.NewServer(cfg, sessionMgr)
	server.Start()
}
