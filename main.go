package main

import (
	"github.com/speedgrapplers/gameserver/config"
	"github.com/speedgrapplers/gameserver/logger"
	"github.com/speedgrapplers/gameserver/monitor"
	"github.com/speedgrapplers/gameserver/server"
)

func main() {
	cfg, err := config.LoadConfig(".")
	if err != nil {
		panic("failed to load configuration: " + err.Error())
	}

	logger.Init(cfg.Server.LogFile)
	defer logger.Sync()

	mon := monitor.NewMonitor("speedgrapplers")

	gameServer := server.NewGameServer(cfg, mon)

	logger.Log.Infof("Starting game server on %s", cfg.Server.HTTPAddress)
	if err := gameServer.Start(); err != nil {
		logger.Log.Fatalf("Failed to start server: %v", err)
	}
}
