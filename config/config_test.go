package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestLoadConfig_FileOverridesDefaults(t *testing.T) {
	dir := t.TempDir()
	yaml := []byte("server:\n  http_address: \":5000\"\ngame:\n  max_players: 4\n  room_ttl: 90s\n")
	if err := os.WriteFile(filepath.Join(dir, "config.yaml"), yaml, 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := LoadConfig(dir)
	if err != nil {
		t.Fatalf("load failed: %v", err)
	}

	if cfg.Server.HTTPAddress != ":5000" {
		t.Errorf("http_address = %q, want the file value", cfg.Server.HTTPAddress)
	}
	if cfg.Game.MaxPlayers != 4 {
		t.Errorf("max_players = %d, want 4", cfg.Game.MaxPlayers)
	}
	if cfg.Game.RoomTTL != 90*time.Second {
		t.Errorf("room_ttl = %v, want 90s", cfg.Game.RoomTTL)
	}

	// Keys the file does not set keep their defaults.
	if cfg.Server.RPCAddress != ":4001" {
		t.Errorf("rpc_address = %q, want the default", cfg.Server.RPCAddress)
	}
	if cfg.Game.ReapInterval != 30*time.Second {
		t.Errorf("reap_interval = %v, want the default", cfg.Game.ReapInterval)
	}
}
