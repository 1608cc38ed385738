package config

import (
	"errors"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server ServerConfig `mapstructure:"server"`
	Game   GameConfig   `mapstructure:"game"`
}

type ServerConfig struct {
	HTTPAddress    string `mapstructure:"http_address"`
	RPCAddress     string `mapstructure:"rpc_address"`
	MetricsAddress string `mapstructure:"metrics_address"`
	// PublicURL is the externally reachable base URL, used for join QR codes.
	PublicURL string `mapstructure:"public_url"`
	LogFile   string `mapstructure:"log_file"`
}

type GameConfig struct {
	// RoomTTL is how long an empty room survives before it is reaped.
	RoomTTL      time.Duration `mapstructure:"room_ttl"`
	ReapInterval time.Duration `mapstructure:"reap_interval"`
	// MaxPlayers caps controllers per room; 0 means unlimited.
	MaxPlayers int    `mapstructure:"max_players"`
	LevelFile  string `mapstructure:"level_file"`
}

// LoadConfig reads config.yaml from path, with env overrides. A missing file
// is fine; defaults cover everything.
func LoadConfig(path string) (*Config, error) {
	viper.AddConfigPath(path)
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	viper.SetDefault("server.http_address", ":4000")
	viper.SetDefault("server.rpc_address", ":4001")
	viper.SetDefault("server.metrics_address", ":9100")
	viper.SetDefault("server.public_url", "http://localhost:4000")
	viper.SetDefault("server.log_file", "gameserver.log")
	viper.SetDefault("game.room_ttl", 5*time.Minute)
	viper.SetDefault("game.reap_interval", 30*time.Second)
	viper.SetDefault("game.max_players", 8)
	viper.SetDefault("game.level_file", "")

	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, err
		}
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
