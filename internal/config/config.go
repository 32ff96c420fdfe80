package config

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Mode             string        `mapstructure:"mode"`
	Port             int           `mapstructure:"port"`
	Secret           string        `mapstructure:"secret"`
	RoomCapacity     int           `mapstructure:"room_capacity"`
	OllamaHost       string        `mapstructure:"ollama_host"`
	OllamaModel      string        `mapstructure:"ollama_model"`
	TranslateTimeout time.Duration `mapstructure:"translate_timeout"`
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigType("yaml")

	env := os.Getenv("CONFIG_ENV")
	if env == "" {
		env = "dev"
	}
	fileName := fmt.Sprintf("config/config.%s.yaml", env)

	v.SetConfigFile(fileName)
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetDefault("mode", "release")
	v.SetDefault("port", 5004)
	v.SetDefault("room_capacity", 2)
	v.SetDefault("ollama_host", "http://localhost:11434")
	v.SetDefault("ollama_model", "llama3.2")
	v.SetDefault("translate_timeout", "60s")

	_ = v.BindEnv("ollama_host", "OLLAMA_HOST")
	_ = v.BindEnv("ollama_model", "OLLAMA_MODEL")
	_ = v.BindEnv("port", "PORT")
	v.AutomaticEnv()

	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("⚠️ Config file not found (%s), using defaults\n", fileName)
	} else {
		fmt.Printf("✅ Loaded config: %s\n", fileName)
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	fmt.Printf("🧩 Mode: %s | Port: %d | Model: %s\n", cfg.Mode, cfg.Port, cfg.OllamaModel)
	return &cfg, nil
}
