package app

import (
	"fmt"
	"os"

	"github.com/pelletier/go-toml/v2"

	"github.com/shrimpsizemoose/trekker/logger"
)

type Config struct {
	Server struct {
		Port string `toml:"port"`
	} `toml:"server"`

	Auth struct {
		RedisURL           string `toml:"redis_url"`
		TeacherCookie      string `toml:"teacher_cookie"`
		ScreenCookie       string `toml:"screen_cookie"`
		TeacherSessionDays int    `toml:"teacher_session_days"`
		ScreenSessionDays  int    `toml:"screen_session_days"`
	} `toml:"auth"`

	Database struct {
		DSN           string `toml:"dsn"`
		MigrationsDir string `toml:"migrations_dir"`
	} `toml:"database"`

	Uploads struct {
		ShortSide   int `toml:"short_side"`
		JPEGQuality int `toml:"jpeg_quality"`
	} `toml:"uploads"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	var config Config
	if err := toml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf(
			"error reading config file %s\n> Error: %w\n> Content:\n%s",
			path,
			err,
			string(data),
		)
	}

	if config.Server.Port == "" {
		return nil, fmt.Errorf("Server port is not specified in config, use a value like :9999")
	}

	if config.Auth.TeacherCookie == "" {
		config.Auth.TeacherCookie = "token"
	}
	if config.Auth.ScreenCookie == "" {
		config.Auth.ScreenCookie = "screen_token"
	}
	if config.Auth.TeacherSessionDays == 0 {
		config.Auth.TeacherSessionDays = 7
	}
	if config.Auth.ScreenSessionDays == 0 {
		config.Auth.ScreenSessionDays = 30
	}
	if config.Uploads.ShortSide == 0 {
		config.Uploads.ShortSide = 720
	}
	if config.Uploads.JPEGQuality == 0 {
		config.Uploads.JPEGQuality = 20
	}

	logger.Debug.Printf("Loaded uploads config: %+v", config.Uploads)

	return &config, nil
}
