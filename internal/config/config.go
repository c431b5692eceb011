package config

import (
	"errors"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is prepended to every environment variable name (ITEMCONSOLE_API_URL, ...).
const Prefix = "ITEMCONSOLE"

// DefaultAPIURL is where the console expects the items service unless told otherwise.
const DefaultAPIURL = "http://localhost:8000"

type Config struct {
	APIURL string `envconfig:"API_URL" default:"http://localhost:8000"`
	// Origin is sent as the Origin header on every request (empty disables it).
	Origin  string        `envconfig:"ORIGIN" default:"http://localhost:5500"`
	Timeout time.Duration `envconfig:"TIMEOUT" default:"0s"`

	Format string `envconfig:"FORMAT" default:"table"`

	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`

	// Development items service.
	ServeAddr      string `envconfig:"SERVE_ADDR" default:"127.0.0.1:8000"`
	ServeDB        string `envconfig:"SERVE_DB" default:"./sqlite.db"`
	FrontendOrigin string `envconfig:"FRONTEND_ORIGIN" default:"http://localhost:5500"`
}

// Load reads an optional .env file and then the environment.
//
// A missing .env is not an error; a malformed one is.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, err
	}
	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}
