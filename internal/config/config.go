package config // package config loads application configuration from environment variables

import (
	"errors"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all runtime configuration values.  Each field corresponds to
// an environment variable or to a group of them.  Values are read once at
// startup and never change for the lifetime of the process.
type Config struct {
	Env     string // application environment (e.g. "dev", "prod")
	Port    string // HTTP port to listen on
	DBUser  string // database username
	DBPass  string // database password (optional)
	DBHost  string // database host address
	DBPort  string // database port number
	DBName  string // database name
	Display DisplayConfig
	Changes ChangesConfig
}

// Load reads the optional .env file and then the environment.  Missing
// backend credentials are a configuration error: the program logs it
// once and exits.
func Load() Config {
	LoadDotEnv()
	cfg, err := FromEnv()
	if err != nil {
		log.Fatalf("config: %v", err)
	}
	return cfg
}

// LoadDotEnv loads variables from a .env file in the working directory
// (or the file named by ENV_FILE).  Variables already set in the
// environment win.  A missing file is not an error.
func LoadDotEnv() {
	path := envStr("ENV_FILE", ".env")
	if err := godotenv.Load(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("config: could not read %s: %v", path, err)
	}
}

// FromEnv builds a server Config from the current environment.  It
// reports every missing required variable in a single error.
func FromEnv() (Config, error) { return fromEnv(true) }

// StationFromEnv is FromEnv for scan stations, which talk to the store
// directly and do not listen on a port.
func StationFromEnv() (Config, error) { return fromEnv(false) }

func fromEnv(server bool) (Config, error) {
	var missing []string
	must := func(key string) string {
		v, ok := os.LookupEnv(key)
		if !ok || strings.TrimSpace(v) == "" {
			missing = append(missing, key)
		}
		return v
	}
	cfg := Config{
		Env:     envStr("APP_ENV", "dev"),
		DBUser:  must("DB_USER"),
		DBPass:  os.Getenv("DB_PASS"), // empty allowed
		DBHost:  must("DB_HOST"),
		DBPort:  must("DB_PORT"),
		DBName:  must("DB_NAME"),
		Display: LoadDisplayConfig(),
		Changes: LoadChangesConfig(),
	}
	if server {
		cfg.Env = must("APP_ENV")
		cfg.Port = must("APP_PORT")
	}
	if len(missing) > 0 {
		return Config{}, fmt.Errorf("missing required env var(s): %s", strings.Join(missing, ", "))
	}
	return cfg, nil
}
