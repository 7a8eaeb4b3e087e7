package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds the daemon configuration, loaded from the environment.
type Config struct {
	SourceDir         string
	DestDir           string
	EncoderPath       string
	SourceFormats     []string
	DestFormat        string
	PreserveStructure bool

	DBPath        string
	HTTPPort      int
	DrainInterval time.Duration
	LogTailLimit  int

	WatchEnabled bool
	WatchSettle  time.Duration
}

// Load reads configuration from environment variables, applying defaults
// for anything unset. ENCODER_PATH left empty means "discover ffmpeg".
func Load() *Config {
	cfg := &Config{
		SourceDir:         getEnv("SOURCE_DIR", "/data/source"),
		DestDir:           getEnv("DEST_DIR", "/data/converted"),
		EncoderPath:       getEnv("ENCODER_PATH", ""),
		SourceFormats:     splitAndTrim(getEnv("SOURCE_FORMATS", ".mpg,.avi")),
		DestFormat:        getEnv("DEST_FORMAT", ".mp4"),
		PreserveStructure: getEnvBool("PRESERVE_STRUCTURE", true),
		DBPath:            getEnv("DB_PATH", "/data/vidbatch.db"),
		HTTPPort:          getEnvInt("HTTP_PORT", 8080),
		DrainInterval:     getEnvDuration("DRAIN_INTERVAL", 250*time.Millisecond),
		LogTailLimit:      getEnvInt("LOG_TAIL_LIMIT", 500),
		WatchEnabled:      getEnvBool("WATCH_ENABLED", false),
		WatchSettle:       getEnvDuration("WATCH_SETTLE_DELAY", 5*time.Second),
	}
	return cfg
}

func (c *Config) HTTPAddr() string { return fmt.Sprintf(":%d", c.HTTPPort) }

func splitAndTrim(s string) []string {
	if s == "" {
		return []string{}
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p != "" {
			out = append(out, p)
		}
	}
	return out
}

func getEnv(key, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func getEnvInt(key string, def int) int {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return i
}

func getEnvBool(key string, def bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getEnvDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return def
	}
	return d
}
