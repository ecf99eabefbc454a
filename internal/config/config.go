package config

import (
	_ "embed"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/kozaktomas/face-attendance/internal/constants"
	"gopkg.in/yaml.v3"
)

//go:embed session.yaml
var sessionYAML []byte

type Config struct {
	Web       WebConfig
	Database  DatabaseConfig
	MariaDB   MariaDBConfig
	Embedding EmbeddingConfig
	Device    DeviceConfig
	Session   SessionConfig
	Log       LogConfig
}

type WebConfig struct {
	Host           string   // defaults to 0.0.0.0
	Port           int      // defaults to 8080
	AllowedOrigins []string // extra CORS origins, localhost is always allowed

	// ScreenIdleTimeout closes screens nobody has touched or streamed for this long
	ScreenIdleTimeout time.Duration
}

type DatabaseConfig struct {
	URL          string // PostgreSQL connection URL
	MaxOpenConns int    // Maximum open connections (default 25)
	MaxIdleConns int    // Maximum idle connections (default 5)
	UseHNSW      bool   // serve nearest-profile lookups from the in-memory HNSW index
}

type MariaDBConfig struct {
	DSN string // e.g. attendance:attendance@tcp(mariadb:3306)/attendance?parseTime=true
}

type EmbeddingConfig struct {
	URL               string  // face embedding server; empty selects the simulated recognition backend
	DistanceThreshold float64 // maximum cosine distance accepted as a match
}

type DeviceConfig struct {
	Width      int
	Height     int
	ScanWidth  int // ideal width requested by scan screens
	ScanHeight int
	FacingMode string // "user" or "environment"
}

// SessionConfig holds the timing contract of both capture controllers plus the
// department list and processing messages loaded from session.yaml.
type SessionConfig struct {
	Departments        []string `yaml:"departments"`
	ProcessingMessages []string `yaml:"processing_messages"`

	CountdownSeconds   int           `yaml:"-"`
	CountdownInterval  time.Duration `yaml:"-"`
	RecordingDuration  time.Duration `yaml:"-"`
	RecordingTick      time.Duration `yaml:"-"`
	ProcessingInterval time.Duration `yaml:"-"`
	DetectionDelay     time.Duration `yaml:"-"`
	VerificationDelay  time.Duration `yaml:"-"`
}

type LogConfig struct {
	Level string // debug, info, warn, error (default: info)
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envMillis reads a positive millisecond count from the environment.
func envMillis(key string, defaultVal time.Duration) time.Duration {
	return time.Duration(envInt(key, int(defaultVal/time.Millisecond))) * time.Millisecond
}

// envFloat reads an environment variable as a float in (0, 2].
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 && f <= 2 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if s := os.Getenv(key); s != "" {
		return s
	}
	return defaultVal
}

// envList splits a comma-separated environment variable.
func envList(key string) []string {
	var out []string
	for item := range strings.SplitSeq(os.Getenv(key), ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

func loadSession() SessionConfig {
	var session SessionConfig
	if err := yaml.Unmarshal(sessionYAML, &session); err != nil {
		// This is an embedded file so this error should never happen in practice
		panic("failed to unmarshal embedded session.yaml: " + err.Error())
	}

	session.CountdownSeconds = envInt("COUNTDOWN_SECONDS", constants.CountdownSeconds)
	session.CountdownInterval = envMillis("COUNTDOWN_INTERVAL_MS", constants.CountdownInterval)
	session.RecordingDuration = envMillis("RECORDING_DURATION_MS", constants.RecordingDuration)
	session.RecordingTick = envMillis("RECORDING_TICK_MS", constants.RecordingTick)
	session.ProcessingInterval = envMillis("PROCESSING_INTERVAL_MS", constants.ProcessingStepInterval)
	session.DetectionDelay = envMillis("DETECTION_DELAY_MS", constants.DetectionDelay)
	session.VerificationDelay = envMillis("VERIFICATION_DELAY_MS", constants.VerificationDelay)
	return session
}

func Load() *Config {
	return &Config{
		Web: WebConfig{
			Host:              envString("WEB_HOST", "0.0.0.0"),
			Port:              envInt("WEB_PORT", 8080),
			AllowedOrigins:    envList("WEB_ALLOWED_ORIGINS"),
			ScreenIdleTimeout: envMillis("SCREEN_IDLE_TIMEOUT_MS", constants.ScreenIdleTimeout),
		},
		Database: DatabaseConfig{
			URL:          os.Getenv("DATABASE_URL"),
			MaxOpenConns: envInt("DATABASE_MAX_OPEN_CONNS", 25),
			MaxIdleConns: envInt("DATABASE_MAX_IDLE_CONNS", 5),
			UseHNSW:      os.Getenv("HNSW_ENABLED") != "false",
		},
		MariaDB: MariaDBConfig{
			DSN: os.Getenv("MARIADB_DSN"),
		},
		Embedding: EmbeddingConfig{
			URL:               os.Getenv("EMBEDDING_URL"),
			DistanceThreshold: envFloat("MATCH_DISTANCE_THRESHOLD", constants.DefaultDistanceThreshold),
		},
		Device: DeviceConfig{
			Width:      envInt("DEVICE_WIDTH", constants.DefaultFrameWidth),
			Height:     envInt("DEVICE_HEIGHT", constants.DefaultFrameHeight),
			ScanWidth:  envInt("DEVICE_SCAN_WIDTH", constants.ScanFrameWidth),
			ScanHeight: envInt("DEVICE_SCAN_HEIGHT", constants.ScanFrameHeight),
			FacingMode: envString("DEVICE_FACING_MODE", "user"),
		},
		Session: loadSession(),
		Log: LogConfig{
			Level: os.Getenv("LOG_LEVEL"),
		},
	}
}
