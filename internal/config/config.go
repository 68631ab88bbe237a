package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"kahoot-course-creator/internal/domain"
)

var (
	ErrMissingCredentials = errors.New("config: missing env KAHOOT_USERNAME / KAHOOT_PASSWORD")
	ErrInvalidPayload     = errors.New("config: course payload must be a JSON object")
)

type Config struct {
	// Kahoot
	KahootBaseURL  string
	KahootUsername string
	KahootPassword string
	CoursePayload  domain.CoursePayload

	// Scheduling
	CronSchedule string
	CronTimezone string
	RunOnStart   bool

	// Health server
	Port int

	// Outbound HTTP
	HTTPTimeout time.Duration

	// Logging
	LogLevel  string
	LogFormat string

	// SFTP run report archive (optional)
	SFTPHost                  string
	SFTPPort                  int
	SFTPUser                  string
	SFTPPass                  string
	SFTPDir                   string
	SFTPInsecureIgnoreHostKey bool
	SFTPKnownHosts            string
}

// Credentials returns the login pair handed to the authenticator.
func (c Config) Credentials() domain.Credentials {
	return domain.Credentials{Username: c.KahootUsername, Password: c.KahootPassword}
}

// ArchiveEnabled reports whether run reports should be uploaded over SFTP.
func (c Config) ArchiveEnabled() bool {
	return c.SFTPHost != ""
}

// LoadDotEnv loads KEY=VALUE pairs from path into the process environment.
// Variables already set are left alone and a missing file is not an error.
func LoadDotEnv(path string) error {
	if path == "" {
		path = getenv("DOTENV_FILE", ".env")
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil
		}
		return fmt.Errorf("config: load %s: %w", path, err)
	}
	return nil
}

func Load() (Config, error) {
	payload, err := loadPayload(os.Getenv("COURSE_PAYLOAD"), os.Getenv("COURSE_PAYLOAD_FILE"))
	if err != nil {
		return Config{}, err
	}

	return Config{
		// Kahoot
		KahootBaseURL:  strings.TrimRight(getenv("KAHOOT_BASE_URL", "https://kahoot.it"), "/"),
		KahootUsername: os.Getenv("KAHOOT_USERNAME"),
		KahootPassword: os.Getenv("KAHOOT_PASSWORD"),
		CoursePayload:  payload,

		// Scheduling
		CronSchedule: getenv("CRON_SCHEDULE", "0 0 * * *"),
		CronTimezone: getenv("CRON_TIMEZONE", "Asia/Tokyo"),
		RunOnStart:   getenvBool("RUN_ON_START", false),

		// Health server
		Port: getenvInt("PORT", 3000),

		// Outbound HTTP
		HTTPTimeout: getenvDuration("HTTP_TIMEOUT", 2*time.Minute),

		// Logging
		LogLevel:  getenv("LOG_LEVEL", "info"),
		LogFormat: getenv("LOG_FORMAT", "text"),

		// SFTP
		SFTPHost:                  os.Getenv("SFTP_HOST"),
		SFTPPort:                  getenvInt("SFTP_PORT", 22),
		SFTPUser:                  os.Getenv("SFTP_USER"),
		SFTPPass:                  os.Getenv("SFTP_PASS"),
		SFTPDir:                   getenv("SFTP_DIR", "/inbound"),
		SFTPInsecureIgnoreHostKey: getenvBool("SFTP_INSECURE_IGNORE_HOSTKEY", true),
		SFTPKnownHosts:            os.Getenv("SFTP_KNOWN_HOSTS"),
	}, nil
}

// Validate checks the settings the daemon cannot start without.
func (c Config) Validate() error {
	if c.KahootUsername == "" || c.KahootPassword == "" {
		return ErrMissingCredentials
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("config: invalid PORT %d", c.Port)
	}
	if _, err := time.LoadLocation(c.CronTimezone); err != nil {
		return fmt.Errorf("config: invalid CRON_TIMEZONE %q: %w", c.CronTimezone, err)
	}
	return nil
}

// loadPayload prefers inline JSON over the file path; neither set yields "{}".
func loadPayload(inline, path string) (domain.CoursePayload, error) {
	raw := []byte(strings.TrimSpace(inline))
	if len(raw) == 0 && path != "" {
		b, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config: read COURSE_PAYLOAD_FILE: %w", err)
		}
		raw = []byte(strings.TrimSpace(string(b)))
	}
	if len(raw) == 0 {
		return domain.EmptyPayload(), nil
	}

	var obj map[string]json.RawMessage
	if err := json.Unmarshal(raw, &obj); err != nil || obj == nil {
		return nil, ErrInvalidPayload
	}
	return domain.CoursePayload(raw), nil
}

func getenv(k, def string) string {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	return v
}

func getenvInt(k string, def int) int {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func getenvBool(k string, def bool) bool {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def
	}
	return b
}

func getenvDuration(k string, def time.Duration) time.Duration {
	v := os.Getenv(k)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return def
	}
	return d
}
