package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	ServerPort      string
	DatabaseDSN     string
	TemporalAddress string

	// Remote ticketing service and the OCR sidecar used for automatic
	// CAPTCHA recognition.
	RailBaseURL string
	OCRAddress  string

	// Account the runs book under.
	Username string
	Password string

	QueryInterval time.Duration
	CaptchaMode   string

	// Optional YAML file with booking defaults (route, date, passengers)
	// applied to run requests that leave those fields blank.
	BookingDefaultsFile string
}

// BookingDefaults mirrors the free-text configuration surface of a run. All
// fields are optional; request fields take precedence.
type BookingDefaults struct {
	Passengers    string `yaml:"passengers"`
	Seats         string `yaml:"seats"`
	TrainDate     string `yaml:"train_date"`
	From          string `yaml:"from"`
	To            string `yaml:"to"`
	IncludeTrains string `yaml:"include_trains"`
	ExcludeTrains string `yaml:"exclude_trains"`
}

func Load() *Config {
	return &Config{
		ServerPort:          getEnv("SERVER_PORT", "8080"),
		DatabaseDSN:         getEnv("DATABASE_DSN", "booking_user:booking_pass@tcp(localhost:3306)/train_booking?parseTime=true"),
		TemporalAddress:     getEnv("TEMPORAL_ADDRESS", "localhost:7233"),
		RailBaseURL:         getEnv("RAIL_BASE_URL", "https://dynamic.12306.cn/otsweb"),
		OCRAddress:          getEnv("OCR_ADDRESS", ""),
		Username:            getEnv("RAIL_USERNAME", ""),
		Password:            getEnv("RAIL_PASSWORD", ""),
		QueryInterval:       parseInterval(getEnv("QUERY_INTERVAL_MS", "1000")),
		CaptchaMode:         getEnv("CAPTCHA_MODE", "AUTO"),
		BookingDefaultsFile: getEnv("BOOKING_DEFAULTS_FILE", ""),
	}
}

// LoadBookingDefaults reads the optional booking-defaults YAML file. A
// missing path yields empty defaults.
func (c *Config) LoadBookingDefaults() (*BookingDefaults, error) {
	defaults := &BookingDefaults{}
	if c.BookingDefaultsFile == "" {
		return defaults, nil
	}
	data, err := os.ReadFile(c.BookingDefaultsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to read booking defaults: %w", err)
	}
	if err := yaml.Unmarshal(data, defaults); err != nil {
		return nil, fmt.Errorf("failed to parse booking defaults: %w", err)
	}
	return defaults, nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// parseInterval clamps the availability-query interval to the one-second
// floor the remote service tolerates.
func parseInterval(s string) time.Duration {
	ms, err := strconv.Atoi(s)
	if err != nil || ms < 1000 {
		ms = 1000
	}
	return time.Duration(ms) * time.Millisecond
}
