package config

import (
	"bufio"
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
)

// Config holds all application configuration values.
type Config struct {
	// Bus / interrupt wiring
	I2CBus    string
	IMUIntPin string

	// Acquisition
	// Warm-up window length for the gyro bias / accel scale estimate
	WarmupSamples int
	// Also track the per-axis bias standard deviation (diagnostic)
	GyroStdDev bool
	// MPU9250 output rate and filter configuration
	IMUSampleRateDiv byte
	IMUDLPFConfig    byte

	// Startup self-test retry budget
	SelfTestAttempts int
	SelfTestDelayMS  int

	// MQTT
	MQTTBroker          string
	MQTTClientIDAcq     string
	MQTTClientIDConsole string
	MQTTClientIDWeb     string
	MQTTClientIDDisplay string

	// Topics
	TopicGyro   string
	TopicAccel  string
	TopicMag    string
	TopicBaro   string
	TopicStatus string

	// Timing
	TelemetryInterval  int // milliseconds
	ConsoleLogInterval int // milliseconds

	// Web Server
	WebServerPort int

	// Display
	DisplayUpdateInterval int // milliseconds
}

// Package-level unexported variables for singleton pattern:
//   - globalConfig: unexported so other packages cannot access it directly.
//   - configOnce: ensures InitGlobal() only runs once, even if called multiple times.
//   - configMu: RWMutex protects concurrent access; write lock for initialization,
//     read lock for Get().
//
// External code must use InitGlobal() to set and Get() to read.
var (
	globalConfig *Config
	configOnce   sync.Once
	configMu     sync.RWMutex
)

// Load reads the configuration file and returns a Config struct.
func Load(configPath string) (*Config, error) {
	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	cfg := defaults()
	scanner := bufio.NewScanner(file)
	lineNum := 0

	for scanner.Scan() {
		lineNum++
		line := strings.TrimSpace(scanner.Text())

		// Skip empty lines and comments
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}

		// Parse KEY=VALUE
		parts := strings.SplitN(line, "=", 2)
		if len(parts) != 2 {
			return nil, fmt.Errorf("invalid config line %d: %q", lineNum, line)
		}

		key := strings.TrimSpace(parts[0])
		value := strings.TrimSpace(parts[1])

		if err := cfg.setValue(key, value); err != nil {
			return nil, fmt.Errorf("config line %d: %w", lineNum, err)
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("error reading config file: %w", err)
	}

	// Validate required fields
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// defaults returns a Config pre-filled with the reference values; the
// config file only needs to name what differs.
func defaults() *Config {
	return &Config{
		WarmupSamples:         1024,
		GyroStdDev:            true,
		IMUSampleRateDiv:      15,
		SelfTestAttempts:      300,
		SelfTestDelayMS:       10,
		MQTTClientIDAcq:       "flight-sensors-acquisition",
		MQTTClientIDConsole:   "flight-sensors-console",
		MQTTClientIDWeb:       "flight-sensors-web",
		MQTTClientIDDisplay:   "flight-sensors-display",
		TopicGyro:             "sensors/gyro",
		TopicAccel:            "sensors/accel",
		TopicMag:              "sensors/mag",
		TopicBaro:             "sensors/baro",
		TopicStatus:           "sensors/status",
		TelemetryInterval:     10,
		ConsoleLogInterval:    500,
		WebServerPort:         8080,
		DisplayUpdateInterval: 250,
	}
}

// setValue sets a config value based on the key.
func (c *Config) setValue(key, value string) error {
	switch key {
	// Bus / interrupt wiring
	case "I2C_BUS":
		c.I2CBus = value
	case "IMU_INT_PIN":
		c.IMUIntPin = value

	// Acquisition
	case "WARMUP_SAMPLES":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WARMUP_SAMPLES %q: %w", value, err)
		}
		if n <= 0 {
			return fmt.Errorf("WARMUP_SAMPLES must be positive, got %d", n)
		}
		c.WarmupSamples = n
	case "GYRO_STDDEV":
		b, err := strconv.ParseBool(value)
		if err != nil {
			return fmt.Errorf("invalid GYRO_STDDEV %q: %w", value, err)
		}
		c.GyroStdDev = b
	case "IMU_SMPLRT_DIV":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_SMPLRT_DIV %q: %w", value, err)
		}
		if val < 0 || val > 255 {
			return fmt.Errorf("IMU_SMPLRT_DIV must be 0-255, got %d", val)
		}
		c.IMUSampleRateDiv = byte(val)
	case "IMU_DLPF_CFG":
		val, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid IMU_DLPF_CFG %q: %w", value, err)
		}
		if val < 0 || val > 7 {
			return fmt.Errorf("IMU_DLPF_CFG must be 0-7, got %d", val)
		}
		c.IMUDLPFConfig = byte(val)

	// Self-test
	case "SELFTEST_ATTEMPTS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SELFTEST_ATTEMPTS %q: %w", value, err)
		}
		if n <= 0 {
			return fmt.Errorf("SELFTEST_ATTEMPTS must be positive, got %d", n)
		}
		c.SelfTestAttempts = n
	case "SELFTEST_DELAY_MS":
		n, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid SELFTEST_DELAY_MS %q: %w", value, err)
		}
		c.SelfTestDelayMS = n

	// MQTT
	case "MQTT_BROKER":
		c.MQTTBroker = value
	case "MQTT_CLIENT_ID_ACQ":
		c.MQTTClientIDAcq = value
	case "MQTT_CLIENT_ID_CONSOLE":
		c.MQTTClientIDConsole = value
	case "MQTT_CLIENT_ID_WEB":
		c.MQTTClientIDWeb = value
	case "MQTT_CLIENT_ID_DISPLAY":
		c.MQTTClientIDDisplay = value

	// Topics
	case "TOPIC_GYRO":
		c.TopicGyro = value
	case "TOPIC_ACCEL":
		c.TopicAccel = value
	case "TOPIC_MAG":
		c.TopicMag = value
	case "TOPIC_BARO":
		c.TopicBaro = value
	case "TOPIC_STATUS":
		c.TopicStatus = value

	// Timing
	case "TELEMETRY_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid TELEMETRY_INTERVAL %q: %w", value, err)
		}
		c.TelemetryInterval = interval
	case "CONSOLE_LOG_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid CONSOLE_LOG_INTERVAL %q: %w", value, err)
		}
		c.ConsoleLogInterval = interval

	// Web Server
	case "WEB_SERVER_PORT":
		port, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid WEB_SERVER_PORT %q: %w", value, err)
		}
		c.WebServerPort = port

	// Display
	case "DISPLAY_UPDATE_INTERVAL":
		interval, err := strconv.Atoi(value)
		if err != nil {
			return fmt.Errorf("invalid DISPLAY_UPDATE_INTERVAL %q: %w", value, err)
		}
		c.DisplayUpdateInterval = interval

	default:
		return fmt.Errorf("unknown config key: %q", key)
	}

	return nil
}

// validate checks that all required fields are set.
func (c *Config) validate() error {
	if c.IMUIntPin == "" {
		return fmt.Errorf("IMU_INT_PIN is required")
	}
	if c.MQTTBroker == "" {
		return fmt.Errorf("MQTT_BROKER is required")
	}
	if c.TelemetryInterval <= 0 {
		return fmt.Errorf("TELEMETRY_INTERVAL must be positive")
	}
	return nil
}

// InitGlobal initializes the global configuration from file.
// Uses sync.Once to ensure this only runs once, even if called multiple times.
func InitGlobal(configPath string) error {
	var err error
	configOnce.Do(func() {
		configMu.Lock()
		defer configMu.Unlock()
		globalConfig, err = Load(configPath)
	})
	return err
}

// Get returns the global configuration instance.
// InitGlobal must be called first, or this will return nil.
func Get() *Config {
	configMu.RLock()
	defer configMu.RUnlock()
	return globalConfig
}
