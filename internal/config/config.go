package config

import (
	"errors"
	"fmt"
	"net"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings shared by the facegate binaries.
type Config struct {
	// DeviceAddress is the actuator transport address: the controller dials
	// it, the device listens on it.
	DeviceAddress string `yaml:"device_addr"`
	// PolicyDBPath is the path to the SQLite database holding subjects,
	// access rules and the audit log.
	PolicyDBPath string `yaml:"policy_db"`
	// CredentialsFile is the path to the JSON file mapping subject names to
	// shared secrets. Created with defaults when missing.
	CredentialsFile string `yaml:"credentials_file"`
	// FeedFile is the recognition feed replayed by the controller.
	// Empty means standard input.
	FeedFile string `yaml:"feed_file"`
	// LogLevel is the minimum log level (debug, info, warn, error, fatal).
	LogLevel string `yaml:"log_level"`
	// StabilityFrames is the number of consecutive identical predictions
	// required before the pipeline acts on an identity.
	StabilityFrames int `yaml:"stability_frames"`
	// ConfidenceThreshold is the recognizer distance above which a
	// prediction is treated as unknown. Lower values are better matches.
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`
	// DoorOpenDuration is how long the door motor runs on a grant.
	DoorOpenDuration time.Duration `yaml:"door_open_duration"`
	// UnknownCooldown is the minimum delay between two denied-unknown
	// notifications on the actuator.
	UnknownCooldown time.Duration `yaml:"unknown_cooldown"`
	// PasswordTimeout is how long a pending challenge waits for a secret.
	PasswordTimeout time.Duration `yaml:"password_timeout"`
	// TickInterval is the device control loop period.
	TickInterval time.Duration `yaml:"tick_interval"`
	// WriteTimeout bounds a single actuator line write so a stalled link
	// cannot stall frame processing.
	WriteTimeout time.Duration `yaml:"write_timeout"`
}

const (
	// DefaultConfigFilename is the default filename for facegate settings.
	DefaultConfigFilename = "facegate-settings.yaml"

	// DefaultPolicyDBFilename is the default SQLite database filename.
	DefaultPolicyDBFilename = "facegate.db"

	// DefaultCredentialsFilename is the default shared-secret filename.
	DefaultCredentialsFilename = "passwords.json"

	// DefaultStabilityFrames is the number of consecutive identical
	// predictions required before acting.
	DefaultStabilityFrames = 3

	// DefaultConfidenceThreshold is the recognizer distance cutoff:
	// predictions at or above it are coerced to unknown.
	DefaultConfidenceThreshold = 70.0

	// DefaultDoorOpenDuration is how long the door stays driven on a grant.
	DefaultDoorOpenDuration = 5 * time.Second

	// DefaultUnknownCooldown throttles repeated denied-unknown notifications.
	DefaultUnknownCooldown = 5 * time.Second

	// DefaultPasswordTimeout is the time allowed to enter a secret.
	DefaultPasswordTimeout = 10 * time.Second

	// DefaultTickInterval is the device control loop period.
	DefaultTickInterval = 10 * time.Millisecond

	// DefaultWriteTimeout bounds a single actuator write.
	DefaultWriteTimeout = time.Second

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errDeviceAddressRequired is returned when the transport address is missing.
	errDeviceAddressRequired = errors.New("device address must be provided")
	// errNegativeStability is returned for a non-positive stability frame count.
	errNegativeStability = errors.New("stability frames must be positive")
)

// Load reads configuration from the provided path and validates essential fields.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the configuration to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks the provided settings for required fields and fills defaults.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if cfg.DeviceAddress == "" {
		return errDeviceAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", cfg.DeviceAddress); err != nil {
		return fmt.Errorf("invalid device address: %w", err)
	}

	if cfg.StabilityFrames < 0 {
		return errNegativeStability
	}

	if cfg.StabilityFrames == 0 {
		cfg.StabilityFrames = DefaultStabilityFrames
	}

	if cfg.ConfidenceThreshold <= 0 {
		cfg.ConfidenceThreshold = DefaultConfidenceThreshold
	}

	if cfg.DoorOpenDuration <= 0 {
		cfg.DoorOpenDuration = DefaultDoorOpenDuration
	}

	if cfg.UnknownCooldown <= 0 {
		cfg.UnknownCooldown = DefaultUnknownCooldown
	}

	if cfg.PasswordTimeout <= 0 {
		cfg.PasswordTimeout = DefaultPasswordTimeout
	}

	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}

	if cfg.WriteTimeout <= 0 {
		cfg.WriteTimeout = DefaultWriteTimeout
	}

	if cfg.PolicyDBPath == "" {
		cfg.PolicyDBPath = DefaultPolicyDBFilename
	}

	if cfg.CredentialsFile == "" {
		cfg.CredentialsFile = DefaultCredentialsFilename
	}

	return nil
}
