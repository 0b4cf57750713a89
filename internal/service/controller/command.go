package controller

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"os"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/logger"
	"github.com/facegate/facegate/internal/protocol"
	"github.com/facegate/facegate/internal/recognizer"
	"github.com/facegate/facegate/internal/repository/credentials"
	"github.com/facegate/facegate/internal/repository/policy"
)

// Options controls the facegate-controller process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// DeviceAddress provides an optional override for the actuator address.
	DeviceAddress string
	// FeedFile provides an optional override for the recognition feed file.
	// "-" reads the feed from standard input.
	FeedFile string
}

// ErrNoDeviceAddress indicates missing actuator configuration.
var ErrNoDeviceAddress = errors.New("no device address configured")

// Run starts the controller pipeline and blocks until the feed is drained
// or the context is canceled. Loads configuration first, then connects to
// the policy store, the credential store and the actuator device.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "facegate-controller")

	// Load configuration first to get pipeline settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Honor the configured log level before anything else logs.
	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	// Command line overrides take precedence over config values.
	deviceAddress := settings.DeviceAddress
	if opts.DeviceAddress != "" {
		deviceAddress = opts.DeviceAddress
	}

	if deviceAddress == "" {
		return ErrNoDeviceAddress
	}

	feedFile := settings.FeedFile
	if opts.FeedFile != "" {
		feedFile = opts.FeedFile
	}

	// Open the policy store for subjects, rules and the audit trail.
	store, err := policy.OpenSQLite(ctx, settings.PolicyDBPath)
	if err != nil {
		return fmt.Errorf("open policy store: %w", err)
	}
	defer store.Close()

	// Load challenge credentials, creating the default set on first run.
	creds, err := credentials.Load(settings.CredentialsFile)
	if err != nil {
		return fmt.Errorf("load credentials: %w", err)
	}

	// Connect to the actuator device.
	dialer := net.Dialer{}

	conn, err := dialer.DialContext(ctx, "tcp", deviceAddress)
	if err != nil {
		return fmt.Errorf("dial device %s: %w", deviceAddress, err)
	}
	defer conn.Close()

	// Pick the frame feed and the secret input. When the feed comes from
	// standard input, there is no second terminal to collect secrets from.
	source, secrets, cleanup, err := openFeed(feedFile)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.InfoKV(ctx, "Controller started",
		"device", deviceAddress,
		"policy_db", settings.PolicyDBPath,
		"feed", feedName(feedFile))

	sender := protocol.NewSender(conn, settings.WriteTimeout)
	svc := newService(settings, store, creds, sender)

	return svc.Run(ctx, source, secrets)
}

// openFeed resolves the frame source and the secret reader from the feed
// file setting. An empty path or "-" means standard input.
func openFeed(feedFile string) (recognizer.Source, io.Reader, func(), error) {
	if feedFile == "" || feedFile == "-" {
		return recognizer.NewScriptSource(os.Stdin), nil, func() {}, nil
	}

	f, err := os.Open(feedFile)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("open feed file: %w", err)
	}

	return recognizer.NewScriptSource(f), os.Stdin, func() { f.Close() }, nil
}

// feedName is the feed identifier used in logs.
func feedName(feedFile string) string {
	if feedFile == "" || feedFile == "-" {
		return "stdin"
	}

	return feedFile
}
