package device

import (
	"context"
	"errors"
	"fmt"
	"net"

	"github.com/facegate/facegate/internal/config"
	"github.com/facegate/facegate/internal/logger"
)

// Options controls the facegate-device process and configuration.
type Options struct {
	// ConfigPath specifies the path to settings YAML file.
	ConfigPath string
	// ListenAddress provides an optional listen address override.
	ListenAddress string
}

// ErrNoListenAddress indicates missing listen configuration.
var ErrNoListenAddress = errors.New("no listen address configured")

// Run starts the actuator device simulator and blocks until the context is
// canceled. The device serves one controller connection at a time, the way
// a serial link would.
func Run(ctx context.Context, opts *Options) error {
	// Set context with logger name for tracking.
	ctx = logger.WithName(ctx, "facegate-device")

	// Load configuration first to get device settings.
	settings, err := config.Load(opts.ConfigPath)
	if err != nil {
		return fmt.Errorf("load settings: %w", err)
	}

	// Honor the configured log level before anything else logs.
	if level, ok := logger.ParseLogLevel(settings.LogLevel); ok {
		logger.SetLevel(level)
	}

	// Determine listen address: CLI argument overrides config port extraction.
	listenAddress, err := resolveListenAddress(settings.DeviceAddress, opts.ListenAddress)
	if err != nil {
		return fmt.Errorf("resolve listen address: %w", err)
	}

	// Setup TCP listener for the command link.
	lc := net.ListenConfig{}

	lis, err := lc.Listen(ctx, "tcp", listenAddress)
	if err != nil {
		return fmt.Errorf("listen on %s: %w", listenAddress, err)
	}

	// Close the listener on cancellation to unblock Accept.
	go func() {
		<-ctx.Done()
		lis.Close()
	}()

	logger.InfoKV(ctx, "Device listening",
		"listen_address", listenAddress,
		"tick_interval", settings.TickInterval,
		"default_door_duration", settings.DoorOpenDuration)

	svc := newService(settings)

	for {
		conn, err := lis.Accept()
		if err != nil {
			if ctx.Err() != nil {
				logger.Info(ctx, "Device stopped")

				return nil
			}

			return fmt.Errorf("accept connection: %w", err)
		}

		logger.InfoKV(ctx, "Controller connected", "remote", conn.RemoteAddr().String())
		svc.serveConn(ctx, conn)
		conn.Close()
		logger.Info(ctx, "Controller disconnected")
	}
}

// resolveListenAddress determines the listen address for the command link.
// If override is provided, uses it directly. Otherwise extracts the port
// from the configured device address.
func resolveListenAddress(configAddr, override string) (string, error) {
	if override != "" {
		return override, nil
	}

	if configAddr == "" {
		return "", ErrNoListenAddress
	}

	_, port, err := net.SplitHostPort(configAddr)
	if err != nil {
		return "", fmt.Errorf("invalid device address format %q: %w", configAddr, err)
	}

	// Bind on all interfaces with the configured port.
	return ":" + port, nil
}
