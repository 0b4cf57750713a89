package device

import (
	"context"
	"net"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/facegate/facegate/internal/config"
)

// newTestDevice builds a device with a manual clock.
func newTestDevice() (*service, *time.Time) {
	cfg := &config.Config{
		DoorOpenDuration: 5 * time.Second,
		TickInterval:     10 * time.Millisecond,
	}

	svc := newService(cfg)

	now := time.Unix(1000, 0)
	svc.now = func() time.Time { return now }

	return svc, &now
}

// TestDevice_DisplayCommands verifies INIT, LCD and LCD:CLEAR drive the
// display, with lines clipped to the display width.
func TestDevice_DisplayCommands(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestDevice()

	svc.apply(ctx, "INIT:Systeme Pret")
	require.Equal(t, "Systeme Pret", svc.display.Line1)
	require.Empty(t, svc.display.Line2)

	svc.apply(ctx, "LCD:Bienvenue|maximilienne de la tour")
	require.Equal(t, "Bienvenue", svc.display.Line1)
	require.Equal(t, "maximilienne de ", svc.display.Line2)

	svc.apply(ctx, "LCD:CLEAR")
	require.Empty(t, svc.display.Line1)
	require.Empty(t, svc.display.Line2)
}

// TestDevice_DoorTimedRun verifies an opened door runs for its requested
// duration and the tick stops it exactly once.
func TestDevice_DoorTimedRun(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, now := newTestDevice()

	svc.apply(ctx, "DOOR:OPEN:0.2")
	require.True(t, svc.motor.Running)

	// Halfway through the run.
	*now = now.Add(100 * time.Millisecond)
	svc.tick(ctx, *now)
	require.True(t, svc.motor.Running)

	// The full duration has been served.
	*now = now.Add(100 * time.Millisecond)
	svc.tick(ctx, *now)
	require.False(t, svc.motor.Running)

	// Further ticks are no-ops.
	*now = now.Add(time.Second)
	svc.tick(ctx, *now)
	require.False(t, svc.motor.Running)
}

// TestDevice_DoorCloseEarly verifies DOOR:CLOSE stops a running motor
// before its duration is served.
func TestDevice_DoorCloseEarly(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, now := newTestDevice()

	svc.apply(ctx, "DOOR:OPEN:5")
	require.True(t, svc.motor.Running)

	*now = now.Add(time.Second)
	svc.apply(ctx, "DOOR:CLOSE")
	require.False(t, svc.motor.Running)
}

// TestDevice_InvalidDurationUsesDefault verifies an unreadable duration
// falls back to the configured door duration.
func TestDevice_InvalidDurationUsesDefault(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, now := newTestDevice()

	svc.apply(ctx, "DOOR:OPEN:abc")
	require.True(t, svc.motor.Running)

	// Just short of the configured default.
	*now = now.Add(5*time.Second - time.Millisecond)
	svc.tick(ctx, *now)
	require.True(t, svc.motor.Running)

	*now = now.Add(time.Millisecond)
	svc.tick(ctx, *now)
	require.False(t, svc.motor.Running)
}

// TestDevice_UnknownCommandIgnored verifies an unrecognized line leaves the
// device state untouched.
func TestDevice_UnknownCommandIgnored(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	svc, _ := newTestDevice()

	svc.apply(ctx, "LCD:Bienvenue|hassen")
	svc.apply(ctx, "DOOR:OPEN:5")

	svc.apply(ctx, "FOO:BAR")
	svc.apply(ctx, "")

	require.True(t, svc.motor.Running)
	require.Equal(t, "Bienvenue", svc.display.Line1)
	require.Equal(t, "hassen", svc.display.Line2)
}

// TestDevice_ServeConnFragmentedLines verifies the connection loop
// reassembles commands split across transport reads.
func TestDevice_ServeConnFragmentedLines(t *testing.T) {
	t.Parallel()

	cfg := &config.Config{
		DoorOpenDuration: 5 * time.Second,
		TickInterval:     5 * time.Millisecond,
	}
	svc := newService(cfg)

	controller, deviceEnd := net.Pipe()

	done := make(chan struct{})

	go func() {
		defer close(done)
		svc.serveConn(context.Background(), deviceEnd)
	}()

	_, err := controller.Write([]byte("LCD:Bonjour|mo"))
	require.NoError(t, err)

	time.Sleep(20 * time.Millisecond)

	_, err = controller.Write([]byte("nde\nDOOR:OPEN:60\n"))
	require.NoError(t, err)

	require.NoError(t, controller.Close())

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("serveConn did not return after the controller disconnected")
	}

	require.Equal(t, "Bonjour", svc.display.Line1)
	require.Equal(t, "monde", svc.display.Line2)
	require.True(t, svc.motor.Running)
}
