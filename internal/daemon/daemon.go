//go:build linux

// Package daemon wires the bus connection, the virtual keyboard, the GATT
// object tree and the registration coordinator together and runs until a
// termination signal arrives.
package daemon

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/runekey/runekey/internal/config"
	"github.com/runekey/runekey/internal/gatt"
	"github.com/runekey/runekey/internal/injector"
	"github.com/runekey/runekey/internal/registrar"
	"github.com/runekey/runekey/internal/uinput"
)

// Run starts the daemon and blocks until ctx is canceled or a termination
// signal arrives. Any setup failure is returned; a signal-triggered
// shutdown returns nil after resources are released in reverse order of
// acquisition.
func Run(ctx context.Context, logger *logrus.Logger, cfg *config.Config) error {
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Resources released in reverse order on every exit path.
	var cleanup []func()
	defer func() {
		for i := len(cleanup) - 1; i >= 0; i-- {
			cleanup[i]()
		}
	}()

	conn, err := dbus.ConnectSystemBus()
	if err != nil {
		return fmt.Errorf("daemon: connect system bus: %w", err)
	}
	cleanup = append(cleanup, func() {
		if err := conn.Close(); err != nil {
			logger.WithError(err).Warn("Failed to close bus connection")
		}
	})

	kbd, err := uinput.Open(logger, cfg.Uinput.Device)
	if err != nil {
		return fmt.Errorf("daemon: open virtual keyboard: %w", err)
	}
	inj := injector.New(logger, kbd)
	cleanup = append(cleanup, func() { closeKeyboard(logger, inj, kbd) })

	app := gatt.NewApplication(logger, inj)
	if err := app.Export(conn); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}

	coord := registrar.New(logger, registrar.SystemBus(conn))
	if err := coord.Start(ctx); err != nil {
		return fmt.Errorf("daemon: %w", err)
	}

	logger.Info("Ready; waiting for characteristic writes")
	awaitShutdown(ctx, logger)
	return nil
}

// quiescer is the injector surface the shutdown path needs.
type quiescer interface {
	Quiesce()
}

// closeKeyboard lets an in-flight key sequence run to completion before the
// device disappears, then destroys it.
func closeKeyboard(logger *logrus.Logger, inj quiescer, kbd io.Closer) {
	inj.Quiesce()
	if err := kbd.Close(); err != nil {
		logger.WithError(err).Warn("Failed to close virtual keyboard")
	}
}

// awaitShutdown blocks until ctx is done or a trapped signal arrives. Every
// trapped signal means orderly shutdown; none is an error.
func awaitShutdown(ctx context.Context, logger *logrus.Logger) {
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh,
		os.Interrupt,
		syscall.SIGTERM,
		syscall.SIGHUP,
		syscall.SIGUSR1,
		syscall.SIGUSR2,
	)
	defer signal.Stop(sigCh)

	select {
	case <-ctx.Done():
		logger.Debug("Context canceled; shutting down")
	case sig := <-sigCh:
		logger.WithField("signal", sig.String()).Info("Shutting down")
	}
}
