//go:build linux

package main

import (
	"errors"
	"strings"

	"github.com/fatih/color"

	"github.com/runekey/runekey/internal/uinput"
)

// errorPrefix renders the ERROR marker, red when stderr is a terminal.
func errorPrefix() string {
	return color.New(color.FgRed, color.Bold).Sprint("ERROR:")
}

// FormatUserError turns an internal error chain into something actionable
// on the command line. Known setup failures get a hint about the usual
// cause; everything else passes through unchanged.
func FormatUserError(err error) string {
	msg := err.Error()
	switch {
	case errors.Is(err, uinput.ErrNoDevice):
		return msg + "\n  hint: load the uinput module (modprobe uinput) or pass --device"
	case strings.Contains(msg, "connect system bus"):
		return msg + "\n  hint: runekey needs access to the D-Bus system bus (is dbus running?)"
	case strings.Contains(msg, "permission denied"):
		return msg + "\n  hint: root or a udev rule granting uinput access is usually required"
	}
	return msg
}
