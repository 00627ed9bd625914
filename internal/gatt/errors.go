package gatt

import (
	"errors"

	"github.com/godbus/dbus/v5"

	"github.com/runekey/runekey/internal/injector"
)

// Protocol error names returned to remote callers. These cross the bus
// boundary and are part of the external contract.
const (
	errNotSupported       = "org.bluez.Error.NotSupported"
	errInvalidValueLength = "org.bluez.Error.InvalidValueLength"
	errNotPermitted       = "org.bluez.Error.NotPermitted"
	errFailed             = "org.bluez.Error.Failed"
)

func notSupported() *dbus.Error {
	return dbus.NewError(errNotSupported, []interface{}{"Not supported"})
}

// writeError maps an injector failure onto the protocol error a remote
// caller sees. Local validation failures never cross the boundary raw.
func writeError(err error) *dbus.Error {
	switch {
	case errors.Is(err, injector.ErrInvalidLength):
		return dbus.NewError(errInvalidValueLength, []interface{}{"Invalid value length"})
	case errors.Is(err, injector.ErrInvalidCharacter):
		return dbus.NewError(errNotPermitted, []interface{}{"Invalid value"})
	default:
		return dbus.NewError(errFailed, []interface{}{"Write failed"})
	}
}
