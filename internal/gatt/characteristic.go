package gatt

import (
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

// Injecter types a written payload on the virtual keyboard.
type Injecter interface {
	Inject(value []byte) error
}

// Characteristic is the org.bluez.GattCharacteristic1 responder. It is
// write-only: reads and notifications are not offered, and a successful
// write has no visible state beyond its key-injection side effect.
type Characteristic struct {
	inj    Injecter
	logger *logrus.Logger
}

// ReadValue always fails: the characteristic is write-only by contract.
func (c *Characteristic) ReadValue() ([]byte, *dbus.Error) {
	return nil, notSupported()
}

// WriteValue hands the payload to the injector and maps any failure onto
// the remote error the caller sees.
func (c *Characteristic) WriteValue(value []byte) *dbus.Error {
	if err := c.inj.Inject(value); err != nil {
		c.logger.WithError(err).Warn("Rejected characteristic write")
		return writeError(err)
	}
	return nil
}

// StartNotify always fails: notifications are never offered.
func (c *Characteristic) StartNotify() *dbus.Error {
	return notSupported()
}

// StopNotify succeeds as a no-op; there is nothing to stop.
func (c *Characteristic) StopNotify() *dbus.Error {
	return nil
}

func (c *Characteristic) properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"UUID":        dbus.MakeVariant(CharacteristicUUID),
		"Service":     dbus.MakeVariant(ServicePath),
		"Notifying":   dbus.MakeVariant(false),
		"Flags":       dbus.MakeVariant([]string{writeFlag}),
		"Descriptors": dbus.MakeVariant([]dbus.ObjectPath{}),
	}
}
