package gatt

import (
	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
)

// Advertisement is the org.bluez.LEAdvertisement1 responder. All its
// properties are fixed at construction; only Release is callable.
type Advertisement struct {
	logger *logrus.Logger
}

// Release acknowledges a teardown request from BlueZ. The advertisement
// object stays exported for the process lifetime regardless.
func (a *Advertisement) Release() *dbus.Error {
	a.logger.Debug("Advertisement released by BlueZ")
	return nil
}

func (a *Advertisement) properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"Type":             dbus.MakeVariant("broadcast"),
		"ServiceUUIDs":     dbus.MakeVariant([]string{ServiceUUID}),
		"ManufacturerData": dbus.MakeVariant(map[uint16][]byte{}),
		"SolicitUUIDs":     dbus.MakeVariant([]string{}),
		"ServiceData":      dbus.MakeVariant(map[string][]byte{}),
		"IncludeTxPower":   dbus.MakeVariant(true),
	}
}
