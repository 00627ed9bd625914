package gatt

import "github.com/godbus/dbus/v5"

// Service is the org.bluez.GattService1 responder. It has no methods; it
// exists as the property anchor between the application and the
// characteristic.
type Service struct{}

func (s *Service) properties() map[string]dbus.Variant {
	return map[string]dbus.Variant{
		"UUID":            dbus.MakeVariant(ServiceUUID),
		"Primary":         dbus.MakeVariant(true),
		"Characteristics": dbus.MakeVariant([]dbus.ObjectPath{CharacteristicPath}),
		"Includes":        dbus.MakeVariant([]dbus.ObjectPath{}),
	}
}
