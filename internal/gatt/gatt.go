// Package gatt exposes the daemon's fixed GATT object tree on the system
// bus: one LE advertisement, one primary service and one write-only
// characteristic, plus the object manager BlueZ reads during application
// registration.
package gatt

import "github.com/godbus/dbus/v5"

// Object paths of the exported tree. BlueZ receives RootPath when the GATT
// application is registered and AdvertisementPath when the advertisement is.
const (
	RootPath           dbus.ObjectPath = "/"
	AdvertisementPath  dbus.ObjectPath = "/adv"
	ServicePath        dbus.ObjectPath = "/svc"
	CharacteristicPath dbus.ObjectPath = "/svc/chr"
)

// Fixed UUIDs of the digit-pad service and its characteristic.
const (
	ServiceUUID        = "B670003C-0079-465C-9BA7-6C0539CCD67F"
	CharacteristicUUID = "F4186B06-D796-4327-AF39-AC22C50BDCA8"
)

// BlueZ D-Bus interfaces implemented by the tree.
const (
	AdvertisementIface  = "org.bluez.LEAdvertisement1"
	ServiceIface        = "org.bluez.GattService1"
	CharacteristicIface = "org.bluez.GattCharacteristic1"

	objectManagerIface = "org.freedesktop.DBus.ObjectManager"
)

// writeFlag is the only access mode the characteristic advertises: the
// write must arrive over an authenticated, encrypted link.
const writeFlag = "encrypt-authenticated-write"
