// Package registrar performs the one-time registration handshake with the
// Bluetooth daemon: as soon as an advertising manager or a GATT application
// manager is discovered, the matching Register call is issued, exactly once
// per manager kind for the process lifetime.
//
// Two sources report managers: the startup enumeration of the daemon's
// object tree and the live InterfacesAdded subscription. Both can announce
// the same manager, so registration is deduplicated here.
package registrar

import (
	"context"
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"

	"github.com/runekey/runekey/internal/gatt"
)

const (
	bluezService  = "org.bluez"
	bluezRootPath = dbus.ObjectPath("/")

	advertisingManagerIface = "org.bluez.LEAdvertisingManager1"
	gattManagerIface        = "org.bluez.GattManager1"

	objectManagerIface    = "org.freedesktop.DBus.ObjectManager"
	interfacesAddedSignal = objectManagerIface + ".InterfacesAdded"
)

// Bus is the slice of the system bus the coordinator drives.
type Bus interface {
	// SubscribeInterfacesAdded arranges for the Bluetooth daemon's
	// InterfacesAdded signals to be delivered on ch.
	SubscribeInterfacesAdded(ch chan<- *dbus.Signal) error

	// ManagedObjects enumerates the Bluetooth daemon's current objects and
	// the interfaces each supports.
	ManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error)

	// CallAsync invokes method on the daemon's object at path and delivers
	// the call result to done from another goroutine.
	CallAsync(path dbus.ObjectPath, method string, done func(error), args ...interface{})
}

// Coordinator tracks which manager kinds have had their registration
// issued. Flags flip before the call is sent, closing the window where the
// enumeration and a signal report the same manager back to back.
type Coordinator struct {
	bus    Bus
	logger *logrus.Logger

	advRequested bool
	appRequested bool
}

// New returns a Coordinator with neither kind registered.
func New(logger *logrus.Logger, bus Bus) *Coordinator {
	return &Coordinator{bus: bus, logger: logger}
}

// Start installs the InterfacesAdded subscription, runs the startup
// enumeration, and then services announcements until ctx is done.
// Subscription or enumeration failure is fatal; the subscription is
// installed first so a manager appearing mid-enumeration is not missed.
func (c *Coordinator) Start(ctx context.Context) error {
	ch := make(chan *dbus.Signal, 16)
	if err := c.bus.SubscribeInterfacesAdded(ch); err != nil {
		return fmt.Errorf("registrar: subscribe to interface announcements: %w", err)
	}

	objs, err := c.bus.ManagedObjects()
	if err != nil {
		return fmt.Errorf("registrar: enumerate bluetooth objects: %w", err)
	}
	for path, ifaces := range objs {
		c.handleObject(path, ifaces)
	}

	go c.pump(ctx, ch)
	return nil
}

func (c *Coordinator) pump(ctx context.Context, ch chan *dbus.Signal) {
	for {
		select {
		case <-ctx.Done():
			return
		case sig, ok := <-ch:
			if !ok {
				return
			}
			c.handleSignal(sig)
		}
	}
}

// handleSignal feeds an InterfacesAdded announcement into the same handler
// the startup enumeration uses.
func (c *Coordinator) handleSignal(sig *dbus.Signal) {
	if sig == nil || sig.Name != interfacesAddedSignal || len(sig.Body) < 2 {
		return
	}
	path, ok := sig.Body[0].(dbus.ObjectPath)
	if !ok {
		return
	}
	ifaces, ok := sig.Body[1].(map[string]map[string]dbus.Variant)
	if !ok {
		return
	}
	c.handleObject(path, ifaces)
}

func (c *Coordinator) handleObject(path dbus.ObjectPath, ifaces map[string]map[string]dbus.Variant) {
	for iface := range ifaces {
		switch iface {
		case advertisingManagerIface:
			if c.advRequested {
				continue
			}
			c.advRequested = true
			c.register(path, advertisingManagerIface+".RegisterAdvertisement", gatt.AdvertisementPath)
		case gattManagerIface:
			if c.appRequested {
				continue
			}
			c.appRequested = true
			c.register(path, gattManagerIface+".RegisterApplication", gatt.RootPath)
		}
	}
}

// register issues the registration call fire-and-forget. The reply is only
// inspected to log a failure; the daemon keeps its objects exported either
// way and never retries.
func (c *Coordinator) register(manager dbus.ObjectPath, method string, object dbus.ObjectPath) {
	log := c.logger.WithFields(logrus.Fields{
		"manager": manager,
		"method":  method,
		"object":  object,
	})
	log.Info("Registering with bluetooth manager")
	c.bus.CallAsync(manager, method, func(err error) {
		if err != nil {
			log.WithError(err).Error("Registration failed")
			return
		}
		log.Debug("Registration confirmed")
	}, object, map[string]dbus.Variant{})
}

// systemBus implements Bus on a live connection.
type systemBus struct {
	conn *dbus.Conn
}

// SystemBus adapts conn for the coordinator.
func SystemBus(conn *dbus.Conn) Bus {
	return &systemBus{conn: conn}
}

func (b *systemBus) SubscribeInterfacesAdded(ch chan<- *dbus.Signal) error {
	if err := b.conn.AddMatchSignal(
		dbus.WithMatchSender(bluezService),
		dbus.WithMatchObjectPath(bluezRootPath),
		dbus.WithMatchInterface(objectManagerIface),
		dbus.WithMatchMember("InterfacesAdded"),
	); err != nil {
		return err
	}
	b.conn.Signal(ch)
	return nil
}

func (b *systemBus) ManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	var objs map[dbus.ObjectPath]map[string]map[string]dbus.Variant
	call := b.conn.Object(bluezService, bluezRootPath).Call(objectManagerIface+".GetManagedObjects", 0)
	if call.Err != nil {
		return nil, call.Err
	}
	if err := call.Store(&objs); err != nil {
		return nil, fmt.Errorf("decode managed objects: %w", err)
	}
	return objs, nil
}

func (b *systemBus) CallAsync(path dbus.ObjectPath, method string, done func(error), args ...interface{}) {
	ch := make(chan *dbus.Call, 1)
	b.conn.Object(bluezService, path).Go(method, 0, ch, args...)
	go func() {
		call := <-ch
		done(call.Err)
	}()
}
