package gatt

import (
	"fmt"

	"github.com/godbus/dbus/v5"
	"github.com/godbus/dbus/v5/introspect"
	"github.com/godbus/dbus/v5/prop"
	"github.com/sirupsen/logrus"
)

// Application is the exported object tree plus the org.freedesktop.DBus
// ObjectManager responder BlueZ queries while registering the application.
type Application struct {
	adv    *Advertisement
	svc    *Service
	chr    *Characteristic
	logger *logrus.Logger
}

// NewApplication builds the tree. Writes to the characteristic are handed
// to inj.
func NewApplication(logger *logrus.Logger, inj Injecter) *Application {
	return &Application{
		adv:    &Advertisement{logger: logger},
		svc:    &Service{},
		chr:    &Characteristic{inj: inj, logger: logger},
		logger: logger,
	}
}

// GetManagedObjects returns the full property tree below the root path,
// advertisement included. BlueZ only acts on the GATT interfaces during
// application registration and skips the rest.
func (app *Application) GetManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, *dbus.Error) {
	return map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		AdvertisementPath: {
			AdvertisementIface: app.adv.properties(),
		},
		ServicePath: {
			ServiceIface: app.svc.properties(),
		},
		CharacteristicPath: {
			CharacteristicIface: app.chr.properties(),
		},
	}, nil
}

// Export places every object on the bus: method responders, their
// read-only properties and introspection data.
func (app *Application) Export(conn *dbus.Conn) error {
	omgr := map[string]interface{}{"GetManagedObjects": app.GetManagedObjects}
	if err := conn.ExportMethodTable(omgr, RootPath, objectManagerIface); err != nil {
		return fmt.Errorf("gatt: export object manager: %w", err)
	}
	if err := conn.Export(app.adv, AdvertisementPath, AdvertisementIface); err != nil {
		return fmt.Errorf("gatt: export advertisement: %w", err)
	}
	if err := conn.Export(app.chr, CharacteristicPath, CharacteristicIface); err != nil {
		return fmt.Errorf("gatt: export characteristic: %w", err)
	}

	for _, obj := range []struct {
		path  dbus.ObjectPath
		iface string
		props map[string]dbus.Variant
	}{
		{AdvertisementPath, AdvertisementIface, app.adv.properties()},
		{ServicePath, ServiceIface, app.svc.properties()},
		{CharacteristicPath, CharacteristicIface, app.chr.properties()},
	} {
		if _, err := prop.Export(conn, obj.path, constProps(obj.iface, obj.props)); err != nil {
			return fmt.Errorf("gatt: export properties for %s: %w", obj.path, err)
		}
	}

	if err := app.exportIntrospection(conn); err != nil {
		return err
	}
	app.logger.WithFields(logrus.Fields{
		"service":        ServiceUUID,
		"characteristic": CharacteristicUUID,
	}).Info("GATT application exported")
	return nil
}

// constProps adapts a property table for prop.Export: every property is
// read-only and never signals changes.
func constProps(iface string, props map[string]dbus.Variant) prop.Map {
	m := make(map[string]*prop.Prop, len(props))
	for name, v := range props {
		m[name] = &prop.Prop{
			Value:    v.Value(),
			Writable: false,
			Emit:     prop.EmitFalse,
		}
	}
	return prop.Map{iface: m}
}

func (app *Application) exportIntrospection(conn *dbus.Conn) error {
	nodes := []struct {
		path dbus.ObjectPath
		node *introspect.Node
	}{
		{RootPath, &introspect.Node{
			Interfaces: []introspect.Interface{
				introspect.IntrospectData,
				{Name: objectManagerIface, Methods: []introspect.Method{{
					Name: "GetManagedObjects",
					Args: []introspect.Arg{{Name: "objects", Type: "a{oa{sa{sv}}}", Direction: "out"}},
				}}},
			},
			Children: []introspect.Node{{Name: "adv"}, {Name: "svc"}},
		}},
		{AdvertisementPath, &introspect.Node{
			Interfaces: []introspect.Interface{
				introspect.IntrospectData,
				prop.IntrospectData,
				{
					Name:       AdvertisementIface,
					Methods:    introspect.Methods(app.adv),
					Properties: propIntrospection(app.adv.properties()),
				},
			},
		}},
		{ServicePath, &introspect.Node{
			Interfaces: []introspect.Interface{
				introspect.IntrospectData,
				prop.IntrospectData,
				{
					Name:       ServiceIface,
					Properties: propIntrospection(app.svc.properties()),
				},
			},
			Children: []introspect.Node{{Name: "chr"}},
		}},
		{CharacteristicPath, &introspect.Node{
			Interfaces: []introspect.Interface{
				introspect.IntrospectData,
				prop.IntrospectData,
				{
					Name:       CharacteristicIface,
					Methods:    introspect.Methods(app.chr),
					Properties: propIntrospection(app.chr.properties()),
				},
			},
		}},
	}
	for _, n := range nodes {
		n.node.Name = string(n.path)
		if err := conn.Export(introspect.NewIntrospectable(n.node), n.path, "org.freedesktop.DBus.Introspectable"); err != nil {
			return fmt.Errorf("gatt: export introspection for %s: %w", n.path, err)
		}
	}
	return nil
}

func propIntrospection(props map[string]dbus.Variant) []introspect.Property {
	out := make([]introspect.Property, 0, len(props))
	for name, v := range props {
		out = append(out, introspect.Property{
			Name:   name,
			Type:   v.Signature().String(),
			Access: "read",
		})
	}
	return out
}
