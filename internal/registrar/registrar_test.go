package registrar

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/godbus/dbus/v5"
	"github.com/sirupsen/logrus"
	logtest "github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"

	"github.com/runekey/runekey/internal/gatt"
)

const managerPath = dbus.ObjectPath("/org/bluez/hci0")

type recordedCall struct {
	path   dbus.ObjectPath
	method string
	args   []interface{}
}

// fakeBus records coordinator activity and lets tests feed live signals
// through the subscribed channel.
type fakeBus struct {
	mu      sync.Mutex
	signals chan<- *dbus.Signal

	subErr  error
	enumErr error
	objects map[dbus.ObjectPath]map[string]map[string]dbus.Variant

	callErr error
	calls   []recordedCall
}

func (b *fakeBus) SubscribeInterfacesAdded(ch chan<- *dbus.Signal) error {
	if b.subErr != nil {
		return b.subErr
	}
	b.signals = ch
	return nil
}

func (b *fakeBus) ManagedObjects() (map[dbus.ObjectPath]map[string]map[string]dbus.Variant, error) {
	if b.enumErr != nil {
		return nil, b.enumErr
	}
	return b.objects, nil
}

func (b *fakeBus) CallAsync(path dbus.ObjectPath, method string, done func(error), args ...interface{}) {
	b.mu.Lock()
	b.calls = append(b.calls, recordedCall{path: path, method: method, args: args})
	b.mu.Unlock()
	done(b.callErr)
}

func (b *fakeBus) recorded() []recordedCall {
	b.mu.Lock()
	defer b.mu.Unlock()
	return append([]recordedCall(nil), b.calls...)
}

func managerIfaces(names ...string) map[string]map[string]dbus.Variant {
	ifaces := make(map[string]map[string]dbus.Variant, len(names))
	for _, n := range names {
		ifaces[n] = map[string]dbus.Variant{}
	}
	return ifaces
}

func interfacesAdded(path dbus.ObjectPath, names ...string) *dbus.Signal {
	return &dbus.Signal{
		Name: interfacesAddedSignal,
		Path: bluezRootPath,
		Body: []interface{}{path, managerIfaces(names...)},
	}
}

type CoordinatorSuite struct {
	suite.Suite
	bus    *fakeBus
	logger *logrus.Logger
	hook   *logtest.Hook
	cancel context.CancelFunc
}

func (s *CoordinatorSuite) SetupTest() {
	s.bus = &fakeBus{objects: map[dbus.ObjectPath]map[string]map[string]dbus.Variant{}}
	s.logger, s.hook = logtest.NewNullLogger()
	s.cancel = nil
}

func (s *CoordinatorSuite) TearDownTest() {
	if s.cancel != nil {
		s.cancel()
	}
}

func (s *CoordinatorSuite) start(c *Coordinator) {
	ctx, cancel := context.WithCancel(context.Background())
	s.cancel = cancel
	s.Require().NoError(c.Start(ctx))
}

// waitForCalls blocks until the fake bus has seen n registration calls.
func (s *CoordinatorSuite) waitForCalls(n int) []recordedCall {
	s.Require().Eventually(func() bool {
		return len(s.bus.recorded()) >= n
	}, time.Second, time.Millisecond)
	return s.bus.recorded()
}

func (s *CoordinatorSuite) TestSubscribeFailureIsFatal() {
	s.bus.subErr = errors.New("match denied")
	c := New(s.logger, s.bus)

	err := c.Start(context.Background())
	s.Require().Error(err)
	s.ErrorIs(err, s.bus.subErr)
}

func (s *CoordinatorSuite) TestEnumerationFailureIsFatal() {
	s.bus.enumErr = errors.New("bluez not running")
	c := New(s.logger, s.bus)

	err := c.Start(context.Background())
	s.Require().Error(err)
	s.ErrorIs(err, s.bus.enumErr)
}

func (s *CoordinatorSuite) TestRegistersBothKindsFromEnumeration() {
	s.bus.objects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		managerPath: managerIfaces(advertisingManagerIface, gattManagerIface, "org.bluez.Adapter1"),
	}
	s.start(New(s.logger, s.bus))

	calls := s.bus.recorded()
	s.Require().Len(calls, 2)

	byMethod := map[string]recordedCall{}
	for _, call := range calls {
		byMethod[call.method] = call
		s.Equal(managerPath, call.path)
	}

	adv, ok := byMethod["org.bluez.LEAdvertisingManager1.RegisterAdvertisement"]
	s.Require().True(ok, "advertisement registration issued")
	s.Equal(gatt.AdvertisementPath, adv.args[0])
	s.Equal(map[string]dbus.Variant{}, adv.args[1])

	app, ok := byMethod["org.bluez.GattManager1.RegisterApplication"]
	s.Require().True(ok, "application registration issued")
	s.Equal(gatt.RootPath, app.args[0])
	s.Equal(map[string]dbus.Variant{}, app.args[1])
}

func (s *CoordinatorSuite) TestDuplicateAnnouncementRegistersOnce() {
	// GOAL: The same manager reported by the startup enumeration and by a
	// live InterfacesAdded announcement must trigger exactly one call.
	s.bus.objects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		managerPath: managerIfaces(gattManagerIface),
	}
	s.start(New(s.logger, s.bus))
	s.Require().Len(s.bus.recorded(), 1)

	s.bus.signals <- interfacesAdded(managerPath, gattManagerIface)
	s.bus.signals <- interfacesAdded(managerPath, gattManagerIface)
	// Announce a different kind so we can observe the pump has processed
	// the duplicates above.
	s.bus.signals <- interfacesAdded(managerPath, advertisingManagerIface)

	calls := s.waitForCalls(2)
	s.Len(calls, 2)
	s.Equal("org.bluez.GattManager1.RegisterApplication", calls[0].method)
	s.Equal("org.bluez.LEAdvertisingManager1.RegisterAdvertisement", calls[1].method)
}

func (s *CoordinatorSuite) TestLiveAnnouncementAlone() {
	s.start(New(s.logger, s.bus))
	s.Require().Empty(s.bus.recorded())

	s.bus.signals <- interfacesAdded(managerPath, advertisingManagerIface, gattManagerIface)

	calls := s.waitForCalls(2)
	s.Len(calls, 2)
}

func (s *CoordinatorSuite) TestUnknownInterfacesIgnored() {
	s.bus.objects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		managerPath: managerIfaces("org.bluez.Adapter1", "org.bluez.Media1"),
	}
	s.start(New(s.logger, s.bus))
	s.Empty(s.bus.recorded())
}

func (s *CoordinatorSuite) TestMalformedSignalsIgnored() {
	c := New(s.logger, s.bus)
	c.handleSignal(nil)
	c.handleSignal(&dbus.Signal{Name: "org.freedesktop.DBus.NameAcquired"})
	c.handleSignal(&dbus.Signal{Name: interfacesAddedSignal, Body: []interface{}{managerPath}})
	c.handleSignal(&dbus.Signal{Name: interfacesAddedSignal, Body: []interface{}{"not-a-path", managerIfaces(gattManagerIface)}})
	c.handleSignal(&dbus.Signal{Name: interfacesAddedSignal, Body: []interface{}{managerPath, "not-a-map"}})
	s.Empty(s.bus.recorded())
}

func (s *CoordinatorSuite) TestRegistrationFailureIsLoggedNotFatal() {
	s.bus.callErr = fmt.Errorf("org.bluez.Error.NotReady")
	s.bus.objects = map[dbus.ObjectPath]map[string]map[string]dbus.Variant{
		managerPath: managerIfaces(gattManagerIface),
	}
	s.start(New(s.logger, s.bus))

	s.Require().Len(s.bus.recorded(), 1)
	var sawError bool
	for _, entry := range s.hook.AllEntries() {
		if entry.Level == logrus.ErrorLevel {
			sawError = true
		}
	}
	s.True(sawError, "failure must be logged at error level")

	// The failed kind stays requested: no retry on a later announcement.
	s.bus.signals <- interfacesAdded(managerPath, gattManagerIface)
	s.bus.signals <- interfacesAdded(managerPath, advertisingManagerIface)
	calls := s.waitForCalls(2)
	s.Len(calls, 2)
	s.Equal("org.bluez.LEAdvertisingManager1.RegisterAdvertisement", calls[1].method)
}

func TestCoordinatorSuite(t *testing.T) {
	suite.Run(t, new(CoordinatorSuite))
}

func TestRegister_ArgsCarryEmptyOptions(t *testing.T) {
	logger, _ := logtest.NewNullLogger()
	bus := &fakeBus{}
	c := New(logger, bus)

	c.handleObject(managerPath, managerIfaces(advertisingManagerIface))

	require.Len(t, bus.recorded(), 1)
	call := bus.recorded()[0]
	require.Len(t, call.args, 2)
	require.Equal(t, gatt.AdvertisementPath, call.args[0])
	require.Equal(t, map[string]dbus.Variant{}, call.args[1])
}
