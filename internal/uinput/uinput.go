//go:build linux

// Package uinput owns the kernel virtual keyboard. It creates a uinput
// device at startup that declares the digit keys and Enter, emits key
// press/release events on demand, and destroys the device on shutdown.
package uinput

import (
	"bytes"
	"encoding/binary"
	"errors"
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"golang.org/x/sys/unix"

	"github.com/runekey/runekey/internal/keymap"
)

// ErrNoDevice indicates that no uinput device node could be opened.
var ErrNoDevice = errors.New("uinput: no usable device node found")

// Fixed identity of the virtual keyboard as seen by the rest of the system.
const (
	deviceName    = "runekey"
	deviceVendor  = 0xef0f
	deviceProduct = 0xd746
	deviceVersion = 1
)

// uinput ioctl requests (linux/uinput.h). golang.org/x/sys carries the
// event-type and bus constants but not these, so they are defined here the
// same way keymap defines the key codes.
const (
	uiSetEvBit   = 0x40045564 // _IOW('U', 100, int)
	uiSetKeyBit  = 0x40045565 // _IOW('U', 101, int)
	uiDevCreate  = 0x5501     // _IO('U', 1)
	uiDevDestroy = 0x5502     // _IO('U', 2)
)

// ioctlSetInt is swapped out in tests; no uinput device exists there.
var ioctlSetInt = unix.IoctlSetInt

// defaultNodes are tried in order; ENOENT moves on to the next candidate,
// any other open error is reported immediately.
var defaultNodes = []string{
	"/dev/input/uinput",
	"/dev/uinput",
	"/dev/misc/uinput",
}

// Keyboard is an exclusively-owned handle to a created uinput device.
// Methods are not safe for concurrent use; the injector serializes access.
type Keyboard struct {
	f      *os.File
	logger *logrus.Logger
	closed bool
}

// Open creates the virtual keyboard. If node is non-empty only that device
// node is tried; otherwise the known uinput locations are probed in order.
func Open(logger *logrus.Logger, node string) (*Keyboard, error) {
	nodes := defaultNodes
	if node != "" {
		nodes = []string{node}
	}
	f, err := probe(nodes, func(path string) (*os.File, error) {
		return os.OpenFile(path, os.O_WRONLY, 0)
	})
	if err != nil {
		return nil, err
	}

	kbd := &Keyboard{f: f, logger: logger}
	if err := kbd.setup(); err != nil {
		_ = f.Close()
		return nil, err
	}
	logger.WithField("node", f.Name()).Debug("Virtual keyboard created")
	return kbd, nil
}

// probe opens the first node that exists. Missing nodes are skipped; any
// other failure aborts the probe.
func probe(nodes []string, open func(string) (*os.File, error)) (*os.File, error) {
	for _, path := range nodes {
		f, err := open(path)
		if err == nil {
			return f, nil
		}
		if errors.Is(err, os.ErrNotExist) {
			continue
		}
		return nil, fmt.Errorf("uinput: open %s: %w", path, err)
	}
	return nil, ErrNoDevice
}

// setup declares the event capabilities, writes the device descriptor and
// asks the kernel to create the device.
func (k *Keyboard) setup() error {
	fd := int(k.f.Fd())

	if err := ioctlSetInt(fd, uiSetEvBit, unix.EV_KEY); err != nil {
		return fmt.Errorf("uinput: declare key events: %w", err)
	}
	if err := ioctlSetInt(fd, uiSetEvBit, unix.EV_SYN); err != nil {
		return fmt.Errorf("uinput: declare sync events: %w", err)
	}
	for _, code := range keymap.Emittable() {
		if err := ioctlSetInt(fd, uiSetKeyBit, int(code)); err != nil {
			return fmt.Errorf("uinput: declare key %d: %w", code, err)
		}
	}

	if _, err := k.f.Write(deviceDescriptor()); err != nil {
		return fmt.Errorf("uinput: write device descriptor: %w", err)
	}
	if err := ioctlSetInt(fd, uiDevCreate, 0); err != nil {
		return fmt.Errorf("uinput: create device: %w", err)
	}
	return nil
}

// userDev mirrors the kernel's legacy struct uinput_user_dev.
type userDev struct {
	Name                             [80]byte
	Bustype, Vendor, Product, Device uint16
	FFEffectsMax                     uint32
	Absmax, Absmin, Absfuzz, Absflat [64]int32
}

// deviceDescriptor encodes the fixed device identity in the kernel's native
// byte order.
func deviceDescriptor() []byte {
	dev := userDev{
		Bustype: unix.BUS_USB,
		Vendor:  deviceVendor,
		Product: deviceProduct,
		Device:  deviceVersion,
	}
	copy(dev.Name[:], deviceName)

	var buf bytes.Buffer
	// userDev has no interior padding on any Linux target, so the packed
	// encoding matches the in-memory layout.
	_ = binary.Write(&buf, binary.NativeEndian, dev)
	return buf.Bytes()
}

// inputEvent mirrors the kernel's struct input_event.
type inputEvent struct {
	Time  unix.Timeval
	Type  uint16
	Code  uint16
	Value int32
}

// Press emits a key-down event for code.
func (k *Keyboard) Press(code uint16) error {
	return k.emit(code, 1)
}

// Release emits a key-up event for code.
func (k *Keyboard) Release(code uint16) error {
	return k.emit(code, 0)
}

// emit writes a sync record followed by the key record, matching the event
// order consumers of this device expect.
func (k *Keyboard) emit(code uint16, value int32) error {
	events := []inputEvent{
		{Type: unix.EV_SYN},
		{Type: unix.EV_KEY, Code: code, Value: value},
	}
	var buf bytes.Buffer
	for _, ev := range events {
		_ = binary.Write(&buf, binary.NativeEndian, ev)
	}
	if _, err := k.f.Write(buf.Bytes()); err != nil {
		return fmt.Errorf("uinput: write key event: %w", err)
	}
	return nil
}

// Close destroys the kernel device and releases the node. Idempotent.
func (k *Keyboard) Close() error {
	if k.closed {
		return nil
	}
	k.closed = true
	if err := ioctlSetInt(int(k.f.Fd()), uiDevDestroy, 0); err != nil {
		k.logger.WithError(err).Warn("Failed to destroy virtual keyboard")
	}
	return k.f.Close()
}
