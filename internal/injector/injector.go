// Package injector turns a validated digit payload into a timed sequence of
// key press/release events on the virtual keyboard.
package injector

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/runekey/runekey/internal/keymap"
)

// Validation and emission failures, mapped onto BlueZ protocol errors by the
// gatt package.
var (
	ErrInvalidLength    = errors.New("injector: invalid value length")
	ErrInvalidCharacter = errors.New("injector: invalid character")
	ErrInjectionFailed  = errors.New("injector: key emission failed")
)

const (
	// MaxLen bounds a single written value.
	MaxLen = 32

	// holdDelay is how long each key stays pressed, and how long the device
	// rests after the release. Virtual-keyboard consumers drop presses held
	// shorter than this.
	holdDelay = 50 * time.Millisecond
)

// Device is the keyboard the injector types on.
type Device interface {
	Press(code uint16) error
	Release(code uint16) error
}

// Injector validates written payloads and types them on the device,
// followed by Enter. Inject calls are serialized: sequences from concurrent
// writes never interleave.
type Injector struct {
	mu     sync.Mutex
	dev    Device
	logger *logrus.Logger
	hold   func(time.Duration)
}

// New returns an Injector typing on dev.
func New(logger *logrus.Logger, dev Device) *Injector {
	return &Injector{
		dev:    dev,
		logger: logger,
		hold:   time.Sleep,
	}
}

// Inject types value then Enter. Validation covers the whole payload before
// the first event: a rejected payload emits no keys at all. A device write
// failure mid-sequence aborts the remainder; already-typed keys stay typed.
func (inj *Injector) Inject(value []byte) error {
	if len(value) == 0 || len(value) > MaxLen {
		return fmt.Errorf("%w: got %d bytes, want 1..%d", ErrInvalidLength, len(value), MaxLen)
	}
	codes := make([]uint16, 0, len(value)+1)
	for _, b := range value {
		code, ok := keymap.KeyFor(b)
		if !ok {
			return fmt.Errorf("%w: byte %#x", ErrInvalidCharacter, b)
		}
		codes = append(codes, code)
	}
	codes = append(codes, keymap.KeyEnter)

	inj.mu.Lock()
	defer inj.mu.Unlock()

	inj.logger.WithField("keys", len(codes)).Debug("Typing sequence")
	for _, code := range codes {
		if err := inj.tap(code); err != nil {
			return err
		}
	}
	return nil
}

// Quiesce blocks until any in-flight injection has finished. The daemon
// calls this before destroying the device so a running sequence completes
// or fails on its own terms.
func (inj *Injector) Quiesce() {
	inj.mu.Lock()
	defer inj.mu.Unlock()
}

// tap presses and releases one key with the hold delay on both edges.
func (inj *Injector) tap(code uint16) error {
	if err := inj.dev.Press(code); err != nil {
		return fmt.Errorf("%w: %v", ErrInjectionFailed, err)
	}
	inj.hold(holdDelay)
	if err := inj.dev.Release(code); err != nil {
		return fmt.Errorf("%w: %v", ErrInjectionFailed, err)
	}
	inj.hold(holdDelay)
	return nil
}
