// Package keymap maps characteristic payload bytes onto Linux input key
// codes. Only the ASCII digits are typeable; everything else is rejected
// before any key event is emitted.
package keymap

// Linux input key codes (linux/input-event-codes.h). golang.org/x/sys does
// not carry them, so the few codes this daemon can emit are defined here.
const (
	Key1     uint16 = 2
	Key2     uint16 = 3
	Key3     uint16 = 4
	Key4     uint16 = 5
	Key5     uint16 = 6
	Key6     uint16 = 7
	Key7     uint16 = 8
	Key8     uint16 = 9
	Key9     uint16 = 10
	Key0     uint16 = 11
	KeyEnter uint16 = 28
)

var digitKeys = [10]uint16{Key0, Key1, Key2, Key3, Key4, Key5, Key6, Key7, Key8, Key9}

// KeyFor returns the key code for a payload byte. ok is false for any byte
// outside '0'..'9'.
func KeyFor(b byte) (code uint16, ok bool) {
	if b < '0' || b > '9' {
		return 0, false
	}
	return digitKeys[b-'0'], true
}

// Emittable lists every key code the virtual keyboard must declare at
// device-creation time: the ten digits plus Enter.
func Emittable() []uint16 {
	keys := make([]uint16, 0, len(digitKeys)+1)
	keys = append(keys, digitKeys[:]...)
	return append(keys, KeyEnter)
}
