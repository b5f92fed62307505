package authflow

import "strings"

// OTPLength is the number of single-digit slots in the code input.
const OTPLength = 6

// OTPInput models the six one-character boxes of the code entry, including
// which box currently has focus.
type OTPInput struct {
	slots [OTPLength]string
	focus int
}

// Enter writes value into slot i. Only digits are accepted; the last
// character wins when more than one is supplied and an empty value clears
// the slot. A non-empty entry moves focus to the next slot.
func (o *OTPInput) Enter(i int, value string) bool {
	if i < 0 || i >= OTPLength {
		return false
	}
	for _, r := range value {
		if r < '0' || r > '9' {
			return false
		}
	}

	if value != "" {
		value = value[len(value)-1:]
	}
	o.slots[i] = value
	o.focus = i
	if value != "" && i < OTPLength-1 {
		o.focus = i + 1
	}
	return true
}

// Backspace clears slot i, or moves focus back when it is already empty.
func (o *OTPInput) Backspace(i int) {
	if i < 0 || i >= OTPLength {
		return
	}
	if o.slots[i] != "" {
		o.slots[i] = ""
		o.focus = i
		return
	}
	if i > 0 {
		o.focus = i - 1
	}
}

// Reset empties every slot and returns focus to the first.
func (o *OTPInput) Reset() {
	*o = OTPInput{}
}

func (o OTPInput) Slots() [OTPLength]string {
	return o.slots
}

func (o OTPInput) Focus() int {
	return o.focus
}

func (o OTPInput) Code() string {
	return strings.Join(o.slots[:], "")
}

func (o OTPInput) Complete() bool {
	return len(o.Code()) == OTPLength
}
