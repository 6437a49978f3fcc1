package dispatch

import (
	"fmt"
	"strings"
)

// Code is a single-character command understood by the RF transmitter firmware
type Code byte

// The transmitter alphabet. Power codes drive socket 1, toggle codes socket 2.
const (
	CodePowerOn  Code = 'a'
	CodePowerOff Code = 'b'
	CodeToggleA  Code = 'c'
	CodeToggleB  Code = 'd'
)

// Codes lists the full alphabet in code order
var Codes = []Code{CodePowerOn, CodePowerOff, CodeToggleA, CodeToggleB}

var codeNames = map[Code]string{
	CodePowerOn:  "power-on",
	CodePowerOff: "power-off",
	CodeToggleA:  "toggle-a",
	CodeToggleB:  "toggle-b",
}

// String returns the character followed by its name, e.g. "a (power-on)"
func (c Code) String() string {
	if name, ok := codeNames[c]; ok {
		return fmt.Sprintf("%c (%s)", byte(c), name)
	}
	return fmt.Sprintf("0x%02x (unknown)", byte(c))
}

// Name returns the symbolic name of the code, or "" if it is not in the alphabet
func (c Code) Name() string {
	return codeNames[c]
}

// Valid reports whether c is part of the transmitter alphabet
func (c Code) Valid() bool {
	_, ok := codeNames[c]
	return ok
}

// ParseCode accepts either the raw character ("a") or the name ("power-on")
func ParseCode(s string) (Code, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	if len(s) == 1 {
		if c := Code(s[0]); c.Valid() {
			return c, nil
		}
	}
	for c, name := range codeNames {
		if name == s {
			return c, nil
		}
	}
	return 0, fmt.Errorf("unknown command code %q (expected one of a, b, c, d, power-on, power-off, toggle-a, toggle-b)", s)
}
