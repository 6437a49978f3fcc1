package dispatch

import (
	"sync"

	"github.com/muurk/yeebridge/internal/protocol"
)

// Result is the outcome of dispatching one request
type Result struct {
	Code   Code
	Mapped bool
}

// Unrecognized is the result for requests with no transmitter command
var Unrecognized = Result{}

// Dispatcher maps decoded requests onto transmitter codes.
//
// It owns the toggle flip-flop: the flag starts true, selects the code for
// the current toggle, and flips once per dispatched toggle. The lookup
// tables are fixed at construction. Dispatch is safe for concurrent use;
// the read-then-flip of the flag happens under one lock.
type Dispatcher struct {
	mu     sync.Mutex
	toggle bool

	powerCodes  map[string]Code
	toggleCodes map[bool]Code
}

// New creates a Dispatcher with the toggle flag set
func New() *Dispatcher {
	return &Dispatcher{
		toggle: true,
		powerCodes: map[string]Code{
			"on":  CodePowerOn,
			"off": CodePowerOff,
		},
		toggleCodes: map[bool]Code{
			true:  CodeToggleA,
			false: CodeToggleB,
		},
	}
}

// Dispatch returns the code for req, or Unrecognized.
//
//   - toggle: code for the current flag, then the flag flips
//   - set_power: "on" or "off" only; any other parameter is Unrecognized
//   - anything else is accepted by the protocol but not actuated
func (d *Dispatcher) Dispatch(req *protocol.Request) Result {
	if req == nil {
		return Unrecognized
	}

	switch req.Method {
	case protocol.MethodToggle:
		d.mu.Lock()
		code := d.toggleCodes[d.toggle]
		d.toggle = !d.toggle
		d.mu.Unlock()
		return Result{Code: code, Mapped: true}

	case protocol.MethodSetPower:
		if code, ok := d.PowerCode(req.Parameter); ok {
			return Result{Code: code, Mapped: true}
		}
		return Unrecognized

	default:
		return Unrecognized
	}
}

// PowerCode looks up the code for a set_power parameter
func (d *Dispatcher) PowerCode(param string) (Code, bool) {
	code, ok := d.powerCodes[param]
	return code, ok
}

// ToggleCode returns the code emitted for a toggle at the given flag value
func (d *Dispatcher) ToggleCode(flag bool) Code {
	return d.toggleCodes[flag]
}

// ToggleState returns the current flag, i.e. which code the next toggle emits
func (d *Dispatcher) ToggleState() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.toggle
}
