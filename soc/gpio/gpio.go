// Package gpio implements the STM32 GPIO controller and the mode-memoised
// Pin abstraction used on the SWD/JTAG hot paths.
//
// This package is only meant to be used on the bare-metal firmware target;
// it talks directly to GPIOx_MODER/OTYPER/OSPEEDR/PUPDR/AFRL/AFRH/BSRR/BRR/IDR.
package gpio

import (
	"github.com/adamgreig/ffp/internal/reg"
)

// GPIOx register offsets (RM0091/RM0360 style STM32F0 GPIO block).
const (
	offMODER   = 0x00
	offOTYPER  = 0x04
	offOSPEEDR = 0x08
	offPUPDR   = 0x0c
	offIDR     = 0x10
	offODR     = 0x14
	offBSRR    = 0x18
	offAFRL    = 0x20
	offAFRH    = 0x24
	offBRR     = 0x28
)

// Mode field values for MODER.
const (
	ModeInput = iota
	ModeOutput
	ModeAlternate
	ModeAnalog
)

// OType field values for OTYPER.
const (
	PushPull = iota
	OpenDrain
)

// Pull field values for PUPDR.
const (
	PullNone = iota
	PullUp
	PullDown
)

// Speed field values for OSPEEDR.
const (
	SpeedLow = iota
	SpeedMedium
	SpeedHigh
	SpeedVeryHigh
)

// State is an output pin level.
type State int

const (
	Low State = iota
	High
)

// Port is a GPIO controller instance (one per GPIOx bank).
type Port struct {
	Base uintptr
}

// Pin is a single GPIO line on a Port.
type Pin struct {
	port *Port
	n    uint8
}

// Pin returns the Pin accessor for line n (0-15) of the port.
func (p *Port) Pin(n uint8) *Pin {
	if n > 15 {
		panic("invalid GPIO pin number")
	}
	return &Pin{port: p, n: n}
}

func (p *Pin) moder() uintptr   { return p.port.Base + offMODER }
func (p *Pin) otyper() uintptr  { return p.port.Base + offOTYPER }
func (p *Pin) ospeedr() uintptr { return p.port.Base + offOSPEEDR }
func (p *Pin) pupdr() uintptr   { return p.port.Base + offPUPDR }

// SetMode switches the pin between input/output/alternate/analog.
func (p *Pin) SetMode(mode uint32) *Pin {
	reg.SetN(p.moder(), int(p.n)*2, 0b11, mode)
	return p
}

// SetOType switches the output driver between push-pull and open-drain.
func (p *Pin) SetOType(otype uint32) *Pin {
	reg.SetN(p.otyper(), int(p.n), 0b1, otype)
	return p
}

// SetSpeed sets the output slew rate.
func (p *Pin) SetSpeed(speed uint32) *Pin {
	reg.SetN(p.ospeedr(), int(p.n)*2, 0b11, speed)
	return p
}

// SetPull configures the internal pull resistor.
func (p *Pin) SetPull(pull uint32) *Pin {
	reg.SetN(p.pupdr(), int(p.n)*2, 0b11, pull)
	return p
}

// SetAF selects the alternate function number routed to the pin.
func (p *Pin) SetAF(af uint32) *Pin {
	if p.n < 8 {
		reg.SetN(p.port.Base+offAFRL, int(p.n)*4, 0b1111, af)
	} else {
		reg.SetN(p.port.Base+offAFRH, int(p.n-8)*4, 0b1111, af)
	}
	return p
}

// High drives the pin high.
func (p *Pin) High() *Pin {
	reg.Write(p.port.Base+offBSRR, 1<<p.n)
	return p
}

// Low drives the pin low.
func (p *Pin) Low() *Pin {
	reg.Write(p.port.Base+offBRR, 1<<p.n)
	return p
}

// Set drives the pin to the given level.
func (p *Pin) Set(s State) *Pin {
	if s == High {
		return p.High()
	}
	return p.Low()
}

// Toggle flips the current output level.
func (p *Pin) Toggle() *Pin {
	if p.State() == High {
		return p.Low()
	}
	return p.High()
}

// State reads back the current output level from ODR.
func (p *Pin) State() State {
	if reg.Get(p.port.Base+offODR, int(p.n), 1) == 1 {
		return High
	}
	return Low
}

// IsHigh reads the input level from IDR.
func (p *Pin) IsHigh() bool {
	return reg.Get(p.port.Base+offIDR, int(p.n), 1) == 1
}

// ModeMask is a precomputed (mask, value) pair against a MODER register,
// letting a hot path flip a pin's mode with a single read-modify-write
// instead of recomputing the field offset every time.
type ModeMask struct {
	addr  uintptr
	mask  uint32
	value uint32
}

// Apply performs the memoised read-modify-write.
func (m ModeMask) Apply() {
	r := reg.Read(m.addr)
	reg.Write(m.addr, (r &^ m.mask) | m.value)
}

// MemoizeMode precomputes the (mask, value) pair for setting this pin to
// mode, for later repeated use via ModeMask.Apply.
func (p *Pin) MemoizeMode(mode uint32) ModeMask {
	offset := uint(p.n) * 2
	mask := uint32(0b11) << offset
	value := (mode << offset) & mask
	return ModeMask{addr: p.moder(), mask: mask, value: value}
}
