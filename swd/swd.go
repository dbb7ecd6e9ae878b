// Package swd drives the SPI engine as a bidirectional Serial Wire Debug
// interface: line reset, the JTAG-to-SWD escape sequence, and DP/AP
// register read/write transactions with WAIT retry.
//
// Grounded on swd.rs, generalised with the WAIT-retry loop spec.md §4.3
// requires (the retrieved swd.rs revision predates that addition; the
// retry structure below follows the same recursive shape its ACK handling
// already uses for the non-WAIT cases).
package swd

import (
	"errors"

	"github.com/adamgreig/ffp/soc/gpio"
	"github.com/adamgreig/ffp/soc/spi"
)

// Errors returned by read/write transactions.
var (
	ErrBadParity     = errors.New("swd: bad parity")
	ErrAckWait       = errors.New("swd: ack wait (exhausted retries)")
	ErrAckFault      = errors.New("swd: ack fault")
	ErrAckProtocol   = errors.New("swd: ack protocol error")
)

// ErrAckUnknown is returned when the 3-bit ACK field holds a value none of
// OK/WAIT/FAULT defines.
type ErrAckUnknown uint8

func (e ErrAckUnknown) Error() string { return "swd: unknown ack" }

const (
	ackOK     = 0b001
	ackWait   = 0b010
	ackFault  = 0b100
)

// Port selects the DP or AP register space for a transaction.
type Port int

const (
	DP Port = iota
	AP
)

// DPRegister names the four word-aligned DP registers (address bits A[3:2]).
type DPRegister uint8

const (
	DPIDR    DPRegister = 0b00
	DPAbort  DPRegister = 0b00
	DPCtrlStat DPRegister = 0b01
	DPSelect DPRegister = 0b10
	DPRDBuff DPRegister = 0b11
)

// spiEngine is the subset of *spi.SPI's surface the SWD engine drives,
// pulled out as an interface so tests can substitute a fake transport
// instead of a real SPI peripheral.
type spiEngine interface {
	Enable()
	Disable()
	SetClock(spi.Clock)
	Tx4(v uint8)
	Tx5(v uint8)
	Tx8(v uint8)
	Rx4() uint8
	Rx5() uint8
	Drain()
	WDataPhase(data uint32, parity uint8)
	RDataPhase(pins *gpio.Pins) (uint32, uint8)
}

var _ spiEngine = (*spi.SPI)(nil)

// SWD drives an SPI engine and pin set as a Serial Wire Debug master.
type SWD struct {
	spi  spiEngine
	pins *gpio.Pins

	waitRetries int
}

// New returns an SWD engine driving spi and pins.
func New(s spiEngine, pins *gpio.Pins) *SWD {
	return &SWD{spi: s, pins: pins, waitRetries: 0}
}

// SetClock sets the SPI clock divider used for all subsequent transactions.
func (s *SWD) SetClock(c spi.Clock) {
	s.spi.SetClock(c)
}

// SPIEnable turns the underlying SPI peripheral on, on entry to SWD mode.
func (s *SWD) SPIEnable() { s.spi.Enable() }

// SPIDisable turns the underlying SPI peripheral off, on exit from SWD mode.
func (s *SWD) SPIDisable() { s.spi.Disable() }

// SetWaitRetries sets how many additional attempts a transaction makes
// after receiving a WAIT ack before giving up.
func (s *SWD) SetWaitRetries(n int) {
	s.waitRetries = n
}

// LineReset issues the standard SWD line reset and mode-entry sequence:
// at least 50 ones, the JTAG-to-SWD escape word 0xE79E, at least 50 more
// ones, then 4 idle (zero) clocks.
func (s *SWD) LineReset() {
	s.pins.SWDTX()
	for i := 0; i < 7; i++ {
		s.spi.Tx8(0xff)
	}
	s.spi.Tx8(0x9e)
	s.spi.Tx8(0xe7)
	for i := 0; i < 7; i++ {
		s.spi.Tx8(0xff)
	}
	s.spi.Tx4(0x00)
}

// TxSequence clocks out an arbitrary raw bit sequence, used by the DAP
// layer's DAP_SWJ_Sequence. bits is the number of bits to send from seq,
// LSbit first within each byte.
func (s *SWD) TxSequence(seq []byte, bits int) {
	s.pins.SWDTX()
	full := bits / 8
	for i := 0; i < full; i++ {
		s.spi.Tx8(seq[i])
	}
	if rem := bits % 8; rem > 0 {
		s.spi.Tx8(seq[full])
	}
}

func makeRequest(port Port, reg uint8, write bool) uint8 {
	apndp := uint8(0)
	if port == AP {
		apndp = 1
	}
	rnw := uint8(1)
	if write {
		rnw = 0
	}
	a := reg & 0b11

	var parity uint8
	for _, b := range []uint8{apndp, rnw, a & 1, (a >> 1) & 1} {
		parity ^= b
	}

	// start=1, APnDP, RnW, A[2:3], parity, stop=0, park=1
	req := uint8(1)
	req |= apndp << 1
	req |= rnw << 2
	req |= a << 3
	req |= parity << 5
	req |= 1 << 7 // park
	return req
}

func checkAck(ack uint8) error {
	switch ack {
	case ackOK:
		return nil
	case ackWait:
		return ErrAckWait
	case ackFault:
		return ErrAckFault
	case 0b111:
		return ErrAckProtocol
	default:
		return ErrAckUnknown(ack)
	}
}

func popcount(v uint32) uint8 {
	var n uint8
	for v != 0 {
		n += uint8(v & 1)
		v >>= 1
	}
	return n
}

// ReadDP reads a Debug Port register.
func (s *SWD) ReadDP(r DPRegister) (uint32, error) {
	return s.read(DP, uint8(r))
}

// WriteDP writes a Debug Port register.
func (s *SWD) WriteDP(r DPRegister, v uint32) error {
	return s.write(DP, uint8(r), v)
}

// ReadAP issues an AP register read. Per the posted-read model, the
// returned value belongs to the *previous* AP/RDBUFF read, not this
// address; callers follow up with a DPRDBuff read to retrieve it.
func (s *SWD) ReadAP(a uint8) (uint32, error) {
	return s.read(AP, a)
}

// WriteAP writes an AP register.
func (s *SWD) WriteAP(a uint8, v uint32) error {
	return s.write(AP, a, v)
}

func (s *SWD) read(port Port, a uint8) (uint32, error) {
	return s.readRetry(port, a, s.waitRetries)
}

func (s *SWD) readRetry(port Port, a uint8, retries int) (uint32, error) {
	req := makeRequest(port, a, false)

	s.pins.SWDTX()
	s.spi.Tx8(req)

	s.pins.SWDRX()
	s.spi.Drain()
	// Rx4 captures the 1-bit turnaround followed by the 3-bit ack; the
	// peripheral has no RXONLY mode, so Tx4(0) drives the clock for the
	// capture. The ack occupies bits [3:1] of the 4-bit capture.
	s.spi.Tx4(0)
	ack := (s.spi.Rx4() >> 1) & 0b111

	if ack == ackWait && retries > 0 {
		s.pins.SWDTX()
		return s.readRetry(port, a, retries-1)
	}
	if err := checkAck(ack); err != nil {
		s.pins.SWDTX()
		return 0, err
	}

	data, last := s.spi.RDataPhase(s.pins)
	parity := last & 1

	if parity != popcount(data)&1 {
		return 0, ErrBadParity
	}
	return data, nil
}

func (s *SWD) write(port Port, a uint8, v uint32) error {
	return s.writeRetry(port, a, v, s.waitRetries)
}

func (s *SWD) writeRetry(port Port, a uint8, v uint32, retries int) error {
	req := makeRequest(port, a, true)

	s.pins.SWDTX()
	s.spi.Tx8(req)

	s.pins.SWDRX()
	s.spi.Drain()
	// Rx5 captures turnaround + ack + turnaround; Tx5(0) drives the
	// clock for the capture. The ack occupies bits [3:1] of the 5-bit
	// capture.
	s.spi.Tx5(0)
	ack := (s.spi.Rx5() >> 1) & 0b111

	if ack == ackWait && retries > 0 {
		s.pins.SWDTX()
		return s.writeRetry(port, a, v, retries-1)
	}
	if err := checkAck(ack); err != nil {
		s.pins.SWDTX()
		return err
	}

	s.pins.SWDTX()
	var parity uint8
	for i := 0; i < 32; i++ {
		parity ^= uint8(v>>uint(i)) & 1
	}
	s.spi.WDataPhase(v, parity)

	return nil
}
