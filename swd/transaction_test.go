package swd

import (
	"testing"
	"unsafe"

	"github.com/adamgreig/ffp/soc/gpio"
	"github.com/adamgreig/ffp/soc/spi"
)

// fakeSPI is a test double for spiEngine: it records every Tx call and
// answers Rx4/Rx5/RDataPhase from a scripted queue, letting tests drive
// readRetry/writeRetry through a full transaction (including WAIT retries)
// without real hardware.
type fakeSPI struct {
	txLog []uint8

	rx4Queue []uint8
	rx5Queue []uint8

	rdata uint32
	rlast uint8

	wdataCalls []wdataCall
}

type wdataCall struct {
	data   uint32
	parity uint8
}

func (f *fakeSPI) Enable()               {}
func (f *fakeSPI) Disable()              {}
func (f *fakeSPI) SetClock(spi.Clock)    {}
func (f *fakeSPI) Drain()                {}
func (f *fakeSPI) Tx4(v uint8)           { f.txLog = append(f.txLog, v) }
func (f *fakeSPI) Tx5(v uint8)           { f.txLog = append(f.txLog, v) }
func (f *fakeSPI) Tx8(v uint8)           { f.txLog = append(f.txLog, v) }

func (f *fakeSPI) Rx4() uint8 {
	v := f.rx4Queue[0]
	f.rx4Queue = f.rx4Queue[1:]
	return v
}

func (f *fakeSPI) Rx5() uint8 {
	v := f.rx5Queue[0]
	f.rx5Queue = f.rx5Queue[1:]
	return v
}

func (f *fakeSPI) WDataPhase(data uint32, parity uint8) {
	f.wdataCalls = append(f.wdataCalls, wdataCall{data, parity})
}

func (f *fakeSPI) RDataPhase(pins *gpio.Pins) (uint32, uint8) {
	return f.rdata, f.rlast
}

var _ spiEngine = (*fakeSPI)(nil)

// fakePins backs a *gpio.Pins with real host memory, the same technique
// used in the dap package's fakeDAP helper, so SWDTX/SWDRX/mode-switch
// calls run against addressable memory instead of a real GPIO block.
func fakePins(t *testing.T) *gpio.Pins {
	t.Helper()
	gpioA := new([0x30 / 4]uint32)
	gpioB := new([0x30 / 4]uint32)
	portA := &gpio.Port{Base: uintptr(unsafe.Pointer(&gpioA[0]))}
	portB := &gpio.Port{Base: uintptr(unsafe.Pointer(&gpioB[0]))}

	return gpio.NewPins(
		portA.Pin(8), portA.Pin(4), portB.Pin(0), portA.Pin(5),
		portA.Pin(6), portA.Pin(7), portA.Pin(14), portA.Pin(15),
		portB.Pin(1), portB.Pin(2),
	)
}

func TestReadDPSuccess(t *testing.T) {
	f := &fakeSPI{
		rx4Queue: []uint8{0b0010}, // (0b0010 >> 1) & 0b111 == ackOK
		rdata:    0x12345678,
		rlast:    0x01, // parity bit = popcount(0x12345678) & 1 == 1
	}
	s := New(f, fakePins(t))

	got, err := s.ReadDP(DPIDR)
	if err != nil {
		t.Fatalf("ReadDP(DPIDR) error = %v, want nil", err)
	}
	if got != 0x12345678 {
		t.Errorf("ReadDP(DPIDR) = %#x, want %#x", got, 0x12345678)
	}

	wantReq := makeRequest(DP, uint8(DPIDR), false)
	if len(f.txLog) == 0 || f.txLog[0] != wantReq {
		t.Errorf("first byte sent = %v, want request byte %#x", f.txLog, wantReq)
	}
}

func TestReadDPBadParity(t *testing.T) {
	f := &fakeSPI{
		rx4Queue: []uint8{0b0010},
		rdata:    0x12345678,
		rlast:    0x00, // wrong parity bit
	}
	s := New(f, fakePins(t))

	if _, err := s.ReadDP(DPIDR); err != ErrBadParity {
		t.Errorf("ReadDP with flipped parity = %v, want ErrBadParity", err)
	}
}

func TestReadDPWaitThenOK(t *testing.T) {
	f := &fakeSPI{
		rx4Queue: []uint8{0b0100, 0b0010}, // ackWait, then ackOK
		rdata:    0xdeadbeef,
		rlast:    0x00, // popcount(0xdeadbeef) is 24, even
	}
	s := New(f, fakePins(t))
	s.SetWaitRetries(1)

	got, err := s.ReadDP(DPIDR)
	if err != nil {
		t.Fatalf("ReadDP after one WAIT = %v, want nil error", err)
	}
	if got != 0xdeadbeef {
		t.Errorf("ReadDP after WAIT retry = %#x, want %#x", got, 0xdeadbeef)
	}
}

func TestReadDPWaitExhausted(t *testing.T) {
	f := &fakeSPI{
		rx4Queue: []uint8{0b0100, 0b0100}, // ackWait twice, no retries left
	}
	s := New(f, fakePins(t))
	s.SetWaitRetries(1)

	if _, err := s.ReadDP(DPIDR); err != ErrAckWait {
		t.Errorf("ReadDP with exhausted retries = %v, want ErrAckWait", err)
	}
}

func TestWriteDPSuccess(t *testing.T) {
	f := &fakeSPI{
		rx5Queue: []uint8{0b00010}, // (0b00010 >> 1) & 0b111 == ackOK
	}
	s := New(f, fakePins(t))

	v := uint32(0xaabbccdd)
	if err := s.WriteDP(DPAbort, v); err != nil {
		t.Fatalf("WriteDP error = %v, want nil", err)
	}

	if len(f.wdataCalls) != 1 {
		t.Fatalf("WDataPhase called %d times, want 1", len(f.wdataCalls))
	}
	if f.wdataCalls[0].data != v {
		t.Errorf("WDataPhase data = %#x, want %#x", f.wdataCalls[0].data, v)
	}
	wantParity := popcount(v) & 1
	if f.wdataCalls[0].parity != wantParity {
		t.Errorf("WDataPhase parity = %d, want %d", f.wdataCalls[0].parity, wantParity)
	}

	wantReq := makeRequest(DP, uint8(DPAbort), true)
	if len(f.txLog) == 0 || f.txLog[0] != wantReq {
		t.Errorf("first byte sent = %v, want request byte %#x", f.txLog, wantReq)
	}
}

func TestWriteDPFault(t *testing.T) {
	f := &fakeSPI{
		rx5Queue: []uint8{0b01000}, // (0b01000 >> 1) & 0b111 == ackFault
	}
	s := New(f, fakePins(t))

	if err := s.WriteDP(DPCtrlStat, 0); err != ErrAckFault {
		t.Errorf("WriteDP with FAULT ack = %v, want ErrAckFault", err)
	}
	if len(f.wdataCalls) != 0 {
		t.Error("WDataPhase called despite a FAULT ack")
	}
}
