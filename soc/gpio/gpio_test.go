package gpio

import (
	"unsafe"

	"testing"
)

// fakePort backs a Port with ordinary Go memory laid out like a GPIOx
// register block, so these tests exercise the real bit-manipulation code
// against addressable memory instead of real hardware.
func fakePort() *Port {
	backing := new([0x30 / 4]uint32)
	return &Port{Base: uintptr(unsafe.Pointer(&backing[0]))}
}

func TestSetModeAndState(t *testing.T) {
	port := fakePort()
	pin := port.Pin(3)

	pin.SetMode(ModeOutput)
	if got := readField(port, offMODER, 3, 2, 0b11); got != ModeOutput {
		t.Fatalf("MODER field = %d, want %d", got, ModeOutput)
	}

	pin.High()
	if pin.State() != High {
		t.Error("State() after High() = Low, want High")
	}

	pin.Low()
	if pin.State() != Low {
		t.Error("State() after Low() = High, want Low")
	}
}

func TestToggle(t *testing.T) {
	port := fakePort()
	pin := port.Pin(0)

	pin.Low()
	pin.Toggle()
	if pin.State() != High {
		t.Error("Toggle() from Low = Low, want High")
	}
	pin.Toggle()
	if pin.State() != Low {
		t.Error("Toggle() from High = High, want Low")
	}
}

func TestMemoizeModeApply(t *testing.T) {
	port := fakePort()
	pin := port.Pin(5)

	pin.SetMode(ModeAnalog)
	mask := pin.MemoizeMode(ModeAlternate)
	mask.Apply()

	if got := readField(port, offMODER, 5, 2, 0b11); got != ModeAlternate {
		t.Fatalf("MODER field after Apply = %d, want %d", got, ModeAlternate)
	}
}

func readField(p *Port, off uintptr, pinN uint8, bitWidth int, mask uint32) uint32 {
	r := *(*uint32)(unsafe.Pointer(p.Base + off))
	return (r >> (uint32(pinN) * uint32(bitWidth))) & mask
}
