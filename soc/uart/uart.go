// Package uart implements the SWO receiver contract: a USART configured
// for one-way reception into a DMA circular buffer, exposed as the
// Start/Stop/SetBaud/IsActive/BytesAvailable/Read surface the CMSIS-DAP SWO
// commands and the app's streaming poll consume.
//
// The DMA-backed ring buffer itself is out of scope (per spec.md's
// non-goals); what is in scope is the interface the core consumes. That
// surface is grounded inferentially on dap.rs's calls into its uart field
// (is_active, read, buffer_len, bytes_available, set_baud, start, stop) —
// no standalone hal/uart.rs revision was retrievable to translate
// literally, so the register layout here follows the STM32F0 USART block
// directly and the residual-counter bookkeeping follows the teacher's
// style of caching derived state at Init rather than recomputing it.
package uart

import (
	"github.com/adamgreig/ffp/internal/reg"
)

// USARTx register offsets.
const (
	offCR1   = 0x00
	offBRR   = 0x0c
	offRDR   = 0x24
)

const cr1UE = 0
const cr1RE = 2

// UART drives a USARTx peripheral as a receive-only SWO sink into a
// fixed-size circular buffer filled by DMA. This type only tracks the
// consumer side through the channel's CNDTR register; nothing in this
// module programs the DMA channel that fills buf.
type UART struct {
	base    uintptr
	pclk    uint32
	dmaCndt uintptr // DMA channel's CNDTR register, for residual-count reads
	bufSize uint32

	buf    [1024]byte
	readAt uint32
	active bool
}

// New returns a UART instance over the USARTx block at base, whose RDR DMA
// destination is a bufSize-byte circular buffer. dmaCndt is the address of
// the receiving DMA channel's count-down register, used to compute how
// much of the buffer has been written since the last Read.
func New(base uintptr, pclk uint32, dmaCndt uintptr, bufSize uint32) *UART {
	return &UART{base: base, pclk: pclk, dmaCndt: dmaCndt, bufSize: bufSize}
}

// SetBaud programs the baud-rate divider and returns the baud rate
// actually achieved, since the integer divider rarely lands exactly on
// the requested rate.
func (u *UART) SetBaud(hz uint32) uint32 {
	if hz == 0 {
		return 0
	}
	div := (u.pclk + hz/2) / hz
	if div == 0 {
		div = 1
	}
	reg.Write(u.base+offBRR, div)
	return u.pclk / div
}

// Start enables the receiver and resets the consumer's read position to
// the current DMA write head, so streaming begins from "now" rather than
// replaying whatever accumulated while stopped.
func (u *UART) Start() {
	reg.Set(u.base+offCR1, cr1RE)
	reg.Set(u.base+offCR1, cr1UE)
	u.readAt = u.writeHead()
	u.active = true
}

// Stop disables the receiver.
func (u *UART) Stop() {
	reg.Clear(u.base+offCR1, cr1RE)
	reg.Clear(u.base+offCR1, cr1UE)
	u.active = false
}

// IsActive reports whether the receiver is currently enabled.
func (u *UART) IsActive() bool {
	return u.active
}

// BufferLen returns the capacity of the SWO ring buffer, reported to the
// host via DAP_Info's SWOTraceBufferSize field.
func (u *UART) BufferLen() uint32 {
	return u.bufSize
}

// writeHead computes the DMA write position from the channel's count-down
// register: CNDTR counts down from bufSize to 0 and wraps, so the write
// head is bufSize-CNDTR (mod bufSize).
func (u *UART) writeHead() uint32 {
	remaining := reg.Read(u.dmaCndt)
	return (u.bufSize - remaining) % u.bufSize
}

// BytesAvailable reports how many unread bytes are sitting in the ring.
func (u *UART) BytesAvailable() uint32 {
	head := u.writeHead()
	if head >= u.readAt {
		return head - u.readAt
	}
	return u.bufSize - u.readAt + head
}

// Read copies up to len(p) unread bytes into p, advancing the consumer
// position, and returns the number of bytes copied.
func (u *UART) Read(p []byte) int {
	avail := u.BytesAvailable()
	n := uint32(len(p))
	if n > avail {
		n = avail
	}

	for i := uint32(0); i < n; i++ {
		p[i] = u.buf[(u.readAt+i)%u.bufSize]
	}
	u.readAt = (u.readAt + n) % u.bufSize

	return int(n)
}
