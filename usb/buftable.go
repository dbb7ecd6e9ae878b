package usb

import (
	"github.com/adamgreig/ffp/internal/reg"
)

// bufDescriptor is one entry of the USB buffer descriptor table: four
// packed 16-bit fields (ADDR_TX, COUNT_TX, ADDR_RX, COUNT_RX), each
// stored in the low halfword of its own 32-bit packet-memory word since
// the peripheral's dedicated SRAM is accessed a halfword at a time.
type bufDescriptor struct {
	base uintptr // address of this endpoint's 16-byte (four-word) BTABLE entry
}

func newBufDescriptor(btable uintptr, n int) bufDescriptor {
	return bufDescriptor{base: btable + uintptr(n*16)}
}

func (b bufDescriptor) addrTxReg() uintptr   { return b.base + 0 }
func (b bufDescriptor) countTxReg() uintptr  { return b.base + 4 }
func (b bufDescriptor) addrRxReg() uintptr   { return b.base + 8 }
func (b bufDescriptor) countRxReg() uintptr  { return b.base + 12 }

func (b bufDescriptor) SetAddrTx(addr uintptr)  { reg.Write(b.addrTxReg(), uint32(addr)) }
func (b bufDescriptor) SetCountTx(n uint16)     { reg.Write(b.countTxReg(), uint32(n)) }
func (b bufDescriptor) CountRx() uint16         { return uint16(reg.Read(b.countRxReg())) }

func (b bufDescriptor) SetAddrRx(addr uintptr) { reg.Write(b.addrRxReg(), uint32(addr)) }

// SetRxBufSize programs COUNT_RX's BL_SIZE/NUM_BLOCK fields for a
// single-buffer (not double-buffered) endpoint, following the hardware's
// two block-size encodings: 2-byte blocks up to 62 bytes, 32-byte blocks
// above that.
func (b bufDescriptor) SetRxBufSize(size uint16) {
	var numBlock uint32
	var blSize uint32
	if size <= 62 {
		numBlock = uint32(size / 2)
		blSize = 0
	} else {
		numBlock = uint32(size/32) - 1
		blSize = 1
	}
	reg.Write(b.countRxReg(), (blSize<<15)|(numBlock<<10))
}

// pma is the flat view of USB packet memory used to copy payloads in and
// out of an endpoint's TX/RX buffers. The peripheral only exposes PMA at
// 16-bit granularity (every other byte in the CPU's address map is
// unused padding), so reads and writes go through halfwords. addr is
// always the absolute address of the buffer (as programmed into the
// buffer descriptor table), not an offset from some base.
type pma struct{}

func (pma) writeAt(addr uintptr, data []byte) {
	for i := 0; i < len(data); i += 2 {
		var hw uint32
		hw = uint32(data[i])
		if i+1 < len(data) {
			hw |= uint32(data[i+1]) << 8
		}
		reg.Write(addr+uintptr(i*2), hw)
	}
}

func (pma) readAt(addr uintptr, n int) []byte {
	out := make([]byte, n)
	for i := 0; i < n; i += 2 {
		hw := reg.Read(addr + uintptr(i*2))
		out[i] = byte(hw)
		if i+1 < n {
			out[i+1] = byte(hw >> 8)
		}
	}
	return out
}
