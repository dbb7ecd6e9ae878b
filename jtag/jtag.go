// Package jtag implements bit-banged JTAG, driven via the same pins the
// SWD engine borrows for its SWJ-shared lines (TMS=flash_si, TCK=sck,
// TDO=cs, TDI=fpga_rst). A fast path uses raw BSRR/BRR writes when
// TCK/TDI/TDO share a GPIO port; otherwise the generic Pin methods are
// used.
//
// Grounded directly on jtag.rs: sequences(), transfer_wo[_fast],
// transfer_rw[_fast], and bytes_for_bits() are straight translations.
package jtag

import (
	"github.com/adamgreig/ffp/internal/reg"
	"github.com/adamgreig/ffp/soc/gpio"
)

// JTAG drives the shared SWJ pins as a bit-banged JTAG master.
type JTAG struct {
	tms, tck, tdo, tdi *gpio.Pin

	samePort   bool
	port       uintptr
	tdiMask    uint32
	tckMask    uint32
	tdoMask    uint32
}

const (
	offBSRR = 0x18
	offBRR  = 0x28
	offIDR  = 0x10
)

// New returns a JTAG engine using pins.FlashSI as TMS, pins.SCK as TCK,
// pins.CS as TDO, and pins.FPGARst as TDI (the adapter's shared SWJ
// wiring). portBase/samePort identify whether TCK/TDI/TDO all live on one
// GPIO port, enabling the fast bit-bang path.
func New(pins *gpio.Pins, portBase uintptr, samePort bool, tdiN, tckN, tdoN uint8) *JTAG {
	return &JTAG{
		tms: pins.FlashSI, tck: pins.SCK, tdo: pins.CS, tdi: pins.FPGARst,
		samePort: samePort, port: portBase,
		tdiMask: 1 << tdiN, tckMask: 1 << tckN, tdoMask: 1 << tdoN,
	}
}

func bytesForBits(bits int) int {
	return (bits + 7) / 8
}

// Sequences processes a DAP_JTAG_Sequence request body: the first byte is
// the sequence count; each sequence is a header byte (bits[5:0]=clock
// count, 0 meaning 64; bit6=TMS; bit7=capture) followed by
// ceil(count/8) bytes of TDI data, LSbit first. Captured TDO data is
// written LSbit first into successive bytes of rxbuf. Returns the number
// of bytes of rxbuf written.
func (j *JTAG) Sequences(data []byte, rxbuf []byte) int {
	if len(data) == 0 {
		return 0
	}
	nseqs := data[0]
	data = data[1:]
	rxidx := 0

	for i := 0; i < int(nseqs); i++ {
		if len(data) == 0 {
			break
		}
		header := data[0]
		data = data[1:]

		capture := header & 0b1000_0000
		tms := header & 0b0100_0000
		nbits := int(header & 0b0011_1111)
		if nbits == 0 {
			nbits = 64
		}
		nbytes := bytesForBits(nbits)
		if len(data) < nbytes {
			break
		}

		tdi := data[:nbytes]
		data = data[nbytes:]

		j.tms.Set(boolState(tms != 0))

		if capture != 0 {
			j.transferRW(nbits, tdi, rxbuf[rxidx:])
			rxidx += nbytes
		} else {
			j.transferWO(nbits, tdi)
		}
	}

	return rxidx
}

func boolState(b bool) gpio.State {
	if b {
		return gpio.High
	}
	return gpio.Low
}

func (j *JTAG) transferWO(n int, tdi []byte) {
	if j.samePort {
		j.transferWOFast(n, tdi)
		return
	}

	for byteIdx, b := range tdi {
		for bitIdx := 0; bitIdx < 8; bitIdx++ {
			if byteIdx*8+bitIdx == n {
				return
			}
			j.tdi.Set(boolState(b&(1<<uint(bitIdx)) != 0))
			j.tck.High()
			j.tck.Low()
		}
	}
}

func (j *JTAG) transferWOFast(n int, tdi []byte) {
	for byteIdx, b := range tdi {
		for bitIdx := 0; bitIdx < 8; bitIdx++ {
			if byteIdx*8+bitIdx == n {
				return
			}
			if b&(1<<uint(bitIdx)) == 0 {
				reg.Write(j.port+offBRR, j.tdiMask)
			} else {
				reg.Write(j.port+offBSRR, j.tdiMask)
			}
			reg.Write(j.port+offBSRR, j.tckMask)
			reg.Write(j.port+offBRR, j.tckMask)
		}
	}
}

func (j *JTAG) transferRW(n int, tdi []byte, tdo []byte) {
	if j.samePort {
		j.transferRWFast(n, tdi, tdo)
		return
	}

	count := len(tdi)
	if len(tdo) < count {
		count = len(tdo)
	}
	for byteIdx := 0; byteIdx < count; byteIdx++ {
		tdo[byteIdx] = 0
		for bitIdx := 0; bitIdx < 8; bitIdx++ {
			if byteIdx*8+bitIdx == n {
				return
			}
			j.tdi.Set(boolState(tdi[byteIdx]&(1<<uint(bitIdx)) != 0))
			if j.tdo.IsHigh() {
				tdo[byteIdx] |= 1 << uint(bitIdx)
			}
			j.tck.High()
			j.tck.Low()
		}
	}
}

func (j *JTAG) transferRWFast(n int, tdi []byte, tdo []byte) {
	count := len(tdi)
	if len(tdo) < count {
		count = len(tdo)
	}
	for byteIdx := 0; byteIdx < count; byteIdx++ {
		tdo[byteIdx] = 0
		for bitIdx := 0; bitIdx < 8; bitIdx++ {
			if byteIdx*8+bitIdx == n {
				return
			}
			if tdi[byteIdx]&(1<<uint(bitIdx)) == 0 {
				reg.Write(j.port+offBRR, j.tdiMask)
			} else {
				reg.Write(j.port+offBSRR, j.tdiMask)
			}
			if reg.Read(j.port+offIDR)&j.tdoMask != 0 {
				tdo[byteIdx] |= 1 << uint(bitIdx)
			}
			reg.Write(j.port+offBSRR, j.tckMask)
			reg.Write(j.port+offBRR, j.tckMask)
		}
	}
}
