// Package usb implements the STM32 USB full-speed device controller: a
// fixed five-endpoint-plus-control layout, buffer-table-addressed packet
// memory, and the write-1-to-toggle STAT bit protocol the peripheral uses
// to hand ownership of each endpoint's buffer between hardware and
// firmware.
//
// Grounded on the teacher's soc/nxp/usb package for the overall shape
// (bus.go's register-address-caching USB struct, setup.go's standard
// request dispatch) and on control_endpoint.rs/mod.rs for the STM32-
// specific buffer-descriptor-table protocol and multi-packet control-IN
// staging; the corrected STAT toggle formulas are carried forward
// verbatim from mod.rs per spec.md's documented open question.
package usb

import (
	"github.com/adamgreig/ffp/internal/reg"
)

// USB peripheral register offsets, relative to Base.
const (
	offEP0R  = 0x00 // EP0R..EP7R follow at +4 each
	offCNTR  = 0x40
	offISTR  = 0x44
	offFNR   = 0x48
	offDADDR = 0x4c
	offBTABLE = 0x50
)

// EPnR bit positions.
const (
	epCTRRX  = 15
	epDTOGRX = 14
	epSTATRX = 12 // 2-bit field
	epSETUP  = 11
	epTYPE   = 9 // 2-bit field
	epKIND   = 8
	epCTRTX  = 7
	epDTOGTX = 6
	epSTATTX = 4 // 2-bit field
	epEA     = 0 // 4-bit field
)

// EP_TYPE field values.
const (
	epTypeBulk       = 0b00
	epTypeControl    = 0b01
	epTypeISO        = 0b10
	epTypeInterrupt  = 0b11
)

// STAT field values, before any write-1-to-toggle transform is applied.
const (
	statDisabled = 0b00
	statStall    = 0b01
	statNAK      = 0b10
	statValid    = 0b11
)

// CNTR bit positions.
const (
	cntrFRES  = 0
	cntrPDWN  = 1
	cntrRESETM = 10
	cntrSUSPM  = 11
	cntrCTRM   = 15
)

// ISTR bit positions.
const (
	istrEPID  = 0 // 4-bit field
	istrDIR   = 4
	istrESOF  = 8
	istrSOF   = 9
	istrRESET = 10
	istrSUSP  = 11
	istrWKUP  = 12
	istrCTR   = 15
)

// DADDR bit positions.
const daddrEF = 7

// Endpoint numbers, fixed by the descriptor layout (spec.md §4.6).
const (
	EP0 = 0 // control
	EP1 = 1 // SPI bulk
	EP2 = 2 // DAPv1 interrupt/HID
	EP3 = 3 // DAPv2 bulk
	EP4 = 4 // SWO streaming IN
)

// statToggle computes the write-1-to-toggle value needed to move a
// 2-bit write-1-to-toggle STAT field from its current value to want.
// These are the corrected formulas (spec.md §9): an earlier firmware
// revision had the disabled/stall cases inverted.
func statToggle(current, want uint32) uint32 {
	switch want {
	case statDisabled:
		return (current & 0b10) | (current & 0b01)
	case statStall:
		return (current & 0b10) | (^current & 0b01)
	case statNAK:
		return (^current & 0b10) | (current & 0b01)
	case statValid:
		return (^current & 0b10) | (^current & 0b01)
	}
	return 0
}

// Endpoint is the capability set every endpoint type implements; the
// stack dispatches interrupts to one of these by endpoint number.
type Endpoint interface {
	WriteBTable()
	ResetEndpoint()
	ConfigureEndpoint()
	ProcessTransfer(ctrTX, ctrRX bool) *StackRequest
	TransmitSlice(data []byte)
	RxValid()
	RxStall()
}

// StackRequest is a deferred side effect recorded at SETUP time and
// released to the app only after the corresponding ACK's TX-complete
// event fires, so the host has observed the ACK before device state
// changes underneath it.
type StackRequest struct {
	SetAddress     bool
	Address        uint8
	SetConfigured  bool
	Reset          bool
	Suspend        bool
	Bootload       bool
	Vendor         *VendorRequest
}

// VendorRequest carries a parsed vendor control request through to the
// app coordinator for anything that isn't handled entirely within the
// USB stack (pin sets, mode changes, etc).
type VendorRequest struct {
	Request uint8
	Value   uint16
}

// USB drives the USB peripheral and its five-plus-control endpoints.
type USB struct {
	base   uintptr
	epBuf  uintptr // USB packet-memory base (PMA)

	ep0r, ep1r, ep2r, ep3r, ep4r uintptr

	endpoints [5]Endpoint

	pendingAddress uint8
	havePendingAddr bool
}

// New returns a USB controller instance.
func New(base, epBuf uintptr) *USB {
	u := &USB{base: base, epBuf: epBuf}
	u.ep0r = base + offEP0R + 0*4
	u.ep1r = base + offEP0R + 1*4
	u.ep2r = base + offEP0R + 2*4
	u.ep3r = base + offEP0R + 3*4
	u.ep4r = base + offEP0R + 4*4
	return u
}

// SetEndpoints wires the concrete endpoint implementations into their
// fixed slots.
func (u *USB) SetEndpoints(ep0, ep1, ep2, ep3, ep4 Endpoint) {
	u.endpoints = [5]Endpoint{ep0, ep1, ep2, ep3, ep4}
}

func (u *USB) cntr() uintptr  { return u.base + offCNTR }
func (u *USB) istr() uintptr  { return u.base + offISTR }
func (u *USB) daddr() uintptr { return u.base + offDADDR }
func (u *USB) btableReg() uintptr { return u.base + offBTABLE }

func (u *USB) epr(n int) uintptr {
	switch n {
	case 0:
		return u.ep0r
	case 1:
		return u.ep1r
	case 2:
		return u.ep2r
	case 3:
		return u.ep3r
	default:
		return u.ep4r
	}
}

// setStat sets EPnR's STAT_TX or STAT_RX field, using the
// write-1-to-toggle protocol. tx selects STAT_TX over STAT_RX.
func (u *USB) setStat(n int, tx bool, want uint32) {
	pos := epSTATRX
	if tx {
		pos = epSTATTX
	}
	epr := u.epr(n)
	current := reg.Get(epr, pos, 0b11)
	toggle := statToggle(current, want)

	// EPnR mixes toggle bits (STAT, DTOG) with plain read/write bits
	// (EP_TYPE, EA) and write-0-to-clear bits (CTR_RX, CTR_TX); writing
	// the register back verbatim except for the toggle field would
	// re-trigger the clear-on-write bits and flip the other toggle bits,
	// so the clear-on-write bits are always written back as 1 (no-op) and
	// every toggle bit as 0 (no-op) except the computed toggle value.
	v := reg.Read(epr)
	v |= (1 << epCTRRX) | (1 << epCTRTX)
	v &^= (0b11 << epSTATRX) | (0b11 << epSTATTX) | (1 << epDTOGRX) | (1 << epDTOGTX)
	v |= toggle << uint(pos)
	reg.Write(epr, v)
}

// Power runs the power-on sequence: set PDWN (with FRES clear), clear
// PDWN, pulse FRES, and clear ISTR. It does not wait between these steps
// for the transceiver or analog front-end to settle.
func (u *USB) Power() {
	reg.Write(u.cntr(), 1<<cntrPDWN)
	reg.Clear(u.cntr(), cntrPDWN)
	reg.Set(u.cntr(), cntrFRES)
	reg.Clear(u.cntr(), cntrFRES)
	reg.Write(u.istr(), 0)
}

// Attach writes BTABLE, enables the reset/suspend/correct-transfer
// interrupts, and presents the D+ pull-up by enabling the function
// (DADDR.EF with address 0).
func (u *USB) Attach() {
	reg.Write(u.btableReg(), uint32(u.epBuf&0xfff8))
	reg.Set(u.cntr(), cntrRESETM)
	reg.Set(u.cntr(), cntrSUSPM)
	reg.Set(u.cntr(), cntrCTRM)
	reg.Write(u.daddr(), 1<<daddrEF)
}

// Detach removes the D+ pull-up, used immediately after a bootload
// request's ACK so the device disappears from the bus before rebooting.
func (u *USB) Detach() {
	reg.Clear(u.daddr(), daddrEF)
}

// reset reconfigures every endpoint after a bus reset.
func (u *USB) reset() {
	for _, ep := range u.endpoints {
		ep.WriteBTable()
		ep.ResetEndpoint()
		ep.ConfigureEndpoint()
	}
	reg.Write(u.daddr(), 1<<daddrEF)
}

// Interrupt processes one pending USB interrupt and returns a
// StackRequest if a deferred side effect should now be released to the
// caller. It dispatches at most one transfer-complete event before
// returning, matching the single-threaded cooperative scheduling model.
func (u *USB) Interrupt() *StackRequest {
	istr := reg.Read(u.istr())

	if istr&(1<<istrRESET) != 0 {
		reg.Write(u.istr(), ^uint32(1<<istrRESET))
		u.reset()
		return &StackRequest{Reset: true}
	}

	if istr&(1<<istrCTR) != 0 {
		n := int(istr & 0b1111)
		dir := istr&(1<<istrDIR) != 0 // true: OUT/SETUP, false: IN

		epr := u.epr(n)
		ctrRX := reg.Get(epr, epCTRRX, 1) == 1
		ctrTX := reg.Get(epr, epCTRTX, 1) == 1

		if ctrRX {
			reg.Clear(epr, epCTRRX)
		}
		if ctrTX {
			reg.Clear(epr, epCTRTX)
		}
		_ = dir

		if n < len(u.endpoints) {
			return u.endpoints[n].ProcessTransfer(ctrTX, ctrRX)
		}
	}

	if istr&(1<<istrSUSP) != 0 {
		reg.Write(u.istr(), ^uint32(1<<istrSUSP))
		return &StackRequest{Suspend: true}
	}

	return nil
}
