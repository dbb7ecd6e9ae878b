// The four non-control endpoints: each is a thin single-buffered
// request/response or streaming pipe, differing only in transfer type
// and which fixed-size report callback the app wires in.
//
// Grounded on control_endpoint.rs's sibling endpoint handling in mod.rs
// (every non-control endpoint shares the same ProcessTransfer shape:
// copy the OUT packet out of packet memory, hand it to a callback,
// transmit whatever the callback returns).
package usb

import "github.com/adamgreig/ffp/internal/reg"

// ReportHandler answers one fixed-size report with a reply to transmit,
// or nil to transmit nothing.
type ReportHandler func(report []byte) []byte

// Reporter is implemented by every non-control endpoint constructor's
// return value, letting callers outside the package wire a handler onto
// the Endpoint interface value without exposing the concrete type.
type Reporter interface {
	SetHandler(ReportHandler)
}

// simpleEndpoint implements Endpoint for a single bulk/interrupt pipe
// with one OUT buffer and one IN buffer, both single-buffered (no
// double-buffering, matching the original firmware's simplicity).
type simpleEndpoint struct {
	usb *USB
	n   int
	bt  bufDescriptor
	pm  pma

	txOff, rxOff   uintptr
	txSize, rxSize uint16
	epType         uint32
	bidirectional  bool

	handler ReportHandler
}

func newSimpleEndpoint(u *USB, n int, btable, pmaBase, txOff, rxOff uintptr, size uint16, epType uint32, bidirectional bool) *simpleEndpoint {
	return &simpleEndpoint{
		usb: u, n: n, bt: newBufDescriptor(btable, n), pm: pma{},
		txOff: txOff, rxOff: rxOff, txSize: size, rxSize: size,
		epType: epType, bidirectional: bidirectional,
	}
}

// SetHandler wires the callback invoked on each completed OUT transfer.
func (e *simpleEndpoint) SetHandler(h ReportHandler) { e.handler = h }

func (e *simpleEndpoint) WriteBTable() {
	e.bt.SetAddrTx(e.txOff)
	if e.bidirectional {
		e.bt.SetAddrRx(e.rxOff)
		e.bt.SetRxBufSize(e.rxSize)
	}
}

func (e *simpleEndpoint) ResetEndpoint() {}

func (e *simpleEndpoint) ConfigureEndpoint() {
	epr := e.usb.epr(e.n)
	v := e.epType << epTYPE
	v |= uint32(e.n) << epEA
	reg.Write(epr, v)
	e.usb.setStat(e.n, true, statNAK)
	if e.bidirectional {
		e.usb.setStat(e.n, false, statValid)
	} else {
		e.usb.setStat(e.n, false, statDisabled)
	}
}

func (e *simpleEndpoint) ProcessTransfer(ctrTX, ctrRX bool) *StackRequest {
	if ctrRX && e.bidirectional {
		count := int(e.bt.CountRx() & 0x3ff)
		data := e.pm.readAt(e.rxOff, count)
		e.usb.setStat(e.n, false, statValid)
		if e.handler != nil {
			if resp := e.handler(data); resp != nil {
				e.TransmitSlice(resp)
			}
		}
	}
	return nil
}

// TransmitSlice sends up to one packet; reports on this firmware's
// interrupt and bulk report endpoints are always fixed 64-byte packets,
// so unlike the control endpoint no multi-packet staging is needed.
func (e *simpleEndpoint) TransmitSlice(data []byte) {
	if len(data) > int(e.txSize) {
		data = data[:e.txSize]
	}
	e.pm.writeAt(e.txOff, data)
	e.bt.SetCountTx(uint16(len(data)))
	e.usb.setStat(e.n, true, statValid)
}

func (e *simpleEndpoint) RxValid() { e.usb.setStat(e.n, false, statValid) }
func (e *simpleEndpoint) RxStall() { e.usb.setStat(e.n, false, statStall) }

// NewSPIEndpoint is the SPI/JTAG bulk pipe (EP1): host writes a command
// report, firmware replies with the SPI/JTAG exchange result.
func NewSPIEndpoint(u *USB, btable, pmaBase, txOff, rxOff uintptr) Endpoint {
	return newSimpleEndpoint(u, EP1, btable, pmaBase, txOff, rxOff, 64, epTypeBulk, true)
}

// NewDAP1Endpoint is the CMSIS-DAPv1 HID pipe (EP2): interrupt IN/OUT,
// one 64-byte report per transaction.
func NewDAP1Endpoint(u *USB, btable, pmaBase, txOff, rxOff uintptr) Endpoint {
	return newSimpleEndpoint(u, EP2, btable, pmaBase, txOff, rxOff, 64, epTypeInterrupt, true)
}

// NewDAP2Endpoint is the CMSIS-DAPv2 vendor-class bulk pipe (EP3),
// exposing the same command set as DAPv1 without the HID wrapper.
func NewDAP2Endpoint(u *USB, btable, pmaBase, txOff, rxOff uintptr) Endpoint {
	return newSimpleEndpoint(u, EP3, btable, pmaBase, txOff, rxOff, 64, epTypeBulk, true)
}

// NewSWOEndpoint is the SWO trace streaming pipe (EP4): IN-only, pushed
// to by the app's poll loop whenever UART data has accumulated.
func NewSWOEndpoint(u *USB, btable, pmaBase, txOff uintptr) Endpoint {
	return newSimpleEndpoint(u, EP4, btable, pmaBase, txOff, 0, 64, epTypeBulk, false)
}
