// Control endpoint 0: SETUP/IN/OUT handling, standard request dispatch,
// and the vendor request table that lets the host reach the probe's
// pins, mode and bootloader.
//
// Grounded on control_endpoint.rs's process_setup/process_tx_complete/
// transmit_slice/process_vendor_request; the multi-packet staging
// contract (send whole if <64 bytes, else first 64 plus a pending-tx
// continuation, ZLP on an exact 64-byte multiple, 320-byte cap) is
// carried over verbatim from that file.
package usb

import "github.com/adamgreig/ffp/internal/reg"

// Vendor bRequest values, matching spec.md §6's vendor request table.
// MSOSVendorCode (0x41, 'A') is reserved separately for the Microsoft
// OS feature descriptor request.
const (
	VendorSetCS    = 1
	VendorSetFPGA  = 2
	VendorSetMode  = 3
	VendorSetTPwr  = 4
	VendorGetTPwr  = 5
	VendorSetLED   = 6
	VendorBootload = 7
)

// bmRequestType masks.
const (
	reqDirIn    = 0x80
	reqTypeMask = 0x60
	reqTypeStandard = 0x00
	reqTypeVendor   = 0x40
)

// Standard bRequest values used here.
const (
	stdGetStatus        = 0x00
	stdSetAddress       = 0x05
	stdGetDescriptor    = 0x06
	stdGetConfiguration = 0x08
	stdSetConfiguration = 0x09
)

const maxStagedTx = 320

// VendorHandler lets the app coordinator answer vendor requests that
// touch pins, mode or board state the USB stack has no business knowing
// about directly.
type VendorHandler interface {
	// HandleVendorOut applies a host-to-device vendor request. Called
	// only after the status stage's ACK has been observed by the host.
	HandleVendorOut(request uint8, value uint16)
	// HandleVendorIn answers a device-to-host vendor request with up to
	// wLength bytes of response data.
	HandleVendorIn(request uint8, value uint16, wLength uint16) []byte
}

// ControlEndpoint is endpoint 0: the only bidirectional, protocol-aware
// endpoint in the stack.
type ControlEndpoint struct {
	usb *USB
	n   int
	bt  bufDescriptor
	pm  pma

	txOff, rxOff   uintptr
	txSize, rxSize uint16

	deviceDesc []byte
	configDesc []byte
	strings    map[uint8][]byte
	msosCompat []byte
	msosProps  []byte

	handler VendorHandler

	pendingTx    []byte
	zlpPending   bool
	deferred     *StackRequest
	setAddress   uint8
	haveSetAddr  bool
}

// NewControlEndpoint returns the control endpoint, with its descriptor
// tables fixed at construction.
func NewControlEndpoint(u *USB, btable, pmaBase, txOff, rxOff uintptr, deviceDesc, configDesc []byte, strings map[uint8][]byte) *ControlEndpoint {
	return &ControlEndpoint{
		usb: u, n: EP0,
		bt: newBufDescriptor(btable, EP0), pm: pma{},
		txOff: txOff, rxOff: rxOff, txSize: 64, rxSize: 64,
		deviceDesc: deviceDesc, configDesc: configDesc, strings: strings,
		msosCompat: compatIDDescriptor(), msosProps: extendedPropertiesDescriptor(),
	}
}

// SetVendorHandler wires the app-level vendor request handler.
func (c *ControlEndpoint) SetVendorHandler(h VendorHandler) { c.handler = h }

func (c *ControlEndpoint) WriteBTable() {
	c.bt.SetAddrTx(c.txOff)
	c.bt.SetAddrRx(c.rxOff)
	c.bt.SetRxBufSize(c.rxSize)
}

func (c *ControlEndpoint) ResetEndpoint() {
	c.pendingTx = nil
	c.deferred = nil
}

func (c *ControlEndpoint) ConfigureEndpoint() {
	epr := c.usb.epr(c.n)
	v := uint32(epTypeControl) << epTYPE
	v |= uint32(c.n) << epEA
	reg.Write(epr, v)
	c.usb.setStat(c.n, true, statNAK)
	c.usb.setStat(c.n, false, statValid)
}

func (c *ControlEndpoint) ProcessTransfer(ctrTX, ctrRX bool) *StackRequest {
	if ctrRX {
		epr := c.usb.epr(c.n)
		setup := reg.Get(epr, epSETUP, 1) == 1
		count := int(c.bt.CountRx() & 0x3ff)
		data := c.pm.readAt(c.rxOff, count)

		if setup && count >= 8 {
			c.processSetup(data)
		}
		c.usb.setStat(c.n, false, statValid)
	}

	if ctrTX {
		if len(c.pendingTx) > 0 {
			c.sendChunk()
			return nil
		}
		if c.zlpPending {
			c.zlpPending = false
			c.bt.SetCountTx(0)
			c.usb.setStat(c.n, true, statValid)
			return nil
		}
		if c.haveSetAddr {
			c.haveSetAddr = false
			reg.Write(c.usb.daddr(), (1<<daddrEF)|uint32(c.setAddress))
		}
		if c.deferred != nil {
			req := c.deferred
			c.deferred = nil
			return req
		}
	}
	return nil
}

func (c *ControlEndpoint) RxValid() { c.usb.setStat(c.n, false, statValid) }
func (c *ControlEndpoint) RxStall() { c.usb.setStat(c.n, false, statStall) }

// TransmitSlice stages data for the IN data stage, sending at most 64
// bytes per packet and leaving the remainder (if any) in pendingTx for
// subsequent TX-complete interrupts to drain. Payloads are truncated to
// maxStagedTx, matching the fixed-size staging buffer the original
// firmware uses.
func (c *ControlEndpoint) TransmitSlice(data []byte) {
	if len(data) > maxStagedTx {
		data = data[:maxStagedTx]
	}
	c.pendingTx = data
	c.zlpPending = len(data) > 0 && len(data)%64 == 0
	c.sendChunk()
}

func (c *ControlEndpoint) sendChunk() {
	n := len(c.pendingTx)
	if n > 64 {
		n = 64
	}
	chunk := c.pendingTx[:n]
	c.pendingTx = c.pendingTx[n:]
	c.pm.writeAt(c.txOff, chunk)
	c.bt.SetCountTx(uint16(len(chunk)))
	c.usb.setStat(c.n, true, statValid)
}

func (c *ControlEndpoint) ack() {
	c.pendingTx = nil
	c.zlpPending = false
	c.bt.SetCountTx(0)
	c.usb.setStat(c.n, true, statValid)
}

func (c *ControlEndpoint) stall() {
	c.usb.setStat(c.n, true, statStall)
	c.usb.setStat(c.n, false, statStall)
}

func (c *ControlEndpoint) processSetup(data []byte) {
	bmRequestType := data[0]
	bRequest := data[1]
	wValue := uint16(data[2]) | uint16(data[3])<<8
	wIndex := uint16(data[4]) | uint16(data[5])<<8
	wLength := uint16(data[6]) | uint16(data[7])<<8

	switch bmRequestType & reqTypeMask {
	case reqTypeStandard:
		c.processStandard(bmRequestType, bRequest, wValue, wIndex, wLength)
	case reqTypeVendor:
		c.processVendor(bmRequestType, bRequest, wValue, wIndex, wLength)
	default:
		c.stall()
	}
}

func (c *ControlEndpoint) processStandard(bmRequestType, bRequest uint8, wValue, wIndex, wLength uint16) {
	switch bRequest {
	case stdGetStatus:
		c.TransmitSlice([]byte{0, 0})
	case stdSetAddress:
		c.setAddress = uint8(wValue)
		c.haveSetAddr = true
		c.ack()
	case stdGetDescriptor:
		c.processGetDescriptor(wValue, wIndex, wLength)
	case stdGetConfiguration:
		c.TransmitSlice([]byte{1})
	case stdSetConfiguration:
		c.deferred = &StackRequest{SetConfigured: true}
		c.ack()
	default:
		c.stall()
	}
}

func (c *ControlEndpoint) processGetDescriptor(wValue, wIndex, wLength uint16) {
	descType := uint8(wValue >> 8)
	descIndex := uint8(wValue)

	var data []byte
	switch descType {
	case descDevice:
		data = c.deviceDesc
	case descConfiguration:
		data = c.configDesc
	case descString:
		if descIndex == 0xee {
			data = msOSStringDescriptor()
		} else if s, ok := c.strings[descIndex]; ok {
			data = s
		}
	case descHIDReport:
		data = HIDReportDescriptor()
	}

	if data == nil {
		c.stall()
		return
	}
	if int(wLength) < len(data) {
		data = data[:wLength]
	}
	c.TransmitSlice(data)
}

func (c *ControlEndpoint) processVendor(bmRequestType, bRequest uint8, wValue, wIndex, wLength uint16) {
	if bRequest == MSOSVendorCode {
		var data []byte
		switch wIndex {
		case 0x0004:
			data = c.msosCompat
		case 0x0005:
			data = c.msosProps
		}
		if data == nil {
			c.stall()
			return
		}
		if int(wLength) < len(data) {
			data = data[:wLength]
		}
		c.TransmitSlice(data)
		return
	}

	if bmRequestType&reqDirIn != 0 {
		if c.handler == nil {
			c.stall()
			return
		}
		c.TransmitSlice(c.handler.HandleVendorIn(bRequest, wValue, wLength))
		return
	}

	if bRequest == VendorBootload {
		c.deferred = &StackRequest{Bootload: true}
	} else {
		c.deferred = &StackRequest{Vendor: &VendorRequest{Request: bRequest, Value: wValue}}
	}
	c.ack()
}
