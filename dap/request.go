// Package dap implements the CMSIS-DAP command interpreter: a reader/
// writer pair walking a fixed report buffer, dispatching to one handler
// per command byte.
//
// Grounded directly on dap.rs, including its Request/ResponseWriter
// cursor pair, translated to Go slices with explicit index tracking in
// place of borrow-checked sub-slices.
package dap

// Command is a CMSIS-DAP command byte.
type Command uint8

const (
	CmdInfo              Command = 0x00
	CmdHostStatus        Command = 0x01
	CmdConnect           Command = 0x02
	CmdDisconnect        Command = 0x03
	CmdWriteABORT        Command = 0x08
	CmdDelay             Command = 0x09
	CmdResetTarget       Command = 0x0A

	CmdSWJPins     Command = 0x10
	CmdSWJClock    Command = 0x11
	CmdSWJSequence Command = 0x12

	CmdSWDConfigure Command = 0x13
	CmdSWDSequence  Command = 0x1D

	CmdSWOTransport      Command = 0x17
	CmdSWOMode           Command = 0x18
	CmdSWOBaudrate       Command = 0x19
	CmdSWOControl        Command = 0x1A
	CmdSWOStatus         Command = 0x1B
	CmdSWOExtendedStatus Command = 0x1E
	CmdSWOData           Command = 0x1C

	CmdJTAGSequence  Command = 0x14
	CmdJTAGConfigure Command = 0x15
	CmdJTAGIDCODE    Command = 0x16

	CmdTransferConfigure Command = 0x04
	CmdTransfer          Command = 0x05
	CmdTransferBlock     Command = 0x06
	CmdTransferAbort     Command = 0x07

	CmdExecuteCommands Command = 0x7F
	CmdQueueCommands   Command = 0x7E

	CmdUnimplemented Command = 0xFF
)

const (
	responseOK    = 0x00
	responseError = 0xFF
)

// DAPInfoID selects the field DAP_Info returns.
type DAPInfoID uint8

const (
	InfoVendorID           DAPInfoID = 0x01
	InfoProductID          DAPInfoID = 0x02
	InfoSerialNumber       DAPInfoID = 0x03
	InfoFirmwareVersion    DAPInfoID = 0x04
	InfoTargetVendor       DAPInfoID = 0x05
	InfoTargetName         DAPInfoID = 0x06
	InfoCapabilities       DAPInfoID = 0xF0
	InfoTestDomainTimer    DAPInfoID = 0xF1
	InfoSWOTraceBufferSize DAPInfoID = 0xFD
	InfoMaxPacketCount     DAPInfoID = 0xFE
	InfoMaxPacketSize      DAPInfoID = 0xFF
)

// HostStatusType selects what DAP_HostStatus reports.
type HostStatusType uint8

const (
	HostStatusConnect HostStatusType = 0
	HostStatusRunning HostStatusType = 1
)

// ConnectPort selects the wire protocol for DAP_Connect.
type ConnectPort uint8

const (
	ConnectDefault ConnectPort = 0
	ConnectSWD     ConnectPort = 1
	ConnectJTAG    ConnectPort = 2
)

const (
	connectRespFailed = 0
	connectRespSWD    = 1
)

// SWOTransport selects how SWO data reaches the host.
type SWOTransport uint8

const (
	SWOTransportNone        SWOTransport = 0
	SWOTransportDAPCommand  SWOTransport = 1
	SWOTransportUSBEndpoint SWOTransport = 2
)

// SWOMode selects the SWO wire encoding.
type SWOMode uint8

const (
	SWOModeOff        SWOMode = 0
	SWOModeUART       SWOMode = 1
	SWOModeManchester SWOMode = 2
)

// SWOControl starts or stops SWO capture.
type SWOControl uint8

const (
	SWOControlStop  SWOControl = 0
	SWOControlStart SWOControl = 1
)

// request is a cursor reading sequential fields from a command's payload.
type request struct {
	command Command
	data    []byte
}

func newRequest(report []byte) (request, bool) {
	if len(report) == 0 {
		return request{}, false
	}
	return request{command: Command(report[0]), data: report[1:]}, true
}

func (r *request) nextU8() uint8 {
	v := r.data[0]
	r.data = r.data[1:]
	return v
}

func (r *request) nextU16() uint16 {
	v := uint16(r.data[0]) | uint16(r.data[1])<<8
	r.data = r.data[2:]
	return v
}

func (r *request) nextU32() uint32 {
	v := uint32(r.data[0]) | uint32(r.data[1])<<8 | uint32(r.data[2])<<16 | uint32(r.data[3])<<24
	r.data = r.data[4:]
	return v
}

func (r *request) rest() []byte {
	return r.data
}

// responseWriter is a cursor writing sequential fields into a fixed
// report buffer, with a few random-access helpers for fields (like a
// running transfer count) that are updated as processing continues.
type responseWriter struct {
	buf []byte
	idx int
}

func newResponseWriter(command Command, buf []byte) *responseWriter {
	buf[0] = byte(command)
	return &responseWriter{buf: buf, idx: 1}
}

func (w *responseWriter) writeU8(v uint8) {
	w.buf[w.idx] = v
	w.idx++
}

func (w *responseWriter) writeU16(v uint16) {
	w.buf[w.idx] = byte(v)
	w.buf[w.idx+1] = byte(v >> 8)
	w.idx += 2
}

func (w *responseWriter) writeU32(v uint32) {
	w.buf[w.idx] = byte(v)
	w.buf[w.idx+1] = byte(v >> 8)
	w.buf[w.idx+2] = byte(v >> 16)
	w.buf[w.idx+3] = byte(v >> 24)
	w.idx += 4
}

func (w *responseWriter) writeSlice(data []byte) {
	copy(w.buf[w.idx:], data)
	w.idx += len(data)
}

func (w *responseWriter) writeOK() {
	w.writeU8(responseOK)
}

func (w *responseWriter) writeErr() {
	w.writeU8(responseError)
}

func (w *responseWriter) writeU8At(idx int, v uint8) {
	w.buf[idx] = v
}

func (w *responseWriter) writeU16At(idx int, v uint16) {
	w.buf[idx] = byte(v)
	w.buf[idx+1] = byte(v >> 8)
}

func (w *responseWriter) readU8At(idx int) uint8 {
	return w.buf[idx]
}

func (w *responseWriter) statusAt(idx int) *uint8 {
	return &w.buf[idx]
}

func (w *responseWriter) finished() []byte {
	return w.buf[:w.idx]
}
