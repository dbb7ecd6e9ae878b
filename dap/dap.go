package dap

import (
	"github.com/adamgreig/ffp/soc/gpio"
	"github.com/adamgreig/ffp/soc/spi"
	"github.com/adamgreig/ffp/soc/uart"
	"github.com/adamgreig/ffp/swd"
)

// FirmwareVersion is the version string DAP_Info reports. It defaults to
// "dev"; nothing in this module fills it from version control, though a
// link-time -X flag can override it.
var FirmwareVersion = "dev"

// SPIPeripheralClock is the SPI kernel clock DAP_SWJ_Clock divides down
// from when picking a clock code.
const SPIPeripheralClock = 48_000_000

// DAP interprets CMSIS-DAP commands against an SWD engine, the pin set,
// and the SWO UART. It holds no JTAG engine: JTAG sequences are driven
// directly by the USB bulk path, not through this interpreter.
type DAP struct {
	swd  *swd.SWD
	uart *uart.UART
	pins *gpio.Pins

	rbuf [64]byte

	configured   bool
	swoStreaming bool
	matchRetries int
}

// New returns a DAP command interpreter.
func New(s *swd.SWD, u *uart.UART, pins *gpio.Pins) *DAP {
	return &DAP{swd: s, uart: u, pins: pins, matchRetries: 5}
}

// ProcessCommand interprets one command report and returns the response
// to transmit, if any. An unknown command byte is answered with a single
// Unimplemented byte, matching CMSIS-DAP's "unsupported command"
// behaviour; an empty report, an unknown DAP_Info ID and
// DAP_TransferAbort produce no response (nil).
func (d *DAP) ProcessCommand(report []byte) []byte {
	req, ok := newRequest(report)
	if !ok {
		return nil
	}

	var w *responseWriter
	switch req.command {
	case CmdInfo:
		w = d.processInfo(req)
	case CmdHostStatus:
		w = d.processHostStatus(req)
	case CmdConnect:
		w = d.processConnect(req)
	case CmdDisconnect:
		w = d.processDisconnect(req)
	case CmdWriteABORT:
		w = d.processWriteABORT(req)
	case CmdDelay:
		w = d.processDelay(req)
	case CmdResetTarget:
		w = d.processResetTarget(req)
	case CmdSWJPins:
		w = d.processSWJPins(req)
	case CmdSWJClock:
		w = d.processSWJClock(req)
	case CmdSWJSequence:
		w = d.processSWJSequence(req)
	case CmdSWDConfigure:
		w = d.processSWDConfigure(req)
	case CmdJTAGConfigure:
		w = d.processJTAGConfigure(req)
	case CmdJTAGIDCODE:
		w = d.processJTAGIDCODE(req)
	case CmdSWOTransport:
		w = d.processSWOTransport(req)
	case CmdSWOMode:
		w = d.processSWOMode(req)
	case CmdSWOBaudrate:
		w = d.processSWOBaudrate(req)
	case CmdSWOControl:
		w = d.processSWOControl(req)
	case CmdSWOStatus:
		w = d.processSWOStatus(req)
	case CmdSWOExtendedStatus:
		w = d.processSWOExtendedStatus(req)
	case CmdSWOData:
		w = d.processSWOData(req)
	case CmdTransferConfigure:
		w = d.processTransferConfigure(req)
	case CmdTransfer:
		w = d.processTransfer(req)
	case CmdTransferBlock:
		w = d.processTransferBlock(req)
	case CmdTransferAbort:
		w = d.processTransferAbort(req)
	default:
		w = newResponseWriter(CmdUnimplemented, d.rbuf[:])
	}

	if w == nil {
		return nil
	}
	return w.finished()
}

// IsSWOStreaming reports whether the UART is active and streaming mode is
// enabled, the condition under which the app's poll loop should push SWO
// data to its endpoint.
func (d *DAP) IsSWOStreaming() bool {
	return d.uart.IsActive() && d.swoStreaming
}

// PollSWO drains whatever SWO data has accumulated since the last call
// into the interpreter's scratch buffer and returns the portion filled.
func (d *DAP) PollSWO() []byte {
	n := d.uart.Read(d.rbuf[:])
	return d.rbuf[:n]
}

func (d *DAP) processInfo(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	switch DAPInfoID(req.nextU8()) {
	case InfoVendorID, InfoProductID, InfoSerialNumber:
		// Host reads these from the USB descriptors instead.
		w.writeU8(0)
	case InfoFirmwareVersion:
		w.writeU8(uint8(len(FirmwareVersion)))
		w.writeSlice([]byte(FirmwareVersion))
	case InfoTargetVendor, InfoTargetName:
		w.writeU8(0)
	case InfoCapabilities:
		w.writeU8(1)
		// Bit 0: SWD. Bit 2: SWO UART. Bit 6: SWO streaming trace.
		w.writeU8(0b0100_0101)
	case InfoSWOTraceBufferSize:
		w.writeU8(4)
		w.writeU32(d.uart.BufferLen())
	case InfoMaxPacketCount:
		w.writeU8(1)
		w.writeU8(1)
	case InfoMaxPacketSize:
		w.writeU8(2)
		w.writeU16(64)
	default:
		return nil
	}
	return w
}

func (d *DAP) processHostStatus(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	statusType := req.nextU8()
	status := req.nextU8()
	if HostStatusType(statusType) == HostStatusConnect {
		switch status {
		case 0:
			d.pins.LED.Low()
		case 1:
			d.pins.LED.High()
		}
	}
	w.writeU8(0)
	return w
}

func (d *DAP) processConnect(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	port := req.nextU8()
	switch ConnectPort(port) {
	case ConnectDefault, ConnectSWD:
		d.pins.SWDMode()
		d.swd.SPIEnable()
		d.configured = true
		w.writeU8(connectRespSWD)
	default:
		w.writeU8(connectRespFailed)
	}
	return w
}

func (d *DAP) processDisconnect(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	d.pins.HighImpedanceMode()
	d.configured = false
	d.swd.SPIDisable()
	w.writeOK()
	return w
}

func (d *DAP) processWriteABORT(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	if !d.configured {
		w.writeErr()
		return w
	}
	req.nextU8() // index, ignored: single target
	word := req.nextU32()
	if err := d.swd.WriteDP(swd.DPAbort, word); err != nil {
		w.writeErr()
	} else {
		w.writeOK()
	}
	return w
}

func (d *DAP) processDelay(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	delay := uint32(req.nextU16())
	spinDelay(48 * delay)
	w.writeOK()
	return w
}

func (d *DAP) processResetTarget(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	w.writeOK()
	w.writeU8(0) // no device-specific reset sequence implemented
	return w
}

// Pin bit positions for DAP_SWJ_Pins, per the CMSIS-DAP spec's generic
// SWJ pin numbering.
const (
	swjSWCLKPos = 0
	swjSWDIOPos = 1
	swjTDIPos   = 2
	swjTDOPos   = 3
	swjNTRSTPos = 5
	swjNRESETPos = 7
)

const swjNRESETMask = 1 << swjNRESETPos

func (d *DAP) processSWJPins(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	output := req.nextU8()
	mask := req.nextU8()
	wait := req.nextU32()

	// Only nRESET (flash_so) is supported as a driven output; every
	// other SWJ pin is read-back only.
	if mask&swjNRESETMask != 0 {
		if output&swjNRESETMask == 0 {
			d.pins.FlashSO.SetOType(gpio.OpenDrain).Low().SetMode(gpio.ModeOutput)
		} else {
			d.pins.FlashSO.SetMode(gpio.ModeInput)
		}
	}

	spinDelay(42 * wait)

	state := uint8(stateBit(d.pins.SCK)<<swjSWCLKPos) |
		uint8(stateBit(d.pins.FlashSI)<<swjSWDIOPos) |
		uint8(stateBit(d.pins.FPGARst)<<swjTDIPos) |
		uint8(stateBit(d.pins.CS)<<swjTDOPos) |
		uint8(1<<swjNTRSTPos) |
		uint8(stateBit(d.pins.FlashSO)<<swjNRESETPos)
	w.writeU8(state)
	return w
}

func stateBit(p *gpio.Pin) uint8 {
	if p.State() == gpio.High {
		return 1
	}
	return 0
}

func (d *DAP) processSWJClock(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	hz := req.nextU32()
	if hz == 0 {
		w.writeErr()
		return w
	}
	d.swd.SetClock(spi.FromMax(SPIPeripheralClock, hz))
	w.writeOK()
	return w
}

func (d *DAP) processSWJSequence(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	n := req.nextU8()

	var nbits int
	switch n {
	case 0:
		nbits = 256
	// pyOCD sends 51 ones (7 bytes of 0xFF) to perform a line reset;
	// remap to 56 bits (a whole number of bytes) to accommodate it.
	case 51:
		nbits = 56
	default:
		nbits = int(n)
	}

	if nbits%8 != 0 {
		w.writeErr()
		return w
	}

	nbytes := nbits / 8
	seq := req.rest()[:nbytes]
	d.swd.TxSequence(seq, nbits)

	w.writeOK()
	return w
}

func (d *DAP) processSWDConfigure(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	config := req.nextU8()
	clkPeriod := config & 0b011
	alwaysData := config&0b100 != 0
	if clkPeriod == 0 && !alwaysData {
		w.writeOK()
	} else {
		w.writeErr()
	}
	return w
}

// processJTAGConfigure and processJTAGIDCODE are thin stubs: this
// firmware's JTAG support is limited to raw DAP_JTAG_Sequence bit-banging
// over the SPI bulk endpoint (spec.md explicitly excludes multi-drop
// JTAG-DP probing), so neither configuring a JTAG scan chain nor reading
// IDCODEs through the DAP interpreter is implemented.
func (d *DAP) processJTAGConfigure(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	w.writeErr()
	return w
}

func (d *DAP) processJTAGIDCODE(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	w.writeErr()
	return w
}
