// Package app is the top-level coordinator: it owns every other
// component, interprets USB stack requests and vendor control
// transfers, and runs the event loop spec.md §4.7 describes — service
// pending USB work, then pending SWO data, then sleep.
//
// Grounded on app.rs's App struct and its run/dispatch methods; the
// component wiring order and event-loop priority (USB before SWO before
// WFE) follow that file's main loop exactly.
package app

import (
	"github.com/adamgreig/ffp/board"
	"github.com/adamgreig/ffp/dap"
	"github.com/adamgreig/ffp/jtag"
	"github.com/adamgreig/ffp/soc/bootload"
	"github.com/adamgreig/ffp/soc/gpio"
	"github.com/adamgreig/ffp/soc/nvic"
	"github.com/adamgreig/ffp/soc/spi"
	"github.com/adamgreig/ffp/soc/uart"
	"github.com/adamgreig/ffp/swd"
	"github.com/adamgreig/ffp/usb"
)

// Mode is the probe's current pin/peripheral configuration, set via the
// SetMode vendor request.
type Mode uint8

const (
	ModeHighZ Mode = iota
	ModeFlash
	ModeFPGA
	ModeJTAG
)

// App holds every component and the probe's current mode.
type App struct {
	pins *gpio.Pins
	spi  *spi.SPI
	jtag *jtag.JTAG
	swd  *swd.SWD
	uart *uart.UART
	dap  *dap.DAP

	nvic  *nvic.NVIC
	usb   *usb.USB
	ep1   usb.Endpoint // SPI/JTAG bulk
	ep2   usb.Endpoint // DAPv1 HID
	ep3   usb.Endpoint // DAPv2 bulk
	ep4   usb.Endpoint // SWO streaming

	mode Mode
}

// New returns an App wired to its collaborators. Endpoint handlers and
// the vendor request callback are wired here, completing the
// construction that board/probe starts.
func New(pins *gpio.Pins, s *spi.SPI, j *jtag.JTAG, sw *swd.SWD, u *uart.UART, d *dap.DAP,
	n *nvic.NVIC, usbStack *usb.USB, ctrl *usb.ControlEndpoint, ep1, ep2, ep3, ep4 usb.Endpoint) *App {

	a := &App{pins: pins, spi: s, jtag: j, swd: sw, uart: u, dap: d,
		nvic: n, usb: usbStack, ep1: ep1, ep2: ep2, ep3: ep3, ep4: ep4}

	if r, ok := ep1.(usb.Reporter); ok {
		r.SetHandler(a.processSPITransmit)
	}
	if r, ok := ep2.(usb.Reporter); ok {
		r.SetHandler(a.dap.ProcessCommand)
	}
	if r, ok := ep3.(usb.Reporter); ok {
		r.SetHandler(a.dap.ProcessCommand)
	}
	ctrl.SetVendorHandler(a)

	return a
}

// Setup brings every peripheral to its power-on state: High-Z pins, SPI
// and UART idle, USB attached to the bus.
func (a *App) Setup() {
	a.pins.Setup()
	a.uart.Stop()
	a.usb.Power()
	a.usb.Attach()
}

// Poll services one unit of work: a pending USB interrupt takes
// priority, then any accumulated SWO trace data, then the core parks
// via WaitForEvent until the next interrupt. Call in a tight loop
// forever.
func (a *App) Poll() {
	if a.nvic.Pending(nvic.IRQUSB) {
		if req := a.usb.Interrupt(); req != nil {
			a.dispatch(req)
		}
		return
	}

	if a.dap.IsSWOStreaming() {
		if data := a.dap.PollSWO(); len(data) > 0 {
			a.ep4.TransmitSlice(data)
		}
		return
	}

	board.WaitForEvent()
}

func (a *App) dispatch(req *usb.StackRequest) {
	switch {
	case req.Bootload:
		a.usb.Detach()
		bootload.Request()
	case req.Suspend:
		a.suspend()
	case req.Vendor != nil:
		a.HandleVendorOut(req.Vendor.Request, req.Vendor.Value)
	}
}

// suspend enters the low-power pin configuration required while the bus is
// suspended: high-Z (so no target is driven or powers the probe's level
// shifters), LED off, and target power removed.
func (a *App) suspend() {
	a.pins.HighImpedanceMode()
	a.spi.Disable()
	a.pins.LED.Low()
	a.pins.TPwrEn.Low()
}

// processSPITransmit dispatches EP1's OUT payload to a raw SPI exchange
// in Flash/FPGA mode, or to bit-banged JTAG sequences in JTAG mode. In
// High-Z mode SetMode stalls EP1's OUT direction; a payload that arrives
// in High-Z mode anyway takes the SPI exchange path.
func (a *App) processSPITransmit(data []byte) []byte {
	if a.mode == ModeJTAG {
		rx := make([]byte, len(data))
		n := a.jtag.Sequences(data, rx)
		return rx[:n]
	}
	return a.spi.Exchange(data)
}

// SetMode reconfigures pins, the SPI peripheral, and which bulk
// endpoints accept OUT packets: the SPI/JTAG bulk pipe only makes sense
// once a target is selected, and the DAP endpoints' OUT directions are
// stalled while a flash/FPGA/JTAG operation owns the shared SPI bus.
func (a *App) SetMode(m Mode) {
	a.mode = m
	switch m {
	case ModeHighZ:
		a.pins.HighImpedanceMode()
		a.spi.Disable()
	case ModeFlash:
		a.pins.FlashMode()
		a.spi.SetupNormal(spi.FromMax(dap.SPIPeripheralClock, 12_000_000))
	case ModeFPGA:
		a.pins.FPGAMode()
		a.spi.SetupNormal(spi.FromMax(dap.SPIPeripheralClock, 12_000_000))
	case ModeJTAG:
		a.pins.JTAGMode()
		a.spi.Disable()
	}

	bulkActive := m != ModeHighZ
	dapActive := m == ModeHighZ

	if bulkActive {
		a.ep1.RxValid()
	} else {
		a.ep1.RxStall()
	}
	if dapActive {
		a.ep2.RxValid()
		a.ep3.RxValid()
	} else {
		a.ep2.RxStall()
		a.ep3.RxStall()
	}
}

// HandleVendorOut applies a deferred host-to-device vendor request,
// implementing usb.VendorHandler.
func (a *App) HandleVendorOut(request uint8, value uint16) {
	bit := gpio.Low
	if value != 0 {
		bit = gpio.High
	}
	switch request {
	case usb.VendorSetCS:
		a.pins.CS.Set(bit)
	case usb.VendorSetFPGA:
		a.pins.FPGARst.Set(bit)
	case usb.VendorSetMode:
		a.SetMode(Mode(value))
	case usb.VendorSetTPwr:
		a.pins.TPwrEn.Set(bit)
	case usb.VendorSetLED:
		a.pins.LED.Set(bit)
	}
}

// HandleVendorIn answers a device-to-host vendor request synchronously,
// implementing usb.VendorHandler.
func (a *App) HandleVendorIn(request uint8, value uint16, wLength uint16) []byte {
	switch request {
	case usb.VendorGetTPwr:
		state := uint8(0)
		if a.pins.TPwrDet.IsHigh() {
			state = 1
		}
		return []byte{state, 0}
	}
	return nil
}
