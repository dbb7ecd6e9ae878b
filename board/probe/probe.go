// Package probe wires up the fixed hardware instance this firmware
// targets: a single STM32F0-class MCU with flash, SPI1, USART2, DMA1,
// GPIOA/GPIOB and USB hardwired to the named pins of spec.md §4.1.
//
// Grounded on board/usbarmory/mk2's package-level var wiring and its
// //go:linkname Init runtime.hwinit pre-init hook, adapted from i.MX6
// peripheral instances to this part's memory map.
package probe

import (
	_ "unsafe" // for go:linkname

	"github.com/adamgreig/ffp/app"
	"github.com/adamgreig/ffp/dap"
	"github.com/adamgreig/ffp/jtag"
	"github.com/adamgreig/ffp/soc/bootload"
	"github.com/adamgreig/ffp/soc/dma"
	"github.com/adamgreig/ffp/soc/flash"
	"github.com/adamgreig/ffp/soc/gpio"
	"github.com/adamgreig/ffp/soc/nvic"
	"github.com/adamgreig/ffp/soc/rcc"
	"github.com/adamgreig/ffp/soc/spi"
	"github.com/adamgreig/ffp/soc/uart"
	"github.com/adamgreig/ffp/soc/uid"
	"github.com/adamgreig/ffp/swd"
	"github.com/adamgreig/ffp/usb"
)

// Peripheral base addresses (RM0091/RM0360 STM32F0 memory map).
const (
	gpioABase = 0x48000000
	gpioBBase = 0x48000400

	spi1Base = 0x40013000
	usart2Base = 0x40004400

	dma1Base   = 0x40020000
	dma1Ch2Base = 0x40020014 // SPI1_RX on this part
	dma1Ch3Base = 0x40020028 // SPI1_TX
	dma1Ch4Base = 0x4002003c // USART2_RX

	flashBase = 0x40022000
	rccBase   = 0x40021000
	crsBase   = 0x40006c00

	nvicISER = 0xe000e100
	nvicISPR = 0xe000e200

	usbBase = 0x40005c00
	usbPMA  = 0x40006000
)

// GPIO pin numbers for the named pins, as wired on the probe's PCB.
const (
	pinLED     = 8  // GPIOB8
	pinCS      = 4  // GPIOA4
	pinFPGARst = 0  // GPIOB0
	pinSCK     = 5  // GPIOA5
	pinFlashSO = 6  // GPIOA6
	pinFlashSI = 7  // GPIOA7
	pinFPGASO  = 14 // GPIOB14
	pinFPGASI  = 15 // GPIOB15
	pinTPwrDet = 1  // GPIOB1
	pinTPwrEn  = 2  // GPIOB2
)

// Buffer-table and packet-memory layout within the USB peripheral's
// dedicated SRAM, as the usb package addresses it (every 16-bit PMA
// halfword in its own 32-bit CPU word). BTABLE occupies the first 80 bytes
// (5 endpoints * 16 bytes); each endpoint gets a fixed 64-byte TX and RX
// buffer after it, each spanning 128 bytes of CPU address space.
const (
	usbBTable = usbPMA
	usbBufs   = usbPMA + 5*16

	ep0Tx = usbBufs + 0*256
	ep0Rx = usbBufs + 0*256 + 128
	ep1Tx = usbBufs + 1*256
	ep1Rx = usbBufs + 1*256 + 128
	ep2Tx = usbBufs + 2*256
	ep2Rx = usbBufs + 2*256 + 128
	ep3Tx = usbBufs + 3*256
	ep3Rx = usbBufs + 3*256 + 128
	ep4Tx = usbBufs + 4*256
)

// Probe holds every wired-up component; App is the entry point callers
// drive via Setup/Poll.
type Probe struct {
	App *app.App
}

// New constructs the full hardware stack in the same dependency order
// the original firmware's main() does: clocks, then SoC HAL
// collaborators, then the protocol engines, then the USB stack, then the
// app coordinator that ties them together.
func New() *Probe {
	rccDev := rcc.New(rccBase, crsBase)
	rccDev.Setup()

	flashDev := flash.New(flashBase)
	flashDev.Setup()
	flashDev.FixOptionBytes()

	nvicDev := nvic.New(nvicISER, nvicISPR)
	nvicDev.Setup()

	gpioA := &gpio.Port{Base: gpioABase}
	gpioB := &gpio.Port{Base: gpioBBase}

	pins := gpio.NewPins(
		gpioB.Pin(pinLED), gpioA.Pin(pinCS), gpioB.Pin(pinFPGARst), gpioA.Pin(pinSCK),
		gpioA.Pin(pinFlashSO), gpioA.Pin(pinFlashSI), gpioB.Pin(pinFPGASO), gpioB.Pin(pinFPGASI),
		gpioB.Pin(pinTPwrDet), gpioB.Pin(pinTPwrEn),
	)

	spiDMA := dma.New(dma1Base, dma1Ch3Base, dma1Ch2Base, 3, 2)
	spiDev := spi.New(spi1Base, spiDMA)
	spiDev.SetupSWD()

	uartDev := uart.New(usart2Base, 48_000_000, dma1Ch4Base+0x04, 1024)

	swdDev := swd.New(spiDev, pins)
	// TDI (fpga_rst) is on GPIOB while TCK/TDO (sck/cs) are on GPIOA, so
	// the fast same-port bit-bang path does not apply to this board.
	jtagDev := jtag.New(pins, gpioABase, false, pinFPGARst, pinSCK, pinCS)

	dapDev := dap.New(swdDev, uartDev, pins)

	usbDev := usb.New(usbBase, usbPMA)

	hex := uid.GetHex()
	serial := string(hex[:])
	ctrl := usb.NewControlEndpoint(usbDev, usbBTable, usbPMA, ep0Tx, ep0Rx,
		usb.BuildDeviceDescriptor(), usb.BuildConfigurationDescriptor(), usb.BuildStringTable(serial))
	ep1 := usb.NewSPIEndpoint(usbDev, usbBTable, usbPMA, ep1Tx, ep1Rx)
	ep2 := usb.NewDAP1Endpoint(usbDev, usbBTable, usbPMA, ep2Tx, ep2Rx)
	ep3 := usb.NewDAP2Endpoint(usbDev, usbBTable, usbPMA, ep3Tx, ep3Rx)
	ep4 := usb.NewSWOEndpoint(usbDev, usbBTable, usbPMA, ep4Tx)
	usbDev.SetEndpoints(ctrl, ep1, ep2, ep3, ep4)

	a := app.New(pins, spiDev, jtagDev, swdDev, uartDev, dapDev, nvicDev, usbDev, ctrl, ep1, ep2, ep3, ep4)

	return &Probe{App: a}
}

//go:linkname hwinit runtime.hwinit
func hwinit() {
	bootload.Check()
}
