package dap

import (
	"runtime"
	"testing"
	"unsafe"

	"github.com/adamgreig/ffp/soc/dma"
	"github.com/adamgreig/ffp/soc/gpio"
	"github.com/adamgreig/ffp/soc/spi"
	"github.com/adamgreig/ffp/soc/uart"
	"github.com/adamgreig/ffp/swd"
)

// fakeDAP wires a DAP interpreter entirely against host memory, the same
// technique gpio_test.go and usb's control_test.go use: real Go arrays
// stand in for the GPIOA/GPIOB/SPI1/USART2/DMA register blocks so the
// production register-access code can run unmodified under go test.
func fakeDAP(t *testing.T) *DAP {
	t.Helper()
	gpioA := new([0x30 / 4]uint32)
	gpioB := new([0x30 / 4]uint32)
	portA := &gpio.Port{Base: uintptr(unsafe.Pointer(&gpioA[0]))}
	portB := &gpio.Port{Base: uintptr(unsafe.Pointer(&gpioB[0]))}

	pins := gpio.NewPins(
		portA.Pin(8),  // LED
		portA.Pin(4),  // CS
		portB.Pin(0),  // FPGARst
		portA.Pin(5),  // SCK
		portA.Pin(6),  // FlashSO
		portA.Pin(7),  // FlashSI
		portA.Pin(14), // FPGASO
		portA.Pin(15), // FPGASI
		portB.Pin(1),  // TPwrDet
		portB.Pin(2),  // TPwrEn
	)

	spiRegs := new([0x20 / 4]uint32)
	dmaCtrl := new([0x10 / 4]uint32)
	dmaTx := new([0x10 / 4]uint32)
	dmaRx := new([0x10 / 4]uint32)
	ch := dma.New(
		uintptr(unsafe.Pointer(&dmaCtrl[0])),
		uintptr(unsafe.Pointer(&dmaTx[0])),
		uintptr(unsafe.Pointer(&dmaRx[0])),
		2, 3,
	)
	spiDev := spi.New(uintptr(unsafe.Pointer(&spiRegs[0])), ch)

	uartRegs := new([0x30 / 4]uint32)
	cndtr := new(uint32)
	uartDev := uart.New(uintptr(unsafe.Pointer(&uartRegs[0])), 48_000_000, uintptr(unsafe.Pointer(cndtr)), 64)

	// The blocks are reachable only through uintptr addresses, which do
	// not keep them alive (or even on the heap); hold them until the test
	// ends.
	t.Cleanup(func() { runtime.KeepAlive([]any{gpioA, gpioB, spiRegs, dmaCtrl, dmaTx, dmaRx, uartRegs, cndtr}) })

	swdDev := swd.New(spiDev, pins)
	return New(swdDev, uartDev, pins)
}
