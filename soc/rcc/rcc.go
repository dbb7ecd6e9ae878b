// Package rcc configures the clock tree: switches the system clock to
// HSI48, enables the Clock Recovery System for USB SOF synchronisation,
// and turns on the peripheral clocks every other package in this module
// assumes are already running.
//
// Grounded directly on hal/rcc.rs; vendor clock-tree programming beyond
// this fixed sequence is out of scope, so unlike the GPIO/USB packages
// this one has no further generality to add.
package rcc

import "github.com/adamgreig/ffp/internal/reg"

// RCC register offsets.
const (
	offCR2    = 0x34
	offCFGR   = 0x04
	offAHBENR = 0x14
	offAPB2ENR = 0x18
	offAPB1ENR = 0x1c
)

const (
	cr2HSI48ON  = 16
	cr2HSI48RDY = 17
)

const (
	cfgrSW  = 0 // 2-bit field, 0b11 = HSI48
	cfgrSWS = 2 // 2-bit field
)

const (
	ahbIOPAEN = 17
	ahbIOPBEN = 18
	ahbDMAEN  = 0
)

const (
	apb1CRSEN    = 27
	apb1USBEN    = 23
	apb1USART2EN = 17
)

const apb2SPI1EN = 12

// CRS register offsets, relative to its own base.
const offCRSCR = 0x00

const (
	crsCRAUTOTRIMEN = 14
	crsCRCEN        = 13
)

// RCC drives the reset-and-clock-control block plus its paired Clock
// Recovery System.
type RCC struct {
	base    uintptr
	crsBase uintptr
}

// New returns an RCC instance over the RCC block at base and the CRS
// block at crsBase.
func New(base, crsBase uintptr) *RCC {
	return &RCC{base: base, crsBase: crsBase}
}

// Setup switches the system clock to HSI48, enables GPIOA/GPIOB/DMA/USB/
// USART2/SPI1 clocks, and starts the CRS trimming HSI48 against USB SOF
// packets.
func (r *RCC) Setup() {
	reg.Set(r.base+offCR2, cr2HSI48ON)
	reg.Wait(r.base+offCR2, cr2HSI48RDY, 1, 1)

	reg.SetN(r.base+offCFGR, cfgrSW, 0b11, 0b11)
	for reg.Get(r.base+offCFGR, cfgrSWS, 0b11) != 0b11 {
	}

	reg.Set(r.base+offAHBENR, ahbIOPAEN)
	reg.Set(r.base+offAHBENR, ahbIOPBEN)
	reg.Set(r.base+offAHBENR, ahbDMAEN)

	reg.Set(r.base+offAPB1ENR, apb1CRSEN)
	reg.Set(r.base+offAPB1ENR, apb1USBEN)
	reg.Set(r.base+offAPB1ENR, apb1USART2EN)

	reg.Set(r.base+offAPB2ENR, apb2SPI1EN)

	reg.Set(r.crsBase+offCRSCR, crsCRAUTOTRIMEN)
	reg.Set(r.crsBase+offCRSCR, crsCRCEN)
}
