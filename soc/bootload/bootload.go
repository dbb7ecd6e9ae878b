// Package bootload implements the non-volatile latch that requests a jump
// to the ROM system bootloader, and the pre-statics hook that must observe
// it before any other code runs.
//
// Grounded on hal/bootload.rs, with the pre-init wiring translated to the
// teacher's own mechanism for the same requirement: a //go:linkname Init
// runtime.hwinit hook (board/usbarmory/mk2/mk2.go), standing in for Rust's
// #[pre_init] attribute.
package bootload

import (
	"unsafe"

	"github.com/adamgreig/ffp/internal/reg"
)

// Latch is the magic word written to the retention register to request a
// bootloader jump across a reset.
const Latch uint32 = 0xb00110ad

// RTC/PWR/SYSCFG register addresses, fixed for this SoC.
const (
	pwrCR     = 0x40007000
	rtcBKP0R  = 0x40002850
	syscfgCFGR1 = 0x40010000
	aircr     = 0xe000ed0c
)

const pwrCRDBP = 8

// aircrVectKey is the write key required in AIRCR's upper 16 bits for any
// write to take effect.
const aircrVectKey = 0x05fa0000
const aircrSYSRESETREQ = 2

// syscfgMemMode selects remapping system flash (the ROM bootloader) to
// address 0.
const syscfgMemModeSystemFlash = 0b01

// Check reads the latch and, if set, clears it and jumps to the ROM
// system bootloader's reset vector. It must run before any static data is
// assumed initialised, via the //go:linkname runtime.hwinit hook in
// board/probe; it is not safe to call from anywhere else.
func Check() {
	if reg.Read(rtcBKP0R) != Latch {
		return
	}

	reg.Set(pwrCR, pwrCRDBP)
	reg.Write(rtcBKP0R, 0)
	reg.Clear(pwrCR, pwrCRDBP)

	reg.SetN(syscfgCFGR1, 0, 0b11, syscfgMemModeSystemFlash)

	sp := *(*uint32)(unsafe.Pointer(uintptr(0)))
	pc := *(*uint32)(unsafe.Pointer(uintptr(4)))

	jump(sp, pc)
}

// jump sets the main stack pointer and branches to the ROM bootloader's
// reset handler. It never returns; the MSP write and branch are a single
// inseparable operation so this is implemented in processor-specific
// assembly (see bootload_arm.s) rather than Go.
func jump(sp, pc uint32)

// Request sets the latch and triggers a system reset, so the next boot's
// pre-init hook observes it and jumps to the ROM bootloader.
func Request() {
	reg.Set(pwrCR, pwrCRDBP)
	reg.Write(rtcBKP0R, Latch)
	reg.Clear(pwrCR, pwrCRDBP)

	reg.Write(aircr, aircrVectKey|(1<<aircrSYSRESETREQ))
	for {
	}
}
