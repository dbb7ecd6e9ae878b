// Package flash configures the internal flash interface's prefetch and
// wait-state settings, and implements the one-shot option-byte fixer that
// disables readout protection and forces a known user-option byte value.
//
// Setup is grounded directly on hal/flash.rs (PRFTBE/LATENCY). No revision
// of an option-byte fixer was retrievable from original_source/, so
// FixOptionBytes is built from spec.md §4.8/§7/§8's description directly;
// the register layout follows the STM32F0 FLASH block's documented OPTKEY/
// OPTCR/OBR sequence.
package flash

import "github.com/adamgreig/ffp/internal/reg"

// FLASH register offsets.
const (
	offACR    = 0x00
	offKEYR   = 0x04
	offOPTKEYR = 0x08
	offSR     = 0x0c
	offCR     = 0x10
	offOPTR   = 0x14 // OBR on this family: current option byte values
)

const (
	acrLATENCY = 0
	acrPRFTBE  = 4
)

const (
	crOPTLOCK = 14
	crOPTSTRT = 17
	crLOCK    = 7
)

const srBSY = 16

// Option-byte unlock keys and target values, per ST's documented sequence.
const (
	optKey1 = 0x08192a3b
	optKey2 = 0x4c5d6e7f

	// wantRDP and wantUser are the target RDPRT/user option bytes: readout
	// protection level 0 (disabled) and the fixed user byte value the
	// firmware expects (0x7F, per spec.md §6 persisted-state note).
	wantRDP  = 0xaa // level 0, "disabled"
	wantUser = 0x7f
)

// Flash drives the FLASH peripheral's prefetch/latency controls and
// option-byte area.
type Flash struct {
	base uintptr
}

// New returns a Flash instance over the FLASH block at base.
func New(base uintptr) *Flash {
	return &Flash{base: base}
}

// Setup enables the prefetch buffer and sets one wait state, required at
// the HSI48 (48MHz) system clock this firmware runs at.
func (f *Flash) Setup() {
	reg.Set(f.base+offACR, acrPRFTBE)
	reg.SetN(f.base+offACR, acrLATENCY, 0b111, 1)
}

// currentRDP reads back the currently programmed readout-protection byte.
func (f *Flash) currentRDP() uint32 {
	return reg.Get(f.base+offOPTR, 0, 0xff)
}

// FixOptionBytes checks the readout-protection option byte against the
// expected "disabled" value and, if it differs, unlocks the option-byte
// area, erases it (which also resets RDP to level 1), reprograms RDP to
// disabled and the user byte to its fixed value, then forces an
// option-byte reload. The reload triggers an immediate system reset, so
// this function does not return in that case. It is idempotent: once the
// option bytes read back correctly, subsequent calls are no-ops.
func (f *Flash) FixOptionBytes() {
	if f.currentRDP() == wantRDP {
		return
	}

	f.waitIdle()
	reg.Write(f.base+offOPTKEYR, optKey1)
	reg.Write(f.base+offOPTKEYR, optKey2)

	reg.Set(f.base+offCR, crOPTSTRT)
	f.waitIdle()

	reg.SetN(f.base+offOPTR, 0, 0xff, wantRDP)
	reg.SetN(f.base+offOPTR, 8, 0xff, wantUser)

	reg.Set(f.base+offCR, crOPTSTRT)
	f.waitIdle()

	reg.Set(f.base+offCR, crOPTLOCK)

	// Forcing a reload applies the new option bytes via an immediate
	// system reset; normal execution does not continue past this point.
	reg.Set(f.base+offCR, crOPTSTRT)
	for {
	}
}

func (f *Flash) waitIdle() {
	reg.Wait(f.base+offSR, srBSY, 1, 0)
}
