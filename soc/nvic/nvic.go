// Package nvic enables the two interrupt lines the firmware uses (SPI1
// and USB) and exposes a pending-check so the app's event loop can poll
// rather than install Go interrupt handlers.
//
// Grounded on hal/nvic.rs. The original additionally models an unsafe
// "steal" constructor for use from within the ISR itself; this firmware's
// event loop only ever polls pending state from the main context, so that
// constructor has no caller here and is not carried over.
package nvic

import "github.com/adamgreig/ffp/internal/reg"

// IRQ numbers for this SoC, per the Cortex-M0 vector table.
const (
	IRQSPI1 = 25
	IRQUSB  = 31
)

// NVIC drives the Cortex-M0 Nested Vectored Interrupt Controller.
type NVIC struct {
	iser uintptr
	ispr uintptr
}

// New returns an NVIC instance given the ISER and ISPR register
// addresses (NVIC_ISER0 and NVIC_ISPR0 for this part's 32-or-fewer IRQ
// count).
func New(iser, ispr uintptr) *NVIC {
	return &NVIC{iser: iser, ispr: ispr}
}

// Setup enables the SPI1 and USB interrupt lines.
func (n *NVIC) Setup() {
	reg.Set(n.iser, IRQSPI1)
	reg.Set(n.iser, IRQUSB)
}

// Pending reports whether the given IRQ is currently pending.
func (n *NVIC) Pending(irq int) bool {
	return reg.Get(n.ispr, irq, 1) == 1
}
