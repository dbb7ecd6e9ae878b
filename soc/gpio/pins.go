package gpio

// Alternate function numbers, as wired on the probe board. These are
// board-specific but fixed for the adapter's PCB, so they live alongside the
// mode tables rather than in board/probe.
const (
	afSPI1    = 0 // SCK/MISO/MOSI on GPIOA5/6/7
	afUSART2  = 1 // SWO on GPIOA3 (USART2_RX)
	afNone    = 0
)

// Pins is the fixed named set of GPIO lines the firmware drives. Exactly one
// of the mode transitions below is in effect at any time; see spec §4.1.
type Pins struct {
	LED      *Pin
	CS       *Pin
	FPGARst  *Pin
	SCK      *Pin
	FlashSO  *Pin // doubles as nRESET in SWD/JTAG mode
	FlashSI  *Pin // doubles as SWDIO/JTMS
	FPGASO   *Pin // SPI MISO in FPGA and SWD mode
	FPGASI   *Pin
	TPwrDet  *Pin
	TPwrEn   *Pin

	// Memoised hot-path mode masks, precomputed once at construction.
	flashSIInput     ModeMask
	flashSIAlternate ModeMask
	sckOutput        ModeMask
	sckAlternate     ModeMask
}

// NewPins wires up the fixed pinout and precomputes the SWD hot-path mode
// masks. FlashSO is pre-driven high before any mode is applied: it is the
// target nRESET line in SWD/JTAG mode and must never glitch low as its
// direction changes.
func NewPins(led, cs, fpgaRst, sck, flashSO, flashSI, fpgaSO, fpgaSI, tpwrDet, tpwrEn *Pin) *Pins {
	flashSO.High()

	return &Pins{
		LED: led, CS: cs, FPGARst: fpgaRst, SCK: sck,
		FlashSO: flashSO, FlashSI: flashSI,
		FPGASO: fpgaSO, FPGASI: fpgaSI,
		TPwrDet: tpwrDet, TPwrEn: tpwrEn,

		flashSIInput:     flashSI.MemoizeMode(ModeInput),
		flashSIAlternate: flashSI.MemoizeMode(ModeAlternate),
		sckOutput:        sck.MemoizeMode(ModeOutput),
		sckAlternate:     sck.MemoizeMode(ModeAlternate),
	}
}

// Setup applies the High-Z mode as the initial state after reset.
func (p *Pins) Setup() {
	p.HighImpedanceMode()
}

// HighImpedanceMode parks every pin except fpga_rst as an input (floating,
// except fpga_so, which has its pull-up enabled); fpga_rst becomes an
// open-drain output at whatever level its output register holds.
func (p *Pins) HighImpedanceMode() {
	p.SCK.SetMode(ModeInput)
	p.FlashSI.SetMode(ModeInput)
	p.FlashSO.SetMode(ModeInput)
	p.CS.SetMode(ModeInput)
	p.FPGASO.SetMode(ModeInput).SetPull(PullUp)
	p.FPGASI.SetMode(ModeInput)
	p.FPGARst.SetOType(OpenDrain).SetMode(ModeOutput)
}

// FlashMode routes SCK/MOSI/MISO to the flash chip and drives CS.
func (p *Pins) FlashMode() {
	p.SCK.SetAF(afSPI1).SetMode(ModeAlternate)
	p.FlashSI.SetAF(afSPI1).SetMode(ModeAlternate) // MOSI
	p.FlashSO.SetAF(afSPI1).SetOType(PushPull).SetMode(ModeAlternate) // MISO
	p.CS.SetOType(OpenDrain).SetMode(ModeOutput)
	p.FPGASO.SetMode(ModeInput)
	p.FPGASI.SetMode(ModeInput)
	p.FPGARst.SetOType(OpenDrain).SetMode(ModeOutput)
}

// FPGAMode routes SCK/MOSI/MISO to the FPGA's configuration port.
func (p *Pins) FPGAMode() {
	p.SCK.SetAF(afSPI1).SetMode(ModeAlternate)
	p.FlashSI.SetMode(ModeInput)
	p.FlashSO.SetMode(ModeInput)
	p.CS.SetOType(OpenDrain).SetMode(ModeOutput)
	p.FPGASO.SetAF(afSPI1).SetMode(ModeAlternate) // MISO
	p.FPGASI.SetAF(afSPI1).SetMode(ModeAlternate) // MOSI
	p.FPGARst.SetOType(OpenDrain).SetMode(ModeOutput)
}

// SWDMode routes SCK/SWDIO to the SPI peripheral, SWO to USART2_RX, and
// leaves nRESET (flash_so) as an open-drain output.
func (p *Pins) SWDMode() {
	p.SCK.SetAF(afSPI1).SetPull(PullUp).SetMode(ModeAlternate)
	p.FlashSI.SetAF(afSPI1).SetMode(ModeAlternate)
	p.FlashSO.SetOType(OpenDrain).SetMode(ModeOutput)
	p.CS.SetAF(afUSART2).SetMode(ModeAlternate) // SWO on USART2_RX
	p.FPGASO.SetAF(afSPI1).SetMode(ModeAlternate)
	p.FPGASI.SetMode(ModeInput)
	p.FPGARst.SetMode(ModeInput)
}

// JTAGMode bit-bangs TCK/TMS/TDI as push-pull outputs, TDO as an input, and
// leaves nRESET (flash_so) as an open-drain output.
func (p *Pins) JTAGMode() {
	p.SCK.SetMode(ModeOutput) // JTCK
	p.FlashSI.SetMode(ModeOutput) // JTMS
	p.FlashSO.SetOType(OpenDrain).SetMode(ModeOutput) // nRESET
	p.CS.SetMode(ModeInput) // JTDO
	p.FPGASO.SetMode(ModeInput)
	p.FPGASI.SetMode(ModeInput)
	p.FPGARst.SetOType(PushPull).SetMode(ModeOutput) // JTDI
}

// SWDRX flips SWDIO (flash_si) to input, reclaiming the bus for the target
// to drive during the ACK and data-read phases.
func (p *Pins) SWDRX() { p.flashSIInput.Apply() }

// SWDTX flips SWDIO (flash_si) back to the SPI alternate function so the
// probe drives the line again.
func (p *Pins) SWDTX() { p.flashSIAlternate.Apply() }

// SWDClkDirect switches SCK to a plain GPIO output, for manual clock
// generation while the bus ownership handover happens outside the SPI
// shift register.
func (p *Pins) SWDClkDirect() { p.sckOutput.Apply() }

// SWDClkSPI switches SCK back to the SPI alternate function.
func (p *Pins) SWDClkSPI() { p.sckAlternate.Apply() }
