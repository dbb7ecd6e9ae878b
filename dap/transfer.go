package dap

import "github.com/adamgreig/ffp/swd"

// checkResult maps an SWD transaction error onto the CMSIS-DAP transfer
// status byte and reports whether the transfer succeeded, mirroring
// dap.rs's CheckResult trait: OK->1, WAIT->2, FAULT->4, anything else
// (protocol/parity/unknown)->(1<<3)|7.
func checkResult(err error, status *uint8) bool {
	switch err {
	case nil:
		*status = 1
		return true
	case swd.ErrAckWait:
		*status = 2
		return false
	case swd.ErrAckFault:
		*status = 4
		return false
	default:
		*status = (1 << 3) | 7
		return false
	}
}

func (d *DAP) processTransferConfigure(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	req.nextU8() // idle cycles: variable idle cycles are not supported
	d.swd.SetWaitRetries(int(req.nextU16()))
	d.matchRetries = int(req.nextU16())
	w.writeOK()
	return w
}

// Transfer request bit layout, shared by DAP_Transfer and
// DAP_TransferBlock.
const (
	transferAPnDP = 1 << 0
	transferRnW   = 1 << 1
	transferAMask = 0b11
	transferAShift = 2
	transferValueMatch = 1 << 4
	transferMatchMask  = 1 << 5
)

func transferAddr(b uint8) uint8 {
	return (b >> transferAShift) & transferAMask
}

func (d *DAP) readReg(apndp bool, a uint8) (uint32, error) {
	if apndp {
		return d.swd.ReadAP(a)
	}
	return d.swd.ReadDP(swd.DPRegister(a))
}

func (d *DAP) writeReg(apndp bool, a uint8, v uint32) error {
	if apndp {
		return d.swd.WriteAP(a, v)
	}
	return d.swd.WriteDP(swd.DPRegister(a), v)
}

func (d *DAP) processTransfer(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	req.nextU8() // DAP index, ignored: single target
	ntransfers := req.nextU8()
	matchMask := uint32(0xffffffff)

	// Reserve two bytes for [transfers executed, status].
	w.writeU16(0)

	for i := uint8(0); i < ntransfers; i++ {
		w.writeU8At(1, i+1)

		transferReq := req.nextU8()
		apndp := transferReq&transferAPnDP != 0
		rnw := transferReq&transferRnW != 0
		a := transferAddr(transferReq)
		vmatch := transferReq&transferValueMatch != 0
		mmask := transferReq&transferMatchMask != 0

		if rnw {
			var readValue uint32
			if apndp {
				// AP reads are posted: issue the read, then read
				// RDBUFF for the actual data. An extra transaction,
				// but simpler than tracking posted-read state.
				if _, err := d.swd.ReadAP(a); !checkResult(err, w.statusAt(2)) {
					break
				}
				v, err := d.swd.ReadDP(swd.DPRDBuff)
				if !checkResult(err, w.statusAt(2)) {
					break
				}
				readValue = v
			} else {
				v, err := d.swd.ReadDP(swd.DPRegister(a))
				if !checkResult(err, w.statusAt(2)) {
					break
				}
				readValue = v
			}

			if vmatch {
				target := req.nextU32()
				tries := 0
				for (readValue & matchMask) != target {
					tries++
					if tries > d.matchRetries {
						break
					}
					v, err := d.readReg(apndp, a)
					if !checkResult(err, w.statusAt(2)) {
						break
					}
					readValue = v
				}
				if (readValue & matchMask) != target {
					w.writeU8At(2, w.readU8At(2)|(1<<4))
					break
				}
			} else {
				w.writeU32(readValue)
			}
		} else {
			if mmask {
				matchMask = req.nextU32()
				continue
			}
			writeValue := req.nextU32()
			if err := d.writeReg(apndp, a, writeValue); !checkResult(err, w.statusAt(2)) {
				break
			}
		}
	}

	return w
}

func (d *DAP) processTransferBlock(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	req.nextU8() // DAP index, ignored
	ntransfers := req.nextU16()
	transferReq := req.nextU8()
	apndp := transferReq&transferAPnDP != 0
	rnw := transferReq&transferRnW != 0
	a := transferAddr(transferReq)

	// Reserve three bytes: [transfers executed (u16), status].
	w.writeU16(0)
	w.writeU8(0)

	var transfers uint16

	if rnw && apndp {
		if _, err := d.swd.ReadAP(a); !checkResult(err, w.statusAt(3)) {
			w.writeU16At(1, 1)
			return w
		}
	}

	for i := uint16(0); i < ntransfers; i++ {
		transfers = i
		if rnw {
			var readValue uint32
			var err error
			if apndp {
				if i < ntransfers-1 {
					readValue, err = d.swd.ReadAP(a)
				} else {
					readValue, err = d.swd.ReadDP(swd.DPRDBuff)
				}
			} else {
				readValue, err = d.swd.ReadDP(swd.DPRegister(a))
			}
			if !checkResult(err, w.statusAt(3)) {
				break
			}
			w.writeU32(readValue)
		} else {
			writeValue := req.nextU32()
			if err := d.writeReg(apndp, a, writeValue); !checkResult(err, w.statusAt(3)) {
				break
			}
		}
	}

	w.writeU16At(1, transfers+1)
	return w
}

// processTransferAbort is a no-op: transfers block the main loop, so no
// new USB interrupt (and thus no abort request) can be serviced while one
// is in progress.
func (d *DAP) processTransferAbort(req request) *responseWriter {
	return nil
}
