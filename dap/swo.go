package dap

func (d *DAP) processSWOTransport(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	switch SWOTransport(req.nextU8()) {
	case SWOTransportNone, SWOTransportDAPCommand:
		d.swoStreaming = false
		w.writeOK()
	case SWOTransportUSBEndpoint:
		d.swoStreaming = true
		w.writeOK()
	default:
		w.writeErr()
	}
	return w
}

func (d *DAP) processSWOMode(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	switch SWOMode(req.nextU8()) {
	case SWOModeOff, SWOModeUART:
		w.writeOK()
	default:
		w.writeErr()
	}
	return w
}

func (d *DAP) processSWOBaudrate(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	target := req.nextU32()
	actual := d.uart.SetBaud(target)
	w.writeU32(actual)
	return w
}

func (d *DAP) processSWOControl(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	switch SWOControl(req.nextU8()) {
	case SWOControlStop:
		d.uart.Stop()
		w.writeOK()
	case SWOControlStart:
		d.uart.Start()
		w.writeOK()
	default:
		w.writeErr()
	}
	return w
}

func (d *DAP) activeBit() uint8 {
	if d.uart.IsActive() {
		return 1
	}
	return 0
}

func (d *DAP) processSWOStatus(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	w.writeU8(d.activeBit())
	w.writeU32(d.uart.BytesAvailable())
	return w
}

func (d *DAP) processSWOExtendedStatus(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	w.writeU8(d.activeBit())
	w.writeU32(d.uart.BytesAvailable())
	w.writeU32(0) // sequence index, unimplemented
	w.writeU32(0) // test-domain timestamp, unimplemented
	return w
}

func (d *DAP) processSWOData(req request) *responseWriter {
	w := newResponseWriter(req.command, d.rbuf[:])
	n := int(req.nextU16())
	if n > 60 {
		n = 60
	}
	w.writeU8(d.activeBit())

	var buf [60]byte
	got := d.uart.Read(buf[:n])
	w.writeU16(uint16(got))
	w.writeSlice(buf[:got])
	return w
}
