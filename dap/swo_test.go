package dap

import "testing"

func TestProcessCommandSWOTransport(t *testing.T) {
	d := fakeDAP(t)

	resp := d.ProcessCommand([]byte{byte(CmdSWOTransport), byte(SWOTransportUSBEndpoint)})
	if resp[1] != responseOK {
		t.Fatalf("SWO_Transport(USBEndpoint) = %#x, want OK", resp[1])
	}
	if !d.swoStreaming {
		t.Error("SWOTransportUSBEndpoint did not enable swoStreaming")
	}

	resp = d.ProcessCommand([]byte{byte(CmdSWOTransport), byte(SWOTransportNone)})
	if resp[1] != responseOK || d.swoStreaming {
		t.Error("SWOTransportNone did not disable swoStreaming")
	}

	resp = d.ProcessCommand([]byte{byte(CmdSWOTransport), 0x7F})
	if resp[1] != responseError {
		t.Errorf("SWO_Transport(unknown) = %#x, want error", resp[1])
	}
}

func TestProcessCommandSWOMode(t *testing.T) {
	d := fakeDAP(t)
	if resp := d.ProcessCommand([]byte{byte(CmdSWOMode), byte(SWOModeUART)}); resp[1] != responseOK {
		t.Errorf("SWO_Mode(UART) = %#x, want OK", resp[1])
	}
	if resp := d.ProcessCommand([]byte{byte(CmdSWOMode), byte(SWOModeManchester)}); resp[1] != responseError {
		t.Errorf("SWO_Mode(Manchester) = %#x, want error (unsupported)", resp[1])
	}
}

func TestProcessCommandSWOBaudrate(t *testing.T) {
	d := fakeDAP(t)
	// 115200 baud, little-endian u32.
	resp := d.ProcessCommand([]byte{byte(CmdSWOBaudrate), 0x00, 0xc2, 0x01, 0x00})
	actual := uint32(resp[1]) | uint32(resp[2])<<8 | uint32(resp[3])<<16 | uint32(resp[4])<<24
	if actual == 0 {
		t.Error("SWO_Baudrate returned 0, want the achieved baud rate")
	}
}

func TestProcessCommandSWOControl(t *testing.T) {
	d := fakeDAP(t)

	resp := d.ProcessCommand([]byte{byte(CmdSWOControl), byte(SWOControlStart)})
	if resp[1] != responseOK || !d.uart.IsActive() {
		t.Error("SWO_Control(Start) did not activate the UART")
	}

	resp = d.ProcessCommand([]byte{byte(CmdSWOControl), byte(SWOControlStop)})
	if resp[1] != responseOK || d.uart.IsActive() {
		t.Error("SWO_Control(Stop) did not deactivate the UART")
	}

	resp = d.ProcessCommand([]byte{byte(CmdSWOControl), 0x7F})
	if resp[1] != responseError {
		t.Errorf("SWO_Control(unknown) = %#x, want error", resp[1])
	}
}

func TestProcessCommandSWOStatus(t *testing.T) {
	d := fakeDAP(t)
	d.ProcessCommand([]byte{byte(CmdSWOControl), byte(SWOControlStart)})

	resp := d.ProcessCommand([]byte{byte(CmdSWOStatus)})
	if resp[1] != 1 {
		t.Errorf("SWO_Status active bit = %d, want 1", resp[1])
	}
}

func TestProcessCommandSWOExtendedStatus(t *testing.T) {
	d := fakeDAP(t)
	resp := d.ProcessCommand([]byte{byte(CmdSWOExtendedStatus)})
	// active(1) + count(4) + index(4) + timestamp(4) = 13 bytes of payload.
	if len(resp) != 1+13 {
		t.Fatalf("response len = %d, want %d", len(resp), 1+13)
	}
}

func TestProcessCommandSWODataInactive(t *testing.T) {
	d := fakeDAP(t)
	// Request 10 bytes with no SWO data buffered; expect active=0, count=0.
	resp := d.ProcessCommand([]byte{byte(CmdSWOData), 10, 0})
	if resp[1] != 0 {
		t.Errorf("active bit = %d, want 0 (UART never started)", resp[1])
	}
	count := uint16(resp[2]) | uint16(resp[3])<<8
	if count != 0 {
		t.Errorf("byte count = %d, want 0", count)
	}
}

func TestIsSWOStreamingRequiresBothUARTAndTransport(t *testing.T) {
	d := fakeDAP(t)
	if d.IsSWOStreaming() {
		t.Fatal("IsSWOStreaming true before any configuration")
	}

	d.ProcessCommand([]byte{byte(CmdSWOTransport), byte(SWOTransportUSBEndpoint)})
	if d.IsSWOStreaming() {
		t.Error("IsSWOStreaming true with transport set but UART inactive")
	}

	d.ProcessCommand([]byte{byte(CmdSWOControl), byte(SWOControlStart)})
	if !d.IsSWOStreaming() {
		t.Error("IsSWOStreaming false with transport set and UART active")
	}
}
