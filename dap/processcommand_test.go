package dap

import (
	"testing"

	"github.com/adamgreig/ffp/soc/gpio"
)

func TestProcessCommandInfoFirmwareVersion(t *testing.T) {
	d := fakeDAP(t)
	resp := d.ProcessCommand([]byte{byte(CmdInfo), byte(InfoFirmwareVersion)})
	if resp[0] != byte(CmdInfo) {
		t.Fatalf("response command byte = %#x, want %#x", resp[0], CmdInfo)
	}
	n := int(resp[1])
	if n != len(FirmwareVersion) {
		t.Fatalf("reported length = %d, want %d", n, len(FirmwareVersion))
	}
	if string(resp[2:2+n]) != FirmwareVersion {
		t.Errorf("version = %q, want %q", resp[2:2+n], FirmwareVersion)
	}
}

func TestProcessCommandInfoCapabilities(t *testing.T) {
	d := fakeDAP(t)
	resp := d.ProcessCommand([]byte{byte(CmdInfo), byte(InfoCapabilities)})
	if resp[1] != 1 {
		t.Fatalf("length byte = %d, want 1", resp[1])
	}
	if resp[2] != 0b0100_0101 {
		t.Errorf("capabilities = %#b, want %#b", resp[2], 0b0100_0101)
	}
}

func TestProcessCommandInfoMaxPacketSize(t *testing.T) {
	d := fakeDAP(t)
	resp := d.ProcessCommand([]byte{byte(CmdInfo), byte(InfoMaxPacketSize)})
	size := uint16(resp[2]) | uint16(resp[3])<<8
	if size != 64 {
		t.Errorf("max packet size = %d, want 64", size)
	}
}

func TestProcessCommandUnimplemented(t *testing.T) {
	d := fakeDAP(t)
	resp := d.ProcessCommand([]byte{0x7A})
	if resp[0] != byte(CmdUnimplemented) {
		t.Fatalf("response = %#x, want CmdUnimplemented", resp[0])
	}
}

func TestProcessCommandEmptyReport(t *testing.T) {
	d := fakeDAP(t)
	if resp := d.ProcessCommand(nil); resp != nil {
		t.Errorf("ProcessCommand(nil) = %v, want nil", resp)
	}
}

func TestProcessCommandHostStatusSetsLED(t *testing.T) {
	d := fakeDAP(t)
	resp := d.ProcessCommand([]byte{byte(CmdHostStatus), byte(HostStatusConnect), 1})
	if resp[1] != responseOK {
		t.Fatalf("status = %#x, want OK", resp[1])
	}
	if d.pins.LED.State() != gpio.High {
		t.Errorf("LED not driven high by HostStatus connect=1")
	}
}

func TestProcessCommandConnectAndDisconnect(t *testing.T) {
	d := fakeDAP(t)

	resp := d.ProcessCommand([]byte{byte(CmdConnect), byte(ConnectSWD)})
	if resp[1] != connectRespSWD {
		t.Fatalf("connect response = %d, want %d", resp[1], connectRespSWD)
	}
	if !d.configured {
		t.Error("DAP_Connect(SWD) did not mark the interpreter configured")
	}

	resp = d.ProcessCommand([]byte{byte(CmdDisconnect)})
	if resp[1] != responseOK {
		t.Fatalf("disconnect status = %#x, want OK", resp[1])
	}
	if d.configured {
		t.Error("DAP_Disconnect left the interpreter configured")
	}
}

func TestProcessCommandConnectUnsupportedPort(t *testing.T) {
	d := fakeDAP(t)
	resp := d.ProcessCommand([]byte{byte(CmdConnect), byte(ConnectJTAG)})
	if resp[1] != connectRespFailed {
		t.Fatalf("connect(JTAG) response = %d, want %d (failed)", resp[1], connectRespFailed)
	}
}

func TestProcessCommandSWJClockZeroErrors(t *testing.T) {
	d := fakeDAP(t)
	resp := d.ProcessCommand([]byte{byte(CmdSWJClock), 0, 0, 0, 0})
	if resp[1] != responseError {
		t.Fatalf("SWJ_Clock(0) = %#x, want error", resp[1])
	}
}

func TestProcessCommandSWJClockAccepted(t *testing.T) {
	d := fakeDAP(t)
	// 1MHz, little-endian u32.
	resp := d.ProcessCommand([]byte{byte(CmdSWJClock), 0x40, 0x42, 0x0f, 0})
	if resp[1] != responseOK {
		t.Fatalf("SWJ_Clock(1MHz) = %#x, want OK", resp[1])
	}
}

func TestProcessCommandSWDConfigure(t *testing.T) {
	d := fakeDAP(t)
	if resp := d.ProcessCommand([]byte{byte(CmdSWDConfigure), 0}); resp[1] != responseOK {
		t.Errorf("SWD_Configure(0) = %#x, want OK", resp[1])
	}
	if resp := d.ProcessCommand([]byte{byte(CmdSWDConfigure), 0b100}); resp[1] != responseError {
		t.Errorf("SWD_Configure(always-data) = %#x, want error", resp[1])
	}
}

func TestProcessCommandJTAGConfigureUnsupported(t *testing.T) {
	d := fakeDAP(t)
	if resp := d.ProcessCommand([]byte{byte(CmdJTAGConfigure), 0}); resp[1] != responseError {
		t.Errorf("JTAG_Configure = %#x, want error", resp[1])
	}
	if resp := d.ProcessCommand([]byte{byte(CmdJTAGIDCODE), 0}); resp[1] != responseError {
		t.Errorf("JTAG_IDCODE = %#x, want error", resp[1])
	}
}

func TestProcessCommandResetTarget(t *testing.T) {
	d := fakeDAP(t)
	resp := d.ProcessCommand([]byte{byte(CmdResetTarget)})
	if resp[1] != responseOK || resp[2] != 0 {
		t.Errorf("ResetTarget response = %v, want [OK 0]", resp[1:3])
	}
}

func TestProcessCommandDelay(t *testing.T) {
	d := fakeDAP(t)
	resp := d.ProcessCommand([]byte{byte(CmdDelay), 1, 0})
	if resp[1] != responseOK {
		t.Errorf("Delay response = %#x, want OK", resp[1])
	}
}

func TestProcessCommandWriteABORTRequiresConnect(t *testing.T) {
	d := fakeDAP(t)
	resp := d.ProcessCommand([]byte{byte(CmdWriteABORT), 0, 0, 0, 0, 0})
	if resp[1] != responseError {
		t.Fatalf("WriteABORT before Connect = %#x, want error", resp[1])
	}
}

func TestProcessCommandTransferAbortIsNoop(t *testing.T) {
	d := fakeDAP(t)
	if resp := d.ProcessCommand([]byte{byte(CmdTransferAbort)}); resp != nil {
		t.Errorf("TransferAbort = %v, want nil (no response, matching the CMSIS-DAP spec's fire-and-forget abort)", resp)
	}
}
