package dap

import "testing"

func TestRequestCursor(t *testing.T) {
	report := []byte{byte(CmdDelay), 0x34, 0x12, 0xaa, 0xbb, 0xcc, 0xdd, 0xff}
	req, ok := newRequest(report)
	if !ok {
		t.Fatal("newRequest() = false, want true")
	}
	if req.command != CmdDelay {
		t.Fatalf("command = %#x, want %#x", req.command, CmdDelay)
	}
	if got := req.nextU16(); got != 0x1234 {
		t.Fatalf("nextU16() = %#x, want %#x", got, 0x1234)
	}
	if got := req.nextU32(); got != 0xddccbbaa {
		t.Fatalf("nextU32() = %#x, want %#x", got, 0xddccbbaa)
	}
	if rest := req.rest(); len(rest) != 1 || rest[0] != 0xff {
		t.Fatalf("rest() = %v, want [0xff]", rest)
	}
}

func TestNewRequestEmpty(t *testing.T) {
	if _, ok := newRequest(nil); ok {
		t.Error("newRequest(nil) = true, want false")
	}
}

func TestResponseWriter(t *testing.T) {
	buf := make([]byte, 16)
	w := newResponseWriter(CmdInfo, buf)
	w.writeU8(1)
	w.writeU16(0x1234)
	w.writeU32(0xdeadbeef)
	w.writeSlice([]byte{0xaa, 0xbb})

	out := w.finished()
	want := []byte{byte(CmdInfo), 1, 0x34, 0x12, 0xef, 0xbe, 0xad, 0xde, 0xaa, 0xbb}
	if len(out) != len(want) {
		t.Fatalf("finished() len = %d, want %d", len(out), len(want))
	}
	for i := range want {
		if out[i] != want[i] {
			t.Errorf("finished()[%d] = %#x, want %#x", i, out[i], want[i])
		}
	}
}

func TestResponseWriterRandomAccess(t *testing.T) {
	buf := make([]byte, 8)
	w := newResponseWriter(CmdTransfer, buf)
	w.writeU8(0)
	w.writeU8(0)
	w.writeU8At(1, 5)
	w.writeU16At(2, 0xbeef)

	if got := w.readU8At(1); got != 5 {
		t.Errorf("readU8At(1) = %d, want 5", got)
	}
	status := w.statusAt(1)
	*status = 9
	if w.buf[1] != 9 {
		t.Errorf("statusAt() did not alias buf: buf[1] = %d, want 9", w.buf[1])
	}
}
