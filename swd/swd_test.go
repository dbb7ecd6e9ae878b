package swd

import "testing"

func TestMakeRequest(t *testing.T) {
	// DPIDR read: APnDP=0, RnW=1, A=0b00.
	// parity over (APnDP, RnW, A0, A1) = (0,1,0,0) = 1.
	req := makeRequest(DP, uint8(DPIDR), false)
	want := uint8(1) | (0 << 1) | (1 << 2) | (0 << 3) | (1 << 5) | (1 << 7)
	if req != want {
		t.Errorf("makeRequest(DP, DPIDR, read) = %08b, want %08b", req, want)
	}
}

func TestMakeRequestAPWrite(t *testing.T) {
	// AP write to address 0b10: APnDP=1, RnW=0, A=0b10.
	// parity over (1,0,0,1) = 0.
	req := makeRequest(AP, 0b10, true)
	want := uint8(1) | (1 << 1) | (0 << 2) | (0b10 << 3) | (0 << 5) | (1 << 7)
	if req != want {
		t.Errorf("makeRequest(AP, 0b10, write) = %08b, want %08b", req, want)
	}
}

func TestCheckAck(t *testing.T) {
	cases := []struct {
		ack     uint8
		wantErr error
	}{
		{ackOK, nil},
		{ackWait, ErrAckWait},
		{ackFault, ErrAckFault},
		{0b111, ErrAckProtocol},
	}
	for _, c := range cases {
		if err := checkAck(c.ack); err != c.wantErr {
			t.Errorf("checkAck(%03b) = %v, want %v", c.ack, err, c.wantErr)
		}
	}

	if err := checkAck(0b011); err == nil {
		t.Error("checkAck(0b011) = nil, want ErrAckUnknown")
	} else if _, ok := err.(ErrAckUnknown); !ok {
		t.Errorf("checkAck(0b011) = %T, want ErrAckUnknown", err)
	}
}

func TestPopcount(t *testing.T) {
	cases := []struct {
		v    uint32
		want uint8
	}{
		{0, 0},
		{1, 1},
		{0xff, 8},
		{0xffffffff, 32},
		{0b1010_1010, 4},
	}
	for _, c := range cases {
		if got := popcount(c.v); got != c.want {
			t.Errorf("popcount(%#x) = %d, want %d", c.v, got, c.want)
		}
	}
}
