package dap

import (
	"errors"
	"testing"

	"github.com/adamgreig/ffp/swd"
)

func TestCheckResult(t *testing.T) {
	cases := []struct {
		name   string
		err    error
		status uint8
		ok     bool
	}{
		{"ok", nil, 1, true},
		{"wait", swd.ErrAckWait, 2, false},
		{"fault", swd.ErrAckFault, 4, false},
		{"protocol", swd.ErrAckProtocol, (1 << 3) | 7, false},
		{"parity", swd.ErrBadParity, (1 << 3) | 7, false},
		{"unknown", swd.ErrAckUnknown(0b011), (1 << 3) | 7, false},
		{"other", errors.New("boom"), (1 << 3) | 7, false},
	}
	for _, c := range cases {
		var status uint8
		if got := checkResult(c.err, &status); got != c.ok {
			t.Errorf("%s: checkResult() = %v, want %v", c.name, got, c.ok)
		}
		if status != c.status {
			t.Errorf("%s: status = %#x, want %#x", c.name, status, c.status)
		}
	}
}

func TestTransferAddr(t *testing.T) {
	// bit layout: APnDP=bit0, RnW=bit1, A=bits[3:2].
	b := uint8(transferAPnDP | transferRnW | (0b10 << transferAShift))
	if got := transferAddr(b); got != 0b10 {
		t.Errorf("transferAddr(%08b) = %02b, want %02b", b, got, 0b10)
	}
}
