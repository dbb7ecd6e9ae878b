package jtag

import "testing"

func TestBytesForBits(t *testing.T) {
	cases := []struct {
		bits int
		want int
	}{
		{0, 0},
		{1, 1},
		{7, 1},
		{8, 1},
		{9, 2},
		{64, 8},
	}
	for _, c := range cases {
		if got := bytesForBits(c.bits); got != c.want {
			t.Errorf("bytesForBits(%d) = %d, want %d", c.bits, got, c.want)
		}
	}
}
