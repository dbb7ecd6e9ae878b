package spi

import "testing"

func TestFromMax(t *testing.T) {
	const pclk = 48_000_000

	cases := []struct {
		hz   uint32
		want Clock
	}{
		{24_000_000, Clk2},
		{12_000_000, Clk4},
		{1_000_000, Clk64},
		{1, Clk256},
		{100_000_000, Clk2}, // faster than any divider produces: fastest wins
	}

	for _, c := range cases {
		if got := FromMax(pclk, c.hz); got != c.want {
			t.Errorf("FromMax(%d, %d) = %v, want %v", pclk, c.hz, got, c.want)
		}
	}
}
