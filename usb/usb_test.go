package usb

import "testing"

// TestStatToggle exercises the corrected write-1-to-toggle formulas
// (spec.md §9) across every (current, want) combination, confirming the
// computed toggle XORed with current always lands on want.
func TestStatToggle(t *testing.T) {
	wants := []uint32{statDisabled, statStall, statNAK, statValid}
	for current := uint32(0); current < 4; current++ {
		for _, want := range wants {
			toggle := statToggle(current, want)
			got := current ^ toggle
			if got != want {
				t.Errorf("current=%02b want=%02b: toggle=%02b, current^toggle=%02b",
					current, want, toggle, got)
			}
		}
	}
}
