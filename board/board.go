// Package board collects the platform intrinsics app.App needs that have
// no portable Go expression: entering low-power wait-for-event sleep
// between interrupts.
//
// Grounded on the teacher's board packages, which keep exactly this kind
// of SoC-specific intrinsic out of the shared core (e.g.
// board/usbarmory/mk2.Reset wrapping an assembly reset sequence); the WFE
// instruction itself is named as a Non-goal (spec.md's idle loop is
// platform-specific), so this is a documented stub rather than a real
// power-management implementation.
package board

// WaitForEvent parks the core until the next interrupt or event. On real
// hardware this is the Cortex-M0 WFE instruction; modelling it exactly
// would require an assembly trampoline for no behavioural benefit to the
// rest of the firmware, so it is left as a named, empty hook.
func WaitForEvent() {}
