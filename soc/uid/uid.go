// Package uid reads the SoC's 96-bit factory-programmed unique ID and
// renders it as the device's USB serial number.
//
// Grounded directly on hal/unique_id.rs: same fixed addresses, same
// little-endian byte order, same low-nibble-first hex rendering.
package uid

import "unsafe"

// Fixed addresses of the 96-bit unique ID on this SoC family.
const (
	addr1 = 0x1ffff7ac
	addr2 = 0x1ffff7b0
	addr3 = 0x1ffff7b4
)

// Get returns the 12-byte (96-bit) unique ID.
func Get() [12]byte {
	var id [12]byte
	w1 := *(*uint32)(unsafe.Pointer(uintptr(addr1)))
	w2 := *(*uint32)(unsafe.Pointer(uintptr(addr2)))
	w3 := *(*uint32)(unsafe.Pointer(uintptr(addr3)))

	putLE(id[0:4], w1)
	putLE(id[4:8], w2)
	putLE(id[8:12], w3)

	return id
}

func putLE(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

var hexDigits = [16]byte{
	'0', '1', '2', '3', '4', '5', '6', '7',
	'8', '9', 'a', 'b', 'c', 'd', 'e', 'f',
}

// GetHex returns the unique ID as 24 lowercase ASCII hex characters, low
// nibble first within each byte (matching the original firmware's
// rendering, which is not standard big-endian hex).
func GetHex() [24]byte {
	id := Get()
	var out [24]byte
	for i, v := range id {
		out[i*2] = hexDigits[v&0x0f]
		out[i*2+1] = hexDigits[(v&0xf0)>>4]
	}
	return out
}
